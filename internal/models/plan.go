package models

// TaskBundle is one non-empty staff list inside a published plan.
type TaskBundle struct {
	Scope     Scope        `json:"scope"`
	OwnerRole Role         `json:"owner_role"`
	OwnerName string       `json:"owner_name"`
	Tasks     []TaskRecord `json:"tasks"`
}

type Decision string

const (
	DecisionAccepted   Decision = "accepted"
	DecisionOverridden Decision = "overridden"
)

// OptimizationInsights records the scenario chosen while drafting the plan.
type OptimizationInsights struct {
	RequestKey    string   `json:"request_key,omitempty"`
	ScenarioID    string   `json:"scenario_id"`
	ScenarioLabel string   `json:"scenario_label"`
	CoverageScore float64  `json:"coverage_score"`
	Confidence    float64  `json:"confidence"`
	Decision      Decision `json:"decision"`
	Notes         string   `json:"notes,omitempty"`
}

// PublishedPlan is the immutable snapshot submitted to the server.
type PublishedPlan struct {
	PlanID               string                `json:"plan_id"`
	DoctorID             string                `json:"doctor_id"`
	PatientID            string                `json:"patient_id,omitempty"`
	Timeline             []TimelineStep        `json:"timeline"`
	Crew                 []CrewContact         `json:"crew"`
	Tasks                []TaskBundle          `json:"tasks"`
	Vitals               Vitals                `json:"vitals"`
	Timestamp            string                `json:"timestamp"`
	Tab                  string                `json:"tab,omitempty"`
	OptimizationInsights *OptimizationInsights `json:"optimization_insights,omitempty"`

	// Set by the server on the stored record.
	RecordID    string `json:"_id,omitempty"`
	Status      string `json:"status,omitempty"`
	PublishedBy string `json:"published_by,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// PublishResult is the server response to a publish call.
type PublishResult struct {
	Message  string        `json:"message"`
	RecordID string        `json:"plan_id"`
	Plan     PublishedPlan `json:"plan"`
}
