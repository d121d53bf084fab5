package models

import "encoding/json"

type TimeConstraint string

const (
	ConstraintExact   TimeConstraint = "exact"
	ConstraintOverlap TimeConstraint = "overlap"
)

// AvailabilityRequest describes the resources a case needs in a time window.
type AvailabilityRequest struct {
	PatientID                string         `json:"patient_id,omitempty"`
	RequestedDate            string         `json:"requested_date"`
	RequestedStart           string         `json:"requested_start"`
	RequestedEnd             string         `json:"requested_end"`
	RequiredTestType         string         `json:"required_test_type"`
	RequiredRadiologists     int            `json:"required_radiologists"`
	RequiredAssistantDoctors int            `json:"required_assistant_doctors"`
	RequiredNurses           int            `json:"required_nurses"`
	RequiredOperationRooms   int            `json:"required_operation_rooms"`
	RequiredEquipment        string         `json:"required_equipment,omitempty"`
	TimeConstraintType       TimeConstraint `json:"time_constraint_type"`
}

// RawResource is a resource as the server sends it. Only some of the
// name fields are set depending on the source collection.
type RawResource struct {
	ID            string `json:"id,omitempty"`
	Name          string `json:"name,omitempty"`
	NurseName     string `json:"nurse_name,omitempty"`
	Email         string `json:"email,omitempty"`
	EquipmentName string `json:"equipment_name,omitempty"`
	OTID          string `json:"ot_id,omitempty"`
}

type TestScore struct {
	PatientID string  `json:"patient_id"`
	Score     float64 `json:"score"`
	Date      string  `json:"date"`
}

// LegacyAvailability is the flat response of the original availability endpoint.
type LegacyAvailability struct {
	Date                       string        `json:"date"`
	Start                      string        `json:"start"`
	End                        string        `json:"end"`
	RadiologistsAvailable      []RawResource `json:"radiologists_available"`
	AssistantDoctorsAvailable  []RawResource `json:"assistant_doctors_available"`
	NursesAvailable            []RawResource `json:"nurses_available"`
	EquipmentAvailable         []RawResource `json:"equipment_available"`
	OperationTheatresAvailable []RawResource `json:"operation_theatres_available"`
	LatestTestScores           []TestScore   `json:"latest_test_scores"`
	MatchStatus                string        `json:"match_status"`
}

type ScenarioMetrics struct {
	CoverageScore            float64  `json:"coverage_score"`
	PredictedOvertimeMinutes int      `json:"predicted_overtime_minutes"`
	Confidence               float64  `json:"confidence"`
	Reasoning                []string `json:"reasoning"`
	ReasonCodes              []string `json:"reason_codes"`
}

// HasReason reports whether code is among the metric reason codes.
func (m ScenarioMetrics) HasReason(code string) bool {
	for _, c := range m.ReasonCodes {
		if c == code {
			return true
		}
	}
	return false
}

type RawScenario struct {
	ScenarioID       string          `json:"scenario_id"`
	Label            string          `json:"label"`
	Radiologists     []RawResource   `json:"radiologists"`
	AssistantDoctors []RawResource   `json:"assistant_doctors"`
	Nurses           []RawResource   `json:"nurses"`
	Equipment        []RawResource   `json:"equipment"`
	OperationRooms   []RawResource   `json:"operation_rooms"`
	Metrics          ScenarioMetrics `json:"metrics"`
	GeneratedAt      string          `json:"generated_at"`
}

// OptimizedAvailability is the multi-scenario response.
type OptimizedAvailability struct {
	RequestKey     string             `json:"request_key"`
	Cached         bool               `json:"cached"`
	CacheExpiresAt string             `json:"cache_expires_at,omitempty"`
	Baseline       LegacyAvailability `json:"baseline"`
	Scenarios      []RawScenario      `json:"scenarios"`
}

type ScenarioFeedback struct {
	RequestKey      string `json:"request_key"`
	ScenarioID      string `json:"scenario_id"`
	Accepted        bool   `json:"accepted"`
	FeedbackNotes   string `json:"feedback_notes,omitempty"`
	OverrideSummary string `json:"override_summary,omitempty"`
}

// RawJSON keeps a response body for lazy decoding.
type RawJSON = json.RawMessage
