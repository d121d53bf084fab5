package models

type StepStatus string

const (
	StepDone     StepStatus = "done"
	StepActive   StepStatus = "active"
	StepUpcoming StepStatus = "upcoming"
)

func (s StepStatus) Valid() bool {
	return s == StepDone || s == StepActive || s == StepUpcoming
}

type TimelineStep struct {
	ID     string     `json:"id"`
	Title  string     `json:"title"`
	Time   string     `json:"time"`
	Owner  string     `json:"owner"`
	Status StepStatus `json:"status"`
}

type Timeline struct {
	PatientID   string         `json:"patient_id,omitempty"`
	Steps       []TimelineStep `json:"steps"`
	PerformedBy string         `json:"performed_by,omitempty"`
}

// Vitals readings are strings because the backend stores them that way.
type Vitals struct {
	PatientID     string `json:"patient_id,omitempty"`
	HeartRate     string `json:"heart_rate"`
	BloodPressure string `json:"blood_pressure"`
	SpO2          string `json:"spo2"`
	CapturedAt    string `json:"captured_at,omitempty"`
}

func (v Vitals) Empty() bool {
	return v.HeartRate == "" && v.BloodPressure == "" && v.SpO2 == ""
}

type User struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Roles    []string `json:"roles"`
}

type Session struct {
	Token string `json:"access_token"`
	Type  string `json:"token_type,omitempty"`
	User  User   `json:"user"`
}
