package models

// CrewMember is a roster entry with an explicit role.
type CrewMember struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// Crew is the wire shape of a case roster.
type Crew struct {
	PatientID   string   `json:"patient_id,omitempty"`
	Doctors     []string `json:"doctors"`
	Nurses      []string `json:"nurses"`
	PerformedBy string   `json:"performed_by,omitempty"`
}

// CrewContact is a crew member as recorded in a published plan.
type CrewContact struct {
	Role  Role   `json:"role"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
