package models

import (
	"encoding/json"
	"strings"
)

type Surgery struct {
	ID          string `json:"id"`
	PatientName string `json:"patient_name"`
	Procedure   string `json:"procedure"`
	Date        string `json:"date"`
	Status      string `json:"status"`
	DoctorID    string `json:"doctor_id"`
}

// UnmarshalJSON accepts the server's "_id" when "id" is absent.
func (s *Surgery) UnmarshalJSON(data []byte) error {
	type alias Surgery
	var raw struct {
		alias
		RecordID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Surgery(raw.alias)
	if s.ID == "" {
		s.ID = raw.RecordID
	}
	return nil
}

// SurgeryUpdate is a partial surgery update. At least one field must be set.
type SurgeryUpdate struct {
	PatientName *string `json:"patient_name,omitempty"`
	Procedure   *string `json:"procedure,omitempty"`
	Date        *string `json:"date,omitempty"`
	Status      *string `json:"status,omitempty"`
	DoctorID    *string `json:"doctor_id,omitempty"`
}

func (u SurgeryUpdate) Empty() bool {
	return u.PatientName == nil && u.Procedure == nil && u.Date == nil && u.Status == nil && u.DoctorID == nil
}

// Apply returns s with every set field of u copied over.
func (u SurgeryUpdate) Apply(s Surgery) Surgery {
	if u.PatientName != nil {
		s.PatientName = *u.PatientName
	}
	if u.Procedure != nil {
		s.Procedure = *u.Procedure
	}
	if u.Date != nil {
		s.Date = *u.Date
	}
	if u.Status != nil {
		s.Status = *u.Status
	}
	if u.DoctorID != nil {
		s.DoctorID = *u.DoctorID
	}
	return s
}

// SurgeryStatuses are the status values offered when editing a case.
var SurgeryStatuses = []string{
	"Scheduled",
	"Pre-Op",
	"In Progress",
	"Post-Op",
	"Completed",
	"Pending",
	"Cancelled",
}

type StatusColor string

const (
	ColorGreen  StatusColor = "green"
	ColorBlue   StatusColor = "blue"
	ColorYellow StatusColor = "yellow"
)

// DetermineStatusColor maps free-text surgery status to a display color.
// Keywords are checked in order so "post-op" is green before "pre" can match.
func DetermineStatusColor(status string) StatusColor {
	s := strings.ToLower(status)
	switch {
	case strings.Contains(s, "complete"), strings.Contains(s, "post"):
		return ColorGreen
	case strings.Contains(s, "progress"):
		return ColorBlue
	case strings.Contains(s, "pre"), strings.Contains(s, "prep"):
		return ColorYellow
	case strings.Contains(s, "pending"):
		return ColorBlue
	case strings.Contains(s, "sched"):
		return ColorGreen
	case strings.Contains(s, "cancel"):
		return ColorBlue
	}
	return ColorBlue
}
