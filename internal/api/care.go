package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/julianstephens/surgisync/internal/models"
)

func requireID(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%s id is required", kind)
	}
	return nil
}

func (c *HTTPClient) FetchTasks(ctx context.Context, patientID string) ([]models.TaskUpdate, error) {
	if err := requireID("patient", patientID); err != nil {
		return nil, err
	}
	var response struct {
		Tasks []models.TaskUpdate `json:"tasks"`
	}
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint("tasks", patientID), nil, &response); err != nil {
		return nil, err
	}
	return response.Tasks, nil
}

// UpdateTasks replaces one staff member's full list for a scope.
func (c *HTTPClient) UpdateTasks(ctx context.Context, update models.TaskUpdate) error {
	if err := requireID("patient", update.PatientID); err != nil {
		return err
	}
	if update.Tasks == nil {
		update.Tasks = []models.TaskRecord{}
	}
	return c.doJSON(ctx, http.MethodPost, c.endpoint("tasks", "update"), update, nil)
}

func (c *HTTPClient) FetchCrew(ctx context.Context, patientID string) (*models.Crew, error) {
	if err := requireID("patient", patientID); err != nil {
		return nil, err
	}
	out := &models.Crew{}
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint("crew", patientID), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) UpdateCrew(ctx context.Context, crew models.Crew) error {
	if err := requireID("patient", crew.PatientID); err != nil {
		return err
	}
	if crew.Doctors == nil {
		crew.Doctors = []string{}
	}
	if crew.Nurses == nil {
		crew.Nurses = []string{}
	}
	return c.doJSON(ctx, http.MethodPost, c.endpoint("crew", "update"), crew, nil)
}

func (c *HTTPClient) FetchTimeline(ctx context.Context, patientID string) (*models.Timeline, error) {
	if err := requireID("patient", patientID); err != nil {
		return nil, err
	}
	out := &models.Timeline{}
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint("timeline", patientID), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) UpdateTimeline(ctx context.Context, timeline models.Timeline) error {
	if err := requireID("patient", timeline.PatientID); err != nil {
		return err
	}
	if timeline.Steps == nil {
		timeline.Steps = []models.TimelineStep{}
	}
	return c.doJSON(ctx, http.MethodPost, c.endpoint("timeline", "update"), timeline, nil)
}

func (c *HTTPClient) FetchLatestVitals(ctx context.Context, patientID string) (*models.Vitals, error) {
	if err := requireID("patient", patientID); err != nil {
		return nil, err
	}
	out := &models.Vitals{}
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint("vitals", patientID, "latest"), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) RecordVitals(ctx context.Context, vitals models.Vitals) error {
	if err := requireID("patient", vitals.PatientID); err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodPost, c.endpoint("vitals", "update"), vitals, nil)
}

func (c *HTTPClient) FetchSurgeries(ctx context.Context, doctorID string) ([]models.Surgery, error) {
	if err := requireID("doctor", doctorID); err != nil {
		return nil, err
	}
	var response struct {
		Surgeries []models.Surgery `json:"surgeries"`
	}
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint("surgeries", doctorID), nil, &response); err != nil {
		return nil, err
	}
	return response.Surgeries, nil
}

func (c *HTTPClient) UpdateSurgery(ctx context.Context, surgeryID string, update models.SurgeryUpdate) (*models.Surgery, error) {
	if err := requireID("surgery", surgeryID); err != nil {
		return nil, err
	}
	if update.Empty() {
		return nil, fmt.Errorf("surgery update must set at least one field")
	}
	out := &models.Surgery{}
	if err := c.doJSON(ctx, http.MethodPut, c.endpoint("surgeries", "update", surgeryID), update, out); err != nil {
		return nil, err
	}
	return out, nil
}
