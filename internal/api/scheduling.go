package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/julianstephens/surgisync/internal/models"
)

// RequestAvailability calls the legacy single-result endpoint. The body is
// returned undecoded so the optimizer can classify it.
func (c *HTTPClient) RequestAvailability(ctx context.Context, req models.AvailabilityRequest) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint("availability"), withConstraint(req), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *HTTPClient) RequestOptimizedAvailability(ctx context.Context, req models.AvailabilityRequest) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint("availability", "optimized"), withConstraint(req), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *HTTPClient) SendScenarioFeedback(ctx context.Context, feedback models.ScenarioFeedback) error {
	if feedback.RequestKey == "" || feedback.ScenarioID == "" {
		return fmt.Errorf("feedback needs a request key and scenario id")
	}
	return c.doJSON(ctx, http.MethodPost, c.endpoint("availability", "optimized", "feedback"), feedback, nil)
}

func withConstraint(req models.AvailabilityRequest) models.AvailabilityRequest {
	if req.TimeConstraintType == "" {
		req.TimeConstraintType = models.ConstraintOverlap
	}
	return req
}

func (c *HTTPClient) PublishPlan(ctx context.Context, plan models.PublishedPlan) (*models.PublishResult, error) {
	out := &models.PublishResult{}
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint("publish"), plan, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) FetchPlan(ctx context.Context, recordID string) (*models.PublishedPlan, error) {
	if err := requireID("plan", recordID); err != nil {
		return nil, err
	}
	out := &models.PublishedPlan{}
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint("publish", recordID), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) FetchPublishedPlans(ctx context.Context, patientID string) ([]models.PublishedPlan, error) {
	if err := requireID("patient", patientID); err != nil {
		return nil, err
	}
	var response struct {
		Plans []models.PublishedPlan `json:"plans"`
	}
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint("published", patientID), nil, &response); err != nil {
		return nil, err
	}
	return response.Plans, nil
}
