package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/julianstephens/surgisync/internal/logger"
	"github.com/julianstephens/surgisync/internal/models"
)

// Client is the care-coordination backend as the synchronizer sees it.
type Client interface {
	Signup(ctx context.Context, req SignupRequest) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.Session, error)
	Logout(ctx context.Context, email string) error
	ChangePassword(ctx context.Context, email, oldPassword, newPassword string) error

	FetchTasks(ctx context.Context, patientID string) ([]models.TaskUpdate, error)
	UpdateTasks(ctx context.Context, update models.TaskUpdate) error
	FetchCrew(ctx context.Context, patientID string) (*models.Crew, error)
	UpdateCrew(ctx context.Context, crew models.Crew) error
	FetchTimeline(ctx context.Context, patientID string) (*models.Timeline, error)
	UpdateTimeline(ctx context.Context, timeline models.Timeline) error
	FetchLatestVitals(ctx context.Context, patientID string) (*models.Vitals, error)
	RecordVitals(ctx context.Context, vitals models.Vitals) error
	FetchSurgeries(ctx context.Context, doctorID string) ([]models.Surgery, error)
	UpdateSurgery(ctx context.Context, surgeryID string, update models.SurgeryUpdate) (*models.Surgery, error)

	RequestAvailability(ctx context.Context, req models.AvailabilityRequest) (json.RawMessage, error)
	RequestOptimizedAvailability(ctx context.Context, req models.AvailabilityRequest) (json.RawMessage, error)
	SendScenarioFeedback(ctx context.Context, feedback models.ScenarioFeedback) error

	PublishPlan(ctx context.Context, plan models.PublishedPlan) (*models.PublishResult, error)
	FetchPlan(ctx context.Context, recordID string) (*models.PublishedPlan, error)
	FetchPublishedPlans(ctx context.Context, patientID string) ([]models.PublishedPlan, error)

	HasToken() bool
}

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*HTTPClient)

// WithHTTPClient replaces the transport client. The default client sets
// no timeout of its own; callers bound requests through the context.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) { h.httpClient = c }
}

func WithToken(token string) Option {
	return func(h *HTTPClient) { h.token = token }
}

func NewClient(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) BaseURL() string { return c.baseURL }

// SetToken swaps the bearer token used for subsequent requests.
func (c *HTTPClient) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *HTTPClient) HasToken() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}

func (c *HTTPClient) endpoint(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return c.baseURL + "/" + strings.Join(escaped, "/")
}

func (c *HTTPClient) doJSON(ctx context.Context, method, endpoint string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("{}")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := newAPIError(resp.StatusCode, data)
		logger.Debug("backend request failed", "method", method, "url", endpoint, "status", resp.StatusCode, "error", apiErr.Message)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], data...)
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", endpoint, err)
	}
	return nil
}
