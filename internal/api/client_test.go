package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/surgisync/internal/models"
)

func newTestServer(t *testing.T, h http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", WithToken("tok"))
}

func TestBearerHeaderAndTrailingSlash(t *testing.T) {
	var gotAuth, gotPath string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"patient_id":"p1","doctors":["Dr. Wong"],"nurses":["Susan"]}`))
	})

	crew, err := c.FetchCrew(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "/crew/p1", gotPath)
	assert.Equal(t, []string{"Dr. Wong"}, crew.Doctors)
	assert.Equal(t, []string{"Susan"}, crew.Nurses)
}

func TestNoAuthorizationWithoutToken(t *testing.T) {
	var sawHeader atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawHeader.Store(r.Header.Get("Authorization") != "")
		_, _ = w.Write([]byte(`{"steps":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	assert.False(t, c.HasToken())
	_, err := c.FetchTimeline(context.Background(), "p1")
	require.NoError(t, err)
	assert.False(t, sawHeader.Load())
}

func TestErrorMessageExtraction(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail", 400, `{"detail":"No updates provided."}`, "No updates provided."},
		{"error", 500, `{"error":"boom"}`, "boom"},
		{"message", 409, `{"message":"conflict"}`, "conflict"},
		{"detail wins", 400, `{"message":"m","detail":"d"}`, "d"},
		{"validation list", 422, `{"detail":[{"loc":["body","email"],"msg":"field required"}]}`, "email: field required"},
		{"empty body", 502, ``, "Request failed"},
		{"not json", 500, `<html>oops</html>`, "Request failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			err := c.UpdateCrew(context.Background(), models.Crew{PatientID: "p1", Doctors: []string{"A"}})
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.want, apiErr.Message)
		})
	}
}

func TestEmptySuccessBodyDecodesAsEmptyObject(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	crew, err := c.FetchCrew(context.Background(), "p1")
	require.NoError(t, err)
	assert.Empty(t, crew.Doctors)
}

func TestUpdateTasksSendsFullList(t *testing.T) {
	var got models.TaskUpdate
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/tasks/update", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"detail":"Tasks updated"}`))
	})

	err := c.UpdateTasks(context.Background(), models.TaskUpdate{
		PatientID: "p1",
		Scope:     models.ScopePreOp,
		StaffName: "Dr. Wong",
		StaffRole: models.RoleDoctor,
		Tasks: []models.TaskRecord{
			{Label: "Coordinate with anesthesia", Status: models.StatusPending, Priority: models.PriorityRoutine},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Dr. Wong", got.StaffName)
	require.Len(t, got.Tasks, 1)
	assert.Equal(t, models.PriorityRoutine, got.Tasks[0].Priority)
}

func TestUpdateTasksEmptyListIsArray(t *testing.T) {
	var raw map[string]json.RawMessage
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
	})
	err := c.UpdateTasks(context.Background(), models.TaskUpdate{PatientID: "p1", Scope: models.ScopePostOp, StaffName: "Susan", StaffRole: models.RoleNurse})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw["tasks"]))
}

func TestFetchTasksAndSurgeries(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tasks/p1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tasks":[{"patient_id":"p1","scope":"surgery","staff_name":"Susan","staff_role":"nurse","tasks":[{"label":"Monitor vitals","status":"in_progress"}]}]}`))
	})
	mux.HandleFunc("/surgeries/doc-1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"surgeries":[{"_id":"s1","patient_name":"Ana","procedure":"Appendectomy","status":"Pre-Op","doctor_id":"doc-1"}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	c := NewClient(srv.URL)

	tasks, err := c.FetchTasks(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, models.ScopeSurgery, tasks[0].Scope)
	assert.Equal(t, models.StatusInProgress, tasks[0].Tasks[0].Status)

	surgeries, err := c.FetchSurgeries(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Len(t, surgeries, 1)
	assert.Equal(t, "s1", surgeries[0].ID)
}

func TestUpdateSurgeryRejectsEmptyUpdate(t *testing.T) {
	var calls atomic.Int32
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})
	_, err := c.UpdateSurgery(context.Background(), "s1", models.SurgeryUpdate{})
	require.Error(t, err)
	assert.Zero(t, calls.Load())
}

func TestUpdateSurgeryUsesPut(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/surgeries/update/s1", r.URL.Path)
		_, _ = w.Write([]byte(`{"_id":"s1","status":"In Progress"}`))
	})
	status := "In Progress"
	s, err := c.UpdateSurgery(context.Background(), "s1", models.SurgeryUpdate{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "In Progress", s.Status)
}

func TestLoginInstallsToken(t *testing.T) {
	var lastAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"fresh","token_type":"bearer","user":{"id":"u1","email":"a@b.c","roles":["doctor"]}}`))
	})
	mux.HandleFunc("/crew/p1", func(w http.ResponseWriter, r *http.Request) {
		lastAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL)
	sess, err := c.Login(context.Background(), "a@b.c", "password1")
	require.NoError(t, err)
	assert.Equal(t, "u1", sess.User.ID)
	assert.True(t, c.HasToken())

	_, err = c.FetchCrew(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer fresh", lastAuth)
}

func TestOptimizedAvailabilityReturnsRawBody(t *testing.T) {
	var req models.AvailabilityRequest
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/availability/optimized", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_, _ = w.Write([]byte(`{"request_key":"k1","scenarios":[]}`))
	})
	raw, err := c.RequestOptimizedAvailability(context.Background(), models.AvailabilityRequest{RequestedDate: "2026-10-17", RequiredNurses: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"request_key":"k1","scenarios":[]}`, string(raw))
	assert.Equal(t, models.ConstraintOverlap, req.TimeConstraintType)
}

func TestPublishAndFetchPlan(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/publish", func(w http.ResponseWriter, r *http.Request) {
		var plan models.PublishedPlan
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&plan))
		plan.RecordID = "rec-1"
		resp := map[string]any{"message": "Plan published successfully", "plan_id": "rec-1", "plan": plan}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/publish/rec-1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"_id":"rec-1","plan_id":"client-1","tasks":[]}`))
	})
	mux.HandleFunc("/published/p1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"plans":[{"_id":"rec-1","plan_id":"client-1"}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	c := NewClient(srv.URL)

	res, err := c.PublishPlan(context.Background(), models.PublishedPlan{PlanID: "client-1", Tasks: []models.TaskBundle{}})
	require.NoError(t, err)
	assert.Equal(t, "rec-1", res.RecordID)
	assert.Equal(t, "client-1", res.Plan.PlanID)

	plan, err := c.FetchPlan(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "client-1", plan.PlanID)

	plans, err := c.FetchPublishedPlans(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "rec-1", plans[0].RecordID)
}

func TestStatusHelpers(t *testing.T) {
	assert.True(t, IsUnauthorized(&APIError{Status: 401}))
	assert.False(t, IsUnauthorized(errors.New("x")))
	assert.True(t, IsNotFound(&APIError{Status: 404}))
}

func TestMissingIDsFailFast(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")
	_, err := c.FetchTasks(context.Background(), "  ")
	assert.Error(t, err)
	_, err = c.FetchSurgeries(context.Background(), "")
	assert.Error(t, err)
	err = c.SendScenarioFeedback(context.Background(), models.ScenarioFeedback{})
	assert.Error(t, err)
}
