package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batchelor-project/batchelor/auth"
	"github.com/batchelor-project/batchelor/dispatch"
	"github.com/batchelor-project/batchelor/store"
)

type mockDriver struct {
	tasks      map[string]*store.Task
	eventTypes map[string]time.Time
}

func newMockDriver() *mockDriver {
	return &mockDriver{tasks: map[string]*store.Task{}, eventTypes: map[string]time.Time{}}
}

func (d *mockDriver) Migrate(context.Context) error { return nil }
func (d *mockDriver) Close() error                   { return nil }

func (d *mockDriver) SaveTask(_ context.Context, _ string, t *store.Task) error {
	cp := *t
	d.tasks[t.TaskID] = &cp
	return nil
}

func (d *mockDriver) LoadTaskByID(_ context.Context, _, taskID string) (*store.Task, error) {
	t, ok := d.tasks[taskID]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (d *mockDriver) LoadLatestByEventAndFingerprint(context.Context, string, string, uint32) (*store.Task, error) {
	return nil, nil
}

func (d *mockDriver) LoadByEventAndState(context.Context, string, string, store.State) ([]*store.Task, error) {
	return nil, nil
}

func (d *mockDriver) LoadTasks(_ context.Context, _ string, _ store.TaskFilter) ([]*store.Task, error) {
	tasks := make([]*store.Task, 0, len(d.tasks))
	for _, t := range d.tasks {
		cp := *t
		tasks = append(tasks, &cp)
	}
	return tasks, nil
}

func (d *mockDriver) Cleanup(context.Context, string, time.Duration, time.Duration, time.Time) (*store.CleanupResult, error) {
	return &store.CleanupResult{}, nil
}

func (d *mockDriver) UpdateEventTypes(_ context.Context, _ string, eventTypes []string, now time.Time) error {
	for _, et := range eventTypes {
		d.eventTypes[et] = now
	}
	return nil
}

func (d *mockDriver) LoadEventTypes(_ context.Context, _ string, ttl time.Duration, now time.Time) ([]string, error) {
	var out []string
	for et, ts := range d.eventTypes {
		if now.Sub(ts) < ttl {
			out = append(out, et)
		}
	}
	return out, nil
}

func newTestServer(t *testing.T) (*Server, *mockDriver) {
	t.Helper()
	driver := newMockDriver()
	driver.eventTypes["build"] = time.Now()
	service := dispatch.NewService(driver, 5*time.Minute)
	verifier := auth.New([]byte("test-secret"), map[string]auth.BasicUser{}, "")
	return New(service, verifier, nil), driver
}

func TestAliveRequiresNoAuth(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/alive", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRunTaskWithoutAuthIsUnauthorized(t *testing.T) {
	s, _ := newTestServer(t)
	body, _ := json.Marshal(dispatch.RunRequest{EventType: "build"})
	req := httptest.NewRequest(http.MethodPost, "/task/ns1", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRunTaskMalformedAuthHeaderIsBadRequest(t *testing.T) {
	s, _ := newTestServer(t)
	body, _ := json.Marshal(dispatch.RunRequest{EventType: "build"})
	req := httptest.NewRequest(http.MethodPost, "/task/ns1", bytes.NewReader(body))
	req.Header.Set("Authorization", "Token whatever")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTaskNotFoundReturns404(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/task/ns1/missing", nil)
	req.Header.Set("Authorization", bearerHeader(t))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func bearerHeader(t *testing.T) string {
	t.Helper()
	return "Bearer " + signTestToken(t)
}

// signTestToken issues a token against the same secret newTestServer's
// verifier uses, granting every role on every namespace.
func signTestToken(t *testing.T) string {
	t.Helper()
	claims := jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
		"grants": []map[string]string{
			{"ns": "*", "role": "read-only"},
			{"ns": "*", "role": "execute"},
			{"ns": "*", "role": "worker"},
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestGetEventTypesListsLiveAdvertisements(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/event-types/ns1", nil)
	req.Header.Set("Authorization", bearerHeader(t))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var eventTypes []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &eventTypes))
	assert.Contains(t, eventTypes, "build")
}
