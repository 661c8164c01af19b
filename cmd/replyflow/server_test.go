package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"replyflow/internal/models"
	"replyflow/internal/retry"
	"replyflow/internal/service"
	watypes "replyflow/pkg/wagateway/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTransport struct {
	events chan watypes.Event
}

func newStubTransport() *stubTransport {
	return &stubTransport{events: make(chan watypes.Event, 1)}
}

func (s *stubTransport) Connect(ctx context.Context) error { return nil }
func (s *stubTransport) Events() <-chan watypes.Event      { return s.events }
func (s *stubTransport) SendText(ctx context.Context, chatID, text string) error {
	return nil
}
func (s *stubTransport) Logout(ctx context.Context) error { return nil }
func (s *stubTransport) Close() error                     { return nil }

type memRuleStore struct {
	mu    sync.Mutex
	rules []models.Rule
}

func (s *memRuleStore) LoadRules(ctx context.Context) ([]models.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Rule, len(s.rules))
	copy(out, s.rules)
	return out, nil
}

func (s *memRuleStore) SaveRules(ctx context.Context, rules []models.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = make([]models.Rule, len(rules))
	copy(s.rules, rules)
	return nil
}

type memLogStore struct {
	mu      sync.Mutex
	entries []models.MessageLogEntry
}

func (s *memLogStore) AppendLog(ctx context.Context, entry *models.MessageLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *memLogStore) GetLogs(ctx context.Context, limit int) ([]models.MessageLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.MessageLogEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *memLogStore) ClearLogs(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return nil
}

type testServer struct {
	server *Server
	engine *service.RuleEngine
	logs   *memLogStore
	events chan service.Event
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	engine := service.NewRuleEngine(&memRuleStore{}, logger)
	lifecycle := service.NewLifecycleManager(newStubTransport(), retry.DefaultSchedulePolicy(), logger)
	logs := &memLogStore{}
	bus := service.NewPublisher()
	t.Cleanup(bus.Close)

	pipeline := service.NewPipeline(engine, lifecycle, logs, bus, logger)
	events := make(chan service.Event)
	require.NoError(t, pipeline.Start(events))
	t.Cleanup(pipeline.Stop)

	return &testServer{
		server: NewServer(models.ServerConfig{Port: 8080}, engine, lifecycle, pipeline, logs, logger),
		engine: engine,
		logs:   logs,
		events: events,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	ts.server.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func createRule(t *testing.T, ts *testServer, body map[string]interface{}) models.Rule {
	t.Helper()
	rec, env := ts.do(t, http.MethodPost, "/api/rules", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	var rule models.Rule
	require.NoError(t, json.Unmarshal(env.Data, &rule))
	return rule
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}

func TestServer_Status(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.do(t, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status models.ConnectionStatus
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, models.ConnectionDisconnected, status.Status)
}

func TestServer_QRAbsent(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.do(t, http.MethodGet, "/api/qr", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"qr":null}`, string(env.Data))
}

func TestServer_CreateRule(t *testing.T) {
	ts := newTestServer(t)

	rule := createRule(t, ts, map[string]interface{}{
		"pattern":  "  hello  ",
		"response": "hi there",
	})

	assert.NotEmpty(t, rule.ID)
	assert.Equal(t, "hello", rule.Pattern)
	assert.Equal(t, "hi there", rule.Response)
	assert.True(t, rule.Enabled)
	assert.False(t, rule.CaseSensitive)
	assert.Equal(t, models.ChatTypeAny, rule.ChatType)
	assert.Equal(t, 0, rule.DelaySec)
}

func TestServer_CreateRule_Validation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing response", map[string]interface{}{"pattern": "hello"}},
		{"blank pattern", map[string]interface{}{"pattern": "   ", "response": "hi"}},
		{"blank response", map[string]interface{}{"pattern": "hello", "response": " "}},
		{"delay too large", map[string]interface{}{"pattern": "hello", "response": "hi", "delay": 61}},
		{"negative delay", map[string]interface{}{"pattern": "hello", "response": "hi", "delay": -1}},
		{"bad chat type", map[string]interface{}{"pattern": "hello", "response": "hi", "chatType": "broadcast"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := ts.do(t, http.MethodPost, "/api/rules", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
		})
	}
}

func TestServer_CreateRule_ChatTypeAllNormalized(t *testing.T) {
	ts := newTestServer(t)

	rule := createRule(t, ts, map[string]interface{}{
		"pattern":  "hello",
		"response": "hi",
		"chatType": "all",
	})
	assert.Equal(t, models.ChatTypeAny, rule.ChatType)
}

func TestServer_CreateRule_InvalidJSON(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/rules", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	ts.server.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ListRules(t *testing.T) {
	ts := newTestServer(t)
	createRule(t, ts, map[string]interface{}{"pattern": "a", "response": "1"})
	createRule(t, ts, map[string]interface{}{"pattern": "b", "response": "2"})

	rec, env := ts.do(t, http.MethodGet, "/api/rules", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var rules []models.Rule
	require.NoError(t, json.Unmarshal(env.Data, &rules))
	require.Len(t, rules, 2)
	assert.Equal(t, "a", rules[0].Pattern)
	assert.Equal(t, "b", rules[1].Pattern)
}

func TestServer_UpdateRule(t *testing.T) {
	ts := newTestServer(t)
	rule := createRule(t, ts, map[string]interface{}{"pattern": "hello", "response": "hi"})

	rec, env := ts.do(t, http.MethodPut, "/api/rules/"+rule.ID, map[string]interface{}{
		"response": "updated",
		"delay":    10,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated models.Rule
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, "hello", updated.Pattern)
	assert.Equal(t, "updated", updated.Response)
	assert.Equal(t, 10, updated.DelaySec)
}

func TestServer_UpdateRule_NotFound(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.do(t, http.MethodPut, "/api/rules/missing", map[string]interface{}{
		"response": "updated",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "RULE_NOT_FOUND", env.Error.Code)
}

func TestServer_DeleteRule(t *testing.T) {
	ts := newTestServer(t)
	rule := createRule(t, ts, map[string]interface{}{"pattern": "hello", "response": "hi"})

	rec, _ := ts.do(t, http.MethodDelete, "/api/rules/"+rule.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = ts.do(t, http.MethodDelete, "/api/rules/"+rule.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ToggleRule(t *testing.T) {
	ts := newTestServer(t)
	rule := createRule(t, ts, map[string]interface{}{"pattern": "hello", "response": "hi"})

	rec, env := ts.do(t, http.MethodPatch, "/api/rules/"+rule.ID+"/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var toggled models.Rule
	require.NoError(t, json.Unmarshal(env.Data, &toggled))
	assert.False(t, toggled.Enabled)
}

func TestServer_ToggleRule_NotFound(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.do(t, http.MethodPatch, "/api/rules/missing/toggle", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "RULE_NOT_FOUND", env.Error.Code)
}

func TestServer_Logs(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.logs.AppendLog(context.Background(), &models.MessageLogEntry{
		ID:      "log-1",
		Sender:  "123@c.us",
		Message: "hello",
	}))

	rec, env := ts.do(t, http.MethodGet, "/api/logs", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var logs []models.MessageLogEntry
	require.NoError(t, json.Unmarshal(env.Data, &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "log-1", logs[0].ID)

	rec, _ = ts.do(t, http.MethodDelete, "/api/logs", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = ts.do(t, http.MethodGet, "/api/logs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &logs))
	assert.Empty(t, logs)
}

func TestServer_Logs_InvalidLimit(t *testing.T) {
	ts := newTestServer(t)

	rec, _ := ts.do(t, http.MethodGet, "/api/logs?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Stats(t *testing.T) {
	ts := newTestServer(t)
	createRule(t, ts, map[string]interface{}{"pattern": "hello", "response": "hi"})

	rec, env := ts.do(t, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats models.PipelineStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 1, stats.TotalRules)
	assert.True(t, stats.IsRunning)
	assert.Equal(t, models.ConnectionDisconnected, stats.ConnectionStatus)
}

func TestServer_Metrics(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	ts.server.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
