package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borosabel/orchestrator/internal/logging"
	"github.com/borosabel/orchestrator/pkg/adapters/httpapi"
	"github.com/borosabel/orchestrator/pkg/domain"
)

// fakeCore records calls and returns canned results.
type fakeCore struct {
	started  []string
	ended    []string
	messages map[string][]string
}

func newFakeCore() *fakeCore {
	return &fakeCore{messages: make(map[string][]string)}
}

func (f *fakeCore) StartConversation(ctx context.Context, userID string) (string, error) {
	f.started = append(f.started, userID)
	return "sess-1", nil
}

func (f *fakeCore) EndConversation(ctx context.Context, sessionID string) {
	f.ended = append(f.ended, sessionID)
}

func (f *fakeCore) ProcessMessageDetailed(ctx context.Context, sessionID, text string) *domain.TurnResult {
	f.messages[sessionID] = append(f.messages[sessionID], text)
	return &domain.TurnResult{
		Intent:         "loan_inquiry",
		Slots:          domain.FieldMap{"amount": domain.StringValue("50000")},
		Response:       "How much would you like to borrow?",
		Domain:         "banking",
		ProcessingTime: 42 * time.Millisecond,
	}
}

func (f *fakeCore) ConversationSummary(ctx context.Context, sessionID string) string {
	return "Session " + sessionID + " (domain banking, 2 turns)."
}

func newTestServer(t *testing.T) (*fakeCore, *httptest.Server) {
	t.Helper()
	core := newFakeCore()
	srv := httptest.NewServer(httpapi.NewHandler(core, logging.NewNop(), prometheus.NewRegistry()))
	t.Cleanup(srv.Close)
	return core, srv
}

func TestStartConversation(t *testing.T) {
	core, srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/conversations", "application/json",
		strings.NewReader(`{"user_id": "user-7"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var body struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "sess-1", body.SessionID)
	assert.Equal(t, []string{"user-7"}, core.started)
}

func TestStartConversation_EmptyBodyAllowed(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/conversations", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestPostMessage(t *testing.T) {
	core, srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/conversations/sess-1/messages", "application/json",
		strings.NewReader(`{"text": "I need a loan"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "loan_inquiry", body["intent"])
	assert.Equal(t, "How much would you like to borrow?", body["response"])
	assert.Equal(t, float64(42), body["processing_time_ms"])
	assert.Equal(t, []string{"I need a loan"}, core.messages["sess-1"])
}

func TestPostMessage_MalformedBody(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/conversations/sess-1/messages", "application/json",
		strings.NewReader(`{not json`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetSummary(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/conversations/sess-9/summary")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Session sess-9 (domain banking, 2 turns).", body["summary"])
}

func TestEndConversation(t *testing.T) {
	core, srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/conversations/sess-1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []string{"sess-1"}, core.ended)
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
