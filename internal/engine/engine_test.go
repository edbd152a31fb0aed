package engine_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/legalis-ai/legalis-go/internal/api"
	"github.com/legalis-ai/legalis-go/internal/engine"
	"github.com/legalis-ai/legalis-go/internal/models"
)

// testLogger creates a logger that writes to stderr for test visibility.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// basicUser returns a basic-plan user with the given monthly usage.
func basicUser(queries int) *models.User {
	return &models.User{
		ID:    "user-1",
		Email: "ana@example.com",
		Plan:  models.PlanBasic,
		Usage: models.Usage{QueriesThisMonth: queries},
	}
}

// newTestEngine wires an engine against an httptest backend double.
func newTestEngine(t *testing.T, handler http.Handler, user *models.User) *engine.Engine {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := api.New(srv.URL, "test-token", testLogger())
	return engine.New(client, func() *models.User { return user }, engine.Config{
		Logger: testLogger(),
	})
}

// serverSession builds a canonical session payload as the backend
// returns it.
func serverSession(id, title, category string, messages []models.Message) models.Session {
	now := time.Now().UTC().Round(time.Second)
	return models.Session{
		ID:       id,
		Title:    title,
		Category: category,
		Messages: messages,
		Status:   models.StatusActive,
		LegalContext: models.LegalContext{
			Jurisdiction: "national",
		},
		Analytics: models.Analytics{
			TotalMessages: len(messages),
		},
		LastActivity: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// writeJSON writes a response body, failing the test on error.
func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

// decodeBody decodes a request body into v.
func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// okEnvelope wraps data in a success envelope.
func okEnvelope(data any) map[string]any {
	return map[string]any{"success": true, "data": data}
}

// requireInvariants asserts the store-wide analytics invariant: for
// every visible session, totalMessages matches the message count.
func requireInvariants(t *testing.T, e *engine.Engine) {
	t.Helper()
	for _, s := range e.Sessions() {
		require.Equal(t, len(s.Messages), s.Analytics.TotalMessages,
			"session %s: totalMessages must equal message count", s.ID)
		require.NotEqual(t, models.StatusDeleted, s.Status,
			"session %s: deleted sessions must not be visible", s.ID)
	}
	if cur := e.Current(); cur != nil && !cur.IsTemporary() {
		require.Equal(t, len(cur.Messages), cur.Analytics.TotalMessages)
	}
}
