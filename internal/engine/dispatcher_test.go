package engine_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legalis-ai/legalis-go/internal/engine"
	"github.com/legalis-ai/legalis-go/internal/models"
)

// chatBackend is a backend double for the assistant chat endpoint. It
// records every decoded request body so tests can assert on exactly what
// went over the wire.
type chatBackend struct {
	mu       sync.Mutex
	requests []map[string]any

	// respond builds the chat reply for the nth call (0-based).
	respond func(n int, body map[string]any) map[string]any

	// sessions served by GET /api/assistant/sessions/{id}.
	sessions map[string]models.Session

	// block, when non-nil, is received from before answering a chat
	// call. started is closed once the handler is entered.
	block   chan struct{}
	started chan struct{}
}

func (b *chatBackend) calls() []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]map[string]any, len(b.requests))
	copy(out, b.requests)
	return out
}

func (b *chatBackend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/assistant/chat", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		b.mu.Lock()
		n := len(b.requests)
		b.requests = append(b.requests, body)
		started := b.started
		block := b.block
		b.mu.Unlock()

		if started != nil {
			close(started)
			b.mu.Lock()
			b.started = nil
			b.mu.Unlock()
		}
		if block != nil {
			<-block
		}
		writeJSON(t, w, b.respond(n, body))
	})
	mux.HandleFunc("GET /api/assistant/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		sess, ok := b.sessions[r.PathValue("id")]
		b.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			writeJSON(t, w, map[string]any{"success": false, "message": "not found"})
			return
		}
		writeJSON(t, w, okEnvelope(sess))
	})
	return mux
}

func TestSendMessageExistingSession(t *testing.T) {
	backend := &chatBackend{
		respond: func(n int, body map[string]any) map[string]any {
			return map[string]any{
				"success":   true,
				"message":   "Under the civil code, the deposit must be returned within one month.",
				"sessionId": "sess-1",
				"metadata":  map[string]any{"tokens": 57, "confidence": 0.92},
			}
		},
	}
	eng := newTestEngine(t, backend.handler(t), basicUser(3))

	seed := serverSession("sess-1", "Deposit dispute", models.CategoryCivil, nil)
	seed.Analytics.TotalTokens = 10
	eng.SetCurrent(&seed)

	resp, err := eng.SendMessage(context.Background(), "When must my landlord return the deposit?")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "sess-1", resp.SessionID)

	t.Run("wire payload targets the persisted session", func(t *testing.T) {
		calls := backend.calls()
		require.Len(t, calls, 1)
		assert.Equal(t, "When must my landlord return the deposit?", calls[0]["message"])
		assert.Equal(t, "sess-1", calls[0]["sessionId"])
		assert.Equal(t, models.CategoryCivil, calls[0]["category"])
	})

	t.Run("user and assistant messages are appended in order", func(t *testing.T) {
		cur := eng.Current()
		require.NotNil(t, cur)
		require.Len(t, cur.Messages, 2)
		assert.Equal(t, models.RoleUser, cur.Messages[0].Role)
		assert.Equal(t, "When must my landlord return the deposit?", cur.Messages[0].Content)
		assert.Equal(t, models.RoleAssistant, cur.Messages[1].Role)
		assert.Equal(t, resp.Message, cur.Messages[1].Content)
		assert.NotEmpty(t, cur.Messages[0].ID)
		assert.NotEmpty(t, cur.Messages[1].ID)
		assert.NotEqual(t, cur.Messages[0].ID, cur.Messages[1].ID)
	})

	t.Run("analytics reflect exactly one exchange", func(t *testing.T) {
		cur := eng.Current()
		require.NotNil(t, cur)
		assert.Equal(t, 2, cur.Analytics.TotalMessages)
		assert.Equal(t, 10+57, cur.Analytics.TotalTokens)
		assert.False(t, cur.LastActivity.Before(seed.LastActivity))
	})

	t.Run("update propagates to the list entry", func(t *testing.T) {
		var listed *models.Session
		for _, s := range eng.Sessions() {
			if s.ID == "sess-1" {
				listed = s
			}
		}
		require.NotNil(t, listed)
		assert.Len(t, listed.Messages, 2)
		assert.Equal(t, 2, listed.Analytics.TotalMessages)
	})

	requireInvariants(t, eng)
}

func TestSendMessageMissingTokenMetadata(t *testing.T) {
	backend := &chatBackend{
		respond: func(n int, body map[string]any) map[string]any {
			return map[string]any{"success": true, "message": "Yes.", "sessionId": "sess-1"}
		},
	}
	eng := newTestEngine(t, backend.handler(t), basicUser(0))

	seed := serverSession("sess-1", "Quick check", models.CategoryTax, nil)
	seed.Analytics.TotalTokens = 42
	eng.SetCurrent(&seed)

	_, err := eng.SendMessage(context.Background(), "Is that deductible?")
	require.NoError(t, err)

	cur := eng.Current()
	require.NotNil(t, cur)
	assert.Equal(t, 42, cur.Analytics.TotalTokens, "absent metadata contributes zero tokens")
	assert.Equal(t, 2, cur.Analytics.TotalMessages)
}

func TestSendMessagePromotesTemporarySession(t *testing.T) {
	canonical := serverSession("srv-99", "New consultation", models.CategoryLabor, []models.Message{
		{ID: "m1", Role: models.RoleUser, Content: "Can I be fired while on sick leave?"},
		{ID: "m2", Role: models.RoleAssistant, Content: "Dismissal during certified sick leave is restricted."},
	})
	canonical.Analytics.TotalMessages = 2
	canonical.Analytics.TotalTokens = 33

	backend := &chatBackend{
		respond: func(n int, body map[string]any) map[string]any {
			return map[string]any{
				"success":   true,
				"message":   "Dismissal during certified sick leave is restricted.",
				"sessionId": "srv-99",
				"metadata":  map[string]any{"tokens": 33},
			}
		},
		sessions: map[string]models.Session{"srv-99": canonical},
	}
	eng := newTestEngine(t, backend.handler(t), basicUser(0))

	placeholder := eng.CreatePlaceholder("New consultation", models.CategoryLabor)
	require.True(t, placeholder.IsTemporary())

	resp, err := eng.SendMessage(context.Background(), "Can I be fired while on sick leave?")
	require.NoError(t, err)
	assert.Equal(t, "srv-99", resp.SessionID)

	t.Run("temporary id never goes over the wire", func(t *testing.T) {
		calls := backend.calls()
		require.Len(t, calls, 1)
		_, present := calls[0]["sessionId"]
		assert.False(t, present, "placeholder sends must omit sessionId entirely")
		assert.Equal(t, models.CategoryLabor, calls[0]["category"])
	})

	t.Run("server session replaces the placeholder wholesale", func(t *testing.T) {
		cur := eng.Current()
		require.NotNil(t, cur)
		assert.Equal(t, "srv-99", cur.ID)
		assert.False(t, cur.IsTemporary())
		assert.Len(t, cur.Messages, 2)
		assert.Equal(t, 2, cur.Analytics.TotalMessages)
	})

	t.Run("promoted session joins the list", func(t *testing.T) {
		sessions := eng.Sessions()
		require.Len(t, sessions, 1)
		assert.Equal(t, "srv-99", sessions[0].ID)
	})

	requireInvariants(t, eng)
}

func TestSendMessagePromotionReloadFailure(t *testing.T) {
	backend := &chatBackend{
		respond: func(n int, body map[string]any) map[string]any {
			return map[string]any{"success": true, "message": "ok", "sessionId": "gone-1"}
		},
		// no sessions registered: the reload 404s
	}
	eng := newTestEngine(t, backend.handler(t), basicUser(0))
	eng.CreatePlaceholder("", models.CategoryFamily)

	resp, err := eng.SendMessage(context.Background(), "hello")
	require.NoError(t, err, "the message itself went through")
	assert.Equal(t, "gone-1", resp.SessionID)
	assert.NotEmpty(t, eng.LastError(), "the failed reload is surfaced for polling")

	cur := eng.Current()
	require.NotNil(t, cur)
	assert.True(t, cur.IsTemporary(), "placeholder stays until the next refresh heals it")
}

func TestSendRejectsSecondInFlight(t *testing.T) {
	backend := &chatBackend{
		block:   make(chan struct{}),
		started: make(chan struct{}),
		respond: func(n int, body map[string]any) map[string]any {
			return map[string]any{"success": true, "message": "slow answer", "sessionId": "sess-1"}
		},
	}
	started := backend.started
	eng := newTestEngine(t, backend.handler(t), basicUser(0))

	seed := serverSession("sess-1", "Slow", models.CategoryCivil, nil)
	eng.SetCurrent(&seed)

	done := make(chan error, 1)
	go func() {
		_, err := eng.SendMessage(context.Background(), "first")
		done <- err
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first send never reached the backend")
	}
	require.True(t, eng.Sending())

	_, err := eng.SendMessage(context.Background(), "second")
	require.ErrorIs(t, err, engine.ErrSendInFlight)
	assert.Len(t, backend.calls(), 1, "the rejected send must not reach the network")

	close(backend.block)
	require.NoError(t, <-done)
	assert.False(t, eng.Sending())
	assert.Len(t, backend.calls(), 1)
}

func TestSendQuotaGate(t *testing.T) {
	backend := &chatBackend{
		respond: func(n int, body map[string]any) map[string]any {
			return map[string]any{"success": true, "message": "ok", "sessionId": "sess-1"}
		},
	}

	t.Run("basic plan at the limit is refused without a network call", func(t *testing.T) {
		eng := newTestEngine(t, backend.handler(t), basicUser(100))
		_, err := eng.SendMessage(context.Background(), "one more?")
		require.ErrorIs(t, err, engine.ErrQuotaExceeded)
		assert.Empty(t, backend.calls())
		assert.NotEmpty(t, eng.LastError())
	})

	t.Run("basic plan one below the limit goes through", func(t *testing.T) {
		eng := newTestEngine(t, backend.handler(t), basicUser(99))
		seed := serverSession("sess-1", "Edge", models.CategoryCivil, nil)
		eng.SetCurrent(&seed)
		_, err := eng.SendMessage(context.Background(), "one more?")
		require.NoError(t, err)
		assert.Len(t, backend.calls(), 1)
	})

	t.Run("unrecognized plan is an explicit error", func(t *testing.T) {
		user := basicUser(0)
		user.Plan = "trial"
		eng := newTestEngine(t, backend.handler(t), user)
		_, err := eng.SendMessage(context.Background(), "hello")
		require.ErrorIs(t, err, engine.ErrUnknownPlan)
	})

	t.Run("signed-out user cannot send", func(t *testing.T) {
		eng := newTestEngine(t, backend.handler(t), nil)
		_, err := eng.SendMessage(context.Background(), "hello")
		require.ErrorIs(t, err, engine.ErrNoUser)
	})
}

func TestSendEmptyMessage(t *testing.T) {
	var calls atomic.Int64
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})
	eng := newTestEngine(t, handler, basicUser(0))

	_, err := eng.SendMessage(context.Background(), "   \t\n")
	require.ErrorIs(t, err, engine.ErrEmptyMessage)
	assert.Zero(t, calls.Load())
}

func TestSendFailureClearsDraftAndSurfacesError(t *testing.T) {
	backend := &chatBackend{
		respond: func(n int, body map[string]any) map[string]any {
			return map[string]any{"success": false, "message": "assistant overloaded"}
		},
	}
	eng := newTestEngine(t, backend.handler(t), basicUser(0))

	seed := serverSession("sess-1", "Doomed", models.CategoryCriminal, nil)
	eng.SetCurrent(&seed)

	eng.SetDraft("is this legal?")
	_, err := eng.Send(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "assistant overloaded")

	assert.Empty(t, eng.Draft(), "a failed send does not restore the draft")
	assert.NotEmpty(t, eng.LastError())
	assert.False(t, eng.Sending(), "a failure returns the dispatcher to idle")

	cur := eng.Current()
	require.NotNil(t, cur)
	assert.Empty(t, cur.Messages, "nothing is committed on failure")
	assert.Zero(t, cur.Analytics.TotalMessages)

	t.Run("the dispatcher accepts a fresh send afterwards", func(t *testing.T) {
		backend.respond = func(n int, body map[string]any) map[string]any {
			return map[string]any{"success": true, "message": "recovered", "sessionId": "sess-1"}
		}
		_, err := eng.SendMessage(context.Background(), "retry")
		require.NoError(t, err)
		assert.Empty(t, eng.LastError(), "a successful send clears the sticky error")
	})
}

func TestSendSuccessClearsPreviousError(t *testing.T) {
	fail := true
	backend := &chatBackend{
		respond: func(n int, body map[string]any) map[string]any {
			if fail {
				return map[string]any{"success": false, "message": "flaky"}
			}
			return map[string]any{"success": true, "message": "fine", "sessionId": "sess-1"}
		},
	}
	eng := newTestEngine(t, backend.handler(t), basicUser(0))
	seed := serverSession("sess-1", "Flaky", models.CategoryCivil, nil)
	eng.SetCurrent(&seed)

	_, err := eng.SendMessage(context.Background(), "first")
	require.Error(t, err)
	require.NotEmpty(t, eng.LastError())

	fail = false
	_, err = eng.SendMessage(context.Background(), "second")
	require.NoError(t, err)
	assert.Empty(t, eng.LastError())
}
