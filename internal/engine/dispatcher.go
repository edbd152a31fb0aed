package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/legalis-ai/legalis-go/internal/api"
	"github.com/legalis-ai/legalis-go/internal/metrics"
	"github.com/legalis-ai/legalis-go/internal/models"
)

// SetDraft captures the text the user is composing.
func (e *Engine) SetDraft(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft = text
}

// Draft returns the current input buffer.
func (e *Engine) Draft() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft
}

// Send dispatches the draft buffer to the assistant. The draft is
// cleared the moment the send is accepted, before the network call
// resolves; a failed send does not restore it.
func (e *Engine) Send(ctx context.Context) (*api.ChatResponse, error) {
	e.mu.Lock()
	text := e.draft
	e.mu.Unlock()
	return e.dispatch(ctx, text, nil)
}

// SendMessage dispatches a user message to the assistant and reconciles
// the authoritative reply into the store.
func (e *Engine) SendMessage(ctx context.Context, text string) (*api.ChatResponse, error) {
	return e.dispatch(ctx, text, nil)
}

// SendMessageStream behaves like SendMessage but streams the assistant
// reply token by token through onToken before committing it.
func (e *Engine) SendMessageStream(ctx context.Context, text string, onToken func(string) error) (*api.ChatResponse, error) {
	if onToken == nil {
		onToken = func(string) error { return nil }
	}
	return e.dispatch(ctx, text, onToken)
}

// dispatch runs one send through its state machine:
// Idle -> Sending -> {Committed | Failed}.
func (e *Engine) dispatch(ctx context.Context, text string, onToken func(string) error) (*api.ChatResponse, error) {
	text = strings.TrimSpace(text)
	user := e.user()

	e.mu.Lock()
	if text == "" {
		e.mu.Unlock()
		return nil, ErrEmptyMessage
	}
	if e.sending {
		// Sends are serialized per engine: refuse, never queue.
		e.mu.Unlock()
		return nil, ErrSendInFlight
	}
	if ok, err := e.quota.CanSend(user); err != nil {
		e.setErrLocked(err)
		e.mu.Unlock()
		return nil, err
	} else if !ok {
		e.setErrLocked(ErrQuotaExceeded)
		e.mu.Unlock()
		return nil, ErrQuotaExceeded
	}

	// Entering Sending: clear the prior error and the input buffer now,
	// before the network call resolves.
	e.lastErr = ""
	e.draft = ""
	e.sending = true

	// Temporary sessions are never transmitted as a target id; the
	// server creates a session and returns its id instead.
	var sessionID, category string
	if e.current != nil {
		if !e.current.IsTemporary() {
			sessionID = e.current.ID
		}
		category = e.current.Category
	}
	e.mu.Unlock()

	req := api.ChatRequest{Message: text, SessionID: sessionID, Category: category}
	op := metrics.OpSend
	start := time.Now()

	var resp *api.ChatResponse
	var err error
	if onToken != nil {
		op = metrics.OpStream
		resp, err = e.api.SendMessageStream(ctx, req, onToken)
	} else {
		resp, err = e.api.SendMessage(ctx, req)
	}

	if err != nil {
		e.metrics.RecordTiming(op, time.Since(start))
		e.mu.Lock()
		e.sending = false
		e.setErrLocked(err)
		e.mu.Unlock()
		e.logger.Warn("send failed", "session_id", sessionID, "error", err)
		return nil, err
	}

	var tokens int
	if resp.Metadata != nil {
		tokens = resp.Metadata.Tokens
	}
	e.metrics.RecordSendUsage(op, time.Since(start), int64(tokens))

	if sessionID == "" && resp.SessionID != "" {
		e.promote(ctx, resp.SessionID)
	} else {
		e.commit(text, resp)
	}

	e.mu.Lock()
	e.sending = false
	e.mu.Unlock()
	return resp, nil
}

// promote handles the first send of a conversation: the server created
// the session, so the canonical copy (already holding the user+assistant
// pair) is reloaded and installed as current. Any local temporary
// placeholder is discarded, not merged.
func (e *Engine) promote(ctx context.Context, sessionID string) {
	sess, err := e.api.GetSession(ctx, sessionID)

	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		// The message itself went through; the canonical session will
		// arrive with the next list refresh.
		e.setErrLocked(err)
		e.logger.Warn("session reload after promotion failed",
			"session_id", sessionID, "error", err)
		return
	}

	e.current = sess
	e.upsertLocked(sess)
	e.logger.Info("temporary session promoted", "session_id", sessionID)
}

// commit appends the user+assistant message pair to the targeted session
// and propagates the update into the list by id match.
func (e *Engine) commit(text string, resp *api.ChatResponse) {
	now := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	sess := e.current
	if sess == nil || (resp.SessionID != "" && sess.ID != resp.SessionID) {
		sess = e.findLocked(resp.SessionID)
	}
	if sess == nil {
		// Focus moved on while the call was in flight; nothing to stamp.
		e.logger.Warn("dropping reply for unknown session", "session_id", resp.SessionID)
		return
	}

	sess.Messages = append(sess.Messages,
		models.Message{
			ID:        uuid.New().String(),
			Role:      models.RoleUser,
			Content:   text,
			Timestamp: now,
		},
		models.Message{
			ID:        uuid.New().String(),
			Role:      models.RoleAssistant,
			Content:   resp.Message,
			Timestamp: now,
			Metadata:  resp.Metadata,
		},
	)
	sess.Analytics.TotalMessages += 2
	if resp.Metadata != nil {
		sess.Analytics.TotalTokens += resp.Metadata.Tokens
	}
	sess.LastActivity = now
	sess.UpdatedAt = now

	e.upsertLocked(sess)
}
