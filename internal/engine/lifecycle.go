package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/legalis-ai/legalis-go/internal/api"
	"github.com/legalis-ai/legalis-go/internal/metrics"
	"github.com/legalis-ai/legalis-go/internal/models"
)

// CreatePlaceholder builds a temporary session and installs it as
// current, giving the UI an immediate session object before the first
// message is sent. Never calls the network; the placeholder is not added
// to the visible list and is discarded on promotion.
func (e *Engine) CreatePlaceholder(title, category string) *models.Session {
	now := time.Now()
	s := &models.Session{
		ID:       models.TempIDPrefix + uuid.New().String(),
		Title:    title,
		Category: category,
		Messages: []models.Message{},
		Status:   models.StatusActive,
		LegalContext: models.LegalContext{
			Jurisdiction: e.jurisdiction,
		},
		LastActivity: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	e.mu.Lock()
	e.current = s
	e.mu.Unlock()

	e.logger.Info("created placeholder session", "session_id", s.ID, "category", category)
	return s.Clone()
}

// Load fetches the canonical session by id, installs it as current and
// upserts it into the list. A stale response (superseded by a newer
// operation on the same id) is discarded on arrival. On failure prior
// state is left untouched and the error is surfaced.
func (e *Engine) Load(ctx context.Context, id string) error {
	key := sessionOpKey(id)
	e.mu.Lock()
	tok := e.ops.next(key)
	e.mu.Unlock()

	start := time.Now()
	sess, err := e.api.GetSession(ctx, id)
	e.metrics.RecordTiming(metrics.OpLoad, time.Since(start))

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ops.current(key, tok) {
		e.logger.Debug("discarding superseded load", "session_id", id)
		return nil
	}
	if err != nil {
		e.setErrLocked(err)
		return err
	}

	e.current = sess
	e.upsertLocked(sess)
	return nil
}

// LoadAll fetches the full session list and replaces the store's list.
// On failure the previously held list is retained (last-known-good) and
// the error is surfaced.
func (e *Engine) LoadAll(ctx context.Context) error {
	e.mu.Lock()
	tok := e.ops.next(listOpKey)
	e.mu.Unlock()

	start := time.Now()
	list, err := e.api.ListSessions(ctx)
	e.metrics.RecordTiming(metrics.OpList, time.Since(start))

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ops.current(listOpKey, tok) {
		e.logger.Debug("discarding superseded list refresh")
		return nil
	}
	if err != nil {
		e.setErrLocked(err)
		return err
	}

	sessions := make([]*models.Session, 0, len(list))
	for i := range list {
		if list[i].Status == models.StatusDeleted {
			continue
		}
		sessions = append(sessions, &list[i])
	}
	e.sessions = sessions

	// Re-point the focus at the fresh entry so focus and list stay one
	// object.
	if e.current != nil && !e.current.IsTemporary() {
		if stored := e.findLocked(e.current.ID); stored != nil {
			e.current = stored
		}
	}
	return nil
}

// Delete removes a session server-side first; local state is only
// dropped on confirmed success. On failure the session remains visible,
// the focus is unchanged and the error is surfaced.
func (e *Engine) Delete(ctx context.Context, id string) error {
	key := sessionOpKey(id)
	e.mu.Lock()
	tok := e.ops.next(key)
	e.mu.Unlock()

	start := time.Now()
	err := e.api.DeleteSession(ctx, id)
	e.metrics.RecordTiming(metrics.OpDelete, time.Since(start))

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ops.current(key, tok) {
		e.logger.Debug("discarding superseded delete", "session_id", id)
		return nil
	}
	if err != nil {
		e.setErrLocked(err)
		return err
	}

	// Invalidate any in-flight load for this id before dropping it.
	e.ops.next(key)
	e.removeLocked(id)
	e.logger.Info("session deleted", "session_id", id)
	return nil
}

// Archive flips a session to archived. The transition is one-way; there
// is no un-archive.
func (e *Engine) Archive(ctx context.Context, id string) error {
	status := models.StatusArchived
	return e.patch(ctx, id, api.SessionUpdate{Status: &status}, func(s *models.Session) func() {
		prev := s.Status
		s.Status = models.StatusArchived
		return func() { s.Status = prev }
	})
}

// UpdateTitle renames a session.
func (e *Engine) UpdateTitle(ctx context.Context, id, title string) error {
	return e.patch(ctx, id, api.SessionUpdate{Title: &title}, func(s *models.Session) func() {
		prev := s.Title
		s.Title = title
		return func() { s.Title = prev }
	})
}

// Rate applies user feedback (star rating + free text) to a session.
func (e *Engine) Rate(ctx context.Context, id string, rating int, feedback string) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("%w: got %d", ErrInvalidRating, rating)
	}
	sat := models.Satisfaction{Rating: rating, Feedback: feedback}
	return e.patch(ctx, id, api.SessionUpdate{Satisfaction: &sat}, func(s *models.Session) func() {
		prev := s.Analytics.UserSatisfaction
		s.Analytics.UserSatisfaction = &sat
		return func() { s.Analytics.UserSatisfaction = prev }
	})
}

// patch applies an optimistic local mutation, persists it server-side and
// reconciles with the returned canonical session. On failure the local
// mutation is reverted and the error surfaced; on supersession the
// response is discarded.
func (e *Engine) patch(ctx context.Context, id string, update api.SessionUpdate, apply func(*models.Session) func()) error {
	key := sessionOpKey(id)

	e.mu.Lock()
	var reverts []func()
	if stored := e.findLocked(id); stored != nil {
		reverts = append(reverts, apply(stored))
	}
	if e.current != nil && e.current.ID == id && e.current != e.findLocked(id) {
		reverts = append(reverts, apply(e.current))
	}
	tok := e.ops.next(key)
	e.mu.Unlock()

	start := time.Now()
	sess, err := e.api.UpdateSession(ctx, id, update)
	e.metrics.RecordTiming(metrics.OpUpdate, time.Since(start))

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ops.current(key, tok) {
		e.logger.Debug("discarding superseded update", "session_id", id)
		return nil
	}
	if err != nil {
		for _, revert := range reverts {
			revert()
		}
		e.setErrLocked(err)
		return err
	}

	e.upsertLocked(sess)
	if e.current != nil && e.current.ID == id {
		e.current = sess
	}
	return nil
}
