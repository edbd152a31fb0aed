package engine

import "github.com/legalis-ai/legalis-go/internal/models"

// Sessions returns the visible session collection in store order. The
// returned sessions are deep copies; callers can never mutate stored
// state behind the engine's back.
func (e *Engine) Sessions() []*models.Session {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*models.Session, len(e.sessions))
	for i, s := range e.sessions {
		out[i] = s.Clone()
	}
	return out
}

// Current returns a copy of the focused session, or nil.
func (e *Engine) Current() *models.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return nil
	}
	return e.current.Clone()
}

// SetCurrent focuses a session. Pure local mutation, no network effect.
// Passing nil clears the focus.
func (e *Engine) SetCurrent(s *models.Session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s == nil {
		e.current = nil
		return
	}
	// Prefer the stored entry so focus and list share one object.
	if stored := e.findLocked(s.ID); stored != nil {
		e.current = stored
		return
	}
	e.current = s.Clone()
}

// ClearCurrent drops the focused session.
func (e *Engine) ClearCurrent() {
	e.SetCurrent(nil)
}

// findLocked returns the stored session with the given id, or nil.
// Caller holds the lock.
func (e *Engine) findLocked(id string) *models.Session {
	for _, s := range e.sessions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// upsertLocked inserts the session if its id is unseen (prepended) or
// replaces the existing entry at its current position. Unrelated entries
// are never reordered. Caller holds the lock.
func (e *Engine) upsertLocked(s *models.Session) {
	for i, existing := range e.sessions {
		if existing.ID == s.ID {
			e.sessions[i] = s
			return
		}
	}
	e.sessions = append([]*models.Session{s}, e.sessions...)
}

// removeLocked removes the session by id. If it was the focused session,
// the focus becomes nil. Caller holds the lock.
func (e *Engine) removeLocked(id string) {
	for i, s := range e.sessions {
		if s.ID == id {
			e.sessions = append(e.sessions[:i], e.sessions[i+1:]...)
			break
		}
	}
	if e.current != nil && e.current.ID == id {
		e.current = nil
	}
}
