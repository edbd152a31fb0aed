package engine

// opArena issues monotonic operation tokens per key. A network operation
// takes a token before suspending and validates it when its response
// arrives; a response bearing a stale token is discarded, so a late load
// can never stamp data over the result of a newer load or delete for the
// same session. Keys are "session:<id>" plus one shared "list" key for
// full-list refreshes.
//
// Not self-synchronized: callers must hold the engine mutex.
type opArena struct {
	latest map[string]uint64
}

func newOpArena() opArena {
	return opArena{latest: make(map[string]uint64)}
}

// next invalidates all outstanding tokens for key and returns a fresh one.
func (a *opArena) next(key string) uint64 {
	a.latest[key]++
	return a.latest[key]
}

// current reports whether tok is still the latest issued for key.
func (a *opArena) current(key string, tok uint64) bool {
	return a.latest[key] == tok
}

const listOpKey = "list"

func sessionOpKey(id string) string {
	return "session:" + id
}
