package engine

import (
	"log/slog"
	"sync"

	"github.com/legalis-ai/legalis-go/internal/api"
	"github.com/legalis-ai/legalis-go/internal/metrics"
	"github.com/legalis-ai/legalis-go/internal/models"
)

// DefaultJurisdiction is stamped on placeholder sessions when the config
// does not override it.
const DefaultJurisdiction = "national"

// UserProvider returns the currently authenticated user, or nil when
// signed out. It stands in for the user-profile collaborator.
type UserProvider func() *models.User

// Config bundles the engine's tunables. Zero values select defaults.
type Config struct {
	Quota        QuotaTable
	Jurisdiction string
	Logger       *slog.Logger
	Metrics      *metrics.Collector
}

// Engine owns all mutable chat-session state for one authenticated
// context. Construct one per signed-in identity and pass it by reference;
// there is no ambient global.
//
// The mutex guards every field below it and is never held across a
// network call: operations take a token, release the lock, perform the
// round trip, then re-acquire and validate the token before applying.
type Engine struct {
	api          *api.Client
	user         UserProvider
	quota        QuotaTable
	jurisdiction string
	logger       *slog.Logger
	metrics      *metrics.Collector

	mu       sync.Mutex
	sessions []*models.Session
	current  *models.Session
	draft    string
	sending  bool
	lastErr  string
	ops      opArena
}

// New creates an engine bound to the given backend client and user
// provider.
func New(client *api.Client, user UserProvider, cfg Config) *Engine {
	if user == nil {
		user = func() *models.User { return nil }
	}
	if cfg.Quota == nil {
		cfg.Quota = DefaultQuotaTable()
	}
	if cfg.Jurisdiction == "" {
		cfg.Jurisdiction = DefaultJurisdiction
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewCollector()
	}

	return &Engine{
		api:          client,
		user:         user,
		quota:        cfg.Quota,
		jurisdiction: cfg.Jurisdiction,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		ops:          newOpArena(),
	}
}

// Metrics returns the engine's stats collector.
func (e *Engine) Metrics() *metrics.Collector {
	return e.metrics
}

// LastError returns the last surfaced failure as a human-readable string,
// or "" if the most recent operation succeeded. Errors never escape the
// engine as panics; callers decide whether to display this.
func (e *Engine) LastError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Sending reports whether a send is in flight.
func (e *Engine) Sending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sending
}

// setErrLocked records a failure for UI polling. Caller holds the lock.
func (e *Engine) setErrLocked(err error) {
	if err == nil {
		e.lastErr = ""
		return
	}
	e.lastErr = err.Error()
}
