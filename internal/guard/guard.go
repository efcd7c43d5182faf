package guard

import (
	"log/slog"
	"sync"
	"time"
)

// Guard breaks verification retry storms: it budgets how many times a given
// path may reach the backend within a time window before the gateway
// short-circuits to a rate-limit response. All state is in-process; the
// counter map is the only structure shared between concurrent requests.
type Guard struct {
	mu      sync.Mutex
	entries map[string]*entry

	verifyBudget  int
	defaultBudget int
	resetWindow   time.Duration
	logger        *slog.Logger
}

type entry struct {
	count    int
	lastSeen time.Time
}

// Config holds attempt budgets and the idle-reset window
type Config struct {
	// VerifyBudget is materially higher than DefaultBudget: page loads
	// legitimately re-check session state far more often than refresh.
	VerifyBudget  int
	DefaultBudget int
	ResetWindow   time.Duration
}

// New creates a guard with the given budgets
func New(cfg Config, logger *slog.Logger) *Guard {
	return &Guard{
		entries:       make(map[string]*entry),
		verifyBudget:  cfg.VerifyBudget,
		defaultBudget: cfg.DefaultBudget,
		resetWindow:   cfg.ResetWindow,
		logger:        logger,
	}
}

// VerifyBudget returns the attempt budget for verify routes
func (g *Guard) VerifyBudget() int { return g.verifyBudget }

// DefaultBudget returns the attempt budget for all other guarded routes
func (g *Guard) DefaultBudget() int { return g.defaultBudget }

// Key derives the counter key for a path: attempts are bucketed per UTC
// calendar day so keys stay bounded even without eviction.
func Key(path string, now time.Time) string {
	return path + "|" + now.UTC().Format("2006-01-02")
}

// Admit decides whether one more attempt for key may reach the backend.
// A fresh key, or one idle longer than the reset window since its last
// admitted attempt, starts a new count. Refused attempts leave the entry
// untouched so the idle window can still elapse under sustained retries.
func (g *Guard) Admit(key string, budget int, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.entries[key]
	if !ok || now.Sub(e.lastSeen) > g.resetWindow {
		g.entries[key] = &entry{count: 1, lastSeen: now}
		return true
	}

	if e.count >= budget {
		g.logger.Warn("attempt budget exceeded",
			slog.String("key", key),
			slog.Int("count", e.count),
			slog.Int("budget", budget))
		return false
	}

	e.count++
	e.lastSeen = now
	return true
}

// Reset clears the counter for key. Called after a successful verification
// so a client that intermittently fails then recovers is not penalized.
func (g *Guard) Reset(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.entries, key)
}

// Sweep removes entries idle longer than the reset window and returns how
// many were evicted. Without this the map grows for as long as the process
// lives; a background task runs it every few minutes.
func (g *Guard) Sweep(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	evicted := 0
	for key, e := range g.entries {
		if now.Sub(e.lastSeen) > g.resetWindow {
			delete(g.entries, key)
			evicted++
		}
	}
	return evicted
}

// Len reports the current number of tracked keys
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}
