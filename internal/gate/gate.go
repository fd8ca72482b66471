// Package gate guards mutating actions behind a shared secret. A correct
// secret authenticates the process for the rest of its life and is recorded
// in a session store so other consoles in the same session skip the prompt.
package gate

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/five82/tarmac/internal/metrics"
	"github.com/five82/tarmac/internal/outcome"
)

const (
	// DefaultSessionKey is the session store key holding the marker.
	DefaultSessionKey = "tarmac:authenticated"
	// Marker is the session value meaning "authenticated".
	Marker = "true"
)

// Secret checks a candidate against the configured shared secret.
type Secret interface {
	Match(candidate string) bool
}

// PlainSecret is a clear-text secret compared in constant time.
type PlainSecret string

// Match implements Secret.
func (s PlainSecret) Match(candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(s), []byte(candidate)) == 1
}

// HashedSecret is a bcrypt hash of the secret.
type HashedSecret string

// Match implements Secret.
func (s HashedSecret) Match(candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(s), []byte(candidate)) == nil
}

// Challenge describes one prompt.
type Challenge struct {
	Attempt  int  // 1-based
	Rejected bool // the previous attempt did not match
}

// Prompter asks the user for the secret. ok is false when the user cancels.
// The prompter never sees the expected value.
type Prompter interface {
	PromptSecret(ctx context.Context, c Challenge) (value string, ok bool, err error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, c Challenge) (string, bool, error)

// PromptSecret implements Prompter.
func (f PrompterFunc) PromptSecret(ctx context.Context, c Challenge) (string, bool, error) {
	return f(ctx, c)
}

// SessionStore persists the authenticated marker for the session.
type SessionStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Option configures a Gate.
type Option func(*Gate)

// WithSessionKey overrides DefaultSessionKey.
func WithSessionKey(key string) Option {
	return func(g *Gate) {
		if key != "" {
			g.key = key
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(g *Gate) {
		if log != nil {
			g.log = log
		}
	}
}

// WithMetrics attaches instruments.
func WithMetrics(m *metrics.Registry) Option {
	return func(g *Gate) { g.metrics = m }
}

// Gate tracks whether the operator has proven knowledge of the secret. Once
// authenticated it never reverts.
type Gate struct {
	secret   Secret
	session  SessionStore
	prompter Prompter
	key      string
	log      *zap.SugaredLogger
	metrics  *metrics.Registry

	promptMu      sync.Mutex
	mu            sync.Mutex
	authenticated bool
}

// New returns a gate. session may be nil, in which case authentication only
// lasts for the process.
func New(secret Secret, session SessionStore, prompter Prompter, opts ...Option) *Gate {
	g := &Gate{
		secret:   secret,
		session:  session,
		prompter: prompter,
		key:      DefaultSessionKey,
		log:      zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authenticated reports the in-memory flag.
func (g *Gate) Authenticated() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.authenticated
}

// EnsureAuthenticated returns true without prompting when the process or
// the session is already authenticated. Otherwise it prompts until the
// secret matches or the user cancels. A mismatch prompts again.
func (g *Gate) EnsureAuthenticated(ctx context.Context) (bool, error) {
	if g.Authenticated() {
		return true, nil
	}

	// One challenge at a time; a waiter may find the flag set when it wakes.
	g.promptMu.Lock()
	defer g.promptMu.Unlock()
	if g.Authenticated() {
		return true, nil
	}

	if g.sessionMarked(ctx) {
		g.markAuthenticated()
		g.metrics.AuthAttempt("session")
		g.log.Debugw("authenticated from session", "key", g.key)
		return true, nil
	}

	if g.secret == nil {
		return false, errors.New("gate: no secret configured")
	}
	if g.prompter == nil {
		return false, errors.New("gate: no prompter configured")
	}

	for attempt := 1; ; attempt++ {
		value, ok, err := g.prompter.PromptSecret(ctx, Challenge{Attempt: attempt, Rejected: attempt > 1})
		if err != nil {
			return false, fmt.Errorf("prompt secret: %w", err)
		}
		if !ok {
			g.metrics.AuthAttempt("cancelled")
			g.log.Infow("secret prompt cancelled", "attempt", attempt)
			return false, nil
		}
		if g.secret.Match(value) {
			g.markAuthenticated()
			g.persistMarker(ctx)
			g.metrics.AuthAttempt("accepted")
			g.log.Infow("authenticated", "attempt", attempt)
			return true, nil
		}
		g.metrics.AuthAttempt("rejected")
		g.log.Warnw("secret rejected", "attempt", attempt)
	}
}

// RunIfAuthenticated runs action once the gate is authenticated. When the
// user cancels it returns false and an AuthCancelled error without running
// action. The action's own error is returned unchanged.
func (g *Gate) RunIfAuthenticated(ctx context.Context, action func(ctx context.Context) error) (bool, error) {
	ok, err := g.EnsureAuthenticated(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, outcome.New(outcome.KindAuthCancelled, "authenticate", nil)
	}
	return true, action(ctx)
}

func (g *Gate) sessionMarked(ctx context.Context) bool {
	if g.session == nil {
		return false
	}
	value, ok, err := g.session.Get(ctx, g.key)
	if err != nil {
		g.log.Warnw("read session marker", "error", err)
		return false
	}
	return ok && value == Marker
}

func (g *Gate) persistMarker(ctx context.Context) {
	if g.session == nil {
		return
	}
	if err := g.session.Set(ctx, g.key, Marker); err != nil {
		g.log.Warnw("write session marker", "error", err)
	}
}

func (g *Gate) markAuthenticated() {
	g.mu.Lock()
	g.authenticated = true
	g.mu.Unlock()
}
