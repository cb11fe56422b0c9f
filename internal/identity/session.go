// Package identity owns the current user id and the transitions between
// signed-out and signed-in states.
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"shiftlog/internal/errs"
	"shiftlog/internal/observe"
)

// Provider is an external identity service.
type Provider interface {
	// AuthState streams the current uid followed by every change.
	// An empty uid means no user is signed in.
	AuthState(ctx context.Context) (<-chan string, error)
	// SignInAnonymously creates a new anonymous user. The uid arrives on the
	// AuthState stream, not from this call.
	SignInAnonymously(ctx context.Context) error
	// SignOut ends the current session.
	SignOut(ctx context.Context) error
}

// State is the session's authentication state.
type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Session tracks the provider's uid and falls back to anonymous sign-in
// whenever no user is signed in.
type Session struct {
	logger   *slog.Logger
	provider Provider

	mu      sync.Mutex
	state   State
	uid     string
	err     error
	failed  bool
	signing bool
	stop    context.CancelFunc
	done    chan struct{}

	// pubMu keeps notifications in transition order.
	pubMu  sync.Mutex
	uids   observe.Notifier[string]
	states observe.Notifier[State]
}

// NewSession creates a Session. Nothing happens until Start.
func NewSession(logger *slog.Logger, provider Provider) *Session {
	return &Session{logger: logger, provider: provider}
}

// Start subscribes to the provider's auth state. Calling Start again
// restarts the subscription and re-enables anonymous sign-in after a failure.
func (s *Session) Start(ctx context.Context) error {
	s.Stop()

	ctx, cancel := context.WithCancel(ctx)
	stream, err := s.provider.AuthState(ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("%w: %v", errs.ErrAuth, err)
	}

	done := make(chan struct{})
	s.mu.Lock()
	s.stop = cancel
	s.done = done
	s.failed = false
	s.err = nil
	s.mu.Unlock()

	go func() {
		defer close(done)
		for uid := range stream {
			s.observe(ctx, uid)
		}
	}()
	return nil
}

// Stop ends the provider subscription. The last known uid is kept.
func (s *Session) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
}

// SignOut ends the provider session. The resulting empty uid is handled
// like any other sign-out.
func (s *Session) SignOut(ctx context.Context) error {
	return s.provider.SignOut(ctx)
}

// UID returns the current uid, or "" when not authenticated.
func (s *Session) UID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uid
}

// State returns the current authentication state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the last anonymous sign-in failure, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// OnChange registers fn to be called with the new uid whenever it changes.
func (s *Session) OnChange(fn func(uid string)) (cancel func()) {
	return s.uids.Subscribe(fn)
}

// OnState registers fn to be called on every state transition.
func (s *Session) OnState(fn func(State)) (cancel func()) {
	return s.states.Subscribe(fn)
}

// WaitAuthenticated blocks until a uid is available, the anonymous sign-in
// fails or ctx is done.
func (s *Session) WaitAuthenticated(ctx context.Context) (string, error) {
	wake := make(chan struct{}, 1)
	cancel := s.OnState(func(State) {
		select {
		case wake <- struct{}{}:
		default:
		}
	})
	defer cancel()

	for {
		s.mu.Lock()
		uid, state, err := s.uid, s.state, s.err
		s.mu.Unlock()
		if state == Authenticated {
			return uid, nil
		}
		if state == Unauthenticated && err != nil {
			return "", err
		}

		select {
		case <-wake:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (s *Session) observe(ctx context.Context, uid string) {
	if uid != "" {
		s.logger.Debug("Identity established.", "uid", uid)
		s.transition(func() { s.state, s.uid, s.err = Authenticated, uid, nil })
		return
	}

	s.transition(func() { s.state, s.uid = Unauthenticated, "" })

	s.mu.Lock()
	skip := s.failed || s.signing
	if !skip {
		s.signing = true
	}
	s.mu.Unlock()
	if skip {
		return
	}

	s.transition(func() { s.state = Authenticating })
	s.logger.Info("No session found, signing in anonymously.")

	// The provider may publish the new uid before SignInAnonymously returns,
	// so the call must not run on the stream reader.
	go func() {
		err := s.provider.SignInAnonymously(ctx)

		s.mu.Lock()
		s.signing = false
		s.mu.Unlock()
		if err == nil {
			return
		}

		err = fmt.Errorf("%w: anonymous sign-in: %v", errs.ErrAuth, err)
		s.logger.Error("Anonymous sign-in failed", "error", err)
		s.transition(func() {
			s.failed = true
			s.err = err
			if s.state == Authenticating {
				s.state = Unauthenticated
			}
		})
	}()
}

// transition applies fn under the lock and publishes what changed.
func (s *Session) transition(fn func()) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	prevState, prevUID := s.state, s.uid
	fn()
	state, uid := s.state, s.uid
	s.mu.Unlock()

	if uid != prevUID {
		s.uids.Publish(uid)
	}
	if state != prevState || uid != prevUID {
		s.states.Publish(state)
	}
}
