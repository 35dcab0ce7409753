// Package session owns the authenticated-identity lifecycle: restore on
// start, login, signup and logout. The identity is mirrored to the
// chat_auth_user storage key.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/kingrea/chathub/internal/domain"
	"github.com/kingrea/chathub/internal/ids"
	"github.com/kingrea/chathub/internal/seed"
	"github.com/kingrea/chathub/internal/sim"
	"github.com/kingrea/chathub/internal/storage"
)

// Error strings are shown to the user verbatim.
var (
	ErrInvalidCredentials = errors.New("Invalid email or password")
	ErrUsernameTooShort   = errors.New("Username must be at least 2 characters long")
	ErrInvalidEmail       = errors.New("Please enter a valid email address")
	ErrPasswordTooShort   = errors.New("Password must be at least 6 characters long")
	ErrEmailTaken         = errors.New("User with this email already exists")
	ErrLoginFailed        = errors.New("Login failed. Please try again.")
	ErrSignupFailed       = errors.New("Signup failed. Please try again.")
)

const (
	minUsernameLength = 2
	minPasswordLength = 6

	authDelayMin = 200 * time.Millisecond
	authDelayMax = 800 * time.Millisecond
)

// State is the position in the session lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "uninitialized"
	}
}

// Logger receives operational messages. *logbook.Logbook satisfies it.
type Logger interface {
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Option customises a Store.
type Option func(*Store)

// WithDelayer replaces the simulated network latency.
func WithDelayer(d sim.Delayer) Option {
	return func(s *Store) {
		if d != nil {
			s.delay = d
		}
	}
}

// WithClock replaces the wall clock used for roster lookups.
func WithClock(c sim.Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger routes store logging to l.
func WithLogger(l Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// Store holds the current identity.
type Store struct {
	storage storage.Store
	seed    seed.Source
	clock   sim.Clock
	delay   sim.Delayer
	log     Logger

	mu        sync.Mutex
	state     State
	identity  *domain.Identity
	loading   bool
	err       error
	observers []func(*domain.Identity)
}

// New builds a Store in the uninitialized state. Call Restore before use.
func New(st storage.Store, src seed.Source, opts ...Option) *Store {
	s := &Store{
		storage: st,
		seed:    src,
		clock:   sim.SystemClock{},
		log:     nopLogger{},
		state:   StateUninitialized,
		loading: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.delay == nil {
		s.delay = sim.NewLatency(sim.SystemRandom{})
	}
	return s
}

// OnChange registers fn to be called with the new identity (nil when
// signed out) after every transition. fn runs without the store lock held.
func (s *Store) OnChange(fn func(*domain.Identity)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// Restore adopts a persisted identity if one exists.
func (s *Store) Restore(ctx context.Context) error {
	var stored domain.Identity
	found, err := storage.LoadJSON(ctx, s.storage, storage.KeyAuthUser, &stored)
	if err != nil {
		s.log.Warn("session: discarding unreadable %s: %v", storage.KeyAuthUser, err)
		found = false
	}
	if found && strings.TrimSpace(stored.ID) == "" {
		s.log.Warn("session: discarding %s without an id", storage.KeyAuthUser)
		found = false
	}

	s.mu.Lock()
	s.loading = false
	if found {
		s.identity = &stored
		s.state = StateAuthenticated
		s.log.Info("session: restored %s (%s)", stored.Username, stored.ID)
	} else {
		s.identity = nil
		s.state = StateAnonymous
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// Login signs in with any well-formed credentials. A seed user with the
// same email lends its profile; any other address gets a synthesized one.
func (s *Store) Login(ctx context.Context, email, password string) error {
	s.begin()
	if err := s.delay.Delay(ctx, authDelayMin, authDelayMax); err != nil {
		s.log.Warn("session: login interrupted: %v", err)
		return s.fail(ErrLoginFailed)
	}
	if !validCredentials(email, password) {
		return s.fail(ErrInvalidCredentials)
	}

	var identity domain.Identity
	if user, ok := seed.FindUserByEmail(s.seed.Users(s.clock.Now()), email); ok {
		identity = domain.Identity{
			ID:              user.ID,
			Username:        user.Username,
			Email:           user.Email,
			Avatar:          user.Avatar,
			IsAuthenticated: true,
		}
	} else {
		identity = synthesize(seed.DisplayNameFromEmail(email), email)
	}

	if err := storage.SaveJSON(ctx, s.storage, storage.KeyAuthUser, identity); err != nil {
		s.log.Error("session: persist identity: %v", err)
		return s.fail(ErrLoginFailed)
	}
	s.adopt(identity)
	s.log.Info("session: %s logged in", identity.Email)
	return nil
}

// Signup creates a new identity. The first failing rule is reported.
func (s *Store) Signup(ctx context.Context, username, email, password string) error {
	s.begin()
	if err := s.delay.Delay(ctx, authDelayMin, authDelayMax); err != nil {
		s.log.Warn("session: signup interrupted: %v", err)
		return s.fail(ErrSignupFailed)
	}
	if err := validateSignup(username, email, password); err != nil {
		return s.fail(err)
	}
	if _, taken := seed.FindUserByEmail(s.seed.Users(s.clock.Now()), email); taken {
		return s.fail(ErrEmailTaken)
	}

	identity := synthesize(username, email)
	if err := storage.SaveJSON(ctx, s.storage, storage.KeyAuthUser, identity); err != nil {
		s.log.Error("session: persist identity: %v", err)
		return s.fail(ErrSignupFailed)
	}
	s.adopt(identity)
	s.log.Info("session: %s signed up", identity.Email)
	return nil
}

// Logout forgets the identity immediately. A storage error is returned but
// the in-memory identity is cleared regardless.
func (s *Store) Logout(ctx context.Context) error {
	err := s.storage.Delete(ctx, storage.KeyAuthUser)
	if err != nil {
		s.log.Error("session: clear identity: %v", err)
	}
	s.mu.Lock()
	s.identity = nil
	s.state = StateAnonymous
	s.loading = false
	s.err = nil
	s.mu.Unlock()
	s.log.Info("session: logged out")
	s.notify()
	return err
}

// State returns the lifecycle position.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns a copy of the identity, if any.
func (s *Store) Current() (domain.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return domain.Identity{}, false
	}
	return *s.identity, true
}

// Loading reports whether a restore, login or signup is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the last user-facing failure, or nil.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// ClearErr dismisses the last failure.
func (s *Store) ClearErr() {
	s.mu.Lock()
	s.err = nil
	s.mu.Unlock()
}

func (s *Store) begin() {
	s.mu.Lock()
	s.loading = true
	s.err = nil
	s.mu.Unlock()
}

func (s *Store) fail(err error) error {
	s.mu.Lock()
	s.loading = false
	s.err = err
	s.mu.Unlock()
	return err
}

func (s *Store) adopt(identity domain.Identity) {
	s.mu.Lock()
	s.identity = &identity
	s.state = StateAuthenticated
	s.loading = false
	s.err = nil
	s.mu.Unlock()
	s.notify()
}

func (s *Store) notify() {
	s.mu.Lock()
	observers := make([]func(*domain.Identity), len(s.observers))
	copy(observers, s.observers)
	var current *domain.Identity
	if s.identity != nil {
		cp := *s.identity
		current = &cp
	}
	s.mu.Unlock()
	for _, fn := range observers {
		fn(current)
	}
}

func synthesize(username, email string) domain.Identity {
	return domain.Identity{
		ID:              ids.User(),
		Username:        username,
		Email:           email,
		Avatar:          seed.DefaultAvatar,
		IsAuthenticated: true,
	}
}

func validCredentials(email, password string) bool {
	return strings.Contains(email, "@") && utf8.RuneCountInString(password) >= minPasswordLength
}

func validateSignup(username, email, password string) error {
	if utf8.RuneCountInString(username) < minUsernameLength {
		return ErrUsernameTooShort
	}
	if !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}
