// Package chat is the client-side chat state container: rooms, messages,
// the roster and the selected room. Every mutation goes through one
// reducer; rooms and messages are mirrored to durable storage; a
// background loop simulates other users posting into the open room.
package chat

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/kingrea/chathub/internal/domain"
	"github.com/kingrea/chathub/internal/seed"
	"github.com/kingrea/chathub/internal/sim"
	"github.com/kingrea/chathub/internal/storage"
)

// DefaultUploadBaseURL prefixes every simulated upload.
const DefaultUploadBaseURL = "https://storage.googleapis.com/workspace-chatapp/uploads"

var (
	// ErrSessionEnded is returned when the identity was cleared or replaced
	// while an operation was waiting on simulated latency. Nothing is applied.
	ErrSessionEnded = errors.New("chat: session ended before the operation completed")
	// ErrUploadFailed is returned when the simulated transfer fails.
	ErrUploadFailed = errors.New("chat: upload failed")
)

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

// Simulation tunes inbound delivery.
type Simulation struct {
	Enabled     bool
	Interval    time.Duration
	Probability float64
}

// DefaultSimulation posts with 30% probability every 5 seconds.
func DefaultSimulation() Simulation {
	return Simulation{Enabled: true, Interval: 5 * time.Second, Probability: 0.3}
}

// Option customises a Store.
type Option func(*Store)

// WithClock replaces the wall clock and ticker source.
func WithClock(c sim.Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithRandom replaces the random source used by the delivery loop and the
// upload failure roll.
func WithRandom(r sim.Random) Option {
	return func(s *Store) {
		if r != nil {
			s.random = r
		}
	}
}

// WithDelayer replaces the simulated network latency.
func WithDelayer(d sim.Delayer) Option {
	return func(s *Store) {
		if d != nil {
			s.delay = d
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

// WithSimulation replaces the delivery loop settings. A non-positive
// interval keeps the default.
func WithSimulation(cfg Simulation) Option {
	return func(s *Store) {
		if cfg.Interval <= 0 {
			cfg.Interval = DefaultSimulation().Interval
		}
		s.simulation = cfg
	}
}

// WithUploadBaseURL changes the prefix of simulated upload URLs.
func WithUploadBaseURL(base string) Option {
	return func(s *Store) {
		if base != "" {
			s.uploadBase = base
		}
	}
}

// WithUploadFailureRate makes a fraction of simulated uploads fail.
func WithUploadFailureRate(rate float64) Option {
	return func(s *Store) {
		s.uploadFailureRate = rate
	}
}

type deliveryLoop struct {
	identityID string
	roomID     string
	gen        uint64
	ticker     sim.Ticker
	stop       chan struct{}
}

// Store is the chat state container. It is safe for concurrent use.
type Store struct {
	storage           storage.Store
	seed              seed.Source
	clock             sim.Clock
	random            sim.Random
	delay             sim.Delayer
	log               Logger
	simulation        Simulation
	uploadBase        string
	uploadFailureRate float64

	mu       sync.Mutex
	state    State
	identity *domain.Identity
	epoch    uint64
	loop     *deliveryLoop
	loopGen  uint64
	closed   bool

	roomsRev, messagesRev uint64
	persistMu             sync.Mutex
	savedRooms            uint64
	savedMessages         uint64

	subMu  sync.Mutex
	subs   map[int]chan struct{}
	nextID int
}

// New builds an empty Store. Nothing is loaded until an identity arrives
// through SetIdentity or Initialize.
func New(st storage.Store, src seed.Source, opts ...Option) *Store {
	s := &Store{
		storage:    st,
		seed:       src,
		clock:      sim.SystemClock{},
		random:     sim.SystemRandom{},
		log:        nopLogger{},
		simulation: DefaultSimulation(),
		uploadBase: DefaultUploadBaseURL,
		state:      initialState(),
		subs:       map[int]chan struct{}{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.delay == nil {
		s.delay = sim.NewLatency(s.random)
	}
	return s
}

// dispatch applies a through the reducer and schedules persistence for
// whichever collections changed. Callers hold s.mu and must call the
// returned function after unlocking.
func (s *Store) dispatch(a action) func() {
	prev := s.state
	s.state = reduce(prev, a)

	var rooms []domain.Room
	var msgs []domain.Message
	var roomsRev, msgsRev uint64
	if !sameSlice(prev.Rooms, s.state.Rooms) && len(s.state.Rooms) > 0 {
		s.roomsRev++
		rooms, roomsRev = s.state.Rooms, s.roomsRev
	}
	if !sameSlice(prev.Messages, s.state.Messages) && len(s.state.Messages) > 0 {
		s.messagesRev++
		msgs, msgsRev = s.state.Messages, s.messagesRev
	}
	return func() {
		s.persist(rooms, roomsRev, msgs, msgsRev)
	}
}

// persist writes the snapshots unless a newer revision already landed.
// Empty collections are never written so a cleared store cannot clobber
// the seed fallback on the next start.
func (s *Store) persist(rooms []domain.Room, roomsRev uint64, msgs []domain.Message, msgsRev uint64) {
	if rooms == nil && msgs == nil {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	ctx := context.Background()
	if rooms != nil && roomsRev > s.savedRooms {
		if err := storage.SaveJSON(ctx, s.storage, storage.KeyRooms, rooms); err != nil {
			s.log.Error("chat: persist rooms: %v", err)
		} else {
			s.savedRooms = roomsRev
		}
	}
	if msgs != nil && msgsRev > s.savedMessages {
		if err := storage.SaveJSON(ctx, s.storage, storage.KeyMessages, msgs); err != nil {
			s.log.Error("chat: persist messages: %v", err)
		} else {
			s.savedMessages = msgsRev
		}
	}
}

// commit applies actions unless the session epoch moved on while the
// operation was suspended, in which case nothing is applied.
func (s *Store) commit(epoch uint64, actions ...action) error {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		for _, a := range actions {
			s.log.Warn("chat: dropped %s, session changed", a.kind())
		}
		return ErrSessionEnded
	}
	s.applyLocked(actions)
	return nil
}

// applyLocked is entered with s.mu held and releases it. It reconciles the
// delivery loop, then persists and notifies subscribers.
func (s *Store) applyLocked(actions []action) {
	flushes := make([]func(), 0, len(actions))
	for _, a := range actions {
		flushes = append(flushes, s.dispatch(a))
	}
	s.reconcileLoopLocked()
	s.mu.Unlock()
	for _, f := range flushes {
		f()
	}
	s.broadcast()
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity returns the identity the store is bound to, if any.
func (s *Store) Identity() (domain.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return domain.Identity{}, false
	}
	return *s.identity, true
}

// CurrentRoom returns the selected room, if any.
func (s *Store) CurrentRoom() (domain.Room, bool) {
	return s.Snapshot().CurrentRoom()
}

// RoomMessages returns the messages of one room in feed order.
func (s *Store) RoomMessages(roomID string) []domain.Message {
	var out []domain.Message
	for _, m := range s.Snapshot().Messages {
		if m.RoomID == roomID {
			out = append(out, m)
		}
	}
	return out
}

// LastMessage returns the newest message in a room.
func (s *Store) LastMessage(roomID string) (domain.Message, bool) {
	msgs := s.Snapshot().Messages
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].RoomID == roomID {
			return msgs[i], true
		}
	}
	return domain.Message{}, false
}

// Roster returns known users with the current identity first, then by
// presence (online, away, offline) and name.
func (s *Store) Roster() []domain.User {
	s.mu.Lock()
	users := append([]domain.User(nil), s.state.Roster...)
	selfID := ""
	if s.identity != nil {
		selfID = s.identity.ID
	}
	s.mu.Unlock()

	sort.SliceStable(users, func(i, j int) bool {
		a, b := users[i], users[j]
		if (a.ID == selfID) != (b.ID == selfID) {
			return a.ID == selfID
		}
		if a.Status.Rank() != b.Status.Rank() {
			return a.Status.Rank() < b.Status.Rank()
		}
		return a.Username < b.Username
	})
	return users
}

// Subscribe returns a channel that receives a value after state changes.
// Notifications coalesce: a slow reader sees at most one pending signal.
// The returned function unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

func (s *Store) broadcast() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Close stops the delivery loop. The store keeps serving reads.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.stopLoopLocked()
	s.mu.Unlock()
}
