package chat

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kingrea/chathub/internal/attach"
	"github.com/kingrea/chathub/internal/domain"
	"github.com/kingrea/chathub/internal/ids"
	"github.com/kingrea/chathub/internal/storage"
)

const (
	sendDelayMin     = 100 * time.Millisecond
	sendDelayMax     = 300 * time.Millisecond
	reactionDelayMin = 50 * time.Millisecond
	reactionDelayMax = 200 * time.Millisecond
	roomDelayMin     = 200 * time.Millisecond
	roomDelayMax     = 800 * time.Millisecond
	uploadDelayMin   = 1000 * time.Millisecond
	uploadDelayMax   = 3000 * time.Millisecond
)

// SetIdentity follows the session: nil clears everything and stops the
// delivery loop, anything else initializes the store for that identity.
func (s *Store) SetIdentity(ctx context.Context, identity *domain.Identity) error {
	if identity != nil {
		return s.Initialize(ctx, *identity)
	}
	s.mu.Lock()
	if s.identity == nil {
		s.mu.Unlock()
		return nil
	}
	s.identity = nil
	s.epoch++
	s.log.Info("chat: identity cleared, state reset")
	s.applyLocked([]action{reset{}})
	return nil
}

// Initialize loads rooms and messages for identity, falling back to seed
// data for anything not yet persisted, and selects the first room. Calling
// it again for the same identity id does nothing. If the backend cannot be
// read the store is left empty and the error is returned.
func (s *Store) Initialize(ctx context.Context, identity domain.Identity) error {
	s.mu.Lock()
	if s.identity != nil && s.identity.ID == identity.ID {
		s.mu.Unlock()
		return nil
	}
	switching := s.identity != nil
	s.identity = &identity
	s.epoch++
	epoch := s.epoch
	pending := []action{setLoading{true}}
	if switching {
		pending = []action{reset{}}
	}
	s.applyLocked(pending)

	now := s.clock.Now()
	rooms, err := s.loadRooms(ctx, now)
	var msgs []domain.Message
	if err == nil {
		msgs, err = s.loadMessages(ctx, now)
	}
	if err != nil {
		s.log.Error("chat: load state for %s: %v", identity.ID, err)
		s.abandon(epoch)
		return fmt.Errorf("chat: load state: %w", err)
	}
	roster := s.seed.Users(now)

	first := ""
	if len(rooms) > 0 {
		first = rooms[0].ID
	}
	err = s.commit(epoch,
		setRooms{rooms},
		setMessages{msgs},
		setRoster{roster},
		setCurrentRoom{first},
		setLoading{false},
	)
	if err == nil {
		s.log.Info("chat: initialized for %s with %d rooms, %d messages", identity.ID, len(rooms), len(msgs))
	}
	return err
}

// abandon leaves the store empty and without an identity after a failed
// load. Nothing is mirrored, so the stored collections survive until the
// next successful Initialize.
func (s *Store) abandon(epoch uint64) {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return
	}
	s.identity = nil
	s.epoch++
	s.applyLocked([]action{setLoading{false}})
}

// loadRooms returns the persisted rooms, or the seed rooms when none are
// stored or the record is malformed. Backend failures are returned.
func (s *Store) loadRooms(ctx context.Context, now time.Time) ([]domain.Room, error) {
	var rooms []domain.Room
	found, err := storage.LoadJSON(ctx, s.storage, storage.KeyRooms, &rooms)
	switch {
	case errors.Is(err, storage.ErrMalformed):
		s.log.Warn("chat: falling back to seed rooms: %v", err)
		return s.seed.Rooms(now), nil
	case err != nil:
		return nil, err
	case !found:
		return s.seed.Rooms(now), nil
	}
	return rooms, nil
}

func (s *Store) loadMessages(ctx context.Context, now time.Time) ([]domain.Message, error) {
	var msgs []domain.Message
	found, err := storage.LoadJSON(ctx, s.storage, storage.KeyMessages, &msgs)
	switch {
	case errors.Is(err, storage.ErrMalformed):
		s.log.Warn("chat: falling back to seed messages: %v", err)
		return s.seed.Messages(now), nil
	case err != nil:
		return nil, err
	case !found:
		return s.seed.Messages(now), nil
	}
	for i := range msgs {
		if msgs[i].Reactions == nil {
			msgs[i].Reactions = []domain.Reaction{}
		}
	}
	return msgs, nil
}

// SelectRoom makes roomID current. Unknown ids change nothing and report
// false.
func (s *Store) SelectRoom(roomID string) bool {
	s.mu.Lock()
	if _, ok := s.state.room(roomID); !ok {
		s.mu.Unlock()
		return false
	}
	if s.state.CurrentRoomID == roomID {
		s.mu.Unlock()
		return true
	}
	s.applyLocked([]action{setCurrentRoom{roomID}})
	return true
}

// session captures what an async operation needs before it suspends.
type session struct {
	identity domain.Identity
	roomID   string
	epoch    uint64
}

func (s *Store) capture() (session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return session{epoch: s.epoch}, false
	}
	return session{identity: *s.identity, roomID: s.state.CurrentRoomID, epoch: s.epoch}, true
}

// SendMessage posts content into the current room after simulated latency.
// Blank content, a missing identity or no selected room make it a no-op
// returning (nil, nil). The room is fixed at call time.
func (s *Store) SendMessage(ctx context.Context, content string, kind domain.MessageKind, att *domain.Attachment) (*domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}
	sess, ok := s.capture()
	if !ok || sess.roomID == "" {
		return nil, nil
	}
	if !kind.Valid() {
		kind = domain.KindText
	}
	if err := s.delay.Delay(ctx, sendDelayMin, sendDelayMax); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	msg := domain.Message{
		ID:         ids.Message(now),
		Content:    content,
		UserID:     sess.identity.ID,
		Username:   sess.identity.Username,
		UserAvatar: sess.identity.Avatar,
		RoomID:     sess.roomID,
		Timestamp:  now,
		Kind:       kind,
		Reactions:  []domain.Reaction{},
	}
	if att != nil {
		msg.FileURL = att.URL
		msg.FileName = att.Name
		msg.FileSize = att.Size
	}
	if err := s.commit(sess.epoch, addMessage{msg}); err != nil {
		return nil, err
	}
	return &msg, nil
}

// AddReaction upserts the identity's emoji on a message. Unknown message
// ids are ignored.
func (s *Store) AddReaction(ctx context.Context, messageID, emoji string) error {
	sess, ok := s.capture()
	if !ok || emoji == "" {
		return nil
	}
	if err := s.delay.Delay(ctx, reactionDelayMin, reactionDelayMax); err != nil {
		return err
	}
	return s.commit(sess.epoch, addReaction{
		messageID: messageID,
		reaction: domain.Reaction{
			Emoji:    emoji,
			UserID:   sess.identity.ID,
			Username: sess.identity.Username,
		},
	})
}

// EditMessage replaces a message's content and marks it edited. Unknown
// message ids are ignored.
func (s *Store) EditMessage(ctx context.Context, messageID, content string) error {
	sess, ok := s.capture()
	if !ok {
		return nil
	}
	if err := s.delay.Delay(ctx, sendDelayMin, sendDelayMax); err != nil {
		return err
	}
	return s.commit(sess.epoch, updateMessage{
		id:       messageID,
		content:  content,
		editedAt: s.clock.Now(),
	})
}

// UploadFile simulates transferring f and returns its synthetic URL. The
// file is trusted; callers validate with attach.Validate first.
func (s *Store) UploadFile(ctx context.Context, f attach.File) (string, error) {
	sess, signedIn := s.capture()
	if err := s.delay.Delay(ctx, uploadDelayMin, uploadDelayMax); err != nil {
		s.log.Warn("chat: upload of %s interrupted: %v", f.Name, err)
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	if s.uploadFailureRate > 0 && s.random.Float64() < s.uploadFailureRate {
		s.log.Warn("chat: simulated upload failure for %s", f.Name)
		return "", ErrUploadFailed
	}
	if signedIn {
		s.mu.Lock()
		stale := s.epoch != sess.epoch
		s.mu.Unlock()
		if stale {
			return "", ErrSessionEnded
		}
	}
	url := UploadURL(s.uploadBase, f.Name)
	s.log.Info("chat: uploaded %s (%s)", f.Name, attach.FormatSize(f.Size))
	return url, nil
}

var unsafeNameChars = regexp.MustCompile(`(?i)[^a-z0-9.-]`)

// UploadURL builds the storage URL for a file name: characters outside
// [a-z0-9.-] (any case) become underscores and the result is lowercased.
func UploadURL(base, name string) string {
	return strings.TrimRight(base, "/") + "/" + strings.ToLower(unsafeNameChars.ReplaceAllString(name, "_"))
}

// RoomOption customises CreateRoom.
type RoomOption func(*domain.Room)

// WithPrivate creates the room as private.
func WithPrivate() RoomOption {
	return func(r *domain.Room) { r.Kind = domain.RoomPrivate }
}

// WithMemberCount overrides the initial member count of 1.
func WithMemberCount(n int) RoomOption {
	return func(r *domain.Room) {
		if n >= 0 {
			r.MemberCount = n
		}
	}
}

// CreateRoom appends a new public room created by the identity. Without an
// identity it is a no-op returning (nil, nil).
func (s *Store) CreateRoom(ctx context.Context, name, description string, opts ...RoomOption) (*domain.Room, error) {
	sess, ok := s.capture()
	if !ok {
		return nil, nil
	}
	if err := s.delay.Delay(ctx, roomDelayMin, roomDelayMax); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	room := domain.Room{
		ID:          ids.Room(now),
		Name:        name,
		Description: description,
		Kind:        domain.RoomPublic,
		MemberCount: 1,
		CreatedAt:   now,
		CreatedBy:   sess.identity.ID,
	}
	for _, opt := range opts {
		opt(&room)
	}
	if err := s.commit(sess.epoch, addRoom{room}); err != nil {
		return nil, err
	}
	s.log.Info("chat: %s created room %s", sess.identity.ID, room.ID)
	return &room, nil
}

// SearchMessages returns every message, across all rooms, whose content or
// author name contains query case-insensitively. A blank query matches
// nothing.
func (s *Store) SearchMessages(query string) []domain.Message {
	return searchMessages(s.Snapshot().Messages, query)
}

func searchMessages(msgs []domain.Message, query string) []domain.Message {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	needle := strings.ToLower(query)
	var out []domain.Message
	for _, m := range msgs {
		if strings.Contains(strings.ToLower(m.Content), needle) ||
			strings.Contains(strings.ToLower(m.Username), needle) {
			out = append(out, m)
		}
	}
	return out
}
