package chat

import (
	"sort"
	"time"

	"github.com/kingrea/chathub/internal/domain"
)

// State is the chat store's record. Values handed out by the store share
// backing arrays with it and must be treated as read-only; the reducer
// always copies before writing.
type State struct {
	Rooms         []domain.Room
	Messages      []domain.Message
	Roster        []domain.User
	CurrentRoomID string
	Loading       bool
}

func initialState() State {
	return State{Loading: true}
}

// CurrentRoom returns the selected room, if any.
func (s State) CurrentRoom() (domain.Room, bool) {
	if s.CurrentRoomID == "" {
		return domain.Room{}, false
	}
	return s.room(s.CurrentRoomID)
}

func (s State) room(id string) (domain.Room, bool) {
	for _, r := range s.Rooms {
		if r.ID == id {
			return r, true
		}
	}
	return domain.Room{}, false
}

// action is a tagged state transition. Only reduce interprets them.
type action interface {
	kind() string
}

type (
	setLoading     struct{ loading bool }
	setCurrentRoom struct{ roomID string }
	setRooms       struct{ rooms []domain.Room }
	addRoom        struct{ room domain.Room }
	setMessages    struct{ messages []domain.Message }
	addMessage     struct{ message domain.Message }
	updateMessage  struct {
		id       string
		content  string
		editedAt time.Time
	}
	addReaction struct {
		messageID string
		reaction  domain.Reaction
	}
	setRoster struct{ users []domain.User }
	reset     struct{}
)

func (setLoading) kind() string     { return "set_loading" }
func (setCurrentRoom) kind() string { return "set_current_room" }
func (setRooms) kind() string       { return "set_rooms" }
func (addRoom) kind() string        { return "add_room" }
func (setMessages) kind() string    { return "set_messages" }
func (addMessage) kind() string     { return "add_message" }
func (updateMessage) kind() string  { return "update_message" }
func (addReaction) kind() string    { return "add_reaction" }
func (setRoster) kind() string      { return "set_roster" }
func (reset) kind() string          { return "reset" }

// reduce is the single transition function. It never mutates s; any
// collection it changes is a fresh slice.
func reduce(s State, a action) State {
	switch a := a.(type) {
	case setLoading:
		s.Loading = a.loading
	case setCurrentRoom:
		if a.roomID == "" {
			s.CurrentRoomID = ""
		} else if _, ok := s.room(a.roomID); ok {
			s.CurrentRoomID = a.roomID
		}
	case setRooms:
		s.Rooms = append([]domain.Room(nil), a.rooms...)
		if _, ok := s.room(s.CurrentRoomID); !ok {
			s.CurrentRoomID = ""
		}
	case addRoom:
		rooms := make([]domain.Room, len(s.Rooms), len(s.Rooms)+1)
		copy(rooms, s.Rooms)
		s.Rooms = append(rooms, a.room)
	case setMessages:
		msgs := append([]domain.Message(nil), a.messages...)
		sort.SliceStable(msgs, func(i, j int) bool {
			return msgs[i].Timestamp.Before(msgs[j].Timestamp)
		})
		s.Messages = msgs
	case addMessage:
		s.Messages = insertOrdered(s.Messages, a.message)
	case updateMessage:
		idx := indexOf(s.Messages, a.id)
		if idx < 0 {
			return s
		}
		msgs := append([]domain.Message(nil), s.Messages...)
		editedAt := a.editedAt
		msgs[idx].Content = a.content
		msgs[idx].Edited = true
		msgs[idx].EditedAt = &editedAt
		s.Messages = msgs
	case addReaction:
		idx := indexOf(s.Messages, a.messageID)
		if idx < 0 {
			return s
		}
		msgs := append([]domain.Message(nil), s.Messages...)
		msgs[idx].Reactions = domain.UpsertReaction(msgs[idx].Reactions, a.reaction)
		s.Messages = msgs
	case setRoster:
		s.Roster = append([]domain.User(nil), a.users...)
	case reset:
		return initialState()
	}
	return s
}

// insertOrdered places m after every message with a timestamp at or before
// its own, so equal timestamps keep arrival order.
func insertOrdered(msgs []domain.Message, m domain.Message) []domain.Message {
	pos := sort.Search(len(msgs), func(i int) bool {
		return msgs[i].Timestamp.After(m.Timestamp)
	})
	out := make([]domain.Message, 0, len(msgs)+1)
	out = append(out, msgs[:pos]...)
	out = append(out, m)
	return append(out, msgs[pos:]...)
}

func indexOf(msgs []domain.Message, id string) int {
	for i := range msgs {
		if msgs[i].ID == id {
			return i
		}
	}
	return -1
}

// sameSlice reports whether two slices share a backing array and length,
// which under copy-on-write means "unchanged".
func sameSlice[T any](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	return &a[0] == &b[0]
}
