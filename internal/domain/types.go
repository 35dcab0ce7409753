// Package domain holds the chat data model shared by the stores, the
// storage layer and the TUI. Field names in the JSON tags match the layout
// persisted under the chat_* storage keys.
package domain

import "time"

// Status is a roster member's presence.
type Status string

const (
	StatusOnline  Status = "online"
	StatusAway    Status = "away"
	StatusOffline Status = "offline"
)

// Rank orders presence for roster display: online, away, offline, unknown.
func (s Status) Rank() int {
	switch s {
	case StatusOnline:
		return 0
	case StatusAway:
		return 1
	case StatusOffline:
		return 2
	default:
		return 3
	}
}

// RoomKind is the visibility of a room.
type RoomKind string

const (
	RoomPublic  RoomKind = "public"
	RoomPrivate RoomKind = "private"
)

// MessageKind distinguishes plain text from attachment messages.
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
	KindFile  MessageKind = "file"
)

// Valid reports whether k is one of the known message kinds.
func (k MessageKind) Valid() bool {
	switch k {
	case KindText, KindImage, KindFile:
		return true
	}
	return false
}

// User is a roster entry.
type User struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Avatar   string    `json:"avatar"`
	Status   Status    `json:"status"`
	LastSeen time.Time `json:"lastSeen"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Room is a named channel. MemberCount is informational only; nothing
// increments it after creation.
type Room struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Kind        RoomKind  `json:"type"`
	MemberCount int       `json:"memberCount"`
	CreatedAt   time.Time `json:"createdAt"`
	CreatedBy   string    `json:"createdBy"`
}

// Reaction is one user's emoji on a message.
type Reaction struct {
	Emoji    string `json:"emoji"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Message is an entry in a room feed. Author fields are copied from the
// identity at send time.
type Message struct {
	ID         string      `json:"id"`
	Content    string      `json:"content"`
	UserID     string      `json:"userId"`
	Username   string      `json:"username"`
	UserAvatar string      `json:"userAvatar"`
	RoomID     string      `json:"roomId"`
	Timestamp  time.Time   `json:"timestamp"`
	Edited     bool        `json:"edited"`
	EditedAt   *time.Time  `json:"editedAt,omitempty"`
	Kind       MessageKind `json:"type"`
	FileURL    string      `json:"fileUrl,omitempty"`
	FileName   string      `json:"fileName,omitempty"`
	FileSize   int64       `json:"fileSize,omitempty"`
	Reactions  []Reaction  `json:"reactions"`
}

// HasAttachment reports whether the message carries file fields.
func (m Message) HasAttachment() bool {
	return m.FileURL != ""
}

// Identity is the authenticated user's public profile.
type Identity struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Avatar          string `json:"avatar"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

// Attachment describes an uploaded file referenced by a message.
type Attachment struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}
