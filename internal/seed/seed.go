// Package seed provides the default roster, rooms and message history used
// whenever nothing has been persisted yet. Timestamps are relative to the
// instant passed in so fixtures stay "recent" on every run.
package seed

import (
	"strings"
	"time"
	"unicode"

	"github.com/kingrea/chathub/internal/domain"
	"github.com/kingrea/chathub/internal/sim"
)

const day = 24 * time.Hour

// DefaultAvatar is given to identities that do not match a seed user.
const DefaultAvatar = "https://storage.googleapis.com/workspace-0f70711f-8b4e-4d94-86f1-2a93ccde5887/image/f882f24c-e248-440b-b003-9faac0a7fb10.png"

const avatarBase = "https://storage.googleapis.com/workspace-0f70711f-8b4e-4d94-86f1-2a93ccde5887/image/"

// Source supplies fallback data to the stores.
type Source interface {
	Users(now time.Time) []domain.User
	Rooms(now time.Time) []domain.Room
	Messages(now time.Time) []domain.Message
}

// Default is the built-in ChatHub fixture set.
type Default struct {
	// Random picks room member counts. Nil uses sim.SystemRandom.
	Random sim.Random
}

// New returns the built-in fixtures using r for member counts.
func New(r sim.Random) *Default {
	return &Default{Random: r}
}

type userSeed struct {
	id, name, email, avatar string
	status                  domain.Status
	lastSeenAgo             time.Duration
	joinedDaysAgo           int
}

var users = []userSeed{
	{"user-1", "Alex Johnson", "alex@example.com", "e79fc261-7896-440e-913f-d12de60778c2.png", domain.StatusOnline, 0, 30},
	{"user-2", "Sarah Chen", "sarah@example.com", "b68bc2f5-9343-4254-8798-0df66e035e35.png", domain.StatusOnline, 0, 25},
	{"user-3", "Mike Rodriguez", "mike@example.com", "a322a0b4-417a-4f00-9a54-21b3d64674f1.png", domain.StatusAway, 5 * time.Minute, 15},
	{"user-4", "Emma Wilson", "emma@example.com", "178d4fd1-5c8a-4bb9-9c29-3dca785704b4.png", domain.StatusOffline, time.Hour, 20},
	{"user-5", "David Kumar", "david@example.com", "27d27175-1402-4d49-8846-940cc8ba198c.png", domain.StatusOnline, 0, 10},
}

var rooms = []struct{ id, name, description string }{
	{"general", "General", "General discussion for everyone"},
	{"random", "Random", "Random conversations and fun topics"},
	{"tech-talk", "Tech Talk", "Discussions about technology and development"},
	{"announcements", "Announcements", "Important updates and announcements"},
}

type reactionSeed struct{ emoji, user string }

var messages = []struct {
	id, content, user, room string
	ago                     time.Duration
	reactions               []reactionSeed
}{
	{"msg-1", "Hey everyone! Welcome to our chat app. How is everyone doing today?", "user-1", "general",
		2 * time.Hour, []reactionSeed{{"👋", "user-2"}, {"😊", "user-3"}}},
	{"msg-2", "Hi Alex! I'm doing great, thanks for asking. Really excited about this new chat platform!", "user-2", "general",
		2*time.Hour - 5*time.Minute, []reactionSeed{{"🎉", "user-1"}}},
	{"msg-3", "Same here! The interface looks really clean and modern. Great work on the design.", "user-3", "general",
		2*time.Hour - 10*time.Minute, []reactionSeed{{"👍", "user-1"}, {"💯", "user-2"}}},
	{"msg-4", "Has anyone tried the file upload feature yet? I'm curious about how it works.", "user-4", "general",
		time.Hour - 15*time.Minute, nil},
	{"msg-5", "Speaking of tech, has anyone been following the latest developments in AI? There's some fascinating stuff happening.", "user-5", "tech-talk",
		30 * time.Minute, []reactionSeed{{"🤖", "user-1"}, {"🚀", "user-3"}}},
	{"msg-6", "Absolutely! The pace of innovation is incredible. I've been experimenting with some new frameworks lately.", "user-2", "tech-talk",
		25 * time.Minute, []reactionSeed{{"⚡", "user-5"}}},
	{"msg-7", `Random thought: why do we call it "debugging" when it should be "de-bugging"? 🐛`, "user-3", "random",
		15 * time.Minute, []reactionSeed{{"😂", "user-1"}, {"🤔", "user-4"}, {"🐛", "user-5"}}},
	{"msg-8", "Haha! That's actually a great point. Programming humor at its finest!", "user-1", "random",
		10 * time.Minute, []reactionSeed{{"👨‍💻", "user-2"}}},
	{"msg-9", "Welcome to ChatHub! Here are some important guidelines for using our platform effectively.", "user-1", "announcements",
		2 * day, []reactionSeed{{"📢", "user-2"}, {"👀", "user-3"}}},
	{"msg-10", "Just pushed some updates to the chat system. You should see improved performance now!", "user-5", "announcements",
		5 * time.Minute, []reactionSeed{{"🚀", "user-1"}, {"⚡", "user-2"}, {"💪", "user-4"}}},
}

// Users returns the five-member roster.
func (d *Default) Users(now time.Time) []domain.User {
	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		out = append(out, domain.User{
			ID:       u.id,
			Username: u.name,
			Email:    u.email,
			Avatar:   avatarBase + u.avatar,
			Status:   u.status,
			LastSeen: now.Add(-u.lastSeenAgo),
			JoinedAt: now.Add(-time.Duration(u.joinedDaysAgo) * day),
		})
	}
	return out
}

// Rooms returns the four public default rooms. Member counts are random in
// [10, 59].
func (d *Default) Rooms(now time.Time) []domain.Room {
	r := d.Random
	if r == nil {
		r = sim.SystemRandom{}
	}
	out := make([]domain.Room, 0, len(rooms))
	for i, room := range rooms {
		out = append(out, domain.Room{
			ID:          room.id,
			Name:        room.name,
			Description: room.description,
			Kind:        domain.RoomPublic,
			MemberCount: r.IntN(50) + 10,
			CreatedAt:   now.Add(-time.Duration(30-i*5) * day),
			CreatedBy:   users[0].id,
		})
	}
	return out
}

// Messages returns the seed history in declaration order. Callers sort.
func (d *Default) Messages(now time.Time) []domain.Message {
	roster := d.Users(now)
	byID := make(map[string]domain.User, len(roster))
	for _, u := range roster {
		byID[u.ID] = u
	}
	out := make([]domain.Message, 0, len(messages))
	for _, m := range messages {
		author := byID[m.user]
		reactions := make([]domain.Reaction, 0, len(m.reactions))
		for _, r := range m.reactions {
			reactions = append(reactions, domain.Reaction{
				Emoji:    r.emoji,
				UserID:   r.user,
				Username: byID[r.user].Username,
			})
		}
		out = append(out, domain.Message{
			ID:         m.id,
			Content:    m.content,
			UserID:     author.ID,
			Username:   author.Username,
			UserAvatar: author.Avatar,
			RoomID:     m.room,
			Timestamp:  now.Add(-m.ago),
			Kind:       domain.KindText,
			Reactions:  reactions,
		})
	}
	return out
}

// FindUserByEmail returns the roster entry whose email matches exactly.
func FindUserByEmail(roster []domain.User, email string) (domain.User, bool) {
	for _, u := range roster {
		if u.Email == email {
			return u, true
		}
	}
	return domain.User{}, false
}

// FindUser returns the roster entry with the given id.
func FindUser(roster []domain.User, id string) (domain.User, bool) {
	for _, u := range roster {
		if u.ID == id {
			return u, true
		}
	}
	return domain.User{}, false
}

// CannedReplies are posted by simulated roster members.
var CannedReplies = []string{
	"That's interesting!",
	"I agree with that point.",
	"Has anyone seen the latest updates?",
	"Great discussion everyone!",
	"I'm working on something similar.",
	"Thanks for sharing!",
	"Looking forward to hearing more about this.",
	"Good point! 👍",
}

// DisplayNameFromEmail turns "jane.doe@x.io" into "Jane Doe": every
// character of the local part outside [A-Za-z0-9] becomes a space and each
// word starts upper case.
func DisplayNameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	var b strings.Builder
	atWordStart := true
	for _, c := range local {
		switch {
		case !isAlnum(c):
			b.WriteByte(' ')
			atWordStart = true
		case atWordStart:
			b.WriteRune(unicode.ToUpper(c))
			atWordStart = false
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}

func isAlnum(c rune) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
