package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/kingrea/chathub/internal/domain"
)

const previewLength = 30

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// roomPreview is the one-line summary of a room's newest message.
func roomPreview(m domain.Message) string {
	switch m.Kind {
	case domain.KindImage:
		return "📷 Image"
	case domain.KindFile:
		return "📎 File"
	}
	return truncate(m.Content, previewLength)
}

// shortTime is the room list timestamp: a clock time today, a date before.
func shortTime(now, t time.Time) string {
	if sameDay(now, t) {
		return t.Format("15:04")
	}
	if now.Year() == t.Year() {
		return t.Format("Jan 2")
	}
	return t.Format("Jan 2 2006")
}

func lastSeen(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "Just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
	return fmt.Sprintf("%dd ago", int(d.Hours()/24))
}

// dateLabel heads each day in the feed.
func dateLabel(now, t time.Time) string {
	switch {
	case sameDay(now, t):
		return "Today"
	case sameDay(now.AddDate(0, 0, -1), t):
		return "Yesterday"
	}
	return t.Format("Monday, January 2")
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}

func reactionLine(reactions []domain.Reaction, viewerID string) string {
	groups := domain.GroupReactions(reactions, viewerID)
	if len(groups) == 0 {
		return ""
	}
	parts := make([]string, 0, len(groups))
	for _, g := range groups {
		label := fmt.Sprintf("%s %d", g.Emoji, g.Count)
		if g.Mine {
			label = "[" + label + "]"
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, "  ")
}

func statusDot(s domain.Status) string {
	switch s {
	case domain.StatusOnline:
		return "●"
	case domain.StatusAway:
		return "◐"
	}
	return "○"
}

func statusHeading(s domain.Status) string {
	switch s {
	case domain.StatusOnline:
		return "Online"
	case domain.StatusAway:
		return "Away"
	case domain.StatusOffline:
		return "Offline"
	}
	return "Unknown"
}
