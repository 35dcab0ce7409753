package tui

import (
	"testing"
	"time"

	"github.com/kingrea/chathub/internal/domain"
)

func TestRoomPreview(t *testing.T) {
	long := domain.Message{Kind: domain.KindText, Content: "Has anyone tried the file upload feature yet? I'm curious."}
	if got := roomPreview(long); got != "Has anyone tried the file uplo..." {
		t.Fatalf("preview = %q", got)
	}
	if got := roomPreview(domain.Message{Kind: domain.KindImage, Content: "Shared an image: a.png"}); got != "📷 Image" {
		t.Fatalf("image preview = %q", got)
	}
	if got := roomPreview(domain.Message{Kind: domain.KindFile, Content: "Shared a file: a.pdf"}); got != "📎 File" {
		t.Fatalf("file preview = %q", got)
	}
	if got := roomPreview(domain.Message{Kind: domain.KindText, Content: "short\nline"}); got != "short line" {
		t.Fatalf("newlines should collapse, got %q", got)
	}
}

func TestLastSeen(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cases := map[time.Duration]string{
		10 * time.Second: "Just now",
		5 * time.Minute:  "5m ago",
		3 * time.Hour:    "3h ago",
		50 * time.Hour:   "2d ago",
	}
	for ago, want := range cases {
		if got := lastSeen(now, now.Add(-ago)); got != want {
			t.Fatalf("lastSeen(%v) = %q, want %q", ago, got, want)
		}
	}
}

func TestDateLabelAndShortTime(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if got := dateLabel(now, now.Add(-2*time.Hour)); got != "Today" {
		t.Fatalf("got %q", got)
	}
	if got := dateLabel(now, now.Add(-20*time.Hour)); got != "Yesterday" {
		t.Fatalf("got %q", got)
	}
	if got := dateLabel(now, now.AddDate(0, 0, -3)); got != "Sunday, April 28" {
		t.Fatalf("got %q", got)
	}
	if got := shortTime(now, now.Add(-90*time.Minute)); got != "10:30" {
		t.Fatalf("got %q", got)
	}
	if got := shortTime(now, now.AddDate(0, 0, -2)); got != "Apr 29" {
		t.Fatalf("got %q", got)
	}
}

func TestReactionLineMarksViewer(t *testing.T) {
	reactions := []domain.Reaction{
		{Emoji: "👍", UserID: "user-2"},
		{Emoji: "🎉", UserID: "user-1"},
		{Emoji: "👍", UserID: "user-1"},
	}
	if got := reactionLine(reactions, "user-1"); got != "[👍 2]  [🎉 1]" {
		t.Fatalf("got %q", got)
	}
	if got := reactionLine(nil, "user-1"); got != "" {
		t.Fatalf("no reactions should render nothing, got %q", got)
	}
}
