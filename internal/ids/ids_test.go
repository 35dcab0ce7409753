package ids

import (
	"strings"
	"testing"
	"time"
)

func TestMessageIDsAreUniqueAndStamped(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	seen := map[string]struct{}{}
	for i := 0; i < 200; i++ {
		id := Message(now)
		if !strings.HasPrefix(id, "msg-1700000000123-") {
			t.Fatalf("unexpected id shape %q", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestPrefixes(t *testing.T) {
	now := time.Now()
	if !HasPrefix(Room(now), "room") {
		t.Fatalf("room id missing prefix")
	}
	if !HasPrefix(User(), "user") {
		t.Fatalf("user id missing prefix")
	}
	if HasPrefix(Message(now), "room") {
		t.Fatalf("message id should not look like a room id")
	}
}
