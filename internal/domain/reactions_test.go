package domain

import "testing"

func TestUpsertReactionReplacesSamePair(t *testing.T) {
	base := []Reaction{
		{Emoji: "👍", UserID: "u1", Username: "Ann"},
		{Emoji: "🎉", UserID: "u2", Username: "Bob"},
	}
	got := UpsertReaction(base, Reaction{Emoji: "👍", UserID: "u1", Username: "Ann B."})
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[1].Username != "Ann B." || got[1].Emoji != "👍" {
		t.Fatalf("replacement should move to the end, got %+v", got)
	}
	if base[0].Username != "Ann" {
		t.Fatalf("input slice was modified: %+v", base)
	}
}

func TestUpsertReactionKeepsOtherUsersAndEmoji(t *testing.T) {
	base := []Reaction{{Emoji: "👍", UserID: "u1"}}
	got := UpsertReaction(base, Reaction{Emoji: "👍", UserID: "u2"})
	got = UpsertReaction(got, Reaction{Emoji: "❤️", UserID: "u1"})
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
}

func TestGroupReactions(t *testing.T) {
	reactions := []Reaction{
		{Emoji: "👍", UserID: "u1", Username: "Ann"},
		{Emoji: "😂", UserID: "u2", Username: "Bob"},
		{Emoji: "👍", UserID: "u3", Username: "Cid"},
	}
	groups := GroupReactions(reactions, "u3")
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	if groups[0].Emoji != "👍" || groups[0].Count != 2 || !groups[0].Mine {
		t.Fatalf("unexpected first group %+v", groups[0])
	}
	if groups[1].Mine {
		t.Fatalf("second group should not be marked mine")
	}
	if GroupReactions(nil, "u1") != nil {
		t.Fatalf("expected nil groups for no reactions")
	}
}
