package emoji

import "testing"

func TestCategoriesInTabOrder(t *testing.T) {
	want := []string{"Recent", "Smileys", "Gestures", "Objects"}
	if len(Categories) != len(want) {
		t.Fatalf("expected %d categories, got %d", len(want), len(Categories))
	}
	for i, name := range want {
		if Categories[i].Name != name {
			t.Fatalf("category %d = %s, want %s", i, Categories[i].Name, name)
		}
	}
	if got := len(Categories[0].Emojis); got != 8 {
		t.Fatalf("recent should hold 8 emojis, got %d", got)
	}
}

func TestAllDeduplicates(t *testing.T) {
	seen := map[string]bool{}
	for _, e := range All() {
		if seen[e.Char] {
			t.Fatalf("duplicate emoji %s", e.Char)
		}
		seen[e.Char] = true
	}
	if !seen["🔥"] || !seen["👍"] {
		t.Fatalf("expected fire and thumbs up in All()")
	}
}

func TestSearch(t *testing.T) {
	if got := Search("  "); got != nil {
		t.Fatalf("blank query should return nil, got %v", got)
	}
	got := Search("thumbs")
	if len(got) < 2 {
		t.Fatalf("expected thumbs up and down, got %v", got)
	}
	for _, e := range got[:2] {
		if e.Char != "👍" && e.Char != "👎" {
			t.Fatalf("unexpected top match %+v", e)
		}
	}
	fire := Search("FIRE")
	if len(fire) == 0 || fire[0].Char != "🔥" {
		t.Fatalf("expected fire first, got %v", fire)
	}
	if len(Search("zzzzqqq")) != 0 {
		t.Fatalf("nonsense query should not match")
	}
}
