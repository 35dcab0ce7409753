package domain

// ReactionGroup is the rendered view of every reaction sharing an emoji.
type ReactionGroup struct {
	Emoji string
	Count int
	Users []string
	// Mine is set when the viewing user is among the reactors.
	Mine bool
}

// UpsertReaction returns a new slice in which r replaces any reaction with
// the same (UserID, Emoji) pair. The replacement moves to the end. The input
// slice is never modified.
func UpsertReaction(reactions []Reaction, r Reaction) []Reaction {
	out := make([]Reaction, 0, len(reactions)+1)
	for _, existing := range reactions {
		if existing.UserID == r.UserID && existing.Emoji == r.Emoji {
			continue
		}
		out = append(out, existing)
	}
	return append(out, r)
}

// GroupReactions folds reactions by emoji in first-seen order.
func GroupReactions(reactions []Reaction, viewerID string) []ReactionGroup {
	if len(reactions) == 0 {
		return nil
	}
	index := make(map[string]int, len(reactions))
	var groups []ReactionGroup
	for _, r := range reactions {
		idx, ok := index[r.Emoji]
		if !ok {
			idx = len(groups)
			index[r.Emoji] = idx
			groups = append(groups, ReactionGroup{Emoji: r.Emoji})
		}
		g := &groups[idx]
		g.Count++
		g.Users = append(g.Users, r.Username)
		if viewerID != "" && r.UserID == viewerID {
			g.Mine = true
		}
	}
	return groups
}
