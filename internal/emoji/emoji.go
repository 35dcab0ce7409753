// Package emoji holds the picker's emoji palette and name search.
package emoji

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// Emoji is a single pickable glyph.
type Emoji struct {
	Char string
	Name string
}

// Category is one tab of the picker.
type Category struct {
	Name   string
	Emojis []Emoji
}

// Categories is the picker palette in tab order.
var Categories = []Category{
	{Name: "Recent", Emojis: []Emoji{
		{"😊", "smiling face"}, {"👍", "thumbs up"}, {"❤️", "red heart"}, {"😂", "tears of joy"},
		{"😢", "crying face"}, {"😮", "open mouth"}, {"😡", "angry face"}, {"👏", "clapping hands"},
	}},
	{Name: "Smileys", Emojis: []Emoji{
		{"😀", "grinning face"}, {"😃", "grinning big eyes"}, {"😄", "grinning smiling eyes"}, {"😁", "beaming face"},
		{"😆", "grinning squinting"}, {"😅", "sweat smile"}, {"😂", "tears of joy"}, {"🤣", "rolling on the floor laughing"},
		{"😊", "smiling face"}, {"😇", "halo"}, {"🙂", "slightly smiling"}, {"🙃", "upside down"},
		{"😉", "winking face"}, {"😌", "relieved face"}, {"😍", "heart eyes"}, {"🥰", "smiling with hearts"},
		{"😘", "blowing a kiss"}, {"😗", "kissing face"}, {"😙", "kissing smiling eyes"}, {"😚", "kissing closed eyes"},
	}},
	{Name: "Gestures", Emojis: []Emoji{
		{"👍", "thumbs up"}, {"👎", "thumbs down"}, {"👌", "ok hand"}, {"✌️", "victory hand"},
		{"🤞", "crossed fingers"}, {"🤟", "love you gesture"}, {"🤘", "sign of the horns"}, {"🤙", "call me hand"},
		{"👈", "point left"}, {"👉", "point right"}, {"👆", "point up"}, {"👇", "point down"},
		{"☝️", "index pointing up"}, {"👋", "waving hand"}, {"🤚", "raised back of hand"}, {"🖐️", "hand with fingers splayed"},
		{"✋", "raised hand"}, {"🖖", "vulcan salute"}, {"👏", "clapping hands"}, {"🙌", "raising hands"},
	}},
	{Name: "Objects", Emojis: []Emoji{
		{"💻", "laptop"}, {"📱", "mobile phone"}, {"⌚", "watch"}, {"📷", "camera"},
		{"📹", "video camera"}, {"🎵", "musical note"}, {"🎮", "video game"}, {"🔥", "fire"},
		{"💯", "hundred points"}, {"✨", "sparkles"}, {"⭐", "star"}, {"🌟", "glowing star"},
		{"💥", "collision"}, {"💢", "anger symbol"}, {"💫", "dizzy"}, {"💤", "zzz"},
		{"🕳️", "hole"}, {"👁️", "eye"}, {"💬", "speech balloon"}, {"💭", "thought balloon"},
	}},
}

// All returns every distinct emoji across categories in first-seen order.
func All() []Emoji {
	seen := map[string]bool{}
	var out []Emoji
	for _, c := range Categories {
		for _, e := range c.Emojis {
			if seen[e.Char] {
				continue
			}
			seen[e.Char] = true
			out = append(out, e)
		}
	}
	return out
}

type names []Emoji

func (n names) String(i int) string { return n[i].Name }
func (n names) Len() int            { return len(n) }

// Search fuzzy-matches query against emoji names, best match first. A
// blank query returns nil.
func Search(query string) []Emoji {
	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" {
		return nil
	}
	pool := names(All())
	matches := fuzzy.FindFrom(query, pool)
	out := make([]Emoji, 0, len(matches))
	for _, m := range matches {
		out = append(out, pool[m.Index])
	}
	return out
}
