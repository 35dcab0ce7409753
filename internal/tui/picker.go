package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/chathub/internal/emoji"
)

const pickerColumns = 10

// picker browses emoji.Categories, or fuzzy search results while a query
// is typed.
type picker struct {
	category int
	index    int
	query    string
	results  []emoji.Emoji
}

func (p *picker) items() []emoji.Emoji {
	if p.query != "" {
		return p.results
	}
	return emoji.Categories[p.category].Emojis
}

func (p *picker) filter(query string) {
	query = strings.TrimSpace(query)
	if query == p.query {
		return
	}
	p.query = query
	p.index = 0
	if query != "" {
		p.results = emoji.Search(query)
	}
}

func (p *picker) move(delta int) {
	n := len(p.items())
	if n == 0 {
		p.index = 0
		return
	}
	p.index = (p.index + delta + n) % n
}

func (p *picker) nextCategory(delta int) {
	n := len(emoji.Categories)
	p.category = (p.category + delta + n) % n
	p.index = 0
}

func (p *picker) selected() (emoji.Emoji, bool) {
	items := p.items()
	if p.index < 0 || p.index >= len(items) {
		return emoji.Emoji{}, false
	}
	return items[p.index], true
}

func (a *App) openPicker(kind overlay, targetID string) {
	a.openPrompt(kind, "Search emoji", "")
	a.targetID = targetID
	a.picker = picker{category: a.picker.category}
}

// handlePickerKey reports whether key was consumed by the grid.
func (a *App) handlePickerKey(key string) (tea.Cmd, bool) {
	switch key {
	case "left":
		a.picker.move(-1)
	case "right":
		a.picker.move(1)
	case "up":
		a.picker.move(-pickerColumns)
	case "down":
		a.picker.move(pickerColumns)
	case "tab":
		a.picker.nextCategory(1)
	case "shift+tab":
		a.picker.nextCategory(-1)
	case "enter":
		return a.pickEmoji(), true
	default:
		return nil, false
	}
	return nil, true
}

func (a *App) pickEmoji() tea.Cmd {
	choice, ok := a.picker.selected()
	kind, target := a.overlay, a.targetID
	a.closeOverlay()
	if !ok {
		return nil
	}
	if kind == overlayEmojiInsert {
		a.composer.SetValue(a.composer.Value() + choice.Char)
		a.composer.CursorEnd()
		return nil
	}
	ctx, store := a.ctx, a.chat
	return func() tea.Msg {
		return opResultMsg{action: "react", err: store.AddReaction(ctx, target, choice.Char)}
	}
}

func (a *App) renderPicker() string {
	title := "Insert emoji"
	if a.overlay == overlayEmojiReact {
		title = "React to the last message"
	}
	var tabs []string
	for i, c := range emoji.Categories {
		if i == a.picker.category && a.picker.query == "" {
			tabs = append(tabs, selectedStyle.Render("["+c.Name+"]"))
		} else {
			tabs = append(tabs, mutedStyle.Render(c.Name))
		}
	}
	items := a.picker.items()
	var rows []string
	var row []string
	for i, e := range items {
		cell := " " + e.Char + " "
		if i == a.picker.index {
			cell = lipgloss.NewStyle().Reverse(true).Render(cell)
		}
		row = append(row, cell)
		if len(row) == pickerColumns {
			rows = append(rows, strings.Join(row, ""))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, strings.Join(row, ""))
	}
	if len(items) == 0 {
		rows = append(rows, mutedStyle.Render("No emoji match"))
	}
	name := ""
	if e, ok := a.picker.selected(); ok {
		name = fmt.Sprintf("%s %s", e.Char, e.Name)
	}
	return strings.Join([]string{
		selectedStyle.Render(title),
		strings.Join(tabs, "  "),
		a.prompt.View(),
		strings.Join(rows, "\n"),
		mutedStyle.Render(name),
		hintStyle.Render("Arrows → move    Tab → category    Enter → pick    Esc → close"),
	}, "\n")
}
