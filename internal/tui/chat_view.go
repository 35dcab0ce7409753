package tui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/chathub/internal/chat"
	"github.com/kingrea/chathub/internal/domain"
)

var (
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	authorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F7B801"))
	selfStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4CAF50"))
	dividerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

func (a *App) handleChatKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+n":
		a.cycleRoom(1)
		return nil
	case "ctrl+p":
		a.cycleRoom(-1)
		return nil
	case "enter":
		return a.send()
	case "ctrl+e":
		a.openPicker(overlayEmojiInsert, "")
		return nil
	case "ctrl+r":
		room, ok := a.chat.CurrentRoom()
		if !ok {
			return nil
		}
		last, ok := a.chat.LastMessage(room.ID)
		if !ok {
			a.setStatus("No message to react to")
			return nil
		}
		a.openPicker(overlayEmojiReact, last.ID)
		return nil
	case "ctrl+o":
		a.openPrompt(overlayAttach, "Path to file", "")
		return nil
	case "ctrl+f":
		a.results = nil
		a.openPrompt(overlaySearch, "Search messages", "")
		return nil
	case "ctrl+k":
		a.openPrompt(overlayCreateRoom, "Room name", "")
		return nil
	case "ctrl+t":
		mine, ok := a.ownLastMessage()
		if !ok {
			a.setStatus("Nothing of yours to edit in this room")
			return nil
		}
		a.targetID = mine.ID
		a.openPrompt(overlayEdit, "Edit message", mine.Content)
		return nil
	case "ctrl+l":
		if err := a.session.Logout(a.ctx); err != nil {
			a.logWarn("ui: logout: %v", err)
		}
		a.composer.Reset()
		a.setStatus("Signed out")
		return nil
	}
	var cmd tea.Cmd
	a.composer, cmd = a.composer.Update(msg)
	return cmd
}

func (a *App) cycleRoom(delta int) {
	st := a.chat.Snapshot()
	if len(st.Rooms) == 0 {
		return
	}
	pos := 0
	for i, r := range st.Rooms {
		if r.ID == st.CurrentRoomID {
			pos = i
		}
	}
	pos = (pos + delta + len(st.Rooms)) % len(st.Rooms)
	a.chat.SelectRoom(st.Rooms[pos].ID)
}

func (a *App) ownLastMessage() (domain.Message, bool) {
	id, ok := a.signedIn()
	room, hasRoom := a.chat.CurrentRoom()
	if !ok || !hasRoom {
		return domain.Message{}, false
	}
	msgs := a.chat.RoomMessages(room.ID)
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].UserID == id.ID && msgs[i].Kind == domain.KindText {
			return msgs[i], true
		}
	}
	return domain.Message{}, false
}

func (a *App) send() tea.Cmd {
	content := a.composer.Value()
	if strings.TrimSpace(content) == "" {
		return nil
	}
	if limit := maxMessageLength(a.config); utf8.RuneCountInString(content) > limit {
		a.setStatus(fmt.Sprintf("Message is longer than %d characters", limit))
		return nil
	}
	a.composer.Reset()
	ctx, store := a.ctx, a.chat
	return func() tea.Msg {
		_, err := store.SendMessage(ctx, content, domain.KindText, nil)
		return opResultMsg{action: "send", err: err, draft: content}
	}
}

func (a *App) openPrompt(kind overlay, placeholder, value string) {
	a.overlay = kind
	a.prompt.Reset()
	a.prompt.Placeholder = placeholder
	a.prompt.CharLimit = maxMessageLength(a.config)
	a.prompt.SetValue(value)
	a.prompt.CursorEnd()
	a.prompt.Focus()
	a.composer.Blur()
}

func (a *App) closeOverlay() {
	a.overlay = overlayNone
	a.targetID = ""
	a.results = nil
	a.prompt.Blur()
	a.prompt.Reset()
	a.composer.Focus()
}

func (a *App) handleOverlayKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()
	if key == "esc" {
		a.closeOverlay()
		return nil
	}
	switch a.overlay {
	case overlayEmojiInsert, overlayEmojiReact:
		if cmd, handled := a.handlePickerKey(key); handled {
			return cmd
		}
	default:
		if key == "enter" {
			return a.submitPrompt()
		}
	}
	var cmd tea.Cmd
	a.prompt, cmd = a.prompt.Update(msg)
	switch a.overlay {
	case overlaySearch:
		a.results = a.chat.SearchMessages(a.prompt.Value())
	case overlayEmojiInsert, overlayEmojiReact:
		a.picker.filter(a.prompt.Value())
	}
	return cmd
}

func (a *App) submitPrompt() tea.Cmd {
	value := strings.TrimSpace(a.prompt.Value())
	kind, target := a.overlay, a.targetID
	ctx, store := a.ctx, a.chat
	switch kind {
	case overlayAttach:
		a.closeOverlay()
		if value == "" {
			return nil
		}
		return a.beginUpload(value)
	case overlaySearch:
		results := a.chat.SearchMessages(value)
		a.closeOverlay()
		if len(results) == 0 {
			a.setStatus("No messages found")
			return nil
		}
		a.chat.SelectRoom(results[0].RoomID)
		a.setStatus(fmt.Sprintf("%d match(es); jumped to the first", len(results)))
		return nil
	case overlayCreateRoom:
		a.closeOverlay()
		if value == "" {
			a.setStatus("Room name is required")
			return nil
		}
		a.busy = true
		a.busyLabel = "Creating room..."
		return func() tea.Msg {
			room, err := store.CreateRoom(ctx, value, "")
			return roomCreatedMsg{room: room, err: err}
		}
	case overlayEdit:
		a.closeOverlay()
		if value == "" {
			return nil
		}
		return func() tea.Msg {
			return opResultMsg{action: "edit", err: store.EditMessage(ctx, target, value)}
		}
	}
	a.closeOverlay()
	return nil
}

func (a *App) renderChat(id domain.Identity, width int) string {
	st := a.chat.Snapshot()
	room, hasRoom := st.CurrentRoom()

	header := titleStyle.Render("◆ CHATHUB")
	if hasRoom {
		header += mutedStyle.Render(fmt.Sprintf("  #%s · %s", room.Name, room.Description))
	}
	if live, ok := a.chat.DeliveryRoom(); ok {
		header += mutedStyle.Render(fmt.Sprintf("  ● live in %s", live))
	}
	header += mutedStyle.Render("  · " + id.Username)

	sideWidth := max(24, width/5)
	feedWidth := max(30, width-2*sideWidth-6)
	columns := lipgloss.JoinHorizontal(lipgloss.Top,
		boxStyle.Width(sideWidth).Render(a.renderRooms(st, sideWidth-2)),
		boxStyle.Width(feedWidth).Render(a.renderFeed(st, id, feedWidth-2)),
		boxStyle.Width(sideWidth).Render(a.renderRoster(sideWidth-2)),
	)

	sections := []string{header, columns}
	if a.overlay != overlayNone {
		sections = append(sections, boxStyle.Width(max(30, width-2)).Render(a.renderOverlay(id)))
	} else {
		counter := mutedStyle.Render(fmt.Sprintf("%d/%d", utf8.RuneCountInString(a.composer.Value()), maxMessageLength(a.config)))
		sections = append(sections, boxStyle.Width(max(30, width-2)).Render(a.composer.View()+"  "+counter))
	}
	sections = append(sections, hintStyle.Render(
		"Enter send · ^N/^P room · ^E emoji · ^R react · ^O attach · ^F search · ^K new room · ^T edit · ^L logout · ^C quit"))
	return strings.Join(sections, "\n")
}

func (a *App) renderRooms(st chat.State, width int) string {
	now := a.now()
	lines := []string{selectedStyle.Render(fmt.Sprintf("Rooms (%d)", len(st.Rooms)))}
	for _, r := range st.Rooms {
		marker := "#"
		if r.Kind == domain.RoomPrivate {
			marker = "🔒"
		}
		name := fmt.Sprintf("%s %s", marker, r.Name)
		if r.ID == st.CurrentRoomID {
			name = selectedStyle.Render("▸ " + name)
		} else {
			name = "  " + name
		}
		lines = append(lines, name)
		if last, ok := a.chat.LastMessage(r.ID); ok {
			preview := truncate(roomPreview(last), max(8, width-10))
			lines = append(lines, mutedStyle.Render(fmt.Sprintf("   %s · %s", preview, shortTime(now, last.Timestamp))))
		} else {
			lines = append(lines, mutedStyle.Render("   No messages yet"))
		}
	}
	return strings.Join(lines, "\n")
}

func (a *App) feedCapacity() int {
	if a.height <= 0 {
		return 12
	}
	return max(3, (a.height-18)/3)
}

func (a *App) renderFeed(st chat.State, id domain.Identity, width int) string {
	if st.Loading {
		return mutedStyle.Render("Loading messages...")
	}
	if st.CurrentRoomID == "" {
		return mutedStyle.Render("Select a room to start chatting")
	}
	var msgs []domain.Message
	for _, m := range st.Messages {
		if m.RoomID == st.CurrentRoomID {
			msgs = append(msgs, m)
		}
	}
	if len(msgs) == 0 {
		return mutedStyle.Render("No messages yet. Say hello!")
	}
	if limit := a.feedCapacity(); len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	now := a.now()
	var lines []string
	lastDay := ""
	for _, m := range msgs {
		if day := dateLabel(now, m.Timestamp); day != lastDay {
			lastDay = day
			lines = append(lines, dividerStyle.Render("── "+day+" ──"))
		}
		author := authorStyle.Render(m.Username)
		if m.UserID == id.ID {
			author = selfStyle.Render(m.Username)
		}
		head := fmt.Sprintf("%s %s", author, mutedStyle.Render(m.Timestamp.Format("15:04")))
		if m.Edited {
			head += mutedStyle.Render(" (edited)")
		}
		lines = append(lines, head)
		lines = append(lines, lipgloss.NewStyle().Width(max(10, width)).Render(m.Content))
		if m.HasAttachment() {
			icon := "📎"
			if m.Kind == domain.KindImage {
				icon = "📷"
			}
			lines = append(lines, mutedStyle.Render(fmt.Sprintf("%s %s · %s", icon, m.FileName, m.FileURL)))
		}
		if reactions := reactionLine(m.Reactions, id.ID); reactions != "" {
			lines = append(lines, reactions)
		}
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderRoster(width int) string {
	now := a.now()
	users := a.chat.Roster()
	lines := []string{selectedStyle.Render(fmt.Sprintf("People (%d)", len(users)))}
	for _, status := range []domain.Status{domain.StatusOnline, domain.StatusAway, domain.StatusOffline} {
		var group []string
		for _, u := range users {
			if u.Status != status {
				continue
			}
			line := fmt.Sprintf("%s %s", statusDot(u.Status), truncate(u.Username, max(8, width-4)))
			if status != domain.StatusOnline {
				line += mutedStyle.Render(" · " + lastSeen(now, u.LastSeen))
			}
			group = append(group, line)
		}
		if len(group) == 0 {
			continue
		}
		lines = append(lines, "", mutedStyle.Render(fmt.Sprintf("%s (%d)", statusHeading(status), len(group))))
		lines = append(lines, group...)
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderOverlay(id domain.Identity) string {
	switch a.overlay {
	case overlayEmojiInsert, overlayEmojiReact:
		return a.renderPicker()
	case overlaySearch:
		lines := []string{selectedStyle.Render("Search"), a.prompt.View()}
		rooms := map[string]string{}
		for _, r := range a.chat.Snapshot().Rooms {
			rooms[r.ID] = r.Name
		}
		for i, m := range a.results {
			if i == 8 {
				lines = append(lines, mutedStyle.Render(fmt.Sprintf("... %d more", len(a.results)-i)))
				break
			}
			lines = append(lines, fmt.Sprintf("#%s · %s: %s", rooms[m.RoomID], m.Username, truncate(m.Content, 60)))
		}
		lines = append(lines, hintStyle.Render("Enter → jump to first match    Esc → close"))
		return strings.Join(lines, "\n")
	case overlayAttach:
		return strings.Join([]string{selectedStyle.Render("Attach a file"), a.prompt.View(),
			hintStyle.Render(fmt.Sprintf("Images, PDF, text and Word files up to %s    Esc → cancel", formatLimit(a.config)))}, "\n")
	case overlayCreateRoom:
		return strings.Join([]string{selectedStyle.Render("Create a room"), a.prompt.View(),
			hintStyle.Render("Enter → create    Esc → cancel")}, "\n")
	case overlayEdit:
		return strings.Join([]string{selectedStyle.Render("Edit your message as " + id.Username), a.prompt.View(),
			hintStyle.Render("Enter → save    Esc → cancel")}, "\n")
	}
	return ""
}
