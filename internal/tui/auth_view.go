package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

func (a *App) visibleAuthFields() []int {
	if a.mode == modeSignup {
		return []int{fieldUsername, fieldEmail, fieldPassword}
	}
	return []int{fieldEmail, fieldPassword}
}

func (a *App) focusAuth(field int) {
	for i := range a.authInputs {
		if i == field {
			a.authInputs[i].Focus()
		} else {
			a.authInputs[i].Blur()
		}
	}
	a.authFocus = field
}

func (a *App) moveAuthFocus(delta int) {
	fields := a.visibleAuthFields()
	pos := 0
	for i, f := range fields {
		if f == a.authFocus {
			pos = i
		}
	}
	pos = (pos + delta + len(fields)) % len(fields)
	a.focusAuth(fields[pos])
}

func (a *App) toggleAuthMode() {
	if a.mode == modeLogin {
		a.mode = modeSignup
		a.focusAuth(fieldUsername)
	} else {
		a.mode = modeLogin
		a.focusAuth(fieldEmail)
	}
	a.session.ClearErr()
}

func (a *App) handleAuthKey(msg tea.KeyMsg) tea.Cmd {
	if a.busy {
		return nil
	}
	switch msg.String() {
	case "tab":
		a.toggleAuthMode()
		return nil
	case "up", "shift+tab":
		a.moveAuthFocus(-1)
		return nil
	case "down":
		a.moveAuthFocus(1)
		return nil
	case "enter":
		fields := a.visibleAuthFields()
		if a.authFocus != fields[len(fields)-1] {
			a.moveAuthFocus(1)
			return nil
		}
		return a.submitAuth()
	}
	var cmd tea.Cmd
	a.authInputs[a.authFocus], cmd = a.authInputs[a.authFocus].Update(msg)
	return cmd
}

func (a *App) submitAuth() tea.Cmd {
	username := strings.TrimSpace(a.authInputs[fieldUsername].Value())
	email := strings.TrimSpace(a.authInputs[fieldEmail].Value())
	password := a.authInputs[fieldPassword].Value()
	a.busy = true
	ctx, sess := a.ctx, a.session
	if a.mode == modeSignup {
		a.busyLabel = "Creating account..."
		return func() tea.Msg {
			return authResultMsg{err: sess.Signup(ctx, username, email, password)}
		}
	}
	a.busyLabel = "Signing in..."
	return func() tea.Msg {
		return authResultMsg{err: sess.Login(ctx, email, password)}
	}
}

func (a *App) renderAuth(width int) string {
	heading := "Sign in to ChatHub"
	toggle := "Tab → create an account"
	if a.mode == modeSignup {
		heading = "Create your ChatHub account"
		toggle = "Tab → sign in instead"
	}
	lines := []string{titleStyle.Render("◆ CHATHUB"), "", heading, ""}
	for _, f := range a.visibleAuthFields() {
		lines = append(lines, a.authInputs[f].View())
	}
	if err := a.session.Err(); err != nil {
		lines = append(lines, "", errorStyle.Render(err.Error()))
	}
	lines = append(lines, "", hintStyle.Render("Enter → next / submit    ↑↓ → move    "+toggle+"    Ctrl+C → quit"))
	return boxStyle.Width(max(40, min(width-2, 72))).Render(strings.Join(lines, "\n"))
}
