// internal/tui/app.go
//
// The ChatHub terminal client. It follows bubbletea's Elm architecture:
// key presses become messages, Update turns them into store calls, and
// View renders whatever the session and chat stores currently hold.
// Slow store operations run as commands and report back with a result
// message; the chat store's change feed triggers a re-render.

package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/chathub/internal/chat"
	"github.com/kingrea/chathub/internal/config"
	"github.com/kingrea/chathub/internal/domain"
	"github.com/kingrea/chathub/internal/logbook"
	"github.com/kingrea/chathub/internal/session"
)

type overlay int

const (
	overlayNone overlay = iota
	overlayEmojiInsert
	overlayEmojiReact
	overlayAttach
	overlaySearch
	overlayCreateRoom
	overlayEdit
)

type authMode int

const (
	modeLogin authMode = iota
	modeSignup
)

const (
	fieldUsername = iota
	fieldEmail
	fieldPassword
)

const logPanelLines = 6

type authResultMsg struct{ err error }

type opResultMsg struct {
	action string
	err    error
	// draft is composer text to put back when the operation fails.
	draft string
}

type roomCreatedMsg struct {
	room *domain.Room
	err  error
}

type chatChangedMsg struct{}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithNow replaces the clock used for relative timestamps.
func WithNow(now func() time.Time) AppOption {
	return func(a *App) {
		if now != nil {
			a.now = now
		}
	}
}

// WithContext sets the context passed to store operations.
func WithContext(ctx context.Context) AppOption {
	return func(a *App) {
		if ctx != nil {
			a.ctx = ctx
		}
	}
}

// App is the bubbletea model for both the auth and chat screens.
type App struct {
	config  *config.Config
	session *session.Store
	chat    *chat.Store
	logbook *logbook.Logbook
	ctx     context.Context
	now     func() time.Time

	changes     <-chan struct{}
	unsubscribe func()

	// auth screen
	mode       authMode
	authInputs []textinput.Model
	authFocus  int

	// chat screen
	composer   textinput.Model
	prompt     textinput.Model
	overlay    overlay
	picker     picker
	targetID   string
	results    []domain.Message
	statusMsg  string
	busy       bool
	busyLabel  string
	spinner    spinner.Model
	lastLogged string

	width  int
	height int
}

// NewApp builds the model. The caller owns the stores and is expected to
// have bound the chat store to session changes.
func NewApp(cfg *config.Config, sess *session.Store, chatStore *chat.Store, lb *logbook.Logbook, opts ...AppOption) *App {
	username := textinput.New()
	username.Placeholder = "Username"
	username.CharLimit = 64
	email := textinput.New()
	email.Placeholder = "Email"
	email.CharLimit = 254
	password := textinput.New()
	password.Placeholder = "Password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	composer := textinput.New()
	composer.Placeholder = "Type a message..."
	composer.CharLimit = maxMessageLength(cfg)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF"))

	a := &App{
		config:     cfg,
		session:    sess,
		chat:       chatStore,
		logbook:    lb,
		ctx:        context.Background(),
		now:        time.Now,
		authInputs: []textinput.Model{username, email, password},
		authFocus:  fieldEmail,
		composer:   composer,
		prompt:     textinput.New(),
		spinner:    sp,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	a.changes, a.unsubscribe = chatStore.Subscribe()
	a.focusAuth(fieldEmail)
	a.composer.Focus()
	return a
}

func maxMessageLength(cfg *config.Config) int {
	if cfg == nil || cfg.Project.Chat.MaxMessageLength <= 0 {
		return config.DefaultMaxMessageLength
	}
	return cfg.Project.Chat.MaxMessageLength
}

func maxUploadSize(cfg *config.Config) int64 {
	if cfg == nil || cfg.Project.Uploads.MaxSize <= 0 {
		return config.DefaultMaxUploadSize
	}
	return cfg.Project.Uploads.MaxSize
}

// Close detaches the app from the chat store's change feed.
func (a *App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
}

func (a *App) signedIn() (domain.Identity, bool) {
	return a.session.Current()
}

func (a *App) logInfo(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Info(format, args...)
}

func (a *App) logWarn(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Warn(format, args...)
}

// setStatus shows msg in the footer and logs it once.
func (a *App) setStatus(msg string) {
	a.statusMsg = msg
	if msg != "" && msg != a.lastLogged {
		a.lastLogged = msg
		a.logInfo("ui: %s", msg)
	}
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return chatChangedMsg{}
	}
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForChange(a.changes))
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	wasBusy := a.busy
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.composer.Width = max(10, msg.Width-8)
		return a, nil
	case chatChangedMsg:
		return a, waitForChange(a.changes)
	case spinner.TickMsg:
		if !a.busy {
			return a, nil
		}
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	case tea.KeyMsg:
		cmd = a.handleKey(msg)
	default:
		cmd = a.handleResult(msg)
	}
	if a.busy && !wasBusy {
		cmd = tea.Batch(cmd, a.spinner.Tick)
	}
	return a, cmd
}

func (a *App) handleResult(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case authResultMsg:
		a.busy = false
		if msg.err == nil {
			a.setStatus("")
			for i := range a.authInputs {
				a.authInputs[i].Reset()
			}
			if id, ok := a.signedIn(); ok {
				a.logInfo("ui: signed in as %s", id.Username)
			}
		}
		return nil
	case opResultMsg:
		a.busy = false
		a.busyLabel = ""
		if msg.err != nil {
			a.setStatus(describeFailure(msg.action, msg.err))
			a.logWarn("ui: %s failed: %v", msg.action, msg.err)
			if msg.draft != "" && a.composer.Value() == "" {
				a.composer.SetValue(msg.draft)
				a.composer.CursorEnd()
			}
		} else if msg.action != "send" {
			a.setStatus(msg.action + " done")
		}
		return nil
	case roomCreatedMsg:
		a.busy = false
		a.busyLabel = ""
		if msg.err != nil {
			a.setStatus(describeFailure("create room", msg.err))
			return nil
		}
		if msg.room != nil {
			a.chat.SelectRoom(msg.room.ID)
			a.setStatus(fmt.Sprintf("Created #%s", msg.room.Name))
		}
		return nil
	}
	return a.forwardToInputs(msg)
}

func describeFailure(action string, err error) string {
	if errors.Is(err, chat.ErrSessionEnded) {
		return fmt.Sprintf("%s dropped: signed out", action)
	}
	if errors.Is(err, chat.ErrUploadFailed) {
		return "Upload failed"
	}
	return fmt.Sprintf("%s failed: %v", action, err)
}

func (a *App) forwardToInputs(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if _, ok := a.signedIn(); !ok {
		a.authInputs[a.authFocus], cmd = a.authInputs[a.authFocus].Update(msg)
		return cmd
	}
	if a.overlay != overlayNone {
		a.prompt, cmd = a.prompt.Update(msg)
		return cmd
	}
	a.composer, cmd = a.composer.Update(msg)
	return cmd
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return tea.Quit
	}
	if _, ok := a.signedIn(); !ok {
		return a.handleAuthKey(msg)
	}
	if a.overlay != overlayNone {
		return a.handleOverlayKey(msg)
	}
	return a.handleChatKey(msg)
}

// View renders the current state to a string.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 120
	}
	var body string
	if id, ok := a.signedIn(); ok {
		body = a.renderChat(id, width)
	} else {
		body = a.renderAuth(width)
	}
	sections := []string{body}
	if logPanel := a.renderLogPanel(width); logPanel != "" {
		sections = append(sections, logPanel)
	}
	footer := a.statusMsg
	if a.busy {
		footer = a.spinner.View() + " " + a.busyLabel
	}
	sections = append(sections, lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Render(footer))
	return strings.Join(sections, "\n")
}

func (a *App) renderLogPanel(width int) string {
	if a.logbook == nil {
		return ""
	}
	lines, total := a.logbook.Tail(logPanelLines)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(fmt.Sprintf("LOG · %s (%d)", fileName, total))
	for i, line := range lines {
		if utf8.RuneCountInString(line) > width-6 {
			lines[i] = truncate(line, max(10, width-9))
		}
	}
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(lines, "\n"))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Width(max(20, width-2)).
		Render(fmt.Sprintf("%s\n%s", head, body))
}
