package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/chathub/internal/attach"
	"github.com/kingrea/chathub/internal/config"
	"github.com/kingrea/chathub/internal/domain"
)

func formatLimit(cfg *config.Config) string {
	return attach.FormatSize(maxUploadSize(cfg))
}

// beginUpload validates the file at path, then uploads it and announces it
// in the current room as one command.
func (a *App) beginUpload(path string) tea.Cmd {
	file, err := attach.Open(path)
	if err != nil {
		a.setStatus(fmt.Sprintf("Cannot attach: %v", err))
		return nil
	}
	if err := attach.Validate(file, maxUploadSize(a.config)); err != nil {
		a.setStatus(err.Error())
		return nil
	}
	a.busy = true
	a.busyLabel = fmt.Sprintf("Uploading %s (%s)...", file.Name, attach.FormatSize(file.Size))
	ctx, store := a.ctx, a.chat
	return func() tea.Msg {
		url, err := store.UploadFile(ctx, file)
		if err != nil {
			return opResultMsg{action: "upload", err: err}
		}
		_, err = store.SendMessage(ctx, attach.Announcement(file), attach.KindFor(file), &domain.Attachment{
			URL:  url,
			Name: file.Name,
			Size: file.Size,
			Type: file.Type,
		})
		return opResultMsg{action: "upload", err: err}
	}
}
