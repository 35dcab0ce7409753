// cmd/chathub/main.go
//
// This is the entry point for the ChatHub terminal client.
//
// Flow:
// 1. Create .chathub/ in the project directory and load its config
// 2. Open the logbook and the configured storage backend
// 3. Build the session and chat stores and bind them together
// 4. Restore any persisted session and launch the TUI

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/chathub/internal/chat"
	"github.com/kingrea/chathub/internal/config"
	"github.com/kingrea/chathub/internal/domain"
	"github.com/kingrea/chathub/internal/logbook"
	"github.com/kingrea/chathub/internal/seed"
	"github.com/kingrea/chathub/internal/session"
	"github.com/kingrea/chathub/internal/sim"
	"github.com/kingrea/chathub/internal/storage"
	"github.com/kingrea/chathub/internal/tui"
)

func main() {
	projectDir := flag.String("project", "", "path to the project directory (defaults to cwd)")
	driver := flag.String("storage", "", "switch the storage driver and save it to config.yaml (file, memory, sqlite, redis, postgres)")
	ephemeral := flag.Bool("ephemeral", false, "keep everything in memory for this run only")
	noSim := flag.Bool("no-sim", false, "disable simulated messages from other users")
	flag.Parse()

	cfg, err := loadConfig(*projectDir)
	if err != nil {
		die("%v", err)
	}
	if strings.TrimSpace(*driver) != "" {
		if err := cfg.SetStorageDriver(strings.TrimSpace(*driver)); err != nil {
			die("set storage driver: %v", err)
		}
	}
	if *ephemeral {
		cfg.Project.Storage.Driver = config.DriverMemory
	}

	ctx := context.Background()
	if flag.Arg(0) == "reset" {
		if err := resetState(ctx, cfg); err != nil {
			die("reset: %v", err)
		}
		fmt.Printf("Cleared chat state (%s driver)\n", cfg.Project.Storage.Driver)
		return
	}

	lb, err := logbook.New(cfg.LogPath())
	if err != nil {
		die("open log: %v", err)
	}
	defer lb.Close()

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		die("open storage: %v", err)
	}
	defer store.Close()
	lb.Info("ChatHub started · storage: %s", cfg.Project.Storage.Driver)

	random := sim.SystemRandom{}
	src := seed.New(random)
	sess := session.New(store, src, session.WithLogger(lb))
	chatStore := chat.New(store, src,
		chat.WithLogger(lb),
		chat.WithRandom(random),
		chat.WithSimulation(chat.Simulation{
			Enabled:     cfg.SimulationEnabled() && !*noSim,
			Interval:    cfg.Project.Simulation.Interval,
			Probability: cfg.Project.Simulation.Probability,
		}),
		chat.WithUploadBaseURL(cfg.Project.Uploads.BaseURL),
		chat.WithUploadFailureRate(cfg.Project.Uploads.FailureRate),
	)
	defer chatStore.Close()

	sess.OnChange(func(id *domain.Identity) {
		if err := chatStore.SetIdentity(ctx, id); err != nil {
			lb.Warn("chat: follow session: %v", err)
		}
	})
	if err := sess.Restore(ctx); err != nil {
		die("restore session: %v", err)
	}

	app := tui.NewApp(cfg, sess, chatStore, lb, tui.WithContext(ctx))
	defer app.Close()
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		die("run TUI: %v", err)
	}
	lb.Info("ChatHub closed")
}

func loadConfig(projectDir string) (*config.Config, error) {
	if projectDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determine working directory: %w", err)
		}
		projectDir = cwd
	}
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("resolve project dir: %w", err)
	}
	if err := config.InitChatHubDir(abs); err != nil {
		return nil, fmt.Errorf("init .chathub: %w", err)
	}
	return config.NewConfig(abs)
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "chathub: "+format+"\n", args...)
	os.Exit(1)
}
