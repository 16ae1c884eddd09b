package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"github.com/tgienger/pulse/internal/config"
	"github.com/tgienger/pulse/internal/db"
	"github.com/tgienger/pulse/internal/prefs"
	"github.com/tgienger/pulse/internal/remote"
	"github.com/tgienger/pulse/internal/store"
	"github.com/tgienger/pulse/internal/ui"
)

// Version information set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Printf("pulse %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.ClientFromEnv()
	if err != nil {
		return err
	}

	database, err := db.New(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer database.Close()

	logger, closeLog, err := newLogger(cfg, database.Dir())
	if err != nil {
		return err
	}
	defer closeLog()

	auth := remote.NewAuth(cfg.URL, cfg.AnonKey, database, logger)
	if err := auth.Restore(); err != nil {
		logger.WithError(err).Warn("session.restore")
	}
	client := remote.NewClient(cfg.URL, cfg.AnonKey, auth, logger)

	var local prefs.Store = prefs.NewKVStore(database)
	if cfg.RedisURL != "" {
		rs, err := prefs.NewRedisStoreFromURL(context.Background(), cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rs.Close()
		local = rs
	}
	syncer := prefs.NewSyncer(local, client, cfg.SettingsDebounce, logger)
	syncer.Load(context.Background())

	app := ui.NewApp(ui.Deps{
		Store:           store.New(client, logger),
		Auth:            auth,
		Prefs:           syncer,
		Logger:          logger,
		RefreshInterval: cfg.RefreshInterval,
	})
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running application: %w", err)
	}
	return nil
}

// newLogger writes JSON lines to a file, since the terminal belongs to the UI
func newLogger(cfg config.Client, dataDir string) (*log.Logger, func(), error) {
	path := cfg.LogFile
	if path == "" {
		path = filepath.Join(dataDir, "pulse.log")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	logger := log.New()
	logger.SetOutput(f)
	logger.SetFormatter(&log.JSONFormatter{})
	logger.SetLevel(log.InfoLevel)
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}
	return logger, func() { f.Close() }, nil
}
