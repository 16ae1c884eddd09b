package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/tgienger/pulse/internal/config"
	"github.com/tgienger/pulse/internal/db"
	"github.com/tgienger/pulse/internal/devserver"
)

// Version information set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Printf("pulsed %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	logger := log.New()
	logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfg, err := config.ServerFromEnv()
	if err != nil {
		logger.WithError(err).Fatal("config")
	}
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	database, err := db.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		logger.WithError(err).WithField("driver", cfg.Driver).Fatal("database")
	}
	defer database.Close()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	devserver.New(database, cfg.JWTSecret, cfg.TokenTTL, logger).Register(e)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.WithFields(log.Fields{"addr": cfg.Addr, "driver": cfg.Driver, "version": version}).Info("listening")
		if err := e.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown")
	}
}
