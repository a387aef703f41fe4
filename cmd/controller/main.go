package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/hyskdev/mexc_runner/internal/api"
	"github.com/hyskdev/mexc_runner/internal/config"
	"github.com/hyskdev/mexc_runner/internal/controller"
	"github.com/hyskdev/mexc_runner/internal/orchestrator"
	"github.com/hyskdev/mexc_runner/internal/profile"
	"github.com/hyskdev/mexc_runner/internal/session"
	"github.com/hyskdev/mexc_runner/internal/status"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		if _, writeErr := io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n"); writeErr != nil {
			slog.Debug("logger setup stderr write failed", "error", writeErr)
		}
		os.Exit(1)
	}

	slog.Info("controller config loaded",
		"bind_addr", cfg.BindAddr,
		"profiles_dir", cfg.ProfilesDir,
		"headless", cfg.Headless,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
	)

	store, err := profile.NewStore(cfg.ProfilesDir)
	if err != nil {
		slog.Error("failed to open profile store", "dir", cfg.ProfilesDir, "error", err)
		os.Exit(1)
	}

	reporter := status.NewReporter(cfg.EventBufferSize)
	orch := orchestrator.New(func(req session.Request) orchestrator.Worker {
		return session.NewForProfile(req, cfg, store, reporter)
	}, reporter)

	svc := controller.New(store, orch, reporter)
	srv := &http.Server{Addr: cfg.BindAddr, Handler: api.NewServer(svc)}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("controller listening", "addr", cfg.BindAddr, "docs", "http://"+cfg.BindAddr+"/docs")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("controller server failed", "error", err)
			serverErr <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case <-sigCh:
	case <-serverErr:
		exitCode = 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("controller shutdown failed", "error", err)
	}

	leaked := orch.Shutdown(time.Duration(cfg.ShutdownTimeoutMS) * time.Millisecond)
	if leaked > 0 {
		slog.Warn("shutdown finished with leaked browser handles", "count", leaked)
	}

	os.Exit(exitCode)
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
