package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"buggfix/internal/config"
	"buggfix/internal/playground/judge"
	"buggfix/internal/playground/localstore"
	"buggfix/internal/playground/remote"
	"buggfix/internal/playground/workspace"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// app bundles the wired client pieces every command needs.
type app struct {
	local  *localstore.Store
	ws     *workspace.Store
	client *remote.Client
	judge  *judge.Client
}

func defaultStateDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "buggfix")
}

func newApp(serverURL, stateDir string) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	local, err := localstore.Open(stateDir)
	if err != nil {
		return nil, err
	}

	sess := &session{local: local}
	client := remote.NewClient(serverURL, sess)

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	ws := workspace.New(local, client, sess, log)

	runner := judge.NewClient(cfg.Judge.BaseURL, cfg.Judge.APIKey,
		cfg.Judge.PollInterval, cfg.Judge.MaxPolls)

	return &app{local: local, ws: ws, client: client, judge: runner}, nil
}

func (a *app) Close() {
	a.local.Close()
}

func main() {
	if err := newCLIApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
