package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/entrhq/autoanswer/pkg/cache"
	"github.com/entrhq/autoanswer/pkg/config"
	"github.com/entrhq/autoanswer/pkg/logging"
	"github.com/entrhq/autoanswer/pkg/types"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("75"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(24)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

// app bundles what every subcommand needs.
type app struct {
	cfg *config.Config
	log *logging.Logger
}

// setup loads the config and opens the session logger.
func setup(cmd *cobra.Command, component string) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Logging.EffectiveLevel()
	if flagLevel, _ := cmd.Flags().GetString("log-level"); flagLevel != "" {
		level = flagLevel
	}
	if err := logging.SetLevel(level); err != nil {
		return nil, err
	}

	// A stderr fallback logger is still usable, so the error is only reported.
	log, err := logging.NewLogger(component)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), warnStyle.Render("file logging unavailable: "+err.Error()))
	}
	return &app{cfg: cfg, log: log}, nil
}

// openStore opens the configured backend and loads the cache.
func (a *app) openStore(ctx context.Context, observer types.Observer) (*cache.Store, error) {
	c := a.cfg.Cache
	dir, err := config.ExpandHome(c.Dir)
	if err != nil {
		return nil, err
	}

	backend, err := cache.OpenBackend(ctx, cache.BackendConfig{
		Backend:     c.Backend,
		Dir:         dir,
		RedisAddr:   c.RedisAddr,
		RedisPrefix: c.RedisPrefix,
	})
	if err != nil {
		return nil, err
	}

	store, err := cache.New(ctx, backend, cache.Options{
		TTL:                 c.TTL,
		Capacity:            c.Capacity,
		FuzzyThreshold:      a.cfg.Answering.FuzzyThreshold,
		ConfidenceIncrement: a.cfg.Answering.ConfidenceIncrement,
		ConfidenceDecrement: a.cfg.Answering.ConfidenceDecrement,
		BackupPath:          filepath.Join(dir, cache.BackupFile),
		BackupInterval:      c.BackupInterval,
	}, a.log, observer)
	if err != nil {
		// The store is usable with an empty mirror.
		if cache.IsStorageError(err) {
			a.log.Warnf("starting with an empty cache: %v", err)
			return store, nil
		}
		return nil, err
	}
	return store, nil
}

func (a *app) close() {
	if a.log != nil {
		a.log.Close()
	}
}

// row renders one aligned label/value line.
func row(label string, value any) string {
	return labelStyle.Render(label) + fmt.Sprint(value)
}
