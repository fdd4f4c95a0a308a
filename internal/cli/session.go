package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/roach88/tasktree/internal/config"
	"github.com/roach88/tasktree/internal/engine"
	"github.com/roach88/tasktree/internal/history"
	"github.com/roach88/tasktree/internal/logging"
	"github.com/roach88/tasktree/internal/store"
)

// session is an open engine plus everything a command needs to report.
type session struct {
	ctx    context.Context
	engine *engine.Engine
	out    *OutputFormatter
	logger zerolog.Logger
	close  func()
}

// loadConfig resolves configuration: file, then TASKTREE_* variables, then
// flags.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	getenv := o.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	path := o.ConfigPath
	if path == "" {
		path = getenv(config.EnvConfig)
	}
	if path == "" {
		path = config.DefaultPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return nil, err
	}

	if o.DBPath != "" {
		cfg.Database.Path = o.DBPath
	}
	if o.Actor != "" {
		cfg.Actor = o.Actor
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.Verbose {
		cfg.Log.Level = zerolog.LevelDebugValue
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// formatter builds the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// open loads configuration, sets up logging, and opens the store and engine.
// Failures here are command errors (exit code 2).
func (o *RootOptions) open(cmd *cobra.Command) (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	logger, closeLog, err := logging.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to set up logging", err)
	}
	logging.SetGlobal(logger)
	log := logging.Component("cli")

	if dir := filepath.Dir(cfg.Database.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			closeLog()
			return nil, WrapExitError(ExitCommandError, "failed to create database directory", err)
		}
	}
	st, err := store.Open(cfg.Database.Path,
		store.WithBusyTimeout(cfg.Database.BusyTimeout),
		store.WithMaxOpenConns(cfg.Database.MaxOpenConns),
	)
	if err != nil {
		closeLog()
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	log.Debug().Str("db", cfg.Database.Path).Msg("database opened")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Actor != "" {
		ctx = history.WithActor(ctx, cfg.Actor)
	}

	return &session{
		ctx:    ctx,
		engine: engine.New(st),
		out:    o.formatter(cmd),
		logger: log,
		close: func() {
			if err := st.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close database")
			}
			closeLog()
		},
	}, nil
}

// withSession opens a session, runs fn, and closes the session. An error
// returned by fn is an operation failure and is reported through the
// formatter.
func (o *RootOptions) withSession(cmd *cobra.Command, fn func(s *session) error) error {
	s, err := o.open(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if err := fn(s); err != nil {
		if exitErr, ok := err.(*ExitError); ok {
			return exitErr
		}
		if !engine.IsValidationError(err) {
			s.logger.Warn().Err(err).Str("cmd", cmd.CommandPath()).Msg("operation failed")
		}
		return s.out.Fail(err)
	}
	return nil
}
