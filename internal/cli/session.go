package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/factlog/internal/config"
	"github.com/roach88/factlog/internal/fact"
	"github.com/roach88/factlog/internal/service"
	"github.com/roach88/factlog/internal/users"
)

// session is the per-command state: configuration, logger, the opened
// backend and the service on top of it.
type session struct {
	opts    *RootOptions
	cfg     *config.Config
	logger  *slog.Logger
	backend *Backend
	svc     *service.Service
	out     *OutputFormatter
}

// newFormatter builds the formatter for cmd's writers.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// loadConfig resolves the configuration from file, environment and flags.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.Options{
		File:        o.ConfigFile,
		Backend:     o.Backend,
		DataDir:     o.DataDir,
		PostgresDSN: o.PostgresDSN,
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

// newLogger writes text logs to cmd's stderr at the configured level, or at
// debug level with --verbose.
func (o *RootOptions) newLogger(cfg *config.Config, cmd *cobra.Command) *slog.Logger {
	level := cfg.SlogLevel()
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// openBackend opens the configured backend with the injected opener, if any.
func (o *RootOptions) openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	open := o.OpenBackend
	if open == nil {
		open = OpenBackend
	}
	b, err := open(ctx, cfg, logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open backend", err)
	}
	return b, nil
}

// openSession loads config, opens the backend and restores the service.
// Callers must Close the session.
func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	ctx := commandContext(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := opts.newLogger(cfg, cmd)

	backend, err := opts.openBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	svc, err := service.Open(ctx, backend.Persister, backend.History, service.WithLogger(logger))
	if err != nil {
		_ = backend.Close()
		return nil, WrapExitError(ExitCommandError, "failed to load facts", err)
	}

	return &session{
		opts:    opts,
		cfg:     cfg,
		logger:  logger,
		backend: backend,
		svc:     svc,
		out:     newFormatter(opts, cmd),
	}, nil
}

// Close releases the backend.
func (s *session) Close() {
	closeBackend(s.backend, s.logger)
}

// requireAdmin enforces the admin role when auth.required is set.
func (s *session) requireAdmin(ctx context.Context) error {
	if !s.cfg.Auth.Required {
		return nil
	}
	if s.backend.Users == nil {
		return s.out.Fail("authorization", fact.NewForbiddenError(s.opts.User, users.RoleAdmin))
	}
	user, err := users.RequireAdmin(ctx, s.backend.Users, s.opts.User, s.opts.Password)
	if err != nil {
		return s.out.Fail("authorization", err)
	}
	s.logger.Debug("admin authorized", "user", user.Username)
	return nil
}

// commandContext returns cmd's context or a background context.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
