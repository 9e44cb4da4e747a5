package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/factlog/internal/config"
	"github.com/roach88/factlog/internal/fact"
	"github.com/roach88/factlog/internal/service"
	"github.com/roach88/factlog/internal/users"
)

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	*RootOptions
	To    string // target backend
	ToDir string // target data directory (xml, sqlite)
	ToDSN string // target connection string (postgres)
}

// MigrateResult is the outcome of migrate.
type MigrateResult struct {
	From  string               `json:"from"`
	To    string               `json:"to"`
	Stats service.MigrateStats `json:"stats"`
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy schema, facts, history and users to another backend",
		Long: `Copy everything in the configured backend into another one.

The target's schema and facts are replaced and its users upserted. The
target history must be empty.

History is copied record by record. If copying fails partway, the target
keeps the records copied so far and its history must be cleared by hand
before migrating into it again.

Examples:
  factlog migrate --to sqlite --to-dir ./db
  factlog --backend sqlite --data-dir ./db migrate --to postgres --to-dsn postgres://localhost/factlog
  factlog --backend postgres --dsn postgres://localhost/factlog migrate --to xml --to-dir ./dump`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.To, "to", "", "target backend (xml|sqlite|postgres)")
	cmd.Flags().StringVar(&opts.ToDir, "to-dir", "", "target data directory")
	cmd.Flags().StringVar(&opts.ToDSN, "to-dsn", "", "target PostgreSQL connection string")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func runMigrate(opts *MigrateOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	src, err := opts.loadConfig()
	if err != nil {
		return err
	}
	dst := targetConfig(src, opts)
	if err := dst.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid migration target", err)
	}
	if sameLocation(src, dst) {
		return formatter.Fail("migrate", fact.NewInvalidArgumentError("source and target are the same backend"))
	}

	logger := opts.newLogger(src, cmd)

	from, err := opts.openBackend(ctx, src, logger)
	if err != nil {
		return err
	}
	defer closeBackend(from, logger)

	if src.Auth.Required {
		if from.Users == nil {
			return formatter.Fail("authorization", fact.NewForbiddenError(opts.User, users.RoleAdmin))
		}
		if _, err := users.RequireAdmin(ctx, from.Users, opts.User, opts.Password); err != nil {
			return formatter.Fail("authorization", err)
		}
	}

	to, err := opts.openBackend(ctx, dst, logger)
	if err != nil {
		return err
	}
	defer closeBackend(to, logger)

	logger.Info("migrating", "from", src.Backend, "to", dst.Backend)
	stats, err := service.Migrate(ctx, from.Backend, to.Backend)
	if err != nil {
		if stats.Changes > 0 {
			logger.Error("migration stopped with a partial target history", "changes_copied", stats.Changes)
		}
		return formatter.Fail("migrate", err)
	}
	logger.Info("migration complete",
		"attributes", stats.Attributes, "facts", stats.Facts,
		"changes", stats.Changes, "users", stats.Users)

	result := MigrateResult{From: src.Backend, To: dst.Backend, Stats: stats}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ migrated %s → %s: %d attribute(s), %d fact(s), %d change(s), %d user(s)\n",
		result.From, result.To, stats.Attributes, stats.Facts, stats.Changes, stats.Users)
	return nil
}

// targetConfig derives the target configuration from the source one.
// Unset target locations fall back to the source's.
func targetConfig(src *config.Config, opts *MigrateOptions) *config.Config {
	dst := *src
	dst.Backend = opts.To
	if opts.ToDir != "" {
		dst.DataDir = opts.ToDir
	}
	if opts.ToDSN != "" {
		dst.Postgres.DSN = opts.ToDSN
	}
	return &dst
}

// sameLocation reports whether two configurations address the same data.
// xml and sqlite may share a directory since their files differ.
func sameLocation(a, b *config.Config) bool {
	if a.Backend != b.Backend {
		return false
	}
	switch a.Backend {
	case config.BackendPostgres:
		return a.Postgres.DSN == b.Postgres.DSN
	default:
		return filepath.Clean(a.DataDir) == filepath.Clean(b.DataDir)
	}
}

func closeBackend(b *Backend, logger *slog.Logger) {
	if err := b.Close(); err != nil {
		logger.Error("error closing backend", "backend", b.Name, "error", err)
	}
}
