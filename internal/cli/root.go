package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Configuration overrides, see config.Options.
	ConfigFile  string
	Backend     string
	DataDir     string
	PostgresDSN string

	// Credentials checked on mutating commands when auth is required.
	User     string
	Password string

	// OpenBackend overrides backend construction (for testing).
	// If nil, defaults to OpenBackend.
	OpenBackend BackendOpener
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the factlog CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "factlog",
		Short: "factlog - append-only entity/attribute/value store",
		Long: `An append-only log of entity/attribute/value facts with a schema of
attribute cardinalities, a derived view of the facts currently in effect and
a change history per entity.

Data lives in XML documents, SQLite or PostgreSQL, selected by --backend or
the backend key in factlog.yaml.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.StringVar(&opts.ConfigFile, "config", "", "config file (default: ./factlog.yaml)")
	pf.StringVar(&opts.Backend, "backend", "", "storage backend (xml|sqlite|postgres)")
	pf.StringVar(&opts.DataDir, "data-dir", "", "directory for xml and sqlite data")
	pf.StringVar(&opts.PostgresDSN, "dsn", "", "PostgreSQL connection string")
	pf.StringVar(&opts.User, "user", "", "username for mutating commands")
	pf.StringVar(&opts.Password, "password", "", "password for mutating commands")

	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewFactsCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewWhoamiCommand(opts))
	cmd.AddCommand(NewUserCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
