package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/factlog/internal/fact"
	"github.com/roach88/factlog/internal/schemaspec"
)

// SchemaApplyOptions holds flags for schema apply.
type SchemaApplyOptions struct {
	*RootOptions
	Prune  bool // delete attributes not declared
	DryRun bool // print the plan without applying it
}

// SchemaApplyResult is the outcome of schema apply.
type SchemaApplyResult struct {
	Changes []schemaspec.Change `json:"changes"`
	Applied bool                `json:"applied"`
}

// SchemaValidationResult is the outcome of schema validate.
type SchemaValidationResult struct {
	Valid      bool             `json:"valid"`
	Attributes []fact.Attribute `json:"attributes,omitempty"`
	Error      string           `json:"error,omitempty"`
	Line       int              `json:"line,omitempty"`
}

// NewSchemaCommand creates the schema command group.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect and change the attribute schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List attributes in schema order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaList(rootOpts, cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Show one attribute",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaShow(rootOpts, args[0], cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "add <name> <one|many>",
		Short: "Add an attribute",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaMutation(rootOpts, cmd, "add attribute", func(s *session) error {
				card, err := fact.ParseCardinality(args[1])
				if err != nil {
					return err
				}
				return s.svc.AddAttribute(commandContext(cmd), args[0], card)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "update <name> <one|many>",
		Short: "Change an attribute's cardinality",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaMutation(rootOpts, cmd, "update attribute", func(s *session) error {
				card, err := fact.ParseCardinality(args[1])
				if err != nil {
					return err
				}
				return s.svc.UpdateAttribute(commandContext(cmd), args[0], card)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete an attribute and retract its facts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaMutation(rootOpts, cmd, "delete attribute", func(s *session) error {
				return s.svc.DeleteAttribute(commandContext(cmd), args[0])
			})
		},
	})
	cmd.AddCommand(newSchemaApplyCommand(rootOpts))
	cmd.AddCommand(&cobra.Command{
		Use:   "validate <cue-dir>",
		Short: "Check CUE attribute declarations without applying them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaValidate(rootOpts, args[0], cmd)
		},
	})

	return cmd
}

func newSchemaApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchemaApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply <cue-dir>",
		Short: "Apply CUE attribute declarations to the schema",
		Long: `Apply attribute declarations from the .cue files in a directory.

Declarations have the form:

  attribute: {
    name: cardinality:  "one"
    phone: cardinality: "many"
  }

Missing attributes are added and changed cardinalities updated. Attributes
that are not declared are kept unless --prune is given.

Examples:
  factlog schema apply ./schema --dry-run
  factlog schema apply ./schema --prune --user admin --password secret`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaApply(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Prune, "prune", false, "delete attributes that are not declared")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the plan without applying it")

	return cmd
}

func runSchemaList(opts *RootOptions, cmd *cobra.Command) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	schema := s.svc.Schema()
	if s.out.Format == "json" {
		return s.out.Success(schema)
	}
	if len(schema) == 0 {
		fmt.Fprintln(s.out.Writer, "No attributes.")
		return nil
	}
	return writeAttributes(s.out, schema)
}

func runSchemaShow(opts *RootOptions, name string, cmd *cobra.Command) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	attr, err := s.svc.Attribute(name)
	if err != nil {
		return s.out.Fail("show attribute", err)
	}
	if s.out.Format == "json" {
		return s.out.Success(attr)
	}
	return writeAttributes(s.out, []fact.Attribute{attr})
}

// runSchemaMutation authorizes, runs fn and reports the resulting schema.
func runSchemaMutation(opts *RootOptions, cmd *cobra.Command, op string, fn func(*session) error) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.requireAdmin(commandContext(cmd)); err != nil {
		return err
	}
	if err := fn(s); err != nil {
		return s.out.Fail(op, err)
	}

	if s.out.Format == "json" {
		return s.out.Success(s.svc.Schema())
	}
	fmt.Fprintf(s.out.Writer, "✓ %s\n", op)
	return nil
}

func runSchemaApply(opts *SchemaApplyOptions, dir string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)

	loaded, err := schemaspec.LoadDir(dir)
	if err != nil {
		return outputSchemaLoadError(newFormatter(opts.RootOptions, cmd), err)
	}

	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	s.out.VerboseLog("Loaded %d attribute(s) from %d file(s) in %s", len(loaded.Attributes), loaded.FileCount, dir)
	changes := schemaspec.Plan(s.svc.Schema(), loaded.Attributes, opts.Prune)

	if !opts.DryRun && len(changes) > 0 {
		if err := s.requireAdmin(ctx); err != nil {
			return err
		}
		for _, c := range changes {
			var err error
			switch c.Kind {
			case schemaspec.ChangeAdd:
				err = s.svc.AddAttribute(ctx, c.Attribute.Name, c.Attribute.Cardinality)
			case schemaspec.ChangeUpdate:
				err = s.svc.UpdateAttribute(ctx, c.Attribute.Name, c.Attribute.Cardinality)
			case schemaspec.ChangeDelete:
				err = s.svc.DeleteAttribute(ctx, c.Attribute.Name)
			}
			if err != nil {
				return s.out.Fail(fmt.Sprintf("%s attribute %s", c.Kind, c.Attribute.Name), err)
			}
			s.logger.Info("schema change applied", "kind", c.Kind, "attribute", c.Attribute.Name)
		}
	}

	result := SchemaApplyResult{Changes: changes, Applied: !opts.DryRun && len(changes) > 0}
	if s.out.Format == "json" {
		return s.out.Success(result)
	}

	if len(changes) == 0 {
		fmt.Fprintln(s.out.Writer, "Schema is up to date.")
		return nil
	}
	for _, c := range changes {
		fmt.Fprintf(s.out.Writer, "%-6s %s %s\n", c.Kind, c.Attribute.Name, c.Attribute.Cardinality)
	}
	if opts.DryRun {
		fmt.Fprintf(s.out.Writer, "%d change(s) planned (dry run)\n", len(changes))
	} else {
		fmt.Fprintf(s.out.Writer, "✓ %d change(s) applied\n", len(changes))
	}
	return nil
}

func runSchemaValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loaded, err := schemaspec.LoadDir(dir)
	if err != nil {
		return outputSchemaLoadError(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(SchemaValidationResult{Valid: true, Attributes: loaded.Attributes})
	}
	fmt.Fprintf(formatter.Writer, "✓ %d attribute(s) valid\n", len(loaded.Attributes))
	return nil
}

// outputSchemaLoadError reports a declaration error, with its line when the
// CUE position is known. Declaration errors exit with ExitFailure.
func outputSchemaLoadError(formatter *OutputFormatter, err error) error {
	result := SchemaValidationResult{Valid: false, Error: err.Error()}
	var cerr *schemaspec.CompileError
	if errors.As(err, &cerr) && cerr.Pos.IsValid() {
		result.Line = cerr.Pos.Line()
	}

	if formatter.Format == "json" {
		_ = formatter.Error(errorCode(err), err.Error(), result)
	} else {
		fmt.Fprintln(formatter.Writer, "✗ Schema declarations invalid")
		if result.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", result.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s\n", err)
	}
	return WrapExitError(ExitFailure, "invalid schema declarations", err)
}

func writeAttributes(out *OutputFormatter, attrs []fact.Attribute) error {
	w := tabwriter.NewWriter(out.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCARDINALITY")
	for _, a := range attrs {
		fmt.Fprintf(w, "%s\t%s\n", a.Name, a.Cardinality)
	}
	return w.Flush()
}
