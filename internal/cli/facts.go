package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/factlog/internal/fact"
)

// FactsQueryOptions holds flags for facts current and facts log.
type FactsQueryOptions struct {
	*RootOptions
	Entity    string
	Attribute string
}

// NewFactsCommand creates the facts command group.
func NewFactsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "facts",
		Short: "Query and change facts",
	}

	current := &FactsQueryOptions{RootOptions: rootOpts}
	currentCmd := &cobra.Command{
		Use:   "current",
		Short: "Show the facts currently in effect",
		Long: `Show the facts currently in effect.

Attributes are listed in schema order. A single-valued attribute shows the
latest assertion per entity, a multi-valued one every assertion; any
triple with a deletion in the log is hidden.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFactsCurrent(current, cmd)
		},
	}
	currentCmd.Flags().StringVar(&current.Entity, "entity", "", "only this entity")
	currentCmd.Flags().StringVar(&current.Attribute, "attribute", "", "only this attribute")
	cmd.AddCommand(currentCmd)

	logOpts := &FactsQueryOptions{RootOptions: rootOpts}
	logCmd := &cobra.Command{
		Use:   "log",
		Short: "Show the raw fact log, deletions included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFactsLog(logOpts, cmd)
		},
	}
	logCmd.Flags().StringVar(&logOpts.Entity, "entity", "", "only this entity")
	cmd.AddCommand(logCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "add <entity> <attribute> <value>",
		Short: "Assert a fact",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFactMutation(rootOpts, cmd, "add fact", func(s *session) (fact.Fact, error) {
				return s.svc.AddFact(commandContext(cmd), args[0], args[1], args[2])
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <entity> <attribute> <value>",
		Short: "Retract a fact by appending a deletion",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFactMutation(rootOpts, cmd, "delete fact", func(s *session) (fact.Fact, error) {
				return s.svc.DeleteFact(commandContext(cmd), args[0], args[1], args[2])
			})
		},
	})

	return cmd
}

func runFactsCurrent(opts *FactsQueryOptions, cmd *cobra.Command) error {
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if opts.Attribute != "" {
		if _, err := s.svc.Attribute(opts.Attribute); err != nil {
			return s.out.Fail("current facts", err)
		}
	}

	triples := s.svc.Filter(fact.Filter{Entity: opts.Entity, Attribute: opts.Attribute})
	if s.out.Format == "json" {
		return s.out.Success(triples)
	}
	if len(triples) == 0 {
		fmt.Fprintln(s.out.Writer, "No current facts.")
		return nil
	}

	w := tabwriter.NewWriter(s.out.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ENTITY\tATTRIBUTE\tVALUE")
	for _, t := range triples {
		fmt.Fprintf(w, "%s\t%s\t%s\n", t.Entity, t.Attribute, t.Value)
	}
	return w.Flush()
}

func runFactsLog(opts *FactsQueryOptions, cmd *cobra.Command) error {
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	facts := s.svc.FactLog(opts.Entity)
	if s.out.Format == "json" {
		return s.out.Success(facts)
	}
	if len(facts) == 0 {
		fmt.Fprintln(s.out.Writer, "Log is empty.")
		return nil
	}

	w := tabwriter.NewWriter(s.out.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tENTITY\tATTRIBUTE\tVALUE\tCURRENT")
	for _, f := range facts {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", f.Seq, f.Entity, f.Attribute, f.Value, yesNo(f.Live))
	}
	return w.Flush()
}

// runFactMutation authorizes, runs fn and reports the appended log row.
func runFactMutation(opts *RootOptions, cmd *cobra.Command, op string, fn func(*session) (fact.Fact, error)) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.requireAdmin(commandContext(cmd)); err != nil {
		return err
	}
	f, err := fn(s)
	if err != nil {
		return s.out.Fail(op, err)
	}

	if s.out.Format == "json" {
		return s.out.Success(f)
	}
	fmt.Fprintf(s.out.Writer, "✓ %s #%d (%s, %s, %s)\n", op, f.Seq, f.Entity, f.Attribute, f.Value)
	return nil
}

// yesNo renders a live flag the way the XML format stores it.
func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
