package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/factlog/internal/history"
)

// HistoryEntry is the output form of a change record.
type HistoryEntry struct {
	ID        string `json:"id,omitempty"`
	Action    string `json:"action"`
	Entity    string `json:"entity"`
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
	Timestamp string `json:"timestamp"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <entity>",
		Short: "Show the recorded fact insertions and deletions for an entity",
		Long: `Show the change history of an entity, oldest first.

Only fact insertions and deletions are recorded; schema changes are not.
Timestamps use the YY/MM/DD HH:MM:SS form in local time.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(rootOpts, args[0], cmd)
		},
	}
}

func runHistory(opts *RootOptions, entity string, cmd *cobra.Command) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	records, err := s.svc.History(commandContext(cmd), entity)
	if err != nil {
		return s.out.Fail("history", err)
	}

	entries := make([]HistoryEntry, len(records))
	for i, rec := range records {
		entries[i] = newHistoryEntry(rec)
	}

	if s.out.Format == "json" {
		return s.out.Success(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintf(s.out.Writer, "No history for %s.\n", entity)
		return nil
	}

	w := tabwriter.NewWriter(s.out.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tATTRIBUTE\tVALUE")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Timestamp, e.Action, e.Attribute, e.Value)
	}
	return w.Flush()
}

func newHistoryEntry(rec history.ChangeRecord) HistoryEntry {
	return HistoryEntry{
		ID:        rec.ID,
		Action:    string(rec.Action),
		Entity:    rec.Entity,
		Attribute: rec.Attribute,
		Value:     rec.Value,
		Timestamp: history.FormatTimestamp(rec.Timestamp.Local()),
	}
}
