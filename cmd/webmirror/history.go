package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nao1215/webmirror/internal/config"
	"github.com/nao1215/webmirror/internal/database"
	"github.com/nao1215/webmirror/internal/report"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [session-id]",
		Short: "Show past mirror runs",
		Long: `History lists the mirror runs recorded in the local database.

Without arguments it prints a table of past runs. With a session ID it
prints the full report of that run.

Examples:
  # List all recorded runs
  webmirror history

  # List runs of one site
  webmirror history --url https://example.com/

  # Show the full report of run 3
  webmirror history 3`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().StringP("url", "u", "",
		"Only list runs of this start URL")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	db, err := database.Open(config.DataDir(), database.Options{CreateIfNotExists: true, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	jsonOut, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	if len(args) == 1 {
		return showSession(cmd, db, args[0], jsonOut)
	}

	startURL, err := cmd.Flags().GetString("url")
	if err != nil {
		return err
	}
	return listSessions(cmd, db, startURL)
}

// showSession prints the full report of one recorded run.
func showSession(cmd *cobra.Command, db *database.HistoryDB, rawID string, jsonOut bool) error {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid session ID %q: %w", rawID, err)
	}

	rec, err := db.GetReportByID(cmd.Context(), id)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("no session with ID %d", id)
	}

	if jsonOut {
		writer := report.NewJSONWriter(cmd.OutOrStdout(), report.WithPrettyPrint())
		_, err := writer.Write(rec)
		return err
	}

	writer := report.NewSimpleWriter(cmd.OutOrStdout(), report.WithVerbose(true))
	_, err = writer.Write(rec)
	return err
}

// listSessions prints a table of recorded runs.
func listSessions(cmd *cobra.Command, db *database.HistoryDB, startURL string) error {
	sessions, err := db.ListSessions(cmd.Context(), startURL)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No mirror runs recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTART URL\tDEPTH\tPAGES\tRESOURCES\tARCHIVE\tWHEN")
	for _, s := range sessions {
		status := ""
		if s.TimedOut {
			status = " (timed out)"
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%s\t%s%s\n",
			s.ID,
			s.StartURL,
			s.Depth,
			s.PageCount,
			s.ResourceCount,
			s.ArchiveName,
			s.StartedAt.Format("2006-01-02 15:04"),
			status,
		)
	}
	return w.Flush()
}
