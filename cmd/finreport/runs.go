package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent extraction runs",
	Long:  `List the most recent runs recorded in DATABASE_URL. Only summaries are stored.`,
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.Flags().IntP("limit", "n", 10, "Number of runs to show")
	runsCmd.Flags().Bool("json", false, "Output as JSON")
}

func runRuns(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")

	runs, database, err := openRuns()
	if err != nil {
		return err
	}
	if runs == nil {
		return errors.New("run history is disabled; set DATABASE_URL")
	}
	defer database.Close()

	list, err := runs.ListRecent(cmd.Context(), limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTRATEGY\tFILES\tOK\tNO CONTENT\tFAILED\tSTARTED\tDURATION")
	for _, r := range list {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
			r.ID, r.Strategy, r.TotalFiles, r.Succeeded, r.NoContent, r.Failed,
			r.StartedAt.Local().Format(time.DateTime),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
		)
	}
	return w.Flush()
}
