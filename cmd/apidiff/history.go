package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"apidiff/internal/storage"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List generated reports",
	Long: `List the reports written by apidiff report, newest first.

Examples:
  apidiff history
  apidiff history -n 5`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "lines", "n", 20, "Number of reports to show (0 for all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	db, err := current.open()
	if err != nil {
		return err
	}
	runs, err := storage.NewHistory(db).List(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No reports generated yet.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tOLD\tNEW\tROWS\tFORMAT\tOUTPUT")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.CreatedAt.Local().Format(time.DateTime), r.OldVersion, r.NewVersion, r.Rows, r.Format, r.Output)
	}
	return w.Flush()
}
