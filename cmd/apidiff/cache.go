package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var cacheClearArtifact string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the snapshot cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached snapshots",
	Args:  cobra.NoArgs,
	RunE:  runCacheList,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cached snapshots",
	Long: `Remove every cached snapshot, or only those of one artifact.

Examples:
  apidiff cache clear
  apidiff cache clear --artifact conformance`,
	Args: cobra.NoArgs,
	RunE: runCacheClear,
}

func init() {
	cacheClearCmd.Flags().StringVar(&cacheClearArtifact, "artifact", "", "Only clear snapshots of this artifact")
	cacheCmd.AddCommand(cacheListCmd, cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheList(cmd *cobra.Command, args []string) error {
	store, err := current.snapshotStore()
	if err != nil {
		return err
	}
	infos, err := store.List(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(out, "No cached snapshots.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ARTIFACT\tVERSION\tBACKEND\tELEMENTS\tSIZE\tCREATED")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			info.Artifact, info.Version, info.Backend, info.Elements,
			formatSize(info.Size), info.CreatedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	store, err := current.snapshotStore()
	if err != nil {
		return err
	}
	n, err := store.Clear(cmd.Context(), cacheClearArtifact)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d snapshots\n", n)
	return nil
}

func formatSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d B", n)
}
