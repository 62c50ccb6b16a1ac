package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KumVivek/copilot-instruction-agent/internal/history"
)

var (
	historyDB    string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List and compare recorded scan runs",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the most recent runs",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyDiffCmd = &cobra.Command{
	Use:   "diff <base> <target>",
	Short: "Compare two runs by id or label",
	Long: `Diff shows which finding patterns appeared and which were resolved
between two recorded runs. Runs are referenced by their uuid or by the
run label printed after a scan.`,
	Args: cobra.ExactArgs(2),
	RunE: runHistoryDiff,
}

func init() {
	historyCmd.PersistentFlags().StringVar(&historyDB, "db", "", "history database path (default from config)")
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of runs to show")
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyDiffCmd)
	rootCmd.AddCommand(historyCmd)
}

func openHistory(cmd *cobra.Command) (*history.Store, error) {
	path := strings.TrimSpace(historyDB)
	if path == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return nil, err
		}
		path = cfg.History.Path
	}
	return history.Open(path)
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := store.Recent(historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no runs recorded yet; run `copilot-agent scan` first")
		return nil
	}

	fmt.Printf("%-36s  %-15s  %-19s  %-8s  %8s  %10s  %5s\n",
		"RUN", "LABEL", "STARTED", "LANG", "FINDINGS", "SUPPRESSED", "RISK")
	for _, e := range entries {
		fmt.Printf("%-36s  %-15s  %-19s  %-8s  %8d  %10d  %5.2f\n",
			e.ID,
			e.RunLabel,
			e.StartedAt.Local().Format("2006-01-02 15:04:05"),
			labelOrDash(e.Language),
			e.Findings,
			e.Suppressed,
			e.Overall,
		)
	}
	return nil
}

func runHistoryDiff(cmd *cobra.Command, args []string) error {
	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	diff, err := store.Compare(args[0], args[1])
	if err != nil {
		return err
	}

	fmt.Printf("base:   %s (%s)\n", diff.Base.RunLabel, diff.Base.ID)
	fmt.Printf("target: %s (%s)\n", diff.Target.RunLabel, diff.Target.ID)

	if len(diff.New) == 0 && len(diff.Resolved) == 0 {
		fmt.Println("\nno pattern changes between the runs")
		return nil
	}
	if len(diff.New) > 0 {
		fmt.Printf("\nnew (%d):\n", len(diff.New))
		for _, d := range diff.New {
			fmt.Printf("  + %-12s %-8s %-16s x%d\n", d.PatternID, d.Severity, labelOrDash(d.Category), d.Occurrences)
		}
	}
	if len(diff.Resolved) > 0 {
		fmt.Printf("\nresolved (%d):\n", len(diff.Resolved))
		for _, d := range diff.Resolved {
			fmt.Printf("  - %-12s %-8s %-16s x%d\n", d.PatternID, d.Severity, labelOrDash(d.Category), d.Occurrences)
		}
	}
	return nil
}

func labelOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
