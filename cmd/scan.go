package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/KumVivek/copilot-instruction-agent/internal/app"
	"github.com/KumVivek/copilot-instruction-agent/internal/config"
	"github.com/KumVivek/copilot-instruction-agent/internal/logging"
	"github.com/KumVivek/copilot-instruction-agent/internal/model"
	"github.com/KumVivek/copilot-instruction-agent/internal/progress"
	"github.com/KumVivek/copilot-instruction-agent/internal/report"
	"github.com/KumVivek/copilot-instruction-agent/internal/tui"
)

var (
	scanOut          string
	scanWorkers      int
	scanFailOn       float64
	scanSkipLLM      bool
	scanNoHistory    bool
	scanSARIF        bool
	scanMaxRules     int
	scanCatalogDir   string
	scanSuppressions string
	scanEnableTUI    bool
	scanDisableTUI   bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan a repository and generate Copilot instructions",
	Long: `Scan detects the project stack, runs the language analyzers and the
pattern catalog against the tree, scores the risk per category, and writes
the instruction file plus report artifacts into the repository.

Set OPENAI_API_KEY (directly or via .env) to have the instruction file
written by the LLM; without a key the deterministic template is used.`,
	Example: `  copilot-agent scan
  copilot-agent scan ./src/shop --fail-on 7 --no-tui
  copilot-agent scan --skip-llm --sarif`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	def := config.Default()
	f := scanCmd.Flags()
	f.StringVarP(&scanOut, "out", "o", def.Output.Dir, "artifact directory, relative paths resolve inside the scanned repo")
	f.IntVar(&scanWorkers, "workers", def.Workers, "concurrent scan workers")
	f.Float64Var(&scanFailOn, "fail-on", def.Risk.FailOn, "exit nonzero when any category scores at or above this (0 disables)")
	f.BoolVar(&scanSkipLLM, "skip-llm", def.LLM.Skip, "skip the LLM call and render the instructions template")
	f.BoolVar(&scanSARIF, "sarif", def.Output.SARIF, "write a SARIF report artifact")
	f.IntVar(&scanMaxRules, "max-rules", def.Rules.MaxRules, "cap the synthesized rule list (0 means no cap)")
	f.StringVar(&scanCatalogDir, "catalog-dir", def.Catalog.Dir, "directory of user catalog files")
	f.StringVar(&scanSuppressions, "suppressions", def.Scan.Suppressions, "suppression file, relative to the scanned repo")
	f.BoolVar(&scanNoHistory, "no-history", false, "do not record this run in history")
	f.BoolVar(&scanEnableTUI, "tui", false, "force the interactive progress UI")
	f.BoolVar(&scanDisableTUI, "no-tui", false, "disable the interactive progress UI")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanEnableTUI && scanDisableTUI {
		return errors.New("cannot set both --tui and --no-tui")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("out") {
		cfg.Output.Dir = scanOut
	}
	if flags.Changed("workers") {
		cfg.Workers = scanWorkers
	}
	if flags.Changed("fail-on") {
		cfg.Risk.FailOn = scanFailOn
	}
	if flags.Changed("skip-llm") {
		cfg.LLM.Skip = scanSkipLLM
	}
	if flags.Changed("sarif") {
		cfg.Output.SARIF = scanSARIF
	}
	if flags.Changed("max-rules") {
		cfg.Rules.MaxRules = scanMaxRules
	}
	if flags.Changed("catalog-dir") {
		cfg.Catalog.Dir = scanCatalogDir
	}
	if flags.Changed("suppressions") {
		cfg.Scan.Suppressions = scanSuppressions
	}
	if scanNoHistory {
		cfg.History.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	root := "."
	if len(args) == 1 {
		root = args[0]
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	runOpts := app.Options{
		Root:   root,
		Config: cfg,
		APIKey: os.Getenv("OPENAI_API_KEY"),
		Logger: logger,
	}

	if useTUI(scanEnableTUI, scanDisableTUI) {
		events := make(chan progress.Event, 128)
		runOpts.Sink = progress.NewChannelSink(events)

		type runResult struct {
			report model.ScanReport
			paths  app.Artifacts
			err    error
		}
		done := make(chan runResult, 1)
		go func() {
			defer close(events)
			rep, paths, runErr := app.Run(cmd.Context(), runOpts)
			done <- runResult{report: rep, paths: paths, err: runErr}
		}()

		if tuiErr := tui.Run(tui.Options{Events: events}); tuiErr != nil {
			return tuiErr
		}
		res := <-done
		if res.err != nil {
			return res.err
		}
		return finishScan(res.report, res.paths, cfg)
	}

	runOpts.Sink = progress.NewPlainSink(os.Stderr)
	rep, paths, err := app.Run(cmd.Context(), runOpts)
	if err != nil {
		return err
	}
	return finishScan(rep, paths, cfg)
}

// finishScan prints the console summary and evaluates the risk gate. The
// artifacts are already on disk when a gate failure exits nonzero.
func finishScan(rep model.ScanReport, paths app.Artifacts, cfg config.Config) error {
	fmt.Print(report.Console(rep, cfg.Verbose))
	printArtifacts(paths)

	if cs, hit := app.Gate(rep.CategoryScores, cfg.Risk.FailOn); hit {
		return fmt.Errorf("risk gate: %s scored %.2f, fail-on is %.2f", cs.Category, cs.Rounded(), cfg.Risk.FailOn)
	}
	return nil
}

func printArtifacts(paths app.Artifacts) {
	fmt.Printf("instructions: %s\n", paths.Instructions)
	fmt.Printf("report:       %s\n", paths.ReportMarkdown)
	if paths.ReportJSON != "" {
		fmt.Printf("report json:  %s\n", paths.ReportJSON)
	}
	if paths.SARIF != "" {
		fmt.Printf("sarif:        %s\n", paths.SARIF)
	}
	if paths.Badge != "" {
		fmt.Printf("badge:        %s\n", paths.Badge)
	}
	if paths.HistoryRunID != "" {
		fmt.Printf("history run:  %s\n", paths.HistoryRunID)
	}
}

// useTUI defaults to the terminal check; explicit flags win, disable over
// force.
func useTUI(force, disable bool) bool {
	use := isatty.IsTerminal(os.Stdout.Fd()) &&
		isatty.IsTerminal(os.Stderr.Fd()) &&
		isatty.IsTerminal(os.Stdin.Fd())
	if force {
		use = true
	}
	if disable {
		use = false
	}
	return use
}
