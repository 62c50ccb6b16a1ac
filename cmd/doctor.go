package cmd

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KumVivek/copilot-instruction-agent/internal/doctor"
)

var doctorStrict bool

var doctorCmd = &cobra.Command{
	Use:   "doctor [path]",
	Short: "Check the environment and configuration for problems",
	Long: `Doctor probes everything a scan depends on: the configuration, the
scan root, catalog compilation, the suppression file, the output
directory, the history database and LLM credentials.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}

		rep := doctor.BuildReport(doctor.Options{Root: root, ConfigPath: cfgFile})
		printDoctorReport(rep)

		if rep.Failed(doctorStrict) {
			return errors.New("doctor found problems")
		}
		return nil
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorStrict, "strict", false, "treat warnings as failures")
	rootCmd.AddCommand(doctorCmd)
}

func printDoctorReport(rep doctor.Report) {
	for _, c := range rep.Checks {
		fmt.Printf("%s %-18s %s%s\n", statusGlyph(c.Status), c.ID, c.Message, metadataSuffix(c.Metadata))
	}
	fmt.Printf("\n%d passed, %d warnings, %d failed\n",
		rep.Summary.Pass, rep.Summary.Warning, rep.Summary.Fail)
}

func statusGlyph(s doctor.Status) string {
	switch s {
	case doctor.StatusPass:
		return "✅"
	case doctor.StatusWarn:
		return "⚠️"
	default:
		return "❌"
	}
}

func metadataSuffix(md map[string]string) string {
	if len(md) == 0 {
		return ""
	}
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+md[k])
	}
	return " (" + strings.Join(parts, " ") + ")"
}
