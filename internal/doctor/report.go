package doctor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KumVivek/copilot-instruction-agent/internal/catalog"
	"github.com/KumVivek/copilot-instruction-agent/internal/config"
	"github.com/KumVivek/copilot-instruction-agent/internal/history"
	"github.com/KumVivek/copilot-instruction-agent/internal/suppress"
)

type Options struct {
	Root       string
	ConfigPath string
}

// BuildReport probes everything a scan needs and reports pass/warn/fail per
// check. Doctor never mutates the scanned tree beyond a scratch file in the
// output directory.
func BuildReport(opts Options) Report {
	report := Report{Checks: make([]CheckResult, 0, 8)}
	add := func(res CheckResult) {
		report.Checks = append(report.Checks, res)
		switch res.Status {
		case StatusFail:
			report.Summary.Fail++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %s", res.ID, res.Message))
		case StatusWarn:
			report.Summary.Warning++
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %s", res.ID, res.Message))
		default:
			report.Summary.Pass++
		}
	}

	cfg, cfgErr := config.Load(opts.ConfigPath)
	if cfgErr != nil {
		add(CheckResult{
			ID:      "config.load",
			Status:  StatusFail,
			Message: fmt.Sprintf("failed to load config: %v", cfgErr),
		})
		cfg = config.Default()
	} else {
		add(CheckResult{
			ID:      "config.load",
			Status:  StatusPass,
			Message: "configuration loaded",
			Metadata: map[string]string{
				"workers":  fmt.Sprintf("%d", cfg.Workers),
				"language": valueOr(cfg.Language, "auto"),
			},
		})
	}

	root, rootRes := rootCheck(opts.Root)
	add(rootRes)

	add(catalogCheck(cfg))
	add(suppressionsCheck(root, cfg.Scan.Suppressions))
	add(outputWritableCheck(root, cfg.Output.Dir))
	add(historyCheck(root, cfg))
	add(llmCheck(cfg))

	return report
}

func rootCheck(rawRoot string) (string, CheckResult) {
	raw := strings.TrimSpace(rawRoot)
	if raw == "" {
		raw = "."
	}
	root, err := filepath.Abs(raw)
	if err != nil {
		return "", CheckResult{ID: "scan.root", Status: StatusFail, Message: fmt.Sprintf("resolve root: %v", err)}
	}
	info, err := os.Stat(root)
	if err != nil {
		return root, CheckResult{ID: "scan.root", Status: StatusFail, Message: fmt.Sprintf("stat root: %v", err)}
	}
	if !info.IsDir() {
		return root, CheckResult{ID: "scan.root", Status: StatusFail, Message: fmt.Sprintf("root is not a directory: %s", root)}
	}
	if _, err := os.ReadDir(root); err != nil {
		return root, CheckResult{ID: "scan.root", Status: StatusFail, Message: fmt.Sprintf("root is not readable: %v", err)}
	}
	return root, CheckResult{
		ID:       "scan.root",
		Status:   StatusPass,
		Message:  "scan root is a readable directory",
		Metadata: map[string]string{"root": root},
	}
}

// catalogCheck loads and compiles the catalogs a scan would use. A language
// pinned in config narrows the probe to that language.
func catalogCheck(cfg config.Config) CheckResult {
	languages := []string{"dotnet", "node", "python", "java", "go", "rust"}
	if lang := strings.TrimSpace(cfg.Language); lang != "" {
		languages = []string{lang}
	}

	var warnMessages []string
	resolved := 0
	patterns := 0
	for _, lang := range languages {
		c, warns, ok := catalog.Resolve(lang, cfg.Catalog.Dir)
		for _, w := range warns {
			warnMessages = append(warnMessages, w.Message)
		}
		if !ok {
			continue
		}
		resolved++
		compiled, compileWarns := catalog.Compile(c)
		for _, w := range compileWarns {
			warnMessages = append(warnMessages, w.Message)
		}
		patterns += compiled.PatternCount()
	}

	meta := map[string]string{
		"languages": fmt.Sprintf("%d", resolved),
		"patterns":  fmt.Sprintf("%d", patterns),
	}
	if len(warnMessages) > 0 {
		return CheckResult{
			ID:       "catalog.health",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("catalogs loaded with %d warning(s): %s", len(warnMessages), warnMessages[0]),
			Metadata: meta,
		}
	}
	if resolved == 0 {
		return CheckResult{
			ID:       "catalog.health",
			Status:   StatusWarn,
			Message:  "no catalogs resolved; scans will only report required-pattern coverage for custom catalogs",
			Metadata: meta,
		}
	}
	return CheckResult{
		ID:       "catalog.health",
		Status:   StatusPass,
		Message:  fmt.Sprintf("%d catalog(s) compile cleanly", resolved),
		Metadata: meta,
	}
}

func suppressionsCheck(root, relPath string) CheckResult {
	relPath = strings.TrimSpace(relPath)
	if relPath == "" {
		return CheckResult{ID: "suppressions.file", Status: StatusPass, Message: "suppressions disabled"}
	}
	path := relPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, relPath)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return CheckResult{ID: "suppressions.file", Status: StatusPass, Message: "no suppressions file present"}
	}

	rules, err := suppress.Load(path)
	if err != nil {
		return CheckResult{
			ID:      "suppressions.file",
			Status:  StatusFail,
			Message: fmt.Sprintf("suppressions file does not parse: %v", err),
		}
	}

	invalid := 0
	for _, r := range rules {
		if r.HasInvalidExpiry() {
			invalid++
		}
	}
	meta := map[string]string{"rules": fmt.Sprintf("%d", len(rules))}
	if invalid > 0 {
		return CheckResult{
			ID:       "suppressions.file",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("%d suppression(s) carry an unparseable expires date and will never expire", invalid),
			Metadata: meta,
		}
	}
	return CheckResult{
		ID:       "suppressions.file",
		Status:   StatusPass,
		Message:  fmt.Sprintf("%d suppression rule(s) parsed", len(rules)),
		Metadata: meta,
	}
}

func outputWritableCheck(root, outDir string) CheckResult {
	dir := strings.TrimSpace(outDir)
	if dir == "" {
		dir = ".copilot-agent"
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return CheckResult{ID: "output.writable", Status: StatusFail, Message: fmt.Sprintf("create output dir: %v", err)}
	}
	f, err := os.CreateTemp(dir, ".doctor-write-*")
	if err != nil {
		return CheckResult{ID: "output.writable", Status: StatusFail, Message: fmt.Sprintf("write test in output dir failed: %v", err)}
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return CheckResult{
		ID:       "output.writable",
		Status:   StatusPass,
		Message:  "output directory is writable",
		Metadata: map[string]string{"path": dir},
	}
}

func historyCheck(root string, cfg config.Config) CheckResult {
	if !cfg.History.Enabled {
		return CheckResult{ID: "history.db", Status: StatusPass, Message: "history disabled"}
	}
	path := cfg.History.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	store, err := history.Open(path)
	if err != nil {
		return CheckResult{
			ID:      "history.db",
			Status:  StatusFail,
			Message: fmt.Sprintf("history db cannot be opened: %v", err),
		}
	}
	defer store.Close()
	if _, err := store.Recent(1); err != nil {
		return CheckResult{
			ID:      "history.db",
			Status:  StatusFail,
			Message: fmt.Sprintf("history db cannot be queried: %v", err),
		}
	}
	return CheckResult{
		ID:       "history.db",
		Status:   StatusPass,
		Message:  "history database is usable",
		Metadata: map[string]string{"path": path},
	}
}

func llmCheck(cfg config.Config) CheckResult {
	if cfg.LLM.Skip {
		return CheckResult{ID: "llm.auth", Status: StatusPass, Message: "llm generation disabled, template will be used"}
	}
	if strings.TrimSpace(os.Getenv("OPENAI_API_KEY")) == "" {
		return CheckResult{
			ID:      "llm.auth",
			Status:  StatusWarn,
			Message: "OPENAI_API_KEY is not set; instructions fall back to the template",
		}
	}
	return CheckResult{
		ID:       "llm.auth",
		Status:   StatusPass,
		Message:  "OPENAI_API_KEY is set",
		Metadata: map[string]string{"model": cfg.LLM.Model},
	}
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
