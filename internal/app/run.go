// Package app wires the scan pipeline end to end: stack detection, catalog
// resolution, analyzers, suppressions, scoring, rule synthesis, instruction
// generation and artifact writing. Every stage past root validation degrades
// to a warning instead of aborting the run.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/KumVivek/copilot-instruction-agent/internal/analyzer"
	"github.com/KumVivek/copilot-instruction-agent/internal/badge"
	"github.com/KumVivek/copilot-instruction-agent/internal/catalog"
	"github.com/KumVivek/copilot-instruction-agent/internal/config"
	"github.com/KumVivek/copilot-instruction-agent/internal/detect"
	"github.com/KumVivek/copilot-instruction-agent/internal/engine"
	"github.com/KumVivek/copilot-instruction-agent/internal/history"
	"github.com/KumVivek/copilot-instruction-agent/internal/instructions"
	"github.com/KumVivek/copilot-instruction-agent/internal/model"
	"github.com/KumVivek/copilot-instruction-agent/internal/progress"
	"github.com/KumVivek/copilot-instruction-agent/internal/report"
	"github.com/KumVivek/copilot-instruction-agent/internal/risk"
	"github.com/KumVivek/copilot-instruction-agent/internal/rules"
	"github.com/KumVivek/copilot-instruction-agent/internal/safefile"
	"github.com/KumVivek/copilot-instruction-agent/internal/suppress"
)

// Fixed artifact names inside the output directory. Only the markdown
// report name is configurable.
const (
	reportJSONName = "report.json"
	sarifName      = "report.sarif"
	badgeName      = "badge.svg"
)

// Options carries everything one scan run needs. APIKey is resolved by the
// caller so the pipeline never reads the environment itself.
type Options struct {
	Root     string
	Config   config.Config
	APIKey   string
	Registry *analyzer.Registry
	Logger   *zap.Logger
	Sink     progress.Sink
}

// Artifacts lists the files a run wrote. Paths are empty for artifacts the
// configuration disabled or that failed with a warning.
type Artifacts struct {
	ReportMarkdown string
	ReportJSON     string
	SARIF          string
	Badge          string
	Instructions   string
	HistoryRunID   string
}

// Run executes the full scan pipeline against opts.Root and writes the
// configured artifacts. An invalid root is the only hard failure before the
// artifact stage; everything else surfaces as warnings on the report.
func Run(ctx context.Context, opts Options) (rep model.ScanReport, paths Artifacts, err error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sink := opts.Sink
	if sink == nil {
		sink = progress.NoopSink{}
	}
	cfg := opts.Config

	started := time.Now().UTC()
	runID := started.Format("20060102-150405")
	sink.Emit(progress.Event{
		Type:    progress.EventRunStarted,
		At:      started,
		RunID:   runID,
		Message: strings.TrimSpace(opts.Root),
	})

	defer func() {
		status := "success"
		errMsg := ""
		findingCount := 0

		if err != nil {
			status = "failed"
			errMsg = err.Error()
		} else {
			findingCount = len(rep.Findings)
			if len(rep.Warnings) > 0 {
				status = "warning"
			}
		}

		sink.Emit(progress.Event{
			Type:       progress.EventRunFinished,
			At:         time.Now().UTC(),
			RunID:      runID,
			Status:     status,
			Findings:   findingCount,
			DurationMS: time.Since(started).Milliseconds(),
			Error:      errMsg,
		})
	}()

	root, rootErr := resolveRoot(opts.Root)
	if rootErr != nil {
		err = rootErr
		return
	}

	warnings := make([]model.Warning, 0, 8)
	warn := func(stage, format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		warnings = append(warnings, model.Warning{Stage: stage, Message: msg})
		logger.Warn(msg, zap.String("stage", stage))
		sink.Emit(progress.Event{
			Type:    progress.EventRunWarning,
			RunID:   runID,
			Status:  "warning",
			Message: msg,
		})
	}
	collect := func(ws []model.Warning) {
		for _, w := range ws {
			warn(w.Stage, "%s", w.Message)
		}
	}

	stack, detectErr := detect.Stack(root)
	if detectErr != nil {
		if !errors.Is(detectErr, detect.ErrUnknown) {
			err = detectErr
			return
		}
		warn(model.WarnFile, "stack detection: %v", detectErr)
	}
	if lang := strings.TrimSpace(cfg.Language); lang != "" && lang != stack.Language {
		logger.Debug("language pinned by config",
			zap.String("detected", stack.Language), zap.String("language", lang))
		stack.Language = lang
		stack.Label = ""
	}

	cat, catWarnings, catalogOK := catalog.Resolve(stack.Language, cfg.Catalog.Dir)
	collect(catWarnings)

	var compiled *catalog.Compiled
	if catalogOK {
		c, compileWarnings := catalog.Compile(cat)
		collect(compileWarnings)
		compiled = &c
	}

	reg := opts.Registry
	if reg == nil {
		reg = analyzer.DefaultRegistry(logger)
	}
	out := analyzer.Run(ctx, root, stack.Language, reg, compiled, analyzer.Options{
		Engine: engine.Options{
			Workers:       cfg.Workers,
			MaxFileBytes:  int64(cfg.Scan.MaxFileKB) * 1024,
			EvidenceCap:   cfg.Scan.EvidenceCap,
			MatchBudget:   time.Duration(cfg.Scan.MatchBudgetMS) * time.Millisecond,
			ExtraSkipDirs: cfg.Scan.ExcludeDirs,
			Logger:        logger,
		},
		Logger: logger,
		Sink:   sink,
	})
	warnings = append(warnings, out.Warnings...)
	findings := out.Findings

	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
		return
	}

	suppressedCount := 0
	if path := strings.TrimSpace(cfg.Scan.Suppressions); path != "" {
		suppressRules, loadErr := suppress.Load(joinIfRelative(root, path))
		if loadErr != nil {
			warn(model.WarnSuppress, "suppressions not applied: %v", loadErr)
		} else if len(suppressRules) > 0 {
			findings, suppressedCount = suppress.Apply(findings, suppressRules, time.Now().UTC())
			if msg := checkSuppressionRatio(len(findings)-suppressedCount, suppressedCount); msg != "" {
				warn(model.WarnSuppress, "%s", msg)
			}
		}
	}

	scores, scoreErr := risk.Score(findings, risk.Options{
		Weights: riskWeights(cfg.Risk.Weights),
		Ceiling: cfg.Risk.Ceiling,
	})
	if scoreErr != nil {
		warn(model.WarnScoring, "scoring skipped: %v", scoreErr)
		scores = nil
	}

	var constraints []string
	if compiled != nil {
		constraints = compiled.Constraints
	}
	ruleList := rules.Build(findings, scores, constraints, rules.Options{
		Threshold: cfg.Risk.Threshold,
		MaxRules:  cfg.Rules.MaxRules,
		Logger:    logger,
	})

	generated, genWarnings := instructions.Generate(ctx, stack, scores, ruleList, cat, instructions.Options{
		Model:       cfg.LLM.Model,
		APIKey:      opts.APIKey,
		BaseURL:     chatCompletionsURL(cfg.LLM.BaseURL),
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		Skip:        cfg.LLM.Skip,
		Logger:      logger,
	})
	collect(genWarnings)

	active := activeFindings(findings)
	completed := time.Now().UTC()
	rep = model.ScanReport{
		Meta: model.RunMeta{
			RunID:        runID,
			StartedAt:    started,
			CompletedAt:  completed,
			DurationMS:   completed.Sub(started).Milliseconds(),
			Root:         root,
			Language:     stack.Language,
			Analyzers:    out.Analyzers,
			Patterns:     out.Patterns,
			FilesScanned: out.FilesScanned,
			FilesSkipped: out.FilesSkipped,
			Workers:      cfg.Workers,
			LLMUsed:      generated.LLMUsed,
			LLMModel:     generated.Model,
		},
		Stack:            stack,
		Findings:         findings,
		SuppressedCount:  suppressedCount,
		CategoryScores:   scores,
		Rules:            ruleList,
		CountsBySeverity: model.CountBySeverity(active),
		CountsByCategory: model.CountByCategory(active),
		Warnings:         warnings,
	}

	outDir, dirErr := safefile.EnsureDir(joinIfRelative(root, cfg.Output.Dir), 0o700)
	if dirErr != nil {
		err = fmt.Errorf("create output dir: %w", dirErr)
		return
	}

	mdPath := joinIfRelative(outDir, cfg.Output.ReportPath)
	if mdErr := report.WriteMarkdown(mdPath, rep); mdErr != nil {
		err = mdErr
		return
	}
	paths.ReportMarkdown = mdPath

	if cfg.Output.JSON {
		p := filepath.Join(outDir, reportJSONName)
		if jsonErr := report.WriteJSON(p, rep); jsonErr != nil {
			err = jsonErr
			return
		}
		paths.ReportJSON = p
	}
	if cfg.Output.SARIF {
		p := filepath.Join(outDir, sarifName)
		if sarifErr := report.WriteSARIF(p, rep); sarifErr != nil {
			err = sarifErr
			return
		}
		paths.SARIF = p
	}

	instrPath := joinIfRelative(root, cfg.Output.InstructionsPath)
	if writeErr := instructions.WriteFile(instrPath, generated.Content); writeErr != nil {
		err = fmt.Errorf("write instructions: %w", writeErr)
		return
	}
	paths.Instructions = instrPath

	// Badge and history are auxiliary: their failures mark the run with a
	// warning on the returned report but never fail an otherwise good scan.
	warnArtifact := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		rep.Warnings = append(rep.Warnings, model.Warning{Stage: model.WarnArtifact, Message: msg})
		logger.Warn(msg, zap.String("stage", model.WarnArtifact))
		sink.Emit(progress.Event{
			Type:    progress.EventRunWarning,
			RunID:   runID,
			Status:  "warning",
			Message: msg,
		})
	}

	if cfg.Output.Badge {
		p := filepath.Join(outDir, badgeName)
		if badgeErr := badge.WriteSVG(p, badge.DefaultLabel, risk.Overall(scores), badge.StyleFlat); badgeErr != nil {
			warnArtifact("badge not written: %v", badgeErr)
		} else {
			paths.Badge = p
		}
	}

	if cfg.History.Enabled {
		store, openErr := history.Open(joinIfRelative(root, cfg.History.Path))
		if openErr != nil {
			warnArtifact("history not recorded: %v", openErr)
		} else {
			if id, recErr := store.Record(rep); recErr != nil {
				warnArtifact("history not recorded: %v", recErr)
			} else {
				paths.HistoryRunID = id
			}
			if closeErr := store.Close(); closeErr != nil {
				logger.Debug("close history store", zap.Error(closeErr))
			}
		}
	}

	return rep, paths, nil
}

// Gate returns the highest-scoring category at or above the fail-on
// threshold. Scores arrive ordered by descending risk, so the first hit is
// the worst offender. A threshold of zero or less disables the gate.
func Gate(scores []model.CategoryScore, failOn float64) (model.CategoryScore, bool) {
	if failOn <= 0 {
		return model.CategoryScore{}, false
	}
	for _, cs := range scores {
		if cs.Score >= failOn {
			return cs, true
		}
	}
	return model.CategoryScore{}, false
}

func resolveRoot(root string) (string, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve scan root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("scan root: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("scan root %s is not a directory", abs)
	}
	return abs, nil
}

// suppressionRatioFloor keeps small absolute suppression counts from
// tripping the ratio warning.
const suppressionRatioFloor = 5

// checkSuppressionRatio flags runs where suppressions hide at least half of
// all findings. Returns an empty string when the ratio is healthy.
func checkSuppressionRatio(active, suppressed int) string {
	total := active + suppressed
	if suppressed < suppressionRatioFloor || suppressed*2 < total {
		return ""
	}
	return fmt.Sprintf("%d of %d findings are suppressed; review the suppression file for stale entries",
		suppressed, total)
}

func riskWeights(w config.WeightsConfig) risk.Weights {
	return risk.Weights{
		model.SeverityCritical: w.Critical,
		model.SeverityHigh:     w.High,
		model.SeverityMedium:   w.Medium,
		model.SeverityLow:      w.Low,
		model.SeverityInfo:     w.Info,
	}
}

func activeFindings(findings []model.Finding) []model.Finding {
	active := make([]model.Finding, 0, len(findings))
	for _, f := range findings {
		if f.Suppressed {
			continue
		}
		active = append(active, f)
	}
	return active
}

// chatCompletionsURL turns the configured API root into the full chat
// completions endpoint. An empty base keeps the client's default.
func chatCompletionsURL(baseURL string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return ""
	}
	return base + "/chat/completions"
}

func joinIfRelative(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
