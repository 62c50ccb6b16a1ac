// Package analyzer runs the registered analyzers for a language and merges
// their findings into one collection.
//
// The framework is deliberately dumb: analyzers run sequentially in registry
// order, a failing analyzer is isolated and reported, and the pattern engine
// always runs last against the resolved catalog. It never deduplicates
// across analyzers; that is the rules builder's job.
package analyzer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/KumVivek/copilot-instruction-agent/internal/catalog"
	"github.com/KumVivek/copilot-instruction-agent/internal/engine"
	"github.com/KumVivek/copilot-instruction-agent/internal/model"
	"github.com/KumVivek/copilot-instruction-agent/internal/progress"
)

// EngineName identifies the catalog pattern engine in finding and warning
// attribution.
const EngineName = "pattern-engine"

// Analyzer is the capability every scanner implements: language analyzers
// and the pattern engine alike.
type Analyzer interface {
	Name() string
	Scan(ctx context.Context, root string) ([]model.Finding, error)
}

// Registry maps a language to its ordered analyzer list. Registration is
// explicit; build one at startup and pass it around by reference.
type Registry struct {
	byLanguage map[string][]Analyzer
}

func NewRegistry() *Registry {
	return &Registry{byLanguage: make(map[string][]Analyzer)}
}

// DefaultRegistry returns the registry with the built-in analyzers wired.
func DefaultRegistry(logger *zap.Logger) *Registry {
	r := NewRegistry()
	r.Register("dotnet", NewDotnetArchitecture(logger))
	return r
}

func (r *Registry) Register(language string, a Analyzer) {
	if a == nil {
		return
	}
	r.byLanguage[language] = append(r.byLanguage[language], a)
}

// ForLanguage returns the registered analyzers in registration order.
func (r *Registry) ForLanguage(language string) []Analyzer {
	if r == nil {
		return nil
	}
	return r.byLanguage[language]
}

// Options configures a framework run.
type Options struct {
	Engine engine.Options
	Logger *zap.Logger
	Sink   progress.Sink
}

// Output is the merged result of one framework run. A run with nothing to do
// is a valid empty output, not an error.
type Output struct {
	Findings     []model.Finding
	Warnings     []model.Warning
	Analyzers    []string
	Patterns     int
	FilesScanned int
	FilesSkipped int
}

// Run executes every registered analyzer for language against root, then the
// pattern engine against cat (nil when no catalog resolved). Findings are
// concatenated in registry order with the engine's last; a failed analyzer
// contributes a warning instead of aborting the run.
func Run(ctx context.Context, root string, language string, reg *Registry, cat *catalog.Compiled, opts Options) Output {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sink := opts.Sink
	if sink == nil {
		sink = progress.NoopSink{}
	}

	out := Output{Findings: make([]model.Finding, 0, 16)}

	for _, a := range reg.ForLanguage(language) {
		sink.Emit(progress.Event{Type: progress.EventAnalyzerStarted, Analyzer: a.Name()})
		started := time.Now()
		findings, err := safeScan(ctx, a, root)
		elapsed := time.Since(started).Milliseconds()
		if err != nil {
			logger.Warn("analyzer failed", zap.String("analyzer", a.Name()), zap.Error(err))
			out.Warnings = append(out.Warnings, model.Warning{
				Stage:   model.WarnAnalyzer,
				Message: fmt.Sprintf("analyzer %s failed: %v", a.Name(), err),
			})
			sink.Emit(progress.Event{
				Type: progress.EventAnalyzerFinished, Analyzer: a.Name(),
				Status: "failed", Error: err.Error(), DurationMS: elapsed,
			})
			continue
		}
		for i := range findings {
			findings[i].Analyzer = a.Name()
		}
		out.Findings = append(out.Findings, findings...)
		out.Analyzers = append(out.Analyzers, a.Name())
		logger.Debug("analyzer finished", zap.String("analyzer", a.Name()), zap.Int("findings", len(findings)))
		sink.Emit(progress.Event{
			Type: progress.EventAnalyzerFinished, Analyzer: a.Name(),
			Status: "success", Findings: len(findings), DurationMS: elapsed,
		})
	}

	if cat != nil && cat.PatternCount() > 0 {
		out.Patterns = cat.PatternCount()
		sink.Emit(progress.Event{Type: progress.EventAnalyzerStarted, Analyzer: EngineName})
		started := time.Now()
		engOpts := opts.Engine
		if engOpts.Sink == nil {
			engOpts.Sink = sink
		}
		res, err := engine.Scan(ctx, root, *cat, engOpts)
		elapsed := time.Since(started).Milliseconds()
		if err != nil {
			logger.Warn("analyzer failed", zap.String("analyzer", EngineName), zap.Error(err))
			out.Warnings = append(out.Warnings, model.Warning{
				Stage:   model.WarnAnalyzer,
				Message: fmt.Sprintf("analyzer %s failed: %v", EngineName, err),
			})
			sink.Emit(progress.Event{
				Type: progress.EventAnalyzerFinished, Analyzer: EngineName,
				Status: "failed", Error: err.Error(), DurationMS: elapsed,
			})
			return out
		}
		out.Warnings = append(out.Warnings, res.Warnings...)
		out.FilesScanned = res.FilesScanned
		out.FilesSkipped = res.FilesSkipped

		findings := engine.Group(res, *cat, opts.Engine.EvidenceCap)
		for i := range findings {
			findings[i].Analyzer = EngineName
		}
		out.Findings = append(out.Findings, findings...)
		out.Analyzers = append(out.Analyzers, EngineName)
		logger.Debug("analyzer finished", zap.String("analyzer", EngineName), zap.Int("findings", len(findings)))
		sink.Emit(progress.Event{
			Type: progress.EventAnalyzerFinished, Analyzer: EngineName,
			Status: "success", Findings: len(findings), DurationMS: elapsed,
		})
	}

	return out
}

// safeScan confines an analyzer panic to that analyzer's slot in the run.
func safeScan(ctx context.Context, a Analyzer, root string) (findings []model.Finding, err error) {
	defer func() {
		if r := recover(); r != nil {
			findings = nil
			err = fmt.Errorf("analyzer panicked: %v", r)
		}
	}()
	return a.Scan(ctx, root)
}
