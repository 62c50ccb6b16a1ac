// Package engine turns file content into raw pattern-match events.
//
// The engine walks one source tree with a bounded worker pool, applies every
// compiled pattern of the active catalog to every candidate file, and emits
// events in a deterministic order. Grouping events into findings is the
// caller's business; Group implements the standard fold.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/KumVivek/copilot-instruction-agent/internal/catalog"
	"github.com/KumVivek/copilot-instruction-agent/internal/model"
	"github.com/KumVivek/copilot-instruction-agent/internal/progress"
)

// fileProgressEvery throttles progress events; sinks drop rather than block,
// so the cadence only affects plain-log noise.
const fileProgressEvery = 25

// Event is one raw pattern match inside one file.
type Event struct {
	PatternID string
	Path      string
	Line      int
}

// Options tunes a scan. Zero values fall back to safe defaults.
type Options struct {
	Workers       int
	MaxFileBytes  int64
	EvidenceCap   int
	MatchBudget   time.Duration
	ExtraSkipDirs []string
	Logger        *zap.Logger
	Sink          progress.Sink
}

// Result carries the raw events plus the scope counters needed to evaluate
// required patterns once the walk is complete.
type Result struct {
	Events       []Event
	FilesScanned int
	FilesSkipped int
	Warnings     []model.Warning
}

func (o Options) normalized() Options {
	if o.Workers < 1 {
		o.Workers = 4
	}
	if o.MaxFileBytes <= 0 {
		o.MaxFileBytes = defaultMaxFileBytes
	}
	if o.EvidenceCap <= 0 {
		o.EvidenceCap = defaultEvidenceCap
	}
	if o.MatchBudget <= 0 {
		o.MatchBudget = defaultMatchBudget
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Sink == nil {
		o.Sink = progress.NoopSink{}
	}
	return o
}

type fileResult struct {
	events   []Event
	warnings []model.Warning
	scanned  bool
}

type indexedResult struct {
	idx int
	res fileResult
}

// Scan walks root and matches every pattern of cat against every candidate
// file. The only hard failure is an unusable root; everything else degrades
// to warnings. Cancellation drops files that have not finished scanning and
// keeps the events of files that have.
func Scan(ctx context.Context, root string, cat catalog.Compiled, opts Options) (Result, error) {
	opts = opts.normalized()

	rootAbs, err := filepath.Abs(strings.TrimSpace(root))
	if err != nil {
		return Result{}, fmt.Errorf("resolve scan root: %w", err)
	}
	st, err := os.Stat(rootAbs)
	if err != nil {
		return Result{}, fmt.Errorf("stat scan root: %w", err)
	}
	if !st.IsDir() {
		return Result{}, fmt.Errorf("scan root is not a directory: %s", rootAbs)
	}

	walk, err := collectFiles(rootAbs, catalog.ExtensionsFor(cat.Language), opts.ExtraSkipDirs)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		FilesSkipped: walk.skipped,
		Warnings:     walk.warnings,
	}
	if len(walk.files) == 0 {
		return res, nil
	}

	patterns := make([]catalog.CompiledPattern, 0, len(cat.AntiPatterns)+len(cat.RequiredPatterns))
	patterns = append(patterns, cat.AntiPatterns...)
	patterns = append(patterns, cat.RequiredPatterns...)
	if len(patterns) == 0 {
		res.FilesScanned = len(walk.files)
		return res, nil
	}

	workers := opts.Workers
	if workers > len(walk.files) {
		workers = len(walk.files)
	}

	sem := make(chan struct{}, workers)
	resCh := make(chan indexedResult, len(walk.files))
	var wg sync.WaitGroup
	var done atomic.Int64
	total := len(walk.files)

	for idx, rel := range walk.files {
		wg.Add(1)
		go func(idx int, rel string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			select {
			case <-ctx.Done():
				resCh <- indexedResult{idx: idx}
				return
			default:
			}

			resCh <- indexedResult{idx: idx, res: scanOne(rootAbs, rel, patterns, opts)}

			if n := int(done.Add(1)); n%fileProgressEvery == 0 || n == total {
				opts.Sink.Emit(progress.Event{
					Type:       progress.EventFileProgress,
					FilesDone:  n,
					FilesTotal: total,
				})
			}
		}(idx, rel)
	}

	wg.Wait()
	close(resCh)

	ordered := make([]fileResult, len(walk.files))
	for item := range resCh {
		if item.idx < 0 || item.idx >= len(ordered) {
			continue
		}
		ordered[item.idx] = item.res
	}

	for _, fr := range ordered {
		res.Events = append(res.Events, fr.events...)
		res.Warnings = append(res.Warnings, fr.warnings...)
		if fr.scanned {
			res.FilesScanned++
		} else {
			res.FilesSkipped++
		}
	}
	if ctx.Err() != nil {
		res.Warnings = append(res.Warnings, model.Warning{
			Stage:   model.WarnFile,
			Message: "scan cancelled: unfinished files were dropped",
		})
	}

	opts.Logger.Debug("pattern scan complete",
		zap.String("language", cat.Language),
		zap.Int("files_scanned", res.FilesScanned),
		zap.Int("files_skipped", res.FilesSkipped),
		zap.Int("events", len(res.Events)),
	)
	return res, nil
}

func scanOne(root string, rel string, patterns []catalog.CompiledPattern, opts Options) fileResult {
	abs := filepath.Join(root, filepath.FromSlash(rel))
	raw, err := os.ReadFile(abs)
	if err != nil {
		return fileResult{warnings: []model.Warning{{
			Stage:   model.WarnFile,
			Message: fmt.Sprintf("read %s: %v", rel, err),
		}}}
	}
	if int64(len(raw)) > opts.MaxFileBytes {
		return fileResult{warnings: []model.Warning{{
			Stage:   model.WarnFile,
			Message: fmt.Sprintf("skipped %s: size %d exceeds limit %d", rel, len(raw), opts.MaxFileBytes),
		}}}
	}
	if looksBinary(raw) {
		return fileResult{}
	}
	if !utf8.Valid(raw) {
		return fileResult{warnings: []model.Warning{{
			Stage:   model.WarnFile,
			Message: fmt.Sprintf("skipped %s: content is not valid UTF-8", rel),
		}}}
	}

	content := string(raw)
	out := fileResult{scanned: true}
	for _, p := range patterns {
		offsets, ok := matchOffsets(p.Expr, content, opts.MatchBudget)
		if !ok {
			out.warnings = append(out.warnings, model.Warning{
				Stage:   model.WarnPattern,
				Message: fmt.Sprintf("pattern %s exceeded match budget on %s; treated as non-match", p.ID, rel),
			})
			continue
		}
		if len(offsets) == 0 {
			continue
		}
		for _, line := range lineNumbers(content, offsets) {
			out.events = append(out.events, Event{PatternID: p.ID, Path: rel, Line: line})
		}
	}

	opts.Logger.Debug("scanned file", zap.String("path", rel), zap.Int("events", len(out.events)))
	return out
}

// Group folds raw events into findings, at most one per pattern. Occurrence
// counts stay exact while evidence is capped. Required patterns produce a
// finding only when no scanned file matched them; the occurrence count is
// then the number of scanned files, all of which lack the pattern.
func Group(res Result, cat catalog.Compiled, evidenceCap int) []model.Finding {
	if evidenceCap <= 0 {
		evidenceCap = defaultEvidenceCap
	}

	byID := make(map[string][]Event, len(cat.AntiPatterns))
	for _, ev := range res.Events {
		byID[ev.PatternID] = append(byID[ev.PatternID], ev)
	}

	findings := make([]model.Finding, 0, len(cat.AntiPatterns))
	for _, p := range cat.AntiPatterns {
		events := byID[p.ID]
		if len(events) == 0 {
			continue
		}
		evidence := make([]model.Location, 0, evidenceCap)
		for _, ev := range events {
			if len(evidence) == evidenceCap {
				break
			}
			evidence = append(evidence, model.Location{Path: ev.Path, Line: ev.Line})
		}
		findings = append(findings, model.Finding{
			PatternID:   p.ID,
			Name:        p.Name,
			Severity:    p.Severity,
			Category:    p.Category,
			Kind:        p.Type,
			Occurrences: len(events),
			Evidence:    evidence,
			Constraints: constraintList(p.Constraint),
		})
	}
	for _, p := range cat.RequiredPatterns {
		if len(byID[p.ID]) > 0 || res.FilesScanned == 0 {
			continue
		}
		findings = append(findings, model.Finding{
			PatternID:   p.ID,
			Name:        p.Name,
			Severity:    p.Severity,
			Category:    p.Category,
			Kind:        p.Type,
			Occurrences: res.FilesScanned,
			Constraints: constraintList(p.Constraint),
		})
	}
	return findings
}

func constraintList(c string) []string {
	c = strings.TrimSpace(c)
	if c == "" {
		return nil
	}
	return []string{c}
}
