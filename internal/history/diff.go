package history

import (
	"fmt"
	"sort"

	"github.com/KumVivek/copilot-instruction-agent/internal/model"
)

// Delta is one pattern that appeared or disappeared between two runs.
type Delta struct {
	PatternID   string         `json:"pattern_id"`
	Category    string         `json:"category"`
	Severity    model.Severity `json:"severity"`
	Occurrences int            `json:"occurrences"`
}

// Diff compares two stored runs. New holds patterns present in the target
// but not the base, Resolved the reverse. Suppressed findings were never
// stored as rows, so a newly suppressed pattern shows up as resolved.
type Diff struct {
	Base     Entry   `json:"base"`
	Target   Entry   `json:"target"`
	New      []Delta `json:"new"`
	Resolved []Delta `json:"resolved"`
}

// Compare diffs the base run against the target run. Both references may be
// run ids or run labels.
func (s *Store) Compare(baseRef, targetRef string) (Diff, error) {
	base, err := s.resolve(baseRef)
	if err != nil {
		return Diff{}, err
	}
	target, err := s.resolve(targetRef)
	if err != nil {
		return Diff{}, err
	}

	baseRows, err := s.findingRows(base.ID)
	if err != nil {
		return Diff{}, err
	}
	targetRows, err := s.findingRows(target.ID)
	if err != nil {
		return Diff{}, err
	}

	d := Diff{Base: base, Target: target}
	for pid, row := range targetRows {
		if _, ok := baseRows[pid]; !ok {
			d.New = append(d.New, row)
		}
	}
	for pid, row := range baseRows {
		if _, ok := targetRows[pid]; !ok {
			d.Resolved = append(d.Resolved, row)
		}
	}
	sortDeltas(d.New)
	sortDeltas(d.Resolved)
	return d, nil
}

func (s *Store) findingRows(runID string) (map[string]Delta, error) {
	const q = `
		SELECT pattern_id, category, severity, occurrences
		  FROM run_findings
		 WHERE run_id = ?`
	rows, err := s.db.Query(q, runID)
	if err != nil {
		return nil, fmt.Errorf("load findings for %s: %w", runID, err)
	}
	defer rows.Close()

	out := make(map[string]Delta)
	for rows.Next() {
		var d Delta
		var severity string
		if err := rows.Scan(&d.PatternID, &d.Category, &severity, &d.Occurrences); err != nil {
			return nil, fmt.Errorf("scan finding row: %w", err)
		}
		d.Severity = model.ParseSeverity(severity)
		out[d.PatternID] = d
	}
	return out, rows.Err()
}

func sortDeltas(deltas []Delta) {
	sort.Slice(deltas, func(i, j int) bool {
		if deltas[i].Category != deltas[j].Category {
			return deltas[i].Category < deltas[j].Category
		}
		return deltas[i].PatternID < deltas[j].PatternID
	})
}
