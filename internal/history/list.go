package history

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Entry is a lightweight run row for listings and diff headers.
type Entry struct {
	ID         string    `json:"id"`
	RunLabel   string    `json:"run_label"`
	StartedAt  time.Time `json:"started_at"`
	Root       string    `json:"root"`
	Language   string    `json:"language"`
	Findings   int       `json:"findings"`
	Suppressed int       `json:"suppressed"`
	Rules      int       `json:"rules"`
	Overall    float64   `json:"overall"`
}

// ErrRunNotFound reports a run reference that matches nothing stored.
var ErrRunNotFound = errors.New("run not found")

// Recent returns the newest runs first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `
		SELECT id, run_label, started_at, root, language, findings, suppressed, rules, overall
		  FROM runs
		 ORDER BY started_at DESC, id DESC
		 LIMIT ?`
	rows, err := s.db.Query(q, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// resolve accepts a run id or a run label. Labels are second-resolution
// timestamps, so a collision picks the newest run wearing it.
func (s *Store) resolve(ref string) (Entry, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Entry{}, fmt.Errorf("resolve run: %w", ErrRunNotFound)
	}
	const q = `
		SELECT id, run_label, started_at, root, language, findings, suppressed, rules, overall
		  FROM runs
		 WHERE id = ? OR run_label = ?
		 ORDER BY started_at DESC, id DESC
		 LIMIT 1`
	e, err := scanEntry(s.db.QueryRow(q, ref, ref))
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("resolve run %q: %w", ref, ErrRunNotFound)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("resolve run %q: %w", ref, err)
	}
	return e, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var e Entry
	var startedAt string
	if err := row.Scan(&e.ID, &e.RunLabel, &startedAt, &e.Root, &e.Language, &e.Findings, &e.Suppressed, &e.Rules, &e.Overall); err != nil {
		return Entry{}, err
	}
	if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
		e.StartedAt = t
	} else if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
		e.StartedAt = t
	}
	return e, nil
}
