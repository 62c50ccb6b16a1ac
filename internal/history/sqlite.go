// Package history persists scan runs in a local SQLite database so
// consecutive scans of the same codebase can be listed and compared.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // CGO-free SQLite driver

	"github.com/KumVivek/copilot-instruction-agent/internal/model"
	"github.com/KumVivek/copilot-instruction-agent/internal/report"
	"github.com/KumVivek/copilot-instruction-agent/internal/risk"
	"github.com/KumVivek/copilot-instruction-agent/internal/safefile"
)

// DefaultPath is the store location relative to the scanned root.
const DefaultPath = ".copilot-agent/history.db"

// Store is the run history backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if missing) the history database at path and
// ensures the schema exists.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("history path is required")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if _, err := safefile.EnsureDir(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	// Pragmas via DSN keep it portable with the modernc driver.
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS runs (
  id          TEXT PRIMARY KEY,
  run_label   TEXT NOT NULL,
  started_at  TEXT NOT NULL,     -- RFC3339Nano
  root        TEXT,
  language    TEXT,
  findings    INTEGER NOT NULL,
  suppressed  INTEGER NOT NULL,
  rules       INTEGER NOT NULL,
  overall     REAL NOT NULL,
  report_json TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_label ON runs(run_label);

CREATE TABLE IF NOT EXISTS run_findings (
  run_id      TEXT NOT NULL,
  pattern_id  TEXT NOT NULL,
  category    TEXT NOT NULL,
  severity    TEXT NOT NULL,
  occurrences INTEGER NOT NULL,
  PRIMARY KEY (run_id, pattern_id),
  FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS run_scores (
  run_id   TEXT NOT NULL,
  category TEXT NOT NULL,
  score    REAL NOT NULL,
  PRIMARY KEY (run_id, category),
  FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);
`)
	return err
}

// Record stores one completed scan and returns its generated id. The
// report is masked before persisting. Suppressed findings keep the run's
// counters honest but are left out of the diffable finding rows.
func (s *Store) Record(rep model.ScanReport) (string, error) {
	rep = report.Redacted(rep)

	id := uuid.NewString()
	blob, err := json.Marshal(rep)
	if err != nil {
		return "", fmt.Errorf("marshal run report: %w", err)
	}

	startedAt := rep.Meta.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin history tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT INTO runs (id, run_label, started_at, root, language, findings, suppressed, rules, overall, report_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		rep.Meta.RunID,
		startedAt.UTC().Format(time.RFC3339Nano),
		rep.Meta.Root,
		rep.Meta.Language,
		len(rep.Findings),
		rep.SuppressedCount,
		len(rep.Rules),
		risk.Overall(rep.CategoryScores),
		string(blob),
	); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	if len(rep.Findings) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO run_findings (run_id, pattern_id, category, severity, occurrences)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(run_id, pattern_id) DO UPDATE SET
			  occurrences = occurrences + excluded.occurrences`)
		if err != nil {
			return "", fmt.Errorf("prepare finding insert: %w", err)
		}
		defer stmt.Close()
		for _, f := range rep.Findings {
			if f.Suppressed {
				continue
			}
			pid := strings.TrimSpace(f.PatternID)
			if pid == "" {
				continue
			}
			if _, err := stmt.Exec(id, pid, categoryOrGeneral(f.Category), string(f.Severity), f.Occurrences); err != nil {
				return "", fmt.Errorf("insert finding %s: %w", pid, err)
			}
		}
	}

	if len(rep.CategoryScores) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO run_scores (run_id, category, score) VALUES (?, ?, ?)`)
		if err != nil {
			return "", fmt.Errorf("prepare score insert: %w", err)
		}
		defer stmt.Close()
		for _, cs := range rep.CategoryScores {
			if _, err := stmt.Exec(id, categoryOrGeneral(cs.Category), cs.Score); err != nil {
				return "", fmt.Errorf("insert score %s: %w", cs.Category, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}
	return id, nil
}

// Load returns the stored report for a run id or label.
func (s *Store) Load(ref string) (model.ScanReport, error) {
	entry, err := s.resolve(ref)
	if err != nil {
		return model.ScanReport{}, err
	}
	var blob string
	if err := s.db.QueryRow(`SELECT report_json FROM runs WHERE id = ?`, entry.ID).Scan(&blob); err != nil {
		return model.ScanReport{}, fmt.Errorf("load run %s: %w", ref, err)
	}
	var rep model.ScanReport
	if err := json.Unmarshal([]byte(blob), &rep); err != nil {
		return model.ScanReport{}, fmt.Errorf("decode run %s: %w", ref, err)
	}
	return rep, nil
}

func categoryOrGeneral(category string) string {
	category = strings.TrimSpace(category)
	if category == "" {
		return "general"
	}
	return category
}
