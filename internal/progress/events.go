// Package progress carries live scan events from the pipeline to whatever
// front end is watching: the bubbletea UI, a plain stderr log, or nothing.
package progress

import "time"

type EventType string

const (
	EventRunStarted       EventType = "run_started"
	EventRunWarning       EventType = "run_warning"
	EventRunFinished      EventType = "run_finished"
	EventAnalyzerStarted  EventType = "analyzer_started"
	EventAnalyzerFinished EventType = "analyzer_finished"
	EventFileProgress     EventType = "file_progress"
)

type Event struct {
	Type       EventType `json:"type"`
	At         time.Time `json:"at"`
	RunID      string    `json:"run_id,omitempty"`
	Analyzer   string    `json:"analyzer,omitempty"`
	Status     string    `json:"status,omitempty"`
	Message    string    `json:"message,omitempty"`
	Error      string    `json:"error,omitempty"`
	Findings   int       `json:"findings,omitempty"`
	FilesDone  int       `json:"files_done,omitempty"`
	FilesTotal int       `json:"files_total,omitempty"`
	DurationMS int64     `json:"duration_ms,omitempty"`
}
