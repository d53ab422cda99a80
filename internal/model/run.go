package model

import "time"

// Run statuses.
const (
	RunOK     = "ok"
	RunFailed = "failed"
)

// SyncRun is one audit row describing a sync engine invocation: which
// domain ran, when, what it changed and how it ended.
type SyncRun struct {
	ID         string // uuid
	Domain     string
	StartedAt  time.Time
	FinishedAt time.Time
	Pages      int
	Inserted   int
	Updated    int
	Skipped    int
	Status     string
	Error      string
}
