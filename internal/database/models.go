package database

import "time"

// Run is one invocation of the recommendation pipeline.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	DryRun     bool
	Passes     int
	Updated    int
}

// Pass is the recorded outcome of one theme.
type Pass struct {
	ID             int64
	RunID          string
	Theme          string
	Kind           string
	State          string
	Updated        bool
	MatchedCount   int
	Missing        []string
	ForwardedCount int
	Error          *string
}
