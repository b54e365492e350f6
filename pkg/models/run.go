package models

import "time"

// SolveRequest is the API/CLI input for one solver run.
type SolveRequest struct {
	N             int    `json:"n"`
	K             int    `json:"k"`
	Seed          string `json:"seed,omitempty"` // 32 hex digits; empty = random
	Strategy      string `json:"strategy"`
	TrimmedLength int    `json:"trimmedLength,omitempty"` // 0 = estimator default; untrimmed for k_tree
}

// SolutionRecord is one surviving index set.
type SolutionRecord struct {
	Kind    string   `json:"kind"` // perfect | secondary
	Indices []uint64 `json:"indices"`
}

// RunRecord is the persisted summary of a completed solver run.
type RunRecord struct {
	ID             string           `json:"id"`
	N              int              `json:"n"`
	K              int              `json:"k"`
	Seed           string           `json:"seed"`
	Strategy       string           `json:"strategy"`
	TrimmedLength  int              `json:"trimmedLength,omitempty"`
	Solutions      []SolutionRecord `json:"solutions"`
	PerfectCount   int              `json:"perfectCount"`
	SecondaryCount int              `json:"secondaryCount"`
	PredictedBits  float64          `json:"predictedBits"`
	ObservedBits   float64          `json:"observedBits"`
	DurationMs     int64            `json:"durationMs"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// ProgressEvent is the WebSocket payload broadcast per completed layer
// and at run completion.
type ProgressEvent struct {
	Type      string  `json:"type"` // layer | run_complete
	RunID     string  `json:"runId"`
	Strategy  string  `json:"strategy,omitempty"`
	Pass      int     `json:"pass,omitempty"`
	Layer     int     `json:"layer,omitempty"`
	Entries   int     `json:"entries,omitempty"`
	EntryBits int     `json:"entryBits,omitempty"`
	TotalBits float64 `json:"totalBits,omitempty"`
	Solutions int     `json:"solutions,omitempty"`
}
