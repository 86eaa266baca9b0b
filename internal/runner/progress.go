// Package runner drives the scrape pipeline end to end and keeps a
// process-wide progress snapshot the HTTP server can expose.
package runner

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
)

// State is the lifecycle phase of the tracked scrape.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateSuccess State = "success"
	StateError   State = "error"
)

const maxStatusTextLen = 240

// Snapshot is one observable point of the scrape lifecycle. All timestamps
// are RFC 3339 UTC.
type Snapshot struct {
	State            State  `json:"state"`
	Stage            string `json:"stage"`
	ProgressPercent  int    `json:"progress_percent"`
	Message          string `json:"message"`
	StartedAt        string `json:"started_at,omitempty"`
	UpdatedAt        string `json:"updated_at,omitempty"`
	FinishedAt       string `json:"finished_at,omitempty"`
	RunID            string `json:"run_id,omitempty"`
	Error            string `json:"error,omitempty"`
	CollectedItems   int    `json:"collected_items"`
	TranslatedItems  int    `json:"translated_items"`
	BackfilledPhotos int    `json:"backfilled_photos"`
}

// Tracker serializes progress updates from one in-flight scrape. There is
// one tracker per process; TryStart is the single-flight gate.
type Tracker struct {
	mu       sync.Mutex
	snapshot Snapshot
	now      func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		snapshot: Snapshot{State: StateIdle, Stage: "idle"},
		now:      time.Now,
	}
}

func (t *Tracker) timestamp() string {
	return t.now().UTC().Format(time.RFC3339)
}

func normalizeStatusText(value string) string {
	normalized := strings.TrimSpace(value)
	runes := []rune(normalized)
	if len(runes) <= maxStatusTextLen {
		return normalized
	}
	return string(runes[:maxStatusTextLen-3]) + "..."
}

func clampPercent(value float64) int {
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return 0
	}
	if value >= 100 {
		return 100
	}
	return int(math.Round(value))
}

// Snapshot returns a copy of the current progress state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot
}

// Running reports whether a scrape is currently in flight.
func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot.State == StateRunning
}

// TryStart transitions idle/finished trackers into the running state.
// It returns false when a scrape is already in flight.
func (t *Tracker) TryStart() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.snapshot.State == StateRunning {
		return false
	}
	ts := t.timestamp()
	t.snapshot = Snapshot{
		State:           StateRunning,
		Stage:           "initializing",
		ProgressPercent: 0,
		Message:         "Starting scrape...",
		StartedAt:       ts,
		UpdatedAt:       ts,
	}
	return true
}

// Update records a stage change. Calls outside of the running state are
// dropped; an empty message keeps the previous one.
func (t *Tracker) Update(stage string, percent float64, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.snapshot.State != StateRunning {
		return
	}
	if normalized := normalizeStatusText(stage); normalized != "" {
		t.snapshot.Stage = normalized
	}
	if normalized := normalizeStatusText(message); normalized != "" {
		t.snapshot.Message = normalized
	}
	t.snapshot.ProgressPercent = clampPercent(percent)
	t.snapshot.UpdatedAt = t.timestamp()
}

// SetCounts updates the item counters without touching stage or message.
func (t *Tracker) SetCounts(collected, translated int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.snapshot.State != StateRunning {
		return
	}
	t.snapshot.CollectedItems = collected
	t.snapshot.TranslatedItems = translated
	t.snapshot.UpdatedAt = t.timestamp()
}

// Complete marks the run successful and records its result counters.
func (t *Tracker) Complete(result Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.snapshot.State != StateRunning {
		return
	}
	ts := t.timestamp()
	t.snapshot.State = StateSuccess
	t.snapshot.Stage = "completed"
	t.snapshot.ProgressPercent = 100
	t.snapshot.Message = normalizeStatusText(fmt.Sprintf(
		"Scrape complete. Run %s. Backfilled %d photo(s).",
		result.Run.RunID, result.Backfill.UpdatedPhotos))
	t.snapshot.RunID = result.Run.RunID
	t.snapshot.CollectedItems = result.CollectedItems
	t.snapshot.TranslatedItems = result.TranslatedItems
	t.snapshot.BackfilledPhotos = result.Backfill.UpdatedPhotos
	t.snapshot.UpdatedAt = ts
	t.snapshot.FinishedAt = ts
}

// Fail marks the run failed, freezing the progress bar where it was.
func (t *Tracker) Fail(errMessage string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.snapshot.State != StateRunning {
		return
	}
	ts := t.timestamp()
	t.snapshot.State = StateError
	t.snapshot.Stage = "failed"
	if t.snapshot.ProgressPercent <= 0 {
		t.snapshot.ProgressPercent = 1
	}
	t.snapshot.Message = "Scrape failed."
	t.snapshot.Error = normalizeStatusText(errMessage)
	t.snapshot.UpdatedAt = ts
	t.snapshot.FinishedAt = ts
}
