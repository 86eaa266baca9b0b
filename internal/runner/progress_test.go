package runner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"avtopress/internal/model"
)

func TestTrackerStartsIdle(t *testing.T) {
	tracker := NewTracker()
	snapshot := tracker.Snapshot()

	assert.Equal(t, StateIdle, snapshot.State)
	assert.Equal(t, "idle", snapshot.Stage)
	assert.False(t, tracker.Running())
}

func TestTryStartIsSingleFlight(t *testing.T) {
	tracker := NewTracker()

	assert.True(t, tracker.TryStart())
	assert.False(t, tracker.TryStart())
	assert.True(t, tracker.Running())

	snapshot := tracker.Snapshot()
	assert.Equal(t, StateRunning, snapshot.State)
	assert.Equal(t, "initializing", snapshot.Stage)
	assert.Equal(t, "Starting scrape...", snapshot.Message)
	assert.NotEmpty(t, snapshot.StartedAt)

	tracker.Complete(Result{Run: model.RunSummary{RunID: "r1"}})
	assert.True(t, tracker.TryStart())
}

func TestUpdateClampsAndKeepsMessage(t *testing.T) {
	tracker := NewTracker()
	tracker.TryStart()

	tracker.Update("collecting", 140, "Collecting items from 3 source(s)...")
	snapshot := tracker.Snapshot()
	assert.Equal(t, 100, snapshot.ProgressPercent)
	assert.Equal(t, "collecting", snapshot.Stage)

	tracker.Update("collecting", -5, "")
	snapshot = tracker.Snapshot()
	assert.Zero(t, snapshot.ProgressPercent)
	assert.Equal(t, "Collecting items from 3 source(s)...", snapshot.Message)

	tracker.Update("translating", 62.4, "Translating item 5/10")
	assert.Equal(t, 62, tracker.Snapshot().ProgressPercent)
}

func TestUpdateIgnoredOutsideRunningState(t *testing.T) {
	tracker := NewTracker()
	tracker.Update("collecting", 30, "should not land")

	snapshot := tracker.Snapshot()
	assert.Equal(t, StateIdle, snapshot.State)
	assert.Empty(t, snapshot.Message)
}

func TestLongMessagesAreTruncated(t *testing.T) {
	tracker := NewTracker()
	tracker.TryStart()

	tracker.Update("collecting", 20, strings.Repeat("x", 400))
	message := tracker.Snapshot().Message
	assert.Len(t, message, maxStatusTextLen)
	assert.True(t, strings.HasSuffix(message, "..."))
}

func TestCompleteRecordsResult(t *testing.T) {
	tracker := NewTracker()
	tracker.TryStart()

	tracker.Complete(Result{
		Run:             model.RunSummary{RunID: "2024-08-12T11-00-00Z"},
		CollectedItems:  7,
		TranslatedItems: 7,
	})

	snapshot := tracker.Snapshot()
	assert.Equal(t, StateSuccess, snapshot.State)
	assert.Equal(t, "completed", snapshot.Stage)
	assert.Equal(t, 100, snapshot.ProgressPercent)
	assert.Equal(t, "Scrape complete. Run 2024-08-12T11-00-00Z. Backfilled 0 photo(s).", snapshot.Message)
	assert.Equal(t, "2024-08-12T11-00-00Z", snapshot.RunID)
	assert.Equal(t, 7, snapshot.CollectedItems)
	assert.NotEmpty(t, snapshot.FinishedAt)
}

func TestFailFreezesProgress(t *testing.T) {
	tracker := NewTracker()
	tracker.TryStart()
	tracker.Update("saving", 80, "Saving run outputs...")

	tracker.Fail("save output: disk full")

	snapshot := tracker.Snapshot()
	assert.Equal(t, StateError, snapshot.State)
	assert.Equal(t, "failed", snapshot.Stage)
	assert.Equal(t, 80, snapshot.ProgressPercent)
	assert.Equal(t, "Scrape failed.", snapshot.Message)
	assert.Equal(t, "save output: disk full", snapshot.Error)
}

func TestFailBeforeAnyProgressShowsMinimalBar(t *testing.T) {
	tracker := NewTracker()
	tracker.TryStart()

	tracker.Fail("load sources: no such file")
	assert.Equal(t, 1, tracker.Snapshot().ProgressPercent)
}

func TestStageProgress(t *testing.T) {
	assert.InDelta(t, 10.0, stageProgress(0, 4, 10, 45), 0.001)
	assert.InDelta(t, 45.0, stageProgress(4, 4, 10, 45), 0.001)
	assert.InDelta(t, 27.5, stageProgress(2, 4, 10, 45), 0.001)
	// Zero totals never divide by zero.
	assert.InDelta(t, 50.0, stageProgress(0, 0, 50, 75), 0.001)
}

func TestProgressTitleTruncation(t *testing.T) {
	short := "BMW M5"
	assert.Equal(t, short, progressTitle(short))

	long := strings.Repeat("a", 100)
	got := progressTitle(long)
	assert.Len(t, got, progressTitleLimit+3)
	assert.True(t, strings.HasSuffix(got, "..."))
}
