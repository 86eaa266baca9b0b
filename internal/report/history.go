package report

import (
	"encoding/json"
	"sort"
	"strings"

	"avtopress/internal/model"
)

// NormalizeRunHistory decodes a run history document, accepting either the
// current {updated_at, runs} shape or a legacy bare array of run summaries.
// Anything else yields an empty history so a corrupted file never blocks a
// run.
func NormalizeRunHistory(data []byte, fallbackISO string) model.RunHistorySnapshot {
	trimmed := strings.TrimPrefix(string(data), "\ufeff")

	var snapshot model.RunHistorySnapshot
	if err := json.Unmarshal([]byte(trimmed), &snapshot); err == nil && snapshot.Runs != nil {
		if snapshot.UpdatedAt == "" {
			snapshot.UpdatedAt = fallbackISO
		}
		snapshot.Runs = sanitizeRuns(snapshot.Runs)
		return snapshot
	}

	var runs []model.RunSummary
	if err := json.Unmarshal([]byte(trimmed), &runs); err == nil {
		return model.RunHistorySnapshot{UpdatedAt: fallbackISO, Runs: sanitizeRuns(runs)}
	}

	return model.RunHistorySnapshot{UpdatedAt: fallbackISO, Runs: []model.RunSummary{}}
}

func sanitizeRuns(runs []model.RunSummary) []model.RunSummary {
	out := make([]model.RunSummary, 0, len(runs))
	for _, run := range runs {
		if run.RunID == "" || run.RunPath == "" || run.GeneratedAt == "" {
			continue
		}
		run.SourceReports = sanitizeReports(run.SourceReports)
		if run.ResourceTotals == (model.ResourceTotals{}) {
			run.ResourceTotals = ComputeResourceTotals(run.SourceReports)
		}
		out = append(out, run)
	}
	return out
}

func sanitizeReports(reports []model.ResourceRunReport) []model.ResourceRunReport {
	out := make([]model.ResourceRunReport, 0, len(reports))
	for _, report := range reports {
		if report.SourceID == "" || report.SourceName == "" || report.FeedURL == "" {
			continue
		}
		if report.Source == "" {
			report.Source = report.SourceName
		}
		switch report.Status {
		case model.StatusOK, model.StatusEmpty, model.StatusFailed:
		default:
			report.Status = model.StatusFailed
		}
		out = append(out, report)
	}
	return out
}

// UpsertRunHistory replaces any prior summary sharing the run id and keeps
// runs ordered newest first.
func UpsertRunHistory(history model.RunHistorySnapshot, summary model.RunSummary, updatedAt string) model.RunHistorySnapshot {
	runs := make([]model.RunSummary, 0, len(history.Runs)+1)
	runs = append(runs, summary)
	for _, run := range history.Runs {
		if run.RunID != summary.RunID {
			runs = append(runs, run)
		}
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].GeneratedAt > runs[j].GeneratedAt
	})

	return model.RunHistorySnapshot{UpdatedAt: updatedAt, Runs: runs}
}
