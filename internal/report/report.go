// Package report tracks per-source health across runs: run reports, the
// run history document and the aggregated daily health snapshot.
package report

import (
	"strings"

	"avtopress/internal/model"
)

const maxErrorMessageChars = 400

// ShortError truncates an error message for storage in a run report.
func ShortError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSpace(err.Error())
	runes := []rune(msg)
	if len(runes) <= maxErrorMessageChars {
		return msg
	}
	return string(runes[:maxErrorMessageChars-3]) + "..."
}

// NewResourceReport starts a report for one source. Status begins as empty
// and is finalized once collection for the source is done.
func NewResourceReport(source model.Source) model.ResourceRunReport {
	return model.ResourceRunReport{
		SourceID:   source.ID,
		SourceName: source.Name,
		Source:     source.Source,
		SourceURL:  source.URL,
		FeedURL:    source.FeedURL,
		Status:     model.StatusEmpty,
	}
}

// FinalizeCollectedReports fills collected counts after batch dedup. Failed
// sources keep their status and report zero collected items.
func FinalizeCollectedReports(reports []model.ResourceRunReport, deduped []model.CollectedItem) []model.ResourceRunReport {
	countsBySource := make(map[string]int)
	for _, item := range deduped {
		countsBySource[item.SourceID]++
	}

	out := make([]model.ResourceRunReport, len(reports))
	for i, report := range reports {
		if report.Status == model.StatusFailed {
			report.CollectedItems = 0
			out[i] = report
			continue
		}

		collected := countsBySource[report.SourceID]
		report.CollectedItems = collected
		if collected > 0 {
			report.Status = model.StatusOK
		} else {
			report.Status = model.StatusEmpty
		}
		out[i] = report
	}
	return out
}

// ApplyFreshItemCounts records how many items per source survived the seen
// filter.
func ApplyFreshItemCounts(reports []model.ResourceRunReport, fresh []model.NewsItem) []model.ResourceRunReport {
	countsBySource := make(map[string]int)
	for _, item := range fresh {
		countsBySource[item.SourceID]++
	}

	out := make([]model.ResourceRunReport, len(reports))
	for i, report := range reports {
		report.FreshItems = countsBySource[report.SourceID]
		out[i] = report
	}
	return out
}

// ComputeResourceTotals counts sources by final status.
func ComputeResourceTotals(reports []model.ResourceRunReport) model.ResourceTotals {
	totals := model.ResourceTotals{TotalResources: len(reports)}
	for _, report := range reports {
		switch report.Status {
		case model.StatusOK:
			totals.OKResources++
		case model.StatusEmpty:
			totals.EmptyResources++
		case model.StatusFailed:
			totals.FailedResources++
		}
	}
	return totals
}
