package report

import (
	"sort"
	"strings"

	"avtopress/internal/model"
)

type dayAggregate struct {
	date           string
	runCount       int
	itemsSaved     int
	resourceChecks model.ResourceTotals
	sourceHealth   map[string]*model.DailySourceHealth
}

func sourceGroupKey(report model.ResourceRunReport) string {
	if report.SourceID != "" {
		return report.SourceID
	}
	if report.SourceName != "" {
		return strings.ToLower(report.SourceName)
	}
	return strings.ToLower(report.FeedURL)
}

func addResourceChecks(target, addition model.ResourceTotals) model.ResourceTotals {
	target.TotalResources += addition.TotalResources
	target.OKResources += addition.OKResources
	target.EmptyResources += addition.EmptyResources
	target.FailedResources += addition.FailedResources
	return target
}

func mergeSourceHealth(current *model.DailySourceHealth, report model.ResourceRunReport) *model.DailySourceHealth {
	if current == nil {
		current = &model.DailySourceHealth{
			SourceID:   report.SourceID,
			SourceName: report.SourceName,
			Source:     report.Source,
		}
	}

	switch report.Status {
	case model.StatusFailed:
		current.FailedRuns++
	case model.StatusEmpty:
		current.EmptyRuns++
	default:
		current.OKRuns++
	}
	return current
}

// BuildDailyHealthSnapshot aggregates all run summaries into per-day
// health reports. Every source observed on a day lands in exactly one
// bucket: sources with both failures and non-failures are flaky, sources
// with only failures are failed, everything else is good.
func BuildDailyHealthSnapshot(runs []model.RunSummary, generatedAt string) model.DailyHealthSnapshot {
	byDay := make(map[string]*dayAggregate)

	for _, run := range runs {
		day := model.DayFromISO(run.GeneratedAt)
		if day == "" {
			continue
		}

		aggregate := byDay[day]
		if aggregate == nil {
			aggregate = &dayAggregate{
				date:         day,
				sourceHealth: make(map[string]*model.DailySourceHealth),
			}
			byDay[day] = aggregate
		}

		aggregate.runCount++
		if run.TotalItems > 0 {
			aggregate.itemsSaved += run.TotalItems
		}

		checks := run.ResourceTotals
		if len(run.SourceReports) > 0 {
			checks = ComputeResourceTotals(run.SourceReports)
		}
		aggregate.resourceChecks = addResourceChecks(aggregate.resourceChecks, checks)

		for _, rep := range run.SourceReports {
			key := sourceGroupKey(rep)
			aggregate.sourceHealth[key] = mergeSourceHealth(aggregate.sourceHealth[key], rep)
		}
	}

	days := make([]model.DailyHealthReport, 0, len(byDay))
	for _, aggregate := range byDay {
		sources := make([]model.DailySourceHealth, 0, len(aggregate.sourceHealth))
		for _, health := range aggregate.sourceHealth {
			sources = append(sources, *health)
		}
		sort.Slice(sources, func(i, j int) bool {
			return sources[i].SourceName < sources[j].SourceName
		})

		day := model.DailyHealthReport{
			Date:            aggregate.date,
			RunCount:        aggregate.runCount,
			ItemsSaved:      aggregate.itemsSaved,
			ResourceChecks:  aggregate.resourceChecks,
			FailedResources: []model.DailySourceHealth{},
			GoodResources:   []model.DailySourceHealth{},
			FlakyResources:  []model.DailySourceHealth{},
		}

		for _, health := range sources {
			hasFailures := health.FailedRuns > 0
			hasNonFailures := health.OKRuns > 0 || health.EmptyRuns > 0

			switch {
			case hasFailures && hasNonFailures:
				day.FlakyResources = append(day.FlakyResources, health)
			case hasFailures:
				day.FailedResources = append(day.FailedResources, health)
			default:
				day.GoodResources = append(day.GoodResources, health)
			}
		}

		days = append(days, day)
	}

	sort.Slice(days, func(i, j int) bool {
		return days[i].Date > days[j].Date
	})

	return model.DailyHealthSnapshot{GeneratedAt: generatedAt, Days: days}
}
