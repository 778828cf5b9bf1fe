package allocation

import (
	"math"
	"sort"

	"github.com/samber/lo"
)

const (
	// DefaultMaxPriorityHours caps a weighted subject so one backlog cannot swallow the week.
	DefaultMaxPriorityHours = 10
	defaultCoveragePercent  = 50
)

// Priority labels derived from coverage percent.
const (
	PriorityCritical = "Critical"
	PriorityHigh     = "High"
	PriorityMedium   = "Medium"
	PriorityLow      = "Low"
)

// CoverageWeight is the externally reported syllabus progress of one subject.
type CoverageWeight struct {
	Percent        float64 `json:"coveragePercent" mapstructure:"coveragePercent"`
	RemainingHours float64 `json:"remainingHours" mapstructure:"remainingHours"`
}

// WeightedDemand is a demand item after coverage weighting. HoursPerWeek holds the
// prioritised hour count handed to the placement loop.
type WeightedDemand struct {
	DemandItem
	BaseHours       int     `json:"baseHours"`
	CoveragePercent float64 `json:"coveragePercent"`
	RemainingHours  float64 `json:"remainingHours"`
	Multiplier      float64 `json:"multiplier"`
}

// PriorityReportEntry summarises one subject for operators.
type PriorityReportEntry struct {
	SubjectID      string  `json:"subjectId"`
	SubjectName    string  `json:"subjectName"`
	Coverage       float64 `json:"coverage"`
	BaseHours      int     `json:"baseHours"`
	ScheduledHours int     `json:"scheduledHours"`
	Priority       string  `json:"priority"`
}

// PriorityInput extends a timetable run with per-subject coverage keyed by subject id.
type PriorityInput struct {
	TimetableInput `mapstructure:",squash"`
	Coverage       map[string]CoverageWeight `json:"coverage" mapstructure:"coverage"`
	MaxHours       int                       `json:"maxHours" mapstructure:"maxHours"`
}

// PriorityResult is a timetable result plus the weighting applied and the operator report.
type PriorityResult struct {
	TimetableResult
	Weighted []WeightedDemand     `json:"weighted"`
	Report   []PriorityReportEntry `json:"priorityReport"`
}

// PriorityLabel buckets a coverage percent.
func PriorityLabel(coverage float64) string {
	switch {
	case coverage < 25:
		return PriorityCritical
	case coverage < 50:
		return PriorityHigh
	case coverage < 75:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// PrioritizeDemand weights hours by coverage urgency and orders items most-behind first.
// Subjects without a coverage record count as 50% covered with no remaining-hours estimate.
// With a remaining estimate the multiplier is 1 + remaining/maxRemaining, otherwise
// 1 + (100-coverage)/100. Results are capped at maxHours and stably sorted by remaining hours
// descending, then coverage ascending.
func PrioritizeDemand(items []DemandItem, coverage map[string]CoverageWeight, maxHours int) []WeightedDemand {
	if maxHours <= 0 {
		maxHours = DefaultMaxPriorityHours
	}

	weights := lo.Map(items, func(item DemandItem, _ int) CoverageWeight {
		if w, ok := coverage[item.SubjectID]; ok {
			return w
		}
		return CoverageWeight{Percent: defaultCoveragePercent}
	})
	maxRemaining := lo.Max(append(lo.Map(weights, func(w CoverageWeight, _ int) float64 {
		return w.RemainingHours
	}), 1))

	weighted := make([]WeightedDemand, len(items))
	for i, item := range items {
		w := weights[i]
		multiplier := 1 + (100-w.Percent)/100
		if w.RemainingHours > 0 {
			multiplier = 1 + w.RemainingHours/maxRemaining
		}
		hours := int(math.Round(float64(item.HoursPerWeek) * multiplier))
		if hours > maxHours {
			hours = maxHours
		}
		if hours < 0 {
			hours = 0
		}
		prioritized := item
		prioritized.HoursPerWeek = hours
		weighted[i] = WeightedDemand{
			DemandItem:      prioritized,
			BaseHours:       item.HoursPerWeek,
			CoveragePercent: w.Percent,
			RemainingHours:  w.RemainingHours,
			Multiplier:      multiplier,
		}
	}

	sort.SliceStable(weighted, func(i, j int) bool {
		if weighted[i].RemainingHours != weighted[j].RemainingHours {
			return weighted[i].RemainingHours > weighted[j].RemainingHours
		}
		return weighted[i].CoveragePercent < weighted[j].CoveragePercent
	})
	return weighted
}

// GeneratePriorityTimetable weights demand by coverage and hands it to the ordinary
// placement routine, then reports per-subject outcome.
func GeneratePriorityTimetable(in PriorityInput) (PriorityResult, error) {
	weighted := PrioritizeDemand(in.Demand, in.Coverage, in.MaxHours)

	run := in.TimetableInput
	run.Demand = lo.Map(weighted, func(w WeightedDemand, _ int) DemandItem { return w.DemandItem })
	result, err := GenerateTimetable(run)
	if err != nil {
		return PriorityResult{}, err
	}

	report := lo.Map(weighted, func(w WeightedDemand, _ int) PriorityReportEntry {
		return PriorityReportEntry{
			SubjectID:      w.SubjectID,
			SubjectName:    w.label(),
			Coverage:       w.CoveragePercent,
			BaseHours:      w.BaseHours,
			ScheduledHours: result.PlacedHours(w.SubjectID),
			Priority:       PriorityLabel(w.CoveragePercent),
		}
	})
	return PriorityResult{TimetableResult: result, Weighted: weighted, Report: report}, nil
}
