package allocation

import (
	"math"
	"sort"
	"time"

	"github.com/samber/lo"

	appErrors "github.com/noah-isme/resource-allocator/pkg/errors"
)

// LeaveType distinguishes whole-day absences from a time window inside a day.
type LeaveType string

const (
	LeaveFullDay LeaveType = "FULL_DAY"
	LeavePartial LeaveType = "PARTIAL"
)

// Candidate is a faculty member who might cover a class.
type Candidate struct {
	FacultyID    string `json:"facultyId" mapstructure:"facultyId"`
	Name         string `json:"name" mapstructure:"name"`
	DepartmentID string `json:"departmentId" mapstructure:"departmentId"`
	Active       bool   `json:"isActive" mapstructure:"isActive"`
}

// LeaveWindow is one approved or pending absence.
type LeaveWindow struct {
	FacultyID string    `json:"facultyId" mapstructure:"facultyId"`
	Type      LeaveType `json:"leaveType" mapstructure:"leaveType"`
	StartDate time.Time `json:"startDate" mapstructure:"startDate"`
	EndDate   time.Time `json:"endDate" mapstructure:"endDate"`
	StartTime string    `json:"startTime,omitempty" mapstructure:"startTime"`
	EndTime   string    `json:"endTime,omitempty" mapstructure:"endTime"`
}

// Validate checks the date range and, for partial leaves, the time window.
func (l LeaveWindow) Validate() error {
	if l.FacultyID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "leave requires a faculty id")
	}
	if l.StartDate.IsZero() || l.EndDate.IsZero() {
		return appErrors.Clone(appErrors.ErrValidation, "leave requires start and end dates")
	}
	if dayOf(l.EndDate).Before(dayOf(l.StartDate)) {
		return appErrors.Clone(appErrors.ErrValidation, "leave ends before it starts")
	}
	switch l.Type {
	case LeaveFullDay:
		return nil
	case LeavePartial:
		start, err := parseClock(l.StartTime)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leave start time")
		}
		end, err := parseClock(l.EndTime)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leave end time")
		}
		if end <= start {
			return appErrors.Clone(appErrors.ErrValidation, "leave end time must be after start time")
		}
		return nil
	default:
		return appErrors.Clone(appErrors.ErrValidation, "leave type must be FULL_DAY or PARTIAL")
	}
}

// Blocks reports whether the leave makes its owner unavailable on date between start and end.
func (l LeaveWindow) Blocks(date time.Time, start, end string) bool {
	return l.blocks(date, date, start, end)
}

// blocks reports whether the leave removes its owner from a slot on the given dates.
func (l LeaveWindow) blocks(from, to time.Time, start, end string) bool {
	if !datesOverlap(l.StartDate, l.EndDate, from, to) {
		return false
	}
	if l.Type != LeavePartial {
		return true
	}
	return timesOverlap(l.StartTime, l.EndTime, start, end)
}

// SubstituteQuery describes one class slot needing cover.
type SubstituteQuery struct {
	DepartmentID     string    `json:"departmentId" mapstructure:"departmentId"`
	ExcludeFacultyID string    `json:"excludeFacultyId" mapstructure:"excludeFacultyId"`
	Day              string    `json:"day" mapstructure:"day"`
	StartTime        string    `json:"startTime" mapstructure:"startTime"`
	EndTime          string    `json:"endTime" mapstructure:"endTime"`
	FromDate         time.Time `json:"fromDate" mapstructure:"fromDate"`
	ToDate           time.Time `json:"toDate" mapstructure:"toDate"`
}

func (q SubstituteQuery) validate() error {
	if q.DepartmentID == "" || q.Day == "" {
		return appErrors.Clone(appErrors.ErrValidation, "department and day are required")
	}
	if !timesValid(q.StartTime, q.EndTime) {
		return appErrors.Clone(appErrors.ErrValidation, "slot requires a valid start and end time")
	}
	if q.FromDate.IsZero() || q.ToDate.IsZero() || dayOf(q.ToDate).Before(dayOf(q.FromDate)) {
		return appErrors.Clone(appErrors.ErrValidation, "slot requires a valid date range")
	}
	return nil
}

func timesValid(start, end string) bool {
	s, err1 := parseClock(start)
	e, err2 := parseClock(end)
	return err1 == nil && err2 == nil && e > s
}

// ScoredCandidate is a candidate with the number of classes already taught that day.
type ScoredCandidate struct {
	Candidate
	DayLoad int `json:"dayLoad"`
}

// RankSubstitutes orders eligible cover for one slot, least loaded first, keeping input order
// on ties. Candidates on leave or teaching at an overlapping time are left out.
func RankSubstitutes(q SubstituteQuery, faculty []Candidate, timetable []Placement, leaves []LeaveWindow) ([]ScoredCandidate, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}

	type scored struct {
		candidate Candidate
		score     float64
	}
	pool := lo.Filter(faculty, func(c Candidate, _ int) bool {
		return c.Active && c.DepartmentID == q.DepartmentID && c.FacultyID != q.ExcludeFacultyID
	})
	scores := lo.Map(pool, func(c Candidate, _ int) scored {
		onLeave := lo.SomeBy(leaves, func(l LeaveWindow) bool {
			return l.FacultyID == c.FacultyID && l.blocks(q.FromDate, q.ToDate, q.StartTime, q.EndTime)
		})
		if onLeave {
			return scored{candidate: c, score: math.Inf(1)}
		}
		sameDay := lo.Filter(timetable, func(p Placement, _ int) bool {
			return p.FacultyID == c.FacultyID && p.Day == q.Day
		})
		teaching := lo.SomeBy(sameDay, func(p Placement) bool {
			return timesOverlap(p.StartTime, p.EndTime, q.StartTime, q.EndTime)
		})
		if teaching {
			return scored{candidate: c, score: math.Inf(1)}
		}
		return scored{candidate: c, score: float64(len(sameDay))}
	})

	eligible := lo.Filter(scores, func(s scored, _ int) bool { return !math.IsInf(s.score, 1) })
	sort.SliceStable(eligible, func(i, j int) bool { return eligible[i].score < eligible[j].score })

	return lo.Map(eligible, func(s scored, _ int) ScoredCandidate {
		return ScoredCandidate{Candidate: s.candidate, DayLoad: int(s.score)}
	}), nil
}

// FindSubstitute returns the best cover for one slot, or false when nobody qualifies.
func FindSubstitute(q SubstituteQuery, faculty []Candidate, timetable []Placement, leaves []LeaveWindow) (ScoredCandidate, bool, error) {
	ranked, err := RankSubstitutes(q, faculty, timetable, leaves)
	if err != nil || len(ranked) == 0 {
		return ScoredCandidate{}, false, err
	}
	return ranked[0], true, nil
}

// AffectedSlot is a class the absent faculty member would have taught on a given date.
type AffectedSlot struct {
	Date time.Time `json:"date"`
	Placement
}

// AffectedSlots expands a leave into the concrete classes it cancels. Full-day leaves cover
// every date in range; partial leaves cover the start date's classes overlapping the window.
func AffectedSlots(leave LeaveWindow, timetable []Placement) []AffectedSlot {
	own := lo.Filter(timetable, func(p Placement, _ int) bool { return p.FacultyID == leave.FacultyID })
	affected := make([]AffectedSlot, 0)

	if leave.Type == LeavePartial {
		date := dayOf(leave.StartDate)
		weekday := date.Weekday().String()
		for _, p := range own {
			if p.Day == weekday && timesOverlap(p.StartTime, p.EndTime, leave.StartTime, leave.EndTime) {
				affected = append(affected, AffectedSlot{Date: date, Placement: p})
			}
		}
		return affected
	}

	last := dayOf(leave.EndDate)
	for date := dayOf(leave.StartDate); !date.After(last); date = date.AddDate(0, 0, 1) {
		weekday := date.Weekday().String()
		for _, p := range own {
			if p.Day == weekday {
				affected = append(affected, AffectedSlot{Date: date, Placement: p})
			}
		}
	}
	return affected
}

// ResolvedSlot pairs an affected class with its substitute, if one was found.
type ResolvedSlot struct {
	AffectedSlot
	Substitute *ScoredCandidate `json:"substitute,omitempty"`
}

// ResolveLeave finds cover for every class a leave cancels. Each slot is resolved on its own,
// so one absence can be covered by different colleagues across the day.
func ResolveLeave(leave LeaveWindow, departmentID string, faculty []Candidate, timetable []Placement, leaves []LeaveWindow) ([]ResolvedSlot, error) {
	if err := leave.Validate(); err != nil {
		return nil, err
	}
	slots := AffectedSlots(leave, timetable)
	resolved := make([]ResolvedSlot, 0, len(slots))
	for _, slot := range slots {
		q := SubstituteQuery{
			DepartmentID:     departmentID,
			ExcludeFacultyID: leave.FacultyID,
			Day:              slot.Day,
			StartTime:        slot.StartTime,
			EndTime:          slot.EndTime,
			FromDate:         slot.Date,
			ToDate:           slot.Date,
		}
		best, ok, err := FindSubstitute(q, faculty, timetable, leaves)
		if err != nil {
			return nil, err
		}
		entry := ResolvedSlot{AffectedSlot: slot}
		if ok {
			entry.Substitute = &best
		}
		resolved = append(resolved, entry)
	}
	return resolved, nil
}
