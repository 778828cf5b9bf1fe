package allocation

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	appErrors "github.com/noah-isme/resource-allocator/pkg/errors"
)

// PlacementKind distinguishes ordinary lectures from the shared department hour.
type PlacementKind string

const (
	KindLecture        PlacementKind = "LECTURE"
	KindDepartmentHour PlacementKind = "DEPARTMENT_HOUR"
)

// DemandItem is a subject needing HoursPerWeek slots, taught by one faculty member.
type DemandItem struct {
	SubjectID    string `json:"subjectId" mapstructure:"subjectId"`
	SubjectName  string `json:"subjectName" mapstructure:"subjectName"`
	FacultyID    string `json:"facultyId" mapstructure:"facultyId"`
	HoursPerWeek int    `json:"hoursPerWeek" mapstructure:"hoursPerWeek"`
}

func (d DemandItem) label() string {
	if d.SubjectName != "" {
		return d.SubjectName
	}
	return d.SubjectID
}

// Placement is one resolved (slot, subject, faculty, room) assignment for a class.
type Placement struct {
	Day       string        `json:"day" mapstructure:"day"`
	StartTime string        `json:"startTime" mapstructure:"startTime"`
	EndTime   string        `json:"endTime" mapstructure:"endTime"`
	SubjectID string        `json:"subjectId" mapstructure:"subjectId"`
	FacultyID string        `json:"facultyId" mapstructure:"facultyId"`
	RoomID    string        `json:"roomId" mapstructure:"roomId"`
	Semester  int           `json:"semester" mapstructure:"semester"`
	Section   string        `json:"section" mapstructure:"section"`
	Kind      PlacementKind `json:"kind" mapstructure:"kind"`
}

// Key returns the slot the placement occupies.
func (p Placement) Key() SlotKey {
	return SlotKey{Day: p.Day, Start: p.StartTime, End: p.EndTime}
}

// Conflict reports a subject that could not receive all requested hours.
type Conflict struct {
	SubjectID   string `json:"subjectId"`
	SubjectName string `json:"subjectName"`
	Requested   int    `json:"requested"`
	Placed      int    `json:"placed"`
	Message     string `json:"message"`
}

// Deficit is the number of hours left unplaced.
func (c Conflict) Deficit() int {
	return c.Requested - c.Placed
}

// DepartmentHour names the subject record used for the shared weekly period.
type DepartmentHour struct {
	SubjectID   string `json:"subjectId" mapstructure:"subjectId"`
	SubjectName string `json:"subjectName" mapstructure:"subjectName"`
}

// TimetableInput is everything one class timetable run needs.
// Commitments are placements already held by other classes of the department; they block
// their faculty and rooms so the run never double-books across classes.
type TimetableInput struct {
	Catalog        Catalog         `json:"catalog" mapstructure:"catalog"`
	Demand         []DemandItem    `json:"demand" mapstructure:"demand"`
	RoomIDs        []string        `json:"roomIds" mapstructure:"roomIds"`
	Semester       int             `json:"semester" mapstructure:"semester"`
	Section        string          `json:"section" mapstructure:"section"`
	DepartmentHour *DepartmentHour `json:"departmentHour,omitempty" mapstructure:"departmentHour"`
	Commitments    []Placement     `json:"commitments" mapstructure:"commitments"`
}

// TimetableResult holds the placements of one run and the subjects left short.
type TimetableResult struct {
	Placements []Placement `json:"placements"`
	Conflicts  []Conflict  `json:"conflicts"`
}

// ConflictMessages flattens the conflict list into operator-facing strings.
func (r TimetableResult) ConflictMessages() []string {
	return lo.Map(r.Conflicts, func(c Conflict, _ int) string { return c.Message })
}

// PlacedHours counts lecture placements for one subject.
func (r TimetableResult) PlacedHours(subjectID string) int {
	return lo.CountBy(r.Placements, func(p Placement) bool {
		return p.Kind == KindLecture && p.SubjectID == subjectID
	})
}

func (in TimetableInput) validate() error {
	if len(in.Demand) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "at least one subject is required")
	}
	if len(lo.Compact(in.RoomIDs)) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "at least one room is required")
	}
	if in.Semester <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "semester must be positive")
	}
	if strings.TrimSpace(in.Section) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "section is required")
	}
	for i, item := range in.Demand {
		if item.SubjectID == "" || item.FacultyID == "" {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("subject at position %d needs an id and a faculty", i))
		}
		if item.HoursPerWeek < 0 {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("subject %s has negative hours", item.label()))
		}
	}
	if in.DepartmentHour != nil && in.DepartmentHour.SubjectID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "department hour requires a subject id")
	}
	return in.Catalog.orDefault().Validate()
}

// GenerateTimetable places every demand item greedily in caller order, then the optional
// department hour. Subjects that run out of attempts are reported as conflicts and never
// undo earlier placements.
func GenerateTimetable(in TimetableInput) (TimetableResult, error) {
	if err := in.validate(); err != nil {
		return TimetableResult{}, err
	}
	p := newPlacer(in)
	result := TimetableResult{Placements: make([]Placement, 0), Conflicts: make([]Conflict, 0)}

	for _, item := range in.Demand {
		placements := p.placeDemand(item)
		result.Placements = append(result.Placements, placements...)
		if len(placements) < item.HoursPerWeek {
			result.Conflicts = append(result.Conflicts, Conflict{
				SubjectID:   item.SubjectID,
				SubjectName: item.label(),
				Requested:   item.HoursPerWeek,
				Placed:      len(placements),
				Message:     fmt.Sprintf("%d/%d hours for %s", len(placements), item.HoursPerWeek, item.label()),
			})
		}
	}

	if in.DepartmentHour != nil {
		placement, ok := p.placeDepartmentHour(*in.DepartmentHour, in.Demand)
		if ok {
			result.Placements = append(result.Placements, placement)
		} else {
			name := in.DepartmentHour.SubjectName
			if name == "" {
				name = "department hour"
			}
			result.Conflicts = append(result.Conflicts, Conflict{
				SubjectID:   in.DepartmentHour.SubjectID,
				SubjectName: name,
				Requested:   1,
				Message:     fmt.Sprintf("0/1 hours for %s", name),
			})
		}
	}
	return result, nil
}

// placer owns the calendars of one run. Faculty and rooms are keyed by their ids. A lecture
// takes a slot whenever its faculty member and some room are free there; the class calendar
// only records what the run has taken so the department hour lands on an open slot.
type placer struct {
	catalog  Catalog
	roomIDs  []string
	semester int
	section  string
	faculty  *Calendar
	rooms    *Calendar
	class    *Calendar
}

const classOwner = "class"

func newPlacer(in TimetableInput) *placer {
	p := &placer{
		catalog:  in.Catalog.orDefault(),
		roomIDs:  lo.Uniq(lo.Compact(in.RoomIDs)),
		semester: in.Semester,
		section:  in.Section,
		faculty:  NewCalendar(),
		rooms:    NewCalendar(),
		class:    NewCalendar(),
	}
	for _, c := range in.Commitments {
		if c.Semester == in.Semester && strings.EqualFold(c.Section, in.Section) {
			// the run replaces its own scope
			continue
		}
		if c.FacultyID != "" {
			p.faculty.Reserve(c.FacultyID, c.Key())
		}
		if c.RoomID != "" {
			p.rooms.Reserve(c.RoomID, c.Key())
		}
	}
	return p
}

// maxAttempts bounds the walk per demand item: every slot of the grid once per room.
func (p *placer) maxAttempts() int {
	return p.catalog.Size() * lo.Max([]int{1, len(p.roomIDs)})
}

func (p *placer) firstFreeRoom(key SlotKey) (string, bool) {
	return lo.Find(p.roomIDs, func(id string) bool { return p.rooms.IsFree(id, key) })
}

func (p *placer) placeDemand(item DemandItem) []Placement {
	placed := make([]Placement, 0, item.HoursPerWeek)
	for attempt := 0; attempt < p.maxAttempts() && len(placed) < item.HoursPerWeek; attempt++ {
		key := p.catalog.At(attempt)
		if !p.faculty.IsFree(item.FacultyID, key) {
			continue
		}
		room, ok := p.firstFreeRoom(key)
		if !ok {
			continue
		}
		p.reserve(item.FacultyID, room, key)
		placed = append(placed, p.placement(key, item.SubjectID, item.FacultyID, room, KindLecture))
	}
	return placed
}

// placeDepartmentHour scores every slot still open for the class by how many faculty are
// busy there and takes the highest, first in day-major order on ties. The period goes to the
// least loaded of the class's own faculty who is free at that slot.
func (p *placer) placeDepartmentHour(dh DepartmentHour, demand []DemandItem) (Placement, bool) {
	advisors := lo.Uniq(lo.Map(demand, func(d DemandItem, _ int) string { return d.FacultyID }))

	var (
		best      SlotKey
		bestScore = -1
		found     bool
	)
	for _, key := range p.catalog.Keys() {
		if !p.class.IsFree(classOwner, key) {
			continue
		}
		if _, ok := p.firstFreeRoom(key); !ok {
			continue
		}
		if !lo.SomeBy(advisors, func(id string) bool { return p.faculty.IsFree(id, key) }) {
			continue
		}
		score := p.faculty.BusyAt(key)
		if score > bestScore {
			best, bestScore, found = key, score, true
		}
	}
	if !found {
		return Placement{}, false
	}

	advisor := ""
	lowest := -1
	for _, id := range advisors {
		if !p.faculty.IsFree(id, best) {
			continue
		}
		if load := p.faculty.Load(id); lowest < 0 || load < lowest {
			advisor, lowest = id, load
		}
	}
	room, _ := p.firstFreeRoom(best)
	p.reserve(advisor, room, best)
	return p.placement(best, dh.SubjectID, advisor, room, KindDepartmentHour), true
}

func (p *placer) reserve(facultyID, roomID string, key SlotKey) {
	p.faculty.Reserve(facultyID, key)
	p.rooms.Reserve(roomID, key)
	p.class.Reserve(classOwner, key)
}

func (p *placer) placement(key SlotKey, subjectID, facultyID, roomID string, kind PlacementKind) Placement {
	return Placement{
		Day:       key.Day,
		StartTime: key.Start,
		EndTime:   key.End,
		SubjectID: subjectID,
		FacultyID: facultyID,
		RoomID:    roomID,
		Semester:  p.semester,
		Section:   p.section,
		Kind:      kind,
	}
}

// DetectConflicts audits a placement set for faculty or room double-booking, for instance a
// department timetable assembled from several stored runs.
func DetectConflicts(placements []Placement) []string {
	type owner struct {
		kind string
		id   string
		key  SlotKey
	}
	counts := make(map[owner]int)
	order := make([]owner, 0)
	bump := func(o owner) {
		if o.id == "" {
			return
		}
		if counts[o] == 0 {
			order = append(order, o)
		}
		counts[o]++
	}
	for _, p := range placements {
		bump(owner{kind: "faculty", id: p.FacultyID, key: p.Key()})
		bump(owner{kind: "room", id: p.RoomID, key: p.Key()})
	}
	conflicts := make([]string, 0)
	for _, o := range order {
		if counts[o] > 1 {
			conflicts = append(conflicts, fmt.Sprintf("CONFLICT: %s:%s:%s:%s has %d overlapping assignments", o.kind, o.id, o.key.Day, o.key.Start, counts[o]))
		}
	}
	return conflicts
}
