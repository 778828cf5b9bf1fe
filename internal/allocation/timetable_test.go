package allocation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/resource-allocator/pkg/errors"
)

func timetableFixture() TimetableInput {
	return TimetableInput{
		Demand: []DemandItem{
			{SubjectID: "s1", SubjectName: "Data Structures", FacultyID: "f1", HoursPerWeek: 4},
			{SubjectID: "s2", SubjectName: "Operating Systems", FacultyID: "f2", HoursPerWeek: 3},
			{SubjectID: "s3", SubjectName: "Networks Lab", FacultyID: "f1", HoursPerWeek: 2},
		},
		RoomIDs:  []string{"r1", "r2"},
		Semester: 5,
		Section:  "A",
	}
}

func assertNoDoubleBooking(t *testing.T, placements []Placement) {
	t.Helper()
	faculty := map[string]bool{}
	rooms := map[string]bool{}
	for _, p := range placements {
		fk := p.FacultyID + "|" + p.Key().String()
		rk := p.RoomID + "|" + p.Key().String()
		assert.False(t, faculty[fk], "faculty double booked: %s", fk)
		assert.False(t, rooms[rk], "room double booked: %s", rk)
		faculty[fk] = true
		rooms[rk] = true
	}
	assert.Empty(t, DetectConflicts(placements))
}

func TestGenerateTimetablePlacesAllHours(t *testing.T) {
	result, err := GenerateTimetable(timetableFixture())
	require.NoError(t, err)

	assert.Empty(t, result.Conflicts)
	assert.Equal(t, 4, result.PlacedHours("s1"))
	assert.Equal(t, 3, result.PlacedHours("s2"))
	assert.Equal(t, 2, result.PlacedHours("s3"))
	assertNoDoubleBooking(t, result.Placements)

	first := result.Placements[0]
	assert.Equal(t, "Monday", first.Day)
	assert.Equal(t, "09:00", first.StartTime)
	assert.Equal(t, "r1", first.RoomID)
	assert.Equal(t, 5, first.Semester)
	assert.Equal(t, "A", first.Section)
	assert.Equal(t, KindLecture, first.Kind)
}

func TestGenerateTimetableSharesSlotAcrossRoomsForDifferentFaculty(t *testing.T) {
	in := TimetableInput{
		Demand: []DemandItem{
			{SubjectID: "s1", SubjectName: "Data Structures", FacultyID: "f1", HoursPerWeek: 1},
			{SubjectID: "s2", SubjectName: "Operating Systems", FacultyID: "f2", HoursPerWeek: 1},
		},
		RoomIDs:  []string{"r1", "r2"},
		Semester: 5,
		Section:  "A",
	}

	result, err := GenerateTimetable(in)
	require.NoError(t, err)
	require.Empty(t, result.Conflicts)
	require.Len(t, result.Placements, 2)

	second := result.Placements[1]
	assert.Equal(t, "s2", second.SubjectID)
	assert.Equal(t, "Monday", second.Day)
	assert.Equal(t, "09:00", second.StartTime)
	assert.Equal(t, "r2", second.RoomID)
	assertNoDoubleBooking(t, result.Placements)
}

func TestGenerateTimetableFillsBothRoomsWhenDemandExceedsOneRoom(t *testing.T) {
	in := TimetableInput{
		Demand: []DemandItem{
			{SubjectID: "s1", FacultyID: "f1", HoursPerWeek: 10},
			{SubjectID: "s2", FacultyID: "f2", HoursPerWeek: 10},
			{SubjectID: "s3", FacultyID: "f3", HoursPerWeek: 10},
			{SubjectID: "s4", FacultyID: "f4", HoursPerWeek: 10},
		},
		RoomIDs:  []string{"r1", "r2"},
		Semester: 5,
		Section:  "A",
	}

	result, err := GenerateTimetable(in)
	require.NoError(t, err)
	assert.Empty(t, result.Conflicts)
	assert.Len(t, result.Placements, 40)
	for _, id := range []string{"s1", "s2", "s3", "s4"} {
		assert.Equal(t, 10, result.PlacedHours(id), id)
	}
	assertNoDoubleBooking(t, result.Placements)
}

func TestGenerateTimetableReportsDeficitWhenFacultyHasThreeFreeSlots(t *testing.T) {
	catalog := DefaultCatalog()
	commitments := make([]Placement, 0)
	for i, key := range catalog.Keys() {
		if i < 3 {
			continue
		}
		commitments = append(commitments, Placement{
			Day: key.Day, StartTime: key.Start, EndTime: key.End,
			SubjectID: "other", FacultyID: "f1", RoomID: "elsewhere", Semester: 3, Section: "B",
		})
	}
	in := TimetableInput{
		Demand:      []DemandItem{{SubjectID: "s1", SubjectName: "Data Structures", FacultyID: "f1", HoursPerWeek: 4}},
		RoomIDs:     []string{"r1"},
		Semester:    5,
		Section:     "A",
		Commitments: commitments,
	}

	result, err := GenerateTimetable(in)
	require.NoError(t, err)
	assert.Len(t, result.Placements, 3)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "3/4 hours for Data Structures", result.Conflicts[0].Message)
	assert.Equal(t, 1, result.Conflicts[0].Deficit())
	assert.Equal(t, []string{"3/4 hours for Data Structures"}, result.ConflictMessages())
}

func TestGenerateTimetableDeficitMatchesGridCapacity(t *testing.T) {
	in := TimetableInput{
		Demand: []DemandItem{
			{SubjectID: "s1", FacultyID: "f1", HoursPerWeek: 30},
			{SubjectID: "s2", FacultyID: "f2", HoursPerWeek: 10},
		},
		RoomIDs:  []string{"r1"},
		Semester: 1,
		Section:  "A",
	}
	result, err := GenerateTimetable(in)
	require.NoError(t, err)

	assert.Equal(t, 30, result.PlacedHours("s1"))
	assert.Equal(t, 6, result.PlacedHours("s2"))
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "s2", result.Conflicts[0].SubjectID)
	assert.Equal(t, 10, result.Conflicts[0].Placed+result.Conflicts[0].Deficit())
	assert.Equal(t, "6/10 hours for s2", result.Conflicts[0].Message)
}

func TestGenerateTimetableCommitmentsBlockRooms(t *testing.T) {
	in := timetableFixture()
	in.Demand = []DemandItem{{SubjectID: "s1", FacultyID: "f1", HoursPerWeek: 1}}
	in.Commitments = []Placement{
		{Day: "Monday", StartTime: "09:00", EndTime: "10:00", FacultyID: "f9", RoomID: "r1", Semester: 3, Section: "A"},
	}

	result, err := GenerateTimetable(in)
	require.NoError(t, err)
	require.Len(t, result.Placements, 1)
	assert.Equal(t, "r2", result.Placements[0].RoomID)
	assert.Equal(t, "Monday", result.Placements[0].Day)
}

func TestGenerateTimetableIgnoresCommitmentsOfOwnScope(t *testing.T) {
	in := timetableFixture()
	in.Demand = []DemandItem{{SubjectID: "s1", FacultyID: "f1", HoursPerWeek: 1}}
	in.Commitments = []Placement{
		{Day: "Monday", StartTime: "09:00", EndTime: "10:00", FacultyID: "f1", RoomID: "r1", Semester: 5, Section: "a"},
	}

	result, err := GenerateTimetable(in)
	require.NoError(t, err)
	require.Len(t, result.Placements, 1)
	assert.Equal(t, "09:00", result.Placements[0].StartTime)
	assert.Equal(t, "r1", result.Placements[0].RoomID)
}

func TestGenerateTimetableDepartmentHourPicksBusiestSlot(t *testing.T) {
	in := TimetableInput{
		Demand: []DemandItem{
			{SubjectID: "s1", FacultyID: "f1", HoursPerWeek: 2},
			{SubjectID: "s2", FacultyID: "f2", HoursPerWeek: 1},
		},
		RoomIDs:  []string{"r1"},
		Semester: 5,
		Section:  "A",
		Commitments: []Placement{
			{Day: "Wednesday", StartTime: "14:00", EndTime: "15:00", FacultyID: "f7", RoomID: "x1", Semester: 3, Section: "A"},
			{Day: "Wednesday", StartTime: "14:00", EndTime: "15:00", FacultyID: "f8", RoomID: "x2", Semester: 3, Section: "B"},
			{Day: "Thursday", StartTime: "09:00", EndTime: "10:00", FacultyID: "f9", RoomID: "x3", Semester: 7, Section: "A"},
		},
		DepartmentHour: &DepartmentHour{SubjectID: "dh", SubjectName: "Department Hour"},
	}

	result, err := GenerateTimetable(in)
	require.NoError(t, err)
	require.Empty(t, result.Conflicts)

	dh := result.Placements[len(result.Placements)-1]
	assert.Equal(t, KindDepartmentHour, dh.Kind)
	assert.Equal(t, "dh", dh.SubjectID)
	assert.Equal(t, "Wednesday", dh.Day)
	assert.Equal(t, "14:00", dh.StartTime)
	assert.Equal(t, "r1", dh.RoomID)
	// f1 teaches two hours, f2 one: the lighter load takes the period.
	assert.Equal(t, "f2", dh.FacultyID)
	assertNoDoubleBooking(t, result.Placements)
}

func TestGenerateTimetableDepartmentHourTieBreaksOnFirstSlot(t *testing.T) {
	in := TimetableInput{
		Demand:         []DemandItem{{SubjectID: "s1", FacultyID: "f1", HoursPerWeek: 1}},
		RoomIDs:        []string{"r1"},
		Semester:       5,
		Section:        "A",
		DepartmentHour: &DepartmentHour{SubjectID: "dh"},
	}

	result, err := GenerateTimetable(in)
	require.NoError(t, err)
	require.Len(t, result.Placements, 2)

	// Monday 09:00 is taken by the lecture and is the only slot where someone is busy,
	// so every open slot scores zero and the first one wins.
	dh := result.Placements[1]
	assert.Equal(t, "Monday", dh.Day)
	assert.Equal(t, "10:00", dh.StartTime)
	assert.Equal(t, "f1", dh.FacultyID)
}

func TestGenerateTimetableDepartmentHourConflictWhenGridFull(t *testing.T) {
	in := TimetableInput{
		Catalog:        Catalog{Days: []string{"Monday"}, Periods: []Period{{Start: "09:00", End: "10:00"}}},
		Demand:         []DemandItem{{SubjectID: "s1", FacultyID: "f1", HoursPerWeek: 1}},
		RoomIDs:        []string{"r1"},
		Semester:       5,
		Section:        "A",
		DepartmentHour: &DepartmentHour{SubjectID: "dh", SubjectName: "Department Hour"},
	}

	result, err := GenerateTimetable(in)
	require.NoError(t, err)
	assert.Len(t, result.Placements, 1)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "0/1 hours for Department Hour", result.Conflicts[0].Message)
}

func TestGenerateTimetableIsDeterministic(t *testing.T) {
	in := timetableFixture()
	in.DepartmentHour = &DepartmentHour{SubjectID: "dh"}

	first, err := GenerateTimetable(in)
	require.NoError(t, err)
	second, err := GenerateTimetable(in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerateTimetableRejectsInvalidInput(t *testing.T) {
	cases := map[string]func(*TimetableInput){
		"no subjects":    func(in *TimetableInput) { in.Demand = nil },
		"no rooms":       func(in *TimetableInput) { in.RoomIDs = []string{""} },
		"no section":     func(in *TimetableInput) { in.Section = " " },
		"zero semester":  func(in *TimetableInput) { in.Semester = 0 },
		"no faculty":     func(in *TimetableInput) { in.Demand[0].FacultyID = "" },
		"negative hours": func(in *TimetableInput) { in.Demand[0].HoursPerWeek = -1 },
		"bad catalog":    func(in *TimetableInput) { in.Catalog = Catalog{Days: []string{"Monday"}} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := timetableFixture()
			mutate(&in)
			_, err := GenerateTimetable(in)
			require.Error(t, err)
			assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))
		})
	}
}

func TestDetectConflictsFlagsDoubleBooking(t *testing.T) {
	placements := []Placement{
		{Day: "Monday", StartTime: "09:00", EndTime: "10:00", FacultyID: "f1", RoomID: "r1"},
		{Day: "Monday", StartTime: "09:00", EndTime: "10:00", FacultyID: "f1", RoomID: "r2"},
		{Day: "Monday", StartTime: "10:00", EndTime: "11:00", FacultyID: "f2", RoomID: "r2"},
	}
	assert.Equal(t, []string{"CONFLICT: faculty:f1:Monday:09:00 has 2 overlapping assignments"}, DetectConflicts(placements))
}
