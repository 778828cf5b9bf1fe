package allocation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := ParseDate(raw)
	require.NoError(t, err)
	return d
}

func departmentTimetable() []Placement {
	return []Placement{
		{Day: "Monday", StartTime: "10:00", EndTime: "11:00", SubjectID: "s1", FacultyID: "f0", RoomID: "r1", Semester: 5, Section: "A"},
		{Day: "Monday", StartTime: "11:15", EndTime: "12:15", SubjectID: "s1", FacultyID: "f0", RoomID: "r1", Semester: 5, Section: "A"},
		{Day: "Wednesday", StartTime: "09:00", EndTime: "10:00", SubjectID: "s1", FacultyID: "f0", RoomID: "r1", Semester: 5, Section: "A"},
		{Day: "Monday", StartTime: "14:00", EndTime: "15:00", SubjectID: "s2", FacultyID: "f1", RoomID: "r2", Semester: 3, Section: "A"},
		{Day: "Monday", StartTime: "15:00", EndTime: "16:00", SubjectID: "s2", FacultyID: "f1", RoomID: "r2", Semester: 3, Section: "A"},
		{Day: "Monday", StartTime: "09:00", EndTime: "10:00", SubjectID: "s3", FacultyID: "f2", RoomID: "r3", Semester: 7, Section: "A"},
	}
}

func departmentFaculty() []Candidate {
	return []Candidate{
		{FacultyID: "f0", DepartmentID: "cse", Active: true},
		{FacultyID: "f1", DepartmentID: "cse", Active: true},
		{FacultyID: "f2", DepartmentID: "cse", Active: true},
		{FacultyID: "f3", DepartmentID: "cse", Active: false},
		{FacultyID: "f4", DepartmentID: "ece", Active: true},
	}
}

func mondayQuery(t *testing.T) SubstituteQuery {
	monday := mustDate(t, "2024-03-04")
	return SubstituteQuery{
		DepartmentID:     "cse",
		ExcludeFacultyID: "f0",
		Day:              "Monday",
		StartTime:        "10:00",
		EndTime:          "11:00",
		FromDate:         monday,
		ToDate:           monday,
	}
}

func TestFindSubstitutePrefersLighterDay(t *testing.T) {
	best, ok, err := FindSubstitute(mondayQuery(t), departmentFaculty(), departmentTimetable(), nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "f2", best.FacultyID)
	assert.Equal(t, 1, best.DayLoad)

	ranked, err := RankSubstitutes(mondayQuery(t), departmentFaculty(), departmentTimetable(), nil)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "f1", ranked[1].FacultyID)
	assert.Equal(t, 2, ranked[1].DayLoad)
}

func TestFindSubstituteSkipsTeachingAtSameTime(t *testing.T) {
	q := mondayQuery(t)
	q.StartTime, q.EndTime = "09:30", "10:30"

	best, ok, err := FindSubstitute(q, departmentFaculty(), departmentTimetable(), nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "f1", best.FacultyID)
}

func TestFindSubstituteSkipsCandidatesOnLeave(t *testing.T) {
	monday := mustDate(t, "2024-03-04")
	leaves := []LeaveWindow{
		{FacultyID: "f2", Type: LeavePartial, StartDate: monday, EndDate: monday, StartTime: "10:30", EndTime: "11:30"},
	}
	best, ok, err := FindSubstitute(mondayQuery(t), departmentFaculty(), departmentTimetable(), leaves)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "f1", best.FacultyID)

	leaves = append(leaves, LeaveWindow{FacultyID: "f1", Type: LeaveFullDay, StartDate: monday.AddDate(0, 0, -2), EndDate: monday})
	_, ok, err = FindSubstitute(mondayQuery(t), departmentFaculty(), departmentTimetable(), leaves)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFindSubstituteIgnoresLeaveOnOtherDaysOrTimes(t *testing.T) {
	monday := mustDate(t, "2024-03-04")
	leaves := []LeaveWindow{
		{FacultyID: "f2", Type: LeaveFullDay, StartDate: monday.AddDate(0, 0, 1), EndDate: monday.AddDate(0, 0, 3)},
		{FacultyID: "f2", Type: LeavePartial, StartDate: monday, EndDate: monday, StartTime: "11:00", EndTime: "12:00"},
	}
	best, ok, err := FindSubstitute(mondayQuery(t), departmentFaculty(), departmentTimetable(), leaves)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "f2", best.FacultyID)
}

func TestFindSubstituteValidates(t *testing.T) {
	q := mondayQuery(t)
	q.EndTime = "09:00"
	_, _, err := FindSubstitute(q, departmentFaculty(), nil, nil)
	assert.Error(t, err)

	q = mondayQuery(t)
	q.FromDate = time.Time{}
	_, _, err = FindSubstitute(q, departmentFaculty(), nil, nil)
	assert.Error(t, err)
}

func TestAffectedSlotsPartialLeave(t *testing.T) {
	monday := mustDate(t, "2024-03-04")
	leave := LeaveWindow{FacultyID: "f0", Type: LeavePartial, StartDate: monday, EndDate: monday, StartTime: "10:00", EndTime: "12:00"}

	slots := AffectedSlots(leave, departmentTimetable())
	require.Len(t, slots, 2)
	assert.Equal(t, "10:00", slots[0].StartTime)
	assert.Equal(t, "11:15", slots[1].StartTime)
	assert.Equal(t, "2024-03-04", FormatDate(slots[0].Date))
}

func TestAffectedSlotsFullDayLeaveWalksDates(t *testing.T) {
	leave := LeaveWindow{FacultyID: "f0", Type: LeaveFullDay, StartDate: mustDate(t, "2024-03-04"), EndDate: mustDate(t, "2024-03-06")}

	slots := AffectedSlots(leave, departmentTimetable())
	require.Len(t, slots, 3)
	assert.Equal(t, "Monday", slots[0].Day)
	assert.Equal(t, "Monday", slots[1].Day)
	assert.Equal(t, "Wednesday", slots[2].Day)
	assert.Equal(t, "2024-03-06", FormatDate(slots[2].Date))
}

func TestResolveLeaveResolvesEachSlotIndependently(t *testing.T) {
	monday := mustDate(t, "2024-03-04")
	leave := LeaveWindow{FacultyID: "f0", Type: LeavePartial, StartDate: monday, EndDate: monday, StartTime: "10:00", EndTime: "12:00"}
	others := []LeaveWindow{
		{FacultyID: "f2", Type: LeavePartial, StartDate: monday, EndDate: monday, StartTime: "11:00", EndTime: "12:30"},
	}

	resolved, err := ResolveLeave(leave, "cse", departmentFaculty(), departmentTimetable(), others)
	require.NoError(t, err)
	require.Len(t, resolved, 2)
	require.NotNil(t, resolved[0].Substitute)
	require.NotNil(t, resolved[1].Substitute)
	assert.Equal(t, "f2", resolved[0].Substitute.FacultyID)
	assert.Equal(t, "f1", resolved[1].Substitute.FacultyID)
}

func TestResolveLeaveIsDeterministic(t *testing.T) {
	monday := mustDate(t, "2024-03-04")
	leave := LeaveWindow{FacultyID: "f0", Type: LeaveFullDay, StartDate: monday, EndDate: monday.AddDate(0, 0, 2)}
	others := []LeaveWindow{
		{FacultyID: "f2", Type: LeavePartial, StartDate: monday, EndDate: monday, StartTime: "11:00", EndTime: "12:30"},
	}

	first, err := ResolveLeave(leave, "cse", departmentFaculty(), departmentTimetable(), others)
	require.NoError(t, err)
	require.NotEmpty(t, first)
	for i := 0; i < 5; i++ {
		again, err := ResolveLeave(leave, "cse", departmentFaculty(), departmentTimetable(), others)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
func TestResolveLeaveRejectsInvalidWindow(t *testing.T) {
	monday := mustDate(t, "2024-03-04")
	_, err := ResolveLeave(LeaveWindow{FacultyID: "f0", Type: LeavePartial, StartDate: monday, EndDate: monday, StartTime: "12:00", EndTime: "10:00"}, "cse", departmentFaculty(), nil, nil)
	assert.Error(t, err)
	_, err = ResolveLeave(LeaveWindow{FacultyID: "f0", Type: LeaveFullDay, StartDate: monday, EndDate: monday.AddDate(0, 0, -1)}, "cse", departmentFaculty(), nil, nil)
	assert.Error(t, err)
	_, err = ResolveLeave(LeaveWindow{FacultyID: "f0", Type: "HALF", StartDate: monday, EndDate: monday}, "cse", departmentFaculty(), nil, nil)
	assert.Error(t, err)
}
