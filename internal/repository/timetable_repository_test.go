package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/resource-allocator/internal/models"
)

func TestTimetableRepositoryReplaceScope(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetables WHERE department_id = $1 AND semester = $2 AND section = $3")).
		WithArgs("dept-1", 3, "A").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetables")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_slots")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_slots")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)

	timetable := &models.Timetable{DepartmentID: "dept-1", Semester: 3, Section: "A", Generator: models.TimetableGeneratorBase}
	slots := []models.TimetableSlot{
		{Day: "Monday", StartTime: "09:00", EndTime: "10:00", SubjectID: "s1", FacultyID: "f1", RoomID: "r1", Kind: "LECTURE"},
		{Day: "Monday", StartTime: "10:00", EndTime: "11:00", SubjectID: "s2", FacultyID: "f2", RoomID: "r1", Kind: "LECTURE"},
	}
	require.NoError(t, repo.ReplaceScope(context.Background(), tx, timetable, slots))
	require.NoError(t, tx.Commit())

	require.NotEmpty(t, timetable.ID)
	require.Equal(t, "{}", timetable.Meta.String())
	for _, slot := range slots {
		require.Equal(t, timetable.ID, slot.TimetableID)
		require.NotEmpty(t, slot.ID)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryReplaceScopeRequiresScope(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	err := NewTimetableRepository(db).ReplaceScope(context.Background(), nil, &models.Timetable{DepartmentID: "dept-1"}, nil)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryListDepartmentSlotsExcludesScope(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	rows := sqlmock.NewRows([]string{"id", "timetable_id", "day", "start_time", "end_time", "subject_id", "faculty_id", "room_id", "kind", "created_at", "semester", "section"}).
		AddRow("slot-1", "tt-2", "Monday", "09:00", "10:00", "s9", "f1", "r1", "LECTURE", time.Now(), 3, "B")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE t.department_id = $1 AND NOT (t.semester = $2 AND t.section = $3)")).
		WithArgs("dept-1", 3, "A").
		WillReturnRows(rows)

	slots, err := repo.ListDepartmentSlots(context.Background(), "dept-1", &models.TimetableScope{DepartmentID: "dept-1", Semester: 3, Section: "A"})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	require.Equal(t, "B", slots[0].Section)
	require.Equal(t, "f1", slots[0].FacultyID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryListRoomSlotsSpansOtherDepartments(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	rows := sqlmock.NewRows([]string{"id", "timetable_id", "day", "start_time", "end_time", "subject_id", "faculty_id", "room_id", "kind", "created_at"}).
		AddRow("slot-7", "tt-mech", "Monday", "09:00", "10:00", "m101", "m-7", "r1", "LECTURE", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.room_id = ANY($1) AND t.department_id <> $2")).
		WithArgs(sqlmock.AnyArg(), "dept-1").
		WillReturnRows(rows)

	slots, err := repo.ListRoomSlots(context.Background(), []string{"r1", "r2"}, "dept-1")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	require.Equal(t, "r1", slots[0].RoomID)
	require.NoError(t, mock.ExpectationsWereMet())

	none, err := repo.ListRoomSlots(context.Background(), nil, "dept-1")
	require.NoError(t, err)
	require.Empty(t, none)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryListSlotsOrdersByWeekday(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_slots WHERE timetable_id = $1 ORDER BY CASE day WHEN 'Monday' THEN 1")).
		WithArgs("tt-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "timetable_id", "day", "start_time", "end_time", "subject_id", "faculty_id", "room_id", "kind", "created_at"}))

	slots, err := repo.ListSlots(context.Background(), "tt-1")
	require.NoError(t, err)
	require.Empty(t, slots)
	require.NoError(t, mock.ExpectationsWereMet())
}
