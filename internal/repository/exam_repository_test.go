package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/resource-allocator/internal/models"
)

var examRowColumns = []string{"id", "name", "department_id", "semester", "exam_date", "start_time", "end_time", "status", "created_at", "updated_at"}

func TestExamRepositoryFindAndListConcurrent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExamRepository(db)

	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM exams WHERE id = $1")).
		WithArgs("exam-1").
		WillReturnRows(sqlmock.NewRows(examRowColumns).
			AddRow("exam-1", "Midterm", "cse", 3, date, "10:00", "13:00", "SCHEDULED", date, date))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id <> $1 AND exam_date = $2 AND start_time < $4 AND end_time > $3")).
		WithArgs("exam-1", date, "10:00", "13:00").
		WillReturnRows(sqlmock.NewRows(examRowColumns).
			AddRow("exam-2", "Midterm", "ece", 3, date, "11:00", "12:00", "SCHEDULED", date, date))

	exam, err := repo.FindByID(context.Background(), "exam-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExamStatusScheduled, exam.Status)

	others, err := repo.ListConcurrent(context.Background(), exam.ID, exam.ExamDate, exam.StartTime, exam.EndTime)
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.Equal(t, "ece", others[0].DepartmentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExamRepositoryFindMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExamRepository(db)

	mock.ExpectQuery("FROM exams WHERE id").WillReturnError(sql.ErrNoRows)
	_, err := repo.FindByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestStudentRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE department_id = $1 AND semester = $2 ORDER BY department_id ASC, roll_number ASC")).
		WithArgs("cse", 3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "roll_number", "department_id", "semester", "section", "created_at", "updated_at"}).
			AddRow("s-1", "Arun", "CS01", "cse", 3, "A", now, now).
			AddRow("s-2", "Bina", "CS02", "cse", 3, "B", now, now))

	students, err := repo.List(context.Background(), models.StudentFilter{DepartmentID: "cse", Semester: 3})
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "CS02", students[1].RollNumber)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatingRepositoryReplaceForExam(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSeatingRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM seat_allocations WHERE exam_id = $1")).
		WithArgs("exam-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO seat_allocations")).
		WithArgs(sqlmock.AnyArg(), "exam-1", "h1", "H1", "s-1", "CS01", "H1-01", 1, 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	seats := []models.SeatAllocation{{RoomID: "h1", RoomNumber: "H1", StudentID: "s-1", RollNumber: "CS01", SeatNumber: "H1-01", SeatRow: 1, SeatCol: 1}}
	require.NoError(t, repo.ReplaceForExam(context.Background(), nil, "exam-1", seats))
	assert.NotEmpty(t, seats[0].ID)
	assert.Equal(t, "exam-1", seats[0].ExamID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInvigilationRepositoryRoster(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInvigilationRepository(db)

	backup := "f-2"
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM invigilation_duties WHERE exam_id = $1")).
		WithArgs("exam-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO invigilation_duties")).
		WithArgs(sqlmock.AnyArg(), "exam-1", "h1", "cse", "f-1", "f-2", "ASSIGNED", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	duties := []models.InvigilationDuty{{RoomID: "h1", DepartmentID: "cse", PrimaryFacultyID: "f-1", BackupFacultyID: &backup, Status: "ASSIGNED"}}
	require.NoError(t, repo.ReplaceForExam(context.Background(), nil, "exam-1", duties))

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM invigilation_duties WHERE exam_id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "exam_id", "room_id", "department_id", "primary_faculty_id", "backup_faculty_id", "status", "created_at"}).
			AddRow("d-1", "exam-2", "h2", "ece", "f-1", nil, "PARTIAL", now))

	rows, err := repo.ListByExams(context.Background(), []string{"exam-2"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].BackupFacultyID)

	empty, err := repo.ListByExams(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectAndCoverageRepositories(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	subjects := NewSubjectRepository(db)
	coverage := NewCoverageRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM subjects WHERE department_id = $1 AND semester = $2 ORDER BY code ASC, id ASC")).
		WithArgs("cse", 3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name", "department_id", "semester", "type", "hours_per_week", "faculty_id", "created_at", "updated_at"}).
			AddRow("math", "CS301", "Mathematics", "cse", 3, "THEORY", 4, "f-1", now, now).
			AddRow("lab", "CS302", "Networks Lab", "cse", 3, "LAB", 2, nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM syllabus_coverage WHERE semester = $1 AND section = $2 AND subject_id = ANY($3)")).
		WithArgs(3, "A", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "subject_id", "semester", "section", "coverage_percent", "remaining_hours", "updated_at"}).
			AddRow("c-1", "math", 3, "A", 35.5, 20, now))

	list, err := subjects.ListByDepartmentSemester(context.Background(), "cse", 3)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.NotNil(t, list[0].FacultyID)
	assert.Nil(t, list[1].FacultyID)
	assert.Equal(t, models.SubjectTypeLab, list[1].Type)

	records, err := coverage.ListForClass(context.Background(), 3, "A", []string{"math", "lab"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.InDelta(t, 35.5, records[0].CoveragePercent, 0.001)

	none, err := coverage.ListForClass(context.Background(), 3, "A", nil)
	require.NoError(t, err)
	assert.Empty(t, none)
	require.NoError(t, mock.ExpectationsWereMet())
}
