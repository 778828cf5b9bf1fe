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

func TestFacultyRepositoryListActiveByDepartment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFacultyRepository(db)

	active := true
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "employee_code", "name", "email", "department_id", "designation", "max_weekly_load", "current_load", "invigilation_count", "is_active", "created_at", "updated_at"}).
		AddRow("f1", "E-01", "Asha", "asha@example.edu", "dept-1", "Lecturer", 18, 12, 2, true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM faculty WHERE department_id = $1 AND is_active = $2 ORDER BY name ASC, id ASC")).
		WithArgs("dept-1", true).
		WillReturnRows(rows)

	faculty, err := repo.List(context.Background(), models.FacultyFilter{DepartmentID: "dept-1", Active: &active})
	require.NoError(t, err)
	require.Len(t, faculty, 1)
	require.Equal(t, 2, faculty[0].InvigilationCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFacultyRepositoryInvigilationCounters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFacultyRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("SET invigilation_count = GREATEST(invigilation_count - 1, 0)")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET invigilation_count = invigilation_count + 1")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.DecrementInvigilationCount(context.Background(), nil, []string{"f1"}))
	require.NoError(t, repo.IncrementInvigilationCount(context.Background(), nil, []string{"f1", "f2"}))
	require.NoError(t, repo.IncrementInvigilationCount(context.Background(), nil, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryListByTypes(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	available := true
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "room_number", "building", "capacity", "department_id", "room_type", "is_available", "created_at", "updated_at"}).
		AddRow("r1", "A-101", "Main", 30, nil, "EXAM_HALL", true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM rooms WHERE room_type = ANY($1) AND is_available = $2 ORDER BY room_number ASC, id ASC")).
		WithArgs(sqlmock.AnyArg(), true).
		WillReturnRows(rows)

	rooms, err := repo.List(context.Background(), models.RoomFilter{Types: []models.RoomType{models.RoomTypeClassroom, models.RoomTypeExamHall}, Available: &available})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	require.Nil(t, rooms[0].DepartmentID)
	require.NoError(t, mock.ExpectationsWereMet())
}
