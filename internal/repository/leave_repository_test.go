package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/resource-allocator/internal/models"
)

var leaveRowColumns = []string{"id", "faculty_id", "department_id", "leave_type", "start_date", "end_date", "start_time", "end_time", "reason", "status", "created_at", "updated_at"}

func TestLeaveRepositoryCreateWithSlots(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO leave_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO leave_affected_slots")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	sub := "f2"
	leave := &models.LeaveRequest{
		FacultyID:    "f1",
		DepartmentID: "dept-1",
		LeaveType:    models.LeaveTypeFullDay,
		StartDate:    date,
		EndDate:      date,
		AffectedSlots: []models.LeaveAffectedSlot{
			{SlotDate: date, Day: "Monday", StartTime: "09:00", EndTime: "10:00", SubjectID: "s1", RoomID: "r1", Semester: 3, Section: "A", SubstituteID: &sub},
		},
	}
	require.NoError(t, repo.Create(context.Background(), nil, leave))
	require.NotEmpty(t, leave.ID)
	require.Equal(t, models.LeaveStatusPending, leave.Status)
	require.Equal(t, leave.ID, leave.AffectedSlots[0].LeaveID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryListAppliesFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	status := models.LeaveStatusApproved
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM leave_requests WHERE 1=1 AND department_id = $1 AND status = $2 ORDER BY start_date DESC, created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("dept-1", status).
		WillReturnRows(sqlmock.NewRows(leaveRowColumns).
			AddRow("leave-1", "f1", "dept-1", "FULL_DAY", now, now, nil, nil, "conference", "APPROVED", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM leave_requests WHERE 1=1 AND department_id = $1 AND status = $2")).
		WithArgs("dept-1", status).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	leaves, total, err := repo.List(context.Background(), models.LeaveFilter{DepartmentID: "dept-1", Status: &status})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, leaves, 1)
	require.Nil(t, leaves[0].StartTime)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryListOverlapping(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 4)
	mock.ExpectQuery(regexp.QuoteMeta("status IN ('PENDING', 'APPROVED') AND start_date <= $2 AND end_date >= $1 AND department_id = $3")).
		WithArgs(from, to, "dept-1").
		WillReturnRows(sqlmock.NewRows(leaveRowColumns))

	leaves, err := repo.ListOverlapping(context.Background(), "dept-1", from, to)
	require.NoError(t, err)
	require.Empty(t, leaves)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryUpdateStatusMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE leave_requests SET status = $1, updated_at = $2 WHERE id = $3")).
		WithArgs(models.LeaveStatusCancelled, sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", models.LeaveStatusCancelled)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
