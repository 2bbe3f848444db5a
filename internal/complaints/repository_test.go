package complaints

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "grievance-intake/internal/common/errors"
	"grievance-intake/internal/common/logger"
	"grievance-intake/internal/intake"
)

var complaintRows = []string{
	"id", "ticket_number", "name", "email", "phone",
	"description", "address", "d.name", "status", "image_path", "created_at",
}

func TestRepository_InitSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS departments").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS complaints").WillReturnResult(sqlmock.NewResult(0, 0))
	for i := 0; i < 14; i++ {
		mock.ExpectExec("INSERT INTO departments").WillReturnResult(sqlmock.NewResult(0, 1))
	}

	repo := NewRepository(db, nil, logger.NewTestLogger(t))
	require.NoError(t, repo.InitSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rdb, cacheMock := redismock.NewClientMock()

	created := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("Asha Rao", "asha@example.com", "9876543210").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	cacheMock.ExpectGet("dept:Water").RedisNil()
	mock.ExpectQuery("SELECT id FROM departments WHERE name").
		WithArgs("Water").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(14))
	cacheMock.ExpectSet("dept:Water", "14", departmentCacheTTL).SetVal("OK")

	mock.ExpectQuery("INSERT INTO complaints").
		WithArgs("TKT-1A2B3C4D", int64(7), int64(14), "Water pipeline burst", "Mumbai, India", "uploads/TKT-1A2B3C4D.jpg", StatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(42, created))

	repo := NewRepository(db, rdb, logger.NewTestLogger(t))

	sub := intake.Submission{Name: "Asha Rao", Email: "asha@example.com", Phone: "9876543210"}
	v := intake.ValidatedIntake{
		TicketNumber:    "TKT-1A2B3C4D",
		Description:     "Water pipeline burst",
		FinalAddress:    "Mumbai, India",
		DepartmentName:  "Water",
		ImageStoredPath: "uploads/TKT-1A2B3C4D.jpg",
	}

	c, err := repo.Create(context.Background(), sub, v)
	require.NoError(t, err)
	assert.Equal(t, int64(42), c.ID)
	assert.Equal(t, "TKT-1A2B3C4D", c.TicketNumber)
	assert.Equal(t, StatusPending, c.Status)
	assert.Equal(t, created, c.CreatedAt)

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, cacheMock.ExpectationsWereMet())
}

func TestRepository_Create_DepartmentFromCache(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rdb, cacheMock := redismock.NewClientMock()

	mock.ExpectQuery("INSERT INTO users").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	cacheMock.ExpectGet("dept:Electrical").SetVal("4")
	mock.ExpectQuery("INSERT INTO complaints").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))

	repo := NewRepository(db, rdb, logger.NewTestLogger(t))
	_, err = repo.Create(context.Background(),
		intake.Submission{Name: "n", Email: "e@x.com"},
		intake.ValidatedIntake{TicketNumber: "TKT-00000001", DepartmentName: "Electrical"})
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, cacheMock.ExpectationsWereMet())
}

func TestRepository_TrackByTicket_Miss(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) WHERE c.ticket_number").
		WithArgs("TKT-ZZZZZZZZ").
		WillReturnError(sql.ErrNoRows)

	repo := NewRepository(db, nil, logger.NewTestLogger(t))
	_, err = repo.TrackByTicket(context.Background(), "TKT-ZZZZZZZZ")
	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeTicketNotFound, stderrors.CodeOf(err))
	assert.Contains(t, stderrors.MessageOf(err), "not found")
}

func TestRepository_TrackByTicket_DatabaseHit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rdb, cacheMock := redismock.NewClientMock()
	created := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	cacheMock.ExpectGet("ticket:TKT-1A2B3C4D").RedisNil()
	mock.ExpectQuery("SELECT (.+) WHERE c.ticket_number").
		WithArgs("TKT-1A2B3C4D").
		WillReturnRows(sqlmock.NewRows(complaintRows).
			AddRow(42, "TKT-1A2B3C4D", "Asha Rao", "asha@example.com", "9876543210",
				"Water pipeline burst", "Mumbai, India", "Water", StatusPending, "uploads/TKT-1A2B3C4D.jpg", created))
	expected := Complaint{
		ID: 42, TicketNumber: "TKT-1A2B3C4D", UserName: "Asha Rao",
		UserEmail: "asha@example.com", UserPhone: "9876543210",
		Description: "Water pipeline burst", Address: "Mumbai, India",
		DepartmentName: "Water", Status: StatusPending,
		ImagePath: "uploads/TKT-1A2B3C4D.jpg", CreatedAt: created,
	}
	payload, err := json.Marshal(expected)
	require.NoError(t, err)
	cacheMock.ExpectSet("ticket:TKT-1A2B3C4D", payload, ticketCacheTTL).SetVal("OK")

	repo := NewRepository(db, rdb, logger.NewTestLogger(t))
	c, err := repo.TrackByTicket(context.Background(), "TKT-1A2B3C4D")
	require.NoError(t, err)
	assert.Equal(t, expected, c)

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, cacheMock.ExpectationsWereMet())
}

func TestRepository_TrackByTicket_CacheHit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rdb, cacheMock := redismock.NewClientMock()

	cached := Complaint{ID: 42, TicketNumber: "TKT-1A2B3C4D", Status: StatusInProgress}
	payload, err := json.Marshal(cached)
	require.NoError(t, err)
	cacheMock.ExpectGet("ticket:TKT-1A2B3C4D").SetVal(string(payload))

	repo := NewRepository(db, rdb, logger.NewTestLogger(t))
	c, err := repo.TrackByTicket(context.Background(), "TKT-1A2B3C4D")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, c.Status)

	// No SQL expectations: a cache hit must not touch the database.
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, cacheMock.ExpectationsWereMet())
}

func TestRepository_List_Filters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("AND d.name = $1 AND c.status = $2 AND (c.ticket_number ILIKE $3 OR u.name ILIKE $3 OR c.description ILIKE $3)")).
		WithArgs("Water", StatusPending, "%leak%").
		WillReturnRows(sqlmock.NewRows(complaintRows).
			AddRow(1, "TKT-00000001", "A", "a@x.com", "", "leaking pipe", "addr", "Water", StatusPending, "", created).
			AddRow(2, "TKT-00000002", "B", "b@x.com", "", "water leak", "addr", "Water", StatusPending, "", created))

	repo := NewRepository(db, nil, logger.NewTestLogger(t))
	out, err := repo.List(context.Background(), Filter{Department: "Water", Status: StatusPending, Search: "leak"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "TKT-00000001", out[0].TicketNumber)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_List_NoFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("ORDER BY c.created_at DESC").
		WillReturnRows(sqlmock.NewRows(complaintRows))

	repo := NewRepository(db, nil, logger.NewTestLogger(t))
	out, err := repo.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRepository_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rdb, cacheMock := redismock.NewClientMock()
	created := time.Now()

	mock.ExpectQuery("UPDATE complaints SET status").
		WithArgs(StatusResolved, int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"ticket_number"}).AddRow("TKT-1A2B3C4D"))
	cacheMock.ExpectDel("ticket:TKT-1A2B3C4D").SetVal(1)
	mock.ExpectQuery("SELECT (.+) WHERE c.id").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(complaintRows).
			AddRow(42, "TKT-1A2B3C4D", "Asha Rao", "asha@example.com", "",
				"desc", "addr", "Water", StatusResolved, "", created))

	repo := NewRepository(db, rdb, logger.NewTestLogger(t))
	c, err := repo.UpdateStatus(context.Background(), 42, StatusResolved)
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, c.Status)
	assert.Equal(t, "asha@example.com", c.UserEmail)

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, cacheMock.ExpectationsWereMet())
}

func TestRepository_UpdateStatus_InvalidStatus(t *testing.T) {
	repo := NewRepository(nil, nil, logger.NewTestLogger(t))
	_, err := repo.UpdateStatus(context.Background(), 1, "Closed")
	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeInvalidStatus, stderrors.CodeOf(err))
}

func TestRepository_Reports(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT status, COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow(StatusPending, 3).
			AddRow(StatusResolved, 5))
	mock.ExpectQuery("LEFT JOIN complaints").
		WillReturnRows(sqlmock.NewRows([]string{"name", "count"}).
			AddRow("Water", 6).
			AddRow("Electrical", 2).
			AddRow("IT", 0))

	repo := NewRepository(db, nil, logger.NewTestLogger(t))
	report, err := repo.Reports(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, report.Total)
	assert.Equal(t, 3, report.ByStatus[StatusPending])
	assert.Equal(t, 6, report.ByDepartment["Water"])
	assert.Equal(t, 0, report.ByDepartment["IT"])
}

func TestRepository_Create_InsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(errors.New("connection reset"))

	repo := NewRepository(db, nil, logger.NewTestLogger(t))
	_, err = repo.Create(context.Background(),
		intake.Submission{Name: "n", Email: "e@x.com"},
		intake.ValidatedIntake{TicketNumber: "TKT-00000001", DepartmentName: "Water"})
	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeComplaintInsertFailed, stderrors.CodeOf(err))
}
