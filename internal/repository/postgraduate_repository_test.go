package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dept-records-api/internal/models"
	"github.com/noah-isme/dept-records-api/pkg/dateutil"
)

func TestPostgraduateRepositoryUpdateDatesRejectsUnknownColumn(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPostgraduateRepository(db, time.Second)

	d := dateutil.MustParse("2024-03-10")
	err := repo.UpdateDates(context.Background(), "pg-1", map[string]*dateutil.Date{"status": &d})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown column")
}

func TestPostgraduateRepositoryUpdateDatesWritesReportAndDeadlineTogether(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPostgraduateRepository(db, time.Second)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE postgraduates SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	report := dateutil.MustParse("2024-03-10")
	due := report.AddMonths(6)
	err := repo.UpdateDates(context.Background(), "pg-1", map[string]*dateutil.Date{
		"last_report_date": &report,
		"next_report_due":  &due,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgraduateRepositoryUpdateDatesMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPostgraduateRepository(db, time.Second)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE postgraduates SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	d := dateutil.MustParse("2022-10-01")
	err := repo.UpdateDates(context.Background(), "missing", map[string]*dateutil.Date{"enrollment_date": &d})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgraduateRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPostgraduateRepository(db, time.Second)

	rows := sqlmock.NewRows([]string{"id", "name", "degree", "research_topic", "supervisor", "status",
		"enrollment_date", "registration_date", "last_report_date", "next_report_due", "expected_defense",
		"protocol_url", "toefl_url", "created_at", "updated_at"}).
		AddRow("pg-1", "Amira Hassan", "PHD", "Graph databases", "Dr. Osman", "RESEARCHING",
			nil, nil, nil, nil, nil, nil, nil, time.Now(), time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, degree")).
		WithArgs("PHD", "%graph%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM postgraduates")).
		WithArgs("PHD", "%graph%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.PostgraduateFilter{
		Degree: models.DegreePhD,
		Search: "Graph",
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, students, 1)
	require.Equal(t, "Amira Hassan", students[0].Name)
	require.Nil(t, students[0].LastReport)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgraduateRepositoryUpdateStatusMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPostgraduateRepository(db, time.Second)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE postgraduates SET status")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", models.StatusWriting)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
