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

func TestPortfolioRepositoryLinkArchiveSnapshotsSerial(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPortfolioRepository(db, time.Second)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT serial FROM archive_documents")).
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"serial"}).AddRow("12/2024"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO portfolio_documents")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	archiveID := "doc-1"
	doc := &models.PortfolioDoc{
		StudentID: "pg-1",
		Title:     "Ethics approval",
		Date:      dateutil.MustParse("2024-04-02"),
		ArchiveID: &archiveID,
	}
	require.NoError(t, repo.LinkArchive(context.Background(), doc))
	require.Equal(t, models.PortfolioDocArchiveLink, doc.Kind)
	require.NotNil(t, doc.ArchiveSerial)
	require.Equal(t, "12/2024", *doc.ArchiveSerial)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPortfolioRepositoryLinkArchiveUnknownTarget(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPortfolioRepository(db, time.Second)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT serial FROM archive_documents")).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	archiveID := "ghost"
	doc := &models.PortfolioDoc{
		StudentID: "pg-1",
		Title:     "Dangling citation",
		Date:      dateutil.MustParse("2024-04-02"),
		ArchiveID: &archiveID,
	}
	err := repo.LinkArchive(context.Background(), doc)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPortfolioRepositoryLinkArchiveRequiresID(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPortfolioRepository(db, time.Second)
	err := repo.LinkArchive(context.Background(), &models.PortfolioDoc{StudentID: "pg-1", Title: "No target"})
	require.Error(t, err)
}

func TestPortfolioRepositoryDeleteDocScopedToStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPortfolioRepository(db, time.Second)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM portfolio_documents")).
		WithArgs("pdoc-1", "other-student").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteDoc(context.Background(), "other-student", "pdoc-1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPortfolioRepositoryCountByArchiveID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPortfolioRepository(db, time.Second)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM portfolio_documents")).
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountByArchiveID(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Equal(t, 3, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
