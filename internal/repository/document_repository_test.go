package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dept-records-api/internal/models"
	"github.com/noah-isme/dept-records-api/pkg/dateutil"
	appErrors "github.com/noah-isme/dept-records-api/pkg/errors"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func documentRows(docs ...models.ArchiveDocument) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "category", "serial", "doc_date", "subject", "notes", "sender", "recipient", "file_url", "created_by", "created_at", "updated_at"})
	str := func(s *string) driver.Value {
		if s == nil {
			return nil
		}
		return *s
	}
	for _, d := range docs {
		rows.AddRow(d.ID, string(d.Category), d.Serial, d.Date.Time(), d.Subject, str(d.Notes), str(d.Sender), str(d.Recipient), str(d.FileURL), d.CreatedBy, d.CreatedAt, d.UpdatedAt)
	}
	return rows
}

func TestDocumentRepositoryCreateAllocatesSerial(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db, time.Second)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO serial_counters")).
		WithArgs("OUTGOING", 2024).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(5))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO archive_documents")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	doc := &models.ArchiveDocument{
		Category:  models.CategoryOutgoing,
		Date:      dateutil.MustParse("2024-01-15"),
		Subject:   "Lab supplies request",
		CreatedBy: "user-1",
	}
	require.NoError(t, repo.Create(context.Background(), doc, 2024))
	require.Equal(t, "5/2024", doc.Serial)
	require.NotEmpty(t, doc.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryCreateRollsBackOnInsertFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db, time.Second)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO serial_counters")).
		WithArgs("INCOMING", 2024).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO archive_documents")).
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	doc := &models.ArchiveDocument{
		Category: models.CategoryIncoming,
		Date:     dateutil.MustParse("2024-02-01"),
		Subject:  "Ministry circular",
	}
	require.Error(t, repo.Create(context.Background(), doc, 2024))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryListKeywordFilter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db, time.Second)

	rows := documentRows(models.ArchiveDocument{
		ID:       "doc-1",
		Category: models.CategoryIncoming,
		Serial:   "1/2024",
		Date:     dateutil.MustParse("2024-02-01"),
		Subject:  "Ministry circular",
	})
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, category, serial")).
		WithArgs("INCOMING", "%circular%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM archive_documents")).
		WithArgs("INCOMING", "%circular%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	docs, total, err := repo.List(context.Background(), models.DocumentFilter{
		Category: models.CategoryIncoming,
		Keyword:  "Circular",
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, docs, 1)
	require.Equal(t, "1/2024", docs[0].Serial)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryListBlankKeywordEqualsNoKeyword(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db, time.Second)

	// Blank keyword must not add a LIKE condition: only the category arg.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, category, serial")).
		WithArgs("INCOMING").
		WillReturnRows(documentRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM archive_documents")).
		WithArgs("INCOMING").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), models.DocumentFilter{
		Category: models.CategoryIncoming,
		Keyword:  "   ",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryUpdateMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db, time.Second)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE archive_documents SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	subject := "Updated subject"
	err := repo.Update(context.Background(), "missing", models.DocumentUpdate{Subject: &subject})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db, time.Second)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM portfolio_documents")).
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM archive_documents")).
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "doc-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryDeleteBlockedByReference(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db, time.Second)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM portfolio_documents")).
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "doc-1")
	require.Error(t, err)
	require.ErrorIs(t, err, appErrors.ErrReferentialIntegrity)
	require.NoError(t, mock.ExpectationsWereMet())
}
