package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/dept-records-api/internal/models"
)

const portfolioDocColumns = `id, student_id, title, doc_date, kind, url, archive_id, archive_serial, created_at`

// PortfolioRepository persists the digital portfolio: published papers and
// other documents (uploads or archive citations).
type PortfolioRepository struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPortfolioRepository constructs the repository.
func NewPortfolioRepository(db *sqlx.DB, timeout time.Duration) *PortfolioRepository {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PortfolioRepository{db: db, timeout: timeout}
}

func (r *PortfolioRepository) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// LinkArchive inserts an ARCHIVE_LINK entry. The referenced document row is
// read under FOR SHARE in the same transaction, so a concurrent delete of
// that document either sees this link or blocks until the link is durable.
// Returns sql.ErrNoRows when the archive id does not resolve; in that case
// no partial entry is created.
func (r *PortfolioRepository) LinkArchive(ctx context.Context, doc *models.PortfolioDoc) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	if doc.ArchiveID == nil || *doc.ArchiveID == "" {
		return fmt.Errorf("link archive: archive id required")
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	doc.Kind = models.PortfolioDocArchiveLink
	doc.CreatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return translateErr("begin link tx", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var serial string
	err = tx.GetContext(ctx, &serial, `SELECT serial FROM archive_documents WHERE id = $1 FOR SHARE`, *doc.ArchiveID)
	if err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return translateErr("resolve archive target", err)
	}
	doc.ArchiveSerial = &serial

	_, err = tx.NamedExecContext(ctx, `INSERT INTO portfolio_documents
		(id, student_id, title, doc_date, kind, url, archive_id, archive_serial, created_at)
		VALUES (:id, :student_id, :title, :doc_date, :kind, :url, :archive_id, :archive_serial, :created_at)`, doc)
	if err != nil {
		return translateErr("insert archive link", err)
	}

	if err = tx.Commit(); err != nil {
		return translateErr("commit link tx", err)
	}
	return nil
}

// CreateUpload inserts an UPLOAD entry pointing at a stored artifact.
func (r *PortfolioRepository) CreateUpload(ctx context.Context, doc *models.PortfolioDoc) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	if doc.URL == nil || *doc.URL == "" {
		return fmt.Errorf("create upload: url required")
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	doc.Kind = models.PortfolioDocUpload
	doc.ArchiveID = nil
	doc.ArchiveSerial = nil
	doc.CreatedAt = time.Now().UTC()

	_, err := r.db.NamedExecContext(ctx, `INSERT INTO portfolio_documents
		(id, student_id, title, doc_date, kind, url, archive_id, archive_serial, created_at)
		VALUES (:id, :student_id, :title, :doc_date, :kind, :url, :archive_id, :archive_serial, :created_at)`, doc)
	if err != nil {
		return translateErr("insert upload doc", err)
	}
	return nil
}

// GetDoc fetches one portfolio entry scoped to its student.
func (r *PortfolioRepository) GetDoc(ctx context.Context, studentID, docID string) (*models.PortfolioDoc, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	var doc models.PortfolioDoc
	query := fmt.Sprintf(`SELECT %s FROM portfolio_documents WHERE id = $1 AND student_id = $2`, portfolioDocColumns)
	if err := r.db.GetContext(ctx, &doc, query, docID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, translateErr("get portfolio doc", err)
	}
	return &doc, nil
}

// ListDocs returns all portfolio entries for a student, newest first.
func (r *PortfolioRepository) ListDocs(ctx context.Context, studentID string) ([]models.PortfolioDoc, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM portfolio_documents WHERE student_id = $1 ORDER BY created_at DESC`, portfolioDocColumns)
	var docs []models.PortfolioDoc
	if err := r.db.SelectContext(ctx, &docs, query, studentID); err != nil {
		return nil, translateErr("list portfolio docs", err)
	}
	return docs, nil
}

// DeleteDoc detaches one entry from a student's portfolio. The archive
// register is never touched.
func (r *PortfolioRepository) DeleteDoc(ctx context.Context, studentID, docID string) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM portfolio_documents WHERE id = $1 AND student_id = $2`, docID, studentID)
	if err != nil {
		return translateErr("delete portfolio doc", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return translateErr("check portfolio delete rows", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByArchiveID reports how many portfolio entries cite a document.
func (r *PortfolioRepository) CountByArchiveID(ctx context.Context, archiveID string) (int, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM portfolio_documents WHERE archive_id = $1`, archiveID); err != nil {
		return 0, translateErr("count archive references", err)
	}
	return count, nil
}

// AddPaper appends one published paper.
func (r *PortfolioRepository) AddPaper(ctx context.Context, paper *models.PublishedPaper) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	if paper.ID == "" {
		paper.ID = uuid.NewString()
	}
	paper.CreatedAt = time.Now().UTC()

	_, err := r.db.NamedExecContext(ctx, `INSERT INTO published_papers
		(id, student_id, title, url, paper_date, created_at)
		VALUES (:id, :student_id, :title, :url, :paper_date, :created_at)`, paper)
	if err != nil {
		return translateErr("insert paper", err)
	}
	return nil
}

// DeletePaper removes one published paper scoped to its student.
func (r *PortfolioRepository) DeletePaper(ctx context.Context, studentID, paperID string) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM published_papers WHERE id = $1 AND student_id = $2`, paperID, studentID)
	if err != nil {
		return translateErr("delete paper", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return translateErr("check paper delete rows", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListPapers returns a student's published papers, newest first.
func (r *PortfolioRepository) ListPapers(ctx context.Context, studentID string) ([]models.PublishedPaper, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	var papers []models.PublishedPaper
	err := r.db.SelectContext(ctx, &papers,
		`SELECT id, student_id, title, url, paper_date, created_at FROM published_papers WHERE student_id = $1 ORDER BY paper_date DESC`,
		studentID)
	if err != nil {
		return nil, translateErr("list papers", err)
	}
	return papers, nil
}
