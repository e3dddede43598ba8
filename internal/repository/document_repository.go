package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/dept-records-api/internal/models"
	appErrors "github.com/noah-isme/dept-records-api/pkg/errors"
)

const documentColumns = `id, category, serial, doc_date, subject, notes, sender, recipient, file_url, created_by, created_at, updated_at`

// DocumentRepository handles archive register persistence, including serial
// allocation. Serials follow ledger semantics: the per-(category, year)
// counter only ever increases, so deleting a document never frees its slot.
type DocumentRepository struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewDocumentRepository constructs the repository. The timeout bounds every
// store round trip so no caller can hang on a wedged connection.
func NewDocumentRepository(db *sqlx.DB, timeout time.Duration) *DocumentRepository {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DocumentRepository{db: db, timeout: timeout}
}

func (r *DocumentRepository) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// Create allocates the next serial for (category, year) and inserts the
// document in the same transaction. Two concurrent creates for the same
// category serialise on the counter row, so duplicate serials cannot be
// handed out.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.ArchiveDocument, year int) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return translateErr("begin create document tx", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var sequence int
	err = tx.GetContext(ctx, &sequence, `INSERT INTO serial_counters (category, year, value)
		VALUES ($1, $2, 1)
		ON CONFLICT (category, year) DO UPDATE SET value = serial_counters.value + 1
		RETURNING value`, doc.Category, year)
	if err != nil {
		return translateErr("allocate serial", err)
	}
	doc.Serial = fmt.Sprintf("%d/%d", sequence, year)

	_, err = tx.NamedExecContext(ctx, `INSERT INTO archive_documents
		(id, category, serial, doc_date, subject, notes, sender, recipient, file_url, created_by, created_at, updated_at)
		VALUES (:id, :category, :serial, :doc_date, :subject, :notes, :sender, :recipient, :file_url, :created_by, :created_at, :updated_at)`, doc)
	if err != nil {
		return translateErr("insert document", err)
	}

	if err = tx.Commit(); err != nil {
		return translateErr("commit create document tx", err)
	}
	return nil
}

// GetByID retrieves one register entry.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.ArchiveDocument, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	var doc models.ArchiveDocument
	query := fmt.Sprintf(`SELECT %s FROM archive_documents WHERE id = $1`, documentColumns)
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, translateErr("get document", err)
	}
	return &doc, nil
}

// List returns register entries applying the filter conjunctively, newest
// document date first, with total count for pagination.
func (r *DocumentRepository) List(ctx context.Context, filter models.DocumentFilter) ([]models.ArchiveDocument, int, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	var conditions []string
	var args []interface{}

	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		conditions = append(conditions, fmt.Sprintf("doc_date >= $%d", len(args)))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		conditions = append(conditions, fmt.Sprintf("doc_date <= $%d", len(args)))
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		args = append(args, "%"+strings.ToLower(keyword)+"%")
		idx := len(args)
		conditions = append(conditions, fmt.Sprintf(
			`(LOWER(subject) LIKE $%d OR LOWER(serial) LIKE $%d OR LOWER(COALESCE(notes, '')) LIKE $%d OR LOWER(COALESCE(sender, '')) LIKE $%d OR LOWER(COALESCE(recipient, '')) LIKE $%d)`,
			idx, idx, idx, idx, idx))
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM archive_documents%s ORDER BY doc_date DESC, serial DESC LIMIT %d OFFSET %d`,
		documentColumns, clause, size, offset)

	var docs []models.ArchiveDocument
	if err := r.db.SelectContext(ctx, &docs, query, args...); err != nil {
		return nil, 0, translateErr("list documents", err)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM archive_documents" + clause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, translateErr("count documents", err)
	}
	return docs, total, nil
}

// Update applies the mutable fields only. Category and serial never appear
// in the SET clause; immutability is enforced before this call.
func (r *DocumentRepository) Update(ctx context.Context, id string, update models.DocumentUpdate) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	sets := make([]string, 0, 7)
	args := make([]interface{}, 0, 8)
	args = append(args, id)

	appendSet := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Date != nil {
		appendSet("doc_date", *update.Date)
	}
	if update.Subject != nil {
		appendSet("subject", *update.Subject)
	}
	if update.Notes != nil {
		appendSet("notes", nullable(*update.Notes))
	}
	if update.Sender != nil {
		appendSet("sender", nullable(*update.Sender))
	}
	if update.Recipient != nil {
		appendSet("recipient", nullable(*update.Recipient))
	}
	if update.FileURL != nil {
		appendSet("file_url", nullable(*update.FileURL))
	}
	if len(sets) == 0 {
		return nil
	}
	appendSet("updated_at", time.Now().UTC())

	query := fmt.Sprintf("UPDATE archive_documents SET %s WHERE id = $1", strings.Join(sets, ", "))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return translateErr("update document", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return translateErr("check document update rows", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a register entry unless a portfolio link still cites it.
// The reference check runs inside the delete transaction so a concurrent
// link cannot slip between check and removal; the foreign key constraint
// on portfolio_documents.archive_id is the backstop.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return translateErr("begin delete document tx", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var refs int
	if err = tx.GetContext(ctx, &refs, `SELECT COUNT(*) FROM portfolio_documents WHERE archive_id = $1`, id); err != nil {
		return translateErr("count document references", err)
	}
	if refs > 0 {
		err = appErrors.Clone(appErrors.ErrReferentialIntegrity, fmt.Sprintf("document is cited by %d portfolio entries", refs))
		return err
	}

	res, execErr := tx.ExecContext(ctx, `DELETE FROM archive_documents WHERE id = $1`, id)
	if execErr != nil {
		err = translateErr("delete document", execErr)
		return err
	}
	affected, raErr := res.RowsAffected()
	if raErr != nil {
		err = translateErr("check document delete rows", raErr)
		return err
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return translateErr("commit delete document tx", err)
	}
	return nil
}

func nullable(value string) interface{} {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
