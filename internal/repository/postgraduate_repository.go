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
	"github.com/noah-isme/dept-records-api/pkg/dateutil"
)

const postgraduateColumns = `id, name, degree, research_topic, supervisor, status,
	enrollment_date, registration_date, last_report_date, next_report_due, expected_defense,
	protocol_url, toefl_url, created_at, updated_at`

// Timeline columns writable through UpdateDates. next_report_due is listed
// because the tracker writes the derived value together with the report
// date; callers never set it on its own.
var dateColumns = map[string]struct{}{
	"enrollment_date":   {},
	"registration_date": {},
	"last_report_date":  {},
	"next_report_due":   {},
	"expected_defense":  {},
}

// PostgraduateRepository handles researcher roster persistence.
type PostgraduateRepository struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPostgraduateRepository constructs the repository.
func NewPostgraduateRepository(db *sqlx.DB, timeout time.Duration) *PostgraduateRepository {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PostgraduateRepository{db: db, timeout: timeout}
}

func (r *PostgraduateRepository) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// Create inserts a new researcher record.
func (r *PostgraduateRepository) Create(ctx context.Context, student *models.Postgraduate) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now

	_, err := r.db.NamedExecContext(ctx, `INSERT INTO postgraduates
		(id, name, degree, research_topic, supervisor, status,
		 enrollment_date, registration_date, last_report_date, next_report_due, expected_defense,
		 protocol_url, toefl_url, created_at, updated_at)
		VALUES (:id, :name, :degree, :research_topic, :supervisor, :status,
		 :enrollment_date, :registration_date, :last_report_date, :next_report_due, :expected_defense,
		 :protocol_url, :toefl_url, :created_at, :updated_at)`, student)
	if err != nil {
		return translateErr("create postgraduate", err)
	}
	return nil
}

// GetByID retrieves one researcher row.
func (r *PostgraduateRepository) GetByID(ctx context.Context, id string) (*models.Postgraduate, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	var student models.Postgraduate
	query := fmt.Sprintf(`SELECT %s FROM postgraduates WHERE id = $1`, postgraduateColumns)
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, translateErr("get postgraduate", err)
	}
	return &student, nil
}

// List returns roster entries matching the filter with total count.
func (r *PostgraduateRepository) List(ctx context.Context, filter models.PostgraduateFilter) ([]models.Postgraduate, int, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	var conditions []string
	var args []interface{}

	if filter.Degree != "" {
		args = append(args, filter.Degree)
		conditions = append(conditions, fmt.Sprintf("degree = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		idx := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(LOWER(name) LIKE $%d OR LOWER(research_topic) LIKE $%d OR LOWER(supervisor) LIKE $%d)", idx, idx, idx))
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
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM postgraduates%s ORDER BY name ASC LIMIT %d OFFSET %d`,
		postgraduateColumns, clause, size, offset)

	var students []models.Postgraduate
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, translateErr("list postgraduates", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM postgraduates"+clause, args...); err != nil {
		return nil, 0, translateErr("count postgraduates", err)
	}
	return students, total, nil
}

// ListAll returns the whole roster. Used by the dashboard aggregation and
// the roster export, where alert flags are derived per student.
func (r *PostgraduateRepository) ListAll(ctx context.Context) ([]models.Postgraduate, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM postgraduates ORDER BY name ASC`, postgraduateColumns)
	var students []models.Postgraduate
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, translateErr("list all postgraduates", err)
	}
	return students, nil
}

// UpdateDates writes the supplied timeline columns in one statement so the
// report date and its derived deadline always land together.
func (r *PostgraduateRepository) UpdateDates(ctx context.Context, id string, updates map[string]*dateutil.Date) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	sets := make([]string, 0, len(updates)+1)
	args := make([]interface{}, 0, len(updates)+2)
	args = append(args, id)

	for column, value := range updates {
		if _, ok := dateColumns[column]; !ok {
			return fmt.Errorf("update dates: unknown column %q", column)
		}
		if value == nil {
			args = append(args, nil)
		} else {
			args = append(args, *value)
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, time.Now().UTC())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	query := fmt.Sprintf("UPDATE postgraduates SET %s WHERE id = $1", strings.Join(sets, ", "))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return translateErr("update postgraduate dates", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return translateErr("check postgraduate dates rows", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus moves a researcher through the lifecycle.
func (r *PostgraduateRepository) UpdateStatus(ctx context.Context, id string, status models.StudentStatus) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`UPDATE postgraduates SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, time.Now().UTC())
	if err != nil {
		return translateErr("update postgraduate status", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return translateErr("check postgraduate status rows", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateArtifacts sets the protocol and/or language-certificate pointers.
// Nil leaves a column untouched.
func (r *PostgraduateRepository) UpdateArtifacts(ctx context.Context, id string, protocolURL, toeflURL *string) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	sets := make([]string, 0, 3)
	args := make([]interface{}, 0, 4)
	args = append(args, id)

	if protocolURL != nil {
		args = append(args, *protocolURL)
		sets = append(sets, fmt.Sprintf("protocol_url = $%d", len(args)))
	}
	if toeflURL != nil {
		args = append(args, *toeflURL)
		sets = append(sets, fmt.Sprintf("toefl_url = $%d", len(args)))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, time.Now().UTC())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	query := fmt.Sprintf("UPDATE postgraduates SET %s WHERE id = $1", strings.Join(sets, ", "))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return translateErr("update postgraduate artifacts", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return translateErr("check postgraduate artifact rows", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
