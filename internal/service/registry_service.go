package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/dept-records-api/internal/dto"
	"github.com/noah-isme/dept-records-api/internal/models"
	"github.com/noah-isme/dept-records-api/pkg/dateutil"
	appErrors "github.com/noah-isme/dept-records-api/pkg/errors"
	"github.com/noah-isme/dept-records-api/pkg/storage"
)

// Actor identifies the authenticated caller for authorization checks and
// the audit trail.
type Actor struct {
	UserID    string
	Role      models.UserRole
	IP        string
	UserAgent string
}

type documentStore interface {
	Create(ctx context.Context, doc *models.ArchiveDocument, year int) error
	GetByID(ctx context.Context, id string) (*models.ArchiveDocument, error)
	List(ctx context.Context, filter models.DocumentFilter) ([]models.ArchiveDocument, int, error)
	Update(ctx context.Context, id string, update models.DocumentUpdate) error
	Delete(ctx context.Context, id string) error
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type artifactStore interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

// RegistryService implements the archive register: serial-stamped document
// records across the four categories.
type RegistryService struct {
	docs   documentStore
	audit  auditWriter
	files  artifactStore
	signer *storage.SignedURLSigner
	logger *zap.Logger

	validate *validator.Validate
	now      func() time.Time
}

// NewRegistryService wires the registry service.
func NewRegistryService(docs documentStore, audit auditWriter, files artifactStore, signer *storage.SignedURLSigner, logger *zap.Logger) *RegistryService {
	return &RegistryService{
		docs:     docs,
		audit:    audit,
		files:    files,
		signer:   signer,
		logger:   logger,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Create registers a new document. The serial is allocated inside the store
// transaction; the register year is the year of creation, not of the
// document's own date.
func (s *RegistryService) Create(ctx context.Context, actor Actor, req dto.CreateDocumentRequest) (*models.ArchiveDocument, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	category := models.DocumentCategory(strings.ToUpper(strings.TrimSpace(req.Category)))
	if !category.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown category %q", req.Category))
	}
	docDate, err := dateutil.Parse(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject must not be blank")
	}

	doc := &models.ArchiveDocument{
		Category:  category,
		Date:      docDate,
		Subject:   subject,
		Notes:     trimPtr(req.Notes),
		Sender:    trimPtr(req.Sender),
		Recipient: trimPtr(req.Recipient),
		CreatedBy: actor.UserID,
	}

	year := s.now().UTC().Year()
	if err := s.docs.Create(ctx, doc, year); err != nil {
		return nil, err
	}

	s.logger.Info("document registered",
		zap.String("document_id", doc.ID),
		zap.String("category", string(doc.Category)),
		zap.String("serial", doc.Serial))
	s.writeAudit(ctx, actor, models.AuditActionDocumentCreate, doc.ID, nil, doc)
	return doc, nil
}

// Get returns one register entry by id.
func (s *RegistryService) Get(ctx context.Context, id string) (*models.ArchiveDocument, error) {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return doc, nil
}

// List returns register entries matching the filter with a total count.
func (s *RegistryService) List(ctx context.Context, filter dto.DocumentListFilter) ([]models.ArchiveDocument, int, error) {
	modelFilter := models.DocumentFilter{
		Keyword:  strings.TrimSpace(filter.Keyword),
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}
	if raw := strings.TrimSpace(filter.Category); raw != "" {
		category := models.DocumentCategory(strings.ToUpper(raw))
		if !category.Valid() {
			return nil, 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown category %q", raw))
		}
		modelFilter.Category = category
	}
	if raw := strings.TrimSpace(filter.DateFrom); raw != "" {
		from, err := dateutil.Parse(raw)
		if err != nil {
			return nil, 0, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		modelFilter.DateFrom = &from
	}
	if raw := strings.TrimSpace(filter.DateTo); raw != "" {
		to, err := dateutil.Parse(raw)
		if err != nil {
			return nil, 0, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		modelFilter.DateTo = &to
	}
	if modelFilter.DateFrom != nil && modelFilter.DateTo != nil && modelFilter.DateTo.Before(*modelFilter.DateFrom) {
		return nil, 0, appErrors.Clone(appErrors.ErrValidation, "dateTo precedes dateFrom")
	}
	return s.docs.List(ctx, modelFilter)
}

// Update modifies the mutable fields of a register entry. Category and
// serial changes are rejected outright rather than ignored.
func (s *RegistryService) Update(ctx context.Context, actor Actor, id string, req dto.UpdateDocumentRequest) (*models.ArchiveDocument, error) {
	if req.Category != nil {
		return nil, appErrors.Clone(appErrors.ErrImmutableField, "category cannot be changed after creation")
	}
	if req.Serial != nil {
		return nil, appErrors.Clone(appErrors.ErrImmutableField, "serial cannot be changed after creation")
	}

	before, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}

	var update models.DocumentUpdate
	if req.Date != nil {
		docDate, err := dateutil.Parse(*req.Date)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		update.Date = &docDate
	}
	if req.Subject != nil {
		subject := strings.TrimSpace(*req.Subject)
		if subject == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "subject must not be blank")
		}
		update.Subject = &subject
	}
	update.Notes = req.Notes
	update.Sender = req.Sender
	update.Recipient = req.Recipient

	if update.Empty() {
		return before, nil
	}
	if err := s.docs.Update(ctx, id, update); err != nil {
		return nil, mapNotFound(err)
	}

	after, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	s.writeAudit(ctx, actor, models.AuditActionDocumentUpdate, id, before, after)
	return after, nil
}

// Delete removes a register entry. Restricted to administrators; the role
// is re-checked here so the route table is not the only guard. The store
// rejects the delete while portfolio links still cite the document.
func (s *RegistryService) Delete(ctx context.Context, actor Actor, id string) error {
	if actor.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only administrators may delete register entries")
	}

	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return mapNotFound(err)
	}
	if err := s.docs.Delete(ctx, id); err != nil {
		return mapNotFound(err)
	}

	if doc.FileURL != nil && *doc.FileURL != "" {
		if err := s.files.Delete(*doc.FileURL); err != nil {
			s.logger.Warn("orphaned artifact after document delete",
				zap.String("document_id", id), zap.Error(err))
		}
	}

	s.logger.Info("document deleted",
		zap.String("document_id", id), zap.String("serial", doc.Serial))
	s.writeAudit(ctx, actor, models.AuditActionDocumentDelete, id, doc, nil)
	return nil
}

// AttachFile stores a scanned artifact and points the register entry at it.
// The artifact lands on disk first; if the metadata write fails the stored
// file is removed again.
func (s *RegistryService) AttachFile(ctx context.Context, actor Actor, id, filename string, r io.Reader) (*models.ArchiveDocument, error) {
	before, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}

	relPath := path.Join("archive", id, uuid.NewString()+sanitizeExt(filename))
	if _, err := s.files.SaveStream(relPath, r); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "store artifact")
	}

	update := models.DocumentUpdate{FileURL: &relPath}
	if err := s.docs.Update(ctx, id, update); err != nil {
		if cleanupErr := s.files.Delete(relPath); cleanupErr != nil {
			s.logger.Warn("orphaned artifact after failed attach",
				zap.String("document_id", id), zap.Error(cleanupErr))
		}
		return nil, mapNotFound(err)
	}

	if before.FileURL != nil && *before.FileURL != "" && *before.FileURL != relPath {
		if err := s.files.Delete(*before.FileURL); err != nil {
			s.logger.Warn("stale artifact not removed",
				zap.String("document_id", id), zap.Error(err))
		}
	}

	after, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	s.writeAudit(ctx, actor, models.AuditActionDocumentUpdate, id, before, after)
	return after, nil
}

// DownloadURL issues a signed, expiring token for the attached artifact.
func (s *RegistryService) DownloadURL(ctx context.Context, id string) (*dto.DocumentDownloadResponse, error) {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if doc.FileURL == nil || *doc.FileURL == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "document has no attached file")
	}
	token, _, err := s.signer.Generate(doc.ID, *doc.FileURL)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "sign download url")
	}
	return &dto.DocumentDownloadResponse{
		ID:          doc.ID,
		Serial:      doc.Serial,
		DownloadURL: token,
	}, nil
}

// OpenFile validates a signed token and opens the referenced artifact.
func (s *RegistryService) OpenFile(token string) (*os.File, string, error) {
	recordID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}
	file, err := s.files.Open(relPath)
	if err != nil {
		s.logger.Warn("signed token references missing artifact",
			zap.String("document_id", recordID), zap.Error(err))
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "artifact no longer available")
	}
	return file, path.Base(relPath), nil
}

func (s *RegistryService) writeAudit(ctx context.Context, actor Actor, action, resourceID string, oldValue, newValue interface{}) {
	log := &models.AuditLog{
		Action:    action,
		Resource:  "archive_document",
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
	}
	if actor.UserID != "" {
		log.UserID = &actor.UserID
	}
	if resourceID != "" {
		log.ResourceID = &resourceID
	}
	if oldValue != nil {
		log.OldValues, _ = json.Marshal(oldValue)
	}
	if newValue != nil {
		log.NewValues, _ = json.Marshal(newValue)
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.ErrNotFound
	}
	return err
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func sanitizeExt(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	switch ext {
	case ".pdf", ".png", ".jpg", ".jpeg", ".doc", ".docx":
		return ext
	default:
		return ".bin"
	}
}
