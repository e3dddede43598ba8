package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
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
)

// dashboardCachePattern matches every cached dashboard aggregate. Any write
// that can change an alert flag invalidates the lot.
const dashboardCachePattern = "dashboard:*"

// Timeline fields writable through UpdateDates, keyed by their JSON names.
// nextReportDue is absent: it is derived from lastReport and rejected when
// a caller tries to set it directly.
var timelineFields = map[string]string{
	"enrollment":      "enrollment_date",
	"registration":    "registration_date",
	"lastReport":      "last_report_date",
	"expectedDefense": "expected_defense",
}

// Lifecycle transitions. COMPLETED is terminal; WRITING may fall back to
// RESEARCHING when a thesis is returned for more work.
var statusTransitions = map[models.StudentStatus][]models.StudentStatus{
	models.StatusResearching: {models.StatusWriting},
	models.StatusWriting:     {models.StatusResearching, models.StatusCompleted},
	models.StatusCompleted:   {},
}

type studentStore interface {
	Create(ctx context.Context, student *models.Postgraduate) error
	GetByID(ctx context.Context, id string) (*models.Postgraduate, error)
	List(ctx context.Context, filter models.PostgraduateFilter) ([]models.Postgraduate, int, error)
	ListAll(ctx context.Context) ([]models.Postgraduate, error)
	UpdateDates(ctx context.Context, id string, updates map[string]*dateutil.Date) error
	UpdateStatus(ctx context.Context, id string, status models.StudentStatus) error
	UpdateArtifacts(ctx context.Context, id string, protocolURL, toeflURL *string) error
}

type portfolioStore interface {
	LinkArchive(ctx context.Context, doc *models.PortfolioDoc) error
	CreateUpload(ctx context.Context, doc *models.PortfolioDoc) error
	GetDoc(ctx context.Context, studentID, docID string) (*models.PortfolioDoc, error)
	ListDocs(ctx context.Context, studentID string) ([]models.PortfolioDoc, error)
	DeleteDoc(ctx context.Context, studentID, docID string) error
	AddPaper(ctx context.Context, paper *models.PublishedPaper) error
	DeletePaper(ctx context.Context, studentID, paperID string) error
	ListPapers(ctx context.Context, studentID string) ([]models.PublishedPaper, error)
}

type cacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// TrackerService manages the postgraduate roster: lifecycle dates, derived
// report deadlines, status transitions and the digital portfolio.
type TrackerService struct {
	students  studentStore
	portfolio portfolioStore
	audit     auditWriter
	files     artifactStore
	cache     cacheInvalidator
	logger    *zap.Logger

	validate *validator.Validate
	now      func() time.Time
}

// NewTrackerService wires the tracker service.
func NewTrackerService(students studentStore, portfolio portfolioStore, audit auditWriter, files artifactStore, cache cacheInvalidator, logger *zap.Logger) *TrackerService {
	return &TrackerService{
		students:  students,
		portfolio: portfolio,
		audit:     audit,
		files:     files,
		cache:     cache,
		logger:    logger,
		validate:  validator.New(),
		now:       time.Now,
	}
}

// Create registers a new researcher.
func (s *TrackerService) Create(ctx context.Context, actor Actor, req dto.CreateStudentRequest) (*models.Postgraduate, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	degree := models.Degree(strings.ToUpper(strings.TrimSpace(req.Degree)))
	if !degree.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown degree %q", req.Degree))
	}

	student := &models.Postgraduate{
		Name:          strings.TrimSpace(req.Name),
		Degree:        degree,
		ResearchTopic: strings.TrimSpace(req.ResearchTopic),
		Supervisor:    strings.TrimSpace(req.Supervisor),
		Status:        models.StatusResearching,
	}
	if student.Name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name must not be blank")
	}
	if raw := strings.TrimSpace(req.Enrollment); raw != "" {
		d, err := dateutil.Parse(raw)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		student.Enrollment = &d
	}
	if raw := strings.TrimSpace(req.Registration); raw != "" {
		d, err := dateutil.Parse(raw)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		student.Registration = &d
	}

	if err := s.students.Create(ctx, student); err != nil {
		return nil, err
	}

	s.invalidateDashboard(ctx)
	s.logger.Info("postgraduate registered",
		zap.String("student_id", student.ID), zap.String("degree", string(student.Degree)))
	s.writeAudit(ctx, actor, models.AuditActionStudentCreate, student.ID, nil, student)
	return student, nil
}

// Get returns one researcher with alert flags derived as of the given day.
func (s *TrackerService) Get(ctx context.Context, id string, today dateutil.Date) (*models.Postgraduate, error) {
	student, err := s.students.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	student.Alerts = ComputeAlerts(student.StudentDates, today)
	return student, nil
}

// List returns roster entries with per-row alert flags and total count.
func (s *TrackerService) List(ctx context.Context, filter dto.StudentListFilter, today dateutil.Date) ([]models.Postgraduate, int, error) {
	modelFilter := models.PostgraduateFilter{
		Search:   strings.TrimSpace(filter.Search),
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}
	if raw := strings.TrimSpace(filter.Degree); raw != "" {
		degree := models.Degree(strings.ToUpper(raw))
		if !degree.Valid() {
			return nil, 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown degree %q", raw))
		}
		modelFilter.Degree = degree
	}
	if raw := strings.TrimSpace(filter.Status); raw != "" {
		status := models.StudentStatus(strings.ToUpper(raw))
		if !status.Valid() {
			return nil, 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", raw))
		}
		modelFilter.Status = status
	}

	students, total, err := s.students.List(ctx, modelFilter)
	if err != nil {
		return nil, 0, err
	}
	for i := range students {
		students[i].Alerts = ComputeAlerts(students[i].StudentDates, today)
	}
	return students, total, nil
}

// UpdateDates sets exactly one timeline field. Setting lastReport also
// derives nextReportDue (six months later); clearing lastReport clears the
// deadline. nextReportDue itself is never writable.
func (s *TrackerService) UpdateDates(ctx context.Context, actor Actor, id string, req dto.UpdateDatesRequest, today dateutil.Date) (*models.Postgraduate, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	field := strings.TrimSpace(req.Field)
	if field == "nextReportDue" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "nextReportDue is derived from lastReport and cannot be set directly")
	}
	column, ok := timelineFields[field]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown date field %q", field))
	}

	before, err := s.students.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}

	updates := make(map[string]*dateutil.Date, 2)
	if req.Value == nil || strings.TrimSpace(*req.Value) == "" {
		updates[column] = nil
		if field == "lastReport" {
			updates["next_report_due"] = nil
		}
	} else {
		d, err := dateutil.Parse(*req.Value)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		updates[column] = &d
		if field == "lastReport" {
			due := NextReportDue(d)
			updates["next_report_due"] = &due
		}
	}

	if err := s.students.UpdateDates(ctx, id, updates); err != nil {
		return nil, mapNotFound(err)
	}

	s.invalidateDashboard(ctx)
	after, err := s.Get(ctx, id, today)
	if err != nil {
		return nil, err
	}
	s.writeAudit(ctx, actor, models.AuditActionStudentDates, id, before.StudentDates, after.StudentDates)
	return after, nil
}

// UpdateStatus moves a researcher through the lifecycle. Transitions are
// restricted; COMPLETED is terminal.
func (s *TrackerService) UpdateStatus(ctx context.Context, actor Actor, id string, req dto.UpdateStatusRequest, today dateutil.Date) (*models.Postgraduate, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	target := models.StudentStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !target.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", req.Status))
	}

	student, err := s.students.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if student.Status != target {
		if !transitionAllowed(student.Status, target) {
			return nil, appErrors.Clone(appErrors.ErrConflict,
				fmt.Sprintf("cannot move from %s to %s", student.Status, target))
		}
		if err := s.students.UpdateStatus(ctx, id, target); err != nil {
			return nil, mapNotFound(err)
		}
		s.invalidateDashboard(ctx)
		s.writeAudit(ctx, actor, models.AuditActionStudentStatus, id, student.Status, target)
	}
	return s.Get(ctx, id, today)
}

// GetPortfolio bundles the digital portfolio of a researcher.
func (s *TrackerService) GetPortfolio(ctx context.Context, id string) (*models.Portfolio, error) {
	student, err := s.students.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	papers, err := s.portfolio.ListPapers(ctx, id)
	if err != nil {
		return nil, err
	}
	docs, err := s.portfolio.ListDocs(ctx, id)
	if err != nil {
		return nil, err
	}
	if papers == nil {
		papers = []models.PublishedPaper{}
	}
	if docs == nil {
		docs = []models.PortfolioDoc{}
	}
	return &models.Portfolio{
		ProtocolURL:     student.ProtocolURL,
		ToeflURL:        student.ToeflURL,
		PublishedPapers: papers,
		OtherDocuments:  docs,
	}, nil
}

// UpdatePortfolio merges paper additions and removals.
func (s *TrackerService) UpdatePortfolio(ctx context.Context, actor Actor, id string, req dto.UpdatePortfolioRequest) (*models.Portfolio, error) {
	if _, err := s.students.GetByID(ctx, id); err != nil {
		return nil, mapNotFound(err)
	}

	for _, input := range req.AddPapers {
		if err := s.validate.Struct(input); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		paperDate, err := dateutil.Parse(input.Date)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		paper := &models.PublishedPaper{
			StudentID: id,
			Title:     strings.TrimSpace(input.Title),
			URL:       strings.TrimSpace(input.URL),
			Date:      paperDate,
		}
		if err := s.portfolio.AddPaper(ctx, paper); err != nil {
			return nil, err
		}
	}
	for _, paperID := range req.RemovePaperIDs {
		if err := s.portfolio.DeletePaper(ctx, id, paperID); err != nil {
			return nil, mapNotFound(err)
		}
	}

	s.writeAudit(ctx, actor, models.AuditActionPortfolioMutation, id, nil, req)
	return s.GetPortfolio(ctx, id)
}

// LinkArchive attaches an existing register entry to the portfolio,
// snapshotting the document serial at link time.
func (s *TrackerService) LinkArchive(ctx context.Context, actor Actor, id string, req dto.LinkArchiveRequest) (*models.PortfolioDoc, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if _, err := s.students.GetByID(ctx, id); err != nil {
		return nil, mapNotFound(err)
	}

	docDate := dateutil.FromTime(s.now())
	if raw := strings.TrimSpace(req.Date); raw != "" {
		parsed, err := dateutil.Parse(raw)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		docDate = parsed
	}

	archiveID := strings.TrimSpace(req.ArchiveID)
	doc := &models.PortfolioDoc{
		StudentID: id,
		Title:     strings.TrimSpace(req.Title),
		Date:      docDate,
		ArchiveID: &archiveID,
	}
	if err := s.portfolio.LinkArchive(ctx, doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "archive document not found")
		}
		return nil, err
	}

	s.writeAudit(ctx, actor, models.AuditActionPortfolioMutation, id, nil, doc)
	return doc, nil
}

// UploadPortfolioDoc stores an uploaded artifact as a portfolio entry.
func (s *TrackerService) UploadPortfolioDoc(ctx context.Context, actor Actor, id, title, filename string, r io.Reader) (*models.PortfolioDoc, error) {
	if _, err := s.students.GetByID(ctx, id); err != nil {
		return nil, mapNotFound(err)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title must not be blank")
	}

	relPath := path.Join("portfolio", id, uuid.NewString()+sanitizeExt(filename))
	if _, err := s.files.SaveStream(relPath, r); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "store portfolio artifact")
	}

	doc := &models.PortfolioDoc{
		StudentID: id,
		Title:     title,
		Date:      dateutil.FromTime(s.now()),
		URL:       &relPath,
	}
	if err := s.portfolio.CreateUpload(ctx, doc); err != nil {
		if cleanupErr := s.files.Delete(relPath); cleanupErr != nil {
			s.logger.Warn("orphaned portfolio artifact",
				zap.String("student_id", id), zap.Error(cleanupErr))
		}
		return nil, err
	}

	s.writeAudit(ctx, actor, models.AuditActionPortfolioMutation, id, nil, doc)
	return doc, nil
}

// RemovePortfolioDoc detaches one entry. Uploaded artifacts are removed
// from storage; an ARCHIVE_LINK removal never touches the register.
func (s *TrackerService) RemovePortfolioDoc(ctx context.Context, actor Actor, studentID, docID string) error {
	doc, err := s.portfolio.GetDoc(ctx, studentID, docID)
	if err != nil {
		return mapNotFound(err)
	}
	if err := s.portfolio.DeleteDoc(ctx, studentID, docID); err != nil {
		return mapNotFound(err)
	}
	if doc.Kind == models.PortfolioDocUpload && doc.URL != nil {
		if err := s.files.Delete(*doc.URL); err != nil {
			s.logger.Warn("orphaned portfolio artifact after removal",
				zap.String("student_id", studentID), zap.Error(err))
		}
	}
	s.writeAudit(ctx, actor, models.AuditActionPortfolioMutation, studentID, doc, nil)
	return nil
}

// UploadArtifact stores the seminar protocol or language certificate.
func (s *TrackerService) UploadArtifact(ctx context.Context, actor Actor, id, kind, filename string, r io.Reader) (*models.Postgraduate, error) {
	if _, err := s.students.GetByID(ctx, id); err != nil {
		return nil, mapNotFound(err)
	}

	if kind != "protocol" && kind != "toefl" {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown artifact kind %q", kind))
	}

	relPath := path.Join("students", id, kind+sanitizeExt(filename))
	if _, err := s.files.SaveStream(relPath, r); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "store student artifact")
	}

	var protocolURL, toeflURL *string
	if kind == "protocol" {
		protocolURL = &relPath
	} else {
		toeflURL = &relPath
	}
	if err := s.students.UpdateArtifacts(ctx, id, protocolURL, toeflURL); err != nil {
		return nil, mapNotFound(err)
	}

	s.writeAudit(ctx, actor, models.AuditActionPortfolioMutation, id, nil, map[string]string{"artifact": kind, "path": relPath})
	return s.Get(ctx, id, dateutil.FromTime(s.now()))
}

func (s *TrackerService) invalidateDashboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, dashboardCachePattern); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func (s *TrackerService) writeAudit(ctx context.Context, actor Actor, action, resourceID string, oldValue, newValue interface{}) {
	log := &models.AuditLog{
		Action:    action,
		Resource:  "postgraduate",
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

func transitionAllowed(from, to models.StudentStatus) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
