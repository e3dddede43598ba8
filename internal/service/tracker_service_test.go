package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/dept-records-api/internal/dto"
	"github.com/noah-isme/dept-records-api/internal/models"
	"github.com/noah-isme/dept-records-api/pkg/dateutil"
	appErrors "github.com/noah-isme/dept-records-api/pkg/errors"
)

type stubStudents struct {
	byID        map[string]*models.Postgraduate
	created     *models.Postgraduate
	dateUpdates map[string]*dateutil.Date
	statusSet   *models.StudentStatus
}

func (s *stubStudents) Create(_ context.Context, student *models.Postgraduate) error {
	student.ID = "pg-new"
	s.created = student
	return nil
}

func (s *stubStudents) GetByID(_ context.Context, id string) (*models.Postgraduate, error) {
	if student, ok := s.byID[id]; ok {
		copied := *student
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubStudents) List(_ context.Context, _ models.PostgraduateFilter) ([]models.Postgraduate, int, error) {
	all, _ := s.ListAll(context.Background())
	return all, len(all), nil
}

func (s *stubStudents) ListAll(_ context.Context) ([]models.Postgraduate, error) {
	var all []models.Postgraduate
	for _, student := range s.byID {
		all = append(all, *student)
	}
	return all, nil
}

func (s *stubStudents) UpdateDates(_ context.Context, id string, updates map[string]*dateutil.Date) error {
	student, ok := s.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.dateUpdates = updates
	for column, value := range updates {
		switch column {
		case "enrollment_date":
			student.Enrollment = value
		case "registration_date":
			student.Registration = value
		case "last_report_date":
			student.LastReport = value
		case "next_report_due":
			student.NextReportDue = value
		case "expected_defense":
			student.ExpectedDefense = value
		}
	}
	return nil
}

func (s *stubStudents) UpdateStatus(_ context.Context, id string, status models.StudentStatus) error {
	student, ok := s.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	student.Status = status
	s.statusSet = &status
	return nil
}

func (s *stubStudents) UpdateArtifacts(_ context.Context, id string, protocolURL, toeflURL *string) error {
	student, ok := s.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	if protocolURL != nil {
		student.ProtocolURL = protocolURL
	}
	if toeflURL != nil {
		student.ToeflURL = toeflURL
	}
	return nil
}

type stubPortfolio struct {
	linked    []*models.PortfolioDoc
	linkErr   error
	uploads   []*models.PortfolioDoc
	papers    map[string]*models.PublishedPaper
	docs      map[string]*models.PortfolioDoc
	deleted   []string
	delPapers []string
}

func (s *stubPortfolio) LinkArchive(_ context.Context, doc *models.PortfolioDoc) error {
	if s.linkErr != nil {
		return s.linkErr
	}
	doc.ID = "pdoc-link"
	doc.Kind = models.PortfolioDocArchiveLink
	serial := "12/2024"
	doc.ArchiveSerial = &serial
	s.linked = append(s.linked, doc)
	return nil
}

func (s *stubPortfolio) CreateUpload(_ context.Context, doc *models.PortfolioDoc) error {
	doc.ID = "pdoc-upload"
	doc.Kind = models.PortfolioDocUpload
	s.uploads = append(s.uploads, doc)
	return nil
}

func (s *stubPortfolio) GetDoc(_ context.Context, _, docID string) (*models.PortfolioDoc, error) {
	if doc, ok := s.docs[docID]; ok {
		return doc, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubPortfolio) ListDocs(_ context.Context, _ string) ([]models.PortfolioDoc, error) {
	var all []models.PortfolioDoc
	for _, doc := range s.docs {
		all = append(all, *doc)
	}
	return all, nil
}

func (s *stubPortfolio) DeleteDoc(_ context.Context, _, docID string) error {
	if _, ok := s.docs[docID]; !ok {
		return sql.ErrNoRows
	}
	delete(s.docs, docID)
	s.deleted = append(s.deleted, docID)
	return nil
}

func (s *stubPortfolio) AddPaper(_ context.Context, paper *models.PublishedPaper) error {
	if s.papers == nil {
		s.papers = make(map[string]*models.PublishedPaper)
	}
	paper.ID = "paper-" + paper.Title
	s.papers[paper.ID] = paper
	return nil
}

func (s *stubPortfolio) DeletePaper(_ context.Context, _, paperID string) error {
	if _, ok := s.papers[paperID]; !ok {
		return sql.ErrNoRows
	}
	delete(s.papers, paperID)
	s.delPapers = append(s.delPapers, paperID)
	return nil
}

func (s *stubPortfolio) ListPapers(_ context.Context, _ string) ([]models.PublishedPaper, error) {
	var all []models.PublishedPaper
	for _, paper := range s.papers {
		all = append(all, *paper)
	}
	return all, nil
}

type stubCache struct {
	deletedPatterns []string
}

func (s *stubCache) DeleteByPattern(_ context.Context, pattern string) error {
	s.deletedPatterns = append(s.deletedPatterns, pattern)
	return nil
}

func newTrackerForTest(students *stubStudents, portfolio *stubPortfolio) (*TrackerService, *stubCache, *stubFiles) {
	cache := &stubCache{}
	files := &stubFiles{}
	svc := NewTrackerService(students, portfolio, &stubAudit{}, files, cache, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC) }
	return svc, cache, files
}

func researchingStudent(id string) *models.Postgraduate {
	return &models.Postgraduate{
		ID:     id,
		Name:   "Amira Hassan",
		Degree: models.DegreePhD,
		Status: models.StatusResearching,
	}
}

func TestTrackerCreateDefaultsToResearching(t *testing.T) {
	students := &stubStudents{byID: map[string]*models.Postgraduate{}}
	svc, cache, _ := newTrackerForTest(students, &stubPortfolio{})

	student, err := svc.Create(context.Background(), staffActor(), dto.CreateStudentRequest{
		Name:       "Amira Hassan",
		Degree:     "phd",
		Enrollment: "2023-09-01",
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusResearching, student.Status)
	require.Equal(t, models.DegreePhD, student.Degree)
	require.Equal(t, "2023-09-01", student.Enrollment.String())
	require.Contains(t, cache.deletedPatterns, dashboardCachePattern)
}

func TestTrackerUpdateDatesDerivesNextReportDue(t *testing.T) {
	students := &stubStudents{byID: map[string]*models.Postgraduate{"pg-1": researchingStudent("pg-1")}}
	svc, cache, _ := newTrackerForTest(students, &stubPortfolio{})

	value := "2024-03-10"
	student, err := svc.UpdateDates(context.Background(), staffActor(), "pg-1",
		dto.UpdateDatesRequest{Field: "lastReport", Value: &value}, dateutil.MustParse("2024-05-20"))
	require.NoError(t, err)

	require.Contains(t, students.dateUpdates, "last_report_date")
	require.Contains(t, students.dateUpdates, "next_report_due")
	require.Equal(t, "2024-09-10", students.dateUpdates["next_report_due"].String())
	require.Equal(t, "2024-09-10", student.NextReportDue.String())
	require.False(t, student.Alerts.ReportOverdue)
	require.Contains(t, cache.deletedPatterns, dashboardCachePattern)
}

func TestTrackerUpdateDatesClearingReportClearsDeadline(t *testing.T) {
	student := researchingStudent("pg-1")
	last := dateutil.MustParse("2024-03-10")
	due := dateutil.MustParse("2024-09-10")
	student.LastReport = &last
	student.NextReportDue = &due
	students := &stubStudents{byID: map[string]*models.Postgraduate{"pg-1": student}}
	svc, _, _ := newTrackerForTest(students, &stubPortfolio{})

	updated, err := svc.UpdateDates(context.Background(), staffActor(), "pg-1",
		dto.UpdateDatesRequest{Field: "lastReport", Value: nil}, dateutil.MustParse("2024-05-20"))
	require.NoError(t, err)
	require.Nil(t, updated.LastReport)
	require.Nil(t, updated.NextReportDue)
}

func TestTrackerUpdateDatesRejectsDerivedField(t *testing.T) {
	students := &stubStudents{byID: map[string]*models.Postgraduate{"pg-1": researchingStudent("pg-1")}}
	svc, _, _ := newTrackerForTest(students, &stubPortfolio{})

	value := "2024-09-10"
	_, err := svc.UpdateDates(context.Background(), staffActor(), "pg-1",
		dto.UpdateDatesRequest{Field: "nextReportDue", Value: &value}, dateutil.MustParse("2024-05-20"))
	require.ErrorIs(t, err, appErrors.ErrValidation)
	require.Nil(t, students.dateUpdates)
}

func TestTrackerUpdateDatesRejectsUnknownField(t *testing.T) {
	students := &stubStudents{byID: map[string]*models.Postgraduate{"pg-1": researchingStudent("pg-1")}}
	svc, _, _ := newTrackerForTest(students, &stubPortfolio{})

	value := "2024-09-10"
	_, err := svc.UpdateDates(context.Background(), staffActor(), "pg-1",
		dto.UpdateDatesRequest{Field: "graduation", Value: &value}, dateutil.MustParse("2024-05-20"))
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestTrackerGetDerivesAlerts(t *testing.T) {
	student := researchingStudent("pg-1")
	due := dateutil.MustParse("2024-05-01")
	student.NextReportDue = &due
	students := &stubStudents{byID: map[string]*models.Postgraduate{"pg-1": student}}
	svc, _, _ := newTrackerForTest(students, &stubPortfolio{})

	got, err := svc.Get(context.Background(), "pg-1", dateutil.MustParse("2024-05-20"))
	require.NoError(t, err)
	require.True(t, got.Alerts.ReportOverdue)

	got, err = svc.Get(context.Background(), "pg-1", dateutil.MustParse("2024-05-01"))
	require.NoError(t, err)
	require.False(t, got.Alerts.ReportOverdue)
}

func TestTrackerStatusTransitions(t *testing.T) {
	students := &stubStudents{byID: map[string]*models.Postgraduate{"pg-1": researchingStudent("pg-1")}}
	svc, _, _ := newTrackerForTest(students, &stubPortfolio{})
	today := dateutil.MustParse("2024-05-20")

	// RESEARCHING cannot jump straight to COMPLETED.
	_, err := svc.UpdateStatus(context.Background(), staffActor(), "pg-1",
		dto.UpdateStatusRequest{Status: "COMPLETED"}, today)
	require.ErrorIs(t, err, appErrors.ErrConflict)

	student, err := svc.UpdateStatus(context.Background(), staffActor(), "pg-1",
		dto.UpdateStatusRequest{Status: "WRITING"}, today)
	require.NoError(t, err)
	require.Equal(t, models.StatusWriting, student.Status)

	student, err = svc.UpdateStatus(context.Background(), staffActor(), "pg-1",
		dto.UpdateStatusRequest{Status: "COMPLETED"}, today)
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, student.Status)

	// COMPLETED is terminal.
	_, err = svc.UpdateStatus(context.Background(), staffActor(), "pg-1",
		dto.UpdateStatusRequest{Status: "RESEARCHING"}, today)
	require.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestTrackerStatusNoopForSameStatus(t *testing.T) {
	students := &stubStudents{byID: map[string]*models.Postgraduate{"pg-1": researchingStudent("pg-1")}}
	svc, _, _ := newTrackerForTest(students, &stubPortfolio{})

	student, err := svc.UpdateStatus(context.Background(), staffActor(), "pg-1",
		dto.UpdateStatusRequest{Status: "RESEARCHING"}, dateutil.MustParse("2024-05-20"))
	require.NoError(t, err)
	require.Equal(t, models.StatusResearching, student.Status)
	require.Nil(t, students.statusSet)
}

func TestTrackerLinkArchiveSnapshotsSerial(t *testing.T) {
	students := &stubStudents{byID: map[string]*models.Postgraduate{"pg-1": researchingStudent("pg-1")}}
	portfolio := &stubPortfolio{}
	svc, _, _ := newTrackerForTest(students, portfolio)

	doc, err := svc.LinkArchive(context.Background(), staffActor(), "pg-1", dto.LinkArchiveRequest{
		Title:     "Ethics approval",
		ArchiveID: "doc-1",
	})
	require.NoError(t, err)
	require.Equal(t, models.PortfolioDocArchiveLink, doc.Kind)
	require.Equal(t, "12/2024", *doc.ArchiveSerial)
	// Date defaults to today when omitted.
	require.Equal(t, "2024-05-20", doc.Date.String())
}

func TestTrackerLinkArchiveUnknownDocument(t *testing.T) {
	students := &stubStudents{byID: map[string]*models.Postgraduate{"pg-1": researchingStudent("pg-1")}}
	portfolio := &stubPortfolio{linkErr: sql.ErrNoRows}
	svc, _, _ := newTrackerForTest(students, portfolio)

	_, err := svc.LinkArchive(context.Background(), staffActor(), "pg-1", dto.LinkArchiveRequest{
		Title:     "Dangling",
		ArchiveID: "ghost",
	})
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestTrackerUpdatePortfolioAddAndRemovePapers(t *testing.T) {
	students := &stubStudents{byID: map[string]*models.Postgraduate{"pg-1": researchingStudent("pg-1")}}
	portfolio := &stubPortfolio{papers: map[string]*models.PublishedPaper{
		"paper-old": {ID: "paper-old", Title: "Old result"},
	}}
	svc, _, _ := newTrackerForTest(students, portfolio)

	result, err := svc.UpdatePortfolio(context.Background(), staffActor(), "pg-1", dto.UpdatePortfolioRequest{
		AddPapers: []dto.PaperInput{{
			Title: "Graph partitioning at scale",
			URL:   "https://doi.org/10.1000/example",
			Date:  "2024-04-01",
		}},
		RemovePaperIDs: []string{"paper-old"},
	})
	require.NoError(t, err)
	require.Len(t, result.PublishedPapers, 1)
	require.Equal(t, "Graph partitioning at scale", result.PublishedPapers[0].Title)
	require.Equal(t, []string{"paper-old"}, portfolio.delPapers)
}

func TestTrackerRemovePortfolioDocDeletesUploadArtifact(t *testing.T) {
	students := &stubStudents{byID: map[string]*models.Postgraduate{"pg-1": researchingStudent("pg-1")}}
	url := "portfolio/pg-1/file.pdf"
	portfolio := &stubPortfolio{docs: map[string]*models.PortfolioDoc{
		"pdoc-1": {ID: "pdoc-1", StudentID: "pg-1", Kind: models.PortfolioDocUpload, URL: &url},
	}}
	svc, _, files := newTrackerForTest(students, portfolio)

	require.NoError(t, svc.RemovePortfolioDoc(context.Background(), staffActor(), "pg-1", "pdoc-1"))
	require.Equal(t, []string{url}, files.deleted)
}

func TestTrackerRemoveArchiveLinkKeepsRegisterUntouched(t *testing.T) {
	students := &stubStudents{byID: map[string]*models.Postgraduate{"pg-1": researchingStudent("pg-1")}}
	archiveID := "doc-1"
	portfolio := &stubPortfolio{docs: map[string]*models.PortfolioDoc{
		"pdoc-1": {ID: "pdoc-1", StudentID: "pg-1", Kind: models.PortfolioDocArchiveLink, ArchiveID: &archiveID},
	}}
	svc, _, files := newTrackerForTest(students, portfolio)

	require.NoError(t, svc.RemovePortfolioDoc(context.Background(), staffActor(), "pg-1", "pdoc-1"))
	require.Empty(t, files.deleted)
}

func TestTrackerUploadArtifactKinds(t *testing.T) {
	students := &stubStudents{byID: map[string]*models.Postgraduate{"pg-1": researchingStudent("pg-1")}}
	svc, _, _ := newTrackerForTest(students, &stubPortfolio{})

	student, err := svc.UploadArtifact(context.Background(), staffActor(), "pg-1", "protocol", "protocol.pdf", strings.NewReader("x"))
	require.NoError(t, err)
	require.NotNil(t, student.ProtocolURL)

	_, err = svc.UploadArtifact(context.Background(), staffActor(), "pg-1", "transcript", "t.pdf", strings.NewReader("x"))
	require.ErrorIs(t, err, appErrors.ErrValidation)
}
