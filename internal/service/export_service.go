package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/dept-records-api/internal/dto"
	"github.com/noah-isme/dept-records-api/internal/models"
	"github.com/noah-isme/dept-records-api/pkg/dateutil"
	appErrors "github.com/noah-isme/dept-records-api/pkg/errors"
	"github.com/noah-isme/dept-records-api/pkg/export"
)

const exportPageSize = 200

// ExportFile is a rendered export ready to stream to the client.
type ExportFile struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders the archive register and the postgraduate roster
// as CSV or PDF.
type ExportService struct {
	registry *RegistryService
	roster   rosterReader
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

// NewExportService wires the export service.
func NewExportService(registry *RegistryService, roster rosterReader, logger *zap.Logger) *ExportService {
	return &ExportService{
		registry: registry,
		roster:   roster,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

// ExportRegister renders register entries matching the filter. Pagination
// is walked internally so the export always covers the full result set.
func (s *ExportService) ExportRegister(ctx context.Context, filter dto.DocumentListFilter, format string) (*ExportFile, error) {
	filter.PageSize = exportPageSize
	filter.Page = 1

	var all []models.ArchiveDocument
	for {
		docs, total, err := s.registry.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, docs...)
		if len(docs) == 0 || len(all) >= total {
			break
		}
		filter.Page++
	}

	data := export.Dataset{
		Headers: []string{"Serial", "Date", "Subject", "Sender", "Recipient", "Notes"},
	}
	for _, doc := range all {
		data.Rows = append(data.Rows, map[string]string{
			"Serial":    doc.Serial,
			"Date":      doc.Date.String(),
			"Subject":   doc.Subject,
			"Sender":    deref(doc.Sender),
			"Recipient": deref(doc.Recipient),
			"Notes":     deref(doc.Notes),
		})
	}

	name := "register"
	if category := strings.TrimSpace(filter.Category); category != "" {
		name += "_" + strings.ToLower(category)
	}
	return s.render(data, format, name, "Archive Register")
}

// ExportRoster renders the postgraduate roster with derived alert flags as
// of the given day.
func (s *ExportService) ExportRoster(ctx context.Context, today dateutil.Date, format string) (*ExportFile, error) {
	students, err := s.roster.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{
		Headers: []string{"Name", "Degree", "Status", "Supervisor", "Last Report", "Next Report Due", "Expected Defense", "Report Overdue", "Extension Needed"},
	}
	for i := range students {
		student := &students[i]
		alerts := ComputeAlerts(student.StudentDates, today)
		data.Rows = append(data.Rows, map[string]string{
			"Name":             student.Name,
			"Degree":           string(student.Degree),
			"Status":           string(student.Status),
			"Supervisor":       student.Supervisor,
			"Last Report":      dateStr(student.LastReport),
			"Next Report Due":  dateStr(student.NextReportDue),
			"Expected Defense": dateStr(student.ExpectedDefense),
			"Report Overdue":   yesNo(alerts.ReportOverdue),
			"Extension Needed": yesNo(alerts.ExtensionNeeded),
		})
	}
	return s.render(data, format, "postgraduates_"+today.String(), "Postgraduate Roster")
}

func (s *ExportService) render(data export.Dataset, format, name, title string) (*ExportFile, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "csv":
		content, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render csv export")
		}
		return &ExportFile{Content: content, ContentType: "text/csv", Filename: name + ".csv"}, nil
	case "pdf":
		content, err := s.pdf.Render(data, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render pdf export")
		}
		return &ExportFile{Content: content, ContentType: "application/pdf", Filename: name + ".pdf"}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func dateStr(d *dateutil.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
