package models

import (
	"time"

	"github.com/noah-isme/dept-records-api/pkg/dateutil"
)

// Degree distinguishes master's and doctoral researchers.
type Degree string

const (
	DegreeMSc Degree = "MSC"
	DegreePhD Degree = "PHD"
)

// Valid reports whether the degree is known.
func (d Degree) Valid() bool {
	return d == DegreeMSc || d == DegreePhD
}

// StudentStatus captures where a researcher is in the lifecycle.
type StudentStatus string

const (
	StatusResearching StudentStatus = "RESEARCHING"
	StatusWriting     StudentStatus = "WRITING"
	StatusCompleted   StudentStatus = "COMPLETED"
)

// Valid reports whether the status is known.
func (s StudentStatus) Valid() bool {
	switch s {
	case StatusResearching, StatusWriting, StatusCompleted:
		return true
	}
	return false
}

// StudentDates groups the timeline fields of a postgraduate record.
// NextReportDue is derived from LastReport (plus six calendar months) and
// is never written directly by callers.
type StudentDates struct {
	Enrollment      *dateutil.Date `db:"enrollment_date" json:"enrollment,omitempty"`
	Registration    *dateutil.Date `db:"registration_date" json:"registration,omitempty"`
	LastReport      *dateutil.Date `db:"last_report_date" json:"lastReport,omitempty"`
	NextReportDue   *dateutil.Date `db:"next_report_due" json:"nextReportDue,omitempty"`
	ExpectedDefense *dateutil.Date `db:"expected_defense" json:"expectedDefense,omitempty"`
}

// StudentAlerts are derived flags, recomputed from dates on every read.
// They are never authoritative persisted state.
type StudentAlerts struct {
	ReportOverdue   bool `json:"reportOverdue"`
	ExtensionNeeded bool `json:"extensionNeeded"`
}

// Postgraduate represents one MSc/PhD researcher tracked by the department.
type Postgraduate struct {
	ID            string        `db:"id" json:"id"`
	Name          string        `db:"name" json:"name"`
	Degree        Degree        `db:"degree" json:"degree"`
	ResearchTopic string        `db:"research_topic" json:"researchTopic"`
	Supervisor    string        `db:"supervisor" json:"supervisor"`
	Status        StudentStatus `db:"status" json:"status"`
	StudentDates
	ProtocolURL *string       `db:"protocol_url" json:"protocolUrl,omitempty"`
	ToeflURL    *string       `db:"toefl_url" json:"toeflUrl,omitempty"`
	Alerts      StudentAlerts `db:"-" json:"alerts"`
	CreatedAt   time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updatedAt"`
}

// PostgraduateFilter narrows roster listings.
type PostgraduateFilter struct {
	Degree   Degree
	Status   StudentStatus
	Search   string
	Page     int
	PageSize int
}

// PublishedPaper is one publication attached to a researcher's portfolio.
type PublishedPaper struct {
	ID        string        `db:"id" json:"id"`
	StudentID string        `db:"student_id" json:"-"`
	Title     string        `db:"title" json:"title"`
	URL       string        `db:"url" json:"url"`
	Date      dateutil.Date `db:"paper_date" json:"date"`
	CreatedAt time.Time     `db:"created_at" json:"createdAt"`
}

// PortfolioDocKind distinguishes uploaded artifacts from archive citations.
type PortfolioDocKind string

const (
	PortfolioDocUpload      PortfolioDocKind = "UPLOAD"
	PortfolioDocArchiveLink PortfolioDocKind = "ARCHIVE_LINK"
)

// PortfolioDoc is one entry of a researcher's digital portfolio. An
// ARCHIVE_LINK entry carries the referenced document id plus a snapshot of
// its serial taken at link time; the snapshot is display-only, the id is
// the source of truth.
type PortfolioDoc struct {
	ID            string           `db:"id" json:"id"`
	StudentID     string           `db:"student_id" json:"-"`
	Title         string           `db:"title" json:"title"`
	Date          dateutil.Date    `db:"doc_date" json:"date"`
	Kind          PortfolioDocKind `db:"kind" json:"kind"`
	URL           *string          `db:"url" json:"url,omitempty"`
	ArchiveID     *string          `db:"archive_id" json:"archiveId,omitempty"`
	ArchiveSerial *string          `db:"archive_serial" json:"archiveSerial,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"createdAt"`
}

// Portfolio bundles everything attached to a researcher's file.
type Portfolio struct {
	ProtocolURL     *string          `json:"protocolUrl,omitempty"`
	ToeflURL        *string          `json:"toeflUrl,omitempty"`
	PublishedPapers []PublishedPaper `json:"publishedPapers"`
	OtherDocuments  []PortfolioDoc   `json:"otherDocuments"`
}
