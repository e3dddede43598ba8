package dto

// CreateStudentRequest registers a new postgraduate researcher.
type CreateStudentRequest struct {
	Name          string `json:"name" validate:"required"`
	Degree        string `json:"degree" validate:"required"`
	ResearchTopic string `json:"researchTopic"`
	Supervisor    string `json:"supervisor"`
	Enrollment    string `json:"enrollment"`
	Registration  string `json:"registration"`
}

// UpdateDatesRequest sets exactly one timeline field. Field names follow
// the JSON keys of the student payload; nextReportDue is derived and is
// rejected here.
type UpdateDatesRequest struct {
	Field string  `json:"field" validate:"required"`
	Value *string `json:"value"`
}

// UpdateStatusRequest moves a researcher through the lifecycle.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// PaperInput describes one published paper to add to the portfolio.
type PaperInput struct {
	Title string `json:"title" validate:"required"`
	URL   string `json:"url" validate:"required"`
	Date  string `json:"date" validate:"required"`
}

// UpdatePortfolioRequest merges changes into the digital portfolio.
// Uploaded artifacts (protocol, language certificate, other documents) go
// through the multipart endpoints; this request handles the metadata side.
type UpdatePortfolioRequest struct {
	AddPapers      []PaperInput `json:"addPapers"`
	RemovePaperIDs []string     `json:"removePaperIds"`
}

// LinkArchiveRequest attaches an existing register entry to a portfolio.
type LinkArchiveRequest struct {
	Title     string `json:"title" validate:"required"`
	Date      string `json:"date"`
	ArchiveID string `json:"archiveId" validate:"required"`
}

// StudentListFilter captures roster query parameters.
type StudentListFilter struct {
	Degree   string
	Status   string
	Search   string
	Page     int
	PageSize int
}
