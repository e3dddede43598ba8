package dto

// CreateDocumentRequest carries the fields accepted on register entry
// creation. Serial is never accepted from the client.
type CreateDocumentRequest struct {
	Category  string  `json:"category" form:"category" validate:"required"`
	Date      string  `json:"date" form:"date" validate:"required"`
	Subject   string  `json:"subject" form:"subject" validate:"required"`
	Notes     *string `json:"notes" form:"notes"`
	Sender    *string `json:"sender" form:"sender"`
	Recipient *string `json:"recipient" form:"recipient"`
}

// UpdateDocumentRequest covers the mutable subset of a register entry.
// Category and Serial are present only so attempts to change them can be
// rejected explicitly instead of silently ignored.
type UpdateDocumentRequest struct {
	Category  *string `json:"category"`
	Serial    *string `json:"serial"`
	Date      *string `json:"date"`
	Subject   *string `json:"subject"`
	Notes     *string `json:"notes"`
	Sender    *string `json:"sender"`
	Recipient *string `json:"recipient"`
}

// DocumentListFilter captures register query parameters.
type DocumentListFilter struct {
	Category string
	DateFrom string
	DateTo   string
	Keyword  string
	Page     int
	PageSize int
}

// DocumentDownloadResponse enriches metadata with a signed download URL.
type DocumentDownloadResponse struct {
	ID          string `json:"id"`
	Serial      string `json:"serial"`
	DownloadURL string `json:"downloadUrl"`
}
