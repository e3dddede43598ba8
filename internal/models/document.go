package models

import (
	"time"

	"github.com/noah-isme/dept-records-api/pkg/dateutil"
)

// DocumentCategory identifies the archive register a document belongs to.
// Serials are unique per category.
type DocumentCategory string

const (
	CategoryOutgoing          DocumentCategory = "OUTGOING"
	CategoryIncoming          DocumentCategory = "INCOMING"
	CategoryDepartmentCouncil DocumentCategory = "DEPARTMENT_COUNCIL"
	CategoryCommitteeMeeting  DocumentCategory = "COMMITTEE_MEETING"
)

// Valid reports whether the category is one of the four known registers.
func (c DocumentCategory) Valid() bool {
	switch c {
	case CategoryOutgoing, CategoryIncoming, CategoryDepartmentCouncil, CategoryCommitteeMeeting:
		return true
	}
	return false
}

// ArchiveDocument represents one archived record (letter or minutes).
// ID, Category and Serial are immutable after creation.
type ArchiveDocument struct {
	ID        string           `db:"id" json:"id"`
	Category  DocumentCategory `db:"category" json:"category"`
	Serial    string           `db:"serial" json:"serial"`
	Date      dateutil.Date    `db:"doc_date" json:"date"`
	Subject   string           `db:"subject" json:"subject"`
	Notes     *string          `db:"notes" json:"notes,omitempty"`
	Sender    *string          `db:"sender" json:"sender,omitempty"`
	Recipient *string          `db:"recipient" json:"recipient,omitempty"`
	FileURL   *string          `db:"file_url" json:"fileUrl,omitempty"`
	CreatedBy string           `db:"created_by" json:"createdBy"`
	CreatedAt time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time        `db:"updated_at" json:"updatedAt"`
}

// DocumentFilter narrows register listings. Filters combine conjunctively;
// an empty keyword is equivalent to no keyword filter at all.
type DocumentFilter struct {
	Category DocumentCategory
	DateFrom *dateutil.Date
	DateTo   *dateutil.Date
	Keyword  string
	Page     int
	PageSize int
}

// DocumentUpdate carries the mutable subset of an archive document.
// Nil fields are left untouched; explicit empty strings clear optional text.
type DocumentUpdate struct {
	Date      *dateutil.Date
	Subject   *string
	Notes     *string
	Sender    *string
	Recipient *string
	FileURL   *string
}

// Empty reports whether the update changes nothing.
func (u DocumentUpdate) Empty() bool {
	return u.Date == nil && u.Subject == nil && u.Notes == nil &&
		u.Sender == nil && u.Recipient == nil && u.FileURL == nil
}
