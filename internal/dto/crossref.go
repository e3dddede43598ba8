package dto

import "github.com/noah-isme/dept-records-api/internal/models"

// ResolvedPortfolioEntry pairs a portfolio entry with its resolved target.
// Exactly one of Document or DownloadURL is set, depending on the entry kind.
type ResolvedPortfolioEntry struct {
	Entry       models.PortfolioDoc     `json:"entry"`
	Document    *models.ArchiveDocument `json:"document,omitempty"`
	DownloadURL string                  `json:"downloadUrl,omitempty"`
}
