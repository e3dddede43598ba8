package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/dept-records-api/internal/dto"
	"github.com/noah-isme/dept-records-api/internal/models"
	appErrors "github.com/noah-isme/dept-records-api/pkg/errors"
	"github.com/noah-isme/dept-records-api/pkg/storage"
)

// CrossRefService resolves portfolio entries to their targets. An
// ARCHIVE_LINK resolves to the live register entry via the stored archive
// id (the serial snapshot is display-only); an UPLOAD resolves to a signed
// download token for its artifact.
type CrossRefService struct {
	portfolio portfolioStore
	docs      documentStore
	signer    *storage.SignedURLSigner
	logger    *zap.Logger
}

// NewCrossRefService wires the cross-reference resolver.
func NewCrossRefService(portfolio portfolioStore, docs documentStore, signer *storage.SignedURLSigner, logger *zap.Logger) *CrossRefService {
	return &CrossRefService{portfolio: portfolio, docs: docs, signer: signer, logger: logger}
}

// Resolve returns the entry together with its resolved target.
func (s *CrossRefService) Resolve(ctx context.Context, studentID, docID string) (*dto.ResolvedPortfolioEntry, error) {
	entry, err := s.portfolio.GetDoc(ctx, studentID, docID)
	if err != nil {
		return nil, mapNotFound(err)
	}

	resolved := &dto.ResolvedPortfolioEntry{Entry: *entry}
	switch entry.Kind {
	case models.PortfolioDocArchiveLink:
		if entry.ArchiveID == nil {
			return nil, appErrors.Clone(appErrors.ErrInternal, "archive link without target id")
		}
		doc, err := s.docs.GetByID(ctx, *entry.ArchiveID)
		if err != nil {
			// The foreign key forbids deleting a cited document, so a missing
			// target means the store is inconsistent.
			s.logger.Error("archive link target missing",
				zap.String("student_id", studentID),
				zap.String("archive_id", *entry.ArchiveID))
			return nil, mapNotFound(err)
		}
		resolved.Document = doc
	case models.PortfolioDocUpload:
		if entry.URL == nil {
			return nil, appErrors.Clone(appErrors.ErrInternal, "upload entry without artifact path")
		}
		token, _, err := s.signer.Generate(entry.ID, *entry.URL)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "sign portfolio download")
		}
		resolved.DownloadURL = token
	default:
		return nil, appErrors.Clone(appErrors.ErrInternal, "unknown portfolio entry kind")
	}
	return resolved, nil
}
