package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	appErrors "github.com/noah-isme/dept-records-api/pkg/errors"
)

// translateErr normalises driver-level failures into the domain taxonomy.
// Timeouts and connection loss become STORE_UNAVAILABLE so callers may
// retry with backoff; constraint violations map to the matching domain
// error. sql.ErrNoRows passes through untouched for the service layer.
func translateErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.Is(err, driver.ErrBadConn) {
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, op+": store timed out")
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == "23505" && strings.Contains(pqErr.Constraint, "serial"):
			// Unique (category, serial) tripped: the allocator's transactional
			// guarantee was broken somewhere. Bug signal, not user error.
			return appErrors.Wrap(err, appErrors.ErrDuplicateSerial.Code, appErrors.ErrDuplicateSerial.Status, appErrors.ErrDuplicateSerial.Message)
		case pqErr.Code == "23505":
			return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, op+": duplicate row")
		case pqErr.Code == "23503":
			return appErrors.Wrap(err, appErrors.ErrReferentialIntegrity.Code, appErrors.ErrReferentialIntegrity.Status, appErrors.ErrReferentialIntegrity.Message)
		case pqErr.Code == "57014" || pqErr.Code.Class() == "08":
			return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, op+": store unavailable")
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}
