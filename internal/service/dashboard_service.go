package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/dept-records-api/internal/dto"
	"github.com/noah-isme/dept-records-api/internal/models"
	"github.com/noah-isme/dept-records-api/pkg/dateutil"
	appErrors "github.com/noah-isme/dept-records-api/pkg/errors"
)

type rosterReader interface {
	ListAll(ctx context.Context) ([]models.Postgraduate, error)
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// DashboardService aggregates derived alert flags across the roster. The
// counts are cached per day; any roster write invalidates the cache.
type DashboardService struct {
	roster rosterReader
	cache  dashboardCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewDashboardService wires the dashboard aggregation.
func NewDashboardService(roster rosterReader, cache dashboardCache, ttl time.Duration, logger *zap.Logger) *DashboardService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DashboardService{roster: roster, cache: cache, ttl: ttl, logger: logger}
}

// AlertCounts reports how many researchers carry each alert flag as of the
// given day.
func (s *DashboardService) AlertCounts(ctx context.Context, today dateutil.Date) (*dto.AlertCountsResponse, error) {
	key := "dashboard:alerts:" + today.String()

	if s.cache != nil {
		var cached dto.AlertCountsResponse
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	students, err := s.roster.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	counts := &dto.AlertCountsResponse{
		Date:          today.String(),
		TotalStudents: len(students),
	}
	for i := range students {
		alerts := ComputeAlerts(students[i].StudentDates, today)
		if alerts.ReportOverdue {
			counts.OverdueCount++
		}
		if alerts.ExtensionNeeded {
			counts.ExtensionCount++
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, counts, s.ttl); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return counts, nil
}
