package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/dept-records-api/internal/models"
	"github.com/noah-isme/dept-records-api/pkg/dateutil"
	appErrors "github.com/noah-isme/dept-records-api/pkg/errors"
)

type memoryCache struct {
	values map[string][]byte
	gets   int
	sets   int
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	c.gets++
	raw, ok := c.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.sets++
	if c.values == nil {
		c.values = make(map[string][]byte)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.values[key] = raw
	return nil
}

func dashboardRoster() *stubStudents {
	overdue := dateutil.MustParse("2024-01-01")
	future := dateutil.MustParse("2026-01-01")
	pastDefense := dateutil.MustParse("2024-04-01")

	a := researchingStudent("pg-a")
	a.NextReportDue = &overdue
	b := researchingStudent("pg-b")
	b.NextReportDue = &future
	c := researchingStudent("pg-c")
	c.ExpectedDefense = &pastDefense

	return &stubStudents{byID: map[string]*models.Postgraduate{"pg-a": a, "pg-b": b, "pg-c": c}}
}

func TestDashboardAlertCounts(t *testing.T) {
	svc := NewDashboardService(dashboardRoster(), &memoryCache{}, time.Minute, zap.NewNop())

	counts, err := svc.AlertCounts(context.Background(), dateutil.MustParse("2024-05-20"))
	require.NoError(t, err)
	require.Equal(t, 3, counts.TotalStudents)
	require.Equal(t, 1, counts.OverdueCount)
	require.Equal(t, 1, counts.ExtensionCount)
	require.Equal(t, "2024-05-20", counts.Date)
}

func TestDashboardAlertCountsServedFromCache(t *testing.T) {
	cache := &memoryCache{}
	roster := dashboardRoster()
	svc := NewDashboardService(roster, cache, time.Minute, zap.NewNop())
	today := dateutil.MustParse("2024-05-20")

	first, err := svc.AlertCounts(context.Background(), today)
	require.NoError(t, err)
	require.Equal(t, 1, cache.sets)

	// Drop the roster; a cached day must still answer.
	roster.byID = map[string]*models.Postgraduate{}
	second, err := svc.AlertCounts(context.Background(), today)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, cache.sets)
}

func TestDashboardAlertCountsKeyedByDay(t *testing.T) {
	cache := &memoryCache{}
	svc := NewDashboardService(dashboardRoster(), cache, time.Minute, zap.NewNop())

	_, err := svc.AlertCounts(context.Background(), dateutil.MustParse("2024-05-20"))
	require.NoError(t, err)
	_, err = svc.AlertCounts(context.Background(), dateutil.MustParse("2024-05-21"))
	require.NoError(t, err)
	require.Equal(t, 2, cache.sets)
}

func TestDashboardWorksWithoutCache(t *testing.T) {
	svc := NewDashboardService(dashboardRoster(), nil, time.Minute, zap.NewNop())

	counts, err := svc.AlertCounts(context.Background(), dateutil.MustParse("2024-05-20"))
	require.NoError(t, err)
	require.Equal(t, 3, counts.TotalStudents)
}
