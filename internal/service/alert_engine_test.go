package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dept-records-api/internal/models"
	"github.com/noah-isme/dept-records-api/pkg/dateutil"
)

func datePtr(raw string) *dateutil.Date {
	d := dateutil.MustParse(raw)
	return &d
}

func TestNextReportDue(t *testing.T) {
	cases := []struct {
		name       string
		lastReport string
		want       string
	}{
		{"plain six months", "2024-03-10", "2024-09-10"},
		{"clamps to month end", "2024-08-31", "2025-02-28"},
		{"leap year clamp", "2023-08-31", "2024-02-29"},
		{"year rollover", "2024-10-15", "2025-04-15"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NextReportDue(dateutil.MustParse(tc.lastReport))
			require.Equal(t, tc.want, got.String())
		})
	}
}

func TestComputeAlertsReportOverdueBoundary(t *testing.T) {
	dates := models.StudentDates{NextReportDue: datePtr("2024-09-10")}

	cases := []struct {
		today string
		want  bool
	}{
		{"2024-09-09", false},
		{"2024-09-10", false},
		{"2024-09-11", true},
	}
	for _, tc := range cases {
		t.Run(tc.today, func(t *testing.T) {
			alerts := ComputeAlerts(dates, dateutil.MustParse(tc.today))
			require.Equal(t, tc.want, alerts.ReportOverdue)
			require.False(t, alerts.ExtensionNeeded)
		})
	}
}

func TestComputeAlertsExtensionBoundary(t *testing.T) {
	dates := models.StudentDates{ExpectedDefense: datePtr("2025-01-01")}

	require.False(t, ComputeAlerts(dates, dateutil.MustParse("2025-01-01")).ExtensionNeeded)
	require.True(t, ComputeAlerts(dates, dateutil.MustParse("2025-01-02")).ExtensionNeeded)
}

func TestComputeAlertsUnsetDatesNeverAlert(t *testing.T) {
	alerts := ComputeAlerts(models.StudentDates{}, dateutil.MustParse("2099-12-31"))
	require.False(t, alerts.ReportOverdue)
	require.False(t, alerts.ExtensionNeeded)
}

func TestComputeAlertsIndependentFlags(t *testing.T) {
	dates := models.StudentDates{
		NextReportDue:   datePtr("2024-01-01"),
		ExpectedDefense: datePtr("2026-01-01"),
	}
	alerts := ComputeAlerts(dates, dateutil.MustParse("2024-06-01"))
	require.True(t, alerts.ReportOverdue)
	require.False(t, alerts.ExtensionNeeded)
}
