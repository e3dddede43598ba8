package service

import (
	"github.com/noah-isme/dept-records-api/internal/models"
	"github.com/noah-isme/dept-records-api/pkg/dateutil"
)

// reportInterval is the number of calendar months between progress reports.
const reportInterval = 6

// NextReportDue derives the report deadline from the last report date.
// Month arithmetic clamps to the end of shorter months.
func NextReportDue(lastReport dateutil.Date) dateutil.Date {
	return lastReport.AddMonths(reportInterval)
}

// ComputeAlerts derives the alert flags for a researcher as of the given
// day. The comparison is strictly before: a deadline falling on today is
// not yet an alert. Unset dates never raise alerts.
func ComputeAlerts(dates models.StudentDates, today dateutil.Date) models.StudentAlerts {
	var alerts models.StudentAlerts
	if dates.NextReportDue != nil && !dates.NextReportDue.IsZero() {
		alerts.ReportOverdue = dates.NextReportDue.Before(today)
	}
	if dates.ExpectedDefense != nil && !dates.ExpectedDefense.IsZero() {
		alerts.ExtensionNeeded = dates.ExpectedDefense.Before(today)
	}
	return alerts
}
