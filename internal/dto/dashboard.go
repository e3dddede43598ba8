package dto

// AlertCountsResponse aggregates derived alert flags across the roster.
type AlertCountsResponse struct {
	Date           string `json:"date"`
	OverdueCount   int    `json:"overdueCount"`
	ExtensionCount int    `json:"extensionCount"`
	TotalStudents  int    `json:"totalStudents"`
}
