package dto

import "github.com/noah-isme/report-portal-api/internal/models"

// DashboardCounters summarizes the submissions visible to the token holder.
type DashboardCounters struct {
	TotalSubmissions  int `json:"total_submissions"`
	Drafts            int `json:"drafts"`
	PendingApprovals  int `json:"pending_approvals"`
	Approved          int `json:"approved"`
	Rejected          int `json:"rejected"`
	ActiveDefinitions int `json:"active_definitions"`
}

// DashboardOverview is the landing page payload.
type DashboardOverview struct {
	Counters          DashboardCounters         `json:"counters"`
	RecentSubmissions []models.ReportSubmission `json:"recent_submissions"`
}
