package reporting

import (
	"time"

	"voicecall-platform/internal/campaigns"
)

// TimeRange is a half-open interval [From, To).
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (r TimeRange) IsZero() bool { return r.From.IsZero() && r.To.IsZero() }

func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && t.Before(r.To)
}

// Previous is the range of equal length immediately before r.
func (r TimeRange) Previous() TimeRange {
	d := r.To.Sub(r.From)
	return TimeRange{From: r.From.Add(-d), To: r.From}
}

type StatsRequest struct {
	// Range limits the stats to rows created inside it. Zero means all time
	// and disables trends.
	Range       TimeRange
	RecentLimit int
}

// DashboardStats is the account overview.
type DashboardStats struct {
	TotalCampaigns  int     `json:"totalCampaigns"`
	TotalCalls      int     `json:"totalCalls"`
	SuccessfulCalls int     `json:"successfulCalls"`
	FailedCalls     int     `json:"failedCalls"`
	ConversionRate  float64 `json:"conversionRate"`
	AverageDuration float64 `json:"averageDuration"`
	TotalCost       float64 `json:"totalCost"`

	Trends          *Trends           `json:"trendsData,omitempty"`
	RecentCampaigns []CampaignSummary `json:"recentCampaigns"`
}

// Trends are percentage changes against the previous period.
type Trends struct {
	CampaignsTrend  float64 `json:"campaignsTrend"`
	CallsTrend      float64 `json:"callsTrend"`
	ConversionTrend float64 `json:"conversionTrend"`
}

type CampaignSummary struct {
	ID               string           `json:"id"`
	Name             string           `json:"campaign_name"`
	Status           campaigns.Status `json:"status"`
	TotalNumbers     int              `json:"total_numbers"`
	SuccessfulCalls  int              `json:"successful_calls"`
	FailedCalls      int              `json:"failed_calls"`
	CompletedSuccess int              `json:"completed_success"`
	CompletedFailed  int              `json:"completed_failed"`
	SuccessRate      float64          `json:"success_rate"`
	CreatedAt        time.Time        `json:"created_at"`
}
