package reporting

import (
	"context"
	"errors"
	"math"
	"time"

	"voicecall-platform/internal/calls"
	"voicecall-platform/internal/campaigns"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

type CampaignSource interface {
	List(ctx context.Context, userID string) ([]campaigns.Campaign, error)
}

type CallLogSource interface {
	List(ctx context.Context, f calls.ListFilter) ([]calls.Entry, error)
}

// Service derives dashboard numbers from campaigns and call logs. All reads
// are scoped to one user.
type Service struct {
	campaigns CampaignSource
	logs      CallLogSource
}

func NewService(c CampaignSource, l CallLogSource) *Service {
	return &Service{campaigns: c, logs: l}
}

func (s *Service) DashboardStats(ctx context.Context, userID string, req StatsRequest) (DashboardStats, error) {
	if userID == "" {
		return DashboardStats{}, ErrInvalidRequest
	}
	if !req.Range.IsZero() && !req.Range.To.After(req.Range.From) {
		return DashboardStats{}, ErrInvalidRequest
	}
	if req.RecentLimit <= 0 {
		req.RecentLimit = 5
	}

	camps, err := s.campaigns.List(ctx, userID)
	if err != nil {
		return DashboardStats{}, err
	}
	logs, err := s.logs.List(ctx, calls.ListFilter{UserID: userID})
	if err != nil {
		return DashboardStats{}, err
	}

	out := summarize(camps, logs, req.Range)

	if !req.Range.IsZero() {
		prev := summarize(camps, logs, req.Range.Previous())
		out.Trends = &Trends{
			CampaignsTrend:  change(float64(prev.TotalCampaigns), float64(out.TotalCampaigns)),
			CallsTrend:      change(float64(prev.TotalCalls), float64(out.TotalCalls)),
			ConversionTrend: change(prev.ConversionRate, out.ConversionRate),
		}
	}

	// camps is newest first.
	out.RecentCampaigns = make([]CampaignSummary, 0, req.RecentLimit)
	for _, c := range camps {
		if !req.Range.IsZero() && !req.Range.Contains(c.CreatedAt) {
			continue
		}
		if len(out.RecentCampaigns) == req.RecentLimit {
			break
		}
		out.RecentCampaigns = append(out.RecentCampaigns, summaryOf(c))
	}
	return out, nil
}

// summarize counts rows created inside r, or every row when r is zero.
// A call is successful when its evaluation is Success; failed when the
// dispatch failed or the evaluation is Fail. In-flight calls count only
// toward the total.
func summarize(camps []campaigns.Campaign, logs []calls.Entry, r TimeRange) DashboardStats {
	in := func(t time.Time) bool { return r.IsZero() || r.Contains(t) }

	var out DashboardStats
	for _, c := range camps {
		if in(c.CreatedAt) {
			out.TotalCampaigns++
		}
	}

	var durationSum, durationRows int
	for _, e := range logs {
		if !in(e.CreatedAt) {
			continue
		}
		out.TotalCalls++
		switch {
		case e.Metadata.String("evaluation_status") == calls.EvaluationSuccess:
			out.SuccessfulCalls++
		case e.Status == calls.StatusFailed, e.Metadata.String("evaluation_status") == calls.EvaluationFail:
			out.FailedCalls++
		}
		if e.DurationSeconds > 0 {
			durationSum += e.DurationSeconds
			durationRows++
		}
		out.TotalCost += e.Metadata.Float("call_cost")
	}

	if out.TotalCalls > 0 {
		out.ConversionRate = round1(float64(out.SuccessfulCalls) / float64(out.TotalCalls) * 100)
	}
	if durationRows > 0 {
		out.AverageDuration = round1(float64(durationSum) / float64(durationRows))
	}
	out.TotalCost = math.Round(out.TotalCost*100) / 100
	return out
}

func summaryOf(c campaigns.Campaign) CampaignSummary {
	return CampaignSummary{
		ID:               c.ID,
		Name:             c.Name,
		Status:           c.Status,
		TotalNumbers:     c.TotalNumbers,
		SuccessfulCalls:  c.SuccessfulCalls,
		FailedCalls:      c.FailedCalls,
		CompletedSuccess: c.CompletedSuccess,
		CompletedFailed:  c.CompletedFailed,
		SuccessRate:      c.SuccessRate(),
		CreatedAt:        c.CreatedAt,
	}
}

// change is the percentage change from prev to cur. Growth from zero is 100.
func change(prev, cur float64) float64 {
	if prev == 0 {
		if cur > 0 {
			return 100
		}
		return 0
	}
	return round1((cur - prev) / prev * 100)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
