package reporting

import (
	"context"
	"fmt"
	"testing"
	"time"

	"voicecall-platform/internal/calls"
	"voicecall-platform/internal/campaigns"
)

func seed(t *testing.T) (*campaigns.MemoryRepo, *calls.MemoryRepo, time.Time) {
	t.Helper()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	cr := campaigns.NewMemoryRepo()
	for i, c := range []campaigns.Campaign{
		{ID: "c1", UserID: "u1", Name: "old", Status: campaigns.StatusCompleted, TotalNumbers: 4, SuccessfulCalls: 3, CreatedAt: now.Add(-10 * 24 * time.Hour)},
		{ID: "c2", UserID: "u1", Name: "new", Status: campaigns.StatusCompleted, TotalNumbers: 2, SuccessfulCalls: 2, CreatedAt: now.Add(-time.Hour)},
		{ID: "c3", UserID: "u2", Name: "other", Status: campaigns.StatusCompleted, CreatedAt: now},
	} {
		if err := cr.Create(context.Background(), c); err != nil {
			t.Fatalf("seed campaign %d: %v", i, err)
		}
	}

	lr := calls.NewMemoryRepo()
	rows := []calls.Entry{
		{ID: "l1", UserID: "u1", Status: calls.StatusCompleted, DurationSeconds: 60, CreatedAt: now.Add(-time.Hour),
			Metadata: calls.Metadata{"evaluation_status": "Success", "call_cost": 0.25}},
		{ID: "l2", UserID: "u1", Status: calls.StatusCompleted, DurationSeconds: 120, CreatedAt: now.Add(-time.Hour),
			Metadata: calls.Metadata{"evaluation_status": "Fail", "call_cost": 0.5}},
		{ID: "l3", UserID: "u1", Status: calls.StatusFailed, CreatedAt: now.Add(-time.Hour),
			Metadata: calls.Metadata{"error": "VAPI API Error [400]: bad"}},
		{ID: "l4", UserID: "u1", Status: calls.StatusQueued, CreatedAt: now.Add(-10 * 24 * time.Hour)},
		{ID: "l5", UserID: "u2", Status: calls.StatusCompleted, DurationSeconds: 999, CreatedAt: now,
			Metadata: calls.Metadata{"evaluation_status": "Success"}},
	}
	for _, e := range rows {
		if err := lr.Insert(context.Background(), e); err != nil {
			t.Fatalf("seed log: %v", err)
		}
	}
	return cr, lr, now
}

func TestDashboardStats_AllTime(t *testing.T) {
	cr, lr, _ := seed(t)
	svc := NewService(cr, lr)

	out, err := svc.DashboardStats(context.Background(), "u1", StatsRequest{})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if out.TotalCampaigns != 2 || out.TotalCalls != 4 {
		t.Fatalf("unexpected totals %+v", out)
	}
	if out.SuccessfulCalls != 1 || out.FailedCalls != 2 {
		t.Fatalf("unexpected outcome split %+v", out)
	}
	if out.ConversionRate != 25 {
		t.Fatalf("expected 25%% conversion, got %v", out.ConversionRate)
	}
	if out.AverageDuration != 90 {
		t.Fatalf("expected 90s average over rows with duration, got %v", out.AverageDuration)
	}
	if out.TotalCost != 0.75 {
		t.Fatalf("unexpected cost %v", out.TotalCost)
	}
	if out.Trends != nil {
		t.Fatalf("all-time stats have no trends")
	}
	if len(out.RecentCampaigns) != 2 || out.RecentCampaigns[0].ID != "c2" || out.RecentCampaigns[1].SuccessRate != 75 {
		t.Fatalf("unexpected recent campaigns %+v", out.RecentCampaigns)
	}
}

func TestDashboardStats_CountsEveryLog(t *testing.T) {
	cr := campaigns.NewMemoryRepo()
	lr := calls.NewMemoryRepo()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 150; i++ {
		st := calls.StatusCompleted
		if i%3 == 0 {
			st = calls.StatusFailed
		}
		e := calls.Entry{ID: fmt.Sprintf("l%d", i), UserID: "u1", Status: st, CreatedAt: now.Add(-time.Duration(i) * time.Minute)}
		if err := lr.Insert(context.Background(), e); err != nil {
			t.Fatalf("seed log: %v", err)
		}
	}

	out, err := NewService(cr, lr).DashboardStats(context.Background(), "u1", StatsRequest{})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if out.TotalCalls != 150 || out.FailedCalls != 50 {
		t.Fatalf("expected 150 calls with 50 failed, got %+v", out)
	}
}

func TestDashboardStats_RangeAndTrends(t *testing.T) {
	cr, lr, now := seed(t)
	svc := NewService(cr, lr)

	week := TimeRange{From: now.Add(-7 * 24 * time.Hour), To: now}
	out, err := svc.DashboardStats(context.Background(), "u1", StatsRequest{Range: week})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if out.TotalCampaigns != 1 || out.TotalCalls != 3 {
		t.Fatalf("unexpected ranged totals %+v", out)
	}
	if out.Trends == nil {
		t.Fatalf("expected trends")
	}
	// Previous week: 1 campaign, 1 call. Current: 1 campaign, 3 calls.
	if out.Trends.CampaignsTrend != 0 || out.Trends.CallsTrend != 200 || out.Trends.ConversionTrend != 100 {
		t.Fatalf("unexpected trends %+v", *out.Trends)
	}
}

func TestDashboardStats_Validation(t *testing.T) {
	cr, lr, now := seed(t)
	svc := NewService(cr, lr)
	if _, err := svc.DashboardStats(context.Background(), "", StatsRequest{}); err != ErrInvalidRequest {
		t.Fatalf("expected ErrInvalidRequest for missing user")
	}
	if _, err := svc.DashboardStats(context.Background(), "u1", StatsRequest{Range: TimeRange{From: now, To: now}}); err != ErrInvalidRequest {
		t.Fatalf("expected ErrInvalidRequest for empty range")
	}
}

func TestDashboardStats_EmptyAccount(t *testing.T) {
	svc := NewService(campaigns.NewMemoryRepo(), calls.NewMemoryRepo())
	out, err := svc.DashboardStats(context.Background(), "nobody", StatsRequest{})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if out.TotalCalls != 0 || out.ConversionRate != 0 || out.RecentCampaigns == nil {
		t.Fatalf("unexpected empty stats %+v", out)
	}
}
