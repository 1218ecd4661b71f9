package service

import (
	"context"
	"fmt"
	"time"

	"brandpulse/internal/db"
)

// AnalyticsService reads aggregate counters for the dashboard
type AnalyticsService struct {
	queries *db.Queries
}

func NewAnalyticsService(queries *db.Queries) *AnalyticsService {
	return &AnalyticsService{queries: queries}
}

// OverviewReport summarizes inbox volume and automation outcomes over a
// trailing window.
type OverviewReport struct {
	WindowDays        int              `json:"windowDays"`
	TotalInteractions int64            `json:"totalInteractions"`
	ByStatus          map[string]int64 `json:"byStatus"`
	ByPlatform        map[string]int64 `json:"byPlatform"`
	Dispatched        int64            `json:"dispatched"`
	Exhausted         int64            `json:"exhausted"`
	Failed            int64            `json:"failed"`
	AICalls           int64            `json:"aiCalls"`
	AutomationRate    float64          `json:"automationRate"`
}

func (s *AnalyticsService) Overview(ctx context.Context, days int) (*OverviewReport, error) {
	if days <= 0 || days > 365 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)

	stats, err := s.queries.GetOverviewStats(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load overview stats: %w", err)
	}

	report := &OverviewReport{
		WindowDays:        days,
		TotalInteractions: stats.TotalInteractions,
		ByStatus:          stats.ByStatus,
		ByPlatform:        stats.ByPlatform,
		Dispatched:        stats.Dispatched,
		Exhausted:         stats.Exhausted,
		Failed:            stats.Failed,
		AICalls:           stats.AICalls,
	}
	if total := stats.Dispatched + stats.Exhausted + stats.Failed; total > 0 {
		report.AutomationRate = float64(stats.Dispatched) / float64(total)
	}
	return report, nil
}

// WorkflowReport is per-workflow match volume over the window
type WorkflowReport struct {
	WorkflowID string `json:"workflowId"`
	Name       string `json:"name"`
	ActionType string `json:"actionType"`
	Matches    int64  `json:"matches"`
	Failures   int64  `json:"failures"`
	AICalls    int64  `json:"aiCalls"`
}

func (s *AnalyticsService) WorkflowStats(ctx context.Context, days int) ([]WorkflowReport, error) {
	if days <= 0 || days > 365 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)

	stats, err := s.queries.GetWorkflowStats(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow stats: %w", err)
	}

	reports := make([]WorkflowReport, 0, len(stats))
	for _, st := range stats {
		reports = append(reports, WorkflowReport{
			WorkflowID: st.WorkflowID,
			Name:       st.Name,
			ActionType: st.ActionType,
			Matches:    st.Matches,
			Failures:   st.Failures,
			AICalls:    st.AICalls,
		})
	}
	return reports, nil
}
