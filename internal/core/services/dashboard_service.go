package services

import (
	"context"
	"fmt"
	"time"

	"colony-staff/internal/adapters/persistence/repositories"
)

// DashboardService builds the manager overview of loyalty activity
type DashboardService struct {
	visitRepo repositories.VisitRepository
	now       func() time.Time
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(visitRepo repositories.VisitRepository) *DashboardService {
	return &DashboardService{visitRepo: visitRepo, now: time.Now}
}

// ManagerDashboardData represents manager dashboard data
type ManagerDashboardData struct {
	GeneratedAt time.Time                  `json:"generated_at"`
	Today       *repositories.VisitSummary `json:"today"`
	Last7Days   *repositories.VisitSummary `json:"last_7_days"`
	Last30Days  *repositories.VisitSummary `json:"last_30_days"`
}

// GetManagerDashboard returns visit totals for today and the trailing week and month
func (s *DashboardService) GetManagerDashboard(ctx context.Context) (*ManagerDashboardData, error) {
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	data := &ManagerDashboardData{GeneratedAt: now}
	periods := []struct {
		since time.Time
		dst   **repositories.VisitSummary
	}{
		{midnight, &data.Today},
		{midnight.AddDate(0, 0, -6), &data.Last7Days},
		{midnight.AddDate(0, 0, -29), &data.Last30Days},
	}

	for _, p := range periods {
		summary, err := s.visitRepo.SummarizeSince(ctx, p.since)
		if err != nil {
			return nil, fmt.Errorf("summarize visits since %s: %w", p.since.Format(time.DateOnly), err)
		}
		*p.dst = summary
	}
	return data, nil
}
