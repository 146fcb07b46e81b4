package services

import (
	"context"
	"sync"

	"colony-staff/internal/adapters/persistence/memory"
	"colony-staff/internal/adapters/persistence/models"
	"colony-staff/internal/config"
	"colony-staff/internal/core/domain"
)

func testConfig() *config.Config {
	return &config.Config{
		AppMode: "dev",
		JWT:     config.JWTConfig{Secret: "test-secret", AccessTokenMins: 60},
		Loyalty: config.LoyaltyConfig{PointsPerUnit: 0.1, FirstStaffNo: 500501},
		Cron:    config.CronConfig{TokenPurge: "0 3 * * *", VisitSummary: "55 23 * * *"},
	}
}

// seededStore returns a store holding the demo member M123
func seededStore() *memory.Store {
	store := memory.New()
	store.AddMember(&models.Member{MembershipNumber: "M123", Name: "Asha", Phone: "9000000000"})
	return store
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.Visit
	err    error
}

func (p *fakePublisher) PublishVisitAwarded(_ context.Context, v domain.Visit) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, v)
	return nil
}
