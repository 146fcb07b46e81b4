package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"colony-staff/internal/adapters/persistence/repositories"
	"colony-staff/internal/config"

	"github.com/robfig/cron/v3"
)

// jobTimeout bounds a single background job run
const jobTimeout = 2 * time.Minute

// CronService runs scheduled maintenance for the loyalty backend
type CronService struct {
	cron        *cron.Cron
	revokedRepo repositories.RevokedTokenRepository
	visitRepo   repositories.VisitRepository
	cfg         *config.Config
	now         func() time.Time
}

// NewCronService creates a new cron service
func NewCronService(
	revokedRepo repositories.RevokedTokenRepository,
	visitRepo repositories.VisitRepository,
	cfg *config.Config,
) *CronService {
	return &CronService{
		cron:        cron.New(),
		revokedRepo: revokedRepo,
		visitRepo:   visitRepo,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Start registers the jobs and starts the scheduler
func (s *CronService) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.Cron.TokenPurge, s.runTokenPurge); err != nil {
		return fmt.Errorf("schedule token purge %q: %w", s.cfg.Cron.TokenPurge, err)
	}
	if _, err := s.cron.AddFunc(s.cfg.Cron.VisitSummary, s.runVisitSummary); err != nil {
		return fmt.Errorf("schedule visit summary %q: %w", s.cfg.Cron.VisitSummary, err)
	}

	s.cron.Start()
	log.Printf("🚀 CronService started [purge: %s | summary: %s]", s.cfg.Cron.TokenPurge, s.cfg.Cron.VisitSummary)
	return nil
}

// Stop waits for running jobs to finish
func (s *CronService) Stop() {
	<-s.cron.Stop().Done()
	log.Println("🛑 CronService stopped")
}

// PurgeRevokedTokens removes denylist rows for tokens that have expired anyway
func (s *CronService) PurgeRevokedTokens(ctx context.Context) (int64, error) {
	return s.revokedRepo.DeleteExpired(ctx, s.now())
}

// DailySummary aggregates today's visits
func (s *CronService) DailySummary(ctx context.Context) (*repositories.VisitSummary, error) {
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return s.visitRepo.SummarizeSince(ctx, midnight)
}

func (s *CronService) runTokenPurge() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.PurgeRevokedTokens(ctx)
	if err != nil {
		log.Printf("❌ Revoked token purge error: %v", err)
		return
	}
	if n > 0 {
		log.Printf("🗑️ Purged %d expired revoked tokens", n)
	}
}

func (s *CronService) runVisitSummary() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	summary, err := s.DailySummary(ctx)
	if err != nil {
		log.Printf("❌ Visit summary error: %v", err)
		return
	}
	log.Printf("📅 Today: %d visits, %.2f spent, %d points awarded", summary.Visits, summary.AmountSpent, summary.Points)
}
