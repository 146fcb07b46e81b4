package repositories

import (
	"context"
	"time"

	"colony-staff/internal/adapters/persistence/models"
)

// StaffRepository defines staff repository interface
type StaffRepository interface {
	Create(ctx context.Context, staff *models.Staff) error
	GetByID(ctx context.Context, id uint) (*models.Staff, error)
	GetByStaffNo(ctx context.Context, staffNo string) (*models.Staff, error)
	GetByPhone(ctx context.Context, phone string) (*models.Staff, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
	LastStaffNo(ctx context.Context) (string, error)
}

// RevokedTokenRepository defines the access token denylist
type RevokedTokenRepository interface {
	Revoke(ctx context.Context, token *models.RevokedToken) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// MemberRepository defines loyalty member repository interface
type MemberRepository interface {
	Create(ctx context.Context, member *models.Member) error
	GetByMembershipNumber(ctx context.Context, membershipNumber string) (*models.Member, error)
	Exists(ctx context.Context, membershipNumber string) (bool, error)
}

// VisitRepository defines loyalty visit repository interface
type VisitRepository interface {
	// Award records visit and credits visit.PointsEarned to the member in one transaction.
	// It returns the member's new balance.
	Award(ctx context.Context, visit *models.LoyaltyVisit) (int64, error)
	ListByStaff(ctx context.Context, staffID uint, offset, limit int) ([]*models.LoyaltyVisit, int64, error)
	SummarizeSince(ctx context.Context, since time.Time) (*VisitSummary, error)
}

// VisitSummary aggregates visits over a period
type VisitSummary struct {
	Visits      int64   `json:"visits"`
	AmountSpent float64 `json:"amount_spent"`
	Points      int64   `json:"points"`
}
