package repositories

import (
	"context"
	"time"

	"colony-staff/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// visitRepository implements VisitRepository interface
type visitRepository struct {
	db *gorm.DB
}

// NewVisitRepository creates a new loyalty visit repository
func NewVisitRepository(db *gorm.DB) VisitRepository {
	return &visitRepository{db: db}
}

// Award inserts the visit and credits the member balance atomically
func (r *visitRepository) Award(ctx context.Context, visit *models.LoyaltyVisit) (int64, error) {
	var balance int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(visit).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Member{}).
			Where("id = ?", visit.MemberID).
			Update("points", gorm.Expr("points + ?", visit.PointsEarned)).Error; err != nil {
			return err
		}

		return tx.Model(&models.Member{}).
			Where("id = ?", visit.MemberID).
			Select("points").
			Scan(&balance).Error
	})
	return balance, err
}

// ListByStaff lists the visits recorded by a staff member, newest first
func (r *visitRepository) ListByStaff(ctx context.Context, staffID uint, offset, limit int) ([]*models.LoyaltyVisit, int64, error) {
	var visits []*models.LoyaltyVisit
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.LoyaltyVisit{}).Where("staff_id = ?", staffID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Preload("Member").
		Where("staff_id = ?", staffID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&visits).Error
	if err != nil {
		return nil, 0, err
	}

	return visits, total, nil
}

// SummarizeSince aggregates every visit created at or after since
func (r *visitRepository) SummarizeSince(ctx context.Context, since time.Time) (*VisitSummary, error) {
	var summary VisitSummary
	err := r.db.WithContext(ctx).
		Model(&models.LoyaltyVisit{}).
		Select("COUNT(*) AS visits, COALESCE(SUM(amount_spent), 0) AS amount_spent, COALESCE(SUM(points_earned), 0) AS points").
		Where("created_at >= ?", since).
		Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
