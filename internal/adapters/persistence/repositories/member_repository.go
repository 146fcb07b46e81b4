package repositories

import (
	"context"

	"colony-staff/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// memberRepository implements MemberRepository interface
type memberRepository struct {
	db *gorm.DB
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

// Create enrols a new loyalty member
func (r *memberRepository) Create(ctx context.Context, member *models.Member) error {
	return r.db.WithContext(ctx).Create(member).Error
}

// GetByMembershipNumber gets a member by membership number
func (r *memberRepository) GetByMembershipNumber(ctx context.Context, membershipNumber string) (*models.Member, error) {
	var member models.Member
	err := r.db.WithContext(ctx).
		Where("membership_number = ?", membershipNumber).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// Exists checks if a membership number is enrolled
func (r *memberRepository) Exists(ctx context.Context, membershipNumber string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Member{}).
		Where("membership_number = ?", membershipNumber).
		Count(&count).Error
	return count > 0, err
}
