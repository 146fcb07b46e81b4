package repositories

import (
	"context"
	"errors"

	"colony-staff/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// staffRepository implements StaffRepository interface
type staffRepository struct {
	db *gorm.DB
}

// NewStaffRepository creates a new staff repository
func NewStaffRepository(db *gorm.DB) StaffRepository {
	return &staffRepository{db: db}
}

// Create creates a new staff account
func (r *staffRepository) Create(ctx context.Context, staff *models.Staff) error {
	return r.db.WithContext(ctx).Create(staff).Error
}

// GetByID gets a staff member by ID
func (r *staffRepository) GetByID(ctx context.Context, id uint) (*models.Staff, error) {
	var staff models.Staff
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&staff).Error; err != nil {
		return nil, err
	}
	return &staff, nil
}

// GetByStaffNo gets a staff member by badge number
func (r *staffRepository) GetByStaffNo(ctx context.Context, staffNo string) (*models.Staff, error) {
	var staff models.Staff
	if err := r.db.WithContext(ctx).Where("staff_no = ?", staffNo).First(&staff).Error; err != nil {
		return nil, err
	}
	return &staff, nil
}

// GetByPhone gets a staff member by phone number
func (r *staffRepository) GetByPhone(ctx context.Context, phone string) (*models.Staff, error) {
	var staff models.Staff
	if err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&staff).Error; err != nil {
		return nil, err
	}
	return &staff, nil
}

// ExistsByPhone checks if phone is already registered
func (r *staffRepository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Staff{}).Where("phone = ?", phone).Count(&count).Error
	return count > 0, err
}

// LastStaffNo returns the highest issued staff number, or "" when none exist
func (r *staffRepository) LastStaffNo(ctx context.Context) (string, error) {
	var staff models.Staff
	err := r.db.WithContext(ctx).
		Unscoped().
		Order("LENGTH(staff_no) DESC, staff_no DESC").
		First(&staff).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return staff.StaffNo, nil
}
