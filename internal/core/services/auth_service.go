package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"colony-staff/internal/adapters/persistence/models"
	"colony-staff/internal/adapters/persistence/repositories"
	"colony-staff/internal/config"
	"colony-staff/internal/core/domain"
	"colony-staff/internal/pkg/jwt"
	"colony-staff/internal/pkg/metrics"
	"colony-staff/internal/pkg/password"

	"gorm.io/gorm"
)

// staffNoAttempts bounds retries when two registrations race for the same number
const staffNoAttempts = 3

// StaffAuthService handles staff authentication business logic
type StaffAuthService struct {
	staffRepo   repositories.StaffRepository
	revokedRepo repositories.RevokedTokenRepository
	cfg         *config.Config
	hashCost    int
}

// NewStaffAuthService creates a new staff auth service
func NewStaffAuthService(
	staffRepo repositories.StaffRepository,
	revokedRepo repositories.RevokedTokenRepository,
	cfg *config.Config,
) *StaffAuthService {
	return &StaffAuthService{
		staffRepo:   staffRepo,
		revokedRepo: revokedRepo,
		cfg:         cfg,
		hashCost:    password.DefaultCost,
	}
}

// WithHashCost overrides the bcrypt cost
func (s *StaffAuthService) WithHashCost(cost int) *StaffAuthService {
	s.hashCost = cost
	return s
}

// RegisterInput represents staff registration input
type RegisterInput struct {
	Name     string
	Phone    string
	Password string
}

// LoginInput represents staff login input. LoginField is a staff number or a phone number.
type LoginInput struct {
	LoginField string
	Password   string
}

// LoginResult represents a successful login
type LoginResult struct {
	AccessToken string                `json:"access_token"`
	ExpiresAt   time.Time             `json:"expires_at"`
	Staff       *models.StaffResponse `json:"staff"`
}

// Register creates a staff account and assigns the next staff number
func (s *StaffAuthService) Register(ctx context.Context, input *RegisterInput) (*models.StaffResponse, error) {
	// 1. Phone must be unused
	exists, err := s.staffRepo.ExistsByPhone(ctx, input.Phone)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrStaffAlreadyExists
	}

	// 2. Hash password
	hashed, err := password.HashWithCost(input.Password, s.hashCost)
	if err != nil {
		return nil, err
	}

	// 3. Allocate a staff number and create; a unique index guards concurrent registrations
	var staff *models.Staff
	for attempt := 1; attempt <= staffNoAttempts; attempt++ {
		staffNo, err := s.nextStaffNo(ctx)
		if err != nil {
			return nil, err
		}

		staff = &models.Staff{
			StaffNo:  staffNo,
			Name:     input.Name,
			Phone:    input.Phone,
			Password: hashed,
			Role:     string(domain.RoleStaff),
			IsActive: true,
		}
		err = s.staffRepo.Create(ctx, staff)
		if err == nil {
			break
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) || attempt == staffNoAttempts {
			return nil, err
		}
		log.Printf("⚠️ Staff number %s taken, retrying (%d/%d)", staffNo, attempt, staffNoAttempts)
	}

	metrics.StaffRegistered.Inc()
	log.Printf("✅ Staff registered: %s (%s)", staff.StaffNo, staff.Name)

	return staff.ToResponse(), nil
}

// Login authenticates a staff member and issues an access token
func (s *StaffAuthService) Login(ctx context.Context, input *LoginInput) (*LoginResult, error) {
	// 1. Find staff by staff number, then by phone
	staff, err := s.findByLoginField(ctx, input.LoginField)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.LoginAttempts.WithLabelValues("invalid").Inc()
			return nil, domain.ErrInvalidCredentials
		}
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		return nil, err
	}

	// 2. Check if staff is active
	if !staff.IsActive {
		metrics.LoginAttempts.WithLabelValues("inactive").Inc()
		return nil, domain.ErrStaffInactive
	}

	// 3. Verify password
	if !password.Verify(input.Password, staff.Password) {
		metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	// 4. Issue access token
	issued, err := jwt.GenerateAccessToken(
		staff.ID,
		staff.StaffNo,
		staff.Name,
		staff.Role,
		s.cfg.JWT.Secret,
		s.cfg.JWT.AccessTokenMins,
	)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	log.Printf("✅ Staff logged in: %s", staff.StaffNo)

	return &LoginResult{
		AccessToken: issued.Token,
		ExpiresAt:   issued.ExpiresAt,
		Staff:       staff.ToResponse(),
	}, nil
}

// Logout revokes the access token described by claims
func (s *StaffAuthService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if claims.ID == "" {
		return domain.ErrTokenInvalid
	}

	token := &models.RevokedToken{
		TokenID:   claims.ID,
		StaffID:   claims.StaffID,
		ExpiresAt: claims.ExpiresAtTime(),
	}
	if err := s.revokedRepo.Revoke(ctx, token); err != nil {
		return err
	}

	log.Printf("✅ Staff logged out: %s", claims.StaffNo)
	return nil
}

// IsRevoked reports whether an access token ID was logged out
func (s *StaffAuthService) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	return s.revokedRepo.IsRevoked(ctx, tokenID)
}

// Me returns the profile of the calling staff member
func (s *StaffAuthService) Me(ctx context.Context, staffID uint) (*models.StaffResponse, error) {
	staff, err := s.staffRepo.GetByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrStaffNotFound
		}
		return nil, err
	}
	return staff.ToResponse(), nil
}

func (s *StaffAuthService) findByLoginField(ctx context.Context, loginField string) (*models.Staff, error) {
	staff, err := s.staffRepo.GetByStaffNo(ctx, loginField)
	if err == nil {
		return staff, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return s.staffRepo.GetByPhone(ctx, loginField)
}

// nextStaffNo returns the number after the highest issued one
func (s *StaffAuthService) nextStaffNo(ctx context.Context) (string, error) {
	last, err := s.staffRepo.LastStaffNo(ctx)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(last) == "" {
		return strconv.Itoa(s.cfg.Loyalty.FirstStaffNo), nil
	}

	n, err := strconv.Atoi(last)
	if err != nil {
		return "", fmt.Errorf("last staff number %q is not numeric: %w", last, err)
	}
	if n < s.cfg.Loyalty.FirstStaffNo {
		n = s.cfg.Loyalty.FirstStaffNo - 1
	}
	return strconv.Itoa(n + 1), nil
}
