package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math"
	"strings"
	"time"

	"colony-staff/internal/adapters/persistence/models"
	"colony-staff/internal/adapters/persistence/repositories"
	"colony-staff/internal/config"
	"colony-staff/internal/core/domain"
	"colony-staff/internal/pkg/metrics"
	"colony-staff/internal/pkg/pagination"
	"colony-staff/internal/pkg/qrcode"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// publishTimeout bounds how long a visit award waits on the broker
const publishTimeout = 3 * time.Second

// maxPointsPerVisit keeps a single award exactly representable and far from int64 overflow
const maxPointsPerVisit = 1 << 53

// VisitPublisher announces awarded visits to other systems
type VisitPublisher interface {
	PublishVisitAwarded(ctx context.Context, visit domain.Visit) error
}

// LoyaltyService handles loyalty visit business logic
type LoyaltyService struct {
	memberRepo repositories.MemberRepository
	visitRepo  repositories.VisitRepository
	publisher  VisitPublisher
	cfg        *config.Config
}

// NewLoyaltyService creates a new loyalty service. publisher may be nil.
func NewLoyaltyService(
	memberRepo repositories.MemberRepository,
	visitRepo repositories.VisitRepository,
	publisher VisitPublisher,
	cfg *config.Config,
) *LoyaltyService {
	return &LoyaltyService{
		memberRepo: memberRepo,
		visitRepo:  visitRepo,
		publisher:  publisher,
		cfg:        cfg,
	}
}

// AddVisitInput represents one purchase to award
type AddVisitInput struct {
	MembershipNumber string
	AmountSpent      float64
	StaffID          uint
	StaffNo          string
}

// VisitResult is returned to the staff client
type VisitResult struct {
	Reference    string `json:"reference"`
	PointsEarned int64  `json:"pointsEarned"`
	TotalPoints  int64  `json:"totalPoints"`
	MemberName   string `json:"memberName"`
}

// AddVisit records a purchase and credits points to the member
func (s *LoyaltyService) AddVisit(ctx context.Context, input *AddVisitInput) (*VisitResult, error) {
	// 1. Validate input
	membership := strings.TrimSpace(input.MembershipNumber)
	if membership == "" || membership == domain.UnknownDetail {
		metrics.VisitsRejected.WithLabelValues("membership").Inc()
		return nil, domain.ErrMemberNotFound
	}
	if !validAmount(input.AmountSpent) {
		metrics.VisitsRejected.WithLabelValues("amount").Inc()
		return nil, domain.ErrInvalidAmount
	}

	// 2. Find member
	member, err := s.memberRepo.GetByMembershipNumber(ctx, membership)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.VisitsRejected.WithLabelValues("membership").Inc()
			return nil, domain.ErrMemberNotFound
		}
		metrics.VisitsRejected.WithLabelValues("error").Inc()
		return nil, err
	}

	// 3. Record visit and credit points
	points, err := s.PointsFor(input.AmountSpent)
	if err != nil {
		metrics.VisitsRejected.WithLabelValues("amount").Inc()
		return nil, err
	}
	visit := &models.LoyaltyVisit{
		Reference:    uuid.New().String(),
		MemberID:     member.ID,
		StaffID:      input.StaffID,
		AmountSpent:  input.AmountSpent,
		PointsEarned: points,
	}
	balance, err := s.visitRepo.Award(ctx, visit)
	if err != nil {
		metrics.VisitsRejected.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.VisitsAwarded.Inc()
	metrics.PointsAwarded.Add(float64(visit.PointsEarned))
	log.Printf("✅ Visit %s: %d points to %s by staff %s", visit.Reference, visit.PointsEarned, membership, input.StaffNo)

	// 4. Announce; the award stands even if the broker is down
	s.publish(domain.Visit{
		Reference:        visit.Reference,
		MembershipNumber: membership,
		StaffNo:          input.StaffNo,
		AmountSpent:      visit.AmountSpent,
		PointsEarned:     visit.PointsEarned,
		CreatedAt:        time.Now().UTC(),
	})

	return &VisitResult{
		Reference:    visit.Reference,
		PointsEarned: visit.PointsEarned,
		TotalPoints:  balance,
		MemberName:   member.Name,
	}, nil
}

// PointsFor converts an amount into whole points, rounding down.
// Amounts the visit table cannot hold, or that earn more than maxPointsPerVisit, are rejected.
func (s *LoyaltyService) PointsFor(amount float64) (int64, error) {
	if !validAmount(amount) {
		return 0, domain.ErrInvalidAmount
	}
	// 1e-9 absorbs float error so exact multiples do not round down a point
	points := math.Floor(amount*s.cfg.Loyalty.PointsPerUnit + 1e-9)
	if math.IsNaN(points) || points < 0 || points > maxPointsPerVisit {
		return 0, domain.ErrInvalidAmount
	}
	return int64(points), nil
}

// ListVisits returns the visits recorded by a staff member
func (s *LoyaltyService) ListVisits(ctx context.Context, staffID uint, params *pagination.Params) ([]*models.VisitResponse, int64, error) {
	visits, total, err := s.visitRepo.ListByStaff(ctx, staffID, params.Offset, params.Limit)
	if err != nil {
		return nil, 0, err
	}

	out := make([]*models.VisitResponse, len(visits))
	for i, v := range visits {
		out[i] = v.ToResponse()
	}
	return out, total, nil
}

// memberCard is the JSON carried by a member QR code
type memberCard struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Membership string `json:"membership"`
}

// MemberQR renders the QR code a member presents at the till
func (s *LoyaltyService) MemberQR(ctx context.Context, membershipNumber string, size int) ([]byte, error) {
	member, err := s.memberRepo.GetByMembershipNumber(ctx, strings.TrimSpace(membershipNumber))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}

	card, err := json.Marshal(memberCard{
		Name:       member.Name,
		Phone:      member.Phone,
		Membership: member.MembershipNumber,
	})
	if err != nil {
		return nil, err
	}
	return qrcode.EncodePNG(string(card), size)
}

func (s *LoyaltyService) publish(visit domain.Visit) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := s.publisher.PublishVisitAwarded(ctx, visit); err != nil {
		log.Printf("⚠️ Visit %s not published: %v", visit.Reference, err)
	}
}

func validAmount(amount float64) bool {
	return amount >= 0 && amount <= domain.MaxAmountSpent && !math.IsNaN(amount) && !math.IsInf(amount, 0)
}
