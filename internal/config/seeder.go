package config

import (
	"context"
	"errors"
	"log"

	"colony-staff/internal/adapters/persistence/models"
	"colony-staff/internal/adapters/persistence/repositories"
	"colony-staff/internal/pkg/password"

	"gorm.io/gorm"
)

// Demo credentials seeded in dev mode
const (
	DemoStaffNo       = "500501"
	DemoStaffPassword = "Colony@123"
	DemoMembership    = "M123"
)

// Seeder handles database seeding
type Seeder struct {
	staffRepo  repositories.StaffRepository
	memberRepo repositories.MemberRepository
}

// NewSeeder creates a new seeder instance
func NewSeeder(staffRepo repositories.StaffRepository, memberRepo repositories.MemberRepository) *Seeder {
	return &Seeder{staffRepo: staffRepo, memberRepo: memberRepo}
}

// Run executes all seeders
func (s *Seeder) Run(ctx context.Context) error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedDemoStaff(ctx); err != nil {
		log.Printf("⚠️ Staff seeder skipped: %v", err)
	}
	if err := s.seedDemoMember(ctx); err != nil {
		log.Printf("⚠️ Member seeder skipped: %v", err)
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// seedDemoStaff creates the till account used for local testing.
// This is for development only.
func (s *Seeder) seedDemoStaff(ctx context.Context) error {
	_, err := s.staffRepo.GetByStaffNo(ctx, DemoStaffNo)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashed, err := password.Hash(DemoStaffPassword)
	if err != nil {
		return err
	}

	staff := &models.Staff{
		StaffNo:  DemoStaffNo,
		Name:     "Demo Cashier",
		Phone:    "0700000000",
		Password: hashed,
		Role:     "STAFF",
		IsActive: true,
	}
	if err := s.staffRepo.Create(ctx, staff); err != nil {
		return err
	}

	log.Printf("✅ Demo staff created: %s", staff.StaffNo)
	return nil
}

// seedDemoMember creates the member whose card the demo QR encodes
func (s *Seeder) seedDemoMember(ctx context.Context) error {
	exists, err := s.memberRepo.Exists(ctx, DemoMembership)
	if err != nil || exists {
		return err
	}

	member := &models.Member{
		MembershipNumber: DemoMembership,
		Name:             "Asha",
		Phone:            "9000000000",
	}
	if err := s.memberRepo.Create(ctx, member); err != nil {
		return err
	}

	log.Printf("✅ Demo member created: %s", member.MembershipNumber)
	return nil
}
