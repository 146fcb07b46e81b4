package models

import (
	"time"

	"gorm.io/gorm"
)

// ============================================================
// Staff & Auth Tables
// ============================================================

// Staff represents staff table
type Staff struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	StaffNo   string         `gorm:"uniqueIndex;size:20;not null" json:"staff_no"`
	Name      string         `gorm:"size:100;not null" json:"name"`
	Phone     string         `gorm:"uniqueIndex;size:20;not null" json:"phone"`
	Password  string         `gorm:"size:255;not null" json:"-"`
	Role      string         `gorm:"size:20;default:'STAFF'" json:"role"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Staff) TableName() string {
	return "staff"
}

// StaffResponse DTO
type StaffResponse struct {
	ID        uint      `json:"id"`
	StaffNo   string    `json:"staff_no"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Staff) ToResponse() *StaffResponse {
	return &StaffResponse{
		ID:        s.ID,
		StaffNo:   s.StaffNo,
		Name:      s.Name,
		Phone:     s.Phone,
		Role:      s.Role,
		IsActive:  s.IsActive,
		CreatedAt: s.CreatedAt,
	}
}

// RevokedToken represents revoked_tokens table.
// A logged-out access token stays here until its natural expiry.
type RevokedToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TokenID   string    `gorm:"uniqueIndex;size:64;not null" json:"token_id"`
	StaffID   uint      `gorm:"index;not null" json:"staff_id"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (RevokedToken) TableName() string {
	return "revoked_tokens"
}

// ============================================================
// Loyalty Tables
// ============================================================

// Member represents members table (loyalty customers)
type Member struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	MembershipNumber string         `gorm:"uniqueIndex;size:32;not null" json:"membership_number"`
	Name             string         `gorm:"size:100;not null" json:"name"`
	Phone            string         `gorm:"size:20" json:"phone"`
	Points           int64          `gorm:"not null;default:0" json:"points"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Member) TableName() string {
	return "members"
}

// LoyaltyVisit represents loyalty_visits table
type LoyaltyVisit struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Reference    string    `gorm:"uniqueIndex;size:36;not null" json:"reference"`
	MemberID     uint      `gorm:"index;not null" json:"member_id"`
	StaffID      uint      `gorm:"index;not null" json:"staff_id"`
	AmountSpent  float64   `gorm:"type:decimal(12,2);not null" json:"amount_spent"`
	PointsEarned int64     `gorm:"not null" json:"points_earned"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	Member       *Member   `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	Staff        *Staff    `gorm:"foreignKey:StaffID" json:"-"`
}

func (LoyaltyVisit) TableName() string {
	return "loyalty_visits"
}

// VisitResponse DTO
type VisitResponse struct {
	Reference        string    `json:"reference"`
	MembershipNumber string    `json:"membership_number"`
	MemberName       string    `json:"member_name,omitempty"`
	AmountSpent      float64   `json:"amount_spent"`
	PointsEarned     int64     `json:"points_earned"`
	CreatedAt        time.Time `json:"created_at"`
}

func (v *LoyaltyVisit) ToResponse() *VisitResponse {
	resp := &VisitResponse{
		Reference:    v.Reference,
		AmountSpent:  v.AmountSpent,
		PointsEarned: v.PointsEarned,
		CreatedAt:    v.CreatedAt,
	}
	if v.Member != nil {
		resp.MembershipNumber = v.Member.MembershipNumber
		resp.MemberName = v.Member.Name
	}
	return resp
}

// AutoMigrate creates or updates the loyalty tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Staff{},
		&RevokedToken{},
		&Member{},
		&LoyaltyVisit{},
	)
}
