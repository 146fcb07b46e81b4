package domain

import "time"

// Role represents a staff role in the system
type Role string

const (
	RoleStaff   Role = "STAFF"
	RoleManager Role = "MANAGER"
)

// Visit represents one awarded loyalty visit
type Visit struct {
	Reference        string    `json:"reference"`
	MembershipNumber string    `json:"membership_number"`
	StaffNo          string    `json:"staff_no"`
	AmountSpent      float64   `json:"amount_spent"`
	PointsEarned     int64     `json:"points_earned"`
	CreatedAt        time.Time `json:"created_at"`
}

// Alert is a user-facing title/message pair
type Alert struct {
	Title   string
	Message string
}

func (a Alert) String() string {
	if a.Message == "" {
		return a.Title
	}
	return a.Title + ": " + a.Message
}
