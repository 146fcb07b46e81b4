// Package memory is an in-process implementation of the repository interfaces.
// It backs the server in STORAGE=memory mode and the service and handler tests.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"colony-staff/internal/adapters/persistence/models"
	"colony-staff/internal/adapters/persistence/repositories"

	"gorm.io/gorm"
)

// Store holds every table behind one mutex
type Store struct {
	mu      sync.Mutex
	staff   []*models.Staff
	revoked map[string]*models.RevokedToken
	members map[string]*models.Member
	visits  []*models.LoyaltyVisit
	nextID  uint
}

// New returns an empty store
func New() *Store {
	return &Store{
		revoked: make(map[string]*models.RevokedToken),
		members: make(map[string]*models.Member),
	}
}

func (s *Store) id() uint {
	s.nextID++
	return s.nextID
}

// AddMember enrols a member directly, for seeding
func (s *Store) AddMember(m *models.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.id()
	m.CreatedAt = time.Now()
	s.members[m.MembershipNumber] = m
}

// Staff returns the staff repository view
func (s *Store) Staff() repositories.StaffRepository { return staffRepo{s} }

// RevokedTokens returns the revoked token repository view
func (s *Store) RevokedTokens() repositories.RevokedTokenRepository { return revokedRepo{s} }

// Members returns the member repository view
func (s *Store) Members() repositories.MemberRepository { return memberRepo{s} }

// Visits returns the visit repository view
func (s *Store) Visits() repositories.VisitRepository { return visitRepo{s} }

// ============================================================
// Staff
// ============================================================

type staffRepo struct{ s *Store }

func (r staffRepo) Create(_ context.Context, staff *models.Staff) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.staff {
		if existing.StaffNo == staff.StaffNo || existing.Phone == staff.Phone {
			return gorm.ErrDuplicatedKey
		}
	}
	staff.ID = r.s.id()
	staff.CreatedAt = time.Now()
	staff.UpdatedAt = staff.CreatedAt
	r.s.staff = append(r.s.staff, staff)
	return nil
}

func (r staffRepo) find(match func(*models.Staff) bool) (*models.Staff, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, staff := range r.s.staff {
		if match(staff) {
			copied := *staff
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r staffRepo) GetByID(_ context.Context, id uint) (*models.Staff, error) {
	return r.find(func(s *models.Staff) bool { return s.ID == id })
}

func (r staffRepo) GetByStaffNo(_ context.Context, staffNo string) (*models.Staff, error) {
	return r.find(func(s *models.Staff) bool { return s.StaffNo == staffNo })
}

func (r staffRepo) GetByPhone(_ context.Context, phone string) (*models.Staff, error) {
	return r.find(func(s *models.Staff) bool { return s.Phone == phone })
}

func (r staffRepo) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	_, err := r.GetByPhone(ctx, phone)
	return err == nil, nil
}

func (r staffRepo) LastStaffNo(context.Context) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	best, bestN := "", -1
	for _, staff := range r.s.staff {
		n, err := strconv.Atoi(staff.StaffNo)
		if err != nil {
			continue
		}
		if n > bestN {
			best, bestN = staff.StaffNo, n
		}
	}
	return best, nil
}

// SetActive toggles a staff account, for tests and admin tooling
func (s *Store) SetActive(staffNo string, active bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, staff := range s.staff {
		if staff.StaffNo == staffNo {
			staff.IsActive = active
			return true
		}
	}
	return false
}

// SetRole changes a staff member's role
func (s *Store) SetRole(staffNo, role string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, staff := range s.staff {
		if staff.StaffNo == staffNo {
			staff.Role = role
			return true
		}
	}
	return false
}

// ============================================================
// Revoked tokens
// ============================================================

type revokedRepo struct{ s *Store }

func (r revokedRepo) Revoke(_ context.Context, token *models.RevokedToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.revoked[token.TokenID]; !ok {
		token.ID = r.s.id()
		token.CreatedAt = time.Now()
		r.s.revoked[token.TokenID] = token
	}
	return nil
}

func (r revokedRepo) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.revoked[tokenID]
	return ok, nil
}

func (r revokedRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, token := range r.s.revoked {
		if token.ExpiresAt.Before(now) {
			delete(r.s.revoked, id)
			n++
		}
	}
	return n, nil
}

// ============================================================
// Members
// ============================================================

type memberRepo struct{ s *Store }

func (r memberRepo) Create(_ context.Context, member *models.Member) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.members[member.MembershipNumber]; ok {
		return gorm.ErrDuplicatedKey
	}
	member.ID = r.s.id()
	member.CreatedAt = time.Now()
	r.s.members[member.MembershipNumber] = member
	return nil
}

func (r memberRepo) GetByMembershipNumber(_ context.Context, membershipNumber string) (*models.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	member, ok := r.s.members[membershipNumber]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *member
	return &copied, nil
}

func (r memberRepo) Exists(ctx context.Context, membershipNumber string) (bool, error) {
	_, err := r.GetByMembershipNumber(ctx, membershipNumber)
	return err == nil, nil
}

// ============================================================
// Visits
// ============================================================

type visitRepo struct{ s *Store }

func (r visitRepo) Award(_ context.Context, visit *models.LoyaltyVisit) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var member *models.Member
	for _, m := range r.s.members {
		if m.ID == visit.MemberID {
			member = m
			break
		}
	}
	if member == nil {
		return 0, gorm.ErrRecordNotFound
	}

	visit.ID = r.s.id()
	visit.CreatedAt = time.Now()
	r.s.visits = append(r.s.visits, visit)
	member.Points += visit.PointsEarned
	return member.Points, nil
}

func (r visitRepo) ListByStaff(_ context.Context, staffID uint, offset, limit int) ([]*models.LoyaltyVisit, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var mine []*models.LoyaltyVisit
	for _, v := range r.s.visits {
		if v.StaffID == staffID {
			copied := *v
			for _, m := range r.s.members {
				if m.ID == v.MemberID {
					member := *m
					copied.Member = &member
				}
			}
			mine = append(mine, &copied)
		}
	}
	sort.SliceStable(mine, func(i, j int) bool { return mine[i].ID > mine[j].ID })

	total := int64(len(mine))
	if offset >= len(mine) {
		return []*models.LoyaltyVisit{}, total, nil
	}
	end := offset + limit
	if end > len(mine) {
		end = len(mine)
	}
	return mine[offset:end], total, nil
}

func (r visitRepo) SummarizeSince(_ context.Context, since time.Time) (*repositories.VisitSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var summary repositories.VisitSummary
	for _, v := range r.s.visits {
		if !v.CreatedAt.Before(since) {
			summary.Visits++
			summary.AmountSpent += v.AmountSpent
			summary.Points += v.PointsEarned
		}
	}
	return &summary, nil
}
