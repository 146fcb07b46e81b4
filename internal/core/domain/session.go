package domain

// StaffInfo is the staff record returned by a login, when the backend sends one
type StaffInfo struct {
	StaffNo string `json:"staff_no"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Role    string `json:"role"`
}

// Session is the in-memory authentication record of the device.
// Token must be non-empty whenever IsLoggedIn is true.
type Session struct {
	Token      string
	IsLoggedIn bool
	StaffInfo  *StaffInfo
}

// Valid reports whether the session may route to the authenticated flow
func (s Session) Valid() bool {
	return s.IsLoggedIn && s.Token != ""
}

// AuthStatus tags an AuthState
type AuthStatus int

const (
	StatusPending AuthStatus = iota
	StatusUnauthenticated
	StatusAuthenticated
)

func (s AuthStatus) String() string {
	switch s {
	case StatusUnauthenticated:
		return "Unauthenticated"
	case StatusAuthenticated:
		return "Authenticated"
	default:
		return "Pending"
	}
}

// AuthState is the tagged state observed by the auth gate:
// Pending | Unauthenticated | Authenticated(token)
type AuthState struct {
	Status AuthStatus
	Token  string
}

// Unauthenticated returns the unauthenticated state
func Unauthenticated() AuthState {
	return AuthState{Status: StatusUnauthenticated}
}

// Authenticated returns the authenticated state carrying token
func Authenticated(token string) AuthState {
	return AuthState{Status: StatusAuthenticated, Token: token}
}

func (s AuthState) String() string {
	return s.Status.String()
}
