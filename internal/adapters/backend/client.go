// Package backend is the HTTP client for the loyalty REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"colony-staff/internal/config"
	"colony-staff/internal/core/domain"
)

// maxBodyBytes bounds how much of a response is read
const maxBodyBytes = 1 << 20

// Client calls the loyalty backend. Methods that act for a staff member take
// the bearer token explicitly; the client itself holds no session.
type Client struct {
	baseURL    string
	httpClient *http.Client
	skipNgrok  bool
}

// New creates a client from the staff client configuration
func New(cfg *config.ClientConfig) *Client {
	return NewWithHTTPClient(cfg, &http.Client{Timeout: cfg.Timeout})
}

// NewWithHTTPClient creates a client that sends through hc
func NewWithHTTPClient(cfg *config.ClientConfig, hc *http.Client) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: hc,
		skipNgrok:  cfg.SkipNgrokBanner,
	}
}

// envelope is the server's {success, message, data, error} response.
// Token and User carry the legacy login shape {token, user}.
type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
	Token   string          `json:"token"`
	User    json.RawMessage `json:"user"`
}

func (e *envelope) hasData() bool {
	return len(e.Data) > 0 && string(e.Data) != "null"
}

// ok applies the success rule: HTTP 2xx and either success:true, or no
// success field with a data object present
func (e *envelope) ok(status int) bool {
	if status < 200 || status > 299 {
		return false
	}
	if e.Success != nil {
		return *e.Success
	}
	return e.hasData()
}

func (e *envelope) rejection(status int) *APIError {
	msg := e.Message
	if msg == "" {
		msg = e.Error
	}
	return &APIError{Status: status, Message: msg}
}

// do sends one request and decodes the JSON envelope
func (c *Client) do(ctx context.Context, method, path, token string, body interface{}) (*envelope, int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("backend: encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.skipNgrok {
		req.Header.Set("ngrok-skip-browser-warning", "true")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}

	// Check the content type before parsing; tunnels answer with HTML banners
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		log.Printf("⚠️ %s %s returned %q (HTTP %d)", method, path, resp.Header.Get("Content-Type"), resp.StatusCode)
		return nil, resp.StatusCode, fmt.Errorf("%w: HTTP %d %s", ErrNotJSON, resp.StatusCode, mediaType)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: %w", ErrNotJSON, err)
	}

	log.Printf("📡 %s %s -> %d (%s)", method, path, resp.StatusCode, time.Since(start).Round(time.Millisecond))
	return &env, resp.StatusCode, nil
}

// ============================================================
// Staff auth
// ============================================================

// LoginResult is a successful login. Legacy is set when the server answered
// with the deprecated {token, user} shape.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Staff     *domain.StaffInfo
	Message   string
	Legacy    bool
}

type loginData struct {
	AccessToken string            `json:"access_token"`
	ExpiresAt   time.Time         `json:"expires_at"`
	Staff       *domain.StaffInfo `json:"staff"`
}

// Login authenticates with a staff number or phone
func (c *Client) Login(ctx context.Context, loginField, password string) (*LoginResult, error) {
	env, status, err := c.do(ctx, http.MethodPost, "/user/staff-login", "", map[string]string{
		"loginField": loginField,
		"password":   password,
	})
	if err != nil {
		return nil, err
	}

	// 1. Legacy {token, user}
	if status >= 200 && status <= 299 && env.Token != "" && !env.hasData() {
		log.Printf("⚠️ Login answered with deprecated {token, user} envelope")
		return &LoginResult{
			Token:   env.Token,
			Staff:   decodeStaff(env.User),
			Message: env.Message,
			Legacy:  true,
		}, nil
	}

	// 2. Canonical {success, data:{access_token, staff}}
	if !env.ok(status) {
		return nil, env.rejection(status)
	}
	var data loginData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: login data: %w", ErrNotJSON, err)
	}
	if data.AccessToken == "" {
		return nil, &APIError{Status: status, Message: "Login response did not include a token"}
	}

	return &LoginResult{
		Token:     data.AccessToken,
		ExpiresAt: data.ExpiresAt,
		Staff:     data.Staff,
		Message:   env.Message,
	}, nil
}

// decodeStaff reads a legacy user object best-effort
func decodeStaff(raw json.RawMessage) *domain.StaffInfo {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var staff domain.StaffInfo
	if err := json.Unmarshal(raw, &staff); err != nil {
		return nil
	}
	return &staff
}

// RegisterRequest is a staff self-registration
type RegisterRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Register creates a staff account and returns the server message
func (c *Client) Register(ctx context.Context, in RegisterRequest) (string, error) {
	env, status, err := c.do(ctx, http.MethodPost, "/user/staff-register", "", in)
	if err != nil {
		return "", err
	}
	if !env.ok(status) {
		return "", env.rejection(status)
	}
	return env.Message, nil
}

// Logout revokes token on the server
func (c *Client) Logout(ctx context.Context, token string) error {
	env, status, err := c.do(ctx, http.MethodPost, "/user/staff-logout", token, nil)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 || (env.Success != nil && !*env.Success) {
		return env.rejection(status)
	}
	return nil
}

// Me returns the staff member that owns token
func (c *Client) Me(ctx context.Context, token string) (*domain.StaffInfo, error) {
	env, status, err := c.do(ctx, http.MethodGet, "/user/staff/me", token, nil)
	if err != nil {
		return nil, err
	}
	if !env.ok(status) {
		return nil, env.rejection(status)
	}
	var staff domain.StaffInfo
	if err := json.Unmarshal(env.Data, &staff); err != nil {
		return nil, fmt.Errorf("%w: staff data: %w", ErrNotJSON, err)
	}
	return &staff, nil
}

// ============================================================
// Loyalty
// ============================================================

// VisitResult is the server's answer to an awarded visit
type VisitResult struct {
	Reference    string `json:"reference"`
	PointsEarned int64  `json:"pointsEarned"`
	TotalPoints  int64  `json:"totalPoints"`
	MemberName   string `json:"memberName"`
	Message      string `json:"-"`
}

// AddLoyaltyVisit submits one purchase
func (c *Client) AddLoyaltyVisit(ctx context.Context, token string, tx domain.Transaction) (*VisitResult, error) {
	env, status, err := c.do(ctx, http.MethodPost, "/user/add_loyalty_visit", token, tx)
	if err != nil {
		return nil, err
	}
	if !env.ok(status) {
		return nil, env.rejection(status)
	}

	var result VisitResult
	if env.hasData() {
		if err := json.Unmarshal(env.Data, &result); err != nil {
			return nil, fmt.Errorf("%w: visit data: %w", ErrNotJSON, err)
		}
	}
	result.Message = env.Message
	return &result, nil
}

// VisitEntry is one row of a staff member's visit history
type VisitEntry struct {
	Reference        string    `json:"reference"`
	MembershipNumber string    `json:"membership_number"`
	MemberName       string    `json:"member_name"`
	AmountSpent      float64   `json:"amount_spent"`
	PointsEarned     int64     `json:"points_earned"`
	CreatedAt        time.Time `json:"created_at"`
}

// PageMeta describes a page of results
type PageMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// VisitPage is one page of visit history
type VisitPage struct {
	Visits     []VisitEntry `json:"visits"`
	Pagination PageMeta     `json:"pagination"`
}

// Visits returns the visits recorded with token
func (c *Client) Visits(ctx context.Context, token string, page, limit int) (*VisitPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	env, status, err := c.do(ctx, http.MethodGet, "/user/visits?"+q.Encode(), token, nil)
	if err != nil {
		return nil, err
	}
	if !env.ok(status) {
		return nil, env.rejection(status)
	}
	var out VisitPage
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return nil, fmt.Errorf("%w: visits data: %w", ErrNotJSON, err)
	}
	return &out, nil
}
