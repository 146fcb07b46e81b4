package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"colony-staff/internal/adapters/http/handlers"
	"colony-staff/internal/adapters/http/middleware"
	"colony-staff/internal/adapters/persistence/memory"
	"colony-staff/internal/config"

	"github.com/gofiber/fiber/v2"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	app, _ := newTestAppWithStore(t)
	return app
}

func newTestAppWithStore(t *testing.T) (*fiber.App, *memory.Store) {
	t.Helper()

	cfg := &config.Config{
		AppMode: "dev",
		Storage: config.StorageMemory,
		JWT:     config.JWTConfig{Secret: "test-secret", AccessTokenMins: 60},
		Loyalty: config.LoyaltyConfig{PointsPerUnit: 0.1, FirstStaffNo: 500501},
	}
	store := memory.New()
	repos := NewMemoryRepositories(store)
	if err := config.NewSeeder(repos.Staff, repos.Members).Run(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	app := fiber.New(fiber.Config{ErrorHandler: middleware.CustomErrorHandler})
	Setup(app, repos, handlers.NewHealthHandler(nil, cfg), nil, cfg)
	return app, store
}

func call(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("%s %s: decode: %v", method, path, err)
	}
	return resp.StatusCode, env
}

func login(t *testing.T, app *fiber.App) string {
	t.Helper()

	status, env := call(t, app, http.MethodPost, "/user/staff-login", "", fiber.Map{
		"loginField": config.DemoStaffNo,
		"password":   config.DemoStaffPassword,
	})
	if status != http.StatusOK || !env.Success {
		t.Fatalf("login: status %d, %+v", status, env)
	}

	var data struct {
		AccessToken string `json:"access_token"`
		Staff       struct {
			StaffNo string `json:"staff_no"`
		} `json:"staff"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("login data: %v", err)
	}
	if data.AccessToken == "" || data.Staff.StaffNo != config.DemoStaffNo {
		t.Fatalf("unexpected login data %s", env.Data)
	}
	return data.AccessToken
}

func TestStaffLogin(t *testing.T) {
	app := newTestApp(t)
	login(t, app)

	status, env := call(t, app, http.MethodPost, "/user/staff-login", "", fiber.Map{
		"loginField": config.DemoStaffNo,
		"password":   "wrong-password",
	})
	if status != http.StatusUnauthorized || env.Success {
		t.Fatalf("expected 401, got %d %+v", status, env)
	}
	if env.Message != "Invalid staff ID or password" {
		t.Fatalf("unexpected message %q", env.Message)
	}

	status, _ = call(t, app, http.MethodPost, "/user/staff-login", "", fiber.Map{"password": "x"})
	if status != http.StatusBadRequest {
		t.Fatalf("missing login field: expected 400, got %d", status)
	}
}

func TestStaffRegisterAssignsNextNumber(t *testing.T) {
	app := newTestApp(t)

	status, env := call(t, app, http.MethodPost, "/user/staff-register", "", fiber.Map{
		"name":     "Nimali",
		"phone":    "0712345679",
		"password": "Colony@123",
	})
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d %+v", status, env)
	}

	var data struct {
		Staff struct {
			StaffNo string `json:"staff_no"`
		} `json:"staff"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("register data: %v", err)
	}
	if data.Staff.StaffNo != "500502" {
		t.Fatalf("expected staff number 500502, got %q", data.Staff.StaffNo)
	}

	status, _ = call(t, app, http.MethodPost, "/user/staff-register", "", fiber.Map{
		"name":     "Nimali",
		"phone":    "0712345679",
		"password": "Colony@123",
	})
	if status != http.StatusConflict {
		t.Fatalf("duplicate phone: expected 409, got %d", status)
	}
}

func TestAddLoyaltyVisit(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app)

	status, _ := call(t, app, http.MethodPost, "/user/add_loyalty_visit", "", fiber.Map{
		"membership_number": config.DemoMembership,
		"amountSpent":       150.50,
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("without token: expected 401, got %d", status)
	}

	status, env := call(t, app, http.MethodPost, "/user/add_loyalty_visit", token, fiber.Map{
		"membership_number": config.DemoMembership,
		"amountSpent":       150.50,
	})
	if status != http.StatusOK || !env.Success {
		t.Fatalf("expected success, got %d %+v", status, env)
	}
	var data struct {
		PointsEarned int64 `json:"pointsEarned"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("visit data: %v", err)
	}
	if data.PointsEarned != 15 {
		t.Fatalf("expected 15 points, got %d", data.PointsEarned)
	}

	cases := []struct {
		name   string
		body   fiber.Map
		status int
		msg    string
	}{
		{"unknown member", fiber.Map{"membership_number": "M999", "amountSpent": 10}, http.StatusNotFound, "Invalid membership"},
		{"fallback member", fiber.Map{"membership_number": "N/A", "amountSpent": 10}, http.StatusNotFound, "Invalid membership"},
		{"missing amount", fiber.Map{"membership_number": "M123"}, http.StatusBadRequest, "amountSpent is required"},
		{"negative amount", fiber.Map{"membership_number": "M123", "amountSpent": -1}, http.StatusBadRequest, "Amount must be a non-negative number"},
		{"oversized amount", fiber.Map{"membership_number": "M123", "amountSpent": 1e30}, http.StatusBadRequest, "Amount must be a non-negative number"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := call(t, app, http.MethodPost, "/user/add_loyalty_visit", token, tc.body)
			if status != tc.status || env.Message != tc.msg {
				t.Fatalf("expected %d %q, got %d %q", tc.status, tc.msg, status, env.Message)
			}
		})
	}

	status, env = call(t, app, http.MethodGet, "/user/visits", token, nil)
	if status != http.StatusOK {
		t.Fatalf("visits: expected 200, got %d", status)
	}
	var history struct {
		Visits []struct {
			MembershipNumber string `json:"membership_number"`
			PointsEarned     int64  `json:"points_earned"`
		} `json:"visits"`
	}
	if err := json.Unmarshal(env.Data, &history); err != nil {
		t.Fatalf("visits data: %v", err)
	}
	if len(history.Visits) != 1 || history.Visits[0].PointsEarned != 15 {
		t.Fatalf("unexpected history %s", env.Data)
	}
}

func TestStaffLogoutRevokesToken(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app)

	if status, _ := call(t, app, http.MethodGet, "/user/staff/me", token, nil); status != http.StatusOK {
		t.Fatalf("me before logout: expected 200, got %d", status)
	}
	if status, _ := call(t, app, http.MethodPost, "/user/staff-logout", token, nil); status != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", status)
	}

	status, env := call(t, app, http.MethodGet, "/user/staff/me", token, nil)
	if status != http.StatusUnauthorized || env.Message != "Access token revoked" {
		t.Fatalf("me after logout: expected revoked 401, got %d %q", status, env.Message)
	}
}

func TestMemberQR(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app)

	req := httptest.NewRequest(http.MethodGet, "/user/members/M123/qr?size=200", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("qr: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("expected png, got %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "private, max-age=300" {
		t.Fatalf("unexpected Cache-Control %q", cc)
	}
}

func TestManagerDashboard(t *testing.T) {
	app, store := newTestAppWithStore(t)

	staffToken := login(t, app)
	if status, env := call(t, app, http.MethodGet, "/user/dashboard", staffToken, nil); status != http.StatusForbidden {
		t.Fatalf("staff role: expected 403, got %d %+v", status, env)
	}

	call(t, app, http.MethodPost, "/user/add_loyalty_visit", staffToken, fiber.Map{
		"membership_number": config.DemoMembership,
		"amountSpent":       150.50,
	})

	store.SetRole(config.DemoStaffNo, "MANAGER")
	managerToken := login(t, app)

	status, env := call(t, app, http.MethodGet, "/user/dashboard", managerToken, nil)
	if status != http.StatusOK {
		t.Fatalf("manager: expected 200, got %d %+v", status, env)
	}
	var data struct {
		Today struct {
			Visits int64 `json:"visits"`
			Points int64 `json:"points"`
		} `json:"today"`
		Last30Days struct {
			Visits int64 `json:"visits"`
		} `json:"last_30_days"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("dashboard data: %v", err)
	}
	if data.Today.Visits != 1 || data.Today.Points != 15 || data.Last30Days.Visits != 1 {
		t.Fatalf("unexpected dashboard %s", env.Data)
	}
}

func TestMetricsExposeVisitCounters(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app)

	call(t, app, http.MethodPost, "/user/add_loyalty_visit", token, fiber.Map{
		"membership_number": config.DemoMembership,
		"amountSpent":       20,
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	for _, name := range []string{
		"colony_loyalty_visits_awarded_total",
		"colony_loyalty_points_awarded_total",
		`colony_loyalty_staff_login_attempts_total{result="success"}`,
	} {
		if !strings.Contains(string(body), name) {
			t.Fatalf("metrics output missing %s", name)
		}
	}
}
