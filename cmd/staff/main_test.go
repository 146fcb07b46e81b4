package main

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"colony-staff/internal/adapters/http/handlers"
	"colony-staff/internal/adapters/http/middleware"
	"colony-staff/internal/adapters/http/routes"
	"colony-staff/internal/adapters/persistence/memory"
	"colony-staff/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

const card = `{"name":"Asha","phone":"9000000000","membership":"M123"}`

// lockedBuffer collects terminal output written from the scan loop
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// takeOutput returns everything written so far and starts over
func (b *lockedBuffer) takeOutput() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.buf.String()
	b.buf.Reset()
	return out
}

// newTerminal serves the loyalty API from memory storage and points a
// file-backed client config at it. Output is captured for the test.
func newTerminal(t *testing.T) (*config.ClientConfig, *lockedBuffer) {
	t.Helper()

	serverCfg := &config.Config{
		AppMode: "dev",
		Storage: config.StorageMemory,
		JWT:     config.JWTConfig{Secret: "test-secret", AccessTokenMins: 60},
		Loyalty: config.LoyaltyConfig{PointsPerUnit: 0.1, FirstStaffNo: 500501},
	}
	repos := routes.NewMemoryRepositories(memory.New())
	if err := config.NewSeeder(repos.Staff, repos.Members).Run(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	app := fiber.New(fiber.Config{ErrorHandler: middleware.CustomErrorHandler})
	routes.Setup(app, repos, handlers.NewHealthHandler(nil, serverCfg), nil, serverCfg)
	srv := httptest.NewServer(adaptor.FiberApp(app))
	t.Cleanup(srv.Close)

	out := &lockedBuffer{}
	prevOut, prevIn := stdout, stdin
	stdout = out
	t.Cleanup(func() { stdout, stdin = prevOut, prevIn })

	return &config.ClientConfig{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
		Scanner: config.ScannerConfig{FeedbackDelay: 5 * time.Millisecond, ReleaseDelay: 30 * time.Millisecond},
		Store: config.StoreConfig{
			Backend:  config.StoreFile,
			FilePath: filepath.Join(t.TempDir(), "session.json"),
		},
	}, out
}

func runCommand(t *testing.T, cfg *config.ClientConfig, out *lockedBuffer, args ...string) string {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := run(ctx, cfg, args[0], args[1:]); err != nil {
		t.Fatalf("staff %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.takeOutput()
}

func waitForOutput(t *testing.T, out *lockedBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !strings.Contains(out.String(), want) {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %q, got:\n%s", want, out.String())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSubcommandsShareStoredSession(t *testing.T) {
	cfg, out := newTerminal(t)

	if got := runCommand(t, cfg, out, "status"); !strings.Contains(got, "Session: Unauthenticated") {
		t.Fatalf("fresh status: %s", got)
	}

	got := runCommand(t, cfg, out, "login", "-id", config.DemoStaffNo, "-password", config.DemoStaffPassword)
	if !strings.Contains(got, config.DemoStaffNo) {
		t.Fatalf("login output: %s", got)
	}

	got = runCommand(t, cfg, out, "status")
	if !strings.Contains(got, "Session: Authenticated") || !strings.Contains(got, "Screen:  Scanner") {
		t.Fatalf("status after login: %s", got)
	}

	if got := runCommand(t, cfg, out, "whoami"); !strings.HasPrefix(got, config.DemoStaffNo) {
		t.Fatalf("whoami: %s", got)
	}

	if got := runCommand(t, cfg, out, "award", "-qr", card, "-amount", "150.50"); !strings.Contains(got, "15 Points added successfully!") {
		t.Fatalf("award: %s", got)
	}

	got = runCommand(t, cfg, out, "history")
	if !strings.Contains(got, "M123") || !strings.Contains(got, "+15") || !strings.Contains(got, "(1 visits)") {
		t.Fatalf("history: %s", got)
	}

	if got := runCommand(t, cfg, out, "logout"); !strings.Contains(got, "Logged out") {
		t.Fatalf("logout: %s", got)
	}
	if got := runCommand(t, cfg, out, "status"); !strings.Contains(got, "Session: Unauthenticated") {
		t.Fatalf("status after logout: %s", got)
	}
}

func TestAwardRejectsOversizedAmount(t *testing.T) {
	cfg, out := newTerminal(t)
	runCommand(t, cfg, out, "login", "-id", config.DemoStaffNo, "-password", config.DemoStaffPassword)

	ctx := context.Background()
	err := run(ctx, cfg, "award", []string{"-qr", card, "-amount", "1" + strings.Repeat("0", 30)})
	if err == nil {
		t.Fatal("oversized amount accepted")
	}
	if got := out.takeOutput(); !strings.Contains(got, "Invalid Amount") {
		t.Fatalf("award output: %s", got)
	}
}

func TestScanAwardsFromTerminalInput(t *testing.T) {
	cfg, out := newTerminal(t)
	runCommand(t, cfg, out, "login", "-id", config.DemoStaffNo, "-password", config.DemoStaffPassword)

	in, typed := io.Pipe()
	defer typed.Close()
	stdin = in

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	result := make(chan error, 1)
	go func() { result <- run(ctx, cfg, "scan", nil) }()

	line := func(s string) {
		t.Helper()
		if _, err := io.WriteString(typed, s+"\n"); err != nil {
			t.Fatalf("type %q: %v", s, err)
		}
	}

	waitForOutput(t, out, "Scanner ready")
	line(card)
	waitForOutput(t, out, "MEMBERSHIP ID M123")
	waitForOutput(t, out, "Enter order amount")

	line("abc")
	waitForOutput(t, out, "Invalid Amount")

	line("150.50")
	waitForOutput(t, out, "15 Points added successfully!")

	line(":quit")
	select {
	case err := <-result:
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("scan did not exit on :quit")
	}

	if got := runCommand(t, cfg, out, "history"); !strings.Contains(got, "(1 visits)") {
		t.Fatalf("expected exactly one visit after scanning, got: %s", got)
	}
}
