package transaction

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"colony-staff/internal/adapters/backend"
	"colony-staff/internal/config"
	"colony-staff/internal/core/domain"
	"colony-staff/internal/core/navigation"
)

type staticToken string

func (t staticToken) Token() string { return string(t) }

func newClient(url string) *backend.Client {
	return backend.New(&config.ClientConfig{BaseURL: url, Timeout: 2 * time.Second})
}

// onTransaction returns a navigator showing the transaction screen above the scanner
func onTransaction(t *testing.T) *navigation.Navigator {
	t.Helper()
	nav := navigation.New(navigation.FlowAuthenticated)
	if err := nav.Navigate(navigation.RouteTransaction, "raw"); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	return nav
}

func TestParsePayload(t *testing.T) {
	p := ParsePayload(`{"name":"Asha","phone":"9000000000","membership":"M123"}`)
	if p.Fallback() || p.Name != "Asha" || p.Phone != "9000000000" || p.Membership != "M123" {
		t.Fatalf("unexpected payload %+v", p)
	}

	numeric := ParsePayload(`{"name":"Ravi","phone":9000000001,"membership":42}`)
	if numeric.Phone != "9000000001" || numeric.Membership != "42" {
		t.Fatalf("numeric fields not stringified: %+v", numeric)
	}

	for _, raw := range []string{"not-json", "", "123", `"M123"`, "null", `["M123"]`, `{"name":`} {
		p := ParsePayload(raw)
		if !p.Fallback() {
			t.Fatalf("%q: expected fallback, got %+v", raw, p)
		}
		if p.Name != "Unknown User" || p.Phone != "N/A" || p.Membership != "N/A" || p.Raw != raw {
			t.Fatalf("%q: unexpected fallback %+v", raw, p)
		}
	}
}

func TestValidateAmount(t *testing.T) {
	cases := []struct {
		input string
		want  float64
		ok    bool
	}{
		{"150.50", 150.50, true},
		{"  42 ", 42, true},
		{"0", 0, true},
		{".5", 0.5, true},
		{"10.", 10, true},
		{"", 0, false},
		{"   ", 0, false},
		{"abc", 0, false},
		{"-5", 0, false},
		{"+5", 0, false},
		{"1e3", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"1,000", 0, false},
		{"1.2.3", 0, false},
		{"9999999999.99", 9999999999.99, true},
		{"10000000000", 0, false},
		{"1" + strings.Repeat("0", 30), 0, false},
	}
	for _, tc := range cases {
		got, err := ValidateAmount(tc.input)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("%q: got %v, %v", tc.input, got, err)
			}
			continue
		}
		if !errors.Is(err, domain.ErrInvalidAmount) {
			t.Fatalf("%q: expected ErrInvalidAmount, got %v", tc.input, err)
		}
	}
}

func TestSubmitSuccessResetsToScanner(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(strings.Builder)
		_, _ = io.Copy(buf, r.Body)
		gotBody = buf.String()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":"Points added successfully","data":{"reference":"r1","pointsEarned":15}}`))
	}))
	defer srv.Close()

	nav := onTransaction(t)
	s := NewSubmitter(newClient(srv.URL), staticToken("tok"), nav)
	payload := ParsePayload(`{"name":"Asha","phone":"9000000000","membership":"M123"}`)

	out, err := s.Submit(context.Background(), payload, "150.50")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !out.Success || out.Alert.Title != "Success" || !strings.Contains(out.Alert.Message, "15") {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if nav.Current().Route != navigation.RouteScanner {
		t.Fatalf("expected reset to scanner, on %s", nav.Current().Route)
	}
	if err := nav.Back(); !errors.Is(err, navigation.ErrAtRoot) {
		t.Fatal("transaction screen must not be reachable by back")
	}
	if !strings.Contains(gotBody, `"membership_number":"M123"`) || !strings.Contains(gotBody, `"amountSpent":150.5`) {
		t.Fatalf("unexpected request body %s", gotBody)
	}
}

func TestSubmitFailureClassesAreDistinct(t *testing.T) {
	rejecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"message":"Invalid membership"}`))
	}))
	defer rejecting.Close()

	html := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>ERR_NGROK_3200</html>"))
	}))
	defer html.Close()

	down := httptest.NewServer(http.NotFoundHandler())
	downURL := down.URL
	down.Close()

	cases := []struct {
		name  string
		url   string
		alert domain.Alert
	}{
		{"structured rejection", rejecting.URL, domain.Alert{Title: "Server Error", Message: "Invalid membership"}},
		{"not json", html.URL, NotJSONAlert},
		{"transport", downURL, ConnectionAlert},
	}

	seen := map[string]bool{}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			nav := onTransaction(t)
			s := NewSubmitter(newClient(tc.url), staticToken("tok"), nav)

			out, err := s.Submit(context.Background(), ParsePayload(`{"membership":"M999"}`), "10")
			if err == nil || out.Success {
				t.Fatalf("expected failure, got %+v", out)
			}
			if out.Alert != tc.alert {
				t.Fatalf("expected %v, got %v", tc.alert, out.Alert)
			}
			if nav.Current().Route != navigation.RouteTransaction {
				t.Fatal("failure must not navigate")
			}
			seen[out.Alert.String()] = true
		})
	}
	if len(seen) != len(cases) {
		t.Fatalf("alerts overlap: %v", seen)
	}
}

func TestServerErrorWithoutMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false}`))
	}))
	defer srv.Close()

	s := NewSubmitter(newClient(srv.URL), staticToken("tok"), onTransaction(t))
	out, _ := s.Submit(context.Background(), ParsePayload(`{"membership":"M123"}`), "10")
	if out.Alert != ServerErrorAlert {
		t.Fatalf("expected generic server alert, got %v", out.Alert)
	}
}

func TestInvalidAmountNeverCallsBackend(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	s := NewSubmitter(newClient(srv.URL), staticToken("tok"), onTransaction(t))
	for _, input := range []string{"", "abc", "-5"} {
		out, err := s.Submit(context.Background(), ParsePayload(`{"membership":"M123"}`), input)
		if !errors.Is(err, domain.ErrInvalidAmount) || out.Alert != InvalidAmountAlert {
			t.Fatalf("%q: got %v, %v", input, out.Alert, err)
		}
	}
	if called {
		t.Fatal("backend must not be called for invalid input")
	}
}

type blockingBackend struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingBackend) AddLoyaltyVisit(ctx context.Context, _ string, _ domain.Transaction) (*backend.VisitResult, error) {
	close(b.entered)
	select {
	case <-b.release:
		return &backend.VisitResult{Reference: "r", PointsEarned: 1}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestDoubleSubmitBlocked(t *testing.T) {
	b := &blockingBackend{entered: make(chan struct{}), release: make(chan struct{})}
	s := NewSubmitter(b, staticToken("tok"), onTransaction(t))
	payload := ParsePayload(`{"membership":"M123"}`)

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), payload, "10")
		done <- err
	}()
	<-b.entered

	if s.CanSubmit() {
		t.Fatal("control must be disabled while in flight")
	}
	if _, err := s.Submit(context.Background(), payload, "10"); !errors.Is(err, domain.ErrSubmitInFlight) {
		t.Fatalf("expected ErrSubmitInFlight, got %v", err)
	}

	close(b.release)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if !s.CanSubmit() {
		t.Fatal("control must be enabled again")
	}
}

func TestClosedScreenDiscardsLateResult(t *testing.T) {
	b := &blockingBackend{entered: make(chan struct{}), release: make(chan struct{})}
	nav := onTransaction(t)
	s := NewSubmitter(b, staticToken("tok"), nav)
	screen := s.Open(context.Background(), `{"membership":"M123"}`)

	type result struct {
		out Outcome
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := screen.Submit("10")
		done <- result{out, err}
	}()
	<-b.entered

	screen.Close()
	r := <-done
	if !errors.Is(r.err, domain.ErrScreenClosed) || r.out.Success {
		t.Fatalf("expected discarded result, got %+v %v", r.out, r.err)
	}
	if nav.Current().Route != navigation.RouteTransaction {
		t.Fatal("a closed screen must not drive navigation")
	}
	if _, err := screen.Submit("10"); !errors.Is(err, domain.ErrScreenClosed) {
		t.Fatalf("submit after close: %v", err)
	}
}

func TestCancelGoesBack(t *testing.T) {
	nav := onTransaction(t)
	s := NewSubmitter(&blockingBackend{}, staticToken("tok"), nav)
	screen := s.Open(context.Background(), "not-json")

	if !screen.Payload().Fallback() {
		t.Fatal("expected fallback payload")
	}
	if err := screen.Cancel(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if nav.Current().Route != navigation.RouteScanner {
		t.Fatalf("expected scanner, on %s", nav.Current().Route)
	}
}

func TestSubmitWithoutSession(t *testing.T) {
	s := NewSubmitter(&blockingBackend{}, staticToken(""), onTransaction(t))
	out, err := s.Submit(context.Background(), ParsePayload(`{"membership":"M123"}`), "10")
	if !errors.Is(err, domain.ErrNotAuthenticated) || out.Alert != SessionEndedAlert {
		t.Fatalf("got %v, %v", out.Alert, err)
	}
}
