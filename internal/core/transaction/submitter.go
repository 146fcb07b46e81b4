package transaction

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"colony-staff/internal/adapters/backend"
	"colony-staff/internal/core/domain"
	"colony-staff/internal/core/navigation"
)

// Alerts for each outcome class
var (
	ServerErrorAlert  = domain.Alert{Title: "Server Error", Message: "The server rejected the request."}
	NotJSONAlert      = domain.Alert{Title: "Configuration Error", Message: "The server did not return JSON. Please check if your API is running."}
	ConnectionAlert   = domain.Alert{Title: "Connection Error", Message: "Could not connect to the server."}
	SessionEndedAlert = domain.Alert{Title: "Session Expired", Message: "Please login again."}
)

// Backend is the visit endpoint of the loyalty API
type Backend interface {
	AddLoyaltyVisit(ctx context.Context, token string, tx domain.Transaction) (*backend.VisitResult, error)
}

// TokenSource supplies the bearer token of the current session
type TokenSource interface {
	Token() string
}

// Outcome is what the transaction screen shows after a submit
type Outcome struct {
	Success bool
	Alert   domain.Alert
	Result  *backend.VisitResult
}

// Submitter sends one visit at a time
type Submitter struct {
	backend  Backend
	tokens   TokenSource
	nav      *navigation.Navigator
	inFlight atomic.Bool
}

// NewSubmitter creates a submitter. nav is reset to the scanner on success.
func NewSubmitter(b Backend, tokens TokenSource, nav *navigation.Navigator) *Submitter {
	return &Submitter{backend: b, tokens: tokens, nav: nav}
}

// CanSubmit reports whether the confirm control should be enabled
func (s *Submitter) CanSubmit() bool {
	return !s.inFlight.Load()
}

// Submit validates amountInput and awards the visit for payload.
// The returned Outcome always carries the alert to show, error or not.
func (s *Submitter) Submit(ctx context.Context, payload domain.ScanPayload, amountInput string) (Outcome, error) {
	// 1. Validate before touching the in-flight guard
	amount, err := ValidateAmount(amountInput)
	if err != nil {
		return Outcome{Alert: InvalidAmountAlert}, err
	}

	// 2. One submission at a time
	if !s.inFlight.CompareAndSwap(false, true) {
		return Outcome{}, domain.ErrSubmitInFlight
	}
	defer s.inFlight.Store(false)

	token := s.tokens.Token()
	if token == "" {
		return Outcome{Alert: SessionEndedAlert}, domain.ErrNotAuthenticated
	}

	// 3. Send
	result, err := s.backend.AddLoyaltyVisit(ctx, token, domain.Transaction{
		MembershipNumber: payload.Membership,
		AmountSpent:      amount,
	})

	// 4. Late results for a closed screen are dropped
	if ctx.Err() != nil {
		log.Printf("⚠️ Discarding visit result for %s: screen closed", payload.Membership)
		return Outcome{}, fmt.Errorf("%w: %w", domain.ErrScreenClosed, ctx.Err())
	}

	if err != nil {
		alert := classify(err)
		log.Printf("❌ Visit for %s failed: %v", payload.Membership, err)
		return Outcome{Alert: alert}, err
	}

	// 5. Back to the scanner so the same visit cannot be resubmitted
	s.nav.PopToTop()
	log.Printf("✅ %d points awarded to %s", result.PointsEarned, payload.Membership)
	return Outcome{
		Success: true,
		Alert:   successAlert(result),
		Result:  result,
	}, nil
}

func successAlert(result *backend.VisitResult) domain.Alert {
	if result.Reference == "" && result.PointsEarned == 0 {
		return domain.Alert{Title: "Success", Message: "Points added successfully!"}
	}
	return domain.Alert{Title: "Success", Message: fmt.Sprintf("%d Points added successfully!", result.PointsEarned)}
}

// classify maps a backend failure to its alert
func classify(err error) domain.Alert {
	if apiErr, ok := backend.AsAPIError(err); ok {
		if apiErr.Message != "" {
			return domain.Alert{Title: ServerErrorAlert.Title, Message: apiErr.Message}
		}
		return ServerErrorAlert
	}
	if errors.Is(err, backend.ErrNotJSON) {
		return NotJSONAlert
	}
	return ConnectionAlert
}

// Screen binds submissions to the lifetime of one transaction screen
type Screen struct {
	submitter *Submitter
	payload   domain.ScanPayload

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// Open starts a transaction screen for a scanned raw value
func (s *Submitter) Open(parent context.Context, raw string) *Screen {
	ctx, cancel := context.WithCancel(parent)
	return &Screen{
		submitter: s,
		payload:   ParsePayload(raw),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Payload returns the decoded member card
func (sc *Screen) Payload() domain.ScanPayload {
	return sc.payload
}

// Submit awards the visit unless the screen has been closed
func (sc *Screen) Submit(amountInput string) (Outcome, error) {
	sc.mu.Lock()
	ctx := sc.ctx
	sc.mu.Unlock()

	if ctx.Err() != nil {
		return Outcome{}, domain.ErrScreenClosed
	}
	return sc.submitter.Submit(ctx, sc.payload, amountInput)
}

// Cancel leaves the screen without submitting. It is refused while a
// submission is in flight.
func (sc *Screen) Cancel() error {
	if !sc.submitter.CanSubmit() {
		return domain.ErrSubmitInFlight
	}
	sc.Close()
	return sc.submitter.nav.Back()
}

// Close abandons the screen; an in-flight submission is cancelled
func (sc *Screen) Close() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cancel()
}
