// Package client assembles the staff app: session, gate, navigator, scanner
// and transaction screen, all driven by navigation state.
package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"colony-staff/internal/adapters/backend"
	"colony-staff/internal/adapters/storage"
	"colony-staff/internal/config"
	"colony-staff/internal/core/domain"
	"colony-staff/internal/core/navigation"
	"colony-staff/internal/core/scanner"
	"colony-staff/internal/core/session"
	"colony-staff/internal/core/transaction"
)

// Register alerts
var (
	RegisteredAlert     = domain.Alert{Title: "Success", Message: "Staff registered! Please login."}
	RegisterFailedAlert = domain.Alert{Title: "Registration Failed", Message: "Could not create staff account."}
)

// ErrNoTransaction is returned when no transaction screen is showing
var ErrNoTransaction = errors.New("no transaction screen is open")

// App is one running staff client
type App struct {
	api       *backend.Client
	kv        storage.KV
	Session   *session.Store
	Nav       *navigation.Navigator
	Gate      *session.Gate
	Scanner   *scanner.Engine
	Submitter *transaction.Submitter

	mu      sync.Mutex
	ctx     context.Context
	screen  *transaction.Screen
	raw     string
	subs    map[int]chan *transaction.Screen
	nextSub int
}

// New wires an app. kv and camera are owned by the app from here on.
func New(cfg *config.ClientConfig, api *backend.Client, kv storage.KV, camera scanner.Camera) *App {
	a := &App{
		api:  api,
		kv:   kv,
		ctx:  context.Background(),
		subs: make(map[int]chan *transaction.Screen),
	}

	a.Session = session.NewStore(kv, api)
	a.Nav = navigation.New(navigation.FlowUnauthenticated)
	a.Gate = session.NewGate(a.Session, a.Nav)
	a.Scanner = scanner.New(camera, cfg.Scanner, a.onScan)
	a.Submitter = transaction.NewSubmitter(api, a.Session, a.Nav)
	return a
}

// Start restores the session and routes to the matching flow before
// returning, then follows session and navigation changes until ctx is done.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	a.ctx = ctx
	a.mu.Unlock()

	// 1. Restore must finish before either flow is shown
	if err := a.Session.Restore(ctx); err != nil {
		log.Printf("⚠️ Continuing logged out: %v", err)
	}

	// 2. Route now, then keep following
	a.Gate.Apply(a.Session.State())
	a.refresh()

	go a.Gate.Run(ctx)
	go a.follow(ctx)
	return nil
}

// follow keeps the scanner and the transaction screen in step with navigation
func (a *App) follow(ctx context.Context) {
	states, unsubscribe := a.Nav.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-states:
			if !ok {
				return
			}
			a.refresh()
		}
	}
}

// refresh applies the current navigation state: the scanner is visible only
// on the Scanner screen, and a transaction screen exists only while Transaction shows.
func (a *App) refresh() {
	a.mu.Lock()
	defer a.mu.Unlock()

	current := a.Nav.Current()
	authenticated := a.Nav.Flow() == navigation.FlowAuthenticated

	if current.Route == navigation.RouteTransaction && authenticated {
		raw, _ := current.Params.(string)
		if a.screen == nil || a.raw != raw {
			if a.screen != nil {
				a.screen.Close()
			}
			a.screen = a.Submitter.Open(a.ctx, raw)
			a.raw = raw
			a.publishScreen()
		}
	} else if a.screen != nil {
		a.screen.Close()
		a.screen, a.raw = nil, ""
		a.publishScreen()
	}

	visible := authenticated && current.Route == navigation.RouteScanner
	if visible && a.Scanner.Status() == scanner.StatusUnrequested {
		if _, err := a.Scanner.RequestCameraAccess(a.ctx); err != nil {
			log.Printf("⚠️ Camera unavailable: %v", err)
		}
	}
	if err := a.Scanner.SetVisible(visible); err != nil {
		log.Printf("⚠️ Camera toggle failed: %v", err)
	}
}

// onScan is the scanner hand-off: show the transaction screen for raw
func (a *App) onScan(raw string) {
	if err := a.Nav.Navigate(navigation.RouteTransaction, raw); err != nil {
		log.Printf("⚠️ Scan dropped: %v", err)
		return
	}
	a.refresh()
}

// Login signs in and routes to the scanner
func (a *App) Login(ctx context.Context, loginField, password string) error {
	if err := a.Session.Login(ctx, session.Credentials{LoginField: loginField, Password: password}); err != nil {
		return err
	}
	a.Gate.Apply(a.Session.State())
	a.refresh()
	return nil
}

// Logout signs out and routes to the login screen
func (a *App) Logout(ctx context.Context) error {
	err := a.Session.Logout(ctx)
	a.Gate.Apply(a.Session.State())
	a.refresh()
	return err
}

// Register creates a staff account. On success the register screen, if
// showing, returns to login.
func (a *App) Register(ctx context.Context, name, phone, password string) (domain.Alert, error) {
	_, err := a.api.Register(ctx, backend.RegisterRequest{
		Name:     strings.TrimSpace(name),
		Phone:    strings.TrimSpace(phone),
		Password: password,
	})
	if err != nil {
		log.Printf("❌ Registration failed: %v", err)
		return RegisterFailedAlert, err
	}

	if a.Nav.Current().Route == navigation.RouteRegister {
		_ = a.Nav.Back()
	}
	log.Printf("✅ Staff registered: %s", phone)
	return RegisteredAlert, nil
}

// Transaction returns the open transaction screen
func (a *App) Transaction() (*transaction.Screen, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.screen == nil {
		return nil, ErrNoTransaction
	}
	return a.screen, nil
}

// Screens delivers the open transaction screen, or nil when none is open,
// now and after every change. The screen is already open when it arrives,
// unlike a Navigator update for the Transaction route. Slow readers only see
// the latest value. Call the returned func to unsubscribe.
func (a *App) Screens() (<-chan *transaction.Screen, func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ch := make(chan *transaction.Screen, 1)
	id := a.nextSub
	a.nextSub++
	a.subs[id] = ch
	ch <- a.screen

	return ch, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if sub, ok := a.subs[id]; ok {
			delete(a.subs, id)
			close(sub)
		}
	}
}

// publishScreen must be called with mu held
func (a *App) publishScreen() {
	for _, ch := range a.subs {
		select {
		case <-ch:
		default:
		}
		ch <- a.screen
	}
}

// SubmitAmount submits amountInput on the open transaction screen
func (a *App) SubmitAmount(amountInput string) (transaction.Outcome, error) {
	screen, err := a.Transaction()
	if err != nil {
		return transaction.Outcome{}, err
	}
	out, err := screen.Submit(amountInput)
	a.refresh()
	return out, err
}

// CancelTransaction leaves the transaction screen without submitting
func (a *App) CancelTransaction() error {
	screen, err := a.Transaction()
	if err != nil {
		return err
	}
	if err := screen.Cancel(); err != nil {
		return err
	}
	a.refresh()
	return nil
}

// Award submits a visit directly, as if raw had been scanned. Used by
// scripted tills that read the card elsewhere.
func (a *App) Award(ctx context.Context, raw, amountInput string) (transaction.Outcome, error) {
	if a.Session.State().Status != domain.StatusAuthenticated {
		return transaction.Outcome{Alert: transaction.SessionEndedAlert}, domain.ErrNotAuthenticated
	}
	return a.Submitter.Submit(ctx, transaction.ParsePayload(raw), amountInput)
}

// Whoami asks the server who owns the current token
func (a *App) Whoami(ctx context.Context) (*domain.StaffInfo, error) {
	token := a.Session.Token()
	if token == "" {
		return nil, domain.ErrNotAuthenticated
	}
	return a.api.Me(ctx, token)
}

// History returns one page of visits recorded with the current token
func (a *App) History(ctx context.Context, page, limit int) (*backend.VisitPage, error) {
	token := a.Session.Token()
	if token == "" {
		return nil, domain.ErrNotAuthenticated
	}
	return a.api.Visits(ctx, token, page, limit)
}

// Close stops the camera and releases the session store
func (a *App) Close() error {
	a.mu.Lock()
	if a.screen != nil {
		a.screen.Close()
		a.screen, a.raw = nil, ""
		a.publishScreen()
	}
	a.mu.Unlock()

	if err := a.Scanner.Close(); err != nil {
		log.Printf("⚠️ Camera stop failed: %v", err)
	}
	if err := a.kv.Close(); err != nil {
		return fmt.Errorf("close session store: %w", err)
	}
	return nil
}
