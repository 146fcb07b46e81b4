package session

import (
	"context"
	"log"
	"sync"

	"colony-staff/internal/core/domain"
	"colony-staff/internal/core/navigation"
)

// Gate routes between the unauthenticated and authenticated flows. Every
// change of auth status resets the navigator to the matching entry screen.
type Gate struct {
	store *Store
	nav   *navigation.Navigator

	mu      sync.Mutex
	applied domain.AuthStatus
}

// NewGate wires a store to a navigator
func NewGate(store *Store, nav *navigation.Navigator) *Gate {
	return &Gate{store: store, nav: nav, applied: domain.StatusPending}
}

// Run follows the store until ctx is done
func (g *Gate) Run(ctx context.Context) {
	states, unsubscribe := g.store.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-states:
			if !ok {
				return
			}
			g.Apply(state)
		}
	}
}

// Apply resets the navigator when state changes the auth status.
// Pending leaves the placeholder in place. Reports whether a reset happened.
func (g *Gate) Apply(state domain.AuthState) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if state.Status == domain.StatusPending || state.Status == g.applied {
		return false
	}
	g.applied = state.Status

	flow := navigation.FlowUnauthenticated
	if state.Status == domain.StatusAuthenticated && state.Token != "" {
		flow = navigation.FlowAuthenticated
	}
	g.nav.Reset(flow)
	log.Printf("🔀 %s: showing %s", state, flow.Entry())
	return true
}

// Status returns the last applied auth status
func (g *Gate) Status() domain.AuthStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.applied
}
