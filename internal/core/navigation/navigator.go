// Package navigation holds the two-flow screen stack of the staff app.
package navigation

import (
	"errors"
	"fmt"
	"sync"
)

// Route names a screen
type Route string

const (
	RouteLogin       Route = "Login"
	RouteRegister    Route = "Register"
	RouteScanner     Route = "Scanner"
	RouteTransaction Route = "Transaction"
)

// Flow is a disjoint set of routes with its own stack
type Flow int

const (
	FlowUnauthenticated Flow = iota
	FlowAuthenticated
)

func (f Flow) String() string {
	if f == FlowAuthenticated {
		return "Authenticated"
	}
	return "Unauthenticated"
}

// routes lists each flow's screens; the first entry is the flow's entry screen
var routes = map[Flow][]Route{
	FlowUnauthenticated: {RouteLogin, RouteRegister},
	FlowAuthenticated:   {RouteScanner, RouteTransaction},
}

// Entry returns the first screen of a flow
func (f Flow) Entry() Route {
	return routes[f][0]
}

// Has reports whether route belongs to the flow
func (f Flow) Has(route Route) bool {
	for _, r := range routes[f] {
		if r == route {
			return true
		}
	}
	return false
}

var (
	// ErrRouteNotInFlow is returned when navigating to a screen of the inactive flow
	ErrRouteNotInFlow = errors.New("navigation: route is not part of the active flow")

	// ErrAtRoot is returned by Back on the flow's entry screen
	ErrAtRoot = errors.New("navigation: already at the root screen")
)

// Screen is one stack entry
type Screen struct {
	Route  Route
	Params interface{}
}

// State is a snapshot delivered to subscribers
type State struct {
	Flow  Flow
	Stack []Screen
}

// Current returns the top of the stack
func (s State) Current() Screen {
	return s.Stack[len(s.Stack)-1]
}

// Navigator is a stack of screens scoped to the active flow
type Navigator struct {
	mu     sync.Mutex
	flow   Flow
	stack  []Screen
	subs   map[int]chan State
	nextID int
}

// New returns a navigator showing the entry screen of flow
func New(flow Flow) *Navigator {
	return &Navigator{
		flow:  flow,
		stack: []Screen{{Route: flow.Entry()}},
		subs:  make(map[int]chan State),
	}
}

// Navigate pushes route with params
func (n *Navigator) Navigate(route Route, params interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.flow.Has(route) {
		return fmt.Errorf("%w: %s in %s", ErrRouteNotInFlow, route, n.flow)
	}
	n.stack = append(n.stack, Screen{Route: route, Params: params})
	n.publish()
	return nil
}

// Back pops the top screen
func (n *Navigator) Back() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.stack) == 1 {
		return ErrAtRoot
	}
	n.stack = n.stack[:len(n.stack)-1]
	n.publish()
	return nil
}

// PopToTop returns to the first screen of the active flow
func (n *Navigator) PopToTop() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.stack) == 1 {
		return
	}
	n.stack = n.stack[:1]
	n.publish()
}

// Reset discards all history and shows the entry screen of flow
func (n *Navigator) Reset(flow Flow) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.flow = flow
	n.stack = []Screen{{Route: flow.Entry()}}
	n.publish()
}

// Current returns the visible screen
func (n *Navigator) Current() Screen {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stack[len(n.stack)-1]
}

// Flow returns the active flow
func (n *Navigator) Flow() Flow {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.flow
}

// Subscribe delivers the current state and every later change. Slow readers
// only ever see the latest state. Call the returned func to unsubscribe.
func (n *Navigator) Subscribe() (<-chan State, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan State, 1)
	id := n.nextID
	n.nextID++
	n.subs[id] = ch
	ch <- n.snapshot()

	return ch, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if sub, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(sub)
		}
	}
}

func (n *Navigator) snapshot() State {
	stack := make([]Screen, len(n.stack))
	copy(stack, n.stack)
	return State{Flow: n.flow, Stack: stack}
}

// publish must be called with mu held
func (n *Navigator) publish() {
	state := n.snapshot()
	for _, ch := range n.subs {
		select {
		case <-ch:
		default:
		}
		ch <- state
	}
}
