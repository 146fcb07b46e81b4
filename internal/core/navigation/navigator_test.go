package navigation

import (
	"errors"
	"testing"
)

func TestNavigateWithinFlow(t *testing.T) {
	nav := New(FlowAuthenticated)
	if got := nav.Current().Route; got != RouteScanner {
		t.Fatalf("entry screen = %s, want Scanner", got)
	}

	if err := nav.Navigate(RouteTransaction, "payload"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	cur := nav.Current()
	if cur.Route != RouteTransaction || cur.Params != "payload" {
		t.Fatalf("unexpected current %+v", cur)
	}

	if err := nav.Navigate(RouteLogin, nil); !errors.Is(err, ErrRouteNotInFlow) {
		t.Fatalf("expected ErrRouteNotInFlow, got %v", err)
	}
}

func TestBackAndPopToTop(t *testing.T) {
	nav := New(FlowAuthenticated)
	if err := nav.Back(); !errors.Is(err, ErrAtRoot) {
		t.Fatalf("Back at root: expected ErrAtRoot, got %v", err)
	}

	_ = nav.Navigate(RouteTransaction, nil)
	_ = nav.Navigate(RouteTransaction, nil)
	nav.PopToTop()
	if got := nav.Current().Route; got != RouteScanner {
		t.Fatalf("after PopToTop = %s", got)
	}

	_ = nav.Navigate(RouteTransaction, nil)
	if err := nav.Back(); err != nil {
		t.Fatalf("Back: %v", err)
	}
	if got := nav.Current().Route; got != RouteScanner {
		t.Fatalf("after Back = %s", got)
	}
}

func TestResetDiscardsHistory(t *testing.T) {
	nav := New(FlowUnauthenticated)
	_ = nav.Navigate(RouteRegister, nil)

	nav.Reset(FlowAuthenticated)
	if nav.Flow() != FlowAuthenticated || nav.Current().Route != RouteScanner {
		t.Fatalf("unexpected state after reset: %s %s", nav.Flow(), nav.Current().Route)
	}
	if err := nav.Back(); !errors.Is(err, ErrAtRoot) {
		t.Fatal("reset must leave no history to go back to")
	}
}

func TestSubscribeDeliversLatest(t *testing.T) {
	nav := New(FlowUnauthenticated)
	ch, unsubscribe := nav.Subscribe()
	defer unsubscribe()

	first := <-ch
	if first.Current().Route != RouteLogin {
		t.Fatalf("initial state = %s", first.Current().Route)
	}

	_ = nav.Navigate(RouteRegister, nil)
	nav.Reset(FlowAuthenticated)

	latest := <-ch
	if latest.Flow != FlowAuthenticated || len(latest.Stack) != 1 {
		t.Fatalf("expected only the latest state, got %+v", latest)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	nav := New(FlowUnauthenticated)
	ch, unsubscribe := nav.Subscribe()
	<-ch
	unsubscribe()
	unsubscribe()

	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel")
	}
	nav.Reset(FlowAuthenticated)
}
