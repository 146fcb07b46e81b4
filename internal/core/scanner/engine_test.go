package scanner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"colony-staff/internal/config"
	"colony-staff/internal/core/domain"
)

type fakeCamera struct {
	mu       sync.Mutex
	granted  bool
	err      error
	running  bool
	starts   int
	onDecode func([]Code)
}

func (c *fakeCamera) RequestPermission(context.Context) (bool, error) {
	return c.granted, c.err
}

func (c *fakeCamera) Start(onDecode func([]Code)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	c.starts++
	c.onDecode = onDecode
	return nil
}

func (c *fakeCamera) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

func (c *fakeCamera) isRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

type handoffs struct {
	mu     sync.Mutex
	values []string
	ch     chan string
}

func newHandoffs() *handoffs {
	return &handoffs{ch: make(chan string, 16)}
}

func (h *handoffs) record(raw string) {
	h.mu.Lock()
	h.values = append(h.values, raw)
	h.mu.Unlock()
	h.ch <- raw
}

func (h *handoffs) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.values)
}

var fastDelays = config.ScannerConfig{FeedbackDelay: 10 * time.Millisecond, ReleaseDelay: 40 * time.Millisecond}

func newReadyEngine(t *testing.T) (*Engine, *fakeCamera, *handoffs) {
	t.Helper()
	cam := &fakeCamera{granted: true}
	h := newHandoffs()
	e := New(cam, fastDelays, h.record)
	t.Cleanup(func() { _ = e.Close() })

	if ok, err := e.RequestCameraAccess(context.Background()); !ok || err != nil {
		t.Fatalf("RequestCameraAccess = %v, %v", ok, err)
	}
	if err := e.SetVisible(true); err != nil {
		t.Fatalf("SetVisible: %v", err)
	}
	if !cam.isRunning() {
		t.Fatal("camera should run when visible and permitted")
	}
	return e, cam, h
}

func qr(v string) []Code { return []Code{{Symbology: SymbologyQR, Value: v}} }

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRapidDecodesHandOffOnce(t *testing.T) {
	e, cam, h := newReadyEngine(t)

	accepted := 0
	for i := 0; i < 25; i++ {
		if e.OnDecode(qr("first")) {
			accepted++
		}
	}
	if accepted != 1 {
		t.Fatalf("accepted %d decodes, want 1", accepted)
	}
	if e.Status() != StatusLocked || cam.isRunning() {
		t.Fatal("first decode must lock and stop the camera immediately")
	}

	select {
	case raw := <-h.ch:
		if raw != "first" {
			t.Fatalf("handed off %q", raw)
		}
	case <-time.After(time.Second):
		t.Fatal("no hand-off")
	}

	eventually(t, func() bool { return e.Status() == StatusIdle && cam.isRunning() })
	if h.count() != 1 {
		t.Fatalf("expected exactly one hand-off, got %d", h.count())
	}
}

func TestAcceptsNextCustomerAfterRelease(t *testing.T) {
	e, _, h := newReadyEngine(t)

	e.OnDecode(qr("one"))
	<-h.ch
	eventually(t, func() bool { return e.Status() == StatusIdle })

	if !e.OnDecode(qr("two")) {
		t.Fatal("decode after release should be accepted")
	}
	if raw := <-h.ch; raw != "two" {
		t.Fatalf("handed off %q", raw)
	}
}

func TestNonQRCodesIgnored(t *testing.T) {
	e, _, h := newReadyEngine(t)

	if e.OnDecode([]Code{{Symbology: SymbologyEAN13, Value: "4006381333931"}}) {
		t.Fatal("EAN-13 must be ignored")
	}
	if e.Status() != StatusIdle {
		t.Fatal("ignored decode must not lock")
	}

	mixed := []Code{{Symbology: SymbologyCode128, Value: "x"}, {Symbology: SymbologyQR, Value: "qr-value"}}
	if !e.OnDecode(mixed) {
		t.Fatal("QR in a mixed frame should be accepted")
	}
	if raw := <-h.ch; raw != "qr-value" {
		t.Fatalf("handed off %q", raw)
	}
}

func TestDeniedNeverStartsCamera(t *testing.T) {
	cam := &fakeCamera{granted: false}
	e := New(cam, fastDelays, nil)

	ok, err := e.RequestCameraAccess(context.Background())
	if ok || err != nil {
		t.Fatalf("RequestCameraAccess = %v, %v", ok, err)
	}
	_ = e.SetVisible(true)

	if cam.starts != 0 {
		t.Fatal("camera must not start without permission")
	}
	alert, blocked := e.Alert()
	if !blocked || alert.Title != "Camera Access Required" {
		t.Fatalf("unexpected alert %+v", alert)
	}
	if e.OnDecode(qr("x")) {
		t.Fatal("denied engine must not accept decodes")
	}

	// Terminal: asking again does not retry
	cam.granted = true
	if ok, _ := e.RequestCameraAccess(context.Background()); ok {
		t.Fatal("denial must be terminal")
	}
}

func TestNoCamera(t *testing.T) {
	cam := &fakeCamera{err: domain.ErrNoCamera}
	e := New(cam, fastDelays, nil)

	_, err := e.RequestCameraAccess(context.Background())
	if !errors.Is(err, domain.ErrNoCamera) {
		t.Fatalf("expected ErrNoCamera, got %v", err)
	}
	_ = e.SetVisible(true)
	if cam.starts != 0 || e.Status() != StatusNoCamera {
		t.Fatal("missing camera must never start")
	}
	if alert, _ := e.Alert(); alert.Title != "No Camera Found" {
		t.Fatalf("unexpected alert %+v", alert)
	}
}

func TestHidingCancelsPendingHandoff(t *testing.T) {
	cam := &fakeCamera{granted: true}
	h := newHandoffs()
	e := New(cam, config.ScannerConfig{FeedbackDelay: 100 * time.Millisecond, ReleaseDelay: time.Second}, h.record)
	defer e.Close()
	_, _ = e.RequestCameraAccess(context.Background())
	_ = e.SetVisible(true)

	e.OnDecode(qr("abandoned"))
	_ = e.SetVisible(false)

	if e.Status() != StatusIdle {
		t.Fatalf("hiding must clear the lockout, status %s", e.Status())
	}
	if cam.isRunning() {
		t.Fatal("camera must stay off while hidden")
	}

	time.Sleep(200 * time.Millisecond)
	if h.count() != 0 {
		t.Fatal("cancelled scan was handed off")
	}

	_ = e.SetVisible(true)
	if !cam.isRunning() {
		t.Fatal("camera should resume when shown again")
	}
}

func TestHidingAfterHandoffKeepsLockout(t *testing.T) {
	e, cam, h := newReadyEngine(t)

	e.OnDecode(qr("one"))
	<-h.ch
	_ = e.SetVisible(false)

	if e.Status() != StatusLocked {
		t.Fatal("lockout after hand-off is released by its timer, not by hiding")
	}
	eventually(t, func() bool { return e.Status() == StatusIdle })
	if cam.isRunning() {
		t.Fatal("camera must not restart while hidden")
	}
}

func TestInvisibleEngineIgnoresDecodes(t *testing.T) {
	e, cam, _ := newReadyEngine(t)
	_ = e.SetVisible(false)

	if cam.isRunning() {
		t.Fatal("camera must stop when hidden")
	}
	if e.OnDecode(qr("x")) {
		t.Fatal("hidden engine must not accept decodes")
	}
}
