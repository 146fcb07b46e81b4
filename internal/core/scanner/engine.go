// Package scanner turns camera decodes into exactly one hand-off per scan.
package scanner

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"colony-staff/internal/config"
	"colony-staff/internal/core/domain"
)

// Symbology is a barcode family
type Symbology string

const (
	SymbologyQR      Symbology = "qr"
	SymbologyEAN13   Symbology = "ean13"
	SymbologyCode128 Symbology = "code128"
)

// Code is one decoded barcode
type Code struct {
	Symbology Symbology
	Value     string
}

// Camera is a code source. Start must deliver decodes from its own goroutine,
// never from inside Start or Stop, and Stop must not wait for a delivery in progress.
type Camera interface {
	RequestPermission(ctx context.Context) (bool, error)
	Start(onDecode func([]Code)) error
	Stop() error
}

// Status is the engine state
type Status int

const (
	StatusUnrequested Status = iota
	StatusDenied
	StatusNoCamera
	StatusIdle
	StatusLocked
)

func (s Status) String() string {
	switch s {
	case StatusDenied:
		return "Denied"
	case StatusNoCamera:
		return "NoCamera"
	case StatusIdle:
		return "Idle"
	case StatusLocked:
		return "Locked"
	default:
		return "Unrequested"
	}
}

// Engine owns the camera lifecycle and the scan lockout:
// Idle (scanning) -> Locked (feedback, hand-off) -> Idle.
// The camera runs only while visible, permitted and not locked.
type Engine struct {
	camera  Camera
	handoff func(raw string)
	cfg     config.ScannerConfig

	mu        sync.Mutex
	status    Status
	visible   bool
	running   bool
	handedOff bool
	pending   *time.Timer
	release   *time.Timer
	gen       uint64
}

// New creates an engine. handoff receives the raw value of each accepted scan.
func New(camera Camera, cfg config.ScannerConfig, handoff func(raw string)) *Engine {
	return &Engine{camera: camera, cfg: cfg, handoff: handoff}
}

// RequestCameraAccess asks for camera permission once. Denied and missing
// cameras are terminal for this engine.
func (e *Engine) RequestCameraAccess(ctx context.Context) (bool, error) {
	e.mu.Lock()
	if e.status != StatusUnrequested {
		granted := e.status == StatusIdle || e.status == StatusLocked
		e.mu.Unlock()
		return granted, nil
	}
	e.mu.Unlock()

	granted, err := e.camera.RequestPermission(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case errors.Is(err, domain.ErrNoCamera):
		e.status = StatusNoCamera
		log.Println("❌ No camera found")
		return false, err
	case err != nil:
		e.status = StatusDenied
		log.Printf("❌ Camera permission failed: %v", err)
		return false, err
	case !granted:
		e.status = StatusDenied
		log.Println("⚠️ Camera access denied")
		return false, nil
	}

	e.status = StatusIdle
	return true, e.reconcile()
}

// SetVisible records whether the scanner screen is showing. Hiding it before
// a locked scan has been handed off cancels that hand-off.
func (e *Engine) SetVisible(visible bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.visible = visible
	if !visible && e.status == StatusLocked && !e.handedOff {
		e.cancelTimers()
		e.status = StatusIdle
		log.Println("🛑 Pending scan cancelled")
	}
	return e.reconcile()
}

// OnDecode accepts the first QR code of the first decode in a lockout window.
// Reports whether the decode was accepted.
func (e *Engine) OnDecode(codes []Code) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != StatusIdle || !e.visible {
		return false
	}
	raw, ok := firstQR(codes)
	if !ok {
		return false
	}

	// Lock before anything else so concurrent decodes are dropped
	e.status = StatusLocked
	e.handedOff = false
	e.gen++
	gen := e.gen
	if err := e.reconcile(); err != nil {
		log.Printf("⚠️ Camera stop failed: %v", err)
	}

	e.pending = time.AfterFunc(e.cfg.FeedbackDelay, func() { e.fire(gen, raw) })
	return true
}

func (e *Engine) fire(gen uint64, raw string) {
	e.mu.Lock()
	if gen != e.gen || e.status != StatusLocked {
		e.mu.Unlock()
		return
	}
	e.pending = nil
	e.handedOff = true
	e.release = time.AfterFunc(e.cfg.ReleaseDelay, func() { e.unlock(gen) })
	e.mu.Unlock()

	if e.handoff != nil {
		e.handoff(raw)
	}
}

func (e *Engine) unlock(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.gen || e.status != StatusLocked {
		return
	}
	e.release = nil
	e.handedOff = false
	e.status = StatusIdle
	if err := e.reconcile(); err != nil {
		log.Printf("⚠️ Camera restart failed: %v", err)
	}
}

// Status returns the engine state
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Active reports whether the camera is running
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Alert returns the blocking message for the terminal states
func (e *Engine) Alert() (domain.Alert, bool) {
	switch e.Status() {
	case StatusDenied:
		return domain.Alert{Title: "Camera Access Required"}, true
	case StatusNoCamera:
		return domain.Alert{Title: "No Camera Found"}, true
	default:
		return domain.Alert{}, false
	}
}

// Close cancels pending work and stops the camera
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelTimers()
	if e.status == StatusLocked {
		e.status = StatusIdle
	}
	e.visible = false
	return e.reconcile()
}

// cancelTimers must be called with mu held
func (e *Engine) cancelTimers() {
	e.gen++
	if e.pending != nil {
		e.pending.Stop()
		e.pending = nil
	}
	if e.release != nil {
		e.release.Stop()
		e.release = nil
	}
	e.handedOff = false
}

// reconcile starts or stops the camera to match visible && idle; mu must be held
func (e *Engine) reconcile() error {
	want := e.visible && e.status == StatusIdle
	switch {
	case want && !e.running:
		if err := e.camera.Start(e.deliver); err != nil {
			return err
		}
		e.running = true
	case !want && e.running:
		e.running = false
		if err := e.camera.Stop(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) deliver(codes []Code) {
	e.OnDecode(codes)
}

func firstQR(codes []Code) (string, bool) {
	for _, c := range codes {
		if c.Symbology == SymbologyQR {
			return c.Value, true
		}
	}
	return "", false
}
