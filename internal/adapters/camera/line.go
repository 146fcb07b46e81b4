// Package camera provides code sources for the scanner engine.
package camera

import (
	"context"
	"strings"
	"sync"

	"colony-staff/internal/core/scanner"
)

// LineCamera treats each fed line as one decoded code, the way a
// keyboard-wedge scanner types it. A "qr:", "ean13:" or "code128:" prefix
// selects the symbology; unprefixed lines are QR.
type LineCamera struct {
	mu       sync.Mutex
	onDecode func([]scanner.Code)
	running  bool
}

// NewLineCamera returns a stopped line camera
func NewLineCamera() *LineCamera {
	return &LineCamera{}
}

// RequestPermission always grants; a line source needs no hardware consent
func (c *LineCamera) RequestPermission(context.Context) (bool, error) {
	return true, nil
}

func (c *LineCamera) Start(onDecode func([]scanner.Code)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDecode = onDecode
	c.running = true
	return nil
}

func (c *LineCamera) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

// Running reports whether the camera is delivering
func (c *LineCamera) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Feed delivers line as a decode. Lines fed while stopped are dropped,
// like frames a powered-off camera never sees. Reports whether it was delivered.
func (c *LineCamera) Feed(line string) bool {
	codes := ParseLine(line)
	if len(codes) == 0 {
		return false
	}

	c.mu.Lock()
	onDecode, running := c.onDecode, c.running
	c.mu.Unlock()

	if !running || onDecode == nil {
		return false
	}
	onDecode(codes)
	return true
}

// ParseLine splits an optional symbology prefix off a scanned line
func ParseLine(line string) []scanner.Code {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	for _, sym := range []scanner.Symbology{scanner.SymbologyQR, scanner.SymbologyEAN13, scanner.SymbologyCode128} {
		if rest, ok := strings.CutPrefix(line, string(sym)+":"); ok {
			return []scanner.Code{{Symbology: sym, Value: rest}}
		}
	}
	return []scanner.Code{{Symbology: scanner.SymbologyQR, Value: line}}
}
