package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"colony-staff/internal/core/domain"
	"colony-staff/internal/core/scanner"
	"colony-staff/internal/pkg/qrcode"
)

// DefaultPollInterval is how often ImageDirCamera looks for new frames
const DefaultPollInterval = 250 * time.Millisecond

// ImageDirCamera decodes PNG and JPEG frames dropped into a directory, for
// tills whose webcam software saves snapshots. A missing directory is a
// missing camera; an unreadable one is a denied permission.
type ImageDirCamera struct {
	dir      string
	interval time.Duration

	mu       sync.Mutex
	seen     map[string]time.Time
	stopChan chan struct{}
}

// NewImageDirCamera watches dir; interval <= 0 uses DefaultPollInterval
func NewImageDirCamera(dir string, interval time.Duration) *ImageDirCamera {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &ImageDirCamera{
		dir:      dir,
		interval: interval,
		seen:     make(map[string]time.Time),
	}
}

func (c *ImageDirCamera) RequestPermission(context.Context) (bool, error) {
	info, err := os.Stat(c.dir)
	if errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("%w: %s", domain.ErrNoCamera, c.dir)
	}
	if err != nil {
		return false, nil
	}
	if !info.IsDir() {
		return false, fmt.Errorf("%w: %s is not a directory", domain.ErrNoCamera, c.dir)
	}

	f, err := os.Open(c.dir)
	if err != nil {
		return false, nil
	}
	_ = f.Close()
	return true, nil
}

func (c *ImageDirCamera) Start(onDecode func([]scanner.Code)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopChan != nil {
		return nil
	}
	// Frames saved while the camera was off are never seen
	c.markExisting()
	c.stopChan = make(chan struct{})
	go c.poll(c.stopChan, onDecode)
	return nil
}

func (c *ImageDirCamera) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopChan != nil {
		close(c.stopChan)
		c.stopChan = nil
	}
	return nil
}

func (c *ImageDirCamera) poll(stop <-chan struct{}, onDecode func([]scanner.Code)) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			for _, codes := range c.scan(stop) {
				select {
				case <-stop:
					return
				default:
				}
				onDecode(codes)
			}
		}
	}
}

// scan decodes frames that appeared or changed since the last pass, oldest first
func (c *ImageDirCamera) scan(stop <-chan struct{}) [][]scanner.Code {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		log.Printf("⚠️ Camera directory unreadable: %v", err)
		return nil
	}

	type frame struct {
		path string
		mod  time.Time
	}
	var frames []frame

	c.mu.Lock()
	if c.stopChan == nil || c.stopChan != stop {
		c.mu.Unlock()
		return nil
	}
	for _, entry := range entries {
		if entry.IsDir() || !isImage(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if last, ok := c.seen[entry.Name()]; ok && !info.ModTime().After(last) {
			continue
		}
		c.seen[entry.Name()] = info.ModTime()
		frames = append(frames, frame{filepath.Join(c.dir, entry.Name()), info.ModTime()})
	}
	c.mu.Unlock()

	sort.Slice(frames, func(i, j int) bool { return frames[i].mod.Before(frames[j].mod) })

	var out [][]scanner.Code
	for _, f := range frames {
		code, err := decodeFile(f.path)
		if err != nil {
			if !errors.Is(err, qrcode.ErrNoCode) {
				log.Printf("⚠️ Skipping frame %s: %v", filepath.Base(f.path), err)
			}
			continue
		}
		out = append(out, []scanner.Code{code})
	}
	return out
}

// markExisting must be called with mu held
func (c *ImageDirCamera) markExisting() {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if info, err := entry.Info(); err == nil && isImage(entry.Name()) {
			c.seen[entry.Name()] = info.ModTime()
		}
	}
}

func decodeFile(path string) (scanner.Code, error) {
	f, err := os.Open(path)
	if err != nil {
		return scanner.Code{}, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return scanner.Code{}, fmt.Errorf("decode image: %w", err)
	}

	text, sym, err := qrcode.Decode(img)
	if err != nil {
		return scanner.Code{}, err
	}
	return scanner.Code{Symbology: scanner.Symbology(sym), Value: text}, nil
}

func isImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}
