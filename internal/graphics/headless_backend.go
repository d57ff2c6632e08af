package graphics

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"famiplay/internal/audio"
	"famiplay/internal/input"
)

// HeadlessBackend implements the Backend interface without any window. Frames
// live in memory and selected ones are written as PNG files. Events and key
// state can be injected, which makes it the backend of choice for automation.
type HeadlessBackend struct {
	initialized bool
	config      Config
	start       time.Time

	mu      sync.Mutex
	events  []InputEvent
	keys    map[input.Key]bool
	slept   time.Duration
	surface *HeadlessSurface

	lockErr   error
	audioSpec *audio.Spec
}

// HeadlessSurface is an in-memory RGBA surface
type HeadlessSurface struct {
	backend    *HeadlessBackend
	image      *image.RGBA
	locked     bool
	frameCount int
	dump       map[int]bool
	dumpDir    string
}

// NewHeadlessBackend creates a new headless backend
func NewHeadlessBackend() *HeadlessBackend {
	return &HeadlessBackend{keys: make(map[input.Key]bool)}
}

// Initialize initializes the headless backend
func (b *HeadlessBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("headless backend already initialized")
	}

	b.config = config
	b.start = time.Now()
	b.initialized = true
	return nil
}

// CreateSurface allocates the in-memory frame
func (b *HeadlessBackend) CreateSurface(title string, width, height int) (Surface, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid surface size %dx%d", width, height)
	}

	dump := make(map[int]bool, len(b.config.DumpFrames))
	for _, n := range b.config.DumpFrames {
		dump[n] = true
	}
	dir := b.config.DumpDir
	if dir == "" {
		dir = "."
	}

	s := &HeadlessSurface{
		backend: b,
		image:   image.NewRGBA(image.Rect(0, 0, width, height)),
		dump:    dump,
		dumpDir: dir,
	}
	b.surface = s

	if b.config.Debug {
		log.Printf("[Headless] Surface %q %dx%d", title, width, height)
	}
	return s, nil
}

// OpenAudio returns a silent device that reports the requested spec
func (b *HeadlessBackend) OpenAudio(want audio.Spec, src audio.Source) (audio.Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	have := want
	if b.audioSpec != nil {
		have = *b.audioSpec
	}
	return audio.NewNullDevice(have), nil
}

// PollEvents returns the injected events
func (b *HeadlessBackend) PollEvents() []InputEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	events := b.events
	b.events = nil
	return events
}

// IsKeyPressed reports injected key state
func (b *HeadlessBackend) IsKeyPressed(key input.Key) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.keys[key]
}

// Ticks returns wall time since Initialize
func (b *HeadlessBackend) Ticks() time.Duration {
	return time.Since(b.start)
}

// Sleep records the requested delay without blocking, so automation runs as
// fast as the core allows.
func (b *HeadlessBackend) Sleep(d time.Duration) {
	b.mu.Lock()
	b.slept += d
	b.mu.Unlock()
}

// Run calls loop on the current goroutine
func (b *HeadlessBackend) Run(loop func() error) error {
	return loop()
}

// Cleanup releases all headless resources
func (b *HeadlessBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns true (this is a headless backend)
func (b *HeadlessBackend) IsHeadless() bool {
	return true
}

// GetName returns the backend name
func (b *HeadlessBackend) GetName() string {
	return "Headless"
}

// QueueEvent injects an event returned by the next PollEvents
func (b *HeadlessBackend) QueueEvent(ev InputEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
}

// SetKey sets the state reported by IsKeyPressed
func (b *HeadlessBackend) SetKey(key input.Key, pressed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.keys[key] = pressed
}

// FailLock makes every following surface Lock fail with err (nil restores)
func (b *HeadlessBackend) FailLock(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lockErr = err
}

// ForceAudioSpec makes OpenAudio report spec instead of the request
func (b *HeadlessBackend) ForceAudioSpec(spec audio.Spec) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.audioSpec = &spec
}

// Slept returns the total delay requested through Sleep
func (b *HeadlessBackend) Slept() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.slept
}

// Surface returns the surface created last, or nil
func (b *HeadlessBackend) Surface() *HeadlessSurface {
	return b.surface
}

// HeadlessSurface implementation

// Lock exposes the frame memory
func (s *HeadlessSurface) Lock() (Pixels, error) {
	s.backend.mu.Lock()
	err := s.backend.lockErr
	s.backend.mu.Unlock()
	if err != nil {
		return Pixels{}, err
	}
	if s.locked {
		return Pixels{}, errors.New("surface already locked")
	}

	s.locked = true
	b := s.image.Bounds()
	return Pixels{
		Pix:    s.image.Pix,
		Width:  b.Dx(),
		Height: b.Dy(),
		Pitch:  s.image.Stride,
		Format: FormatRGBA8888,
	}, nil
}

// Unlock releases the frame memory
func (s *HeadlessSurface) Unlock() {
	s.locked = false
}

// Present counts the frame and dumps it when selected
func (s *HeadlessSurface) Present() error {
	s.frameCount++
	if !s.dump[s.frameCount] {
		return nil
	}
	return s.saveFrameAsPNG(filepath.Join(s.dumpDir, fmt.Sprintf("frame_%05d.png", s.frameCount)))
}

// saveFrameAsPNG saves the current frame as a PNG image file
func (s *HeadlessSurface) saveFrameAsPNG(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", filename, err)
	}
	defer file.Close()

	if err := png.Encode(file, s.image); err != nil {
		return fmt.Errorf("failed to encode %s: %w", filename, err)
	}
	return file.Close()
}

// GetSize returns surface dimensions
func (s *HeadlessSurface) GetSize() (width, height int) {
	b := s.image.Bounds()
	return b.Dx(), b.Dy()
}

// Cleanup releases surface resources
func (s *HeadlessSurface) Cleanup() error {
	s.locked = false
	return nil
}

// GetFrameCount returns the number of presented frames
func (s *HeadlessSurface) GetFrameCount() int {
	return s.frameCount
}

// Image returns the frame memory
func (s *HeadlessSurface) Image() *image.RGBA {
	return s.image
}
