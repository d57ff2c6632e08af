// Package graphics provides an abstraction layer for different presentation backends
package graphics

import (
	"fmt"
	"strings"
	"time"

	"famiplay/internal/audio"
	"famiplay/internal/input"
)

// Backend represents a presentation backend (Ebitengine, SDL2, terminal, headless)
type Backend interface {
	// Initialize initializes the backend
	Initialize(config Config) error

	// CreateSurface opens the output window with a width x height pixel surface
	CreateSurface(title string, width, height int) (Surface, error)

	// OpenAudio opens the backend's native audio device pulling from src.
	// The returned device reports the spec actually obtained.
	OpenAudio(want audio.Spec, src audio.Source) (audio.Device, error)

	// PollEvents drains pending window and key events
	PollEvents() []InputEvent

	// IsKeyPressed reports the current state of key
	IsKeyPressed(key input.Key) bool

	// Ticks returns the time elapsed since Initialize
	Ticks() time.Duration

	// Sleep blocks the calling loop for d
	Sleep(d time.Duration)

	// Run drives loop until it returns. Backends owning the main thread run
	// loop on a separate goroutine.
	Run(loop func() error) error

	// Cleanup releases all resources
	Cleanup() error

	// IsHeadless returns true if running without a visible window
	IsHeadless() bool

	// GetName returns the backend name for identification
	GetName() string
}

// Surface is a lockable pixel buffer presented as one frame
type Surface interface {
	// Lock grants exclusive access to the pixels until Unlock
	Lock() (Pixels, error)

	// Unlock releases the pixels taken by Lock
	Unlock()

	// Present shows the last completed frame
	Present() error

	// GetSize returns surface dimensions
	GetSize() (width, height int)

	// Cleanup releases surface resources
	Cleanup() error
}

// Pixels describes a locked surface. Rows are Pitch bytes apart.
type Pixels struct {
	Pix    []byte
	Width  int
	Height int
	Pitch  int
	Format PixelFormat
}

// PixelFormat is the byte layout of one 32-bit pixel
type PixelFormat int

const (
	// FormatXRGB8888 stores B, G, R, X in memory order
	FormatXRGB8888 PixelFormat = iota
	// FormatRGBA8888 stores R, G, B, A in memory order
	FormatRGBA8888
)

func (f PixelFormat) String() string {
	switch f {
	case FormatXRGB8888:
		return "XRGB8888"
	case FormatRGBA8888:
		return "RGBA8888"
	}
	return fmt.Sprintf("PixelFormat(%d)", int(f))
}

// Config contains configuration for presentation backends
type Config struct {
	// Window configuration
	WindowTitle string
	Scale       int
	Fullscreen  bool
	VSync       bool

	// Rendering configuration
	Filter string // "nearest", "linear"

	// Headless options
	Headless   bool
	DumpFrames []int
	DumpDir    string

	Debug bool
}

// InputEvent represents an input event from the window
type InputEvent struct {
	Type    InputEventType
	Key     input.Key
	Pressed bool
}

// InputEventType represents the type of input event
type InputEventType int

const (
	InputEventTypeKey InputEventType = iota
	InputEventTypeQuit
)

// IsQuit reports whether the event asks the loop to stop: a window close or
// an Escape key-down.
func (e InputEvent) IsQuit() bool {
	if e.Type == InputEventTypeQuit {
		return true
	}
	return e.Type == InputEventTypeKey && e.Key == input.KeyEscape && e.Pressed
}

// BackendType represents different backend types
type BackendType string

const (
	BackendEbitengine BackendType = "ebitengine"
	BackendSDL        BackendType = "sdl"
	BackendHeadless   BackendType = "headless"
	BackendTerminal   BackendType = "terminal"
)

// CreateBackend creates a backend of the specified type
func CreateBackend(backendType BackendType) (Backend, error) {
	switch BackendType(strings.ToLower(string(backendType))) {
	case BackendEbitengine, "":
		return NewEbitengineBackend(), nil
	case BackendSDL:
		return NewSDLBackend(), nil
	case BackendHeadless:
		return NewHeadlessBackend(), nil
	case BackendTerminal:
		return NewTerminalBackend(), nil
	}
	return nil, fmt.Errorf("unknown backend %q", backendType)
}

// BackendError reports a failed backend operation
type BackendError struct {
	Backend   string
	Operation string
	Err       error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend: %s: %v", e.Backend, e.Operation, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// WithSurfaceLock locks s for the duration of fn. The surface is unlocked
// on every exit path, including a panic in fn.
func WithSurfaceLock(s Surface, fn func(Pixels) error) error {
	px, err := s.Lock()
	if err != nil {
		return err
	}
	defer s.Unlock()
	return fn(px)
}
