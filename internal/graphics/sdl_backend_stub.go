//go:build !sdl
// +build !sdl

package graphics

import (
	"errors"
	"time"

	"famiplay/internal/audio"
	"famiplay/internal/input"
)

var errNoSDL = errors.New("SDL backend not available (build with -tags sdl)")

// SDLBackend stub for builds without SDL2
type SDLBackend struct{}

// NewSDLBackend creates a stub backend
func NewSDLBackend() Backend {
	return &SDLBackend{}
}

func (b *SDLBackend) Initialize(config Config) error { return errNoSDL }

func (b *SDLBackend) CreateSurface(title string, width, height int) (Surface, error) {
	return nil, errNoSDL
}

func (b *SDLBackend) OpenAudio(want audio.Spec, src audio.Source) (audio.Device, error) {
	return nil, errNoSDL
}

func (b *SDLBackend) PollEvents() []InputEvent { return nil }
func (b *SDLBackend) IsKeyPressed(key input.Key) bool { return false }
func (b *SDLBackend) Ticks() time.Duration { return 0 }
func (b *SDLBackend) Sleep(d time.Duration) {}
func (b *SDLBackend) Run(loop func() error) error { return errNoSDL }
func (b *SDLBackend) Cleanup() error { return nil }
func (b *SDLBackend) IsHeadless() bool { return false }
func (b *SDLBackend) GetName() string { return "SDL2-Stub" }
