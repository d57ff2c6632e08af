//go:build headless
// +build headless

package graphics

import (
	"errors"
	"time"

	"famiplay/internal/audio"
	"famiplay/internal/input"
)

var errNoEbitengine = errors.New("Ebitengine backend not available in headless build")

// EbitengineBackend stub for headless builds
type EbitengineBackend struct{}

// NewEbitengineBackend creates a stub backend for headless builds
func NewEbitengineBackend() Backend {
	return &EbitengineBackend{}
}

func (b *EbitengineBackend) Initialize(config Config) error { return errNoEbitengine }

func (b *EbitengineBackend) CreateSurface(title string, width, height int) (Surface, error) {
	return nil, errNoEbitengine
}

func (b *EbitengineBackend) OpenAudio(want audio.Spec, src audio.Source) (audio.Device, error) {
	return nil, errNoEbitengine
}

func (b *EbitengineBackend) PollEvents() []InputEvent { return nil }
func (b *EbitengineBackend) IsKeyPressed(key input.Key) bool { return false }
func (b *EbitengineBackend) Ticks() time.Duration { return 0 }
func (b *EbitengineBackend) Sleep(d time.Duration) {}
func (b *EbitengineBackend) Run(loop func() error) error { return errNoEbitengine }
func (b *EbitengineBackend) Cleanup() error { return nil }
func (b *EbitengineBackend) IsHeadless() bool { return true }
func (b *EbitengineBackend) GetName() string { return "Ebitengine-Stub" }
