//go:build !headless
// +build !headless

package graphics

import (
	"testing"

	"famiplay/internal/input"
)

// TestEbitengineBackend_Initialize tests backend initialization
func TestEbitengineBackend_Initialize(t *testing.T) {
	backend := NewEbitengineBackend()

	config := Config{
		WindowTitle: "Test Window",
		Scale:       2,
		VSync:       true,
		Filter:      "nearest",
	}

	if err := backend.Initialize(config); err != nil {
		t.Fatalf("Expected successful initialization, got error: %v", err)
	}
	if !backend.(*EbitengineBackend).initialized {
		t.Error("Backend should be marked as initialized")
	}
	if backend.(*EbitengineBackend).config.WindowTitle != "Test Window" {
		t.Error("Config not properly stored during initialization")
	}
	if err := backend.Initialize(config); err == nil {
		t.Error("Second initialization should fail")
	}
	if backend.GetName() != "Ebitengine" {
		t.Errorf("Expected backend name 'Ebitengine', got %s", backend.GetName())
	}
}

func TestEbitengineBackend_CreateSurface_Refused(t *testing.T) {
	backend := NewEbitengineBackend()
	if _, err := backend.CreateSurface("Test", 256, 240); err == nil {
		t.Error("Expected error when creating a surface on an uninitialized backend")
	}

	backend = NewEbitengineBackend()
	if err := backend.Initialize(Config{Headless: true}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if _, err := backend.CreateSurface("Test", 256, 240); err == nil {
		t.Error("Expected error when creating a surface in headless mode")
	}
	if err := backend.Run(func() error { return nil }); err == nil {
		t.Error("Expected Run without a surface to fail")
	}
}

func TestEbitengineSurface_PresentMarksDirty(t *testing.T) {
	s := &EbitengineSurface{pix: make([]byte, 4*2*2), width: 2, height: 2}

	px, err := s.Lock()
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if px.Pitch != 8 || px.Format != FormatRGBA8888 {
		t.Errorf("Unexpected pixels: pitch %d format %s", px.Pitch, px.Format)
	}
	px.Pix[0] = 0xAA
	s.Unlock()

	if s.dirty {
		t.Error("Surface should not be dirty before Present")
	}
	if err := s.Present(); err != nil {
		t.Fatalf("Present failed: %v", err)
	}
	if !s.dirty || s.pix[0] != 0xAA {
		t.Error("Expected presented frame to be pending upload")
	}
}

func TestEbitengineBackend_PollEventsDrains(t *testing.T) {
	b := NewEbitengineBackend().(*EbitengineBackend)
	b.events = []InputEvent{{Type: InputEventTypeKey, Key: input.KeyF5, Pressed: true}}
	b.keys[input.KeyA] = true

	if events := b.PollEvents(); len(events) != 1 || events[0].Key != input.KeyF5 {
		t.Errorf("Unexpected events %+v", events)
	}
	if len(b.PollEvents()) != 0 {
		t.Error("Expected events to be drained")
	}
	if !b.IsKeyPressed(input.KeyA) || b.IsKeyPressed(input.KeyB) {
		t.Error("Unexpected key state")
	}
}

func TestEbitengineKeys_CoverEveryKey(t *testing.T) {
	for _, k := range input.Keys() {
		if _, ok := ebitenKeys[k]; !ok {
			t.Errorf("Key %s has no Ebitengine mapping", k)
		}
	}
}
