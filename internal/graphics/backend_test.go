package graphics

import (
	"errors"
	"testing"

	"famiplay/internal/input"
)

var errTest = errors.New("test failure")

func TestCreateBackend(t *testing.T) {
	tests := []struct {
		backendType BackendType
		wantName    string
	}{
		{BackendHeadless, "Headless"},
		{BackendTerminal, "Terminal"},
		{"HEADLESS", "Headless"},
	}

	for _, tt := range tests {
		t.Run(string(tt.backendType), func(t *testing.T) {
			b, err := CreateBackend(tt.backendType)
			if err != nil {
				t.Fatalf("CreateBackend failed: %v", err)
			}
			if b.GetName() != tt.wantName {
				t.Errorf("Expected %s, got %s", tt.wantName, b.GetName())
			}
		})
	}

	if _, err := CreateBackend("vga"); err == nil {
		t.Error("Expected unknown backend to fail")
	}
}

func TestInputEvent_IsQuit(t *testing.T) {
	tests := []struct {
		name  string
		event InputEvent
		want  bool
	}{
		{"window close", InputEvent{Type: InputEventTypeQuit}, true},
		{"escape down", InputEvent{Type: InputEventTypeKey, Key: input.KeyEscape, Pressed: true}, true},
		{"escape up", InputEvent{Type: InputEventTypeKey, Key: input.KeyEscape}, false},
		{"other key", InputEvent{Type: InputEventTypeKey, Key: input.KeyQ, Pressed: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.IsQuit(); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestBackendError(t *testing.T) {
	err := error(&BackendError{Backend: "SDL2", Operation: "open audio", Err: errTest})

	if err.Error() != "SDL2 backend: open audio: test failure" {
		t.Errorf("Unexpected message: %s", err)
	}
	if !errors.Is(err, errTest) {
		t.Error("Expected BackendError to unwrap")
	}
	var be *BackendError
	if !errors.As(err, &be) || be.Operation != "open audio" {
		t.Error("Expected errors.As to find BackendError")
	}
}

func TestPixelFormat_String(t *testing.T) {
	if FormatXRGB8888.String() != "XRGB8888" || FormatRGBA8888.String() != "RGBA8888" {
		t.Error("Unexpected format names")
	}
	if PixelFormat(7).String() != "PixelFormat(7)" {
		t.Errorf("Unexpected name for unknown format: %s", PixelFormat(7))
	}
}
