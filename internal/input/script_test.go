package input

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScript_Sequence(t *testing.T) {
	script, err := NewScript(`
function input(frame)
  if frame >= 3 then return nil end
  if frame == 0 then return BUTTON_RIGHT + BUTTON_A, 0, SOFT_RESET end
  if frame == 1 then return "T", "U" end
  return 0
end`)
	if err != nil {
		t.Fatalf("Failed to load script: %v", err)
	}
	defer script.Close()

	expected := []Frame{
		{Command: CommandSoftReset, Ports: [Ports]Mask{Mask(ButtonRight | ButtonA), 0}},
		{Ports: [Ports]Mask{Mask(ButtonStart), Mask(ButtonUp)}},
		{},
	}

	for i, want := range expected {
		got, ok := script.Next()
		if !ok {
			t.Fatalf("Frame %d: expected input, got end (err %v)", i, script.Err())
		}
		if got != want {
			t.Errorf("Frame %d: expected %+v, got %+v", i, want, got)
		}
	}

	if _, ok := script.Next(); ok {
		t.Error("Expected script to end after frame 2")
	}
	if script.Err() != nil {
		t.Errorf("Expected clean end, got %v", script.Err())
	}
}

func TestScript_Errors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"runtime error", `function input(frame) error("boom") end`},
		{"bad mask type", `function input(frame) return {} end`},
		{"mask out of range", `function input(frame) return 300 end`},
		{"bad glyph", `function input(frame) return "Q" end`},
		{"fractional mask", `function input(frame) return 1.5 end`},
		{"negative command", `function input(frame) return 0, 0, -1 end`},
		{"fractional command", `function input(frame) return 0, 0, 0.5 end`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script, err := NewScript(tt.source)
			if err != nil {
				t.Fatalf("Failed to load script: %v", err)
			}
			defer script.Close()

			if _, ok := script.Next(); ok {
				t.Fatal("Expected input to end on error")
			}
			if script.Err() == nil {
				t.Error("Expected Err to report the failure")
			}
			if _, ok := script.Next(); ok {
				t.Error("Expected input to stay ended")
			}
		})
	}
}

func TestScript_ButtonGlobals(t *testing.T) {
	script, err := NewScript(`function input(frame) return BUTTON_LEFT, BUTTON_B + BUTTON_DOWN end`)
	if err != nil {
		t.Fatalf("Failed to load script: %v", err)
	}
	defer script.Close()

	got, ok := script.Next()
	if !ok {
		t.Fatalf("Expected input, got end (err %v)", script.Err())
	}
	if got.Ports[0] != Mask(ButtonLeft) || got.Ports[1] != Mask(ButtonB|ButtonDown) {
		t.Errorf("Unexpected masks %v", got.Ports)
	}
}

func TestLoadScript(t *testing.T) {
	if _, err := NewScript(`x = 1`); err == nil {
		t.Error("Expected error when input is not defined")
	}
	if _, err := NewScript(`function input(`); err == nil {
		t.Error("Expected syntax error")
	}

	path := filepath.Join(t.TempDir(), "input.lua")
	if err := os.WriteFile(path, []byte(`function input(frame) return BUTTON_SELECT end`), 0644); err != nil {
		t.Fatalf("Failed to write script: %v", err)
	}
	script, err := LoadScript(path)
	if err != nil {
		t.Fatalf("LoadScript failed: %v", err)
	}
	defer script.Close()

	frame, ok := script.Next()
	if !ok || frame.Ports[0] != Mask(ButtonSelect) {
		t.Errorf("Expected Select on port 0, got %+v (ok %v)", frame, ok)
	}
}
