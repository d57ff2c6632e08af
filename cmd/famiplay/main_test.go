package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"famiplay/internal/cartridge"
)

// writeSpinROM writes a cartridge that loops on JMP $8000
func writeSpinROM(t *testing.T, dir string) string {
	t.Helper()

	img := &cartridge.Image{}
	copy(img.Program[:], []byte{0x4C, 0x00, 0x80})
	for _, vector := range []int{0x7FFA, 0x7FFC, 0x7FFE} {
		img.Program[vector+1] = 0x80
	}

	path := filepath.Join(dir, "spin.nes")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer f.Close()
	if _, err := img.WriteTo(f); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	return path
}

func TestRun_Arguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
		out  string
	}{
		{"no rom", nil, 2, "USAGE"},
		{"two roms", []string{"a.nes", "b.nes"}, 2, "USAGE"},
		{"movie and script", []string{"-movie", "a.fm2", "-script", "a.lua", "a.nes"}, 2, "cannot be used together"},
		{"bad flag", []string{"-frobnicate"}, 2, "flag provided but not defined"},
		{"help", []string{"-help"}, 0, "famiplay [options] <rom.nes>"},
		{"version", []string{"-version"}, 0, "Go Version:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(tt.args, &stdout, &stderr)
			if code != tt.code {
				t.Errorf("Expected exit code %d, got %d", tt.code, code)
			}
			if out := stdout.String() + stderr.String(); !strings.Contains(out, tt.out) {
				t.Errorf("Expected output containing %q, got %q", tt.out, out)
			}
		})
	}
}

func TestRun_HeadlessMovie(t *testing.T) {
	dir := t.TempDir()
	rom := writeSpinROM(t, dir)

	moviePath := filepath.Join(dir, "run.fm2")
	fm2 := "version 3\nemuVersion 20604\n|0|R.......|........||\n|0|........|........||\n|1|........|........||\n"
	if err := os.WriteFile(moviePath, []byte(fm2), 0644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	args := []string{
		"-config", filepath.Join(dir, "famiplay.json"),
		"-backend", "headless",
		"-audio", "none",
		"-movie", moviePath,
		rom,
	}
	if code := run(args, &stdout, &stderr); code != 0 {
		t.Fatalf("Expected success, got %d: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "Frames rendered: 3") {
		t.Errorf("Expected three frames, got %q", stdout.String())
	}
}

func TestRun_Trace(t *testing.T) {
	dir := t.TempDir()
	rom := writeSpinROM(t, dir)

	moviePath := filepath.Join(dir, "one.fm2")
	if err := os.WriteFile(moviePath, []byte("|0|........|........||\n"), 0644); err != nil {
		t.Fatal(err)
	}

	// The trace goes to the process stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe failed: %v", err)
	}
	saved := os.Stdout
	os.Stdout = w
	traced := make(chan string)
	go func() {
		data, _ := io.ReadAll(r)
		traced <- string(data)
	}()

	var stdout, stderr bytes.Buffer
	args := []string{
		"-config", filepath.Join(dir, "famiplay.json"),
		"-backend", "headless",
		"-audio", "none",
		"-trace",
		"-movie", moviePath,
		rom,
	}
	code := run(args, &stdout, &stderr)
	w.Close()
	os.Stdout = saved
	trace := <-traced

	if code != 0 {
		t.Fatalf("Expected success, got %d: %s", code, stderr.String())
	}
	if !strings.HasPrefix(trace, "8000  4C 00 80  JMP") {
		t.Errorf("Expected an instruction trace, got %.80q", trace)
	}
	if !strings.Contains(stdout.String(), "Frames rendered: 1") {
		t.Errorf("Expected one frame, got %q", stdout.String())
	}
}

func TestRun_MissingROM(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	args := []string{
		"-config", filepath.Join(dir, "famiplay.json"),
		"-backend", "headless",
		filepath.Join(dir, "missing.nes"),
	}
	if code := run(args, &stdout, &stderr); code != 1 {
		t.Errorf("Expected exit code 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "load ROM") {
		t.Errorf("Expected ROM load error, got %q", stderr.String())
	}
}
