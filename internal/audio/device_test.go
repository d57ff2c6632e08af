package audio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-audio/wav"
)

func TestOpen_UnknownAndNull(t *testing.T) {
	spec := testSpec(2)

	if _, err := Open("beeper", spec, nil, ""); err == nil {
		t.Error("Expected unknown driver to fail")
	}
	if _, err := Open(DriverWav, spec, nil, ""); err == nil {
		t.Error("Expected wav driver without path to fail")
	}

	dev, err := Open(DriverNone, spec, nil, "")
	if err != nil {
		t.Fatalf("Expected null driver, got %v", err)
	}
	if dev.Spec() != spec {
		t.Errorf("Expected spec %s, got %s", spec, dev.Spec())
	}
	if err := dev.Start(); err != nil {
		t.Errorf("Start failed: %v", err)
	}
	if err := dev.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestWavDevice_WritesPulledAudio(t *testing.T) {
	spec := Spec{SampleRate: 44100, Format: FormatS16LE, Channels: 2, BufferSize: 256}
	m, err := NewMixer(spec, 60)
	if err != nil {
		t.Fatalf("NewMixer failed: %v", err)
	}
	m.Push(createMixed(cyclesPerFrame, 0.25))

	path := filepath.Join(t.TempDir(), "out.wav")
	dev, err := OpenWav(path, spec, m)
	if err != nil {
		t.Fatalf("OpenWav failed: %v", err)
	}

	for i := 0; i < 4; i++ {
		if err := dev.writeChunk(); err != nil {
			t.Fatalf("writeChunk failed: %v", err)
		}
	}
	if err := dev.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to reopen WAV: %v", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatal("Expected a valid WAV file")
	}
	if dec.SampleRate != 44100 || dec.NumChans != 2 || dec.BitDepth != 16 {
		t.Errorf("Unexpected format: %d Hz, %d channels, %d bits", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("Failed to decode PCM: %v", err)
	}
	if len(buf.Data) != 4*256*2 {
		t.Fatalf("Expected %d samples, got %d", 4*256*2, len(buf.Data))
	}
	if buf.Data[0] != 5000 || buf.Data[1] != 5000 {
		t.Errorf("Expected first frame at 5000, got %d %d", buf.Data[0], buf.Data[1])
	}
}

func TestWavDevice_StartAndClose(t *testing.T) {
	spec := Spec{SampleRate: 8000, Format: FormatS16LE, Channels: 1, BufferSize: 80}
	m, err := NewMixer(spec, 60)
	if err != nil {
		t.Fatalf("NewMixer failed: %v", err)
	}

	dev, err := OpenWav(filepath.Join(t.TempDir(), "live.wav"), spec, m)
	if err != nil {
		t.Fatalf("OpenWav failed: %v", err)
	}
	if err := dev.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := dev.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := dev.Close(); err != nil {
		t.Errorf("Expected second Close to be a no-op, got %v", err)
	}
}

func TestOpenWav_BadPath(t *testing.T) {
	_, err := OpenWav(filepath.Join(t.TempDir(), "missing", "out.wav"), testSpec(1), nil)
	if err == nil || !strings.HasPrefix(err.Error(), "wav:") {
		t.Errorf("Expected wav error, got %v", err)
	}
}
