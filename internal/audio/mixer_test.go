package audio

import (
	"encoding/binary"
	"math"
	"sync"
	"testing"

	"famiplay/internal/engine"
)

const cyclesPerFrame = 29781

func testSpec(channels int) Spec {
	return Spec{SampleRate: 44100, Format: FormatS16LE, Channels: channels, BufferSize: 4096}
}

func newTestMixer(t *testing.T, channels int) *Mixer {
	t.Helper()
	m, err := NewMixer(testSpec(channels), 60)
	if err != nil {
		t.Fatalf("NewMixer failed: %v", err)
	}
	return m
}

// createSound builds n cycles of constant channel levels.
func createSound(n int, pulse, triangle, noise, dmc uint8) engine.Sound {
	fill := func(v uint8) []uint8 {
		run := make([]uint8, n)
		for i := range run {
			run[i] = v
		}
		return run
	}
	return engine.Sound{
		Pulse1:   fill(pulse),
		Pulse2:   fill(pulse),
		Triangle: fill(triangle),
		Noise:    fill(noise),
		DMC:      fill(dmc),
	}
}

// createMixed builds n cycles of a constant pre-mixed level.
func createMixed(n int, level float32) engine.Sound {
	run := make([]float32, n)
	for i := range run {
		run[i] = level
	}
	return engine.Sound{Mixed: run}
}

func TestNewMixer_InvalidSpecs(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
		fps  int
	}{
		{"zero rate", Spec{Format: FormatS16LE, Channels: 1}, 60},
		{"zero fps", testSpec(1), 0},
		{"unknown format", Spec{SampleRate: 44100, Channels: 1}, 60},
		{"no channels", Spec{SampleRate: 44100, Format: FormatS16LE}, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMixer(tt.spec, tt.fps); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestMixer_ChannelFormula(t *testing.T) {
	tests := []struct {
		name  string
		pulse uint8
		tri   uint8
		noise uint8
		dmc   uint8
	}{
		{"silence", 0, 0, 0, 0},
		{"full scale", 15, 15, 15, 127},
		{"mid", 8, 3, 11, 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMixer(t, 1)
			m.Push(createSound(100, tt.pulse, tt.tri, tt.noise, tt.dmc))

			p, tri, noi, dmc := float64(tt.pulse), float64(tt.tri), float64(tt.noise), float64(tt.dmc)
			mixed := pulseWeight*(p+p) + triangleWeight*tri + noiseWeight*noi + dmcWeight*dmc
			want := int16(amplitude * (mixed - 0.5))

			out := make([]int16, 1)
			m.Pull(out)
			if out[0] != want {
				t.Errorf("Expected sample %d, got %d", want, out[0])
			}
		})
	}
}

func TestMixer_SilenceLevel(t *testing.T) {
	m := newTestMixer(t, 1)
	m.Push(createSound(100, 0, 0, 0, 0))

	out := make([]int16, 2)
	m.Pull(out)
	if out[0] != -10000 || out[1] != -10000 {
		t.Errorf("Expected -10000 for all-zero channels, got %v", out)
	}
}

func TestMixer_ResampleCountCarriesAcrossFrames(t *testing.T) {
	m := newTestMixer(t, 1)
	step := CPUFrequency / 44100

	m.Push(createSound(cyclesPerFrame, 1, 1, 1, 1))
	if got, want := m.Buffered(), int(math.Ceil(cyclesPerFrame/step)); got != want {
		t.Errorf("First frame: expected %d samples, got %d", want, got)
	}

	for i := 1; i < 10; i++ {
		m.Push(createSound(cyclesPerFrame, 1, 1, 1, 1))
	}
	want := int(math.Ceil(10 * cyclesPerFrame / step))
	if got := m.Buffered(); got != want {
		t.Errorf("Ten frames: expected %d samples, got %d", want, got)
	}
}

func TestMixer_OverflowDropsAndResetsCarry(t *testing.T) {
	m := newTestMixer(t, 1)
	capacity := queueFrames * (44100 / 60)

	for i := 0; i < 20; i++ {
		m.Push(createSound(cyclesPerFrame, 2, 2, 2, 2))
	}
	if got := m.Buffered(); got != capacity {
		t.Fatalf("Expected full queue of %d, got %d", capacity, got)
	}
	stats := m.Stats()
	if stats.Overflows == 0 {
		t.Error("Expected overflows to be counted")
	}
	if stats.Queued != capacity {
		t.Errorf("Expected %d queued, got %d", capacity, stats.Queued)
	}

	m.mu.Lock()
	carry := m.carry
	m.mu.Unlock()
	if carry != 0 {
		t.Errorf("Expected carry reset after overflow, got %f", carry)
	}
}

func TestMixer_UnderflowFillsSilence(t *testing.T) {
	m := newTestMixer(t, 1)
	m.Push(createSound(41, 15, 0, 0, 0)) // two samples at 44100 Hz

	out := make([]int16, 5)
	for i := range out {
		out[i] = 123
	}
	m.Pull(out)

	if out[0] == 0 || out[1] == 0 {
		t.Errorf("Expected two queued samples first, got %v", out)
	}
	for i := 2; i < len(out); i++ {
		if out[i] != 0 {
			t.Errorf("Expected silence at %d, got %d", i, out[i])
		}
	}
	if m.Stats().Underflows != 3 {
		t.Errorf("Expected 3 underflows, got %d", m.Stats().Underflows)
	}
}

func TestMixer_StereoAndRead(t *testing.T) {
	m := newTestMixer(t, 2)
	m.Push(createMixed(45, 0.5))
	if m.Buffered() != 2 {
		t.Fatalf("Expected 2 sample frames, got %d", m.Buffered())
	}

	out := make([]int16, 3)
	m.Pull(out)
	if out[0] != 10000 || out[1] != 10000 {
		t.Errorf("Expected mono sample copied to both channels, got %v", out)
	}
	if out[2] != 0 {
		t.Errorf("Expected partial frame to be silence, got %d", out[2])
	}

	buf := make([]byte, 9)
	n, err := m.Read(buf)
	if err != nil || n != len(buf) {
		t.Fatalf("Read returned %d, %v", n, err)
	}
	left := int16(binary.LittleEndian.Uint16(buf[0:]))
	right := int16(binary.LittleEndian.Uint16(buf[2:]))
	if left != 10000 || right != 10000 {
		t.Errorf("Expected 10000 on both channels, got %d %d", left, right)
	}
	for i := 4; i < len(buf); i++ {
		if buf[i] != 0 {
			t.Errorf("Expected silence at byte %d, got %d", i, buf[i])
		}
	}
}

func TestMixer_Volume(t *testing.T) {
	m := newTestMixer(t, 1)
	m.SetVolume(0.5)
	m.Push(engine.Sound{Mixed: []float32{0.5}})

	out := make([]int16, 1)
	m.Pull(out)
	if out[0] != 5000 {
		t.Errorf("Expected 5000 at half volume, got %d", out[0])
	}

	// The read position carried past the one-cycle run above.
	m.SetVolume(100)
	m.Push(createMixed(41, 1))
	m.Pull(out)
	if out[0] != math.MaxInt16 {
		t.Errorf("Expected clipping to %d, got %d", math.MaxInt16, out[0])
	}
}

func TestMixer_Close(t *testing.T) {
	m := newTestMixer(t, 1)
	m.Push(createSound(cyclesPerFrame, 5, 5, 5, 5))
	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	m.Push(createSound(cyclesPerFrame, 5, 5, 5, 5))
	if m.Buffered() != 0 {
		t.Errorf("Expected empty queue after close, got %d", m.Buffered())
	}
	out := []int16{1, 1}
	m.Pull(out)
	if out[0] != 0 || out[1] != 0 {
		t.Errorf("Expected silence after close, got %v", out)
	}
}

func TestMixer_ConcurrentPushAndPull(t *testing.T) {
	m := newTestMixer(t, 2)

	var wg sync.WaitGroup
	done := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		buf := make([]byte, 1024)
		for {
			select {
			case <-done:
				return
			default:
				m.Read(buf)
			}
		}
	}()

	for i := 0; i < 120; i++ {
		m.Push(createSound(cyclesPerFrame, uint8(i%16), 3, 4, 5))
	}
	close(done)
	wg.Wait()

	if stats := m.Stats(); stats.Queued == 0 {
		t.Error("Expected samples to be queued")
	}
}

func TestVerify(t *testing.T) {
	want := testSpec(1)

	if err := Verify(want, want); err != nil {
		t.Errorf("Expected identical specs to verify, got %v", err)
	}

	bigger := want
	bigger.BufferSize = 8192
	if err := Verify(want, bigger); err != nil {
		t.Errorf("Expected buffer size difference to be accepted, got %v", err)
	}

	for _, have := range []Spec{
		{SampleRate: 48000, Format: FormatS16LE, Channels: 1},
		{SampleRate: 44100, Format: Format(9), Channels: 1},
		{SampleRate: 44100, Format: FormatS16LE, Channels: 2},
	} {
		err := Verify(want, have)
		if _, ok := err.(*SpecMismatchError); !ok {
			t.Errorf("Expected SpecMismatchError for %s, got %v", have, err)
		}
	}
}
