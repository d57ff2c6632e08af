package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"famiplay/internal/engine"
)

// CPUFrequency is the NTSC CPU clock; emulator sound runs at one level per
// CPU cycle.
const CPUFrequency = 6.0 * 39375000.0 / 11.0 / 12.0

// Channel weights of the linear mix approximation and the output scale.
const (
	pulseWeight    = 0.00752
	triangleWeight = 0.00851
	noiseWeight    = 0.00494
	dmcWeight      = 0.00335

	amplitude = 20000
)

// queueFrames is how many video frames of audio the queue holds.
const queueFrames = 16

// MixerStats counts queue incidents since creation.
type MixerStats struct {
	Queued     int
	Overflows  int
	Underflows int
}

// Mixer resamples per-frame emulator sound to the output rate and queues it
// for an audio device. Push is called by the frame loop and Pull/Read by the
// device's own goroutine; the mixer's lock is the only synchronization
// between them.
type Mixer struct {
	spec   Spec
	step   float64
	volume float64

	mu     sync.Mutex
	ring   []int16
	head   int
	count  int
	carry  float64
	stats  MixerStats
	closed bool
}

// NewMixer creates a mixer producing spec-shaped output for a frame loop
// running at fps.
func NewMixer(spec Spec, fps int) (*Mixer, error) {
	if spec.SampleRate <= 0 || fps <= 0 {
		return nil, fmt.Errorf("invalid mixer rate: %d Hz at %d fps", spec.SampleRate, fps)
	}
	if spec.Format != FormatS16LE {
		return nil, fmt.Errorf("unsupported mixer format: %s", spec.Format)
	}
	if spec.Channels < 1 {
		return nil, fmt.Errorf("invalid channel count: %d", spec.Channels)
	}

	return &Mixer{
		spec:   spec,
		step:   CPUFrequency / float64(spec.SampleRate),
		volume: 1.0,
		ring:   make([]int16, queueFrames*(spec.SampleRate/fps)),
	}, nil
}

// SetVolume scales every following sample; 1 keeps the reference level.
func (m *Mixer) SetVolume(volume float64) {
	m.mu.Lock()
	m.volume = math.Max(0, volume)
	m.mu.Unlock()
}

// Spec returns the output layout.
func (m *Mixer) Spec() Spec {
	return m.spec
}

// Push resamples one frame of sound into the queue. The fractional read
// position carries into the next frame. When the queue is full the rest of
// the frame is dropped and the position restarts at zero.
func (m *Mixer) Push(s engine.Sound) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	sample := m.channelSample(s)
	n := channelLen(s)
	if len(s.Mixed) > 0 {
		sample = m.mixedSample(s)
		n = len(s.Mixed)
	}

	pos := m.carry
	for pos < float64(n) {
		if m.count == len(m.ring) {
			m.stats.Overflows++
			m.carry = 0
			return
		}
		m.ring[(m.head+m.count)%len(m.ring)] = sample(int(pos))
		m.count++
		m.stats.Queued++
		pos += m.step
	}
	m.carry = pos - float64(n)
}

func channelLen(s engine.Sound) int {
	n := len(s.Pulse1)
	for _, ch := range [][]uint8{s.Pulse2, s.Triangle, s.Noise, s.DMC} {
		if len(ch) < n {
			n = len(ch)
		}
	}
	return n
}

func (m *Mixer) channelSample(s engine.Sound) func(int) int16 {
	return func(i int) int16 {
		mixed := pulseWeight*(float64(s.Pulse1[i])+float64(s.Pulse2[i])) +
			triangleWeight*float64(s.Triangle[i]) +
			noiseWeight*float64(s.Noise[i]) +
			dmcWeight*float64(s.DMC[i])
		return m.scale(amplitude * (mixed - 0.5))
	}
}

func (m *Mixer) mixedSample(s engine.Sound) func(int) int16 {
	return func(i int) int16 {
		return m.scale(amplitude * float64(s.Mixed[i]))
	}
}

func (m *Mixer) scale(v float64) int16 {
	v *= m.volume
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// pop removes the oldest sample; the caller holds the lock.
func (m *Mixer) pop() int16 {
	if m.count == 0 || m.closed {
		m.stats.Underflows++
		return 0
	}
	v := m.ring[m.head]
	m.head = (m.head + 1) % len(m.ring)
	m.count--
	return v
}

// Pull fills out with interleaved samples. The mono stream is copied to
// every channel; missing samples are silence.
func (m *Mixer) Pull(out []int16) {
	channels := m.spec.Channels
	frames := len(out) / channels

	m.mu.Lock()
	for f := 0; f < frames; f++ {
		v := m.pop()
		for ch := 0; ch < channels; ch++ {
			out[f*channels+ch] = v
		}
	}
	m.mu.Unlock()

	for i := frames * channels; i < len(out); i++ {
		out[i] = 0
	}
}

// Read implements io.Reader over the little-endian byte stream. It never
// blocks and always fills p.
func (m *Mixer) Read(p []byte) (int, error) {
	channels := m.spec.Channels
	frameBytes := m.spec.FrameBytes()
	frames := len(p) / frameBytes

	m.mu.Lock()
	for f := 0; f < frames; f++ {
		v := uint16(m.pop())
		for ch := 0; ch < channels; ch++ {
			binary.LittleEndian.PutUint16(p[f*frameBytes+2*ch:], v)
		}
	}
	m.mu.Unlock()

	for i := frames * frameBytes; i < len(p); i++ {
		p[i] = 0
	}
	return len(p), nil
}

// Buffered returns the number of queued sample frames.
func (m *Mixer) Buffered() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

// Stats returns the queue counters.
func (m *Mixer) Stats() MixerStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Close empties the queue. Later pushes are ignored and pulls return silence.
func (m *Mixer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.count = 0
	m.head = 0
	return nil
}
