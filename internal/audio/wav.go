package audio

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WavDevice records the mixer output to a WAV file in real time, pulling
// one device buffer per buffer period like a sound card would.
type WavDevice struct {
	spec Spec
	src  Source
	file *os.File
	enc  *wav.Encoder

	samples []int16
	buf     *goaudio.IntBuffer

	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	closed  bool
}

// OpenWav creates path and prepares a 16-bit PCM encoder for want.
func OpenWav(path string, want Spec, src Source) (*WavDevice, error) {
	if want.Format != FormatS16LE {
		return nil, fmt.Errorf("wav: unsupported format %s", want.Format)
	}
	if want.BufferSize <= 0 {
		return nil, fmt.Errorf("wav: invalid buffer size %d", want.BufferSize)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("wav: %w", err)
	}

	n := want.BufferSize * want.Channels
	return &WavDevice{
		spec:    want,
		src:     src,
		file:    f,
		enc:     wav.NewEncoder(f, want.SampleRate, 16, want.Channels, 1),
		samples: make([]int16, n),
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: want.Channels, SampleRate: want.SampleRate},
			Data:           make([]int, n),
			SourceBitDepth: 16,
		},
		done: make(chan struct{}),
	}, nil
}

// Spec returns the stream layout.
func (d *WavDevice) Spec() Spec {
	return d.spec
}

// Start begins pulling on a ticker goroutine.
func (d *WavDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started || d.closed {
		return nil
	}
	d.started = true

	period := time.Duration(d.spec.BufferSize) * time.Second / time.Duration(d.spec.SampleRate)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-d.done:
				return
			case <-ticker.C:
				if err := d.writeChunk(); err != nil {
					log.Printf("[AUDIO] WAV recording stopped: %v", err)
					return
				}
			}
		}
	}()
	return nil
}

// writeChunk pulls one device buffer and appends it to the file.
func (d *WavDevice) writeChunk() error {
	d.src.Pull(d.samples)
	for i, s := range d.samples {
		d.buf.Data[i] = int(s)
	}
	return d.enc.Write(d.buf)
}

// Close stops recording and finalizes the WAV header.
func (d *WavDevice) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	close(d.done)
	d.wg.Wait()

	err := d.enc.Close()
	if ferr := d.file.Close(); err == nil {
		err = ferr
	}
	return err
}
