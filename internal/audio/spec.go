// Package audio turns per-frame emulator sound into a PCM stream and hands it
// to output devices that pull it on their own schedule.
package audio

import (
	"fmt"
	"io"
)

// Format is a PCM sample encoding.
type Format int

const (
	FormatS16LE Format = iota + 1
)

func (f Format) String() string {
	switch f {
	case FormatS16LE:
		return "s16le"
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// Spec describes an output stream.
type Spec struct {
	SampleRate int
	Format     Format
	Channels   int
	// BufferSize is the device buffer in sample frames.
	BufferSize int
}

func (s Spec) String() string {
	return fmt.Sprintf("%d Hz %s x%d (buffer %d)", s.SampleRate, s.Format, s.Channels, s.BufferSize)
}

// FrameBytes is the size in bytes of one sample frame.
func (s Spec) FrameBytes() int {
	return 2 * s.Channels
}

// SpecMismatchError reports a device that opened with a different stream
// layout than requested.
type SpecMismatchError struct {
	Want Spec
	Have Spec
}

func (e *SpecMismatchError) Error() string {
	return fmt.Sprintf("audio spec changed: requested %s, device opened %s", e.Want, e.Have)
}

// Verify checks that the negotiated spec matches the requested rate, format
// and channel count exactly. The buffer size may differ.
func Verify(want, have Spec) error {
	if want.SampleRate != have.SampleRate || want.Format != have.Format || want.Channels != have.Channels {
		return &SpecMismatchError{Want: want, Have: have}
	}
	return nil
}

// Source is the pull side of the mixer as seen by devices.
type Source interface {
	io.Reader
	// Pull fills out with interleaved samples, padding with silence.
	Pull(out []int16)
}

// Device is an opened audio output pulling from a Source.
type Device interface {
	// Spec returns the negotiated stream layout.
	Spec() Spec
	// Start begins pulling.
	Start() error
	// Close stops pulling and releases the device.
	Close() error
}
