// Package engine defines the boundary between the frame loop and an NES
// emulation core, plus an adapter for github.com/fogleman/nes.
package engine

import (
	"famiplay/internal/cartridge"
	"famiplay/internal/input"
)

// Screen dimensions of the NES picture.
const (
	Width  = 256
	Height = 240
)

// FrameBuffer holds one palette index (0-63) per pixel, row major.
type FrameBuffer [Width * Height]uint8

// Sound is the audio produced during one frame. Channel runs carry one raw
// output level per CPU cycle: pulse, triangle and noise in 0-15, DMC in
// 0-127. Cores that only expose their final mix fill Mixed instead, one
// level in [-1, 1] per CPU cycle, and leave the channel runs empty.
type Sound struct {
	Pulse1   []uint8
	Pulse2   []uint8
	Triangle []uint8
	Noise    []uint8
	DMC      []uint8

	Mixed []float32
}

// Len returns the number of CPU cycles covered by s.
func (s Sound) Len() int {
	if len(s.Mixed) > 0 {
		return len(s.Mixed)
	}
	return len(s.Pulse1)
}

// ResetKind selects between the console's reset button and a power cycle.
type ResetKind int

const (
	SoftReset ResetKind = iota
	HardReset
)

func (k ResetKind) String() string {
	if k == HardReset {
		return "hard"
	}
	return "soft"
}

// Engine is an emulation core running one cartridge.
type Engine interface {
	// SetInput sets the buttons held on a controller port (0 or 1) for the
	// following frames.
	SetInput(port int, mask input.Mask)

	// StepFrame advances emulation by exactly one video frame.
	StepFrame()

	// Screen returns the last completed frame. It stays valid until the
	// next StepFrame.
	Screen() *FrameBuffer

	// Sound returns the audio of the last completed frame. It stays valid
	// until the next StepFrame.
	Sound() Sound

	// Reset presses the reset button or power cycles the console.
	Reset(kind ResetKind)

	// Close releases the core.
	Close() error
}

// Factory builds an engine for a cartridge image.
type Factory func(img *cartridge.Image) (Engine, error)

// Snapshotter is implemented by engines that can save and restore their
// complete state.
type Snapshotter interface {
	SaveState(path string) error
	LoadState(path string) error
}
