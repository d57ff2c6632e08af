// Package input implements controller state handling for the NES.
package input

import "strings"

// Ports is the number of controller ports on the console.
const Ports = 2

// Button represents NES controller buttons
type Button uint8

const (
	ButtonA Button = 1 << iota
	ButtonB
	ButtonSelect
	ButtonStart
	ButtonUp
	ButtonDown
	ButtonLeft
	ButtonRight
)

// Glyphs holds the single-letter name of each button in bit order, as used
// in movie files (T is Start, S is Select).
const Glyphs = "ABSTUDLR"

// Buttons lists every button in bit order.
var Buttons = [8]Button{ButtonA, ButtonB, ButtonSelect, ButtonStart, ButtonUp, ButtonDown, ButtonLeft, ButtonRight}

var buttonNames = map[Button]string{
	ButtonA:      "A",
	ButtonB:      "B",
	ButtonSelect: "Select",
	ButtonStart:  "Start",
	ButtonUp:     "Up",
	ButtonDown:   "Down",
	ButtonLeft:   "Left",
	ButtonRight:  "Right",
}

func (b Button) String() string {
	if name, ok := buttonNames[b]; ok {
		return name
	}
	return "Unknown"
}

// ParseButton returns the button with the given name, ignoring case.
func ParseButton(name string) (Button, bool) {
	for b, n := range buttonNames {
		if strings.EqualFold(n, name) {
			return b, true
		}
	}
	return 0, false
}

// Mask is the state of all eight buttons of one controller, one bit each.
type Mask uint8

// IsPressed reports whether button is set in the mask.
func (m Mask) IsPressed(button Button) bool {
	return m&Mask(button) != 0
}

// With returns the mask with button set.
func (m Mask) With(button Button) Mask {
	return m | Mask(button)
}

// Array returns the mask as booleans in bit order (A, B, Select, Start,
// Up, Down, Left, Right).
func (m Mask) Array() [8]bool {
	var buttons [8]bool
	for i, b := range Buttons {
		buttons[i] = m.IsPressed(b)
	}
	return buttons
}

func (m Mask) String() string {
	var sb strings.Builder
	for i := len(Buttons) - 1; i >= 0; i-- {
		if m.IsPressed(Buttons[i]) {
			sb.WriteByte(Glyphs[i])
		} else {
			sb.WriteByte('.')
		}
	}
	return sb.String()
}

// Command carries console-level actions recorded alongside controller state.
type Command uint32

const (
	CommandSoftReset Command = 1 << 0
	CommandHardReset Command = 1 << 1
)

// Has reports whether c carries the flag.
func (c Command) Has(flag Command) bool {
	return c&flag != 0
}

// Frame is the input applied to the console for one video frame.
type Frame struct {
	Command Command
	Ports   [Ports]Mask
}

// Source supplies one Frame per emulated frame. ok is false once the source
// has nothing more to give; live sources never run out.
type Source interface {
	Next() (frame Frame, ok bool)
}
