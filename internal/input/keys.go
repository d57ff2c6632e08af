package input

import (
	"strconv"
	"strings"
)

// Key represents keyboard keys
type Key int

const (
	KeyUnknown Key = iota
	KeyEscape
	KeyEnter
	KeySpace
	KeyTab
	KeyBackspace
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyLeftShift
	KeyRightShift
	KeyLeftCtrl
	KeyRightCtrl

	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ

	Key0
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9

	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12

	keyCount
)

var keyNames = map[Key]string{
	KeyEscape:     "Escape",
	KeyEnter:      "Return",
	KeySpace:      "Space",
	KeyTab:        "Tab",
	KeyBackspace:  "Backspace",
	KeyUp:         "Up",
	KeyDown:       "Down",
	KeyLeft:       "Left",
	KeyRight:      "Right",
	KeyLeftShift:  "LShift",
	KeyRightShift: "RShift",
	KeyLeftCtrl:   "LCtrl",
	KeyRightCtrl:  "RCtrl",
}

func init() {
	for k := KeyA; k <= KeyZ; k++ {
		keyNames[k] = string(rune('A' + int(k-KeyA)))
	}
	for k := Key0; k <= Key9; k++ {
		keyNames[k] = string(rune('0' + int(k-Key0)))
	}
	for k := KeyF1; k <= KeyF12; k++ {
		keyNames[k] = "F" + strconv.Itoa(int(k-KeyF1)+1)
	}
}

func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return "Unknown"
}

// ParseKey returns the key with the given name ("W", "Return", "F5"),
// ignoring case. "Enter" is accepted for Return.
func ParseKey(name string) (Key, bool) {
	if strings.EqualFold(name, "Enter") {
		return KeyEnter, true
	}
	for k, n := range keyNames {
		if strings.EqualFold(n, name) {
			return k, true
		}
	}
	return KeyUnknown, false
}

// Keys returns every known key.
func Keys() []Key {
	keys := make([]Key, 0, int(keyCount)-1)
	for k := KeyEscape; k < keyCount; k++ {
		keys = append(keys, k)
	}
	return keys
}
