package input

import "fmt"

// Binding ties one keyboard key to a button on a controller port.
type Binding struct {
	Key    Key
	Port   int
	Button Button
}

// KeyMap is the fixed key→(port, button) table used for live input. It is
// built once at startup and never modified afterwards.
type KeyMap []Binding

// DefaultKeyMap returns the built-in table: everything on port 0, WASD for
// the D-pad, E/Q for Start/Select, X/Z for B/A.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		{Key: KeyD, Port: 0, Button: ButtonRight},
		{Key: KeyA, Port: 0, Button: ButtonLeft},
		{Key: KeyS, Port: 0, Button: ButtonDown},
		{Key: KeyW, Port: 0, Button: ButtonUp},
		{Key: KeyE, Port: 0, Button: ButtonStart},
		{Key: KeyQ, Port: 0, Button: ButtonSelect},
		{Key: KeyX, Port: 0, Button: ButtonB},
		{Key: KeyZ, Port: 0, Button: ButtonA},
	}
}

// NewKeyMap builds a table for one port from button-name→key-name pairs as
// found in configuration files. Empty key names are skipped.
func NewKeyMap(port int, names map[string]string) (KeyMap, error) {
	if port < 0 || port >= Ports {
		return nil, fmt.Errorf("invalid controller port: %d", port)
	}

	var keys KeyMap
	for _, b := range Buttons {
		keyName := names[b.String()]
		if keyName == "" {
			continue
		}
		key, ok := ParseKey(keyName)
		if !ok {
			return nil, fmt.Errorf("unknown key %q for %s on port %d", keyName, b, port)
		}
		keys = append(keys, Binding{Key: key, Port: port, Button: b})
	}
	return keys, nil
}

// Sample returns the masks of both ports given the instantaneous key state.
func (km KeyMap) Sample(pressed func(Key) bool) [Ports]Mask {
	var masks [Ports]Mask
	for _, binding := range km {
		if pressed(binding.Key) {
			masks[binding.Port] = masks[binding.Port].With(binding.Button)
		}
	}
	return masks
}

// Live is a Source reading the keyboard through a key-state query. It never
// runs out and never issues commands.
type Live struct {
	keys    KeyMap
	pressed func(Key) bool
}

// NewLive creates a live keyboard source.
func NewLive(keys KeyMap, pressed func(Key) bool) *Live {
	return &Live{keys: keys, pressed: pressed}
}

// Next samples the current key state.
func (l *Live) Next() (Frame, bool) {
	return Frame{Ports: l.keys.Sample(l.pressed)}, true
}
