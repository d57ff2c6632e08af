package audio

import "fmt"

// Driver names accepted by Open.
const (
	DriverBackend   = "backend"
	DriverOto       = "oto"
	DriverPortAudio = "portaudio"
	DriverWav       = "wav"
	DriverNone      = "none"
)

// Open opens a standalone driver. DriverBackend is not handled here: the
// presentation backend opens its own device. path is only used by DriverWav.
func Open(driver string, want Spec, src Source, path string) (Device, error) {
	switch driver {
	case DriverOto:
		d, err := OpenOto(want, src)
		if err != nil {
			return nil, err
		}
		return d, nil
	case DriverPortAudio:
		return OpenPortAudio(want, src)
	case DriverWav:
		if path == "" {
			return nil, fmt.Errorf("wav driver needs an output path")
		}
		d, err := OpenWav(path, want, src)
		if err != nil {
			return nil, err
		}
		return d, nil
	case DriverNone:
		return NewNullDevice(want), nil
	}
	return nil, fmt.Errorf("unknown audio driver %q", driver)
}

// NullDevice accepts a stream and never pulls from it.
type NullDevice struct {
	spec Spec
}

// NewNullDevice returns a silent device reporting spec unchanged.
func NewNullDevice(spec Spec) *NullDevice {
	return &NullDevice{spec: spec}
}

func (d *NullDevice) Spec() Spec   { return d.spec }
func (d *NullDevice) Start() error { return nil }
func (d *NullDevice) Close() error { return nil }
