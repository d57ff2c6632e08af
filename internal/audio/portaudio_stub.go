//go:build !portaudio
// +build !portaudio

package audio

import "errors"

// OpenPortAudio reports that this binary was built without PortAudio.
func OpenPortAudio(want Spec, src Source) (Device, error) {
	return nil, errors.New("portaudio driver not available (build with -tags portaudio)")
}
