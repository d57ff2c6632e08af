//go:build portaudio
// +build portaudio

package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// PortAudioDevice plays the mixer through a PortAudio callback stream.
type PortAudioDevice struct {
	spec   Spec
	stream *portaudio.Stream
}

// OpenPortAudio opens the default output device. The stream callback pulls
// straight from src on PortAudio's thread.
func OpenPortAudio(want Spec, src Source) (Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: %w", err)
	}

	api, err := portaudio.DefaultHostApi()
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("portaudio: %w", err)
	}

	parameters := portaudio.HighLatencyParameters(nil, api.DefaultOutputDevice)
	parameters.Output.Channels = want.Channels
	parameters.SampleRate = float64(want.SampleRate)
	parameters.FramesPerBuffer = want.BufferSize

	stream, err := portaudio.OpenStream(parameters, func(out []int16) {
		src.Pull(out)
	})
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("portaudio: %w", err)
	}

	have := want
	have.SampleRate = int(stream.Info().SampleRate)
	return &PortAudioDevice{spec: have, stream: stream}, nil
}

// Spec returns the negotiated stream layout.
func (d *PortAudioDevice) Spec() Spec {
	return d.spec
}

// Start starts the stream.
func (d *PortAudioDevice) Start() error {
	return d.stream.Start()
}

// Close stops the stream and shuts PortAudio down.
func (d *PortAudioDevice) Close() error {
	d.stream.Stop()
	err := d.stream.Close()
	if terr := portaudio.Terminate(); err == nil {
		err = terr
	}
	return err
}
