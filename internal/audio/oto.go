package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// OtoDevice plays the mixer through an oto v3 context.
type OtoDevice struct {
	spec   Spec
	ctx    *oto.Context
	player *oto.Player

	mutex   sync.Mutex
	started bool
}

// OpenOto creates an oto context for want and a player reading src. oto
// converts internally, so the negotiated spec is the requested one.
func OpenOto(want Spec, src Source) (*OtoDevice, error) {
	if want.Format != FormatS16LE {
		return nil, fmt.Errorf("oto: unsupported format %s", want.Format)
	}

	op := &oto.NewContextOptions{
		SampleRate:   want.SampleRate,
		ChannelCount: want.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   time.Duration(want.BufferSize) * time.Second / time.Duration(want.SampleRate),
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("oto: %w", err)
	}
	<-ready

	player := ctx.NewPlayer(src)
	player.SetBufferSize(want.BufferSize * want.FrameBytes())

	return &OtoDevice{spec: want, ctx: ctx, player: player}, nil
}

// Spec returns the stream layout.
func (d *OtoDevice) Spec() Spec {
	return d.spec
}

// Start begins playback.
func (d *OtoDevice) Start() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if !d.started {
		d.player.Play()
		d.started = true
	}
	return nil
}

// Close stops the player and suspends the context. oto allows one context
// per process, so it is not torn down.
func (d *OtoDevice) Close() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.player == nil {
		return nil
	}
	err := d.player.Close()
	d.player = nil
	d.started = false
	if serr := d.ctx.Suspend(); err == nil {
		err = serr
	}
	return err
}
