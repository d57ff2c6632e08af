//go:build sdl
// +build sdl

package graphics

import (
	"encoding/binary"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/veandco/go-sdl2/sdl"

	"famiplay/internal/audio"
	"famiplay/internal/input"
)

var sdlScancodes = map[input.Key]sdl.Scancode{
	input.KeyEscape:     sdl.SCANCODE_ESCAPE,
	input.KeyEnter:      sdl.SCANCODE_RETURN,
	input.KeySpace:      sdl.SCANCODE_SPACE,
	input.KeyTab:        sdl.SCANCODE_TAB,
	input.KeyBackspace:  sdl.SCANCODE_BACKSPACE,
	input.KeyUp:         sdl.SCANCODE_UP,
	input.KeyDown:       sdl.SCANCODE_DOWN,
	input.KeyLeft:       sdl.SCANCODE_LEFT,
	input.KeyRight:      sdl.SCANCODE_RIGHT,
	input.KeyLeftShift:  sdl.SCANCODE_LSHIFT,
	input.KeyRightShift: sdl.SCANCODE_RSHIFT,
	input.KeyLeftCtrl:   sdl.SCANCODE_LCTRL,
	input.KeyRightCtrl:  sdl.SCANCODE_RCTRL,

	input.KeyA: sdl.SCANCODE_A, input.KeyB: sdl.SCANCODE_B, input.KeyC: sdl.SCANCODE_C,
	input.KeyD: sdl.SCANCODE_D, input.KeyE: sdl.SCANCODE_E, input.KeyF: sdl.SCANCODE_F,
	input.KeyG: sdl.SCANCODE_G, input.KeyH: sdl.SCANCODE_H, input.KeyI: sdl.SCANCODE_I,
	input.KeyJ: sdl.SCANCODE_J, input.KeyK: sdl.SCANCODE_K, input.KeyL: sdl.SCANCODE_L,
	input.KeyM: sdl.SCANCODE_M, input.KeyN: sdl.SCANCODE_N, input.KeyO: sdl.SCANCODE_O,
	input.KeyP: sdl.SCANCODE_P, input.KeyQ: sdl.SCANCODE_Q, input.KeyR: sdl.SCANCODE_R,
	input.KeyS: sdl.SCANCODE_S, input.KeyT: sdl.SCANCODE_T, input.KeyU: sdl.SCANCODE_U,
	input.KeyV: sdl.SCANCODE_V, input.KeyW: sdl.SCANCODE_W, input.KeyX: sdl.SCANCODE_X,
	input.KeyY: sdl.SCANCODE_Y, input.KeyZ: sdl.SCANCODE_Z,

	input.Key0: sdl.SCANCODE_0, input.Key1: sdl.SCANCODE_1, input.Key2: sdl.SCANCODE_2,
	input.Key3: sdl.SCANCODE_3, input.Key4: sdl.SCANCODE_4, input.Key5: sdl.SCANCODE_5,
	input.Key6: sdl.SCANCODE_6, input.Key7: sdl.SCANCODE_7, input.Key8: sdl.SCANCODE_8,
	input.Key9: sdl.SCANCODE_9,

	input.KeyF1: sdl.SCANCODE_F1, input.KeyF2: sdl.SCANCODE_F2, input.KeyF3: sdl.SCANCODE_F3,
	input.KeyF4: sdl.SCANCODE_F4, input.KeyF5: sdl.SCANCODE_F5, input.KeyF6: sdl.SCANCODE_F6,
	input.KeyF7: sdl.SCANCODE_F7, input.KeyF8: sdl.SCANCODE_F8, input.KeyF9: sdl.SCANCODE_F9,
	input.KeyF10: sdl.SCANCODE_F10, input.KeyF11: sdl.SCANCODE_F11, input.KeyF12: sdl.SCANCODE_F12,
}

var sdlKeys = func() map[sdl.Scancode]input.Key {
	m := make(map[sdl.Scancode]input.Key, len(sdlScancodes))
	for k, sc := range sdlScancodes {
		m[sc] = k
	}
	return m
}()

// SDLBackend implements the Backend interface on an SDL2 window surface.
// Every call must come from the thread that called Initialize.
type SDLBackend struct {
	initialized bool
	config      Config
	window      *sdl.Window
}

// SDLSurface is the window's own software surface
type SDLSurface struct {
	window  *sdl.Window
	surface *sdl.Surface
	format  PixelFormat
	locked  bool
}

// NewSDLBackend creates a new SDL2 backend
func NewSDLBackend() Backend {
	return &SDLBackend{}
}

// Initialize starts the SDL video, audio and timer subsystems
func (b *SDLBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("SDL backend already initialized")
	}
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO | sdl.INIT_TIMER); err != nil {
		return err
	}

	b.config = config
	b.initialized = true
	return nil
}

// CreateSurface opens a window and takes its surface
func (b *SDLBackend) CreateSurface(title string, width, height int) (Surface, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	var flags uint32 = sdl.WINDOW_SHOWN
	if b.config.Fullscreen {
		flags |= sdl.WINDOW_FULLSCREEN_DESKTOP
	}
	window, err := sdl.CreateWindow(title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(width), int32(height), flags)
	if err != nil {
		return nil, err
	}

	surface, err := window.GetSurface()
	if err != nil {
		window.Destroy()
		return nil, err
	}

	var format PixelFormat
	switch surface.Format.Format {
	case sdl.PIXELFORMAT_RGB888, sdl.PIXELFORMAT_ARGB8888:
		format = FormatXRGB8888
	case sdl.PIXELFORMAT_ABGR8888, sdl.PIXELFORMAT_BGR888:
		format = FormatRGBA8888
	default:
		window.Destroy()
		return nil, fmt.Errorf("unsupported surface format %s", sdl.GetPixelFormatName(uint(surface.Format.Format)))
	}

	b.window = window
	if b.config.Debug {
		log.Printf("[SDL] Window %dx%d, surface %s", width, height, format)
	}
	return &SDLSurface{window: window, surface: surface, format: format}, nil
}

// OpenAudio opens the default device with a queue fed from src
func (b *SDLBackend) OpenAudio(want audio.Spec, src audio.Source) (audio.Device, error) {
	desired := &sdl.AudioSpec{
		Freq:     int32(want.SampleRate),
		Format:   sdl.AUDIO_S16LSB,
		Channels: uint8(want.Channels),
		Samples:  uint16(want.BufferSize),
	}
	var obtained sdl.AudioSpec

	dev, err := sdl.OpenAudioDevice("", false, desired, &obtained, sdl.AUDIO_ALLOW_ANY_CHANGE)
	if err != nil {
		return nil, err
	}

	have := audio.Spec{
		SampleRate: int(obtained.Freq),
		Format:     audio.FormatS16LE,
		Channels:   int(obtained.Channels),
		BufferSize: int(obtained.Samples),
	}
	if obtained.Format != sdl.AUDIO_S16LSB {
		have.Format = audio.Format(-1)
	}
	if err := audio.Verify(want, have); err != nil {
		sdl.CloseAudioDevice(dev)
		return nil, err
	}

	return &sdlAudioDevice{
		id:      dev,
		spec:    have,
		src:     src,
		samples: make([]int16, have.BufferSize*have.Channels),
		done:    make(chan struct{}),
	}, nil
}

// PollEvents drains the SDL event queue
func (b *SDLBackend) PollEvents() []InputEvent {
	var events []InputEvent
	for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
		switch e := ev.(type) {
		case *sdl.QuitEvent:
			events = append(events, InputEvent{Type: InputEventTypeQuit})
		case *sdl.KeyboardEvent:
			if e.Repeat != 0 {
				continue
			}
			key, ok := sdlKeys[e.Keysym.Scancode]
			if !ok {
				continue
			}
			events = append(events, InputEvent{
				Type:    InputEventTypeKey,
				Key:     key,
				Pressed: e.Type == sdl.KEYDOWN,
			})
		}
	}
	return events
}

// IsKeyPressed reads the SDL keyboard state array
func (b *SDLBackend) IsKeyPressed(key input.Key) bool {
	sc, ok := sdlScancodes[key]
	if !ok {
		return false
	}
	state := sdl.GetKeyboardState()
	return int(sc) < len(state) && state[sc] != 0
}

// Ticks returns SDL's millisecond counter
func (b *SDLBackend) Ticks() time.Duration {
	return time.Duration(sdl.GetTicks()) * time.Millisecond
}

// Sleep delays with SDL's millisecond timer
func (b *SDLBackend) Sleep(d time.Duration) {
	sdl.Delay(uint32(d / time.Millisecond))
}

// Run calls loop on the current thread
func (b *SDLBackend) Run(loop func() error) error {
	return loop()
}

// Cleanup closes the window and shuts SDL down
func (b *SDLBackend) Cleanup() error {
	if !b.initialized {
		return nil
	}
	var err error
	if b.window != nil {
		err = b.window.Destroy()
		b.window = nil
	}
	sdl.Quit()
	b.initialized = false
	return err
}

// IsHeadless returns false
func (b *SDLBackend) IsHeadless() bool {
	return false
}

// GetName returns the backend name
func (b *SDLBackend) GetName() string {
	return "SDL2"
}

// SDLSurface implementation

// Lock locks the window surface when SDL requires it
func (s *SDLSurface) Lock() (Pixels, error) {
	if s.locked {
		return Pixels{}, fmt.Errorf("surface already locked")
	}
	if s.surface.MustLock() {
		if err := s.surface.Lock(); err != nil {
			return Pixels{}, err
		}
	}
	s.locked = true
	return Pixels{
		Pix:    s.surface.Pixels(),
		Width:  int(s.surface.W),
		Height: int(s.surface.H),
		Pitch:  int(s.surface.Pitch),
		Format: s.format,
	}, nil
}

// Unlock unlocks the window surface
func (s *SDLSurface) Unlock() {
	if !s.locked {
		return
	}
	if s.surface.MustLock() {
		s.surface.Unlock()
	}
	s.locked = false
}

// Present copies the surface to the screen
func (s *SDLSurface) Present() error {
	return s.window.UpdateSurface()
}

// GetSize returns surface dimensions
func (s *SDLSurface) GetSize() (width, height int) {
	return int(s.surface.W), int(s.surface.H)
}

// Cleanup releases surface resources; the window owns the surface
func (s *SDLSurface) Cleanup() error {
	s.Unlock()
	return nil
}

// sdlAudioDevice keeps about two device buffers queued
type sdlAudioDevice struct {
	id      sdl.AudioDeviceID
	spec    audio.Spec
	src     audio.Source
	samples []int16
	bytes   []byte

	once sync.Once
	done chan struct{}
	wg   sync.WaitGroup
}

func (d *sdlAudioDevice) Spec() audio.Spec { return d.spec }

func (d *sdlAudioDevice) Start() error {
	d.bytes = make([]byte, len(d.samples)*2)
	period := time.Duration(d.spec.BufferSize) * time.Second / time.Duration(d.spec.SampleRate)
	target := uint32(2 * len(d.bytes))

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(period / 2)
		defer ticker.Stop()
		for {
			for sdl.GetQueuedAudioSize(d.id) < target {
				d.src.Pull(d.samples)
				for i, s := range d.samples {
					binary.LittleEndian.PutUint16(d.bytes[i*2:], uint16(s))
				}
				if err := sdl.QueueAudio(d.id, d.bytes); err != nil {
					log.Printf("[SDL] Audio queue failed: %v", err)
					return
				}
			}
			select {
			case <-d.done:
				return
			case <-ticker.C:
			}
		}
	}()

	sdl.PauseAudioDevice(d.id, false)
	return nil
}

func (d *sdlAudioDevice) Close() error {
	d.once.Do(func() {
		close(d.done)
		d.wg.Wait()
		sdl.PauseAudioDevice(d.id, true)
		sdl.ClearQueuedAudio(d.id)
		sdl.CloseAudioDevice(d.id)
	})
	return nil
}
