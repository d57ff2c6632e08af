//go:build !headless
// +build !headless

package graphics

import (
	"fmt"
	"image/color"
	"log"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	ebitenaudio "github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"famiplay/internal/audio"
	"famiplay/internal/input"
)

var ebitenKeys = map[input.Key]ebiten.Key{
	input.KeyEscape:     ebiten.KeyEscape,
	input.KeyEnter:      ebiten.KeyEnter,
	input.KeySpace:      ebiten.KeySpace,
	input.KeyTab:        ebiten.KeyTab,
	input.KeyBackspace:  ebiten.KeyBackspace,
	input.KeyUp:         ebiten.KeyArrowUp,
	input.KeyDown:       ebiten.KeyArrowDown,
	input.KeyLeft:       ebiten.KeyArrowLeft,
	input.KeyRight:      ebiten.KeyArrowRight,
	input.KeyLeftShift:  ebiten.KeyShiftLeft,
	input.KeyRightShift: ebiten.KeyShiftRight,
	input.KeyLeftCtrl:   ebiten.KeyControlLeft,
	input.KeyRightCtrl:  ebiten.KeyControlRight,

	input.KeyA: ebiten.KeyA, input.KeyB: ebiten.KeyB, input.KeyC: ebiten.KeyC,
	input.KeyD: ebiten.KeyD, input.KeyE: ebiten.KeyE, input.KeyF: ebiten.KeyF,
	input.KeyG: ebiten.KeyG, input.KeyH: ebiten.KeyH, input.KeyI: ebiten.KeyI,
	input.KeyJ: ebiten.KeyJ, input.KeyK: ebiten.KeyK, input.KeyL: ebiten.KeyL,
	input.KeyM: ebiten.KeyM, input.KeyN: ebiten.KeyN, input.KeyO: ebiten.KeyO,
	input.KeyP: ebiten.KeyP, input.KeyQ: ebiten.KeyQ, input.KeyR: ebiten.KeyR,
	input.KeyS: ebiten.KeyS, input.KeyT: ebiten.KeyT, input.KeyU: ebiten.KeyU,
	input.KeyV: ebiten.KeyV, input.KeyW: ebiten.KeyW, input.KeyX: ebiten.KeyX,
	input.KeyY: ebiten.KeyY, input.KeyZ: ebiten.KeyZ,

	input.Key0: ebiten.KeyDigit0, input.Key1: ebiten.KeyDigit1, input.Key2: ebiten.KeyDigit2,
	input.Key3: ebiten.KeyDigit3, input.Key4: ebiten.KeyDigit4, input.Key5: ebiten.KeyDigit5,
	input.Key6: ebiten.KeyDigit6, input.Key7: ebiten.KeyDigit7, input.Key8: ebiten.KeyDigit8,
	input.Key9: ebiten.KeyDigit9,

	input.KeyF1: ebiten.KeyF1, input.KeyF2: ebiten.KeyF2, input.KeyF3: ebiten.KeyF3,
	input.KeyF4: ebiten.KeyF4, input.KeyF5: ebiten.KeyF5, input.KeyF6: ebiten.KeyF6,
	input.KeyF7: ebiten.KeyF7, input.KeyF8: ebiten.KeyF8, input.KeyF9: ebiten.KeyF9,
	input.KeyF10: ebiten.KeyF10, input.KeyF11: ebiten.KeyF11, input.KeyF12: ebiten.KeyF12,
}

// EbitengineBackend implements the Backend interface using Ebitengine.
// Ebitengine owns the main thread, so Run drives the frame loop on its own
// goroutine and the game's Update feeds it key state and events.
type EbitengineBackend struct {
	initialized bool
	config      Config
	start       time.Time
	game        *EbitengineGame

	mu     sync.Mutex
	keys   map[input.Key]bool
	events []InputEvent

	loopDone chan error
	loopErr  error
}

// EbitengineSurface is the frame memory the loop draws into; Draw uploads it
// to the screen image whenever a new frame was presented.
type EbitengineSurface struct {
	mu     sync.Mutex
	pix    []byte
	width  int
	height int
	dirty  bool
}

// EbitengineGame implements ebiten.Game for the frame loop
type EbitengineGame struct {
	backend      *EbitengineBackend
	surface      *EbitengineSurface
	frameImage   *ebiten.Image
	windowWidth  int
	windowHeight int
	drawCount    int
}

// NewEbitengineBackend creates a new Ebitengine backend
func NewEbitengineBackend() Backend {
	return &EbitengineBackend{keys: make(map[input.Key]bool)}
}

// Initialize initializes the Ebitengine backend
func (b *EbitengineBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("Ebitengine backend already initialized")
	}

	b.config = config
	b.start = time.Now()
	b.initialized = true
	return nil
}

// CreateSurface configures the window and allocates the frame memory
func (b *EbitengineBackend) CreateSurface(title string, width, height int) (Surface, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}
	if b.config.Headless {
		return nil, fmt.Errorf("cannot create window in headless mode")
	}
	if b.game != nil {
		return nil, fmt.Errorf("surface already created")
	}

	surface := &EbitengineSurface{
		pix:    make([]byte, width*height*4),
		width:  width,
		height: height,
	}
	b.game = &EbitengineGame{
		backend:      b,
		surface:      surface,
		frameImage:   ebiten.NewImage(width, height),
		windowWidth:  width,
		windowHeight: height,
	}

	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowClosingHandled(true)
	ebiten.SetVsyncEnabled(b.config.VSync)
	if b.config.Fullscreen {
		ebiten.SetFullscreen(true)
	}

	return surface, nil
}

// OpenAudio plays src through Ebitengine's audio context. The context always
// mixes 16-bit stereo.
func (b *EbitengineBackend) OpenAudio(want audio.Spec, src audio.Source) (audio.Device, error) {
	ctx := ebitenaudio.CurrentContext()
	if ctx == nil {
		ctx = ebitenaudio.NewContext(want.SampleRate)
	}

	have := audio.Spec{
		SampleRate: ctx.SampleRate(),
		Format:     audio.FormatS16LE,
		Channels:   2,
		BufferSize: want.BufferSize,
	}
	if err := audio.Verify(want, have); err != nil {
		return nil, err
	}

	player, err := ctx.NewPlayer(src)
	if err != nil {
		return nil, err
	}
	player.SetBufferSize(time.Duration(want.BufferSize) * time.Second / time.Duration(want.SampleRate))

	return &ebitenAudioDevice{spec: have, player: player}, nil
}

// PollEvents drains the events gathered by Update
func (b *EbitengineBackend) PollEvents() []InputEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	events := b.events
	b.events = nil
	return events
}

// IsKeyPressed reports key state as of the last Update
func (b *EbitengineBackend) IsKeyPressed(key input.Key) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.keys[key]
}

// Ticks returns the time since Initialize
func (b *EbitengineBackend) Ticks() time.Duration {
	return time.Since(b.start)
}

// Sleep pauses the loop goroutine
func (b *EbitengineBackend) Sleep(d time.Duration) {
	time.Sleep(d)
}

// Run starts loop on a goroutine and hands the main thread to Ebitengine
// until loop returns or the game fails.
func (b *EbitengineBackend) Run(loop func() error) error {
	if b.game == nil {
		return fmt.Errorf("game not initialized")
	}

	b.loopDone = make(chan error, 1)
	go func() {
		b.loopDone <- loop()
	}()

	err := ebiten.RunGame(b.game)

	b.mu.Lock()
	finished := b.loopDone == nil
	b.mu.Unlock()
	if !finished {
		// The game stopped on its own; ask the loop to quit and wait for it.
		b.mu.Lock()
		b.events = append(b.events, InputEvent{Type: InputEventTypeQuit})
		b.mu.Unlock()
		b.loopErr = <-b.loopDone
	}

	if err != nil {
		return err
	}
	return b.loopErr
}

// Cleanup releases all Ebitengine resources
func (b *EbitengineBackend) Cleanup() error {
	b.initialized = false
	b.game = nil
	return nil
}

// IsHeadless returns true if running in headless mode
func (b *EbitengineBackend) IsHeadless() bool {
	return b.config.Headless
}

// GetName returns the backend name
func (b *EbitengineBackend) GetName() string {
	return "Ebitengine"
}

// EbitengineSurface implementation

// Lock hands out the frame memory. Draw waits until Unlock.
func (s *EbitengineSurface) Lock() (Pixels, error) {
	s.mu.Lock()
	return Pixels{
		Pix:    s.pix,
		Width:  s.width,
		Height: s.height,
		Pitch:  s.width * 4,
		Format: FormatRGBA8888,
	}, nil
}

// Unlock releases the frame memory
func (s *EbitengineSurface) Unlock() {
	s.mu.Unlock()
}

// Present marks the frame for upload on the next Draw
func (s *EbitengineSurface) Present() error {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
	return nil
}

// GetSize returns surface dimensions
func (s *EbitengineSurface) GetSize() (width, height int) {
	return s.width, s.height
}

// Cleanup releases surface resources
func (s *EbitengineSurface) Cleanup() error {
	return nil
}

// EbitengineGame implementation

// Update implements ebiten.Game.Update
func (g *EbitengineGame) Update() error {
	g.processInput()

	b := g.backend
	select {
	case err := <-b.loopDone:
		b.mu.Lock()
		b.loopErr = err
		b.loopDone = nil
		b.mu.Unlock()
		return ebiten.Termination
	default:
		return nil
	}
}

// Draw implements ebiten.Game.Draw
func (g *EbitengineGame) Draw(screen *ebiten.Image) {
	s := g.surface
	s.mu.Lock()
	if s.dirty {
		g.frameImage.WritePixels(s.pix)
		s.dirty = false
	}
	s.mu.Unlock()

	screen.Fill(color.RGBA{R: 0, G: 0, B: 0, A: 255})

	// Scale to fit the window while maintaining aspect ratio
	scaleX := float64(g.windowWidth) / float64(s.width)
	scaleY := float64(g.windowHeight) / float64(s.height)
	scale := scaleX
	if scaleY < scaleX {
		scale = scaleY
	}

	offsetX := (float64(g.windowWidth) - float64(s.width)*scale) / 2
	offsetY := (float64(g.windowHeight) - float64(s.height)*scale) / 2

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(offsetX, offsetY)
	if g.backend.config.Filter == "linear" {
		op.Filter = ebiten.FilterLinear
	}
	screen.DrawImage(g.frameImage, op)

	g.drawCount++
	if g.backend.config.Debug && g.drawCount%1800 == 0 {
		log.Printf("[Ebitengine] Drawing frame %d scaled %.2fx at offset (%.1f,%.1f)",
			g.drawCount, scale, offsetX, offsetY)
	}
}

// Layout implements ebiten.Game.Layout
func (g *EbitengineGame) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	g.windowWidth = outsideWidth
	g.windowHeight = outsideHeight
	return outsideWidth, outsideHeight
}

// processInput snapshots key state and turns transitions into events
func (g *EbitengineGame) processInput() {
	b := g.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	for key, ebitenKey := range ebitenKeys {
		b.keys[key] = ebiten.IsKeyPressed(ebitenKey)
		if inpututil.IsKeyJustPressed(ebitenKey) {
			b.events = append(b.events, InputEvent{Type: InputEventTypeKey, Key: key, Pressed: true})
		} else if inpututil.IsKeyJustReleased(ebitenKey) {
			b.events = append(b.events, InputEvent{Type: InputEventTypeKey, Key: key, Pressed: false})
		}
	}

	if ebiten.IsWindowBeingClosed() {
		b.events = append(b.events, InputEvent{Type: InputEventTypeQuit})
	}
}

type ebitenAudioDevice struct {
	spec   audio.Spec
	player *ebitenaudio.Player
}

func (d *ebitenAudioDevice) Spec() audio.Spec { return d.spec }

func (d *ebitenAudioDevice) Start() error {
	d.player.Play()
	return nil
}

func (d *ebitenAudioDevice) Close() error {
	d.player.Pause()
	return d.player.Close()
}
