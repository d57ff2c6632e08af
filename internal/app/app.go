// Package app implements the player: it wires a cartridge, an emulation
// core, an input source and a presentation backend into the frame loop.
package app

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"famiplay/internal/audio"
	"famiplay/internal/cartridge"
	"famiplay/internal/engine"
	"famiplay/internal/graphics"
	"famiplay/internal/input"
)

var (
	// ErrAlreadyRun is returned by a second call to Run.
	ErrAlreadyRun = errors.New("application has already run")
	// ErrNoROM is returned by Run when no cartridge was loaded.
	ErrNoROM = errors.New("no ROM loaded")
)

// Options selects the collaborators of an Application. Nil fields get the
// defaults: the backend named in the config, the fogleman/nes core and live
// keyboard input.
type Options struct {
	Backend graphics.Backend
	Engine  engine.Factory
	Source  input.Source
}

// Application represents the player
type Application struct {
	config  *Config
	backend graphics.Backend
	factory engine.Factory
	source  input.Source
	live    bool

	// Cartridge
	romPath string
	image   *cartridge.Image

	// Acquired during Run, released in reverse order
	surface graphics.Surface
	mixer   *audio.Mixer
	device  audio.Device
	engine  engine.Engine
	blitter *graphics.Blitter
	states  *StateManager

	ran     atomic.Bool
	stopped atomic.Bool

	// Frame statistics
	frames      atomic.Uint64
	timer       *frameTimer
	statsMu     sync.Mutex
	startTicks  time.Duration
	endTicks    time.Duration
	lastReport  time.Duration
	currentFPS  float64
	stateSlot   int
	frameDelay  time.Duration
	reportEvery uint64
}

// ApplicationError represents application-specific errors
type ApplicationError struct {
	Component string
	Operation string
	Err       error
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("application %s error during %s: %v", e.Component, e.Operation, e.Err)
}

func (e *ApplicationError) Unwrap() error {
	return e.Err
}

// NewApplication creates a player from config. The config is validated and
// then owned by the application.
func NewApplication(config *Config, opts Options) (*Application, error) {
	if config == nil {
		config = NewConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, &ApplicationError{Component: "config", Operation: "validate", Err: err}
	}

	app := &Application{
		config:      config,
		backend:     opts.Backend,
		factory:     opts.Engine,
		source:      opts.Source,
		timer:       newFrameTimer(),
		frameDelay:  config.FrameDelay(),
		reportEvery: uint64(config.Emulation.ReportInterval),
	}

	if app.backend == nil {
		backend, err := graphics.CreateBackend(graphics.BackendType(config.Video.Backend))
		if err != nil {
			return nil, &ApplicationError{Component: "graphics", Operation: "create backend", Err: err}
		}
		app.backend = backend
	}
	if app.factory == nil {
		app.factory = engine.ConsoleFactory
	}
	if app.source == nil {
		keys, err := config.KeyMap()
		if err != nil {
			return nil, &ApplicationError{Component: "input", Operation: "build key map", Err: err}
		}
		app.source = input.NewLive(keys, app.backend.IsKeyPressed)
		app.live = true
	}

	return app, nil
}

// LoadROM loads the cartridge to play
func (app *Application) LoadROM(romPath string) error {
	img, err := cartridge.LoadFromFile(romPath)
	if err != nil {
		return &ApplicationError{Component: "cartridge", Operation: "load ROM", Err: err}
	}
	app.romPath = romPath
	app.image = img
	app.debugf("Loaded %s (checksum %08X, %s mirroring)", filepath.Base(romPath), img.Checksum(), img.Mirroring)
	return nil
}

// SetImage installs an already parsed cartridge
func (app *Application) SetImage(name string, img *cartridge.Image) {
	app.romPath = name
	app.image = img
}

// Run initializes every resource, plays frames until the input runs out or
// the user quits, and releases everything again. It may be called once.
func (app *Application) Run() error {
	if !app.ran.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}
	if app.image == nil {
		return ErrNoROM
	}

	if err := app.initialize(); err != nil {
		if cerr := app.teardown(); cerr != nil {
			log.Printf("[APP_ERROR] Cleanup after failed start: %v", cerr)
		}
		return err
	}

	app.debugf("Starting with %s backend, audio %s", app.backend.GetName(), app.device.Spec())
	err := app.backend.Run(app.loop)

	app.statsMu.Lock()
	app.endTicks = app.backend.Ticks()
	app.statsMu.Unlock()

	if cerr := app.teardown(); err == nil {
		err = cerr
	} else if cerr != nil {
		log.Printf("[APP_ERROR] Cleanup error: %v", cerr)
	}
	return err
}

func (app *Application) initialize() error {
	cfg := app.config

	if err := app.backend.Initialize(cfg.GraphicsConfig()); err != nil {
		return asBackendError(app.backend, "initialize", err)
	}

	w, h := cfg.GetWindowResolution()
	surface, err := app.backend.CreateSurface(cfg.Window.Title, w, h)
	if err != nil {
		return asBackendError(app.backend, "create surface", err)
	}
	app.surface = surface

	want := cfg.AudioSpec()
	mixer, err := audio.NewMixer(want, cfg.Emulation.FrameRate)
	if err != nil {
		return &ApplicationError{Component: "audio", Operation: "create mixer", Err: err}
	}
	mixer.SetVolume(cfg.Audio.Volume)
	app.mixer = mixer

	device, err := app.openAudio(want)
	if err != nil {
		return err
	}
	app.device = device
	if err := audio.Verify(want, device.Spec()); err != nil {
		return asBackendError(app.backend, "open audio", err)
	}

	eng, err := app.factory(app.image)
	if err != nil {
		return &ApplicationError{Component: "engine", Operation: "create", Err: err}
	}
	app.engine = eng

	palette, err := cfg.Palette()
	if err != nil {
		return &ApplicationError{Component: "graphics", Operation: "load palette", Err: err}
	}
	var format graphics.PixelFormat
	err = graphics.WithSurfaceLock(app.surface, func(px graphics.Pixels) error {
		format = px.Format
		return nil
	})
	if err != nil {
		return asBackendError(app.backend, "lock surface", err)
	}
	blitter, err := graphics.NewBlitter(palette, format)
	if err != nil {
		return &ApplicationError{Component: "graphics", Operation: "create blitter", Err: err}
	}
	app.blitter = blitter

	if _, ok := eng.(engine.Snapshotter); ok && app.live {
		states, err := NewStateManager(cfg.Paths.SaveStates, cfg.Emulation.SaveStateSlots, app.romPath, app.image.Checksum())
		if err != nil {
			log.Printf("[APP_WARNING] Save states disabled: %v", err)
		} else {
			app.states = states
		}
	}

	if err := app.device.Start(); err != nil {
		return asBackendError(app.backend, "start audio", err)
	}

	ticks := app.backend.Ticks()
	app.statsMu.Lock()
	app.startTicks = ticks
	app.lastReport = ticks
	app.statsMu.Unlock()
	return nil
}

func (app *Application) openAudio(want audio.Spec) (audio.Device, error) {
	cfg := app.config.Audio
	if !cfg.Enabled {
		return audio.NewNullDevice(want), nil
	}

	var (
		device audio.Device
		err    error
	)
	if cfg.Driver == audio.DriverBackend {
		device, err = app.backend.OpenAudio(want, app.mixer)
	} else {
		device, err = audio.Open(cfg.Driver, want, app.mixer, cfg.WavPath)
	}
	if err != nil {
		return nil, asBackendError(app.backend, "open audio", err)
	}
	return device, nil
}

// asBackendError keeps errors the backend already typed and wraps the rest
func asBackendError(b graphics.Backend, op string, err error) error {
	var be *graphics.BackendError
	if errors.As(err, &be) {
		return err
	}
	return &graphics.BackendError{Backend: b.GetName(), Operation: op, Err: err}
}

// loop runs frames until the source is exhausted or a quit is requested
func (app *Application) loop() error {
	for {
		done, err := app.step()
		if err != nil || done {
			return err
		}
		app.backend.Sleep(app.frameDelay)
	}
}

// step runs one iteration of the frame loop and reports whether the loop
// should end.
func (app *Application) step() (bool, error) {
	quit := app.processEvents()
	if app.stopped.Load() {
		quit = true
	}

	frame, ok := app.source.Next()
	if !ok {
		if s, ok := app.source.(interface{ Err() error }); ok && s.Err() != nil {
			return true, &ApplicationError{Component: "input", Operation: "next frame", Err: s.Err()}
		}
		app.debugf("Input exhausted after %d frames", app.frames.Load())
		return true, nil
	}

	switch {
	case frame.Command.Has(input.CommandHardReset):
		app.engine.Reset(engine.HardReset)
	case frame.Command.Has(input.CommandSoftReset):
		app.engine.Reset(engine.SoftReset)
	}
	for port, mask := range frame.Ports {
		app.engine.SetInput(port, mask)
	}

	stepStart := time.Now()
	app.engine.StepFrame()
	app.mixer.Push(app.engine.Sound())
	stepTime := time.Since(stepStart)

	renderStart := time.Now()
	if err := app.render(); err != nil {
		return true, err
	}
	now := time.Now()
	app.timer.record(stepTime, now.Sub(renderStart), now)

	app.reportFPS(app.frames.Add(1))
	return quit, nil
}

// processEvents drains the backend queue and reports whether to quit
func (app *Application) processEvents() bool {
	quit := false
	for _, event := range app.backend.PollEvents() {
		if event.IsQuit() {
			quit = true
			continue
		}
		if event.Type != graphics.InputEventTypeKey || !event.Pressed || app.states == nil {
			continue
		}
		app.handleStateKey(event.Key)
	}
	return quit
}

// handleStateKey implements the save state hotkeys: digits pick the slot,
// F5 saves and F9 loads.
func (app *Application) handleStateKey(key input.Key) {
	switch {
	case key >= input.Key0 && key <= input.Key9:
		slot := int(key - input.Key0)
		if slot < app.states.GetMaxSlots() {
			app.stateSlot = slot
			log.Printf("[APP] Save slot %d selected", slot)
		}
	case key == input.KeyF5:
		if err := app.SaveState(app.stateSlot); err != nil {
			log.Printf("[APP_ERROR] Failed to save state %d: %v", app.stateSlot, err)
		}
	case key == input.KeyF9:
		if err := app.LoadState(app.stateSlot); err != nil {
			log.Printf("[APP_ERROR] Failed to load state %d: %v", app.stateSlot, err)
		}
	}
}

// render blits the current screen into the surface and presents it
func (app *Application) render() error {
	screen := app.engine.Screen()
	scale := app.config.Window.Scale

	var blitErr error
	err := graphics.WithSurfaceLock(app.surface, func(px graphics.Pixels) error {
		blitErr = app.blitter.Blit(screen, px, scale)
		return nil
	})
	if err != nil {
		return asBackendError(app.backend, "lock surface", err)
	}
	if blitErr != nil {
		return &ApplicationError{Component: "graphics", Operation: "blit", Err: blitErr}
	}

	if err := app.surface.Present(); err != nil {
		return asBackendError(app.backend, "present", err)
	}
	return nil
}

// reportFPS logs the frame rate every reportEvery frames
func (app *Application) reportFPS(frames uint64) {
	if app.reportEvery == 0 || frames%app.reportEvery != 0 {
		return
	}

	now := app.backend.Ticks()
	app.statsMu.Lock()
	elapsed := now - app.lastReport
	if elapsed < time.Millisecond {
		elapsed = time.Millisecond
	}
	app.currentFPS = float64(app.reportEvery) / elapsed.Seconds()
	app.lastReport = now
	fps := app.currentFPS
	app.statsMu.Unlock()

	log.Printf("[APP] fps: %.2f", fps)
}

// teardown releases whatever initialize acquired: engine, audio device,
// mixer, blitter, surface and finally the backend. The first error wins.
func (app *Application) teardown() error {
	var first error
	keep := func(what string, err error) {
		if err == nil {
			return
		}
		if first == nil {
			first = fmt.Errorf("%s cleanup: %w", what, err)
			return
		}
		log.Printf("[APP_ERROR] %s cleanup error: %v", what, err)
	}

	if app.engine != nil {
		keep("engine", app.engine.Close())
		app.engine = nil
	}
	if app.device != nil {
		keep("audio device", app.device.Close())
		app.device = nil
	}
	if app.mixer != nil {
		keep("mixer", app.mixer.Close())
	}
	if app.blitter != nil {
		app.blitter.Close()
		app.blitter = nil
	}
	if app.surface != nil {
		keep("surface", app.surface.Cleanup())
		app.surface = nil
	}
	keep("backend", app.backend.Cleanup())
	if closer, ok := app.source.(interface{ Close() }); ok {
		closer.Close()
	}
	return first
}

// Stop asks the loop to end after the current frame. Safe to call from any
// goroutine.
func (app *Application) Stop() {
	app.stopped.Store(true)
}

// SaveState snapshots the running engine into slot
func (app *Application) SaveState(slot int) error {
	if app.states == nil {
		return fmt.Errorf("save states are not available")
	}
	snap := app.engine.(engine.Snapshotter)
	if err := app.states.SaveState(snap, slot, app.frames.Load()); err != nil {
		return err
	}
	log.Printf("[APP] Saved state to slot %d", slot)
	return nil
}

// LoadState restores slot into the running engine
func (app *Application) LoadState(slot int) error {
	if app.states == nil {
		return fmt.Errorf("save states are not available")
	}
	snap := app.engine.(engine.Snapshotter)
	state, err := app.states.LoadState(snap, slot)
	if err != nil {
		return err
	}
	log.Printf("[APP] Loaded slot %d (saved %s)", slot, state.Timestamp.Format("2006-01-02 15:04:05"))
	return nil
}

// Stats returns the statistics of the current or finished run
func (app *Application) Stats() SessionStats {
	s := SessionStats{Frames: app.frames.Load()}

	app.statsMu.Lock()
	end := app.endTicks
	if end == 0 && app.ran.Load() {
		end = app.backend.Ticks()
	}
	if end > app.startTicks {
		s.Uptime = end - app.startTicks
	}
	s.CurrentFPS = app.currentFPS
	app.statsMu.Unlock()

	if s.Uptime > 0 {
		s.AverageFPS = float64(s.Frames) / s.Uptime.Seconds()
	}
	app.timer.fill(&s)
	if app.mixer != nil {
		s.Audio = app.mixer.Stats()
	}
	return s
}

// GetFrameCount returns the number of frames emulated so far
func (app *Application) GetFrameCount() uint64 {
	return app.frames.Load()
}

// GetROMPath returns the loaded cartridge path
func (app *Application) GetROMPath() string {
	return app.romPath
}

// GetConfig returns the configuration
func (app *Application) GetConfig() *Config {
	return app.config
}

// GetBackend returns the presentation backend
func (app *Application) GetBackend() graphics.Backend {
	return app.backend
}

func (app *Application) debugf(format string, args ...interface{}) {
	if app.config.Debug.EnableLogging {
		log.Printf("[APP_DEBUG] "+format, args...)
	}
}
