// Package main implements the famiplay executable.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"famiplay/internal/app"
	"famiplay/internal/audio"
	"famiplay/internal/engine"
	"famiplay/internal/input"
	"famiplay/internal/movie"
	"famiplay/internal/statsview"
	"famiplay/internal/version"
)

func init() {
	// Windowing libraries require the main goroutine to stay on the main
	// OS thread.
	runtime.LockOSThread()
}

// options holds the parsed command line
type options struct {
	rom        string
	moviePath  string
	scriptPath string
	configPath string
	backend    string
	audio      string
	wavPath    string
	scale      int
	debug      bool
	trace      bool
	help       bool
	version    bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("famiplay", flag.ContinueOnError)
	flags.SetOutput(stderr)
	opts := &options{}
	flags.StringVar(&opts.moviePath, "movie", "", "Play back an FM2 movie instead of reading the keyboard")
	flags.StringVar(&opts.scriptPath, "script", "", "Drive input from a Lua script")
	flags.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flags.StringVar(&opts.backend, "backend", "", "Presentation backend: ebitengine, sdl, terminal or headless")
	flags.StringVar(&opts.audio, "audio", "", "Audio driver: backend, oto, portaudio, wav or none")
	flags.StringVar(&opts.wavPath, "wav", "", "Record audio to a WAV file (implies -audio wav)")
	flags.IntVar(&opts.scale, "scale", 0, "Window scale factor (1-8)")
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	flags.BoolVar(&opts.trace, "trace", false, "Print every CPU instruction to standard output")
	flags.BoolVar(&opts.help, "help", false, "Show help message")
	flags.BoolVar(&opts.version, "version", false, "Show version information")
	flags.Usage = func() { printUsage(stderr, flags) }

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if opts.help {
		printUsage(stdout, flags)
		return 0
	}
	if opts.version {
		version.PrintBuildInfo(stdout)
		return 0
	}
	if flags.NArg() != 1 {
		printUsage(stderr, flags)
		return 2
	}
	opts.rom = flags.Arg(0)
	if opts.moviePath != "" && opts.scriptPath != "" {
		fmt.Fprintln(stderr, "-movie and -script cannot be used together")
		return 2
	}

	if err := play(opts, stdout); err != nil {
		fmt.Fprintf(stderr, "famiplay: %v\n", err)
		return 1
	}
	return 0
}

// play builds the application from opts and runs it to completion
func play(opts *options, stdout io.Writer) error {
	config, err := loadConfig(opts)
	if err != nil {
		return err
	}

	source, closeSource, err := openSource(opts, config.Debug.EnableLogging)
	if err != nil {
		return err
	}
	defer closeSource()

	appOpts := app.Options{Source: source}
	if opts.trace {
		appOpts.Engine = engine.TracingConsoleFactory
	}
	application, err := app.NewApplication(config, appOpts)
	if err != nil {
		return err
	}
	if err := application.LoadROM(opts.rom); err != nil {
		return err
	}

	if config.Debug.StatsView {
		if err := statsview.Launch(config.Debug.StatsViewAddr, stdout); err != nil {
			log.Printf("[APP_WARNING] %v", err)
		}
	}

	stop := setupGracefulShutdown(application)
	defer stop()

	w, h := config.GetWindowResolution()
	fmt.Fprintf(stdout, "famiplay %s: %s\n", version.GetVersion(), filepath.Base(opts.rom))
	fmt.Fprintf(stdout, "   Window: %dx%d (Scale: %dx), backend %s\n", w, h, config.Window.Scale, application.GetBackend().GetName())
	fmt.Fprintf(stdout, "   Audio: %s, driver %s, %s\n", enabledString(config.Audio.Enabled), config.Audio.Driver, config.AudioSpec())

	if err := application.Run(); err != nil {
		return fmt.Errorf("application run failed: %w", err)
	}

	stats := application.Stats()
	fmt.Fprintf(stdout, "Session Statistics:\n")
	fmt.Fprintf(stdout, "   Frames rendered: %d\n", stats.Frames)
	fmt.Fprintf(stdout, "   Session time: %v\n", stats.Uptime.Round(time.Millisecond))
	fmt.Fprintf(stdout, "   Average FPS: %.1f\n", stats.AverageFPS)
	fmt.Fprintf(stdout, "   Audio: %d samples queued, %d overflows, %d underflows\n",
		stats.Audio.Queued, stats.Audio.Overflows, stats.Audio.Underflows)
	return nil
}

// loadConfig reads the config file and applies command line overrides
func loadConfig(opts *options) (*app.Config, error) {
	config := app.NewConfig()

	path := opts.configPath
	if path == "" {
		path = app.GetDefaultConfigPath()
	}
	if err := config.LoadFromFile(path); err != nil {
		if opts.configPath != "" {
			return nil, err
		}
		log.Printf("[APP_WARNING] Could not load config from %s, using defaults: %v", path, err)
	}

	if opts.backend != "" {
		config.Video.Backend = opts.backend
	}
	if opts.audio != "" {
		config.Audio.Driver = opts.audio
		config.Audio.Enabled = opts.audio != audio.DriverNone
	}
	if opts.wavPath != "" {
		config.Audio.Driver = audio.DriverWav
		config.Audio.WavPath = opts.wavPath
		config.Audio.Enabled = true
	}
	if opts.scale > 0 {
		config.Window.Scale = opts.scale
	}
	if opts.debug {
		config.Debug.EnableLogging = true
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// openSource returns the movie or script input, or nil for live keys
func openSource(opts *options, debug bool) (input.Source, func(), error) {
	noop := func() {}

	switch {
	case opts.moviePath != "":
		records, header, err := movie.ParseFile(opts.moviePath)
		if err != nil {
			return nil, noop, err
		}
		if debug {
			log.Printf("[APP_DEBUG] Movie %s: %d records, header %v", opts.moviePath, len(records), header)
		}
		return movie.NewPlayback(records), noop, nil

	case opts.scriptPath != "":
		script, err := input.LoadScript(opts.scriptPath)
		if err != nil {
			return nil, noop, err
		}
		return script, script.Close, nil
	}
	return nil, noop, nil
}

// setupGracefulShutdown stops the application on SIGINT or SIGTERM
func setupGracefulShutdown(application *app.Application) func() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case <-c:
			fmt.Println("\nInterrupt received, shutting down gracefully...")
			application.Stop()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(c)
		close(done)
	}
}

// enabledString returns "enabled" or "disabled" based on boolean value
func enabledString(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func printUsage(w io.Writer, flags *flag.FlagSet) {
	fmt.Fprintln(w, "famiplay - NES movie player")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  famiplay [options] <rom.nes>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "OPTIONS:")
	flags.SetOutput(w)
	flags.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "EXAMPLES:")
	fmt.Fprintln(w, "  famiplay game.nes                           # Play with the keyboard")
	fmt.Fprintln(w, "  famiplay -movie run.fm2 game.nes            # Play back a movie")
	fmt.Fprintln(w, "  famiplay -backend headless -audio none \\")
	fmt.Fprintln(w, "           -movie run.fm2 game.nes            # Replay without a window")
	fmt.Fprintln(w, "  famiplay -backend terminal game.nes         # Play inside the terminal")
	fmt.Fprintln(w, "  famiplay -wav out.wav -movie run.fm2 game.nes")
	fmt.Fprintln(w, "  famiplay -trace -backend headless -movie run.fm2 game.nes > cpu.log")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "CONTROLS (Default):")
	fmt.Fprintln(w, "  Player 1:")
	fmt.Fprintln(w, "    W / A / S / D     - D-Pad")
	fmt.Fprintln(w, "    Z                 - A Button")
	fmt.Fprintln(w, "    X                 - B Button")
	fmt.Fprintln(w, "    E                 - Start")
	fmt.Fprintln(w, "    Q                 - Select")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Special Keys:")
	fmt.Fprintln(w, "    Escape            - Quit")
	fmt.Fprintln(w, "    0-9               - Select save slot")
	fmt.Fprintln(w, "    F5 / F9           - Save / load state")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "CONFIGURATION:")
	fmt.Fprintf(w, "  Config file: %s\n", app.GetDefaultConfigPath())
	fmt.Fprintln(w, "  Save States: ./states/")
	fmt.Fprintln(w, "  Screenshots: ./screenshots/")
}
