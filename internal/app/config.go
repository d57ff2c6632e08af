// Package app provides configuration management for the player.
package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"famiplay/internal/audio"
	"famiplay/internal/engine"
	"famiplay/internal/graphics"
	"famiplay/internal/input"
)

// Config holds all application configuration
type Config struct {
	Window    WindowConfig    `json:"window"`
	Video     VideoConfig     `json:"video"`
	Audio     AudioConfig     `json:"audio"`
	Input     InputConfig     `json:"input"`
	Emulation EmulationConfig `json:"emulation"`
	Debug     DebugConfig     `json:"debug"`
	Paths     PathsConfig     `json:"paths"`

	// Internal state
	configPath string
	loaded     bool
}

// WindowConfig contains window-related configuration
type WindowConfig struct {
	Title      string `json:"title"`
	Scale      int    `json:"scale"` // NES resolution multiplier
	Fullscreen bool   `json:"fullscreen"`
}

// VideoConfig contains video rendering configuration
type VideoConfig struct {
	Backend    string  `json:"backend"` // "ebitengine", "sdl", "terminal", "headless"
	VSync      bool    `json:"vsync"`
	Filter     string  `json:"filter"`  // "nearest", "linear"
	Palette    string  `json:"palette"` // optional .pal file
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Saturation float64 `json:"saturation"`
	DumpFrames []int   `json:"dump_frames"` // headless only, 1-based
}

// AudioConfig contains audio configuration
type AudioConfig struct {
	Enabled    bool    `json:"enabled"`
	Driver     string  `json:"driver"` // "backend", "oto", "portaudio", "wav", "none"
	SampleRate int     `json:"sample_rate"`
	BufferSize int     `json:"buffer_size"`
	Channels   int     `json:"channels"`
	Volume     float64 `json:"volume"`
	WavPath    string  `json:"wav_path"`
}

// InputConfig contains input configuration
type InputConfig struct {
	Player1Keys KeyMapping `json:"player1_keys"`
	Player2Keys KeyMapping `json:"player2_keys"`
}

// KeyMapping represents keyboard key mappings for NES controller
type KeyMapping struct {
	Up     string `json:"up"`
	Down   string `json:"down"`
	Left   string `json:"left"`
	Right  string `json:"right"`
	A      string `json:"a"`
	B      string `json:"b"`
	Start  string `json:"start"`
	Select string `json:"select"`
}

// EmulationConfig contains frame loop settings
type EmulationConfig struct {
	FrameRate      int `json:"frame_rate"`      // mixer frames per second
	FrameDelayMS   int `json:"frame_delay_ms"`  // sleep between frames
	ReportInterval int `json:"report_interval"` // frames between fps reports
	SaveStateSlots int `json:"save_state_slots"`
}

// DebugConfig contains debugging and development options
type DebugConfig struct {
	EnableLogging bool   `json:"enable_logging"`
	StatsView     bool   `json:"stats_view"`
	StatsViewAddr string `json:"stats_view_addr"`
}

// PathsConfig contains file and directory paths
type PathsConfig struct {
	SaveStates  string `json:"save_states"`
	Screenshots string `json:"screenshots"`
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Window: WindowConfig{
			Title: "famiplay",
			Scale: 2, // 512x480 (256x240 * 2)
		},
		Video: VideoConfig{
			Backend:    string(graphics.BackendEbitengine),
			VSync:      true,
			Filter:     "nearest",
			Brightness: 1.0,
			Contrast:   1.0,
			Saturation: 1.0,
		},
		Audio: AudioConfig{
			Enabled:    true,
			Driver:     audio.DriverBackend,
			SampleRate: 44100,
			BufferSize: 4096,
			Channels:   2,
			Volume:     1.0,
		},
		Input: InputConfig{
			Player1Keys: KeyMapping{
				Up:     "W",
				Down:   "S",
				Left:   "A",
				Right:  "D",
				A:      "Z",
				B:      "X",
				Start:  "E",
				Select: "Q",
			},
		},
		Emulation: EmulationConfig{
			FrameRate:      60,
			FrameDelayMS:   7,
			ReportInterval: 1000,
			SaveStateSlots: 10,
		},
		Debug: DebugConfig{
			StatsViewAddr: "localhost:18066",
		},
		Paths: PathsConfig{
			SaveStates:  "./states",
			Screenshots: "./screenshots",
		},
	}
}

// LoadFromFile loads configuration from a JSON file. A missing file is
// created with the current values.
func (c *Config) LoadFromFile(path string) error {
	c.configPath = path

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return c.SaveToFile(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := c.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	c.loaded = true
	return nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	c.configPath = path
	return nil
}

// Save saves the configuration to the current config file
func (c *Config) Save() error {
	if c.configPath == "" {
		return fmt.Errorf("no config file path set")
	}
	return c.SaveToFile(c.configPath)
}

// validate clamps out-of-range values to their defaults and rejects values
// that cannot be repaired
func (c *Config) validate() error {
	if c.Window.Scale <= 0 {
		c.Window.Scale = 1
	}
	if c.Window.Scale > 8 {
		c.Window.Scale = 8
	}

	if c.Video.Brightness < 0.1 || c.Video.Brightness > 3.0 {
		c.Video.Brightness = 1.0
	}
	if c.Video.Contrast < 0.1 || c.Video.Contrast > 3.0 {
		c.Video.Contrast = 1.0
	}
	if c.Video.Saturation < 0.0 || c.Video.Saturation > 3.0 {
		c.Video.Saturation = 1.0
	}
	switch graphics.BackendType(c.Video.Backend) {
	case "":
		c.Video.Backend = string(graphics.BackendEbitengine)
	case graphics.BackendEbitengine, graphics.BackendSDL, graphics.BackendTerminal, graphics.BackendHeadless:
	default:
		return &ConfigError{Field: "video.backend", Value: c.Video.Backend, Err: fmt.Errorf("unknown backend")}
	}

	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = 44100
	}
	if c.Audio.BufferSize <= 0 {
		c.Audio.BufferSize = 4096
	}
	if c.Audio.Volume < 0.0 || c.Audio.Volume > 1.0 {
		c.Audio.Volume = 1.0
	}
	if c.Audio.Channels != 1 && c.Audio.Channels != 2 {
		c.Audio.Channels = 2
	}
	switch c.Audio.Driver {
	case "":
		c.Audio.Driver = audio.DriverBackend
	case audio.DriverBackend, audio.DriverOto, audio.DriverPortAudio, audio.DriverNone:
	case audio.DriverWav:
		if c.Audio.WavPath == "" {
			return &ConfigError{Field: "audio.wav_path", Value: "", Err: fmt.Errorf("wav driver needs an output path")}
		}
	default:
		return &ConfigError{Field: "audio.driver", Value: c.Audio.Driver, Err: fmt.Errorf("unknown driver")}
	}

	if c.Emulation.FrameRate <= 0 {
		c.Emulation.FrameRate = 60
	}
	if c.Emulation.FrameDelayMS < 0 {
		c.Emulation.FrameDelayMS = 7
	}
	if c.Emulation.ReportInterval <= 0 {
		c.Emulation.ReportInterval = 1000
	}
	if c.Emulation.SaveStateSlots <= 0 {
		c.Emulation.SaveStateSlots = 10
	}

	if _, err := c.KeyMap(); err != nil {
		return err
	}
	return nil
}

// Validate checks the configuration after command line overrides
func (c *Config) Validate() error {
	return c.validate()
}

// names returns the mapping keyed by button name
func (m KeyMapping) names() map[string]string {
	return map[string]string{
		input.ButtonUp.String():     m.Up,
		input.ButtonDown.String():   m.Down,
		input.ButtonLeft.String():   m.Left,
		input.ButtonRight.String():  m.Right,
		input.ButtonA.String():      m.A,
		input.ButtonB.String():      m.B,
		input.ButtonStart.String():  m.Start,
		input.ButtonSelect.String(): m.Select,
	}
}

// KeyMap builds the live key table for both players
func (c *Config) KeyMap() (input.KeyMap, error) {
	p1, err := input.NewKeyMap(0, c.Input.Player1Keys.names())
	if err != nil {
		return nil, &ConfigError{Field: "input.player1_keys", Value: c.Input.Player1Keys, Err: err}
	}
	p2, err := input.NewKeyMap(1, c.Input.Player2Keys.names())
	if err != nil {
		return nil, &ConfigError{Field: "input.player2_keys", Value: c.Input.Player2Keys, Err: err}
	}
	return append(p1, p2...), nil
}

// AudioSpec returns the stream layout requested from the audio device
func (c *Config) AudioSpec() audio.Spec {
	return audio.Spec{
		SampleRate: c.Audio.SampleRate,
		Format:     audio.FormatS16LE,
		Channels:   c.Audio.Channels,
		BufferSize: c.Audio.BufferSize,
	}
}

// GraphicsConfig returns the backend configuration
func (c *Config) GraphicsConfig() graphics.Config {
	return graphics.Config{
		WindowTitle: c.Window.Title,
		Scale:       c.Window.Scale,
		Fullscreen:  c.Window.Fullscreen,
		VSync:       c.Video.VSync,
		Filter:      c.Video.Filter,
		Headless:    c.Video.Backend == string(graphics.BackendHeadless),
		DumpFrames:  c.Video.DumpFrames,
		DumpDir:     c.Paths.Screenshots,
		Debug:       c.Debug.EnableLogging,
	}
}

// Palette returns the display palette with the picture controls applied
func (c *Config) Palette() (graphics.Palette, error) {
	palette := graphics.DefaultPalette()
	if c.Video.Palette != "" {
		var err error
		if palette, err = graphics.LoadPalette(c.Video.Palette); err != nil {
			return palette, &ConfigError{Field: "video.palette", Value: c.Video.Palette, Err: err}
		}
	}

	adjust := graphics.ColorAdjust{
		Brightness: c.Video.Brightness,
		Contrast:   c.Video.Contrast,
		Saturation: c.Video.Saturation,
	}
	return adjust.Apply(palette), nil
}

// FrameDelay returns the sleep between two frames
func (c *Config) FrameDelay() time.Duration {
	return time.Duration(c.Emulation.FrameDelayMS) * time.Millisecond
}

// GetNESResolution returns the native NES resolution
func (c *Config) GetNESResolution() (int, int) {
	return engine.Width, engine.Height
}

// GetWindowResolution returns the window resolution based on scale
func (c *Config) GetWindowResolution() (int, int) {
	nesWidth, nesHeight := c.GetNESResolution()
	return nesWidth * c.Window.Scale, nesHeight * c.Window.Scale
}

// IsLoaded returns whether the configuration was loaded from file
func (c *Config) IsLoaded() bool {
	return c.loaded
}

// GetConfigPath returns the path to the config file
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	data, err := json.Marshal(c)
	if err != nil {
		return NewConfig()
	}

	clone := &Config{}
	if err := json.Unmarshal(data, clone); err != nil {
		return NewConfig()
	}

	clone.configPath = c.configPath
	clone.loaded = c.loaded
	return clone
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() string {
	return "./config/famiplay.json"
}

// ConfigError represents configuration-related errors
type ConfigError struct {
	Field string
	Value interface{}
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field '%s' with value '%v': %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
