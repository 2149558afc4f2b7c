// Package config loads the fingerspell YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/fingerspell/internal/gesture"
	"github.com/ayusman/fingerspell/internal/hand"
	"github.com/ayusman/fingerspell/internal/receiver"
)

// Config represents the complete fingerspell configuration
type Config struct {
	DataDir    string           `yaml:"data_dir"`
	LogLevel   string           `yaml:"log_level"` // debug, info, warn, error
	Receiver   ReceiverConfig   `yaml:"receiver"`
	Projection ProjectionConfig `yaml:"projection"`
	Lesson     LessonConfig     `yaml:"lesson"`
	Loop       LoopConfig       `yaml:"loop"`
	Server     ServerConfig     `yaml:"server"`
	Store      StoreConfig      `yaml:"store"`
	Tracker    TrackerConfig    `yaml:"tracker"`
	Plugins    PluginsConfig    `yaml:"plugins"`
	Tray       TrayConfig       `yaml:"tray"`
	Overlay    OverlayConfig    `yaml:"overlay"`
}

// ReceiverConfig contains UDP ingestion settings
type ReceiverConfig struct {
	Port          int `yaml:"port"`
	ReadTimeoutMS int `yaml:"read_timeout_ms"`
	BufferSize    int `yaml:"buffer_size"`
}

// ProjectionConfig holds the tracker-to-scene remap constants
type ProjectionConfig struct {
	K float64 `yaml:"k"`
	S float64 `yaml:"s"`
}

// LessonConfig selects the lesson plan and tunes its timing and distances
type LessonConfig struct {
	Name               string             `yaml:"name"`
	HoldThresholdS     *float64           `yaml:"hold_threshold_s,omitempty"`  // plan default when unset
	FeedbackWindowS    *float64           `yaml:"feedback_window_s,omitempty"` // plan default when unset
	ThresholdOverrides map[string]float64 `yaml:"threshold_overrides_s"`       // gesture -> seconds
	TouchRadius        float64            `yaml:"touch_radius"`                // scene units
	Distances          map[string]float64 `yaml:"distances"`                   // gesture -> within/apart distance
}

// LoopConfig contains evaluation loop settings
type LoopConfig struct {
	TickRateHz float64 `yaml:"tick_rate_hz"`
	FrameTTLMS int     `yaml:"frame_ttl_ms"` // older payloads count as no hands
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Addr   string `yaml:"addr"`
	WebDir string `yaml:"web_dir"`
}

// StoreConfig contains the sqlite database location
type StoreConfig struct {
	Path string `yaml:"path"`
}

// TrackerConfig describes how to launch the hand tracker process
type TrackerConfig struct {
	AutoStart bool     `yaml:"auto_start"`
	Command   string   `yaml:"command"`
	Args      []string `yaml:"args"`
	Dir       string   `yaml:"dir"`
}

// PluginsConfig contains cue plugin settings
type PluginsConfig struct {
	Dir       string `yaml:"dir"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// TrayConfig toggles the menu bar icon
type TrayConfig struct {
	Enabled bool `yaml:"enabled"`
}

// OverlayConfig toggles the preview window
type OverlayConfig struct {
	Enabled bool `yaml:"enabled"`
	Width   int  `yaml:"width"`
	Height  int  `yaml:"height"`
}

// Defaults
const (
	DefaultTickRateHz = 60
	DefaultFrameTTLMS = 500
	DefaultAddr       = "127.0.0.1:8080"
	DefaultPluginMS   = 5000
	DefaultOverlayW   = 640
	DefaultOverlayH   = 480
)

// DefaultDataDir returns ~/.fingerspell, or .fingerspell when the home
// directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fingerspell"
	}
	return filepath.Join(home, ".fingerspell")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDataDir(), "config.yaml")
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir:  DefaultDataDir(),
		LogLevel: "info",
		Receiver: ReceiverConfig{
			Port:          receiver.DefaultPort,
			ReadTimeoutMS: int(receiver.DefaultReadTimeout / time.Millisecond),
			BufferSize:    receiver.DefaultBufferSize,
		},
		Projection: ProjectionConfig{K: hand.DefaultOffset, S: hand.DefaultScale},
		Lesson: LessonConfig{
			Name:        gesture.PlanAlphabet,
			TouchRadius: gesture.DefaultTouch,
		},
		Loop:    LoopConfig{TickRateHz: DefaultTickRateHz, FrameTTLMS: DefaultFrameTTLMS},
		Server:  ServerConfig{Addr: DefaultAddr},
		Plugins: PluginsConfig{TimeoutMS: DefaultPluginMS},
		Overlay: OverlayConfig{Width: DefaultOverlayW, Height: DefaultOverlayH},
	}
}

// Load reads a YAML configuration file over the defaults. Invalid values are
// replaced by their defaults and reported as warnings.
func Load(path string) (Config, []string, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), nil, fmt.Errorf("failed to parse config: %w", err)
	}

	warnings := cfg.Validate()
	return cfg, warnings, nil
}

// Save writes cfg to path as YAML, creating parent directories.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Validate resets out-of-range values to their defaults and returns one
// warning per reset.
func (c *Config) Validate() []string {
	def := Default()
	var warnings []string
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		warn("log_level %q is not one of debug, info, warn, error; using %s", c.LogLevel, def.LogLevel)
		c.LogLevel = def.LogLevel
	}

	if c.Receiver.Port < 0 || c.Receiver.Port > 65535 {
		warn("receiver.port %d out of range; using %d", c.Receiver.Port, def.Receiver.Port)
		c.Receiver.Port = def.Receiver.Port
	}
	if c.Receiver.ReadTimeoutMS <= 0 {
		warn("receiver.read_timeout_ms must be positive; using %d", def.Receiver.ReadTimeoutMS)
		c.Receiver.ReadTimeoutMS = def.Receiver.ReadTimeoutMS
	}
	if c.Receiver.BufferSize <= 0 {
		warn("receiver.buffer_size must be positive; using %d", def.Receiver.BufferSize)
		c.Receiver.BufferSize = def.Receiver.BufferSize
	}

	if c.Projection.S == 0 {
		warn("projection.s must be non-zero; using %v", def.Projection.S)
		c.Projection.S = def.Projection.S
	}

	if c.Lesson.Name == "" {
		warn("lesson.name is empty; using %s", def.Lesson.Name)
		c.Lesson.Name = def.Lesson.Name
	}
	if c.Lesson.HoldThresholdS != nil && *c.Lesson.HoldThresholdS < 0 {
		warn("lesson.hold_threshold_s is negative; using the plan default")
		c.Lesson.HoldThresholdS = nil
	}
	if c.Lesson.FeedbackWindowS != nil && *c.Lesson.FeedbackWindowS < 0 {
		warn("lesson.feedback_window_s is negative; using the plan default")
		c.Lesson.FeedbackWindowS = nil
	}
	for name, s := range c.Lesson.ThresholdOverrides {
		if s < 0 {
			warn("lesson.threshold_overrides_s[%s] is negative; ignoring", name)
			delete(c.Lesson.ThresholdOverrides, name)
		}
	}
	if c.Lesson.TouchRadius <= 0 {
		warn("lesson.touch_radius must be positive; using %v", def.Lesson.TouchRadius)
		c.Lesson.TouchRadius = def.Lesson.TouchRadius
	}
	for name, d := range c.Lesson.Distances {
		if d <= 0 {
			warn("lesson.distances[%s] must be positive; ignoring", name)
			delete(c.Lesson.Distances, name)
		}
	}

	if c.Loop.TickRateHz <= 0 {
		warn("loop.tick_rate_hz must be positive; using %v", def.Loop.TickRateHz)
		c.Loop.TickRateHz = def.Loop.TickRateHz
	}
	if c.Loop.FrameTTLMS < 0 {
		warn("loop.frame_ttl_ms is negative; using %d", def.Loop.FrameTTLMS)
		c.Loop.FrameTTLMS = def.Loop.FrameTTLMS
	}

	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Plugins.TimeoutMS <= 0 {
		warn("plugins.timeout_ms must be positive; using %d", def.Plugins.TimeoutMS)
		c.Plugins.TimeoutMS = def.Plugins.TimeoutMS
	}
	if c.Tracker.AutoStart && c.Tracker.Command == "" {
		warn("tracker.auto_start is set without tracker.command; the tracker script will be discovered")
	}
	if c.Overlay.Width <= 0 || c.Overlay.Height <= 0 {
		c.Overlay.Width, c.Overlay.Height = def.Overlay.Width, def.Overlay.Height
	}

	return warnings
}

// StorePath returns the database path, defaulting into DataDir.
func (c Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return filepath.Join(c.DataDir, "fingerspell.db")
}

// PluginDir returns the plugin directory, defaulting into DataDir.
func (c Config) PluginDir() string {
	if c.Plugins.Dir != "" {
		return c.Plugins.Dir
	}
	return filepath.Join(c.DataDir, "plugins")
}

// Projector returns the configured coordinate projector.
func (c Config) Projector() hand.Projector {
	return hand.Projector{K: c.Projection.K, S: c.Projection.S}
}

// ReadTimeout returns the receiver read deadline.
func (c Config) ReadTimeout() time.Duration {
	return time.Duration(c.Receiver.ReadTimeoutMS) * time.Millisecond
}

// TickInterval returns the evaluation loop period.
func (c Config) TickInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.Loop.TickRateHz)
}

// FrameTTL returns how long a payload stays current.
func (c Config) FrameTTL() time.Duration {
	return time.Duration(c.Loop.FrameTTLMS) * time.Millisecond
}

// PluginTimeout returns the cue plugin execution timeout.
func (c Config) PluginTimeout() time.Duration {
	return time.Duration(c.Plugins.TimeoutMS) * time.Millisecond
}

// Params returns the classifier parameters.
func (c LessonConfig) Params() gesture.Params {
	return gesture.Params{Touch: c.TouchRadius}
}

// Timing applies the configured overrides on top of a plan's timing.
func (c LessonConfig) Timing(base gesture.Timing) gesture.Timing {
	out := gesture.Timing{
		Hold:      base.Hold,
		Feedback:  base.Feedback,
		Overrides: make(map[string]time.Duration, len(base.Overrides)+len(c.ThresholdOverrides)),
	}
	for k, v := range base.Overrides {
		out.Overrides[k] = v
	}
	if c.HoldThresholdS != nil {
		out.Hold = seconds(*c.HoldThresholdS)
	}
	if c.FeedbackWindowS != nil {
		out.Feedback = seconds(*c.FeedbackWindowS)
	}
	for k, v := range c.ThresholdOverrides {
		out.Overrides[k] = seconds(v)
	}
	return out
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
