// Package config provides configuration management for PuppyAvatar
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/normanking/puppyavatar/internal/avatar3d"
	"github.com/normanking/puppyavatar/internal/breathing"
	"github.com/normanking/puppyavatar/internal/compositor"
	"github.com/normanking/puppyavatar/internal/logging"
	"github.com/normanking/puppyavatar/internal/movement"
)

const (
	EnvPrefix      = "PUPPYAVATAR"
	configName     = "config"
	configType     = "yaml"
	configDirName  = ".puppyavatar"
	configFileName = "config.yaml"
)

// Config holds all application configuration
type Config struct {
	Avatar    AvatarConfig    `mapstructure:"avatar"`
	Breathing BreathingConfig `mapstructure:"breathing"`
	Loop      LoopConfig      `mapstructure:"loop"`
	Stream    StreamConfig    `mapstructure:"stream"`
	Log       logging.Config  `mapstructure:"log"`
}

// AvatarConfig configures behavior smoothing and composition
type AvatarConfig struct {
	Intensity       string            `mapstructure:"intensity"` // subtle, animated, energetic
	Smoothing       float64           `mapstructure:"smoothing"`
	ParamSmoothing  float64           `mapstructure:"param_smoothing"`
	SleepAfter      time.Duration     `mapstructure:"sleep_after"`
	SpeakingTimeout time.Duration     `mapstructure:"speaking_timeout"`
	TypingTimeout   time.Duration     `mapstructure:"typing_timeout"`
	Compositor      compositor.Config `mapstructure:"compositor"`
}

// BreathingConfig configures the simulator and preset overrides
type BreathingConfig struct {
	MaxDeltaTime float64 `mapstructure:"max_delta_time"`
	// Presets patches named presets; unknown names add new presets.
	Presets map[string]breathing.Patch `mapstructure:"presets"`
}

// LoopConfig configures the real-time loop
type LoopConfig struct {
	FPS int `mapstructure:"fps"`
}

// StreamConfig configures the websocket frame stream
type StreamConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Addr       string `mapstructure:"addr"`
	SendBuffer int    `mapstructure:"send_buffer"`
	// FrameEvery broadcasts one frame out of every N ticks.
	FrameEvery int `mapstructure:"frame_every"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	av := avatar3d.DefaultConfig()
	return &Config{
		Avatar: AvatarConfig{
			Intensity:       string(av.Intensity),
			Smoothing:       av.Smoothing,
			ParamSmoothing:  av.ParamSmoothing,
			SleepAfter:      av.SleepAfter,
			SpeakingTimeout: avatar3d.DefaultSpeakingTimeout,
			TypingTimeout:   avatar3d.DefaultTypingTimeout,
			Compositor:      av.Compositor,
		},
		Breathing: BreathingConfig{
			MaxDeltaTime: breathing.DefaultMaxDeltaTime,
			Presets:      map[string]breathing.Patch{},
		},
		Loop: LoopConfig{
			FPS: 60,
		},
		Stream: StreamConfig{
			Enabled:    true,
			Addr:       "127.0.0.1:8765",
			SendBuffer: 32,
			FrameEvery: 2,
		},
		Log: logging.DefaultConfig(),
	}
}

// Settings flattens cfg into dotted viper keys. Durations are written as
// strings so saved files stay readable.
func (c *Config) Settings() map[string]any {
	return map[string]any{
		"avatar.intensity":                           c.Avatar.Intensity,
		"avatar.smoothing":                           c.Avatar.Smoothing,
		"avatar.param_smoothing":                     c.Avatar.ParamSmoothing,
		"avatar.sleep_after":                         c.Avatar.SleepAfter.String(),
		"avatar.speaking_timeout":                    c.Avatar.SpeakingTimeout.String(),
		"avatar.typing_timeout":                      c.Avatar.TypingTimeout.String(),
		"avatar.compositor.base_scale":               c.Avatar.Compositor.BaseScale,
		"avatar.compositor.tilt_smoothing":           c.Avatar.Compositor.TiltSmoothing,
		"avatar.compositor.residual_breath_rotation": c.Avatar.Compositor.ResidualBreathRotation,
		"avatar.compositor.max_delta_time":           c.Avatar.Compositor.MaxDeltaTime,
		"breathing.max_delta_time":                   c.Breathing.MaxDeltaTime,
		"loop.fps":                                   c.Loop.FPS,
		"stream.enabled":                             c.Stream.Enabled,
		"stream.addr":                                c.Stream.Addr,
		"stream.send_buffer":                         c.Stream.SendBuffer,
		"stream.frame_every":                         c.Stream.FrameEvery,
		"log.dir":                                    c.Log.Dir,
		"log.level":                                  string(c.Log.Level),
		"log.console":                                c.Log.Console,
	}
}

// Validate reports configuration a loop cannot run with. Out-of-range
// animation tunables are clamped downstream instead.
func (c *Config) Validate() error {
	if _, err := movement.ParseIntensity(c.Avatar.Intensity); err != nil {
		return fmt.Errorf("avatar.intensity: %w", err)
	}
	if c.Loop.FPS <= 0 || c.Loop.FPS > 240 {
		return fmt.Errorf("loop.fps must be in 1..240, got %d", c.Loop.FPS)
	}
	if c.Stream.Enabled && c.Stream.Addr == "" {
		return errors.New("stream.addr is required when the stream is enabled")
	}
	return nil
}

// PresetTable returns the default presets with the configured overrides
// applied. Viper lower-cases map keys, so names are upper-cased here.
func (c *Config) PresetTable() breathing.Table {
	table := breathing.DefaultTable()
	for name, patch := range c.Breathing.Presets {
		table = table.With(breathing.PresetName(strings.ToUpper(name)), patch)
	}
	return table
}

// AvatarConfig converts to the composition root's configuration.
func (c *Config) AvatarConfig() avatar3d.Config {
	intensity, err := movement.ParseIntensity(c.Avatar.Intensity)
	if err != nil {
		intensity = movement.IntensitySubtle
	}
	return avatar3d.Config{
		Intensity:      intensity,
		Smoothing:      c.Avatar.Smoothing,
		ParamSmoothing: c.Avatar.ParamSmoothing,
		MaxDeltaTime:   c.Breathing.MaxDeltaTime,
		SleepAfter:     c.Avatar.SleepAfter,
		Compositor:     c.Avatar.Compositor,
		Presets:        c.PresetTable(),
	}
}

// FrameInterval is the real-time loop period.
func (c *Config) FrameInterval() time.Duration {
	if c.Loop.FPS <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.Loop.FPS)
}

// Loader reads configuration from file and environment
type Loader struct {
	v    *viper.Viper
	path string
}

// NewLoader creates a loader for path. An empty path searches
// ~/.puppyavatar and the working directory for config.yaml.
func NewLoader(path string) *Loader {
	return &Loader{v: viper.New(), path: path}
}

// Load reads configuration from file and environment. A missing file is
// not an error when searching the default locations.
func (l *Loader) Load() (*Config, error) {
	for k, val := range DefaultConfig().Settings() {
		l.v.SetDefault(k, val)
	}

	if l.path != "" {
		l.v.SetConfigFile(l.path)
	} else {
		l.v.SetConfigName(configName)
		l.v.SetConfigType(configType)
		if dir, err := GetConfigDir(); err == nil {
			l.v.AddConfigPath(dir)
		}
		l.v.AddConfigPath(".")
	}

	// Environment variable overrides
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	cfg := DefaultConfig()
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigFile returns the file in use, or "" when running on defaults
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// Watch calls onChange with the re-decoded configuration whenever the file
// changes. It returns false when there is no file to watch.
func (l *Loader) Watch(onChange func(*Config, error)) bool {
	if l.v.ConfigFileUsed() == "" {
		return false
	}
	if _, err := os.Stat(l.v.ConfigFileUsed()); err != nil {
		return false
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		onChange(l.decode())
	})
	l.v.WatchConfig()
	return true
}

// Save writes the configuration as YAML to path, creating directories
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	v := viper.New()
	for k, val := range cfg.Settings() {
		v.Set(k, val)
	}
	if len(cfg.Breathing.Presets) > 0 {
		v.Set("breathing.presets", cfg.Breathing.Presets)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, configDirName), nil
}

// DefaultPath returns ~/.puppyavatar/config.yaml
func DefaultPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}
