// Package config provides configuration management for the overlay renderer
// and host hook.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"overlay/internal/hotkey"
)

// ErrInvalidParams is returned by Validate for unusable settings.
var ErrInvalidParams = errors.New("config: invalid parameters")

// EnvPrefix prefixes environment overrides, e.g. OVERLAY_OVERLAY_WIDTH.
const EnvPrefix = "OVERLAY"

// Config represents the application configuration.
type Config struct {
	Overlay OverlayConfig `mapstructure:"overlay" yaml:"overlay"`
	Pipe    PipeConfig    `mapstructure:"pipe" yaml:"pipe"`
	Hotkey  HotkeyConfig  `mapstructure:"hotkey" yaml:"hotkey"`
	Input   InputConfig   `mapstructure:"input" yaml:"input"`
	Relay   RelayConfig   `mapstructure:"relay" yaml:"relay"`
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
}

// OverlayConfig describes the renderer instance.
type OverlayConfig struct {
	// Width and Height are the render surface size in pixels. Both are required.
	Width  uint32 `mapstructure:"width" yaml:"width"`
	Height uint32 `mapstructure:"height" yaml:"height"`

	// Flag distinguishes overlay instances; it is appended to the pipe name.
	Flag uint32 `mapstructure:"flag" yaml:"flag"`

	// Plugins lists the modules to load. Empty loads every built-in module.
	Plugins []string `mapstructure:"plugins" yaml:"plugins"`

	// Tray shows a tray menu for the renderer.
	Tray bool `mapstructure:"tray" yaml:"tray"`
}

// PipeConfig configures the overlay channel.
type PipeConfig struct {
	Prefix    string `mapstructure:"prefix" yaml:"prefix"`
	QueueSize int    `mapstructure:"queue_size" yaml:"queue_size"`
}

// HotkeyConfig configures the overlay toggle hotkey.
type HotkeyConfig struct {
	// Combo is a two-key combination such as "Shift+Tab".
	Combo    string        `mapstructure:"combo" yaml:"combo"`
	Cooldown time.Duration `mapstructure:"cooldown" yaml:"cooldown"`
}

// InputConfig configures the hook engine.
type InputConfig struct {
	Windowed   bool  `mapstructure:"windowed" yaml:"windowed"`
	ReferenceX int32 `mapstructure:"reference_x" yaml:"reference_x"`
	ReferenceY int32 `mapstructure:"reference_y" yaml:"reference_y"`
}

// RelayConfig configures the event pumps.
type RelayConfig struct {
	IdleInterval time.Duration `mapstructure:"idle_interval" yaml:"idle_interval"`
}

// LoggerConfig configures zap output.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// SetDefaults initializes default values for every key.
func SetDefaults(v *viper.Viper) {
	// -- Overlay --
	v.SetDefault("overlay.width", 0)
	v.SetDefault("overlay.height", 0)
	v.SetDefault("overlay.flag", 0)
	v.SetDefault("overlay.plugins", []string{})
	v.SetDefault("overlay.tray", false)

	// -- Pipe --
	v.SetDefault("pipe.prefix", "overlay_event_pipe_")
	v.SetDefault("pipe.queue_size", 256)

	// -- Hotkey --
	v.SetDefault("hotkey.combo", hotkey.DefaultCombo)
	v.SetDefault("hotkey.cooldown", hotkey.DefaultCooldown)

	// -- Input --
	v.SetDefault("input.windowed", true)
	v.SetDefault("input.reference_x", 100)
	v.SetDefault("input.reference_y", 100)

	// -- Relay --
	v.SetDefault("relay.idle_interval", 30*time.Millisecond)

	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "overlay")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
}

// NewDefaultConfig returns a Config holding only the defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper decodes v without validating the result. Callers that
// need a renderer surface call Validate.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings the renderer cannot start without.
func (c *Config) Validate() error {
	if c.Overlay.Width == 0 || c.Overlay.Height == 0 {
		return fmt.Errorf("%w: overlay.width and overlay.height must be positive (got %dx%d)",
			ErrInvalidParams, c.Overlay.Width, c.Overlay.Height)
	}
	return c.ValidateHost()
}

// ValidateHost checks the settings the host hook uses.
func (c *Config) ValidateHost() error {
	if c.Pipe.Prefix == "" {
		return fmt.Errorf("%w: pipe.prefix must not be empty", ErrInvalidParams)
	}
	if c.Pipe.QueueSize < 0 {
		return fmt.Errorf("%w: pipe.queue_size must not be negative", ErrInvalidParams)
	}
	if _, err := hotkey.ParseCombo(c.Hotkey.Combo); err != nil {
		return fmt.Errorf("%w: hotkey.combo: %v", ErrInvalidParams, err)
	}
	if c.Relay.IdleInterval <= 0 {
		return fmt.Errorf("%w: relay.idle_interval must be positive", ErrInvalidParams)
	}
	return nil
}

// Manager handles loading and saving configuration.
type Manager struct {
	mu         sync.Mutex
	v          *viper.Viper
	configPath string
	config     *Config
	onChanged  func()
}

// NewManager creates a manager for path, or for the per-user default file
// when path is empty.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		var err error
		if path, err = getConfigPath(); err != nil {
			return nil, err
		}
	}

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Manager{
		v:          v,
		configPath: path,
		config:     NewDefaultConfig(),
	}, nil
}

// getConfigPath returns the path to the configuration file.
func getConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "overlay")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, "overlay")
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config", "overlay")
	}

	return filepath.Join(configDir, "config.yaml"), nil
}

// Path returns the configuration file location.
func (m *Manager) Path() string {
	return m.configPath
}

// Viper exposes the underlying viper instance so command-line flags can be
// bound to keys.
func (m *Manager) Viper() *viper.Viper {
	return m.v
}

// Load reads the configuration file, if any, and applies environment
// overrides on top of the defaults.
func (m *Manager) Load() error {
	m.mu.Lock()

	if err := m.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			m.mu.Unlock()
			return fmt.Errorf("config: read %s: %w", m.configPath, err)
		}
	}

	cfg, err := NewConfigFromViper(m.v)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.config = cfg
	cb := m.onChanged
	m.mu.Unlock()

	if cb != nil {
		cb()
	}
	return nil
}

// Save writes the current settings to the configuration file.
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		return err
	}
	return m.v.WriteConfigAs(m.configPath)
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// RegisterChangeCallback registers a function to be called when config changes.
func (m *Manager) RegisterChangeCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = fn
}

// Watch reloads the configuration whenever the file changes on disk. The
// change callback runs after every successful reload; failed reloads keep
// the previous settings and are passed to onError.
func (m *Manager) Watch(onError func(error)) {
	m.v.OnConfigChange(func(fsnotify.Event) {
		if err := m.Load(); err != nil && onError != nil {
			onError(err)
		}
	})
	m.v.WatchConfig()
}
