package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/grabdesk/grabdesk/internal/logger"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// UseGrimAdapter selects the grim-based capture adapter on generic
	// Wayland compositors instead of the desktop portal.
	UseGrimAdapter bool `json:"use_grim_adapter" yaml:"use_grim_adapter"`

	// DisableGrimWarning suppresses the advisory emitted when capturing on
	// a compositor where the chosen Wayland adapter may misbehave.
	DisableGrimWarning bool `json:"disable_grim_warning" yaml:"disable_grim_warning"`

	LogLevel string `json:"log_level" yaml:"log_level"`
}

// Manager handles configuration
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configFile string) (*Manager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", "grabdesk")
	defaultConfigPath := filepath.Join(configDir, "config.yaml")

	actualConfigPath := defaultConfigPath
	if configFile != "" {
		actualConfigPath = configFile
	}

	if err := os.MkdirAll(filepath.Dir(actualConfigPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{
		configPath: actualConfigPath,
	}

	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			// Config file not found, create it with defaults
			configLog := logger.WithComponent("config")
			configLog.Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.config = getDefaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return m, nil
}

// getDefaults returns default configuration
func getDefaults() *Config {
	return &Config{
		UseGrimAdapter:     false,
		DisableGrimWarning: false,
		LogLevel:           "info",
	}
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	cfg := getDefaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", m.configPath, err)
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Save writes the current configuration to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *m.config
}

// GetConfigPath returns the path of the loaded config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// SetLogLevel overrides the configured log level
func (m *Manager) SetLogLevel(level string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.LogLevel = level
}

// SetUseGrimAdapter overrides the configured Wayland adapter choice
func (m *Manager) SetUseGrimAdapter(use bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.UseGrimAdapter = use
}

// UseGrimAdapter reports whether the grim adapter is enabled. Together with
// DisabledGrimWarning it forms the read-only view the grab orchestrator
// consumes, so tests can substitute a fixed fake.
func (m *Manager) UseGrimAdapter() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.UseGrimAdapter
}

// DisabledGrimWarning reports whether adapter advisories are suppressed
func (m *Manager) DisabledGrimWarning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.DisableGrimWarning
}
