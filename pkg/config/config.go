package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var DebugLog func(string, ...interface{})

// Config is trainconf's own configuration: registry and indexing backends
// plus defaults applied to every inspection. It is distinct from the run
// documents the tool operates on.
type Config struct {
	DefaultSettings DefaultSettings `yaml:"default_settings"`
	Registry        Registry        `yaml:"registry"`
	Elasticsearch   Elasticsearch   `yaml:"elasticsearch"`
	TokenizerCache  TokenizerCache  `yaml:"tokenizer_cache"`
}

type DefaultSettings struct {
	Timeout int  `yaml:"timeout"`
	Strict  bool `yaml:"strict"`
}

type Registry struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type Elasticsearch struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Index    string `yaml:"index"`
}

type TokenizerCache struct {
	Dir           string `yaml:"dir"`
	ForceDownload bool   `yaml:"force_download"`
}

type Manager struct {
	config     *Config
	configPath string
}

func NewManager(configPath string) *Manager {
	return &Manager{
		configPath: configPath,
	}
}

func (m *Manager) LoadConfig() error {
	if m.configPath == "" {
		m.configPath = m.findConfigFile()
	}

	if DebugLog != nil {
		DebugLog("loading tool config from %s", m.configPath)
	}

	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		// No tool config is fine: run with defaults, backends disabled.
		m.config = DefaultConfig()
		return nil
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := m.validateConfig(config); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	m.config = config
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		DefaultSettings: DefaultSettings{
			Timeout: 5,
		},
	}
}

func (m *Manager) GetConfig() *Config {
	return m.config
}

func (m *Manager) findConfigFile() string {
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}

	if _, err := os.Stat("config/config.yaml"); err == nil {
		return "config/config.yaml"
	}

	return filepath.Join(GetConfigDir(), "config.yaml")
}

func (m *Manager) validateConfig(config *Config) error {
	if config.DefaultSettings.Timeout <= 0 {
		return fmt.Errorf("timeout must be greater than 0")
	}

	if config.Registry.Enabled {
		if config.Registry.Host == "" {
			return fmt.Errorf("registry is enabled but host is empty")
		}
		if config.Registry.Port <= 0 || config.Registry.Port > 65535 {
			return fmt.Errorf("registry port %d is invalid", config.Registry.Port)
		}
	}

	if config.Elasticsearch.Enabled && config.Elasticsearch.URL == "" {
		return fmt.Errorf("elasticsearch is enabled but url is empty")
	}

	return nil
}
