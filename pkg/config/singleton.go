package config

import (
	"fmt"
	"sync"
)

var (
	// globalConfig holds the singleton configuration instance.
	globalConfig *Config

	// configMutex protects access to globalConfig.
	configMutex sync.RWMutex

	// initOnce ensures configuration is initialized only once.
	initOnce sync.Once
)

// Initialize loads configuration from the specified path with environment
// variable overrides and stores it as the global configuration.
// Subsequent calls are ignored.
func Initialize(path string) error {
	var initErr error

	initOnce.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			initErr = err
			return
		}
		SetConfig(cfg)
	})

	return initErr
}

// GetConfig returns the global configuration instance, or nil before
// Initialize or SetConfig.
func GetConfig() *Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// SetConfig replaces the global configuration instance. The config watcher
// calls it after a successful reload.
func SetConfig(cfg *Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = cfg
}

// ReloadConfig reloads the configuration from path and installs it. On error
// the existing configuration remains unchanged.
func ReloadConfig(path string) (*Config, error) {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, fmt.Errorf("failed to reload configuration: %w", err)
	}
	SetConfig(cfg)
	return cfg, nil
}

// MustGetConfig returns the global configuration instance.
// It panics if the configuration has not been initialized.
func MustGetConfig() *Config {
	cfg := GetConfig()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}
