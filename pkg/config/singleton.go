package config

import (
	"fmt"
	"slices"
	"sync"
)

var (
	// globalConfig holds the process-wide configuration.
	globalConfig *Config

	// configMutex protects globalConfig and subscribers.
	configMutex sync.RWMutex

	// initOnce ensures configuration is initialized only once.
	initOnce sync.Once

	// subscribers are notified after every successful reload.
	subscribers []func(*Config)
)

// Initialize loads configuration from the specified path with environment
// variable overrides and stores it as the process-wide configuration.
// Subsequent calls are ignored.
func Initialize(path string) error {
	var initErr error

	initOnce.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			initErr = err
			return
		}

		configMutex.Lock()
		globalConfig = cfg
		configMutex.Unlock()
	})

	return initErr
}

// GetConfig returns the current configuration, or nil before Initialize.
func GetConfig() *Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// SetConfig replaces the current configuration. Intended for tests.
func SetConfig(cfg *Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = cfg
}

// Subscribe registers fn to be called with the new configuration after each
// successful ReloadConfig.
func Subscribe(fn func(*Config)) {
	configMutex.Lock()
	defer configMutex.Unlock()
	subscribers = append(subscribers, fn)
}

// ReloadConfig reloads the configuration from the specified path. The current
// configuration is replaced only if loading and validation succeed; on
// failure it is left untouched and subscribers are not called.
func ReloadConfig(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}

	configMutex.Lock()
	globalConfig = cfg
	subs := slices.Clone(subscribers)
	configMutex.Unlock()

	for _, fn := range subs {
		fn(cfg)
	}

	return nil
}

// MustGetConfig returns the current configuration and panics if it has not
// been initialized.
func MustGetConfig() *Config {
	cfg := GetConfig()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}

// resetForTest clears the package state.
func resetForTest() {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = nil
	subscribers = nil
	initOnce = sync.Once{}
}
