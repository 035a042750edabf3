package snmp

import (
	"sync"

	"github.com/spf13/viper"
)

// Option keys understood by the defaults provider.
const (
	OptCommunity      = "community"
	OptVersion        = "version"
	OptTimeout        = "timeout"
	OptRetries        = "retries"
	OptPort           = "port"
	OptNonRepeaters   = "non_repeaters"
	OptMaxRepetitions = "max_repetitions"
)

// Config is the defaults provider: a viper-backed overlay of option
// defaults that call-site options win over.
type Config struct {
	mu sync.RWMutex
	v  *viper.Viper
}

// NewConfig creates a provider seeded with the standard defaults.
func NewConfig() *Config {
	v := viper.New()
	v.SetDefault(OptCommunity, DefaultCommunity)
	v.SetDefault(OptVersion, "2c")
	v.SetDefault(OptTimeout, int(DefaultTimeout.Milliseconds()))
	v.SetDefault(OptRetries, DefaultRetries)
	v.SetDefault(OptPort, DefaultPort)
	v.SetDefault(OptNonRepeaters, DefaultNonRepeaters)
	v.SetDefault(OptMaxRepetitions, DefaultMaxRepetitions)
	return &Config{v: v}
}

// NewConfigFrom wraps an existing viper instance, typically one already
// bound to a file or environment by the host application.
func NewConfigFrom(v *viper.Viper) *Config {
	return &Config{v: v}
}

// GetDefault returns the default for an option key.
func (c *Config) GetDefault(key string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.Get(key)
}

// SetDefault overrides the default for an option key.
func (c *Config) SetDefault(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.v.Set(key, value)
}

// Merge overlays call-site options onto the defaults; call-site wins.
func (c *Config) Merge(opts map[string]interface{}) map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]interface{})
	for _, key := range c.v.AllKeys() {
		out[key] = c.v.Get(key)
	}
	for key, value := range opts {
		out[key] = value
	}
	return out
}

// GetString returns a string default.
func (c *Config) GetString(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetString(key)
}

// GetInt returns an integer default.
func (c *Config) GetInt(key string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetInt(key)
}
