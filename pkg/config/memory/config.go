package memory

import (
	"context"
	"sync"

	"github.com/solagent/solagent-go/pkg/config"
)

// Config holds a value in memory. It backs programmatic overrides, and lets
// tests change or break a config source at runtime.
type Config struct {
	mu       sync.RWMutex
	value    interface{}
	err      error
	shutdown bool
}

// NewConfig returns a Config holding value. A nil value means no value is
// set, so typed wrappers fall back to their defaults.
func NewConfig(value interface{}) *Config {
	return &Config{value: value}
}

// Get implements config.Config.Get
func (c *Config) Get(_ context.Context) (interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch {
	case c.shutdown:
		return nil, config.ErrShutdown
	case c.err != nil:
		return nil, c.err
	case c.value == nil:
		return nil, config.ErrNoValue
	default:
		return c.value, nil
	}
}

// Shutdown implements config.Config.Shutdown
func (c *Config) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.shutdown = true
}

// SetValue replaces the value. Setting nil clears it.
func (c *Config) SetValue(value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value = value
}

// InduceError makes subsequent Get calls fail with err, until it's called
// again with nil.
func (c *Config) InduceError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.err = err
}
