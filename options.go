package webaudio

import (
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultMessageCapacity = 1024
	defaultQueryCapacity   = 16
	defaultQueryTimeout    = 100 * time.Millisecond
	defaultLatency         = 4
)

// Option provides a way to set functional parameters to context.
type Option func(*Context)

// WithLogger sets the logger of context. Entries get context and
// component fields.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Context) {
		c.logger = logger
	}
}

// WithName sets the name of context. It's used in log entries.
func WithName(name string) Option {
	return func(c *Context) {
		c.name = name
	}
}

// WithMessageCapacity sets the capacity of the control to render
// channel. Control calls block when it's full.
func WithMessageCapacity(capacity int) Option {
	return func(c *Context) {
		if capacity > 0 {
			c.messageCapacity = capacity
		}
	}
}

// WithQueryTimeout limits the time to wait for render goroutine to
// answer a query.
func WithQueryTimeout(timeout time.Duration) Option {
	return func(c *Context) {
		if timeout > 0 {
			c.queryTimeout = timeout
		}
	}
}

// WithLatency sets the number of quanta rendered ahead of the device.
func WithLatency(quanta int) Option {
	return func(c *Context) {
		if quanta > 0 {
			c.latency = quanta
		}
	}
}

// WithMetrics enables render counters in metric package.
func WithMetrics(enabled bool) Option {
	return func(c *Context) {
		c.metrics = enabled
	}
}

// WithSuspended creates context in suspended state. The sink is started
// on the first Resume, so the graph can be built before the first
// quantum is rendered.
func WithSuspended() Option {
	return func(c *Context) {
		c.suspended = true
	}
}
