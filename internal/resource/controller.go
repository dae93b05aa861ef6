package resource

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrBufferLimitExceeded is returned when a buffer reservation would exceed
// the configured limit.
var ErrBufferLimitExceeded = errors.New("buffer limit exceeded")

// Config holds resource limits.
type Config struct {
	// MaxBuildWorkers bounds concurrent subdivision builds.
	// If 0, defaults to GOMAXPROCS.
	MaxBuildWorkers int64

	// BufferLimitBytes bounds decoded snapshot blocks held at once.
	// If 0, buffers are only tracked.
	BufferLimitBytes int64

	// IOLimitBytesPerSec bounds blob store throughput.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller enforces a Config.
type Controller struct {
	cfg Config

	buildSem *semaphore.Weighted

	bufSem  *semaphore.Weighted // nil if unlimited
	bufUsed atomic.Int64

	ioLimiter *rate.Limiter
}

// NewController creates a controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxBuildWorkers <= 0 {
		cfg.MaxBuildWorkers = int64(runtime.GOMAXPROCS(0))
	}

	c := &Controller{
		cfg:      cfg,
		buildSem: semaphore.NewWeighted(cfg.MaxBuildWorkers),
	}
	if cfg.BufferLimitBytes > 0 {
		c.bufSem = semaphore.NewWeighted(cfg.BufferLimitBytes)
	}
	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}
	return c
}

// Config returns the effective configuration.
func (c *Controller) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.cfg
}

// MaxBuildWorkers returns the build worker limit, or 0 for a nil controller.
func (c *Controller) MaxBuildWorkers() int {
	if c == nil {
		return 0
	}
	return int(c.cfg.MaxBuildWorkers)
}

// AcquireBuild reserves a build worker slot, blocking until one is free or
// ctx is done.
func (c *Controller) AcquireBuild(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.buildSem.Acquire(ctx, 1)
}

// TryAcquireBuild reserves a build worker slot without blocking.
func (c *Controller) TryAcquireBuild() bool {
	if c == nil {
		return true
	}
	return c.buildSem.TryAcquire(1)
}

// ReleaseBuild releases a build worker slot.
func (c *Controller) ReleaseBuild() {
	if c == nil {
		return
	}
	c.buildSem.Release(1)
}

// AcquireBuffer reserves buffer memory. It never blocks; callers decide how
// to back off on ErrBufferLimitExceeded.
func (c *Controller) AcquireBuffer(bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}
	if c.bufSem != nil && !c.bufSem.TryAcquire(bytes) {
		return ErrBufferLimitExceeded
	}
	c.bufUsed.Add(bytes)
	return nil
}

// ReleaseBuffer releases buffer memory.
func (c *Controller) ReleaseBuffer(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	if c.bufSem != nil {
		c.bufSem.Release(bytes)
	}
	c.bufUsed.Add(-bytes)
}

// BufferUsage returns the reserved buffer memory in bytes.
func (c *Controller) BufferUsage() int64 {
	if c == nil {
		return 0
	}
	return c.bufUsed.Load()
}

// AcquireIO waits until the IO limit allows n more bytes. Requests larger
// than the burst are split.
func (c *Controller) AcquireIO(ctx context.Context, n int) error {
	if c == nil || c.ioLimiter == nil || n <= 0 {
		return nil
	}
	burst := c.ioLimiter.Burst()
	for n > 0 {
		step := min(n, burst)
		if err := c.ioLimiter.WaitN(ctx, step); err != nil {
			return err
		}
		n -= step
	}
	return nil
}

// TryAcquireIO takes n IO tokens without waiting.
func (c *Controller) TryAcquireIO(n int) bool {
	if c == nil || c.ioLimiter == nil {
		return true
	}
	return c.ioLimiter.AllowN(time.Now(), n)
}
