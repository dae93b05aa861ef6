// Package resource governs the shared limits of a database instance.
//
// A Controller bounds three things:
//
//   - Build workers: concurrent subdivision builds (blocking semaphore)
//   - Buffer memory: decoded snapshot blocks held at once (fail-fast)
//   - IO: bytes per second moved to and from the blob store (token bucket)
//
//	rc := resource.NewController(resource.Config{
//	    MaxBuildWorkers:    4,
//	    IOLimitBytesPerSec: 64 << 20,
//	})
//
//	if err := rc.AcquireBuild(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseBuild()
//
// All methods are safe for concurrent use, and a nil *Controller is valid:
// every method becomes a no-op.
package resource
