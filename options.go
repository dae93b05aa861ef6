package octogo

import (
	"log/slog"

	"github.com/hupe1980/octogo/blobstore"
	"github.com/hupe1980/octogo/internal/cellstore"
	"github.com/hupe1980/octogo/internal/resource"
	"github.com/hupe1980/octogo/snapshot"
)

// DefaultMaxDepth is the maximum cell depth used unless WithMaxDepth is set.
const DefaultMaxDepth = 8

// ResourceConfig holds process-wide limits for builds, snapshot block
// buffers and blob store throughput.
type ResourceConfig = resource.Config

// ResourceController enforces a ResourceConfig.
type ResourceController = resource.Controller

// NewResourceController returns a controller for cfg.
func NewResourceController(cfg ResourceConfig) *ResourceController {
	return resource.NewController(cfg)
}

type options struct {
	maxDepth         int
	shardBytes       int64
	preserveOriginal bool
	repository       *snapshot.Repository
	blobStore        blobstore.BlobStore
	compression      snapshot.Compression
	skipLoad         bool
	metricsCollector MetricsCollector
	logger           *Logger
	controller       *resource.Controller
	buildWorkers     int
}

// Option configures a DB.
type Option func(*options)

// WithMaxDepth sets the maximum cell depth of every model. It is clamped to
// [0, cell.MaxLevel].
func WithMaxDepth(depth int) Option {
	return func(o *options) {
		o.maxDepth = depth
	}
}

// WithShardBytes sets the estimated size at which a model's cell store starts
// a new shard.
func WithShardBytes(n int64) Option {
	return func(o *options) {
		o.shardBytes = n
	}
}

// WithPreserveOriginalCell makes overlay insertions that resolve to a
// persisted ancestor also record the original cell.
func WithPreserveOriginalCell(enabled bool) Option {
	return func(o *options) {
		o.preserveOriginal = enabled
	}
}

// WithRepository persists models in repo. It takes precedence over
// WithBlobStore.
func WithRepository(repo *snapshot.Repository) Option {
	return func(o *options) {
		o.repository = repo
	}
}

// WithBlobStore persists models in store with a repository using the DB's
// resource controller.
//
// Example with a local directory:
//
//	store, _ := blobstore.NewLocalStore("./data")
//	db, _ := octogo.Open(space, octogo.WithBlobStore(store))
func WithBlobStore(store blobstore.BlobStore) Option {
	return func(o *options) {
		o.blobStore = store
	}
}

// WithCompression sets the snapshot codec of the repository created by
// WithBlobStore.
func WithCompression(c snapshot.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithSkipLoad disables rehydration of models from the repository. Models
// start empty; Save still writes new versions.
func WithSkipLoad(skip bool) Option {
	return func(o *options) {
		o.skipLoad = skip
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &octogo.BasicMetricsCollector{}
//	db, _ := octogo.Open(space, octogo.WithMetricsCollector(metrics))
//	// ... use db ...
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithResourceController shares rc between DBs, e.g. to bound build
// concurrency and snapshot IO process-wide.
func WithResourceController(rc *ResourceController) Option {
	return func(o *options) {
		o.controller = rc
	}
}

// WithBuildWorkers bounds concurrent subdivisions. It is ignored when
// WithResourceController is set.
func WithBuildWorkers(n int) Option {
	return func(o *options) {
		o.buildWorkers = n
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		maxDepth:         DefaultMaxDepth,
		shardBytes:       cellstore.DefaultShardBytes,
		compression:      snapshot.CompressionZSTD,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}

	if o.controller == nil {
		o.controller = resource.NewController(resource.Config{
			MaxBuildWorkers: int64(o.buildWorkers),
		})
	}
	if o.repository == nil && o.blobStore != nil {
		o.repository = snapshot.NewRepository(o.blobStore,
			snapshot.WithCompression(o.compression),
			snapshot.WithController(o.controller),
		)
	}
	return o
}
