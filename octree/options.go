package octree

import (
	"io"
	"log/slog"

	"github.com/hupe1980/octogo/internal/cellstore"
)

type options struct {
	shardBytes       int64
	preserveOriginal bool
	logger           *slog.Logger
}

func defaultOptions() options {
	return options{
		shardBytes: cellstore.DefaultShardBytes,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Option configures an Index.
type Option func(*options)

// WithShardBytes sets the estimated shard size at which the cell store starts
// a new shard.
func WithShardBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.shardBytes = n
		}
	}
}

// WithPreserveOriginalCell also records the queried cell itself when an
// overlay insertion resolves to a persisted ancestor.
func WithPreserveOriginalCell(enabled bool) Option {
	return func(o *options) {
		o.preserveOriginal = enabled
	}
}

// WithLogger sets the logger for split and rehydration events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
