// Package engine implements the pod/stream/record core: the hierarchical
// stream namespace, the append-only hash-chained record log, permission
// and path resolution, soft delete and purge, and the external blob
// offload. The HTTP layer above it only translates requests and maps
// errors.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/webpods/webpods/internal/blob"
	"github.com/webpods/webpods/internal/cache"
	"github.com/webpods/webpods/internal/storage"
)

// Validator is the pluggable schema hook invoked at write time for
// streams with the schema flag set.
type Validator interface {
	Validate(ctx context.Context, stream *storage.Stream, content []byte, contentType string) error
}

// NoopValidator accepts everything.
type NoopValidator struct{}

func (NoopValidator) Validate(context.Context, *storage.Stream, []byte, string) error { return nil }

// BlobStore is the external storage the engine offloads large content to.
// DeleteTree is used on stream and pod deletion.
type BlobStore interface {
	blob.Store
	DeleteTree(ctx context.Context, pod, streamPath string) error
}

type Options struct {
	MaxPayloadBytes        int64
	ExternalThresholdBytes int64
	MaxRecordLimit         int
}

type Engine struct {
	store     *storage.Store
	blobs     BlobStore // nil when no blob root is configured
	cache     *cache.Cache
	validator Validator
	opts      Options

	now   func() time.Time
	newID func() string
}

func New(store *storage.Store, blobs BlobStore, c *cache.Cache, validator Validator, opts Options) *Engine {
	if validator == nil {
		validator = NoopValidator{}
	}
	if opts.MaxRecordLimit <= 0 {
		opts.MaxRecordLimit = 1000
	}
	return &Engine{
		store:     store,
		blobs:     blobs,
		cache:     c,
		validator: validator,
		opts:      opts,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// SetClock overrides the time source. Used by tests.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

func (e *Engine) Store() *storage.Store { return e.store }

func (e *Engine) Cache() *cache.Cache { return e.cache }

func (e *Engine) MaxRecordLimit() int { return e.opts.MaxRecordLimit }

func (e *Engine) clampLimit(limit int) int {
	if limit <= 0 || limit > e.opts.MaxRecordLimit {
		return e.opts.MaxRecordLimit
	}
	return limit
}
