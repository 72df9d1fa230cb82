// Package store declares the shard persistence contracts the batch driver
// runs against. Shards are independent url_state partitions of the URL
// universe; the store exposes them as a single logical table parameterized
// by shard index.
package store

import (
	"context"
	"errors"

	"github.com/ntuwsl/indexselect/internal/pipeline"
)

// ErrShardMissing signals the shard's table has not been created yet. The
// driver skips such shards and the run continues.
var ErrShardMissing = errors.New("shard table does not exist")

// Result is the terminal decision for one document within a page.
type Result struct {
	URL      string
	Accepted bool
	// Priority is the computed index priority; -1 on rejection.
	Priority float64
	// Reason carries the rejection reason for failed documents.
	Reason string
}

// Page is one locked batch of eligible documents. The row locks are held
// until Finish commits or Release rolls back; concurrent workers and the
// live crawler skip locked rows instead of blocking on them.
type Page interface {
	// Docs returns the locked documents in ascending url order.
	Docs() []*pipeline.Document
	// Finish applies the results and commits the page in one transaction.
	Finish(ctx context.Context, results []Result) error
	// Release rolls the page back without applying anything.
	Release(ctx context.Context) error
}

// ShardStore provides skip-locked page access to one shard at a time.
type ShardStore interface {
	// AcquirePage locks and returns up to limit eligible rows with
	// url > cursor, in ascending url order. An empty page means the shard
	// is drained for the current epoch.
	AcquirePage(ctx context.Context, shard int, cursor string, limit int) (Page, error)

	// ResetPage clears the processed flags on up to limit already-attempted
	// rows, returning how many were cleared. Callers loop until zero.
	ResetPage(ctx context.Context, shard int, limit int) (int64, error)
}
