// Package objstore wraps the S3 API surface the server needs: object CRUD,
// batch delete, prefix listing with continuation tokens, server-side copy
// and presigned transfer URLs. Credential scoping lives in scope.go.
package objstore

import (
	"context"
	"io"
	"time"
)

// MaxBatchDelete is the store-side limit on keys per delete-many call.
const MaxBatchDelete = 1000

// listPageSize is the page size used when enumerating descendant keys.
const listPageSize = 1000

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
}

// ListPage is one page of a prefix listing. CommonPrefixes groups child
// keys behind the delimiter, which is how folders are inferred.
type ListPage struct {
	Objects        []ObjectInfo
	CommonPrefixes []string
	NextToken      string
	Truncated      bool
}

// Store is the object-store contract used by the vfs, transfer and share
// layers. Implemented by the S3-backed Client and the in-memory Memory.
type Store interface {
	// Put writes body under key. A zero-length body creates a marker object.
	Put(ctx context.Context, key string, body io.Reader, length int64) error

	// Get opens the object for streaming. Caller must close the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error)

	// Head returns metadata without the body. common.ErrNotFound if absent.
	Head(ctx context.Context, key string) (*ObjectInfo, error)

	// Copy duplicates srcKey to dstKey server-side.
	Copy(ctx context.Context, srcKey, dstKey string) error

	// Delete removes one key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// DeleteMany removes up to MaxBatchDelete keys in one call and returns
	// the keys the store reported as failed.
	DeleteMany(ctx context.Context, keys []string) ([]string, error)

	// List returns one page of keys under prefix, grouped by delimiter.
	List(ctx context.Context, prefix, delimiter, token string, maxKeys int32) (*ListPage, error)

	// PresignPut returns a time-limited URL granting a single upload to key.
	PresignPut(ctx context.Context, key string, expires time.Duration) (string, error)

	// PresignGet returns a time-limited URL granting a single download of key.
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
}

// ListAll enumerates every key under prefix, following continuation tokens
// until the listing is exhausted. Batch mutations call this before any
// destructive operation so enumeration never interleaves with deletes.
func ListAll(ctx context.Context, store Store, prefix string) ([]string, error) {
	var keys []string
	token := ""
	for {
		page, err := store.List(ctx, prefix, "", token, listPageSize)
		if err != nil {
			return nil, err
		}
		for _, o := range page.Objects {
			keys = append(keys, o.Key)
		}
		if !page.Truncated {
			return keys, nil
		}
		token = page.NextToken
	}
}
