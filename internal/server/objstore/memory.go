package objstore

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/andrejsk/clouddrive/internal/common"
)

// ScopeProvider yields per-operation stores. Implemented by Scoper (STS
// backed) and StaticScope (tests and single-tenant deployments).
type ScopeProvider interface {
	// Scoped is limited to one owner's private prefix.
	Scoped(ctx context.Context, ownerID string) (Store, error)

	// Public is limited to the shared public prefix.
	Public(ctx context.Context) (Store, error)

	// Sharing reads one owner's private prefix and writes the public one,
	// the minimum needed to publish or retract a share.
	Sharing(ctx context.Context, ownerID string) (Store, error)
}

// StaticScope hands out the same Store for every owner. Used by tests and
// by deployments that run without a scope role.
type StaticScope struct {
	Store Store
}

func (s StaticScope) Scoped(ctx context.Context, ownerID string) (Store, error) {
	return s.Store, nil
}

func (s StaticScope) Public(ctx context.Context) (Store, error) {
	return s.Store, nil
}

func (s StaticScope) Sharing(ctx context.Context, ownerID string) (Store, error) {
	return s.Store, nil
}

type memObject struct {
	data     []byte
	etag     string
	modified time.Time
}

// Memory is an in-memory Store with S3-compatible listing semantics
// (lexicographic key order, delimiter grouping, continuation tokens).
// Hooks let tests inject failures into individual calls.
type Memory struct {
	mu      sync.Mutex
	objects map[string]*memObject

	// Optional failure injection.
	CopyHook func(srcKey, dstKey string) error
	GetHook  func(key string) error

	// DeleteFailKeys marks keys whose batch delete is reported as failed.
	DeleteFailKeys map[string]bool

	// Call counters for assertions.
	DeleteManyCalls int
	ListCalls       int
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string]*memObject)}
}

func (m *Memory) Put(ctx context.Context, key string, body io.Reader, length int64) error {
	var data []byte
	if body != nil {
		b, err := io.ReadAll(body)
		if err != nil {
			return err
		}
		data = b
	}
	sum := md5.Sum(data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = &memObject{
		data:     data,
		etag:     `"` + hex.EncodeToString(sum[:]) + `"`,
		modified: time.Now(),
	}
	return nil
}

func (m *Memory) Get(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error) {
	if m.GetHook != nil {
		if err := m.GetHook(key); err != nil {
			return nil, nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[key]
	if !ok {
		return nil, nil, fmt.Errorf("get %q: %w", key, common.ErrNotFound)
	}
	info := &ObjectInfo{Key: key, Size: int64(len(o.data)), LastModified: o.modified, ETag: o.etag}
	return io.NopCloser(bytes.NewReader(o.data)), info, nil
}

func (m *Memory) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("head %q: %w", key, common.ErrNotFound)
	}
	return &ObjectInfo{Key: key, Size: int64(len(o.data)), LastModified: o.modified, ETag: o.etag}, nil
}

func (m *Memory) Copy(ctx context.Context, srcKey, dstKey string) error {
	if m.CopyHook != nil {
		if err := m.CopyHook(srcKey, dstKey); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.objects[srcKey]
	if !ok {
		return fmt.Errorf("copy source %q: %w", srcKey, common.ErrNotFound)
	}
	cp := *src
	cp.data = append([]byte(nil), src.data...)
	cp.modified = time.Now()
	m.objects[dstKey] = &cp
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *Memory) DeleteMany(ctx context.Context, keys []string) ([]string, error) {
	if len(keys) > MaxBatchDelete {
		return nil, fmt.Errorf("batch of %d exceeds limit %d: %w", len(keys), MaxBatchDelete, common.ErrInvalidArgument)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteManyCalls++
	var failed []string
	for _, k := range keys {
		if m.DeleteFailKeys[k] {
			failed = append(failed, k)
			continue
		}
		delete(m.objects, k)
	}
	return failed, nil
}

func (m *Memory) List(ctx context.Context, prefix, delimiter, token string, maxKeys int32) (*ListPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++

	if maxKeys <= 0 {
		maxKeys = 1000
	}

	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) && k > token {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	page := &ListPage{}
	seenPrefixes := make(map[string]bool)
	count := int32(0)
	lastProcessed := ""
	for _, k := range keys {
		if count >= maxKeys {
			page.Truncated = true
			page.NextToken = lastProcessed
			break
		}
		lastProcessed = k
		rest := strings.TrimPrefix(k, prefix)
		if delimiter != "" {
			if i := strings.Index(rest, delimiter); i >= 0 {
				cp := prefix + rest[:i+len(delimiter)]
				if !seenPrefixes[cp] {
					seenPrefixes[cp] = true
					page.CommonPrefixes = append(page.CommonPrefixes, cp)
					count++
				}
				continue
			}
		}
		o := m.objects[k]
		page.Objects = append(page.Objects, ObjectInfo{Key: k, Size: int64(len(o.data)), LastModified: o.modified, ETag: o.etag})
		count++
	}
	return page, nil
}

func (m *Memory) PresignPut(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "https://memory.invalid/put/" + key + "?expires=" + expires.String(), nil
}

func (m *Memory) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "https://memory.invalid/get/" + key + "?expires=" + expires.String(), nil
}

// Keys returns all stored keys in sorted order. Test helper.
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Exists reports whether key is stored. Test helper.
func (m *Memory) Exists(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}
