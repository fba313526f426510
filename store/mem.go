package store

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // etag emulation, not integrity
	"encoding/hex"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemStore is an in-memory ObjectStore used in tests and local dry runs.
// ETags are MD5 hex digests of the content, matching S3's simple-upload
// behavior.
type MemStore struct {
	mu      sync.RWMutex
	objects map[string]memObject
}

type memObject struct {
	data        []byte
	contentType string
	etag        string
	modified    time.Time
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{objects: make(map[string]memObject)}
}

func (m *MemStore) List(ctx context.Context, prefix, delimiter string) (*Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	listing := &Listing{}
	prefixSeen := make(map[string]bool)

	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		rest := key[len(prefix):]
		if delimiter != "" {
			if idx := strings.Index(rest, delimiter); idx >= 0 {
				p := prefix + rest[:idx+len(delimiter)]
				if !prefixSeen[p] {
					prefixSeen[p] = true
					listing.Prefixes = append(listing.Prefixes, p)
				}
				continue
			}
		}
		obj := m.objects[key]
		listing.Objects = append(listing.Objects, Object{
			Key:          key,
			Size:         int64(len(obj.data)),
			ETag:         obj.etag,
			LastModified: obj.modified,
		})
	}

	return listing, nil
}

func (m *MemStore) Head(ctx context.Context, key string) (*Object, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, false, nil
	}
	return &Object{
		Key:          key,
		Size:         int64(len(obj.data)),
		ETag:         obj.etag,
		LastModified: obj.modified,
	}, true, nil
}

func (m *MemStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (m *MemStore) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}

	sum := md5.Sum(data) //nolint:gosec // etag emulation
	etag := hex.EncodeToString(sum[:])

	m.mu.Lock()
	m.objects[key] = memObject{
		data:        data,
		contentType: contentType,
		etag:        etag,
		modified:    time.Now().UTC(),
	}
	m.mu.Unlock()

	return etag, nil
}

// Remove deletes a key. Not part of ObjectStore; tests use it to simulate
// objects disappearing from underneath the index.
func (m *MemStore) Remove(key string) {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
}

// Overwrite replaces an object's content directly, bypassing Put semantics.
// Tests use it to simulate out-of-band modification.
func (m *MemStore) Overwrite(key string, data []byte) {
	sum := md5.Sum(data) //nolint:gosec // etag emulation
	m.mu.Lock()
	m.objects[key] = memObject{
		data:     data,
		etag:     hex.EncodeToString(sum[:]),
		modified: time.Now().UTC(),
	}
	m.mu.Unlock()
}

// Keys returns all stored keys in sorted order.
func (m *MemStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// ContentType returns the stored content type for a key, if present.
func (m *MemStore) ContentType(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	return obj.contentType, ok
}
