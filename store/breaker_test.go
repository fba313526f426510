package store

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

// flakyStore fails every call with err until it is cleared.
type flakyStore struct {
	err   error
	calls int
}

func (f *flakyStore) List(ctx context.Context, prefix, delimiter string) (*Listing, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &Listing{}, nil
}

func (f *flakyStore) Head(ctx context.Context, key string) (*Object, bool, error) {
	f.calls++
	if f.err != nil {
		return nil, false, f.err
	}
	return &Object{Key: key}, true, nil
}

func (f *flakyStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader("ok")), nil
}

func (f *flakyStore) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "etag", nil
}

func TestBreakerPassesThrough(t *testing.T) {
	inner := &flakyStore{}
	b := NewBreakerStore(inner)
	ctx := context.Background()

	if _, err := b.List(ctx, "p/", "/"); err != nil {
		t.Errorf("List failed: %v", err)
	}
	if _, _, err := b.Head(ctx, "k"); err != nil {
		t.Errorf("Head failed: %v", err)
	}
	if etag, err := b.Put(ctx, "k", "text/plain", strings.NewReader("x")); err != nil || etag != "etag" {
		t.Errorf("Put returned %q, %v", etag, err)
	}
	if b.Tripped() {
		t.Error("breaker tripped on healthy store")
	}
}

func TestBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyStore{err: errors.New("backend down")}
	b := NewBreakerStore(inner)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := b.List(ctx, "p/", "/"); err == nil {
			t.Fatal("expected failure")
		}
	}
	if !b.Tripped() {
		t.Fatal("expected breaker to trip after 5 consecutive failures")
	}

	before := inner.calls
	_, err := b.Get(ctx, "k")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable while open, got %v", err)
	}
	if inner.calls != before {
		t.Error("expected open circuit to skip the backend call")
	}
}

func TestBreakerIgnoresNotFound(t *testing.T) {
	inner := &flakyStore{err: ErrNotFound}
	b := NewBreakerStore(inner)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := b.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	}
	if b.Tripped() {
		t.Error("absence must not count toward the trip threshold")
	}
}
