package store

import (
	"context"
	"crypto/md5" //nolint:gosec // etag check
	"encoding/hex"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
)

func TestMemStorePutGet(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()

	etag, err := m.Put(ctx, "a/b.txt", "text/plain", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	sum := md5.Sum([]byte("hello")) //nolint:gosec
	if etag != hex.EncodeToString(sum[:]) {
		t.Errorf("unexpected etag %q", etag)
	}

	body, err := m.Get(ctx, "a/b.txt")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	data, _ := io.ReadAll(body)
	body.Close()
	if string(data) != "hello" {
		t.Errorf("unexpected body %q", data)
	}

	if ct, ok := m.ContentType("a/b.txt"); !ok || ct != "text/plain" {
		t.Errorf("unexpected content type %q", ct)
	}
}

func TestMemStoreGetMissing(t *testing.T) {
	m := NewMemStore()
	_, err := m.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemStoreHead(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()

	if _, found, err := m.Head(ctx, "nope"); err != nil || found {
		t.Errorf("expected absent, got found=%v err=%v", found, err)
	}

	etag, _ := m.Put(ctx, "k", "text/plain", strings.NewReader("data"))
	obj, found, err := m.Head(ctx, "k")
	if err != nil || !found {
		t.Fatalf("expected present, got found=%v err=%v", found, err)
	}
	if obj.ETag != etag || obj.Size != 4 {
		t.Errorf("unexpected object %+v", obj)
	}
}

func TestMemStoreListDelimiter(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()

	for _, key := range []string{
		"simple/",
		"simple/alpha/a-1.0.tar.gz",
		"simple/alpha/manifest.json",
		"simple/beta/b-1.0.tar.gz",
	} {
		if _, err := m.Put(ctx, key, "application/octet-stream", strings.NewReader("x")); err != nil {
			t.Fatal(err)
		}
	}

	listing, err := m.List(ctx, "simple/", "/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	wantPrefixes := []string{"simple/alpha/", "simple/beta/"}
	if !reflect.DeepEqual(listing.Prefixes, wantPrefixes) {
		t.Errorf("unexpected prefixes %v", listing.Prefixes)
	}
	if len(listing.Objects) != 1 || listing.Objects[0].Key != "simple/" {
		t.Errorf("unexpected objects %+v", listing.Objects)
	}
}

func TestMemStoreListNoDelimiter(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()

	for _, key := range []string{"p/a", "p/sub/b", "q/c"} {
		if _, err := m.Put(ctx, key, "application/octet-stream", strings.NewReader("x")); err != nil {
			t.Fatal(err)
		}
	}

	listing, err := m.List(ctx, "p/", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(listing.Objects) != 2 || len(listing.Prefixes) != 0 {
		t.Errorf("unexpected listing %+v", listing)
	}
}
