package simpleindex_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/git-pkgs/simpleindex"
	"github.com/git-pkgs/simpleindex/store"
)

func TestPublishThroughFacade(t *testing.T) {
	st := store.NewMemStore()
	sync, err := simpleindex.New(st, simpleindex.S3BaseURL("bucket", "simple"), "simple")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	dist := &simpleindex.Distribution{
		Filename:      "demo-1.0.tar.gz",
		Name:          "demo",
		Version:       "1.0",
		PackageType:   "sdist",
		PythonVersion: "source",
		MD5Digest:     "0123456789abcdef0123456789abcdef",
		SHA256Digest:  strings.Repeat("cd", 32),
	}

	ctx := context.Background()
	if err := sync.Publish(ctx, dist, strings.NewReader("content")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	body, err := st.Get(ctx, "simple/demo/")
	if err != nil {
		t.Fatalf("expected project page, got %v", err)
	}
	page, _ := io.ReadAll(body)
	body.Close()
	if !strings.Contains(string(page), "demo-1.0.tar.gz") {
		t.Errorf("project page missing file link:\n%s", page)
	}

	published, err := sync.IsPublished(ctx, dist, false)
	if err != nil {
		t.Fatal(err)
	}
	if !published {
		t.Error("expected distribution to report published")
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := simpleindex.New(store.NewMemStore(), "", "simple")
	if err == nil {
		t.Fatal("expected error for missing base URL")
	}
}

func TestS3BaseURL(t *testing.T) {
	tests := []struct {
		bucket string
		prefix string
		want   string
	}{
		{"my-bucket", "simple", "https://my-bucket.s3.amazonaws.com/simple/"},
		{"my-bucket", "/simple/", "https://my-bucket.s3.amazonaws.com/simple/"},
		{"my-bucket", "", "https://my-bucket.s3.amazonaws.com/"},
	}
	for _, tt := range tests {
		if got := simpleindex.S3BaseURL(tt.bucket, tt.prefix); got != tt.want {
			t.Errorf("S3BaseURL(%q, %q) = %q, want %q", tt.bucket, tt.prefix, got, tt.want)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	if got := simpleindex.NormalizeName("Typing.Extensions"); got != "typing-extensions" {
		t.Errorf("NormalizeName = %q", got)
	}
}

func TestResolveProjectRejectsForeignPURL(t *testing.T) {
	if _, err := simpleindex.ResolveProject("pkg:npm/left-pad"); err == nil {
		t.Error("expected error for non-pypi PURL")
	}
}

func TestCheckUnknownProjectReportsEmpty(t *testing.T) {
	st := store.NewMemStore()
	sync, err := simpleindex.New(st, simpleindex.S3BaseURL("bucket", "simple"), "simple")
	if err != nil {
		t.Fatal(err)
	}

	report, err := sync.Check(context.Background(), "ghost")
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Projects) != 1 || !report.Projects[0].Empty {
		t.Errorf("expected empty project result, got %+v", report.Projects)
	}
}
