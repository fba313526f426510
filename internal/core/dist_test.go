package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseFilenameSdist(t *testing.T) {
	dist, err := ParseFilename("requests-2.31.0.tar.gz")
	if err != nil {
		t.Fatalf("ParseFilename failed: %v", err)
	}
	if dist.Name != "requests" || dist.Version != "2.31.0" {
		t.Errorf("unexpected identity: %s %s", dist.Name, dist.Version)
	}
	if dist.PackageType != "sdist" || dist.PythonVersion != "source" {
		t.Errorf("unexpected kind: %s %s", dist.PackageType, dist.PythonVersion)
	}
}

func TestParseFilenameHyphenatedName(t *testing.T) {
	dist, err := ParseFilename("typing-extensions-4.9.0.tar.gz")
	if err != nil {
		t.Fatalf("ParseFilename failed: %v", err)
	}
	if dist.Name != "typing-extensions" || dist.Version != "4.9.0" {
		t.Errorf("unexpected identity: %s %s", dist.Name, dist.Version)
	}
}

func TestParseFilenameWheel(t *testing.T) {
	dist, err := ParseFilename("requests-2.31.0-py3-none-any.whl")
	if err != nil {
		t.Fatalf("ParseFilename failed: %v", err)
	}
	if dist.Name != "requests" || dist.Version != "2.31.0" {
		t.Errorf("unexpected identity: %s %s", dist.Name, dist.Version)
	}
	if dist.PackageType != "bdist_wheel" || dist.PythonVersion != "py3" {
		t.Errorf("unexpected kind: %s %s", dist.PackageType, dist.PythonVersion)
	}
}

func TestParseFilenameWheelWithBuildTag(t *testing.T) {
	dist, err := ParseFilename("demo-1.0-1-cp311-cp311-linux_x86_64.whl")
	if err != nil {
		t.Fatalf("ParseFilename failed: %v", err)
	}
	if dist.Name != "demo" || dist.Version != "1.0" || dist.PythonVersion != "cp311" {
		t.Errorf("unexpected parse: %+v", dist)
	}
}

func TestParseFilenameRejectsUnknownExtension(t *testing.T) {
	_, err := ParseFilename("notes.txt")
	var invalid *InvalidArtifactError
	if !errors.As(err, &invalid) {
		t.Errorf("expected InvalidArtifactError, got %v", err)
	}
}

func TestParseFilenameRejectsUnsplittable(t *testing.T) {
	_, err := ParseFilename("no_version_here.tar.gz")
	var invalid *InvalidArtifactError
	if !errors.As(err, &invalid) {
		t.Errorf("expected InvalidArtifactError, got %v", err)
	}
}

func TestDistributionFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demo-1.0.tar.gz")
	content := []byte("not really a tarball")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	dist, err := DistributionFromFile(path)
	if err != nil {
		t.Fatalf("DistributionFromFile failed: %v", err)
	}

	if dist.Size != int64(len(content)) {
		t.Errorf("expected size %d, got %d", len(content), dist.Size)
	}
	if len(dist.MD5Digest) != 32 {
		t.Errorf("unexpected md5 %q", dist.MD5Digest)
	}
	if len(dist.SHA256Digest) != 64 {
		t.Errorf("unexpected sha256 %q", dist.SHA256Digest)
	}
	if err := dist.Validate(); err != nil {
		t.Errorf("expected valid distribution, got %v", err)
	}
}
