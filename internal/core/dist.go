package core

import (
	"crypto/md5" //nolint:gosec // PyPI metadata carries md5 alongside sha256
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// distExtensions maps recognized distribution suffixes to package types.
var distExtensions = []struct {
	suffix      string
	packageType string
}{
	{".whl", "bdist_wheel"},
	{".egg", "bdist_egg"},
	{".tar.gz", "sdist"},
	{".tar.bz2", "sdist"},
	{".zip", "sdist"},
}

// ParseFilename derives (name, version, packagetype, python tag) from a
// distribution filename. Wheel filenames follow PEP 427; sdists are
// {name}-{version}{ext} where the version must parse under PEP 440.
func ParseFilename(filename string) (*Distribution, error) {
	var suffix, packageType string
	for _, ext := range distExtensions {
		if strings.HasSuffix(filename, ext.suffix) {
			suffix = ext.suffix
			packageType = ext.packageType
			break
		}
	}
	if suffix == "" {
		return nil, &InvalidArtifactError{Filename: filename, Reason: "unrecognized distribution extension"}
	}

	stem := strings.TrimSuffix(filename, suffix)

	if packageType == "bdist_wheel" {
		// {name}-{version}(-{build})-{python}-{abi}-{platform}.whl
		parts := strings.Split(stem, "-")
		if len(parts) < 5 {
			return nil, &InvalidArtifactError{Filename: filename, Reason: "malformed wheel filename"}
		}
		name, version, pythonTag := parts[0], parts[1], parts[len(parts)-3]
		if _, err := parseVersion(version); err != nil {
			return nil, &InvalidArtifactError{Filename: filename, Reason: fmt.Sprintf("unparsable version %q", version)}
		}
		return &Distribution{
			Filename:      filename,
			Name:          name,
			Version:       version,
			PackageType:   packageType,
			PythonVersion: pythonTag,
		}, nil
	}

	// Project names may themselves contain hyphens, so scan splits from the
	// right and take the first remainder that parses as a version.
	idx := strings.LastIndex(stem, "-")
	for idx > 0 {
		name, version := stem[:idx], stem[idx+1:]
		if _, err := parseVersion(version); err == nil {
			pythonVersion := "source"
			if packageType == "bdist_egg" {
				pythonVersion = "any"
			}
			return &Distribution{
				Filename:      filename,
				Name:          name,
				Version:       version,
				PackageType:   packageType,
				PythonVersion: pythonVersion,
			}, nil
		}
		idx = strings.LastIndex(stem[:idx], "-")
	}

	return nil, &InvalidArtifactError{Filename: filename, Reason: "cannot split name and version"}
}

// digestSet holds both recorded digests and the byte count, computed in one
// pass over the content.
type digestSet struct {
	md5Sum    [16]byte
	sha256Sum [32]byte
	size      int64
}

func hashAll(r io.Reader) (*digestSet, error) {
	md5Hasher := md5.New() //nolint:gosec // see distExtensions note
	sha256Hasher := sha256.New()

	n, err := io.Copy(io.MultiWriter(md5Hasher, sha256Hasher), r)
	if err != nil {
		return nil, err
	}

	d := &digestSet{size: n}
	copy(d.md5Sum[:], md5Hasher.Sum(nil))
	copy(d.sha256Sum[:], sha256Hasher.Sum(nil))
	return d, nil
}

func (d *digestSet) MD5() string {
	return hex.EncodeToString(d.md5Sum[:])
}

func (d *digestSet) SHA256() string {
	return hex.EncodeToString(d.sha256Sum[:])
}

// DistributionFromFile builds a Distribution from a local distribution file:
// name, version, and kind from the filename; digests and size from the
// content.
func DistributionFromFile(path string) (*Distribution, error) {
	dist, err := ParseFilename(filepath.Base(path))
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening distribution: %w", err)
	}
	defer f.Close()

	h, err := hashAll(f)
	if err != nil {
		return nil, fmt.Errorf("hashing %s: %w", path, err)
	}

	dist.MD5Digest = h.MD5()
	dist.SHA256Digest = h.SHA256()
	dist.Size = h.size
	return dist, nil
}

// DistributionFromObject builds a Distribution for a stored artifact during
// a rebuild: identity from the key's filename, digests and size computed
// from the fetched content. Stale manifest values are never merged in; the
// store is ground truth.
func DistributionFromObject(filename string, body io.Reader) (*Distribution, error) {
	dist, err := ParseFilename(filename)
	if err != nil {
		return nil, err
	}

	h, err := hashAll(body)
	if err != nil {
		return nil, fmt.Errorf("hashing %s: %w", filename, err)
	}

	dist.MD5Digest = h.MD5()
	dist.SHA256Digest = h.SHA256()
	dist.Size = h.size
	return dist, nil
}
