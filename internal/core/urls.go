package core

import (
	"fmt"
	"strings"
)

// RepoURLs builds the public URLs embedded in rendered documents. Installer
// clients require '+' in version and filename segments to be percent-encoded,
// so every built URL passes through that escaping.
type RepoURLs struct {
	base string
}

// NewRepoURLs creates a URL builder rooted at base, which is normalized to
// carry a trailing slash.
func NewRepoURLs(base string) *RepoURLs {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return &RepoURLs{base: base}
}

// S3BaseURL returns the virtual-hosted-style URL for a bucket and prefix,
// the default public address of the repository.
func S3BaseURL(bucket, prefix string) string {
	prefix = strings.TrimPrefix(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", bucket, prefix)
}

// Root returns the repository base URL.
func (u *RepoURLs) Root() string {
	return u.base
}

// Project returns the project page URL.
func (u *RepoURLs) Project(name string) string {
	return escapePlus(u.base + name + "/")
}

// Release returns the per-release page URL.
func (u *RepoURLs) Release(name, version string) string {
	return escapePlus(u.base + name + "/" + version + "/")
}

// File returns the download URL for an uploaded file.
func (u *RepoURLs) File(name, filename string) string {
	return escapePlus(u.base + name + "/" + filename)
}

// PURL returns the package URL identifier for a project or release.
func (u *RepoURLs) PURL(name, version string) string {
	normalized := NormalizeName(name)
	if version != "" {
		return fmt.Sprintf("pkg:pypi/%s@%s", normalized, version)
	}
	return fmt.Sprintf("pkg:pypi/%s", normalized)
}

func escapePlus(url string) string {
	return strings.ReplaceAll(url, "+", "%2B")
}
