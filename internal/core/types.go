// Package core implements the index synchronization engine: the package
// record model, the per-project index, the rendered index documents, and the
// synchronizer that keeps an object store and its derived views consistent.
package core

import (
	"regexp"
	"strings"
	"time"
)

// UploadTimeLayout is the timestamp layout used in rendered documents,
// matching the PyPI JSON API.
const UploadTimeLayout = "2006-01-02T15:04:05"

// Digests holds the content digests recorded for an uploaded file.
type Digests struct {
	MD5    string `json:"md5"`
	SHA256 string `json:"sha256"`
}

// Record is the full-fidelity entry for one uploaded file, as persisted in a
// project's manifest. Field order is the manifest wire order; it must stay
// stable so rendered manifests round-trip byte-identically.
type Record struct {
	Author                 string            `json:"author"`
	AuthorEmail            string            `json:"author_email"`
	Classifiers            []string          `json:"classifiers"`
	CommentText            string            `json:"comment_text"`
	Description            string            `json:"description"`
	DescriptionContentType string            `json:"description_content_type"`
	Digests                Digests           `json:"digests"`
	Filename               string            `json:"filename"`
	HasSig                 bool              `json:"has_sig"`
	HomePage               string            `json:"home_page"`
	Keywords               string            `json:"keywords"`
	License                string            `json:"license"`
	Maintainer             string            `json:"maintainer"`
	MaintainerEmail        string            `json:"maintainer_email"`
	MD5Digest              string            `json:"md5_digest"`
	Name                   string            `json:"name"`
	PackageType            string            `json:"packagetype"`
	Platform               string            `json:"platform"`
	ProjectURLs            map[string]string `json:"project_urls"`
	PythonVersion          string            `json:"python_version"`
	RequiresDist           []string          `json:"requires_dist"`
	RequiresPython         string            `json:"requires_python"`
	Size                   int64             `json:"size"`
	Summary                string            `json:"summary"`
	UploadTime             string            `json:"upload_time"`
	Version                string            `json:"version"`
	ETag                   string            `json:"etag"`
}

// SafeName returns the normalized project name for this record.
func (r Record) SafeName() string {
	return NormalizeName(r.Name)
}

// Distribution is the structured description of one package file handed to
// the engine by the metadata extractor (or derived from the filename during a
// rebuild). The engine never inspects artifact bytes itself.
type Distribution struct {
	Filename      string
	Name          string
	Version       string
	PackageType   string // "sdist", "bdist_wheel", "bdist_egg"
	PythonVersion string // "source" or a wheel python tag

	MD5Digest    string
	SHA256Digest string
	Size         int64

	Comment                string
	Author                 string
	AuthorEmail            string
	Maintainer             string
	MaintainerEmail        string
	Summary                string
	Description            string
	DescriptionContentType string
	HomePage               string
	License                string
	Keywords               string
	Platform               string
	Classifiers            []string
	RequiresDist           []string
	RequiresPython         string
	ProjectURLs            map[string]string

	// Signature is an optional detached signature uploaded next to the file.
	Signature []byte
}

// SafeName returns the normalized project name.
func (d *Distribution) SafeName() string {
	return NormalizeName(d.Name)
}

// SignedFilename returns the key suffix of the detached signature.
func (d *Distribution) SignedFilename() string {
	return d.Filename + ".asc"
}

// Validate checks that the fields required to index the distribution are
// present.
func (d *Distribution) Validate() error {
	switch {
	case d.Filename == "":
		return &InvalidArtifactError{Reason: "missing filename"}
	case d.Name == "":
		return &InvalidArtifactError{Filename: d.Filename, Reason: "missing name"}
	case d.Version == "":
		return &InvalidArtifactError{Filename: d.Filename, Reason: "missing version"}
	case d.MD5Digest == "" || d.SHA256Digest == "":
		return &InvalidArtifactError{Filename: d.Filename, Reason: "missing digests"}
	}
	if _, err := parseVersion(d.Version); err != nil {
		return &InvalidVersionError{Project: d.SafeName(), Version: d.Version, Err: err}
	}
	return nil
}

// NewRecord builds a manifest record from a validated distribution and the
// revision token returned by the object store for the completed upload.
func NewRecord(d *Distribution, uploadTime time.Time, etag string) (Record, error) {
	if err := d.Validate(); err != nil {
		return Record{}, err
	}

	platform := d.Platform
	if platform == "UNKNOWN" {
		platform = ""
	}

	return Record{
		Author:                 d.Author,
		AuthorEmail:            d.AuthorEmail,
		Classifiers:            d.Classifiers,
		CommentText:            d.Comment,
		Description:            d.Description,
		DescriptionContentType: d.DescriptionContentType,
		Digests: Digests{
			MD5:    d.MD5Digest,
			SHA256: d.SHA256Digest,
		},
		Filename:        d.Filename,
		HasSig:          d.Signature != nil,
		HomePage:        d.HomePage,
		Keywords:        d.Keywords,
		License:         d.License,
		Maintainer:      d.Maintainer,
		MaintainerEmail: d.MaintainerEmail,
		MD5Digest:       d.MD5Digest,
		Name:            d.Name,
		PackageType:     d.PackageType,
		Platform:        platform,
		ProjectURLs:     d.ProjectURLs,
		PythonVersion:   d.PythonVersion,
		RequiresDist:    d.RequiresDist,
		RequiresPython:  d.RequiresPython,
		Size:            d.Size,
		Summary:         d.Summary,
		UploadTime:      uploadTime.UTC().Format(UploadTimeLayout),
		Version:         d.Version,
		ETag:            etag,
	}, nil
}

var normalizeRegex = regexp.MustCompile(`[-_.]+`)

// NormalizeName returns the PEP 503 normalized form of a project name:
// lowercase, with runs of '-', '_' and '.' collapsed to single hyphens.
func NormalizeName(name string) string {
	return strings.ToLower(normalizeRegex.ReplaceAllString(name, "-"))
}
