package core

import (
	"bytes"
	"encoding/json"
)

// MetadataDoc is the PyPI-shaped metadata document served at
// {project}/json and {project}/{version}/json. Serial numbers and download
// counters are not tracked by this repository and render as -1.
type MetadataDoc struct {
	Info       Info       `json:"info"`
	LastSerial int        `json:"last_serial"`
	Releases   ReleaseMap `json:"releases"`
	URLs       []URLEntry `json:"urls"`
}

// Info is the descriptive block of a metadata document. Absent optional
// fields render as empty strings or explicit nulls, never as omitted keys.
type Info struct {
	Author                 string            `json:"author"`
	AuthorEmail            string            `json:"author_email"`
	Classifiers            []string          `json:"classifiers"`
	Description            string            `json:"description"`
	DescriptionContentType string            `json:"description_content_type"`
	HomePage               string            `json:"home_page"`
	Keywords               string            `json:"keywords"`
	License                string            `json:"license"`
	Maintainer             string            `json:"maintainer"`
	MaintainerEmail        string            `json:"maintainer_email"`
	Name                   string            `json:"name"`
	Platform               string            `json:"platform"`
	ProjectURLs            map[string]string `json:"project_urls"`
	RequiresDist           []string          `json:"requires_dist"`
	RequiresPython         string            `json:"requires_python"`
	Summary                string            `json:"summary"`
	Version                string            `json:"version"`
	BugtrackURL            *string           `json:"bugtrack_url"`
	DocsURL                *string           `json:"docs_url"`
	Downloads              DownloadCounts    `json:"downloads"`
	PackageURL             string            `json:"package_url"`
	ProjectURL             string            `json:"project_url"`
	ReleaseURL             string            `json:"release_url"`
}

// DownloadCounts carries the untracked download counters.
type DownloadCounts struct {
	LastDay   int `json:"last_day"`
	LastMonth int `json:"last_month"`
	LastWeek  int `json:"last_week"`
}

// ReleaseEntry is one file within a release group.
type ReleaseEntry struct {
	CommentText    string  `json:"comment_text"`
	Digests        Digests `json:"digests"`
	Filename       string  `json:"filename"`
	HasSig         bool    `json:"has_sig"`
	PackageType    string  `json:"packagetype"`
	PythonVersion  string  `json:"python_version"`
	RequiresPython string  `json:"requires_python"`
	Size           int64   `json:"size"`
	UploadTime     string  `json:"upload_time"`
	Downloads      int     `json:"downloads"`
	URL            string  `json:"url"`
}

// URLEntry is one file in the urls list of a metadata document.
type URLEntry struct {
	CommentText    string  `json:"comment_text"`
	Digests        Digests `json:"digests"`
	Filename       string  `json:"filename"`
	HasSig         bool    `json:"has_sig"`
	MD5Digest      string  `json:"md5_digest"`
	PackageType    string  `json:"packagetype"`
	PythonVersion  string  `json:"python_version"`
	RequiresPython string  `json:"requires_python"`
	Size           int64   `json:"size"`
	UploadTime     string  `json:"upload_time"`
	URL            string  `json:"url"`
}

// ReleaseMap is a version -> files mapping that marshals its keys in
// ascending PEP 440 order instead of Go's lexicographic map order.
type ReleaseMap struct {
	keys []string
	m    map[string][]ReleaseEntry
}

// Versions returns the version labels in ascending order.
func (rm ReleaseMap) Versions() []string {
	out := make([]string, len(rm.keys))
	copy(out, rm.keys)
	return out
}

// Get returns the entries for a version label.
func (rm ReleaseMap) Get(version string) []ReleaseEntry {
	return rm.m[version]
}

func (rm ReleaseMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range rm.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		valJSON, err := json.Marshal(rm.m[key])
		if err != nil {
			return nil, err
		}
		buf.Write(valJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (rm *ReleaseMap) UnmarshalJSON(data []byte) error {
	m := make(map[string][]ReleaseEntry)
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	// Key order is lost here; callers rebuilding an index go through the
	// manifest, not this document, so ordering only matters on the way out.
	rm.m = m
	rm.keys = rm.keys[:0]
	for key := range m {
		rm.keys = append(rm.keys, key)
	}
	return nil
}

func makeInfo(rec Record, safeName string, urls *RepoURLs) Info {
	projectURLs := rec.ProjectURLs
	if len(projectURLs) == 0 {
		projectURLs = map[string]string{"Homepage": rec.HomePage}
	}

	packageURL := urls.Project(safeName)

	return Info{
		Author:                 rec.Author,
		AuthorEmail:            rec.AuthorEmail,
		Classifiers:            emptyIfNil(rec.Classifiers),
		Description:            rec.Description,
		DescriptionContentType: rec.DescriptionContentType,
		HomePage:               rec.HomePage,
		Keywords:               rec.Keywords,
		License:                rec.License,
		Maintainer:             rec.Maintainer,
		MaintainerEmail:        rec.MaintainerEmail,
		Name:                   rec.Name,
		Platform:               rec.Platform,
		ProjectURLs:            projectURLs,
		RequiresDist:           emptyIfNil(rec.RequiresDist),
		RequiresPython:         rec.RequiresPython,
		Summary:                rec.Summary,
		Version:                rec.Version,
		BugtrackURL:            nil,
		DocsURL:                nil,
		Downloads:              DownloadCounts{LastDay: -1, LastMonth: -1, LastWeek: -1},
		PackageURL:             packageURL,
		ProjectURL:             packageURL,
		ReleaseURL:             urls.Release(safeName, rec.Version),
	}
}

func makeReleaseEntry(rec Record, fileURL string) ReleaseEntry {
	return ReleaseEntry{
		CommentText:    rec.CommentText,
		Digests:        rec.Digests,
		Filename:       rec.Filename,
		HasSig:         rec.HasSig,
		PackageType:    rec.PackageType,
		PythonVersion:  rec.PythonVersion,
		RequiresPython: rec.RequiresPython,
		Size:           rec.Size,
		UploadTime:     rec.UploadTime,
		Downloads:      -1,
		URL:            fileURL,
	}
}

func makeURLEntry(rec Record, fileURL string) URLEntry {
	return URLEntry{
		CommentText:    rec.CommentText,
		Digests:        rec.Digests,
		Filename:       rec.Filename,
		HasSig:         rec.HasSig,
		MD5Digest:      rec.Digests.MD5,
		PackageType:    rec.PackageType,
		PythonVersion:  rec.PythonVersion,
		RequiresPython: rec.RequiresPython,
		Size:           rec.Size,
		UploadTime:     rec.UploadTime,
		URL:            fileURL,
	}
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
