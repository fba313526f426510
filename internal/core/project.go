package core

import (
	"sort"

	pep440 "github.com/aquasecurity/go-pep440-version"
)

// Project is the in-memory index of every uploaded file for one normalized
// project name. It owns the insertion-ordered record list; the version
// grouping is recomputed from that list on every change, never patched.
type Project struct {
	name    string
	urls    *RepoURLs
	records []Record
	groups  []releaseGroup // ascending by parsed version
}

type releaseGroup struct {
	version pep440.Version
	label   string // canonical version string, the JSON key
	records []Record
}

// Release is one version group in rendering order.
type Release struct {
	Version string
	Records []Record
}

// NewProject creates an empty index for a normalized project name.
func NewProject(name string, urls *RepoURLs) *Project {
	return &Project{name: name, urls: urls}
}

// Name returns the normalized project name.
func (p *Project) Name() string {
	return p.name
}

// Len returns the number of records in the index.
func (p *Project) Len() int {
	return len(p.records)
}

// Insert adds a record, replacing any existing record with the same
// filename. An upload supersedes, it never appends a duplicate. Returns
// InvalidVersionError when the record's version does not parse; the index is
// left unchanged in that case.
func (p *Project) Insert(rec Record) error {
	if _, err := parseVersion(rec.Version); err != nil {
		return &InvalidVersionError{Project: p.name, Version: rec.Version, Err: err}
	}

	kept := p.records[:0]
	for _, existing := range p.records {
		if existing.Filename != rec.Filename {
			kept = append(kept, existing)
		}
	}
	p.records = append(kept, rec)
	p.regroup()
	return nil
}

// regroup rebuilds the version grouping from the record list. Version
// strings that compare equal under PEP 440 share a group, labeled by the
// first spelling seen; within a group records order by (packagetype,
// filename) so rendering is stable across rebuilds.
func (p *Project) regroup() {
	var groups []*releaseGroup

next:
	for _, rec := range p.records {
		v, err := parseVersion(rec.Version)
		if err != nil {
			// Insert validated every record; unreachable for a live index.
			continue
		}
		for _, g := range groups {
			if g.version.Equal(v) {
				g.records = append(g.records, rec)
				continue next
			}
		}
		groups = append(groups, &releaseGroup{
			version: v,
			label:   rec.Version,
			records: []Record{rec},
		})
	}

	out := make([]releaseGroup, 0, len(groups))
	for _, g := range groups {
		sort.SliceStable(g.records, func(i, j int) bool {
			a, b := g.records[i], g.records[j]
			if a.PackageType != b.PackageType {
				return a.PackageType < b.PackageType
			}
			return a.Filename < b.Filename
		})
		out = append(out, *g)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].version.LessThan(out[j].version)
	})
	p.groups = out
}

// Manifest returns the full record list in insertion order.
func (p *Project) Manifest() []Record {
	out := make([]Record, len(p.records))
	copy(out, p.records)
	return out
}

// Releases returns the version groups in ascending version order.
func (p *Project) Releases() []Release {
	out := make([]Release, len(p.groups))
	for i, g := range p.groups {
		records := make([]Record, len(g.records))
		copy(records, g.records)
		out[i] = Release{Version: g.label, Records: records}
	}
	return out
}

// Latest returns the canonical label of the highest version present.
func (p *Project) Latest() (string, bool) {
	if len(p.groups) == 0 {
		return "", false
	}
	return p.groups[len(p.groups)-1].label, true
}

// resolve selects a version group. An empty version selects the latest.
func (p *Project) resolve(version string) (*releaseGroup, error) {
	if len(p.groups) == 0 {
		return nil, &NotFoundError{Project: p.name}
	}
	if version == "" {
		return &p.groups[len(p.groups)-1], nil
	}

	v, err := parseVersion(version)
	if err != nil {
		return nil, &InvalidVersionError{Project: p.name, Version: version, Err: err}
	}
	for i := range p.groups {
		if p.groups[i].version.Equal(v) {
			return &p.groups[i], nil
		}
	}
	return nil, &NotFoundError{Project: p.name, Version: version}
}

// URLs returns the per-file url entries for a version, latest when empty.
func (p *Project) URLs(version string) ([]URLEntry, error) {
	group, err := p.resolve(version)
	if err != nil {
		return nil, err
	}

	entries := make([]URLEntry, len(group.records))
	for i, rec := range group.records {
		entries[i] = makeURLEntry(rec, p.urls.File(p.name, rec.Filename))
	}
	return entries, nil
}

// Metadata builds the full PyPI-shaped metadata document for a version,
// latest when empty.
func (p *Project) Metadata(version string) (*MetadataDoc, error) {
	group, err := p.resolve(version)
	if err != nil {
		return nil, err
	}

	urls, err := p.URLs(group.label)
	if err != nil {
		return nil, err
	}

	// The info block reflects the newest upload in the group, matching the
	// record that last described the release.
	last := group.records[len(group.records)-1]

	return &MetadataDoc{
		Info:       makeInfo(last, p.name, p.urls),
		LastSerial: -1,
		Releases:   p.releaseMap(),
		URLs:       urls,
	}, nil
}

// releaseMap builds the version -> files mapping in ascending version order.
func (p *Project) releaseMap() ReleaseMap {
	rm := ReleaseMap{m: make(map[string][]ReleaseEntry, len(p.groups))}
	for _, g := range p.groups {
		entries := make([]ReleaseEntry, len(g.records))
		for i, rec := range g.records {
			entries[i] = makeReleaseEntry(rec, p.urls.File(p.name, rec.Filename))
		}
		rm.keys = append(rm.keys, g.label)
		rm.m[g.label] = entries
	}
	return rm
}
