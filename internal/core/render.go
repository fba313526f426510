package core

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
)

// Renderers are pure: given the same index they produce the same bytes. The
// synchronizer owns all I/O.

// RenderManifest encodes the full record list. Parsing it back and rendering
// again yields identical bytes, which is what lets the manifest stand in for
// the store during normal operation.
func RenderManifest(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	return json.Marshal(records)
}

// ParseManifest decodes a rendered manifest.
func ParseManifest(data []byte) ([]Record, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return records, nil
}

// RenderMetadata encodes a metadata document.
func RenderMetadata(doc *MetadataDoc) ([]byte, error) {
	return json.Marshal(doc)
}

// RenderProjectPage renders the PEP 503 project page: one anchor per
// uploaded file across all releases, each carrying a sha256 fragment, a
// signature-presence attribute, and the requires-python constraint.
func RenderProjectPage(p *Project) []byte {
	var b strings.Builder
	pageHeader(&b, "Links for "+p.Name())
	for _, release := range p.Releases() {
		for _, rec := range release.Records {
			writeFileLink(&b, p, rec)
		}
	}
	pageFooter(&b)
	return []byte(b.String())
}

// RenderReleasePage renders the file listing for a single release.
func RenderReleasePage(p *Project, version string) ([]byte, error) {
	group, err := p.resolve(version)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	pageHeader(&b, fmt.Sprintf("Links for %s %s", p.Name(), group.label))
	for _, rec := range group.records {
		writeFileLink(&b, p, rec)
	}
	pageFooter(&b)
	return []byte(b.String()), nil
}

// RenderCatalogPage renders the repository-level listing, one link per
// project name. An empty name set renders an empty listing, not an error.
func RenderCatalogPage(urls *RepoURLs, names []string) []byte {
	var b strings.Builder
	pageHeader(&b, "Simple index")
	for _, name := range names {
		b.WriteString(`<a href="`)
		b.WriteString(html.EscapeString(urls.Project(name)))
		b.WriteString(`">`)
		b.WriteString(html.EscapeString(name))
		b.WriteString("</a><br>")
	}
	pageFooter(&b)
	return []byte(b.String())
}

func writeFileLink(b *strings.Builder, p *Project, rec Record) {
	href := p.urls.File(p.Name(), rec.Filename)
	if rec.Digests.SHA256 != "" {
		href += "#sha256=" + rec.Digests.SHA256
	}

	b.WriteString(`<a href="`)
	b.WriteString(html.EscapeString(href))
	b.WriteString(`" data-gpg-sig="`)
	if rec.HasSig {
		b.WriteString("true")
	} else {
		b.WriteString("false")
	}
	b.WriteString(`" data-requires-python="`)
	b.WriteString(html.EscapeString(rec.RequiresPython))
	b.WriteString(`">`)
	b.WriteString(html.EscapeString(rec.Filename))
	b.WriteString("</a><br>")
}

func pageHeader(b *strings.Builder, title string) {
	b.WriteString("<!DOCTYPE html><html><head><title>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</title></head><body><h1>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</h1>")
}

func pageFooter(b *strings.Builder) {
	b.WriteString("</body></html>")
}
