package core

import "strings"

// Object-store key layout, rooted at the configured prefix:
//
//	{prefix}                              catalog page
//	{prefix}{project}/                    project page
//	{prefix}{project}/json                project metadata
//	{prefix}{project}/manifest.json       manifest
//	{prefix}{project}/{version}/          release page
//	{prefix}{project}/{version}/json      release metadata
//	{prefix}{project}/{filename}          artifact
//	{prefix}{project}/{filename}.asc      detached signature

const (
	manifestFilename = "manifest.json"
	metadataFilename = "json"
	signatureSuffix  = ".asc"
)

type keySet struct {
	prefix string
}

func newKeySet(prefix string) keySet {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return keySet{prefix: prefix}
}

func (k keySet) catalog() string {
	return k.prefix
}

func (k keySet) projectPrefix(name string) string {
	return k.prefix + name + "/"
}

func (k keySet) projectPage(name string) string {
	return k.projectPrefix(name)
}

func (k keySet) projectJSON(name string) string {
	return k.projectPrefix(name) + metadataFilename
}

func (k keySet) manifest(name string) string {
	return k.projectPrefix(name) + manifestFilename
}

func (k keySet) releasePage(name, version string) string {
	return k.projectPrefix(name) + version + "/"
}

func (k keySet) releaseJSON(name, version string) string {
	return k.projectPrefix(name) + version + "/" + metadataFilename
}

func (k keySet) file(name, filename string) string {
	return k.projectPrefix(name) + filename
}

func (k keySet) signature(name, filename string) string {
	return k.file(name, filename) + signatureSuffix
}

// isDocumentKey reports whether a key under a project prefix is a derived
// document or signature rather than an artifact. rest is the key with the
// project prefix stripped.
func isDocumentKey(rest string) bool {
	switch {
	case rest == "", rest == manifestFilename, rest == metadataFilename:
		return true
	case strings.HasSuffix(rest, "/"), strings.HasSuffix(rest, "/"+metadataFilename):
		return true
	case strings.HasSuffix(rest, signatureSuffix):
		return true
	}
	return false
}
