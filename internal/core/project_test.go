package core

import (
	"errors"
	"testing"
)

func testURLs() *RepoURLs {
	return NewRepoURLs("https://bucket.s3.amazonaws.com/simple/")
}

func testRecord(name, version, filename string) Record {
	return Record{
		Digests: Digests{
			MD5:    "0123456789abcdef0123456789abcdef",
			SHA256: "deadbeef",
		},
		Filename:      filename,
		MD5Digest:     "0123456789abcdef0123456789abcdef",
		Name:          name,
		PackageType:   "sdist",
		PythonVersion: "source",
		Size:          1024,
		UploadTime:    "2024-03-01T12:00:00",
		Version:       version,
		ETag:          "etag-" + filename,
	}
}

func TestInsertReplacesSameFilename(t *testing.T) {
	p := NewProject("demo", testURLs())

	first := testRecord("demo", "1.0", "demo-1.0.tar.gz")
	if err := p.Insert(first); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	second := first
	second.Digests.SHA256 = "cafebabe"
	second.ETag = "etag-2"
	if err := p.Insert(second); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	manifest := p.Manifest()
	if len(manifest) != 1 {
		t.Fatalf("expected 1 record, got %d", len(manifest))
	}
	if manifest[0].Digests.SHA256 != "cafebabe" {
		t.Errorf("expected replacement record, got digest %q", manifest[0].Digests.SHA256)
	}
	if manifest[0].ETag != "etag-2" {
		t.Errorf("expected replacement etag, got %q", manifest[0].ETag)
	}
}

func TestInsertRejectsUnparsableVersion(t *testing.T) {
	p := NewProject("demo", testURLs())

	err := p.Insert(testRecord("demo", "not a version", "demo-bad.tar.gz"))
	var invalidVersion *InvalidVersionError
	if !errors.As(err, &invalidVersion) {
		t.Fatalf("expected InvalidVersionError, got %v", err)
	}
	if p.Len() != 0 {
		t.Errorf("index should be unchanged, has %d records", p.Len())
	}
}

func TestReleasesOrderedByVersion(t *testing.T) {
	p := NewProject("demo", testURLs())

	for _, v := range []string{"1.0", "1.0rc1", "2.0"} {
		if err := p.Insert(testRecord("demo", v, "demo-"+v+".tar.gz")); err != nil {
			t.Fatalf("Insert(%s) failed: %v", v, err)
		}
	}

	releases := p.Releases()
	got := make([]string, len(releases))
	for i, r := range releases {
		got[i] = r.Version
	}

	want := []string{"1.0rc1", "1.0", "2.0"}
	if len(got) != len(want) {
		t.Fatalf("expected %d releases, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("release %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	latest, ok := p.Latest()
	if !ok || latest != "2.0" {
		t.Errorf("expected latest 2.0, got %q (ok=%v)", latest, ok)
	}
}

func TestReleaseRecordsOrderedByKindThenFilename(t *testing.T) {
	p := NewProject("demo", testURLs())

	wheel := testRecord("demo", "1.0", "demo-1.0-py3-none-any.whl")
	wheel.PackageType = "bdist_wheel"
	sdist := testRecord("demo", "1.0", "demo-1.0.tar.gz")

	// Insert in the "wrong" order; rendering order must not depend on it.
	if err := p.Insert(sdist); err != nil {
		t.Fatal(err)
	}
	if err := p.Insert(wheel); err != nil {
		t.Fatal(err)
	}

	releases := p.Releases()
	if len(releases) != 1 {
		t.Fatalf("expected 1 release, got %d", len(releases))
	}
	records := releases[0].Records
	if records[0].PackageType != "bdist_wheel" || records[1].PackageType != "sdist" {
		t.Errorf("unexpected record order: %s, %s", records[0].PackageType, records[1].PackageType)
	}
}

func TestEquivalentVersionSpellingsShareGroup(t *testing.T) {
	p := NewProject("demo", testURLs())

	if err := p.Insert(testRecord("demo", "1.0", "demo-1.0.tar.gz")); err != nil {
		t.Fatal(err)
	}
	rec := testRecord("demo", "1.0.0", "demo-1.0.0-py3-none-any.whl")
	rec.PackageType = "bdist_wheel"
	if err := p.Insert(rec); err != nil {
		t.Fatal(err)
	}

	releases := p.Releases()
	if len(releases) != 1 {
		t.Fatalf("expected 1.0 and 1.0.0 to share a group, got %d groups", len(releases))
	}
	if len(releases[0].Records) != 2 {
		t.Errorf("expected 2 records in group, got %d", len(releases[0].Records))
	}
}

func TestMetadataEmptyProject(t *testing.T) {
	p := NewProject("demo", testURLs())

	_, err := p.Metadata("")
	if !errors.Is(err, ErrEmptyProject) {
		t.Errorf("expected ErrEmptyProject, got %v", err)
	}
}

func TestMetadataUnknownVersion(t *testing.T) {
	p := NewProject("demo", testURLs())
	if err := p.Insert(testRecord("demo", "1.0", "demo-1.0.tar.gz")); err != nil {
		t.Fatal(err)
	}

	_, err := p.Metadata("9.9")
	if !errors.Is(err, ErrEmptyProject) {
		t.Errorf("expected selection failure wrapping ErrEmptyProject, got %v", err)
	}
}

func TestMetadataResolvesLatest(t *testing.T) {
	p := NewProject("demo", testURLs())
	for _, v := range []string{"1.0", "2.0"} {
		if err := p.Insert(testRecord("demo", v, "demo-"+v+".tar.gz")); err != nil {
			t.Fatal(err)
		}
	}

	doc, err := p.Metadata("")
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}
	if doc.Info.Version != "2.0" {
		t.Errorf("expected info version 2.0, got %q", doc.Info.Version)
	}
	if doc.LastSerial != -1 {
		t.Errorf("expected last_serial -1, got %d", doc.LastSerial)
	}
	if len(doc.URLs) != 1 || doc.URLs[0].Filename != "demo-2.0.tar.gz" {
		t.Errorf("unexpected urls: %+v", doc.URLs)
	}
}

func TestURLsEscapePlus(t *testing.T) {
	u := testURLs()

	got := u.File("demo", "demo-1.0+local.tar.gz")
	want := "https://bucket.s3.amazonaws.com/simple/demo/demo-1.0%2Blocal.tar.gz"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	got = u.Release("demo", "1.0+local")
	want = "https://bucket.s3.amazonaws.com/simple/demo/1.0%2Blocal/"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"Django":         "django",
		"zope.interface": "zope-interface",
		"my__pkg":        "my-pkg",
		"A.-_B":          "a-b",
	}
	for input, want := range cases {
		if got := NormalizeName(input); got != want {
			t.Errorf("NormalizeName(%q): expected %q, got %q", input, want, got)
		}
	}
}
