package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/git-pkgs/simpleindex/store"
)

const (
	contentTypeJSON   = "application/json"
	contentTypeHTML   = "text/html"
	contentTypeBinary = "application/octet-stream"

	defaultConcurrency = 4
)

// MetadataExtractor recovers descriptive metadata from an artifact's bytes
// during a rebuild. Implementations parse the distribution's own metadata
// format; the engine only consumes the resulting record.
type MetadataExtractor interface {
	Extract(ctx context.Context, filename string, body io.Reader) (*Distribution, error)
}

// Synchronizer keeps a repository's derived documents consistent with its
// object store. It owns the per-project index cache; the store is the only
// durable authority and the cache is rebuilt from it on any doubt.
type Synchronizer struct {
	store       store.ObjectStore
	keys        keySet
	urls        *RepoURLs
	log         *slog.Logger
	concurrency int
	extractor   MetadataExtractor
	now         func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	cache map[string]*Project
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithLogger sets the logger used for per-artifact and per-project skip
// reporting during batch operations.
func WithLogger(log *slog.Logger) Option {
	return func(s *Synchronizer) {
		s.log = log
	}
}

// WithConcurrency bounds how many projects rebuild and check process in
// parallel. Size it to what the storage backend comfortably absorbs.
func WithConcurrency(n int) Option {
	return func(s *Synchronizer) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithMetadataExtractor supplies an extractor that recovers descriptive
// metadata from artifact bytes during rebuilds. Without one, rebuilds carry
// only what the filename and the object itself provide.
func WithMetadataExtractor(e MetadataExtractor) Option {
	return func(s *Synchronizer) {
		s.extractor = e
	}
}

// New creates a synchronizer over the given store. baseURL is the public
// address rendered into documents; prefix is the key prefix the repository
// lives under, normalized to a trailing slash.
func New(st store.ObjectStore, baseURL, prefix string, opts ...Option) (*Synchronizer, error) {
	if baseURL == "" {
		return nil, errors.New("base URL is required")
	}

	s := &Synchronizer{
		store:       st,
		keys:        newKeySet(prefix),
		urls:        NewRepoURLs(baseURL),
		log:         slog.Default(),
		concurrency: defaultConcurrency,
		now:         time.Now,
		locks:       make(map[string]*sync.Mutex),
		cache:       make(map[string]*Project),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// URLs returns the repository URL builder.
func (s *Synchronizer) URLs() *RepoURLs {
	return s.urls
}

// lockProject returns the mutex serializing mutations of one project.
// Projects lock independently so batch work stays parallel across projects.
func (s *Synchronizer) lockProject(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	mu, ok := s.locks[name]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[name] = mu
	}
	return mu
}

func (s *Synchronizer) cachedProject(name string) (*Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.cache[name]
	return p, ok
}

func (s *Synchronizer) storeProject(p *Project) {
	s.mu.Lock()
	s.cache[p.Name()] = p
	s.mu.Unlock()
}

func (s *Synchronizer) dropProject(name string) {
	s.mu.Lock()
	delete(s.cache, name)
	s.mu.Unlock()
}

// loadProject returns the project's index, from cache unless bypassed, else
// seeded from the persisted manifest. A missing manifest yields an empty
// index: that is the normal first-publish case, not an error. Records whose
// versions no longer parse are skipped with a warning. The result is cached
// only when commit is true; read-only paths leave the cache untouched.
func (s *Synchronizer) loadProject(ctx context.Context, name string, bypassCache, commit bool) (*Project, error) {
	if !bypassCache {
		if p, ok := s.cachedProject(name); ok {
			return p, nil
		}
	}

	p := NewProject(name, s.urls)

	body, err := s.store.Get(ctx, s.keys.manifest(name))
	switch {
	case errors.Is(err, store.ErrNotFound):
		// Nothing persisted yet.
	case err != nil:
		return nil, fmt.Errorf("loading manifest for %s: %w", name, err)
	default:
		defer body.Close()
		data, readErr := io.ReadAll(body)
		if readErr != nil {
			return nil, fmt.Errorf("reading manifest for %s: %w", name, readErr)
		}
		records, parseErr := ParseManifest(data)
		if parseErr != nil {
			return nil, parseErr
		}
		for _, rec := range records {
			if insertErr := p.Insert(rec); insertErr != nil {
				s.log.Warn("skipping manifest record",
					"project", name, "filename", rec.Filename, "error", insertErr)
			}
		}
	}

	if commit {
		s.storeProject(p)
	}
	return p, nil
}

// Publish uploads one distribution and regenerates every document that
// references it. The artifact is durably written before any document, so a
// reader never follows a reference to a missing blob. Writes are independent
// puts with no rollback; a partial failure surfaces as PublishError and is
// repaired by re-running publish or rebuild.
func (s *Synchronizer) Publish(ctx context.Context, dist *Distribution, content io.Reader) error {
	if err := dist.Validate(); err != nil {
		return err
	}

	name := dist.SafeName()
	mu := s.lockProject(name)
	mu.Lock()
	defer mu.Unlock()

	etag, err := s.store.Put(ctx, s.keys.file(name, dist.Filename), contentTypeBinary, content)
	if err != nil {
		return &PublishError{Stage: "artifact", Err: err}
	}

	if dist.Signature != nil {
		sigKey := s.keys.signature(name, dist.Filename)
		if _, err := s.store.Put(ctx, sigKey, contentTypeBinary, strings.NewReader(string(dist.Signature))); err != nil {
			return &PublishError{Stage: "signature", Err: err}
		}
	}

	rec, err := NewRecord(dist, s.now(), etag)
	if err != nil {
		return err
	}

	p, err := s.loadProject(ctx, name, false, true)
	if err != nil {
		return &PublishError{Stage: "manifest-load", Err: err}
	}
	if err := p.Insert(rec); err != nil {
		return err
	}

	if err := s.writeManifest(ctx, p); err != nil {
		return &PublishError{Stage: "manifest", Err: err}
	}
	if err := s.writeReleaseDocs(ctx, p, rec.Version); err != nil {
		return &PublishError{Stage: "release-docs", Err: err}
	}
	if err := s.writeProjectDocs(ctx, p); err != nil {
		return &PublishError{Stage: "project-docs", Err: err}
	}
	if err := s.refreshCatalog(ctx, nil); err != nil {
		return &PublishError{Stage: "catalog", Err: err}
	}
	return nil
}

// IsPublished reports whether a file with the distribution's filename is
// already recorded for its project. This is a filename check only, by
// design: it never compares digests and never downloads anything, so a
// re-upload with different content still reports true. Callers deciding
// whether to skip an upload accept that weak guarantee in exchange for a
// single manifest read.
func (s *Synchronizer) IsPublished(ctx context.Context, dist *Distribution, bypassCache bool) (bool, error) {
	p, err := s.loadProject(ctx, dist.SafeName(), bypassCache, true)
	if err != nil {
		return false, err
	}
	for _, rec := range p.Manifest() {
		if rec.Filename == dist.Filename {
			return true, nil
		}
	}
	return false, nil
}

// discoverProjects lists the top-level namespace and returns normalized
// project names in sorted order.
func (s *Synchronizer) discoverProjects(ctx context.Context) ([]string, error) {
	listing, err := s.store.List(ctx, s.keys.prefix, "/")
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	names := make([]string, 0, len(listing.Prefixes))
	for _, p := range listing.Prefixes {
		name := strings.TrimSuffix(strings.TrimPrefix(p, s.keys.prefix), "/")
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// RebuildReport summarizes one rebuild pass.
type RebuildReport struct {
	// Rebuilt holds projects whose documents were regenerated.
	Rebuilt []string
	// Dropped holds projects that had no recoverable artifacts and were
	// removed from the catalog and the cache.
	Dropped []string
	// Failed holds projects skipped because of an unrecoverable error.
	Failed []ProjectError
}

// ProjectError pairs a project name with the error that sidelined it.
type ProjectError struct {
	Project string
	Err     error
}

// Rebuild reconstructs project indexes from stored artifacts alone, ignoring
// any persisted manifest: the store is ground truth, and freshly computed
// digests and sizes always overwrite whatever was recorded before. With no
// arguments every discovered project is rebuilt. One unreadable artifact
// skips that artifact; one failing project skips that project; the batch
// always runs to completion. The catalog page is rendered once at the end,
// with projects that came up empty dropped from it.
func (s *Synchronizer) Rebuild(ctx context.Context, projects ...string) (*RebuildReport, error) {
	names := projects
	if len(names) == 0 {
		discovered, err := s.discoverProjects(ctx)
		if err != nil {
			return nil, err
		}
		names = discovered
	}

	report := &RebuildReport{}
	var reportMu sync.Mutex

	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	for _, name := range names {
		// Stop submitting between projects on cancellation; in-flight
		// projects run to completion so no half-rebuilt index is cached.
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(name string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			p, err := s.rebuildProject(ctx, name)
			reportMu.Lock()
			defer reportMu.Unlock()
			switch {
			case err != nil:
				s.log.Warn("skipping project", "project", name, "error", err)
				report.Failed = append(report.Failed, ProjectError{Project: name, Err: err})
			case p.Len() == 0:
				report.Dropped = append(report.Dropped, name)
			default:
				report.Rebuilt = append(report.Rebuilt, name)
			}
		}(name)
	}
	wg.Wait()

	sort.Strings(report.Rebuilt)
	sort.Strings(report.Dropped)
	sort.Slice(report.Failed, func(i, j int) bool {
		return report.Failed[i].Project < report.Failed[j].Project
	})

	exclude := make(map[string]bool, len(report.Dropped))
	for _, name := range report.Dropped {
		exclude[name] = true
	}
	if err := s.refreshCatalog(ctx, exclude); err != nil {
		return report, err
	}
	return report, ctx.Err()
}

// rebuildProject reconstructs one project from its stored artifacts. The
// rebuilt index is committed to the cache only after its documents are
// written, so an interrupted rebuild never leaves a partial index cached.
func (s *Synchronizer) rebuildProject(ctx context.Context, name string) (*Project, error) {
	mu := s.lockProject(name)
	mu.Lock()
	defer mu.Unlock()

	prefix := s.keys.projectPrefix(name)
	listing, err := s.store.List(ctx, prefix, "")
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", name, err)
	}

	signatures := make(map[string]bool)
	for _, obj := range listing.Objects {
		if strings.HasSuffix(obj.Key, signatureSuffix) {
			signatures[strings.TrimSuffix(path.Base(obj.Key), signatureSuffix)] = true
		}
	}

	p := NewProject(name, s.urls)
	for _, obj := range listing.Objects {
		rest := strings.TrimPrefix(obj.Key, prefix)
		if isDocumentKey(rest) {
			continue
		}

		rec, err := s.recoverRecord(ctx, obj, signatures)
		if err != nil {
			s.log.Warn("skipping unreadable artifact",
				"project", name, "key", obj.Key, "error", err)
			continue
		}
		if err := p.Insert(rec); err != nil {
			s.log.Warn("skipping artifact", "project", name, "key", obj.Key, "error", err)
		}
	}

	if p.Len() == 0 {
		// A catalog must never point at an empty project.
		s.dropProject(name)
		return p, nil
	}

	if err := s.writeManifest(ctx, p); err != nil {
		return nil, err
	}
	for _, release := range p.Releases() {
		if err := s.writeReleaseDocs(ctx, p, release.Version); err != nil {
			return nil, err
		}
	}
	if err := s.writeProjectDocs(ctx, p); err != nil {
		return nil, err
	}

	s.storeProject(p)
	return p, nil
}

// recoverRecord reconstructs a manifest record for one stored artifact,
// fetching its content to recompute digests and size. A detached signature
// next to the artifact marks the record signed; its absence is normal.
func (s *Synchronizer) recoverRecord(ctx context.Context, obj store.Object, signatures map[string]bool) (Record, error) {
	filename := path.Base(obj.Key)

	body, err := s.store.Get(ctx, obj.Key)
	if err != nil {
		return Record{}, fmt.Errorf("fetching artifact: %w", err)
	}
	defer body.Close()

	var dist *Distribution
	if s.extractor != nil {
		dist, err = s.extractor.Extract(ctx, filename, body)
		if err != nil {
			return Record{}, fmt.Errorf("extracting metadata: %w", err)
		}
	} else {
		dist, err = DistributionFromObject(filename, body)
		if err != nil {
			return Record{}, err
		}
	}

	if signatures[filename] {
		dist.Signature = []byte{}
	}

	return NewRecord(dist, obj.LastModified, obj.ETag)
}

// RefreshCatalog re-renders only the repository catalog page. Names that
// exist as prefixes but have neither a cached index nor a persisted manifest
// are not yet materialized and stay out of the catalog.
func (s *Synchronizer) RefreshCatalog(ctx context.Context) error {
	return s.refreshCatalog(ctx, nil)
}

func (s *Synchronizer) refreshCatalog(ctx context.Context, exclude map[string]bool) error {
	names, err := s.discoverProjects(ctx)
	if err != nil {
		return err
	}

	known := make([]string, 0, len(names))
	for _, name := range names {
		if exclude[name] {
			continue
		}
		if _, ok := s.cachedProject(name); ok {
			known = append(known, name)
			continue
		}
		_, found, err := s.store.Head(ctx, s.keys.manifest(name))
		if err != nil {
			return fmt.Errorf("probing manifest for %s: %w", name, err)
		}
		if found {
			known = append(known, name)
		}
	}

	page := RenderCatalogPage(s.urls, known)
	if _, err := s.store.Put(ctx, s.keys.catalog(), contentTypeHTML, strings.NewReader(string(page))); err != nil {
		return fmt.Errorf("writing catalog: %w", err)
	}
	return nil
}

// ArtifactState classifies one recorded artifact against the store.
type ArtifactState string

const (
	// StateOK means the stored revision token matches the recorded one.
	StateOK ArtifactState = "ok"
	// StateMissing means the object is gone from the store.
	StateMissing ArtifactState = "missing"
	// StateChanged means the object exists with a different revision token.
	StateChanged ArtifactState = "changed"
)

// ArtifactCheck is the audit result for one recorded file.
type ArtifactCheck struct {
	Filename     string
	State        ArtifactState
	RecordedETag string
	ActualETag   string
}

// ProjectCheck is the audit result for one project.
type ProjectCheck struct {
	Project string
	// Empty flags a project whose manifest holds no records.
	Empty     bool
	Artifacts []ArtifactCheck
	Err       error
}

// CheckReport is the audit result for one check pass, ordered by project.
type CheckReport struct {
	Projects []ProjectCheck
}

// Check audits recorded state against the store without downloading
// artifacts or writing anything: each recorded file gets one existence and
// revision probe. The cache is read but never modified.
func (s *Synchronizer) Check(ctx context.Context, projects ...string) (*CheckReport, error) {
	names := projects
	if len(names) == 0 {
		discovered, err := s.discoverProjects(ctx)
		if err != nil {
			return nil, err
		}
		names = discovered
	}

	results := make([]ProjectCheck, len(names))

	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	for i, name := range names {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			results[i] = s.checkProject(ctx, name)
		}(i, name)
	}
	wg.Wait()

	// Cancellation can leave slots for projects that were never submitted;
	// the report carries only what was actually checked.
	report := &CheckReport{}
	for _, result := range results {
		if result.Project != "" {
			report.Projects = append(report.Projects, result)
		}
	}
	sort.Slice(report.Projects, func(i, j int) bool {
		return report.Projects[i].Project < report.Projects[j].Project
	})
	return report, ctx.Err()
}

func (s *Synchronizer) checkProject(ctx context.Context, name string) ProjectCheck {
	result := ProjectCheck{Project: name}

	p, err := s.loadProject(ctx, name, false, false)
	if err != nil {
		result.Err = err
		return result
	}

	records := p.Manifest()
	if len(records) == 0 {
		result.Empty = true
		s.log.Warn("project manifest is empty", "project", name)
		return result
	}

	for _, rec := range records {
		check := ArtifactCheck{
			Filename:     rec.Filename,
			RecordedETag: rec.ETag,
		}

		obj, found, err := s.store.Head(ctx, s.keys.file(name, rec.Filename))
		switch {
		case err != nil:
			result.Err = err
			return result
		case !found:
			check.State = StateMissing
		case obj.ETag == rec.ETag:
			check.State = StateOK
			check.ActualETag = obj.ETag
		default:
			check.State = StateChanged
			check.ActualETag = obj.ETag
		}
		result.Artifacts = append(result.Artifacts, check)
	}
	return result
}

func (s *Synchronizer) writeManifest(ctx context.Context, p *Project) error {
	data, err := RenderManifest(p.Manifest())
	if err != nil {
		return err
	}
	_, err = s.store.Put(ctx, s.keys.manifest(p.Name()), contentTypeJSON, strings.NewReader(string(data)))
	return err
}

// writeReleaseDocs writes the metadata document and page for one release.
func (s *Synchronizer) writeReleaseDocs(ctx context.Context, p *Project, version string) error {
	doc, err := p.Metadata(version)
	if err != nil {
		return err
	}
	data, err := RenderMetadata(doc)
	if err != nil {
		return err
	}
	name := p.Name()
	if _, err := s.store.Put(ctx, s.keys.releaseJSON(name, version), contentTypeJSON, strings.NewReader(string(data))); err != nil {
		return err
	}

	page, err := RenderReleasePage(p, version)
	if err != nil {
		return err
	}
	_, err = s.store.Put(ctx, s.keys.releasePage(name, version), contentTypeHTML, strings.NewReader(string(page)))
	return err
}

// writeProjectDocs writes the project-level metadata document and page.
func (s *Synchronizer) writeProjectDocs(ctx context.Context, p *Project) error {
	doc, err := p.Metadata("")
	if err != nil {
		return err
	}
	data, err := RenderMetadata(doc)
	if err != nil {
		return err
	}
	name := p.Name()
	if _, err := s.store.Put(ctx, s.keys.projectJSON(name), contentTypeJSON, strings.NewReader(string(data))); err != nil {
		return err
	}

	page := RenderProjectPage(p)
	_, err = s.store.Put(ctx, s.keys.projectPage(name), contentTypeHTML, strings.NewReader(string(page)))
	return err
}
