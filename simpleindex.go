// Package simpleindex publishes Python package distributions into a flat
// object store and maintains the derived index documents (per-project
// manifests, PyPI-shaped JSON metadata, and PEP 503 HTML pages) that let
// standard installer clients discover and fetch them.
//
// The object store is the single source of truth for package binaries; every
// document the package writes is a materialized, idempotently rebuildable
// view over it.
//
// Basic usage:
//
//	client, err := store.NewS3Client(ctx, "us-east-1", "", "")
//	if err != nil {
//		log.Fatal(err)
//	}
//	st := store.NewBreakerStore(store.NewS3Store(client, "my-bucket"))
//
//	sync, err := simpleindex.New(st, simpleindex.S3BaseURL("my-bucket", "simple"), "simple")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	dist, err := simpleindex.DistributionFromFile("dist/requests-2.31.0.tar.gz")
//	if err != nil {
//		log.Fatal(err)
//	}
//	f, _ := os.Open("dist/requests-2.31.0.tar.gz")
//	defer f.Close()
//	if err := sync.Publish(ctx, dist, f); err != nil {
//		log.Fatal(err)
//	}
package simpleindex

import (
	"github.com/git-pkgs/simpleindex/internal/core"
)

// Re-export types from internal/core
type (
	// Synchronizer drives publishing, rebuilding, and checking of the index.
	Synchronizer = core.Synchronizer

	// Option configures a Synchronizer.
	Option = core.Option

	// Record is the full-fidelity manifest entry for one uploaded file.
	Record = core.Record

	// Digests holds the content digests recorded for an uploaded file.
	Digests = core.Digests

	// Distribution describes one package file handed to the engine.
	Distribution = core.Distribution

	// MetadataExtractor recovers descriptive metadata from artifact bytes
	// during a rebuild.
	MetadataExtractor = core.MetadataExtractor

	// Project is the in-memory index of one project's uploads.
	Project = core.Project

	// MetadataDoc is the PyPI-shaped metadata document.
	MetadataDoc = core.MetadataDoc

	// RepoURLs builds the public URLs embedded in rendered documents.
	RepoURLs = core.RepoURLs

	// RebuildReport summarizes one rebuild pass.
	RebuildReport = core.RebuildReport

	// CheckReport is the audit result of one check pass.
	CheckReport = core.CheckReport

	// ProjectCheck is the audit result for one project.
	ProjectCheck = core.ProjectCheck

	// ArtifactCheck is the audit result for one recorded file.
	ArtifactCheck = core.ArtifactCheck

	// ArtifactState classifies one recorded artifact against the store.
	ArtifactState = core.ArtifactState
)

// Artifact audit states.
const (
	StateOK      = core.StateOK
	StateMissing = core.StateMissing
	StateChanged = core.StateChanged
)

// Error types
type (
	InvalidArtifactError = core.InvalidArtifactError
	InvalidVersionError  = core.InvalidVersionError
	PublishError         = core.PublishError
	NotFoundError        = core.NotFoundError
)

// ErrEmptyProject is returned when metadata is requested for a project or
// release with no records.
var ErrEmptyProject = core.ErrEmptyProject

// New creates a synchronizer over the given store. baseURL is the public
// address rendered into documents; prefix is the key prefix the repository
// lives under.
var New = core.New

// Options
var (
	WithLogger            = core.WithLogger
	WithConcurrency       = core.WithConcurrency
	WithMetadataExtractor = core.WithMetadataExtractor
)

// NormalizeName returns the PEP 503 normalized form of a project name.
var NormalizeName = core.NormalizeName

// ResolveProject turns a project selector, either a plain name or a pkg:pypi
// package URL, into a normalized project name.
var ResolveProject = core.ResolveProject

// DistributionFromFile builds a Distribution from a local distribution
// file: identity from the filename, digests and size from the content.
var DistributionFromFile = core.DistributionFromFile

// ParseFilename derives a distribution's identity from its filename alone.
var ParseFilename = core.ParseFilename

// S3BaseURL returns the virtual-hosted-style public URL for a bucket and
// prefix, the default repository address.
var S3BaseURL = core.S3BaseURL
