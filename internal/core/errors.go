package core

import (
	"errors"
	"fmt"
)

// ErrEmptyProject is returned when metadata is requested for a project (or a
// release) that has no records.
var ErrEmptyProject = errors.New("project has no releases")

// InvalidArtifactError reports a distribution whose required fields are
// missing or malformed. The artifact is rejected; nothing else is affected.
type InvalidArtifactError struct {
	Filename string
	Reason   string
}

func (e *InvalidArtifactError) Error() string {
	if e.Filename == "" {
		return fmt.Sprintf("invalid artifact: %s", e.Reason)
	}
	return fmt.Sprintf("invalid artifact %s: %s", e.Filename, e.Reason)
}

// InvalidVersionError reports a version string that does not parse under
// PEP 440. It fails the single record carrying it, never the whole project.
type InvalidVersionError struct {
	Project string
	Version string
	Err     error
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("%s: invalid version %q: %v", e.Project, e.Version, e.Err)
}

func (e *InvalidVersionError) Unwrap() error {
	return e.Err
}

// PublishError reports which write in the publish sequence failed. Earlier
// writes are not rolled back; re-running publish is the recovery path.
type PublishError struct {
	Stage string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish failed at %s: %v", e.Stage, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// NotFoundError wraps ErrEmptyProject for a specific project/version lookup.
type NotFoundError struct {
	Project string
	Version string
}

func (e *NotFoundError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("project %s has no release %s", e.Project, e.Version)
	}
	return fmt.Sprintf("project %s has no releases", e.Project)
}

func (e *NotFoundError) Unwrap() error {
	return ErrEmptyProject
}
