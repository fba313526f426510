package core

import (
	pep440 "github.com/aquasecurity/go-pep440-version"
)

// parseVersion parses a PEP 440 version string. Pre-releases order below the
// final release of the same numeric tuple, so "1.0rc1" < "1.0" < "2.0".
func parseVersion(s string) (pep440.Version, error) {
	return pep440.Parse(s)
}
