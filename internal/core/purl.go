package core

import (
	"fmt"
	"strings"

	"github.com/git-pkgs/purl"
)

// ResolveProject turns a user-supplied project selector into a normalized
// project name. Selectors are either plain names or pypi package URLs
// (pkg:pypi/requests); any version component is ignored, since the engine
// operates on whole projects.
func ResolveProject(selector string) (string, error) {
	if !strings.HasPrefix(selector, "pkg:") {
		return NormalizeName(selector), nil
	}

	p, err := purl.Parse(selector)
	if err != nil {
		return "", fmt.Errorf("parsing PURL %q: %w", selector, err)
	}
	if p.Type != "pypi" {
		return "", fmt.Errorf("unsupported PURL type %q: only pypi projects can be indexed", p.Type)
	}
	return NormalizeName(p.Name), nil
}
