package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"strings"

	"github.com/git-pkgs/simpleindex"
	"github.com/git-pkgs/simpleindex/store"
)

// repoFlags holds the flags shared by every command that talks to a
// repository.
type repoFlags struct {
	bucket   string
	prefix   string
	baseURL  string
	region   string
	profile  string
	endpoint string
}

func (r *repoFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&r.bucket, "bucket", "", "S3 bucket hosting the repository (required)")
	fs.StringVar(&r.prefix, "prefix", "simple", "key prefix within the bucket that repository objects are stored under")
	fs.StringVar(&r.baseURL, "baseurl", "", "alternate base URL for generated links, instead of the S3 bucket address")
	fs.StringVar(&r.region, "region", "", "AWS region (defaults to the ambient configuration)")
	fs.StringVar(&r.profile, "profile", "", "shared-config profile used to access S3")
	fs.StringVar(&r.endpoint, "endpoint", "", "custom S3 endpoint for S3-compatible backends")
}

// synchronizer validates the shared flags and builds the engine.
func (r *repoFlags) synchronizer(ctx context.Context) (*simpleindex.Synchronizer, error) {
	if r.bucket == "" {
		return nil, fmt.Errorf("-bucket is required")
	}
	if !strings.HasSuffix(r.prefix, "/") {
		r.prefix += "/"
	}

	base := r.baseURL
	if base == "" {
		base = simpleindex.S3BaseURL(r.bucket, r.prefix)
	} else {
		parsed, err := url.Parse(base)
		if err != nil || parsed.Host == "" {
			return nil, fmt.Errorf("-baseurl must be an absolute URL")
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return nil, fmt.Errorf("-baseurl must be an HTTP or HTTPS URL")
		}
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
	}

	client, err := store.NewS3Client(ctx, r.region, r.profile, r.endpoint)
	if err != nil {
		return nil, err
	}
	st := store.NewBreakerStore(store.NewS3Store(client, r.bucket))

	return simpleindex.New(st, base, r.prefix)
}

// resolveProjects maps repeatable -project selectors to normalized names.
func resolveProjects(selectors []string) ([]string, error) {
	names := make([]string, 0, len(selectors))
	for _, sel := range selectors {
		name, err := simpleindex.ResolveProject(sel)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}
