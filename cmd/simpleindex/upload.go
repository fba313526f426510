package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/git-pkgs/simpleindex"
)

func runUpload(args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	var repo repoFlags
	repo.register(fs)
	skipExisting := fs.Bool("skip-existing", true, "skip uploading a file whose name is already in the index")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: simpleindex upload [options] <dist>...\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("at least one distribution file is required")
	}

	ctx := context.Background()
	sync, err := repo.synchronizer(ctx)
	if err != nil {
		return err
	}

	// Detached signatures travel next to the files they sign; match them by
	// basename and attach them to the corresponding upload.
	signatures := make(map[string]string)
	var uploads []string
	for _, arg := range fs.Args() {
		if strings.HasSuffix(arg, ".asc") {
			signatures[filepath.Base(arg)] = arg
		} else {
			uploads = append(uploads, arg)
		}
	}

	slog.Info("uploading distributions", "repository", sync.URLs().Root())

	uploaded := 0
	for _, path := range uploads {
		dist, err := simpleindex.DistributionFromFile(path)
		if err != nil {
			return err
		}

		if *skipExisting {
			exists, err := sync.IsPublished(ctx, dist, false)
			if err != nil {
				return err
			}
			if exists {
				slog.Info("skipping distribution: it appears to already exist", "filename", dist.Filename)
				continue
			}
		}

		if sigPath, ok := signatures[dist.SignedFilename()]; ok {
			sig, err := os.ReadFile(sigPath)
			if err != nil {
				return fmt.Errorf("reading signature %s: %w", sigPath, err)
			}
			dist.Signature = sig
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		err = sync.Publish(ctx, dist, f)
		f.Close()
		if err != nil {
			return err
		}

		slog.Info("uploaded", "filename", dist.Filename, "project", dist.SafeName())
		uploaded++
	}

	slog.Info("done", "uploaded", uploaded, "skipped", len(uploads)-uploaded)
	return nil
}
