package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
)

func runReindex(args []string) error {
	fs := flag.NewFlagSet("reindex", flag.ExitOnError)
	var repo repoFlags
	repo.register(fs)
	var projects stringList
	fs.Var(&projects, "project", "reindex a specific project (name or pkg:pypi PURL); repeatable, default all")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: simpleindex reindex [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	sync, err := repo.synchronizer(ctx)
	if err != nil {
		return err
	}

	names, err := resolveProjects(projects)
	if err != nil {
		return err
	}

	slog.Info("reindexing", "repository", sync.URLs().Root())

	report, err := sync.Rebuild(ctx, names...)
	if err != nil {
		return err
	}

	for _, name := range report.Rebuilt {
		slog.Info("rebuilt", "project", name)
	}
	for _, name := range report.Dropped {
		slog.Info("dropped empty project from catalog", "project", name)
	}
	for _, failure := range report.Failed {
		slog.Error("failed", "project", failure.Project, "error", failure.Err)
	}

	if len(report.Failed) > 0 {
		return fmt.Errorf("%d of %d projects failed", len(report.Failed),
			len(report.Rebuilt)+len(report.Dropped)+len(report.Failed))
	}
	return nil
}
