package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/git-pkgs/simpleindex"
)

func runCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	var repo repoFlags
	repo.register(fs)
	var projects stringList
	fs.Var(&projects, "project", "check a specific project (name or pkg:pypi PURL); repeatable, default all")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: simpleindex check [options]\n\nOptions:\n")
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

	slog.Info("checking", "repository", sync.URLs().Root())

	report, err := sync.Check(ctx, names...)
	if err != nil {
		return err
	}

	problems := 0
	for _, project := range report.Projects {
		if project.Err != nil {
			slog.Error("check failed", "project", project.Project, "error", project.Err)
			problems++
			continue
		}
		if project.Empty {
			slog.Warn("manifest is empty", "project", project.Project)
			continue
		}
		for _, artifact := range project.Artifacts {
			switch artifact.State {
			case simpleindex.StateOK:
				slog.Info("ok", "project", project.Project, "filename", artifact.Filename)
			case simpleindex.StateMissing:
				slog.Warn("missing", "project", project.Project, "filename", artifact.Filename)
				problems++
			case simpleindex.StateChanged:
				slog.Warn("changed", "project", project.Project, "filename", artifact.Filename,
					"recorded", artifact.RecordedETag, "actual", artifact.ActualETag)
				problems++
			}
		}
	}

	if problems > 0 {
		return fmt.Errorf("%d problems found", problems)
	}
	return nil
}
