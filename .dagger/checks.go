package main

import (
	"context"
	"errors"
	"fmt"

	"dagger/sift/internal/dagger"
)

const golangciLintVersion = "v2.8.0"

// linter wraps golangci-lint around goContainer so cgo and the sqlite
// headers are available to the type checker.
func (s *Sift) linter() *dagger.Golangcilint {
	install := fmt.Sprintf("github.com/golangci/golangci-lint/v2/cmd/golangci-lint@%s", golangciLintVersion)

	return dag.Golangcilint(s.Source, dagger.GolangcilintOpts{
		BaseCtr: s.goContainer().WithExec([]string{"go", "install", install}),
		Config:  s.Source.File(".golangci.yml"),
	})
}

// CheckLint reports golangci-lint findings without fixing them.
//
// +check
func (s *Sift) CheckLint(ctx context.Context) (string, error) {
	return s.linter().Check(ctx)
}

// FixLint applies golangci-lint fixes and returns the changed source.
func (s *Sift) FixLint(ctx context.Context) *dagger.Directory {
	return s.linter().Lint()
}

// CheckGoModTidy fails when "go mod tidy" would change go.mod or go.sum.
//
// +check
func (s *Sift) CheckGoModTidy(ctx context.Context) (string, error) {
	return s.checkClean(ctx, "go.mod or go.sum are not tidy: run 'go mod tidy'",
		[]string{"go", "mod", "tidy"},
		"go.mod", "go.sum",
	)
}

// CheckFmt fails when any Go file is not gofmt formatted.
//
// +check
func (s *Sift) CheckFmt(ctx context.Context) (string, error) {
	out, err := s.goContainer().
		WithExec([]string{"sh", "-c", `test -z "$(find . -name '*.go' -not -path './.dagger/*' | xargs gofmt -l)"`}).
		Stdout(ctx)
	var e *dagger.ExecError
	if errors.As(err, &e) {
		return "", errors.New("unformatted Go files: run 'gofmt -w .'")
	}
	return out, err
}

// checkClean runs cmd and fails with hint when it changes any of files.
func (s *Sift) checkClean(ctx context.Context, hint string, cmd []string, files ...string) (string, error) {
	ctr := s.goContainer()
	for _, f := range files {
		ctr = ctr.WithExec([]string{"cp", f, f + ".orig"})
	}
	ctr = ctr.WithExec(cmd)

	var diff string
	for _, f := range files {
		diff += fmt.Sprintf("diff -u %s.orig %s && ", f, f)
	}
	out, err := ctr.WithExec([]string{"sh", "-c", diff + "true"}).Stdout(ctx)

	var e *dagger.ExecError
	switch {
	case errors.As(err, &e):
		return "", fmt.Errorf("%s\n\n%s", hint, e.Stdout)
	case err != nil:
		return "", fmt.Errorf("unexpected error: %w", err)
	}
	return out, nil
}
