// Package gitsync keeps local corpus checkouts in step with their upstream
// repositories. It shells out to the git CLI; command execution goes through
// a Runner so tests can script git behavior without a real repository.
package gitsync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	guideerr "github.com/Aman-CERP/guidemcp/internal/errors"
)

// Result describes the outcome of one sync.
type Result struct {
	// Revision is the commit hash of HEAD after the sync.
	Revision string

	// Changed reports whether HEAD moved (or the checkout was freshly cloned).
	Changed bool
}

// Syncer synchronizes one local checkout with its upstream.
type Syncer interface {
	Sync(ctx context.Context, upstreamURL, localPath string) (Result, error)
}

// Runner executes a git subcommand in dir and returns its trimmed stdout.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// execRunner runs the real git binary.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), msg)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// GitSyncer implements Syncer with the git CLI.
type GitSyncer struct {
	runner Runner
	logger *slog.Logger
}

// New creates a syncer backed by the installed git binary.
func New(logger *slog.Logger) *GitSyncer {
	return NewWithRunner(execRunner{}, logger)
}

// NewWithRunner creates a syncer with a custom command runner.
func NewWithRunner(r Runner, logger *slog.Logger) *GitSyncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &GitSyncer{runner: r, logger: logger}
}

// Sync clones the upstream when localPath does not exist, otherwise
// fast-forwards the existing checkout. A checkout that is dirty, that is not
// a git repository, or that tracks a different origin is never touched; those
// states need manual remediation and surface as fatal repo state errors.
func (s *GitSyncer) Sync(ctx context.Context, upstreamURL, localPath string) (Result, error) {
	if _, err := os.Stat(localPath); err != nil {
		if !os.IsNotExist(err) {
			return Result{}, guideerr.RepoStateError(
				fmt.Sprintf("stat %s: %v", localPath, err), err)
		}
		return s.clone(ctx, upstreamURL, localPath)
	}
	return s.fastForward(ctx, upstreamURL, localPath)
}

func (s *GitSyncer) clone(ctx context.Context, upstreamURL, localPath string) (Result, error) {
	s.logger.Info("cloning corpus", slog.String("upstream", upstreamURL),
		slog.String("path", localPath))

	parent := filepath.Dir(localPath)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return Result{}, guideerr.RepoStateError(
			fmt.Sprintf("create checkout parent %s: %v", parent, err), err)
	}

	if _, err := s.runner.Run(ctx, parent, "clone", "--", upstreamURL, localPath); err != nil {
		return Result{}, s.networkError(ctx, "clone failed", err)
	}

	rev, err := s.head(ctx, localPath)
	if err != nil {
		return Result{}, err
	}
	return Result{Revision: rev, Changed: true}, nil
}

func (s *GitSyncer) fastForward(ctx context.Context, upstreamURL, localPath string) (Result, error) {
	origin, err := s.runner.Run(ctx, localPath, "remote", "get-url", "origin")
	if err != nil {
		return Result{}, guideerr.New(guideerr.ErrCodeRepoState,
			fmt.Sprintf("%s is not a usable git checkout", localPath), err)
	}
	if !sameRemote(origin, upstreamURL) {
		return Result{}, guideerr.New(guideerr.ErrCodeRepoMismatch,
			fmt.Sprintf("%s tracks %s, expected %s", localPath, origin, upstreamURL), nil).
			WithDetail("origin", origin).
			WithDetail("expected", upstreamURL)
	}

	status, err := s.runner.Run(ctx, localPath, "status", "--porcelain")
	if err != nil {
		return Result{}, guideerr.New(guideerr.ErrCodeRepoState,
			fmt.Sprintf("status check failed in %s", localPath), err)
	}
	if status != "" {
		return Result{}, guideerr.New(guideerr.ErrCodeRepoDirty,
			fmt.Sprintf("%s has local modifications", localPath), nil)
	}

	before, err := s.head(ctx, localPath)
	if err != nil {
		return Result{}, err
	}

	if _, err := s.runner.Run(ctx, localPath, "fetch", "origin"); err != nil {
		return Result{}, s.networkError(ctx, "fetch failed", err)
	}
	if _, err := s.runner.Run(ctx, localPath, "merge", "--ff-only", "@{upstream}"); err != nil {
		// A non-fast-forward merge means local history diverged from
		// upstream, which is a checkout state problem, not a network one.
		return Result{}, guideerr.New(guideerr.ErrCodeRepoState,
			fmt.Sprintf("fast-forward failed in %s", localPath), err)
	}

	after, err := s.head(ctx, localPath)
	if err != nil {
		return Result{}, err
	}

	if before != after {
		s.logger.Info("corpus updated", slog.String("path", localPath),
			slog.String("from", shortRev(before)), slog.String("to", shortRev(after)))
	}
	return Result{Revision: after, Changed: before != after}, nil
}

func (s *GitSyncer) head(ctx context.Context, localPath string) (string, error) {
	rev, err := s.runner.Run(ctx, localPath, "rev-parse", "HEAD")
	if err != nil {
		return "", guideerr.New(guideerr.ErrCodeRepoState,
			fmt.Sprintf("resolve HEAD in %s", localPath), err)
	}
	return rev, nil
}

func (s *GitSyncer) networkError(ctx context.Context, msg string, cause error) *guideerr.GuideError {
	code := guideerr.ErrCodeNetworkUnavailable
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		code = guideerr.ErrCodeNetworkTimeout
	}
	return guideerr.New(code, msg, cause)
}

// sameRemote compares remote URLs ignoring a trailing ".git" and slash.
func sameRemote(a, b string) bool {
	return normalizeRemote(a) == normalizeRemote(b)
}

func normalizeRemote(u string) string {
	u = strings.TrimSuffix(strings.TrimSpace(u), "/")
	return strings.TrimSuffix(u, ".git")
}

func shortRev(rev string) string {
	if len(rev) > 8 {
		return rev[:8]
	}
	return rev
}
