package repository

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Applier validates and applies a patch file to a working tree.
type Applier interface {
	// Check performs a dry run; it must not modify the tree.
	Check(ctx context.Context, patchPath string) error
	Apply(ctx context.Context, patchPath string) error
}

// GitApplier applies patches with `git apply`. Patch paths are relative to the
// target directory, so when the target sits inside a repository the command
// runs from the repository top level with --directory set to the target's
// prefix.
type GitApplier struct {
	WorkDir string
	Prefix  string
}

// NewGitApplier locates the repository containing targetDir. Outside a
// repository git apply behaves like patch(1) and runs in targetDir itself.
func NewGitApplier(ctx context.Context, targetDir string) *GitApplier {
	top, err := git(ctx, targetDir, "rev-parse", "--show-toplevel")
	if err != nil {
		slog.Debug("Target is not inside a git repository", "dir", targetDir)
		return &GitApplier{WorkDir: targetDir}
	}

	prefix, err := git(ctx, targetDir, "rev-parse", "--show-prefix")
	if err != nil {
		slog.Warn("Failed to resolve repository prefix", "dir", targetDir, "error", err)
		return &GitApplier{WorkDir: targetDir}
	}

	return &GitApplier{
		WorkDir: strings.TrimSpace(top),
		Prefix:  strings.TrimSuffix(strings.TrimSpace(prefix), "/"),
	}
}

func (g *GitApplier) Check(ctx context.Context, patchPath string) error {
	_, err := git(ctx, g.WorkDir, g.applyArgs(patchPath, "--check")...)
	return err
}

func (g *GitApplier) Apply(ctx context.Context, patchPath string) error {
	_, err := git(ctx, g.WorkDir, g.applyArgs(patchPath)...)
	return err
}

func (g *GitApplier) applyArgs(patchPath string, extra ...string) []string {
	args := []string{"apply", "-p0"}
	if g.Prefix != "" {
		args = append(args, "--directory="+g.Prefix)
	}
	args = append(args, extra...)
	return append(args, patchPath)
}

// GitError carries the stderr of a failed git invocation.
type GitError struct {
	Args   []string
	Err    error
	Stderr string
}

func (e *GitError) Error() string {
	return fmt.Sprintf("git %s failed: %v: %s", strings.Join(e.Args, " "), e.Err, strings.TrimSpace(e.Stderr))
}

func (e *GitError) Unwrap() error { return e.Err }

func git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var out bytes.Buffer
	var errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	if err := cmd.Run(); err != nil {
		return "", &GitError{Args: args, Err: err, Stderr: errb.String()}
	}
	return out.String(), nil
}
