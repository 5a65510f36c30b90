// packages/repository/snapshot.go
package repository

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"aipr/types"

	ignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// SnapshotOptions controls which files TakeSnapshot reads.
type SnapshotOptions struct {
	// RespectGitignore skips .git and anything matched by the root .gitignore.
	RespectGitignore bool
}

// TakeSnapshot reads every regular file under root into memory, keyed by
// absolute path. Files that cannot be read are skipped with a warning; only a
// missing or unreadable root is an error.
func TakeSnapshot(root string, opts SnapshotOptions) (types.FileSnapshot, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat target directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("target %s is not a directory", absRoot)
	}

	var matcher *ignore.GitIgnore
	if opts.RespectGitignore {
		matcher = loadIgnoreRules(absRoot)
	}

	snapshot := make(types.FileSnapshot)
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == absRoot {
				return err
			}
			slog.Warn("Skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if path == absRoot {
			return nil
		}

		if opts.RespectGitignore && shouldSkip(absRoot, path, d, matcher) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		content, err := readText(path)
		if err != nil {
			slog.Warn("Skipping unreadable file", "path", path, "error", err)
			return nil
		}
		snapshot[path] = content
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", absRoot, err)
	}

	slog.Debug("Snapshot taken", "root", absRoot, "files", len(snapshot))
	return snapshot, nil
}

// readText reads a file as UTF-8, replacing invalid byte sequences with
// U+FFFD instead of failing.
func readText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	decoded, _, err := transform.Bytes(unicode.UTF8.NewDecoder(), raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return string(decoded), nil
}

func loadIgnoreRules(root string) *ignore.GitIgnore {
	matcher, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Failed to read .gitignore", "error", err)
		}
		return nil
	}
	return matcher
}

func shouldSkip(root, path string, d fs.DirEntry, matcher *ignore.GitIgnore) bool {
	if d.IsDir() && d.Name() == ".git" {
		return true
	}
	if matcher == nil {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if d.IsDir() {
		rel += "/"
	}
	return matcher.MatchesPath(rel)
}
