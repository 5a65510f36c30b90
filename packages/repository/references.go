package repository

import (
	"path/filepath"
	"regexp"
	"strings"
)

// filePathPattern matches path-like tokens such as ./src/app.py or /docs/a.md.
// It is a heuristic: a token must start with "/" or "./" and end in a dotted
// extension, so bare relative paths like docs/readme.md only match from their
// first slash.
var filePathPattern = regexp.MustCompile(`(\.?/[\w/.-]+\.\w+)`)

// ExtractFilePaths returns every non-overlapping path-like token in text, in
// order of appearance, duplicates included.
func ExtractFilePaths(text string) []string {
	return filePathPattern.FindAllString(text, -1)
}

// ResolveFilePath strips leading dots from ref and joins the remainder under
// dir as an absolute path.
func ResolveFilePath(dir, ref string) (string, error) {
	return filepath.Abs(filepath.Join(dir, strings.TrimLeft(ref, ".")))
}

// ResolveFilePaths resolves every reference under dir, keeping order.
func ResolveFilePaths(dir string, refs []string) []string {
	resolved := make([]string, 0, len(refs))
	for _, ref := range refs {
		abs, err := ResolveFilePath(dir, ref)
		if err != nil {
			continue
		}
		resolved = append(resolved, abs)
	}
	return resolved
}
