package patch

import (
	"fmt"
	"strings"

	"aipr/types"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	contextLines   = 3
	noNewlineAtEOF = "\\ No newline at end of file\n"
)

// BuildEntry diffs original against modified under label. It returns nil when
// the two texts are identical.
func BuildEntry(label, original, modified string) (*types.PatchEntry, error) {
	diff, err := UnifiedDiff(label, original, modified)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(diff) == "" {
		return nil, nil
	}

	added, removed := LineStats(original, modified)
	return &types.PatchEntry{
		Path:    label,
		Diff:    diff,
		Added:   added,
		Removed: removed,
	}, nil
}

// UnifiedDiff renders a unified diff that uses label as both the from and
// the to file name.
func UnifiedDiff(label, original, modified string) (string, error) {
	if original == modified {
		return "", nil
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(original),
		B:        splitLines(modified),
		FromFile: label,
		ToFile:   label,
		Context:  contextLines,
	})
	if err != nil {
		return "", fmt.Errorf("failed to diff %s: %w", label, err)
	}
	return diff, nil
}

// splitLines keeps line endings. A final line without one carries the
// "No newline at end of file" marker so git apply reproduces it exactly.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		return lines[:len(lines)-1]
	}
	lines[len(lines)-1] += "\n" + noNewlineAtEOF
	return lines
}

// LineStats counts lines added and removed between two texts.
func LineStats(original, modified string) (added, removed int) {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(original, modified)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	for _, d := range diffs {
		n := strings.Count(d.Text, "\n")
		if d.Text != "" && !strings.HasSuffix(d.Text, "\n") {
			n++
		}
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += n
		case diffmatchpatch.DiffDelete:
			removed += n
		}
	}
	return added, removed
}
