package patch

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"aipr/types"
)

// WritePatchFile writes all entries to path, ordered by file path and
// separated by a blank line. With no entries nothing is created and a patch
// left over from an earlier run is removed. It reports whether a file was
// written.
func WritePatchFile(path string, entries []types.PatchEntry) (bool, error) {
	if len(entries) == 0 {
		if err := os.Remove(path); err == nil {
			slog.Info("Removed stale patch file", "path", path)
		} else if !os.IsNotExist(err) {
			return false, fmt.Errorf("failed to remove stale patch file: %w", err)
		}
		return false, nil
	}

	sorted := make([]types.PatchEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Path < sorted[j].Path
	})

	file, err := os.Create(path)
	if err != nil {
		return false, fmt.Errorf("failed to create patch file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for i, entry := range sorted {
		if i > 0 {
			writer.WriteString("\n")
		}
		writer.WriteString(entry.Diff)
	}

	if err := writer.Flush(); err != nil {
		return false, fmt.Errorf("failed to write patch file: %w", err)
	}
	if err := file.Close(); err != nil {
		return false, fmt.Errorf("failed to close patch file: %w", err)
	}
	return true, nil
}
