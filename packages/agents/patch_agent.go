package agents

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"aipr/packages/ai"
	"aipr/packages/patch"
	"aipr/packages/repository"
	"aipr/types"
)

// PatchAgent runs one issue through collection, rewriting, diffing and
// applying.
type PatchAgent struct {
	issue            types.Issue
	targetDir        string
	patchPath        string
	respectGitignore bool
	requester        *ai.ChangeRequester
	applier          repository.Applier
	out              io.Writer
}

// PatchAgentConfig holds the inputs of a PatchAgent
type PatchAgentConfig struct {
	Issue            types.Issue
	TargetDirectory  string
	PatchPath        string
	ChunkSize        int
	RespectGitignore bool
	Completer        ai.Completer
	Applier          repository.Applier
	// Out receives generated patches; nil discards them.
	Out io.Writer
}

// PatchResult contains the outcome of a run
type PatchResult struct {
	ReferencedFiles []string
	ProcessedFiles  []string
	UnchangedFiles  []string
	FailedFiles     []string
	Patches         []types.PatchEntry
	PatchPath       string
	PatchWritten    bool
	Checked         bool
	Applied         bool
	CheckError      error
	ApplyError      error
}

// NewPatchAgent creates a new patch agent instance
func NewPatchAgent(cfg PatchAgentConfig) *PatchAgent {
	out := cfg.Out
	if out == nil {
		out = io.Discard
	}
	targetDir, err := filepath.Abs(cfg.TargetDirectory)
	if err != nil {
		targetDir = cfg.TargetDirectory
	}
	return &PatchAgent{
		issue:            cfg.Issue,
		targetDir:        targetDir,
		patchPath:        cfg.PatchPath,
		respectGitignore: cfg.RespectGitignore,
		requester:        ai.NewChangeRequester(cfg.Completer, cfg.Issue.Body, cfg.ChunkSize),
		applier:          cfg.Applier,
		out:              out,
	}
}

// Execute runs the complete workflow. Only failures that prevent the run from
// starting are returned as errors; per-file, validation and apply failures
// are reported in the result.
func (p *PatchAgent) Execute(ctx context.Context) (*PatchResult, error) {
	slog.Info("PatchAgent: Starting", "issue", p.issue.Title, "target", p.targetDir)

	// Step 1: Read the target tree
	snapshot, err := repository.TakeSnapshot(p.targetDir, repository.SnapshotOptions{
		RespectGitignore: p.respectGitignore,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read target directory: %w", err)
	}

	// Step 2: Find the files the issue mentions
	refs := repository.ExtractFilePaths(p.issue.Body)
	referenced := repository.ResolveFilePaths(p.targetDir, refs)
	slog.Info("PatchAgent: Files referenced in issue", "count", len(referenced), "refs", refs)

	result := &PatchResult{
		ReferencedFiles: referenced,
		PatchPath:       p.patchPath,
	}

	// Step 3: Request changes and diff each referenced file
	for _, path := range p.selectFiles(snapshot, referenced) {
		entry, err := p.processFile(ctx, path, snapshot[path], result)
		if err != nil {
			slog.Error("Failed to build patch", "file", path, "error", err)
			result.FailedFiles = append(result.FailedFiles, path)
			continue
		}
		if entry != nil {
			result.Patches = append(result.Patches, *entry)
		}
	}

	// Step 4: Write the patch file
	written, err := patch.WritePatchFile(p.patchPath, result.Patches)
	if err != nil {
		return result, err
	}
	result.PatchWritten = written
	if !written {
		slog.Info("No patches generated. Skipping file creation.")
	}

	// Step 5: Validate and apply
	p.applyPatch(ctx, result)

	slog.Info("PatchAgent: Completed",
		"processed", len(result.ProcessedFiles),
		"patches", len(result.Patches),
		"applied", result.Applied)
	return result, nil
}

// selectFiles returns the snapshot paths that the issue references, sorted.
func (p *PatchAgent) selectFiles(snapshot types.FileSnapshot, referenced []string) []string {
	wanted := make(map[string]bool, len(referenced))
	for _, path := range referenced {
		wanted[path] = true
	}

	var selected []string
	for path := range snapshot {
		if wanted[path] {
			selected = append(selected, path)
		}
	}
	sort.Strings(selected)
	return selected
}

func (p *PatchAgent) processFile(ctx context.Context, path, content string, result *PatchResult) (*types.PatchEntry, error) {
	label := p.label(path)
	slog.Info("Processing file", "file", label)
	result.ProcessedFiles = append(result.ProcessedFiles, path)

	change := p.requester.RequestChanges(ctx, label, content)
	if change.Failed() {
		result.FailedFiles = append(result.FailedFiles, path)
	}

	entry, err := patch.BuildEntry(label, content, change.Content)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		slog.Info("No changes detected", "file", label)
		result.UnchangedFiles = append(result.UnchangedFiles, path)
		return nil, nil
	}

	slog.Info("Generated patch", "file", label, "added", entry.Added, "removed", entry.Removed)
	fmt.Fprintf(p.out, "Generated patch for %s:\n%s\n", label, entry.Diff)
	return entry, nil
}

// label is the path written into the diff headers, relative to the target.
func (p *PatchAgent) label(path string) string {
	rel, err := filepath.Rel(p.targetDir, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func (p *PatchAgent) applyPatch(ctx context.Context, result *PatchResult) {
	info, err := os.Stat(p.patchPath)
	if !result.PatchWritten || err != nil || info.Size() == 0 {
		slog.Info("No valid patches detected. Skipping git apply.")
		return
	}

	slog.Info("Validating patch file", "path", p.patchPath)
	if err := p.applier.Check(ctx, p.patchPath); err != nil {
		slog.Error("Patch check failed", "error", err)
		result.CheckError = err
		return
	}
	result.Checked = true

	if err := p.applier.Apply(ctx, p.patchPath); err != nil {
		slog.Error("Patch apply failed", "error", err)
		result.ApplyError = err
		return
	}
	result.Applied = true
	slog.Info("Patch applied", "path", p.patchPath, "files", len(result.Patches))
}
