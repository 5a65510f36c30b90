package agents

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"aipr/packages/ai"
	"aipr/packages/repository"
	"aipr/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcCompleter func(prompt string) (string, error)

func (f funcCompleter) Complete(_ context.Context, prompt string) (string, error) {
	return f(prompt)
}

// echoCompleter returns the content embedded in the prompt unchanged.
var echoCompleter = funcCompleter(func(prompt string) (string, error) {
	start := strings.Index(prompt, "content:'") + len("content:'")
	end := strings.LastIndex(prompt, "'\n modify the content")
	return prompt[start:end], nil
})

// recordingApplier records calls and returns the configured errors.
type recordingApplier struct {
	checkErr error
	applyErr error
	checked  []string
	applied  []string
}

func (r *recordingApplier) Check(_ context.Context, patchPath string) error {
	r.checked = append(r.checked, patchPath)
	return r.checkErr
}

func (r *recordingApplier) Apply(_ context.Context, patchPath string) error {
	r.applied = append(r.applied, patchPath)
	return r.applyErr
}

func setupTarget(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func newAgent(root string, completer ai.Completer, applier repository.Applier, chunkSize int, body string) (*PatchAgent, string) {
	patchPath := filepath.Join(filepath.Dir(root), filepath.Base(root)+"-changes.patch")
	return NewPatchAgent(PatchAgentConfig{
		Issue:           types.Issue{Title: "Wrong output", Body: body},
		TargetDirectory: root,
		PatchPath:       patchPath,
		ChunkSize:       chunkSize,
		Completer:       completer,
		Applier:         applier,
	}), patchPath
}

const issueBody = "fix ./src/app.py: should print 2"

func TestExecuteWritesPatchAndApplies(t *testing.T) {
	root := setupTarget(t, map[string]string{
		"src/app.py":   "print(1)",
		"src/other.py": "print(1)",
	})
	applier := &recordingApplier{}
	var prompts []string
	completer := funcCompleter(func(prompt string) (string, error) {
		prompts = append(prompts, prompt)
		return "print(2)", nil
	})

	agent, patchPath := newAgent(root, completer, applier, 0, issueBody)
	var out bytes.Buffer
	agent.out = &out

	result, err := agent.Execute(context.Background())
	require.NoError(t, err)

	require.Len(t, prompts, 1, "only the referenced file is sent")
	assert.Contains(t, prompts[0], "filename:'src/app.py'")

	require.Len(t, result.Patches, 1)
	assert.Equal(t, "src/app.py", result.Patches[0].Path)
	assert.True(t, result.PatchWritten)
	assert.True(t, result.Checked)
	assert.True(t, result.Applied)
	assert.Equal(t, []string{patchPath}, applier.checked)
	assert.Equal(t, []string{patchPath}, applier.applied)

	data, err := os.ReadFile(patchPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "--- src/app.py\n+++ src/app.py\n")
	assert.Contains(t, string(data), "-print(1)\n")
	assert.Contains(t, string(data), "+print(2)\n")
	assert.Contains(t, out.String(), "Generated patch for src/app.py")
}

func TestExecuteEndpointFailureWritesNothing(t *testing.T) {
	root := setupTarget(t, map[string]string{"src/app.py": "print(1)"})
	applier := &recordingApplier{}
	completer := funcCompleter(func(string) (string, error) {
		return "", &ai.TransportError{Op: "call completion endpoint", Err: errors.New("connection refused")}
	})

	agent, patchPath := newAgent(root, completer, applier, 0, issueBody)
	result, err := agent.Execute(context.Background())
	require.NoError(t, err)

	assert.Empty(t, result.Patches)
	assert.False(t, result.PatchWritten)
	assert.Equal(t, []string{filepath.Join(root, "src", "app.py")}, result.UnchangedFiles)
	assert.Equal(t, []string{filepath.Join(root, "src", "app.py")}, result.FailedFiles)
	assert.NoFileExists(t, patchPath)
	assert.Empty(t, applier.checked)
	assert.Empty(t, applier.applied)
}

func TestExecuteChunkModesAgree(t *testing.T) {
	content := "print(1)\nprint('a somewhat longer line')\n"
	for _, chunkSize := range []int{0, 10} {
		root := setupTarget(t, map[string]string{"src/app.py": content})
		applier := &recordingApplier{}

		agent, patchPath := newAgent(root, echoCompleter, applier, chunkSize, issueBody)
		result, err := agent.Execute(context.Background())
		require.NoError(t, err)

		assert.Empty(t, result.Patches, "chunk size %d", chunkSize)
		assert.Len(t, result.UnchangedFiles, 1, "chunk size %d", chunkSize)
		assert.NoFileExists(t, patchPath)
		assert.Empty(t, applier.checked)
	}
}

func TestExecuteCheckFailureSkipsApply(t *testing.T) {
	root := setupTarget(t, map[string]string{"src/app.py": "print(1)"})
	applier := &recordingApplier{checkErr: errors.New("patch does not apply")}
	completer := funcCompleter(func(string) (string, error) { return "print(2)", nil })

	agent, _ := newAgent(root, completer, applier, 0, issueBody)
	result, err := agent.Execute(context.Background())
	require.NoError(t, err)

	assert.True(t, result.PatchWritten)
	assert.False(t, result.Checked)
	assert.False(t, result.Applied)
	assert.EqualError(t, result.CheckError, "patch does not apply")
	assert.Len(t, applier.checked, 1)
	assert.Empty(t, applier.applied)
}

func TestExecuteApplyFailureIsReported(t *testing.T) {
	root := setupTarget(t, map[string]string{"src/app.py": "print(1)"})
	applier := &recordingApplier{applyErr: errors.New("tree changed")}
	completer := funcCompleter(func(string) (string, error) { return "print(2)", nil })

	agent, _ := newAgent(root, completer, applier, 0, issueBody)
	result, err := agent.Execute(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Checked)
	assert.False(t, result.Applied)
	assert.EqualError(t, result.ApplyError, "tree changed")
}

func TestExecuteNoReferencedFiles(t *testing.T) {
	root := setupTarget(t, map[string]string{"src/app.py": "print(1)"})
	applier := &recordingApplier{}
	completer := funcCompleter(func(string) (string, error) {
		t.Fatal("no file should be sent")
		return "", nil
	})

	agent, patchPath := newAgent(root, completer, applier, 0, "something is wrong somewhere")
	result, err := agent.Execute(context.Background())
	require.NoError(t, err)

	assert.Empty(t, result.ReferencedFiles)
	assert.Empty(t, result.ProcessedFiles)
	assert.NoFileExists(t, patchPath)
}

func TestExecuteMissingTarget(t *testing.T) {
	agent, _ := newAgent(filepath.Join(t.TempDir(), "missing"), echoCompleter, &recordingApplier{}, 0, issueBody)
	_, err := agent.Execute(context.Background())
	assert.Error(t, err)
}

func TestExecuteEndToEndWithGit(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}

	root := setupTarget(t, map[string]string{"src/app.py": "print(1)"})
	cmd := exec.Command("git", "init", "-q")
	cmd.Dir = root
	require.NoError(t, cmd.Run())

	completer := funcCompleter(func(string) (string, error) { return "print(2)", nil })
	applier := repository.NewGitApplier(context.Background(), root)

	agent, patchPath := newAgent(root, completer, applier, 0, issueBody)
	result, err := agent.Execute(context.Background())
	require.NoError(t, err)

	require.NoError(t, result.CheckError)
	require.NoError(t, result.ApplyError)
	assert.True(t, result.Applied)
	assert.FileExists(t, patchPath)

	data, err := os.ReadFile(filepath.Join(root, "src", "app.py"))
	require.NoError(t, err)
	assert.Equal(t, "print(2)", string(data))
}
