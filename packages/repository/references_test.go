package repository

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFilePaths(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "relative and bare paths",
			text: "Please fix ./src/app.py and also docs/readme.md",
			want: []string{"./src/app.py", "/readme.md"},
		},
		{
			name: "trailing punctuation",
			text: "fix ./src/app.py: should print 2.",
			want: []string{"./src/app.py"},
		},
		{
			name: "duplicates kept in order",
			text: "/a/b.go then ./c.ts then /a/b.go",
			want: []string{"/a/b.go", "./c.ts", "/a/b.go"},
		},
		{
			name: "hyphens and nested dots",
			text: "see ./web/my-component.test.tsx",
			want: []string{"./web/my-component.test.tsx"},
		},
		{
			name: "no extension",
			text: "look at ./Makefile and /usr/bin",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFilePaths(tt.text))
		})
	}
}

func TestResolveFilePath(t *testing.T) {
	dir := t.TempDir()

	got, err := ResolveFilePath(dir, "./src/app.py")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "src", "app.py"), got)

	got, err = ResolveFilePath(dir, "/readme.md")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "readme.md"), got)

	got, err = ResolveFilePath(dir, "../up.go")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "up.go"), got)
}

func TestResolveFilePaths(t *testing.T) {
	dir := t.TempDir()
	refs := ExtractFilePaths("Please fix ./src/app.py and also docs/readme.md")

	resolved := ResolveFilePaths(dir, refs)
	require.Len(t, resolved, 2)
	for _, p := range resolved {
		assert.True(t, filepath.IsAbs(p))
		rel, err := filepath.Rel(dir, p)
		require.NoError(t, err)
		assert.NotContains(t, rel, "..")
	}
}
