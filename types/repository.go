package types

// Issue is the text the patch is generated for.
type Issue struct {
	Number int
	Title  string
	Body   string
}

// FileSnapshot maps an absolute file path to its content at read time.
type FileSnapshot map[string]string

// PatchEntry is the unified diff generated for a single file.
type PatchEntry struct {
	Path    string
	Diff    string
	Added   int
	Removed int
}
