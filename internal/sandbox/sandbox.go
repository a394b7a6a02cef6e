// Package sandbox materializes the working directory a clibate test
// run executes its command against: writing file: literals, resolving
// copy: globs against a fixtures root, and loading include: files.
// This is the "external collaborator" spec.md §1/§6 names but leaves
// unspecified; it never touches the edit engine's line-matching logic,
// only the filesystem around it.
package sandbox

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Sandbox is a disposable directory a test run's files live in.
type Sandbox struct {
	root string
}

// New creates a fresh sandbox directory under dir (os.MkdirTemp when
// dir is ""), ready to receive WriteFile/CopyGlob calls.
func New(dir string) (*Sandbox, error) {
	root, err := os.MkdirTemp(dir, "clibate-sandbox-")
	if err != nil {
		return nil, fmt.Errorf("create sandbox: %w", err)
	}
	return &Sandbox{root: root}, nil
}

// Root returns the sandbox's absolute directory path.
func (s *Sandbox) Root() string { return s.root }

// Close removes the sandbox directory and everything under it.
func (s *Sandbox) Close() error { return os.RemoveAll(s.root) }

// Path joins a sandbox-relative path to the sandbox root.
func (s *Sandbox) Path(rel string) string { return filepath.Join(s.root, rel) }

// WriteFile materializes a file: section's literal contents at the
// given sandbox-relative path, creating parent directories as needed.
func (s *Sandbox) WriteFile(rel, contents string) error {
	dest := s.Path(rel)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("materialize %s: %w", rel, err)
	}
	if err := os.WriteFile(dest, []byte(contents), 0o644); err != nil {
		return fmt.Errorf("materialize %s: %w", rel, err)
	}
	return nil
}

// ReadFile reads a sandbox-relative file's contents.
func (s *Sandbox) ReadFile(rel string) (string, error) {
	data, err := os.ReadFile(s.Path(rel))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", rel, err)
	}
	return string(data), nil
}

// CopyGlob resolves pattern (a doublestar glob, e.g. "fixtures/**/*.conf")
// against baseDir and copies every match into the sandbox at the same
// relative path, grounded on the doublestar.PathMatch/Glob pairing
// termfx-morfx's file walker uses for include/exclude pattern
// resolution. It returns the list of sandbox-relative paths copied.
func (s *Sandbox) CopyGlob(baseDir, pattern string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(baseDir), pattern)
	if err != nil {
		return nil, fmt.Errorf("resolve glob %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("glob %q matched no files under %s", pattern, baseDir)
	}

	copied := make([]string, 0, len(matches))
	for _, rel := range matches {
		info, err := fs.Stat(os.DirFS(baseDir), rel)
		if err != nil {
			return copied, fmt.Errorf("stat %s: %w", rel, err)
		}
		if info.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(baseDir, rel))
		if err != nil {
			return copied, fmt.Errorf("copy %s: %w", rel, err)
		}
		if err := s.WriteFile(rel, string(data)); err != nil {
			return copied, err
		}
		copied = append(copied, rel)
	}
	return copied, nil
}

// LoadInclude reads an include:'d test-spec file's raw source relative
// to baseDir, for the caller to hand to specgrammar.Parse with its own
// include-chain location frame.
func LoadInclude(baseDir, path string) (string, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, path))
	if err != nil {
		return "", fmt.Errorf("include %s: %w", path, err)
	}
	return string(data), nil
}
