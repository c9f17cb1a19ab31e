// Package project creates and inspects throwaway project directories that an
// agent run operates on.
package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultName is used by Create when name is empty.
const DefaultName = "test-project"

// Project is a directory tree under test.
type Project struct {
	Path string
	Name string
	base string
}

// Create makes <base>/<name>-<unixnano>, creating base if needed.
// The returned Project's Cleanup removes the directory.
func Create(base, name string) (*Project, error) {
	if name == "" {
		name = DefaultName
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("project: creating base: %w", err)
	}
	dir := filepath.Join(base, fmt.Sprintf("%s-%d", name, time.Now().UnixNano()))
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	return &Project{Path: dir, Name: name, base: base}, nil
}

// Open wraps an existing directory for inspection. Cleanup on an opened
// Project is a no-op.
func Open(path string) *Project {
	return &Project{Path: path, Name: filepath.Base(path)}
}

func (p *Project) join(parts []string) string {
	return filepath.Join(append([]string{p.Path}, parts...)...)
}

// Exists reports whether the path built from parts exists.
func (p *Project) Exists(parts ...string) bool {
	_, err := os.Stat(p.join(parts))
	return err == nil
}

// NotExists reports whether the path built from parts is absent.
func (p *Project) NotExists(parts ...string) bool {
	_, err := os.Stat(p.join(parts))
	return errors.Is(err, fs.ErrNotExist)
}

// IsDir reports whether the path built from parts is a directory.
func (p *Project) IsDir(parts ...string) bool {
	info, err := os.Stat(p.join(parts))
	return err == nil && info.IsDir()
}

// IsFile reports whether the path built from parts is a regular file.
func (p *Project) IsFile(parts ...string) bool {
	info, err := os.Stat(p.join(parts))
	return err == nil && info.Mode().IsRegular()
}

// FileContains reports whether the file at rel contains substr. Unreadable
// files report false.
func (p *Project) FileContains(rel, substr string) bool {
	data, err := os.ReadFile(p.join([]string{rel}))
	if err != nil {
		return false
	}
	return strings.Contains(string(data), substr)
}

// ReadFile returns the contents of the file at rel.
func (p *Project) ReadFile(rel string) (string, error) {
	data, err := os.ReadFile(p.join([]string{rel}))
	if err != nil {
		return "", fmt.Errorf("project: %w", err)
	}
	return string(data), nil
}

// FindDir searches depth-first, in lexical order, for a directory named
// name and returns its path. Unreadable subtrees are skipped.
func (p *Project) FindDir(name string) (string, bool) {
	var found string
	_ = filepath.WalkDir(p.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() && path != p.Path && d.Name() == name {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	return found, found != ""
}

// Cleanup removes the project directory. Only directories strictly inside
// the base passed to Create are removed.
func (p *Project) Cleanup() error {
	if p.base == "" {
		return nil
	}
	rel, err := filepath.Rel(p.base, p.Path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("project: refusing to remove %s outside %s", p.Path, p.base)
	}
	if err := os.RemoveAll(p.Path); err != nil {
		return fmt.Errorf("project: %w", err)
	}
	return nil
}
