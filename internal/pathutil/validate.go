// Package pathutil confines file writes requested over the network or MCP to
// directories swabber owns.
package pathutil

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// RedactPath shortens a path to .../<parent>/<base> for logs and errors.
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	parts := strings.Split(filepath.ToSlash(filepath.Clean(path)), "/")
	var kept []string
	for _, p := range parts {
		if p != "" && p != "." {
			kept = append(kept, p)
		}
	}
	if len(kept) <= 1 {
		return strings.Join(kept, "")
	}
	return ".../" + strings.Join(kept[len(kept)-2:], "/")
}

// Within resolves name against dir and returns the cleaned absolute path. A
// relative name is joined to dir; an absolute one must already lie inside it.
// Symlinks in the existing part of both paths are followed before the paths
// are compared, so a link inside dir cannot lead a write out of it. dir
// itself is never a valid target.
func Within(dir, name string) (string, error) {
	if dir == "" {
		return "", errors.New("path validation failed: no directory configured")
	}
	if strings.ContainsRune(name, 0) {
		return "", errors.New("path validation failed: name contains a null byte")
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("path validation failed: %w", err)
	}

	path := filepath.Clean(name)
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	if path == root {
		return "", fmt.Errorf("path validation failed: %q names the directory itself", RedactPath(path))
	}

	realRoot, err := resolve(root)
	if err != nil {
		return "", fmt.Errorf("path validation failed: resolving %s: %w", RedactPath(root), err)
	}
	realPath, err := resolve(path)
	if err != nil {
		return "", fmt.Errorf("path validation failed: resolving %s: %w", RedactPath(path), err)
	}
	rel, err := filepath.Rel(realRoot, realPath)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path validation failed: %q is outside %s", RedactPath(path), RedactPath(root))
	}
	return path, nil
}

// resolve follows symlinks in the longest existing prefix of path and
// appends the missing tail unchanged.
func resolve(path string) (string, error) {
	var tail []string
	for {
		resolved, err := filepath.EvalSymlinks(path)
		if err == nil {
			return filepath.Join(append([]string{resolved}, tail...)...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(path)
		if parent == path {
			return "", err
		}
		tail = append([]string{filepath.Base(path)}, tail...)
		path = parent
	}
}
