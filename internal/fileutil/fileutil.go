// Package fileutil provides the filesystem helpers shared by the pipeline
// stages: non-recursive directory listings and the filename splitting rules
// the corpus naming convention relies on.
package fileutil

import (
	"os"
	"path/filepath"
	"strings"
)

// ListFileNames returns the names of the regular files directly inside dir in
// lexicographic order. Subdirectories are not descended into; symlinks that
// resolve to regular files are included.
func ListFileNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !entry.Type().IsRegular() {
			info, err := os.Stat(filepath.Join(dir, entry.Name()))
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// SplitExt splits a filename at its final dot: "abc,10.00,15.50.wav" yields
// ("abc,10.00,15.50", ".wav"). Names with no dot, and dotfiles like
// ".gitignore", have an empty extension.
func SplitExt(name string) (base, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return name, ""
	}
	return name[:i], name[i:]
}

// Base strips the extension from a filename.
func Base(name string) string {
	base, _ := SplitExt(name)
	return base
}
