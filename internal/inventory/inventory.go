// Package inventory resolves the audio-availability index consulted during
// spec extraction.
//
// The index answers one question: is audio available under a given name? It
// can be built from a directory of audio files or from a manifest listing one
// filename per line. Either way entries are reduced to their base name, so
// "abc123.wav" and the line "abc123.wav\n" both make "abc123" available.
package inventory

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"tabset/internal/fileutil"
)

// Index is the set of base names audio is available under.
type Index struct {
	names  map[string]struct{}
	source string
}

// Load builds the index from path: a directory contributes every regular
// file's base name, a regular file is read as a manifest. Anything else is an
// error.
func Load(path string) (*Index, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("audio index %s: %w", path, err)
	}
	if info.IsDir() {
		return loadDirectory(path)
	}
	if info.Mode().IsRegular() {
		return loadManifest(path)
	}
	return nil, fmt.Errorf("audio index %s: neither a directory nor a manifest file", path)
}

func loadDirectory(dir string) (*Index, error) {
	names, err := fileutil.ListFileNames(dir)
	if err != nil {
		return nil, fmt.Errorf("audio index %s: %w", dir, err)
	}
	ix := &Index{names: make(map[string]struct{}, len(names)), source: dir}
	for _, name := range names {
		ix.names[fileutil.Base(name)] = struct{}{}
	}
	return ix, nil
}

func loadManifest(path string) (*Index, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio index %s: %w", path, err)
	}
	defer file.Close()

	ix := &Index{names: make(map[string]struct{}), source: path}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ix.names[fileutil.Base(line)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audio index %s: %w", path, err)
	}
	return ix, nil
}

// Contains reports whether audio is available under the given base name.
func (ix *Index) Contains(name string) bool {
	_, ok := ix.names[name]
	return ok
}

// Len returns the number of distinct base names in the index.
func (ix *Index) Len() int {
	return len(ix.names)
}

// Source returns the path the index was built from.
func (ix *Index) Source() string {
	return ix.source
}
