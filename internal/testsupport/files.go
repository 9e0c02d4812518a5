package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"tabset/internal/tabs"
)

// WriteFile writes data to path, creating parent directories as needed.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// TouchFiles creates empty files with the given names under dir.
func TouchFiles(t testing.TB, dir string, names ...string) {
	t.Helper()

	for _, name := range names {
		WriteFile(t, filepath.Join(dir, name), nil)
	}
}

// WriteSpec marshals a clip annotation and writes it under dir using the
// clip's composite name with a .json extension. It returns the file path.
func WriteSpec(t testing.TB, dir string, d tabs.Descriptor) string {
	t.Helper()

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal spec: %v", err)
	}
	path := filepath.Join(dir, d.ClipKey().Filename(".json"))
	WriteFile(t, path, data)
	return path
}
