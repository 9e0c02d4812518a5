package tabs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"tabset/internal/tabs"
)

func writeDocument(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write document: %v", err)
	}
	return path
}

func collect(t *testing.T, path string) []tabs.Descriptor {
	t.Helper()
	parser := tabs.NewJSONParser()
	var got []tabs.Descriptor
	err := parser.Parse(context.Background(), path, func(d tabs.Descriptor) error {
		got = append(got, d)
		return nil
	})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	return got
}

const descriptorJSON = `{
	"data_source": "hooktheory",
	"audio_source": {"youtube_id": "abc123", "start_time": 10.0, "end_time": 15.5},
	"key": {"tonic": 3, "mode": 1},
	"meter": {"beats": 16, "beats_per_measure": 4}
}`

func TestParseArrayDocument(t *testing.T) {
	path := writeDocument(t, "[\n"+descriptorJSON+",\n"+descriptorJSON+"\n]")
	got := collect(t, path)
	if len(got) != 2 {
		t.Fatalf("expected 2 descriptors, got %d", len(got))
	}
	if got[0].AudioSource.YoutubeID != "abc123" {
		t.Fatalf("unexpected descriptor: %+v", got[0])
	}
}

func TestParseSingleObjectDocument(t *testing.T) {
	path := writeDocument(t, descriptorJSON)
	got := collect(t, path)
	if len(got) != 1 {
		t.Fatalf("expected 1 descriptor, got %d", len(got))
	}
}

func TestParseConcatenatedObjects(t *testing.T) {
	path := writeDocument(t, descriptorJSON+"\n"+descriptorJSON+"\n")
	got := collect(t, path)
	if len(got) != 2 {
		t.Fatalf("expected 2 descriptors, got %d", len(got))
	}
}

func TestParseEmptyDocument(t *testing.T) {
	for _, content := range []string{"", "  \n\t\n"} {
		path := writeDocument(t, content)
		if got := collect(t, path); len(got) != 0 {
			t.Fatalf("expected no descriptors for %q, got %d", content, len(got))
		}
	}
}

func TestParseMalformedDocument(t *testing.T) {
	path := writeDocument(t, `{"data_source": "x", `)
	parser := tabs.NewJSONParser()
	err := parser.Parse(context.Background(), path, func(tabs.Descriptor) error { return nil })
	if !errors.Is(err, tabs.ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument, got %v", err)
	}
}

func TestParseStopsOnCallbackError(t *testing.T) {
	path := writeDocument(t, "["+descriptorJSON+","+descriptorJSON+"]")
	parser := tabs.NewJSONParser()
	sentinel := errors.New("stop")
	calls := 0
	err := parser.Parse(context.Background(), path, func(tabs.Descriptor) error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected callback to run once, ran %d times", calls)
	}
}

func TestParseHonorsContextCancellation(t *testing.T) {
	path := writeDocument(t, "["+descriptorJSON+","+descriptorJSON+"]")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	parser := tabs.NewJSONParser()
	err := parser.Parse(ctx, path, func(tabs.Descriptor) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestParseMissingDocument(t *testing.T) {
	parser := tabs.NewJSONParser()
	err := parser.Parse(context.Background(), filepath.Join(t.TempDir(), "absent.json"), func(tabs.Descriptor) error { return nil })
	if !errors.Is(err, tabs.ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument, got %v", err)
	}
}
