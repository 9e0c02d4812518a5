package tfrecord_test

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"tabset/internal/tfrecord"
)

func readAll(t *testing.T, r *tfrecord.Reader) [][]byte {
	t.Helper()

	var records [][]byte
	for {
		payload, err := r.Next()
		if errors.Is(err, io.EOF) {
			return records
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		records = append(records, payload)
	}
}

func TestWriterReaderRoundTrip(t *testing.T) {
	payloads := [][]byte{
		[]byte("first"),
		{},
		bytes.Repeat([]byte{0xab}, 300),
	}

	var buf bytes.Buffer
	w := tfrecord.NewWriter(&buf)
	for _, payload := range payloads {
		if err := w.WriteRecord(payload); err != nil {
			t.Fatalf("WriteRecord() error = %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if got := w.Count(); got != len(payloads) {
		t.Fatalf("Count() = %d, want %d", got, len(payloads))
	}

	records := readAll(t, tfrecord.NewReader(&buf))
	if len(records) != len(payloads) {
		t.Fatalf("read %d records, want %d", len(records), len(payloads))
	}
	for i, payload := range payloads {
		if !bytes.Equal(records[i], payload) {
			t.Errorf("record %d = %q, want %q", i, records[i], payload)
		}
	}
}

func TestReaderDetectsPayloadCorruption(t *testing.T) {
	var buf bytes.Buffer
	w := tfrecord.NewWriter(&buf)
	if err := w.WriteRecord([]byte("payload")); err != nil {
		t.Fatalf("WriteRecord() error = %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	data := buf.Bytes()
	data[12] ^= 0xff

	_, err := tfrecord.NewReader(bytes.NewReader(data)).Next()
	if !errors.Is(err, tfrecord.ErrCorrupt) {
		t.Fatalf("Next() error = %v, want ErrCorrupt", err)
	}
}

func TestReaderDetectsHeaderCorruption(t *testing.T) {
	var buf bytes.Buffer
	w := tfrecord.NewWriter(&buf)
	if err := w.WriteRecord([]byte("payload")); err != nil {
		t.Fatalf("WriteRecord() error = %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	data := buf.Bytes()
	data[0] ^= 0x01

	_, err := tfrecord.NewReader(bytes.NewReader(data)).Next()
	if !errors.Is(err, tfrecord.ErrCorrupt) {
		t.Fatalf("Next() error = %v, want ErrCorrupt", err)
	}
}

func TestReaderTruncatedStream(t *testing.T) {
	var buf bytes.Buffer
	w := tfrecord.NewWriter(&buf)
	if err := w.WriteRecord([]byte("payload")); err != nil {
		t.Fatalf("WriteRecord() error = %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	data := buf.Bytes()[:buf.Len()-6]

	_, err := tfrecord.NewReader(bytes.NewReader(data)).Next()
	if err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("Next() error = %v, want truncation error", err)
	}
}

func TestFileWriterCreatesEmptyContainer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.tfrecord")

	w, err := tfrecord.Create(path)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Size() != 0 {
		t.Fatalf("empty container size = %d, want 0", info.Size())
	}
}

func TestFileWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.tfrecord")

	w, err := tfrecord.Create(path)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := w.WriteRecord([]byte("one")); err != nil {
		t.Fatalf("WriteRecord() error = %v", err)
	}
	if err := w.WriteRecord([]byte("two")); err != nil {
		t.Fatalf("WriteRecord() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()

	records := readAll(t, tfrecord.NewReader(f))
	if len(records) != 2 {
		t.Fatalf("read %d records, want 2", len(records))
	}
	if string(records[0]) != "one" || string(records[1]) != "two" {
		t.Fatalf("records = %q, %q", records[0], records[1])
	}
}
