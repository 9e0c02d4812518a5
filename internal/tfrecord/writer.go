package tfrecord

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
)

// maskDelta is the constant TFRecord adds when masking checksums.
const maskDelta = 0xa282ead8

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// maskedCRC computes the masked CRC32C used by the TFRecord framing.
func maskedCRC(data []byte) uint32 {
	c := crc32.Checksum(data, castagnoli)
	return ((c >> 15) | (c << 17)) + maskDelta
}

// Writer appends framed records to an output stream.
type Writer struct {
	w     *bufio.Writer
	count int
}

// NewWriter wraps w for record output. Call Flush before closing the
// underlying stream.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteRecord frames payload and appends it to the stream.
func (w *Writer) WriteRecord(payload []byte) error {
	var header [12]byte
	binary.LittleEndian.PutUint64(header[:8], uint64(len(payload)))
	binary.LittleEndian.PutUint32(header[8:], maskedCRC(header[:8]))
	if _, err := w.w.Write(header[:]); err != nil {
		return fmt.Errorf("write record header: %w", err)
	}
	if _, err := w.w.Write(payload); err != nil {
		return fmt.Errorf("write record payload: %w", err)
	}
	var footer [4]byte
	binary.LittleEndian.PutUint32(footer[:], maskedCRC(payload))
	if _, err := w.w.Write(footer[:]); err != nil {
		return fmt.Errorf("write record checksum: %w", err)
	}
	w.count++
	return nil
}

// Count reports how many records have been written.
func (w *Writer) Count() int {
	return w.count
}

// Flush drains buffered output to the underlying stream.
func (w *Writer) Flush() error {
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("flush records: %w", err)
	}
	return nil
}

// FileWriter owns an on-disk record file. The file is created immediately so
// an assembly run that writes zero records still produces its container.
type FileWriter struct {
	*Writer
	f *os.File
}

// Create opens path for writing, truncating any previous content.
func Create(path string) (*FileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create record file: %w", err)
	}
	return &FileWriter{Writer: NewWriter(f), f: f}, nil
}

// Close flushes buffered records and closes the file.
func (w *FileWriter) Close() error {
	flushErr := w.Flush()
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("close record file: %w", err)
	}
	return flushErr
}
