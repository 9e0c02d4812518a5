package tfrecord

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrCorrupt reports a record whose checksum does not match its contents.
var ErrCorrupt = errors.New("tfrecord: corrupt record")

// Reader iterates the records of a framed stream, verifying checksums.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps r for sequential record reads.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the payload of the next record, or io.EOF at a clean end of
// stream. A stream that ends mid-record yields io.ErrUnexpectedEOF.
func (r *Reader) Next() ([]byte, error) {
	var header [12]byte
	if _, err := io.ReadFull(r.r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read record header: %w", err)
	}
	length := binary.LittleEndian.Uint64(header[:8])
	if got := binary.LittleEndian.Uint32(header[8:]); got != maskedCRC(header[:8]) {
		return nil, fmt.Errorf("%w: length checksum mismatch", ErrCorrupt)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		return nil, fmt.Errorf("read record payload: %w", err)
	}
	var footer [4]byte
	if _, err := io.ReadFull(r.r, footer[:]); err != nil {
		return nil, fmt.Errorf("read record checksum: %w", err)
	}
	if got := binary.LittleEndian.Uint32(footer[:]); got != maskedCRC(payload) {
		return nil, fmt.Errorf("%w: payload checksum mismatch", ErrCorrupt)
	}
	return payload, nil
}
