package tabs

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// Parser extracts clip descriptors from a source document. Implementations
// stream descriptors through fn in document order, stopping on the first
// error fn returns. A parse is a single forward pass; documents are never
// revisited.
type Parser interface {
	Parse(ctx context.Context, path string, fn func(Descriptor) error) error
}

// ErrInvalidDocument marks per-document failures: documents that cannot be
// opened or decoded. Callers isolate these and continue with the next
// document; errors returned by fn pass through untagged.
var ErrInvalidDocument = errors.New("invalid document")

// JSONParser reads documents holding descriptors as a JSON array, a single
// object, or a concatenated stream of objects. Descriptors are decoded
// incrementally so large documents never load whole.
type JSONParser struct{}

// NewJSONParser returns the production document parser.
func NewJSONParser() *JSONParser {
	return &JSONParser{}
}

// Parse implements Parser.
func (p *JSONParser) Parse(ctx context.Context, path string, fn func(Descriptor) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrInvalidDocument, path, err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	first, err := firstNonSpace(reader)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrInvalidDocument, path, err)
	}

	dec := json.NewDecoder(reader)

	if first == '[' {
		if _, err := dec.Token(); err != nil {
			return fmt.Errorf("%w: read %s: %w", ErrInvalidDocument, path, err)
		}
		for dec.More() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var d Descriptor
			if err := dec.Decode(&d); err != nil {
				return fmt.Errorf("%w: decode descriptor in %s: %w", ErrInvalidDocument, path, err)
			}
			if err := fn(d); err != nil {
				return err
			}
		}
		if _, err := dec.Token(); err != nil {
			return fmt.Errorf("%w: read %s: %w", ErrInvalidDocument, path, err)
		}
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var d Descriptor
		if err := dec.Decode(&d); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("%w: decode descriptor in %s: %w", ErrInvalidDocument, path, err)
		}
		if err := fn(d); err != nil {
			return err
		}
	}
}

func firstNonSpace(r *bufio.Reader) (byte, error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			if err := r.UnreadByte(); err != nil {
				return 0, err
			}
			return b, nil
		}
	}
}
