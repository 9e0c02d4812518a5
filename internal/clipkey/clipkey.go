// Package clipkey defines the composite identity that links annotation specs
// to the audio clips they describe.
//
// A key is a source recording ID plus the covered time range. Its encoded
// form, "id,start,end" with times fixed to two decimals, is the base filename
// shared by a spec and its clip, which is what the join stages match on.
package clipkey

import (
	"fmt"
	"strconv"
	"strings"
)

// Key identifies one annotated clip: the source recording plus the time range
// the annotation covers. Times are seconds from the start of the recording.
type Key struct {
	YoutubeID string
	Start     float64
	End       float64
}

// New builds a Key with both times snapped to the two-decimal precision the
// encoded form carries, so a key compares equal to its Parse(Encode) round trip.
func New(youtubeID string, start, end float64) Key {
	return Key{YoutubeID: youtubeID, Start: Round(start), End: Round(end)}
}

// Round snaps a time to the two-decimal precision used in encoded names.
func Round(seconds float64) float64 {
	v, _ := strconv.ParseFloat(formatSeconds(seconds), 64)
	return v
}

// Encode renders the key in the canonical "id,start,end" form used as the base
// of spec and clip filenames.
func (k Key) Encode() string {
	return k.YoutubeID + "," + formatSeconds(k.Start) + "," + formatSeconds(k.End)
}

// Filename returns the encoded key with the given extension appended. The
// extension may be supplied with or without its leading dot.
func (k Key) Filename(ext string) string {
	if ext == "" {
		return k.Encode()
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return k.Encode() + ext
}

func (k Key) String() string {
	return k.Encode()
}

// Parse inverts Encode. The recording ID itself may contain commas, so the two
// time fields are taken from the right.
func Parse(encoded string) (Key, error) {
	last := strings.LastIndexByte(encoded, ',')
	if last < 0 {
		return Key{}, fmt.Errorf("clip key %q: missing time fields", encoded)
	}
	prev := strings.LastIndexByte(encoded[:last], ',')
	if prev < 0 {
		return Key{}, fmt.Errorf("clip key %q: missing time fields", encoded)
	}
	id := encoded[:prev]
	if id == "" {
		return Key{}, fmt.Errorf("clip key %q: empty recording id", encoded)
	}
	start, err := strconv.ParseFloat(encoded[prev+1:last], 64)
	if err != nil {
		return Key{}, fmt.Errorf("clip key %q: parse start: %w", encoded, err)
	}
	end, err := strconv.ParseFloat(encoded[last+1:], 64)
	if err != nil {
		return Key{}, fmt.Errorf("clip key %q: parse end: %w", encoded, err)
	}
	return Key{YoutubeID: id, Start: start, End: end}, nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
