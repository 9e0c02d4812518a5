package tabs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"tabset/internal/clipkey"
)

// Descriptor is one clip annotation extracted from a source document.
type Descriptor struct {
	DataSource  string          `json:"data_source"`
	AudioSource AudioSource     `json:"audio_source"`
	Key         KeySignature    `json:"key"`
	Meter       Meter           `json:"meter"`
	Melody      json.RawMessage `json:"melody,omitempty"`
	Harmony     json.RawMessage `json:"harmony,omitempty"`
}

// AudioSource references the recording segment the annotation covers.
// Times are seconds from the start of the recording.
type AudioSource struct {
	YoutubeID string  `json:"youtube_id"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// KeySignature is the annotated key, both fields as small scale-degree indexes.
type KeySignature struct {
	Tonic int `json:"tonic"`
	Mode  int `json:"mode"`
}

// Meter is the annotated meter.
type Meter struct {
	Beats           int `json:"beats"`
	BeatsPerMeasure int `json:"beats_per_measure"`
}

// ClipKey derives the identity key that names this descriptor's spec and clip
// files.
func (d Descriptor) ClipKey() clipkey.Key {
	return clipkey.New(d.AudioSource.YoutubeID, d.AudioSource.StartTime, d.AudioSource.EndTime)
}

// Validate reports whether the descriptor can name a usable clip.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.AudioSource.YoutubeID) == "" {
		return errors.New("descriptor: empty youtube id")
	}
	if !(d.AudioSource.EndTime > d.AudioSource.StartTime) {
		return fmt.Errorf("descriptor %s: end %.2f not after start %.2f",
			d.AudioSource.YoutubeID, d.AudioSource.EndTime, d.AudioSource.StartTime)
	}
	return nil
}
