package ffmpeg

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
)

// Decode reads path as mono 32-bit float PCM at the requested sample rate,
// resampling when the source differs. It returns the samples and the rate
// they were decoded at.
func (c *Client) Decode(ctx context.Context, path string, rate int) ([]float32, int, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, 0, errors.New("ffmpeg decode: empty path")
	}
	if rate <= 0 {
		return nil, 0, fmt.Errorf("ffmpeg decode: non-positive sample rate %d", rate)
	}

	args := []string{
		"-loglevel", "error",
		"-i", path,
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ac", "1",
		"-ar", strconv.Itoa(rate),
		"-",
	}

	var detail lastLines
	raw, err := c.exec.Output(ctx, c.binary, args, detail.add)
	if err != nil {
		return nil, 0, fmt.Errorf("ffmpeg decode %s: %w%s", filepath.Base(path), err, detail.suffix())
	}
	samples, err := bytesToSamples(raw)
	if err != nil {
		return nil, 0, fmt.Errorf("ffmpeg decode %s: %w", filepath.Base(path), err)
	}
	return samples, rate, nil
}

func bytesToSamples(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("truncated PCM stream: %d bytes", len(raw))
	}
	samples := make([]float32, len(raw)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		samples[i] = math.Float32frombits(bits)
	}
	return samples, nil
}
