package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Cut writes the [start, start+duration) range of src to dest. The output
// format follows dest's extension; ogg output is encoded with libvorbis.
// ffmpeg runs with -n, so an existing dest is never overwritten.
func (c *Client) Cut(ctx context.Context, src string, start, duration float64, dest string) error {
	src = strings.TrimSpace(src)
	if src == "" {
		return errors.New("ffmpeg cut: empty source path")
	}
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return errors.New("ffmpeg cut: empty destination path")
	}
	if duration <= 0 {
		return fmt.Errorf("ffmpeg cut: non-positive duration %v", duration)
	}

	args := []string{
		"-loglevel", "error", "-n",
		"-ss", formatSeconds(start),
		"-t", formatSeconds(duration),
		"-i", src,
	}
	if strings.EqualFold(filepath.Ext(dest), ".ogg") {
		args = append(args, "-codec:a", "libvorbis", "-strict", "experimental")
	}
	args = append(args, dest)

	var detail lastLines
	if err := c.exec.Run(ctx, c.binary, args, detail.add); err != nil {
		return fmt.Errorf("ffmpeg cut %s: %w%s", filepath.Base(dest), err, detail.suffix())
	}
	return nil
}

// lastLines retains the tail of a process's diagnostic output for error
// reporting.
type lastLines struct {
	lines []string
}

const lastLineLimit = 4

func (l *lastLines) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	l.lines = append(l.lines, line)
	if len(l.lines) > lastLineLimit {
		l.lines = l.lines[len(l.lines)-lastLineLimit:]
	}
}

func (l *lastLines) suffix() string {
	if len(l.lines) == 0 {
		return ""
	}
	return ": " + strings.Join(l.lines, "; ")
}
