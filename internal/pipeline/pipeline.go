// Package pipeline reads and writes chart frame streams via stdin/stdout in
// JSONL format, the canonical pipe format. A frame is one slot plus its
// chart specification, as written by dashboard.JSONSurface.
package pipeline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/derickschaefer/tally/internal/dashboard"
)

// ReadFrames reads JSONL frames from r. Blank lines and lines starting with
// "//" are skipped. Every frame must name a known chart kind and carry one
// value per label in each dataset.
func ReadFrames(r io.Reader) ([]dashboard.Frame, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	var frames []dashboard.Frame
	lineNum := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lineNum++
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		var f dashboard.Frame
		if err := json.Unmarshal([]byte(line), &f); err != nil {
			return nil, fmt.Errorf("line %d: invalid JSON: %w", lineNum, err)
		}
		if !f.Spec.Kind.Valid() {
			return nil, fmt.Errorf("line %d: unknown chart kind %q", lineNum, f.Spec.Kind)
		}
		for _, ds := range f.Spec.Datasets {
			if len(ds.Data) != len(f.Spec.Labels) {
				return nil, fmt.Errorf("line %d: dataset %q has %d values for %d labels",
					lineNum, ds.Label, len(ds.Data), len(f.Spec.Labels))
			}
		}
		if f.Slot == "" {
			f.Slot = fmt.Sprintf("frame-%d", len(frames)+1)
		}
		frames = append(frames, f)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no chart frames read from input (is stdin empty?)")
	}
	return frames, nil
}

// WriteFrames writes frames as JSONL to w.
func WriteFrames(w io.Writer, frames []dashboard.Frame) error {
	enc := json.NewEncoder(w)
	for _, f := range frames {
		if err := enc.Encode(f); err != nil {
			return err
		}
	}
	return nil
}

// IsTTY returns true if f is a terminal (not a pipe or file).
func IsTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
