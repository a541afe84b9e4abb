// Package ingest adapts external detector output into lifecycle frames.
package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rpggio/waitwatch/internal/domain/occupancy"
)

const maxLineBytes = 4 * 1024 * 1024

// NDJSONSource reads one JSON frame per line.
type NDJSONSource struct {
	scanner *bufio.Scanner
	line    int
}

// NewNDJSONSource reads frames from r.
func NewNDJSONSource(r io.Reader) *NDJSONSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &NDJSONSource{scanner: scanner}
}

// Next returns the next frame. Blank lines are skipped. A line that does not
// decode yields an error wrapping occupancy.ErrInvalidInput.
func (s *NDJSONSource) Next(ctx context.Context) (occupancy.Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return occupancy.Frame{}, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return occupancy.Frame{}, fmt.Errorf("reading frames: %w", err)
			}
			return occupancy.Frame{}, io.EOF
		}
		s.line++

		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		return DecodeFrame(line, s.line)
	}
}

// DecodeFrame decodes a single JSON frame; line is used in error messages.
func DecodeFrame(data []byte, line int) (occupancy.Frame, error) {
	var frame occupancy.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return occupancy.Frame{}, fmt.Errorf("%w: line %d: %v", occupancy.ErrInvalidInput, line, err)
	}
	return frame, nil
}
