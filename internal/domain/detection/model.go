package detection

import (
	"encoding/json"
	"fmt"
)

// Box is an axis-aligned bounding box in pixel coordinates.
type Box struct {
	X1 float64
	Y1 float64
	X2 float64
	Y2 float64
}

// Area returns the box area, zero for degenerate boxes.
func (b Box) Area() float64 {
	w := b.X2 - b.X1
	h := b.Y2 - b.Y1
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// MarshalJSON encodes the box as [x1, y1, x2, y2].
func (b Box) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.X1, b.Y1, b.X2, b.Y2})
}

// UnmarshalJSON decodes a box from [x1, y1, x2, y2].
func (b *Box) UnmarshalJSON(data []byte) error {
	var coords []float64
	if err := json.Unmarshal(data, &coords); err != nil {
		return fmt.Errorf("decoding box: %w", err)
	}
	if len(coords) != 4 {
		return fmt.Errorf("box needs 4 coordinates, got %d", len(coords))
	}
	*b = Box{X1: coords[0], Y1: coords[1], X2: coords[2], Y2: coords[3]}
	return nil
}

// Detection is one person detection from the upstream detector.
type Detection struct {
	Box        Box     `json:"box"`
	Confidence float64 `json:"confidence"`
}

// TrackerBox is one box emitted by the upstream tracker with its raw track id.
type TrackerBox struct {
	RawID      string  `json:"raw_id"`
	Box        Box     `json:"box"`
	Confidence float64 `json:"confidence"`
}

// Tracked is a detection labeled with its stable identity.
type Tracked struct {
	Identity   string  `json:"identity"`
	Box        Box     `json:"box"`
	Confidence float64 `json:"confidence"`
}
