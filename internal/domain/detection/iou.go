package detection

import "math"

const iouEpsilon = 1e-6

// IoU returns the intersection over union of two boxes.
func IoU(a, b Box) float64 {
	ix1 := math.Max(a.X1, b.X1)
	iy1 := math.Max(a.Y1, b.Y1)
	ix2 := math.Min(a.X2, b.X2)
	iy2 := math.Min(a.Y2, b.Y2)

	inter := math.Max(0, ix2-ix1) * math.Max(0, iy2-iy1)
	return inter / (a.Area() + b.Area() - inter + iouEpsilon)
}
