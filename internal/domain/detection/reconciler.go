package detection

import "github.com/google/uuid"

// DefaultMatchThreshold is the IoU a detection must exceed to adopt a tracker id.
const DefaultMatchThreshold = 0.3

// Reconciler assigns stable identities to per-frame detections by matching
// them against the tracker's boxes. One reconciler serves one camera.
type Reconciler struct {
	threshold float64
	ids       *IdentityMap
	newRawID  func() string
}

// NewReconciler creates a reconciler. A non-positive threshold uses the default.
// A nil identity map starts a fresh one.
func NewReconciler(threshold float64, ids *IdentityMap) *Reconciler {
	if threshold <= 0 {
		threshold = DefaultMatchThreshold
	}
	if ids == nil {
		ids = NewIdentityMap()
	}
	return &Reconciler{
		threshold: threshold,
		ids:       ids,
		newRawID:  func() string { return "unmatched-" + uuid.NewString() },
	}
}

// Identities exposes the reconciler's identity map.
func (r *Reconciler) Identities() *IdentityMap {
	return r.ids
}

// Reconcile labels each detection with a stable identity.
// A detection takes the raw id of the tracker box with the highest IoU when
// that IoU exceeds the threshold; ties go to the earlier tracker box.
// Unmatched detections get a fresh identity.
func (r *Reconciler) Reconcile(dets []Detection, tracks []TrackerBox) []Tracked {
	if len(dets) == 0 {
		return []Tracked{}
	}

	out := make([]Tracked, 0, len(dets))
	for _, det := range dets {
		bestIoU := 0.0
		bestRaw := ""
		for _, tb := range tracks {
			iou := IoU(det.Box, tb.Box)
			if iou > bestIoU {
				bestIoU = iou
				bestRaw = tb.RawID
			}
		}

		raw := bestRaw
		if bestIoU <= r.threshold || raw == "" {
			raw = r.newRawID()
		}

		out = append(out, Tracked{
			Identity:   r.ids.Stable(raw),
			Box:        det.Box,
			Confidence: det.Confidence,
		})
	}
	return out
}
