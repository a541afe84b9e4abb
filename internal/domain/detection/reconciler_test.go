package detection

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func box(x1, y1, x2, y2 float64) Box {
	return Box{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

func TestReconcile_Empty(t *testing.T) {
	r := NewReconciler(0, nil)
	out := r.Reconcile(nil, []TrackerBox{{RawID: "7", Box: box(0, 0, 10, 10)}})
	require.Empty(t, out)
	require.Zero(t, r.Identities().Len())
	require.Zero(t, r.Identities().Last())
}

func TestReconcile_MatchesTrackerAndKeepsIdentity(t *testing.T) {
	r := NewReconciler(0, nil)
	tracks := []TrackerBox{{RawID: "42", Box: box(0, 0, 10, 10)}}

	first := r.Reconcile([]Detection{{Box: box(1, 1, 10, 10), Confidence: 0.9}}, tracks)
	second := r.Reconcile([]Detection{{Box: box(0, 0, 9, 9), Confidence: 0.8}}, tracks)

	require.Len(t, first, 1)
	require.Equal(t, "1", first[0].Identity)
	require.Equal(t, 0.9, first[0].Confidence)
	require.Equal(t, first[0].Identity, second[0].Identity)
}

func TestReconcile_NoTrackerOutputAllocatesDistinctIdentities(t *testing.T) {
	r := NewReconciler(0, nil)
	dets := []Detection{
		{Box: box(0, 0, 10, 10)},
		{Box: box(50, 50, 60, 60)},
		{Box: box(100, 100, 110, 110)},
	}

	out := r.Reconcile(dets, nil)
	require.Len(t, out, 3)
	require.Equal(t, "1", out[0].Identity)
	require.Equal(t, "2", out[1].Identity)
	require.Equal(t, "3", out[2].Identity)
}

func TestReconcile_ThresholdIsStrict(t *testing.T) {
	r := NewReconciler(0.3, nil)
	// IoU of these boxes is 1/3, above 0.3.
	out := r.Reconcile(
		[]Detection{{Box: box(0, 0, 10, 10)}},
		[]TrackerBox{{RawID: "a", Box: box(5, 0, 15, 10)}},
	)
	require.Equal(t, "1", out[0].Identity)
	require.Equal(t, "1", r.Reconcile(
		[]Detection{{Box: box(5, 0, 15, 10)}},
		[]TrackerBox{{RawID: "a", Box: box(5, 0, 15, 10)}},
	)[0].Identity)

	strict := NewReconciler(1.0/3.0, nil)
	out = strict.Reconcile(
		[]Detection{{Box: box(0, 0, 10, 10)}},
		[]TrackerBox{{RawID: "a", Box: box(5, 0, 15, 10)}},
	)
	again := strict.Reconcile(
		[]Detection{{Box: box(0, 0, 10, 10)}},
		[]TrackerBox{{RawID: "a", Box: box(5, 0, 15, 10)}},
	)
	require.NotEqual(t, out[0].Identity, again[0].Identity, "IoU not exceeding the threshold must not match")
}

func TestReconcile_TieGoesToFirstTrackerBox(t *testing.T) {
	r := NewReconciler(0, nil)
	det := Detection{Box: box(0, 0, 10, 10)}
	tracks := []TrackerBox{
		{RawID: "first", Box: box(0, 0, 10, 10)},
		{RawID: "second", Box: box(0, 0, 10, 10)},
	}

	out := r.Reconcile([]Detection{det}, tracks)
	require.Equal(t, "1", out[0].Identity)

	// "first" is already mapped to 1; a frame with only "first" must reuse it.
	out = r.Reconcile([]Detection{det}, tracks[:1])
	require.Equal(t, "1", out[0].Identity)

	// "second" was never mapped, so it allocates 2.
	out = r.Reconcile([]Detection{det}, tracks[1:])
	require.Equal(t, "2", out[0].Identity)
}

func TestReconcile_IdentitiesAreMonotonic(t *testing.T) {
	r := NewReconciler(0, nil)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		out := r.Reconcile([]Detection{{Box: box(0, 0, 10, 10)}}, nil)
		require.False(t, seen[out[0].Identity], "identity %s reused", out[0].Identity)
		seen[out[0].Identity] = true
	}
	require.EqualValues(t, 20, r.Identities().Last())
}

func TestIdentityMap_Seed(t *testing.T) {
	ids := NewIdentityMap()
	ids.Seed(41)
	require.Equal(t, "42", ids.Stable("x"))
	ids.Seed(10)
	require.Equal(t, "43", ids.Stable("y"))
	require.Equal(t, "42", ids.Stable("x"))
}
