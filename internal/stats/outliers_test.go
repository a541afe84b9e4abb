package stats

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestExcludeOutliers_SmallSampleUnchanged(t *testing.T) {
	cfg := DefaultOutlierConfig()
	require.Equal(t, []float64{}, ExcludeOutliers([]float64{}, cfg))
	require.Equal(t, []float64{99999}, ExcludeOutliers([]float64{99999}, cfg))
}

func TestExcludeOutliers_DropsFarValues(t *testing.T) {
	values := []float64{600, 610, 590, 605, 595, 600, 610, 590, 605, 595, 600, 610, 590, 605, 595, 30000}
	got := ExcludeOutliers(values, DefaultOutlierConfig())

	want := values[:len(values)-1]
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ExcludeOutliers() mismatch (-want +got):\n%s", diff)
	}
}

func TestExcludeOutliers_KeepsUniformSample(t *testing.T) {
	values := []float64{300, 300, 300}
	require.Equal(t, values, ExcludeOutliers(values, DefaultOutlierConfig()))
}

func TestOutlierMask(t *testing.T) {
	values := []float64{10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 1000}
	mask := OutlierMask(values, OutlierConfig{Threshold: 3})
	require.False(t, mask[len(mask)-1])
	for _, keep := range mask[:len(mask)-1] {
		require.True(t, keep)
	}
}

func TestCutoffUsesSampleStdDev(t *testing.T) {
	// mean 2, sample stddev 1
	require.InDelta(t, 5.0, Cutoff([]float64{1, 2, 3}, 3), 1e-9)
}

func TestSummarize(t *testing.T) {
	require.Equal(t, Summary{}, Summarize(nil))
	s := Summarize([]float64{4, 1, 7})
	require.Equal(t, 3, s.Count)
	require.InDelta(t, 4.0, s.Mean, 1e-9)
	require.Equal(t, 1.0, s.Min)
	require.Equal(t, 7.0, s.Max)
	require.Zero(t, Mean(nil))
}
