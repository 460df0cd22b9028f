package dataspace

import (
	"sort"
	"time"

	"github.com/rec-operation/lem-api/core/model"
)

// sample is one raw measurement retrieved from a connector.
type sample struct {
	ts    time.Time
	value float64
}

// bucketize groups samples into the horizon's 15-minute buckets. Sample
// timestamps are floored to their step start.
func bucketize(samples []sample, horizon []time.Time) [][]float64 {
	buckets := make([][]float64, len(horizon))
	if len(horizon) == 0 {
		return buckets
	}
	start := horizon[0]
	for _, s := range samples {
		idx := int(s.ts.Sub(start) / model.Step)
		if s.ts.Before(start) || idx >= len(horizon) {
			continue
		}
		buckets[idx] = append(buckets[idx], s.value)
	}
	return buckets
}

// resampleMean reduces each bucket to its mean and fills gaps by linear
// interpolation between observed buckets. Leading and trailing gaps are only
// extended by one step; anything further is reported uncovered.
func resampleMean(buckets [][]float64, horizon []time.Time) (values []float64, covered []bool) {
	values = make([]float64, len(horizon))
	covered = make([]bool, len(horizon))

	observed := make([]int, 0, len(buckets))
	for i, b := range buckets {
		if len(b) == 0 {
			continue
		}
		var sum float64
		for _, v := range b {
			sum += v
		}
		values[i] = sum / float64(len(b))
		covered[i] = true
		observed = append(observed, i)
	}
	if len(observed) == 0 {
		return values, covered
	}

	interpolate(values, covered, observed)
	return values, covered
}

// resampleSum reduces each bucket to its sum; gap handling matches
// resampleMean, with empty interior buckets interpolated.
func resampleSum(buckets [][]float64, horizon []time.Time) (values []float64, covered []bool) {
	values = make([]float64, len(horizon))
	covered = make([]bool, len(horizon))

	observed := make([]int, 0, len(buckets))
	for i, b := range buckets {
		if len(b) == 0 {
			continue
		}
		for _, v := range b {
			values[i] += v
		}
		covered[i] = true
		observed = append(observed, i)
	}
	if len(observed) == 0 {
		return values, covered
	}

	interpolate(values, covered, observed)
	return values, covered
}

// interpolate fills interior gaps linearly between observed indices and
// extends the series by at most one step at each boundary.
func interpolate(values []float64, covered []bool, observed []int) {
	sort.Ints(observed)
	for k := 0; k+1 < len(observed); k++ {
		lo, hi := observed[k], observed[k+1]
		if hi-lo <= 1 {
			continue
		}
		span := float64(hi - lo)
		for i := lo + 1; i < hi; i++ {
			frac := float64(i-lo) / span
			values[i] = values[lo] + frac*(values[hi]-values[lo])
			covered[i] = true
		}
	}

	first, last := observed[0], observed[len(observed)-1]
	if first > 0 {
		values[first-1] = values[first]
		covered[first-1] = true
	}
	if last < len(values)-1 {
		values[last+1] = values[last]
		covered[last+1] = true
	}
}

// missingDatetimes formats the uncovered steps the way the API reports them.
func missingDatetimes(horizon []time.Time, covered []bool) []string {
	var out []string
	for i, ok := range covered {
		if !ok {
			out = append(out, horizon[i].UTC().Format(apiTimeLayout))
		}
	}
	return out
}

const apiTimeLayout = "2006-01-02T15:04:05Z"
