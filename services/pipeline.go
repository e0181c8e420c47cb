package services

import (
	"math"
	"math/rand"
	"sort"

	"car-dashboard/models"
)

// Every function in this file is a pure transform: inputs are never
// modified and missing values are excluded from every aggregate rather than
// being treated as zero. Aggregates also skip NaN and infinite values.

// finite returns the value of field when it is present and finite.
func finite(l models.Listing, field models.Field) (float64, bool) {
	v, ok := l.Number(field)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// FilterByRange returns the rows whose field value v satisfies min <= v <= max.
// Rows missing the field are dropped. An empty result is valid.
func FilterByRange(rows []models.Listing, field models.Field, min, max float64) []models.Listing {
	out := make([]models.Listing, 0, len(rows))
	for _, l := range rows {
		v, ok := l.Number(field)
		if !ok || v < min || v > max {
			continue
		}
		out = append(out, l)
	}
	return out
}

// ApplyFilters composes range filters by logical AND. The result does not
// depend on the order of filters.
func ApplyFilters(rows []models.Listing, filters ...models.RangeFilter) []models.Listing {
	if len(filters) == 0 {
		return append([]models.Listing(nil), rows...)
	}
	out := rows
	for _, f := range filters {
		out = FilterByRange(out, f.Field, f.Min, f.Max)
	}
	return out
}

// ObservedRange returns the smallest and largest present value of field.
// ok is false when no row has a value.
func ObservedRange(rows []models.Listing, field models.Field) (min, max float64, ok bool) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, l := range rows {
		v, present := finite(l, field)
		if !present {
			continue
		}
		ok = true
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if !ok {
		return 0, 0, false
	}
	return min, max, true
}

// HistogramBuckets splits [min, max] of the present values of field into
// bucketCount equal-width intervals and counts rows per interval. The last
// interval is closed on the right so the maximum is counted.
//
// No present values yields an empty slice. A single distinct value yields one
// zero-width bucket holding every present row. Bucket edges stay finite even
// when max-min exceeds the float64 range.
func HistogramBuckets(rows []models.Listing, field models.Field, bucketCount int) []models.Bucket {
	min, max, ok := ObservedRange(rows, field)
	if !ok {
		return []models.Bucket{}
	}

	if min == max {
		n := 0
		for _, l := range rows {
			if _, present := finite(l, field); present {
				n++
			}
		}
		return []models.Bucket{{Start: min, End: max, Count: n}}
	}

	if bucketCount < 1 {
		bucketCount = 1
	}
	n := float64(bucketCount)
	span := max - min
	// A span beyond the float64 range is split without forming max-min.
	overflow := math.IsInf(span, 0)
	width := span / n
	if overflow {
		width = max/n - min/n
	}

	edge := func(i int) float64 {
		if overflow {
			return lerp(min, max, float64(i)/n)
		}
		return min + float64(i)*width
	}
	buckets := make([]models.Bucket, bucketCount)
	for i := range buckets {
		buckets[i].Start = edge(i)
		buckets[i].End = edge(i + 1)
	}
	buckets[bucketCount-1].End = max

	for _, l := range rows {
		v, present := finite(l, field)
		if !present {
			continue
		}
		var i int
		if overflow {
			i = int(v/width - min/width)
		} else {
			i = int((v - min) / width)
		}
		if i >= bucketCount {
			i = bucketCount - 1
		}
		if i < 0 {
			i = 0
		}
		buckets[i].Count++
	}
	return buckets
}

// lerp interpolates between a and b without computing b-a.
func lerp(a, b, t float64) float64 {
	return a*(1-t) + b*t
}

// GroupAverage computes the mean of valueField per distinct groupField label.
// Rows with a missing value or a missing label are ignored, groups without
// any value are omitted. Groups appear in first-encounter order, or
// ascending by average (stable) when sortByAverage is set.
func GroupAverage(rows []models.Listing, groupField, valueField models.Field, sortByAverage bool) []models.GroupAverage {
	type acc struct {
		mean  float64
		count int
	}
	index := make(map[string]int)
	var keys []string
	var accs []acc

	for _, l := range rows {
		key, hasKey := l.Text(groupField)
		v, ok := finite(l, valueField)
		if !hasKey || !ok {
			continue
		}
		i, seen := index[key]
		if !seen {
			i = len(keys)
			index[key] = i
			keys = append(keys, key)
			accs = append(accs, acc{})
		}
		// Running mean; a plain sum overflows for very large values.
		accs[i].count++
		accs[i].mean += (v - accs[i].mean) / float64(accs[i].count)
	}

	out := make([]models.GroupAverage, 0, len(keys))
	for i, key := range keys {
		if accs[i].count == 0 {
			continue
		}
		out = append(out, models.GroupAverage{
			Key:     key,
			Average: accs[i].mean,
			Count:   accs[i].count,
		})
	}

	if sortByAverage {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Average < out[j].Average
		})
	}
	return out
}

// TopNByFrequency counts each distinct value of field and returns the n most
// frequent, descending by count. Ties keep first-encounter order. Missing
// values are not counted. n <= 0 yields an empty slice.
func TopNByFrequency(rows []models.Listing, field models.Field, n int) []models.FrequencyCount {
	if n <= 0 {
		return []models.FrequencyCount{}
	}

	index := make(map[string]int)
	var counts []models.FrequencyCount
	for _, l := range rows {
		v, ok := l.Text(field)
		if !ok {
			continue
		}
		i, seen := index[v]
		if !seen {
			i = len(counts)
			index[v] = i
			counts = append(counts, models.FrequencyCount{Value: v})
		}
		counts[i].Count++
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	if len(counts) > n {
		counts = counts[:n]
	}
	if counts == nil {
		counts = []models.FrequencyCount{}
	}
	return counts
}

// Sample returns min(k, len(rows)) rows chosen uniformly at random without
// replacement. rows is not modified. A nil rng uses the global source.
func Sample(rows []models.Listing, k int, rng *rand.Rand) []models.Listing {
	if k <= 0 || len(rows) == 0 {
		return []models.Listing{}
	}
	if k >= len(rows) {
		return append([]models.Listing(nil), rows...)
	}

	perm := rand.Perm
	if rng != nil {
		perm = rng.Perm
	}
	idx := perm(len(rows))[:k]
	sort.Ints(idx)

	out := make([]models.Listing, k)
	for i, j := range idx {
		out[i] = rows[j]
	}
	return out
}
