package frame

// stats.go - per-column summaries for the read report

import (
	"gonum.org/v1/gonum/stat"
)

// Summary describes the contents of one column: non-null count, null
// count, extrema, mean (numeric columns only) and mode.
type Summary struct {
	Column string
	Kind   Kind
	Count  int
	Nulls  int
	Min    any
	Max    any
	Mean   *float64
	Mode   any
}

// Summarize computes the summary for a column. Min, Max and Mode are
// nil for all-null columns; ties for the mode resolve to the smallest
// value in the kind's natural order.
func Summarize(c *Column) Summary {
	s := Summary{Column: c.Name, Kind: c.Kind}

	freq := make(map[any]int)
	var numeric []float64
	for i := 0; i < c.Len(); i++ {
		v, ok := c.Value(i)
		if !ok {
			s.Nulls++
			continue
		}
		s.Count++
		freq[v]++
		if s.Min == nil || less(c.Kind, v, s.Min) {
			s.Min = v
		}
		if s.Max == nil || less(c.Kind, s.Max, v) {
			s.Max = v
		}
		switch x := v.(type) {
		case int64:
			numeric = append(numeric, float64(x))
		case float64:
			numeric = append(numeric, x)
		}
	}

	if len(numeric) > 0 && (c.Kind == Int || c.Kind == Float) {
		m := stat.Mean(numeric, nil)
		s.Mean = &m
	}

	if s.Count > 0 {
		values := make([]any, 0, len(freq))
		for v := range freq {
			values = append(values, v)
		}
		sortValues(c.Kind, values)
		best := values[0]
		for _, v := range values[1:] {
			if freq[v] > freq[best] {
				best = v
			}
		}
		s.Mode = best
	}
	return s
}
