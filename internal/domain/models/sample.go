package models

import "sort"

// Sample is one voltage reading taken at T seconds.
type Sample struct {
	T float64 `json:"t"`
	V float64 `json:"v"`
}

// Series is an ordered sequence of samples. Callers keep it sorted by T.
type Series []Sample

// Values returns the voltage column.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.V
	}
	return out
}

// Times returns the time column.
func (s Series) Times() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.T
	}
	return out
}

// Clone returns an independent copy.
func (s Series) Clone() Series {
	if s == nil {
		return nil
	}
	out := make(Series, len(s))
	copy(out, s)
	return out
}

// SortByTime orders the series in place, keeping equal timestamps stable.
func (s Series) SortByTime() {
	sort.SliceStable(s, func(i, j int) bool { return s[i].T < s[j].T })
}

// Duration is the span between the first and last sample.
func (s Series) Duration() float64 {
	if len(s) < 2 {
		return 0
	}
	return s[len(s)-1].T - s[0].T
}

// Between returns the samples with lo <= T <= hi.
func (s Series) Between(lo, hi float64) Series {
	out := make(Series, 0)
	for _, p := range s {
		if p.T >= lo && p.T <= hi {
			out = append(out, p)
		}
	}
	return out
}
