package transcript

import "sort"

// DefaultEpsilon is the hysteresis buffer for playhead resolution. It keeps
// the highlight from flickering when the playhead sits exactly on a segment
// boundary between retiming updates.
const DefaultEpsilon = 0.05

// Resolver answers "which segment is active at this playhead?" It is built
// once per segment list and sorts its own copy, so each lookup is a binary
// search; the resolver runs on every playhead tick, potentially several
// times per second.
type Resolver struct {
	segs    []Segment
	maxEnd  []float64 // maxEnd[i] = max end over segs[0..i]
	epsilon float64
}

// NewResolver builds a resolver over segs. The input order does not matter;
// the resolver sorts a copy by start time and leaves the caller's slice
// untouched.
func NewResolver(segs []Segment) *Resolver {
	sorted := SortByStart(segs)

	maxEnd := make([]float64, len(sorted))
	for i, s := range sorted {
		maxEnd[i] = s.End
		if i > 0 && maxEnd[i-1] > maxEnd[i] {
			maxEnd[i] = maxEnd[i-1]
		}
	}

	return &Resolver{
		segs:    sorted,
		maxEnd:  maxEnd,
		epsilon: DefaultEpsilon,
	}
}

// Segments returns the resolver's chronologically ordered segment list.
// Indices returned by Active refer to this slice.
func (r *Resolver) Segments() []Segment {
	return r.segs
}

// Active returns the index of the segment to highlight at the given playhead
// position, or -1 when no segment applies.
//
// Containment wins outright: the earliest segment with start <= playhead <
// end, wherever it sits before the binary-search landing index. When no
// segment contains the playhead (a gap, or past the last end), the fallback
// is the last segment whose start is <= playhead+epsilon. A playhead before
// every segment resolves to none.
func (r *Resolver) Active(playhead float64) int {
	n := len(r.segs)
	if n == 0 {
		return -1
	}

	// Last index with start <= playhead. Every candidate container sits at
	// or before it.
	idx := sort.Search(n, func(i int) bool { return r.segs[i].Start > playhead }) - 1

	// Earliest containing segment. The prefix max cuts the walk short once
	// no earlier segment can still reach the playhead; with non-overlapping
	// segments that is a single step.
	containing := -1
	for i := idx; i >= 0; i-- {
		if playhead < r.segs[i].End {
			containing = i
		}
		if i > 0 && r.maxEnd[i-1] <= playhead {
			break
		}
	}
	if containing >= 0 {
		return containing
	}

	// Gap or tail: fall back within the hysteresis buffer.
	return sort.Search(n, func(i int) bool { return r.segs[i].Start > playhead+r.epsilon }) - 1
}
