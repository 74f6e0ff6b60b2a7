package locus

// Interval is anything with a gap distance to a coordinate range.
// Gene, Transcript and Exon entities all satisfy it through their
// embedded Locus.
type Interval interface {
	DistanceToInterval(start, end int64) int64
}

// FindNearest scans candidates and returns the one with the smallest gap
// to [start, end], along with that gap. When several candidates are
// equidistant the first encountered wins. Returns ok=false for an empty
// candidate set.
func FindNearest[T Interval](start, end int64, candidates []T) (best T, distance int64, ok bool) {
	for _, c := range candidates {
		d := c.DistanceToInterval(start, end)
		if !ok || d < distance {
			best, distance, ok = c, d, true
		}
	}
	return best, distance, ok
}
