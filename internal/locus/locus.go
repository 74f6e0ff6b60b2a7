// Package locus provides immutable genomic intervals and the interval
// arithmetic used throughout annotdb.
package locus

import (
	"fmt"
	"strings"
)

// InvalidIntervalError reports a locus that failed construction-time
// validation. Invalid loci are rejected eagerly and never stored.
type InvalidIntervalError struct {
	Contig string
	Start  int64
	End    int64
	Strand string
	Reason string
}

func (e *InvalidIntervalError) Error() string {
	return fmt.Sprintf("invalid interval %s:%d-%d(%s): %s",
		e.Contig, e.Start, e.End, e.Strand, e.Reason)
}

// NormalizeContig normalizes a chromosome/contig name: the lowercase "chr"
// prefix is stripped (some non-chromosomal contigs legitimately start with
// "CHR"), the mitochondrial genome is standardized to "MT", and lowercase
// x/y are capitalized.
func NormalizeContig(contig string) (string, error) {
	if contig == "" {
		return "", fmt.Errorf("contig name cannot be empty")
	}
	if strings.HasPrefix(contig, "chr") {
		contig = contig[3:]
	}
	switch contig {
	case "M":
		return "MT", nil
	case "x":
		return "X", nil
	case "y":
		return "Y", nil
	}
	return contig, nil
}

// NormalizeStrand accepts "+", "-", "1" and "-1" and returns "+" or "-".
func NormalizeStrand(strand string) (string, error) {
	switch strand {
	case "+", "1":
		return "+", nil
	case "-", "-1":
		return "-", nil
	}
	return "", fmt.Errorf("invalid strand: %q", strand)
}

// Locus is a range of positions on a particular contig, read either
// forwards ("+") or backwards ("-"). Coordinates are 1-based and inclusive
// on both ends. A Locus is a value: compare with ==.
type Locus struct {
	Contig string
	Start  int64
	End    int64
	Strand string
}

// New validates and normalizes the four fields and returns a Locus.
func New(contig string, start, end int64, strand string) (Locus, error) {
	normContig, err := NormalizeContig(contig)
	if err != nil {
		return Locus{}, &InvalidIntervalError{contig, start, end, strand, err.Error()}
	}
	normStrand, err := NormalizeStrand(strand)
	if err != nil {
		return Locus{}, &InvalidIntervalError{contig, start, end, strand, err.Error()}
	}
	if start < 1 {
		return Locus{}, &InvalidIntervalError{contig, start, end, strand,
			"expected start >= 1 (1-based coordinates)"}
	}
	if end < start {
		return Locus{}, &InvalidIntervalError{contig, start, end, strand,
			fmt.Sprintf("expected start <= end, got start=%d end=%d", start, end)}
	}
	return Locus{Contig: normContig, Start: start, End: end, Strand: normStrand}, nil
}

func (l Locus) String() string {
	return fmt.Sprintf("Locus(contig=%s, start=%d, end=%d, strand=%s)",
		l.Contig, l.Start, l.End, l.Strand)
}

// Length returns the number of positions covered by the locus.
func (l Locus) Length() int64 {
	return l.End - l.Start + 1
}

// OnContig reports whether the locus lies on the given contig, after
// normalization.
func (l Locus) OnContig(contig string) bool {
	norm, err := NormalizeContig(contig)
	return err == nil && norm == l.Contig
}

// OnStrand reports whether the locus lies on the given strand.
func (l Locus) OnStrand(strand string) bool {
	norm, err := NormalizeStrand(strand)
	return err == nil && norm == l.Strand
}

// OnForwardStrand reports whether the locus is read forwards.
func (l Locus) OnForwardStrand() bool {
	return l.Strand == "+"
}

// CanOverlap reports whether the locus is on the given contig and,
// if strand is non-empty, on the given strand.
func (l Locus) CanOverlap(contig, strand string) bool {
	if !l.OnContig(contig) {
		return false
	}
	return strand == "" || l.OnStrand(strand)
}

// Overlaps reports whether the locus overlaps [start, end] on the given
// contig. Ranges are inclusive, so chr1:10-10 overlaps chr1:10-10.
// An empty strand matches either strand.
func (l Locus) Overlaps(contig string, start, end int64, strand string) bool {
	return l.CanOverlap(contig, strand) && end >= l.Start && start <= l.End
}

// OverlapsLocus reports whether two loci share at least one position on the
// same contig and strand.
func (l Locus) OverlapsLocus(other Locus) bool {
	return l.Overlaps(other.Contig, other.Start, other.End, other.Strand)
}

// Contains reports whether [start, end] lies entirely within the locus.
func (l Locus) Contains(contig string, start, end int64, strand string) bool {
	return l.CanOverlap(contig, strand) && start >= l.Start && end <= l.End
}

// ContainsLocus reports whether the other locus lies entirely within this one.
func (l Locus) ContainsLocus(other Locus) bool {
	return l.Contains(other.Contig, other.Start, other.End, other.Strand)
}

// DistanceToInterval returns the gap between the locus and [start, end]:
// zero when they overlap, otherwise the length of the smaller one-sided
// gap. The caller must pre-filter candidates by contig; distances between
// loci on different contigs are meaningless.
func (l Locus) DistanceToInterval(start, end int64) int64 {
	if end >= l.Start && start <= l.End {
		return 0
	}
	if start > l.End {
		return start - l.End
	}
	return l.Start - end
}

// PositionOffset converts an absolute position into an offset from the
// 5' end of the locus, accounting for strand.
func (l Locus) PositionOffset(position int64) (int64, error) {
	if position < l.Start || position > l.End {
		return 0, fmt.Errorf("position %d outside valid range %d..%d of %s",
			position, l.Start, l.End, l)
	}
	if l.OnForwardStrand() {
		return position - l.Start, nil
	}
	return l.End - position, nil
}

// OffsetRange converts an absolute [start, end] range into offsets relative
// to the 5' end of the locus. Stored start/end values are always ordered
// start <= end, so on the backward strand the "end" position is actually
// earlier in reading order; this picks the right endpoint per strand.
func (l Locus) OffsetRange(start, end int64) (int64, int64, error) {
	if start > end {
		return 0, 0, fmt.Errorf("expected start <= end, got start=%d end=%d", start, end)
	}
	if start < l.Start || end > l.End {
		return 0, 0, fmt.Errorf("range (%d, %d) falls outside %s", start, end, l)
	}
	if l.OnForwardStrand() {
		return start - l.Start, end - l.Start, nil
	}
	return l.End - end, l.End - start, nil
}
