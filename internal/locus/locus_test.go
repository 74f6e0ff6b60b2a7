package locus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeContig(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"chr1", "1"},
		{"1", "1"},
		{"chrX", "X"},
		{"x", "X"},
		{"y", "Y"},
		{"M", "MT"},
		{"chrM", "MT"},
		{"MT", "MT"},
		{"GL000194.1", "GL000194.1"},
		{"CHR_HSCHR1_1_CTG3", "CHR_HSCHR1_1_CTG3"},
	}
	for _, tt := range tests {
		got, err := NormalizeContig(tt.input)
		require.NoError(t, err, "NormalizeContig(%q)", tt.input)
		assert.Equal(t, tt.expected, got, "NormalizeContig(%q)", tt.input)
	}

	_, err := NormalizeContig("")
	assert.Error(t, err)
}

func TestNormalizeStrand(t *testing.T) {
	for input, expected := range map[string]string{
		"+": "+", "-": "-", "1": "+", "-1": "-",
	} {
		got, err := NormalizeStrand(input)
		require.NoError(t, err)
		assert.Equal(t, expected, got)
	}
	for _, bad := range []string{"", ".", "++", "0"} {
		_, err := NormalizeStrand(bad)
		assert.Error(t, err, "NormalizeStrand(%q)", bad)
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name   string
		contig string
		start  int64
		end    int64
		strand string
	}{
		{"start after end", "1", 200, 100, "+"},
		{"zero start", "1", 0, 100, "+"},
		{"negative start", "1", -5, 100, "+"},
		{"bad strand", "1", 100, 200, "."},
		{"empty contig", "", 100, 200, "+"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.contig, tt.start, tt.end, tt.strand)
			require.Error(t, err)
			var invalid *InvalidIntervalError
			assert.ErrorAs(t, err, &invalid)
		})
	}
}

func TestNewNormalizes(t *testing.T) {
	l, err := New("chr12", 25205246, 25250929, "-1")
	require.NoError(t, err)
	assert.Equal(t, Locus{Contig: "12", Start: 25205246, End: 25250929, Strand: "-"}, l)
	assert.Equal(t, int64(45684), l.Length())
}

func mustLocus(t *testing.T, contig string, start, end int64, strand string) Locus {
	t.Helper()
	l, err := New(contig, start, end, strand)
	require.NoError(t, err)
	return l
}

func TestOverlaps(t *testing.T) {
	l := mustLocus(t, "1", 100, 200, "+")

	assert.True(t, l.Overlaps("1", 150, 150, ""))
	assert.True(t, l.Overlaps("1", 200, 300, ""))
	assert.True(t, l.Overlaps("1", 50, 100, ""))
	assert.True(t, l.Overlaps("chr1", 150, 160, "+"), "contig is normalized")
	assert.False(t, l.Overlaps("1", 201, 300, ""))
	assert.False(t, l.Overlaps("1", 1, 99, ""))
	assert.False(t, l.Overlaps("2", 150, 150, ""))
	assert.False(t, l.Overlaps("1", 150, 150, "-"))

	// single-position ranges are inclusive on both ends
	p := mustLocus(t, "1", 10, 10, "+")
	assert.True(t, p.Overlaps("1", 10, 10, "+"))
}

func TestOverlapsSymmetry(t *testing.T) {
	loci := []Locus{
		mustLocus(t, "1", 100, 200, "+"),
		mustLocus(t, "1", 150, 150, "+"),
		mustLocus(t, "1", 200, 300, "+"),
		mustLocus(t, "1", 301, 400, "+"),
		mustLocus(t, "1", 1, 99, "+"),
	}
	for _, a := range loci {
		for _, b := range loci {
			assert.Equal(t, a.OverlapsLocus(b), b.OverlapsLocus(a),
				"overlap symmetry for %s vs %s", a, b)
			// distance is zero exactly when the loci overlap
			assert.Equal(t, a.OverlapsLocus(b), a.DistanceToInterval(b.Start, b.End) == 0,
				"distance/overlap agreement for %s vs %s", a, b)
		}
	}
}

func TestContains(t *testing.T) {
	l := mustLocus(t, "1", 100, 200, "+")
	assert.True(t, l.Contains("1", 100, 200, "+"))
	assert.True(t, l.Contains("1", 150, 160, ""))
	assert.False(t, l.Contains("1", 90, 160, ""))
	assert.False(t, l.Contains("1", 150, 210, ""))
	assert.True(t, l.ContainsLocus(mustLocus(t, "1", 120, 150, "+")))
	assert.False(t, l.ContainsLocus(mustLocus(t, "1", 120, 150, "-")))
}

func TestDistanceToInterval(t *testing.T) {
	l := mustLocus(t, "1", 100, 200, "+")
	tests := []struct {
		start, end, expected int64
	}{
		{150, 160, 0},
		{200, 210, 0},
		{90, 100, 0},
		{210, 250, 10},
		{50, 90, 10},
		{1, 1, 99},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, l.DistanceToInterval(tt.start, tt.end),
			"distance from [%d,%d]", tt.start, tt.end)
	}
}

func TestPositionOffset(t *testing.T) {
	fwd := mustLocus(t, "1", 100, 200, "+")
	rev := mustLocus(t, "1", 100, 200, "-")

	off, err := fwd.PositionOffset(110)
	require.NoError(t, err)
	assert.Equal(t, int64(10), off)

	off, err = rev.PositionOffset(110)
	require.NoError(t, err)
	assert.Equal(t, int64(90), off)

	_, err = fwd.PositionOffset(99)
	assert.Error(t, err)
}

func TestOffsetRange(t *testing.T) {
	fwd := mustLocus(t, "1", 100, 200, "+")
	rev := mustLocus(t, "1", 100, 200, "-")

	s, e, err := fwd.OffsetRange(110, 120)
	require.NoError(t, err)
	assert.Equal(t, int64(10), s)
	assert.Equal(t, int64(20), e)

	s, e, err = rev.OffsetRange(110, 120)
	require.NoError(t, err)
	assert.Equal(t, int64(80), s)
	assert.Equal(t, int64(90), e)

	_, _, err = fwd.OffsetRange(120, 110)
	assert.Error(t, err)
	_, _, err = fwd.OffsetRange(90, 120)
	assert.Error(t, err)
}

func TestFindNearest(t *testing.T) {
	a := mustLocus(t, "1", 100, 200, "+")
	b := mustLocus(t, "1", 300, 400, "+")
	c := mustLocus(t, "1", 1000, 1100, "+")

	best, dist, ok := FindNearest(250, 260, []Locus{a, b, c})
	require.True(t, ok)
	assert.Equal(t, b, best)
	assert.Equal(t, int64(40), dist)

	// overlapping candidate wins with distance zero
	best, dist, ok = FindNearest(150, 160, []Locus{a, b, c})
	require.True(t, ok)
	assert.Equal(t, a, best)
	assert.Equal(t, int64(0), dist)

	// equidistant: first encountered wins
	best, _, ok = FindNearest(250, 250, []Locus{a, b})
	require.True(t, ok)
	assert.Equal(t, a, best)

	_, _, ok = FindNearest(1, 2, []Locus{})
	assert.False(t, ok)
}
