package alignment

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFile() *File {
	return &File{
		ChapterID: "ch_001",
		Status:    "complete",
		Segments: []Segment{
			{ParagraphID: "p1", Begin: 0, End: 5},
			{ParagraphID: "p2", Begin: 5, End: 12.5},
			{ParagraphID: "p3", Begin: 14, End: 20},
		},
	}
}

func TestSegmentAt(t *testing.T) {
	ix := NewIndex(testFile(), 0)

	tests := []struct {
		name    string
		t       float64
		wantPID string
		wantOK  bool
	}{
		{"start of first segment", 0, "p1", true},
		{"inside first segment", 2.5, "p1", true},
		{"boundary belongs to next segment", 5, "p2", true},
		{"just before boundary", 4.999, "p1", true},
		{"inside gap", 13, "", false},
		{"end of last segment is exclusive", 20, "", false},
		{"before first segment", -1, "", false},
		{"after last segment", 100, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg, ok := ix.SegmentAt(tt.t)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantPID, seg.ParagraphID)
			}
		})
	}
}

func TestSegmentAtEmpty(t *testing.T) {
	ix := NewIndex(&File{}, 0)
	_, ok := ix.SegmentAt(0)
	assert.False(t, ok)
	assert.False(t, ix.HasWords())
}

func TestSegmentAtUnsortedInput(t *testing.T) {
	f := &File{Segments: []Segment{
		{ParagraphID: "p3", Begin: 14, End: 20},
		{ParagraphID: "p1", Begin: 0, End: 5},
		{ParagraphID: "p2", Begin: 5, End: 12.5},
	}}
	ix := NewIndex(f, 0)

	seg, ok := ix.SegmentAt(6)
	require.True(t, ok)
	assert.Equal(t, "p2", seg.ParagraphID)
}

// TestSegmentAtRandomSweep checks the lookup against a linear scan of the
// same contract over generated segment lists: at most one segment matches a
// time, and only when begin <= t < end.
func TestSegmentAtRandomSweep(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 0))

	for trial := 0; trial < 50; trial++ {
		var segs []Segment
		cursor := rng.Float64() * 5
		n := 1 + rng.IntN(40)
		for i := range n {
			cursor += rng.Float64() * 3 // gap, sometimes near zero
			length := 0.1 + rng.Float64()*8
			segs = append(segs, Segment{
				ParagraphID: fmt.Sprintf("p%d", i),
				Begin:       cursor,
				End:         cursor + length,
			})
			cursor += length
		}
		ix := NewIndex(&File{Segments: segs}, 0)

		queries := make([]float64, 0, 200+2*len(segs))
		for range 200 {
			queries = append(queries, rng.Float64()*(cursor+4)-2)
		}
		// boundaries are the interesting cases; always include them
		for _, seg := range segs {
			queries = append(queries, seg.Begin, seg.End)
		}

		for _, q := range queries {
			wantPID, wantOK := "", false
			for _, seg := range segs {
				if seg.Begin <= q && q < seg.End {
					wantPID, wantOK = seg.ParagraphID, true
					break
				}
			}

			got, ok := ix.SegmentAt(q)
			require.Equal(t, wantOK, ok, "trial %d, t=%v", trial, q)
			if wantOK {
				require.Equal(t, wantPID, got.ParagraphID, "trial %d, t=%v", trial, q)
			}
		}
	}
}

func TestWordAt(t *testing.T) {
	f := testFile()
	f.Words = []Word{
		{ParagraphID: "p1", WordIndex: 0, StartChar: 0, EndChar: 3, Begin: 0, End: 1},
		{ParagraphID: "p1", WordIndex: 1, StartChar: 4, EndChar: 8, Begin: 1, End: 2.5},
		{ParagraphID: "p1", WordIndex: 2, StartChar: 9, EndChar: 12, Begin: 2.5, End: 5},
	}
	ix := NewIndex(f, 0)
	require.True(t, ix.HasWords())

	w, ok := ix.WordAt("p1", 1.2)
	require.True(t, ok)
	assert.Equal(t, 1, w.WordIndex)

	// boundary belongs to the later word
	w, ok = ix.WordAt("p1", 2.5)
	require.True(t, ok)
	assert.Equal(t, 2, w.WordIndex)

	_, ok = ix.WordAt("p1", 5)
	assert.False(t, ok)

	_, ok = ix.WordAt("p2", 6)
	assert.False(t, ok)
}

func TestBoundaryCorrectionFromWords(t *testing.T) {
	f := &File{
		Segments: []Segment{{ParagraphID: "p1", Begin: 10, End: 20}},
		Words: []Word{
			{ParagraphID: "p1", WordIndex: 0, StartChar: 0, EndChar: 4, Begin: 10.3, End: 11},
			{ParagraphID: "p1", WordIndex: 1, StartChar: 5, EndChar: 9, Begin: 11, End: 20.6},
		},
	}
	ix := NewIndex(f, 0.25)

	segs := ix.Segments()
	require.Len(t, segs, 1)
	// first word drifts 0.3s past the tolerance: word timing wins
	assert.InDelta(t, 10.3, segs[0].Begin, 1e-9)
	// last word drifts 0.6s: same
	assert.InDelta(t, 20.6, segs[0].End, 1e-9)
}

func TestBoundaryWithinTolerance(t *testing.T) {
	f := &File{
		Segments: []Segment{{ParagraphID: "p1", Begin: 10, End: 20}},
		Words: []Word{
			{ParagraphID: "p1", WordIndex: 0, StartChar: 0, EndChar: 4, Begin: 10.2, End: 11},
			{ParagraphID: "p1", WordIndex: 1, StartChar: 5, EndChar: 9, Begin: 11, End: 19.9},
		},
	}
	ix := NewIndex(f, 0.25)

	segs := ix.Segments()
	require.Len(t, segs, 1)
	// drift under the tolerance keeps the declared boundary
	assert.InDelta(t, 10.0, segs[0].Begin, 1e-9)
	assert.InDelta(t, 20.0, segs[0].End, 1e-9)
}

func TestWordsSortedPerParagraph(t *testing.T) {
	f := testFile()
	f.Words = []Word{
		{ParagraphID: "p1", WordIndex: 2, StartChar: 9, EndChar: 12, Begin: 2.5, End: 5},
		{ParagraphID: "p1", WordIndex: 0, StartChar: 0, EndChar: 3, Begin: 0, End: 1},
		{ParagraphID: "p1", WordIndex: 1, StartChar: 4, EndChar: 8, Begin: 1, End: 2.5},
	}
	ix := NewIndex(f, 0)

	words := ix.Words("p1")
	require.Len(t, words, 3)
	for i, w := range words {
		assert.Equal(t, i, w.WordIndex)
	}
}
