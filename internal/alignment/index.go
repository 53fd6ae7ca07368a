package alignment

import (
	"slices"
	"sort"
)

// Index answers "which paragraph (and word) is active at time t" for one
// chapter. Built once at chapter load; immutable afterwards.
type Index struct {
	segments  []Segment
	bySegment map[string]Segment
	words     map[string][]Word
}

// DefaultWordDriftTolerance is the maximum difference in seconds between a
// declared segment boundary and its first/last word timing before the word
// timings win. Small discrepancies are ignored to avoid visible micro-jitter
// at paragraph boundaries.
const DefaultWordDriftTolerance = 0.25

// NewIndex builds an index from a parsed alignment file.
// Segments are sorted by begin time, words grouped per paragraph and sorted
// by (begin, word index), and segment boundaries are corrected from word
// timings where they drift beyond the tolerance.
func NewIndex(f *File, tolerance float64) *Index {
	if tolerance <= 0 {
		tolerance = DefaultWordDriftTolerance
	}

	segments := slices.Clone(f.Segments)
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Begin < segments[j].Begin
	})

	words := make(map[string][]Word)
	for _, w := range f.Words {
		words[w.ParagraphID] = append(words[w.ParagraphID], w)
	}
	for pid := range words {
		list := words[pid]
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].Begin != list[j].Begin {
				return list[i].Begin < list[j].Begin
			}
			return list[i].WordIndex < list[j].WordIndex
		})
		words[pid] = list
	}

	// Word timings are authoritative over declared segment boundaries:
	// upstream aligners drift at paragraph edges, and the first/last word
	// is what the reader actually hears.
	for i := range segments {
		list := words[segments[i].ParagraphID]
		if len(list) == 0 {
			continue
		}
		first := list[0].Begin
		last := list[len(list)-1].End
		if diff(first, segments[i].Begin) > tolerance {
			segments[i].Begin = first
		}
		if diff(last, segments[i].End) > tolerance {
			segments[i].End = last
		}
	}

	bySegment := make(map[string]Segment, len(segments))
	for _, seg := range segments {
		if _, ok := bySegment[seg.ParagraphID]; !ok {
			bySegment[seg.ParagraphID] = seg
		}
	}

	return &Index{segments: segments, bySegment: bySegment, words: words}
}

func diff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}

// Segments returns the normalized, sorted segments.
func (ix *Index) Segments() []Segment {
	return ix.segments
}

// Words returns the sorted word list for one paragraph, or nil.
func (ix *Index) Words(paragraphID string) []Word {
	return ix.words[paragraphID]
}

// HasWords reports whether any word timings exist.
func (ix *Index) HasWords() bool {
	return len(ix.words) > 0
}

// SegmentFor returns a paragraph's segment, if the paragraph is aligned.
func (ix *Index) SegmentFor(paragraphID string) (Segment, bool) {
	seg, ok := ix.bySegment[paragraphID]
	return seg, ok
}

// SegmentAt returns the segment where begin <= t < end, if any.
// A miss is a valid answer: silence and gaps map to no paragraph.
func (ix *Index) SegmentAt(t float64) (Segment, bool) {
	return findSegment(ix.segments, t)
}

// WordAt returns the active word of one paragraph at time t, if any.
func (ix *Index) WordAt(paragraphID string, t float64) (Word, bool) {
	return findWord(ix.words[paragraphID], t)
}

// findSegment binary-searches segments sorted ascending by Begin for the one
// containing t. O(log n).
func findSegment(segments []Segment, t float64) (Segment, bool) {
	lo, hi := 0, len(segments)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		s := segments[mid]
		switch {
		case t < s.Begin:
			hi = mid - 1
		case t >= s.End:
			lo = mid + 1
		default:
			return s, true
		}
	}
	return Segment{}, false
}

// findWord is the same search scoped to one paragraph's word list.
func findWord(words []Word, t float64) (Word, bool) {
	lo, hi := 0, len(words)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		w := words[mid]
		switch {
		case t < w.Begin:
			hi = mid - 1
		case t >= w.End:
			lo = mid + 1
		default:
			return w, true
		}
	}
	return Word{}, false
}
