package reader

import "sync"

// ParagraphBounds is a paragraph's vertical extent in viewport coordinates:
// 0 is the top edge, negative is scrolled above it.
type ParagraphBounds struct {
	PID    string
	Top    float64
	Bottom float64
}

// Geometry reports paragraph layout relative to the viewport. Views implement
// this to enable top-visible-paragraph tracking.
type Geometry interface {
	// ParagraphAt returns the paragraph covering a viewport point given as
	// horizontal/vertical fractions of the viewport size.
	ParagraphAt(xFrac, yFrac float64) (string, bool)
	// ParagraphBounds returns every paragraph's extent in document order.
	ParagraphBounds() []ParagraphBounds
}

// topVisibleSamples are the probe points for the fast path. Three horizontal
// positions just below the top edge catch the common layouts; indented or
// short first lines fall through to the scan.
var topVisibleSamples = [][2]float64{
	{0.25, 0.1},
	{0.5, 0.1},
	{0.75, 0.1},
}

// topVisibleMargin mirrors the auto-scroll margin: a paragraph whose bottom
// sits above it is considered scrolled past.
const topVisibleMargin = 56.0

// TopVisibleParagraph finds the paragraph the reader currently sees at the
// top of the viewport. Probes a few sample points first, then falls back to
// scanning paragraph bounds for the first one not yet scrolled past.
func TopVisibleParagraph(g Geometry) (string, bool) {
	for _, pt := range topVisibleSamples {
		if pid, ok := g.ParagraphAt(pt[0], pt[1]); ok {
			return pid, true
		}
	}

	for _, b := range g.ParagraphBounds() {
		if b.Bottom > topVisibleMargin {
			return b.PID, true
		}
	}
	return "", false
}

// FrameThrottle coalesces event bursts into at most one unit of work per
// frame. Scroll handlers call TryAcquire before recomputing the top visible
// paragraph and Release when the frame's work is done.
type FrameThrottle struct {
	mu      sync.Mutex
	pending bool
}

// TryAcquire reports whether the caller should run the throttled work.
// Returns false while a previous acquisition is outstanding.
func (f *FrameThrottle) TryAcquire() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending {
		return false
	}
	f.pending = true
	return true
}

// Release ends the current acquisition.
func (f *FrameThrottle) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = false
}
