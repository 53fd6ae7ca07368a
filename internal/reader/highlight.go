package reader

// syncLocked reconciles highlights with playback time t. Clears and applies
// are paired within one call so a paragraph change never leaves both the old
// and new highlight visible between frames.
//
// Callers hold s.mu.
func (s *Session) syncLocked(t float64) {
	if s.index == nil {
		return
	}

	seg, ok := s.index.SegmentAt(t)
	if !ok {
		// silence or gap: nothing is active
		s.clearHighlightsLocked()
		return
	}

	if seg.ParagraphID != s.currentPID {
		if s.currentPID != "" {
			s.view.ClearParagraphHighlight(s.currentPID)
		}
		if s.currentWidx >= 0 {
			s.view.ClearWordHighlight(s.currentPID, s.currentWidx)
			s.currentWidx = -1
		}
		s.currentPID = seg.ParagraphID
		s.view.HighlightParagraph(s.currentPID)

		// scroll once per paragraph entry, and only while playing so a
		// paused reader can scroll away freely
		if !s.player.Paused() && s.scrolledPID != s.currentPID {
			s.view.ScrollToParagraph(s.currentPID)
			s.scrolledPID = s.currentPID
		}
	}

	s.syncWordLocked(t)
}

func (s *Session) syncWordLocked(t float64) {
	if !s.index.HasWords() {
		return
	}

	word, ok := s.index.WordAt(s.currentPID, t)
	if !ok {
		if s.currentWidx >= 0 {
			s.view.ClearWordHighlight(s.currentPID, s.currentWidx)
			s.currentWidx = -1
		}
		return
	}

	if word.WordIndex != s.currentWidx {
		if s.currentWidx >= 0 {
			s.view.ClearWordHighlight(s.currentPID, s.currentWidx)
		}
		s.currentWidx = word.WordIndex
		s.view.HighlightWord(s.currentPID, s.currentWidx)
	}
}

func (s *Session) clearHighlightsLocked() {
	if s.currentWidx >= 0 {
		s.view.ClearWordHighlight(s.currentPID, s.currentWidx)
		s.currentWidx = -1
	}
	if s.currentPID != "" {
		s.view.ClearParagraphHighlight(s.currentPID)
		s.currentPID = ""
	}
}
