package reader

// Playback rate bounds. Matches what the audio pipeline can time-stretch
// without artifacts.
const (
	MinPlaybackRate = 0.75
	MaxPlaybackRate = 2.0
)

// RatePresets are the rates offered in the player controls.
var RatePresets = []float64{0.75, 1.0, 1.25, 1.5, 1.75, 2.0}

// SetPlaybackRate sets the playback rate, clamped to the supported range.
func (s *Session) SetPlaybackRate(rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return
	}
	s.player.SetRate(clampRate(rate))
}

// PlaybackRate returns the current playback rate.
func (s *Session) PlaybackRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player.Rate()
}

func clampRate(rate float64) float64 {
	if rate < MinPlaybackRate {
		return MinPlaybackRate
	}
	if rate > MaxPlaybackRate {
		return MaxPlaybackRate
	}
	return rate
}
