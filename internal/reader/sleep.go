package reader

import (
	"log/slog"
	"sync"
	"time"
)

// SleepPresets are the durations offered in the sleep timer menu.
var SleepPresets = []time.Duration{
	5 * time.Minute,
	10 * time.Minute,
	15 * time.Minute,
	30 * time.Minute,
	45 * time.Minute,
	60 * time.Minute,
}

const (
	defaultFadeDuration = 2500 * time.Millisecond
	defaultFadeStep     = 50 * time.Millisecond
)

// sleepTimer pauses playback after a countdown, fading the volume out first.
// An external pause during the fade aborts it and restores the volume, so a
// reader who paused themselves is not left with a silenced player.
type sleepTimer struct {
	mu     sync.Mutex
	player AudioPlayer
	logger *slog.Logger

	timer   *time.Timer
	expires time.Time
	fading  bool

	fadeDuration time.Duration
	fadeStep     time.Duration
}

func newSleepTimer(player AudioPlayer, logger *slog.Logger) *sleepTimer {
	return &sleepTimer{
		player:       player,
		logger:       logger,
		fadeDuration: defaultFadeDuration,
		fadeStep:     defaultFadeStep,
	}
}

// set arms the timer, replacing any previous countdown.
func (st *sleepTimer) set(d time.Duration) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.timer != nil {
		st.timer.Stop()
	}
	st.expires = time.Now().Add(d)
	st.timer = time.AfterFunc(d, st.fade)
}

// cancel disarms the timer and any fade in progress.
func (st *sleepTimer) cancel() {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}
	st.expires = time.Time{}
	st.fading = false
}

// remaining returns the time left on the countdown.
func (st *sleepTimer) remaining() (time.Duration, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.timer == nil {
		return 0, false
	}
	d := time.Until(st.expires)
	if d < 0 {
		d = 0
	}
	return d, true
}

// fade lowers the volume to zero over fadeDuration, then pauses and restores
// the volume for the next play.
func (st *sleepTimer) fade() {
	st.mu.Lock()
	if st.fading {
		st.mu.Unlock()
		return
	}
	st.fading = true
	st.timer = nil
	st.expires = time.Time{}
	st.mu.Unlock()

	startVolume := st.player.Volume()
	steps := int(st.fadeDuration / st.fadeStep)
	if steps < 1 {
		steps = 1
	}

	ticker := time.NewTicker(st.fadeStep)
	defer ticker.Stop()

	for i := 1; i <= steps; i++ {
		<-ticker.C

		st.mu.Lock()
		aborted := !st.fading
		st.mu.Unlock()
		if aborted || st.player.Paused() {
			st.player.SetVolume(startVolume)
			return
		}

		st.player.SetVolume(startVolume * float64(steps-i) / float64(steps))
	}

	st.player.Pause()
	st.player.SetVolume(startVolume)

	st.mu.Lock()
	st.fading = false
	st.mu.Unlock()

	st.logger.Debug("sleep timer paused playback")
}

// SetSleepTimer arms the sleep timer. A non-positive duration cancels it.
func (s *Session) SetSleepTimer(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return
	}
	if d <= 0 {
		s.sleep.cancel()
		return
	}
	s.sleep.set(d)
}

// CancelSleepTimer disarms the sleep timer.
func (s *Session) CancelSleepTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return
	}
	s.sleep.cancel()
}

// SleepRemaining returns the countdown left on the sleep timer.
func (s *Session) SleepRemaining() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return 0, false
	}
	return s.sleep.remaining()
}
