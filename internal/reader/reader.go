// Package reader is the playback synchronization engine: it drives paragraph
// and word highlighting from audio time, tracks the listening position, and
// owns the sleep timer and playback rate.
//
// The engine is render-target agnostic. Hosts implement AudioPlayer and View
// for their platform and call Tick on every time update.
package reader

import (
	"context"
	"log/slog"
	"sync"

	"github.com/readalongapp/readalong-server/internal/alignment"
	"github.com/readalongapp/readalong-server/internal/domain"
)

// AudioPlayer abstracts the host's audio element.
type AudioPlayer interface {
	Play() error
	Pause()
	Seek(seconds float64)
	CurrentTime() float64
	Duration() float64
	Paused() bool
	SetRate(rate float64)
	Rate() float64
	SetVolume(v float64)
	Volume() float64
}

// View abstracts the render target the engine highlights into.
type View interface {
	HighlightParagraph(pid string)
	ClearParagraphHighlight(pid string)
	HighlightWord(pid string, widx int)
	ClearWordHighlight(pid string, widx int)
	ScrollToParagraph(pid string)
	TopVisibleParagraph() (string, bool)
}

// ProgressSink receives position saves. Persistence failures are the sink's
// problem; the engine never blocks playback on them.
type ProgressSink interface {
	SavePosition(ctx context.Context, pos domain.Position) error
}

// MountParams configures a session for one chapter.
type MountParams struct {
	BookID    string
	ChapterID string
	Order     domain.ChapterOrder
	Index     *alignment.Index

	// Deep link target, if any. A paragraph id wins over a raw timestamp.
	InitialParagraphID string
	InitialTimestamp   float64
	HasTimestamp       bool

	// Saved record for the resume offer.
	Saved *domain.ProgressRecord
}

// Session synchronizes one chapter's audio with its text.
// All methods are safe for concurrent use.
type Session struct {
	mu sync.Mutex

	player AudioPlayer
	view   View
	sink   ProgressSink
	logger *slog.Logger

	bookID    string
	chapterID string
	order     domain.ChapterOrder
	index     *alignment.Index

	mounted bool

	// highlight state
	currentPID  string
	currentWidx int
	scrolledPID string

	resumeOffer *domain.Position

	sleep *sleepTimer
}

// NewSession creates an unmounted session.
func NewSession(player AudioPlayer, view View, sink ProgressSink, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{
		player:      player,
		view:        view,
		sink:        sink,
		logger:      logger,
		currentWidx: -1,
	}
}

// Mount binds the session to a chapter and positions playback.
// Deep link targets take priority over the resume offer: a reader following
// a link is asked nothing.
func (s *Session) Mount(params MountParams) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// the previous chapter's highlight must not survive the remount
	s.clearHighlightsLocked()

	s.bookID = params.BookID
	s.chapterID = params.ChapterID
	s.order = params.Order
	s.index = params.Index
	s.mounted = true
	s.scrolledPID = ""
	s.resumeOffer = nil
	if s.sleep != nil {
		// chapter change resets the countdown
		s.sleep.cancel()
	}
	s.sleep = newSleepTimer(s.player, s.logger)

	switch {
	case params.InitialParagraphID != "":
		if t, ok := s.paragraphStart(params.InitialParagraphID); ok {
			s.player.Seek(t)
		}
		// mounts start paused, so the playing-only scroll in sync never
		// fires; bring the link target into view here
		s.view.ScrollToParagraph(params.InitialParagraphID)
		s.scrolledPID = params.InitialParagraphID
	case params.HasTimestamp:
		s.player.Seek(max(0, params.InitialTimestamp))
	case params.Saved != nil && params.Saved.LastChapterID == params.ChapterID && params.Saved.LastTimestamp > 0:
		// saved position is in this chapter; offer it instead of jumping
		s.resumeOffer = &domain.Position{
			ChapterID:   params.Saved.LastChapterID,
			ParagraphID: params.Saved.LastParagraphID,
			Timestamp:   params.Saved.LastTimestamp,
		}
	}

	s.syncLocked(s.player.CurrentTime())
}

// Unmount saves the position and releases the session. Further calls are
// no-ops.
func (s *Session) Unmount(ctx context.Context) {
	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		return
	}
	s.mounted = false
	s.sleep.cancel()
	pos := s.positionLocked()
	s.clearHighlightsLocked()
	s.mu.Unlock()

	s.save(ctx, pos)
}

// ResumeOffer returns the saved position the reader can jump to, if any.
func (s *Session) ResumeOffer() (domain.Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resumeOffer == nil {
		return domain.Position{}, false
	}
	return *s.resumeOffer, true
}

// ResumeToSavedPosition seeks to the offered position and dismisses the offer.
func (s *Session) ResumeToSavedPosition() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted || s.resumeOffer == nil {
		return
	}
	offer := *s.resumeOffer
	s.resumeOffer = nil
	s.player.Seek(offer.Timestamp)
	if offer.ParagraphID != "" {
		s.view.ScrollToParagraph(offer.ParagraphID)
		s.scrolledPID = offer.ParagraphID
	}
	s.syncLocked(s.player.CurrentTime())
}

// DismissResumeOffer drops the offer without seeking.
func (s *Session) DismissResumeOffer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resumeOffer = nil
}

// TogglePlay starts or pauses playback. Pausing saves the position.
func (s *Session) TogglePlay(ctx context.Context) error {
	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		return nil
	}

	if s.player.Paused() {
		err := s.player.Play()
		s.mu.Unlock()
		return err
	}

	s.player.Pause()
	pos := s.positionLocked()
	s.mu.Unlock()

	s.save(ctx, pos)
	return nil
}

// Seek moves playback and resynchronizes highlights immediately.
func (s *Session) Seek(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return
	}
	s.player.Seek(max(0, seconds))
	s.syncLocked(s.player.CurrentTime())
}

// SeekToParagraph moves playback to the start of a paragraph's segment.
func (s *Session) SeekToParagraph(pid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return
	}
	if t, ok := s.paragraphStart(pid); ok {
		s.player.Seek(t)
		s.syncLocked(s.player.CurrentTime())
	}
}

// Tick synchronizes highlights with the current playback time. Hosts call
// this on every audio time update.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return
	}
	s.syncLocked(s.player.CurrentTime())
}

// SyncToTopVisibleParagraph seeks playback to the paragraph the reader is
// looking at.
func (s *Session) SyncToTopVisibleParagraph() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return
	}
	pid, ok := s.view.TopVisibleParagraph()
	if !ok {
		return
	}
	if t, ok := s.paragraphStart(pid); ok {
		s.player.Seek(t)
		// the reader deliberately navigated here; no snap-back scroll
		s.scrolledPID = pid
		s.syncLocked(s.player.CurrentTime())
	}
}

// IsPlaying reports whether audio is currently playing.
func (s *Session) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mounted && !s.player.Paused()
}

// CurrentTime returns the playback position in seconds.
func (s *Session) CurrentTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player.CurrentTime()
}

// Duration returns the chapter audio duration in seconds.
func (s *Session) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player.Duration()
}

// CurrentParagraph returns the currently highlighted paragraph, if any.
func (s *Session) CurrentParagraph() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentPID, s.currentPID != ""
}

// Position returns the session's current position.
func (s *Session) Position() domain.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positionLocked()
}

// SavePosition persists the current position through the sink.
func (s *Session) SavePosition(ctx context.Context) {
	s.mu.Lock()
	pos := s.positionLocked()
	mounted := s.mounted
	s.mu.Unlock()
	if mounted {
		s.save(ctx, pos)
	}
}

func (s *Session) positionLocked() domain.Position {
	return domain.Position{
		ChapterID:   s.chapterID,
		ParagraphID: s.currentPID,
		Timestamp:   s.player.CurrentTime(),
	}
}

func (s *Session) paragraphStart(pid string) (float64, bool) {
	if s.index == nil {
		return 0, false
	}
	seg, ok := s.index.SegmentFor(pid)
	if !ok {
		return 0, false
	}
	return seg.Begin, true
}

func (s *Session) save(ctx context.Context, pos domain.Position) {
	if s.sink == nil {
		return
	}
	if err := s.sink.SavePosition(ctx, pos); err != nil {
		s.logger.Warn("saving position failed", "book", s.bookID, "error", err)
	}
}
