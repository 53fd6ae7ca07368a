// Command readsim drives a headless reading session against real book
// content: it mounts a chapter, plays simulated audio through the
// highlight engine, and persists progress the way a reader client would.
// Useful for checking alignment artifacts before publishing a book.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/readalongapp/readalong-server/internal/config"
	"github.com/readalongapp/readalong-server/internal/library"
	"github.com/readalongapp/readalong-server/internal/progress"
	"github.com/readalongapp/readalong-server/internal/reader"
	"github.com/readalongapp/readalong-server/internal/service"
	"github.com/readalongapp/readalong-server/internal/store"
)

func main() {
	contentPath := flag.String("content", "", "Path to book content directory (required)")
	dataPath := flag.String("data", "", "Path for the progress database (default: temp dir)")
	bookID := flag.String("book", "", "Book ID (required)")
	chapterID := flag.String("chapter", "", "Chapter ID (required)")
	userID := flag.String("user", "", "Account to sync progress with (empty = signed out)")
	rate := flag.Float64("rate", 1.0, "Playback rate")
	seconds := flag.Float64("seconds", 30, "Seconds of audio to simulate")
	flag.Parse()

	if *contentPath == "" || *bookID == "" || *chapterID == "" {
		flag.Usage()
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	ctx := context.Background()

	lib, err := library.New(*contentPath, logger)
	if err != nil {
		log.Fatalf("Failed to open library: %v", err)
	}

	books := service.NewBookService(lib, config.ReaderConfig{ScrollMarginPx: 56, WordDriftTolerance: 0.25}, logger)
	book, err := books.GetBook(ctx, *bookID)
	if err != nil {
		log.Fatalf("Failed to load book: %v", err)
	}
	index, err := books.ChapterIndex(ctx, *bookID, *chapterID)
	if err != nil {
		log.Fatalf("Failed to build chapter index: %v", err)
	}

	dbDir := *dataPath
	if dbDir == "" {
		dbDir = filepath.Join(os.TempDir(), "readsim-db")
	}
	st, err := store.New(dbDir, nil, store.NewNoopEmitter())
	if err != nil {
		log.Fatalf("Failed to open progress database: %v", err)
	}
	defer st.Close()

	var remote progress.RemoteStore
	if *userID != "" {
		remote = progress.NewAccountStore(st, *userID)
	}
	local := progress.NewDeviceStore(st, progress.NewDeviceScope())
	resolver := progress.NewResolver(*bookID, book.Order(), local, remote, logger)

	saved, err := resolver.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load saved progress: %v", err)
	}
	if saved != nil {
		fmt.Printf("Saved position: chapter %s at %.1fs\n", saved.LastChapterID, saved.LastTimestamp)
	}

	segments := index.Segments()
	duration := *seconds
	if n := len(segments); n > 0 && segments[n-1].End < duration {
		duration = segments[n-1].End
	}

	player := &simPlayer{rate: *rate, volume: 1, paused: true, duration: duration}
	view := &consoleView{}

	session := reader.NewSession(player, view, resolver, logger)
	session.Mount(reader.MountParams{
		BookID:    *bookID,
		ChapterID: *chapterID,
		Order:     book.Order(),
		Index:     index,
		Saved:     saved,
	})
	if pos, ok := session.ResumeOffer(); ok {
		fmt.Printf("Resuming from %.1fs\n", pos.Timestamp)
		session.ResumeToSavedPosition()
	}
	session.SetPlaybackRate(*rate)

	if err := session.TogglePlay(ctx); err != nil {
		log.Fatalf("Failed to start playback: %v", err)
	}

	fmt.Printf("Simulating %.1fs of %q / %s at %.2fx\n", duration, book.Title, *chapterID, *rate)

	const tick = 100 * time.Millisecond
	for player.CurrentTime() < duration {
		player.advance(tick.Seconds())
		session.Tick()
	}

	session.Unmount(ctx)

	final, err := resolver.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to re-read progress: %v", err)
	}
	if final == nil {
		fmt.Println("\nNo progress record was persisted")
	} else {
		fmt.Printf("\nFinal record: last %s@%.1fs, furthest %s@%.1fs\n",
			final.LastChapterID, final.LastTimestamp,
			final.FurthestChapterID, final.FurthestTimestamp)
	}
	fmt.Printf("Paragraphs visited: %d, words highlighted: %d\n", view.paragraphs, view.words)
}

// simPlayer is a clock-only AudioPlayer: time advances when not paused.
type simPlayer struct {
	mu       sync.Mutex
	time     float64
	duration float64
	rate     float64
	volume   float64
	paused   bool
}

func (p *simPlayer) advance(wall float64) {
	p.mu.Lock()
	if !p.paused {
		p.time += wall * p.rate
	}
	p.mu.Unlock()
}

func (p *simPlayer) Play() error { p.mu.Lock(); p.paused = false; p.mu.Unlock(); return nil }
func (p *simPlayer) Pause()      { p.mu.Lock(); p.paused = true; p.mu.Unlock() }

func (p *simPlayer) Seek(seconds float64) { p.mu.Lock(); p.time = seconds; p.mu.Unlock() }
func (p *simPlayer) CurrentTime() float64 { p.mu.Lock(); defer p.mu.Unlock(); return p.time }
func (p *simPlayer) Duration() float64    { return p.duration }
func (p *simPlayer) Paused() bool         { p.mu.Lock(); defer p.mu.Unlock(); return p.paused }

func (p *simPlayer) SetRate(rate float64) { p.mu.Lock(); p.rate = rate; p.mu.Unlock() }
func (p *simPlayer) Rate() float64        { p.mu.Lock(); defer p.mu.Unlock(); return p.rate }
func (p *simPlayer) SetVolume(v float64)  { p.mu.Lock(); p.volume = v; p.mu.Unlock() }
func (p *simPlayer) Volume() float64      { p.mu.Lock(); defer p.mu.Unlock(); return p.volume }

// consoleView prints highlight transitions instead of rendering them.
type consoleView struct {
	paragraphs int
	words      int
}

func (v *consoleView) HighlightParagraph(pid string) {
	v.paragraphs++
	fmt.Printf("\n[%s] ", pid)
}

func (v *consoleView) ClearParagraphHighlight(string) {}

func (v *consoleView) HighlightWord(_ string, widx int) {
	v.words++
	fmt.Printf("%d ", widx)
}

func (v *consoleView) ClearWordHighlight(string, int) {}

func (v *consoleView) ScrollToParagraph(pid string) {
	fmt.Printf("(scroll to %s) ", pid)
}

func (v *consoleView) TopVisibleParagraph() (string, bool) { return "", false }
