package domain

import "time"

// ProgressRecord is a reader's saved position in one book.
//
// "Last" is the most recent location visited; "furthest" is the high-water
// mark across the whole book, ordered by chapter index then timestamp.
// Furthest never regresses to an earlier chapter.
type ProgressRecord struct {
	BookID              string    `json:"book_id"`
	LastChapterID       string    `json:"last_chapter_id"`
	LastParagraphID     string    `json:"last_paragraph_id,omitempty"`
	LastTimestamp       float64   `json:"last_timestamp"`
	FurthestChapterID   string    `json:"furthest_chapter_id,omitempty"`
	FurthestParagraphID string    `json:"furthest_paragraph_id,omitempty"`
	FurthestTimestamp   float64   `json:"furthest_timestamp"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Position is a concrete location inside a book.
type Position struct {
	ChapterID   string
	ParagraphID string
	Timestamp   float64
}

// furthestChapter returns the recorded furthest chapter, falling back to the
// last chapter for records written before furthest tracking existed.
func (r *ProgressRecord) furthestChapter() string {
	if r.FurthestChapterID != "" {
		return r.FurthestChapterID
	}
	return r.LastChapterID
}

// furthestParagraph falls back the same way as furthestChapter.
func (r *ProgressRecord) furthestParagraph() string {
	if r.FurthestParagraphID != "" {
		return r.FurthestParagraphID
	}
	return r.LastParagraphID
}

// ResolveFurthest produces the updated furthest position given the previous
// record and the reader's current position.
//
// Chapter comparisons use the order index: a timestamp of 400s in chapter 1
// is not further than 10s in chapter 5. When either chapter id cannot be
// resolved against the order (manifest changed underneath a saved record),
// the previous furthest chapter/paragraph is kept and only the timestamp
// advances; this mirrors the historical behavior and is a known
// approximation for stale records.
func ResolveFurthest(previous *ProgressRecord, order ChapterOrder, current Position) Position {
	if current.Timestamp < 0 {
		current.Timestamp = 0
	}

	if previous == nil {
		return Position{
			ChapterID:   current.ChapterID,
			ParagraphID: current.ParagraphID,
			Timestamp:   current.Timestamp,
		}
	}

	prevChapter := previous.furthestChapter()
	prevIdx := order.Index(prevChapter)
	curIdx := order.Index(current.ChapterID)
	ts := max(previous.FurthestTimestamp, current.Timestamp)

	if prevIdx < 0 || curIdx < 0 {
		return Position{
			ChapterID:   prevChapter,
			ParagraphID: previous.furthestParagraph(),
			Timestamp:   ts,
		}
	}

	switch {
	case curIdx > prevIdx:
		return Position{
			ChapterID:   current.ChapterID,
			ParagraphID: current.ParagraphID,
			Timestamp:   ts,
		}
	case curIdx == prevIdx:
		pid := previous.furthestParagraph()
		if pid == "" {
			pid = current.ParagraphID
		}
		return Position{
			ChapterID:   prevChapter,
			ParagraphID: pid,
			Timestamp:   ts,
		}
	default:
		// Reader moved backward; furthest stays put, timestamp may still advance.
		return Position{
			ChapterID:   prevChapter,
			ParagraphID: previous.furthestParagraph(),
			Timestamp:   ts,
		}
	}
}

// PickBaseline chooses between two progress records for the same book,
// preferring the one representing further progress: higher furthest-chapter
// index wins, then higher furthest timestamp, then a (the local/previous
// record) on a full tie. Either argument may be nil.
func PickBaseline(a, b *ProgressRecord, order ChapterOrder) *ProgressRecord {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}

	aIdx := order.Index(a.furthestChapter())
	bIdx := order.Index(b.furthestChapter())
	if aIdx != bIdx {
		if aIdx > bIdx {
			return a
		}
		return b
	}

	if a.FurthestTimestamp != b.FurthestTimestamp {
		if a.FurthestTimestamp > b.FurthestTimestamp {
			return a
		}
		return b
	}

	return a
}

// NewProgressRecord assembles a full record from the reader's current
// position and the previously resolved baseline.
func NewProgressRecord(bookID string, order ChapterOrder, previous *ProgressRecord, current Position) *ProgressRecord {
	furthest := ResolveFurthest(previous, order, current)
	return &ProgressRecord{
		BookID:              bookID,
		LastChapterID:       current.ChapterID,
		LastParagraphID:     current.ParagraphID,
		LastTimestamp:       max(0, current.Timestamp),
		FurthestChapterID:   furthest.ChapterID,
		FurthestParagraphID: furthest.ParagraphID,
		FurthestTimestamp:   furthest.Timestamp,
		UpdatedAt:           time.Now(),
	}
}
