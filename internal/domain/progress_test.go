package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrder() ChapterOrder {
	return NewChapterOrder([]string{"ch_001", "ch_002", "ch_003", "ch_004", "ch_005", "ch_006"})
}

func TestResolveFurthestFirstSave(t *testing.T) {
	got := ResolveFurthest(nil, testOrder(), Position{ChapterID: "ch_002", ParagraphID: "p5", Timestamp: 42})

	assert.Equal(t, "ch_002", got.ChapterID)
	assert.Equal(t, "p5", got.ParagraphID)
	assert.InDelta(t, 42, got.Timestamp, 1e-9)
}

func TestResolveFurthestAdvancesOnLaterChapter(t *testing.T) {
	prev := &ProgressRecord{
		BookID:              "bk_1",
		LastChapterID:       "ch_002",
		FurthestChapterID:   "ch_002",
		FurthestParagraphID: "p9",
		FurthestTimestamp:   400,
	}

	got := ResolveFurthest(prev, testOrder(), Position{ChapterID: "ch_005", ParagraphID: "p1", Timestamp: 10})

	assert.Equal(t, "ch_005", got.ChapterID)
	assert.Equal(t, "p1", got.ParagraphID)
	// timestamp is the max of previous furthest and current
	assert.InDelta(t, 400, got.Timestamp, 1e-9)
}

func TestResolveFurthestNeverRegresses(t *testing.T) {
	prev := &ProgressRecord{
		BookID:              "bk_1",
		LastChapterID:       "ch_005",
		FurthestChapterID:   "ch_005",
		FurthestParagraphID: "p3",
		FurthestTimestamp:   120,
	}

	// reader jumped back to an earlier chapter
	got := ResolveFurthest(prev, testOrder(), Position{ChapterID: "ch_001", ParagraphID: "p7", Timestamp: 300})

	assert.Equal(t, "ch_005", got.ChapterID)
	assert.Equal(t, "p3", got.ParagraphID)
	assert.InDelta(t, 300, got.Timestamp, 1e-9)
}

func TestResolveFurthestSameChapterKeepsParagraph(t *testing.T) {
	prev := &ProgressRecord{
		BookID:              "bk_1",
		FurthestChapterID:   "ch_003",
		FurthestParagraphID: "p8",
		FurthestTimestamp:   90,
	}

	got := ResolveFurthest(prev, testOrder(), Position{ChapterID: "ch_003", ParagraphID: "p2", Timestamp: 95})

	assert.Equal(t, "ch_003", got.ChapterID)
	assert.Equal(t, "p8", got.ParagraphID)
	assert.InDelta(t, 95, got.Timestamp, 1e-9)
}

func TestResolveFurthestUnknownChapterKeepsPrevious(t *testing.T) {
	prev := &ProgressRecord{
		BookID:              "bk_1",
		FurthestChapterID:   "ch_removed",
		FurthestParagraphID: "p4",
		FurthestTimestamp:   50,
	}

	got := ResolveFurthest(prev, testOrder(), Position{ChapterID: "ch_002", ParagraphID: "p1", Timestamp: 80})

	assert.Equal(t, "ch_removed", got.ChapterID)
	assert.Equal(t, "p4", got.ParagraphID)
	assert.InDelta(t, 80, got.Timestamp, 1e-9)
}

func TestResolveFurthestLegacyRecordFallsBackToLast(t *testing.T) {
	// records written before furthest tracking only have last fields
	prev := &ProgressRecord{
		BookID:          "bk_1",
		LastChapterID:   "ch_004",
		LastParagraphID: "p6",
		LastTimestamp:   70,
	}

	got := ResolveFurthest(prev, testOrder(), Position{ChapterID: "ch_002", ParagraphID: "p1", Timestamp: 20})

	assert.Equal(t, "ch_004", got.ChapterID)
	assert.Equal(t, "p6", got.ParagraphID)
}

func TestResolveFurthestClampsNegativeTimestamp(t *testing.T) {
	got := ResolveFurthest(nil, testOrder(), Position{ChapterID: "ch_001", Timestamp: -3})
	assert.InDelta(t, 0, got.Timestamp, 1e-9)
}

func TestPickBaselineChapterIndexBeatsTimestamp(t *testing.T) {
	order := testOrder()
	local := &ProgressRecord{BookID: "bk_1", FurthestChapterID: "ch_004", FurthestTimestamp: 50}
	remote := &ProgressRecord{BookID: "bk_1", FurthestChapterID: "ch_006", FurthestTimestamp: 5}

	assert.Same(t, remote, PickBaseline(local, remote, order))
}

func TestPickBaselineTimestampBreaksChapterTie(t *testing.T) {
	order := testOrder()
	local := &ProgressRecord{BookID: "bk_1", FurthestChapterID: "ch_003", FurthestTimestamp: 50}
	remote := &ProgressRecord{BookID: "bk_1", FurthestChapterID: "ch_003", FurthestTimestamp: 80}

	assert.Same(t, remote, PickBaseline(local, remote, order))
}

func TestPickBaselineFullTiePrefersFirst(t *testing.T) {
	order := testOrder()
	local := &ProgressRecord{BookID: "bk_1", FurthestChapterID: "ch_003", FurthestTimestamp: 50}
	remote := &ProgressRecord{BookID: "bk_1", FurthestChapterID: "ch_003", FurthestTimestamp: 50}

	assert.Same(t, local, PickBaseline(local, remote, order))
}

func TestPickBaselineNilArguments(t *testing.T) {
	order := testOrder()
	r := &ProgressRecord{BookID: "bk_1"}

	assert.Same(t, r, PickBaseline(r, nil, order))
	assert.Same(t, r, PickBaseline(nil, r, order))
	assert.Nil(t, PickBaseline(nil, nil, order))
}

func TestNewProgressRecordAssemblesBothPositions(t *testing.T) {
	order := testOrder()
	prev := &ProgressRecord{
		BookID:              "bk_1",
		FurthestChapterID:   "ch_005",
		FurthestParagraphID: "p3",
		FurthestTimestamp:   200,
	}

	rec := NewProgressRecord("bk_1", order, prev, Position{ChapterID: "ch_002", ParagraphID: "p1", Timestamp: 30})

	require.NotNil(t, rec)
	assert.Equal(t, "ch_002", rec.LastChapterID)
	assert.Equal(t, "p1", rec.LastParagraphID)
	assert.InDelta(t, 30, rec.LastTimestamp, 1e-9)
	assert.Equal(t, "ch_005", rec.FurthestChapterID)
	assert.Equal(t, "p3", rec.FurthestParagraphID)
	assert.InDelta(t, 200, rec.FurthestTimestamp, 1e-9)
	assert.False(t, rec.UpdatedAt.IsZero())
}
