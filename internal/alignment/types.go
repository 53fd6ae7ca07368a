// Package alignment maps playback time to paragraphs and words using
// precomputed audio/text alignment artifacts.
package alignment

// Segment is the time range during which one paragraph is active.
// Within a chapter, segments are sorted ascending by Begin and do not
// overlap in well-formed input.
type Segment struct {
	ParagraphID string  `json:"pid"`
	Begin       float64 `json:"begin"`
	End         float64 `json:"end"`
}

// Word is a single word's character range and time range inside a paragraph.
type Word struct {
	ParagraphID string  `json:"pid"`
	WordIndex   int     `json:"widx"`
	Text        string  `json:"text,omitempty"`
	StartChar   int     `json:"start_char"`
	EndChar     int     `json:"end_char"`
	Begin       float64 `json:"begin"`
	End         float64 `json:"end"`
}

// File is a parsed chapter alignment artifact.
type File struct {
	ChapterID string    `json:"chapter_id,omitempty"`
	Status    string    `json:"status,omitempty"`
	Segments  []Segment `json:"segments"`
	Words     []Word    `json:"words,omitempty"`
}
