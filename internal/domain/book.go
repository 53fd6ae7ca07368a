package domain

// Chapter is one entry in a book's ordered chapter list.
type Chapter struct {
	ID    string `json:"id"`
	Title string `json:"title"`

	// Asset file names relative to the book's content directory.
	HTMLFile      string `json:"html_file"`
	AlignmentFile string `json:"alignment_file,omitempty"`
	AudioFile     string `json:"audio_file,omitempty"`
}

// Book is a manifest entry: an ordered list of chapters plus display metadata.
type Book struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Author   string    `json:"author,omitempty"`
	Chapters []Chapter `json:"chapters"`
}

// ChapterOrder resolves chapter ids to their position in a book.
// Raw timestamps are not comparable across chapters, so every cross-chapter
// progress comparison goes through the order index.
type ChapterOrder struct {
	ids   []string
	index map[string]int
}

// NewChapterOrder builds an order from an ordered list of chapter ids.
func NewChapterOrder(ids []string) ChapterOrder {
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}
	return ChapterOrder{ids: ids, index: index}
}

// Order returns the chapter order for a book.
func (b *Book) Order() ChapterOrder {
	ids := make([]string, len(b.Chapters))
	for i, c := range b.Chapters {
		ids[i] = c.ID
	}
	return NewChapterOrder(ids)
}

// Index returns the position of a chapter id, or -1 if unknown.
// Empty ids are unknown by definition.
func (o ChapterOrder) Index(chapterID string) int {
	if chapterID == "" {
		return -1
	}
	if i, ok := o.index[chapterID]; ok {
		return i
	}
	return -1
}

// Len returns the number of chapters in the order.
func (o ChapterOrder) Len() int {
	return len(o.ids)
}

// IDs returns the ordered chapter ids.
func (o ChapterOrder) IDs() []string {
	return o.ids
}

// Chapter returns the chapter with the given id, or nil.
func (b *Book) Chapter(chapterID string) *Chapter {
	for i := range b.Chapters {
		if b.Chapters[i].ID == chapterID {
			return &b.Chapters[i]
		}
	}
	return nil
}
