// Package search provides full-text search over book paragraphs, backed by
// Bleve. Hits carry enough addressing (book, chapter, paragraph) to deep
// link straight into the reader.
package search

import "fmt"

// ParagraphDocument is one indexed paragraph.
type ParagraphDocument struct {
	ID           string `json:"id"`
	BookID       string `json:"book_id"`
	BookTitle    string `json:"book_title"`
	ChapterID    string `json:"chapter_id"`
	ChapterTitle string `json:"chapter_title"`
	ParagraphID  string `json:"pid"`
	Text         string `json:"text"`
}

// DocumentID builds the index key for a paragraph.
func DocumentID(bookID, chapterID, pid string) string {
	return fmt.Sprintf("%s/%s/%s", bookID, chapterID, pid)
}

// ToMap converts the document for indexing so field names match the mapping.
func (d *ParagraphDocument) ToMap() map[string]any {
	return map[string]any{
		"id":            d.ID,
		"book_id":       d.BookID,
		"book_title":    d.BookTitle,
		"chapter_id":    d.ChapterID,
		"chapter_title": d.ChapterTitle,
		"pid":           d.ParagraphID,
		"text":          d.Text,
	}
}
