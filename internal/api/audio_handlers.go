package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	domainerrors "github.com/readalongapp/readalong-server/internal/errors"
	"github.com/readalongapp/readalong-server/internal/http/response"
)

// cacheOneDayPrivate suits chapter audio; the files never change in place.
const cacheOneDayPrivate = "private, max-age=86400"

// handleStreamAudio streams a chapter's audio file with HTTP Range support
// for seeking. GET /api/v1/books/{bookID}/chapters/{chapterID}/audio
func (s *Server) handleStreamAudio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bookID := chi.URLParam(r, "bookID")
	chapterID := chi.URLParam(r, "chapterID")

	if bookID == "" || chapterID == "" {
		response.BadRequest(w, "Book ID and chapter ID are required", s.logger)
		return
	}

	path, err := s.services.Book.AudioPath(ctx, bookID, chapterID)
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrNotFound) {
			response.NotFound(w, "Audio not found", s.logger)
			return
		}
		s.logger.Error("Failed to resolve audio path", "error", err, "book_id", bookID, "chapter_id", chapterID)
		response.FromError(w, err, s.logger)
		return
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		s.logger.Error("Audio file missing from disk",
			"book_id", bookID,
			"chapter_id", chapterID,
			"path", path,
		)
		response.NotFound(w, "Audio file not found on disk", s.logger)
		return
	}

	w.Header().Set("Content-Type", audioContentType(path))
	w.Header().Set("Cache-Control", cacheOneDayPrivate)

	// http.ServeFile handles Range requests, Content-Length/Content-Range,
	// Accept-Ranges, If-Range, and Last-Modified caching.
	http.ServeFile(w, r, path)
}

// audioContentType returns the MIME type for an audio file path.
func audioContentType(path string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "mp3":
		return "audio/mpeg"
	case "m4a", "m4b", "mp4":
		return "audio/mp4"
	case "ogg", "oga", "opus":
		return "audio/ogg"
	case "flac":
		return "audio/flac"
	case "wav":
		return "audio/wav"
	case "aac":
		return "audio/aac"
	default:
		return "application/octet-stream"
	}
}
