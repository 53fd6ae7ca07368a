package alignment

import (
	"encoding/json/v2"

	"github.com/readalongapp/readalong-server/internal/errors"
)

// Alignment generators emit either `begin`/`end` or `start`/`end` for
// segments. Raw types use pointers so a missing field is distinguishable
// from zero: a zero default would silently mis-time the whole chapter.
type rawSegment struct {
	ParagraphID string   `json:"pid"`
	Begin       *float64 `json:"begin"`
	Start       *float64 `json:"start"`
	End         *float64 `json:"end"`
}

type rawWord struct {
	ParagraphID string   `json:"pid"`
	WordIndex   *int     `json:"widx"`
	Text        string   `json:"text"`
	StartChar   *int     `json:"start_char"`
	EndChar     *int     `json:"end_char"`
	Begin       *float64 `json:"begin"`
	End         *float64 `json:"end"`
}

type rawFile struct {
	ChapterID string       `json:"chapter_id"`
	Status    string       `json:"status"`
	Segments  []rawSegment `json:"segments"`
	Words     []rawWord    `json:"words"`
}

// Parse decodes a chapter alignment artifact.
// Malformed input (missing required fields, inverted ranges) fails the whole
// parse; the chapter load surfaces this to the caller rather than guessing.
func Parse(data []byte) (*File, error) {
	var raw rawFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Validation("alignment file is not valid JSON").WithCause(err)
	}

	f := &File{
		ChapterID: raw.ChapterID,
		Status:    raw.Status,
		Segments:  make([]Segment, 0, len(raw.Segments)),
	}

	for i, rs := range raw.Segments {
		begin := rs.Begin
		if begin == nil {
			begin = rs.Start
		}
		if rs.ParagraphID == "" {
			return nil, errors.Validationf("alignment segment %d is missing pid", i)
		}
		if begin == nil || rs.End == nil {
			return nil, errors.Validationf("alignment segment %d (%s) is missing begin/end", i, rs.ParagraphID)
		}
		if *begin >= *rs.End {
			return nil, errors.Validationf("alignment segment %d (%s) has begin %.3f >= end %.3f", i, rs.ParagraphID, *begin, *rs.End)
		}
		f.Segments = append(f.Segments, Segment{
			ParagraphID: rs.ParagraphID,
			Begin:       *begin,
			End:         *rs.End,
		})
	}

	if len(raw.Words) > 0 {
		f.Words = make([]Word, 0, len(raw.Words))
		for i, rw := range raw.Words {
			if err := validateWord(i, rw); err != nil {
				return nil, err
			}
			f.Words = append(f.Words, Word{
				ParagraphID: rw.ParagraphID,
				WordIndex:   *rw.WordIndex,
				Text:        rw.Text,
				StartChar:   *rw.StartChar,
				EndChar:     *rw.EndChar,
				Begin:       *rw.Begin,
				End:         *rw.End,
			})
		}
	}

	return f, nil
}

func validateWord(i int, rw rawWord) error {
	if rw.ParagraphID == "" {
		return errors.Validationf("alignment word %d is missing pid", i)
	}
	if rw.WordIndex == nil || *rw.WordIndex < 0 {
		return errors.Validationf("alignment word %d (%s) has invalid widx", i, rw.ParagraphID)
	}
	if rw.StartChar == nil || rw.EndChar == nil || *rw.StartChar < 0 || *rw.EndChar < *rw.StartChar {
		return errors.Validationf("alignment word %d (%s) has invalid char range", i, rw.ParagraphID)
	}
	if rw.Begin == nil || rw.End == nil {
		return errors.Validationf("alignment word %d (%s) is missing begin/end", i, rw.ParagraphID)
	}
	if *rw.Begin > *rw.End {
		return errors.Validationf("alignment word %d (%s) has begin %.3f > end %.3f", i, rw.ParagraphID, *rw.Begin, *rw.End)
	}
	return nil
}
