package annotate

import (
	"log/slog"
	"sort"
	"strconv"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/readalongapp/readalong-server/internal/alignment"
	"github.com/readalongapp/readalong-server/internal/errors"
)

// WrapWords wraps each aligned word of one paragraph in a
// <span data-pid data-widx> element so playback can address it.
//
// Words are processed in descending start-offset order: wrapping mutates the
// text nodes after the insertion point, so earlier offsets stay valid only
// when later words are wrapped first. Already-annotated paragraphs are left
// untouched.
func (d *Document) WrapWords(pid string, words []alignment.Word) error {
	p := d.byPID[pid]
	if p == nil {
		return errors.NotFoundf("paragraph %s not in chapter", pid)
	}
	if len(words) == 0 {
		return nil
	}
	if hasWordSpans(p) {
		return nil
	}
	if !canSafelyWrap(p) {
		return errors.Validationf("paragraph %s has nested markup, cannot wrap words", pid)
	}

	sorted := make([]alignment.Word, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartChar > sorted[j].StartChar
	})

	textLen := len([]rune(d.Text(pid)))
	for _, w := range sorted {
		start, end := w.StartChar, w.EndChar
		if start >= textLen {
			continue
		}
		if end > textLen {
			end = textLen
		}
		if end <= start {
			continue
		}
		if err := wrapRange(p, pid, w.WordIndex, start, end); err != nil {
			return err
		}
	}
	return nil
}

// AnnotateAll wraps words for every paragraph that has word timings.
// Individual paragraph failures are logged and skipped; a paragraph the
// annotator cannot wrap still renders and highlights at segment granularity.
func (d *Document) AnnotateAll(ix *alignment.Index, log *slog.Logger) {
	for _, p := range d.paragraphs {
		words := ix.Words(p.PID)
		if len(words) == 0 {
			continue
		}
		if err := d.WrapWords(p.PID, words); err != nil {
			if log != nil {
				log.Debug("skipping word annotation", "pid", p.PID, "error", err)
			}
		}
	}
}

// canSafelyWrap reports whether a paragraph contains only text: character
// offsets from the aligner are computed over plain text and cannot be mapped
// through nested elements.
func canSafelyWrap(p *html.Node) bool {
	for c := p.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.TextNode {
			return false
		}
	}
	return true
}

func hasWordSpans(n *html.Node) bool {
	if n.Type == html.ElementNode && attrValue(n, AttrWordIndex) != "" {
		return true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if hasWordSpans(c) {
			return true
		}
	}
	return false
}

// wrapRange splits the text node containing [start, end) and inserts the word
// span between the halves. Offsets are rune positions over the paragraph's
// concatenated text, including text already inside word spans.
func wrapRange(p *html.Node, pid string, widx, start, end int) error {
	startNode, startOff := resolveOffset(p, start, false)
	endNode, endOff := resolveOffset(p, end, true)
	if startNode == nil || endNode == nil {
		return errors.Validationf("word %d of %s is out of range", widx, pid)
	}
	if startNode != endNode {
		// Range straddles an existing span boundary: overlapping word
		// timings. Refuse rather than produce broken markup.
		return errors.Validationf("word %d of %s crosses a node boundary", widx, pid)
	}

	runes := []rune(startNode.Data)
	before := string(runes[:startOff])
	word := string(runes[startOff:endOff])
	after := string(runes[endOff:])

	span := &html.Node{
		Type:     html.ElementNode,
		Data:     "span",
		DataAtom: atom.Span,
		Attr: []html.Attribute{
			{Key: AttrParagraphID, Val: pid},
			{Key: AttrWordIndex, Val: strconv.Itoa(widx)},
		},
	}
	span.AppendChild(&html.Node{Type: html.TextNode, Data: word})

	parent := startNode.Parent
	next := startNode.NextSibling
	parent.RemoveChild(startNode)

	insert := func(n *html.Node) {
		if next != nil {
			parent.InsertBefore(n, next)
		} else {
			parent.AppendChild(n)
		}
	}
	if before != "" {
		insert(&html.Node{Type: html.TextNode, Data: before})
	}
	insert(span)
	if after != "" {
		insert(&html.Node{Type: html.TextNode, Data: after})
	}
	return nil
}

// resolveOffset walks the text leaves of p in document order and returns the
// leaf containing rune offset off, with the offset local to that leaf.
// At a leaf boundary, an end offset resolves to the end of the earlier leaf
// and a start offset to the beginning of the later one, so adjacent words
// never straddle nodes.
func resolveOffset(p *html.Node, off int, atEnd bool) (*html.Node, int) {
	var leaves []*html.Node
	collectTextLeaves(p, &leaves)

	remaining := off
	for i, leaf := range leaves {
		n := len([]rune(leaf.Data))
		if remaining < n || (remaining == n && (atEnd || i == len(leaves)-1)) {
			return leaf, remaining
		}
		remaining -= n
	}
	return nil, 0
}

func collectTextLeaves(n *html.Node, out *[]*html.Node) {
	if n.Type == html.TextNode {
		*out = append(*out, n)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectTextLeaves(c, out)
	}
}
