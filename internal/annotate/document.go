// Package annotate parses chapter markup and wraps aligned words in
// addressable spans so playback can highlight them.
//
// Chapter HTML is a flat sequence of <p data-pid="..."> elements. The
// annotator treats the parsed tree as the render target described by the
// alignment data: paragraphs addressed by pid, words by (pid, widx).
package annotate

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/readalongapp/readalong-server/internal/errors"
)

// Attribute names shared with the reader engine and front-ends.
const (
	AttrParagraphID = "data-pid"
	AttrWordIndex   = "data-widx"
)

// Paragraph is one addressable paragraph of a chapter.
type Paragraph struct {
	PID  string
	Node *html.Node
}

// Document is a parsed chapter: the fragment's top-level nodes plus an
// ordered list of addressable paragraphs.
type Document struct {
	roots      []*html.Node
	paragraphs []Paragraph
	byPID      map[string]*html.Node
}

// ParseChapter parses a chapter HTML fragment.
// Fails when the fragment is empty or contains no addressable paragraphs:
// a chapter the reader cannot address is an asset error, not a rendering
// detail.
func ParseChapter(src string) (*Document, error) {
	if strings.TrimSpace(src) == "" {
		return nil, errors.Validation("chapter markup is empty")
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	roots, err := html.ParseFragment(strings.NewReader(src), body)
	if err != nil {
		return nil, errors.Validation("chapter markup is not parseable").WithCause(err)
	}

	doc := &Document{
		roots: roots,
		byPID: make(map[string]*html.Node),
	}
	for _, root := range roots {
		doc.collectParagraphs(root)
	}

	if len(doc.paragraphs) == 0 {
		return nil, errors.Validation("chapter markup has no paragraphs with pids")
	}
	return doc, nil
}

func (d *Document) collectParagraphs(n *html.Node) {
	if n.Type == html.ElementNode && n.DataAtom == atom.P {
		if pid := attrValue(n, AttrParagraphID); pid != "" {
			d.paragraphs = append(d.paragraphs, Paragraph{PID: pid, Node: n})
			d.byPID[pid] = n
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.collectParagraphs(c)
	}
}

// Paragraphs returns the paragraphs in document order.
func (d *Document) Paragraphs() []Paragraph {
	return d.paragraphs
}

// ParagraphIDs returns the paragraph ids in document order.
func (d *Document) ParagraphIDs() []string {
	ids := make([]string, len(d.paragraphs))
	for i, p := range d.paragraphs {
		ids[i] = p.PID
	}
	return ids
}

// Paragraph returns the node for a pid, or nil.
func (d *Document) Paragraph(pid string) *html.Node {
	return d.byPID[pid]
}

// Text returns the concatenated text content of one paragraph.
func (d *Document) Text(pid string) string {
	n := d.byPID[pid]
	if n == nil {
		return ""
	}
	var sb strings.Builder
	appendText(n, &sb)
	return sb.String()
}

// Render serializes the document back to an HTML fragment.
func (d *Document) Render() (string, error) {
	var sb strings.Builder
	for _, root := range d.roots {
		if err := html.Render(&sb, root); err != nil {
			return "", errors.Internal("render chapter markup").WithCause(err)
		}
	}
	return sb.String(), nil
}

func appendText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		appendText(c, sb)
	}
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// SetAttr sets or replaces an attribute on a node.
func SetAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes an attribute from a node if present.
func RemoveAttr(n *html.Node, key string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// Attr returns the value of an attribute, or "".
func Attr(n *html.Node, key string) string {
	return attrValue(n, key)
}
