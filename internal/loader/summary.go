package loader

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/rust-lang/mdBook-sub001/internal/book"
)

// ErrSummarySyntax marks a SUMMARY.md that does not follow the outline
// grammar.
var ErrSummarySyntax = errors.New("invalid SUMMARY.md")

// Summary is the parsed outline of a book.
type Summary struct {
	Title    string
	Prefix   []SummaryItem
	Numbered []SummaryItem
	Suffix   []SummaryItem
}

// Items returns prefix, numbered and suffix items in book order.
func (s *Summary) Items() []SummaryItem {
	out := make([]SummaryItem, 0, len(s.Prefix)+len(s.Numbered)+len(s.Suffix))
	out = append(out, s.Prefix...)
	out = append(out, s.Numbered...)
	return append(out, s.Suffix...)
}

// SummaryItem is a link, a separator or a part title.
type SummaryItem struct {
	Kind      book.ItemKind
	Link      *Link
	PartTitle string
}

// Link is one chapter entry. An empty Location is a draft chapter.
type Link struct {
	Name     string
	Location string
	Number   book.SectionNumber
	Nested   []SummaryItem
}

// ParseSummary reads an outline of the form
//
//	# Title
//	[Prefix](prefix.md)
//	# Part title
//	- [Chapter](chapter.md)
//	    - [Section](chapter/section.md)
//	---
//	[Suffix](suffix.md)
//
// The title, prefix and suffix chapters and part titles are optional.
// Numbering continues across parts.
func ParseSummary(src []byte) (*Summary, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	p := summaryParser{src: src}
	s := &Summary{}

	n := doc.FirstChild()
	for n != nil {
		if _, ok := n.(*gmast.HTMLBlock); ok {
			n = n.NextSibling()
			continue
		}
		if isH1(n) {
			s.Title = p.plainText(n)
			n = n.NextSibling()
		}
		break
	}

	for ; n != nil && !isList(n) && !isH1(n); n = n.NextSibling() {
		s.Prefix = append(s.Prefix, p.affixItems(n)...)
	}

	var roots uint32
	for ; n != nil; n = n.NextSibling() {
		if _, ok := n.(*gmast.Paragraph); ok {
			break
		}
		switch n := n.(type) {
		case *gmast.Heading:
			if n.Level == 1 {
				s.Numbered = append(s.Numbered, SummaryItem{Kind: book.KindPartTitle, PartTitle: p.plainText(n)})
			}
		case *gmast.List:
			items, err := p.numbered(n, nil, roots)
			if err != nil {
				return nil, err
			}
			roots += uint32(len(items))
			s.Numbered = append(s.Numbered, items...)
		case *gmast.ThematicBreak:
			s.Numbered = append(s.Numbered, SummaryItem{Kind: book.KindSeparator})
		}
	}

	for ; n != nil; n = n.NextSibling() {
		if isList(n) || isH1(n) {
			return nil, p.errorf(n, "suffix chapters cannot be followed by a list")
		}
		s.Suffix = append(s.Suffix, p.affixItems(n)...)
	}
	return s, nil
}

type summaryParser struct {
	src []byte
}

// affixItems collects the unnumbered chapters in a block.
func (p summaryParser) affixItems(n gmast.Node) []SummaryItem {
	if _, ok := n.(*gmast.ThematicBreak); ok {
		return []SummaryItem{{Kind: book.KindSeparator}}
	}
	var out []SummaryItem
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if l, ok := c.(*gmast.Link); ok {
			out = append(out, SummaryItem{Kind: book.KindChapter, Link: p.link(l)})
			return gmast.WalkSkipChildren, nil
		}
		return gmast.WalkContinue, nil
	})
	return out
}

// numbered parses a list of numbered chapters. offset shifts the last
// component of each number so numbering continues after earlier lists.
func (p summaryParser) numbered(list *gmast.List, parent book.SectionNumber, offset uint32) ([]SummaryItem, error) {
	var items []SummaryItem
	for li := list.FirstChild(); li != nil; li = li.NextSibling() {
		first := li.FirstChild()
		var l *gmast.Link
		switch first.(type) {
		case *gmast.TextBlock, *gmast.Paragraph:
			l, _ = first.FirstChild().(*gmast.Link)
		}
		if l == nil {
			return nil, p.errorf(li, "the link items for nested chapters must only contain a hyperlink")
		}

		link := p.link(l)
		link.Number = append(append(book.SectionNumber{}, parent...), offset+uint32(len(items))+1)
		for c := first.NextSibling(); c != nil; c = c.NextSibling() {
			sub, ok := c.(*gmast.List)
			if !ok {
				continue
			}
			nested, err := p.numbered(sub, link.Number, uint32(len(link.Nested)))
			if err != nil {
				return nil, err
			}
			link.Nested = append(link.Nested, nested...)
		}
		items = append(items, SummaryItem{Kind: book.KindChapter, Link: link})
	}
	return items, nil
}

func (p summaryParser) link(l *gmast.Link) *Link {
	return &Link{
		Name:     p.plainText(l),
		Location: strings.ReplaceAll(string(l.Destination), "%20", " "),
	}
}

// plainText drops inline styling and keeps the text.
func (p summaryParser) plainText(n gmast.Node) string {
	var b strings.Builder
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch c := c.(type) {
		case *gmast.Text:
			b.Write(c.Segment.Value(p.src))
			if c.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *gmast.String:
			b.Write(c.Value)
		}
		return gmast.WalkContinue, nil
	})
	return b.String()
}

func (p summaryParser) errorf(n gmast.Node, format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrSummarySyntax, p.line(n), fmt.Sprintf(format, args...))
}

// line is the 1-based line of the first text in n, or 0 when unknown.
func (p summaryParser) line(n gmast.Node) int {
	offset := -1
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering || c.Type() != gmast.TypeBlock {
			return gmast.WalkContinue, nil
		}
		if lines := c.Lines(); lines != nil && lines.Len() > 0 {
			offset = lines.At(0).Start
			return gmast.WalkStop, nil
		}
		return gmast.WalkContinue, nil
	})
	if offset < 0 {
		return 0
	}
	return bytes.Count(p.src[:offset], []byte("\n")) + 1
}

func isH1(n gmast.Node) bool {
	h, ok := n.(*gmast.Heading)
	return ok && h.Level == 1
}

func isList(n gmast.Node) bool {
	_, ok := n.(*gmast.List)
	return ok
}
