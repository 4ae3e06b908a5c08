// Package book holds the in-memory document tree that flows through the
// preprocessor chain and into renderers.
package book

import (
	"iter"
	"strconv"
	"strings"
)

// Book is an ordered forest of items.
type Book struct {
	Sections []Item
}

// New returns an empty book.
func New() *Book {
	return &Book{}
}

// ItemKind discriminates the variants of Item.
type ItemKind int

const (
	KindChapter ItemKind = iota
	KindSeparator
	KindPartTitle
)

func (k ItemKind) String() string {
	switch k {
	case KindChapter:
		return "Chapter"
	case KindSeparator:
		return "Separator"
	case KindPartTitle:
		return "PartTitle"
	default:
		return "ItemKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Item is one entry of the book: a chapter, a separator, or a part title.
// Chapter is set only for KindChapter and PartTitle only for KindPartTitle.
type Item struct {
	Kind      ItemKind
	Chapter   *Chapter
	PartTitle string
}

// ChapterItem wraps a chapter.
func ChapterItem(ch *Chapter) Item { return Item{Kind: KindChapter, Chapter: ch} }

// SeparatorItem returns a separator.
func SeparatorItem() Item { return Item{Kind: KindSeparator} }

// PartTitleItem returns a part title with the given label.
func PartTitleItem(title string) Item { return Item{Kind: KindPartTitle, PartTitle: title} }

// SectionNumber is a chapter's position, e.g. 1.2.3. A nil number marks an
// unnumbered chapter.
type SectionNumber []uint32

// String renders the number with a trailing dot, e.g. "1.2.".
func (n SectionNumber) String() string {
	if len(n) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range n {
		b.WriteString(strconv.FormatUint(uint64(part), 10))
		b.WriteByte('.')
	}
	return b.String()
}

// Chapter is a single page of content.
type Chapter struct {
	Name    string
	Content string
	Number  SectionNumber
	// SubItems are the nested entries below this chapter.
	SubItems []Item
	// Path is the chapter location relative to the source directory.
	// Empty for draft chapters.
	Path string
	// SourcePath is where the content was read from. It differs from Path
	// once a preprocessor renames the output location.
	SourcePath  string
	ParentNames []string
}

// NewChapter creates a chapter whose Path and SourcePath are both path.
func NewChapter(name, content, path string, parentNames []string) *Chapter {
	return &Chapter{
		Name:        name,
		Content:     content,
		Path:        path,
		SourcePath:  path,
		ParentNames: parentNames,
	}
}

// NewDraftChapter creates a chapter with no content and no path.
func NewDraftChapter(name string, parentNames []string) *Chapter {
	return &Chapter{Name: name, ParentNames: parentNames}
}

// IsDraft reports whether the chapter has no backing file.
func (c *Chapter) IsDraft() bool { return c.Path == "" }

// PushItem appends an item to the top level of the book.
func (b *Book) PushItem(item Item) *Book {
	b.Sections = append(b.Sections, item)
	return b
}

// Iter walks every item depth-first, parents before their children.
func (b *Book) Iter() iter.Seq[*Item] {
	return func(yield func(*Item) bool) {
		walk(b.Sections, yield)
	}
}

func walk(items []Item, yield func(*Item) bool) bool {
	for i := range items {
		item := &items[i]
		if !yield(item) {
			return false
		}
		if item.Kind == KindChapter && item.Chapter != nil {
			if !walk(item.Chapter.SubItems, yield) {
				return false
			}
		}
	}
	return true
}

// Chapters yields every chapter in depth-first order.
func (b *Book) Chapters() iter.Seq[*Chapter] {
	return func(yield func(*Chapter) bool) {
		for item := range b.Iter() {
			if item.Kind == KindChapter && item.Chapter != nil {
				if !yield(item.Chapter) {
					return
				}
			}
		}
	}
}

// ForEachMut calls fn on every item, visiting a chapter's sub items before
// the chapter itself.
func (b *Book) ForEachMut(fn func(*Item)) {
	forEachMut(b.Sections, fn)
}

func forEachMut(items []Item, fn func(*Item)) {
	for i := range items {
		item := &items[i]
		if item.Kind == KindChapter && item.Chapter != nil {
			forEachMut(item.Chapter.SubItems, fn)
		}
		fn(item)
	}
}

// Clone returns a deep copy that shares no mutable state with b.
func (b *Book) Clone() *Book {
	if b == nil {
		return nil
	}
	return &Book{Sections: cloneItems(b.Sections)}
}

func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i, item := range items {
		out[i] = item
		if item.Chapter != nil {
			out[i].Chapter = item.Chapter.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the chapter.
func (c *Chapter) Clone() *Chapter {
	cp := *c
	if c.Number != nil {
		cp.Number = append(SectionNumber(nil), c.Number...)
	}
	if c.ParentNames != nil {
		cp.ParentNames = append([]string(nil), c.ParentNames...)
	}
	cp.SubItems = cloneItems(c.SubItems)
	return &cp
}
