package book

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownItem is returned when decoding an item variant that is not
// Chapter, Separator or PartTitle.
var ErrUnknownItem = errors.New("unknown book item variant")

// ErrMissingSections is returned when a book document is null or carries
// neither a "sections" nor an "items" array.
var ErrMissingSections = errors.New("missing field `sections`")

type bookJSON struct {
	Sections      []Item    `json:"sections"`
	NonExhaustive *struct{} `json:"__non_exhaustive"`
}

// MarshalJSON encodes the book as {"sections": [...], "__non_exhaustive": null}.
func (b Book) MarshalJSON() ([]byte, error) {
	sections := b.Sections
	if sections == nil {
		sections = []Item{}
	}
	return json.Marshal(bookJSON{Sections: sections})
}

// UnmarshalJSON accepts both "sections" and the newer "items" key. One of
// them must be present as an array.
func (b *Book) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return fmt.Errorf("%w: got null", ErrMissingSections)
	}
	var raw struct {
		Sections *[]Item `json:"sections"`
		Items    *[]Item `json:"items"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.Sections != nil:
		b.Sections = *raw.Sections
	case raw.Items != nil:
		b.Sections = *raw.Items
	default:
		return ErrMissingSections
	}
	if b.Sections == nil {
		b.Sections = []Item{}
	}
	return nil
}

type chapterJSON struct {
	Name        string        `json:"name"`
	Content     string        `json:"content"`
	Number      SectionNumber `json:"number"`
	SubItems    []Item        `json:"sub_items"`
	Path        *string       `json:"path"`
	SourcePath  *string       `json:"source_path"`
	ParentNames []string      `json:"parent_names"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// MarshalJSON encodes empty paths as null and nil slices as empty arrays.
func (c Chapter) MarshalJSON() ([]byte, error) {
	out := chapterJSON{
		Name:        c.Name,
		Content:     c.Content,
		Number:      c.Number,
		SubItems:    c.SubItems,
		Path:        optional(c.Path),
		SourcePath:  optional(c.SourcePath),
		ParentNames: c.ParentNames,
	}
	if out.SubItems == nil {
		out.SubItems = []Item{}
	}
	if out.ParentNames == nil {
		out.ParentNames = []string{}
	}
	return json.Marshal(out)
}

func (c *Chapter) UnmarshalJSON(data []byte) error {
	var in chapterJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*c = Chapter{
		Name:        in.Name,
		Content:     in.Content,
		Number:      in.Number,
		SubItems:    in.SubItems,
		Path:        deref(in.Path),
		SourcePath:  deref(in.SourcePath),
		ParentNames: in.ParentNames,
	}
	return nil
}

// MarshalJSON uses external tagging: {"Chapter": {...}}, "Separator",
// or {"PartTitle": "..."}.
func (i Item) MarshalJSON() ([]byte, error) {
	switch i.Kind {
	case KindChapter:
		if i.Chapter == nil {
			return nil, fmt.Errorf("chapter item without chapter")
		}
		return json.Marshal(map[string]*Chapter{"Chapter": i.Chapter})
	case KindSeparator:
		return []byte(`"Separator"`), nil
	case KindPartTitle:
		return json.Marshal(map[string]string{"PartTitle": i.PartTitle})
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownItem, i.Kind)
	}
}

func (i *Item) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var tag string
		if err := json.Unmarshal(data, &tag); err != nil {
			return err
		}
		if tag != "Separator" {
			return fmt.Errorf("%w: %q", ErrUnknownItem, tag)
		}
		*i = SeparatorItem()
		return nil
	}

	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}
	if len(tagged) != 1 {
		return fmt.Errorf("%w: expected exactly one variant key, got %d", ErrUnknownItem, len(tagged))
	}
	for tag, body := range tagged {
		switch tag {
		case "Chapter":
			var ch Chapter
			if err := json.Unmarshal(body, &ch); err != nil {
				return fmt.Errorf("decode chapter: %w", err)
			}
			*i = ChapterItem(&ch)
		case "PartTitle":
			var title string
			if err := json.Unmarshal(body, &title); err != nil {
				return fmt.Errorf("decode part title: %w", err)
			}
			*i = PartTitleItem(title)
		default:
			return fmt.Errorf("%w: %q", ErrUnknownItem, tag)
		}
	}
	return nil
}
