// Package stage turns configuration tables into stage descriptors and
// orders them.
package stage

import (
	"golang.org/x/text/unicode/norm"

	"github.com/rust-lang/mdBook-sub001/internal/config"
	"github.com/rust-lang/mdBook-sub001/internal/util/sets"
)

// Kind is the pipeline role of a stage.
type Kind string

const (
	KindPreprocessor Kind = "preprocessor"
	KindRenderer     Kind = "renderer"
)

// Table returns the top-level configuration table holding stages of this kind.
func (k Kind) Table() string {
	if k == KindRenderer {
		return "output"
	}
	return "preprocessor"
}

// Built-in stage names.
const (
	IndexPreprocessor = "index"
	LinksPreprocessor = "links"
	HTMLRenderer      = "html"
	MarkdownRenderer  = "markdown"
)

// DefaultPreprocessors are added unless build.use-default-preprocessors is false.
var DefaultPreprocessors = []string{IndexPreprocessor, LinksPreprocessor}

// DefaultRenderer is used when no output table is configured.
const DefaultRenderer = HTMLRenderer

// Descriptor is the normalized configuration of a single stage.
type Descriptor struct {
	Name string
	Kind Kind
	// Command is the configured command line. CommandSet distinguishes an
	// absent key from an explicitly empty one.
	Command    string
	CommandSet bool
	// Before names stages that must run after this one; After names stages
	// that must run before it. Unknown names impose no constraint.
	Before sets.Set[string]
	After  sets.Set[string]
	// Renderers restricts a preprocessor to the listed renderers. Nil means
	// the stage's own support query decides.
	Renderers sets.Set[string]
	Optional  bool
	// Table is the stage's raw configuration table, if any.
	Table config.Table
}

// EffectiveCommand is the command line used when the stage is external.
func (d Descriptor) EffectiveCommand() string {
	if d.CommandSet {
		return d.Command
	}
	return d.Name
}

// RestrictedTo reports whether the stage carries an explicit renderer list
// and, if so, whether renderer is on it.
func (d Descriptor) RestrictedTo(renderer string) (restricted, allowed bool) {
	if d.Renderers == nil {
		return false, false
	}
	return true, d.Renderers.Has(CanonicalName(renderer))
}

// CanonicalName is the form used for stage identity and ordering: names are
// compared after NFC normalization so visually identical names match.
func CanonicalName(name string) string {
	return norm.NFC.String(name)
}
