// Package plan describes a build's stage layout without running any
// transform, and renders that description in several formats.
package plan

import (
	"context"

	"github.com/rust-lang/mdBook-sub001/internal/build"
	"github.com/rust-lang/mdBook-sub001/internal/config"
	"github.com/rust-lang/mdBook-sub001/internal/stage"
	"github.com/rust-lang/mdBook-sub001/internal/util/sets"
)

// Stage is one preprocessor in resolved order.
type Stage struct {
	Name      string   `json:"name" yaml:"name"`
	Command   string   `json:"command,omitempty" yaml:"command,omitempty"`
	Builtin   bool     `json:"builtin" yaml:"builtin"`
	Optional  bool     `json:"optional,omitempty" yaml:"optional,omitempty"`
	Before    []string `json:"before,omitempty" yaml:"before,omitempty"`
	After     []string `json:"after,omitempty" yaml:"after,omitempty"`
	Renderers []string `json:"renderers,omitempty" yaml:"renderers,omitempty"`
}

// Chain is a renderer and the preprocessors that run before it.
type Chain struct {
	Renderer      string   `json:"renderer" yaml:"renderer"`
	Command       string   `json:"command,omitempty" yaml:"command,omitempty"`
	Builtin       bool     `json:"builtin" yaml:"builtin"`
	Optional      bool     `json:"optional,omitempty" yaml:"optional,omitempty"`
	Destination   string   `json:"destination" yaml:"destination"`
	Preprocessors []string `json:"preprocessors" yaml:"preprocessors"`
}

// View is the full description of a build.
type View struct {
	Root          string  `json:"root" yaml:"root"`
	Preprocessors []Stage `json:"preprocessors" yaml:"preprocessors"`
	Renderers     []Chain `json:"renderers" yaml:"renderers"`
}

// Describe resolves the stages of cfg and asks each preprocessor whether it
// supports each renderer. Support queries of external preprocessors run
// their commands; no book is transformed.
func Describe(ctx context.Context, runner *build.Runner, root string, cfg *config.Config, destOverride string) (*View, error) {
	p, err := build.NewPlan(cfg)
	if err != nil {
		return nil, err
	}
	base, err := build.BaseDir(root, cfg, destOverride)
	if err != nil {
		return nil, err
	}
	reg := runner.Registry()

	v := &View{Root: root, Preprocessors: []Stage{}, Renderers: []Chain{}}
	for _, d := range p.Preprocessors {
		s := Stage{
			Name:     d.Name,
			Builtin:  !d.CommandSet && reg.IsBuiltin(stage.KindPreprocessor, d.Name),
			Optional: d.Optional,
			Before:   sortedOrNil(d.Before),
			After:    sortedOrNil(d.After),
		}
		if !s.Builtin {
			s.Command = d.EffectiveCommand()
		}
		if d.Renderers != nil {
			s.Renderers = sets.Sorted(d.Renderers)
		}
		v.Preprocessors = append(v.Preprocessors, s)
	}

	for _, d := range p.Renderers {
		chain := Chain{
			Renderer:      d.Name,
			Builtin:       !d.CommandSet && reg.IsBuiltin(stage.KindRenderer, d.Name),
			Optional:      d.Optional,
			Destination:   build.Destination(base, d.Name, len(p.Renderers)),
			Preprocessors: []string{},
		}
		if !chain.Builtin {
			chain.Command = d.EffectiveCommand()
		}
		applicable, err := runner.Applicable(ctx, p, root, d.Name)
		if err != nil {
			return nil, err
		}
		for _, pre := range applicable {
			chain.Preprocessors = append(chain.Preprocessors, pre.Name())
		}
		v.Renderers = append(v.Renderers, chain)
	}
	return v, nil
}

func sortedOrNil(s sets.Set[string]) []string {
	if s.Len() == 0 {
		return nil
	}
	return sets.Sorted(s)
}
