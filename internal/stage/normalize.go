package stage

import (
	"fmt"

	"github.com/rust-lang/mdBook-sub001/internal/config"
	"github.com/rust-lang/mdBook-sub001/internal/util/sets"
)

// Preprocessors derives the preprocessor set from cfg. Built-in defaults
// are included unless build.use-default-preprocessors is false; a
// configured table with the same name replaces the default entry.
func Preprocessors(cfg *config.Config) (*Set, error) {
	buildCfg, err := cfg.Build()
	if err != nil {
		return nil, shapeError(KindPreprocessor, "", fmt.Errorf("build: %w", err))
	}

	set := NewSet(KindPreprocessor)
	if buildCfg.UseDefaultPreprocessors {
		for _, name := range DefaultPreprocessors {
			set.Add(Descriptor{Name: name})
		}
	}
	if err := addConfigured(set, cfg); err != nil {
		return nil, err
	}
	return set, nil
}

// Renderers derives the renderer set from cfg. When no output table exists
// the set contains only the default renderer.
func Renderers(cfg *config.Config) (*Set, error) {
	set := NewSet(KindRenderer)
	if err := addConfigured(set, cfg); err != nil {
		return nil, err
	}
	if set.Len() == 0 {
		set.Add(Descriptor{Name: DefaultRenderer})
	}
	return set, nil
}

func addConfigured(set *Set, cfg *config.Config) error {
	kind := set.Kind()
	tables, ok, err := cfg.Tree().Table(kind.Table())
	if err != nil {
		return shapeError(kind, "", err)
	}
	if !ok {
		return nil
	}
	for name, raw := range tables {
		if name == "" {
			return shapeError(kind, name, fmt.Errorf("stage name must not be empty"))
		}
		tbl, isTable := raw.(config.Table)
		if !isTable {
			return shapeError(kind, name, fmt.Errorf("expected a table, found %s", config.TypeName(raw)))
		}
		d, err := parseDescriptor(kind, name, tbl)
		if err != nil {
			return shapeError(kind, name, err)
		}
		set.Add(d)
	}
	return nil
}

func parseDescriptor(kind Kind, name string, tbl config.Table) (Descriptor, error) {
	d := Descriptor{Name: name, Kind: kind, Table: tbl}

	cmd, ok, err := tbl.String("command")
	if err != nil {
		return d, err
	}
	d.Command, d.CommandSet = cmd, ok

	if d.Optional, _, err = tbl.Bool("optional"); err != nil {
		return d, err
	}

	if d.Before, _, err = nameSet(tbl, "before"); err != nil {
		return d, err
	}
	if d.After, _, err = nameSet(tbl, "after"); err != nil {
		return d, err
	}

	// renderers only matters for preprocessors; renderer tables keep it as
	// plain configuration.
	if kind == KindPreprocessor {
		renderers, present, err := nameSet(tbl, "renderers")
		if err != nil {
			return d, err
		}
		if present {
			d.Renderers = renderers
		}
	}
	return d, nil
}

func nameSet(tbl config.Table, key string) (sets.Set[string], bool, error) {
	names, ok, err := tbl.StringSlice(key)
	if err != nil || !ok {
		return sets.New[string](), ok, err
	}
	out := sets.New[string]()
	for _, n := range names {
		out.Add(CanonicalName(n))
	}
	return out, true, nil
}
