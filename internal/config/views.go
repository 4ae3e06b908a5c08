package config

import "fmt"

// BookConfig is the typed view of [book].
type BookConfig struct {
	Title       string
	Authors     []string
	Description string
	Language    string
	// Src is the source directory relative to the book root.
	Src string
}

// BuildConfig is the typed view of [build].
type BuildConfig struct {
	// BuildDir is the output base directory relative to the book root.
	BuildDir                string
	CreateMissing           bool
	UseDefaultPreprocessors bool
	ExtraWatchDirs          []string
}

// DefaultBookConfig returns the values used when [book] keys are absent.
func DefaultBookConfig() BookConfig {
	return BookConfig{Language: "en", Src: "src"}
}

// DefaultBuildConfig returns the values used when [build] keys are absent.
func DefaultBuildConfig() BuildConfig {
	return BuildConfig{
		BuildDir:                "book",
		CreateMissing:           true,
		UseDefaultPreprocessors: true,
	}
}

// Book returns the [book] view with defaults applied.
func (c *Config) Book() (BookConfig, error) {
	out := DefaultBookConfig()
	if _, _, err := c.root.Table("book"); err != nil {
		return out, err
	}
	if err := readString(c.root, "book.title", &out.Title); err != nil {
		return out, err
	}
	if err := readString(c.root, "book.description", &out.Description); err != nil {
		return out, err
	}
	if err := readString(c.root, "book.language", &out.Language); err != nil {
		return out, err
	}
	if err := readString(c.root, "book.src", &out.Src); err != nil {
		return out, err
	}
	authors, ok, err := c.root.StringSlice("book.authors")
	if err != nil {
		return out, err
	}
	if ok {
		out.Authors = authors
	}
	return out, nil
}

// Build returns the [build] view with defaults applied.
func (c *Config) Build() (BuildConfig, error) {
	out := DefaultBuildConfig()
	if _, _, err := c.root.Table("build"); err != nil {
		return out, err
	}
	if err := readString(c.root, "build.build-dir", &out.BuildDir); err != nil {
		return out, err
	}
	if err := readBool(c.root, "build.create-missing", &out.CreateMissing); err != nil {
		return out, err
	}
	if err := readBool(c.root, "build.use-default-preprocessors", &out.UseDefaultPreprocessors); err != nil {
		return out, err
	}
	dirs, ok, err := c.root.StringSlice("build.extra-watch-dirs")
	if err != nil {
		return out, err
	}
	if ok {
		out.ExtraWatchDirs = dirs
	}
	return out, nil
}

// Validate checks the typed views so shape errors surface at load time.
func (c *Config) Validate() error {
	if _, err := c.Book(); err != nil {
		return fmt.Errorf("invalid [book] table: %w", err)
	}
	if _, err := c.Build(); err != nil {
		return fmt.Errorf("invalid [build] table: %w", err)
	}
	return nil
}

func readString(t Table, key string, dst *string) error {
	s, ok, err := t.String(key)
	if err != nil {
		return err
	}
	if ok {
		*dst = s
	}
	return nil
}

func readBool(t Table, key string, dst *bool) error {
	b, ok, err := t.Bool(key)
	if err != nil {
		return err
	}
	if ok {
		*dst = b
	}
	return nil
}
