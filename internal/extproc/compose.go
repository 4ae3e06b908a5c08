// Package extproc runs external preprocessors and renderers over a JSON
// stdin/stdout protocol.
package extproc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-shellwords"

	ferrors "github.com/rust-lang/mdBook-sub001/internal/foundation/errors"
)

// Invocation is a composed command ready to spawn.
type Invocation struct {
	// Command is the configured command line, kept for messages.
	Command string
	// Path is the executable: absolute when the command named a path,
	// otherwise a bare name looked up on PATH at spawn time.
	Path string
	// Relative is the executable as written when it was a relative path.
	Relative string
	Args     []string
	// Dir is the working directory of the child.
	Dir string
}

// WithDir returns a copy that runs in dir.
func (inv *Invocation) WithDir(dir string) *Invocation {
	cp := *inv
	cp.Args = append([]string(nil), inv.Args...)
	cp.Dir = dir
	return &cp
}

func (inv *Invocation) String() string {
	return inv.Command
}

// Compose splits command with shell quoting rules and resolves the
// executable. No variable or command substitution is performed. An
// executable containing a path separator is resolved against root.
func Compose(command, root string) (*Invocation, error) {
	parser := shellwords.NewParser()
	parser.ParseEnv = false
	parser.ParseBacktick = false

	words, err := parser.Parse(command)
	if err != nil {
		return nil, composeError(command, err)
	}
	if parser.Position >= 0 {
		return nil, composeError(command, fmt.Errorf("shell operator at offset %d is not supported", parser.Position))
	}
	if len(words) == 0 || words[0] == "" {
		return nil, composeError(command, ErrEmptyCommand)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, composeError(command, err)
	}

	exe, rel := words[0], ""
	if hasPathSeparator(exe) && !filepath.IsAbs(exe) {
		rel = exe
		exe = filepath.Join(absRoot, filepath.FromSlash(exe))
	}

	return &Invocation{
		Command:  command,
		Path:     exe,
		Relative: rel,
		Args:     words[1:],
		Dir:      absRoot,
	}, nil
}

func hasPathSeparator(s string) bool {
	return strings.ContainsRune(s, '/') || strings.ContainsRune(s, os.PathSeparator)
}

func composeError(command string, err error) error {
	return ferrors.ConfigError(fmt.Sprintf("unable to parse the command %q", command)).
		WithContext("command", command).
		WithCause(err).
		Build()
}
