package preprocess

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	anchorStart = regexp.MustCompile(`ANCHOR:\s*([\w-]+)`)
	anchorEnd   = regexp.MustCompile(`ANCHOR_END:\s*([\w-]+)`)
)

// lineSelection picks part of an included file: a half-open range of
// zero-based lines, or the lines between ANCHOR and ANCHOR_END markers.
type lineSelection struct {
	anchor   string
	start    int
	end      int
	hasStart bool
	hasEnd   bool
}

// parseSelection reads the part after "file:". Forms are N, N:M, N:, :M,
// and an anchor name. Line numbers are one-based and inclusive.
func parseSelection(expr string) lineSelection {
	parts := strings.SplitN(expr, ":", 3)
	first := parts[0]

	var sel lineSelection
	if n, err := strconv.Atoi(first); err == nil && n >= 0 {
		sel.hasStart = true
		sel.start = max(n-1, 0)
	} else if first != "" {
		return lineSelection{anchor: first}
	}

	if len(parts) < 2 {
		if sel.hasStart {
			sel.hasEnd = true
			sel.end = sel.start + 1
		}
		return sel
	}
	if n, err := strconv.Atoi(parts[1]); err == nil && n >= 0 {
		sel.hasEnd = true
		sel.end = n
	}
	return sel
}

func (sel lineSelection) contains(i int) bool {
	if sel.hasStart && i < sel.start {
		return false
	}
	if sel.hasEnd && i >= sel.end {
		return false
	}
	return true
}

func (sel lineSelection) take(s string) string {
	if sel.anchor != "" {
		return takeAnchored(s, sel.anchor)
	}
	var kept []string
	for i, line := range splitLines(s) {
		if sel.contains(i) {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// takeRustdoc keeps every line but hides those outside the selection
// behind "# ".
func (sel lineSelection) takeRustdoc(s string) string {
	if sel.anchor != "" {
		return takeRustdocAnchored(s, sel.anchor)
	}
	lines := splitLines(s)
	out := make([]string, len(lines))
	for i, line := range lines {
		if !sel.contains(i) {
			line = "# " + line
		}
		out[i] = line
	}
	return strings.Join(out, "\n")
}

func takeAnchored(s, anchor string) string {
	var kept []string
	inside := false
	for _, line := range splitLines(s) {
		if inside {
			if m := anchorEnd.FindStringSubmatch(line); m != nil {
				if m[1] == anchor {
					break
				}
				continue
			}
			if !anchorStart.MatchString(line) {
				kept = append(kept, line)
			}
		} else if m := anchorStart.FindStringSubmatch(line); m != nil && m[1] == anchor {
			inside = true
		}
	}
	return strings.Join(kept, "\n")
}

func takeRustdocAnchored(s, anchor string) string {
	var out []string
	inside := false
	for _, line := range splitLines(s) {
		switch {
		case inside:
			if m := anchorEnd.FindStringSubmatch(line); m != nil {
				if m[1] == anchor {
					inside = false
				}
			} else if !anchorStart.MatchString(line) {
				out = append(out, line)
			}
		case anchorStart.MatchString(line):
			if m := anchorStart.FindStringSubmatch(line); m[1] == anchor {
				inside = true
			}
		case !anchorEnd.MatchString(line):
			out = append(out, "# "+line)
		}
	}
	return strings.Join(out, "\n")
}

// splitLines splits on \n, drops one trailing empty line and strips \r.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
