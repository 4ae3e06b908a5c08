package plan

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	ferrors "github.com/rust-lang/mdBook-sub001/internal/foundation/errors"
)

// Format is an output format for a View.
type Format string

const (
	FormatText    Format = "text"
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatDOT     Format = "dot"
	FormatMermaid Format = "mermaid"
)

// SupportedFormats lists the formats accepted by Render.
func SupportedFormats() []Format {
	return []Format{FormatText, FormatJSON, FormatYAML, FormatDOT, FormatMermaid}
}

// FormatDescription returns a one-line description of format.
func FormatDescription(format Format) string {
	descriptions := map[Format]string{
		FormatText:    "Human-readable text with ASCII art",
		FormatJSON:    "Structured JSON representation",
		FormatYAML:    "Structured YAML representation",
		FormatDOT:     "Graphviz DOT format (render with `dot -Tpng plan.dot -o plan.png`)",
		FormatMermaid: "Mermaid diagram (for GitHub, GitLab, etc.)",
	}
	return descriptions[format]
}

// Render formats v.
func Render(v *View, format Format) (string, error) {
	switch format {
	case FormatText:
		return renderText(v), nil
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", ferrors.WrapError(err, ferrors.CategoryInternal, "encoding plan as JSON").Build()
		}
		return string(data) + "\n", nil
	case FormatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return "", ferrors.WrapError(err, ferrors.CategoryInternal, "encoding plan as YAML").Build()
		}
		return string(data), nil
	case FormatDOT:
		return renderDOT(v), nil
	case FormatMermaid:
		return renderMermaid(v), nil
	default:
		return "", ferrors.ValidationError(fmt.Sprintf("unsupported format: %s", format)).
			WithContext("supported", SupportedFormats()).
			Build()
	}
}

func renderText(v *View) string {
	var sb strings.Builder

	sb.WriteString("Build Plan\n")
	sb.WriteString("==========\n\n")

	sb.WriteString("┌─ Preprocessors (execution order)\n")
	sb.WriteString("│\n")
	for i, s := range v.Preprocessors {
		isLast := i == len(v.Preprocessors)-1
		prefix, connector := "├──", "│   "
		if isLast {
			prefix, connector = "└──", "    "
		}
		fmt.Fprintf(&sb, "│ %s %d. [%s] %s\n", prefix, i+1, s.Name, origin(s.Builtin, s.Command))
		if len(s.After) > 0 {
			fmt.Fprintf(&sb, "│ %s   ⤷ after: %s\n", connector, strings.Join(s.After, ", "))
		}
		if len(s.Before) > 0 {
			fmt.Fprintf(&sb, "│ %s   ⤶ before: %s\n", connector, strings.Join(s.Before, ", "))
		}
		if s.Renderers != nil {
			fmt.Fprintf(&sb, "│ %s   only for: %s\n", connector, strings.Join(s.Renderers, ", "))
		}
	}
	if len(v.Preprocessors) == 0 {
		sb.WriteString("│ (none)\n")
	}
	sb.WriteString("│\n↓\n")

	sb.WriteString("┌─ Renderers\n")
	sb.WriteString("│\n")
	for i, c := range v.Renderers {
		prefix, connector := "├──", "│   "
		if i == len(v.Renderers)-1 {
			prefix, connector = "└──", "    "
		}
		fmt.Fprintf(&sb, "│ %s [%s] %s\n", prefix, c.Renderer, origin(c.Builtin, c.Command))
		chain := "(none)"
		if len(c.Preprocessors) > 0 {
			chain = strings.Join(c.Preprocessors, " → ")
		}
		fmt.Fprintf(&sb, "│ %s   chain: %s\n", connector, chain)
		fmt.Fprintf(&sb, "│ %s   output: %s\n", connector, c.Destination)
	}

	fmt.Fprintf(&sb, "\nTotal: %d preprocessors, %d renderers\n", len(v.Preprocessors), len(v.Renderers))
	return sb.String()
}

func origin(builtin bool, command string) string {
	if builtin {
		return "(built-in)"
	}
	return fmt.Sprintf("(command: %s)", command)
}

var nonIdent = regexp.MustCompile(`[^A-Za-z0-9]+`)

// nodeID builds an identifier that Mermaid and DOT accept unquoted.
func nodeID(parts ...string) string {
	for i, p := range parts {
		parts[i] = nonIdent.ReplaceAllString(p, "_")
	}
	return strings.Join(parts, "__")
}

func renderMermaid(v *View) string {
	var sb strings.Builder

	sb.WriteString("```mermaid\n")
	sb.WriteString("graph LR\n")
	for i, c := range v.Renderers {
		fmt.Fprintf(&sb, "    subgraph %s[\"Renderer: %s\"]\n", nodeID("chain", fmt.Sprint(i)), c.Renderer)
		prev := ""
		for j, name := range c.Preprocessors {
			id := nodeID("r", fmt.Sprint(i), "p", fmt.Sprint(j))
			fmt.Fprintf(&sb, "        %s[\"%s\"]\n", id, name)
			if prev != "" {
				fmt.Fprintf(&sb, "        %s --> %s\n", prev, id)
			}
			prev = id
		}
		rid := nodeID("r", fmt.Sprint(i))
		fmt.Fprintf(&sb, "        %s[(\"%s\")]\n", rid, c.Renderer)
		if prev != "" {
			fmt.Fprintf(&sb, "        %s --> %s\n", prev, rid)
		}
		sb.WriteString("    end\n")
	}
	sb.WriteString("```\n")
	return sb.String()
}

func renderDOT(v *View) string {
	var sb strings.Builder

	sb.WriteString("digraph BuildPlan {\n")
	sb.WriteString("    rankdir=LR;\n")
	sb.WriteString("    node [shape=box, style=rounded];\n\n")

	for i, c := range v.Renderers {
		fmt.Fprintf(&sb, "    subgraph cluster_%d {\n", i)
		fmt.Fprintf(&sb, "        label=%q;\n", "Renderer: "+c.Renderer)
		sb.WriteString("        style=filled;\n")
		sb.WriteString("        color=lightgrey;\n\n")

		var ids []string
		for j, name := range c.Preprocessors {
			id := nodeID("r", fmt.Sprint(i), "p", fmt.Sprint(j))
			fmt.Fprintf(&sb, "        %s [label=%q];\n", id, name)
			ids = append(ids, id)
		}
		rid := nodeID("r", fmt.Sprint(i))
		fmt.Fprintf(&sb, "        %s [label=%q, shape=folder];\n", rid, c.Renderer)
		ids = append(ids, rid)
		if len(ids) > 1 {
			fmt.Fprintf(&sb, "        %s;\n", strings.Join(ids, " -> "))
		}
		sb.WriteString("    }\n\n")
	}
	sb.WriteString("}\n")
	return sb.String()
}
