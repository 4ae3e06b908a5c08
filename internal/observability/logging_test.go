package observability

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestContextFields(t *testing.T) {
	ctx := WithBuildID(context.Background(), "build-123")
	ctx = WithRenderer(ctx, "html")
	ctx = WithStage(ctx, "links")

	lc := GetContext(ctx)
	if lc.BuildID != "build-123" || lc.Renderer != "html" || lc.Stage != "links" {
		t.Errorf("unexpected log context %+v", lc)
	}
}

func TestEmptyContext(t *testing.T) {
	if attrs := getLogAttrs(context.Background()); len(attrs) != 0 {
		t.Errorf("expected no attrs, got %v", attrs)
	}
}

func TestWarnContextIncludesFields(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer slog.SetDefault(prev)

	ctx := WithRenderer(WithBuildID(context.Background(), "b-1"), "markdown")
	WarnContext(ctx, "optional backend missing", slog.String("command", "pdf"))

	out := buf.String()
	for _, want := range []string{"level=WARN", "build.id=b-1", "renderer=markdown", "command=pdf"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
}
