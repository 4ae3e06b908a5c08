package extproc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"

	ferrors "github.com/rust-lang/mdBook-sub001/internal/foundation/errors"
	"github.com/rust-lang/mdBook-sub001/internal/logfields"
	"github.com/rust-lang/mdBook-sub001/internal/metrics"
	"github.com/rust-lang/mdBook-sub001/internal/observability"
)

// Mode is the way a process is driven.
type Mode string

const (
	ModeSupports  Mode = "supports"
	ModeTransform Mode = "transform"
	ModeSink      Mode = "sink"
)

// Outcome describes a finished process.
type Outcome struct {
	Found    bool
	ExitCode int
	// Stdout is set only in transform mode.
	Stdout []byte
}

// Success reports a zero exit status.
func (o Outcome) Success() bool { return o.Found && o.ExitCode == 0 }

// Bridge spawns external stage processes. The zero value is not usable;
// call New.
type Bridge struct {
	stdout   io.Writer
	stderr   io.Writer
	recorder metrics.Recorder
}

// New returns a bridge whose children inherit the process stdout and stderr.
func New() *Bridge {
	return &Bridge{
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		recorder: metrics.NoopRecorder{},
	}
}

// WithOutput redirects what children would otherwise inherit.
func (b *Bridge) WithOutput(stdout, stderr io.Writer) *Bridge {
	b.stdout = stdout
	b.stderr = stderr
	return b
}

// WithRecorder sets the metrics recorder.
func (b *Bridge) WithRecorder(r metrics.Recorder) *Bridge {
	if r != nil {
		b.recorder = r
	}
	return b
}

// Supports runs "<cmd> supports <renderer>" with an empty stdin. A zero
// exit status means the renderer is supported; any other status means it
// is not and is not an error.
func (b *Bridge) Supports(ctx context.Context, inv *Invocation, renderer string) (Outcome, error) {
	args := append(append([]string(nil), inv.Args...), "supports", renderer)
	cmd := b.command(ctx, inv, args)
	cmd.Stderr = b.stderr

	observability.DebugContext(ctx, "Querying renderer support",
		logfields.Command(inv.Command), logfields.Renderer(renderer))

	err := cmd.Run()
	if err != nil && isNotFound(err) {
		b.recorder.IncExternalInvocation(string(ModeSupports), "not_found")
		return Outcome{}, notFoundError(inv, err)
	}
	if err := ctx.Err(); err != nil {
		return Outcome{}, canceledError(inv, err)
	}
	code, err := exitCode(err)
	if err != nil {
		return Outcome{}, startError(inv, err)
	}

	result := "supported"
	if code != 0 {
		result = "unsupported"
	}
	b.recorder.IncExternalInvocation(string(ModeSupports), result)
	return Outcome{Found: true, ExitCode: code}, nil
}

// Transform writes input as JSON to the child's stdin, collects stdout
// while the child runs, and decodes it into output once it exits with
// status zero.
func (b *Bridge) Transform(ctx context.Context, inv *Invocation, input, output any) (Outcome, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return Outcome{}, ferrors.InternalError("unable to encode process input").WithCause(err).Build()
	}

	var stdout bytes.Buffer
	cmd := b.command(ctx, inv, inv.Args)
	cmd.Stdout = &stdout
	cmd.Stderr = b.stderr

	out, err := b.run(ctx, ModeTransform, inv, cmd, payload)
	if err != nil {
		return out, err
	}
	out.Stdout = stdout.Bytes()

	if err := json.Unmarshal(out.Stdout, output); err != nil {
		b.recorder.IncExternalInvocation(string(ModeTransform), "malformed")
		return out, malformedError(inv, err)
	}
	b.recorder.IncExternalInvocation(string(ModeTransform), "success")
	return out, nil
}

// Sink writes input as JSON to the child's stdin and waits. The child's
// stdout and stderr are passed through.
func (b *Bridge) Sink(ctx context.Context, inv *Invocation, input any) (Outcome, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return Outcome{}, ferrors.InternalError("unable to encode process input").WithCause(err).Build()
	}

	cmd := b.command(ctx, inv, inv.Args)
	cmd.Stdout = b.stdout
	cmd.Stderr = b.stderr

	out, err := b.run(ctx, ModeSink, inv, cmd, payload)
	if err != nil {
		return out, err
	}
	b.recorder.IncExternalInvocation(string(ModeSink), "success")
	return out, nil
}

func (b *Bridge) command(ctx context.Context, inv *Invocation, args []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, inv.Path, args...)
	cmd.Dir = inv.Dir
	return cmd
}

// run starts cmd, feeds payload to its stdin and waits for it to exit.
func (b *Bridge) run(ctx context.Context, mode Mode, inv *Invocation, cmd *exec.Cmd, payload []byte) (Outcome, error) {
	observability.DebugContext(ctx, "Invoking external command",
		logfields.Command(inv.Command), logfields.Mode(string(mode)))

	s, err := startSession(cmd)
	if err != nil {
		if isNotFound(err) {
			b.recorder.IncExternalInvocation(string(mode), "not_found")
			return Outcome{}, notFoundError(inv, err)
		}
		return Outcome{}, startError(inv, err)
	}
	defer s.close()

	if err := s.write(payload); err != nil {
		observability.WarnContext(ctx, "Unable to write all input to external command",
			logfields.Command(inv.Command), logfields.Error(fmt.Errorf("%w: %w", ErrStdinWrite, err)))
	}

	waitErr := s.close()
	if err := ctx.Err(); err != nil {
		return Outcome{Found: true}, canceledError(inv, err)
	}
	code, err := exitCode(waitErr)
	if err != nil {
		return Outcome{Found: true}, startError(inv, err)
	}
	if code != 0 {
		b.recorder.IncExternalInvocation(string(mode), "exit")
		return Outcome{Found: true, ExitCode: code}, exitError(inv, code)
	}
	return Outcome{Found: true}, nil
}

// session owns a started child. close is idempotent and always releases
// stdin and reaps the process.
type session struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	closed  bool
	waitErr error
}

func startSession(cmd *exec.Cmd) (*session, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &session{cmd: cmd, stdin: stdin}, nil
}

func (s *session) write(payload []byte) error {
	_, err := s.stdin.Write(payload)
	if cerr := s.stdin.Close(); err == nil && cerr != nil && !errors.Is(cerr, os.ErrClosed) {
		err = cerr
	}
	return err
}

func (s *session) close() error {
	if s.closed {
		return s.waitErr
	}
	s.closed = true
	_ = s.stdin.Close()
	s.waitErr = s.cmd.Wait()
	return s.waitErr
}

func isNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}

// exitCode extracts the status from a Wait error. Errors other than a
// non-zero exit are returned.
func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

func canceledError(inv *Invocation, err error) error {
	return ferrors.RuntimeError(fmt.Sprintf("%q was interrupted", inv.Command)).
		WithContext("command", inv.Command).
		WithCause(err).
		Build()
}
