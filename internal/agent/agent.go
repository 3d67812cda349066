// Package agent invokes an external coding-agent CLI and captures its output.
//
// The orchestrator depends on the agent only through this narrow surface:
// invoke with a prompt, stream back output lines, get an exit code. Each
// supported CLI has its own argument conventions, modeled as a closed set of
// Kind values dispatched through one Invoke path.
package agent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Kind selects which external coding-agent CLI to invoke.
type Kind string

const (
	KindClaude Kind = "claude" // Anthropic Claude Code
	KindCodex  Kind = "codex"  // OpenAI Codex CLI
	KindGemini Kind = "gemini" // Google Gemini CLI
)

// Kinds lists every supported agent CLI.
func Kinds() []Kind {
	return []Kind{KindClaude, KindCodex, KindGemini}
}

// ParseKind validates a tool selector from the CLI surface.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindClaude, KindCodex, KindGemini:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unsupported tool %q (supported: claude, codex, gemini)", s)
	}
}

// maxOutputLines caps captured output to prevent memory exhaustion from a
// long-running agent.
const maxOutputLines = 10000

// ExecutionError reports a tool that ran to completion but exited non-zero.
type ExecutionError struct {
	Kind     Kind
	ExitCode int
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Kind, e.ExitCode)
}

// Result holds the captured output and status of one invocation. Output is
// the merged stdout+stderr stream in arrival order.
type Result struct {
	Output   []string
	ExitCode int
	Duration time.Duration
}

// Text joins the captured output for marker scanning.
func (r *Result) Text() string {
	var b []byte
	for _, line := range r.Output {
		b = append(b, line...)
		b = append(b, '\n')
	}
	return string(b)
}

// LineSink receives each output line as it arrives, for console echo and
// progress logging.
type LineSink func(line string)

// Invoker runs one external agent CLI synchronously per call.
type Invoker struct {
	kind    Kind
	model   string
	timeout time.Duration
	sink    LineSink

	// run is swapped in tests to avoid spawning real processes.
	run func(ctx context.Context, name string, args []string, sink LineSink) (*Result, error)
}

// NewInvoker returns an invoker for the given tool. model may be empty, in
// which case no model flag is passed. sink receives every output line and
// may be nil.
func NewInvoker(kind Kind, model string, timeout time.Duration, sink LineSink) *Invoker {
	if timeout == 0 {
		timeout = 30 * time.Minute
	}
	return &Invoker{
		kind:    kind,
		model:   model,
		timeout: timeout,
		sink:    sink,
		run:     runCommand,
	}
}

// Kind returns the tool this invoker dispatches to.
func (inv *Invoker) Kind() Kind { return inv.kind }

// LookPath reports whether the tool's executable is resolvable, for
// preflight checks.
func (inv *Invoker) LookPath() error {
	if _, err := exec.LookPath(string(inv.kind)); err != nil {
		return fmt.Errorf("%s executable not found on PATH: %w", inv.kind, err)
	}
	return nil
}

// Invoke runs the tool with the given prompt and waits for it to finish.
//
// Spawn failures and non-zero exits do not propagate as hard errors to the
// caller's control flow: the returned Result always carries whatever output
// was produced (including a synthesized failure line on spawn errors), and
// err describes the failure for logging. The loop treats the error text as
// that iteration's output and continues.
func (inv *Invoker) Invoke(ctx context.Context, prompt string) (*Result, error) {
	args := BuildArgs(inv.kind, inv.model, prompt)

	ctx, cancel := context.WithTimeout(ctx, inv.timeout)
	defer cancel()

	start := time.Now()
	res, err := inv.run(ctx, string(inv.kind), args, inv.sink)
	if res == nil {
		res = &Result{ExitCode: -1}
	}
	res.Duration = time.Since(start)

	if err != nil {
		// Convert spawn failures into textual output so the iteration has
		// an auditable result even when the process never started.
		line := fmt.Sprintf("invocation failed: %v", err)
		res.Output = append(res.Output, line)
		if inv.sink != nil {
			inv.sink(line)
		}
		return res, err
	}
	if res.ExitCode != 0 {
		return res, &ExecutionError{Kind: inv.kind, ExitCode: res.ExitCode}
	}
	return res, nil
}

// BuildArgs constructs the argument list for one invocation.
//
// Conventions per tool:
//   - a model flag is added only when a model was supplied
//   - an auto-approval flag is added for tools that support one
//   - codex takes the prompt as a positional argument to its exec
//     subcommand; claude and gemini take -p
//   - the prompt is always the final argument, so it can never be consumed
//     as the value of a preceding flag
func BuildArgs(kind Kind, model, prompt string) []string {
	var args []string

	switch kind {
	case KindClaude:
		args = append(args, "--dangerously-skip-permissions")
		if model != "" {
			args = append(args, "--model", model)
		}
		args = append(args, "-p", prompt)
	case KindCodex:
		args = append(args, "exec", "--full-auto")
		if model != "" {
			args = append(args, "--model", model)
		}
		args = append(args, prompt)
	case KindGemini:
		args = append(args, "--yolo")
		if model != "" {
			args = append(args, "--model", model)
		}
		args = append(args, "-p", prompt)
	}

	return args
}

// runCommand spawns the process and captures stdout and stderr merged into
// one ordered line stream.
func runCommand(ctx context.Context, name string, args []string, sink LineSink) (*Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}

	res := &Result{}
	var mu sync.Mutex
	capture := func(r io.Reader) error {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			mu.Lock()
			if len(res.Output) < maxOutputLines {
				res.Output = append(res.Output, line)
				if sink != nil {
					// Deliver inside the lock so sink ordering matches
					// the captured stream.
					sink(line)
				}
			} else if len(res.Output) == maxOutputLines {
				res.Output = append(res.Output, "[... output truncated: limit reached ...]")
			}
			mu.Unlock()
		}
		return scanner.Err()
	}

	var g errgroup.Group
	g.Go(func() error { return capture(stdout) })
	g.Go(func() error { return capture(stderr) })

	// Drain both streams before Wait closes the pipes.
	captureErr := g.Wait()

	if err := cmd.Wait(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("%s failed: %w", name, err)
	}
	if captureErr != nil {
		return res, fmt.Errorf("failed to capture %s output: %w", name, captureErr)
	}

	res.ExitCode = 0
	return res, nil
}
