// Package loop implements the orchestration core: select the next story,
// invoke the coding agent, inspect its output, decide whether to continue.
package loop

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"golang.org/x/time/rate"

	"github.com/steveyegge/ralph/internal/agent"
	"github.com/steveyegge/ralph/internal/progress"
	"github.com/steveyegge/ralph/internal/stories"
)

// CompletionMarker is the literal token the agent prints when it judges
// every story complete. Finding it anywhere in an iteration's output ends
// the run successfully.
const CompletionMarker = "<ALL_STORIES_COMPLETE>"

// Outcome is the terminal state of a run.
type Outcome int

const (
	// OutcomeDone: every story in the requirements document passes.
	OutcomeDone Outcome = iota
	// OutcomeCompleted: the agent printed the completion marker.
	OutcomeCompleted
	// OutcomeExhausted: the iteration budget ran out first.
	OutcomeExhausted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDone:
		return "done"
	case OutcomeCompleted:
		return "completed"
	case OutcomeExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// ExitCode maps the outcome to the process exit code contract.
func (o Outcome) ExitCode() int {
	if o == OutcomeExhausted {
		return 1
	}
	return 0
}

// Invoker is the narrow surface the loop needs from the tool layer.
// *agent.Invoker satisfies it; tests substitute mocks.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (*agent.Result, error)
	Kind() agent.Kind
}

// Runner drives the iteration loop to one of the terminal outcomes.
type Runner struct {
	Store         *stories.Store
	Log           *progress.Log
	Invoker       Invoker
	Prompt        string // full prompt template contents, passed verbatim
	MaxIterations int
	Delay         time.Duration // pause between iterations

	// sleep pacing; built lazily so the zero Delay case works in tests.
	limiter *rate.Limiter
}

// Run executes iterations until a terminal state is reached. It returns a
// non-nil error only for hard failures (notably a requirements document
// that stops parsing mid-run); invocation failures are recorded and the
// loop advances.
func (r *Runner) Run(ctx context.Context) (Outcome, error) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	for i := 1; i <= r.MaxIterations; i++ {
		// Re-read the document every iteration: the agent rewrites it on
		// disk between invocations. A document that stops loading mid-run
		// is fatal - a *stories.ParseError must never read as "nothing
		// left to do".
		doc, err := r.Store.Load()
		if err != nil {
			r.record(fmt.Sprintf("iteration %d aborted: %v", i, err))
			return OutcomeExhausted, err
		}

		remaining := stories.Remaining(doc)
		if remaining == 0 {
			msg := "All stories complete"
			fmt.Printf("%s %s\n", green("✓"), msg)
			r.record(msg)
			return OutcomeDone, nil
		}

		// Visibility only: the prompt is fixed, the agent picks its own
		// work from the document.
		if current := stories.Current(doc); current != nil {
			fmt.Printf("%s Iteration %d/%d: %d remaining, next up %s - %s\n",
				cyan("→"), i, r.MaxIterations, remaining, current.ID, current.Title)
			r.record(fmt.Sprintf("iteration %d: %d stories remaining, next up %s - %s",
				i, remaining, current.ID, current.Title))
		}

		res, err := r.Invoker.Invoke(ctx, r.Prompt)
		if err != nil {
			// One failed invocation does not spend the remaining budget:
			// log it as this iteration's result and keep going.
			fmt.Fprintf(os.Stderr, "%s Iteration %d failed: %v\n", red("✗"), i, err)
			r.record(fmt.Sprintf("iteration %d failed: %v", i, err))
		}

		if res != nil && strings.Contains(res.Text(), CompletionMarker) {
			msg := fmt.Sprintf("Completion signal received on iteration %d", i)
			fmt.Printf("%s %s\n", green("✓"), msg)
			r.record(msg)
			return OutcomeCompleted, nil
		}

		r.record(fmt.Sprintf("iteration %d finished without completion signal", i))

		if i < r.MaxIterations {
			if err := r.pause(ctx); err != nil {
				return OutcomeExhausted, err
			}
		}
	}

	msg := fmt.Sprintf("Iteration budget exhausted after %d iterations", r.MaxIterations)
	fmt.Fprintf(os.Stderr, "%s %s\n", red("✗"), msg)
	r.record(msg)
	return OutcomeExhausted, nil
}

// pause waits out the inter-iteration delay, giving a failing tool or a
// rate-limited API room to breathe. Context-aware so Ctrl+C interrupts it.
func (r *Runner) pause(ctx context.Context) error {
	if r.Delay <= 0 {
		return nil
	}
	if r.limiter == nil {
		r.limiter = rate.NewLimiter(rate.Every(r.Delay), 1)
		// Consume the initial burst token so the first Wait blocks.
		_ = r.limiter.Allow()
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("interrupted between iterations: %w", err)
	}
	return nil
}

// record appends to the progress log. Bookkeeping failures are reported but
// never abort an iteration whose agent work already happened.
func (r *Runner) record(line string) {
	if r.Log == nil {
		return
	}
	if err := r.Log.Append(line); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to append to progress log: %v\n", err)
	}
}
