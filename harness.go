package provision

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/fatih/color"
)

// Harness is a support structure that runs steps, the harness can be customized with
// pre- and post- execution hook functions, where common functionality to all steps
// can be defined.
type Harness struct {
	PreExecHook  Task
	PostExecHook Task
}

// New constructs a harness.
func New(opts ...Option) *Harness {
	h := Harness{
		PreExecHook:  func(_ context.Context) error { return nil },
		PostExecHook: func(_ context.Context) error { return nil },
	}

	for _, opt := range opts {
		opt(&h)
	}

	return &h
}

// Execute a list of steps inside the harness.
// Steps run sequentially and the first failing step aborts the whole run: no later
// step is executed, the post exec hook is skipped and a [*StepError] is returned.
func (h *Harness) Execute(ctx context.Context, steps ...Step) error {
	start := time.Now()

	fmt.Printf("\n")

	if err := h.PreExecHook(ctx); err != nil {
		return fmt.Errorf("failed to initialize harness: %w", err)
	}

	for i, step := range steps {
		logger.Debug("starting step", "index", i+1, "name", step.Name, "dir", step.Dir)

		if err := step.Run(ctx); err != nil {
			failure := &StepError{Index: i + 1, Name: step.Name, Err: err}
			summary(start, failure)
			return failure
		}
	}

	if err := h.PostExecHook(ctx); err != nil {
		return fmt.Errorf("failed to run post exec hook: %w", err)
	}

	summary(start, nil)
	return nil
}

func summary(start time.Time, failure *StepError) {
	elapsed := time.Since(start).Round(time.Millisecond)
	color.New(color.FgHiBlack).Printf("------------------------\n\n")

	if failure != nil {
		color.Red(" ✘ aborted after %s", elapsed)
		color.Red("   • step %d (%s): %s", failure.Index, failure.Name, failure.Err)
		fmt.Printf("\n")
		return
	}

	color.Green(" ✔ all good after %s\n\n", elapsed)
}

// Task defines the basic function that the harness executes.
// Additional configuration and tweaks can be done by using clojures which return
// Tasks.
type Task func(ctx context.Context) error

// Step is a named task together with the metadata needed to describe it
// without running it.
type Step struct {
	Name string
	// Dir is the working directory the step operates in.
	Dir string
	// Commands lists the argv of every subprocess the step executes, in order.
	Commands [][]string
	// Description says what the step does when it isn't only running subprocesses.
	Description string

	Run Task
}

// StepError is returned by [Harness.Execute] for the first step that failed.
type StepError struct {
	Index int
	Name  string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s) failed: %s", e.Index, e.Name, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// ExitCode returns the exit status of the subprocess that caused the failure,
// or 1 when the failure didn't come from a subprocess exit.
func (e *StepError) ExitCode() int {
	var exiterr *exec.ExitError
	if errors.As(e.Err, &exiterr) && exiterr.ExitCode() > 0 {
		return exiterr.ExitCode()
	}
	return 1
}

// ExitCode maps an error returned by [Harness.Execute] to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var failure *StepError
	if errors.As(err, &failure) {
		return failure.ExitCode()
	}

	var exiterr *exec.ExitError
	if errors.As(err, &exiterr) && exiterr.ExitCode() > 0 {
		return exiterr.ExitCode()
	}

	return 1
}

type Option func(h *Harness)

// WithPreExecFunc allows specifying a task that will be run every execution, before the
// specific execution steps are run.
func WithPreExecFunc(hook Task) Option {
	return func(h *Harness) {
		h.PreExecHook = hook
	}
}

// WithPostExecFunc allows specifying a task that will be run after all steps succeeded.
func WithPostExecFunc(hook Task) Option {
	return func(h *Harness) {
		h.PostExecHook = hook
	}
}
