package provision

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
)

// TaskRunner holds the metadata for a specific command.
type TaskRunner struct {
	Executable string
	Arguments  []string

	cmd      *exec.Cmd
	prefix   []string
	dir      string
	env      []string
	stdout   io.Writer
	stderr   io.Writer
	stdin    io.Reader
	okmsg    string
	errmsg   string
	quiet    bool
	allowerr bool
}

// Cmd builds a command runner for a specific Executable.
// Relative executables are resolved against the current working directory, not
// against the directory set with [WithDir].
func Cmd(ctx context.Context, executable string, opts ...RunnerOpt) (*TaskRunner, error) {
	resolved, err := resolve(executable)
	if err != nil {
		return nil, err
	}

	r := TaskRunner{
		Executable: resolved,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		stdin:      os.Stdin,
	}

	for _, opt := range opts {
		if err := opt(&r); err != nil {
			return nil, err
		}
	}

	argv := append(append([]string{}, r.prefix...), r.Executable)
	argv = append(argv, r.Arguments...)

	program := argv[0]
	if len(r.prefix) > 0 {
		if program, err = resolve(program); err != nil {
			return nil, err
		}
	}

	cmd := exec.CommandContext(ctx, program)
	cmd.Args = argv
	cmd.Dir = r.dir
	cmd.Env = r.env
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr
	cmd.Stdin = r.stdin

	r.cmd = cmd

	return &r, nil
}

// Exec a command returning its error and pretty printing the ok and error messages.
func (r *TaskRunner) Exec() error {
	var err error

	start := time.Now()
	defer func() {
		if r.quiet {
			return
		}
		elapsed := time.Since(start).Round(time.Millisecond)
		if err != nil {
			color.Red(" ✘ %s\n\n", elapsed)
			return
		}
		color.Green(" ✔ %s\n\n", elapsed)
	}()

	if !r.quiet {
		LogStep(r.String())
	}

	logger.Debug("exec", "argv", r.cmd.Args, "dir", r.cmd.Dir)

	err = r.cmd.Run()

	if !r.allowerr && err != nil {
		if !r.quiet && r.errmsg != "" {
			color.Red(r.errmsg)
		}
		err = fmt.Errorf("%s: %w", filepath.Base(r.Executable), err)
		return err
	}

	if !r.quiet && r.okmsg != "" {
		color.Green(r.okmsg)
	}

	return nil
}

// String returns the command line as it will be executed.
func (r *TaskRunner) String() string {
	return strings.Join(r.cmd.Args, " ")
}

// Run is a helper function to avoid repetition while gracefully handling errors.
func Run(ctx context.Context, program string, opts ...RunnerOpt) error {
	rnr, err := Cmd(ctx, program, opts...)
	if err != nil {
		return err
	}

	return rnr.Exec()
}

func resolve(executable string) (string, error) {
	if filepath.IsAbs(executable) {
		return executable, nil
	}

	if strings.ContainsRune(executable, filepath.Separator) {
		return filepath.Abs(executable)
	}

	path, err := exec.LookPath(executable)
	if err != nil {
		return "", fmt.Errorf("executable %s not found: %w", executable, err)
	}

	return filepath.Abs(path)
}

// RunnerOpt allows customizing the behavior of the command runner.
type RunnerOpt func(r *TaskRunner) error

// WithEnv sets up environment variables for the command.
func WithEnv(vars ...string) RunnerOpt {
	return func(r *TaskRunner) error {
		if len(vars) == 0 {
			return nil
		}
		if r.env == nil {
			r.env = os.Environ()
		}
		for _, vrb := range vars {
			if name, _, ok := strings.Cut(vrb, "="); !ok || name == "" {
				return fmt.Errorf("invalid env format; %s doesn't match NAME=value expectation", vrb)
			}
			r.env = append(r.env, vrb)
		}
		return nil
	}
}

// WithArgs command arguments.
func WithArgs(args ...string) RunnerOpt {
	return func(r *TaskRunner) error {
		r.Arguments = args
		return nil
	}
}

// WithPrefix wraps the command with another one, e.g. sudo.
// An empty prefix is a no-op.
func WithPrefix(prefix ...string) RunnerOpt {
	return func(r *TaskRunner) error {
		r.prefix = prefix
		return nil
	}
}

// WithOKMsg sets a message to be printed when the command finishes successfully.
func WithOKMsg(msg string) RunnerOpt {
	return func(r *TaskRunner) error {
		r.okmsg = msg
		return nil
	}
}

// WithErrMsg sets a message to be printed when the command fails.
func WithErrMsg(msg string) RunnerOpt {
	return func(r *TaskRunner) error {
		r.errmsg = msg
		return nil
	}
}

// WithDir sets the directory where the command should be run inside.
func WithDir(dir string) RunnerOpt {
	return func(r *TaskRunner) error {
		if dir == "" {
			r.dir = ""
			return nil
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("failed to resolve dir %s: %w", dir, err)
		}
		r.dir = abs
		return nil
	}
}

// WithoutNoise silences all output for the command; useful when handling that on the caller side.
func WithoutNoise() RunnerOpt {
	return func(r *TaskRunner) error {
		r.quiet = true
		r.stdout = nil
		r.stderr = nil

		return nil
	}
}

// WithStdOut set up stdout writer.
func WithStdOut(w io.Writer) RunnerOpt {
	return func(r *TaskRunner) error {
		r.stdout = w
		return nil
	}
}

// WithStdErr set up stderr writer.
func WithStdErr(w io.Writer) RunnerOpt {
	return func(r *TaskRunner) error {
		r.stderr = w
		return nil
	}
}

// WithStdIn set up stdin reader.
func WithStdIn(read io.Reader) RunnerOpt {
	return func(r *TaskRunner) error {
		r.stdin = read
		return nil
	}
}

// WithAllowErrors allow errors in the command.
func WithAllowErrors() RunnerOpt {
	return func(r *TaskRunner) error {
		r.allowerr = true
		return nil
	}
}
