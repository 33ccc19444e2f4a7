package commons

import (
	"context"
	"io"

	"github.com/aexvir/provision"
)

type stepconf struct {
	priv   []string
	env    []string
	stdout io.Writer
	stderr io.Writer
}

// StepOpt customizes how the subprocesses of a step are run.
type StepOpt func(c *stepconf)

// WithPrivilege wraps the privileged subprocesses of a step with command, e.g. sudo.
// Passing nothing runs them unwrapped.
func WithPrivilege(command ...string) StepOpt {
	return func(c *stepconf) {
		c.priv = command
	}
}

// WithStepEnv adds NAME=value pairs to the environment of the step subprocesses.
func WithStepEnv(vars ...string) StepOpt {
	return func(c *stepconf) {
		c.env = append(c.env, vars...)
	}
}

// WithOutput redirects the output of the step subprocesses.
func WithOutput(stdout, stderr io.Writer) StepOpt {
	return func(c *stepconf) {
		c.stdout = stdout
		c.stderr = stderr
	}
}

func newconf(opts []StepOpt) stepconf {
	var conf stepconf
	for _, opt := range opts {
		opt(&conf)
	}
	return conf
}

// elevated prepends the privilege command to argv.
func (c stepconf) elevated(argv ...string) []string {
	return append(append([]string{}, c.priv...), argv...)
}

// run executes argv inside dir, wrapped with the privilege command if privileged is set.
func (c stepconf) run(ctx context.Context, dir string, privileged bool, argv []string) error {
	opts := []provision.RunnerOpt{
		provision.WithArgs(argv[1:]...),
		provision.WithDir(dir),
		provision.WithEnv(c.env...),
	}

	if privileged {
		opts = append(opts, provision.WithPrefix(c.priv...))
	}
	if c.stdout != nil {
		opts = append(opts, provision.WithStdOut(c.stdout))
	}
	if c.stderr != nil {
		opts = append(opts, provision.WithStdErr(c.stderr))
	}

	return provision.Run(ctx, argv[0], opts...)
}
