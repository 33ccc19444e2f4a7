package commons

import (
	"context"
	"path/filepath"

	"github.com/aexvir/provision"
)

// Configure runs the configure script of tree installing into prefix.
// Extra arguments are appended after --prefix.
func Configure(tree, prefix string, extra []string, opts ...StepOpt) provision.Step {
	conf := newconf(opts)

	args := append([]string{"--prefix=" + prefix}, extra...)

	return provision.Step{
		Name:     "configure",
		Dir:      tree,
		Commands: [][]string{append([]string{"./configure"}, args...)},
		Run: func(ctx context.Context) error {
			// relative executables resolve against the process cwd, not the step dir
			script := filepath.Join(tree, "configure")
			return conf.run(ctx, tree, false, append([]string{script}, args...))
		},
	}
}

// Make builds the default target of tree with the given make program.
func Make(tree, program string, opts ...StepOpt) provision.Step {
	conf := newconf(opts)

	argv := []string{program}

	return provision.Step{
		Name:     "compile",
		Dir:      tree,
		Commands: [][]string{argv},
		Run: func(ctx context.Context) error {
			return conf.run(ctx, tree, false, argv)
		},
	}
}

// MakeInstall runs the install target of tree with the privilege command.
func MakeInstall(tree, program string, opts ...StepOpt) provision.Step {
	conf := newconf(opts)

	argv := []string{program, "install"}

	return provision.Step{
		Name:     "install-library",
		Dir:      tree,
		Commands: [][]string{conf.elevated(argv...)},
		Run: func(ctx context.Context) error {
			return conf.run(ctx, tree, true, argv)
		},
	}
}
