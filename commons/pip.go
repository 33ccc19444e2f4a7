package commons

import (
	"context"
	"errors"

	"github.com/aexvir/provision"
)

// PipInstall installs a python package with installer, e.g. ["pip"] or ["python3", "-m", "pip"].
// It runs unprivileged, pip decides where the package goes.
func PipInstall(installer []string, pkg string, opts ...StepOpt) provision.Step {
	conf := newconf(opts)

	argv := append(append([]string{}, installer...), "install", pkg)

	return provision.Step{
		Name:     "install-binding",
		Commands: [][]string{argv},
		Run: func(ctx context.Context) error {
			if len(installer) == 0 {
				return errors.New("no python package installer configured")
			}
			return conf.run(ctx, "", false, argv)
		},
	}
}
