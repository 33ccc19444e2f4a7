package commons

import (
	"context"

	"github.com/aexvir/provision"
)

const noninteractive = "DEBIAN_FRONTEND=noninteractive"

// AptUpdate refreshes the package index and upgrades every installed package.
// Both commands run with the privilege command and without prompting.
func AptUpdate(manager string, opts ...StepOpt) provision.Step {
	conf := newconf(append([]StepOpt{WithStepEnv(noninteractive)}, opts...))

	update := []string{manager, "update"}
	upgrade := []string{manager, "upgrade", "-y"}

	return provision.Step{
		Name:     "refresh-packages",
		Commands: [][]string{conf.elevated(update...), conf.elevated(upgrade...)},
		Run: func(ctx context.Context) error {
			if err := conf.run(ctx, "", true, update); err != nil {
				return err
			}
			return conf.run(ctx, "", true, upgrade)
		},
	}
}

// AptInstall installs packages, answering yes to every prompt.
func AptInstall(manager string, packages []string, opts ...StepOpt) provision.Step {
	conf := newconf(append([]StepOpt{WithStepEnv(noninteractive)}, opts...))

	install := append([]string{manager, "install", "-y"}, packages...)

	return provision.Step{
		Name:     "install-build-tools",
		Commands: [][]string{conf.elevated(install...)},
		Run: func(ctx context.Context) error {
			return conf.run(ctx, "", true, install)
		},
	}
}
