// Package talib installs the TA-Lib C library from source together with its python binding.
//
// The installation is a fixed, strictly ordered list of steps. The first failing step
// aborts the run, nothing is retried or rolled back.
package talib

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aexvir/provision"
	"github.com/aexvir/provision/commons"
	"github.com/aexvir/provision/config"
	"github.com/aexvir/provision/source"
)

// marker is the file the extracted tree must contain for the build steps to make sense.
const marker = "configure"

// Archive describes the source archive the configuration points at.
func Archive(cfg config.Config) (*source.Archive, error) {
	opts := []source.Option{
		source.WithArchiveName(cfg.Source.Archive),
		source.WithTreeName(cfg.Source.Tree),
		source.WithSHA256(cfg.Source.SHA256),
	}

	timeout, err := cfg.DownloadTimeout()
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		opts = append(opts, source.WithHTTPClient(&http.Client{Timeout: timeout}))
	}

	arc, err := source.New(cfg.Source.Name, cfg.Source.Version, cfg.Source.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid source configuration: %w", err)
	}

	return arc, nil
}

// Plan builds the ordered installation steps.
//
//  1. refresh-packages     package index update and full upgrade
//  2. install-build-tools  compiler toolchain and friends
//  3. enter-scratch        scratch directory used by every later step
//  4. fetch-source         download the source archive
//  5. unpack-source        extract it inside the scratch directory
//  6. enter-source-tree    check the extracted tree
//  7. configure            ./configure --prefix=<prefix>
//  8. compile              make
//  9. install-library      make install
//  10. cleanup             remove archive and tree, best effort
//  11. install-binding     pip install TA-Lib
func Plan(cfg config.Config, opts ...commons.StepOpt) ([]provision.Step, error) {
	arc, err := Archive(cfg)
	if err != nil {
		return nil, err
	}

	priv, err := cfg.PrivilegeCommand()
	if err != nil {
		return nil, err
	}

	extra, err := cfg.ConfigureArgs()
	if err != nil {
		return nil, err
	}

	installer, err := cfg.BindingInstaller()
	if err != nil {
		return nil, err
	}

	privileged := append([]commons.StepOpt{commons.WithPrivilege(commons.Privileged(priv...)...)}, opts...)

	scratch := cfg.Source.ScratchDir
	tree := commons.EnterTree(scratch, arc.TreeName(), marker)

	return []provision.Step{
		commons.AptUpdate(cfg.System.PackageManager, privileged...),
		commons.AptInstall(cfg.System.PackageManager, cfg.System.Packages, privileged...),
		commons.EnsureDir(scratch),
		commons.Fetch(arc, scratch),
		commons.Unpack(arc, scratch),
		tree,
		commons.Configure(tree.Dir, cfg.Build.Prefix, extra, opts...),
		commons.Make(tree.Dir, cfg.Build.Make, opts...),
		commons.MakeInstall(tree.Dir, cfg.Build.Make, privileged...),
		commons.Cleanup(scratch, arc.TreeName(), arc.FileName()),
		commons.PipInstall(installer, cfg.Binding.Package, opts...),
	}, nil
}

// Verification builds the steps checking a previous installation.
func Verification(cfg config.Config, opts ...commons.StepOpt) []provision.Step {
	return []provision.Step{
		commons.VerifyArtifacts(cfg.Build.Prefix, cfg.Verify.Artifacts),
		commons.VerifyBinding(cfg.Verify.Python, opts...),
	}
}

// Installer runs the installation plan inside a harness.
type Installer struct {
	cfg     config.Config
	verify  bool
	stepops []commons.StepOpt
}

// InstallerOpt customizes an [Installer].
type InstallerOpt func(i *Installer)

// WithVerification appends the verification steps to the plan.
func WithVerification(enabled bool) InstallerOpt {
	return func(i *Installer) {
		i.verify = enabled
	}
}

// WithStepOptions applies opts to every subprocess step of the plan.
func WithStepOptions(opts ...commons.StepOpt) InstallerOpt {
	return func(i *Installer) {
		i.stepops = append(i.stepops, opts...)
	}
}

// NewInstaller builds an installer for cfg.
func NewInstaller(cfg config.Config, opts ...InstallerOpt) *Installer {
	inst := Installer{cfg: cfg}

	for _, opt := range opts {
		opt(&inst)
	}

	return &inst
}

// Steps returns the steps [Installer.Run] executes.
func (i *Installer) Steps() ([]provision.Step, error) {
	steps, err := Plan(i.cfg, i.stepops...)
	if err != nil {
		return nil, err
	}

	if i.verify {
		steps = append(steps, Verification(i.cfg, i.stepops...)...)
	}

	return steps, nil
}

// Run executes every step in order, stopping at the first failure.
// The returned error is a [*provision.StepError] when a step failed.
func (i *Installer) Run(ctx context.Context) error {
	steps, err := i.Steps()
	if err != nil {
		return err
	}

	h := provision.New(
		provision.WithPreExecFunc(func(_ context.Context) error {
			provision.LogStep(fmt.Sprintf("installing %s %s into %s", i.cfg.Source.Name, i.cfg.Source.Version, i.cfg.Build.Prefix))
			provision.Logger().Debug("plan", "steps", len(steps), "scratch", i.cfg.Source.ScratchDir)
			return nil
		}),
	)

	return h.Execute(ctx, steps...)
}
