// Package cli holds the talib-setup commands.
package cli

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/aexvir/provision"
	"github.com/aexvir/provision/config"
	"github.com/aexvir/provision/talib"
)

// Version is set via -ldflags.
var Version = "dev"

type options struct {
	cfgfile string
	verbose bool
	verify  bool
}

// load resolves the configuration after applying the global flags.
func (o *options) load() (config.Config, error) {
	provision.SetVerbose(o.verbose)

	cfg, file, err := config.Load(o.cfgfile)
	if err != nil {
		return config.Config{}, err
	}

	if file != "" {
		provision.Logger().Debug("loaded config file", "path", file)
	}

	return cfg, nil
}

// NewRootCmd builds the talib-setup command tree.
func NewRootCmd() *cobra.Command {
	opts := options{}

	root := &cobra.Command{
		Use:   "talib-setup",
		Short: "Build and install TA-Lib and its python binding",
		Long: `talib-setup installs the TA-Lib technical analysis library from source.

It refreshes the system packages, installs the build tools, downloads and builds
the library, installs it system wide, removes the temporary files and finally
installs the TA-Lib python binding. The first failing step stops the run.

Settings come from talib-setup.toml in the working directory (or --config) and
from TALIB_SETUP_* environment variables, e.g. TALIB_SETUP_BUILD_PREFIX=/usr/local.`,
		Example: `  talib-setup                 run the whole installation
  talib-setup --verify        install and check the result
  talib-setup plan -f sh      print the equivalent shell script
  talib-setup verify          check an existing installation`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			return talib.NewInstaller(
				cfg,
				talib.WithVerification(opts.verify),
			).Run(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&opts.cfgfile, "config", "", "config file (default is ./"+config.DefaultFile+" if present)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	root.Flags().BoolVar(&opts.verify, "verify", false, "check the installed library and binding after installing")

	root.AddCommand(
		newPlanCmd(&opts),
		newVerifyCmd(&opts),
		newConfigCmd(&opts),
	)

	return root
}

// Execute runs the command line and returns the process exit code.
// A failing step exits with the status of the subprocess that failed.
func Execute(ctx context.Context) int {
	err := fang.Execute(
		ctx,
		NewRootCmd(),
		fang.WithVersion(Version),
		fang.WithNotifySignal(os.Interrupt),
	)
	if err != nil {
		provision.Logger().Debug("run failed", "err", err)
	}

	return provision.ExitCode(err)
}
