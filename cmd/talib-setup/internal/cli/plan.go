package cli

import (
	"github.com/spf13/cobra"

	"github.com/aexvir/provision/gen"
	"github.com/aexvir/provision/talib"
)

func newPlanCmd(opts *options) *cobra.Command {
	var (
		format string
		output string
		verify bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the installation steps without running them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind, err := gen.ParseFormat(format)
			if err != nil {
				return err
			}

			cfg, err := opts.load()
			if err != nil {
				return err
			}

			steps, err := talib.NewInstaller(cfg, talib.WithVerification(verify)).Steps()
			if err != nil {
				return err
			}

			if output != "" {
				return gen.WritePlan(output, steps, kind)
			}

			return gen.Render(cmd.OutOrStdout(), steps, kind)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(gen.Text), "output format: text, json or sh")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the plan to a file instead of stdout")
	cmd.Flags().BoolVar(&verify, "verify", false, "include the verification steps")

	return cmd
}
