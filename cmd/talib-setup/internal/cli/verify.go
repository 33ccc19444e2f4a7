package cli

import (
	"github.com/spf13/cobra"

	"github.com/aexvir/provision"
	"github.com/aexvir/provision/talib"
)

func newVerifyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the library is installed and the python binding works",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			return provision.New().Execute(cmd.Context(), talib.Verification(cfg)...)
		},
	}
}
