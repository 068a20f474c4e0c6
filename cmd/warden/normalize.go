package main

import (
	"fmt"

	"github.com/layer-3/warden/core"
	"github.com/spf13/cobra"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <hex|npub>",
	Short: "Print the canonical hex form of a public key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pubkey, err := core.NormalizeIdentifier(args[0])
		if err != nil {
			fmt.Fprint(cmd.ErrOrStderr(), failMsg("Not a public key", err))
			return errSilent
		}
		fmt.Fprintln(cmd.OutOrStdout(), pubkey)
		return nil
	},
}
