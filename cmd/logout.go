package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slimwire/slimwire/config"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored server credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.RemoveCredentials(); err != nil {
				return err
			}
			fmt.Println("Credentials removed.")
			return nil
		},
	}
}
