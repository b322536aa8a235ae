package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/slimwire/slimwire/config"
	"github.com/slimwire/slimwire/control"
)

func newLoginCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store credentials for a password-protected server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireServer(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			if username == "" || password == "" {
				return fmt.Errorf("both --username and --password are required")
			}

			// Verify before saving so a typo does not wedge every later call.
			c := control.New(cfg.Server, cfg.WebPort)
			c.SetBasicAuth(username, password)
			version, err := c.ServerVersion(cmd.Context())
			if err != nil {
				if apiErr, ok := err.(*control.APIError); ok && apiErr.HTTPStatus == 401 {
					fmt.Fprintln(os.Stderr, "Invalid username or password.")
					os.Exit(1)
				}
				fmt.Fprintf(os.Stderr, "Unable to reach %s: %v\n", cfg.Server, err)
				os.Exit(1)
			}

			if err := config.SaveCredentials(&config.Credentials{
				Username: username,
				Password: password,
			}); err != nil {
				return fmt.Errorf("saving credentials: %w", err)
			}

			fmt.Printf("Authenticated against %s (server version %s). Credentials stored.\n", cfg.Server, version)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "web interface username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "web interface password")
	return cmd
}
