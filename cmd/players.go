package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/slimwire/slimwire/display"
)

func newPlayersCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "players",
		Short: "List the players the server knows about",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireServer(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}

			players, err := newControlClient().Players(cmd.Context())
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}

			if jsonOutput {
				return display.PrintJSON(os.Stdout, players)
			}

			if len(players) == 0 {
				fmt.Println("No players connected.")
				return nil
			}

			table := display.NewTable("ID", "NAME", "MODEL", "CONNECTED")
			for _, p := range players {
				connected := "no"
				if p.Connected {
					connected = "yes"
				}
				table.AddRow(p.ID, p.Name, p.Model, connected)
			}
			table.Render(os.Stdout)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}
