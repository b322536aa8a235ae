package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/slimwire/slimwire/display"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool
	var playerFlag string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show what this player is doing according to the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireServer(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}

			playerID := playerFlag
			if playerID == "" {
				var err error
				playerID, err = localPlayerID()
				if err != nil {
					return err
				}
			}

			st, err := newControlClient().Status(cmd.Context(), playerID)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}

			if jsonOutput {
				return display.PrintJSON(os.Stdout, st)
			}

			fmt.Printf("Player:    %s\n", playerID)
			fmt.Printf("Mode:      %s\n", st.Mode)
			if st.Title != "" {
				fmt.Printf("Track:     %s\n", st.Title)
			}
			if st.Artist != "" {
				fmt.Printf("Artist:    %s\n", st.Artist)
			}
			if st.Album != "" {
				fmt.Printf("Album:     %s\n", st.Album)
			}
			if st.Duration > 0 {
				fmt.Printf("Position:  %s / %s\n",
					display.FormatDuration(st.Time), display.FormatDuration(st.Duration))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().StringVar(&playerFlag, "player", "", "query a different player by its ID")
	return cmd
}
