package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// newTransportCmd builds one server-side transport trigger command. The
// server reacts by driving this player back over the protocol connection.
func newTransportCmd(use, short string, action func(ctx context.Context, playerID string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireServer(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}

			playerID, err := localPlayerID()
			if err != nil {
				return err
			}

			if err := action(cmd.Context(), playerID); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			return nil
		},
	}
}

func newPlayCmd() *cobra.Command {
	return newTransportCmd("play", "Start or resume playback", func(ctx context.Context, id string) error {
		return newControlClient().Play(ctx, id)
	})
}

func newPauseCmd() *cobra.Command {
	return newTransportCmd("pause", "Pause playback", func(ctx context.Context, id string) error {
		return newControlClient().Pause(ctx, id)
	})
}

func newStopCmd() *cobra.Command {
	return newTransportCmd("stop", "Stop playback", func(ctx context.Context, id string) error {
		return newControlClient().Stop(ctx, id)
	})
}

func newNextCmd() *cobra.Command {
	return newTransportCmd("next", "Skip to the next track", func(ctx context.Context, id string) error {
		return newControlClient().NextTrack(ctx, id)
	})
}

func newPreviousCmd() *cobra.Command {
	return newTransportCmd("previous", "Go back to the previous track", func(ctx context.Context, id string) error {
		return newControlClient().PreviousTrack(ctx, id)
	})
}

func newVolumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "volume <0-100>",
		Short: "Set the player volume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireServer(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}

			level, err := strconv.Atoi(args[0])
			if err != nil || level < 0 || level > 100 {
				return fmt.Errorf("volume must be a number from 0 to 100")
			}

			playerID, err := localPlayerID()
			if err != nil {
				return err
			}

			if err := newControlClient().SetVolume(cmd.Context(), playerID, level); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			return nil
		},
	}
}
