package cmd

import (
	"fmt"
	"os"

	logging "github.com/ipfs/go-log/v2"
	"github.com/spf13/cobra"

	"github.com/slimwire/slimwire/config"
	"github.com/slimwire/slimwire/control"
)

var (
	// Set via ldflags at build time.
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Flags shared across all commands.
var (
	flagConfigPath string
	flagServer     string
	flagVerbose    bool
)

// cfg is loaded once by the persistent pre-run hook.
var cfg config.Config

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "slimwire",
		Short:         "SlimWire - a headless player for Lyrion/Squeezebox servers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := config.Path(flagConfigPath)
			if err != nil {
				return err
			}
			cfg, err = config.Load(cfgPath)
			if err != nil {
				return err
			}
			// Flag > env > config file.
			if flagServer != "" {
				cfg.Server = flagServer
			} else if env := os.Getenv("SLIMWIRE_SERVER"); env != "" {
				cfg.Server = env
			}

			level := "error"
			if flagVerbose {
				level = "debug"
			}
			_ = logging.SetLogLevel("slimwire.engine", level)
			_ = logging.SetLogLevel("slimwire.resolver", level)
			_ = logging.SetLogLevel("slimwire.player", level)
			_ = logging.SetLogLevel("slimwire.bridge", level)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&flagConfigPath, "config", "", "path to config file (default: ~/.slimwire/config.json)")
	root.PersistentFlags().StringVar(&flagServer, "server", "", "server hostname or IP")
	root.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "enable verbose/debug logging to stderr")

	root.AddCommand(
		newRunCmd(),
		newStatusCmd(),
		newPlayersCmd(),
		newPlayCmd(),
		newPauseCmd(),
		newStopCmd(),
		newNextCmd(),
		newPreviousCmd(),
		newVolumeCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newVersionCmd(),
	)

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// requireServer ensures a server host is configured before any command
// that talks to one runs.
func requireServer() error {
	if cfg.Server == "" {
		return fmt.Errorf("no server configured. Pass --server, set SLIMWIRE_SERVER, or add \"server\" to ~/.slimwire/config.json")
	}
	return nil
}

// newControlClient builds a control-API client with stored credentials
// attached when present.
func newControlClient() *control.Client {
	c := control.New(cfg.Server, cfg.WebPort)
	if creds, _ := config.LoadCredentials(); creds != nil {
		c.SetBasicAuth(creds.Username, creds.Password)
	}
	return c
}

// localPlayerID returns this player's MAC-form identifier, creating the
// identity on first use.
func localPlayerID() (string, error) {
	path, err := config.IdentityPath()
	if err != nil {
		return "", err
	}
	id, err := config.LoadOrCreateIdentity(path)
	if err != nil {
		return "", err
	}
	return id.MAC, nil
}
