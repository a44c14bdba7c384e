package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sonirico/eventer/internal/logging"
	"github.com/sonirico/eventer/relay"
)

// Set at build time through -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type rootOptions struct {
	verbosity int
	url       string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "eventer",
		Short: "Relay typed events over websocket",
		Long: `eventer listens to and emits events on a websocket peer speaking
{"event": NAME, "data": PAYLOAD} envelopes.

Connection settings are read from EVENTER_RELAY_* environment variables,
the --url flag overrides EVENTER_RELAY_URL.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(opts.verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().CountVarP(&opts.verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	cmd.PersistentFlags().StringVar(&opts.url, "url", "", "websocket url of the peer (overrides EVENTER_RELAY_URL)")

	cmd.AddCommand(
		newListenCmd(opts),
		newEmitCmd(opts),
		newVersionCmd(),
	)

	return cmd
}

// config loads the relay settings from the environment and applies flags.
func (o *rootOptions) config() (relay.Config, error) {
	cfg, err := relay.LoadConfig()
	if err != nil {
		return relay.Config{}, err
	}

	if o.url != "" {
		cfg.URL = o.url
	}

	return cfg, cfg.Validate()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "eventer version %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}
