package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sonirico/eventer"
	"github.com/sonirico/eventer/internal/logging"
	"github.com/sonirico/eventer/relay"
)

func newListenCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "listen EVENT...",
		Short: "Print the given events as they are received",
		Long: `listen connects to the peer and prints one envelope per line for every
received event among EVENT.... It runs until interrupted.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := logging.Eventer("listen")
			registry := eventer.New[string, json.RawMessage](eventer.WithLogger(logger))

			var mu sync.Mutex
			out := cmd.OutOrStdout()
			for _, event := range args {
				registry.On(event, eventer.NewListener(func(data json.RawMessage) {
					line, err := relay.EncodeEnvelope(relay.Envelope{Event: event, Data: data})
					if err != nil {
						logger.Warnf("cannot print %q: %s", event, err)
						return
					}

					mu.Lock()
					defer mu.Unlock()
					fmt.Fprintf(out, "%s\n", line)
				}))
			}

			r, err := relay.NewWebsocketRelay(registry, relay.JSONCodec[json.RawMessage]{}, cfg, relay.WithLogger(logger))
			if err != nil {
				return err
			}

			r.Lifecycle().
				On(relay.EventDisconnect, eventer.NewListener(func(s relay.Status) {
					logger.Warnf("disconnected (attempt %d): %v", s.Attempt, s.Err)
				})).
				On(relay.EventReconnect, eventer.NewListener(func(s relay.Status) {
					logger.Info("reconnected")
				}))

			if err := r.Open(ctx); err != nil {
				return err
			}
			defer r.Close()

			logger.Infof("listening to %v on %s", args, cfg.URL)

			select {
			case <-ctx.Done():
			case <-r.CloseChan():
			}
			return nil
		},
	}
}
