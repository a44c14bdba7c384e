package main

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/sonirico/eventer"
	"github.com/sonirico/eventer/internal/logging"
	"github.com/sonirico/eventer/relay"
)

var errInvalidPayload = errors.New("payload is not valid json")

func newEmitCmd(opts *rootOptions) *cobra.Command {
	var linger time.Duration

	cmd := &cobra.Command{
		Use:   "emit EVENT [JSON]",
		Short: "Send one event to the peer",
		Long: `emit connects to the peer, sends EVENT with the optional JSON payload
and disconnects.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			event := args[0]

			var payload json.RawMessage
			if len(args) == 2 {
				if !gjson.Valid(args[1]) {
					return errors.Wrapf(errInvalidPayload, "event %q", event)
				}
				payload = json.RawMessage(args[1])
			}

			cfg, err := opts.config()
			if err != nil {
				return err
			}
			// A single shot does not retry forever.
			if cfg.MaxConnectAttempts == 0 {
				cfg.MaxConnectAttempts = 3
			}

			logger := logging.Eventer("emit")
			registry := eventer.New[string, json.RawMessage](eventer.WithLogger(logger))

			r, err := relay.NewWebsocketRelay(registry, relay.JSONCodec[json.RawMessage]{}, cfg, relay.WithLogger(logger))
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := r.Open(ctx); err != nil {
				return err
			}
			defer r.Close()

			if payload == nil {
				err = r.SendSignal(event)
			} else {
				err = r.Send(event, payload)
			}
			if err != nil {
				return err
			}

			logger.Infof("sent %q to %s", event, cfg.URL)

			// Give the writer a chance to flush before closing.
			select {
			case <-ctx.Done():
			case <-time.After(linger):
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&linger, "linger", 250*time.Millisecond, "time to wait for the event to be written before disconnecting")

	return cmd
}
