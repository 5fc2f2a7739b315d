package cmd

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/relaymux/pkg/api"
	"github.com/ethpandaops/relaymux/pkg/config"
	"github.com/ethpandaops/relaymux/pkg/metrics"
	"github.com/ethpandaops/relaymux/pkg/mux"
	"github.com/ethpandaops/relaymux/pkg/relay"
	"github.com/ethpandaops/relaymux/pkg/slotclock"
)

// relayDialTimeout bounds how long an HTTP round trip to a relay may take;
// the multiplexer applies its own tighter timeout on top of this for
// fetch-best-bid rounds.
const relayDialTimeout = 2 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the relay multiplexer",
	Long: `Starts the Builder-API server, fans validator requests out across
every configured relay, and returns the best valid response from each
round.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		netParams, err := config.LookupNetwork(cfg.Network)
		if err != nil {
			return err
		}

		relays := dialRelays(cfg.Relays)
		if len(relays) == 0 {
			logger.Error("no relays could be reached; starting anyway with an empty relay set")
		}

		validator := relay.NewBidValidator(netParams.GenesisForkVersion)
		metricsSink := metrics.New()

		relayMux := mux.NewRelayMux(relays, validator, metricsSink, logger)

		server := api.NewServer(relayMux, logger)

		clock := slotclock.New(netParams.GenesisTime, netParams.SecondsPerSlot)
		sub := clock.Subscribe(1)

		var wg sync.WaitGroup

		wg.Add(1)

		go func() {
			defer wg.Done()
			clock.Run(ctx)
		}()

		wg.Add(1)

		go func() {
			defer wg.Done()

			for {
				select {
				case <-ctx.Done():
					return
				case slot, ok := <-sub.Channel():
					if !ok {
						return
					}

					relayMux.OnSlot(slot)
				}
			}
		}()

		metricsServer := &http.Server{
			Addr:         cfg.MetricsAddr,
			Handler:      promhttp.HandlerFor(metricsSink.Registry(), promhttp.HandlerOpts{}),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		}

		wg.Add(1)

		go func() {
			defer wg.Done()

			logger.WithField("addr", cfg.MetricsAddr).Info("starting metrics server")

			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Error("metrics server stopped")
			}
		}()

		var serverErr error

		wg.Add(1)

		go func() {
			defer wg.Done()

			addr := cfg.Host + ":" + strconv.Itoa(cfg.Port)
			if err := server.Start(addr); err != nil {
				logger.WithError(err).Error("builder API server stopped")
				serverErr = err
				cancel()
			}
		}()

		logger.WithFields(map[string]any{
			"host":    cfg.Host,
			"port":    cfg.Port,
			"network": cfg.Network,
			"relays":  len(relays),
		}).Info("relaymux is running; press Ctrl+C to stop")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			logger.WithField("signal", sig.String()).Info("received shutdown signal")
		case <-ctx.Done():
			logger.Info("context cancelled")
		}

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := server.Stop(shutdownCtx); err != nil {
			logger.WithError(err).Warn("error shutting down builder API server")
		}

		_ = metricsServer.Shutdown(shutdownCtx)

		wg.Wait()

		return serverErr
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// dialRelays constructs a Client for every configured relay URL, dropping
// (and logging) any entry that can't be parsed rather than aborting
// startup over one bad entry.
func dialRelays(urls []string) []mux.Relay {
	relays := make([]mux.Relay, 0, len(urls))

	for i, raw := range urls {
		client, err := relay.NewClient(raw, relayDialTimeout, logger)
		if err != nil {
			logger.WithError(err).WithField("url", redactURL(raw)).Warn("dropping unparsable relay URL")
			continue
		}

		relays = append(relays, mux.Relay{
			Index:       i,
			PublicKey:   client.PublicKey(),
			Client:      client,
			DisplayName: redactURL(raw),
		})
	}

	return relays
}

// redactURL strips userinfo (which may carry the relay's pubkey, not a
// secret, but there's no reason to echo it verbatim in logs either) before
// logging a relay URL.
func redactURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	parsed.User = nil

	return parsed.String()
}
