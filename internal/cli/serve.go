package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/KafClaw/thoughthub/internal/config"
	"github.com/KafClaw/thoughthub/internal/hub"
	"github.com/KafClaw/thoughthub/internal/relay"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const relayQueueSize = 1024

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve hub operations as JSON lines over stdin/stdout",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	if n, err := a.hub.RecoverIntents(); err != nil {
		return fmt.Errorf("recover intents: %w", err)
	} else if n > 0 {
		slog.Info("Recovered interrupted merges", "count", n)
	}

	defaultAgent, err := a.defaultAgent()
	if err != nil {
		return err
	}
	if defaultAgent != "" {
		slog.Info("Serving as configured agent", "agent", defaultAgent)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	rl, closeRelays, err := buildRelay(a.cfg)
	if err != nil {
		return err
	}
	defer closeRelays()
	if rl != nil {
		a.hub.AddSink(rl)
		g.Go(func() error { return rl.Run(gctx) })
	}

	sweeper, err := newPresenceSweeper(a.hub, a.cfg.Hub)
	if err != nil {
		return err
	}
	g.Go(func() error { return runScheduler(gctx, sweeper) })

	g.Go(func() error {
		defer cancel()
		return serveStdio(gctx, a.hub, defaultAgent, cmd.InOrStdin(), cmd.OutOrStdout())
	})
	return g.Wait()
}

// buildRelay assembles the enabled external publishers. It returns a nil
// relay when none are enabled.
func buildRelay(cfg *config.Config) (*relay.Relay, func(), error) {
	var (
		pubs    []relay.Publisher
		closers []func() error
	)
	if cfg.Kafka.Enabled {
		kp, err := relay.NewKafkaPublisher(cfg.Kafka)
		if err != nil {
			return nil, func() {}, fmt.Errorf("kafka relay: %w", err)
		}
		pubs = append(pubs, kp)
		closers = append(closers, kp.Close)
		slog.Info("Kafka relay enabled", "brokers", cfg.Kafka.Brokers, "prefix", cfg.Kafka.TopicPrefix)
	}
	if cfg.Slack.Enabled {
		sn, err := relay.NewSlackNotifier(cfg.Slack)
		if err != nil {
			return nil, func() {}, fmt.Errorf("slack relay: %w", err)
		}
		pubs = append(pubs, sn)
		slog.Info("Slack relay enabled", "channel", cfg.Slack.ChannelID)
	}
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				slog.Warn("Relay close failed", "error", err)
			}
		}
	}
	if len(pubs) == 0 {
		return nil, closeAll, nil
	}
	return relay.New(relayQueueSize, pubs...), closeAll, nil
}

// newPresenceSweeper schedules the idle-member sweep on the configured cron
// schedule. An empty schedule disables it.
func newPresenceSweeper(h *hub.Hub, cfg config.HubConfig) (*cron.Cron, error) {
	c := cron.New()
	if cfg.PresenceSweep == "" || cfg.PresenceStale() <= 0 {
		return c, nil
	}
	idle := cfg.PresenceStale()
	_, err := c.AddFunc(cfg.PresenceSweep, func() {
		if _, err := h.SweepPresence(idle); err != nil {
			slog.Warn("Presence sweep failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid presence sweep schedule %q: %w", cfg.PresenceSweep, err)
	}
	return c, nil
}

// runScheduler runs c until ctx is done, then waits for running jobs.
func runScheduler(ctx context.Context, c *cron.Cron) error {
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
