// internal/gateway/gateway.go
package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/fieldgate/fieldgate/internal/device"
	"github.com/fieldgate/fieldgate/internal/health"
	"github.com/fieldgate/fieldgate/internal/metric"
	"github.com/fieldgate/fieldgate/internal/poller"
	"github.com/fieldgate/fieldgate/internal/sink"
	"github.com/fieldgate/fieldgate/internal/transport"
)

// Gateway owns the connect/reconnect-forever loop. Each successful
// connection starts one epoch: a fresh health aggregator, a fresh
// cancellation token, and one poller per device. Nothing from a torn-down
// epoch leaks into the next.
type Gateway struct {
	transport  transport.Transport
	sink       sink.Sink
	devices    []*device.Device
	retryDelay time.Duration
	threshold  health.ThresholdFunc
	logger     *slog.Logger
	metrics    *metric.Metrics
}

// Config carries the gateway's own knobs; collaborators come in directly.
type Config struct {
	// RetryDelay is the fixed pause between failed connection attempts.
	// Deliberately non-growing: the gateway retries forever at a
	// constant rate and never gives up.
	RetryDelay time.Duration

	// Threshold computes the epoch's escalation threshold. Defaults to
	// health.RatioThreshold.
	Threshold health.ThresholdFunc
}

// New assembles a gateway over an already-built transport, sink and
// device set.
func New(cfg Config, tr transport.Transport, s sink.Sink, devices []*device.Device,
	logger *slog.Logger, metrics *metric.Metrics) *Gateway {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 10 * time.Second
	}
	if cfg.Threshold == nil {
		cfg.Threshold = health.RatioThreshold
	}
	return &Gateway{
		transport:  tr,
		sink:       s,
		devices:    devices,
		retryDelay: cfg.RetryDelay,
		threshold:  cfg.Threshold,
		logger:     logger.With("component", "gateway", "transport", tr.Kind()),
		metrics:    metrics,
	}
}

// Run connects and polls until ctx is cancelled. A fatal bus signal tears
// the current epoch down and reconnects after the fixed delay; only
// process-level cancellation ends the loop.
func (g *Gateway) Run(ctx context.Context) error {
	first := true
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !first {
			g.metrics.BusReconnects.Inc()
		}
		first = false

		conn, err := g.transport.Connect()
		if err != nil {
			g.logger.Error("bus connect failed", "error", err, "retry_in", g.retryDelay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(g.retryDelay):
			}
			continue
		}

		g.logger.Info("bus connected", "devices", len(g.devices))
		g.runEpoch(ctx, conn)
		g.logger.Info("epoch torn down")
	}
}

// runEpoch polls on one connection until a fatal signal or ctx
// cancellation, then drains every poller and closes the connection.
func (g *Gateway) runEpoch(ctx context.Context, conn transport.Conn) {
	epochCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	intervals := make([]time.Duration, len(g.devices))
	for i, dev := range g.devices {
		intervals[i] = dev.ScanInterval
	}
	threshold := g.threshold(len(g.devices), intervals)

	guard := transport.NewGuard(conn)
	outcomes := make(chan health.Outcome, len(g.devices))
	fatal := make(chan error, len(g.devices))
	agg := health.NewAggregator(threshold, g.logger, g.metrics)
	coord := poller.NewCoordinator()

	g.logger.Debug("epoch started", "threshold", threshold)
	g.metrics.HealthCounter.Set(0)

	tripped := make(chan struct{}, 1)
	go func() {
		if agg.Run(epochCtx, outcomes) {
			tripped <- struct{}{}
		}
	}()

	coord.Add(len(g.devices))
	for _, dev := range g.devices {
		p := poller.New(dev, guard, g.sink, outcomes, fatal, g.logger, g.metrics)
		go p.Run(epochCtx, coord)
	}

	select {
	case <-ctx.Done():
		g.logger.Info("shutdown requested, draining pollers")
	case <-tripped:
		// The aggregator already logged counts and threshold.
	case err := <-fatal:
		g.logger.Error("connection-level fault", "error", err)
	}

	// Stop the aggregator and any in-flight sink sends, then drain.
	cancel()
	coord.Trigger()
	if err := guard.Close(); err != nil {
		g.logger.Warn("closing bus connection", "error", err)
	}
}
