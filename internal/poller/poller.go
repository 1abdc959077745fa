// internal/poller/poller.go
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/fieldgate/fieldgate/internal/device"
	"github.com/fieldgate/fieldgate/internal/health"
	"github.com/fieldgate/fieldgate/internal/lineproto"
	"github.com/fieldgate/fieldgate/internal/metric"
	"github.com/fieldgate/fieldgate/internal/sink"
	"github.com/fieldgate/fieldgate/internal/transport"
)

// Poller drives the read -> encode -> forward -> wait loop for one device.
type Poller struct {
	dev      *device.Device
	guard    *transport.Guard
	sink     sink.Sink
	outcomes chan<- health.Outcome
	fatal    chan<- error
	logger   *slog.Logger
	metrics  *metric.Metrics
	clock    func() time.Time
}

// New wires one poller. outcomes feeds the health aggregator; fatal is the
// escalation path for cycles where every register failed (buffered by the
// caller, never blocked on).
func New(
	dev *device.Device,
	guard *transport.Guard,
	s sink.Sink,
	outcomes chan<- health.Outcome,
	fatal chan<- error,
	logger *slog.Logger,
	metrics *metric.Metrics,
) *Poller {
	return &Poller{
		dev:      dev,
		guard:    guard,
		sink:     s,
		outcomes: outcomes,
		fatal:    fatal,
		logger:   logger.With("component", "poller", "device", dev.ID),
		metrics:  metrics,
		clock:    time.Now,
	}
}

// Run loops until the token is set, then acknowledges to coord and exits.
// ctx bounds downstream I/O (sink sends); the token bounds the loop.
func (p *Poller) Run(ctx context.Context, coord *Coordinator) {
	defer coord.Ack()

	token := coord.Token()
	addrs := p.dev.Registers.Addresses()

	for !token.Cancelled() {
		start := p.clock()
		p.cycle(ctx, token, addrs)

		// Wait out the remainder of the scan interval, waking
		// immediately on cancellation.
		remaining := p.dev.ScanInterval - p.clock().Sub(start)
		if remaining > 0 {
			timer := time.NewTimer(remaining)
			select {
			case <-token.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}
}

// cycle performs one poll: guarded wire exchange, classification,
// encoding and forwarding outside the lock, one outcome emitted.
func (p *Poller) cycle(ctx context.Context, token *Token, addrs []uint16) {
	var res transport.ReadResult
	_ = p.guard.WithConn(func(c transport.Conn) error {
		res = c.Read(addrs)
		return nil
	})
	sampledAt := p.clock().Unix()

	// Every register failed: a connection-level fault. Escalate to the
	// lifecycle manager regardless of the aggregator's threshold.
	if res.AllFailed() {
		p.logger.Warn("all registers failed this cycle", "registers", len(addrs))
		p.metrics.PollCycles.WithLabelValues(p.dev.ID, "failed").Inc()
		p.emit(token, health.Outcome{DeviceID: p.dev.ID, OK: false, FailedAddrs: failedAddrs(res)})
		p.escalate(fmt.Errorf("poller %s: all %d registers failed", p.dev.ID, len(addrs)))
		return
	}

	// Individual register failures are transient: log each, keep going.
	for addr, err := range res.Failed {
		p.logger.Warn("register read failed", "address", addr, "error", err)
	}

	readings := make([]device.Reading, 0, len(res.Values))
	for addr, val := range res.Values {
		readings = append(readings, device.Reading{Address: addr, Value: val, Timestamp: sampledAt})
	}
	sort.Slice(readings, func(i, j int) bool { return readings[i].Address < readings[j].Address })

	if body := lineproto.EncodeReadings(p.dev, readings); body != "" {
		// Sink failures are logged and swallowed. They never reach
		// health accounting: the health signal reflects bus
		// reachability only.
		if err := p.sink.Send(ctx, body); err != nil {
			p.logger.Warn("sink forward failed", "error", err)
			p.metrics.SinkErrors.Inc()
		} else {
			p.metrics.LinesForwarded.WithLabelValues(p.dev.ID).
				Add(float64(strings.Count(body, "\n")))
		}
	}

	ok := len(res.Failed) == 0
	if ok {
		p.metrics.PollCycles.WithLabelValues(p.dev.ID, "ok").Inc()
	} else {
		p.metrics.PollCycles.WithLabelValues(p.dev.ID, "partial").Inc()
	}
	p.emit(token, health.Outcome{DeviceID: p.dev.ID, OK: ok, FailedAddrs: failedAddrs(res)})
}

// emit delivers an outcome unless the epoch is already shutting down.
func (p *Poller) emit(token *Token, o health.Outcome) {
	select {
	case p.outcomes <- o:
	case <-token.Done():
	}
}

// escalate reports a connection-level fault without ever blocking.
func (p *Poller) escalate(err error) {
	select {
	case p.fatal <- err:
	default:
	}
}

func failedAddrs(res transport.ReadResult) []uint16 {
	if len(res.Failed) == 0 {
		return nil
	}
	out := make([]uint16, 0, len(res.Failed))
	for addr := range res.Failed {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
