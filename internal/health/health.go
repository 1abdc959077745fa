// internal/health/health.go
package health

import (
	"context"
	"log/slog"
	"time"

	"github.com/fieldgate/fieldgate/internal/metric"
)

// Outcome is one poll cycle's result as seen by health accounting.
// Produced by a poller, consumed exactly once by the aggregator.
type Outcome struct {
	DeviceID    string
	OK          bool
	FailedAddrs []uint16
}

// ThresholdFunc computes the escalation threshold for one epoch.
// Exposed as a policy so deployments can swap the formula.
type ThresholdFunc func(deviceCount int, intervals []time.Duration) int

// RatioThreshold is 2 x deviceCount x ceil(max interval / min interval).
// More devices on one bus generate more counted events per unit time, and
// a wide interval spread lets a fast device pile up failures before a slow
// device can report a compensating success. With equal intervals this
// reduces to 2 x deviceCount.
func RatioThreshold(deviceCount int, intervals []time.Duration) int {
	if deviceCount <= 0 || len(intervals) == 0 {
		return 0
	}
	min, max := intervals[0], intervals[0]
	for _, iv := range intervals[1:] {
		if iv < min {
			min = iv
		}
		if iv > max {
			max = iv
		}
	}
	if min <= 0 {
		return 0
	}
	ratio := (int64(max) + int64(min) - 1) / int64(min)
	return 2 * deviceCount * int(ratio)
}

// Aggregator owns the epoch's hysteresis counter. It is the single
// consumer of the outcome stream, so the counter needs no lock.
type Aggregator struct {
	count     int
	threshold int
	logger    *slog.Logger
	metrics   *metric.Metrics
}

// NewAggregator starts a fresh counter at zero for a new epoch.
func NewAggregator(threshold int, logger *slog.Logger, metrics *metric.Metrics) *Aggregator {
	return &Aggregator{
		threshold: threshold,
		logger:    logger.With("component", "health"),
		metrics:   metrics,
	}
}

// Count returns the current counter value.
func (a *Aggregator) Count() int { return a.count }

// Threshold returns the epoch's escalation threshold.
func (a *Aggregator) Threshold() int { return a.threshold }

// Apply is the pure counter transition: failures increment, successes
// decrement floored at zero. It reports the new count and whether this
// transition crossed the threshold. The counter is clamped at the
// threshold and only the crossing itself trips, so escalation fires
// exactly once.
func (a *Aggregator) Apply(ok bool) (int, bool) {
	if ok {
		if a.count > 0 {
			a.count--
		}
		return a.count, false
	}
	if a.count < a.threshold {
		a.count++
		return a.count, a.count == a.threshold
	}
	return a.count, false
}

// Run consumes outcomes until the threshold trips or ctx is cancelled.
// It returns true only when the bus is declared fatally unhealthy.
func (a *Aggregator) Run(ctx context.Context, outcomes <-chan Outcome) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case o := <-outcomes:
			count, tripped := a.Apply(o.OK)
			a.metrics.HealthCounter.Set(float64(count))
			a.logger.Debug("outcome applied",
				"device", o.DeviceID, "ok", o.OK, "count", count, "threshold", a.threshold)
			if tripped {
				a.logger.Error("bus declared unhealthy",
					"count", count, "threshold", a.threshold, "last_device", o.DeviceID)
				return true
			}
		}
	}
}
