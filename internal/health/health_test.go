// internal/health/health_test.go
package health

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldgate/fieldgate/internal/metric"
)

func testAggregator(threshold int) *Aggregator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAggregator(threshold, logger, metric.New())
}

func TestRatioThreshold(t *testing.T) {
	cases := []struct {
		name      string
		devices   int
		intervals []time.Duration
		want      int
	}{
		{"equal intervals", 3, []time.Duration{time.Second, time.Second, time.Second}, 6},
		{"spread intervals", 3, []time.Duration{time.Second, time.Second, 4 * time.Second}, 24},
		{"single device", 1, []time.Duration{500 * time.Millisecond}, 2},
		{"non-divisible ratio", 2, []time.Duration{2 * time.Second, 3 * time.Second}, 8}, // ceil(3/2)=2
		{"no devices", 0, []time.Duration{time.Second}, 0},
		{"no intervals", 3, nil, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RatioThreshold(tc.devices, tc.intervals))
		})
	}
}

func TestApply_FloorAtZero(t *testing.T) {
	a := testAggregator(4)

	for i := 0; i < 5; i++ {
		count, tripped := a.Apply(true)
		assert.Equal(t, 0, count)
		assert.False(t, tripped)
	}
}

func TestApply_TripsExactlyAtThreshold(t *testing.T) {
	a := testAggregator(3)

	count, tripped := a.Apply(false)
	assert.Equal(t, 1, count)
	assert.False(t, tripped)

	count, tripped = a.Apply(false)
	assert.Equal(t, 2, count)
	assert.False(t, tripped)

	count, tripped = a.Apply(false)
	assert.Equal(t, 3, count)
	assert.True(t, tripped)
}

func TestApply_NeverExceedsThreshold(t *testing.T) {
	a := testAggregator(2)

	a.Apply(false)
	_, tripped := a.Apply(false)
	assert.True(t, tripped)

	// Further failures stay clamped and do not re-trip.
	count, tripped := a.Apply(false)
	assert.Equal(t, 2, count)
	assert.False(t, tripped)
}

func TestApply_AlternatingNeverTrips(t *testing.T) {
	// Alternating failure/success oscillates between 1 and 0 and must
	// never reach any threshold above 1.
	a := testAggregator(4)

	want := []int{1, 0, 1, 0, 1, 0, 1, 0, 1, 0}
	for i, expected := range want {
		count, tripped := a.Apply(i%2 == 1)
		assert.Equal(t, expected, count, "cycle %d", i)
		assert.False(t, tripped, "cycle %d", i)
	}
}

func TestApply_HysteresisTrajectory(t *testing.T) {
	// Hand-computed sequence: two failures per compensating success.
	a := testAggregator(5)

	seq := []struct {
		ok        bool
		wantCount int
		wantTrip  bool
	}{
		{false, 1, false},
		{false, 2, false},
		{true, 1, false},
		{false, 2, false},
		{false, 3, false},
		{true, 2, false},
		{false, 3, false},
		{false, 4, false},
		{false, 5, true},
	}

	for i, step := range seq {
		count, tripped := a.Apply(step.ok)
		require.Equal(t, step.wantCount, count, "step %d", i)
		require.Equal(t, step.wantTrip, tripped, "step %d", i)
	}
}

func TestRun_TripsOnSustainedFailure(t *testing.T) {
	a := testAggregator(3)
	outcomes := make(chan Outcome, 8)
	for i := 0; i < 3; i++ {
		outcomes <- Outcome{DeviceID: "d1", OK: false}
	}

	tripped := make(chan bool, 1)
	go func() { tripped <- a.Run(context.Background(), outcomes) }()

	select {
	case got := <-tripped:
		assert.True(t, got)
	case <-time.After(2 * time.Second):
		t.Fatal("aggregator did not trip")
	}
}

func TestRun_ReturnsFalseOnCancel(t *testing.T) {
	a := testAggregator(3)
	outcomes := make(chan Outcome)

	ctx, cancel := context.WithCancel(context.Background())
	tripped := make(chan bool, 1)
	go func() { tripped <- a.Run(ctx, outcomes) }()

	cancel()
	select {
	case got := <-tripped:
		assert.False(t, got)
	case <-time.After(2 * time.Second):
		t.Fatal("aggregator did not stop on cancel")
	}
}
