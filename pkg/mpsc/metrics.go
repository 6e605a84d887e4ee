package mpsc

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/funnelkit/funnel/pkg/mpsc"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// StatsSource is anything that can snapshot channel counters. Both
// Sender and Receiver satisfy it.
type StatsSource interface {
	Stats() Stats
}

// RegisterMetrics exposes a channel's counters through the global OTel
// meter (no-op if none is configured). The name attribute distinguishes
// channels when several are registered.
func RegisterMetrics(name string, src StatsSource) error {
	m := meter()

	pending, err := m.Int64ObservableGauge(
		"mpsc.pending",
		metric.WithDescription("Values waiting in the shared queue"),
	)
	if err != nil {
		return fmt.Errorf("creating pending gauge: %w", err)
	}

	cached, err := m.Int64ObservableGauge(
		"mpsc.cached",
		metric.WithDescription("Values held in the receiver cache"),
	)
	if err != nil {
		return fmt.Errorf("creating cached gauge: %w", err)
	}

	senders, err := m.Int64ObservableGauge(
		"mpsc.senders.live",
		metric.WithDescription("Sender handles not yet closed"),
	)
	if err != nil {
		return fmt.Errorf("creating senders gauge: %w", err)
	}

	sends, err := m.Int64ObservableCounter(
		"mpsc.sends",
		metric.WithDescription("Total values sent"),
	)
	if err != nil {
		return fmt.Errorf("creating sends counter: %w", err)
	}

	receives, err := m.Int64ObservableCounter(
		"mpsc.receives",
		metric.WithDescription("Total values received"),
	)
	if err != nil {
		return fmt.Errorf("creating receives counter: %w", err)
	}

	cacheHits, err := m.Int64ObservableCounter(
		"mpsc.cache.hits",
		metric.WithDescription("Receives served without taking the shared lock"),
	)
	if err != nil {
		return fmt.Errorf("creating cache hits counter: %w", err)
	}

	recvLocks, err := m.Int64ObservableCounter(
		"mpsc.recv.locks",
		metric.WithDescription("Receive calls that took the shared lock"),
	)
	if err != nil {
		return fmt.Errorf("creating recv locks counter: %w", err)
	}

	opt := metric.WithAttributes(attribute.String("channel", name))

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			st := src.Stats()
			o.ObserveInt64(pending, int64(st.Pending), opt)
			o.ObserveInt64(cached, int64(st.Cached), opt)
			o.ObserveInt64(senders, int64(st.LiveSenders), opt)
			o.ObserveInt64(sends, int64(st.Sends), opt)
			o.ObserveInt64(receives, int64(st.Receives), opt)
			o.ObserveInt64(cacheHits, int64(st.CacheHits), opt)
			o.ObserveInt64(recvLocks, int64(st.RecvLocks), opt)
			return nil
		},
		pending, cached, senders, sends, receives, cacheHits, recvLocks,
	)
	if err != nil {
		return fmt.Errorf("registering stats callback: %w", err)
	}

	return nil
}
