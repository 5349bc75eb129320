package recycle

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	apimetric "go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/coachpo/recycle"

// poolMetrics captures observability instruments for one Recycler instance.
// All record methods tolerate a nil receiver so metrics stay optional.
type poolMetrics struct {
	hits        apimetric.Int64Counter
	misses      apimetric.Int64Counter
	kept        apimetric.Int64Counter
	discarded   apimetric.Int64Counter
	outstanding apimetric.Int64UpDownCounter
	attrs       apimetric.MeasurementOption
}

func newPoolMetrics(mp apimetric.MeterProvider, poolName, instanceID string) (*poolMetrics, error) {
	meter := otel.Meter(meterName)
	if mp != nil {
		meter = mp.Meter(meterName)
	}

	m := new(poolMetrics)
	var err error
	if m.hits, err = meter.Int64Counter("recycle.acquire.hits",
		apimetric.WithDescription("Acquire calls served from the free store.")); err != nil {
		return nil, fmt.Errorf("create hits counter: %w", err)
	}
	if m.misses, err = meter.Int64Counter("recycle.acquire.misses",
		apimetric.WithDescription("Acquire calls that invoked the factory.")); err != nil {
		return nil, fmt.Errorf("create misses counter: %w", err)
	}
	if m.kept, err = meter.Int64Counter("recycle.release.kept",
		apimetric.WithDescription("Released values retained by the free store.")); err != nil {
		return nil, fmt.Errorf("create kept counter: %w", err)
	}
	if m.discarded, err = meter.Int64Counter("recycle.release.discarded",
		apimetric.WithDescription("Released values discarded by capacity or close.")); err != nil {
		return nil, fmt.Errorf("create discarded counter: %w", err)
	}
	if m.outstanding, err = meter.Int64UpDownCounter("recycle.leases.outstanding",
		apimetric.WithDescription("Live leases not yet released.")); err != nil {
		return nil, fmt.Errorf("create outstanding counter: %w", err)
	}
	m.attrs = apimetric.WithAttributes(
		attribute.String("pool", poolName),
		attribute.String("instance", instanceID),
	)
	return m, nil
}

func (m *poolMetrics) recordAcquire(hit bool) {
	if m == nil {
		return
	}
	ctx := context.Background()
	if hit {
		m.hits.Add(ctx, 1, m.attrs)
	} else {
		m.misses.Add(ctx, 1, m.attrs)
	}
	m.outstanding.Add(ctx, 1, m.attrs)
}

func (m *poolMetrics) recordRelease(kept bool) {
	if m == nil {
		return
	}
	ctx := context.Background()
	if kept {
		m.kept.Add(ctx, 1, m.attrs)
	} else {
		m.discarded.Add(ctx, 1, m.attrs)
	}
	m.outstanding.Add(ctx, -1, m.attrs)
}
