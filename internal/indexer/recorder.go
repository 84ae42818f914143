// Package indexer persists committed ledger events and keeps sale snapshots current.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jonboulle/clockwork"

	"token-launchpad/internal/chain"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/launchpad"
	"token-launchpad/internal/observability"
	"token-launchpad/internal/storage"
)

// SaleSource resolves sale addresses to live sales.
type SaleSource interface {
	Sale(addr solana.PublicKey) (*launchpad.Sale, bool)
	Sales() []*launchpad.Sale
}

// Options configures a Recorder.
type Options struct {
	// Events receive every committed batch. The first store is primary;
	// the rest are mirrors (e.g. an analytics copy).
	Events    []storage.EventStore
	Snapshots storage.SaleSnapshotStore // optional
	Sales     SaleSource                // required when Snapshots is set
	Clock     clockwork.Clock
	Metrics   *observability.Metrics // optional
	Logger    *slog.Logger
}

// Validate checks options and fills defaults.
func (o *Options) Validate() error {
	var errs []error
	if len(o.Events) == 0 {
		errs = append(errs, errors.New("at least one event store is required"))
	}
	for i, s := range o.Events {
		if s == nil {
			errs = append(errs, fmt.Errorf("event store %d is nil", i))
		}
	}
	if o.Snapshots != nil && o.Sales == nil {
		errs = append(errs, errors.New("sale source is required with a snapshot store"))
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return errors.Join(errs...)
}

// Recorder implements chain.EventSink. Store failures are logged and counted;
// they never affect the already committed transaction.
type Recorder struct {
	opts Options
	log  *slog.Logger
}

var _ chain.EventSink = (*Recorder)(nil)

// NewRecorder creates a Recorder.
func NewRecorder(opts Options) (*Recorder, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid indexer options: %w", err)
	}
	return &Recorder{opts: opts, log: opts.Logger.With("component", "indexer")}, nil
}

// HandleEvents persists one committed batch and refreshes the snapshots of
// every sale it touched.
func (r *Recorder) HandleEvents(ctx context.Context, events []domain.Event) {
	if len(events) == 0 {
		return
	}

	batch := make([]*domain.Event, len(events))
	for i := range events {
		batch[i] = &events[i]
	}

	for i, store := range r.opts.Events {
		start := r.opts.Clock.Now()
		err := store.InsertBulk(ctx, batch)
		r.observe(func(m *observability.Metrics) {
			m.EventStoreLatency.Observe(r.opts.Clock.Since(start).Seconds())
		})
		if err != nil {
			r.observe(func(m *observability.Metrics) { m.EventStoreErrors.Inc() })
			r.log.Error("store events failed",
				"store", i,
				"tx", events[0].TxSeq,
				"count", len(events),
				"error", err,
			)
			continue
		}
		if i == 0 {
			r.observe(func(m *observability.Metrics) {
				for _, e := range events {
					m.EventsIndexed.WithLabelValues(string(e.Kind)).Inc()
				}
			})
		}
	}

	if r.opts.Snapshots == nil {
		return
	}
	for _, addr := range touchedSales(events) {
		sale, ok := r.opts.Sales.Sale(addr)
		if !ok {
			continue
		}
		r.upsert(ctx, sale)
	}
}

// Refresh re-snapshots every sale and recounts sales per phase.
// Phases move with time, so callers run it periodically.
func (r *Recorder) Refresh(ctx context.Context) error {
	if r.opts.Sales == nil {
		return nil
	}

	counts := make(map[domain.Phase]int)
	var errs []error
	for _, sale := range r.opts.Sales.Sales() {
		snap := sale.Snapshot()
		counts[snap.Phase]++
		if r.opts.Snapshots == nil {
			continue
		}
		if err := r.opts.Snapshots.Upsert(ctx, &snap); err != nil {
			errs = append(errs, fmt.Errorf("sale %s: %w", snap.Address, err))
		}
	}

	r.observe(func(m *observability.Metrics) {
		for _, p := range []domain.Phase{domain.PhasePending, domain.PhaseActive, domain.PhaseSuccess, domain.PhaseFailed} {
			m.SalesByPhase.WithLabelValues(p.String()).Set(float64(counts[p]))
		}
	})
	return errors.Join(errs...)
}

// Run calls Refresh every interval until ctx is done.
func (r *Recorder) Run(ctx context.Context, interval time.Duration) {
	ticker := r.opts.Clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if err := r.Refresh(ctx); err != nil {
				r.log.Warn("refresh sale snapshots failed", "error", err)
			}
		}
	}
}

func (r *Recorder) upsert(ctx context.Context, sale *launchpad.Sale) {
	snap := sale.Snapshot()
	if err := r.opts.Snapshots.Upsert(ctx, &snap); err != nil {
		r.observe(func(m *observability.Metrics) { m.EventStoreErrors.Inc() })
		r.log.Error("store sale snapshot failed", "sale", snap.Address, "error", err)
	}
}

func (r *Recorder) observe(fn func(m *observability.Metrics)) {
	if r.opts.Metrics != nil {
		fn(r.opts.Metrics)
	}
}

// touchedSales returns, in first-seen order, the addresses a batch may have
// changed: every emitting contract plus sales announced by SALE_CREATED.
func touchedSales(events []domain.Event) []solana.PublicKey {
	seen := make(map[string]struct{})
	var out []solana.PublicKey
	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		if pk, err := solana.PublicKeyFromBase58(s); err == nil {
			out = append(out, pk)
		}
	}
	for _, e := range events {
		add(e.Contract)
		if e.Kind == domain.EventSaleCreated {
			add(e.Counterparty)
		}
	}
	return out
}
