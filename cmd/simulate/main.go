// Command simulate runs one scripted launch on an in-memory deployment and
// writes the launch report.
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	flag "github.com/spf13/pflag"

	"token-launchpad/internal/indexer"
	"token-launchpad/internal/logger"
	"token-launchpad/internal/observability"
	"token-launchpad/internal/platform"
	"token-launchpad/internal/reporting"
	"token-launchpad/internal/simulation"
	"token-launchpad/internal/storage"
	"token-launchpad/internal/storage/memory"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	sc := simulation.DefaultScenario()

	flag.StringVar(&sc.TotalOffered, "offered", sc.TotalOffered, "sale tokens offered to buyers")
	flag.StringVar(&sc.HardCap, "hardcap", sc.HardCap, "hard cap in base units")
	flag.StringVar(&sc.SoftCap, "softcap", sc.SoftCap, "soft cap in base units")
	flag.StringVar(&sc.MaxSpend, "max-spend", sc.MaxSpend, "max spend per buyer")
	flag.StringVar(&sc.Fill, "fill", sc.Fill, "total base amount buyers try to deposit")
	flag.IntVar(&sc.Buyers, "buyers", sc.Buyers, "number of buyers")
	flag.Uint64Var(&sc.LiquidityPermille, "liquidity", sc.LiquidityPermille, "share of raised funds paired into liquidity, per mille")
	flag.Uint64Var(&sc.ListingDiscount, "listing-discount", sc.ListingDiscount, "listing price discount, percent")
	flag.Int64Var(&sc.LockDuration, "lock-duration", sc.LockDuration, "liquidity lock duration in seconds")
	flag.BoolVar(&sc.Native, "native", sc.Native, "raise the native asset instead of a base token")
	flag.Uint8Var(&sc.SaleDecimals, "sale-decimals", sc.SaleDecimals, "sale token decimals")
	flag.Uint8Var(&sc.BaseDecimals, "base-decimals", sc.BaseDecimals, "base token decimals")
	flag.BoolVar(&sc.Referrals, "referrals", sc.Referrals, "later buyers refer through the first buyer")
	flag.BoolVar(&sc.KeepLock, "keep-lock", sc.KeepLock, "leave pool shares locked after unlock")
	output := flag.StringP("output", "o", "", "write the markdown report to this file (default stdout)")
	eventsCSV := flag.String("events-csv", "", "write the indexed events to this CSV file")
	verbose := flag.BoolP("verbose", "v", false, "enable debug logging")
	flag.Parse()

	log := logger.NewWithWriter(os.Stderr, *verbose)
	ctx := context.Background()
	runID := uuid.New().String()

	clock := clockwork.NewFakeClockAt(time.Now().Truncate(time.Second))
	metrics := observability.NewIsolatedMetrics("token_launchpad")
	d, err := platform.New(ctx, platform.Options{Clock: clock, Metrics: metrics, Logger: log})
	if err != nil {
		return fmt.Errorf("deploy platform: %w", err)
	}

	events := memory.NewEventStore()
	snapshots := memory.NewSaleSnapshotStore()
	rec, err := indexer.NewRecorder(indexer.Options{
		Events:    []storage.EventStore{events},
		Snapshots: snapshots,
		Sales:     d.Generator,
		Clock:     clock,
		Metrics:   metrics,
		Logger:    log,
	})
	if err != nil {
		return fmt.Errorf("create recorder: %w", err)
	}
	d.Ledger.Subscribe(rec)

	log.Info("running launch", "run_id", runID, "native", sc.Native, "buyers", sc.Buyers, "fill", sc.Fill)
	res, err := simulation.NewRunner(d, clock, log).Run(ctx, sc)
	if err != nil {
		return fmt.Errorf("simulate: %w", err)
	}
	log.Info("launch settled", "sale", res.Sale, "phase", res.Phase)

	all, err := events.GetByTimeRange(ctx, 0, math.MaxInt64)
	if err != nil {
		return fmt.Errorf("load events: %w", err)
	}

	md := reporting.RenderMarkdown(reporting.Build(runID, clock.Now(), res, all))
	if *output == "" {
		fmt.Print(md)
	} else {
		if err := os.WriteFile(*output, []byte(md), 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		log.Info("report written", "path", *output)
	}

	if *eventsCSV != "" {
		if err := writeCSV(*eventsCSV, all); err != nil {
			return err
		}
		log.Info("events written", "path", *eventsCSV, "count", len(all))
	}
	return nil
}
