// Package platform wires a complete launchpad deployment onto one ledger.
package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/jonboulle/clockwork"

	"token-launchpad/internal/amm"
	"token-launchpad/internal/chain"
	"token-launchpad/internal/forwarder"
	"token-launchpad/internal/launchpad"
	"token-launchpad/internal/locker"
	"token-launchpad/internal/observability"
	"token-launchpad/internal/registry"
	"token-launchpad/internal/settings"
)

// Options configures a Deployment.
type Options struct {
	Clock   clockwork.Clock
	Metrics *observability.Metrics // optional
	Logger  *slog.Logger

	// Admin owns settings, registry and vault. Generated when zero.
	Admin solana.PublicKey
	// Fee receivers. Default to Admin.
	SaleFeeTo solana.PublicKey
	BaseFeeTo solana.PublicKey

	Policy launchpad.AccessPolicy // defaults to launchpad.EitherGate
}

// Validate checks options and fills defaults.
func (o *Options) Validate() error {
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Admin.IsZero() {
		o.Admin = solana.NewWallet().PublicKey()
	}
	if o.SaleFeeTo.IsZero() {
		o.SaleFeeTo = o.Admin
	}
	if o.BaseFeeTo.IsZero() {
		o.BaseFeeTo = o.Admin
	}
	return nil
}

// Deployment holds every program of the launchpad.
type Deployment struct {
	Ledger    *chain.Ledger
	Settings  *settings.Settings
	Registry  *registry.Registry
	Factory   *amm.Factory
	Vault     *locker.Vault
	Forwarder *forwarder.Forwarder
	Generator *launchpad.Generator

	Admin   solana.PublicKey
	Metrics *observability.Metrics
}

// New deploys all programs and performs the admin setup: fee receivers,
// the generator allowed in the registry and the forwarder exempt from vault fees.
func New(ctx context.Context, opts Options) (*Deployment, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid platform options: %w", err)
	}

	ledger, err := chain.NewLedger(chain.Config{Clock: opts.Clock, Logger: opts.Logger, Metrics: opts.Metrics})
	if err != nil {
		return nil, err
	}

	d := &Deployment{
		Ledger:   ledger,
		Settings: settings.New(ledger, opts.Admin),
		Registry: registry.New(ledger, opts.Admin),
		Factory:  amm.NewFactory(ledger),
		Admin:    opts.Admin,
		Metrics:  opts.Metrics,
	}

	d.Vault, err = locker.New(locker.Config{
		Ledger:  ledger,
		Pairs:   d.Factory,
		Owner:   opts.Admin,
		Metrics: opts.Metrics,
		Logger:  opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	d.Forwarder, err = forwarder.New(forwarder.Config{
		Ledger:   ledger,
		Factory:  d.Factory,
		Vault:    d.Vault,
		Registry: d.Registry,
		Logger:   opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	d.Generator, err = launchpad.NewGenerator(launchpad.GeneratorConfig{
		Ledger:    ledger,
		Settings:  d.Settings,
		Registry:  d.Registry,
		Forwarder: d.Forwarder,
		Policy:    opts.Policy,
		Metrics:   opts.Metrics,
		Logger:    opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	err = errors.Join(
		d.Settings.SetFeeAddresses(ctx, opts.Admin, opts.SaleFeeTo, opts.BaseFeeTo),
		d.Registry.AllowCreator(ctx, opts.Admin, d.Generator.Address(), true),
		d.Vault.WhitelistFeeAccount(ctx, opts.Admin, d.Forwarder.Address(), true),
	)
	if err != nil {
		return nil, fmt.Errorf("admin setup: %w", err)
	}
	return d, nil
}
