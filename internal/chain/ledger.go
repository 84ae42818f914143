// Package chain is the host ledger that sale, pool and vault programs run on.
// It keeps fungible balances, serializes transactions and reverts every
// journaled change when a transaction fails.
package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	"github.com/jonboulle/clockwork"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/observability"
)

// EventSink receives the events of each committed transaction, in order.
type EventSink interface {
	HandleEvents(ctx context.Context, events []domain.Event)
}

// Config configures a Ledger.
type Config struct {
	Clock          clockwork.Clock
	Logger         *slog.Logger
	Metrics        *observability.Metrics // optional
	NativeDecimals uint8
	NativeSymbol   string
}

// Validate fills defaults.
func (c *Config) Validate() error {
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.NativeDecimals == 0 {
		c.NativeDecimals = 18
	}
	if c.NativeSymbol == "" {
		c.NativeSymbol = "NATIVE"
	}
	return nil
}

// Ledger holds all asset state. Transactions are strictly serialized.
type Ledger struct {
	mu     sync.RWMutex
	cfg    Config
	log    *slog.Logger
	assets map[solana.PublicKey]*assetState
	nonce  uint64
	txSeq  uint64

	sinksMu sync.RWMutex
	sinks   []EventSink
}

// NewLedger creates a ledger with the native and wrapped-native assets registered.
func NewLedger(cfg Config) (*Ledger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ledger config: %w", err)
	}
	l := &Ledger{
		cfg:    cfg,
		log:    cfg.Logger,
		assets: make(map[solana.PublicKey]*assetState),
	}
	l.assets[NativeAsset] = newAssetState(Asset{
		ID:            NativeAsset,
		Symbol:        cfg.NativeSymbol,
		Decimals:      cfg.NativeDecimals,
		MintAuthority: nativeAuthority,
	})
	l.assets[WrappedNative] = newAssetState(Asset{
		ID:            WrappedNative,
		Symbol:        "W" + cfg.NativeSymbol,
		Decimals:      cfg.NativeDecimals,
		MintAuthority: wrappedCustodian,
	})
	return l, nil
}

// Subscribe registers a sink for committed events.
func (l *Ledger) Subscribe(sink EventSink) {
	l.sinksMu.Lock()
	defer l.sinksMu.Unlock()
	l.sinks = append(l.sinks, sink)
}

// Clock returns the ledger clock.
func (l *Ledger) Clock() clockwork.Clock {
	return l.cfg.Clock
}

// Now returns the current ledger time in unix seconds.
func (l *Ledger) Now() int64 {
	return l.cfg.Clock.Now().Unix()
}

// Execute runs fn as one atomic transaction. If fn returns an error or
// panics, every change made through tx is undone and no event is emitted.
func (l *Ledger) Execute(ctx context.Context, fn func(tx *Tx) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	l.txSeq++
	tx := &Tx{l: l, seq: l.txSeq, now: l.Now()}

	committed := false
	defer func() {
		if committed {
			return
		}
		tx.revert()
		l.mu.Unlock()
		if r := recover(); r != nil {
			l.observeRevert("panic")
			panic(r)
		}
		l.observeRevert(domain.KindOf(err).String())
		l.log.Debug("transaction reverted", "tx", tx.seq, "error", err)
	}()

	if err = fn(tx); err != nil {
		return err
	}

	committed = true
	events, hooks := tx.events, tx.commit
	l.mu.Unlock()

	if l.cfg.Metrics != nil {
		l.cfg.Metrics.TransactionsCommitted.Inc()
	}
	for _, h := range hooks {
		h()
	}
	l.deliver(ctx, events)
	return nil
}

// View runs fn against a read-only transaction.
func (l *Ledger) View(fn func(tx *Tx) error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	tx := &Tx{l: l, seq: l.txSeq, now: l.Now(), readOnly: true}
	return fn(tx)
}

func (l *Ledger) observeRevert(kind string) {
	if l.cfg.Metrics != nil {
		l.cfg.Metrics.TransactionsReverted.WithLabelValues(kind).Inc()
	}
}

func (l *Ledger) deliver(ctx context.Context, events []domain.Event) {
	if len(events) == 0 {
		return
	}
	l.sinksMu.RLock()
	sinks := make([]EventSink, len(l.sinks))
	copy(sinks, l.sinks)
	l.sinksMu.RUnlock()

	for _, s := range sinks {
		s.HandleEvents(ctx, events)
	}
}

// Asset returns asset metadata.
func (l *Ledger) Asset(id solana.PublicKey) (Asset, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	st, ok := l.assets[id]
	if !ok {
		return Asset{}, false
	}
	return st.meta, true
}

// BalanceOf returns a copy of holder's balance of asset.
func (l *Ledger) BalanceOf(asset, holder solana.PublicKey) *uint256.Int {
	var out *uint256.Int
	_ = l.View(func(tx *Tx) error {
		out = tx.BalanceOf(asset, holder)
		return nil
	})
	return out
}

// TotalSupply returns a copy of the asset's supply.
func (l *Ledger) TotalSupply(asset solana.PublicKey) *uint256.Int {
	var out *uint256.Int
	_ = l.View(func(tx *Tx) error {
		out = tx.TotalSupply(asset)
		return nil
	})
	return out
}

// Allowance returns how much spender may move from owner.
func (l *Ledger) Allowance(asset, owner, spender solana.PublicKey) *uint256.Int {
	var out *uint256.Int
	_ = l.View(func(tx *Tx) error {
		out = tx.Allowance(asset, owner, spender)
		return nil
	})
	return out
}

// CreateAsset registers a new fungible asset and mints its initial supply to spec.Holder.
func (l *Ledger) CreateAsset(ctx context.Context, spec AssetSpec) (solana.PublicKey, error) {
	var id solana.PublicKey
	err := l.Execute(ctx, func(tx *Tx) error {
		var err error
		id, err = tx.CreateAsset(spec)
		return err
	})
	return id, err
}

// Approve lets spender move up to amount of owner's asset.
func (l *Ledger) Approve(ctx context.Context, asset, owner, spender solana.PublicKey, amount *uint256.Int) error {
	return l.Execute(ctx, func(tx *Tx) error {
		return tx.Approve(asset, owner, spender, amount)
	})
}

// Transfer moves amount of asset between holders.
func (l *Ledger) Transfer(ctx context.Context, asset, from, to solana.PublicKey, amount *uint256.Int) error {
	return l.Execute(ctx, func(tx *Tx) error {
		return tx.Transfer(asset, from, to, amount)
	})
}

// Airdrop mints native currency to an account.
func (l *Ledger) Airdrop(ctx context.Context, to solana.PublicKey, amount *uint256.Int) error {
	return l.Execute(ctx, func(tx *Tx) error {
		return tx.Mint(nativeAuthority, NativeAsset, to, amount)
	})
}
