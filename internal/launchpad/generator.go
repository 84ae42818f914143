package launchpad

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	"token-launchpad/internal/access"
	"token-launchpad/internal/chain"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/idhash"
	"token-launchpad/internal/num"
	"token-launchpad/internal/observability"
	"token-launchpad/internal/registry"
	"token-launchpad/internal/settings"
)

// Creation limits.
const (
	MinTotalOffered    = 10000
	MinLiquidity       = 250 // per mille
	MaxLiquidity       = 1000
	MaxListingDiscount = 100 // exclusive, percent
	MaxTimestamp       = 10_000_000_000
)

// GeneratorConfig wires a Generator.
type GeneratorConfig struct {
	Ledger    *chain.Ledger
	Settings  *settings.Settings
	Registry  *registry.Registry
	Forwarder LiquidityForwarder
	Policy    AccessPolicy // defaults to EitherGate
	Metrics   *observability.Metrics
	Logger    *slog.Logger
}

// Validate checks required fields and fills defaults.
func (c *GeneratorConfig) Validate() error {
	var errs []error
	if c.Ledger == nil {
		errs = append(errs, errors.New("ledger is required"))
	}
	if c.Settings == nil {
		errs = append(errs, errors.New("settings are required"))
	}
	if c.Registry == nil {
		errs = append(errs, errors.New("registry is required"))
	}
	if c.Forwarder == nil {
		errs = append(errs, errors.New("forwarder is required"))
	}
	if c.Logger == nil {
		errs = append(errs, errors.New("logger is required"))
	}
	if c.Policy == nil {
		c.Policy = EitherGate
	}
	return errors.Join(errs...)
}

// CreateRequest describes a new sale. Value is the native amount the caller
// attaches to pay the creation fee.
type CreateRequest struct {
	Caller            solana.PublicKey
	Value             *uint256.Int
	Referrer          solana.PublicKey
	SaleAsset         solana.PublicKey
	BaseAsset         solana.PublicKey
	TotalOffered      *uint256.Int
	HardCap           *uint256.Int
	SoftCap           *uint256.Int
	MaxSpendPerBuyer  *uint256.Int
	LiquidityPermille uint64
	ListingDiscount   uint64
	LockDuration      int64
	StartTime         int64
	EndTime           int64
}

// Generator deploys sales and registers them.
type Generator struct {
	cfg     GeneratorConfig
	log     *slog.Logger
	address solana.PublicKey

	mu    sync.RWMutex // guards the lookup maps for readers outside transactions
	nonce uint64
	sales map[solana.PublicKey]*Sale
	order []solana.PublicKey
}

// NewGenerator creates a generator. Its address must be allowed in the
// registry before Create succeeds.
func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generator config: %w", err)
	}
	return &Generator{
		cfg:     cfg,
		log:     cfg.Logger.With("component", "generator"),
		address: chain.MustDerive("sale-generator"),
		sales:   make(map[solana.PublicKey]*Sale),
	}, nil
}

// Address returns the generator program address.
func (g *Generator) Address() solana.PublicKey {
	return g.address
}

// AmountRequired returns the sale-asset reserve, excluding the referral
// budget, a sale with these parameters escrows under current fees.
func (g *Generator) AmountRequired(totalOffered *uint256.Int, listing, liquidity uint64) (*uint256.Int, error) {
	return AmountRequired(totalOffered, listing, liquidity, g.cfg.Settings.Current().TokenFee)
}

// Create validates req, escrows the sale reserve from the caller and
// registers the new sale.
func (g *Generator) Create(ctx context.Context, req CreateRequest) (*Sale, error) {
	var sale *Sale
	err := g.cfg.Ledger.Execute(ctx, func(tx *chain.Tx) error {
		var err error
		sale, err = g.create(tx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	if m := g.cfg.Metrics; m != nil {
		m.SalesCreated.Inc()
	}
	g.log.Info("sale created",
		"sale", sale.address,
		"owner", req.Caller,
		"sale_asset", req.SaleAsset,
		"base_asset", req.BaseAsset,
		"hard_cap", req.HardCap.Dec(),
	)
	return sale, nil
}

func (g *Generator) create(tx *chain.Tx, req CreateRequest) (*Sale, error) {
	cur := g.cfg.Settings.Read(tx)

	value := req.Value
	if value == nil {
		value = num.Zero()
	}
	if value.Lt(cur.CreationFee) {
		return nil, domain.ErrFeeNotMet
	}
	if !req.Referrer.IsZero() {
		if req.Referrer.Equals(req.Caller) || !g.cfg.Settings.ReferrerIsValid(tx, req.Referrer) {
			return nil, domain.ErrInvalidReferral
		}
	}
	if err := g.validate(tx, req, cur); err != nil {
		return nil, err
	}

	reserve, err := AmountRequired(req.TotalOffered, req.ListingDiscount, req.LiquidityPermille, cur.TokenFee)
	if err != nil {
		return nil, err
	}
	budget, err := ReferralBudget(req.TotalOffered, cur.ReferralFee)
	if err != nil {
		return nil, err
	}
	escrow, err := num.Add(reserve, budget)
	if err != nil {
		return nil, err
	}

	g.nonce++
	n := g.nonce
	tx.OnRevert(func() { g.nonce = n - 1 })
	addr, err := chain.Derive("sale", g.address[:], idhash.Uint64(n))
	if err != nil {
		return nil, err
	}

	if err := tx.Transfer(chain.NativeAsset, req.Caller, addr, cur.CreationFee); err != nil {
		return nil, err
	}
	if err := tx.TransferFrom(req.SaleAsset, g.address, req.Caller, addr, escrow); err != nil {
		return nil, err
	}

	sale := &Sale{
		ledger:    g.cfg.Ledger,
		settings:  g.cfg.Settings,
		forwarder: g.cfg.Forwarder,
		policy:    g.cfg.Policy,
		metrics:   g.cfg.Metrics,
		log:       g.cfg.Logger.With("component", "sale"),
		address:   addr,
		generator: g.address,
		cfg: domain.SaleConfig{
			Owner:             req.Caller,
			SaleAsset:         req.SaleAsset,
			BaseAsset:         req.BaseAsset,
			TotalOffered:      req.TotalOffered.Clone(),
			HardCap:           req.HardCap.Clone(),
			SoftCap:           req.SoftCap.Clone(),
			MaxSpendPerBuyer:  req.MaxSpendPerBuyer.Clone(),
			LiquidityPermille: req.LiquidityPermille,
			ListingDiscount:   req.ListingDiscount,
			LockDuration:      req.LockDuration,
			StartTime:         req.StartTime,
			EndTime:           req.EndTime,
			Referrer:          req.Referrer,
		},
		fees:           Fees{TokenFee: cur.TokenFee, ReferralFee: cur.ReferralFee},
		status:         domain.NewSaleStatus(),
		buyers:         make(map[solana.PublicKey]*domain.BuyerRecord),
		referrals:      make(map[solana.PublicKey]*domain.ReferralRecord),
		whitelist:      access.NewAddressSet(),
		reserve:        reserve,
		referralBudget: budget,
		creationFee:    cur.CreationFee.Clone(),
	}

	if err := g.cfg.Registry.Register(tx, g.address, addr); err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.sales[addr] = sale
	g.order = append(g.order, addr)
	g.mu.Unlock()
	tx.OnRevert(func() {
		g.mu.Lock()
		delete(g.sales, addr)
		g.order = g.order[:len(g.order)-1]
		g.mu.Unlock()
	})

	tx.Emit(domain.Event{
		Kind:         domain.EventSaleCreated,
		Contract:     g.address.String(),
		Actor:        req.Caller.String(),
		Counterparty: addr.String(),
		Asset:        req.SaleAsset.String(),
		Amount:       escrow.Dec(),
		Ref:          req.BaseAsset.String(),
	})
	return sale, nil
}

func (g *Generator) validate(tx *chain.Tx, req CreateRequest, cur settings.Snapshot) error {
	for _, v := range []*uint256.Int{req.TotalOffered, req.HardCap, req.SoftCap, req.MaxSpendPerBuyer} {
		if v == nil {
			return domain.ErrInvalidCaps
		}
	}
	if req.TotalOffered.Lt(num.New(MinTotalOffered)) {
		return domain.ErrMinDivisibility
	}
	price, err := tokenPrice(req.HardCap, req.TotalOffered)
	if err != nil || price.IsZero() {
		return domain.ErrInvalidTokenPrice
	}
	if req.SoftCap.IsZero() || req.SoftCap.Gt(req.HardCap) || req.MaxSpendPerBuyer.IsZero() {
		return domain.ErrInvalidCaps
	}
	if req.EndTime <= req.StartTime ||
		req.EndTime-req.StartTime > cur.MaxSaleLength ||
		req.LockDuration < 0 ||
		req.EndTime+req.LockDuration >= MaxTimestamp {
		return domain.ErrInvalidTimePeriod
	}
	if req.LiquidityPermille < MinLiquidity || req.LiquidityPermille > MaxLiquidity {
		return domain.ErrInvalidLiquidity
	}
	if req.ListingDiscount >= MaxListingDiscount {
		return domain.ErrInvalidListingRate
	}
	if _, ok := tx.Asset(req.SaleAsset); !ok {
		return fmt.Errorf("sale asset %s: %w", req.SaleAsset, domain.ErrUnknownAsset)
	}
	if _, ok := tx.Asset(req.BaseAsset); !ok {
		return fmt.Errorf("base asset %s: %w", req.BaseAsset, domain.ErrUnknownAsset)
	}
	if req.SaleAsset.Equals(chain.NativeAsset) || req.SaleAsset.Equals(req.BaseAsset) {
		return domain.ErrIdenticalAssets
	}
	return nil
}

// tokenPrice is base units per 1e18 sale units.
func tokenPrice(hardCap, totalOffered *uint256.Int) (*uint256.Int, error) {
	return num.MulDiv(hardCap, num.Scale(), totalOffered)
}

// Sale returns a sale deployed by this generator.
func (g *Generator) Sale(addr solana.PublicKey) (*Sale, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, ok := g.sales[addr]
	return s, ok
}

// Sales returns every sale in creation order.
func (g *Generator) Sales() []*Sale {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Sale, 0, len(g.order))
	for _, addr := range g.order {
		out = append(out, g.sales[addr])
	}
	return out
}
