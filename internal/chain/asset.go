package chain

import (
	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
)

// Asset is fungible-asset metadata.
type Asset struct {
	ID            solana.PublicKey
	Symbol        string
	Decimals      uint8
	MintAuthority solana.PublicKey // zero means fixed supply
}

// AssetSpec describes an asset to create.
type AssetSpec struct {
	ID            solana.PublicKey // optional; derived from symbol and a nonce when zero
	Symbol        string
	Decimals      uint8
	MintAuthority solana.PublicKey
	Holder        solana.PublicKey // receives InitialSupply
	InitialSupply *uint256.Int
}

type allowanceKey struct {
	owner   solana.PublicKey
	spender solana.PublicKey
}

type assetState struct {
	meta       Asset
	supply     *uint256.Int
	balances   map[solana.PublicKey]*uint256.Int
	allowances map[allowanceKey]*uint256.Int
}

func newAssetState(meta Asset) *assetState {
	return &assetState{
		meta:       meta,
		supply:     new(uint256.Int),
		balances:   make(map[solana.PublicKey]*uint256.Int),
		allowances: make(map[allowanceKey]*uint256.Int),
	}
}

func (s *assetState) balance(holder solana.PublicKey) *uint256.Int {
	if b, ok := s.balances[holder]; ok {
		return b
	}
	return new(uint256.Int)
}

var maxAllowance = new(uint256.Int).SetAllOne()

// MaxAllowance returns the allowance value that is never decremented.
func MaxAllowance() *uint256.Int {
	return maxAllowance.Clone()
}
