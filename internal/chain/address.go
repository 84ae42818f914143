package chain

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/gagliardetto/solana-go"

	"token-launchpad/internal/idhash"
)

// ProgramID owns every derived address on the ledger.
var ProgramID = solana.PublicKeyFromBytes(idhash.Seed("token-launchpad"))

// Well-known addresses.
var (
	// NativeAsset is the chain currency attached to calls as value.
	NativeAsset = MustDerive("native")
	// WrappedNative is the fungible wrapper the AMM pairs against.
	WrappedNative = MustDerive("wrapped-native")
	// BurnAddress is an off-curve sink; nothing can move funds out of it.
	BurnAddress = MustDerive("burn")

	nativeAuthority  = MustDerive("native-authority")
	wrappedCustodian = MustDerive("wrapped-custodian")
)

// Derive returns the program address for a label and seed parts.
// Derived addresses are off the ed25519 curve and have no private key.
func Derive(label string, parts ...[]byte) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{idhash.Seed(label, parts...)}, ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive %s: %w", label, err)
	}
	return addr, nil
}

// MustDerive is Derive for package-level constants.
func MustDerive(label string, parts ...[]byte) solana.PublicKey {
	addr, err := Derive(label, parts...)
	if err != nil {
		panic(err)
	}
	return addr
}

// IsOnCurve reports whether the address is a valid ed25519 point,
// i.e. whether a private key could exist for it.
func IsOnCurve(addr solana.PublicKey) bool {
	_, err := new(edwards25519.Point).SetBytes(addr[:])
	return err == nil
}
