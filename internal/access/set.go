// Package access holds the allow-list and ownership primitives shared by
// settings, registry, sale and vault programs.
package access

import (
	"github.com/gagliardetto/solana-go"

	"token-launchpad/internal/chain"
)

// AddressSet is an enumerable set of addresses. Removal swaps the last
// element into the removed slot, so enumeration order is not stable
// across removals. Reverted mutations restore the exact prior order.
type AddressSet struct {
	values []solana.PublicKey
	index  map[solana.PublicKey]int
}

// NewAddressSet returns an empty set.
func NewAddressSet() *AddressSet {
	return &AddressSet{index: make(map[solana.PublicKey]int)}
}

// Add inserts addr. Returns false if it was already present.
func (s *AddressSet) Add(tx *chain.Tx, addr solana.PublicKey) bool {
	if _, ok := s.index[addr]; ok {
		return false
	}
	s.index[addr] = len(s.values)
	s.values = append(s.values, addr)
	tx.OnRevert(func() { s.remove(addr) })
	return true
}

// Remove deletes addr. Returns false if it was absent.
func (s *AddressSet) Remove(tx *chain.Tx, addr solana.PublicKey) bool {
	i, ok := s.index[addr]
	if !ok {
		return false
	}
	s.remove(addr)
	tx.OnRevert(func() { s.restore(addr, i) })
	return true
}

// restore undoes remove: addr returns to slot i and the element swapped
// into that slot goes back to the end.
func (s *AddressSet) restore(addr solana.PublicKey, i int) {
	if i == len(s.values) {
		s.values = append(s.values, addr)
	} else {
		moved := s.values[i]
		s.index[moved] = len(s.values)
		s.values = append(s.values, moved)
		s.values[i] = addr
	}
	s.index[addr] = i
}

// Edit adds or removes addr.
func (s *AddressSet) Edit(tx *chain.Tx, addr solana.PublicKey, add bool) bool {
	if add {
		return s.Add(tx, addr)
	}
	return s.Remove(tx, addr)
}

func (s *AddressSet) remove(addr solana.PublicKey) bool {
	i, ok := s.index[addr]
	if !ok {
		return false
	}
	last := len(s.values) - 1
	if i != last {
		moved := s.values[last]
		s.values[i] = moved
		s.index[moved] = i
	}
	s.values = s.values[:last]
	delete(s.index, addr)
	return true
}

// Contains reports membership.
func (s *AddressSet) Contains(addr solana.PublicKey) bool {
	_, ok := s.index[addr]
	return ok
}

// Len returns the number of members.
func (s *AddressSet) Len() int {
	return len(s.values)
}

// At returns the i-th member.
func (s *AddressSet) At(i int) (solana.PublicKey, bool) {
	if i < 0 || i >= len(s.values) {
		return solana.PublicKey{}, false
	}
	return s.values[i], true
}

// Values returns a copy of all members.
func (s *AddressSet) Values() []solana.PublicKey {
	out := make([]solana.PublicKey, len(s.values))
	copy(out, s.values)
	return out
}
