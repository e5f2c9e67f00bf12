// Package params holds the compile-time network constants (magic number,
// epoch boundaries, manna constants, genesis block) as an immutable value
// rather than global mutable state, per the "Global mutable state" design
// note: a single NetworkParams struct is threaded wherever network identity
// matters instead of package-level vars.
package params

import "mikron/internal/numbers"

// Network identifies which of the three magic-number-tagged networks a node
// participates in.
type Network uint8

const (
	NetworkTest Network = iota
	NetworkBeta
	NetworkLive
)

// Magic returns the 2-byte wire magic for the network.
func (n Network) Magic() [2]byte {
	switch n {
	case NetworkTest:
		return [2]byte{'M', 'T'}
	case NetworkBeta:
		return [2]byte{'M', 'B'}
	case NetworkLive:
		return [2]byte{'M', 'I'}
	default:
		return [2]byte{0, 0}
	}
}

// NetworkParams groups every constant whose value depends on which network a
// node is running on. It is immutable once constructed and safe to share
// across goroutines without synchronization.
type NetworkParams struct {
	Network Network

	GenesisAccount numbers.Account
	MannaAccount   numbers.Account

	// Epoch2 gates the send-to-self prohibition (§3.1, §4.3 step 9) and the
	// admission of comment blocks (§3.5).
	Epoch2 numbers.ShortTimestamp
	// EpochNext is declared but unused; §9 open question (a) treats it as
	// reserved for a future rule set.
	EpochNext numbers.ShortTimestamp

	// MannaFrequency (F), MannaIncrement (I) and MannaStart (S) parameterize
	// manna_adjust (§4.5).
	MannaFrequency uint32
	MannaIncrement numbers.Amount
	MannaStart     numbers.ShortTimestamp

	// GenesisAmount is the balance of the genesis account's open_genesis
	// block.
	GenesisAmount numbers.Amount

	// QuorumNumerator/QuorumDenominator express the stake-weighted fraction
	// of total supply an election's winner must clear to confirm (§4.10).
	QuorumNumerator   uint64
	QuorumDenominator uint64
}

// Quorum returns the tally an election must exceed to confirm: the quorum
// fraction of totalWeight (the vote manager passes GenesisAmount).
func (p NetworkParams) Quorum(totalWeight numbers.Amount) numbers.Amount {
	return numbers.Amount(uint64(totalWeight) * p.QuorumNumerator / p.QuorumDenominator)
}

const (
	// ShortTolerance is the same-chain creation-time slack (§4.3 step 6).
	ShortTolerance = 66
	// LongTolerance is the cross-chain (receive) creation-time slack
	// (§4.3 step 8).
	LongTolerance = 33360
)

// Test returns the parameter set used by unit tests and local networks: a
// fast 4-second manna tick, matching §4.5's example.
func Test(genesis, manna numbers.Account) NetworkParams {
	return NetworkParams{
		Network:        NetworkTest,
		GenesisAccount: genesis,
		MannaAccount:   manna,
		Epoch2:         1000,
		EpochNext:      0,
		MannaFrequency: 4,
		MannaIncrement: 1000,
		MannaStart:        0,
		GenesisAmount:     100_000_000,
		QuorumNumerator:   1,
		QuorumDenominator: 2,
	}
}

// Live returns the production parameter set: a daily manna tick.
func Live(genesis, manna numbers.Account) NetworkParams {
	return NetworkParams{
		Network:        NetworkLive,
		GenesisAccount: genesis,
		MannaAccount:   manna,
		Epoch2:         7_000_000,
		EpochNext:      0,
		MannaFrequency: 86400,
		MannaIncrement: 1000,
		MannaStart:        0,
		GenesisAmount:     340_282_366_920_938_463,
		QuorumNumerator:   1,
		QuorumDenominator: 2,
	}
}
