package block

import "mikron/internal/numbers"

// Subtype is the derived classification of a state block given the
// ledger's view of its previous block (§3.3). Never serialized.
type Subtype uint8

const (
	SubtypeUndefined Subtype = iota
	SubtypeOpenGenesis
	SubtypeOpenReceive
	SubtypeSend
	SubtypeReceive
	SubtypeChange
)

func (s Subtype) String() string {
	switch s {
	case SubtypeOpenGenesis:
		return "open_genesis"
	case SubtypeOpenReceive:
		return "open_receive"
	case SubtypeSend:
		return "send"
	case SubtypeReceive:
		return "receive"
	case SubtypeChange:
		return "change"
	default:
		return "undefined"
	}
}

// PrevView is the minimal ledger-context the subtype classifier needs about
// B.Previous: its manna-adjusted balance (already adjusted to B's creation
// time by the caller, see ledger.ManaAdjustedBalance) and whether an account
// row exists at all (open vs continuation).
type PrevView struct {
	Exists            bool
	ManaAdjustBalance numbers.Amount
}

// Subtype derives b's subtype against prev, the (possibly manna-adjusted)
// view of the previous block. genesisAccount identifies the one account
// permitted an open_genesis block.
func (b *StateBlock) Subtype(prev PrevView, genesisAccount numbers.Account) Subtype {
	if b.Previous.IsZero() {
		if b.Link.IsZero() {
			if b.Account == genesisAccount {
				return SubtypeOpenGenesis
			}
			return SubtypeUndefined
		}
		return SubtypeOpenReceive
	}

	if !prev.Exists {
		return SubtypeUndefined
	}

	switch {
	case prev.ManaAdjustBalance > b.Balance:
		return SubtypeSend
	case prev.ManaAdjustBalance < b.Balance:
		if b.Link.IsZero() {
			return SubtypeUndefined
		}
		return SubtypeReceive
	default:
		if b.Link.IsZero() && !b.Representative.IsZero() {
			return SubtypeChange
		}
		return SubtypeUndefined
	}
}

// IsValidOpen reports the structural precondition for both open_genesis and
// open_receive: previous must be zero. Usable without ledger context.
func (b *StateBlock) IsValidOpen() bool { return b.Previous.IsZero() }

// IsValidOpenReceive reports the structural precondition for a non-genesis
// open: previous zero and link non-zero.
func (b *StateBlock) IsValidOpenReceive() bool {
	return b.Previous.IsZero() && !b.Link.IsZero()
}

// IsValidChange reports the structural precondition for a change block:
// representative set and link zero.
func (b *StateBlock) IsValidChange() bool {
	return !b.Representative.IsZero() && b.Link.IsZero()
}
