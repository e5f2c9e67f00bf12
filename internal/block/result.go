package block

import "mikron/internal/numbers"

// Code is the closed set of ledger admission verdicts (§4.1, §7). No
// exceptions are used for control flow anywhere in the admission path;
// every call returns one of these tagged values.
type Code uint8

const (
	// CodeProgress is the only success verdict.
	CodeProgress Code = iota

	// Structural — fatal to the candidate block, never retried.
	CodeBadSignature
	CodeInvalidStateBlock
	CodeInvalidBlockCreationTime
	CodeOpenedBurnAccount

	// Sequencing — triggers unchecked/gap-cache insertion and retry on
	// dependency arrival.
	CodeGapPrevious
	CodeGapSource
	CodeOld

	// Consensus — the block loses; it may still be voted on until an
	// election confirms a different winner.
	CodeFork
	CodeUnreceivable
	CodeBalanceMismatch
	CodeNegativeSpend
	CodeBlockPosition
	CodeSendSameAccount
)

func (c Code) String() string {
	switch c {
	case CodeProgress:
		return "progress"
	case CodeBadSignature:
		return "bad_signature"
	case CodeInvalidStateBlock:
		return "invalid_state_block"
	case CodeInvalidBlockCreationTime:
		return "invalid_block_creation_time"
	case CodeOpenedBurnAccount:
		return "opened_burn_account"
	case CodeGapPrevious:
		return "gap_previous"
	case CodeGapSource:
		return "gap_source"
	case CodeOld:
		return "old"
	case CodeFork:
		return "fork"
	case CodeUnreceivable:
		return "unreceivable"
	case CodeBalanceMismatch:
		return "balance_mismatch"
	case CodeNegativeSpend:
		return "negative_spend"
	case CodeBlockPosition:
		return "block_position"
	case CodeSendSameAccount:
		return "send_same_account"
	default:
		return "unknown"
	}
}

// IsSequencing reports whether c is one of the two gap codes that should
// feed the unchecked table and gap cache rather than being dropped (§4.9
// step 3, §7).
func (c Code) IsSequencing() bool {
	return c == CodeGapPrevious || c == CodeGapSource
}

// Result is the full admission outcome (§4.4). Only Code is meaningful on
// non-progress outcomes; callers must not read the other fields in that
// case.
type Result struct {
	Code           Code
	Account        numbers.Account
	Amount         numbers.Amount
	PendingAccount numbers.Account
	Subtype        Subtype
}
