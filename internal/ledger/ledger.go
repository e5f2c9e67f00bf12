// Package ledger implements the block admission algorithm and its cascading
// rollback (§4.3, §4.4). Every exported entry point takes the store
// transaction it must run inside; the Ledger value itself holds nothing but
// the immutable NetworkParams — the store outlives the ledger, never the
// other way around, so there is nothing here to synchronize.
package ledger

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"mikron/internal/block"
	"mikron/internal/manna"
	"mikron/internal/numbers"
	"mikron/internal/params"
	"mikron/internal/store"
)

var log = logrus.WithField("component", "ledger")

// globalChecksumRegion is the sole XOR accumulator bucket maintained here.
// §3.4 names a (region_hi, region_lo) key but the reference implementation
// only ever reads and writes the origin region; sharding by region is left
// for a future change.
var globalChecksumRegion = store.ChecksumRegion{}

// Ledger validates and commits blocks against one NetworkParams.
type Ledger struct {
	Params params.NetworkParams
}

// New returns a Ledger bound to p.
func New(p params.NetworkParams) *Ledger {
	return &Ledger{Params: p}
}

// ManaAdjustedBalance returns blk's balance as observed at asOf, applying
// the manna schedule only when blk belongs to the network's manna account
// (§3.3, §4.5).
func (l *Ledger) ManaAdjustedBalance(blk *block.StateBlock, asOf numbers.ShortTimestamp) numbers.Amount {
	if blk.Account != l.Params.MannaAccount {
		return blk.Balance
	}
	return manna.Adjust(blk.Balance, blk.CreationTime, asOf, l.Params.MannaFrequency, l.Params.MannaIncrement, l.Params.MannaStart)
}

// checkTimeSequence reports whether newTime is no earlier than prevTime
// minus tolerance, saturating the floor at zero rather than underflowing.
func checkTimeSequence(newTime, prevTime numbers.ShortTimestamp, tolerance uint32) bool {
	var floor numbers.ShortTimestamp
	if uint32(prevTime) >= tolerance {
		floor = prevTime - numbers.ShortTimestamp(tolerance)
	}
	return newTime >= floor
}

// Process runs the ten-step admission algorithm of §4.3 against blk and, on
// a progress verdict, commits it within txn (step 10). Only Code is
// meaningful on any other verdict.
func (l *Ledger) Process(txn *store.Txn, blk *block.StateBlock) (block.Result, error) {
	hash := blk.Hash()

	// 1. Duplicate check.
	exists, err := txn.HasStateBlock(hash)
	if err != nil {
		return block.Result{}, err
	}
	if exists {
		return block.Result{Code: block.CodeOld}, nil
	}

	// 2. Creation time sanity.
	if blk.CreationTime == 0 {
		return block.Result{Code: block.CodeInvalidBlockCreationTime}, nil
	}

	// 3. Signature check.
	if !blk.Verify() {
		return block.Result{Code: block.CodeBadSignature}, nil
	}

	// 4. Burn guard.
	if blk.Account.IsZero() {
		return block.Result{Code: block.CodeOpenedBurnAccount}, nil
	}

	info, hasAccount, err := txn.GetAccount(blk.Account)
	if err != nil {
		return block.Result{}, err
	}

	// 5. Branch on previous, 6. time monotonicity on the same chain.
	var prevBlock *block.StateBlock
	var prevView block.PrevView
	switch {
	case !blk.Previous.IsZero():
		if !hasAccount {
			return block.Result{Code: block.CodeFork}, nil
		}
		stored, ok, err := txn.GetStateBlock(blk.Previous)
		if err != nil {
			return block.Result{}, err
		}
		if !ok {
			return block.Result{Code: block.CodeGapPrevious}, nil
		}
		if blk.Previous != info.Head {
			return block.Result{Code: block.CodeFork}, nil
		}
		prevBlock = stored.Block
		if !checkTimeSequence(blk.CreationTime, prevBlock.CreationTime, params.ShortTolerance) {
			return block.Result{Code: block.CodeInvalidBlockCreationTime}, nil
		}
		prevView = block.PrevView{Exists: true, ManaAdjustBalance: l.ManaAdjustedBalance(prevBlock, blk.CreationTime)}

	case hasAccount:
		// previous==0 but the account is already open: this can only be a
		// replay of (or fork against) that account's open block.
		return block.Result{Code: block.CodeFork}, nil

	case !blk.Link.IsZero():
		// open_receive: no previous block to validate against.

	case blk.Account != l.Params.GenesisAccount:
		return block.Result{Code: block.CodeGapSource}, nil
	}

	// 7. Subtype derivation.
	subtype := blk.Subtype(prevView, l.Params.GenesisAccount)
	if subtype == block.SubtypeUndefined {
		return block.Result{Code: block.CodeInvalidStateBlock}, nil
	}

	result := block.Result{Account: blk.Account, Subtype: subtype}

	switch subtype {
	case block.SubtypeOpenGenesis:
		result.Amount = blk.Balance

	case block.SubtypeOpenReceive, block.SubtypeReceive:
		// 8. Receive-specific checks.
		source, ok, err := txn.GetStateBlock(blk.Link)
		if err != nil {
			return block.Result{}, err
		}
		if !ok {
			return block.Result{Code: block.CodeGapSource}, nil
		}
		if !checkTimeSequence(blk.CreationTime, source.Block.CreationTime, params.LongTolerance) {
			return block.Result{Code: block.CodeInvalidBlockCreationTime}, nil
		}
		pending, ok, err := txn.GetPending(blk.Account, blk.Link)
		if err != nil {
			return block.Result{}, err
		}
		if !ok {
			return block.Result{Code: block.CodeUnreceivable}, nil
		}
		delta := blk.Balance - prevView.ManaAdjustBalance
		if delta != pending.Amount {
			return block.Result{Code: block.CodeBalanceMismatch}, nil
		}
		result.Amount = delta
		result.PendingAccount = pending.Source

	case block.SubtypeSend:
		// 9. Send-specific checks.
		if prevView.ManaAdjustBalance <= blk.Balance {
			// Subtype only classifies Send when the adjusted previous balance
			// exceeds the new balance; this guards the invariant rather than
			// expecting to trigger.
			return block.Result{Code: block.CodeNegativeSpend}, nil
		}
		delta := prevView.ManaAdjustBalance - blk.Balance
		if blk.CreationTime >= l.Params.Epoch2 && blk.Link == blk.Account {
			return block.Result{Code: block.CodeSendSameAccount}, nil
		}
		result.Amount = delta

	case block.SubtypeChange:
		// Balance unchanged, nothing further to validate.
	}

	if err := l.commit(txn, blk, hash, subtype, info, hasAccount, prevBlock, result); err != nil {
		return block.Result{}, err
	}
	result.Code = block.CodeProgress
	log.WithFields(logrus.Fields{"hash": hash.Hex(), "subtype": subtype.String()}).Debug("admitted block")
	return result, nil
}

// commit performs §4.3 step 10 inside txn. Representation weight is keyed by
// the representative *account* each block names, not by the block's own
// hash: prevBlock's declared representative loses info.Balance and blk's
// declared representative (possibly the same account) gains blk.Balance, so
// the representation table's invariant (§8.5, sum of weights equals sum of
// live balances) holds after every commit regardless of whether the
// representative changed.
func (l *Ledger) commit(txn *store.Txn, blk *block.StateBlock, hash numbers.Hash, subtype block.Subtype, info store.AccountInfo, hadAccount bool, prevBlock *block.StateBlock, result block.Result) error {
	if err := txn.PutStateBlock(blk); err != nil {
		return err
	}

	if hadAccount {
		if err := txn.XorChecksum(globalChecksumRegion, info.Head); err != nil {
			return err
		}
		if err := txn.SubRepresentation(prevBlock.Representative, info.Balance); err != nil {
			return err
		}
	}
	if err := txn.AddRepresentation(blk.Representative, blk.Balance); err != nil {
		return err
	}

	switch subtype {
	case block.SubtypeSend:
		if err := txn.PutPending(blk.Link, hash, store.PendingInfo{Source: blk.Account, Amount: result.Amount}); err != nil {
			return err
		}
	case block.SubtypeReceive, block.SubtypeOpenReceive:
		if err := txn.DeletePending(blk.Account, blk.Link); err != nil {
			return err
		}
	}

	openBlock := hash
	if hadAccount {
		openBlock = info.OpenBlock
	}
	newInfo := store.AccountInfo{
		Head:          hash,
		RepBlock:      hash,
		OpenBlock:     openBlock,
		Balance:       blk.Balance,
		LastBlockTime: blk.CreationTime,
		BlockCount:    info.BlockCount + 1,
	}
	if err := txn.PutAccount(blk.Account, newInfo); err != nil {
		return err
	}

	if err := txn.XorChecksum(globalChecksumRegion, hash); err != nil {
		return err
	}

	// Frontiers never gain new rows for state blocks (§4.3 step 10); an old
	// row only ever needs clearing when a legacy head is being superseded.
	if _, ok, err := txn.GetFrontier(info.Head); err != nil {
		return err
	} else if ok {
		if err := txn.DeleteFrontier(info.Head); err != nil {
			return err
		}
	}
	return nil
}

// Rollback unwinds account(hash)'s chain from its current head down to, but
// not including, hash, cascading into any other account whose receive
// would otherwise be left referencing a pending entry this rollback must
// restore (§4.3 "Rollback").
func (l *Ledger) Rollback(txn *store.Txn, hash numbers.Hash) error {
	stored, ok, err := txn.GetStateBlock(hash)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	account := stored.Block.Account

	for {
		info, ok, err := txn.GetAccount(account)
		if err != nil {
			return err
		}
		if !ok || info.Head == hash {
			return nil
		}
		if err := l.rollbackHead(txn, account); err != nil {
			return err
		}
	}
}

// rollbackHead undoes exactly account's current head block.
func (l *Ledger) rollbackHead(txn *store.Txn, account numbers.Account) error {
	info, ok, err := txn.GetAccount(account)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	head, ok, err := txn.GetStateBlock(info.Head)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("ledger: rollback: head block %s of account %s missing", info.Head.Hex(), account.Hex())
	}
	return l.rollbackOne(txn, head.Block, info)
}

// rollbackOne undoes blk, which must be account.Head per info, restoring
// representation weight, pending entries and the account row to their
// pre-admission state.
func (l *Ledger) rollbackOne(txn *store.Txn, blk *block.StateBlock, info store.AccountInfo) error {
	hash := blk.Hash()

	var prevBlock *block.StateBlock
	var prevBalance numbers.Amount
	var prevTime numbers.ShortTimestamp
	if !blk.Previous.IsZero() {
		stored, ok, err := txn.GetStateBlock(blk.Previous)
		if err != nil {
			return err
		}
		if ok {
			prevBlock = stored.Block
			prevBalance = prevBlock.Balance
			prevTime = prevBlock.CreationTime
		}
	}

	// Rollback classifies the block against the raw (non-manna-adjusted)
	// previous balance, matching the reference rollback_visitor, which keys
	// its pending/representation bookkeeping off the stored balance delta
	// rather than a manna-adjusted comparison.
	subtype := blk.Subtype(block.PrevView{Exists: prevBlock != nil, ManaAdjustBalance: prevBalance}, l.Params.GenesisAccount)

	if err := txn.SubRepresentation(blk.Representative, blk.Balance); err != nil {
		return err
	}
	if prevBlock != nil {
		if err := txn.AddRepresentation(prevBlock.Representative, prevBalance); err != nil {
			return err
		}
	}

	switch subtype {
	case block.SubtypeSend:
		for {
			_, ok, err := txn.GetPending(blk.Link, hash)
			if err != nil {
				return err
			}
			if ok {
				break
			}
			if err := l.rollbackHead(txn, blk.Link); err != nil {
				return err
			}
		}
		if err := txn.DeletePending(blk.Link, hash); err != nil {
			return err
		}

	case block.SubtypeReceive, block.SubtypeOpenReceive:
		var sourceAccount numbers.Account
		if source, ok, err := txn.GetStateBlock(blk.Link); err != nil {
			return err
		} else if ok {
			sourceAccount = source.Block.Account
		}
		delta := blk.Balance - prevBalance
		if err := txn.PutPending(blk.Account, blk.Link, store.PendingInfo{Source: sourceAccount, Amount: delta}); err != nil {
			return err
		}
	}

	if err := txn.XorChecksum(globalChecksumRegion, info.Head); err != nil {
		return err
	}

	if blk.Previous.IsZero() {
		if err := txn.DeleteAccount(blk.Account); err != nil {
			return err
		}
	} else {
		newInfo := store.AccountInfo{
			Head:          blk.Previous,
			RepBlock:      blk.Previous,
			OpenBlock:     info.OpenBlock,
			Balance:       prevBalance,
			LastBlockTime: prevTime,
			BlockCount:    info.BlockCount - 1,
		}
		if err := txn.PutAccount(blk.Account, newInfo); err != nil {
			return err
		}
		if err := txn.XorChecksum(globalChecksumRegion, blk.Previous); err != nil {
			return err
		}
		if err := txn.ClearSuccessor(blk.Previous); err != nil {
			return err
		}
	}

	log.WithField("hash", hash.Hex()).Debug("rolled back block")
	return txn.DeleteStateBlock(hash)
}
