// Package manna implements the pure, time-linear inflation model applied to
// one distinguished account (§4.5). Adjust has no side effects, takes no
// lock and performs no I/O: it is safe to call from any goroutine, including
// while holding a store transaction.
package manna

import "mikron/internal/numbers"

// Adjust returns balance as seen at tTo, given it was balance at tFrom, under
// the manna schedule defined by frequency (F, seconds per tick), increment
// (I, amount per tick) and start (S, the tick-counting floor).
//
// Ticks elapsed is computed in integer seconds-per-tick buckets, matching the
// reference formula exactly: a = max(tFrom, S)/F, b = tTo/F, both truncating
// divisions. Decrementing (tFrom > tTo) saturates at zero rather than
// wrapping.
func Adjust(balance numbers.Amount, tFrom, tTo numbers.ShortTimestamp, frequency uint32, increment numbers.Amount, start numbers.ShortTimestamp) numbers.Amount {
	if frequency == 0 {
		return balance
	}
	if tFrom <= tTo {
		from := tFrom
		if start > from {
			from = start
		}
		a := uint64(from) / uint64(frequency)
		b := uint64(tTo) / uint64(frequency)
		ticks := b - a
		return balance + numbers.Amount(ticks)*increment
	}

	from := tTo
	if start > from {
		from = start
	}
	a := uint64(from) / uint64(frequency)
	b := uint64(tFrom) / uint64(frequency)
	ticks := b - a
	delta := numbers.Amount(ticks) * increment
	if delta > balance {
		return 0
	}
	return balance - delta
}
