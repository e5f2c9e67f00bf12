package manna

import (
	"testing"

	"mikron/internal/numbers"
)

// TestManaAccrualExample mirrors spec scenario 5: manna account opened at T0
// with balance 100,000,000; 600s later with F=4, I=1000, balance should be
// 100,000,000 + 150*1000.
func TestManaAccrualExample(t *testing.T) {
	const t0 = 0
	got := Adjust(100_000_000, t0, t0+600, 4, 1000, 0)
	want := numbers.Amount(100_000_000 + 150*1000)
	if got != want {
		t.Fatalf("got %d want %d", got, want)
	}
}

func TestManaAdjustSameTimeIsIdentity(t *testing.T) {
	got := Adjust(500, 1000, 1000, 4, 1000, 0)
	if got != 500 {
		t.Fatalf("got %d want 500", got)
	}
}

func TestManaAdjustDecrementSaturatesAtZero(t *testing.T) {
	got := Adjust(50, 1000, 0, 4, 1000, 0)
	if got != 0 {
		t.Fatalf("got %d want 0", got)
	}
}

func TestManaAdjustRespectsStartFloor(t *testing.T) {
	// ticks only begin counting from `start`, even if t_from is earlier.
	got := Adjust(0, 0, 800, 4, 1000, 400)
	want := numbers.Amount((800 - 400) / 4 * 1000)
	if got != want {
		t.Fatalf("got %d want %d", got, want)
	}
}

func TestManaAdjustZeroFrequencyIsNoop(t *testing.T) {
	got := Adjust(42, 0, 10000, 0, 1000, 0)
	if got != 42 {
		t.Fatalf("got %d want 42", got)
	}
}
