package numbers

import (
	"bytes"
	"testing"
	"time"
)

func TestShortTimestampRoundTrip(t *testing.T) {
	cases := []time.Time{
		origin,
		origin.Add(600 * time.Second),
		origin.Add(10000 * time.Hour),
	}
	for _, c := range cases {
		ts := FromUnix(c)
		got := ts.ToUnix()
		if !got.Equal(c) {
			t.Fatalf("round trip mismatch: want %v got %v", c, got)
		}
	}
}

func TestShortTimestampBeforeOriginSaturates(t *testing.T) {
	ts := FromUnix(origin.Add(-time.Hour))
	if ts != 0 {
		t.Fatalf("expected 0, got %d", ts)
	}
}

func TestVarLenBytes16RoundTrip(t *testing.T) {
	v := VarLenBytes16("hello mikron")
	enc := v.Encode()
	dec, n, err := DecodeVarLenBytes16(enc)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(enc) {
		t.Fatalf("consumed %d, want %d", n, len(enc))
	}
	if !bytes.Equal(dec, v) {
		t.Fatalf("got %q want %q", dec, v)
	}
}

func TestVarLenBytes16Truncation(t *testing.T) {
	big := make(VarLenBytes16, MaxVarLen16+10)
	enc := big.Encode()
	dec, _, err := DecodeVarLenBytes16(enc)
	if err != nil {
		t.Fatal(err)
	}
	if len(dec) != MaxVarLen16 {
		t.Fatalf("expected truncation to %d, got %d", MaxVarLen16, len(dec))
	}
}

func TestBlake2b256Deterministic(t *testing.T) {
	a := Blake2b256([]byte("a"), []byte("b"))
	b := Blake2b256([]byte("ab"))
	if a != b {
		t.Fatalf("expected identical digests for concatenated parts")
	}
}

func TestAccountTextRoundTrip(t *testing.T) {
	var acc Account
	for i := range acc {
		acc[i] = byte(i * 7)
	}
	text := acc.ToText()
	if len(text) != 64 {
		t.Fatalf("expected 64 chars, got %d: %s", len(text), text)
	}
	got, err := ParseAccount(text)
	if err != nil {
		t.Fatal(err)
	}
	if got != acc {
		t.Fatalf("round trip mismatch: want %x got %x", acc, got)
	}
}

func TestAccountTextAcceptsCaseAndSeparatorVariants(t *testing.T) {
	var acc Account
	text := acc.ToText()
	upper := "MIK-" + text[4:]
	got, err := ParseAccount(upper)
	if err != nil {
		t.Fatal(err)
	}
	if got != acc {
		t.Fatalf("mismatch after case/separator normalization")
	}
}

func TestAccountTextRejectsBadChecksum(t *testing.T) {
	var acc Account
	acc[0] = 1
	text := acc.ToText()
	mutated := []byte(text)
	// flip the last body character to corrupt the checksum bits.
	if mutated[len(mutated)-1] == '1' {
		mutated[len(mutated)-1] = '3'
	} else {
		mutated[len(mutated)-1] = '1'
	}
	if _, err := ParseAccount(string(mutated)); err == nil {
		t.Fatal("expected checksum validation failure")
	}
}

func FuzzAccountTextRoundTrip(f *testing.F) {
	var seed Account
	f.Add(seed[:])
	one := Account{}
	one[31] = 1
	f.Add(one[:])
	f.Fuzz(func(t *testing.T, raw []byte) {
		var acc Account
		copy(acc[:], raw)
		text := acc.ToText()
		got, err := ParseAccount(text)
		if err != nil {
			t.Fatalf("parse failed for generated text: %v", err)
		}
		if got != acc {
			t.Fatalf("round trip mismatch: want %x got %x", acc, got)
		}
	})
}
