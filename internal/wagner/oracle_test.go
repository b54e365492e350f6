package wagner

import (
	"testing"

	"golang.org/x/crypto/blake2b"
)

func TestOracleLooseLeafMessageFormat(t *testing.T) {
	p, _ := NewParams(96, 3)
	seed, _ := ParseSeed("000102030405060708090a0b0c0d0e0f")
	oracle := NewOracle(p, seed)

	// The leaf message is seed || "message-<i>" hashed to n/8 bytes and
	// read big-endian.
	h, err := blake2b.New(12, nil)
	if err != nil {
		t.Fatalf("blake2b: %v", err)
	}
	h.Write(seed[:])
	h.Write([]byte("message-42"))
	want := wordFromBytesBE(h.Sum(nil))

	if got := oracle.LooseLeaf(42); got != want {
		t.Errorf("LooseLeaf(42) does not match seed||\"message-42\": got %v want %v", got, want)
	}
}

func TestOracleListLeafMessageFormat(t *testing.T) {
	p, _ := NewParams(96, 3)
	seed, _ := ParseSeed("000102030405060708090a0b0c0d0e0f")
	oracle := NewOracle(p, seed)

	h, err := blake2b.New(12, nil)
	if err != nil {
		t.Fatalf("blake2b: %v", err)
	}
	h.Write(seed[:])
	h.Write([]byte("3-17"))
	want := wordFromBytesBE(h.Sum(nil))

	if got := oracle.ListLeaf(3, 17); got != want {
		t.Errorf("ListLeaf(3, 17) does not match seed||\"3-17\": got %v want %v", got, want)
	}
}

func TestOracleDeterministicAndSeedSensitive(t *testing.T) {
	p, _ := NewParams(96, 3)
	seedA, _ := ParseSeed("000102030405060708090a0b0c0d0e0f")
	seedB, _ := ParseSeed("100102030405060708090a0b0c0d0e0f")

	a1 := NewOracle(p, seedA).LooseLeaf(7)
	a2 := NewOracle(p, seedA).LooseLeaf(7)
	b := NewOracle(p, seedB).LooseLeaf(7)

	if a1 != a2 {
		t.Error("the oracle must be a pure function of (seed, index)")
	}
	if a1 == b {
		t.Error("different seeds must produce different leaves")
	}
}

func TestOracleTruncatesToHashLen(t *testing.T) {
	p, _ := NewParams(24, 2) // 3-byte digests
	oracle := NewOracle(p, RandomSeed())
	leaf := oracle.LooseLeaf(0)
	if leaf.Shr(24) != (Word{}) {
		t.Errorf("a 24-bit leaf must have no bits above 24: %v", leaf)
	}
}
