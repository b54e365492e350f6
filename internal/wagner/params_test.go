package wagner

import (
	"errors"
	"testing"
)

func TestNewParams_Derivations(t *testing.T) {
	p, err := NewParams(128, 7)
	if err != nil {
		t.Fatalf("NewParams(128, 7) failed: %v", err)
	}
	if p.CollisionBits != 16 {
		t.Errorf("Expected ell = 16 for (128, 7). Got: %d", p.CollisionBits)
	}
	if p.ListSize != 1<<17 {
		t.Errorf("Expected N = 2^17 for (128, 7). Got: %d", p.ListSize)
	}
	if p.SolutionWidth != 128 {
		t.Errorf("Expected solution width 2^7 = 128. Got: %d", p.SolutionWidth)
	}
	if p.HashLen != 16 {
		t.Errorf("Expected 16 hash bytes for n = 128. Got: %d", p.HashLen)
	}
	if p.PointerBytes() != 3 {
		t.Errorf("Expected ceil(17/8) = 3 pointer bytes. Got: %d", p.PointerBytes())
	}
}

func TestNewParams_Rejections(t *testing.T) {
	tests := []struct {
		name string
		n, k int
		want error
	}{
		{"n not multiple of 8", 100, 4, ErrBitLength},
		{"n negative", -8, 2, ErrBitLength},
		{"k too small", 96, 1, ErrTreeDepth},
		{"divisibility", 128, 4, ErrDivisibility},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewParams(tt.n, tt.k); !errors.Is(err, tt.want) {
				t.Errorf("NewParams(%d, %d) = %v, want %v", tt.n, tt.k, err, tt.want)
			}
		})
	}
}

func TestSingleChainBound(t *testing.T) {
	// floor(sqrt(n/2 + 1)) per the loose-variant correctness analysis.
	if got := SingleChainBound(128); got != 8 {
		t.Errorf("Expected bound 8 for n = 128 (sqrt(65) = 8.06). Got: %d", got)
	}
	if got := SingleChainBound(200); got != 10 {
		t.Errorf("Expected bound 10 for n = 200 (sqrt(101) = 10.05). Got: %d", got)
	}

	// (160, 9) satisfies the bound; a depth above it must be rejected in
	// loose mode.
	p, err := NewParams(160, 9)
	if err != nil {
		t.Fatalf("NewParams(160, 9) failed: %v", err)
	}
	if err := p.CheckLoose(); err != nil {
		t.Errorf("(160, 9) is within the single-chain bound, got: %v", err)
	}
	p, err = NewParams(176, 10)
	if err != nil {
		t.Fatalf("NewParams(176, 10) failed: %v", err)
	}
	if err := p.CheckLoose(); !errors.Is(err, ErrSingleChainBound) {
		t.Errorf("(176, 10) exceeds the bound, expected ErrSingleChainBound, got: %v", err)
	}
}

func TestCheckTrim(t *testing.T) {
	p, _ := NewParams(96, 3) // ell = 24
	if err := p.CheckTrim(1); err != nil {
		t.Errorf("t = 1 is always valid, got: %v", err)
	}
	if err := p.CheckTrim(24); err != nil {
		t.Errorf("t = ell is valid, got: %v", err)
	}
	if err := p.CheckTrim(0); !errors.Is(err, ErrTrimLength) {
		t.Errorf("t = 0 must be rejected, got: %v", err)
	}
	if err := p.CheckTrim(25); !errors.Is(err, ErrTrimLength) {
		t.Errorf("t > ell must be rejected, got: %v", err)
	}
}

func TestParseSeed(t *testing.T) {
	seed, err := ParseSeed("e11c0fbda860aa57d3d8d68b11be0ba5")
	if err != nil {
		t.Fatalf("valid seed rejected: %v", err)
	}
	if seed.String() != "e11c0fbda860aa57d3d8d68b11be0ba5" {
		t.Errorf("seed roundtrip mismatch: %s", seed)
	}
	if _, err := ParseSeed("abcd"); !errors.Is(err, ErrSeedLength) {
		t.Errorf("short seed must be rejected, got: %v", err)
	}
	if _, err := ParseSeed("zz1c0fbda860aa57d3d8d68b11be0ba5"); err == nil {
		t.Error("non-hex seed must be rejected")
	}
}
