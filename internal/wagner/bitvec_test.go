package wagner

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBitMatrixRoundtrip(t *testing.T) {
	// Width 5 guarantees fields straddle word boundaries.
	m := NewBitMatrix(5, 1, 0)
	for i := 0; i < 100; i++ {
		m.AppendUint(uint64(i) & 0x1f)
	}
	require.Equal(t, 100, m.Rows())
	for i := 0; i < 100; i++ {
		require.Equal(t, uint64(i)&0x1f, m.At(i, 0), "row %d", i)
	}
}

func TestBitMatrixAppendUintMasks(t *testing.T) {
	m := NewBitMatrix(3, 1, 4)
	m.AppendUint(0xff) // only the low 3 bits survive
	require.Equal(t, uint64(7), m.At(0, 0))
}

func TestBitMatrixAppendPair(t *testing.T) {
	left := NewBitMatrix(9, 2, 2)
	right := NewBitMatrix(9, 2, 2)
	// Rows are built by pairing single-field leaf rows first.
	leafL := NewBitMatrix(9, 1, 2)
	leafL.AppendUint(0x1ab)
	leafL.AppendUint(0x0c3)
	leafR := NewBitMatrix(9, 1, 2)
	leafR.AppendUint(0x155)
	leafR.AppendUint(0x1ff)
	left.AppendPair(leafL, 0, leafL, 1)
	right.AppendPair(leafR, 0, leafR, 1)

	require.Equal(t, []uint64{0x1ab, 0x0c3}, left.Row(0))
	require.Equal(t, []uint64{0x155, 0x1ff}, right.Row(0))

	// A merge tag is the incoming row followed by the prior row.
	merged := NewBitMatrix(9, 4, 1)
	merged.AppendPair(left, 0, right, 0)
	require.Equal(t, []uint64{0x1ab, 0x0c3, 0x155, 0x1ff}, merged.Row(0))
}

func TestBitMatrixSingleBitPacking(t *testing.T) {
	// 128 single-bit fields per row must pack into exactly two words:
	// this is the whole point of trimming to t = 1.
	leaf := NewBitMatrix(1, 1, 64)
	for i := 0; i < 64; i++ {
		leaf.AppendUint(uint64(i) & 1)
	}
	cur := leaf
	for cur.Count() < 64 {
		next := NewBitMatrix(1, cur.Count()*2, cur.Rows()/2)
		for r := 0; r+1 < cur.Rows(); r += 2 {
			next.AppendPair(cur, r, cur, r+1)
		}
		cur = next
	}
	m := NewBitMatrix(1, 128, 1)
	m.AppendPair(cur, 0, cur, 0)
	require.Equal(t, 128, len(m.Row(0)))
	require.Equal(t, 2, len(m.bits))
}

func TestPackKeyMatchesPairKey(t *testing.T) {
	tags := NewBitMatrix(9, 2, 2)
	leaf := NewBitMatrix(9, 1, 4)
	for _, v := range []uint64{0x1a5, 0x033, 0x101, 0x0fe} {
		leaf.AppendUint(v)
	}
	tags.AppendPair(leaf, 0, leaf, 1)
	tags.AppendPair(leaf, 2, leaf, 3)

	// packPairKey(row0, row1) must equal packKey of the trimmed
	// concatenation of both rows.
	trim := 3
	manual := make([]uint64, 0, 4)
	for _, v := range append(tags.Row(0), tags.Row(1)...) {
		manual = append(manual, v&(1<<uint(trim)-1))
	}
	require.Equal(t, packKey(manual, trim), packPairKey(tags, 0, 1, trim))
}

func TestCheckTablesCandidateChunks(t *testing.T) {
	// k = 2: candidates are 4-wide; layer 1 holds the two aligned pairs,
	// layer 2 the full vector.
	ct := NewCheckTables(2, 1)
	ct.AddCandidate([]uint64{1, 0, 0, 1})

	layer1 := ct.layer(1)
	require.Len(t, layer1, 2)
	_, ok := layer1[packKey([]uint64{1, 0}, 1)]
	require.True(t, ok, "chunk (1,0) must be a layer-1 key")
	_, ok = layer1[packKey([]uint64{0, 1}, 1)]
	require.True(t, ok, "chunk (0,1) must be a layer-1 key")
	_, ok = layer1[packKey([]uint64{1, 1}, 1)]
	require.False(t, ok, "chunk (1,1) never appeared")

	layer2 := ct.layer(2)
	require.Len(t, layer2, 1)
	_, ok = layer2[packKey([]uint64{1, 0, 0, 1}, 1)]
	require.True(t, ok, "the full candidate must be the layer-2 key")

	require.Nil(t, ct.layer(3), "out-of-range layer must be nil")
	var nilTables *CheckTables
	require.Nil(t, nilTables.layer(1), "nil tables must be safe")
}
