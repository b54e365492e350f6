package wagner

import (
	"strconv"

	"golang.org/x/crypto/blake2b"
)

// Oracle is the deterministic leaf hash function H(seed || tag) truncated
// to n bits. BLAKE2b is the reference instantiation; the digest is read as
// a big-endian n-bit integer.
type Oracle struct {
	hashLen int
	seed    Seed
}

// NewOracle builds the leaf oracle for one run.
func NewOracle(p Params, seed Seed) *Oracle {
	return &Oracle{hashLen: p.HashLen, seed: seed}
}

// LooseLeaf computes the i-th element of the single-chain list:
// H(seed || "message-i").
func (o *Oracle) LooseLeaf(i int) Word {
	msg := make([]byte, 0, len(o.seed)+24)
	msg = append(msg, o.seed[:]...)
	msg = append(msg, "message-"...)
	msg = strconv.AppendInt(msg, int64(i), 10)
	return o.digest(msg)
}

// ListLeaf computes the j-th element of list i for the strict k-tree
// variant: H(seed || "i-j").
func (o *Oracle) ListLeaf(i, j int) Word {
	msg := make([]byte, 0, len(o.seed)+24)
	msg = append(msg, o.seed[:]...)
	msg = strconv.AppendInt(msg, int64(i), 10)
	msg = append(msg, '-')
	msg = strconv.AppendInt(msg, int64(j), 10)
	return o.digest(msg)
}

func (o *Oracle) digest(msg []byte) Word {
	h, err := blake2b.New(o.hashLen, nil)
	if err != nil {
		// hashLen comes from validated Params; 1 <= n/8 <= 32.
		panic(err)
	}
	h.Write(msg)
	var sum [blake2b.Size]byte
	return wordFromBytesBE(h.Sum(sum[:0])[:o.hashLen])
}
