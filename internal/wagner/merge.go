package wagner

// vectorList is one layer of the merge tree in index-vector form: the
// residual hash values plus one packed tag row per entry. tags is nil for
// value-only (XOR-removal) layers.
type vectorList struct {
	vals []Word
	tags *BitMatrix
}

// IndexPair points a merged entry at its two operands in the previous
// layer's list. Left is the later (incoming) entry, Right the earlier one,
// matching the emission order of the kernel.
type IndexPair struct {
	Left  int
	Right int
}

// bucketEntry is one retained occupant of a collision bucket.
type bucketEntry struct {
	high Word
	row  int
}

// mergePair records one emitted merge before tags are materialized, so
// the final-merge trivial removal (E2) can tombstone it cheaply.
type mergePair struct {
	xor     Word
	left    int
	right   int
	removed bool
}

// mergeCore is the bucketed self-join shared by every single-chain kernel.
// It scans L's values in input order, groups them by the low collideBits,
// and emits one mergePair per (incoming, prior) bucket pair, applying the
// mandatory edge-case policies:
//
//   - below the final merge (collideBits == ell), an incoming entry whose
//     high part matches any bucket occupant is dropped entirely and not
//     retained: such zero XORs are trivial collisions with overwhelming
//     probability, and retaining them would cascade three-way trivia;
//   - at the final merge (collideBits == 2*ell), zero XORs survive, but a
//     bucket reaching three occupants removes the pair already emitted
//     from its first two occupants — and only if it was actually emitted —
//     then drops the incoming entry;
//   - with a check table, a pair is emitted only when its trimmed
//     concatenated tag is a first-pass candidate chunk (tags must be
//     non-nil in that mode).
//
// Deterministic input order keeps the emitted orientation (incoming tag
// first, prior tag second) reproducible for a fixed seed.
func (s *SingleChainSolver) mergeCore(vals []Word, tags *BitMatrix, collideBits int, check map[string]struct{}, trim int) []mergePair {
	final := collideBits == 2*s.p.CollisionBits
	buckets := make(map[Word][]bucketEntry)
	pairs := make([]mergePair, 0, len(vals))
	var emittedAt map[IndexPair]int
	if final {
		emittedAt = make(map[IndexPair]int)
	}

	for row, val := range vals {
		low := val.Mask(collideBits)
		high := val.Shr(collideBits)
		bucket, ok := buckets[low]
		if !ok {
			buckets[low] = append(bucket, bucketEntry{high: high, row: row})
			continue
		}
		if !final {
			trivial := false
			for _, prior := range bucket {
				if prior.high == high {
					trivial = true
					break
				}
			}
			if trivial {
				// Drop the incoming entry without retaining it.
				continue
			}
		} else if len(bucket) > 1 {
			// Three-way agreement on the same 2*ell bits is a
			// near-certain trivial artifact. The pair emitted when the
			// second occupant arrived had orientation (second, first).
			key := IndexPair{Left: bucket[1].row, Right: bucket[0].row}
			if at, emitted := emittedAt[key]; emitted && !pairs[at].removed {
				pairs[at].removed = true
			}
			continue
		}
		for _, prior := range bucket {
			if check != nil {
				if _, ok := check[packPairKey(tags, row, prior.row, trim)]; !ok {
					continue
				}
			}
			pairs = append(pairs, mergePair{xor: high.Xor(prior.high), left: row, right: prior.row})
			if final {
				emittedAt[IndexPair{Left: row, Right: prior.row}] = len(pairs) - 1
			}
		}
		buckets[low] = append(bucket, bucketEntry{high: high, row: row})
	}
	return pairs
}

// mergeVectors joins a tagged layer on collideBits and materializes the
// surviving merged entries, concatenating tags incoming-first.
func (s *SingleChainSolver) mergeVectors(L *vectorList, collideBits, trim int, check map[string]struct{}) *vectorList {
	pairs := s.mergeCore(L.vals, L.tags, collideBits, check, trim)
	out := &vectorList{
		vals: make([]Word, 0, len(pairs)),
		tags: NewBitMatrix(L.tags.Width(), 2*L.tags.Count(), len(pairs)),
	}
	for _, pr := range pairs {
		if pr.removed {
			continue
		}
		out.vals = append(out.vals, pr.xor)
		out.tags.AppendPair(L.tags, pr.left, L.tags, pr.right)
	}
	return out
}

// mergePointers joins a value layer on collideBits and returns the merged
// values together with the pointer pairs into the input layer.
func (s *SingleChainSolver) mergePointers(vals []Word, collideBits int) ([]Word, []IndexPair) {
	pairs := s.mergeCore(vals, nil, collideBits, nil, 0)
	outVals := make([]Word, 0, len(pairs))
	outIdx := make([]IndexPair, 0, len(pairs))
	for _, pr := range pairs {
		if pr.removed {
			continue
		}
		outVals = append(outVals, pr.xor)
		outIdx = append(outIdx, IndexPair{Left: pr.left, Right: pr.right})
	}
	return outVals, outIdx
}

// mergeValues joins a layer keeping XOR values only. Tags are recomputed
// on demand by the post-retrieval driver, so only non-final layers may be
// merged this way.
func (s *SingleChainSolver) mergeValues(vals []Word, collideBits int) []Word {
	pairs := s.mergeCore(vals, nil, collideBits, nil, 0)
	out := make([]Word, 0, len(pairs))
	for _, pr := range pairs {
		out = append(out, pr.xor)
	}
	return out
}

// mergeExternal joins a non-final value layer while streaming each emitted
// pointer pair to the scratch file instead of holding it in RAM.
func (s *SingleChainSolver) mergeExternal(vals []Word, collideBits int, w *pointerWriter) ([]Word, error) {
	pairs := s.mergeCore(vals, nil, collideBits, nil, 0)
	out := make([]Word, 0, len(pairs))
	for _, pr := range pairs {
		if err := w.writePair(pr.left, pr.right); err != nil {
			return nil, err
		}
		out = append(out, pr.xor)
	}
	return out, nil
}
