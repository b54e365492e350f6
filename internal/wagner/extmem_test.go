package wagner

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPointerFileRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pointers.bin")
	recBytes := 3

	pw, err := newPointerWriter(path, recBytes)
	if err != nil {
		t.Fatalf("newPointerWriter: %v", err)
	}
	pairs := []IndexPair{{1, 0}, {70000, 3}, {0xfffffe, 0xabcdef}}
	for _, p := range pairs {
		if err := pw.writePair(p.Left, p.Right); err != nil {
			t.Fatalf("writePair: %v", err)
		}
	}
	if err := pw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if want := int64(len(pairs) * 2 * recBytes); info.Size() != want {
		t.Fatalf("Expected %d bytes of fixed-width records. Got: %d", want, info.Size())
	}

	mm, err := openPointerMap(path, recBytes)
	if err != nil {
		t.Fatalf("openPointerMap: %v", err)
	}
	defer mm.Close()
	for i, want := range pairs {
		left, right := mm.pair(i)
		if left != want.Left || right != want.Right {
			t.Errorf("record %d: expected (%d, %d), got (%d, %d)", i, want.Left, want.Right, left, right)
		}
	}
}

func TestPointerMapEmptyFile(t *testing.T) {
	// A run whose intermediate layers all emptied out leaves a zero-byte
	// scratch file; mapping it must still succeed.
	path := filepath.Join(t.TempDir(), "empty.bin")
	pw, err := newPointerWriter(path, 2)
	if err != nil {
		t.Fatalf("newPointerWriter: %v", err)
	}
	if err := pw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	mm, err := openPointerMap(path, 2)
	if err != nil {
		t.Fatalf("openPointerMap on empty file: %v", err)
	}
	if err := mm.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestBigEndianRecordEncoding(t *testing.T) {
	buf := make([]byte, 3)
	putUintBE(buf, 0x0102a3)
	if buf[0] != 0x01 || buf[1] != 0x02 || buf[2] != 0xa3 {
		t.Errorf("Expected big-endian bytes 01 02 a3. Got: % x", buf)
	}
	if got := uintBE(buf); got != 0x0102a3 {
		t.Errorf("Roundtrip mismatch: %#x", got)
	}
}

func TestScratchPathDeterministic(t *testing.T) {
	p, _ := NewParams(128, 7)
	s, err := NewSingleChain(p, RandomSeed())
	if err != nil {
		t.Fatalf("NewSingleChain: %v", err)
	}
	s.ScratchDir = "/scratch"
	if got := s.scratchPath(); got != "/scratch/wagner-ip-128-7.bin" {
		t.Errorf("Expected the path derived from (n, k). Got: %s", got)
	}
}
