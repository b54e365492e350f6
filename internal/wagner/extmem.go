package wagner

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// The IP-EM scratch file is the concatenation of the per-layer pointer
// arrays in layer order 1..k-1. Each record is two big-endian unsigned
// integers of ceil((ell+1)/8) bytes; there is no header, so readers must
// carry the layer sizes in memory.

// scratchPath derives the deterministic pointer-file location for this
// (n, k) instance.
func (s *SingleChainSolver) scratchPath() string {
	dir := s.ScratchDir
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, fmt.Sprintf("wagner-ip-%d-%d.bin", s.p.N, s.p.K))
}

// pointerWriter streams fixed-width index-pointer records to the scratch
// file through a buffered writer.
type pointerWriter struct {
	f        *os.File
	w        *bufio.Writer
	recBytes int
	buf      []byte
}

func newPointerWriter(path string, recBytes int) (*pointerWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &pointerWriter{
		f:        f,
		w:        bufio.NewWriter(f),
		recBytes: recBytes,
		buf:      make([]byte, 2*recBytes),
	}, nil
}

func (pw *pointerWriter) writePair(left, right int) error {
	putUintBE(pw.buf[:pw.recBytes], uint64(left))
	putUintBE(pw.buf[pw.recBytes:], uint64(right))
	_, err := pw.w.Write(pw.buf)
	return err
}

func (pw *pointerWriter) Close() error {
	if err := pw.w.Flush(); err != nil {
		pw.f.Close()
		return err
	}
	return pw.f.Close()
}

// pointerMap is the read-only memory mapping of a completed scratch file.
type pointerMap struct {
	data     []byte
	recBytes int
}

func openPointerMap(path string, recBytes int) (*pointerMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() == 0 {
		return &pointerMap{recBytes: recBytes}, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap: %v", err)
	}
	return &pointerMap{data: data, recBytes: recBytes}, nil
}

// pair decodes the record at the given global record index.
func (m *pointerMap) pair(rec int) (left, right int) {
	off := rec * 2 * m.recBytes
	left = int(uintBE(m.data[off : off+m.recBytes]))
	right = int(uintBE(m.data[off+m.recBytes : off+2*m.recBytes]))
	return left, right
}

func (m *pointerMap) Close() error {
	if m.data == nil {
		return nil
	}
	return unix.Munmap(m.data)
}

func putUintBE(dst []byte, v uint64) {
	for i := len(dst) - 1; i >= 0; i-- {
		dst[i] = byte(v)
		v >>= 8
	}
}

func uintBE(src []byte) uint64 {
	var v uint64
	for _, b := range src {
		v = v<<8 | uint64(b)
	}
	return v
}
