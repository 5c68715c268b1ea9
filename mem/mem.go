// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package mem

import (
	"bufio"
	"errors"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/ezrec/y86sim/internal"
)

// Word is an 8-byte-aligned memory word with its base address.
type Word struct {
	Addr  int64
	Value int64
}

// Usage summarizes the populated extent of the sparse store.
type Usage struct {
	Bytes      int   // Total bytes ever written.
	MinAddress int64 // Lowest populated address.
	MaxAddress int64 // Highest populated address.
}

// Memory is the byte-addressable store for program text and data, fronted
// by a direct-mapped write-through cache. Addresses are non-negative and
// logically unbounded; the store is sparse, so large or scattered layouts
// cost only what they touch.
type Memory struct {
	Verbose bool // Set to log skipped image lines.

	Cache *Cache // Cache in front of the store.

	store map[int64]byte
}

// NewMemory creates a memory with the default cache geometry.
func NewMemory() (m *Memory) {
	m, _ = NewMemoryWithCache(CACHE_SIZE_DEFAULT, CACHE_LINE_DEFAULT)
	return
}

// NewMemoryWithCache creates a memory with an explicit cache geometry.
// Both parameters must be powers of two.
func NewMemoryWithCache(cacheSize int, lineSize int) (m *Memory, err error) {
	cache, err := NewCache(cacheSize, lineSize)
	if err != nil {
		return
	}

	m = &Memory{
		Cache: cache,
		store: map[int64]byte{},
	}

	return
}

// Load reads a program image of "<hex-address>:<hex-bytes>[|comment]"
// lines. Blank lines and lines starting with '#' are ignored; whitespace
// inside the byte string is stripped; an odd-length byte string is
// left-padded with a zero nibble. Malformed lines are skipped, not fatal.
// Only a read failure on the underlying source aborts the load.
//
// Image writes land directly in the store, outside the cache counters,
// but refresh any resident cache line so the two never diverge.
func (m *Memory) Load(r io.Reader) (err error) {
	scanner := bufio.NewScanner(r)

	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		text, _, _ := strings.Cut(line, "|")
		text = strings.TrimSpace(text)

		addrText, byteText, found := strings.Cut(text, ":")
		if !found {
			continue
		}

		addrText = strings.TrimSpace(addrText)
		byteText = strings.Join(strings.Fields(byteText), "")

		if addrText == "" || byteText == "" {
			continue
		}

		addr, aerr := strconv.ParseInt(strings.TrimPrefix(addrText, "0x"), 16, 64)
		if aerr != nil || addr < 0 {
			m.skip(lineno, line)
			continue
		}

		// A stray odd nibble is padded on the left.
		if len(byteText)%2 != 0 {
			byteText = "0" + byteText
		}

		for n := 0; n < len(byteText); n += 2 {
			value, verr := strconv.ParseUint(byteText[n:n+2], 16, 8)
			if verr != nil {
				m.skip(lineno, line)
				break
			}

			at := addr + int64(n/2)
			m.store[at] = byte(value)
			m.Cache.updateIfResident(at, byte(value))
		}
	}

	if serr := scanner.Err(); serr != nil {
		err = errors.Join(ErrImageRead, serr)
	}

	return
}

func (m *Memory) skip(lineno int, line string) {
	if m.Verbose {
		log.Printf("mem: %v", ErrImageLine{LineNo: lineno, Line: line})
	}
}

// ReadByte reads one byte through the cache. Reads of never-written
// addresses return zero.
func (m *Memory) ReadByte(addr int64) (value byte, err error) {
	if addr < 0 {
		err = ErrAddressNegative
		return
	}

	value = m.Cache.ReadByte(addr, m.store)
	return
}

// WriteByte writes one byte through the cache. The value must be in
// [0, 255].
func (m *Memory) WriteByte(addr int64, value int) (err error) {
	if addr < 0 {
		return ErrAddressNegative
	}
	if value < 0 || value > 255 {
		return ErrByteRange
	}

	m.Cache.WriteByte(addr, byte(value), m.store)
	return
}

// Read64 reads a little-endian two's-complement 64-bit value. Reads have
// no alignment requirement; only writes do. The asymmetry is part of the
// architecture and must not be tightened.
func (m *Memory) Read64(addr int64) (value int64, err error) {
	if addr < 0 {
		err = ErrAddressNegative
		return
	}

	var uval uint64
	for n := range 8 {
		b, berr := m.ReadByte(addr + int64(n))
		if berr != nil {
			err = berr
			return
		}
		uval |= uint64(b) << (8 * n)
	}

	value = int64(uval)
	return
}

// Write64 writes a little-endian two's-complement 64-bit value. The
// address must be non-negative and divisible by 8.
func (m *Memory) Write64(addr int64, value int64) (err error) {
	if addr < 0 {
		return ErrAddressNegative
	}
	if addr%8 != 0 {
		return ErrAddressUnaligned
	}

	uval := uint64(value)
	for n := range 8 {
		err = m.WriteByte(addr+int64(n), int((uval>>(8*n))&0xff))
		if err != nil {
			return
		}
	}

	return
}

// Push decrements the stack pointer by 8 and writes value there,
// returning the new stack pointer.
func (m *Memory) Push(value int64, sp int64) (newSp int64, err error) {
	newSp = sp - 8
	if newSp < 0 {
		err = ErrAddressNegative
		return
	}

	err = m.Write64(newSp, value)
	return
}

// Pop reads the value at the stack pointer and increments it by 8.
func (m *Memory) Pop(sp int64) (value int64, newSp int64, err error) {
	if sp < 0 {
		err = ErrAddressNegative
		return
	}

	value, err = m.Read64(sp)
	if err != nil {
		return
	}

	newSp = sp + 8
	return
}

// Snapshot returns every 8-byte-aligned word that any write has touched
// and that holds a non-zero value, as little-endian signed values.
//
// Words are ordered by string-lexicographic comparison of their decimal
// base addresses ("16" sorts before "8"). The ordering matches the
// external reference trace format and is a contract, not an accident.
func (m *Memory) Snapshot() (words []Word) {
	// Write-through keeps the store authoritative, so no cache flush
	// is needed here.
	nonzero := map[int64]int64{}
	for base := range internal.IterSeqAligned(m.store) {
		var uval uint64
		keep := false
		for n := range 8 {
			b := m.store[base+int64(n)]
			if b != 0 {
				keep = true
			}
			uval |= uint64(b) << (8 * n)
		}
		if keep {
			nonzero[base] = int64(uval)
		}
	}

	byText := func(a, b int64) int {
		return strings.Compare(
			strconv.FormatInt(a, 10),
			strconv.FormatInt(b, 10),
		)
	}
	for addr, value := range internal.IterSeq2SortedFunc(nonzero, byText) {
		words = append(words, Word{Addr: addr, Value: value})
	}

	return
}

// Stats returns the cache access counters.
func (m *Memory) Stats() CacheStats {
	return m.Cache.Stats()
}

// Usage reports the populated extent of the store.
func (m *Memory) Usage() (usage Usage) {
	usage.Bytes = len(m.store)
	first := true
	for addr := range m.store {
		if first || addr < usage.MinAddress {
			usage.MinAddress = addr
		}
		if first || addr > usage.MaxAddress {
			usage.MaxAddress = addr
		}
		first = false
	}
	return
}

// Dump returns the raw bytes in [start, end], inclusive, defaulting
// unwritten addresses to zero. Debug helper only; bypasses the cache.
func (m *Memory) Dump(start int64, end int64) (dump map[int64]byte) {
	dump = map[int64]byte{}
	for addr := start; addr <= end; addr++ {
		dump[addr] = m.store[addr]
	}
	return
}
