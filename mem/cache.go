package mem

import (
	"math/bits"
)

// Default cache geometry, in bytes.
const (
	CACHE_SIZE_DEFAULT = 1024 // Total cache capacity.
	CACHE_LINE_DEFAULT = 8    // Bytes per cache line.
)

// CacheLine is a single direct-mapped cache line.
type CacheLine struct {
	Valid bool   // Line holds a copy of backing memory.
	Tag   int64  // Address tag.
	Addr  int64  // Base address of the cached bytes.
	Data  []byte // Cached bytes, LineSize long.
}

// Cache is a direct-mapped, write-through, no-write-allocate cache in
// front of the sparse backing store. It is purely a shadow of the store:
// for any resident line the cached bytes equal the backing bytes, and the
// hit/miss counters never change a functional result.
type Cache struct {
	Size     int // Total capacity in bytes.
	LineSize int // Bytes per line.
	NumLines int // Size / LineSize.

	Accesses int // Total read/write accesses.
	Hits     int // Accesses satisfied by a resident line.
	Misses   int // Accesses that missed.

	lines []CacheLine

	offsetBits uint
	indexBits  uint
	offsetMask int64
	indexMask  int64
}

// CacheStats is an observability summary of the cache counters.
type CacheStats struct {
	Accesses int
	Hits     int
	Misses   int
	HitRate  float64 // Percentage of accesses that hit.
}

// NewCache creates a direct-mapped cache. Both size and lineSize must be
// powers of two, with lineSize no larger than size.
func NewCache(size int, lineSize int) (cache *Cache, err error) {
	if size <= 0 || bits.OnesCount(uint(size)) != 1 ||
		lineSize <= 0 || bits.OnesCount(uint(lineSize)) != 1 ||
		lineSize > size {
		err = ErrCacheGeometry
		return
	}

	numLines := size / lineSize

	cache = &Cache{
		Size:       size,
		LineSize:   lineSize,
		NumLines:   numLines,
		lines:      make([]CacheLine, numLines),
		offsetBits: uint(bits.TrailingZeros(uint(lineSize))),
		indexBits:  uint(bits.TrailingZeros(uint(numLines))),
		offsetMask: int64(lineSize - 1),
		indexMask:  int64(numLines - 1),
	}

	for n := range cache.lines {
		cache.lines[n].Data = make([]byte, lineSize)
	}

	return
}

// indexAndTag extracts the line index and tag from an address.
func (cache *Cache) indexAndTag(addr int64) (index int, tag int64) {
	index = int((addr >> cache.offsetBits) & cache.indexMask)
	tag = addr >> (cache.offsetBits + cache.indexBits)
	return
}

// ReadByte reads a byte through the cache. A miss loads the full line
// from the store, defaulting unmapped bytes to zero.
func (cache *Cache) ReadByte(addr int64, store map[int64]byte) (value byte) {
	cache.Accesses++

	index, tag := cache.indexAndTag(addr)
	line := &cache.lines[index]
	offset := addr & cache.offsetMask

	if line.Valid && line.Tag == tag {
		cache.Hits++
		return line.Data[offset]
	}

	cache.Misses++
	return cache.loadLine(addr, store)
}

// WriteByte writes a byte through the cache. The store is always updated;
// the cached copy is updated only when the line is already resident for
// this tag. A write miss never populates the cache.
func (cache *Cache) WriteByte(addr int64, value byte, store map[int64]byte) {
	cache.Accesses++

	index, tag := cache.indexAndTag(addr)
	line := &cache.lines[index]

	store[addr] = value

	if line.Valid && line.Tag == tag {
		cache.Hits++
		line.Data[addr&cache.offsetMask] = value
	} else {
		cache.Misses++
	}
}

// loadLine fills the line containing addr from the store and returns the
// requested byte.
func (cache *Cache) loadLine(addr int64, store map[int64]byte) (value byte) {
	base := addr & ^cache.offsetMask

	index, tag := cache.indexAndTag(addr)
	line := &cache.lines[index]

	for n := range cache.LineSize {
		line.Data[n] = store[base+int64(n)]
	}

	line.Valid = true
	line.Tag = tag
	line.Addr = base

	return line.Data[addr&cache.offsetMask]
}

// updateIfResident refreshes the cached copy of a byte written directly
// to the store, outside the counted access path. The loader uses this to
// keep resident lines coherent with image writes.
func (cache *Cache) updateIfResident(addr int64, value byte) {
	index, tag := cache.indexAndTag(addr)
	line := &cache.lines[index]

	if line.Valid && line.Tag == tag {
		line.Data[addr&cache.offsetMask] = value
	}
}

// Stats returns a summary of the access counters.
func (cache *Cache) Stats() (stats CacheStats) {
	stats = CacheStats{
		Accesses: cache.Accesses,
		Hits:     cache.Hits,
		Misses:   cache.Misses,
	}
	if cache.Accesses > 0 {
		stats.HitRate = float64(cache.Hits) / float64(cache.Accesses) * 100
	}
	return
}
