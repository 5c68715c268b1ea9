package mem

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func FuzzMemory_Write64Read64(f *testing.F) {
	f.Add(int64(0), int64(0))
	f.Add(int64(512), int64(-1))
	f.Add(int64(0x7ffff8), int64(0x0123456789abcdef))

	f.Fuzz(func(t *testing.T, addr int64, value int64) {
		assert := assert.New(t)

		// Clamp to an aligned, non-negative address.
		addr &= 0x7ffff8

		m := NewMemory()

		err := m.Write64(addr, value)
		assert.NoError(err)

		got, err := m.Read64(addr)
		assert.NoError(err)
		assert.Equal(value, got)
	})
}
