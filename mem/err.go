package mem

import (
	"errors"

	"github.com/ezrec/y86sim/translate"
)

var f = translate.From

var (
	// Address errors
	ErrAddressNegative  = errors.New(f("negative address"))
	ErrAddressUnaligned = errors.New(f("unaligned 64-bit write"))
	ErrByteRange        = errors.New(f("byte value out of range"))

	// Construction errors
	ErrCacheGeometry = errors.New(f("cache size and line size must be powers of two"))

	// Loader errors
	ErrImageRead = errors.New(f("image read failed"))
)

// ErrImageLine reports a malformed image line. The loader logs these and
// moves on; they are never fatal.
type ErrImageLine struct {
	LineNo int
	Line   string
}

func (err ErrImageLine) Error() string {
	return f("line %d '%v' is not an image line", err.LineNo, err.Line)
}
