package cpu

import (
	"errors"

	"github.com/ezrec/y86sim/translate"
)

var f = translate.From

var (
	// Assembler errors
	ErrOpcodeInvalid    = errors.New(f("opcode invalid"))
	ErrOperandCount     = errors.New(f("wrong operand count"))
	ErrRegisterInvalid  = errors.New(f("register invalid"))
	ErrLabelDuplicate   = errors.New(f("label duplicated"))
	ErrDirectiveInvalid = errors.New(f("directive invalid"))
	ErrAlignInvalid     = errors.New(f(".align must be a power of two"))
)

// ErrLabelMissing reports a reference to an undefined label.
type ErrLabelMissing string

func (err ErrLabelMissing) Error() string {
	return f("label %v missing", string(err))
}

// ErrParseNumber reports a word that is not a number.
type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

// ErrParseValue reports a word that is neither a number nor a label.
type ErrParseValue string

func (err ErrParseValue) Error() string {
	return f("'%v' is not a value or label", string(err))
}

// ErrParseExpression reports a $() expression that failed to evaluate.
type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

// ErrSyntax locates an assembler error in the source text.
type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}
