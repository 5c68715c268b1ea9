// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"math/bits"
	"regexp"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// insForm is the operand shape of a mnemonic.
type insForm int

const (
	formNone   = insForm(iota) // halt, nop, ret
	formRegReg                 // rrmovq/cmovXX/OPq rA, rB
	formImmReg                 // irmovq V, rB
	formRegMem                 // rmmovq rA, D(rB)
	formMemReg                 // mrmovq D(rB), rA
	formDest                   // jXX/call Dest
	formReg                    // pushq/popq rA
)

// insSpec carries the encoding of a mnemonic.
type insSpec struct {
	Opcode byte
	Form   insForm
	Size   int64
}

// mnemonics maps assembly mnemonics to their encodings.
var mnemonics = map[string]insSpec{
	"halt":   {0x00, formNone, 1},
	"nop":    {0x10, formNone, 1},
	"rrmovq": {0x20, formRegReg, 2},
	"cmovle": {0x21, formRegReg, 2},
	"cmovl":  {0x22, formRegReg, 2},
	"cmove":  {0x23, formRegReg, 2},
	"cmovne": {0x24, formRegReg, 2},
	"cmovge": {0x25, formRegReg, 2},
	"cmovg":  {0x26, formRegReg, 2},
	"irmovq": {0x30, formImmReg, 10},
	"rmmovq": {0x40, formRegMem, 10},
	"mrmovq": {0x50, formMemReg, 10},
	"addq":   {0x60, formRegReg, 2},
	"subq":   {0x61, formRegReg, 2},
	"andq":   {0x62, formRegReg, 2},
	"xorq":   {0x63, formRegReg, 2},
	"jmp":    {0x70, formDest, 9},
	"jle":    {0x71, formDest, 9},
	"jl":     {0x72, formDest, 9},
	"je":     {0x73, formDest, 9},
	"jne":    {0x74, formDest, 9},
	"jge":    {0x75, formDest, 9},
	"jg":     {0x76, formDest, 9},
	"call":   {0x80, formDest, 9},
	"ret":    {0x90, formNone, 1},
	"pushq":  {0xA0, formReg, 2},
	"popq":   {0xB0, formReg, 2},
}

// registerIDs maps %-prefixed register names to selectors.
var registerIDs = func() map[string]RegisterID {
	ids := map[string]RegisterID{}
	for n := range NUM_REGISTERS {
		id := RegisterID(n)
		ids["%"+id.String()] = id
	}
	return ids
}()

// Statement is one assembled source line.
type Statement struct {
	LineNo int
	Addr   int64
	Bytes  []byte
	Source string
}

// Image is an assembled program, renderable as the address-tagged hex
// text the memory loader consumes.
type Image struct {
	Statements []Statement
}

// Render writes the image in "<hex-address>:<hex-bytes> | source" form.
func (img *Image) Render(w io.Writer) (err error) {
	for _, stmt := range img.Statements {
		_, err = fmt.Fprintf(w, "0x%03x: %-20s | %s\n",
			stmt.Addr, hex.EncodeToString(stmt.Bytes), stmt.Source)
		if err != nil {
			return
		}
	}
	return
}

// Reader returns the rendered image as a line source for the loader.
func (img *Image) Reader() io.Reader {
	buf := &bytes.Buffer{}
	img.Render(buf)
	return buf
}

// Assembler is a two-pass assembler for Y86-64 source. The first pass
// sizes statements and collects labels; the second resolves values and
// emits bytes. $(...) operands are compile-time starlark expressions with
// all labels predeclared.
type Assembler struct {
	Verbose bool             // If set, logs each assembled statement.
	Label   map[string]int64 // Label addresses, populated by pass one.
}

var labelRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*):`)
var parenRe = regexp.MustCompile(`\$\(([^)]*)\)`)
var memRe = regexp.MustCompile(`^([^(]*)\((%[a-z0-9]+)\)$`)

// sourceLine is the pass-one record of one statement-bearing line.
type sourceLine struct {
	no     int
	source string
	words  []string
	addr   int64
}

// Assemble translates Y86-64 source into an Image.
func (asm *Assembler) Assemble(r io.Reader) (img *Image, err error) {
	asm.Label = map[string]int64{}

	// Pass one: strip comments, bind labels, size statements.
	var lines []sourceLine
	addr := int64(0)
	lineno := 0

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineno++
		source := scanner.Text()

		text := source
		if n := strings.IndexByte(text, '#'); n >= 0 {
			text = text[:n]
		}
		text = strings.TrimSpace(text)

		for {
			match := labelRe.FindStringSubmatch(text)
			if match == nil {
				break
			}
			if _, dup := asm.Label[match[1]]; dup {
				err = ErrSyntax{LineNo: lineno, Line: source, Err: ErrLabelDuplicate}
				return
			}
			asm.Label[match[1]] = addr
			text = strings.TrimSpace(text[len(match[0]):])
		}

		if text == "" {
			continue
		}

		words := splitOperands(text)
		line := sourceLine{no: lineno, source: strings.TrimSpace(source), words: words}

		addr, err = asm.size(&line, addr)
		if err != nil {
			err = ErrSyntax{LineNo: lineno, Line: source, Err: err}
			return
		}

		lines = append(lines, line)
	}
	if serr := scanner.Err(); serr != nil {
		err = serr
		return
	}

	// Pass two: resolve values, emit bytes.
	img = &Image{}
	for _, line := range lines {
		var stmt Statement
		stmt, err = asm.emit(line)
		if err != nil {
			img = nil
			err = ErrSyntax{LineNo: line.no, Line: line.source, Err: err}
			return
		}

		if asm.Verbose {
			log.Printf("asm: %03x: % x", stmt.Addr, stmt.Bytes)
		}

		img.Statements = append(img.Statements, stmt)
	}

	return
}

// splitOperands splits a statement into mnemonic and operand words.
// $(...) expressions stay intact as single words.
func splitOperands(text string) (words []string) {
	text = strings.ReplaceAll(text, "\t", " ")
	mnemonic, rest, _ := strings.Cut(text, " ")
	words = []string{mnemonic}

	rest = strings.TrimSpace(rest)
	if rest == "" {
		return
	}

	// Hide expression internals from the comma split.
	hidden := parenRe.ReplaceAllStringFunc(rest, func(expr string) string {
		return strings.NewReplacer(",", "\x01", " ", "\x02").Replace(expr)
	})

	for _, word := range strings.Split(hidden, ",") {
		word = strings.NewReplacer("\x01", ",", "\x02", " ").Replace(word)
		word = strings.TrimSpace(word)
		if word != "" {
			words = append(words, word)
		}
	}

	return
}

// size advances the location counter across one statement.
func (asm *Assembler) size(line *sourceLine, addr int64) (next int64, err error) {
	word := line.words[0]

	switch word {
	case ".pos":
		if len(line.words) != 2 {
			err = ErrOperandCount
			return
		}
		next, err = asm.valueOf(line.words[1])
		if err != nil {
			return
		}
	case ".align":
		if len(line.words) != 2 {
			err = ErrOperandCount
			return
		}
		var align int64
		align, err = asm.valueOf(line.words[1])
		if err != nil {
			return
		}
		if align <= 0 || bits.OnesCount64(uint64(align)) != 1 {
			err = ErrAlignInvalid
			return
		}
		next = (addr + align - 1) & ^(align - 1)
	case ".quad":
		next = addr + 8
	default:
		spec, ok := mnemonics[word]
		if !ok {
			if strings.HasPrefix(word, ".") {
				err = ErrDirectiveInvalid
			} else {
				err = ErrOpcodeInvalid
			}
			return
		}
		next = addr + spec.Size
	}

	line.addr = addr
	if word == ".pos" || word == ".align" {
		line.addr = next
	}

	return
}

// emit encodes one statement as bytes.
func (asm *Assembler) emit(line sourceLine) (stmt Statement, err error) {
	stmt = Statement{LineNo: line.no, Addr: line.addr, Source: line.source}

	word := line.words[0]
	args := line.words[1:]

	switch word {
	case ".pos", ".align":
		return

	case ".quad":
		if len(args) != 1 {
			err = ErrOperandCount
			return
		}
		var value int64
		value, err = asm.valueOf(args[0])
		if err != nil {
			return
		}
		stmt.Bytes = append(stmt.Bytes, le64(value)...)
		return
	}

	spec := mnemonics[word]
	stmt.Bytes = append(stmt.Bytes, spec.Opcode)

	switch spec.Form {
	case formNone:
		if len(args) != 0 {
			err = ErrOperandCount
		}

	case formRegReg:
		var ra, rb RegisterID
		ra, rb, err = asm.registerPair(args)
		if err != nil {
			return
		}
		stmt.Bytes = append(stmt.Bytes, regByte(ra, rb))

	case formImmReg:
		if len(args) != 2 {
			err = ErrOperandCount
			return
		}
		var value int64
		value, err = asm.valueOf(args[0])
		if err != nil {
			return
		}
		var rb RegisterID
		rb, err = asm.register(args[1])
		if err != nil {
			return
		}
		stmt.Bytes = append(stmt.Bytes, regByte(0xF, rb))
		stmt.Bytes = append(stmt.Bytes, le64(value)...)

	case formRegMem:
		if len(args) != 2 {
			err = ErrOperandCount
			return
		}
		var ra, rb RegisterID
		var disp int64
		ra, err = asm.register(args[0])
		if err != nil {
			return
		}
		disp, rb, err = asm.memoryOperand(args[1])
		if err != nil {
			return
		}
		stmt.Bytes = append(stmt.Bytes, regByte(ra, rb))
		stmt.Bytes = append(stmt.Bytes, le64(disp)...)

	case formMemReg:
		if len(args) != 2 {
			err = ErrOperandCount
			return
		}
		var ra, rb RegisterID
		var disp int64
		disp, rb, err = asm.memoryOperand(args[0])
		if err != nil {
			return
		}
		ra, err = asm.register(args[1])
		if err != nil {
			return
		}
		stmt.Bytes = append(stmt.Bytes, regByte(ra, rb))
		stmt.Bytes = append(stmt.Bytes, le64(disp)...)

	case formDest:
		if len(args) != 1 {
			err = ErrOperandCount
			return
		}
		var dest int64
		dest, err = asm.valueOf(args[0])
		if err != nil {
			return
		}
		stmt.Bytes = append(stmt.Bytes, le64(dest)...)

	case formReg:
		if len(args) != 1 {
			err = ErrOperandCount
			return
		}
		var ra RegisterID
		ra, err = asm.register(args[0])
		if err != nil {
			return
		}
		stmt.Bytes = append(stmt.Bytes, regByte(ra, 0xF))
	}

	return
}

// registerPair parses a "rA, rB" operand list.
func (asm *Assembler) registerPair(args []string) (ra RegisterID, rb RegisterID, err error) {
	if len(args) != 2 {
		err = ErrOperandCount
		return
	}
	ra, err = asm.register(args[0])
	if err != nil {
		return
	}
	rb, err = asm.register(args[1])
	return
}

// register parses a %-prefixed register name.
func (asm *Assembler) register(word string) (id RegisterID, err error) {
	id, ok := registerIDs[word]
	if !ok {
		err = ErrRegisterInvalid
	}
	return
}

// memoryOperand parses a "D(%rB)" operand. The displacement may be empty.
func (asm *Assembler) memoryOperand(word string) (disp int64, rb RegisterID, err error) {
	match := memRe.FindStringSubmatch(word)
	if match == nil {
		err = ErrRegisterInvalid
		return
	}

	if text := strings.TrimSpace(match[1]); text != "" {
		disp, err = asm.valueOf(text)
		if err != nil {
			return
		}
	}

	rb, err = asm.register(match[2])
	return
}

// valueOf resolves an immediate word: a $() expression, a number (with
// an optional $ prefix), or a label.
func (asm *Assembler) valueOf(word string) (value int64, err error) {
	if strings.HasPrefix(word, "$(") && strings.HasSuffix(word, ")") {
		return asm.parenEval(word[2 : len(word)-1])
	}

	word = strings.TrimPrefix(word, "$")
	if word == "" {
		err = ErrParseValue(word)
		return
	}

	value, nerr := strconv.ParseInt(word, 0, 64)
	if nerr == nil {
		return
	}

	value, ok := asm.Label[word]
	if !ok {
		if word[0] >= '0' && word[0] <= '9' || word[0] == '-' {
			err = ErrParseNumber(word)
		} else {
			err = ErrLabelMissing(word)
		}
	}

	return
}

// parenEval does compile-time $(...) evaluations, with every label
// predeclared as an integer.
func (asm *Assembler) parenEval(expr string) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for name, addr := range asm.Label {
		pred[name] = starlark.MakeInt64(addr)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = ErrParseExpression(expr)
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
	}
	return
}

// regByte packs two register selectors into one byte.
func regByte(ra RegisterID, rb RegisterID) byte {
	return byte((int(ra)&0xF)<<4 | (int(rb) & 0xF))
}

// le64 encodes a value as 8 little-endian bytes.
func le64(value int64) (out []byte) {
	uval := uint64(value)
	out = make([]byte, 8)
	for n := range 8 {
		out[n] = byte(uval >> (8 * n))
	}
	return
}
