// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"errors"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO": "0",
}

// Assembler is a single pass assembler for LC-3 assembly.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string // Predefines
	Label     map[string]uint16 // Map of labels to addresses.
	Equate    map[string]string // Map of equates.

	origin    uint16
	hasOrigin bool
	ended     bool
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// _mnemonics maps instruction names to opcodes.
var _mnemonics = map[string]CodeOp{
	"ADD":  OP_ADD,
	"AND":  OP_AND,
	"NOT":  OP_NOT,
	"JMP":  OP_JMP,
	"RET":  OP_JMP,
	"JSR":  OP_JSR,
	"JSRR": OP_JSR,
	"LD":   OP_LD,
	"LDI":  OP_LDI,
	"LDR":  OP_LDR,
	"LEA":  OP_LEA,
	"ST":   OP_ST,
	"STI":  OP_STI,
	"STR":  OP_STR,
	"TRAP": OP_TRAP,
	"RTI":  OP_RTI,
}

// _trapAliases maps the trap routine names to their vectors.
var _trapAliases = map[string]CodeTrap{
	"GETC":  TRAP_GETC,
	"OUT":   TRAP_OUT,
	"PUTS":  TRAP_PUTS,
	"IN":    TRAP_IN,
	"PUTSP": TRAP_PUTSP,
	"HALT":  TRAP_HALT,
}

var labelRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// branchOf decodes BR, BRn, BRzp, ... into the condition set.
// A bare BR branches always.
func branchOf(word string) (nzp Flag, ok bool) {
	upper := strings.ToUpper(word)
	if !strings.HasPrefix(upper, "BR") {
		return
	}

	for _, c := range upper[2:] {
		var fl Flag
		switch c {
		case 'N':
			fl = FLAG_NEG
		case 'Z':
			fl = FLAG_ZRO
		case 'P':
			fl = FLAG_POS
		default:
			return 0, false
		}
		if (nzp & fl) != 0 {
			return 0, false
		}
		nzp |= fl
	}

	if nzp == 0 {
		nzp = FLAG_NEG | FLAG_ZRO | FLAG_POS
	}

	ok = true
	return
}

// isMnemonic is true for directives, instructions and trap aliases.
func isMnemonic(word string) bool {
	if strings.HasPrefix(word, ".") {
		return true
	}
	upper := strings.ToUpper(word)
	if _, ok := _mnemonics[upper]; ok {
		return true
	}
	if _, ok := _trapAliases[upper]; ok {
		return true
	}
	_, ok := branchOf(word)
	return ok
}

// registerOf decodes R0 through R7.
func registerOf(word string) (reg int, err error) {
	if len(word) == 2 && (word[0] == 'R' || word[0] == 'r') && word[1] >= '0' && word[1] <= '7' {
		reg = int(word[1] - '0')
		return
	}

	err = ErrRegisterInvalid
	return
}

// isLabel is true if the word can name a label.
func isLabel(word string) bool {
	if !labelRegexp.MatchString(word) {
		return false
	}
	_, err := registerOf(word)
	return err != nil
}

// valueOf returns the value of a number: #decimal, xHEX, 0xHEX, bBINARY or
// a plain decimal.
func (asm *Assembler) valueOf(word string) (value int, err error) {
	if len(word) == 0 {
		err = ErrParseNumber(word)
		return
	}

	text := word
	base := 10
	switch {
	case text[0] == '#':
		text = text[1:]
	case strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X"):
		text = text[2:]
		base = 16
	case text[0] == 'x' || text[0] == 'X':
		text = text[1:]
		base = 16
	case text[0] == 'b' || text[0] == 'B':
		text = text[1:]
		base = 2
	}

	v64, perr := strconv.ParseInt(text, base, 32)
	if perr != nil {
		err = ErrParseNumber(word)
		return
	}

	if v64 < -0x8000 || v64 > 0xffff {
		err = ErrValueRange
		return
	}

	value = int(v64)
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		v, verr := asm.valueOf(str)
		if verr != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt(v)
	}
	for key, addr := range asm.Label {
		pred[key] = starlark.MakeInt(int(addr))
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
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
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = int(st_int64)
	return
}

// stripComment removes a ';' comment that is not inside quotes.
func stripComment(line string) string {
	var quote byte
	for n := 0; n < len(line); n++ {
		c := line[n]
		switch {
		case quote != 0 && c == '\\':
			n++
		case quote != 0 && c == quote:
			quote = 0
		case quote == 0 && (c == '"' || c == '\''):
			quote = c
		case quote == 0 && c == ';':
			return line[:n]
		}
	}
	return line
}

// splitWords splits a line on spaces and commas, keeping quoted text and
// $(...) expressions as single words.
func splitWords(line string) (words []string, err error) {
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			words = append(words, word.String())
			word.Reset()
		}
	}

	for n := 0; n < len(line); n++ {
		c := line[n]
		switch {
		case c == '"' || c == '\'':
			end := n + 1
			for end < len(line) && line[end] != c {
				if line[end] == '\\' {
					end++
				}
				end++
			}
			if end >= len(line) {
				err = ErrStringSyntax
				return
			}
			word.WriteString(line[n : end+1])
			n = end
		case c == '$' && n+1 < len(line) && line[n+1] == '(':
			depth := 0
			end := n + 1
			for ; end < len(line); end++ {
				if line[end] == '(' {
					depth++
				} else if line[end] == ')' {
					depth--
					if depth == 0 {
						break
					}
				}
			}
			if end >= len(line) {
				err = ErrParseExpression(line[n+2:])
				return
			}
			word.WriteString(line[n : end+1])
			n = end
		case c == ' ' || c == '\t' || c == ',':
			flush()
		default:
			word.WriteByte(c)
		}
	}
	flush()

	return
}

// expandWord evaluates character literals, $(...) expressions and equates.
func (asm *Assembler) expandWord(word string) (expanded string, err error) {
	switch {
	case strings.HasPrefix(word, "'"):
		str, uerr := strconv.Unquote(word)
		if uerr != nil || len(str) != 1 {
			err = ErrParseCharacter(word)
			return
		}
		expanded = strconv.Itoa(int(str[0]))
	case strings.HasPrefix(word, "$("):
		var value int
		value, err = asm.parenEval(word[2 : len(word)-1])
		if err != nil {
			return
		}
		expanded = strconv.Itoa(value)
	default:
		equate, ok := asm.Equate[word]
		if ok {
			expanded = equate
		} else {
			expanded = word
		}
	}

	return
}

// defineLabel binds a label to the current address.
func (asm *Assembler) defineLabel(label string) (err error) {
	if !isLabel(label) {
		err = ErrLabelInvalid
		return
	}
	if !asm.hasOrigin {
		err = ErrOriginMissing
		return
	}
	_, ok := asm.Label[label]
	if ok {
		err = ErrLabelDuplicate
		return
	}

	asm.Label[label] = asm.currentAddress()
	return
}

// parseLine parses a single line into the words of an instruction,
// after handling equates and labels.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = strconv.Itoa(lineno)

	raw, err := splitWords(line)
	if err != nil {
		return
	}

	if len(raw) == 0 {
		return
	}

	// .EQU NAME VALUE
	if strings.EqualFold(raw[0], ".equ") {
		if len(raw) != 3 || !isLabel(raw[1]) {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[raw[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		var value string
		value, err = asm.expandWord(raw[2])
		if err != nil {
			return
		}
		asm.Equate[raw[1]] = value
		return
	}

	for _, word := range raw {
		if !strings.HasPrefix(word, "\"") {
			word, err = asm.expandWord(word)
			if err != nil {
				return
			}
		}
		words = append(words, word)
	}

	for len(words) > 0 && strings.HasSuffix(words[0], ":") {
		err = asm.defineLabel(strings.TrimSuffix(words[0], ":"))
		if err != nil {
			return
		}
		words = words[1:]
	}

	if len(words) > 0 && !isMnemonic(words[0]) {
		err = asm.defineLabel(words[0])
		if err != nil {
			return
		}
		words = words[1:]
	}

	return
}

// size is the number of words assembled so far.
func (asm *Assembler) size() (count int) {
	if len(asm.Opcode) == 0 {
		return 0
	}

	last := asm.Opcode[len(asm.Opcode)-1]

	return int(last.Address-asm.origin) + len(last.Codes)
}

// currentAddress gets the address of the next word.
func (asm *Assembler) currentAddress() uint16 {
	return asm.origin + uint16(asm.size())
}

// Parse parses an input stream into a Program containing opcodes.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	defer func() {
		if err != nil {
			err = ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	if asm.Label == nil {
		asm.Label = make(map[string]uint16, 16)
	}
	clear(asm.Label)
	asm.Opcode = asm.Opcode[:0]
	asm.Equate = maps.Clone(sysEquate)
	maps.Copy(asm.Equate, _cpu_defines)
	maps.Copy(asm.Equate, asm.predefine)
	asm.origin = PC_START
	asm.hasOrigin = false
	asm.ended = false

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.ended {
			continue
		}

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		line = strings.TrimSpace(stripComment(text))

		var words []string
		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	// Final linking of labels.
	for n := range asm.Opcode {
		op := &asm.Opcode[n]

		if len(op.LinkLabel) == 0 {
			continue
		}

		err = asm.link(op)
		if err != nil {
			lineno = op.LineNo
			line = strings.Join(op.Words, " ")
			return
		}
	}

	prog = &Program{
		Origin:  asm.origin,
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// link resolves the label of an opcode into its first code.
func (asm *Assembler) link(op *Opcode) (err error) {
	addr, ok := asm.Label[op.LinkLabel]
	if !ok {
		err = ErrLabelMissing(op.LinkLabel)
		return
	}

	code := &op.Codes[0]
	if op.LinkBits == 16 {
		*code = Code(addr)
		return
	}

	offset := int(addr) - (int(op.Address) + 1)
	limit := 1 << (op.LinkBits - 1)
	if offset < -limit || offset >= limit {
		err = ErrOffsetRange
		return
	}

	*code |= Code(uint16(offset) & uint16(limit*2-1))
	return
}

// argCount checks the number of operands.
func argCount(args []string, count int) (err error) {
	switch {
	case len(args) < count:
		err = ErrOpcodeValueMissing
	case len(args) > count:
		err = ErrOpcodeExtraArgs
	}
	return
}

// signedIn checks that value fits a signed field of bits.
func signedIn(value int, bits int, rangeErr error) (err error) {
	limit := 1 << (bits - 1)
	if value < -limit || value >= limit {
		err = rangeErr
	}
	return
}

// valueOrLabel returns a number, or a label to be linked.
func (asm *Assembler) valueOrLabel(word string) (value int, label string, err error) {
	value, err = asm.valueOf(word)

	var perr ErrParseNumber
	if errors.As(err, &perr) && isLabel(word) {
		err = nil
		label = word
	}
	return
}

// pcOffset returns a literal offset, or a label to be linked.
func (asm *Assembler) pcOffset(word string, bits int) (offset int, label string, err error) {
	offset, label, err = asm.valueOrLabel(word)
	if err != nil || len(label) != 0 {
		return
	}

	err = signedIn(offset, bits, ErrOffsetRange)
	return
}

// registers decodes a list of register operands.
func registers(words ...string) (regs []int, err error) {
	for _, word := range words {
		var reg int
		reg, err = registerOf(word)
		if err != nil {
			return
		}
		regs = append(regs, reg)
	}
	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var codes []Code
	var label string
	var bits int

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words
	mnemonic := strings.ToUpper(words[0])
	args := words[1:]

	switch mnemonic {
	case ".ORIG":
		err = argCount(args, 1)
		if err != nil {
			return
		}
		if asm.hasOrigin {
			err = ErrOriginDuplicate
			return
		}
		var value int
		value, err = asm.valueOf(args[0])
		if err != nil {
			return
		}
		if value < 0 {
			err = ErrValueRange
			return
		}
		asm.origin = uint16(value)
		asm.hasOrigin = true
		return
	case ".END":
		err = argCount(args, 0)
		asm.ended = true
		return
	}

	if !asm.hasOrigin {
		err = ErrOriginMissing
		return
	}

	defer func() {
		if err != nil || len(codes) == 0 {
			return
		}
		if int(asm.origin)+asm.size()+len(codes) > MEMORY_SIZE {
			err = ErrMemoryOverflow
			return
		}
		opcode := Opcode{
			LineNo:    lineno,
			Address:   asm.currentAddress(),
			Words:     initial_words,
			Codes:     codes,
			LinkLabel: label,
			LinkBits:  bits,
		}
		asm.Opcode = append(asm.Opcode, opcode)
	}()

	if nzp, ok := branchOf(mnemonic); ok {
		err = argCount(args, 1)
		if err != nil {
			return
		}
		var offset int
		offset, label, err = asm.pcOffset(args[0], 9)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeBr(nzp, offset))
		bits = 9
		return
	}

	if vect, ok := _trapAliases[mnemonic]; ok {
		err = argCount(args, 0)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeTrap(vect))
		return
	}

	switch mnemonic {
	case ".FILL":
		err = argCount(args, 1)
		if err != nil {
			return
		}
		var value int
		value, label, err = asm.valueOrLabel(args[0])
		if err != nil {
			return
		}
		if len(label) != 0 {
			bits = 16
		}
		codes = append(codes, Code(uint16(value)))
	case ".BLKW":
		if len(args) < 1 {
			err = ErrOpcodeValueMissing
			return
		}
		if len(args) > 2 {
			err = ErrOpcodeExtraArgs
			return
		}
		var count, fill int
		count, err = asm.valueOf(args[0])
		if err != nil {
			return
		}
		if count < 1 {
			err = ErrValueRange
			return
		}
		if len(args) == 2 {
			fill, err = asm.valueOf(args[1])
			if err != nil {
				return
			}
		}
		codes = slices.Repeat([]Code{Code(uint16(fill))}, count)
	case ".STRINGZ":
		err = argCount(args, 1)
		if err != nil {
			return
		}
		if !strings.HasPrefix(args[0], "\"") {
			err = ErrStringSyntax
			return
		}
		str, uerr := strconv.Unquote(args[0])
		if uerr != nil {
			err = ErrStringSyntax
			return
		}
		for _, c := range []byte(str) {
			codes = append(codes, Code(c))
		}
		codes = append(codes, 0)
	case "ADD", "AND":
		err = argCount(args, 3)
		if err != nil {
			return
		}
		op := _mnemonics[mnemonic]
		var regs []int
		regs, err = registers(args[0], args[1])
		if err != nil {
			return
		}
		sr2, rerr := registerOf(args[2])
		if rerr == nil {
			codes = append(codes, MakeCodeReg(op, regs[0], regs[1], sr2))
			return
		}
		var imm5 int
		imm5, err = asm.valueOf(args[2])
		if err != nil {
			return
		}
		err = signedIn(imm5, 5, ErrImmediateRange)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeImm(op, regs[0], regs[1], imm5))
	case "NOT":
		err = argCount(args, 2)
		if err != nil {
			return
		}
		var regs []int
		regs, err = registers(args...)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeNot(regs[0], regs[1]))
	case "JMP", "JSRR":
		err = argCount(args, 1)
		if err != nil {
			return
		}
		var base int
		base, err = registerOf(args[0])
		if err != nil {
			return
		}
		if mnemonic == "JMP" {
			codes = append(codes, MakeCodeJmp(base))
		} else {
			codes = append(codes, MakeCodeJsrr(base))
		}
	case "RET":
		err = argCount(args, 0)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeJmp(R_R7))
	case "JSR":
		err = argCount(args, 1)
		if err != nil {
			return
		}
		var offset int
		offset, label, err = asm.pcOffset(args[0], 11)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeJsr(offset))
		bits = 11
	case "LD", "LDI", "LEA", "ST", "STI":
		err = argCount(args, 2)
		if err != nil {
			return
		}
		var reg, offset int
		reg, err = registerOf(args[0])
		if err != nil {
			return
		}
		offset, label, err = asm.pcOffset(args[1], 9)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodePcRel(_mnemonics[mnemonic], reg, offset))
		bits = 9
	case "LDR", "STR":
		err = argCount(args, 3)
		if err != nil {
			return
		}
		var regs []int
		regs, err = registers(args[0], args[1])
		if err != nil {
			return
		}
		var offset int
		offset, err = asm.valueOf(args[2])
		if err != nil {
			return
		}
		err = signedIn(offset, 6, ErrOffsetRange)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeBase(_mnemonics[mnemonic], regs[0], regs[1], offset))
	case "TRAP":
		err = argCount(args, 1)
		if err != nil {
			return
		}
		var vect int
		vect, err = asm.valueOf(args[0])
		if err != nil {
			return
		}
		if vect < 0 || vect > 0xff {
			err = ErrValueRange
			return
		}
		codes = append(codes, MakeCodeTrap(CodeTrap(vect)))
	case "RTI":
		err = argCount(args, 0)
		if err != nil {
			return
		}
		codes = append(codes, Code(uint16(OP_RTI)<<12))
	default:
		err = ErrOpcodeInvalid
		return
	}

	return
}
