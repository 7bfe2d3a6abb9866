// Package tracefile reads memory traces and writes simulation reports.
//
// A trace has one operation per line, in the format produced by Valgrind's
// lackey tool:
//
//	==12345== comment
//	I  0400d7d4,8
//	 L 04222cac,4
//	 S 04222cac,4
//	 M 0421c7f0,4
//
// Comment and instruction-fetch lines are skipped.
package tracefile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformedLine is wrapped by every LineError.
var ErrMalformedLine = errors.New("malformed trace line")

// A LineError reports a line that is neither skippable nor a memory operation.
type LineError struct {
	Line   int
	Text   string
	Reason string
}

func (e *LineError) Error() string {
	msg := fmt.Sprintf("line %d: %v %q", e.Line, ErrMalformedLine, e.Text)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}

	return msg
}

func (e *LineError) Unwrap() error {
	return ErrMalformedLine
}

// Op is the kind of a memory operation.
type Op byte

// Memory operations carried by a trace.
const (
	Load   Op = 'L'
	Store  Op = 'S'
	Modify Op = 'M'
)

func (o Op) String() string {
	return string(rune(o))
}

// An Instruction is one memory operation of a trace.
type Instruction struct {
	Op      Op
	Address uint64
	Size    uint32

	// Line is the 1-based line number in the trace.
	Line int

	addressText string
	sizeText    string
}

// NewInstruction creates an instruction that is printed with a lower-case hex
// address.
func NewInstruction(op Op, addr uint64, size uint32) Instruction {
	return Instruction{
		Op:          op,
		Address:     addr,
		Size:        size,
		addressText: strconv.FormatUint(addr, 16),
		sizeText:    strconv.FormatUint(uint64(size), 10),
	}
}

// Token returns the operation as it appeared in the trace, without the leading
// space.
func (i Instruction) Token() string {
	return fmt.Sprintf("%s %s,%s", i.Op, i.addressText, i.sizeText)
}

var (
	commentPattern     = regexp.MustCompile(`^==.*$`)
	instructionPattern = regexp.MustCompile(`^I .*$`)
	memoryPattern      = regexp.MustCompile(
		`^ ([LSM]) ((?:0[xX])?[[:xdigit:]]+),([[:digit:]]+)$`)
)

// A Reader reads instructions from a trace.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader creates a Reader that reads from r.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	return &Reader{scanner: scanner}
}

// Next returns the next memory operation. It returns io.EOF after the last
// one and a *LineError for a line it cannot understand.
func (r *Reader) Next() (Instruction, error) {
	for r.scanner.Scan() {
		r.line++
		text := strings.TrimSuffix(r.scanner.Text(), "\r")

		if commentPattern.MatchString(text) ||
			instructionPattern.MatchString(text) {
			continue
		}

		return r.parse(text)
	}

	if err := r.scanner.Err(); err != nil {
		return Instruction{}, fmt.Errorf("reading trace line %d: %w",
			r.line+1, err)
	}

	return Instruction{}, io.EOF
}

func (r *Reader) parse(text string) (Instruction, error) {
	match := memoryPattern.FindStringSubmatch(text)
	if match == nil {
		return Instruction{}, &LineError{Line: r.line, Text: text}
	}

	hex := strings.TrimPrefix(strings.TrimPrefix(match[2], "0x"), "0X")

	addr, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return Instruction{}, &LineError{
			Line:   r.line,
			Text:   text,
			Reason: "address does not fit in 64 bits",
		}
	}

	size, err := strconv.ParseUint(match[3], 10, 32)
	if err != nil {
		return Instruction{}, &LineError{
			Line:   r.line,
			Text:   text,
			Reason: "size does not fit in 32 bits",
		}
	}

	return Instruction{
		Op:          Op(match[1][0]),
		Address:     addr,
		Size:        uint32(size),
		Line:        r.line,
		addressText: match[2],
		sizeText:    match[3],
	}, nil
}
