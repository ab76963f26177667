// Package lang implements the pattern language parser and validator: the
// lexical rules, the bracket-balance check, the length pre-pass, tokenization
// and back-jump target resolution described by the driver's pattern grammar.
package lang

import (
	"errors"
	"fmt"
	"strconv"

	"tinygo.org/x/ledstrip/colorspace"
)

var (
	// ErrUnbalancedJumps is returned when '[' and ']' do not nest cleanly.
	ErrUnbalancedJumps = errors.New("lang: unbalanced jumps")
	// ErrInvalidColorFormat is returned when a '#' is not followed by
	// exactly six hex digits.
	ErrInvalidColorFormat = errors.New("lang: invalid color format")
	// ErrUnknownCharacter is returned for any byte that isn't part of the
	// pattern grammar.
	ErrUnknownCharacter = errors.New("lang: unknown character")
	// ErrZeroLength is returned when a pattern compiles to zero tokens.
	ErrZeroLength = errors.New("lang: zero-length pattern")
	// ErrNumberOverflow is returned when a numeric literal (sleep duration
	// or push immediate) does not fit in its payload's integer width. The
	// spec leaves this undefined in the original firmware ("silently
	// truncated"); a strict implementation rejects it at parse time, which
	// is what this parser does.
	ErrNumberOverflow = errors.New("lang: numeric literal out of range")
)

// forever reuse: terminator character for the pattern language.
const foreverByte = ';'

// Parse validates and compiles a pattern source string into a flat token
// array. Three read-only passes run before anything is allocated: a
// bracket-balance scan, a color-format scan, and a length pre-pass; a
// fourth pass then allocates the exact-size token array and fills it,
// resolving every JUMP_NZERO's target to the index of its matching MARK.
func Parse(source string) ([]Token, error) {
	src := effectiveSource(source)

	if err := validateBalance(src); err != nil {
		return nil, err
	}
	if err := validateColorFormat(src); err != nil {
		return nil, err
	}

	count, err := walk(src, nil)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrZeroLength
	}

	tokens := make([]Token, 0, count)
	if _, err := walk(src, &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

// effectiveSource truncates source to end just after the first FOREVER
// terminator, matching the tokenizer's "stop tokenizing — anything after
// is ignored" rule; every validation pass operates on the same truncated
// view so a malformed tail after ';' never surfaces an error.
func effectiveSource(source string) string {
	for i := 0; i < len(source); i++ {
		if source[i] == foreverByte {
			return source[:i+1]
		}
	}
	return source
}

// validateBalance is pass 1: a single scan counting '[' and ']'. A
// negative running count, or a nonzero final count, is an error.
func validateBalance(src string) error {
	depth := 0
	for i := 0; i < len(src); i++ {
		switch src[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth < 0 {
				return ErrUnbalancedJumps
			}
		case '#':
			i += 6 // skip the color body so its hex digits can't be misread
		}
	}
	if depth != 0 {
		return ErrUnbalancedJumps
	}
	return nil
}

// validateColorFormat is pass 2: for each '#', the next six characters
// must be hex digits.
func validateColorFormat(src string) error {
	for i := 0; i < len(src); i++ {
		if src[i] != '#' {
			continue
		}
		if i+6 >= len(src) {
			return ErrInvalidColorFormat
		}
		for j := i + 1; j <= i+6; j++ {
			if !isHexDigit(src[j]) {
				return ErrInvalidColorFormat
			}
		}
		i += 6
	}
	return nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// walk is the shared engine behind both the length pre-pass and the final
// tokenization pass. When out is nil it only counts tokens (and still
// validates every numeric literal and unrecognized byte, so parse errors
// surface before any allocation). When out is non-nil, tokens are appended
// to it, and JUMP_NZERO targets are resolved against a stack of pending
// MARK indices.
func walk(src string, out *[]Token) (int, error) {
	count := 0
	var markStack []int

	emit := func(tok Token) {
		if out != nil {
			*out = append(*out, tok)
		}
		count++
	}

	for i := 0; i < len(src); i++ {
		switch c := src[i]; {
		case c == ' ':
			// ignored

		case c == '#':
			rgb8, err := colorspace.ParseHex(src[i : i+7])
			if err != nil {
				return 0, fmt.Errorf("%w: %q", ErrInvalidColorFormat, src[i:i+7])
			}
			emit(Token{Op: OpColor, Color: rgb8.To12()})
			i += 6

		case c == '\\' && i+1 < len(src) && src[i+1] == 'b':
			delta, n, err := scanFloat(src[i+2:])
			if err != nil {
				return 0, err
			}
			emit(Token{Op: OpBrightness, Delta: delta})
			i += 1 + n

		case c == '|':
			v, n, err := scanUint(src[i+1:], 65535)
			if err != nil {
				return 0, fmt.Errorf("%w: sleep duration", err)
			}
			emit(Token{Op: OpSleep, Duration: uint16(v)})
			i += n

		case c == '<':
			v, n, err := scanUint(src[i+1:], 32767)
			if err != nil {
				return 0, fmt.Errorf("%w: push immediate", err)
			}
			emit(Token{Op: OpPush, Immediate: int16(v)})
			i += n

		case c == '>':
			emit(Token{Op: OpPop})

		case c == '[':
			markStack = append(markStack, count)
			emit(Token{Op: OpMark})

		case c == ']':
			var target int
			if len(markStack) > 0 {
				target = markStack[len(markStack)-1]
				markStack = markStack[:len(markStack)-1]
			}
			emit(Token{Op: OpJumpNZero, Target: uint16(target)})

		case c == '+':
			emit(Token{Op: OpIncrement})

		case c == '-':
			emit(Token{Op: OpDecrement})

		case c == '@':
			emit(Token{Op: OpTransparent})

		case c == foreverByte:
			emit(Token{Op: OpForever})
			return count, nil

		default:
			return 0, fmt.Errorf("%w: %q at offset %d", ErrUnknownCharacter, c, i)
		}
	}
	return count, nil
}

// scanUint scans an unsigned decimal literal, returning its value, the
// number of bytes consumed, and an error if it has no digits or exceeds
// max.
func scanUint(s string, max uint64) (uint64, int, error) {
	j := 0
	for j < len(s) && isDigit(s[j]) {
		j++
	}
	if j == 0 {
		return 0, 0, ErrUnknownCharacter
	}
	v, err := strconv.ParseUint(s[:j], 10, 32)
	if err != nil || v > max {
		return 0, 0, ErrNumberOverflow
	}
	return v, j, nil
}

// scanFloat scans an optionally-signed decimal literal (DIGIT+ ('.'
// DIGIT+)?), returning its value, bytes consumed, and an error if
// malformed.
func scanFloat(s string) (float32, int, error) {
	j := 0
	if j < len(s) && s[j] == '-' {
		j++
	}
	digitsStart := j
	for j < len(s) && isDigit(s[j]) {
		j++
	}
	if j == digitsStart {
		return 0, 0, ErrUnknownCharacter
	}
	if j < len(s) && s[j] == '.' {
		j++
		fracStart := j
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		if j == fracStart {
			return 0, 0, ErrUnknownCharacter
		}
	}
	v, err := strconv.ParseFloat(s[:j], 32)
	if err != nil {
		return 0, 0, ErrUnknownCharacter
	}
	return float32(v), j, nil
}
