package vm

import (
	"errors"

	"tinygo.org/x/ledstrip/colorspace"
	"tinygo.org/x/ledstrip/lang"
)

var (
	// ErrStackOverflow is raised when a PUSH would exceed the pattern's
	// fixed 10-slot operand stack.
	ErrStackOverflow = errors.New("vm: stack overflow")
	// ErrStackUnderflow is raised when a POP is attempted on an empty
	// stack.
	ErrStackUnderflow = errors.New("vm: stack underflow")
	// ErrUnknownOpcode is raised if a token somehow carries an opcode
	// outside the compiled set; the parser never emits one, but Step
	// guards against it defensively rather than panicking mid-tick.
	ErrUnknownOpcode = errors.New("vm: unknown opcode")
)

// Step advances p by one tick: it executes tokens until the pattern either
// yields control (after a SLEEP that hasn't finished, a FOREVER, or a
// taken JUMP_NZERO) or terminates (the token array runs out, or a fatal
// stack condition occurs). Multiple non-yielding opcodes may execute
// within a single Step call.
//
// dirty reports whether any opcode this tick changed p's visible output
// (COLOR, TRANSPARENT or BRIGHTNESS). terminated reports whether the
// pattern is done and should be deleted by the caller; err is non-nil only
// for the fatal conditions (stack overflow/underflow, unknown opcode), which the caller
// must treat as a silent deletion, never a crash.
func Step(p *Pattern, wb colorspace.WhiteBalance, gamut colorspace.Gamut) (dirty, terminated bool, err error) {
	for {
		if int(p.PC) >= len(p.Tokens) {
			return dirty, true, nil
		}
		tok := &p.Tokens[p.PC]

		switch tok.Op {
		case lang.OpColor:
			c := gamut.Apply(wb.Apply(tok.Color))
			p.BaseColor = c
			p.CurrentColor = c
			p.Brightness = 1.0
			dirty = true
			p.PC++

		case lang.OpTransparent:
			p.Visible = !p.Visible
			dirty = true
			p.PC++

		case lang.OpSleep:
			if tok.Remaining == 0 {
				tok.Remaining = tok.Duration
			} else {
				tok.Remaining--
			}
			if tok.Remaining != 0 {
				return dirty, false, nil
			}
			p.PC++

		case lang.OpBrightness:
			p.Brightness = clampBrightness(p.Brightness + tok.Delta)
			p.CurrentColor = colorspace.ApplyBrightness(p.BaseColor, float64(p.Brightness))
			dirty = true
			p.PC++

		case lang.OpIncrement:
			p.Stack[p.SP]++
			p.PC++

		case lang.OpDecrement:
			p.Stack[p.SP]--
			p.PC++

		case lang.OpPush:
			if int(p.SP)+1 == stackDepth {
				return dirty, true, ErrStackOverflow
			}
			p.SP++
			p.Stack[p.SP] = tok.Immediate
			p.PC++

		case lang.OpPop:
			if p.SP == 0 {
				return dirty, true, ErrStackUnderflow
			}
			p.SP--
			p.PC++

		case lang.OpMark:
			p.PC++

		case lang.OpJumpNZero:
			if p.Stack[p.SP] != 0 {
				p.PC = tok.Target
				return dirty, false, nil
			}
			p.PC++

		case lang.OpForever:
			return dirty, false, nil

		default:
			return dirty, true, ErrUnknownOpcode
		}
	}
}

func clampBrightness(b float32) float32 {
	if b < 0 {
		return 0
	}
	if b > 1 {
		return 1
	}
	return b
}
