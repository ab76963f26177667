package lang

import "tinygo.org/x/ledstrip/colorspace"

// Opcode identifies the operation a Token performs.
type Opcode uint8

const (
	OpColor Opcode = iota
	OpTransparent
	OpSleep
	OpBrightness
	OpIncrement
	OpDecrement
	OpPush
	OpPop
	OpMark
	OpJumpNZero
	OpForever
)

// Token is a single instruction in a compiled pattern. It is a tagged
// union modeled as a flat, POD struct rather than an interface hierarchy:
// only the fields relevant to Op are meaningful.
type Token struct {
	Op Opcode

	Color colorspace.RGB12 // OpColor

	Duration  uint16 // OpSleep: ticks to hold
	Remaining uint16 // OpSleep: mutable countdown, zero until first visited

	Delta float32 // OpBrightness: clamped to [-1,1] on application

	Immediate int16 // OpPush

	Target uint16 // OpJumpNZero: index of the matching OpMark
}

// forever is the process-wide singleton "just FOREVER" token sequence. A
// finite pattern that collapses permanently onto FOREVER may have its
// tokens slice replaced by this shared, read-only sequence instead of
// keeping its own one-element allocation. Patterns referencing it must
// never mutate or free it; IsForeverSingleton provides the identity check.
// Nothing in this module currently swaps a pattern's tokens for it.
var forever = []Token{{Op: OpForever}}

// ForeverSingleton returns the shared single-FOREVER-token sequence.
func ForeverSingleton() []Token { return forever }

// IsForeverSingleton reports whether tokens is exactly the shared
// singleton (identity check, not a value comparison).
func IsForeverSingleton(tokens []Token) bool {
	return len(tokens) == len(forever) && &tokens[0] == &forever[0]
}
