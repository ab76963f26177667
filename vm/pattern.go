// Package vm implements the per-pattern stack machine: one small program
// counter, operand stack and color state per pattern, advanced one tick at
// a time by Step.
package vm

import (
	"tinygo.org/x/ledstrip/colorspace"
	"tinygo.org/x/ledstrip/lang"
)

// stackDepth is the fixed operand-stack capacity of every pattern.
const stackDepth = 10

// Pattern is one running instance of a compiled pattern program.
type Pattern struct {
	ID     uint16
	Tokens []lang.Token
	PC     uint16

	Stack [stackDepth]int16
	SP    uint8

	Brightness   float32
	BaseColor    colorspace.RGB12
	CurrentColor colorspace.RGB12
	Visible      bool
}

// New returns a freshly initialized pattern instance over tokens. Visible
// defaults to true: a pattern is opaque until it executes a TRANSPARENT
// token.
func New(id uint16, tokens []lang.Token) *Pattern {
	return &Pattern{
		ID:         id,
		Tokens:     tokens,
		Brightness: 1.0,
		Visible:    true,
	}
}

// Reset reinitializes p's VM state in place for a new token program,
// keeping its ID. Used by replace, which must not change the pattern's
// identity.
func (p *Pattern) Reset(tokens []lang.Token) {
	id := p.ID
	*p = Pattern{ID: id, Tokens: tokens, Brightness: 1.0, Visible: true}
}
