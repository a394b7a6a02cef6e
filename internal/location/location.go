// Package location carries source coordinates through the lexer, the
// instruction parsers, and every diagnostic the engine produces.
package location

import "fmt"

// Location is a single point in a source file: a 1-based line and
// column within a named file.
type Location struct {
	File string
	Line int
	Col  int
}

// String renders the canonical "<file:line:col>" span used in
// diagnostics.
func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Col)
}

// IsZero reports whether l was never set.
func (l Location) IsZero() bool {
	return l.File == "" && l.Line == 0 && l.Col == 0
}

// IncludeFrame is one link in an include chain: the location of an
// `include:` directive that led to the file currently being parsed.
type IncludeFrame struct {
	Parent Location
}

// Chain is an ordered list of include frames, outermost first. It is
// carried by value on every error so that parallel test runners never
// share or contaminate each other's diagnostic state (spec DESIGN
// NOTES: "errors must carry their chain by value, not by global
// stack").
type Chain []IncludeFrame

// Push returns a new chain with parent appended, leaving the receiver
// untouched.
func (c Chain) Push(parent Location) Chain {
	next := make(Chain, len(c)+1)
	copy(next, c)
	next[len(c)] = IncludeFrame{Parent: parent}
	return next
}

// Lines renders the "included from <file:line:col>" trailer lines
// used in the diagnostic format (spec §6).
func (c Chain) Lines() []string {
	lines := make([]string, 0, len(c))
	for _, frame := range c {
		lines = append(lines, fmt.Sprintf("included from %s", frame.Parent.String()))
	}
	return lines
}
