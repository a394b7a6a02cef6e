// Package lex implements the lexer primitives shared by every
// instruction parser: whitespace/comment skipping, raw word reads,
// quoted strings (single/double/triple, optional raw "r" prefix),
// parenthesized tuples, and number literals. Every token it returns
// carries a location.Location so parsers never have to re-derive
// source coordinates.
//
// The lexer is deliberately hand-written rather than table-driven: the
// quoting rules below are too context-sensitive (triple-quote
// boundary detection, raw-prefix disambiguation, exact
// "unexpected data" spans) for a flat regex rule list.
package lex

import (
	"fmt"
	"strings"

	"github.com/clibate/clibate/internal/location"
)

// Kind identifies what a Token holds.
type Kind int

const (
	Word Kind = iota
	Quoted
	LParen
	RParen
	Comma
	EOF
)

// Token is one lexical unit: a raw word, a quoted string, or one of
// the structural punctuation marks used by tuples.
type Token struct {
	Kind Kind
	// Text is the decoded value: for Quoted, the string with escapes
	// resolved (or left verbatim for raw strings); for Word, the raw
	// characters read.
	Text string
	// WasQuoted records whether Text came from a quoted literal, which
	// several instructions use to decide whether the tail must match
	// strictly (spec §3 invariant 3).
	WasQuoted bool
	Loc       location.Location
}

// Lexer scans one logical source unit: an ordered list of physical
// lines belonging to a single file (or include fragment). Multi-line
// constructs (triple-quoted strings, REPLACE's "/" continuations) read
// across line boundaries by advancing the line cursor.
type Lexer struct {
	file     string
	lines    []string
	lineIdx  int // 0-based
	col      int // 1-based, in runes
	lineRune [][]rune
}

// New builds a Lexer over lines (already split on "\n", without the
// trailing newline) belonging to file.
func New(file string, lines []string) *Lexer {
	rs := make([][]rune, len(lines))
	for i, l := range lines {
		rs[i] = []rune(l)
	}
	return &Lexer{file: file, lines: lines, lineRune: rs, lineIdx: 0, col: 1}
}

// Loc returns the lexer's current position.
func (lx *Lexer) Loc() location.Location {
	return location.Location{File: lx.file, Line: lx.lineIdx + 1, Col: lx.col}
}

// AtEOF reports whether the cursor has run past the last line.
func (lx *Lexer) AtEOF() bool {
	return lx.lineIdx >= len(lx.lineRune)
}

// LineNumber returns the 1-based number of the line the cursor sits on.
func (lx *Lexer) LineNumber() int {
	return lx.lineIdx + 1
}

// CurrentLineText returns the full text of the line the cursor is on,
// and whether such a line exists.
func (lx *Lexer) CurrentLineText() (string, bool) {
	if lx.AtEOF() {
		return "", false
	}
	return lx.lines[lx.lineIdx], true
}

func (lx *Lexer) curRunes() []rune {
	if lx.AtEOF() {
		return nil
	}
	return lx.lineRune[lx.lineIdx]
}

func (lx *Lexer) peekRune() (rune, bool) {
	rs := lx.curRunes()
	idx := lx.col - 1
	if idx < 0 || idx >= len(rs) {
		return 0, false
	}
	return rs[idx], true
}

// NextLine advances the cursor to the start of the following line.
// Returns false if no further line exists.
func (lx *Lexer) NextLine() bool {
	lx.lineIdx++
	lx.col = 1
	return !lx.AtEOF()
}

// AtLineEnd reports whether the cursor has consumed everything
// meaningful on the current line (after skipping trailing whitespace
// and a trailing "#" comment).
func (lx *Lexer) AtLineEnd() bool {
	rs := lx.curRunes()
	if rs == nil {
		return true
	}
	for i := lx.col - 1; i < len(rs); i++ {
		if rs[i] == '#' {
			return true
		}
		if rs[i] != ' ' && rs[i] != '\t' {
			return false
		}
	}
	return true
}

// SkipSpacesAndComments advances past runs of spaces/tabs and, if a
// bare (unquoted) "#" is found, treats the remainder of the line as a
// comment and skips to end of line. It never crosses a line boundary.
func (lx *Lexer) SkipSpacesAndComments() {
	rs := lx.curRunes()
	if rs == nil {
		return
	}
	for {
		idx := lx.col - 1
		if idx >= len(rs) {
			return
		}
		switch rs[idx] {
		case ' ', '\t':
			lx.col++
		case '#':
			lx.col = len(rs) + 1 // consume to end of line
			return
		default:
			return
		}
	}
}

// Rest returns the unread remainder of the current line (not
// including a skipped comment tail), without consuming it.
func (lx *Lexer) Rest() string {
	rs := lx.curRunes()
	idx := lx.col - 1
	if rs == nil || idx >= len(rs) || idx < 0 {
		return ""
	}
	return string(rs[idx:])
}

var wordStop = map[rune]bool{
	'(': true, ')': true, ',': true, '#': true,
}

// ReadRawWord reads a non-whitespace token delimited by the next
// significant whitespace, comment mark, or structural symbol
// ("(", ")", ","). Returns ok=false if nothing was available (the
// cursor sits on whitespace, a stop symbol, or end of line).
func (lx *Lexer) ReadRawWord() (Token, bool) {
	lx.SkipSpacesAndComments()
	start := lx.Loc()
	rs := lx.curRunes()
	idx := lx.col - 1
	if rs == nil || idx >= len(rs) {
		return Token{}, false
	}
	if rs[idx] == ' ' || rs[idx] == '\t' || wordStop[rs[idx]] {
		return Token{}, false
	}
	end := idx
	for end < len(rs) {
		r := rs[end]
		if r == ' ' || r == '\t' || wordStop[r] {
			break
		}
		end++
	}
	text := string(rs[idx:end])
	lx.col += end - idx
	return Token{Kind: Word, Text: text, Loc: start}, true
}

// PeekRune reports the next significant rune on the line (after
// skipping spaces, not comments, so callers can distinguish a real
// "#" token boundary from a comment) without consuming it.
func (lx *Lexer) PeekRune() (rune, bool) {
	rs := lx.curRunes()
	idx := lx.col - 1
	for idx < len(rs) && (rs[idx] == ' ' || rs[idx] == '\t') {
		idx++
	}
	if idx >= len(rs) {
		return 0, false
	}
	return rs[idx], true
}

// PeekRuneImmediate reports the very next rune at the cursor without
// first skipping whitespace — used where a mark must be fused
// directly onto a preceding symbol ("+*", "~**") to count, as opposed
// to appearing anywhere later on the line.
func (lx *Lexer) PeekRuneImmediate() (rune, bool) {
	return lx.peekRune()
}

// Consume advances past n runes on the current line (used after a
// manual PeekRune check for a single-character structural symbol).
func (lx *Lexer) Consume(n int) {
	lx.SkipSpacesAndComments()
	lx.col += n
}

// ConsumeIfRune consumes the next significant rune if it equals r,
// reporting whether it matched.
func (lx *Lexer) ConsumeIfRune(r rune) bool {
	lx.SkipSpacesAndComments()
	got, ok := lx.peekRune()
	if !ok || got != r {
		return false
	}
	lx.col++
	return true
}

// ReadQuotedString reads a quoted literal starting at the cursor:
// '…', "…", '''…''', """…""", with an optional leading "r" marking a
// raw (no-escape) string. Triple-quoted strings may span multiple
// physical lines; the newline between them is preserved in Text as
// "\n". Returns ok=false if the cursor isn't positioned on a quote
// (optionally preceded by "r").
func (lx *Lexer) ReadQuotedString() (Token, bool, error) {
	lx.SkipSpacesAndComments()
	start := lx.Loc()
	rs := lx.curRunes()
	idx := lx.col - 1

	raw := false
	quoteIdx := idx
	if idx < len(rs) && rs[idx] == 'r' && idx+1 < len(rs) && (rs[idx+1] == '\'' || rs[idx+1] == '"') {
		raw = true
		quoteIdx = idx + 1
	}
	if quoteIdx >= len(rs) || (rs[quoteIdx] != '\'' && rs[quoteIdx] != '"') {
		return Token{}, false, nil
	}
	quote := rs[quoteIdx]

	triple := quoteIdx+2 < len(rs) && rs[quoteIdx+1] == quote && rs[quoteIdx+2] == quote

	advance := quoteIdx - idx + 1
	if triple {
		advance += 2
	}
	lx.col += advance

	var body strings.Builder
	for {
		rs = lx.curRunes()
		cidx := lx.col - 1
		if rs == nil {
			return Token{}, false, fmt.Errorf("unterminated string starting at %s", start.String())
		}
		if cidx >= len(rs) {
			if !triple {
				return Token{}, false, fmt.Errorf("unterminated string starting at %s", start.String())
			}
			body.WriteRune('\n')
			if !lx.NextLine() {
				return Token{}, false, fmt.Errorf("unterminated triple-quoted string starting at %s", start.String())
			}
			continue
		}

		if rs[cidx] == quote {
			if triple {
				if cidx+2 < len(rs) && rs[cidx+1] == quote && rs[cidx+2] == quote {
					lx.col += 3
					return Token{Kind: Quoted, Text: body.String(), WasQuoted: true, Loc: start}, true, nil
				}
				if cidx+2 == len(rs) && rs[cidx+1] == quote {
					// handled by NextLine loop above; fallthrough writes the quote char
				}
			} else {
				lx.col++
				return Token{Kind: Quoted, Text: body.String(), WasQuoted: true, Loc: start}, true, nil
			}
		}

		if !raw && rs[cidx] == '\\' && cidx+1 < len(rs) {
			esc := rs[cidx+1]
			switch esc {
			case 'n':
				body.WriteRune('\n')
			case 't':
				body.WriteRune('\t')
			case '\\':
				body.WriteRune('\\')
			case '\'':
				body.WriteRune('\'')
			case '"':
				body.WriteRune('"')
			default:
				body.WriteRune('\\')
				body.WriteRune(esc)
			}
			lx.col += 2
			continue
		}

		body.WriteRune(rs[cidx])
		lx.col++
	}
}

// ValueReader reads one tuple element: either a raw word or a quoted
// string. Callers pass the specific reader appropriate to the tuple's
// grammar (prefix patterns accept both; some accept only one).
type ValueReader func(lx *Lexer) (string, location.Location, bool, error)

// DefaultValueReader accepts either a quoted string or a raw word.
// Inside a tuple "#" is an ordinary value character, not a comment mark.
func DefaultValueReader(lx *Lexer) (string, location.Location, bool, error) {
	for r, ok := lx.peekRune(); ok && (r == ' ' || r == '\t'); r, ok = lx.peekRune() {
		lx.col++
	}
	loc := lx.Loc()
	if r, _ := lx.peekRune(); r != '#' {
		if tok, ok, err := lx.ReadQuotedString(); err != nil || ok {
			return tok.Text, tok.Loc, ok, err
		}
	}
	rs, start := lx.curRunes(), lx.col-1
	end := start
	for end < len(rs) && rs[end] != ' ' && rs[end] != '\t' && (rs[end] == '#' || !wordStop[rs[end]]) {
		end++
	}
	if end > start {
		lx.col += end - start
		return string(rs[start:end]), loc, false, nil
	}
	return "", loc, false, fmt.Errorf("expected a value at %s", loc.String())
}

// ReadTuple reads a parenthesized, comma-separated value list:
// "(x)", "(x, y)", "()". Each element is produced by read. The
// returned slice preserves source order; arity validation is the
// caller's responsibility (different instructions allow different
// arities).
func (lx *Lexer) ReadTuple(read ValueReader) ([]TupleValue, location.Location, error) {
	open := lx.Loc()
	if !lx.ConsumeIfRune('(') {
		return nil, open, fmt.Errorf("expected '(' at %s", open.String())
	}

	var values []TupleValue
	if r, ok := lx.PeekRune(); ok && r == ')' {
		lx.Consume(1)
		return values, open, nil
	}

	for {
		text, loc, quoted, err := read(lx)
		if err != nil {
			return nil, open, err
		}
		values = append(values, TupleValue{Text: text, Loc: loc, WasQuoted: quoted})

		lx.SkipSpacesAndComments()
		r, ok := lx.peekAfterSkip()
		if !ok {
			return nil, open, fmt.Errorf("unterminated tuple starting at %s", open.String())
		}
		if r == ',' {
			lx.col++
			continue
		}
		if r == ')' {
			lx.col++
			return values, open, nil
		}
		return nil, open, fmt.Errorf("expected ',' or ')' at %s", lx.Loc().String())
	}
}

func (lx *Lexer) peekAfterSkip() (rune, bool) {
	rs := lx.curRunes()
	idx := lx.col - 1
	if rs == nil || idx >= len(rs) {
		return 0, false
	}
	return rs[idx], true
}

// TupleValue is one element read out of a parenthesized tuple.
type TupleValue struct {
	Text      string
	Loc       location.Location
	WasQuoted bool
}

// Mark captures the cursor position so a caller can speculatively
// read a token and back out if it wasn't what they expected (used for
// the optional "ALL" keyword, which looks like an ordinary raw word
// until proven otherwise).
type Mark struct {
	lineIdx int
	col     int
}

func (lx *Lexer) Mark() Mark {
	return Mark{lineIdx: lx.lineIdx, col: lx.col}
}

func (lx *Lexer) Reset(m Mark) {
	lx.lineIdx = m.lineIdx
	lx.col = m.col
}

// ReadNumber reads a leading run of ASCII digits as an integer.
func (lx *Lexer) ReadNumber() (int, location.Location, bool) {
	lx.SkipSpacesAndComments()
	start := lx.Loc()
	rs := lx.curRunes()
	idx := lx.col - 1
	if rs == nil || idx >= len(rs) || rs[idx] < '0' || rs[idx] > '9' {
		return 0, start, false
	}
	end := idx
	n := 0
	for end < len(rs) && rs[end] >= '0' && rs[end] <= '9' {
		n = n*10 + int(rs[end]-'0')
		end++
	}
	lx.col += end - idx
	return n, start, true
}
