// Package diag defines the two error families the edit engine and its
// collaborators raise — ParseError (malformed instruction text) and
// RunError (a well-formed instruction that failed to apply) — and the
// bit-stable renderer that turns either into the diagnostic text
// format (spec §6).
package diag

import (
	"fmt"
	"strings"

	"github.com/clibate/clibate/internal/location"
	"github.com/goliatone/go-errors"
)

// Kind labels the class of diagnostic, printed as the first line of
// the rendered message (spec §4.6, §6).
type Kind string

const (
	KindParse Kind = "Clibate parsing error"
	KindRun   Kind = "Error during clibate tests run"
)

// ParseError is raised while decoding instruction text into an
// edit.Op: bad tuple arity, an uncompilable regex, an incoherent star
// mark, an unterminated string, and so on.
type ParseError struct {
	Loc     location.Location
	Chain   location.Chain
	Message string
	cause   error
}

func (e *ParseError) Error() string {
	return Render(KindParse, e.Message, e.Loc, e.Chain)
}

func (e *ParseError) Unwrap() error { return e.cause }

// NewParseError builds a ParseError backed by a go-errors bad-input
// error so downstream consumers (e.g. an HTTP/CLI boundary) can still
// use go-errors' category machinery on it.
func NewParseError(loc location.Location, chain location.Chain, format string, args ...any) *ParseError {
	msg := fmt.Sprintf(format, args...)
	cause := errors.New(msg, errors.CategoryBadInput).
		WithTextCode("EDIT_PARSE_ERROR").
		WithMetadata(map[string]any{
			"file": loc.File,
			"line": loc.Line,
			"col":  loc.Col,
		})
	return &ParseError{Loc: loc, Chain: chain, Message: msg, cause: cause}
}

// RunError is raised while applying an already-parsed Op: no line
// matched a required DIFF/REMOVE, a batch target file could not be
// read or written, and so on.
type RunError struct {
	Loc     location.Location
	Chain   location.Chain
	Message string
	cause   error
}

func (e *RunError) Error() string {
	return Render(KindRun, e.Message, e.Loc, e.Chain)
}

func (e *RunError) Unwrap() error { return e.cause }

// NewApplyNoMatch builds the specific RunError DIFF/REMOVE/INSERT/PREFIX/
// UNPREF raise when no line in the buffer matches (spec §4.5, §9): the
// message quotes only the match body text, with no instruction keyword.
func NewApplyNoMatch(loc location.Location, chain location.Chain, body string) *RunError {
	msg := fmt.Sprintf("Could not match line '%s'.", body)
	cause := errors.New(msg, errors.CategoryConflict).
		WithTextCode("EDIT_NO_MATCH").
		WithMetadata(map[string]any{
			"file": loc.File,
			"line": loc.Line,
			"col":  loc.Col,
			"body": body,
		})
	return &RunError{Loc: loc, Chain: chain, Message: msg, cause: cause}
}

// NewRunError builds a general RunError (I/O failure reading or
// writing the target file, a test with no command:, and similar).
func NewRunError(loc location.Location, chain location.Chain, format string, args ...any) *RunError {
	msg := fmt.Sprintf(format, args...)
	cause := errors.New(msg, errors.CategoryInternal).
		WithTextCode("EDIT_RUN_ERROR").
		WithMetadata(map[string]any{
			"file": loc.File,
			"line": loc.Line,
			"col":  loc.Col,
		})
	return &RunError{Loc: loc, Chain: chain, Message: msg, cause: cause}
}

// Render produces the bit-stable diagnostic text (spec §4.6, §6): the
// error-class line, the message with its primary "<file:line:col>"
// span, the source file's path, and one "included from
// <file>:<line>:<col>" line per include frame, outermost first.
func Render(kind Kind, message string, loc location.Location, chain location.Chain) string {
	var b strings.Builder
	b.WriteString(string(kind))
	b.WriteString(":\n")
	b.WriteString(message)
	b.WriteString(" <")
	b.WriteString(loc.String())
	b.WriteString(">")
	if loc.File != "" {
		b.WriteString("\n")
		b.WriteString(loc.File)
	}
	for _, line := range chain.Lines() {
		b.WriteString("\n")
		b.WriteString(line)
	}
	return b.String()
}
