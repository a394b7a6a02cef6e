// Package specgrammar defines the typed AST for clibate test-spec
// documents — the outer "file:", "copy:", "include:", "test:",
// "command:", "success:", "failure:" section language that the edit
// engine's collaborator (internal/sandbox, internal/runner) consumes.
//
// The inner edit-instruction language (DIFF/INSERT/REMOVE/...) is
// deliberately not grammared here: it keeps its own hand-written
// scanner (internal/editlang) for exact column tracking and exact
// error strings. A section body that holds edit instructions, file
// contents, or expected output is captured as a raw, triple-backtick
// delimited block and handed to the relevant consumer unparsed.
package specgrammar

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/clibate/clibate/internal/diag"
	"github.com/clibate/clibate/internal/location"
)

var specLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "RawBlock", Pattern: "(?s)```.*?```"},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Punct", Pattern: `[{}:]`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
})

// Document is the root of a clibate test-spec file.
type Document struct {
	Pos      lexer.Position
	Sections []*Section `@@*`
}

// Section is a sum type: exactly one of file/copy/include/test.
type Section struct {
	Pos     lexer.Position
	File    *FileSection    `  @@`
	Copy    *CopySection    `| @@`
	Include *IncludeSection `| @@`
	Test    *TestSection    `| @@`
}

// FileSection: file: "name" ``` <contents> ```
type FileSection struct {
	Pos  lexer.Position
	Name string `"file" ":" @String`
	Body string `@RawBlock`
}

// UnquotedName returns the file section's name with its surrounding
// quotes and escapes resolved.
func (f *FileSection) UnquotedName() string { return unquote(f.Name) }

// Contents returns the file section's body stripped of its backtick
// fences.
func (f *FileSection) Contents() string { return StripRawBlock(f.Body) }

// CopySection: copy: "glob/pattern/**"
type CopySection struct {
	Pos     lexer.Position
	Pattern string `"copy" ":" @String`
}

// UnquotedPattern returns the copy section's glob pattern unquoted.
func (c *CopySection) UnquotedPattern() string { return unquote(c.Pattern) }

// IncludeSection: include: "other.clibate"
type IncludeSection struct {
	Pos  lexer.Position
	Path string `"include" ":" @String`
}

// UnquotedPath returns the include section's path unquoted.
func (i *IncludeSection) UnquotedPath() string { return unquote(i.Path) }

// UnquotedName returns the test section's name unquoted.
func (t *TestSection) UnquotedName() string { return unquote(t.Name) }

// TestSection: test: "name" { command: "..." edits "file": ``` ``` success: ``` ``` failure: ``` ``` }
// The body clauses may appear in any order and any number of times
// (every edits clause is kept; for command:, success: and failure: the
// first one wins — see the TestSection accessors), mirroring how
// the teacher's Action sum type is collected as a repeated slice.
type TestSection struct {
	Pos     lexer.Position
	Name    string    `"test" ":" @String "{"`
	Clauses []*Clause `@@* "}"`
}

// Clause is a sum type: exactly one of command/edits/success/failure.
type Clause struct {
	Pos     lexer.Position
	Command *CommandClause `  @@`
	Edits   *EditsClause   `| @@`
	Success *SuccessClause `| @@`
	Failure *FailureClause `| @@`
}

// CommandClause: command: "mytool --flag"
type CommandClause struct {
	Pos  lexer.Position
	Line string `"command" ":" @String`
}

// EditsClause: edits "target.txt": ``` <edit-instruction source> ```
// or edits persistent "target.txt": ``` ... ``` for a batch that
// mutates the baseline buffer rather than being rolled back after the
// test (spec §3 "Edit batch", §4.6 "Persistence").
type EditsClause struct {
	Pos        lexer.Position
	Persistent bool   `"edits" ( @"persistent" )?`
	File       string `@String ":"`
	Body       string `@RawBlock`
}

// SuccessClause: success: ``` <expected stdout> ```
type SuccessClause struct {
	Pos  lexer.Position
	Body string `"success" ":" @RawBlock`
}

// FailureClause: failure: ``` <expected stderr> ```
type FailureClause struct {
	Pos  lexer.Position
	Body string `"failure" ":" @RawBlock`
}

// Command returns the test's command: line, unquoted, or "" if absent.
func (t *TestSection) Command() string {
	for _, c := range t.Clauses {
		if c.Command != nil {
			return unquote(c.Command.Line)
		}
	}
	return ""
}

// EditBatches returns every edits clause the test declares, in
// document order. A test may patch more than one file between runs,
// each as its own batch (spec §3 "Edit batch").
func (t *TestSection) EditBatches() []*EditsClause {
	var batches []*EditsClause
	for _, c := range t.Clauses {
		if c.Edits != nil {
			batches = append(batches, c.Edits)
		}
	}
	return batches
}

// UnquotedFile returns the edits clause's target file name unquoted.
func (e *EditsClause) UnquotedFile() string { return unquote(e.File) }

// Source returns the edits clause's instruction text, stripped of its
// backtick fences.
func (e *EditsClause) Source() string { return StripRawBlock(e.Body) }

// Success returns the test's expected-stdout body and whether a
// success: clause was present at all.
func (t *TestSection) Success() (string, bool) {
	for _, c := range t.Clauses {
		if c.Success != nil {
			return StripRawBlock(c.Success.Body), true
		}
	}
	return "", false
}

// Failure returns the test's expected-stderr body and whether a
// failure: clause was present at all.
func (t *TestSection) Failure() (string, bool) {
	for _, c := range t.Clauses {
		if c.Failure != nil {
			return StripRawBlock(c.Failure.Body), true
		}
	}
	return "", false
}

func unquote(s string) string {
	if v, err := strconv.Unquote(s); err == nil {
		return v
	}
	return strings.Trim(s, `"`)
}

// NewParser builds a participle parser for clibate test-spec documents.
func NewParser() (*participle.Parser[Document], error) {
	return participle.Build[Document](
		participle.Lexer(specLexer),
		participle.UseLookahead(5),
		participle.Elide("Comment", "Whitespace"),
	)
}

// Parse builds a Document from a clibate test-spec file's source text,
// the way the teacher's own "stencil parse" subcommand drives
// grammar.NewParser().ParseString — but wraps a participle failure into
// the same diag.ParseError shape the inner edit-instruction parser
// raises, so a CLI boundary never has to special-case which layer
// failed.
func Parse(filename, source string) (*Document, error) {
	parser, err := NewParser()
	if err != nil {
		return nil, diag.NewParseError(location.Location{File: filename}, nil, "failed to build test-spec parser: %v", err)
	}

	doc, err := parser.ParseString(filename, source)
	if err != nil {
		loc := location.Location{File: filename}
		if perr, ok := err.(participle.Error); ok {
			pos := perr.Position()
			loc = location.Location{File: filename, Line: pos.Line, Col: pos.Column}
		}
		return nil, diag.NewParseError(loc, nil, "%s", err.Error())
	}
	return doc, nil
}

// StripRawBlock removes the surrounding "```" delimiters from a raw
// block capture and trims every leading and trailing newline (so the
// line breaks the triple-backtick convention usually carries are
// dropped), leaving the body text exactly as the author indented it.
func StripRawBlock(raw string) string {
	body := strings.TrimPrefix(raw, "```")
	body = strings.TrimSuffix(body, "```")
	body = strings.Trim(body, "\n")
	return body
}
