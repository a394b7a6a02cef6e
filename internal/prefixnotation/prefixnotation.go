// Package prefixnotation decodes the condensed/regex/literal mini
// language used inside a tuple to describe a prefix, an inserted
// extra, or a regex-mode pattern/substitution (spec §4.2).
package prefixnotation

import (
	"fmt"
	"regexp"
	"strings"
)

// Decoded is the result of decoding one notation string.
type Decoded struct {
	// Literal holds the expanded text for literal/condensed notations.
	// Empty (and unused) for regex-mode results.
	Literal string
	// Pattern holds the compiled regex for regex-mode match-side
	// notations.
	Pattern *regexp.Regexp
	// Substitution holds the Go-regexp-flavoured substitution template
	// ("$1" in place of the DSL's "\1") for regex-mode replace-side
	// notations.
	Substitution string
	IsRegex      bool
}

// DecodeLiteralOrCondensed decodes a prefix/extra notation that is not
// in regex mode (spec §4.2 rules 2-4).
//
// A quoted notation is always interpreted literally. A raw notation
// enters condensed mode when it contains at least one ASCII digit, or
// is exactly the single-character shortcut "t" (tab) or "s" (space);
// any other raw notation — including one that merely contains the
// letters t/s as part of ordinary literal text — is interpreted
// literally, unexpanded. This resolves spec §4.2's rule 3 trigger
// condition, which is otherwise ambiguous about when "t"/"s" count as
// control letters versus plain characters.
//
// A raw notation that is exactly one punctuation/symbol rune (e.g.
// "#") is a special case: it decodes with one trailing space appended,
// matching the comment-marker shorthand shown worked through in spec
// §8 S2 ("PREFIX (8, #)" decodes its extra to "# ", not bare "#").
func DecodeLiteralOrCondensed(notation string, wasQuoted bool) (string, error) {
	if wasQuoted {
		return notation, nil
	}
	if notation == "t" {
		return "\t", nil
	}
	if notation == "s" {
		return " ", nil
	}
	if isBareSymbol(notation) {
		// A single bare punctuation character (e.g. "#") is the
		// idiomatic "comment marker" shorthand; it implicitly carries
		// the same trailing separator space a trailing bare digit
		// would add explicitly (spec §4.2 rule 3, §8 S2).
		return notation + " ", nil
	}
	if !containsDigit(notation) {
		return notation, nil
	}
	return decodeCondensed(notation)
}

// isBareSymbol reports whether notation is exactly one rune of
// punctuation/symbol class (not a letter or digit) — the shorthand
// form used for comment-style prefixes like "#".
func isBareSymbol(notation string) bool {
	runes := []rune(notation)
	if len(runes) != 1 {
		return false
	}
	r := runes[0]
	isAlnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
	return !isAlnum
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

// decodeCondensed runs the condensed-notation state machine: a
// leading/embedded integer N repeats the next single character N
// times; 't' and 's' are tab/space units; a trailing bare integer with
// no following unit character repeats an implicit space (spec §4.2
// rule 3, testable property 6).
func decodeCondensed(notation string) (string, error) {
	var out strings.Builder
	pending := -1 // -1 means "no pending count"

	flushUnit := func(count int, r rune) {
		switch r {
		case 't':
			out.WriteString(strings.Repeat("\t", count))
		case 's':
			out.WriteString(strings.Repeat(" ", count))
		default:
			out.WriteString(strings.Repeat(string(r), count))
		}
	}

	for _, r := range notation {
		if r >= '0' && r <= '9' {
			digit := int(r - '0')
			if pending < 0 {
				pending = digit
			} else {
				pending = pending*10 + digit
			}
			continue
		}
		count := 1
		if pending >= 0 {
			count = pending
			pending = -1
		}
		flushUnit(count, r)
	}

	if pending >= 0 {
		// trailing bare integer: implicit space repetition
		out.WriteString(strings.Repeat(" ", pending))
	}

	return out.String(), nil
}

// CompilePattern compiles a regex-mode match notation. notation is
// always used literally as a regex (quoting does not change regex
// semantics, only how it was lexed). Compile failures surface with the
// exact message shape spec §4.2 requires.
func CompilePattern(notation string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(notation)
	if err != nil {
		return nil, fmt.Errorf("Could not compile regex pattern /%s/: %s", notation, err.Error())
	}
	return re, nil
}

// CompileSubstitution validates a regex-mode replacement template and
// translates the DSL's "\N" backreference syntax into Go's "$N" syntax
// (Go's regexp.ReplaceAll only understands "$N"; DESIGN.md documents
// this as an explicit Open Question resolution). A bad backreference
// index, or a trailing lone backslash, is reported as a substitution
// error.
func CompileSubstitution(notation string) (string, error) {
	var out strings.Builder
	runes := []rune(notation)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '\\' {
			if r == '$' {
				out.WriteString("$$")
				continue
			}
			out.WriteRune(r)
			continue
		}
		if i+1 >= len(runes) {
			return "", fmt.Errorf("Could not use replace pattern /%s/: trailing backslash with no backreference digit", notation)
		}
		next := runes[i+1]
		if next < '0' || next > '9' {
			return "", fmt.Errorf("Could not use replace pattern /%s/: '\\%c' is not a valid backreference", notation, next)
		}
		out.WriteByte('$')
		out.WriteRune(next)
		i++
	}
	return out.String(), nil
}
