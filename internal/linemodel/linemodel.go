// Package linemodel implements the line model matcher: given a target
// file line and an instruction's (indent, prefix, body, tail)
// specification, it decides whether the line matches and computes the
// rewritten line (spec §3, §4.3).
package linemodel

import (
	"regexp"
	"strings"

	"github.com/clibate/clibate/internal/location"
)

// StarMode controls which of indent (I) and prefix (P) participate in
// matching (match-side) or are retained in the output (replace-side).
type StarMode int

const (
	NoStar StarMode = iota
	Star
	DoubleStar
)

// PrefixPattern is a decoded prefix or extra pattern: either a literal
// string or a compiled regex (regex-mode).
type PrefixPattern struct {
	Literal  string
	Regex    *regexp.Regexp
	Notation string // original notation, for diagnostics; "" marks an
	// explicit empty prefix written as "()".
}

// IsExplicitEmpty reports whether this pattern was written as an
// explicit empty tuple "()", meaning "no indent, no prefix" (spec
// §4.4 REMOVE note: "supports () empty prefix").
func (p *PrefixPattern) IsExplicitEmpty() bool {
	return p != nil && p.Regex == nil && p.Literal == "" && p.Notation == ""
}

// Body is the matched or produced content of a line spec.
type Body struct {
	Text     string
	Quoted   bool
	TailStar bool // post-body '*' demanding an empty tail (quoted only)
}

// MatchSpec describes the match-side of a line (spec §3 "Line spec").
type MatchSpec struct {
	Prefix *PrefixPattern
	Body   Body
	Star   StarMode // Star here always means "indent must be empty"
	Loc    location.Location
}

// ReplaceSpec describes the replace/new-line side of a line (spec
// §4.3 point 2): a body plus an optional own prefix/extra and a
// replace star-mode that controls which of the inherited I/P from the
// match are retained.
type ReplaceSpec struct {
	Prefix *PrefixPattern // nil: inherit the match's prefix unchanged
	Extra  *PrefixPattern // new text inserted between prefix and body
	Body   Body
	Star   StarMode
	Loc    location.Location
}

// MatchResult is a successful match: the captured regions plus the
// byte span of the whole match on the original line (useful to
// callers that need to splice the line back together).
type MatchResult struct {
	Indent       string
	PrefixText   string
	BodyText     string // the raw text found in A (untrimmed tail excluded)
	Tail         string
	RegexMatches []string // submatches from a regex-mode prefix, if any
}

// Match attempts to match line against spec. It returns ok=false
// (never an error) when the line simply doesn't match — matching
// failure is a normal outcome the applicator turns into "no match
// found" bookkeeping, not a parse or structural error.
func Match(line string, spec MatchSpec) (MatchResult, bool) {
	indent, prefixText, rest, subs, ok := matchIndentAndPrefix(line, spec.Prefix, spec.Star == Star)
	if !ok {
		return MatchResult{}, false
	}

	bodyText, tail, ok := matchBody(rest, spec.Body)
	if !ok {
		return MatchResult{}, false
	}

	return MatchResult{
		Indent:       indent,
		PrefixText:   prefixText,
		BodyText:     bodyText,
		Tail:         tail,
		RegexMatches: subs,
	}, true
}

// matchIndentAndPrefix implements spec §4.3 point 1 plus the prefix
// precedence invariant (spec §3 invariant 1): when a prefix is
// specified, it is searched for starting at the smallest possible
// split point so that it claims as much of the line's leading
// whitespace as its own literal text needs ("P consumes whitespace
// greedily ahead of I" — spec §8 testable property 5). When the
// match is starred, no whitespace may be skipped before the
// prefix/body at all (spec §8 S3).
func matchIndentAndPrefix(line string, prefix *PrefixPattern, starred bool) (indent, prefixText, rest string, subs []string, ok bool) {
	wsLen := leadingWhitespaceLen(line)

	if prefix == nil {
		if starred && wsLen > 0 {
			return "", "", "", nil, false
		}
		return line[:wsLen], "", line[wsLen:], nil, true
	}

	maxSplit := 0
	if !starred {
		maxSplit = wsLen
	}

	for s := 0; s <= maxSplit; s++ {
		candidate := line[s:]
		if prefix.Regex != nil {
			loc := prefix.Regex.FindStringSubmatchIndex(candidate)
			if loc != nil && loc[0] == 0 {
				matched := candidate[loc[0]:loc[1]]
				groups := submatchStrings(candidate, loc)
				return line[:s], matched, candidate[loc[1]:], groups, true
			}
			continue
		}
		if strings.HasPrefix(candidate, prefix.Literal) {
			return line[:s], prefix.Literal, candidate[len(prefix.Literal):], nil, true
		}
	}
	return "", "", "", nil, false
}

func submatchStrings(s string, loc []int) []string {
	groups := make([]string, 0, len(loc)/2)
	for i := 2; i < len(loc); i += 2 {
		if loc[i] < 0 {
			groups = append(groups, "")
			continue
		}
		groups = append(groups, s[loc[i]:loc[i+1]])
	}
	return groups
}

func leadingWhitespaceLen(s string) int {
	n := 0
	for n < len(s) && (s[n] == ' ' || s[n] == '\t') {
		n++
	}
	return n
}

// matchBody implements spec §3 invariants 2-3: a raw body is matched
// trimmed of trailing whitespace (tail is free); a quoted body is
// matched literally, with a post-body '*' demanding an empty tail.
func matchBody(rest string, body Body) (bodyText, tail string, ok bool) {
	if !body.Quoted {
		trimmed := strings.TrimRight(rest, " \t")
		if trimmed != body.Text {
			return "", "", false
		}
		return trimmed, rest[len(trimmed):], true
	}

	if !strings.HasPrefix(rest, body.Text) {
		return "", "", false
	}
	after := rest[len(body.Text):]
	if body.TailStar && after != "" {
		return "", "", false
	}
	return body.Text, after, true
}

// Rewrite computes the output line for a successful MatchResult and a
// replace-side spec, implementing spec §4.3 point 2's star-to-region
// mapping.
func Rewrite(m MatchResult, spec ReplaceSpec) string {
	indentOut := m.Indent
	prefixOut := m.PrefixText
	if spec.Prefix != nil {
		prefixOut = spec.Prefix.Literal
	}

	switch spec.Star {
	case Star:
		if prefixOut != "" {
			prefixOut = ""
		} else {
			indentOut = ""
		}
	case DoubleStar:
		indentOut = ""
		prefixOut = ""
	}

	var extra string
	if spec.Extra != nil {
		extra = spec.Extra.Literal
	}

	return indentOut + prefixOut + extra + spec.Body.Text
}

// ValidateReplaceStar enforces spec §4.3 point 2's parse-time star
// coherence rules (spec §8 testable property 3):
//   - '**' is meaningless unless the governing match specified a
//     prefix (only then does both "indent" and "prefix" exist to
//     drop).
//   - '*' is redundant when paired with an explicitly empty prefix
//     tuple "()", since an explicit empty prefix already means "no
//     prefix, nothing for the star to claim beyond indent, which an
//     unstarred line would drop anyway when asked."
func ValidateReplaceStar(spec ReplaceSpec, matchHadPrefix bool) error {
	switch spec.Star {
	case DoubleStar:
		if !matchHadPrefix {
			return &StarError{
				Loc:     spec.Loc,
				Message: "Double replace star mark '**' is meaningless unless both indent and prefix were matched.",
			}
		}
	case Star:
		if spec.Prefix != nil && spec.Prefix.IsExplicitEmpty() {
			return &StarError{
				Loc:     spec.Loc,
				Message: "Replace star mark '*' is redundant with an explicit empty prefix '()'.",
			}
		}
	}
	return nil
}

// StarError is a parse-time star-coherence violation.
type StarError struct {
	Loc     location.Location
	Message string
}

func (e *StarError) Error() string {
	return e.Message + " <" + e.Loc.String() + ">"
}
