package linemodel

import (
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMatchLooseIndentNoPrefix(t *testing.T) {
	spec := MatchSpec{Body: Body{Text: `chain = chain "-" $1`}}
	m, ok := Match(`      chain = chain "-" $1`, spec)
	if !ok {
		t.Fatalf("expected match")
	}
	if m.Indent != "      " {
		t.Fatalf("got indent %q", m.Indent)
	}
}

func TestMatchPrefixStealsIndentWhitespace(t *testing.T) {
	// spec §8 S2: PREFIX (8, #) against "        END {" — the 8-space
	// prefix claims the line's entire leading whitespace.
	spec := MatchSpec{
		Prefix: &PrefixPattern{Literal: "        "},
		Body:   Body{Text: "END {"},
	}
	m, ok := Match("        END {", spec)
	if !ok {
		t.Fatalf("expected match")
	}
	if m.Indent != "" || m.PrefixText != "        " {
		t.Fatalf("got indent=%q prefix=%q", m.Indent, m.PrefixText)
	}
}

func TestMatchPrefixLeavesExtraIndentFree(t *testing.T) {
	spec := MatchSpec{
		Prefix: &PrefixPattern{Literal: "# "},
		Body:   Body{Text: "a = b + c"},
	}
	m, ok := Match("  # a = b + c", spec)
	if !ok {
		t.Fatalf("expected match")
	}
	if m.Indent != "  " {
		t.Fatalf("got indent %q, want two leading spaces", m.Indent)
	}
}

func TestMatchStarRequiresEmptyIndentEvenWithPrefix(t *testing.T) {
	// spec §8 S3.
	spec := MatchSpec{
		Prefix: &PrefixPattern{Literal: "# "},
		Body:   Body{Text: "a = b + c"},
		Star:   Star,
	}
	if _, ok := Match("# a = b + c", spec); !ok {
		t.Fatalf("expected match against unindented line")
	}
	if _, ok := Match("\t# a = b + c", spec); ok {
		t.Fatalf("expected NoMatch against tab-indented line under a starred match")
	}
}

func TestRewriteKeepsIndentAndPrefixByDefault(t *testing.T) {
	m := MatchResult{Indent: "  ", PrefixText: "# "}
	out := Rewrite(m, ReplaceSpec{Body: Body{Text: "x"}})
	if out != "  # x" {
		t.Fatalf("got %q", out)
	}
}

func TestRewriteStarDropsPrefixWhenPresent(t *testing.T) {
	m := MatchResult{Indent: "  ", PrefixText: "# "}
	out := Rewrite(m, ReplaceSpec{Body: Body{Text: "x"}, Star: Star})
	if out != "  x" {
		t.Fatalf("got %q", out)
	}
}

func TestRewriteStarDropsIndentWhenNoPrefix(t *testing.T) {
	m := MatchResult{Indent: "  "}
	out := Rewrite(m, ReplaceSpec{Body: Body{Text: "x"}, Star: Star})
	if out != "x" {
		t.Fatalf("got %q", out)
	}
}

func TestRewriteDoubleStarDropsBoth(t *testing.T) {
	m := MatchResult{Indent: "  ", PrefixText: "# "}
	out := Rewrite(m, ReplaceSpec{Body: Body{Text: "x"}, Star: DoubleStar})
	if out != "x" {
		t.Fatalf("got %q", out)
	}
}

func TestValidateReplaceStarRejectsMeaninglessDoubleStar(t *testing.T) {
	if err := ValidateReplaceStar(ReplaceSpec{Star: DoubleStar}, false); err == nil {
		t.Fatalf("expected an error when ** is used without a matched prefix")
	}
	if err := ValidateReplaceStar(ReplaceSpec{Star: DoubleStar}, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateReplaceStarRejectsRedundantStar(t *testing.T) {
	spec := ReplaceSpec{Star: Star, Prefix: explicitEmpty()}
	if err := ValidateReplaceStar(spec, false); err == nil {
		t.Fatalf("expected an error for a redundant star paired with an explicit empty prefix")
	}
}

func explicitEmpty() *PrefixPattern {
	return &PrefixPattern{}
}

func TestQuotedBodyWithoutTailStarCapturesNonEmptyTail(t *testing.T) {
	spec := MatchSpec{Body: Body{Text: "foo", Quoted: true}}
	m, ok := Match("foobaz", spec)
	if !ok {
		t.Fatalf("expected match")
	}
	if m.Tail != "baz" {
		t.Fatalf("got tail %q, want %q", m.Tail, "baz")
	}
}

func TestQuotedBodyTailStarDemandsEmptyTail(t *testing.T) {
	spec := MatchSpec{Body: Body{Text: "x", Quoted: true, TailStar: true}}
	if _, ok := Match("x", spec); !ok {
		t.Fatalf("expected match with nothing trailing")
	}
	if _, ok := Match("x  ", spec); ok {
		t.Fatalf("expected NoMatch when trailing content exists and tail-star is set")
	}
}

func TestMatchRegexPrefixCapturesFullResult(t *testing.T) {
	spec := MatchSpec{
		Prefix: &PrefixPattern{Regex: regexp.MustCompile("  (#+) ")},
		Body:   Body{Text: "a = b"},
	}
	got, ok := Match("  ## a = b", spec)
	if !ok {
		t.Fatalf("expected match")
	}
	want := MatchResult{
		Indent:       "",
		PrefixText:   "  ## ",
		BodyText:     "a = b",
		Tail:         "",
		RegexMatches: []string{"##"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected match result (-want +got):\n%s", diff)
	}
}
