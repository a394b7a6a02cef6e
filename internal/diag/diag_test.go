package diag

import (
	"strings"
	"testing"

	"github.com/clibate/clibate/internal/location"
)

func TestParseErrorRenderIncludesKindMessageAndLocation(t *testing.T) {
	loc := location.Location{File: "edit_REPLACE", Line: 23, Col: 13}
	err := NewParseError(loc, nil, "Ambiguous raw REPLACE line with more than 1 occurrence of the 'BY' keyword. Consider quoting match and/or replace pattern(s).")

	got := err.Error()
	want := "Clibate parsing error:\n" +
		"Ambiguous raw REPLACE line with more than 1 occurrence of the 'BY' keyword. Consider quoting match and/or replace pattern(s). <edit_REPLACE:23:13>\n" +
		"edit_REPLACE"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRunErrorRenderIncludesIncludeChain(t *testing.T) {
	loc := location.Location{File: "b", Line: 4, Col: 1}
	var chain location.Chain
	chain = chain.Push(location.Location{File: "a", Line: 1, Col: 1})

	err := NewApplyNoMatch(loc, chain, "x")
	got := err.Error()

	if !strings.Contains(got, "Could not match line 'x'.") {
		t.Fatalf("got %q", got)
	}
	if !strings.Contains(got, "included from a:1:1") {
		t.Fatalf("expected the include-chain trace, got %q", got)
	}
}

// TestNewApplyNoMatchMessageMatchesExactWording covers spec §4.5/§9: the
// message quotes only the match body, with no instruction keyword and a
// trailing period.
func TestNewApplyNoMatchMessageMatchesExactWording(t *testing.T) {
	loc := location.Location{File: "f", Line: 1, Col: 1}
	err := NewApplyNoMatch(loc, nil, `chain = chain "-" $1`)

	want := `Could not match line 'chain = chain "-" $1'.`
	if err.Message != want {
		t.Fatalf("got %q, want %q", err.Message, want)
	}
}

func TestNewParseErrorCauseCarriesMetadata(t *testing.T) {
	loc := location.Location{File: "f", Line: 2, Col: 3}
	err := NewParseError(loc, nil, "bad tuple arity")
	if err.Unwrap() == nil {
		t.Fatalf("expected a non-nil wrapped cause")
	}
}

func TestNewRunErrorDistinctFromApplyNoMatch(t *testing.T) {
	loc := location.Location{File: "f", Line: 1, Col: 1}
	generic := NewRunError(loc, nil, "could not write %s", "f")
	noMatch := NewApplyNoMatch(loc, nil, "x")

	if generic.Error() == noMatch.Error() {
		t.Fatalf("expected distinct messages")
	}
}
