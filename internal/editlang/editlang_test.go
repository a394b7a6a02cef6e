package editlang

import (
	"strings"
	"testing"

	"github.com/clibate/clibate/internal/edit"
)

func run(t *testing.T, source string, buffer []string) []string {
	t.Helper()
	ops, err := Parse("t", source, nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, err := edit.Apply(buffer, ops, nil)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	return out
}

func TestS1DiffFirstMatchOnlyLooseIndent(t *testing.T) {
	source := "DIFF 'chain = chain \"-\" $1'\n" + `~ 'chain = chain "+" $1'`
	buffer := []string{
		`      chain = chain "-" $1`,
		`  chain = chain "-" $1`,
	}
	out := run(t, source, buffer)
	if out[0] != `      chain = chain "+" $1` {
		t.Fatalf("first line: got %q", out[0])
	}
	if out[1] != `  chain = chain "-" $1` {
		t.Fatalf("second line should be untouched: got %q", out[1])
	}
}

func TestS2PrefixExactIndent(t *testing.T) {
	source := "PREFIX (8, #) END {"
	out := run(t, source, []string{"        END {"})
	if out[0] != "        # END {" {
		t.Fatalf("got %q", out[0])
	}
}

func TestS3UnprefStarExactMatch(t *testing.T) {
	source := "UNPREF* (#1) a = b + c"
	out := run(t, source, []string{"# a = b + c"})
	if out[0] != "a = b + c" {
		t.Fatalf("got %q", out[0])
	}

	ops, err := Parse("t", source, nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := edit.Apply([]string{"\t# a = b + c"}, ops, nil); err == nil {
		t.Fatalf("expected NoMatch against a tab-indented line")
	}
}

func TestS4InsertAboveAtTopOfFile(t *testing.T) {
	source := "INSERT ABOVE + X\n :a"
	out := run(t, source, []string{":a", " :b"})
	want := []string{"X", ":a", " :b"}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("line %d: got %q, want %q", i, out[i], want[i])
		}
	}
}

func TestS5ReplaceAllRegexGroupMultiLineContinuation(t *testing.T) {
	source := "REPLACE ALL \\bth[a-z]+\n" +
		"        /   ' ([a-z]+)'\n" +
		"        BY  DA \\1\\1"
	buffer := []string{
		"Find interesting things",
		"Like the thing in the doc",
	}
	out := run(t, source, buffer)
	if out[0] != "Find interesting things" {
		t.Fatalf("line 0: got %q", out[0])
	}
	if out[1] != "Like DA thingthing in DA docdoc" {
		t.Fatalf("line 1: got %q", out[1])
	}
}

func TestS6AmbiguousByDiagnosticShape(t *testing.T) {
	_, err := Parse("edit_REPLACE", "REPLACE thing BY song BY more", nil)
	if err == nil {
		t.Fatalf("expected a parse error")
	}
	if !strings.Contains(err.Error(), "Ambiguous raw REPLACE line with more than 1 occurrence of the 'BY' keyword. Consider quoting match and/or replace pattern(s).") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestInsertBelowRequiresAtLeastOnePlusLine(t *testing.T) {
	_, err := Parse("t", "INSERT BELOW x", nil)
	if err == nil {
		t.Fatalf("expected an error when no + lines are given")
	}
}

func TestDiffMissingTildeIsReported(t *testing.T) {
	_, err := Parse("t", "DIFF x\ny", nil)
	if err == nil || !strings.Contains(err.Error(), "Missing introducing tilde") {
		t.Fatalf("got %v", err)
	}
}

func TestPrefixRequiresParenthesizedTuple(t *testing.T) {
	_, err := Parse("t", "PREFIX x", nil)
	if err == nil || !strings.Contains(err.Error(), "Missing parenthesized prefix pattern(s) for PREFIX instruction.") {
		t.Fatalf("got %v", err)
	}
}

func TestUnprefRequiresParenthesizedPrefix(t *testing.T) {
	_, err := Parse("t", "UNPREF x", nil)
	if err == nil || !strings.Contains(err.Error(), "Missing parenthesized prefix pattern to remove for UNPREF instruction.") {
		t.Fatalf("got %v", err)
	}
}

func TestAntiLoopInsertAllDoesNotMatchItsOwnOutput(t *testing.T) {
	// spec §8 testable property 2: an INSERT ALL M + N where N also
	// matches M must not re-trigger on the lines it just inserted.
	source := "INSERT ALL m\n+ m"
	out := run(t, source, []string{"m", "x", "m"})
	count := 0
	for _, l := range out {
		if l == "m" {
			count++
		}
	}
	if count != 4 {
		t.Fatalf("got %d 'm' lines, want 4 (2 original + 2 inserted)", count)
	}
	want := []string{"m", "m", "x", "m", "m"}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("line %d: got %q, want %q", i, out[i], want[i])
		}
	}
}

// TestInsertBelowStarredMatchRejectsIndentedLine covers spec §3/§4.4:
// INSERT's match-line-spec supports star-mode exactly like DIFF's, so
// a starred match with no prefix demands an empty indent.
func TestInsertBelowStarredMatchRejectsIndentedLine(t *testing.T) {
	source := "INSERT* BELOW x\n+ y"
	out := run(t, source, []string{"x"})
	want := []string{"x", "y"}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("line %d: got %q, want %q", i, out[i], want[i])
		}
	}

	ops, err := Parse("t", source, nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := edit.Apply([]string{"\tx"}, ops, nil); err == nil {
		t.Fatalf("expected NoMatch against a tab-indented line under a starred match")
	}
}

// TestInsertBelowPrefixedMatchLine covers spec §3/§4.4: INSERT's
// match-line-spec accepts an optional prefix tuple exactly like DIFF's,
// and inserted lines inherit the matched prefix.
func TestInsertBelowPrefixedMatchLine(t *testing.T) {
	source := "INSERT BELOW (#) x\n+ y"
	out := run(t, source, []string{"# x"})
	want := []string{"# x", "# y"}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("line %d: got %q, want %q", i, out[i], want[i])
		}
	}
}

func TestInsertAbovePrefixedMatchLine(t *testing.T) {
	source := "INSERT ABOVE + y\n (#) x"
	out := run(t, source, []string{"# x"})
	want := []string{"# y", "# x"}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("line %d: got %q, want %q", i, out[i], want[i])
		}
	}
}

func TestRemoveDeletesFirstMatchOnly(t *testing.T) {
	out := run(t, "REMOVE x", []string{"x", "y", "x"})
	want := []string{"y", "x"}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("line %d: got %q, want %q", i, out[i], want[i])
		}
	}
}

func TestRemoveAllDeletesEveryMatch(t *testing.T) {
	out := run(t, "REMOVE ALL x", []string{"x", "y", "x"})
	if len(out) != 1 || out[0] != "y" {
		t.Fatalf("got %v", out)
	}
}
