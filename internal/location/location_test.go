package location

import "testing"

func TestStringFormat(t *testing.T) {
	loc := Location{File: "edit_REPLACE", Line: 23, Col: 13}
	if got := loc.String(); got != "edit_REPLACE:23:13" {
		t.Fatalf("got %q", got)
	}
}

func TestChainPushIsImmutable(t *testing.T) {
	var base Chain
	a := base.Push(Location{File: "a", Line: 1, Col: 1})
	b := a.Push(Location{File: "b", Line: 2, Col: 2})

	if len(a) != 1 {
		t.Fatalf("pushing onto a copy must not mutate the original")
	}
	if len(b) != 2 {
		t.Fatalf("got len %d, want 2", len(b))
	}

	lines := b.Lines()
	want := []string{"included from a:1:1", "included from b:2:2"}
	for i, w := range want {
		if lines[i] != w {
			t.Fatalf("line %d: got %q, want %q", i, lines[i], w)
		}
	}
}
