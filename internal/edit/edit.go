// Package edit defines the edit operation tagged union (spec §3) and
// the applicator that executes an ordered op list against an
// in-memory line buffer (spec §4.5).
package edit

import (
	"regexp"
	"strings"

	"github.com/clibate/clibate/internal/diag"
	"github.com/clibate/clibate/internal/linemodel"
	"github.com/clibate/clibate/internal/location"
)

// Header carries the fields common to every instruction: its source
// location, whether ALL was requested, and whether it was parsed in
// regex-mode.
type Header struct {
	Loc       location.Location
	All       bool
	RegexMode bool
}

// Op is one parsed edit instruction, ready to run against a buffer.
type Op interface {
	header() Header
	describe() string
}

type DiffOp struct {
	H       Header
	Match   linemodel.MatchSpec
	Replace linemodel.ReplaceSpec
}

func (o *DiffOp) header() Header  { return o.H }
func (o *DiffOp) describe() string { return "DIFF '" + o.Match.Body.Text + "'" }

type InsertBelowOp struct {
	H     Header
	Match linemodel.MatchSpec
	New   []linemodel.ReplaceSpec
}

func (o *InsertBelowOp) header() Header  { return o.H }
func (o *InsertBelowOp) describe() string { return "INSERT BELOW '" + o.Match.Body.Text + "'" }

type InsertAboveOp struct {
	H     Header
	New   []linemodel.ReplaceSpec
	Match linemodel.MatchSpec
}

func (o *InsertAboveOp) header() Header  { return o.H }
func (o *InsertAboveOp) describe() string { return "INSERT ABOVE '" + o.Match.Body.Text + "'" }

type RemoveOp struct {
	H     Header
	Match linemodel.MatchSpec
}

func (o *RemoveOp) header() Header  { return o.H }
func (o *RemoveOp) describe() string { return "REMOVE '" + o.Match.Body.Text + "'" }

// PrefixOp inserts a new prefix (the "extra") after an optional
// matched prefix, around a fixed body (spec §4.4 PREFIX).
type PrefixOp struct {
	H           Header
	MatchPrefix *linemodel.PrefixPattern // nil when only "(extra)" was given
	Extra       *linemodel.PrefixPattern
	Body        linemodel.Body
	Star        linemodel.StarMode
}

func (o *PrefixOp) header() Header  { return o.H }
func (o *PrefixOp) describe() string { return "PREFIX '" + o.Body.Text + "'" }

// UnprefOp strips a matched prefix from around a fixed body (spec
// §4.4 UNPREF).
type UnprefOp struct {
	H      Header
	Prefix *linemodel.PrefixPattern
	Body   linemodel.Body
	Star   linemodel.StarMode
}

func (o *UnprefOp) header() Header  { return o.H }
func (o *UnprefOp) describe() string { return "UNPREF '" + o.Body.Text + "'" }

type ReplaceOp struct {
	H            Header
	Pattern      *regexp.Regexp
	Substitution string
}

func (o *ReplaceOp) header() Header  { return o.H }
func (o *ReplaceOp) describe() string { return "REPLACE" }

// Batch is an ordered list of ops bound to one target file (spec §3
// "Edit batch"). Persistent batches mutate the baseline buffer the
// runner hands back between tests; transient batches are rolled back
// by the runner, which is outside the edit engine's concern.
type Batch struct {
	File       string
	Ops        []Op
	Persistent bool
}

// Apply runs ops against buffer in order, returning the rewritten
// buffer. A failure leaves buffer untouched from the caller's point of
// view: Apply never mutates its input slice in place.
func Apply(buffer []string, ops []Op, chain location.Chain) ([]string, error) {
	cur := append([]string(nil), buffer...)
	for _, op := range ops {
		next, err := applyOne(cur, op, chain)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

func applyOne(buffer []string, op Op, chain location.Chain) ([]string, error) {
	switch o := op.(type) {
	case *DiffOp:
		return applyDiff(buffer, o, chain)
	case *InsertBelowOp:
		return applyInsert(buffer, o.H, o.Match, o.New, true, chain)
	case *InsertAboveOp:
		return applyInsert(buffer, o.H, o.Match, o.New, false, chain)
	case *RemoveOp:
		return applyRemove(buffer, o, chain)
	case *PrefixOp:
		return applyPrefix(buffer, o, chain)
	case *UnprefOp:
		return applyUnpref(buffer, o, chain)
	case *ReplaceOp:
		return applyReplace(buffer, o, chain)
	default:
		return nil, diag.NewRunError(location.Location{}, chain, "unknown edit operation type")
	}
}

// matchIndices finds every buffer line index matching spec, in
// ascending order. When all is false only the first match (if any) is
// returned.
func matchIndices(buffer []string, spec linemodel.MatchSpec, all bool) ([]int, []linemodel.MatchResult) {
	var idxs []int
	var results []linemodel.MatchResult
	for i, line := range buffer {
		m, ok := linemodel.Match(line, spec)
		if !ok {
			continue
		}
		idxs = append(idxs, i)
		results = append(results, m)
		if !all {
			break
		}
	}
	return idxs, results
}

func applyDiff(buffer []string, o *DiffOp, chain location.Chain) ([]string, error) {
	idxs, results := matchIndices(buffer, o.Match, o.H.All)
	if len(idxs) == 0 {
		return nil, diag.NewApplyNoMatch(o.H.Loc, chain, o.Match.Body.Text)
	}
	out := append([]string(nil), buffer...)
	for k, idx := range idxs {
		out[idx] = linemodel.Rewrite(results[k], o.Replace) + results[k].Tail
	}
	return out, nil
}

func applyRemove(buffer []string, o *RemoveOp, chain location.Chain) ([]string, error) {
	idxs, _ := matchIndices(buffer, o.Match, o.H.All)
	if len(idxs) == 0 {
		return nil, diag.NewApplyNoMatch(o.H.Loc, chain, o.Match.Body.Text)
	}
	removed := make(map[int]bool, len(idxs))
	for _, i := range idxs {
		removed[i] = true
	}
	out := make([]string, 0, len(buffer)-len(idxs))
	for i, line := range buffer {
		if !removed[i] {
			out = append(out, line)
		}
	}
	return out, nil
}

// applyInsert implements spec §4.5's anti-loop rule: the match set is
// computed once, against the buffer as it stood before this op ran;
// newly inserted lines are never folded back into that same set.
func applyInsert(buffer []string, h Header, match linemodel.MatchSpec, newSpecs []linemodel.ReplaceSpec, below bool, chain location.Chain) ([]string, error) {
	idxs, results := matchIndices(buffer, match, h.All)
	if len(idxs) == 0 {
		if h.All {
			return append([]string(nil), buffer...), nil
		}
		return nil, diag.NewApplyNoMatch(h.Loc, chain, match.Body.Text)
	}

	out := append([]string(nil), buffer...)
	// Walk matches back to front so earlier indices stay valid as we
	// splice new lines in.
	for k := len(idxs) - 1; k >= 0; k-- {
		idx := idxs[k]
		m := results[k]
		rendered := make([]string, len(newSpecs))
		for i, spec := range newSpecs {
			rendered[i] = linemodel.Rewrite(m, spec)
		}
		if below {
			out = spliceAt(out, idx+1, rendered)
		} else {
			out = spliceAt(out, idx, rendered)
		}
	}
	return out, nil
}

func spliceAt(buffer []string, at int, inserted []string) []string {
	out := make([]string, 0, len(buffer)+len(inserted))
	out = append(out, buffer[:at]...)
	out = append(out, inserted...)
	out = append(out, buffer[at:]...)
	return out
}

func applyPrefix(buffer []string, o *PrefixOp, chain location.Chain) ([]string, error) {
	matchSpec := linemodel.MatchSpec{Prefix: o.MatchPrefix, Body: o.Body, Star: o.Star, Loc: o.H.Loc}
	idxs, results := matchIndices(buffer, matchSpec, o.H.All)
	if len(idxs) == 0 {
		return nil, diag.NewApplyNoMatch(o.H.Loc, chain, o.Body.Text)
	}
	replace := linemodel.ReplaceSpec{Extra: o.Extra, Body: o.Body, Loc: o.H.Loc}
	out := append([]string(nil), buffer...)
	for k, idx := range idxs {
		out[idx] = linemodel.Rewrite(results[k], replace) + results[k].Tail
	}
	return out, nil
}

func applyUnpref(buffer []string, o *UnprefOp, chain location.Chain) ([]string, error) {
	matchSpec := linemodel.MatchSpec{Prefix: o.Prefix, Body: o.Body, Star: o.Star, Loc: o.H.Loc}
	idxs, results := matchIndices(buffer, matchSpec, o.H.All)
	if len(idxs) == 0 {
		return nil, diag.NewApplyNoMatch(o.H.Loc, chain, o.Body.Text)
	}
	out := append([]string(nil), buffer...)
	for k, idx := range idxs {
		m := results[k]
		out[idx] = m.Indent + o.Body.Text + m.Tail
	}
	return out, nil
}

// applyReplace implements spec §4.5's whole-buffer REPLACE: the
// buffer is joined into one string so the regex engine's line-spanning
// modes (e.g. "(?s)") can see across line boundaries, then split back
// on "\n".
func applyReplace(buffer []string, o *ReplaceOp, chain location.Chain) ([]string, error) {
	joined := strings.Join(buffer, "\n")
	var out string
	if o.H.All {
		out = o.Pattern.ReplaceAllString(joined, o.Substitution)
	} else {
		loc := o.Pattern.FindStringIndex(joined)
		if loc == nil {
			out = joined
		} else {
			rewritten := o.Pattern.ReplaceAllString(joined[loc[0]:loc[1]], o.Substitution)
			out = joined[:loc[0]] + rewritten + joined[loc[1]:]
		}
	}
	return strings.Split(out, "\n"), nil
}
