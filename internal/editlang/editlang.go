// Package editlang parses the six edit-instruction families (DIFF,
// INSERT BELOW/ABOVE, REMOVE, PREFIX, UNPREF, REPLACE) into typed
// edit.Op values (spec §4.4). Each family gets its own hand-written
// recursive-descent parser so the exact diagnostic strings the spec
// names can be produced verbatim — a table-driven or grammar-library
// approach would have to fight its own error hooks to get there.
package editlang

import (
	"strings"

	"github.com/clibate/clibate/internal/diag"
	"github.com/clibate/clibate/internal/edit"
	"github.com/clibate/clibate/internal/lex"
	"github.com/clibate/clibate/internal/linemodel"
	"github.com/clibate/clibate/internal/location"
	"github.com/clibate/clibate/internal/prefixnotation"
)

// Parse reads source (already split into logical lines belonging to
// file) and produces the ordered list of edit operations it contains.
// Blank and comment-only lines between instructions are skipped.
func Parse(file string, source string, chain location.Chain) ([]edit.Op, error) {
	lx := lex.New(file, strings.Split(source, "\n"))
	var ops []edit.Op

	for !lx.AtEOF() {
		lx.SkipSpacesAndComments()
		if lx.AtLineEnd() {
			if !lx.NextLine() {
				break
			}
			continue
		}

		kwTok, ok := lx.ReadRawWord()
		if !ok {
			return nil, diag.NewParseError(lx.Loc(), chain, "expected an instruction keyword")
		}
		keyword, regexMode, star := splitKeywordSuffix(kwTok.Text)
		header := edit.Header{Loc: kwTok.Loc, RegexMode: regexMode}
		header.All = consumeAllKeyword(lx)
		if star == linemodel.NoStar {
			// The star mark is usually fused directly onto the keyword
			// ("UNPREF*"), but the instruction grammar also allows it
			// as its own token after ALL ("UNPREF ALL * (...)").
			star = consumeStandaloneStar(lx)
		}

		var op edit.Op
		var err error
		switch strings.ToUpper(keyword) {
		case "DIFF":
			op, err = parseDiff(lx, header, star, chain)
		case "INSERT":
			op, err = parseInsert(lx, header, star, chain)
		case "REMOVE":
			op, err = parseRemove(lx, header, star, chain)
		case "PREFIX":
			op, err = parsePrefix(lx, header, star, chain)
		case "UNPREF":
			op, err = parseUnpref(lx, header, star, chain)
		case "REPLACE":
			op, err = parseReplace(lx, header, chain)
		default:
			err = diag.NewParseError(kwTok.Loc, chain, "Unknown edit instruction keyword '%s'", keyword)
		}
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)

		if !lx.NextLine() {
			break
		}
	}
	return ops, nil
}

// splitKeywordSuffix peels the trailing "/" (regex-mode) and "*"/"**"
// (star-mode) marks directly fused to a keyword token, e.g. "UNPREF*"
// or "DIFF/".
func splitKeywordSuffix(s string) (keyword string, regexMode bool, star linemodel.StarMode) {
	stars := 0
	for len(s) > 0 {
		last := s[len(s)-1]
		switch last {
		case '/':
			regexMode = true
			s = s[:len(s)-1]
		case '*':
			stars++
			s = s[:len(s)-1]
		default:
			keyword = s
			return buildStarResult(keyword, regexMode, stars)
		}
	}
	return buildStarResult(s, regexMode, stars)
}

func buildStarResult(keyword string, regexMode bool, stars int) (string, bool, linemodel.StarMode) {
	star := linemodel.NoStar
	switch {
	case stars == 1:
		star = linemodel.Star
	case stars >= 2:
		star = linemodel.DoubleStar
	}
	return keyword, regexMode, star
}

// consumeAllKeyword speculatively reads the next raw word; if it is
// "ALL" (case-insensitive) it is consumed and true is returned,
// otherwise the cursor is rewound.
func consumeAllKeyword(lx *lex.Lexer) bool {
	m := lx.Mark()
	tok, ok := lx.ReadRawWord()
	if ok && strings.EqualFold(tok.Text, "ALL") {
		return true
	}
	lx.Reset(m)
	return false
}

// consumeStandaloneStar reads a bare "*"/"**" token at the cursor, if
// present, returning NoStar otherwise.
func consumeStandaloneStar(lx *lex.Lexer) linemodel.StarMode {
	lx.SkipSpacesAndComments()
	count := 0
	for {
		r, ok := lx.PeekRune()
		if !ok || r != '*' {
			break
		}
		lx.Consume(1)
		count++
	}
	switch {
	case count == 1:
		return linemodel.Star
	case count >= 2:
		return linemodel.DoubleStar
	default:
		return linemodel.NoStar
	}
}

// readOptionalTuple reads a parenthesized tuple if one is present at
// the cursor, reporting hasTuple=false (not an error) when it is not.
func readOptionalTuple(lx *lex.Lexer) (values []lex.TupleValue, hasTuple bool, loc location.Location, err error) {
	lx.SkipSpacesAndComments()
	r, ok := lx.PeekRune()
	if !ok || r != '(' {
		return nil, false, lx.Loc(), nil
	}
	values, loc, err = lx.ReadTuple(lex.DefaultValueReader)
	return values, true, loc, err
}

func buildPattern(tv lex.TupleValue, regexMode bool, chain location.Chain) (*linemodel.PrefixPattern, error) {
	if regexMode {
		re, err := prefixnotation.CompilePattern(tv.Text)
		if err != nil {
			return nil, diag.NewParseError(tv.Loc, chain, "%s", err.Error())
		}
		return &linemodel.PrefixPattern{Regex: re, Notation: tv.Text}, nil
	}
	lit, err := prefixnotation.DecodeLiteralOrCondensed(tv.Text, tv.WasQuoted)
	if err != nil {
		return nil, diag.NewParseError(tv.Loc, chain, "%s", err.Error())
	}
	return &linemodel.PrefixPattern{Literal: lit, Notation: tv.Text}, nil
}

// explicitEmptyPattern marks a "()" tuple: zero value, matched by
// linemodel.PrefixPattern.IsExplicitEmpty.
func explicitEmptyPattern() *linemodel.PrefixPattern {
	return &linemodel.PrefixPattern{}
}

// readBody reads a line-spec body: a quoted literal (with an optional
// post-body "*" demanding an empty tail), or the rest of the line read
// raw and trimmed of trailing whitespace (spec §3 invariants 2-3).
func readBody(lx *lex.Lexer, chain location.Chain) (linemodel.Body, location.Location, error) {
	lx.SkipSpacesAndComments()
	loc := lx.Loc()

	tok, ok, err := lx.ReadQuotedString()
	if err != nil {
		return linemodel.Body{}, loc, diag.NewParseError(loc, chain, "%s", err.Error())
	}
	if ok {
		tailStar := false
		lx.SkipSpacesAndComments()
		if r, rok := lx.PeekRune(); rok && r == '*' {
			lx.Consume(1)
			tailStar = true
		}
		if !lx.AtLineEnd() {
			return linemodel.Body{}, loc, diag.NewParseError(lx.Loc(), chain, "Unexpected data found after string")
		}
		return linemodel.Body{Text: tok.Text, Quoted: true, TailStar: tailStar}, tok.Loc, nil
	}

	rest := strings.TrimRight(lx.Rest(), " \t")
	if rest == "" {
		return linemodel.Body{}, loc, diag.NewParseError(loc, chain, "Missing expected data: body")
	}
	return linemodel.Body{Text: rest, Quoted: false}, loc, nil
}

// --- DIFF -------------------------------------------------------------

func parseDiff(lx *lex.Lexer, h edit.Header, matchStar linemodel.StarMode, chain location.Chain) (edit.Op, error) {
	matchPrefix, err := parseOptionalPrefixForMatch(lx, h.RegexMode, chain)
	if err != nil {
		return nil, err
	}
	matchBody, matchLoc, err := readBody(lx, chain)
	if err != nil {
		return nil, err
	}
	match := linemodel.MatchSpec{Prefix: matchPrefix, Body: matchBody, Star: matchStar, Loc: matchLoc}

	if !lx.NextLine() {
		return nil, diag.NewParseError(h.Loc, chain, "Missing introducing tilde '~' on second diff line.")
	}
	lx.SkipSpacesAndComments()
	if !lx.ConsumeIfRune('~') {
		return nil, diag.NewParseError(lx.Loc(), chain, "Missing introducing tilde '~' on second diff line.")
	}
	replaceStar := linemodel.NoStar
	for {
		r, ok := lx.PeekRuneImmediate()
		if !ok || r != '*' {
			break
		}
		lx.Consume(1)
		if replaceStar == linemodel.NoStar {
			replaceStar = linemodel.Star
		} else {
			replaceStar = linemodel.DoubleStar
		}
	}

	replacePrefix, replaceExtra, err := parseOptionalReplaceTuple(lx, h.RegexMode, chain)
	if err != nil {
		return nil, err
	}
	replaceBody, replaceLoc, err := readBody(lx, chain)
	if err != nil {
		return nil, err
	}
	if h.RegexMode {
		sub, serr := prefixnotation.CompileSubstitution(replaceBody.Text)
		if serr != nil {
			return nil, diag.NewParseError(replaceLoc, chain, "%s", serr.Error())
		}
		replaceBody.Text = sub
	}
	replace := linemodel.ReplaceSpec{Prefix: replacePrefix, Extra: replaceExtra, Body: replaceBody, Star: replaceStar, Loc: replaceLoc}

	if verr := linemodel.ValidateReplaceStar(replace, matchPrefix != nil); verr != nil {
		return nil, diag.NewParseError(replaceLoc, chain, "%s", verr.Error())
	}

	return &edit.DiffOp{H: h, Match: match, Replace: replace}, nil
}

func parseOptionalPrefixForMatch(lx *lex.Lexer, regexMode bool, chain location.Chain) (*linemodel.PrefixPattern, error) {
	values, has, loc, err := readOptionalTuple(lx)
	if err != nil {
		return nil, diag.NewParseError(loc, chain, "%s", err.Error())
	}
	if !has {
		if regexMode {
			return nil, diag.NewParseError(loc, chain, "Requested regex prefix with '/' mark but no parenthesized '(pattern)' was provided.")
		}
		return nil, nil
	}
	if len(values) == 0 {
		return explicitEmptyPattern(), nil
	}
	if len(values) != 1 {
		return nil, diag.NewParseError(loc, chain, "Expected 1 value in tuple, found %d instead", len(values))
	}
	return buildPattern(values[0], regexMode, chain)
}

func parseOptionalReplaceTuple(lx *lex.Lexer, regexMode bool, chain location.Chain) (*linemodel.PrefixPattern, *linemodel.PrefixPattern, error) {
	values, has, loc, err := readOptionalTuple(lx)
	if err != nil {
		return nil, nil, diag.NewParseError(loc, chain, "%s", err.Error())
	}
	if !has {
		return nil, nil, nil
	}
	switch len(values) {
	case 0:
		return explicitEmptyPattern(), nil, nil
	case 1:
		extra, err := buildPattern(values[0], regexMode, chain)
		return nil, extra, err
	case 2:
		prefix, err := buildPattern(values[0], regexMode, chain)
		if err != nil {
			return nil, nil, err
		}
		extra, err := buildPattern(values[1], regexMode, chain)
		return prefix, extra, err
	default:
		return nil, nil, diag.NewParseError(loc, chain, "Expected 1 or 2 values in tuple, found %d instead", len(values))
	}
}

// --- INSERT -------------------------------------------------------------

func parseInsert(lx *lex.Lexer, h edit.Header, star linemodel.StarMode, chain location.Chain) (edit.Op, error) {
	m := lx.Mark()
	dirTok, ok := lx.ReadRawWord()
	below := true
	if ok {
		switch strings.ToUpper(dirTok.Text) {
		case "BELOW":
			below = true
		case "ABOVE":
			below = false
		default:
			lx.Reset(m)
		}
	}

	if below {
		return parseInsertBelow(lx, h, star, chain)
	}
	return parseInsertAbove(lx, h, star, chain)
}

// parseInsertMatchPrefix reads INSERT's optional match-line prefix
// tuple: a "()" tuple is the default no-prefix state (indent stays
// free), not an explicit-empty sentinel.
func parseInsertMatchPrefix(lx *lex.Lexer, h edit.Header, chain location.Chain) (*linemodel.PrefixPattern, error) {
	values, has, loc, err := readOptionalTuple(lx)
	if err != nil {
		return nil, diag.NewParseError(loc, chain, "%s", err.Error())
	}
	if !has {
		return nil, nil
	}
	switch len(values) {
	case 0:
		return nil, nil // "()" on INSERT is already the default no-prefix state
	case 1:
		return buildPattern(values[0], h.RegexMode, chain)
	default:
		return nil, diag.NewParseError(loc, chain, "Expected 1 value in tuple, found %d instead", len(values))
	}
}

func parseInsertBelow(lx *lex.Lexer, h edit.Header, star linemodel.StarMode, chain location.Chain) (edit.Op, error) {
	matchPrefix, err := parseInsertMatchPrefix(lx, h, chain)
	if err != nil {
		return nil, err
	}
	matchBody, matchLoc, err := readBody(lx, chain)
	if err != nil {
		return nil, err
	}
	match := linemodel.MatchSpec{Prefix: matchPrefix, Body: matchBody, Star: star, Loc: matchLoc}

	var news []linemodel.ReplaceSpec
	for {
		m := lx.Mark()
		if !lx.NextLine() {
			break
		}
		lx.SkipSpacesAndComments()
		if !lx.ConsumeIfRune('+') {
			lx.Reset(m)
			break
		}
		spec, err := parseNewLine(lx, chain)
		if err != nil {
			return nil, err
		}
		news = append(news, spec)
	}
	if len(news) == 0 {
		return nil, diag.NewParseError(h.Loc, chain, "Found no lines to INSERT BELOW '%s'.", matchBody.Text)
	}
	for _, n := range news {
		if verr := linemodel.ValidateReplaceStar(n, matchPrefix != nil); verr != nil {
			return nil, diag.NewParseError(n.Loc, chain, "%s", verr.Error())
		}
	}
	return &edit.InsertBelowOp{H: h, Match: match, New: news}, nil
}

func parseInsertAbove(lx *lex.Lexer, h edit.Header, star linemodel.StarMode, chain location.Chain) (edit.Op, error) {
	var news []linemodel.ReplaceSpec

	lx.SkipSpacesAndComments()
	if !lx.ConsumeIfRune('+') {
		return nil, diag.NewParseError(lx.Loc(), chain, "Missing '+' symbol to introduce lines to INSERT ABOVE the match line.")
	}
	spec, err := parseNewLine(lx, chain)
	if err != nil {
		return nil, err
	}
	news = append(news, spec)

	for lx.NextLine() {
		lx.SkipSpacesAndComments()
		if !lx.ConsumeIfRune('+') {
			break
		}
		spec, err := parseNewLine(lx, chain)
		if err != nil {
			return nil, err
		}
		news = append(news, spec)
	}

	if lx.AtEOF() {
		return nil, diag.NewParseError(h.Loc, chain, "Missing match line for INSERT ABOVE.")
	}
	matchPrefix, err := parseInsertMatchPrefix(lx, h, chain)
	if err != nil {
		return nil, err
	}
	matchBody, matchLoc, err := readBody(lx, chain)
	if err != nil {
		return nil, err
	}
	match := linemodel.MatchSpec{Prefix: matchPrefix, Body: matchBody, Star: star, Loc: matchLoc}
	for _, n := range news {
		if verr := linemodel.ValidateReplaceStar(n, matchPrefix != nil); verr != nil {
			return nil, diag.NewParseError(n.Loc, chain, "%s", verr.Error())
		}
	}
	return &edit.InsertAboveOp{H: h, New: news, Match: match}, nil
}

// parseNewLine parses one "+"-introduced line: its own optional
// star-mode, optional (prefix, extra) tuple, and body (spec §4.4:
// "each + line carries its own star-mode and optional extra").
func parseNewLine(lx *lex.Lexer, chain location.Chain) (linemodel.ReplaceSpec, error) {
	star := linemodel.NoStar
	for {
		r, ok := lx.PeekRuneImmediate()
		if !ok || r != '*' {
			break
		}
		lx.Consume(1)
		if star == linemodel.NoStar {
			star = linemodel.Star
		} else {
			star = linemodel.DoubleStar
		}
	}
	prefix, extra, err := parseOptionalReplaceTuple(lx, false, chain)
	if err != nil {
		return linemodel.ReplaceSpec{}, err
	}
	body, loc, err := readBody(lx, chain)
	if err != nil {
		return linemodel.ReplaceSpec{}, err
	}
	return linemodel.ReplaceSpec{Prefix: prefix, Extra: extra, Body: body, Star: star, Loc: loc}, nil
}

// --- REMOVE -------------------------------------------------------------

func parseRemove(lx *lex.Lexer, h edit.Header, star linemodel.StarMode, chain location.Chain) (edit.Op, error) {
	values, has, loc, err := readOptionalTuple(lx)
	if err != nil {
		return nil, diag.NewParseError(loc, chain, "%s", err.Error())
	}
	var prefix *linemodel.PrefixPattern
	if has {
		switch len(values) {
		case 0:
			prefix = explicitEmptyPattern() // "()" on REMOVE means no indent, no prefix
		case 1:
			if prefix, err = buildPattern(values[0], h.RegexMode, chain); err != nil {
				return nil, err
			}
		default:
			return nil, diag.NewParseError(loc, chain, "Expected 1 value in tuple, found %d instead", len(values))
		}
	}
	body, bodyLoc, err := readBody(lx, chain)
	if err != nil {
		return nil, err
	}
	match := linemodel.MatchSpec{Prefix: prefix, Body: body, Star: star, Loc: bodyLoc}
	return &edit.RemoveOp{H: h, Match: match}, nil
}

// --- PREFIX / UNPREF -----------------------------------------------------

func parsePrefix(lx *lex.Lexer, h edit.Header, star linemodel.StarMode, chain location.Chain) (edit.Op, error) {
	values, has, loc, err := readOptionalTuple(lx)
	if err != nil {
		return nil, diag.NewParseError(loc, chain, "%s", err.Error())
	}
	if !has {
		return nil, diag.NewParseError(h.Loc, chain, "Missing parenthesized prefix pattern(s) for PREFIX instruction.")
	}
	var matchPrefix, extra *linemodel.PrefixPattern
	switch len(values) {
	case 1:
		if extra, err = buildPattern(values[0], h.RegexMode, chain); err != nil {
			return nil, err
		}
	case 2:
		if matchPrefix, err = buildPattern(values[0], h.RegexMode, chain); err != nil {
			return nil, err
		}
		if extra, err = buildPattern(values[1], h.RegexMode, chain); err != nil {
			return nil, err
		}
	default:
		return nil, diag.NewParseError(loc, chain, "Expected 1 or 2 values in tuple, found %d instead", len(values))
	}
	body, _, err := readBody(lx, chain)
	if err != nil {
		return nil, err
	}
	return &edit.PrefixOp{H: h, MatchPrefix: matchPrefix, Extra: extra, Body: body, Star: star}, nil
}

func parseUnpref(lx *lex.Lexer, h edit.Header, star linemodel.StarMode, chain location.Chain) (edit.Op, error) {
	values, has, loc, err := readOptionalTuple(lx)
	if err != nil {
		return nil, diag.NewParseError(loc, chain, "%s", err.Error())
	}
	if !has || len(values) != 1 {
		return nil, diag.NewParseError(h.Loc, chain, "Missing parenthesized prefix pattern to remove for UNPREF instruction.")
	}
	prefix, err := buildPattern(values[0], h.RegexMode, chain)
	if err != nil {
		return nil, err
	}
	body, _, err := readBody(lx, chain)
	if err != nil {
		return nil, err
	}
	return &edit.UnprefOp{H: h, Prefix: prefix, Body: body, Star: star}, nil
}

// --- REPLACE --------------------------------------------------------------

func parseReplace(lx *lex.Lexer, h edit.Header, chain location.Chain) (edit.Op, error) {
	firstRest := strings.TrimSpace(lx.Rest())

	var patternParts, replaceParts []string
	inReplace := false

	consume := func(segment string) error {
		idxs := findByOccurrences(segment)
		if len(idxs) > 1 {
			return diag.NewParseError(h.Loc, chain, "Ambiguous raw REPLACE line with more than 1 occurrence of the 'BY' keyword. Consider quoting match and/or replace pattern(s).")
		}
		if len(idxs) == 1 {
			before := strings.TrimSpace(segment[:idxs[0]])
			after := strings.TrimSpace(segment[idxs[0]+2:])
			if before != "" {
				patternParts = append(patternParts, extractFragmentText(before))
			}
			if after != "" {
				replaceParts = append(replaceParts, extractFragmentText(after))
			}
			inReplace = true
			return nil
		}
		if segment != "" {
			if inReplace {
				replaceParts = append(replaceParts, extractFragmentText(segment))
			} else {
				patternParts = append(patternParts, extractFragmentText(segment))
			}
		}
		return nil
	}

	if err := consume(firstRest); err != nil {
		return nil, err
	}

	for {
		m := lx.Mark()
		if !lx.NextLine() {
			break
		}
		lx.SkipSpacesAndComments()
		r, ok := lx.PeekRune()
		if !ok {
			lx.Reset(m)
			break
		}
		if r == '/' {
			lx.Consume(1)
			segment := strings.TrimSpace(lx.Rest())
			if err := consume(segment); err != nil {
				return nil, err
			}
			continue
		}
		wm := lx.Mark()
		tok, wok := lx.ReadRawWord()
		if wok && strings.EqualFold(tok.Text, "BY") {
			if inReplace {
				lx.Reset(m)
				break
			}
			segment := strings.TrimSpace(lx.Rest())
			inReplace = true
			if segment != "" {
				replaceParts = append(replaceParts, extractFragmentText(segment))
			}
			continue
		}
		lx.Reset(wm)
		lx.Reset(m)
		break
	}

	if !inReplace {
		return nil, diag.NewParseError(h.Loc, chain, "Missing 'BY' keyword or '/' line continuation symbol for REPLACE instruction.")
	}
	if len(patternParts) == 0 {
		return nil, diag.NewParseError(h.Loc, chain, "Missing match pattern before 'BY' keyword.")
	}
	if len(replaceParts) == 0 {
		return nil, diag.NewParseError(h.Loc, chain, "Missing expected data: 'replace pattern'.")
	}

	pattern := strings.Join(patternParts, "")
	replacement := strings.Join(replaceParts, "")

	re, err := prefixnotation.CompilePattern(pattern)
	if err != nil {
		return nil, diag.NewParseError(h.Loc, chain, "%s", err.Error())
	}
	sub, err := prefixnotation.CompileSubstitution(replacement)
	if err != nil {
		return nil, diag.NewParseError(h.Loc, chain, "%s", err.Error())
	}
	return &edit.ReplaceOp{H: h, Pattern: re, Substitution: sub}, nil
}

// extractFragmentText strips one layer of matching quote characters
// from a fragment so that quoted and raw REPLACE fragments concatenate
// to the same joined text (spec §4.4: "concatenated verbatim").
func extractFragmentText(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '\'' || first == '"') && first == last {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// findByOccurrences returns the byte offsets of every top-level (not
// inside a quoted span) standalone "BY" word in s.
func findByOccurrences(s string) []int {
	var idxs []int
	var inQuote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inQuote != 0 {
			if c == inQuote && (i == 0 || s[i-1] != '\\') {
				inQuote = 0
			}
			continue
		}
		if c == '\'' || c == '"' {
			inQuote = c
			continue
		}
		if c == 'B' && i+1 < len(s) && s[i+1] == 'Y' {
			leftOK := i == 0 || s[i-1] == ' ' || s[i-1] == '\t'
			rightOK := i+2 >= len(s) || s[i+2] == ' ' || s[i+2] == '\t'
			if leftOK && rightOK {
				idxs = append(idxs, i)
				i++
			}
		}
	}
	return idxs
}
