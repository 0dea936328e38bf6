package semver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shyim/pox-sub000/internal/resolveerr"
)

var (
	basicComparatorRe = regexp.MustCompile(`^(<>|!=|>=|<=|==|=|<|>)\s*(.+)$`)
	tildeRe           = regexp.MustCompile(`^~\s*v?(\d+)(\.\d+)?(\.\d+)?(\.\d+)?(-[A-Za-z0-9.]+)?$`)
	caretRe           = regexp.MustCompile(`^\^\s*v?(\d+)(\.\d+)?(\.\d+)?(-[A-Za-z0-9.]+)?$`)
	invalidTildeGT    = regexp.MustCompile(`^~>`)
	xRangeRe          = regexp.MustCompile(`^v?(\d+)(\.(\d+))?(\.([xX*]|\d+))?(\.([xX*]))?$`)
	wildcardRe        = regexp.MustCompile(`^v?[xX*](\.[xX*])?$`)
	hyphenRe          = regexp.MustCompile(`^\s*(\S+)\s+-\s+(\S+)\s*$`)
	devNameRe         = regexp.MustCompile(`(?i)^dev-`)
	stabilityFlagRe   = regexp.MustCompile(`(?i)@(stable|rc|beta|alpha|dev)\b`)
)

// ParseConstraints parses a full constraint expression, possibly a
// disjunction of "||"/"|" separated OR-terms each made of one or more
// AND'ed atomic constraints.
func ParseConstraints(text string) (Constraint, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty constraint", resolveerr.ErrConstraintParse)
	}

	orParts := splitOr(text)
	if len(orParts) > 1 {
		children := make([]Constraint, 0, len(orParts))
		for _, part := range orParts {
			c, err := parseAndGroup(part)
			if err != nil {
				return nil, err
			}
			children = append(children, c)
		}
		return Multi{Children: children, Conjunctive: false}, nil
	}
	return parseAndGroup(orParts[0])
}

// splitOr splits on "||" first, falling back to a single "|" (both are
// valid Composer OR separators), never inside an "X as Y" clause.
func splitOr(text string) []string {
	if strings.Contains(text, "||") {
		return splitTrim(text, "||")
	}
	if strings.Contains(text, "|") && !aliasClauseRe.MatchString(text) {
		return splitTrim(text, "|")
	}
	return []string{text}
}

func splitTrim(text, sep string) []string {
	raw := strings.Split(text, sep)
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{text}
	}
	return out
}

// parseAndGroup parses a single OR-term, which may itself be a
// comma/space separated conjunction of atomic constraints (but never
// splits inside a hyphen range or an "X as Y" clause).
func parseAndGroup(term string) (Constraint, error) {
	term = strings.TrimSpace(term)

	if m := hyphenRe.FindStringSubmatch(term); m != nil {
		return parseHyphenConstraint(m[1], m[2])
	}

	atoms := splitAndAtoms(term)
	if len(atoms) == 1 {
		return parseAtomicConstraint(atoms[0])
	}

	children := make([]Constraint, 0, len(atoms))
	for _, atom := range atoms {
		c, err := parseAtomicConstraint(atom)
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	return Multi{Children: children, Conjunctive: true}, nil
}

// splitAndAtoms splits a conjunctive term on commas and whitespace,
// except immediately after a comparator glyph (">= 1.0" stays joined)
// and inside an "X as Y" alias clause.
func splitAndAtoms(term string) []string {
	if aliasClauseRe.MatchString(term) {
		return []string{term}
	}

	var atoms []string
	var cur strings.Builder
	runes := []rune(term)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == ',' {
			flushAtom(&atoms, &cur)
			continue
		}
		if r == ' ' {
			trimmed := strings.TrimSpace(cur.String())
			if trimmed == "" || endsWithOperatorGlyph(trimmed) {
				cur.WriteRune(r)
				continue
			}
			flushAtom(&atoms, &cur)
			continue
		}
		cur.WriteRune(r)
	}
	flushAtom(&atoms, &cur)
	if len(atoms) == 0 {
		return []string{term}
	}
	return atoms
}

func flushAtom(atoms *[]string, cur *strings.Builder) {
	s := strings.TrimSpace(cur.String())
	if s != "" {
		*atoms = append(*atoms, s)
	}
	cur.Reset()
}

func endsWithOperatorGlyph(s string) bool {
	for _, glyph := range []string{"<=", ">=", "==", "<>", "!=", "<", ">", "="} {
		if strings.HasSuffix(s, glyph) {
			return true
		}
	}
	return false
}

// parseAtomicConstraint dispatches a single atomic constraint string
// to the appropriate range-building rule.
func parseAtomicConstraint(atom string) (Constraint, error) {
	atom = strings.TrimSpace(atom)
	if atom == "" {
		return nil, fmt.Errorf("%w: empty atomic constraint", resolveerr.ErrConstraintParse)
	}

	// Strip and discard an @stability flag; callers that need the
	// flag attached to a package name read it via ExtractStabilityFlag
	// before calling ParseConstraints.
	atom = stabilityFlagRe.ReplaceAllString(atom, "")
	atom = strings.TrimSpace(atom)
	if atom == "" {
		return MatchAll, nil
	}

	if invalidTildeGT.MatchString(atom) {
		return nil, fmt.Errorf("%w: %q is not a valid operator, use ~ instead", resolveerr.ErrInvalidOperator, "~>")
	}

	if wildcardRe.MatchString(atom) {
		if strings.ContainsAny(atom, "v.") {
			return Single{Op: OpGreaterEqual, Version: "0.0.0.0-dev"}, nil
		}
		return MatchAll, nil
	}

	if devNameRe.MatchString(atom) {
		return Single{Op: OpEqual, Version: atom}, nil
	}

	if m := tildeRe.FindStringSubmatch(atom); m != nil {
		return parseTildeConstraint(m)
	}

	if m := caretRe.FindStringSubmatch(atom); m != nil {
		return parseCaretConstraint(m)
	}

	if hasWildcardSegment(atom) {
		if m := xRangeRe.FindStringSubmatch(atom); m != nil {
			return parseXRangeConstraint(m)
		}
	}

	if m := basicComparatorRe.FindStringSubmatch(atom); m != nil {
		op, err := mustOperator(m[1])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", resolveerr.ErrInvalidOperator, err)
		}
		ver, err := Normalize(strings.TrimSpace(m[2]))
		if err != nil {
			return nil, err
		}
		ver = WithDevSuffixIfStable(op, ver)
		return Single{Op: op, Version: ver}, nil
	}

	// Bare version with no operator means "=".
	ver, err := Normalize(atom)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", resolveerr.ErrConstraintParse, err)
	}
	return Single{Op: OpEqual, Version: ver}, nil
}

func hasWildcardSegment(atom string) bool {
	return strings.ContainsAny(atom, "xX*")
}

func parseTildeConstraint(m []string) (Constraint, error) {
	segs, specified := extractSegments(m[1:5])
	lower := joinSegmentsDev(segs, 0, 0)

	bumpIndex := specified - 1
	if specified == 1 {
		bumpIndex = 0
	} else {
		bumpIndex = specified - 2
		if bumpIndex < 0 {
			bumpIndex = 0
		}
	}
	upperSegs := segs
	upperSegs[bumpIndex]++
	for i := bumpIndex + 1; i < 4; i++ {
		upperSegs[i] = 0
	}
	upper := joinSegmentsDev(upperSegs, 0, 0)

	return Multi{Children: []Constraint{
		Single{Op: OpGreaterEqual, Version: lower},
		Single{Op: OpLess, Version: upper},
	}, Conjunctive: true}, nil
}

func parseCaretConstraint(m []string) (Constraint, error) {
	segs, specified := extractSegments(m[1:4])
	lower := joinSegmentsDev(segs, 0, 0)

	bumpIndex := -1
	for i := 0; i < specified; i++ {
		if segs[i] != 0 {
			bumpIndex = i
			break
		}
	}
	upperSegs := segs
	if bumpIndex == -1 {
		// all-zero prefix: bump the first segment after the specified
		// ones, or 1.0 if everything was zero and nothing more was
		// specified.
		if specified < 4 {
			upperSegs[specified] = 1
			bumpIndex = specified
		} else {
			upperSegs[0] = 1
			bumpIndex = 0
		}
	} else {
		upperSegs[bumpIndex]++
	}
	for i := bumpIndex + 1; i < 4; i++ {
		upperSegs[i] = 0
	}
	upper := joinSegmentsDev(upperSegs, 0, 0)

	return Multi{Children: []Constraint{
		Single{Op: OpGreaterEqual, Version: lower},
		Single{Op: OpLess, Version: upper},
	}, Conjunctive: true}, nil
}

// extractSegments reads up to len(groups) captured numeric segments
// (each group may be "" or ".N"), zero-padding to four, and returns
// how many were actually specified by the user.
func extractSegments(groups []string) ([4]int64, int) {
	var segs [4]int64
	specified := 0
	for i, g := range groups {
		g = strings.TrimPrefix(g, ".")
		if g == "" || strings.HasPrefix(g, "-") {
			break
		}
		v, _ := strconv.ParseInt(g, 10, 64)
		segs[i] = v
		specified++
	}
	if specified == 0 {
		specified = 1
	}
	return segs, specified
}

func joinSegmentsDev(segs [4]int64, _ int, _ int) string {
	return fmt.Sprintf("%d.%d.%d.%d-dev", segs[0], segs[1], segs[2], segs[3])
}

func parseXRangeConstraint(m []string) (Constraint, error) {
	groups := []string{m[1], m[3], m[5], m[7]}
	var segs [4]int64
	pivot := -1
	for i, g := range groups {
		if g == "" {
			if pivot == -1 {
				pivot = i
			}
			continue
		}
		if g == "x" || g == "X" || g == "*" {
			if pivot == -1 {
				pivot = i
			}
			continue
		}
		v, err := strconv.ParseInt(g, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid numeric segment %q", resolveerr.ErrConstraintParse, g)
		}
		segs[i] = v
	}
	if pivot == -1 {
		pivot = 3
	}

	lower := joinSegmentsDev(segs, 0, 0)
	upperSegs := segs
	bumpIndex := pivot - 1
	if bumpIndex < 0 {
		bumpIndex = 0
	}
	upperSegs[bumpIndex]++
	for i := bumpIndex + 1; i < 4; i++ {
		upperSegs[i] = 0
	}
	upper := joinSegmentsDev(upperSegs, 0, 0)

	return Multi{Children: []Constraint{
		Single{Op: OpGreaterEqual, Version: lower},
		Single{Op: OpLess, Version: upper},
	}, Conjunctive: true}, nil
}

func parseHyphenConstraint(left, right string) (Constraint, error) {
	lowerVer, err := Normalize(left)
	if err != nil {
		return nil, err
	}
	lowerVer = WithDevSuffixIfStable(OpGreaterEqual, lowerVer)

	rightIsFull := isFullySpecified(right)
	if rightIsFull {
		upperVer, err := Normalize(right)
		if err != nil {
			return nil, err
		}
		return Multi{Children: []Constraint{
			Single{Op: OpGreaterEqual, Version: lowerVer},
			Single{Op: OpLessEqual, Version: upperVer},
		}, Conjunctive: true}, nil
	}

	// Partial right side, e.g. "1.0 - 2" means < 3.0.0.0-dev.
	parts := strings.Split(right, ".")
	var segs [4]int64
	for i, p := range parts {
		if i >= 4 {
			break
		}
		v, _ := strconv.ParseInt(p, 10, 64)
		segs[i] = v
	}
	bumpIndex := len(parts) - 1
	if bumpIndex < 0 || bumpIndex > 3 {
		bumpIndex = 0
	}
	segs[bumpIndex]++
	for i := bumpIndex + 1; i < 4; i++ {
		segs[i] = 0
	}
	upper := joinSegmentsDev(segs, 0, 0)
	return Multi{Children: []Constraint{
		Single{Op: OpGreaterEqual, Version: lowerVer},
		Single{Op: OpLess, Version: upper},
	}, Conjunctive: true}, nil
}

func isFullySpecified(v string) bool {
	return strings.Count(v, ".") >= 3
}

// ExtractStabilityFlag pulls a trailing "@stability" flag off a
// constraint string, returning the flag (if any) and the remaining
// text to feed to ParseConstraints.
func ExtractStabilityFlag(text string) (rest string, flag Stability, hasFlag bool) {
	loc := stabilityFlagRe.FindStringSubmatchIndex(text)
	if loc == nil {
		return text, 0, false
	}
	word := text[loc[2]:loc[3]]
	st, err := ParseStabilityFlag(word)
	if err != nil {
		return text, 0, false
	}
	rest = text[:loc[0]] + text[loc[1]:]
	return strings.TrimSpace(rest), st, true
}
