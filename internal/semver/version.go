package semver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shyim/pox-sub000/internal/resolveerr"
)

// classicalVersionRe matches "v1.2.3-RC1dev"-style versions: one to four
// dot-separated numeric segments, an optional stability tag with an
// optional numeric tail, and an optional trailing "-dev"/"dev" marker.
var classicalVersionRe = regexp.MustCompile(
	`(?i)^v?(\d+)(\.\d+)?(\.\d+)?(\.\d+)?` +
		`(?:[._-]?(stable|alpha|a|beta|b|rc|patch|pl|p)(\d*))?` +
		`(?:[._-]?dev)?$`,
)

// dateVersionRe matches CalVer-ish dates such as "2021.01.01" or
// "20210101-dev".
var dateVersionRe = regexp.MustCompile(
	`^(\d{4}(?:[.:-]?\d{2}){1,6})(?:[.-]?dev)?$`,
)

// branchVersionRe matches branch-alias forms like "v1.x", "2.3.*",
// "1.0" used as a branch rather than a tag.
var branchVersionRe = regexp.MustCompile(
	`(?i)^v?(\d+|[xX*])(\.(?:\d+|[xX*]))?(\.(?:\d+|[xX*]))?(\.(?:\d+|[xX*]))?(?:-dev)?$`,
)

var aliasClauseRe = regexp.MustCompile(`(?i)\s+as\s+`)
var stabilityFlagSuffixRe = regexp.MustCompile(`(?i)@(stable|RC|beta|alpha|dev)$`)
var refSuffixRe = regexp.MustCompile(`#.*$`)

// Normalize converts a raw, user-facing version string into its
// normalized four-segment form with an optional stability/dev suffix.
// It tries fastNormalize first and falls back to the full
// (regex-based) slow path when that declines the input.
func Normalize(raw string) (string, error) {
	if n, ok := fastNormalize(raw); ok {
		return n, nil
	}
	return normalizeSlow(raw)
}

// fastNormalize handles the overwhelmingly common case - "1", "1.2",
// "1.2.3", "v1.2.3" with no stability suffix, no metadata, no branch
// wildcards - in linear time without invoking the regexp engine.
func fastNormalize(raw string) (string, bool) {
	s := raw
	if s == "" {
		return "", false
	}
	if s[0] == 'v' || s[0] == 'V' {
		s = s[1:]
	}
	if s == "" {
		return "", false
	}

	var segments [4]string
	count := 0
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '.' {
			if i == start {
				return "", false // empty segment, e.g. "1..2"
			}
			if count == 4 {
				return "", false // more than four segments
			}
			seg := s[start:i]
			for _, c := range seg {
				if c < '0' || c > '9' {
					return "", false
				}
			}
			// Leading zeros are kept as written, exactly as the
			// classical-form regex in the slow path keeps them, so
			// both paths give byte-identical results.
			segments[count] = seg
			count++
			start = i + 1
		}
	}
	if count == 0 {
		return "", false
	}

	var b strings.Builder
	for i := 0; i < 4; i++ {
		if i > 0 {
			b.WriteByte('.')
		}
		if i < count {
			b.WriteString(segments[i])
		} else {
			b.WriteByte('0')
		}
	}
	return b.String(), true
}

func normalizeSlow(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty version string", resolveerr.ErrInvalidVersion)
	}

	// Step 2: strip "X as Y" alias clause, normalizing only the X side.
	if loc := aliasClauseRe.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}

	// Step 3: strip a trailing "@stability" flag.
	s = stabilityFlagSuffixRe.ReplaceAllString(s, "")

	lower := strings.ToLower(s)

	// Step 4: named default branches.
	switch lower {
	case "master":
		return "dev-master", nil
	case "trunk":
		return "dev-trunk", nil
	case "default":
		return "dev-default", nil
	}

	// Step 5: explicit dev-* branch.
	if strings.HasPrefix(lower, "dev-") {
		return "dev-" + s[4:], nil
	}

	// Step 6: strip "+buildmetadata".
	if idx := strings.IndexByte(s, '+'); idx >= 0 {
		s = s[:idx]
	}

	// Step 7: classical form.
	if m := classicalVersionRe.FindStringSubmatch(s); m != nil {
		return normalizeClassicalMatch(m), nil
	}

	// Step 8: date form.
	if m := dateVersionRe.FindStringSubmatch(s); m != nil {
		digits := strings.Map(func(r rune) rune {
			if r < '0' || r > '9' {
				return '.'
			}
			return r
		}, m[1])
		isDev := strings.HasSuffix(lower, "dev")
		out := digits
		if isDev {
			out += "-dev"
		}
		return out, nil
	}

	// Step 9: branch form.
	if m := branchVersionRe.FindStringSubmatch(s); m != nil {
		return normalizeBranchMatch(m), nil
	}

	// Step 10: best-effort explanation.
	if aliasClauseRe.MatchString(raw) {
		return "", fmt.Errorf("%w: alias clause %q requires both sides to be exact versions", resolveerr.ErrInvalidVersion, raw)
	}
	return "", fmt.Errorf("%w: could not parse version %q", resolveerr.ErrInvalidVersion, raw)
}

func normalizeClassicalMatch(m []string) string {
	segs := []string{"0", "0", "0", "0"}
	for i := 0; i < 3; i++ {
		if m[i+2] != "" {
			segs[i+1] = strings.TrimPrefix(m[i+2], ".")
		}
	}
	segs[0] = m[1]

	base := strings.Join(segs, ".")

	stabilityWord := strings.ToLower(m[5])
	numTail := m[6]
	isDev := m[0] != "" && strings.Contains(strings.ToLower(m[0]), "dev")

	if stabilityWord == "" {
		if isDev {
			return base + "-dev"
		}
		return base
	}
	if stabilityWord == "stable" {
		if isDev {
			return base + "-dev"
		}
		return base
	}

	expanded := expandStabilityWord(stabilityWord)
	suffix := "-" + expanded + numTail
	if isDev {
		suffix += "-dev"
	}
	return base + suffix
}

func expandStabilityWord(word string) string {
	switch word {
	case "a":
		return "alpha"
	case "b":
		return "beta"
	case "p", "pl":
		return "patch"
	case "rc":
		return "RC"
	default:
		return word
	}
}

func normalizeBranchMatch(m []string) string {
	segVals := []string{m[1]}
	for i := 2; i <= 4; i++ {
		if m[i] != "" {
			segVals = append(segVals, strings.TrimPrefix(m[i], "."))
		}
	}
	out := make([]string, 4)
	for i := 0; i < 4; i++ {
		if i < len(segVals) {
			v := segVals[i]
			if v == "x" || v == "X" || v == "*" {
				out[i] = "9999999"
			} else {
				out[i] = v
			}
		} else {
			out[i] = "9999999"
		}
	}
	return strings.Join(out, ".") + "-dev"
}

// NormalizeBranch normalizes a branch name specifically (used when the
// caller already knows the raw string names a VCS branch rather than a
// tag, e.g. a root package's installed development branch).
func NormalizeBranch(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	lower := strings.ToLower(s)
	switch lower {
	case "master", "trunk", "default":
		return "dev-" + lower, nil
	}
	if m := branchVersionRe.FindStringSubmatch(s); m != nil {
		return normalizeBranchMatch(m), nil
	}
	return "dev-" + s, nil
}

// StripVCSRef removes a trailing "#ref" VCS pointer from a raw version
// string, as used before stability classification and dev-constraint
// matching.
func StripVCSRef(raw string) string {
	return refSuffixRe.ReplaceAllString(raw, "")
}

// segmentsOf splits a normalized numeric version (no "dev-" prefix)
// into its four integer segments, ignoring any stability suffix.
func segmentsOf(normalized string) ([4]int64, string) {
	base := normalized
	suffix := ""
	if idx := strings.IndexByte(normalized, '-'); idx >= 0 {
		base = normalized[:idx]
		suffix = normalized[idx:]
	}
	parts := strings.Split(base, ".")
	var out [4]int64
	for i := 0; i < 4 && i < len(parts); i++ {
		v, _ := strconv.ParseInt(parts[i], 10, 64)
		out[i] = v
	}
	return out, suffix
}
