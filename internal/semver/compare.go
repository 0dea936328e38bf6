package semver

import (
	"strconv"
	"strings"
)

// specialOrder assigns the PHP version_compare rank to the alpha runs
// that carry stability meaning. Anything not listed (including the
// empty run, meaning "no suffix here") ranks as stable.
var specialOrder = map[string]int{
	"dev":   0,
	"alpha": 1,
	"a":     1,
	"beta":  2,
	"b":     2,
	"rc":    3,
	"":      4,
	"#":     4, // placeholder for "stable"/absent, see specialOrderOf
	"patch": 5,
	"pl":    5,
	"p":     5,
}

func specialOrderOf(run string) int {
	if run == "" {
		return 4
	}
	if v, ok := specialOrder[strings.ToLower(run)]; ok {
		return v
	}
	// Unrecognized alpha runs (arbitrary branch-ish text) sort as if
	// stable, same as an absent suffix; they carry no ordering meaning
	// of their own.
	return 4
}

// splitRuns breaks a version string into alternating digit and alpha
// runs, the representation PHP's version_compare operates on. A
// leading separator (".", "-", "_", "+") is dropped between runs.
func splitRuns(v string) []string {
	var runs []string
	var cur strings.Builder
	var curIsDigit bool
	first := true

	flush := func() {
		if cur.Len() > 0 {
			runs = append(runs, cur.String())
			cur.Reset()
		}
	}

	for _, r := range v {
		switch {
		case r == '.' || r == '-' || r == '_' || r == '+':
			flush()
			first = true
			continue
		case r >= '0' && r <= '9':
			if first || curIsDigit {
				cur.WriteRune(r)
			} else {
				flush()
				cur.WriteRune(r)
			}
			curIsDigit = true
		default:
			if first || !curIsDigit {
				cur.WriteRune(r)
			} else {
				flush()
				cur.WriteRune(r)
			}
			curIsDigit = false
		}
		first = false
	}
	flush()
	return runs
}

func isDigitRun(run string) bool {
	if run == "" {
		return false
	}
	for _, r := range run {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// CompareVersions implements the PHP-compatible version_compare
// relation over two normalized (or dev-branch) version strings. It
// returns <0, 0, >0 as a, b are less than, equal to, or greater than
// each other.
func CompareVersions(a, b string) int {
	aIsDev := strings.HasPrefix(a, "dev-")
	bIsDev := strings.HasPrefix(b, "dev-")
	if aIsDev || bIsDev {
		// Non-numeric dev branches only ever equal themselves. A dev
		// branch sorts below any numeric version, and two different
		// dev branches are ordered by plain string comparison (callers
		// such as the constraint matcher special case dev-branch
		// equality separately via direct string comparison before
		// reaching here).
		if a == b {
			return 0
		}
		if aIsDev && !bIsDev {
			return -1
		}
		if !aIsDev && bIsDev {
			return 1
		}
		return strings.Compare(a, b)
	}

	runsA := splitRuns(a)
	runsB := splitRuns(b)

	max := len(runsA)
	if len(runsB) > max {
		max = len(runsB)
	}

	for i := 0; i < max; i++ {
		var ra, rb string
		if i < len(runsA) {
			ra = runsA[i]
		}
		if i < len(runsB) {
			rb = runsB[i]
		}

		aDigit := isDigitRun(ra)
		bDigit := isDigitRun(rb)

		switch {
		case ra == "" && rb == "":
			continue
		case aDigit && bDigit:
			na, _ := strconv.ParseInt(ra, 10, 64)
			nb, _ := strconv.ParseInt(rb, 10, 64)
			if na != nb {
				if na < nb {
					return -1
				}
				return 1
			}
		case aDigit && !bDigit:
			// A numeric run outranks any alpha run at the same
			// position, e.g. "1.0" > "1.0-alpha" when lengths differ
			// at a tail position; but an explicit alpha run is
			// compared via the special-order table against the
			// implicit-empty ("stable") rank of a missing digit run.
			if rb == "" {
				return 1
			}
			return 1
		case !aDigit && bDigit:
			if ra == "" {
				return -1
			}
			return -1
		default:
			oa := specialOrderOf(ra)
			ob := specialOrderOf(rb)
			if oa != ob {
				if oa < ob {
					return -1
				}
				return 1
			}
			if ra != rb {
				return strings.Compare(ra, rb)
			}
		}
	}
	return 0
}
