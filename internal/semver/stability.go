package semver

import (
	"fmt"
	"strings"

	"github.com/shyim/pox-sub000/internal/resolveerr"
)

// Stability is one of the five Composer stability tiers, ordered from
// least to most stable by Priority.
type Stability int

const (
	StabilityDev Stability = iota
	StabilityAlpha
	StabilityBeta
	StabilityRC
	StabilityStable
)

// Priority returns the ordering rank used by the policy and by the
// pool's minimum-stability filter. Lower is less stable.
func (s Stability) Priority() int {
	return int(s)
}

func (s Stability) String() string {
	switch s {
	case StabilityDev:
		return "dev"
	case StabilityAlpha:
		return "alpha"
	case StabilityBeta:
		return "beta"
	case StabilityRC:
		return "RC"
	case StabilityStable:
		return "stable"
	default:
		return "unknown"
	}
}

// ParseStabilityFlag maps a user-facing stability name (as used in
// minimum-stability config and @stability constraint flags) to a
// Stability value.
func ParseStabilityFlag(raw string) (Stability, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "dev":
		return StabilityDev, nil
	case "alpha", "a":
		return StabilityAlpha, nil
	case "beta", "b":
		return StabilityBeta, nil
	case "rc":
		return StabilityRC, nil
	case "stable", "":
		return StabilityStable, nil
	default:
		return 0, fmt.Errorf("%w: %q", resolveerr.ErrInvalidStability, raw)
	}
}

// ParseStability derives the stability of a raw (unnormalized) version
// string, stripping any trailing "#ref" VCS reference first.
func ParseStability(raw string) (Stability, error) {
	if idx := strings.IndexByte(raw, '#'); idx >= 0 {
		raw = raw[:idx]
	}

	normalized, err := Normalize(raw)
	if err != nil {
		return 0, err
	}
	return stabilityOfNormalized(normalized), nil
}

// stabilityOfNormalized derives stability purely from an already
// normalized version string's suffix; it performs no parsing of its own.
func stabilityOfNormalized(normalized string) Stability {
	if strings.HasPrefix(normalized, "dev-") || strings.HasSuffix(normalized, "-dev") {
		return StabilityDev
	}

	idx := strings.IndexByte(normalized, '-')
	if idx < 0 {
		return StabilityStable
	}
	suffix := strings.ToLower(normalized[idx+1:])
	switch {
	case strings.HasPrefix(suffix, "alpha") || strings.HasPrefix(suffix, "a"):
		return StabilityAlpha
	case strings.HasPrefix(suffix, "beta") || strings.HasPrefix(suffix, "b"):
		return StabilityBeta
	case strings.HasPrefix(suffix, "rc"):
		return StabilityRC
	default:
		// patch/pl/p tags, and anything else trailing a numeric
		// version, map to stable.
		return StabilityStable
	}
}
