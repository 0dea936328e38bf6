package semver

import "testing"

func TestNormalizeClassicalForm(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"1", "1.0.0.0"},
		{"v1.0.0", "1.0.0.0"},
		{"1.0.0RC1dev", "1.0.0.0-RC1-dev"},
		{"1.0.0.pl3-dev", "1.0.0.0-patch3-dev"},
		{"1.0.0-beta2", "1.0.0.0-beta2"},
		{"2.0.0-stable", "2.0.0.0"},
	}
	for _, c := range cases {
		t.Run(c.raw, func(t *testing.T) {
			got, err := Normalize(c.raw)
			if err != nil {
				t.Fatalf("Normalize(%q) returned error: %v", c.raw, err)
			}
			if got != c.want {
				t.Fatalf("Normalize(%q) = %q, want %q", c.raw, got, c.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	raws := []string{"1", "v1.2.3", "1.0.0-RC1dev", "1.0.0.pl3-dev", "dev-master", "v1.x", "2021.01.01"}
	for _, raw := range raws {
		n1, err := Normalize(raw)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", raw, err)
		}
		n2, err := Normalize(n1)
		if err != nil {
			t.Fatalf("Normalize(%q) (second pass): %v", n1, err)
		}
		if n1 != n2 {
			t.Fatalf("normalize not idempotent: normalize(%q)=%q, normalize(%q)=%q", raw, n1, n1, n2)
		}
	}
}

func TestNormalizeBranch(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"v1.x", "1.9999999.9999999.9999999-dev"},
		{"master", "dev-master"},
	}
	for _, c := range cases {
		got, err := NormalizeBranch(c.raw)
		if err != nil {
			t.Fatalf("NormalizeBranch(%q): %v", c.raw, err)
		}
		if got != c.want {
			t.Fatalf("NormalizeBranch(%q) = %q, want %q", c.raw, got, c.want)
		}
	}
}

func TestParseStability(t *testing.T) {
	cases := []struct {
		raw  string
		want Stability
	}{
		{"3.0-RC2", StabilityRC},
		{"dev-master", StabilityDev},
		{"3.1.2-p1", StabilityStable},
	}
	for _, c := range cases {
		got, err := ParseStability(c.raw)
		if err != nil {
			t.Fatalf("ParseStability(%q): %v", c.raw, err)
		}
		if got != c.want {
			t.Fatalf("ParseStability(%q) = %v, want %v", c.raw, got, c.want)
		}
	}
}

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"2.1.0.0-dev", "2.1.0.0", -1},
		{"1.0-alpha", "1.0-beta", -1},
		{"1.0", "1.0-patch", -1},
	}
	for _, c := range cases {
		got := CompareVersions(c.a, c.b)
		if sign(got) != c.want {
			t.Fatalf("CompareVersions(%q, %q) = %d, want sign %d", c.a, c.b, got, c.want)
		}
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

func TestConstraintMatchingSymmetry(t *testing.T) {
	exprs := []string{"^1.2.3", "~1.2", ">=1.0,<2.0", "1.0.*", "dev-main", "!=1.5.0"}
	for _, ea := range exprs {
		for _, eb := range exprs {
			a, err := ParseConstraints(ea)
			if err != nil {
				t.Fatalf("ParseConstraints(%q): %v", ea, err)
			}
			b, err := ParseConstraints(eb)
			if err != nil {
				t.Fatalf("ParseConstraints(%q): %v", eb, err)
			}
			if a.Matches(b) != b.Matches(a) {
				t.Fatalf("asymmetric match: %q vs %q: a.Matches(b)=%v, b.Matches(a)=%v", ea, eb, a.Matches(b), b.Matches(a))
			}
		}
	}
}

func TestWildcardEquivalence(t *testing.T) {
	c, err := ParseConstraints("2.*")
	if err != nil {
		t.Fatal(err)
	}
	accept := EqualTo("2.5.0.0")
	reject := EqualTo("3.0.0.0")
	if !c.Matches(accept) {
		t.Fatalf("2.* should accept 2.5.0.0")
	}
	if c.Matches(reject) {
		t.Fatalf("2.* should reject 3.0.0.0")
	}
}

func TestCaretZeroPreservation(t *testing.T) {
	c, err := ParseConstraints("^0.2.3")
	if err != nil {
		t.Fatal(err)
	}
	if !c.Matches(EqualTo("0.2.4.0")) {
		t.Fatalf("^0.2.3 should accept 0.2.4")
	}
	if c.Matches(EqualTo("0.3.0.0")) {
		t.Fatalf("^0.2.3 should reject 0.3.0")
	}

	c2, err := ParseConstraints("^1.2.3")
	if err != nil {
		t.Fatal(err)
	}
	if !c2.Matches(EqualTo("1.9.0.0")) {
		t.Fatalf("^1.2.3 should accept 1.9.0")
	}
	if c2.Matches(EqualTo("2.0.0.0")) {
		t.Fatalf("^1.2.3 should reject 2.0.0")
	}
}

func TestTildeOperatorRejected(t *testing.T) {
	_, err := ParseConstraints("~>1.0")
	if err == nil {
		t.Fatalf("expected error for ~> operator")
	}
}
