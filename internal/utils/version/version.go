// Package version compares dotted package versions and evaluates the
// inclusive range expressions used by recipe dependency constraints.
//
// Range syntax:
//
//	3.1.2     the version itself or any version it prefixes (3.1.2.1)
//	:3.1.1    anything up to and including 3.1.1
//	8:        8 and above
//	2.5:3.0   inclusive on both ends
package version

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// components splits v into its dotted numeric components.
func components(v string) ([]string, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(v), "v")
	if raw == "" {
		return nil, fmt.Errorf("empty version")
	}

	parts := strings.Split(raw, ".")
	for _, p := range parts {
		if p == "" || strings.TrimLeft(p, "0123456789") != "" {
			return nil, fmt.Errorf("invalid version %q", v)
		}
		// semver rejects leading zeros
		if len(p) > 1 && p[0] == '0' {
			return nil, fmt.Errorf("invalid version %q: leading zero in %q", v, p)
		}
	}
	return parts, nil
}

// Canonical converts a dotted numeric version into a semver string made of
// its first three components. Further components are validated but dropped;
// Compare orders them.
func Canonical(v string) (string, error) {
	parts, err := components(v)
	if err != nil {
		return "", err
	}
	if len(parts) > 3 {
		parts = parts[:3]
	}

	sv := "v" + strings.Join(parts, ".")
	if !semver.IsValid(sv) {
		return "", fmt.Errorf("invalid version %q", v)
	}
	return sv, nil
}

// Compare returns -1, 0 or +1 ordering a against b. Components past the
// third are compared numerically, a missing component counting as 0.
func Compare(a, b string) (int, error) {
	ca, err := Canonical(a)
	if err != nil {
		return 0, err
	}
	cb, err := Canonical(b)
	if err != nil {
		return 0, err
	}
	if c := semver.Compare(ca, cb); c != 0 {
		return c, nil
	}

	pa, _ := components(a)
	pb, _ := components(b)
	for i := 3; i < len(pa) || i < len(pb); i++ {
		if c := compareNumeric(component(pa, i), component(pb, i)); c != 0 {
			return c, nil
		}
	}
	return 0, nil
}

func component(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return "0"
}

// compareNumeric orders two digit strings without leading zeros.
func compareNumeric(a, b string) int {
	switch {
	case len(a) != len(b):
		if len(a) < len(b) {
			return -1
		}
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// hasPrefix reports whether v equals p or extends it by further components.
func hasPrefix(v, p string) bool {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	p = strings.TrimPrefix(strings.TrimSpace(p), "v")
	return v == p || strings.HasPrefix(v, p+".")
}

// Satisfies reports whether v falls inside the range expression rng.
func Satisfies(v, rng string) (bool, error) {
	rng = strings.TrimSpace(rng)
	if rng == "" || rng == ":" {
		if _, err := Canonical(v); err != nil {
			return false, err
		}
		return true, nil
	}

	lo, hi, isRange := strings.Cut(rng, ":")
	if !isRange {
		if _, err := Canonical(v); err != nil {
			return false, err
		}
		if _, err := Canonical(rng); err != nil {
			return false, fmt.Errorf("invalid range %q: %w", rng, err)
		}
		return hasPrefix(v, rng), nil
	}

	if lo != "" {
		c, err := Compare(v, lo)
		if err != nil {
			return false, fmt.Errorf("evaluating %s against %q: %w", v, rng, err)
		}
		if c < 0 {
			return false, nil
		}
	}
	if hi != "" {
		c, err := Compare(v, hi)
		if err != nil {
			return false, fmt.Errorf("evaluating %s against %q: %w", v, rng, err)
		}
		if c > 0 && !hasPrefix(v, hi) {
			return false, nil
		}
	}
	return true, nil
}

// MustSatisfy is Satisfies for callers that treat malformed input as "no".
func MustSatisfy(v, rng string) bool {
	ok, err := Satisfies(v, rng)
	return err == nil && ok
}
