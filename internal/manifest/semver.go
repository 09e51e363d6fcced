package manifest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/staminal/host/internal/staminalerr"
)

// Version is a parsed semantic version triple. No pack example ships a
// semver library, so this is a deliberately small stdlib-only comparator
// (see DESIGN.md for the justification).
type Version struct {
	Major, Minor, Patch int
}

// ParseVersion parses "MAJOR.MINOR.PATCH", tolerating a missing minor/patch.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	parts := strings.SplitN(s, ".", 3)
	var v Version
	var err error
	if v.Major, err = atoiPart(parts, 0); err != nil {
		return v, staminalerr.Newf(staminalerr.ManifestInvalid, "invalid version %q: %v", s, err)
	}
	if v.Minor, err = atoiPart(parts, 1); err != nil {
		return v, staminalerr.Newf(staminalerr.ManifestInvalid, "invalid version %q: %v", s, err)
	}
	if v.Patch, err = atoiPart(parts, 2); err != nil {
		return v, staminalerr.Newf(staminalerr.ManifestInvalid, "invalid version %q: %v", s, err)
	}
	return v, nil
}

func atoiPart(parts []string, i int) (int, error) {
	if i >= len(parts) || parts[i] == "" {
		return 0, nil
	}
	return strconv.Atoi(parts[i])
}

func (v Version) Compare(o Version) int {
	if v.Major != o.Major {
		return sign(v.Major - o.Major)
	}
	if v.Minor != o.Minor {
		return sign(v.Minor - o.Minor)
	}
	return sign(v.Patch - o.Patch)
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Constraint is a minimal semver-range matcher supporting the operators
// "^", "~", ">=", "<=", ">", "<", "=", and bare versions (treated as "=").
type Constraint struct {
	op  string
	ver Version
}

// ParseConstraint parses a single-clause range expression.
func ParseConstraint(s string) (Constraint, error) {
	s = strings.TrimSpace(s)
	for _, op := range []string{">=", "<=", "^", "~", ">", "<", "="} {
		if strings.HasPrefix(s, op) {
			v, err := ParseVersion(strings.TrimSpace(strings.TrimPrefix(s, op)))
			if err != nil {
				return Constraint{}, err
			}
			return Constraint{op: op, ver: v}, nil
		}
	}
	v, err := ParseVersion(s)
	if err != nil {
		return Constraint{}, err
	}
	return Constraint{op: "=", ver: v}, nil
}

// Satisfies reports whether v meets the constraint.
func (c Constraint) Satisfies(v Version) bool {
	switch c.op {
	case "=":
		return v.Compare(c.ver) == 0
	case ">":
		return v.Compare(c.ver) > 0
	case ">=":
		return v.Compare(c.ver) >= 0
	case "<":
		return v.Compare(c.ver) < 0
	case "<=":
		return v.Compare(c.ver) <= 0
	case "~":
		return v.Major == c.ver.Major && v.Minor == c.ver.Minor && v.Patch >= c.ver.Patch
	case "^":
		return v.Major == c.ver.Major && v.Compare(c.ver) >= 0
	default:
		return false
	}
}
