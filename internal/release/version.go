// Package release parses and orders the version numbers of API releases:
// major.minor[.patch] optionally followed by -M<k> (milestone) or -SNAPSHOT.
package release

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"apidiff/internal/errors"
)

// Milestone sentinels. Release sorts after every milestone number and
// Snapshot sorts just below Release.
const (
	Release  = math.MaxInt32
	Snapshot = math.MaxInt32 - 1
)

// Version is an immutable API release number.
type Version struct {
	major     int
	minor     int
	patch     int
	milestone int
	// digits is the width the milestone number was written with ("M07" is 2).
	// Only used for rendering.
	digits int
}

// New returns the final release major.minor.patch.
func New(major, minor, patch int) Version {
	return Version{major: major, minor: minor, patch: patch, milestone: Release}
}

// NewMilestone returns a pre-release. Pass Release or Snapshot as milestone
// for the sentinel forms.
func NewMilestone(major, minor, patch, milestone int) Version {
	return Version{major: major, minor: minor, patch: patch, milestone: milestone}
}

// Parse parses "M.m", "M.m.p", "M.m-M<k>", "M.m.p-M<k>", "M.m-SNAPSHOT" and
// "M.m.p-SNAPSHOT".
//
// String gives the input back except for the patch number: a release
// always prints it and a pre-release drops it when zero, so "3.1" prints
// as "3.1.0" and "3.1.0-M07" as "3.1-M07".
func Parse(s string) (Version, error) {
	core, suffix, hasSuffix := strings.Cut(s, "-")

	parts := strings.Split(core, ".")
	switch {
	case len(parts) < 2:
		return Version{}, formatError("missing major.minor separator", core)
	case len(parts) > 3:
		return Version{}, formatError("too many version components", core)
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := parseNumber(p)
		if err != nil {
			return Version{}, formatError("version component is not a number", p)
		}
		nums[i] = n
	}

	v := Version{major: nums[0], minor: nums[1], patch: nums[2], milestone: Release}
	if !hasSuffix {
		return v, nil
	}

	switch {
	case suffix == "":
		return Version{}, formatError(`missing "M" or "SNAPSHOT" after dash`, s)
	case suffix == "SNAPSHOT":
		v.milestone = Snapshot
	case strings.HasPrefix(suffix, "M"):
		digits := suffix[1:]
		n, err := parseNumber(digits)
		if err != nil || n >= Snapshot {
			return Version{}, formatError("milestone number is not numeric", suffix)
		}
		v.milestone = n
		if len(digits) > 1 && digits[0] == '0' {
			v.digits = len(digits)
		}
	default:
		return Version{}, formatError(`milestone must be "M<number>" or "SNAPSHOT"`, suffix)
	}
	return v, nil
}

// MustParse is like Parse but panics on malformed input.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func parseNumber(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("invalid digit %q", r)
		}
	}
	return strconv.Atoi(s)
}

func formatError(msg, input string) error {
	return errors.Newf(errors.FormatError, "invalid version: %s", msg).
		WithInput(input).
		WithStage(errors.StageParse)
}

// Major returns the major number.
func (v Version) Major() int { return v.major }

// Minor returns the minor number.
func (v Version) Minor() int { return v.minor }

// Patch returns the patch number.
func (v Version) Patch() int { return v.patch }

// Milestone returns the milestone number, Release or Snapshot.
func (v Version) Milestone() int { return v.milestone }

// IsMilestone reports whether v is a pre-release (milestone or snapshot).
func (v Version) IsMilestone() bool {
	return v.milestone != Release
}

// IsSnapshot reports whether v is a development snapshot.
func (v Version) IsSnapshot() bool {
	return v.milestone == Snapshot
}

// IsZero reports whether v is the zero Version (never produced by Parse).
func (v Version) IsZero() bool {
	return v == Version{}
}

// Compare returns -1, 0 or +1 ordering by major, minor, patch, milestone.
func (v Version) Compare(other Version) int {
	for _, d := range [...]int{
		v.major - other.major,
		v.minor - other.minor,
		v.patch - other.patch,
	} {
		if d != 0 {
			return sign(d)
		}
	}
	switch {
	case v.milestone < other.milestone:
		return -1
	case v.milestone > other.milestone:
		return 1
	}
	return 0
}

// Less reports whether v sorts before other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

func sign(d int) int {
	if d < 0 {
		return -1
	}
	return 1
}

// String renders v. Releases always show the patch number; pre-releases
// show it only when it is not zero.
func (v Version) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d.%d", v.major, v.minor)
	if v.milestone == Release || v.patch != 0 {
		fmt.Fprintf(&b, ".%d", v.patch)
	}
	switch v.milestone {
	case Release:
	case Snapshot:
		b.WriteString("-SNAPSHOT")
	default:
		fmt.Fprintf(&b, "-M%0*d", v.digits, v.milestone)
	}
	return b.String()
}

// Tag returns the tag a Go module uses for this release ("v3.1.0").
func (v Version) Tag() string {
	return "v" + v.String()
}

// Semver returns the canonical semantic version used by the Go module
// cache: the patch is always present ("v3.1.0-M07").
func (v Version) Semver() string {
	s := fmt.Sprintf("v%d.%d.%d", v.major, v.minor, v.patch)
	switch v.milestone {
	case Release:
	case Snapshot:
		s += "-SNAPSHOT"
	default:
		s += fmt.Sprintf("-M%0*d", v.digits, v.milestone)
	}
	return s
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
