package listing

import (
	"strings"
)

// Region is a canonical (upper-case) marketplace region code.
type Region string

// RegionGlobal is the wildcard region: a GLOBAL listing is open to everyone
// and a GLOBAL subscriber wants every region.
const RegionGlobal Region = "GLOBAL"

// Skill is a canonical (upper-case) skill tag.
type Skill string

// SkillAll is the subscriber-side wildcard meaning "any skill".
const SkillAll Skill = "ALL"

// KnownSkills lists every selectable skill, wildcard last.
var KnownSkills = []Skill{
	"FRONTEND", "BACKEND", "MOBILE", "BLOCKCHAIN", "DESIGN",
	"CONTENT", "COMMUNITY", "GROWTH", "OTHER", SkillAll,
}

// canonical upper-cases s, trims it and folds inner spaces and dashes into
// underscores so "north america", "North-America" and "NORTH_AMERICA" compare
// equal.
func canonical(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return '_'
		}
		return r
	}, s)
}

// CanonicalRegion normalizes a raw region value. Empty input maps to GLOBAL.
func CanonicalRegion(s string) Region {
	c := canonical(s)
	if c == "" {
		return RegionGlobal
	}
	return Region(c)
}

// CanonicalSkill normalizes a raw skill tag.
func CanonicalSkill(s string) Skill {
	return Skill(canonical(s))
}

// CanonicalSkills normalizes, deduplicates and drops empty tags while keeping
// the first-seen order.
func CanonicalSkills(raw []string) []Skill {
	out := make([]Skill, 0, len(raw))
	seen := make(map[Skill]struct{}, len(raw))
	for _, r := range raw {
		s := CanonicalSkill(r)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// IsKnownSkill reports whether s is one of KnownSkills.
func IsKnownSkill(s Skill) bool {
	for _, k := range KnownSkills {
		if k == s {
			return true
		}
	}
	return false
}

// CanonicalType normalizes a raw listing type. The second result is false for
// anything that is not notifiable, hackathons included.
func CanonicalType(s string) (Type, bool) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case TypeBounty:
		return TypeBounty, true
	case TypeProject:
		return TypeProject, true
	}
	return "", false
}

// CanonicalCompensation normalizes a raw compensation type. Unknown or empty
// values are treated as fixed.
func CanonicalCompensation(s string) CompensationType {
	switch CompensationType(strings.ToLower(strings.TrimSpace(s))) {
	case CompensationRange:
		return CompensationRange
	case CompensationVariable:
		return CompensationVariable
	}
	return CompensationFixed
}
