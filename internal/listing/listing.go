// Package listing defines the marketplace listing model consumed by the
// notification pipeline, the canonical enums it is compared on, and the
// repository that reads eligible listings from the marketplace database.
package listing

import "time"

// Type is the kind of a listing. Only bounties and projects are notifiable;
// hackathons never reach this package.
type Type string

// Notifiable listing types.
const (
	TypeBounty  Type = "bounty"
	TypeProject Type = "project"
)

// CompensationType describes how a listing pays out.
type CompensationType string

// Compensation types.
const (
	CompensationFixed    CompensationType = "fixed"
	CompensationRange    CompensationType = "range"
	CompensationVariable CompensationType = "variable"
)

// Listing is a published, active, open bounty or project as seen by the
// detector. It is also the body of every notification payload, so the JSON
// shape is persisted.
type Listing struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Slug             string           `json:"slug"`
	Link             string           `json:"link"`
	Payout           *float64         `json:"payout,omitempty"`
	Token            string           `json:"token,omitempty"`
	MinRewardAsk     *float64         `json:"minRewardAsk,omitempty"`
	MaxRewardAsk     *float64         `json:"maxRewardAsk,omitempty"`
	CompensationType CompensationType `json:"compensationType"`
	SponsorName      string           `json:"sponsorName"`
	Deadline         *time.Time       `json:"deadline,omitempty"`
	Skills           []Skill          `json:"skillsNeeded"`
	Region           Region           `json:"region"`
	Type             Type             `json:"type"`
}

// EffectivePayout returns the value compared against a subscriber's minimum
// reward: the fixed payout, or the lower bound of a range or variable ask.
// The second result is false when no value can be derived.
func (l Listing) EffectivePayout() (float64, bool) {
	switch l.CompensationType {
	case CompensationRange, CompensationVariable:
		if l.MinRewardAsk != nil {
			return *l.MinRewardAsk, true
		}
		return 0, false
	default:
		if l.Payout != nil {
			return *l.Payout, true
		}
		return 0, false
	}
}

// SameDeadline reports whether two nullable deadlines are equal at full
// timestamp precision. Two nil deadlines are equal; nil never equals a value.
func SameDeadline(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
