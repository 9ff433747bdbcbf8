// Package matching decides which subscribers should hear about a listing.
package matching

import (
	"context"
	"fmt"

	"github.com/mael-bomane/earn-bot/internal/listing"
	"github.com/mael-bomane/earn-bot/internal/storage"
)

// Resolver picks recipients for a listing from the notifiable subscribers.
type Resolver struct {
	subscribers storage.SubscriberStore
}

// NewResolver returns a Resolver reading candidates from subscribers.
func NewResolver(subscribers storage.SubscriberStore) *Resolver {
	return &Resolver{subscribers: subscribers}
}

// Candidates loads every subscriber eligible for any notification: setup
// completed and a preference other than NONE. A detection cycle loads them
// once and filters them per listing with Match.
func (r *Resolver) Candidates(ctx context.Context) ([]*storage.Subscriber, error) {
	subs, err := r.subscribers.ListNotifiable(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading notifiable subscribers: %w", err)
	}
	return subs, nil
}

// Match filters candidates down to those whose preferences accept l. The
// input order is kept.
func Match(l listing.Listing, candidates []*storage.Subscriber) []*storage.Subscriber {
	out := make([]*storage.Subscriber, 0, len(candidates))
	for _, sub := range candidates {
		if Accepts(sub, l) {
			out = append(out, sub)
		}
	}
	return out
}

// Accepts applies the type, region, skill and reward gates in that order.
func Accepts(sub *storage.Subscriber, l listing.Listing) bool {
	if sub == nil || !sub.Setup {
		return false
	}
	return typeGate(sub, l) && regionGate(sub, l) && skillGate(sub, l) && rewardGate(sub, l)
}

func typeGate(sub *storage.Subscriber, l listing.Listing) bool {
	return sub.NotificationType.Accepts(l.Type)
}

// regionGate passes on an exact region match or when either side is GLOBAL.
// A GLOBAL listing is open to everyone, and a subscriber whose region is
// GLOBAL asked for every region.
func regionGate(sub *storage.Subscriber, l listing.Listing) bool {
	if l.Region == listing.RegionGlobal || sub.Region == listing.RegionGlobal {
		return true
	}
	return sub.Region == l.Region
}

func skillGate(sub *storage.Subscriber, l listing.Listing) bool {
	want := make(map[listing.Skill]struct{}, len(sub.Skills))
	for _, s := range sub.Skills {
		if s == listing.SkillAll {
			return true
		}
		want[s] = struct{}{}
	}
	for _, s := range l.Skills {
		if _, ok := want[s]; ok {
			return true
		}
	}
	return false
}

// rewardGate compares against the listing's effective payout. A listing
// without any derivable value only passes a zero threshold.
func rewardGate(sub *storage.Subscriber, l listing.Listing) bool {
	if sub.MinReward <= 0 {
		return true
	}
	v, ok := l.EffectivePayout()
	return ok && v >= sub.MinReward
}
