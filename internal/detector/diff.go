// Package detector compares the current listing set with the last snapshot
// and schedules notifications for every change it finds.
package detector

import (
	"sort"
	"time"

	"github.com/mael-bomane/earn-bot/internal/listing"
	"github.com/mael-bomane/earn-bot/internal/storage"
)

// Event is one detected change to a listing.
type Event struct {
	Type        storage.ChangeType
	Listing     listing.Listing
	OldRegion   *listing.Region
	OldDeadline *time.Time
}

// Diff returns the change events between prev and current. A listing absent
// from prev yields only a new-listing event. Region and deadline changes are
// independent and may both fire for one listing. Listings missing from
// current yield nothing. Events follow the order of current.
func Diff(prev map[string]listing.Listing, current []listing.Listing) []Event {
	events := make([]Event, 0)
	for _, l := range current {
		old, seen := prev[l.ID]
		if !seen {
			events = append(events, Event{Type: storage.ChangeNewListing, Listing: l})
			continue
		}
		if old.Region != l.Region {
			region := old.Region
			events = append(events, Event{Type: storage.ChangeRegionUpdated, Listing: l, OldRegion: &region})
		}
		if !listing.SameDeadline(old.Deadline, l.Deadline) {
			events = append(events, Event{Type: storage.ChangeDeadlineUpdated, Listing: l, OldDeadline: copyTime(old.Deadline)})
		}
	}
	return events
}

// CountByType tallies events per change type.
func CountByType(events []Event) map[storage.ChangeType]int {
	out := make(map[storage.ChangeType]int, 3)
	for _, e := range events {
		out[e.Type]++
	}
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// SortedChangeTypes returns the keys of counts in a stable order.
func SortedChangeTypes(counts map[storage.ChangeType]int) []storage.ChangeType {
	out := make([]storage.ChangeType, 0, len(counts))
	for t := range counts {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
