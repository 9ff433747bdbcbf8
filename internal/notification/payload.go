package notification

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mael-bomane/earn-bot/internal/listing"
)

// Payload is the serialized body of a pending notification: the listing as
// observed when the change was detected plus the old value for update events.
type Payload struct {
	Listing     listing.Listing `json:"listing"`
	OldRegion   *listing.Region `json:"oldRegion,omitempty"`
	OldDeadline *time.Time      `json:"oldDeadline,omitempty"`
}

// Encode serializes p for storage.
func (p Payload) Encode() (json.RawMessage, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding payload for listing %s: %w", p.Listing.ID, err)
	}
	return b, nil
}

// DecodePayload parses a stored payload.
func DecodePayload(raw json.RawMessage) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, fmt.Errorf("decoding payload: %w", err)
	}
	if p.Listing.ID == "" {
		return Payload{}, fmt.Errorf("decoding payload: listing id missing")
	}
	return p, nil
}
