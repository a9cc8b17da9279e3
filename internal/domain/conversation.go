package domain

import (
	"fmt"
	"time"
)

// Conversation Invariants:
// 1. Identity: at most one conversation per (vehicle, unordered participant pair).
// 2. Participants: exactly two, never equal.
// 3. Activity: LastMessageAt advances on every send, never rewinds.
type Conversation struct {
	ID             string
	VehicleID      string
	Participant1ID string
	Participant2ID string
	CreatedAt      time.Time
	LastMessageAt  time.Time
}

// LookupKey derives the unique key for a (vehicle, pair) conversation.
// The pair is sorted so both argument orders map to the same key.
func LookupKey(vehicleID, userA, userB string) string {
	lo, hi := userA, userB
	if lo > hi {
		lo, hi = hi, lo
	}
	return fmt.Sprintf("vehicle:%s:%s:%s", vehicleID, lo, hi)
}

// HasParticipant reports whether the user is one of the two participants.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.Participant1ID == userID || c.Participant2ID == userID
}

// Peer returns the other participant's id. Callers must have checked
// membership first; an unknown user yields Participant1ID.
func (c *Conversation) Peer(userID string) string {
	if c.Participant1ID == userID {
		return c.Participant2ID
	}
	return c.Participant1ID
}
