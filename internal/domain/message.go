// Package domain contains entity without logic, just meta-data
package domain

import (
	"strings"
	"time"
)

// Message is a broadcast entry in the public channel or in a room log.
// Immutable once appended.
type Message struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// DirectMessage is a one-to-one entry stored under the pair key of its
// two participants.
type DirectMessage struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// PairKey builds the canonical key of a two-party conversation.
// The key is the same regardless of which side initiates, so a pair
// always shares exactly one log.
func PairKey(a, b string) string {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return a + "|" + b
}
