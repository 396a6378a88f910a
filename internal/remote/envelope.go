package remote

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tpal-app/tpal/internal/journal"
)

// Envelope is the journal document as it travels on the wire: the full
// State plus a sync timestamp and the pushing client's id.
//
// Invariant: every value read from or written to the remote row carries
// __updatedAt; values written to local storage never do. Strip the marker
// with Payload() before handing the document to the store.
type Envelope struct {
	journal.State

	// UpdatedAt is the wall-clock stamp assigned at push time.
	UpdatedAt time.Time `json:"__updatedAt"`

	// ClientID identifies the pushing engine instance, letting receivers
	// recognize their own writes.
	ClientID string `json:"__clientId,omitempty"`
}

// NewEnvelope wraps a state for pushing, stamping it with ts.
func NewEnvelope(state *journal.State, ts time.Time, clientID string) *Envelope {
	env := &Envelope{UpdatedAt: ts.UTC(), ClientID: clientID}
	env.State = *state
	env.Normalize()
	return env
}

// Payload returns a copy of the journal document with the sync marker
// stripped, safe to write to local storage.
func (e *Envelope) Payload() *journal.State {
	state := e.State
	state.Normalize()
	return &state
}

// DecodeEnvelope parses the remote data column.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode remote envelope: %w", err)
	}
	env.Normalize()
	return &env, nil
}
