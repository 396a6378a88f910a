package remote

import (
	"context"
	"errors"
)

// Sentinel errors surfaced by Backend implementations.
var (
	// ErrNoRecord means the user has no row yet. Distinct from a network
	// failure: the cloud side is reachable but empty.
	ErrNoRecord = errors.New("remote: no record for user")

	// ErrConfirmationRequired means sign-up succeeded but the account
	// must be confirmed by email before a session exists.
	ErrConfirmationRequired = errors.New("remote: email confirmation required")

	// ErrNotSignedIn means the call needs an authenticated session.
	ErrNotSignedIn = errors.New("remote: not signed in")
)

// Backend is the surface the sync engine needs from the managed service.
//
// Implementations must be safe for concurrent use. No call may panic on
// remote failure; everything is reported through the error return.
type Backend interface {
	// SignIn authenticates with email and password and returns the user id.
	SignIn(ctx context.Context, email, password string) (string, error)

	// SignUp registers a new account. When the project requires email
	// confirmation it returns ErrConfirmationRequired and no session is
	// established.
	SignUp(ctx context.Context, email, password string) (string, error)

	// SignOut terminates the current session. Idempotent.
	SignOut(ctx context.Context) error

	// Session returns the signed-in user id, or "" when signed out.
	Session() string

	// UpsertRecord writes the envelope as the user's row, replacing any
	// previous row (conflict target: user_id).
	UpsertRecord(ctx context.Context, userID string, env *Envelope) error

	// SelectRecord fetches the user's row. Returns ErrNoRecord when the
	// user has never pushed.
	SelectRecord(ctx context.Context, userID string) (*Envelope, error)

	// Subscribe opens a realtime subscription filtered to the user's row.
	// Change notifications are delivered on the Subscription's channel
	// until Close is called or ctx is cancelled.
	Subscribe(ctx context.Context, userID string) (Subscription, error)
}

// Subscription is an open realtime channel for one user's row.
type Subscription interface {
	// Changes delivers envelopes for row inserts and updates. The channel
	// is closed when the subscription ends.
	Changes() <-chan *Envelope

	// Close tears the subscription down. Idempotent.
	Close() error
}
