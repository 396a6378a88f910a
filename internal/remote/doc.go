// Package remote is the adapter for the managed backend service.
//
// The backend is a Supabase-compatible project: password auth under
// /auth/v1, a single PostgREST table under /rest/v1, and a realtime
// websocket under /realtime/v1. tpal stores one row per user:
//
//	trading_pal_data(user_id PRIMARY KEY, data JSON, updated_at timestamptz)
//
// The data column holds the journal document plus a __updatedAt marker
// (see Envelope). The table name and column layout are shared with the
// Trading Pal web app, so both clients sync the same account.
//
// Every Backend call is fallible and must be treated as such by callers;
// the adapter never panics on network or protocol errors.
package remote
