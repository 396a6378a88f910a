// Package engine implements the tpal sync engine.
//
// The engine keeps at most one authoritative copy of the journal per user
// across any number of devices, reconciling the local store against the
// remote row with last-writer-wins timestamp comparison. It is
// best-effort and never blocks its caller: every operation reports its
// outcome through a status string, never an error return.
//
// Data flow:
//
//	CLI mutates local store
//	     → SchedulePush (600ms debounce, last state wins)
//	     → PushNow stamps an envelope and upserts the remote row
//	     → other devices receive a realtime notification
//	     → reconciliation decides whether the remote copy wins locally
//
// Reconciliation (identical for pull and realtime):
//
//  1. Read the last-synced timestamp from the local store (zero = never
//     synced).
//  2. A realtime notification arriving within 1500ms of this client's own
//     push is treated as an echo of that push and ignored.
//  3. Otherwise, if the remote stamp is newer-or-equal to the local one,
//     or the journal has never synced, the remote payload replaces the
//     local document and OnStateReplaced fires. Otherwise local wins
//     silently.
//  4. A boolean guard serializes applies: a reconciliation arriving while
//     another is applying is dropped, not queued.
//
// Conflict resolution is wall-clock last-writer-wins. There are no vector
// clocks and no merge: a skewed device clock can make a causally older
// write win. This is an accepted trade-off for a single user on a handful
// of devices, where entries are predominantly append-only and collisions
// are rare.
//
// One Engine is constructed per process. There is no package-level state.
package engine
