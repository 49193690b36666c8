// Package store provides SQLite-backed durable storage for persisted
// state fields.
//
// The store holds one row per field name, last write wins. It plugs into
// the state layer from both ends:
//
//   - Writes: *Store satisfies state.Sink, so state.WithPersistence(store,
//     fields...) makes designated field writes flow through to disk
//     synchronously.
//   - Reads: RestoreInto loads every persisted field back into a state map
//     before mounting, so components see persisted values from their very
//     first render.
//
// Values are stored as canonical JSON (RFC 8785 style: sorted keys, NFC
// strings, no HTML escaping) so identical values always produce identical
// rows. Ordering uses a rev INTEGER (logical revision), NEVER timestamps,
// and reads order by byte-wise name, so restore and audit output are
// deterministic regardless of wall time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
