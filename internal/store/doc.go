// Package store provides the shared health state and pub/sub for beacon.
//
// This package is internal to beacon and holds the latest normalized health
// snapshot of the monitored backend, together with store-level error state.
// There is exactly one current State, replaced wholesale on every poll
// outcome; there is no history buffer. A publish-subscribe mechanism fans
// updates out to consumer handles and to connected dashboard clients
// (via Server-Sent Events).
//
// The main components are:
//
//   - [HealthStore]: Single-writer storage with pub/sub
//   - [State]: The consumer-facing view (snapshot, error, loading, ...)
//   - [Snapshot]: Storage representation of a normalized health payload
//
// Only the monitor's consumer loop writes to the store; everything else
// reads. Subscribers receive updates via channels with non-blocking sends
// (slow subscribers miss updates rather than block the system).
//
// Users of the beacon library should not need to interact with this
// package directly.
package store
