// Package poller implements the timer-driven polling loop for beacon.
//
// This package is internal to beacon and handles the repeated querying of a
// single backend health endpoint. It implements an exponential backoff state
// machine: the delay between polls doubles after each transport failure (up
// to a ceiling) and snaps back to the base interval on the next success.
//
// The main components are:
//
//   - [Client]: HTTP client wrapper with timeout and size limits
//   - [Scheduler]: Single-endpoint poll loop with backoff and manual refresh
//   - [Backoff]: The delay policy, kept separate so it can be tested alone
//   - [Result]: Raw outcome of one poll attempt
//
// Users of the beacon library should not need to interact with this package
// directly. Configuration is done through the main beacon package.
package poller
