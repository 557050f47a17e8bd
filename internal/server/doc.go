// Package server provides the HTTP server for the beacon dashboard.
//
// This package is internal to beacon. It serves the embedded dashboard UI,
// a REST endpoint for the current health state, a Server-Sent Events
// stream for live updates, and a refresh endpoint that feeds back into
// the poll scheduler.
//
// The server shuts down gracefully when its context is cancelled.
package server
