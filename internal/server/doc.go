// Package server exposes the scoring engine over HTTP. REST endpoints
// manage session lifecycle and serve live snapshots and final results; a
// websocket endpoint carries the high-rate tick traffic (audio buffers and
// pose landmarks) and streams a snapshot back after every processed tick.
package server
