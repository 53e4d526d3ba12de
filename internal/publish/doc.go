// Package publish emits finalized session results to a Kafka topic so
// leaderboards and history services can consume them. Publishing is optional
// and strictly fire-and-forget: a broker outage never affects live scoring.
package publish
