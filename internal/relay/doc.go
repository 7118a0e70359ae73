// Package relay forwards NMEA 0183 sentences to a Redis Pub/Sub channel so
// that consumers beyond the TCP port can follow the vessel data.
//
// The Relay is a sentence hub consumer: Accept only enqueues, and a worker
// goroutine publishes JSON envelopes. Redis commands run through a gobreaker
// circuit breaker hook, so an unreachable Redis costs one failed publish per
// breaker interval rather than one per sentence.
package relay
