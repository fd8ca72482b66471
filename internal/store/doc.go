// Package store defines the record store contract shared by the MongoDB,
// Redis and local file backends, plus the polling loop used by backends
// without a native change feed.
//
// Every backend delivers whole collections, never deltas. Consumers replace
// their local copy with each event and treat the store as authoritative.
package store
