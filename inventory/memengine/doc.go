// Package memengine provides an in-process implementation of inventory.Store.
//
// All data lives in maps guarded by one lock. Update copies the state, runs the callback on the copy
// and swaps it in when the callback succeeds, so a failed operation leaves no trace. Update calls are
// serialized, View calls run concurrently with each other.
//
// It is meant for single-process deployments and tests of the booking engine. Multi-process
// deployments use the postgresengine package.
package memengine
