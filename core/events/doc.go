// Package events defines the vehicle notifications emitted by the
// reconciliation engine.
//
// Available event types:
//   - KindReady: a tracked vehicle reached its predicted completion time
//   - KindRetired: a vehicle left its slot
package events
