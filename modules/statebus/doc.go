// Package statebus fans out snapshots to presentation subscribers without
// ever blocking the publisher.
//
// # Core Philosophy
//
// "Drop snapshots, never queue. The latest state is the only state that matters."
//
// Every published value is a complete snapshot, so a subscriber that misses
// some of them loses nothing but intermediate progress. Two subscription
// styles are offered:
//
//   - Subscribe(id, ch): channel delivery; a full channel drops the snapshot
//   - SubscribeLatest(id): a receiver that always holds the newest snapshot
//
// # Basic Usage
//
//	bus := statebus.New[strobe.State]()
//	defer bus.Close()
//
//	ch := make(chan strobe.State, 8)
//	bus.Subscribe("log", ch)
//
//	latest, _ := bus.SubscribeLatest("http")
//	state, ok := latest.TryReceive()
//
// # Thread Safety
//
// All methods are safe for concurrent use. Publish completes in microseconds
// and never blocks, even with slow subscribers.
package statebus
