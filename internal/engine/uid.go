package engine

import "sync/atomic"

var lastUID atomic.Uint64

// NextUID returns a process-unique id for a GameObject or Component.
// Objects and components share one id space, so an id alone names its target.
func NextUID() uint64 {
	return lastUID.Add(1)
}

// ReserveUID makes sure NextUID never hands out uid again. Scene loaders
// call it for every id they read from disk.
func ReserveUID(uid uint64) {
	for {
		cur := lastUID.Load()
		if cur >= uid {
			return
		}
		if lastUID.CompareAndSwap(cur, uid) {
			return
		}
	}
}
