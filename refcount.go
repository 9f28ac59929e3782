package gfx

import "sync/atomic"

// refCount is the shared-ownership count of a device resource. A new
// resource starts with one reference.
type refCount struct {
	n atomic.Int32
}

func (r *refCount) init() { r.n.Store(1) }

// retain adds a reference. It reports false if the resource is already gone.
func (r *refCount) retain() bool {
	for {
		n := r.n.Load()
		if n <= 0 {
			return false
		}
		if r.n.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// release drops a reference and reports whether it was the last one.
// Extra releases after the last one report false.
func (r *refCount) release() bool {
	for {
		n := r.n.Load()
		if n <= 0 {
			return false
		}
		if r.n.CompareAndSwap(n, n-1) {
			return n == 1
		}
	}
}

func (r *refCount) alive() bool { return r.n.Load() > 0 }
