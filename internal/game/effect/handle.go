package effect

import "sync/atomic"

// Handle identifies one active (non-instant) effect application. Handles
// are process-unique and never reused; the zero value is invalid. A handle
// stays valid only while the backing application is still active on the
// target — holders must tolerate staleness.
type Handle uint64

// Valid reports whether h could refer to an application at all.
func (h Handle) Valid() bool { return h != 0 }

var handleCounter atomic.Uint64

func nextHandle() Handle { return Handle(handleCounter.Add(1)) }
