package routing

import (
	"bytes"
	"runtime"
	"strconv"
)

// goroutineID extracts the calling goroutine's numeric id by parsing the
// header line of its own stack trace ("goroutine 123 [running]: ..."). Go
// has no public API for this and no native thread-local storage; this is
// the well-known workaround, grounded on the same technique used by the
// goroutine-identity family of packages, authored here directly rather than
// imported (the retrieved reference module exposed no usable source to
// ground an import against — see DESIGN.md).
//
// It is deliberately not optimized: the router calls it once per
// dispatched event when installing a worker-local delegate, and on every
// Current call while in processing mode.
func goroutineID() uint64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	buf = buf[:n]

	const prefix = "goroutine "
	if !bytes.HasPrefix(buf, []byte(prefix)) {
		return 0
	}
	buf = buf[len(prefix):]
	end := bytes.IndexByte(buf, ' ')
	if end < 0 {
		return 0
	}
	id, err := strconv.ParseUint(string(buf[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
