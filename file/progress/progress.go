// Package progress defines the callback types shared by progress-tracking
// readers and writers (ioutils/ioprogress): a byte-count increment signal,
// an end-of-stream signal, and a reset signal fired when a caller rewinds
// and restarts a transfer (e.g. a retried volume upload).
package progress

// FctIncrement is invoked with the number of bytes processed since the last call.
type FctIncrement func(size int64)

// FctEOF is invoked whenever the wrapped stream reports io.EOF.
type FctEOF func()

// FctReset is invoked with the expected total size and the bytes processed
// so far when a caller resets or repositions a transfer.
type FctReset func(size, current int64)
