// Package pipe provides bounded and unbounded in-process FIFO pipes for
// handing data between goroutines: a byte variant, a character (rune)
// variant, and an unbounded multi-producer text variant.
//
// A pipe connects one producer role to one consumer role through a shared
// buffer guarded by a single mutex and two conditions ("not full", "not
// empty"). Writes block while a bounded pipe is at capacity; reads block
// while the pipe is empty. Data is always read in write order.
//
// Each side is closed independently through its endpoint handles. Closing
// the sink cleanly turns reads into io.EOF once the buffer drains; closing
// either side with CloseWithError propagates that error verbatim to the
// other side's operations, and a later error-free Close on the same side
// clears it again. Context-aware variants of every blocking operation
// (ReadContext, WriteContext, SkipContext) surface cancellation as
// ctx.Err() without disturbing the pipe.
//
// Endpoint handles are tracked by their pipe only through weak references.
// If a goroutine exits holding the only reference to an unclosed handle,
// the garbage collector's reclamation of that handle is taken as abnormal
// termination: blocked counterpart calls fail with ErrWriterDied or
// ErrReaderDied instead of waiting forever. This detection is best-effort
// and depends on collection timing; well-behaved code should still close
// its endpoints, typically with defer.
package pipe
