package audio

// Sink starts audible output of decoded buffers.
type Sink interface {
	// Start begins playing buf. done is called exactly once when the
	// buffer has played to the end, unless the returned Output is halted
	// first, in which case done is never called.
	Start(buf *Buffer, done func()) (Output, error)
}

// Output is a single in-progress playback started by a Sink.
type Output interface {
	// Halt stops the output immediately and disarms its completion
	// callback. Calling Halt more than once is a no-op.
	Halt()
}
