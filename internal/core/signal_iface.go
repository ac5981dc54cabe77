package core

// Frame is one raw signaling payload, already encoded for the wire.
type Frame []byte

// SignalConnection is the outbound half of one signaling connection.
// TrySend never blocks. The adapter that created the connection owns it
// and is responsible for closing it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
