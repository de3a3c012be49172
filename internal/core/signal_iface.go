package core

// Frame is a raw outbound payload, already encoded for the wire.
type Frame []byte

// SessionID identifies one live connection. Issued by the server on
// upgrade; never persisted.
type SessionID string

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
