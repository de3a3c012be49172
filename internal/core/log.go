package core

// BoundedLog is an append-only sequence with a fixed capacity. Once the
// capacity is reached the oldest entry is evicted on every append, so
// Len never exceeds the capacity.
//
// Not safe for concurrent use; the coordinator's lock guards it.
type BoundedLog[T any] struct {
	capacity int
	entries  []T
}

func NewBoundedLog[T any](capacity int) *BoundedLog[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &BoundedLog[T]{
		capacity: capacity,
		entries:  make([]T, 0, capacity),
	}
}

// Append never fails. At capacity it evicts the oldest entry first.
func (l *BoundedLog[T]) Append(entry T) {
	if len(l.entries) == l.capacity {
		copy(l.entries, l.entries[1:])
		l.entries[len(l.entries)-1] = entry
		return
	}
	l.entries = append(l.entries, entry)
}

// Snapshot returns a copy of the current entries in arrival order.
func (l *BoundedLog[T]) Snapshot() []T {
	out := make([]T, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *BoundedLog[T]) Len() int { return len(l.entries) }

// Replace resets the log from a restored sequence, keeping only the
// newest entries when the sequence is longer than the capacity.
func (l *BoundedLog[T]) Replace(entries []T) {
	if len(entries) > l.capacity {
		entries = entries[len(entries)-l.capacity:]
	}
	l.entries = l.entries[:0]
	l.entries = append(l.entries, entries...)
}
