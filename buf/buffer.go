// Package buf provides reference-counted byte buffers backed by a
// size-tiered pool, so that chunk payloads handed up from the transport
// can be retained, handed off to a consumer, or released without copying
// until composition genuinely requires it.
package buf

import "sync/atomic"

// ChunkBuffer is a reference-counted view over a byte slice. The zero
// value is not usable; construct one with [NewPooled], [Wrap] or [Empty].
type ChunkBuffer struct {
	data     []byte
	refCount *atomic.Int32
	release  func([]byte)
}

// NewPooled allocates a buffer of exactly size bytes from the pool
// tiers in this package. Its single reference is released back to the
// pool once Release brings the count to zero.
func NewPooled(size int) *ChunkBuffer {
	return NewWithRelease(alloc(size), free)
}

// Wrap creates a buffer over data with no pooling; Release just drops
// the reference. Useful for buffers that did not originate from this
// package's pools (e.g. in tests, or literal zero-length markers).
func Wrap(data []byte) *ChunkBuffer {
	return NewWithRelease(data, nil)
}

// Empty returns a fresh zero-length buffer. Releasing it is a no-op.
func Empty() *ChunkBuffer {
	return Wrap(nil)
}

// NewWithRelease creates a buffer with a custom release function,
// invoked once the reference count drops to zero. release may be nil.
func NewWithRelease(data []byte, release func([]byte)) *ChunkBuffer {
	refCount := &atomic.Int32{}
	refCount.Store(1)

	return &ChunkBuffer{
		data:     data,
		refCount: refCount,
		release:  release,
	}
}

// Bytes returns the readable bytes held by this buffer. The slice is
// only valid until Release drops the reference count to zero.
func (b *ChunkBuffer) Bytes() []byte { return b.data }

// Len returns the number of readable bytes.
func (b *ChunkBuffer) Len() int { return len(b.data) }

// Retain increments the reference count. Call it before handing the
// same buffer to a second owner.
func (b *ChunkBuffer) Retain() {
	b.refCount.Add(1)
}

// Release decrements the reference count, returning the backing slice
// to its pool once no owner remains. Calling Release more times than
// Retain (plus the initial reference) is a programmer error.
func (b *ChunkBuffer) Release() {
	if count := b.refCount.Add(-1); count == 0 && b.release != nil {
		b.release(b.data)
	}
}

// Compose yields a single buffer containing the byte-concatenation, in
// order, of parts. It takes ownership of every element of parts: each
// is released once its bytes have been folded into the result (or,
// in the single-element case, returned as-is with no copy at all).
//
// Compose(nil) and Compose of an empty slice both return [Empty].
func Compose(parts []*ChunkBuffer) *ChunkBuffer {
	switch len(parts) {
	case 0:
		return Empty()
	case 1:
		return parts[0]
	default:
		total := 0
		for _, p := range parts {
			total += p.Len()
		}

		out := NewPooled(total)
		n := 0
		for _, p := range parts {
			n += copy(out.data[n:], p.Bytes())
			p.Release()
		}

		return out
	}
}
