package link

import "sync"

// SendQueue is the ordered sequence of outbound byte buffers described
// in spec §3, with a cached total byte count so backpressure checks
// don't have to walk the list. Grounded on the teacher's client.send
// idiom in meshage/client.go, generalized from "one gob-encoded
// message per write" to "arbitrary partial writes," since the wire
// format here is a raw byte stream rather than a gob stream.
type SendQueue struct {
	mu    sync.Mutex
	bufs  [][]byte
	total int
}

// PushBack appends a buffer to the end of the queue.
func (q *SendQueue) PushBack(b []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.bufs = append(q.bufs, b)
	q.total += len(b)
}

// PushFront prepends a buffer — used to requeue a partially-written
// buffer after a short write.
func (q *SendQueue) PushFront(b []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.bufs = append([][]byte{b}, q.bufs...)
	q.total += len(b)
}

// Front returns the first buffer without removing it, or nil if empty.
func (q *SendQueue) Front() []byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.bufs) == 0 {
		return nil
	}
	return q.bufs[0]
}

// PopFront removes and discards the first buffer.
func (q *SendQueue) PopFront() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.bufs) == 0 {
		return
	}
	q.total -= len(q.bufs[0])
	q.bufs = q.bufs[1:]
}

// ErasePrefix removes n bytes from the front buffer after a partial
// write, without touching the rest of the queue.
func (q *SendQueue) ErasePrefix(n int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.bufs) == 0 || n <= 0 {
		return
	}
	if n >= len(q.bufs[0]) {
		q.total -= len(q.bufs[0])
		q.bufs = q.bufs[1:]
		return
	}
	q.bufs[0] = q.bufs[0][n:]
	q.total -= n
}

// Empty reports whether the queue has no pending data.
func (q *SendQueue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.bufs) == 0
}

// Bytes returns the cached total byte count across all buffers.
func (q *SendQueue) Bytes() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.total
}

// Buffers returns a snapshot of the queued buffers, for scatter-gather
// writes (spec §4.2: "using scatter-gather when available").
func (q *SendQueue) Buffers() [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([][]byte, len(q.bufs))
	copy(out, q.bufs)
	return out
}
