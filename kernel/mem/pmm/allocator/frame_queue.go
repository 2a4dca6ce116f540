package allocator

import "github.com/codyd51/axle-sub001/kernel/mem/pmm"

// frameQueue is a FIFO ring of free frames. Its capacity is sized once when
// the allocator is initialized; the ring only grows if more frames are freed
// than were ever handed to it (e.g. a double free).
type frameQueue struct {
	frames      []pmm.Frame
	head, count int
}

func newFrameQueue(capacity int) frameQueue {
	return frameQueue{frames: make([]pmm.Frame, capacity)}
}

// push appends f to the tail of the queue.
func (q *frameQueue) push(f pmm.Frame) {
	if q.count == len(q.frames) {
		q.grow()
	}

	q.frames[(q.head+q.count)%len(q.frames)] = f
	q.count++
}

// pop removes the frame at the head of the queue.
func (q *frameQueue) pop() (pmm.Frame, bool) {
	if q.count == 0 {
		return pmm.InvalidFrame, false
	}

	f := q.frames[q.head]
	q.head = (q.head + 1) % len(q.frames)
	q.count--
	return f, true
}

func (q *frameQueue) len() int {
	return q.count
}

// grow doubles the ring capacity, unwrapping its contents so that the head
// lands at index 0.
func (q *frameQueue) grow() {
	newCap := 2 * len(q.frames)
	if newCap == 0 {
		newCap = 8
	}

	frames := make([]pmm.Frame, newCap)
	for i := 0; i < q.count; i++ {
		frames[i] = q.frames[(q.head+i)%len(q.frames)]
	}
	q.frames, q.head = frames, 0
}
