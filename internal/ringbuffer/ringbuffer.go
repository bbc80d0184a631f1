package ringbuffer

import "sync"

// RingBuffer is a concurrent-safe blocking ring buffer. One goroutine writes
// and another reads; Write waits for space and Read waits for data.
type RingBuffer[T any] struct {
	buf        []T
	size       int
	readIndex  int
	writeIndex int
	closed     bool
	mu         sync.Mutex
	cond       *sync.Cond
}

// New creates a new RingBuffer holding up to size-1 elements.
func New[T any](size int) *RingBuffer[T] {
	if size < 2 {
		size = 2
	}
	rb := &RingBuffer[T]{
		buf:  make([]T, size),
		size: size,
	}
	rb.cond = sync.NewCond(&rb.mu)
	return rb
}

// availableWrite returns the number of elements that can be written.
func (rb *RingBuffer[T]) availableWrite() int {
	if rb.writeIndex >= rb.readIndex {
		return rb.size - (rb.writeIndex - rb.readIndex) - 1
	}
	return rb.readIndex - rb.writeIndex - 1
}

// availableRead returns the number of elements available for reading.
func (rb *RingBuffer[T]) availableRead() int {
	if rb.writeIndex >= rb.readIndex {
		return rb.writeIndex - rb.readIndex
	}
	return rb.size - rb.readIndex + rb.writeIndex
}

// Len returns the number of buffered elements.
func (rb *RingBuffer[T]) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.availableRead()
}

// Close marks the buffer as closed, indicating no more writes will occur.
// Waiting readers and writers are woken up.
func (rb *RingBuffer[T]) Close() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.closed = true
	rb.cond.Broadcast()
}

// Write adds data to the buffer, blocking until space is available. It
// returns false if the buffer was closed before all of data was written.
func (rb *RingBuffer[T]) Write(data []T) bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for i := 0; i < len(data); {
		for !rb.closed && rb.availableWrite() == 0 {
			rb.cond.Wait()
		}
		if rb.closed {
			return false
		}

		// Copy up to the end of the storage or the free space, whichever
		// comes first; a wrapped write takes a second pass.
		n := rb.availableWrite()
		if end := rb.size - rb.writeIndex; n > end {
			n = end
		}
		written := copy(rb.buf[rb.writeIndex:rb.writeIndex+n], data[i:])
		rb.writeIndex = (rb.writeIndex + written) % rb.size
		i += written
		rb.cond.Broadcast() // Signal reader that data is available.
	}
	return true
}

// Read retrieves n elements from the buffer, blocking until they are
// available. Once the buffer is closed it returns whatever is left, and nil
// when nothing is. Requests larger than the capacity are capped.
func (rb *RingBuffer[T]) Read(n int) []T {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if n > rb.size-1 {
		n = rb.size - 1
	}

	for !rb.closed && rb.availableRead() < n {
		rb.cond.Wait()
	}

	readSize := n
	if avail := rb.availableRead(); avail < readSize {
		readSize = avail
	}
	if readSize <= 0 {
		return nil
	}

	data := make([]T, readSize)
	if rb.readIndex+readSize <= rb.size {
		copy(data, rb.buf[rb.readIndex:rb.readIndex+readSize])
	} else {
		part1 := rb.size - rb.readIndex
		copy(data, rb.buf[rb.readIndex:])
		copy(data[part1:], rb.buf[0:readSize-part1])
	}
	rb.readIndex = (rb.readIndex + readSize) % rb.size
	rb.cond.Broadcast()
	return data
}
