package leakybucket

// queue is a fixed-capacity FIFO ring of request identifiers.
type queue struct {
	buf  []string
	head int
	size int
}

func newQueue(capacity int) *queue {
	return &queue{buf: make([]string, capacity)}
}

func (q *queue) len() int { return q.size }

func (q *queue) full() bool { return q.size == len(q.buf) }

func (q *queue) push(id string) {
	q.buf[(q.head+q.size)%len(q.buf)] = id
	q.size++
}

// drop removes up to n of the oldest entries.
func (q *queue) drop(n int) {
	if n > q.size {
		n = q.size
	}
	for i := 0; i < n; i++ {
		q.buf[q.head] = ""
		q.head = (q.head + 1) % len(q.buf)
	}
	q.size -= n
}

// snapshot returns the queued identifiers, oldest first.
func (q *queue) snapshot() []string {
	out := make([]string, q.size)
	for i := range out {
		out[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	return out
}
