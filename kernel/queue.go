package kernel

// ref names a task table slot. The zero value refers to no task, so
// queues and owner fields are usable without initialization.
type ref uint8

const none ref = 0

func refOf(slot int) ref { return ref(slot + 1) }

func (r ref) slot() int { return int(r) - 1 }

// queue is an intrusive FIFO threaded through tcb.next.
// The zero value is an empty queue.
type queue struct {
	head, tail ref
}

func (q *queue) empty() bool { return q.head == none }

// push appends r at the tail.
func (tt *taskTable) push(q *queue, r ref) {
	t := tt.get(r)
	if t.queued {
		panic("kernel: pushing a task that is already queued")
	}
	t.next = none
	t.queued = true
	if q.tail != none {
		tt.get(q.tail).next = r
	}
	q.tail = r
	if q.head == none {
		q.head = r
	}
}

// pushFront inserts r at the head.
func (tt *taskTable) pushFront(q *queue, r ref) {
	t := tt.get(r)
	if t.queued {
		panic("kernel: pushing a task that is already queued")
	}
	t.queued = true
	t.next = q.head
	q.head = r
	if q.tail == none {
		q.tail = r
	}
}

// pop removes and returns the head, or none.
func (tt *taskTable) pop(q *queue) ref {
	r := q.head
	if r == none {
		return none
	}
	t := tt.get(r)
	q.head = t.next
	if q.tail == r {
		q.tail = none
	}
	t.next = none
	t.queued = false
	return r
}

// popEligible removes the first member whose suspend flag is clear,
// leaving the order of the others untouched.
func (tt *taskTable) popEligible(q *queue) ref {
	var prev ref
	for r := q.head; r != none; r = tt.get(r).next {
		if !tt.get(r).suspended {
			tt.unlink(q, prev, r)
			return r
		}
		prev = r
	}
	return none
}

// hasEligible reports whether q holds a member whose suspend flag is clear.
func (tt *taskTable) hasEligible(q *queue) bool {
	for r := q.head; r != none; r = tt.get(r).next {
		if !tt.get(r).suspended {
			return true
		}
	}
	return false
}

// remove unlinks r from q. It reports false if r is not a member.
func (tt *taskTable) remove(q *queue, r ref) bool {
	var prev ref
	for cur := q.head; cur != none; cur = tt.get(cur).next {
		if cur == r {
			tt.unlink(q, prev, r)
			return true
		}
		prev = cur
	}
	return false
}

func (tt *taskTable) unlink(q *queue, prev, r ref) {
	t := tt.get(r)
	if prev == none {
		q.head = t.next
	} else {
		tt.get(prev).next = t.next
	}
	if q.tail == r {
		q.tail = prev
	}
	t.next = none
	t.queued = false
}

// insertSorted splices r before the first member whose remaining ticks
// exceed r's, keeping equal entries in insertion order.
func (tt *taskTable) insertSorted(q *queue, r ref) {
	t := tt.get(r)
	var prev ref
	cur := q.head
	for cur != none && tt.get(cur).ticks <= t.ticks {
		prev = cur
		cur = tt.get(cur).next
	}
	if prev == none {
		tt.pushFront(q, r)
		return
	}
	if t.queued {
		panic("kernel: pushing a task that is already queued")
	}
	t.queued = true
	t.next = cur
	tt.get(prev).next = r
	if cur == none {
		q.tail = r
	}
}

// len counts the members of q.
func (tt *taskTable) len(q *queue) int {
	n := 0
	for r := q.head; r != none; r = tt.get(r).next {
		n++
	}
	return n
}
