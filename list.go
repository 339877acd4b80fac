package routines

// waitlist is an intrusive doubly-linked FIFO of coroutines. The link
// fields live on the Coroutine itself so that a coroutine can be removed
// from whatever list it is on in O(1), without knowing which list that is.
// A coroutine is a member of at most one waitlist at a time.
type waitlist struct {
	head *Coroutine
	tail *Coroutine
}

func (l *waitlist) empty() bool {
	return l.head == nil
}

// push appends c to the tail of the list. It is a fatal error for c to
// already be a member of any list.
func (l *waitlist) push(c *Coroutine) {
	if c.list != nil || c.prev != nil || c.next != nil {
		panic("routines: coroutine is already on a wait list")
	}
	if l.tail != nil {
		c.prev = l.tail
		l.tail.next = c
	} else {
		l.head = c
	}
	l.tail = c
	c.list = l
}

// pop removes and returns the head of the list, or nil if the list is
// empty.
func (l *waitlist) pop() *Coroutine {
	head := l.head
	if head == nil {
		return nil
	}
	l.head = head.next
	if l.head != nil {
		l.head.prev = nil
	} else {
		l.tail = nil
	}
	head.next = nil
	head.list = nil
	return head
}

// remove unlinks c from the list it is currently on.
func (l *waitlist) remove(c *Coroutine) {
	if c.prev != nil {
		c.prev.next = c.next
	} else {
		l.head = c.next
	}
	if c.next != nil {
		c.next.prev = c.prev
	} else {
		l.tail = c.prev
	}
	c.prev = nil
	c.next = nil
	c.list = nil
}

// message is one pending entry of a Queue. Entries form a singly-linked
// FIFO with a tail cursor for O(1) append.
type message struct {
	payload any

	// sender is non-nil while a coroutine is blocked delivering this
	// entry. Suspending the sender clears the field without removing
	// the entry, so the payload still reaches a receiver.
	sender *Coroutine

	// reply carries the queue a Call or Post supplied for the answer.
	reply *Queue

	next *message
}

type messageList struct {
	head *message
	tail **message
}

func (l *messageList) empty() bool {
	return l.head == nil
}

func (l *messageList) push(e *message) {
	if l.tail == nil {
		l.tail = &l.head
	}
	*l.tail = e
	l.tail = &e.next
}

func (l *messageList) pop() *message {
	e := l.head
	if e == nil {
		return nil
	}
	l.head = e.next
	if l.head == nil {
		l.tail = &l.head
	}
	e.next = nil
	return e
}
