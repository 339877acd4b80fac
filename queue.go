package routines

// Queue is a synchronous message-passing rendezvous point. It holds
// either pending messages that outpaced the receivers or parked
// receivers that outpaced the senders, never both: a sender that finds
// a parked receiver rendezvouses immediately.
//
// All send and receive operations must be called from inside a
// coroutine of the queue's runtime.
type Queue struct {
	runtime *Runtime

	// msgs holds messages not yet received.
	msgs messageList

	// recv holds coroutines parked in BlockedRecv.
	recv waitlist
}

// NewQueue creates an empty message queue.
func (r *Runtime) NewQueue() *Queue {
	return &Queue{runtime: r}
}

// Destroy discards all pending messages and wakes everything parked on
// the queue. Blocked senders of discarded messages and parked receivers
// are all resumed; the receivers observe a nil message and nil reply
// queue. The queue must not be used afterwards.
func (q *Queue) Destroy() {
	if q == nil {
		panic("routines: Destroy of a nil queue")
	}
	r := q.runtime

	for e := q.msgs.pop(); e != nil; e = q.msgs.pop() {
		if e.sender != nil {
			r.Resume(e.sender)
		}
	}

	for rcv := q.recv.pop(); rcv != nil; rcv = q.recv.pop() {
		r.Resume(rcv)
	}
}

// Send delivers a message, blocking until a receiver consumes it.
func (q *Queue) Send(m any) {
	r := q.enter()
	q.send(m, r.current, nil)
}

// Signal delivers a message without blocking. If a receiver is parked
// on the queue it runs before the caller's next resumption.
func (q *Queue) Signal(m any) {
	q.enter()
	q.send(m, nil, nil)
}

// Wait receives a message, blocking until one is available. It returns
// nil if the caller was woken by Suspend, Resume, or Destroy of the
// queue instead of by a message.
func (q *Queue) Wait() any {
	q.enter()
	m, _ := q.receive()
	return m
}

// Read receives a message without blocking, returning nil if none is
// pending.
func (q *Queue) Read() any {
	q.enter()
	if q.msgs.empty() {
		return nil
	}
	m, _ := q.receive()
	return m
}

// Call delivers a message carrying reply, then blocks receiving the
// answer from reply. The received answer is returned.
func (q *Queue) Call(m any, reply *Queue) any {
	q.enter()
	if reply == nil {
		panic("routines: Call with a nil reply queue")
	}
	q.send(m, nil, reply)
	answer, _ := reply.receive()
	return answer
}

// Recv receives a message along with the reply queue attached by Call
// or Post, blocking until a message is available. On a spurious wake
// both results are nil.
func (q *Queue) Recv() (m any, reply *Queue) {
	q.enter()
	return q.receive()
}

// Post delivers a message carrying reply without blocking.
func (q *Queue) Post(m any, reply *Queue) {
	q.enter()
	q.send(m, nil, reply)
}

// enter checks the calling context common to every messaging primitive.
func (q *Queue) enter() *Runtime {
	if q == nil {
		panic("routines: operation on a nil queue")
	}
	if q.runtime.current == nil {
		panic("routines: queue operation from the root flow")
	}
	return q.runtime
}

// send is the primitive behind Send, Signal, Call, and Post.
//
// With a receiver parked on the queue the rendezvous is immediate: the
// head receiver is woken and control transfers to it, with the caller
// parked runnable on the ready queue. Otherwise the message is queued;
// a blocking sender parks in BlockedSend, held only through the message
// entry itself.
func (q *Queue) send(m any, sender *Coroutine, reply *Queue) {
	r := q.runtime

	if rcv := q.recv.pop(); rcv != nil {
		q.msgs.push(&message{payload: m, reply: reply})
		r.transfer(&r.ready, Running, rcv)
		return
	}

	e := &message{payload: m, sender: sender, reply: reply}
	q.msgs.push(e)

	if sender != nil {
		sender.slot = e
		r.transfer(nil, BlockedSend, nil)
	}
}

// receive is the primitive behind Wait, Read, Call, and Recv.
//
// With no message pending the caller parks in BlockedRecv. A wake
// caused by anything other than a delivery yields (nil, nil), the
// spurious-wake contract, unless a message was queued before the woken
// caller ran; that message is then received.
func (q *Queue) receive() (any, *Queue) {
	r := q.runtime

	if q.msgs.empty() {
		r.transfer(&q.recv, BlockedRecv, nil)
	}

	e := q.msgs.pop()
	if e == nil {
		return nil, nil
	}
	if e.sender != nil {
		// The delivery releases the blocked sender; it becomes
		// runnable but does not run yet.
		r.Resume(e.sender)
	}
	return e.payload, e.reply
}
