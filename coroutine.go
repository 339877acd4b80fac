package routines

// Task is the entrypoint of a coroutine. The argument is the opaque
// value given to Spawn.
type Task func(arg any)

// Coroutine is one independently-stacked cooperative task. Values are
// created by Spawn and stay valid after completion or Destroy, so a
// handle can always be inspected with State.
type Coroutine struct {
	runtime *Runtime

	entry Task
	arg   any

	// worker carries the private stack. It is nil once the coroutine
	// has completed and its stack went back to the free list.
	worker *worker

	// wake parks and wakes the coroutine between activations.
	wake chan struct{}

	state State

	// join holds the coroutines blocked until this one completes.
	join waitlist

	// slot points at the pending message entry holding this coroutine
	// while it is blocked in a Send, so a suspend can cancel the park
	// without losing the payload.
	slot *message

	// Intrusive membership in at most one waitlist (ready, a receiver
	// wait queue, or a join queue).
	prev, next *Coroutine
	list       *waitlist

	killRequested bool

	data any
}

// State reports the coroutine's current state.
func (c *Coroutine) State() State {
	return c.state
}

// SetData associates an opaque value with the coroutine.
func (c *Coroutine) SetData(v any) {
	c.data = v
}

// Data returns the value set with SetData.
func (c *Coroutine) Data() any {
	return c.data
}

// SetSelfData associates an opaque value with the running coroutine.
func (r *Runtime) SetSelfData(v any) {
	if r.current == nil {
		panic("routines: SetSelfData from the root flow")
	}
	r.current.data = v
}

// SelfData returns the value associated with the running coroutine.
func (r *Runtime) SelfData() any {
	if r.current == nil {
		panic("routines: SelfData from the root flow")
	}
	return r.current.data
}

// Spawn creates a coroutine running task(arg) and switches to it
// immediately. A calling coroutine is parked on the ready queue and
// resumes once the scheduler comes back around to it; the root flow is
// not enqueued and resumes once no coroutine is ready to run. The new
// coroutine starts in state Running.
func (r *Runtime) Spawn(task Task, arg any) *Coroutine {
	if task == nil {
		panic("routines: Spawn with a nil task")
	}

	c := &Coroutine{
		runtime: r,
		entry:   task,
		arg:     arg,
		state:   Running,
		wake:    make(chan struct{}, 1),
	}
	c.worker = r.stacks.get()

	self := r.current
	if self != nil {
		r.ready.push(self)
	}
	r.current = c

	// First activation: the assign send is the baton pass.
	c.worker.assign <- c
	r.park(self)

	return c
}

// Join parks the caller until c completes or is destroyed. When c has
// already completed it returns immediately. Only valid from inside a
// coroutine.
func (r *Runtime) Join(c *Coroutine) {
	if r.current == nil {
		panic("routines: Join from the root flow")
	}
	if c == nil {
		panic("routines: Join with a nil coroutine")
	}
	if c.state == Completed {
		return
	}
	r.transfer(&c.join, BlockedJoin, nil)
}

// Suspend detaches c from whatever it is blocked on and leaves it in
// state Suspended until a Resume.
//
// A coroutine suspended out of a blocking Send leaves its message
// behind: the payload is still delivered to a future receiver, but no
// one is woken on the sender's behalf. A coroutine suspended out of a
// Wait or Recv observes a nil message and nil reply queue when it next
// runs. Suspending an already-suspended coroutine is a no-op.
func (r *Runtime) Suspend(c *Coroutine) {
	if c == nil {
		panic("routines: Suspend of a nil coroutine")
	}

	if c.slot != nil {
		// Cancel the parked send but keep the payload queued.
		c.slot.sender = nil
		c.slot = nil
	}

	if c.list != nil {
		c.list.remove(c)
	}

	c.state = Suspended

	if c == r.current {
		r.transfer(nil, Suspended, nil)
	}
}

// SuspendSelf suspends the running coroutine.
func (r *Runtime) SuspendSelf() {
	r.Suspend(r.current)
}

// Resume detaches c from whatever it is blocked on and appends it to
// the ready queue. It must not be called on the running coroutine or on
// a completed one.
func (r *Runtime) Resume(c *Coroutine) {
	if c == nil {
		panic("routines: Resume of a nil coroutine")
	}
	if c == r.current {
		panic("routines: Resume of the running coroutine")
	}
	if c.state == Completed {
		panic("routines: Resume of a completed coroutine")
	}

	// Suspend first so c is cleanly off every queue.
	r.Suspend(c)

	c.state = Running
	r.ready.push(c)
}

// Destroy tears a coroutine down: it is suspended, its joiners are
// resumed, and its stack is released. The handle stays valid and
// reports state Completed.
//
// Destroying a coroutine that has not completed unwinds its stack,
// which runs any defers pending on it; those defers must not call back
// into the runtime. Destroying the running coroutine completes it as
// though its entrypoint had returned, and does not return to the
// caller.
func (r *Runtime) Destroy(c *Coroutine) {
	if c == nil {
		panic("routines: Destroy of a nil coroutine")
	}

	if c == r.current {
		panic(unwindExit)
	}

	r.Suspend(c)

	for j := c.join.pop(); j != nil; j = c.join.pop() {
		r.Resume(j)
	}

	if c.worker != nil {
		// Still mid-flight on its stack: unwind it and take the
		// worker back once the unwind finishes.
		c.killRequested = true
		c.wake <- struct{}{}
		<-r.killDone
		r.stacks.put(c.worker)
		c.worker = nil
	}

	c.state = Completed
}
