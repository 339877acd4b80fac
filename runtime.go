package routines

// Runtime multiplexes a set of coroutines over a single flow of control.
// Exactly one flow runs at any moment: either the root flow (the
// goroutine that created the runtime) or one coroutine. All switches are
// explicit, so no locking happens anywhere in the package.
//
// A Runtime must only be entered from one goroutine at a time. The
// intended shape is the one the original programs use: the root
// goroutine spawns coroutines and pumps them with Yield, and every other
// operation happens from inside coroutine code.
type Runtime struct {
	// current is the running coroutine, nil while the root flow runs.
	current *Coroutine

	// ready is the FIFO of runnable coroutines.
	ready waitlist

	// exited holds the most recently completed coroutine whose worker
	// has not been returned to the free list yet. A coroutine cannot
	// release its own stack while still running on it, so the release
	// is deferred to the next flow that wakes from a transfer. Exits
	// are serialized by the cooperative scheduler, so one slot is
	// enough.
	exited *Coroutine

	// stacks is the free list of idle workers.
	stacks stackPool

	// rootWake parks and wakes the root flow.
	rootWake chan struct{}

	// killDone reports that a destroyed coroutine finished unwinding
	// and its worker is free again.
	killDone chan struct{}
}

// New creates an empty runtime.
func New() *Runtime {
	return &Runtime{
		rootWake: make(chan struct{}, 1),
		killDone: make(chan struct{}, 1),
	}
}

// Self returns the running coroutine, or nil from the root flow.
func (r *Runtime) Self() *Coroutine {
	return r.current
}

// Yield moves the running coroutine to the tail of the ready queue and
// switches to the head of the ready queue. When called from the root
// flow it runs ready coroutines until none remain; when the ready queue
// is empty it returns immediately.
func (r *Runtime) Yield() {
	if r.current == nil && r.ready.empty() {
		return
	}
	r.transfer(&r.ready, Running, nil)
}

// Close releases the idle workers on the stack free list. It may only
// be called from the root flow once every coroutine has completed or
// been destroyed; after Close the runtime must not be used again.
func (r *Runtime) Close() {
	if r.current != nil {
		panic("routines: Close from inside a coroutine")
	}
	r.stacks.drain()
}

// transfer parks the current flow and resumes another. The current
// coroutine is tagged with state and appended to queue (or left
// detached when queue is nil); control then moves to next if non-nil,
// else to the head of the ready queue, else back to the root flow.
func (r *Runtime) transfer(queue *waitlist, state State, next *Coroutine) {
	self := r.current

	if self != nil {
		self.state = state
		if queue != nil {
			queue.push(self)
		}
	}

	if next == nil {
		next = r.ready.pop()
	}

	if next == self && self != nil {
		// The ready queue cycled straight back to the caller.
		self.state = Running
		return
	}

	r.handoff(next)
	r.park(self)
}

// handoff makes next the current coroutine and passes it the baton.
// With a nil next the root flow is resumed instead.
func (r *Runtime) handoff(next *Coroutine) {
	r.current = next
	if next != nil {
		next.state = Running
		next.wake <- struct{}{}
	} else {
		r.rootWake <- struct{}{}
	}
}

// park blocks the calling flow until it is handed the baton again, then
// releases any stack left behind by an exited coroutine.
func (r *Runtime) park(self *Coroutine) {
	if self != nil {
		<-self.wake
		if self.killRequested {
			panic(unwindKill)
		}
	} else {
		<-r.rootWake
	}
	r.reap()
}

// reap returns the worker of the most recently exited coroutine to the
// free list. Runs on the first flow that wakes after the exit.
func (r *Runtime) reap() {
	if e := r.exited; e != nil {
		r.exited = nil
		r.stacks.put(e.worker)
		e.worker = nil
	}
}
