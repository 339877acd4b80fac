package routines

// A coroutine needs a private stack that survives across suspension
// points. In Go the only way to own a stack is to own a goroutine, so
// the stack allocator of the original design becomes a pool of parked
// worker goroutines: allocating a stack pops an idle worker (or starts
// a fresh one), and releasing a stack parks the worker back on the
// free list for the next spawn.

// worker owns one goroutine and runs one coroutine at a time.
type worker struct {
	// assign hands the worker its next coroutine. The send doubles as
	// the baton pass for the coroutine's first activation.
	assign chan *Coroutine
}

func newWorker() *worker {
	w := &worker{assign: make(chan *Coroutine, 1)}
	go w.run()
	return w
}

func (w *worker) run() {
	for c := range w.assign {
		w.execute(c)
	}
}

// unwind is the sentinel panic used to strip a live coroutine off its
// worker stack. It is raised through the victim's park point; any user
// defers on the stack run during the unwind.
type unwind uint8

const (
	// unwindKill tears the coroutine down on behalf of Destroy, which
	// is parked on killDone waiting for the stack to come free.
	unwindKill unwind = iota + 1

	// unwindExit completes the coroutine as though its entrypoint
	// returned. Raised by a coroutine destroying itself.
	unwindExit
)

// execute runs a coroutine to completion on the worker's stack. The
// caller has already made c current and passed the baton by sending on
// the assign channel.
func (w *worker) execute(c *Coroutine) {
	r := c.runtime

	killed := func() (killed bool) {
		defer func() {
			switch v := recover(); v {
			case nil, unwindExit:
			case unwindKill:
				killed = true
			default:
				panic(v)
			}
		}()
		c.entry(c.arg)
		return false
	}()

	if killed {
		// Destroy owns the rest of the teardown; report the stack
		// free and go back to waiting for work.
		r.killDone <- struct{}{}
		return
	}

	// Run-to-completion: wake the joiners, then hand the stack over
	// through the exited slot. The stack cannot be released here
	// because this code is still running on it; whichever flow wakes
	// next returns it to the free list.
	for j := c.join.pop(); j != nil; j = c.join.pop() {
		r.Resume(j)
	}
	c.state = Completed
	r.exited = c
	r.handoff(r.ready.pop())
}

// stackPool is the LIFO free list of idle workers.
type stackPool struct {
	free []*worker
}

func (p *stackPool) get() *worker {
	if n := len(p.free); n > 0 {
		w := p.free[n-1]
		p.free = p.free[:n-1]
		return w
	}
	return newWorker()
}

func (p *stackPool) put(w *worker) {
	p.free = append(p.free, w)
}

// drain shuts down every idle worker. Workers still owned by live
// coroutines are untouched.
func (p *stackPool) drain() {
	for _, w := range p.free {
		close(w.assign)
	}
	p.free = nil
}
