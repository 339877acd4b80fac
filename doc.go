// Package routines implements single-threaded cooperative multitasking
// with stackful coroutines and synchronous message-passing queues.
//
// A Runtime schedules coroutines over one flow of control; coroutines
// hand execution to each other explicitly through Yield, Join, and the
// blocking queue operations. Each coroutine owns a private stack, so
// arbitrarily deep call chains can cross suspension points.
//
// Queues rendezvous senders with receivers in strict FIFO order on both
// sides. Five messaging flavors are built on one pair of primitives:
// blocking and non-blocking sends (Send, Signal), blocking and
// non-blocking receives (Wait, Read), and a call/reply pattern (Call,
// Recv, Post) that threads a reply queue through the message itself.
//
// The package is not thread safe: a runtime and everything spawned from
// it belong to the single goroutine-at-a-time flow that pumps it.
package routines
