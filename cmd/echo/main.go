// Single-threaded TCP echo server. Each connection is handled by its
// own coroutine; the root flow multiplexes them over epoll, signalling
// a waker queue whenever a watched file descriptor becomes ready.
//
// Connect with e.g. `nc localhost 1234`; a line reading "exit" closes
// the connection.
package main

import (
	"bytes"
	"log"

	"golang.org/x/sys/unix"

	"github.com/stackswitch/routines"
)

const (
	listenPort    = 1234
	listenBacklog = 128
	eventBatch    = 32
)

// wait tracks one coroutine parked until a file descriptor is ready.
type wait struct {
	// waker is signalled by the poll loop when the descriptor fires.
	waker *routines.Queue

	fd int

	// revents holds the events that triggered.
	revents uint32
}

type server struct {
	runtime *routines.Runtime

	live bool

	listenFD int
	epollFD  int

	// waits maps a watched descriptor to its parked waiter.
	waits map[int]*wait

	// listener accepts incoming connections.
	listener *routines.Coroutine

	// exited collects connections whose handler finished, destroyed
	// from the root flow.
	exited []*connection
}

type connection struct {
	coroutine *routines.Coroutine
	fd        int
	server    *server
}

func main() {
	log.SetFlags(0)

	srv := &server{runtime: routines.New(), waits: make(map[int]*wait)}
	srv.start()
	srv.poll()
	srv.stop()
}

func (s *server) start() {
	s.live = true

	epfd, err := unix.EpollCreate1(0)
	try("epoll_create1", err)
	s.epollFD = epfd

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	try("socket", err)
	s.listenFD = fd

	try("setsockopt", unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1))
	try("bind", unix.Bind(fd, &unix.SockaddrInet4{Port: listenPort}))
	try("listen", unix.Listen(fd, listenBacklog))

	s.listener = s.runtime.Spawn(s.listenForConnections, nil)
}

func (s *server) stop() {
	unix.Close(s.listenFD)
	unix.Close(s.epollFD)
	s.drainExited()
	s.runtime.Destroy(s.listener)
	s.runtime.Close()
}

func (s *server) poll() {
	for s.live {
		s.pollOnce()
		s.runtime.Yield()
		s.drainExited()
	}
}

// pollOnce blocks in epoll_wait, then wakes every coroutine whose
// descriptor fired. The waiters run on the next Yield.
func (s *server) pollOnce() {
	var events [eventBatch]unix.EpollEvent

	n, err := unix.EpollWait(s.epollFD, events[:], -1)
	if err == unix.EINTR {
		return
	}
	try("epoll_wait", err)

	for _, ev := range events[:n] {
		w := s.waits[int(ev.Fd)]
		if w == nil {
			continue
		}
		w.revents = ev.Events
		delete(s.waits, w.fd)
		unix.EpollCtl(s.epollFD, unix.EPOLL_CTL_DEL, w.fd, nil)
		w.waker.Signal(nil)
	}
}

// waitFor parks the calling coroutine until fd reports one of events,
// returning the triggered events.
func (s *server) waitFor(fd int, events uint32) uint32 {
	w := &wait{
		waker: s.runtime.NewQueue(),
		fd:    fd,
	}
	s.waits[fd] = w

	err := unix.EpollCtl(s.epollFD, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Events: events,
		Fd:     int32(fd),
	})
	try("epoll_ctl", err)

	w.waker.Wait()
	w.waker.Destroy()

	return w.revents
}

func (s *server) listenForConnections(any) {
	s.waitFor(s.listenFD, unix.EPOLLIN)
	for {
		fd, _, err := unix.Accept(s.listenFD)
		try("accept", err)

		log.Printf("[CONN] New connection on #%d", fd)
		s.newConnection(fd)
		s.waitFor(s.listenFD, unix.EPOLLIN)
	}
}

func (s *server) newConnection(fd int) *connection {
	conn := &connection{fd: fd, server: s}
	conn.coroutine = s.runtime.Spawn(handleConnection, conn)
	return conn
}

func handleConnection(arg any) {
	conn := arg.(*connection)
	s := conn.server
	buffer := make([]byte, 4096)
	prefix := []byte("ECHO: ")

	log.Printf("[CLIENT #%d] Listening", conn.fd)
	s.waitFor(conn.fd, unix.EPOLLIN)
	for {
		n, err := unix.Read(conn.fd, buffer)
		try("read", err)
		if n == 0 || bytes.Equal(buffer[:n], []byte("exit\n")) {
			break
		}
		log.Printf("[CLIENT #%d] Message: %s", conn.fd, bytes.TrimRight(buffer[:n], "\n"))

		s.waitFor(conn.fd, unix.EPOLLOUT)
		_, err = unix.Write(conn.fd, append(prefix, buffer[:n]...))
		try("write", err)

		s.waitFor(conn.fd, unix.EPOLLIN)
	}

	log.Printf("[CLIENT #%d] Closing", conn.fd)
	unix.Close(conn.fd)

	s.exited = append(s.exited, conn)
}

// drainExited destroys the handlers of closed connections. Runs on the
// root flow because a coroutine cannot free itself.
func (s *server) drainExited() {
	for _, conn := range s.exited {
		s.runtime.Destroy(conn.coroutine)
	}
	s.exited = s.exited[:0]
}

func try(op string, err error) {
	if err != nil {
		log.Fatalf("%s: %v", op, err)
	}
}
