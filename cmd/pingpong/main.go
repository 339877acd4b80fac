// Ping-pong workload: a server coroutine answers Call requests from a
// set of client coroutines over one shared message queue.
package main

import (
	"log"

	"github.com/stackswitch/routines"
)

const (
	numClients = 2
	numPings   = 5
)

type client struct {
	coroutine *routines.Coroutine
	id        int
	pings     int
	pongs     int
}

func main() {
	log.SetFlags(0)

	r := routines.New()
	queue := r.NewQueue()

	serverTask := func(any) {
		for {
			log.Printf("[SERVER] Waiting for message")
			m, reply := queue.Recv()
			if m == nil {
				return
			}
			cl := m.(*client)
			cl.pongs++
			log.Printf("[SERVER] Pong #%d for client #%d", cl.pongs, cl.id)
			reply.Signal(cl)
		}
	}

	clientTask := func(arg any) {
		cl := arg.(*client)
		reply := r.NewQueue()
		defer reply.Destroy()

		for i := 0; i < numPings; i++ {
			cl.pings++
			log.Printf("[CLIENT #%d] Ping #%d", cl.id, cl.pings)
			response := queue.Call(cl, reply).(*client)
			log.Printf(
				"[CLIENT #%d] Pong #%d from server for client #%d",
				cl.id, response.pongs, response.id,
			)
		}
	}

	clients := make([]*client, numClients)
	for i := range clients {
		log.Printf("[ROOT] Starting client %d", i)
		clients[i] = &client{id: i}
		clients[i].coroutine = r.Spawn(clientTask, clients[i])
	}

	log.Printf("[ROOT] Starting server")
	server := r.Spawn(serverTask, nil)

	log.Printf("[ROOT] All tasks completed!")

	r.Destroy(server)
	for _, cl := range clients {
		r.Destroy(cl.coroutine)
	}
	queue.Destroy()
	r.Close()
}
