package app

import (
	"context"
	"log"
	"time"

	"github.com/croft3/udpnode/node"
)

// Application is a basic example of how an owning process consumes
// a node: start the receive loop, drain the queue periodically, and
// stop the loop on shutdown.
type Application struct {
	node *node.Node
	poll time.Duration
}

func NewApplication(n *node.Node) *Application {
	return &Application{
		node: n,
		poll: 500 * time.Millisecond,
	}
}

// Start runs the application until ctx is cancelled. The returned
// channel closes once the node's receive loop has been joined and
// the queue drained a final time.
func (app *Application) Start(ctx context.Context) <-chan struct{} {
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)

		if err := app.node.StartReceiving(); err != nil {
			log.Printf("app: %v", err)
			return
		}

		ticker := time.NewTicker(app.poll)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				app.node.StopReceiving()
				app.drain()
				return
			case <-ticker.C:
				app.drain()
			}
		}
	}()

	return stopped
}

func (app *Application) drain() {
	for app.node.DataAvailable() {
		dg, ok := app.node.PopDatagram()
		if !ok {
			return
		}
		log.Println(dg.String())
	}
}
