// Command outboxrelay runs the transactional outbox relay: it polls
// the outbox table, publishes due rows to the broker, and purges
// published rows past their retention window, until it receives
// SIGINT or SIGTERM.
package main

import (
	"github.com/architeacher/outboxrelay/internal/runtime"
)

func main() {
	runtime.New().Run()
}
