package runtime

import (
	"os"
)

type (
	ServiceOption func(*ServiceCtx)
)

// WithServiceTermination lets callers (tests, embedders) supply their
// own shutdown-signal channel instead of the process's own SIGINT/SIGTERM.
func WithServiceTermination(ch chan os.Signal) ServiceOption {
	return func(ctx *ServiceCtx) {
		ctx.shutdownChannel = ch
	}
}

// WithWaitingForServer enables WaitForServer by pre-creating the ready
// channel the dispatcher signals once both background workers start.
func WithWaitingForServer() ServiceOption {
	return func(ctx *ServiceCtx) {
		ctx.serverReady = make(chan struct{})
	}
}
