package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/architeacher/outboxrelay/internal/directpublish"
)

const defaultShutdownGrace = 30 * time.Second

// ServiceCtx owns the relay process's lifecycle: dependency wiring,
// starting the relay tick and cleanup tick as background workers,
// watching for config-reload signals, and driving graceful shutdown.
type ServiceCtx struct {
	deps *Dependencies

	shutdownChannel     chan os.Signal
	reloadConfigChannel chan os.Signal

	serverCtx      context.Context
	serverStopFunc context.CancelFunc

	serverReady chan struct{}

	workersWG sync.WaitGroup
}

func New(opt ...ServiceOption) *ServiceCtx {
	sCtx := &ServiceCtx{
		shutdownChannel:     make(chan os.Signal, 1),
		reloadConfigChannel: make(chan os.Signal, 1),
	}

	for i := range opt {
		opt[i](sCtx)
	}

	return sCtx
}

func (c *ServiceCtx) Run() {
	c.build()
	c.startWorkers()
	c.monitorConfigChanges()
	c.shutdownHook()
	c.shutdown()
}

// build initializes dependencies: config, tracing, secrets, storage,
// metrics, queue, and the relay/cleanup applications and workers.
func (c *ServiceCtx) build() {
	c.serverCtx, c.serverStopFunc = context.WithCancel(context.Background())

	deps, err := initializeDependencies(c.serverCtx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	c.deps = deps
}

// startWorkers launches the relay tick, the cleanup tick, and (if
// metrics are enabled) the metrics HTTP server, each in its own
// goroutine. serverReady, if set, is signaled once they have been
// launched.
func (c *ServiceCtx) startWorkers() {
	c.deps.logger.Info().Msg("service starting up")

	c.workersWG.Add(2)

	go func() {
		defer c.workersWG.Done()

		if err := c.deps.Workers.RelayProcessor.Start(c.serverCtx); err != nil && !errors.Is(err, context.Canceled) {
			c.deps.logger.Error().Err(err).Msg("relay processor stopped unexpectedly")
		}
	}()

	go func() {
		defer c.workersWG.Done()

		if err := c.deps.Workers.CleanupTick.Start(c.serverCtx); err != nil && !errors.Is(err, context.Canceled) {
			c.deps.logger.Error().Err(err).Msg("cleanup tick stopped unexpectedly")
		}
	}()

	if c.deps.Infra.MetricsServer != nil {
		go func() {
			if err := c.deps.Infra.MetricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				c.deps.logger.Error().Err(err).Msg("metrics server stopped unexpectedly")
			}
		}()
	}

	if c.serverReady != nil {
		c.serverReady <- struct{}{}
	}
}

func (c *ServiceCtx) shutdownHook() {
	signal.Notify(c.shutdownChannel, syscall.SIGINT, syscall.SIGTERM)
	signal.Notify(c.reloadConfigChannel, syscall.SIGHUP, syscall.SIGUSR1)
}

func (c *ServiceCtx) monitorConfigChanges() {
	if c.deps.configLoader == nil {
		return
	}

	reloadErrors := c.deps.configLoader.WatchConfigSignals(c.serverCtx)

	go func() {
		for err := range reloadErrors {
			if err != nil {
				c.deps.logger.Error().Err(err).Msg("failed to reload config")
				continue
			}

			c.deps.logger.Info().Msg("config reloaded successfully")
		}

		c.deps.logger.Info().Msg("stopping config monitor")
	}()
}

func (c *ServiceCtx) shutdown() {
	select {
	case <-c.serverCtx.Done():
	case <-c.shutdownChannel:
		defer close(c.shutdownChannel)
	}

	c.deps.logger.Info().Msg("received shutdown signal")

	// Cancel context so the background workers stop accepting new ticks.
	c.serverStopFunc()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownGrace)

	go func() {
		<-shutdownCtx.Done()

		if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
			c.deps.logger.Error().Msg("graceful shutdown timed out.. forcing exit.")
			cancel()
			os.Exit(1)
		}
	}()

	c.cleanup(shutdownCtx)
	cancel()

	c.deps.logger.Info().Msg("shutdown completed")
}

// DirectPublisher returns the C9 fast-path publisher so a host
// application embedding this library can publish events outside the
// outbox, without waiting for the next relay tick. Only valid after
// build() has run (i.e. after Run or a call that triggers it).
func (c *ServiceCtx) DirectPublisher() *directpublish.Publisher {
	return c.deps.Apps.DirectPublisher
}

// WaitForServer blocks until the background workers are running.
func (c *ServiceCtx) WaitForServer() {
	if c.serverReady != nil {
		<-c.serverReady
		close(c.serverReady)
	}
}

func (c *ServiceCtx) cleanup(shutdownCtx context.Context) {
	c.deps.logger.Info().Msg("cleaning up resources...")

	done := make(chan struct{})

	go func() {
		c.workersWG.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-shutdownCtx.Done():
		c.deps.logger.Warn().Msg("workers did not stop within grace window")
	}

	if c.deps.Infra.MetricsServer != nil {
		if err := c.deps.Infra.MetricsServer.Shutdown(shutdownCtx); err != nil {
			c.deps.logger.Error().Err(err).Msg("failed to shut down metrics server")
		}
	}

	if c.deps.Infra.QueueClient != nil {
		if err := c.deps.Infra.QueueClient.Close(); err != nil {
			c.deps.logger.Error().Err(err).Msg("failed to close queue connection")
		}
	}

	if c.deps.Infra.StorageClient != nil {
		if err := c.deps.Infra.StorageClient.Close(); err != nil {
			c.deps.logger.Error().Err(err).Msg("failed to close storage connection")
		}
	}

	if c.deps.Infra.CacheClient != nil {
		if err := c.deps.Infra.CacheClient.Close(); err != nil {
			c.deps.logger.Error().Err(err).Msg("failed to close cache connection")
		}
	}

	if c.deps.Infra.Metrics != nil {
		if err := c.deps.Infra.Metrics.Shutdown(shutdownCtx); err != nil {
			c.deps.logger.Error().Err(err).Msg("failed to shut down metrics provider")
		}
	}

	if c.deps.tracerShutdownFunc != nil {
		if err := c.deps.tracerShutdownFunc(shutdownCtx); err != nil {
			c.deps.logger.Error().Err(err).Msg("failed to shut down tracer provider")
		}
	}

	c.deps.logger.Info().Msg("cleanup completed")
}
