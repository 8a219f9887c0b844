package runtime

import (
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/architeacher/outboxrelay/internal/config"
	"github.com/stretchr/testify/require"
)

func TestServiceCtx_SIGUSR1_ConfigReload(t *testing.T) {
	t.Run("SIGUSR1 signal triggers config reload", func(t *testing.T) {
		initialValue := "initial-test-value"
		t.Setenv("APP_SERVICE_NAME", initialValue)

		initialCfg, err := config.Init()
		require.NoError(t, err)
		require.Equal(t, initialValue, initialCfg.AppConfig.ServiceName)

		serviceCtx := New()
		serviceCtx.reloadConfigChannel = make(chan os.Signal, 1)

		serviceCtx.deps = &Dependencies{
			cfg: initialCfg,
		}

		var mu sync.Mutex
		var wg sync.WaitGroup

		wg.Add(1)
		go func() {
			defer wg.Done()
			<-serviceCtx.reloadConfigChannel

			newCfg, err := config.Init()
			if err == nil {
				mu.Lock()
				serviceCtx.deps.cfg = newCfg
				mu.Unlock()
			}
		}()

		newValue := "reloaded-test-value"
		t.Setenv("APP_SERVICE_NAME", newValue)

		serviceCtx.reloadConfigChannel <- syscall.SIGUSR1

		wg.Wait()

		mu.Lock()
		finalServiceName := serviceCtx.deps.cfg.AppConfig.ServiceName
		mu.Unlock()
		require.Equal(t, newValue, finalServiceName)
	})

	t.Run("config reload handles invalid configuration gracefully", func(t *testing.T) {
		t.Setenv("APP_SERVICE_NAME", "test-service")
		t.Setenv("RABBITMQ_PORT", "5672")

		initialCfg, err := config.Init()
		require.NoError(t, err)

		serviceCtx := New()
		serviceCtx.deps = &Dependencies{
			cfg: initialCfg,
		}
		originalServiceName := serviceCtx.deps.cfg.AppConfig.ServiceName

		t.Setenv("RABBITMQ_PORT", "not-a-port")

		reloadDone := make(chan bool, 1)
		serviceCtx.reloadConfigChannel = make(chan os.Signal, 1)

		go func() {
			<-serviceCtx.reloadConfigChannel

			newCfg, err := config.Init()
			if err != nil {
				reloadDone <- false
				return
			}
			serviceCtx.deps.cfg = newCfg
			reloadDone <- true
		}()

		serviceCtx.reloadConfigChannel <- syscall.SIGUSR1

		select {
		case success := <-reloadDone:
			if success {
				t.Error("Expected config reload to fail with invalid port, but it succeeded")
			}
		case <-time.After(200 * time.Millisecond):
			t.Error("Config reload did not complete within expected time")
		}

		require.Equal(t, originalServiceName, serviceCtx.deps.cfg.AppConfig.ServiceName)
	})

	t.Run("multiple SIGUSR1 signals are handled correctly", func(t *testing.T) {
		t.Setenv("APP_SERVICE_NAME", "initial-value")

		initialCfg, err := config.Init()
		require.NoError(t, err)

		serviceCtx := New()
		serviceCtx.deps = &Dependencies{
			cfg: initialCfg,
		}
		serviceCtx.reloadConfigChannel = make(chan os.Signal, 1)

		var mu sync.Mutex
		var wg sync.WaitGroup
		reloadCount := 0

		wg.Add(1)
		go func() {
			defer wg.Done()
			for range serviceCtx.reloadConfigChannel {
				newCfg, err := config.Init()
				if err == nil {
					mu.Lock()
					serviceCtx.deps.cfg = newCfg
					reloadCount++
					mu.Unlock()
				}
			}
		}()

		testValues := []string{"value1", "value2", "value3"}
		for _, value := range testValues {
			t.Setenv("APP_SERVICE_NAME", value)
			serviceCtx.reloadConfigChannel <- syscall.SIGUSR1
			time.Sleep(50 * time.Millisecond)
		}

		close(serviceCtx.reloadConfigChannel)
		wg.Wait()

		require.Equal(t, len(testValues), reloadCount)
		mu.Lock()
		finalServiceName := serviceCtx.deps.cfg.AppConfig.ServiceName
		mu.Unlock()
		require.Equal(t, "value3", finalServiceName)
	})
}

func TestServiceCtx_ConfigReloadConcurrency(t *testing.T) {
	t.Run("concurrent config access is safe", func(t *testing.T) {
		t.Setenv("APP_SERVICE_NAME", "concurrent-test")

		initialCfg, err := config.Init()
		require.NoError(t, err)

		serviceCtx := New()
		serviceCtx.deps = &Dependencies{
			cfg: initialCfg,
		}
		serviceCtx.reloadConfigChannel = make(chan os.Signal, 1)

		go func() {
			<-serviceCtx.reloadConfigChannel
			newCfg, err := config.Init()
			if err == nil {
				serviceCtx.deps.cfg = newCfg
			}
		}()

		done := make(chan bool, 2)

		go func() {
			for i := 0; i < 100; i++ {
				_ = serviceCtx.deps.cfg.AppConfig.ServiceName
				time.Sleep(time.Microsecond)
			}
			done <- true
		}()

		go func() {
			time.Sleep(10 * time.Millisecond)
			t.Setenv("APP_SERVICE_NAME", "updated-concurrent-test")
			serviceCtx.reloadConfigChannel <- syscall.SIGUSR1
			done <- true
		}()

		<-done
		<-done

		require.NotNil(t, serviceCtx.deps.cfg)
	})
}

func TestNew_WithReloadChannel(t *testing.T) {
	t.Run("service context initializes with reload channel", func(t *testing.T) {
		serviceCtx := New()

		require.NotNil(t, serviceCtx.reloadConfigChannel)
		require.NotNil(t, serviceCtx.shutdownChannel)
		require.Nil(t, serviceCtx.deps)
	})
}
