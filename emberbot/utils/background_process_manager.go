package utils

import (
	"context"
	"sync"
	"time"

	"log/slog"
)

// BackgroundProcessManager owns every long-running goroutine in the bot:
// the config listener, the anti-gaming sweeper, the voice ticker and the
// maintenance jobs. Shutdown cancels them all and waits.
type BackgroundProcessManager struct {
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	processes map[string]*processInfo
	mu        sync.RWMutex
}

type processInfo struct {
	name        string
	cancel      context.CancelFunc
	description string
}

func NewBackgroundProcessManager() *BackgroundProcessManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &BackgroundProcessManager{
		ctx:       ctx,
		cancel:    cancel,
		processes: make(map[string]*processInfo),
	}
}

// StartProcess registers and starts a background process. Starting a process
// under a name already in use stops the old one first.
func (bpm *BackgroundProcessManager) StartProcess(name, description string, fn func(ctx context.Context)) {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	if _, exists := bpm.processes[name]; exists {
		slog.Warn("Process already exists, stopping existing one",
			slog.String("type", "sys"),
			slog.String("name", name))
		bpm.stopProcessLocked(name)
	}

	processCtx, processCancel := context.WithCancel(bpm.ctx)
	bpm.processes[name] = &processInfo{
		name:        name,
		cancel:      processCancel,
		description: description,
	}

	bpm.wg.Add(1)
	go func() {
		defer bpm.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Background process panic",
					slog.String("type", "sys"),
					slog.String("process", name),
					slog.Any("panic", r))
			}
		}()

		slog.Info("Starting background process",
			slog.String("type", "sys"),
			slog.String("process", name),
			slog.String("description", description))

		fn(processCtx)

		slog.Info("Background process ended",
			slog.String("type", "sys"),
			slog.String("process", name))
	}()
}

// StartPeriodic runs fn on a fixed interval until shutdown. The first run
// happens after one full interval, not immediately.
func (bpm *BackgroundProcessManager) StartPeriodic(name, description string, interval time.Duration, fn func(ctx context.Context)) {
	bpm.StartProcess(name, description, func(ctx context.Context) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	})
}

func (bpm *BackgroundProcessManager) StopProcess(name string) {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()
	bpm.stopProcessLocked(name)
}

func (bpm *BackgroundProcessManager) stopProcessLocked(name string) {
	if process, exists := bpm.processes[name]; exists {
		process.cancel()
		delete(bpm.processes, name)
		slog.Info("Stopped background process",
			slog.String("type", "sys"),
			slog.String("process", name))
	}
}

// Shutdown gracefully stops all background processes.
func (bpm *BackgroundProcessManager) Shutdown(timeout time.Duration) error {
	slog.Info("Shutting down background processes",
		slog.String("type", "sys"),
		slog.Int("process_count", bpm.GetProcessCount()))

	bpm.cancel()

	done := make(chan struct{})
	go func() {
		bpm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("All background processes stopped gracefully",
			slog.String("type", "sys"))
		return nil
	case <-time.After(timeout):
		slog.Warn("Timeout waiting for background processes to stop",
			slog.String("type", "sys"),
			slog.Duration("timeout", timeout))
		return context.DeadlineExceeded
	}
}

func (bpm *BackgroundProcessManager) GetProcessCount() int {
	bpm.mu.RLock()
	defer bpm.mu.RUnlock()
	return len(bpm.processes)
}
