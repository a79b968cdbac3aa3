package configcache

import (
	"context"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NotifyChannel is the Postgres NOTIFY channel carrying partition names.
const NotifyChannel = "ember_config_changed"

type ListenerState int32

const (
	StateConnecting ListenerState = iota
	StateListening
	StateReconnecting
	StateFailed
	StateStopped
)

func (s ListenerState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateListening:
		return "listening"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Listener subscribes to the invalidation channel on a dedicated pooled
// connection and forwards payloads to the cache. Disconnects are retried
// with exponential backoff and jitter up to MaxReconnects, after which the
// listener enters the terminal Failed state and the cache keeps serving its
// last snapshot.
type Listener struct {
	pool *pgxpool.Pool
	out  chan string

	MaxReconnects int
	BaseBackoff   time.Duration
	MaxBackoff    time.Duration

	state atomic.Int32
}

func NewListener(pool *pgxpool.Pool) *Listener {
	return &Listener{
		pool:          pool,
		out:           make(chan string, 16),
		MaxReconnects: 10,
		BaseBackoff:   time.Second,
		MaxBackoff:    60 * time.Second,
	}
}

func (l *Listener) Notifications() <-chan string {
	return l.out
}

func (l *Listener) State() ListenerState {
	return ListenerState(l.state.Load())
}

// Healthy reports whether the subscription connection is currently alive.
func (l *Listener) Healthy() bool {
	return l.State() == StateListening
}

func (l *Listener) setState(s ListenerState) {
	l.state.Store(int32(s))
}

// Run drives the listener state machine until the context is cancelled or
// the reconnect budget is exhausted.
func (l *Listener) Run(ctx context.Context) {
	defer close(l.out)

	attempts := 0
	for {
		if ctx.Err() != nil {
			l.setState(StateStopped)
			return
		}
		if attempts == 0 {
			l.setState(StateConnecting)
		} else {
			l.setState(StateReconnecting)
		}

		err := l.listenOnce(ctx, &attempts)
		if ctx.Err() != nil {
			l.setState(StateStopped)
			return
		}

		attempts++
		if attempts > l.MaxReconnects {
			l.setState(StateFailed)
			slog.Error("Config listener exhausted reconnect attempts, serving stale configuration",
				slog.String("type", "sys"),
				slog.Int("attempts", attempts),
				slog.Any("error", err))
			return
		}

		delay := l.backoff(attempts)
		slog.Warn("Config listener disconnected, reconnecting",
			slog.String("type", "sys"),
			slog.Int("attempt", attempts),
			slog.Duration("backoff", delay),
			slog.Any("error", err))

		select {
		case <-ctx.Done():
			l.setState(StateStopped)
			return
		case <-time.After(delay):
		}
	}
}

// listenOnce holds one connection for as long as it stays healthy. The
// attempt counter is reset once the subscription is established so a long
// stable stretch does not eat into the reconnect budget.
func (l *Listener) listenOnce(ctx context.Context, attempts *int) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+NotifyChannel); err != nil {
		return err
	}

	l.setState(StateListening)
	*attempts = 0
	slog.Info("Config listener subscribed",
		slog.String("type", "sys"),
		slog.String("channel", NotifyChannel))

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		select {
		case l.out <- notification.Payload:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *Listener) backoff(attempt int) time.Duration {
	d := l.BaseBackoff << uint(attempt-1)
	if d > l.MaxBackoff || d <= 0 {
		d = l.MaxBackoff
	}
	// Half fixed, half jitter, so reconnect storms spread out.
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}
