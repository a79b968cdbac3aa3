package configcache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/emberworks/emberbot/emberbot/achievements"
)

// Partition names double as the pub/sub notification payloads. Anything not
// on this allow-list is rejected before any reload SQL is issued.
const (
	PartitionMultipliers  = "channel_multipliers"
	PartitionAchievements = "achievements"
	PartitionSettings     = "settings"
)

var knownPartitions = map[string]bool{
	PartitionMultipliers:  true,
	PartitionAchievements: true,
	PartitionSettings:     true,
}

// Loader reads one configuration partition from the store. Implemented by
// repositories.ConfigRepository.
type Loader interface {
	LoadMultipliers(ctx context.Context) (map[MultiplierKey]MultiplierPair, error)
	LoadAchievements(ctx context.Context) (map[string]achievements.Template, error)
	LoadSettings(ctx context.Context) (map[string]string, error)
}

// Notifier delivers invalidation payloads and reports subscription health.
// Implemented by Listener; tests substitute a channel-backed fake.
type Notifier interface {
	Run(ctx context.Context)
	Notifications() <-chan string
	Healthy() bool
}

// Cache holds the current configuration snapshot for one process. Each
// partition sits behind its own atomic pointer: readers never block on a
// reload and never observe a partially-applied one. The cache is explicitly
// constructed and passed to consumers; there is no package-level instance.
type Cache struct {
	loader   Loader
	notifier Notifier

	multipliers  atomic.Pointer[map[MultiplierKey]MultiplierPair]
	achievements atomic.Pointer[map[string]achievements.Template]
	settings     atomic.Pointer[map[string]string]

	reloadTimeout time.Duration

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func New(loader Loader, notifier Notifier) *Cache {
	return &Cache{
		loader:        loader,
		notifier:      notifier,
		reloadTimeout: 15 * time.Second,
	}
}

// Start performs the initial full load (which must succeed) and launches the
// listener plus the invalidation consumer.
func (c *Cache) Start(ctx context.Context) error {
	for _, partition := range []string{PartitionMultipliers, PartitionAchievements, PartitionSettings} {
		if err := c.reload(ctx, partition); err != nil {
			return fmt.Errorf("initial config load failed for %s: %w", partition, err)
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.notifier.Run(runCtx)
	go c.consume(runCtx)

	slog.Info("Configuration cache started",
		slog.String("type", "sys"),
		slog.Int("multipliers", len(*c.multipliers.Load())),
		slog.Int("achievements", len(*c.achievements.Load())),
		slog.Int("settings", len(*c.settings.Load())))
	return nil
}

// Stop shuts the listener and consumer down. The last snapshot stays
// readable after Stop.
func (c *Cache) Stop() {
	c.once.Do(func() {
		if c.cancel != nil {
			c.cancel()
			<-c.done
		}
	})
}

// Snapshot assembles the current view from the partition pointers. The maps
// are shared and must be treated as read-only.
func (c *Cache) Snapshot() *Snapshot {
	return &Snapshot{
		Multipliers:  *c.multipliers.Load(),
		Achievements: *c.achievements.Load(),
		Settings:     *c.settings.Load(),
	}
}

// Healthy reflects whether the invalidation subscription is currently live.
// A false value means the snapshot may be stale but is still served.
func (c *Cache) Healthy() bool {
	return c.notifier.Healthy()
}

func (c *Cache) consume(ctx context.Context) {
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-c.notifier.Notifications():
			if !ok {
				return
			}
			if !knownPartitions[payload] {
				slog.Warn("Ignoring config notification for unknown partition",
					slog.String("type", "sys"),
					slog.String("payload", payload))
				continue
			}

			reloadCtx, cancel := context.WithTimeout(ctx, c.reloadTimeout)
			err := c.reload(reloadCtx, payload)
			cancel()
			if err != nil {
				// Keep serving the last-known-good partition; the next
				// notification or restart retries.
				slog.Warn("Config partition reload failed, keeping previous snapshot",
					slog.String("type", "sys"),
					slog.String("partition", payload),
					slog.Any("error", err))
				continue
			}
			slog.Info("Config partition reloaded",
				slog.String("type", "sys"),
				slog.String("partition", payload))
		}
	}
}

func (c *Cache) reload(ctx context.Context, partition string) error {
	switch partition {
	case PartitionMultipliers:
		m, err := c.loader.LoadMultipliers(ctx)
		if err != nil {
			return err
		}
		c.multipliers.Store(&m)
	case PartitionAchievements:
		a, err := c.loader.LoadAchievements(ctx)
		if err != nil {
			return err
		}
		c.achievements.Store(&a)
	case PartitionSettings:
		s, err := c.loader.LoadSettings(ctx)
		if err != nil {
			return err
		}
		c.settings.Store(&s)
	default:
		return fmt.Errorf("unknown partition %q", partition)
	}
	return nil
}
