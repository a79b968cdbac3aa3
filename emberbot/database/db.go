package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"log/slog"

	"github.com/emberworks/emberbot/emberbot/database/models"
	"github.com/uptrace/bun"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

const (
	defaultMaxRetries    = 3
	defaultRetryInterval = time.Second
)

type DBConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	Database     string `toml:"database"`
	SSLMode      string `toml:"ssl_mode"`
	PoolSize     int    `toml:"pool_size"`
	MaxIdleConns int    `toml:"max_idle_conns"`
	MaxLifetime  int    `toml:"max_lifetime"`
}

// DB holds both database handles: the pgx pool for raw SQL and the
// LISTEN/NOTIFY subscription, and bun for the model layer.
type DB struct {
	pool  *pgxpool.Pool
	bunDB *bun.DB
}

func New(ctx context.Context, cfg DBConfig) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(buildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if cfg.PoolSize > 0 {
		poolConfig.MaxConns = int32(cfg.PoolSize)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = time.Duration(cfg.MaxLifetime) * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	var pingErr error
	for i := 0; i < defaultMaxRetries; i++ {
		if pingErr = pool.Ping(ctx); pingErr == nil {
			break
		}
		time.Sleep(defaultRetryInterval)
	}
	if pingErr != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable after %d attempts: %w", defaultMaxRetries, pingErr)
	}

	return &DB{pool: pool, bunDB: newBunDB(cfg)}, nil
}

func buildConnString(cfg DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&connect_timeout=5",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, sslMode,
	)
}

func newBunDB(cfg DBConfig) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(buildConnString(cfg))))
	return bun.NewDB(sqldb, pgdialect.New())
}

func (db *DB) GetPool() *pgxpool.Pool {
	return db.pool
}

func (db *DB) BunDB() *bun.DB {
	return db.bunDB
}

func (db *DB) ExecWithLog(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	start := time.Now()
	result, err := db.pool.Exec(ctx, sql, args...)
	duration := time.Since(start)

	if err != nil {
		slog.Error("Query failed",
			slog.String("type", "db"),
			slog.String("operation", "exec"),
			slog.String("query", sql),
			slog.Duration("took", duration),
			slog.Any("error", err),
		)
		return result, err
	}

	slog.Debug("Query executed",
		slog.String("type", "db"),
		slog.String("operation", "exec"),
		slog.Duration("took", duration),
		slog.Int64("affected_rows", result.RowsAffected()),
	)
	return result, nil
}

func (db *DB) QueryWithLog(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	start := time.Now()
	rows, err := db.pool.Query(ctx, sql, args...)
	duration := time.Since(start)

	if err != nil {
		slog.Error("Query failed",
			slog.String("type", "db"),
			slog.String("operation", "query"),
			slog.String("query", sql),
			slog.Duration("took", duration),
			slog.Any("error", err),
		)
		return rows, err
	}

	slog.Debug("Query executed",
		slog.String("type", "db"),
		slog.String("operation", "query"),
		slog.Duration("took", duration),
	)
	return rows, nil
}

func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
	if db.bunDB != nil {
		db.bunDB.Close()
	}
}

// Ping verifies both database connections are working
func (db *DB) Ping(ctx context.Context) error {
	if err := db.pool.Ping(ctx); err != nil {
		return fmt.Errorf("pgxpool ping failed: %w", err)
	}
	if err := db.bunDB.PingContext(ctx); err != nil {
		return fmt.Errorf("bun ping failed: %w", err)
	}
	return nil
}

// InitializeSchema creates all required tables, constraints, indexes and the
// configuration invalidation triggers.
func (db *DB) InitializeSchema(ctx context.Context) error {
	tables := []interface{}{
		(*models.User)(nil),
		(*models.ActivityEvent)(nil),
		(*models.EventCounter)(nil),
		(*models.AchievementTemplate)(nil),
		(*models.UserAchievement)(nil),
		(*models.ChannelMultiplier)(nil),
		(*models.Setting)(nil),
	}

	for _, model := range tables {
		_, err := db.bunDB.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	constraints := []string{
		// Idempotency and race-safety constraints. The lake's unique
		// source_event_id is created by the model tag; these cover the
		// composite keys bun tags cannot express.
		`DO $$
		BEGIN
			IF NOT EXISTS (
				SELECT 1 FROM pg_constraint WHERE conname = 'event_counters_unique_key'
			) THEN
				ALTER TABLE event_counters
				ADD CONSTRAINT event_counters_unique_key
				UNIQUE (actor_id, event_type, channel_group, period, period_key);
			END IF;
		END $$;`,
		`DO $$
		BEGIN
			IF NOT EXISTS (
				SELECT 1 FROM pg_constraint WHERE conname = 'user_achievements_unique_grant'
			) THEN
				ALTER TABLE user_achievements
				ADD CONSTRAINT user_achievements_unique_grant
				UNIQUE (user_id, achievement_id);
			END IF;
		END $$;`,
		`DO $$
		BEGIN
			IF NOT EXISTS (
				SELECT 1 FROM pg_constraint WHERE conname = 'channel_multipliers_unique_rule'
			) THEN
				ALTER TABLE channel_multipliers
				ADD CONSTRAINT channel_multipliers_unique_rule
				UNIQUE (scope, target, event_type);
			END IF;
		END $$;`,
	}
	for _, stmt := range constraints {
		if _, err := db.ExecWithLog(ctx, stmt); err != nil {
			return fmt.Errorf("failed to add constraint: %w", err)
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_activity_events_actor ON activity_events(actor_id, event_type);",
		"CREATE INDEX IF NOT EXISTS idx_activity_events_timestamp ON activity_events(timestamp);",
		"CREATE INDEX IF NOT EXISTS idx_activity_events_channel_group ON activity_events(channel_group);",
		"CREATE INDEX IF NOT EXISTS idx_event_counters_actor ON event_counters(actor_id, event_type);",
		"CREATE INDEX IF NOT EXISTS idx_user_achievements_achievement ON user_achievements(achievement_id);",
		"CREATE INDEX IF NOT EXISTS idx_user_achievements_user ON user_achievements(user_id);",
	}
	for _, idx := range indexes {
		if _, err := db.ExecWithLog(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	if err := db.initializeConfigTriggers(ctx); err != nil {
		return fmt.Errorf("failed to create config triggers: %w", err)
	}
	if err := db.InitializeSeedData(ctx); err != nil {
		return fmt.Errorf("failed to initialize seed data: %w", err)
	}
	return nil
}

// initializeConfigTriggers wires the invalidation protocol on the store
// side: any write to a configuration table notifies every consumer process
// with the table name as payload.
func (db *DB) initializeConfigTriggers(ctx context.Context) error {
	fn := `
		CREATE OR REPLACE FUNCTION ember_notify_config() RETURNS trigger AS $$
		BEGIN
			PERFORM pg_notify('ember_config_changed', TG_ARGV[0]);
			RETURN NULL;
		END;
		$$ LANGUAGE plpgsql;`
	if _, err := db.ExecWithLog(ctx, fn); err != nil {
		return err
	}

	// Payloads are partition names, not table names: the achievements
	// partition is backed by achievement_templates.
	triggers := map[string]string{
		"channel_multipliers":   "channel_multipliers",
		"achievement_templates": "achievements",
		"settings":              "settings",
	}
	for table, payload := range triggers {
		stmt := fmt.Sprintf(`
			DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_trigger WHERE tgname = 'trg_%s_notify'
				) THEN
					CREATE TRIGGER trg_%s_notify
					AFTER INSERT OR UPDATE OR DELETE ON %s
					FOR EACH STATEMENT
					EXECUTE FUNCTION ember_notify_config('%s');
				END IF;
			END $$;`, table, table, table, payload)
		if _, err := db.ExecWithLog(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// InitializeSeedData inserts or refreshes the default multiplier rules,
// settings and the starter achievement set.
func (db *DB) InitializeSeedData(ctx context.Context) error {
	settings := map[string]string{
		"current_season":         "1",
		"last_rolled_season":     "1",
		"season_start":           time.Now().UTC().Format("2006-01-02"),
		"retention_horizon_days": "90",
		"retention_batch_size":   "5000",
	}
	settingSQL := `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO NOTHING;`
	for key, value := range settings {
		if _, err := db.ExecWithLog(ctx, settingSQL, key, value); err != nil {
			return fmt.Errorf("failed to seed setting %s: %w", key, err)
		}
	}

	type multiplierSeed struct {
		Scope     string
		Target    string
		EventType string
		XP        float64
		Gold      float64
	}
	multipliers := []multiplierSeed{
		{models.MultiplierScopeChannelType, "voice", "voice_tick", 1.0, 0.5},
		{models.MultiplierScopeChannelType, "forum", models.WildcardEventType, 1.25, 1.0},
	}
	multiplierSQL := `
		INSERT INTO channel_multipliers (scope, target, event_type, xp_mult, gold_mult, updated_at)
		VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP)
		ON CONFLICT (scope, target, event_type) DO NOTHING;`
	for _, m := range multipliers {
		if _, err := db.ExecWithLog(ctx, multiplierSQL, m.Scope, m.Target, m.EventType, m.XP, m.Gold); err != nil {
			return fmt.Errorf("failed to seed multiplier %s/%s: %w", m.Scope, m.Target, err)
		}
	}

	type achievementSeed struct {
		ID          string
		Name        string
		Description string
		TriggerType string
		Config      string
		XP          int64
		Gold        int64
		Stars       int64
		SeriesID    string
		SeriesOrder int
		MaxEarners  int
	}

	achievements := []achievementSeed{
		{"first_message", "First Words", "Send your first message", "first_event", `{"event_type":"message"}`, 50, 10, 0, "", 0, 0},
		{"chatter_1", "Chatter", "Send 100 messages", "event_count", `{"event_type":"message","value":100}`, 100, 25, 1, "chatter", 1, 0},
		{"chatter_2", "Conversationalist", "Send 1000 messages", "event_count", `{"event_type":"message","value":1000}`, 250, 75, 2, "chatter", 2, 0},
		{"chatter_3", "Town Crier", "Send 10000 messages", "event_count", `{"event_type":"message","value":10000}`, 600, 200, 3, "chatter", 3, 0},
		{"beloved", "Beloved", "Receive 500 reactions", "event_count", `{"event_type":"reaction_received","value":500}`, 300, 100, 2, "", 0, 0},
		{"level_10", "Rising Star", "Reach level 10", "level_reached", `{"level":10}`, 200, 50, 1, "", 0, 0},
		{"level_every_25", "Quarter Century", "Reach level 25", "level_interval", `{"interval":25}`, 400, 150, 2, "", 0, 0},
		{"xp_50k", "Halfway There", "Accumulate 50000 XP", "xp_milestone", `{"value":50000}`, 500, 150, 3, "", 0, 0},
		{"threadstarter", "Threadstarter", "Create your first thread", "first_event", `{"event_type":"thread_create"}`, 75, 20, 0, "", 0, 0},
		{"founding_member", "Founding Member", "One of the first 100 members to earn a star", "star_milestone", `{"value":1}`, 0, 0, 0, "", 0, 100},
		{"community_pillar", "Community Pillar", "Awarded by moderators", "manual", `{}`, 1000, 500, 5, "", 0, 0},
	}

	achievementSQL := `
		INSERT INTO achievement_templates (
			id, name, description, trigger_type, trigger_config,
			reward_xp, reward_gold, reward_stars,
			series_id, series_order, max_earners, active,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5::jsonb,
			$6, $7, $8,
			$9, $10, $11, true,
			CURRENT_TIMESTAMP, CURRENT_TIMESTAMP
		) ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			trigger_type = EXCLUDED.trigger_type,
			trigger_config = EXCLUDED.trigger_config,
			reward_xp = EXCLUDED.reward_xp,
			reward_gold = EXCLUDED.reward_gold,
			reward_stars = EXCLUDED.reward_stars,
			series_id = EXCLUDED.series_id,
			series_order = EXCLUDED.series_order,
			max_earners = EXCLUDED.max_earners,
			updated_at = CURRENT_TIMESTAMP;`

	for _, a := range achievements {
		if _, err := db.ExecWithLog(ctx, achievementSQL,
			a.ID, a.Name, a.Description, a.TriggerType, a.Config,
			a.XP, a.Gold, a.Stars,
			a.SeriesID, a.SeriesOrder, a.MaxEarners,
		); err != nil {
			return fmt.Errorf("failed to seed achievement %s: %w", a.ID, err)
		}
	}

	slog.Info("Seed data initialized",
		slog.String("type", "db"),
		slog.Int("achievements", len(achievements)),
		slog.Int("multipliers", len(multipliers)))
	return nil
}
