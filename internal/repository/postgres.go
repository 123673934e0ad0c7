package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"turtle-bot/internal/model"
)

const schema = `
	CREATE TABLE IF NOT EXISTS pets (
		user_id BIGINT PRIMARY KEY,
		username VARCHAR(255) NOT NULL DEFAULT '',
		name VARCHAR(64) NOT NULL,
		level INT NOT NULL DEFAULT 1,
		experience INT NOT NULL DEFAULT 0,
		hunger INT NOT NULL DEFAULT 100,
		happiness INT NOT NULL DEFAULT 100,
		health INT NOT NULL DEFAULT 100,
		coins BIGINT NOT NULL DEFAULT 0,
		inventory JSONB NOT NULL DEFAULT '{}'::jsonb,
		last_played_at TIMESTAMPTZ,
		last_daily_claimed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS leaderboard (
		position INT PRIMARY KEY,
		user_id BIGINT NOT NULL UNIQUE,
		display_name VARCHAR(255) NOT NULL DEFAULT '',
		level INT NOT NULL
	);
`

// Migrate creates the pets and leaderboard tables.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// PostgresRepository stores snapshots in PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgresRepository instance.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Load reads every pet and the leaderboard in rank order.
func (r *PostgresRepository) Load(ctx context.Context) (*model.Snapshot, error) {
	const petsQuery = `
		SELECT user_id, username, name, level, experience, hunger, happiness, health,
		       coins, inventory, last_played_at, last_daily_claimed_at, created_at
		FROM pets
	`
	const boardQuery = `
		SELECT user_id, display_name, level
		FROM leaderboard
		ORDER BY position
	`

	snap := model.NewSnapshot()

	rows, err := r.pool.Query(ctx, petsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to load pets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p model.Pet
		err := rows.Scan(
			&p.UserID,
			&p.Username,
			&p.Name,
			&p.Level,
			&p.Experience,
			&p.Hunger,
			&p.Happiness,
			&p.Health,
			&p.Coins,
			&p.Inventory,
			&p.LastPlayedAt,
			&p.LastDailyClaimedAt,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pet: %w", err)
		}
		if p.Inventory == nil {
			p.Inventory = make(map[string]int)
		}
		p.CreatedAt = p.CreatedAt.UTC()
		if p.LastPlayedAt != nil {
			t := p.LastPlayedAt.UTC()
			p.LastPlayedAt = &t
		}
		if p.LastDailyClaimedAt != nil {
			t := p.LastDailyClaimedAt.UTC()
			p.LastDailyClaimedAt = &t
		}
		snap.Pets[p.UserID] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pets: %w", err)
	}

	boardRows, err := r.pool.Query(ctx, boardQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	defer boardRows.Close()

	for boardRows.Next() {
		var e model.LeaderboardEntry
		if err := boardRows.Scan(&e.UserID, &e.DisplayName, &e.Level); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		snap.Leaderboard = append(snap.Leaderboard, e)
	}
	if err := boardRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard: %w", err)
	}

	return snap, nil
}

// Save replaces the stored state with the snapshot in one transaction.
func (r *PostgresRepository) Save(ctx context.Context, snap *model.Snapshot) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM leaderboard`); err != nil {
		return fmt.Errorf("failed to clear leaderboard: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM pets`); err != nil {
		return fmt.Errorf("failed to clear pets: %w", err)
	}

	batch := &pgx.Batch{}
	for _, p := range snap.Pets {
		inventory := p.Inventory
		if inventory == nil {
			inventory = map[string]int{}
		}
		batch.Queue(`
			INSERT INTO pets (user_id, username, name, level, experience, hunger, happiness,
			                  health, coins, inventory, last_played_at, last_daily_claimed_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`,
			p.UserID, p.Username, p.Name, p.Level, p.Experience, p.Hunger, p.Happiness,
			p.Health, p.Coins, inventory, p.LastPlayedAt, p.LastDailyClaimedAt, p.CreatedAt,
		)
	}
	for i, e := range snap.Leaderboard {
		batch.Queue(`
			INSERT INTO leaderboard (position, user_id, display_name, level)
			VALUES ($1, $2, $3, $4)
		`, i+1, e.UserID, e.DisplayName, e.Level)
	}

	if batch.Len() > 0 {
		results := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("failed to insert snapshot row %d: %w", i, err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("failed to close batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	log.Debug().
		Int("pets", len(snap.Pets)).
		Int("leaderboard", len(snap.Leaderboard)).
		Msg("Snapshot saved to PostgreSQL")
	return nil
}
