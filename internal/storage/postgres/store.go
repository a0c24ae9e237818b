package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poolCore/internal/model"
	"poolCore/internal/replay"
)

// Store provides Postgres persistence for pool events and states.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// PutEventBatch inserts emitted pool events; replays of already-stored
// sequence numbers are ignored.
func (s *Store) PutEventBatch(ctx context.Context, events []model.PoolEventRecord) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, event := range events {
		decoded, err := json.Marshal(event.Decoded)
		if err != nil {
			return fmt.Errorf("marshal event payload: %w", err)
		}
		batch.Queue(`
			INSERT INTO pool_events (seq, pool, event_name, event_ts, decoded, created_at)
			VALUES ($1, $2, $3, $4, $5, now())
			ON CONFLICT (seq) DO NOTHING
		`,
			int64(event.Seq),
			event.Pool,
			event.EventName,
			int64(event.Timestamp),
			decoded,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// PutPoolStates upserts pool state snapshots.
func (s *Store) PutPoolStates(ctx context.Context, states []model.PoolStateRecord) error {
	if len(states) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, state := range states {
		batch.Queue(`
			INSERT INTO pool_states (
				pool, token0, token1, reserve0, reserve1, block_timestamp_last,
				price0_cumulative_last, price1_cumulative_last, k_last, total_supply,
				created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now(),now())
			ON CONFLICT (pool)
			DO UPDATE SET
				reserve0 = EXCLUDED.reserve0,
				reserve1 = EXCLUDED.reserve1,
				block_timestamp_last = EXCLUDED.block_timestamp_last,
				price0_cumulative_last = EXCLUDED.price0_cumulative_last,
				price1_cumulative_last = EXCLUDED.price1_cumulative_last,
				k_last = EXCLUDED.k_last,
				total_supply = EXCLUDED.total_supply,
				updated_at = now()
		`,
			state.Pool,
			state.Token0,
			state.Token1,
			state.Reserve0,
			state.Reserve1,
			int64(state.BlockTimestampLast),
			state.Price0CumulativeLast,
			state.Price1CumulativeLast,
			state.KLast,
			state.TotalSupply,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range states {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadCheckpoint returns the replay progress stored under name.
func (s *Store) LoadCheckpoint(ctx context.Context, name string) (lastApplied, lastEvent uint64, ok bool, err error) {
	if name == "" {
		return 0, 0, false, fmt.Errorf("checkpoint name required")
	}
	row := s.pool.QueryRow(ctx, `SELECT last_applied_seq, last_event_seq FROM replay_state WHERE name=$1`, name)
	if err := row.Scan(&lastApplied, &lastEvent); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, false, nil
		}
		return 0, 0, false, err
	}
	return lastApplied, lastEvent, true, nil
}

// SaveCheckpoint upserts the replay progress stored under name.
func (s *Store) SaveCheckpoint(ctx context.Context, name string, lastApplied, lastEvent uint64) error {
	if name == "" {
		return fmt.Errorf("checkpoint name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO replay_state (name, last_applied_seq, last_event_seq, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name) DO UPDATE
		SET last_applied_seq = EXCLUDED.last_applied_seq,
		    last_event_seq = EXCLUDED.last_event_seq,
		    updated_at = now()
	`, name, lastApplied, lastEvent)
	return err
}

// Sink binds a context to a Store so it satisfies storage.Storage.
type Sink struct {
	Ctx   context.Context
	Store *Store
}

func (s *Sink) PutEventBatch(events []model.PoolEventRecord) error {
	return s.Store.PutEventBatch(s.Ctx, events)
}

func (s *Sink) PutPoolStates(states []model.PoolStateRecord) error {
	return s.Store.PutPoolStates(s.Ctx, states)
}

// Checkpoints binds a Store to replay.Checkpointer, keeping the replay
// cursor in the replay_state table next to the data it describes.
type Checkpoints struct {
	Ctx   context.Context
	Store *Store
	Name  string
}

func (c *Checkpoints) Load() (replay.Checkpoint, bool, error) {
	lastApplied, lastEvent, ok, err := c.Store.LoadCheckpoint(c.Ctx, c.Name)
	if err != nil || !ok {
		return replay.Checkpoint{}, false, err
	}
	return replay.Checkpoint{LastAppliedSeq: lastApplied, LastEventSeq: lastEvent}, true, nil
}

func (c *Checkpoints) Save(cp replay.Checkpoint) error {
	return c.Store.SaveCheckpoint(c.Ctx, c.Name, cp.LastAppliedSeq, cp.LastEventSeq)
}
