// Package replay drives the pool engine from an operation log: each JSONL
// line is one guarded entry-point call, applied in sequence with a
// deterministic clock taken from the record timestamps.
package replay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"poolCore/internal/model"
	"poolCore/internal/pair"
	"poolCore/internal/registry"
	"poolCore/internal/storage"
	"poolCore/internal/token"
)

// RunConfig holds runtime settings for the replayer. Checkpoints overrides
// the file-backed store built from CheckpointPath, so a Postgres deployment
// can keep its cursor next to its data.
type RunConfig struct {
	BatchSize         int
	CheckpointPath    string
	CheckpointEnabled bool
	Checkpoints       Checkpointer
	FeeToSetter       common.Address
}

// Runner applies operations to pools and writes emitted events to storage.
type Runner struct {
	cfg        RunConfig
	storage    storage.Storage
	logger     *zap.Logger
	checkpoint Checkpointer

	ledger   *token.Ledger
	registry *registry.Registry
	buffer   *eventBuffer
	clockTS  uint64
}

// eventBuffer collects notifications from one operation. Events from a failed
// operation are discarded, mirroring the all-or-nothing execution model.
type eventBuffer struct {
	pending []model.PoolEventRecord
}

func (b *eventBuffer) Record(pool common.Address, name string, payload any) {
	b.pending = append(b.pending, model.PoolEventRecord{
		Pool:      pool.Hex(),
		EventName: name,
		Decoded:   payload,
	})
}

// NewRunner builds a Runner with a fresh ledger and registry.
func NewRunner(cfg RunConfig, storageSink storage.Storage, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	checkpoint := cfg.Checkpoints
	if checkpoint == nil {
		checkpoint = NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled)
	}

	r := &Runner{
		cfg:        cfg,
		storage:    storageSink,
		logger:     logger,
		checkpoint: checkpoint,
		buffer:     &eventBuffer{},
	}
	r.ledger = token.NewLedger(r.buffer)

	reg, err := registry.New(registry.Config{
		Ledger:      r.ledger,
		Sink:        r.buffer,
		Now:         func() uint64 { return r.clockTS },
		FeeToSetter: cfg.FeeToSetter,
	})
	if err != nil {
		return nil, err
	}
	r.registry = reg
	return r, nil
}

// Ledger exposes the backing ledger, used to seed balances before a run.
func (r *Runner) Ledger() *token.Ledger { return r.ledger }

// Registry exposes the pool registry built during the run.
func (r *Runner) Registry() *registry.Registry { return r.registry }

// Run replays an operations JSONL file.
func (r *Runner) Run(ctx context.Context, inputPath string) error {
	if r.storage == nil {
		return fmt.Errorf("storage is nil")
	}

	var startSeq, eventSeq uint64
	if cp, ok, err := r.checkpoint.Load(); err != nil {
		return err
	} else if ok {
		startSeq = cp.LastAppliedSeq
		eventSeq = cp.LastEventSeq
		r.logger.Info("resume from checkpoint",
			zap.Uint64("last_applied", startSeq),
			zap.Uint64("last_event", eventSeq),
		)
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	batch := make([]model.PoolEventRecord, 0, r.cfg.BatchSize)
	var lastApplied uint64
	var total, applied, rebuilt, failed int

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var record model.OperationRecord
		if err := json.Unmarshal(line, &record); err != nil {
			failed++
			r.logger.Warn("decode operation", zap.Error(err))
			continue
		}
		// Records at or below the checkpoint are re-applied to rebuild the
		// in-memory ledger and registry. Their events were persisted by the
		// run that recorded the checkpoint, so the buffer is discarded and
		// the event sequence does not advance.
		rebuilding := record.Seq <= startSeq

		r.clockTS = record.Timestamp
		r.buffer.pending = r.buffer.pending[:0]

		// One operation is one atomic unit: the funding transfers issued by
		// apply roll back together with the entry-point call they precede.
		snap := r.ledger.Snapshot()
		if err := r.apply(record); err != nil {
			r.ledger.RevertToSnapshot(snap)
			failed++
			r.logger.Warn("operation failed",
				zap.Uint64("seq", record.Seq),
				zap.String("op", record.Op),
				zap.Bool("rebuilding", rebuilding),
				zap.Error(err),
			)
			continue
		}
		if rebuilding {
			rebuilt++
			continue
		}

		for _, event := range r.buffer.pending {
			eventSeq++
			event.Seq = eventSeq
			event.Timestamp = record.Timestamp
			batch = append(batch, event)
		}
		applied++
		lastApplied = record.Seq

		if len(batch) >= r.cfg.BatchSize {
			if err := r.flush(batch, lastApplied, eventSeq); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	if err := r.flush(batch, lastApplied, eventSeq); err != nil {
		return err
	}

	states := make([]model.PoolStateRecord, 0, len(r.registry.AllPairs()))
	for _, p := range r.registry.AllPairs() {
		states = append(states, p.State())
	}
	if err := r.storage.PutPoolStates(states); err != nil {
		return fmt.Errorf("store pool states: %w", err)
	}

	r.logger.Info("replay complete",
		zap.Int("total", total),
		zap.Int("applied", applied),
		zap.Int("rebuilt", rebuilt),
		zap.Int("failed", failed),
		zap.Int("pools", len(states)),
	)
	return nil
}

func (r *Runner) flush(batch []model.PoolEventRecord, lastApplied, lastEvent uint64) error {
	if len(batch) > 0 {
		if err := r.storage.PutEventBatch(batch); err != nil {
			return fmt.Errorf("store events: %w", err)
		}
	}
	if lastApplied > 0 {
		if err := r.checkpoint.Save(Checkpoint{
			LastAppliedSeq: lastApplied,
			LastEventSeq:   lastEvent,
		}); err != nil {
			return err
		}
	}
	return nil
}

// apply dispatches one operation. Amount fields are denominated in the
// canonically ordered assets of the pool they address.
func (r *Runner) apply(record model.OperationRecord) error {
	switch record.Op {
	case model.OpCreate:
		tokenA, tokenB, err := r.parseAssets(record)
		if err != nil {
			return err
		}
		_, err = r.registry.CreatePair(tokenA, tokenB)
		return err

	case model.OpTransfer:
		asset, err := parseAddress("asset", record.Asset)
		if err != nil {
			return err
		}
		sender, err := parseAddress("sender", record.Sender)
		if err != nil {
			return err
		}
		recipient, err := parseAddress("recipient", record.Recipient)
		if err != nil {
			return err
		}
		amount, err := parseAmount("amount0", record.Amount0)
		if err != nil {
			return err
		}
		return r.ledger.Transfer(asset, sender, recipient, amount)

	case model.OpMint:
		p, sender, recipient, err := r.parsePoolCall(record)
		if err != nil {
			return err
		}
		amount0, err := parseAmount("amount0", record.Amount0)
		if err != nil {
			return err
		}
		amount1, err := parseAmount("amount1", record.Amount1)
		if err != nil {
			return err
		}
		if amount0.Sign() > 0 {
			if err := r.ledger.Transfer(p.Token0(), sender, p.Address(), amount0); err != nil {
				return err
			}
		}
		if amount1.Sign() > 0 {
			if err := r.ledger.Transfer(p.Token1(), sender, p.Address(), amount1); err != nil {
				return err
			}
		}
		_, err = p.Mint(sender, recipient)
		return err

	case model.OpBurn:
		p, sender, recipient, err := r.parsePoolCall(record)
		if err != nil {
			return err
		}
		liquidity, err := parseAmount("liquidity", record.Liquidity)
		if err != nil {
			return err
		}
		if liquidity.Sign() > 0 {
			if err := r.ledger.Transfer(p.Address(), sender, p.Address(), liquidity); err != nil {
				return err
			}
		}
		_, _, err = p.Burn(sender, recipient)
		return err

	case model.OpSwap:
		p, sender, recipient, err := r.parsePoolCall(record)
		if err != nil {
			return err
		}
		amount0Out, err := parseAmount("amount0", record.Amount0)
		if err != nil {
			return err
		}
		amount1Out, err := parseAmount("amount1", record.Amount1)
		if err != nil {
			return err
		}
		amount0In, err := parseAmount("amount0_in", record.Amount0In)
		if err != nil {
			return err
		}
		amount1In, err := parseAmount("amount1_in", record.Amount1In)
		if err != nil {
			return err
		}
		if amount0In.Sign() > 0 {
			if err := r.ledger.Transfer(p.Token0(), sender, p.Address(), amount0In); err != nil {
				return err
			}
		}
		if amount1In.Sign() > 0 {
			if err := r.ledger.Transfer(p.Token1(), sender, p.Address(), amount1In); err != nil {
				return err
			}
		}
		return p.Swap(sender, amount0Out, amount1Out, recipient, []byte(record.Data))

	case model.OpSync:
		tokenA, tokenB, err := r.parseAssets(record)
		if err != nil {
			return err
		}
		p := r.registry.Pair(tokenA, tokenB)
		if p == nil {
			return fmt.Errorf("unknown pool %s/%s", record.TokenA, record.TokenB)
		}
		return p.Sync()

	case model.OpSetFeeTo:
		sender, err := parseAddress("sender", record.Sender)
		if err != nil {
			return err
		}
		// A zero recipient disables protocol fee accrual.
		var feeTo common.Address
		if record.Recipient != "" {
			feeTo, err = parseAddress("recipient", record.Recipient)
			if err != nil {
				return err
			}
		}
		return r.registry.SetFeeTo(sender, feeTo)

	default:
		return fmt.Errorf("unknown op: %s", record.Op)
	}
}

func (r *Runner) parseAssets(record model.OperationRecord) (common.Address, common.Address, error) {
	tokenA, err := parseAddress("token_a", record.TokenA)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	tokenB, err := parseAddress("token_b", record.TokenB)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return tokenA, tokenB, nil
}

func (r *Runner) parsePoolCall(record model.OperationRecord) (*pair.Pair, common.Address, common.Address, error) {
	tokenA, tokenB, err := r.parseAssets(record)
	if err != nil {
		return nil, common.Address{}, common.Address{}, err
	}
	p := r.registry.Pair(tokenA, tokenB)
	if p == nil {
		return nil, common.Address{}, common.Address{}, fmt.Errorf("unknown pool %s/%s", record.TokenA, record.TokenB)
	}
	sender, err := parseAddress("sender", record.Sender)
	if err != nil {
		return nil, common.Address{}, common.Address{}, err
	}
	recipient := sender
	if record.Recipient != "" {
		recipient, err = parseAddress("recipient", record.Recipient)
		if err != nil {
			return nil, common.Address{}, common.Address{}, err
		}
	}
	return p, sender, recipient, nil
}
