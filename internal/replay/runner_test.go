package replay

import (
	"context"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"poolCore/internal/model"
	"poolCore/internal/pair"
)

var (
	tokenX = common.HexToAddress("0x0000000000000000000000000000000000000001")
	tokenY = common.HexToAddress("0x0000000000000000000000000000000000000002")
	trader = common.HexToAddress("0x0000000000000000000000000000000000000055")
)

type memStorage struct {
	events []model.PoolEventRecord
	states []model.PoolStateRecord
}

func (m *memStorage) PutEventBatch(events []model.PoolEventRecord) error {
	m.events = append(m.events, events...)
	return nil
}

func (m *memStorage) PutPoolStates(states []model.PoolStateRecord) error {
	m.states = append(m.states, states...)
	return nil
}

type memCheckpoints struct {
	cp Checkpoint
	ok bool
}

func (m *memCheckpoints) Load() (Checkpoint, bool, error) { return m.cp, m.ok, nil }

func (m *memCheckpoints) Save(cp Checkpoint) error {
	m.cp, m.ok = cp, true
	return nil
}

func writeOps(t *testing.T, path string, ops []model.OperationRecord) {
	t.Helper()
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()
	for _, op := range ops {
		line, err := json.Marshal(op)
		require.NoError(t, err)
		_, err = file.Write(append(line, '\n'))
		require.NoError(t, err)
	}
}

func e18(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}

func TestRunnerReplay(t *testing.T) {
	dir := t.TempDir()
	opsPath := filepath.Join(dir, "ops.jsonl")
	cpPath := filepath.Join(dir, "checkpoint.json")

	swapOut, err := pair.GetAmountOut(e18(1), e18(1), e18(4))
	require.NoError(t, err)

	liquidity := new(big.Int).Sub(e18(2), big.NewInt(1000))

	ops := []model.OperationRecord{
		{Seq: 1, Op: model.OpCreate, Timestamp: 100, TokenA: tokenY.Hex(), TokenB: tokenX.Hex()},
		{Seq: 2, Op: model.OpMint, Timestamp: 110, TokenA: tokenX.Hex(), TokenB: tokenY.Hex(),
			Sender: trader.Hex(), Amount0: e18(1).String(), Amount1: e18(4).String()},
		{Seq: 3, Op: model.OpSwap, Timestamp: 120, TokenA: tokenX.Hex(), TokenB: tokenY.Hex(),
			Sender: trader.Hex(), Amount0In: e18(1).String(), Amount1: swapOut.String()},
		// Asks for more than the fee allows; must fail and roll back fully.
		{Seq: 4, Op: model.OpSwap, Timestamp: 125, TokenA: tokenX.Hex(), TokenB: tokenY.Hex(),
			Sender: trader.Hex(), Amount0In: e18(1).String(),
			Amount1: new(big.Int).Add(swapOut, big.NewInt(1)).String()},
		{Seq: 5, Op: model.OpBurn, Timestamp: 130, TokenA: tokenX.Hex(), TokenB: tokenY.Hex(),
			Sender: trader.Hex(), Liquidity: liquidity.String()},
		{Seq: 6, Op: model.OpSync, Timestamp: 140, TokenA: tokenX.Hex(), TokenB: tokenY.Hex()},
	}
	writeOps(t, opsPath, ops)

	store := &memStorage{}
	runner, err := NewRunner(RunConfig{
		BatchSize:         2,
		CheckpointPath:    cpPath,
		CheckpointEnabled: true,
	}, store, nil)
	require.NoError(t, err)

	// Seed the trader with enough of both assets for every operation.
	require.NoError(t, runner.Ledger().Mint(tokenX, trader, e18(10)))
	require.NoError(t, runner.Ledger().Mint(tokenY, trader, e18(10)))
	traderX := runner.Ledger().BalanceOf(tokenX, trader)

	require.NoError(t, runner.Run(context.Background(), opsPath))

	// The failed swap at seq 4 must not have leaked its funding transfer:
	// balances reflect exactly one deposit, one swap, and one full burn.
	p := runner.Registry().Pair(tokenX, tokenY)
	require.NotNil(t, p)
	require.Zero(t, runner.Ledger().BalanceOf(p.Address(), trader).Sign())

	spentX := new(big.Int).Sub(traderX, runner.Ledger().BalanceOf(tokenX, trader))
	require.True(t, spentX.Cmp(e18(3)) < 0, "spent %s", spentX)

	// Event stream: Sync+Mint, Sync+Swap, Sync+Burn, Sync, with ledger
	// transfer notifications interleaved, in seq order.
	require.NotEmpty(t, store.events)
	for i, event := range store.events {
		require.Equal(t, uint64(i+1), event.Seq)
	}
	var names []string
	for _, event := range store.events {
		if event.Pool == p.Address().Hex() && event.EventName != model.EventTransfer {
			names = append(names, event.EventName)
		}
	}
	require.Equal(t, []string{
		model.EventSync, model.EventMint,
		model.EventSync, model.EventSwap,
		model.EventSync, model.EventBurn,
		model.EventSync,
	}, names)

	require.Len(t, store.states, 1)
	require.Equal(t, p.Address().Hex(), store.states[0].Pool)
	require.Equal(t, "1000", store.states[0].TotalSupply)

	// Checkpoint recorded both progress cursors.
	cp, ok, err := NewCheckpointStore(cpPath, true).Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(6), cp.LastAppliedSeq)
	require.Equal(t, uint64(len(store.events)), cp.LastEventSeq)
}

func TestRunnerResumesFromCheckpoint(t *testing.T) {
	dir := t.TempDir()
	opsPath := filepath.Join(dir, "ops.jsonl")
	cpPath := filepath.Join(dir, "checkpoint.json")

	ops := []model.OperationRecord{
		{Seq: 1, Op: model.OpCreate, Timestamp: 100, TokenA: tokenX.Hex(), TokenB: tokenY.Hex()},
	}
	writeOps(t, opsPath, ops)
	require.NoError(t, NewCheckpointStore(cpPath, true).Save(Checkpoint{LastAppliedSeq: 1}))

	store := &memStorage{}
	runner, err := NewRunner(RunConfig{
		CheckpointPath:    cpPath,
		CheckpointEnabled: true,
	}, store, nil)
	require.NoError(t, err)

	// Checkpointed records are re-applied to rebuild state but their events
	// are not persisted again.
	require.NoError(t, runner.Run(context.Background(), opsPath))
	require.Empty(t, store.events)
	require.NotNil(t, runner.Registry().Pair(tokenX, tokenY))
	require.Len(t, store.states, 1)
}

func TestRunnerResumeRebuildsState(t *testing.T) {
	dir := t.TempDir()
	opsPath := filepath.Join(dir, "ops.jsonl")
	cps := &memCheckpoints{}

	seed := func(r *Runner) {
		require.NoError(t, r.Ledger().Mint(tokenX, trader, e18(5)))
		require.NoError(t, r.Ledger().Mint(tokenY, trader, e18(5)))
	}

	prefix := []model.OperationRecord{
		{Seq: 1, Op: model.OpCreate, Timestamp: 100, TokenA: tokenX.Hex(), TokenB: tokenY.Hex()},
		{Seq: 2, Op: model.OpMint, Timestamp: 110, TokenA: tokenX.Hex(), TokenB: tokenY.Hex(),
			Sender: trader.Hex(), Amount0: e18(1).String(), Amount1: e18(4).String()},
	}
	writeOps(t, opsPath, prefix)

	store1 := &memStorage{}
	runner1, err := NewRunner(RunConfig{Checkpoints: cps}, store1, nil)
	require.NoError(t, err)
	seed(runner1)
	require.NoError(t, runner1.Run(context.Background(), opsPath))

	require.Equal(t, uint64(2), cps.cp.LastAppliedSeq)
	lastEvent := cps.cp.LastEventSeq
	require.Equal(t, uint64(len(store1.events)), lastEvent)

	// The log grows by one sync; a fresh runner resumes from the checkpoint.
	writeOps(t, opsPath, append(prefix, model.OperationRecord{
		Seq: 3, Op: model.OpSync, Timestamp: 120, TokenA: tokenX.Hex(), TokenB: tokenY.Hex(),
	}))

	store2 := &memStorage{}
	runner2, err := NewRunner(RunConfig{Checkpoints: cps}, store2, nil)
	require.NoError(t, err)
	seed(runner2)
	require.NoError(t, runner2.Run(context.Background(), opsPath))

	// The rebuilt pool serves the post-checkpoint sync, and the mint was
	// credited exactly once despite being re-applied.
	p := runner2.Registry().Pair(tokenX, tokenY)
	require.NotNil(t, p)
	wantLiquidity := new(big.Int).Sub(e18(2), big.NewInt(1000))
	require.Zero(t, runner2.Ledger().BalanceOf(p.Address(), trader).Cmp(wantLiquidity))

	// Only the sync's event is persisted, continuing the sequence from the
	// checkpoint instead of reusing already-stored numbers.
	require.Len(t, store2.events, 1)
	require.Equal(t, lastEvent+1, store2.events[0].Seq)
	require.Equal(t, model.EventSync, store2.events[0].EventName)

	require.Len(t, store2.states, 1)
	require.Equal(t, e18(1).String(), store2.states[0].Reserve0)
	require.Equal(t, e18(4).String(), store2.states[0].Reserve1)

	require.Equal(t, uint64(3), cps.cp.LastAppliedSeq)
	require.Equal(t, lastEvent+1, cps.cp.LastEventSeq)
}

func TestRunnerUnknownOp(t *testing.T) {
	dir := t.TempDir()
	opsPath := filepath.Join(dir, "ops.jsonl")

	ops := []model.OperationRecord{
		{Seq: 1, Op: "upgrade", Timestamp: 100},
		{Seq: 2, Op: model.OpCreate, Timestamp: 100, TokenA: tokenX.Hex(), TokenB: tokenY.Hex()},
	}
	writeOps(t, opsPath, ops)

	store := &memStorage{}
	runner, err := NewRunner(RunConfig{}, store, nil)
	require.NoError(t, err)

	// Unknown ops are logged and skipped; later ops still apply.
	require.NoError(t, runner.Run(context.Background(), opsPath))
	require.NotNil(t, runner.Registry().Pair(tokenX, tokenY))
}
