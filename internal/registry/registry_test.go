package registry

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"poolCore/internal/token"
)

var (
	tokenA = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	tokenB = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	tokenC = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	setter = common.HexToAddress("0x0000000000000000000000000000000000000099")
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := New(Config{
		Ledger:      token.NewLedger(nil),
		FeeToSetter: setter,
	})
	require.NoError(t, err)
	return r
}

func TestSortAssets(t *testing.T) {
	t0, t1 := SortAssets(tokenA, tokenB)
	require.True(t, bytes.Compare(t0.Bytes(), t1.Bytes()) < 0)

	r0, r1 := SortAssets(tokenB, tokenA)
	require.Equal(t, t0, r0)
	require.Equal(t, t1, r1)
}

func TestPairAddressDeterministic(t *testing.T) {
	t0, t1 := SortAssets(tokenA, tokenB)
	addr := PairAddress(t0, t1)
	require.Equal(t, addr, PairAddress(t0, t1))
	require.NotEqual(t, addr, PairAddress(t0, tokenC))
	require.NotEqual(t, addr, common.Address{})
}

func TestCreatePair(t *testing.T) {
	r := newTestRegistry(t)

	p, err := r.CreatePair(tokenA, tokenB)
	require.NoError(t, err)
	require.Equal(t, PairAddress(SortAssets(tokenA, tokenB)), p.Address())

	// Lookup works in either asset order.
	require.Same(t, p, r.Pair(tokenA, tokenB))
	require.Same(t, p, r.Pair(tokenB, tokenA))
	require.Len(t, r.AllPairs(), 1)
}

func TestCreatePairRejections(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.CreatePair(tokenA, tokenA)
	require.ErrorIs(t, err, ErrIdenticalAssets)

	_, err = r.CreatePair(tokenA, common.Address{})
	require.ErrorIs(t, err, ErrZeroAsset)

	_, err = r.CreatePair(tokenA, tokenB)
	require.NoError(t, err)
	_, err = r.CreatePair(tokenB, tokenA)
	require.ErrorIs(t, err, ErrPairExists)
}

func TestFeeGovernance(t *testing.T) {
	r := newTestRegistry(t)
	feeTo := common.HexToAddress("0x0000000000000000000000000000000000000077")

	require.ErrorIs(t, r.SetFeeTo(tokenA, feeTo), ErrForbidden)
	require.NoError(t, r.SetFeeTo(setter, feeTo))
	require.Equal(t, feeTo, r.FeeTo())

	next := common.HexToAddress("0x0000000000000000000000000000000000000088")
	require.ErrorIs(t, r.SetFeeToSetter(tokenA, next), ErrForbidden)
	require.NoError(t, r.SetFeeToSetter(setter, next))
	require.ErrorIs(t, r.SetFeeTo(setter, feeTo), ErrForbidden)
	require.NoError(t, r.SetFeeTo(next, common.Address{}))
}
