// Package registry is the pool factory: it derives a deterministic identity
// for every ordered asset pair, prevents duplicates, and holds the protocol
// fee destination that pairs consult at liquidity events.
package registry

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"poolCore/internal/pair"
)

var (
	ErrIdenticalAssets = errors.New("identical assets")
	ErrZeroAsset       = errors.New("zero asset address")
	ErrPairExists      = errors.New("pair exists")
	ErrForbidden       = errors.New("forbidden")
)

type pairKey struct {
	token0 common.Address
	token1 common.Address
}

// Registry creates and indexes pairs. It implements pair.FeeConfig and
// pair.CalleeResolver for the pairs it creates.
type Registry struct {
	ledger pair.Ledger
	sink   pair.EventSink
	now    func() uint64

	feeTo       common.Address
	feeToSetter common.Address

	pairs   map[pairKey]*pair.Pair
	all     []*pair.Pair
	callees map[common.Address]pair.Callee
}

// Config wires a registry. FeeToSetter is the only address allowed to change
// the fee destination; Sink and Now are passed through to created pairs.
type Config struct {
	Ledger      pair.Ledger
	Sink        pair.EventSink
	Now         func() uint64
	FeeToSetter common.Address
}

func New(cfg Config) (*Registry, error) {
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("new registry: ledger is required")
	}
	return &Registry{
		ledger:      cfg.Ledger,
		sink:        cfg.Sink,
		now:         cfg.Now,
		feeToSetter: cfg.FeeToSetter,
		pairs:       make(map[pairKey]*pair.Pair),
		callees:     make(map[common.Address]pair.Callee),
	}, nil
}

// SortAssets returns the two assets in canonical order, smaller first.
// The ordering is a total order over address bytes, so any party derives the
// same pool identity from the same pair of assets.
func SortAssets(tokenA, tokenB common.Address) (common.Address, common.Address) {
	if bytes.Compare(tokenA.Bytes(), tokenB.Bytes()) < 0 {
		return tokenA, tokenB
	}
	return tokenB, tokenA
}

// PairAddress derives the deterministic pool identity for an ordered pair:
// the trailing 20 bytes of keccak256(token0 || token1).
func PairAddress(token0, token1 common.Address) common.Address {
	digest := crypto.Keccak256(token0.Bytes(), token1.Bytes())
	return common.BytesToAddress(digest[12:])
}

// CreatePair builds a new pool for the two assets, in either input order.
func (r *Registry) CreatePair(tokenA, tokenB common.Address) (*pair.Pair, error) {
	if tokenA == tokenB {
		return nil, fmt.Errorf("create pair: %w", ErrIdenticalAssets)
	}
	zero := common.Address{}
	if tokenA == zero || tokenB == zero {
		return nil, fmt.Errorf("create pair: %w", ErrZeroAsset)
	}

	token0, token1 := SortAssets(tokenA, tokenB)
	key := pairKey{token0, token1}
	if _, ok := r.pairs[key]; ok {
		return nil, fmt.Errorf("create pair: %w", ErrPairExists)
	}

	p, err := pair.New(pair.Config{
		Token0:  token0,
		Token1:  token1,
		Address: PairAddress(token0, token1),
		Ledger:  r.ledger,
		Fees:    r,
		Callees: r,
		Sink:    r.sink,
		Now:     r.now,
	})
	if err != nil {
		return nil, err
	}

	r.pairs[key] = p
	r.all = append(r.all, p)
	return p, nil
}

// Pair looks a pool up by its assets, in either order. Nil when absent.
func (r *Registry) Pair(tokenA, tokenB common.Address) *pair.Pair {
	token0, token1 := SortAssets(tokenA, tokenB)
	return r.pairs[pairKey{token0, token1}]
}

// AllPairs returns every created pool in creation order.
func (r *Registry) AllPairs() []*pair.Pair {
	out := make([]*pair.Pair, len(r.all))
	copy(out, r.all)
	return out
}

// FeeTo implements pair.FeeConfig. Zero disables protocol fee accrual.
func (r *Registry) FeeTo() common.Address {
	return r.feeTo
}

// SetFeeTo changes the protocol fee destination. Setter-gated.
func (r *Registry) SetFeeTo(caller, feeTo common.Address) error {
	if caller != r.feeToSetter {
		return fmt.Errorf("set fee to: %w", ErrForbidden)
	}
	r.feeTo = feeTo
	return nil
}

// SetFeeToSetter hands fee governance to a new address. Setter-gated.
func (r *Registry) SetFeeToSetter(caller, setter common.Address) error {
	if caller != r.feeToSetter {
		return fmt.Errorf("set fee to setter: %w", ErrForbidden)
	}
	r.feeToSetter = setter
	return nil
}

// RegisterCallee makes a flash-swap hook reachable at an address.
func (r *Registry) RegisterCallee(addr common.Address, callee pair.Callee) {
	r.callees[addr] = callee
}

// Callee implements pair.CalleeResolver.
func (r *Registry) Callee(addr common.Address) (pair.Callee, bool) {
	callee, ok := r.callees[addr]
	return callee, ok
}
