package pair

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Ledger is the external custody collaborator: a multi-asset balance book.
// The pair's liquidity-claim token is an asset in the same book, keyed by the
// pair's own address. Snapshot/RevertToSnapshot model the all-or-nothing
// semantics of the execution environment; a pair takes a snapshot at every
// mutating entry point and reverts it on any failure, which is what makes the
// optimistic transfer in Swap safe to issue before the invariant check.
type Ledger interface {
	BalanceOf(asset, holder common.Address) *big.Int
	TotalSupply(asset common.Address) *big.Int
	Transfer(asset, from, to common.Address, amount *big.Int) error
	Mint(asset, to common.Address, amount *big.Int) error
	Burn(asset, from common.Address, amount *big.Int) error
	Snapshot() int
	RevertToSnapshot(id int)
}

// FeeConfig supplies the protocol fee destination. A zero address disables
// protocol fee accrual.
type FeeConfig interface {
	FeeTo() common.Address
}

// Callee is the flash-swap hook: invoked on the swap recipient after the
// optimistic transfer and before the invariant check. The callee may move the
// received assets around as long as payment is back in the pair's custody
// when it returns.
type Callee interface {
	PairCall(sender common.Address, amount0, amount1 *big.Int, data []byte) error
}

// CalleeResolver maps a recipient address to its callback implementation.
type CalleeResolver interface {
	Callee(addr common.Address) (Callee, bool)
}

// EventSink receives state-change notifications. Payloads are the typed event
// structs from internal/model.
type EventSink interface {
	Record(pool common.Address, name string, payload any)
}
