// Package token provides an in-memory multi-asset fungible ledger. It backs
// both pool custody and the liquidity-claim token in tests and the replay
// harness; production deployments substitute their own pair.Ledger.
package token

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"poolCore/internal/model"
	"poolCore/internal/pair"
)

// Ledger is a journaled balance book keyed by (asset, holder). Every write
// pushes an undo entry, so RevertToSnapshot restores any earlier point
// exactly. Not safe for concurrent use; the engine is single-caller.
type Ledger struct {
	balances   map[common.Address]map[common.Address]*big.Int
	supplies   map[common.Address]*big.Int
	allowances map[common.Address]map[allowanceKey]*big.Int
	journal    []func()
	sink       pair.EventSink
}

type allowanceKey struct {
	owner   common.Address
	spender common.Address
}

// NewLedger builds an empty ledger. The sink is optional and receives
// transfer notifications keyed by asset.
func NewLedger(sink pair.EventSink) *Ledger {
	return &Ledger{
		balances:   make(map[common.Address]map[common.Address]*big.Int),
		supplies:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[allowanceKey]*big.Int),
		sink:       sink,
	}
}

// BalanceOf returns a copy of the holder's balance of asset.
func (l *Ledger) BalanceOf(asset, holder common.Address) *big.Int {
	if held, ok := l.balances[asset][holder]; ok {
		return new(big.Int).Set(held)
	}
	return big.NewInt(0)
}

// TotalSupply returns a copy of the outstanding supply of asset.
func (l *Ledger) TotalSupply(asset common.Address) *big.Int {
	if supply, ok := l.supplies[asset]; ok {
		return new(big.Int).Set(supply)
	}
	return big.NewInt(0)
}

// Allowance returns a copy of what spender may move from owner's balance.
func (l *Ledger) Allowance(asset, owner, spender common.Address) *big.Int {
	if allowed, ok := l.allowances[asset][allowanceKey{owner, spender}]; ok {
		return new(big.Int).Set(allowed)
	}
	return big.NewInt(0)
}

// Transfer moves amount of asset between holders.
func (l *Ledger) Transfer(asset, from, to common.Address, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	have := l.BalanceOf(asset, from)
	if have.Cmp(amount) < 0 {
		return fmt.Errorf("transfer %s: balance %s below amount %s", asset.Hex(), have, amount)
	}
	l.setBalance(asset, from, new(big.Int).Sub(have, amount))
	l.setBalance(asset, to, new(big.Int).Add(l.BalanceOf(asset, to), amount))
	l.emitTransfer(asset, from, to, amount)
	return nil
}

// Approve lets spender move up to amount of owner's asset balance.
func (l *Ledger) Approve(asset, owner, spender common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("approve: invalid amount")
	}
	l.setAllowance(asset, owner, spender, new(big.Int).Set(amount))
	return nil
}

// TransferFrom spends an allowance granted by from to spender.
func (l *Ledger) TransferFrom(asset, spender, from, to common.Address, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	allowed := l.Allowance(asset, from, spender)
	if allowed.Cmp(amount) < 0 {
		return fmt.Errorf("transfer from %s: allowance %s below amount %s", asset.Hex(), allowed, amount)
	}
	l.setAllowance(asset, from, spender, new(big.Int).Sub(allowed, amount))
	return l.Transfer(asset, from, to, amount)
}

// Mint creates amount of asset for to.
func (l *Ledger) Mint(asset, to common.Address, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	l.setSupply(asset, new(big.Int).Add(l.TotalSupply(asset), amount))
	l.setBalance(asset, to, new(big.Int).Add(l.BalanceOf(asset, to), amount))
	l.emitTransfer(asset, common.Address{}, to, amount)
	return nil
}

// Burn destroys amount of asset held by from.
func (l *Ledger) Burn(asset, from common.Address, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	have := l.BalanceOf(asset, from)
	if have.Cmp(amount) < 0 {
		return fmt.Errorf("burn %s: balance %s below amount %s", asset.Hex(), have, amount)
	}
	l.setBalance(asset, from, new(big.Int).Sub(have, amount))
	l.setSupply(asset, new(big.Int).Sub(l.TotalSupply(asset), amount))
	l.emitTransfer(asset, from, common.Address{}, amount)
	return nil
}

// Snapshot marks the current journal position.
func (l *Ledger) Snapshot() int {
	return len(l.journal)
}

// RevertToSnapshot undoes every write made since the snapshot was taken.
func (l *Ledger) RevertToSnapshot(id int) {
	if id < 0 || id > len(l.journal) {
		return
	}
	for i := len(l.journal) - 1; i >= id; i-- {
		l.journal[i]()
	}
	l.journal = l.journal[:id]
}

func (l *Ledger) setBalance(asset, holder common.Address, value *big.Int) {
	book := l.balances[asset]
	if book == nil {
		book = make(map[common.Address]*big.Int)
		l.balances[asset] = book
	}
	prev, existed := book[holder]
	l.journal = append(l.journal, func() {
		if existed {
			book[holder] = prev
		} else {
			delete(book, holder)
		}
	})
	book[holder] = value
}

func (l *Ledger) setSupply(asset common.Address, value *big.Int) {
	prev, existed := l.supplies[asset]
	l.journal = append(l.journal, func() {
		if existed {
			l.supplies[asset] = prev
		} else {
			delete(l.supplies, asset)
		}
	})
	l.supplies[asset] = value
}

func (l *Ledger) setAllowance(asset, owner, spender common.Address, value *big.Int) {
	book := l.allowances[asset]
	if book == nil {
		book = make(map[allowanceKey]*big.Int)
		l.allowances[asset] = book
	}
	key := allowanceKey{owner, spender}
	prev, existed := book[key]
	l.journal = append(l.journal, func() {
		if existed {
			book[key] = prev
		} else {
			delete(book, key)
		}
	})
	book[key] = value
}

func (l *Ledger) emitTransfer(asset, from, to common.Address, amount *big.Int) {
	if l.sink == nil {
		return
	}
	l.sink.Record(asset, model.EventTransfer, model.TransferEvent{
		Asset: asset.Hex(),
		From:  from.Hex(),
		To:    to.Hex(),
		Value: amount.String(),
	})
}

func validAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("invalid amount")
	}
	return nil
}
