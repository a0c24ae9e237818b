package pair

import (
	"bytes"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"poolCore/internal/model"
)

// MinimumLiquidity is minted to the burn address on the first deposit and can
// never be withdrawn, so the invariant cannot be driven back to all-zero.
var MinimumLiquidity = big.NewInt(1000)

// burnAddress holds the permanently locked minimum liquidity.
var burnAddress common.Address

// Config wires a pair to its collaborators. Token0 must order before Token1
// (bytewise); the registry derives Address deterministically from the pair.
type Config struct {
	Token0  common.Address
	Token1  common.Address
	Address common.Address
	Ledger  Ledger
	Fees    FeeConfig
	Callees CalleeResolver
	Sink    EventSink
	Now     func() uint64
}

// Pair is the constant-product pool state machine. All mutating entry points
// are guarded against reentrancy and roll back both ledger and pair state on
// failure. A pair is single-caller: the guard rejects, it does not queue.
type Pair struct {
	token0  common.Address
	token1  common.Address
	address common.Address
	ledger  Ledger
	fees    FeeConfig
	callees CalleeResolver
	sink    EventSink
	now     func() uint64

	locked   bool
	reserves ReserveSnapshot
	prices   priceAccumulator
	kLast    *big.Int
}

// New builds a pair with zero reserves and zero liquidity supply.
func New(cfg Config) (*Pair, error) {
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("new pair: ledger is required")
	}
	if cfg.Token0 == cfg.Token1 {
		return nil, fmt.Errorf("new pair: identical assets")
	}
	if bytes.Compare(cfg.Token0.Bytes(), cfg.Token1.Bytes()) > 0 {
		return nil, fmt.Errorf("new pair: assets out of order")
	}
	now := cfg.Now
	if now == nil {
		now = func() uint64 { return uint64(time.Now().Unix()) }
	}

	return &Pair{
		token0:  cfg.Token0,
		token1:  cfg.Token1,
		address: cfg.Address,
		ledger:  cfg.Ledger,
		fees:    cfg.Fees,
		callees: cfg.Callees,
		sink:    cfg.Sink,
		now:     now,
		reserves: ReserveSnapshot{
			Reserve0: big.NewInt(0),
			Reserve1: big.NewInt(0),
		},
		prices: newPriceAccumulator(),
		kLast:  big.NewInt(0),
	}, nil
}

func (p *Pair) Token0() common.Address  { return p.token0 }
func (p *Pair) Token1() common.Address  { return p.token1 }
func (p *Pair) Address() common.Address { return p.address }

// GetReserves returns an atomic snapshot of both reserves and the truncated
// timestamp of the last update.
func (p *Pair) GetReserves() ReserveSnapshot {
	return p.reserves.clone()
}

// Price0CumulativeLast returns the wrapping time-weighted price sum of asset 1
// denominated in asset 0, UQ112.112 fixed point mod 2^256.
func (p *Pair) Price0CumulativeLast() *big.Int {
	return p.prices.price0Cumulative.ToBig()
}

// Price1CumulativeLast is the mirror accumulator for the other orientation.
func (p *Pair) Price1CumulativeLast() *big.Int {
	return p.prices.price1Cumulative.ToBig()
}

// KLast returns the reserve product recorded at the last liquidity event, or
// zero while protocol fee accrual is disabled.
func (p *Pair) KLast() *big.Int {
	return new(big.Int).Set(p.kLast)
}

// run wraps a mutating entry point: reentrancy guard, ledger snapshot, and
// state rollback on any failure. Release happens on every exit path.
func (p *Pair) run(fn func() error) error {
	if p.locked {
		return ErrReentrantCall
	}
	p.locked = true
	defer func() { p.locked = false }()

	snap := p.ledger.Snapshot()
	reserves := p.reserves.clone()
	prices := p.prices.clone()
	kLast := new(big.Int).Set(p.kLast)

	if err := fn(); err != nil {
		p.ledger.RevertToSnapshot(snap)
		p.reserves = reserves
		p.prices = prices
		p.kLast = kLast
		return err
	}
	return nil
}

// Mint turns the asset quantities deposited since the last update into new
// liquidity for to. The deposit itself happens beforehand, by transferring
// assets into the pair's custody.
func (p *Pair) Mint(sender, to common.Address) (*big.Int, error) {
	var liquidity *big.Int
	err := p.run(func() error {
		res := p.reserves
		balance0 := p.ledger.BalanceOf(p.token0, p.address)
		balance1 := p.ledger.BalanceOf(p.token1, p.address)
		amount0 := new(big.Int).Sub(balance0, res.Reserve0)
		amount1 := new(big.Int).Sub(balance1, res.Reserve1)

		feeOn, err := p.mintFee(res.Reserve0, res.Reserve1)
		if err != nil {
			return err
		}

		// Fee accrual may have minted to the protocol destination already,
		// so the supply is re-read here, not before.
		totalSupply := p.ledger.TotalSupply(p.address)
		if totalSupply.Sign() == 0 {
			liquidity = Sqrt(new(big.Int).Mul(amount0, amount1))
			liquidity.Sub(liquidity, MinimumLiquidity)
			if liquidity.Sign() != 1 {
				return fmt.Errorf("mint: %w", ErrInsufficientLiquidityMinted)
			}
			if err := p.ledger.Mint(p.address, burnAddress, MinimumLiquidity); err != nil {
				return err
			}
		} else {
			share0 := new(big.Int).Mul(amount0, totalSupply)
			share0.Div(share0, res.Reserve0)
			share1 := new(big.Int).Mul(amount1, totalSupply)
			share1.Div(share1, res.Reserve1)
			liquidity = new(big.Int).Set(minBig(share0, share1))
			if liquidity.Sign() != 1 {
				return fmt.Errorf("mint: %w", ErrInsufficientLiquidityMinted)
			}
		}

		if err := p.ledger.Mint(p.address, to, liquidity); err != nil {
			return err
		}
		if err := p.update(balance0, balance1, res); err != nil {
			return err
		}
		if feeOn {
			p.kLast = new(big.Int).Mul(p.reserves.Reserve0, p.reserves.Reserve1)
		}

		p.emit(model.EventMint, model.MintEvent{
			Sender:  sender.Hex(),
			Amount0: amount0.String(),
			Amount1: amount1.String(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return liquidity, nil
}

// Burn redeems the liquidity balance previously transferred to the pair
// itself and pays both assets out to to.
func (p *Pair) Burn(sender, to common.Address) (*big.Int, *big.Int, error) {
	var amount0, amount1 *big.Int
	err := p.run(func() error {
		res := p.reserves
		balance0 := p.ledger.BalanceOf(p.token0, p.address)
		balance1 := p.ledger.BalanceOf(p.token1, p.address)
		liquidity := p.ledger.BalanceOf(p.address, p.address)

		feeOn, err := p.mintFee(res.Reserve0, res.Reserve1)
		if err != nil {
			return err
		}

		// Balances rather than reserves, so any donated surplus is paid out
		// pro rata instead of getting stranded.
		totalSupply := p.ledger.TotalSupply(p.address)
		amount0 = new(big.Int).Mul(liquidity, balance0)
		amount0.Div(amount0, totalSupply)
		amount1 = new(big.Int).Mul(liquidity, balance1)
		amount1.Div(amount1, totalSupply)
		if amount0.Sign() != 1 || amount1.Sign() != 1 {
			return fmt.Errorf("burn: %w", ErrInsufficientLiquidityBurned)
		}

		if err := p.ledger.Burn(p.address, p.address, liquidity); err != nil {
			return err
		}
		if err := p.ledger.Transfer(p.token0, p.address, to, amount0); err != nil {
			return err
		}
		if err := p.ledger.Transfer(p.token1, p.address, to, amount1); err != nil {
			return err
		}

		balance0 = p.ledger.BalanceOf(p.token0, p.address)
		balance1 = p.ledger.BalanceOf(p.token1, p.address)
		if err := p.update(balance0, balance1, res); err != nil {
			return err
		}
		if feeOn {
			p.kLast = new(big.Int).Mul(p.reserves.Reserve0, p.reserves.Reserve1)
		}

		p.emit(model.EventBurn, model.BurnEvent{
			Sender:  sender.Hex(),
			Amount0: amount0.String(),
			Amount1: amount1.String(),
			To:      to.Hex(),
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return amount0, amount1, nil
}

// Swap sends the requested outputs to to optimistically, invokes the
// flash-swap hook if data is non-empty, then verifies the fee-adjusted
// constant product against the pre-swap reserves. Payment is whatever landed
// in the pair's custody by the time the check runs.
func (p *Pair) Swap(sender common.Address, amount0Out, amount1Out *big.Int, to common.Address, data []byte) error {
	amount0Out = orZero(amount0Out)
	amount1Out = orZero(amount1Out)

	return p.run(func() error {
		if amount0Out.Sign() != 1 && amount1Out.Sign() != 1 {
			return fmt.Errorf("swap: %w", ErrInsufficientOutputAmount)
		}
		res := p.reserves
		if amount0Out.Cmp(res.Reserve0) >= 0 || amount1Out.Cmp(res.Reserve1) >= 0 {
			return fmt.Errorf("swap: %w", ErrInsufficientLiquidity)
		}
		if to == p.token0 || to == p.token1 {
			return fmt.Errorf("swap: %w", ErrInvalidRecipient)
		}

		if amount0Out.Sign() == 1 {
			if err := p.ledger.Transfer(p.token0, p.address, to, amount0Out); err != nil {
				return err
			}
		}
		if amount1Out.Sign() == 1 {
			if err := p.ledger.Transfer(p.token1, p.address, to, amount1Out); err != nil {
				return err
			}
		}
		if len(data) > 0 {
			callee, err := p.resolveCallee(to)
			if err != nil {
				return err
			}
			if err := callee.PairCall(sender, amount0Out, amount1Out, data); err != nil {
				return fmt.Errorf("swap callback: %w", err)
			}
		}

		balance0 := p.ledger.BalanceOf(p.token0, p.address)
		balance1 := p.ledger.BalanceOf(p.token1, p.address)
		amount0In := netInput(balance0, res.Reserve0, amount0Out)
		amount1In := netInput(balance1, res.Reserve1, amount1Out)
		if amount0In.Sign() != 1 && amount1In.Sign() != 1 {
			return fmt.Errorf("swap: %w", ErrInsufficientInputAmount)
		}

		// balanceAdjusted = balance*1000 - input*3, i.e. 0.3% of each net
		// input is discounted before the product comparison. Exact integers,
		// no rounding on either side.
		adjusted0 := new(big.Int).Mul(balance0, feeDen)
		adjusted0.Sub(adjusted0, new(big.Int).Mul(amount0In, big.NewInt(3)))
		adjusted1 := new(big.Int).Mul(balance1, feeDen)
		adjusted1.Sub(adjusted1, new(big.Int).Mul(amount1In, big.NewInt(3)))

		left := new(big.Int).Mul(adjusted0, adjusted1)
		right := new(big.Int).Mul(res.Reserve0, res.Reserve1)
		right.Mul(right, new(big.Int).Mul(feeDen, feeDen))
		if left.Cmp(right) < 0 {
			return fmt.Errorf("swap: %w", ErrK)
		}

		if err := p.update(balance0, balance1, res); err != nil {
			return err
		}
		p.emit(model.EventSwap, model.SwapEvent{
			Sender:     sender.Hex(),
			Amount0In:  amount0In.String(),
			Amount1In:  amount1In.String(),
			Amount0Out: amount0Out.String(),
			Amount1Out: amount1Out.String(),
			To:         to.Hex(),
		})
		return nil
	})
}

// Sync force-matches reserves to current custody balances, recovering from
// transfers that bypassed the engine.
func (p *Pair) Sync() error {
	return p.run(func() error {
		balance0 := p.ledger.BalanceOf(p.token0, p.address)
		balance1 := p.ledger.BalanceOf(p.token1, p.address)
		return p.update(balance0, balance1, p.reserves)
	})
}

// update advances the price accumulators for the elapsed interval, then
// replaces the reserve snapshot in one step and emits the sync notification.
func (p *Pair) update(balance0, balance1 *big.Int, prev ReserveSnapshot) error {
	if balance0.Cmp(maxReserve) > 0 || balance1.Cmp(maxReserve) > 0 {
		return fmt.Errorf("update: %w", ErrReserveOverflow)
	}

	blockTimestamp := uint32(p.now())
	elapsed := blockTimestamp - prev.BlockTimestampLast // wraps mod 2^32
	if elapsed > 0 && prev.Reserve0.Sign() != 0 && prev.Reserve1.Sign() != 0 {
		p.prices.advance(prev.Reserve0, prev.Reserve1, elapsed)
	}

	p.reserves = ReserveSnapshot{
		Reserve0:           new(big.Int).Set(balance0),
		Reserve1:           new(big.Int).Set(balance1),
		BlockTimestampLast: blockTimestamp,
	}
	p.emit(model.EventSync, model.SyncEvent{
		Reserve0: balance0.String(),
		Reserve1: balance1.String(),
	})
	return nil
}

// mintFee mints the protocol's share of invariant growth since the last
// liquidity event: totalSupply*(rootK-rootKLast)/(rootK*5+rootKLast), which
// is 1/6th of the fee revenue at a 0.3% trading fee.
func (p *Pair) mintFee(reserve0, reserve1 *big.Int) (bool, error) {
	var feeTo common.Address
	if p.fees != nil {
		feeTo = p.fees.FeeTo()
	}
	feeOn := feeTo != burnAddress
	if !feeOn {
		if p.kLast.Sign() != 0 {
			p.kLast = big.NewInt(0)
		}
		return false, nil
	}
	if p.kLast.Sign() == 0 {
		return true, nil
	}

	rootK := Sqrt(new(big.Int).Mul(reserve0, reserve1))
	rootKLast := Sqrt(p.kLast)
	if rootK.Cmp(rootKLast) > 0 {
		numerator := new(big.Int).Sub(rootK, rootKLast)
		numerator.Mul(numerator, p.ledger.TotalSupply(p.address))
		denominator := new(big.Int).Mul(rootK, big.NewInt(5))
		denominator.Add(denominator, rootKLast)
		liquidity := numerator.Div(numerator, denominator)
		if liquidity.Sign() == 1 {
			if err := p.ledger.Mint(p.address, feeTo, liquidity); err != nil {
				return false, err
			}
		}
	}
	return true, nil
}

// State snapshots the full pool record for persistence.
func (p *Pair) State() model.PoolStateRecord {
	return model.PoolStateRecord{
		Pool:                 p.address.Hex(),
		Token0:               p.token0.Hex(),
		Token1:               p.token1.Hex(),
		Reserve0:             p.reserves.Reserve0.String(),
		Reserve1:             p.reserves.Reserve1.String(),
		BlockTimestampLast:   p.reserves.BlockTimestampLast,
		Price0CumulativeLast: p.prices.price0Cumulative.Dec(),
		Price1CumulativeLast: p.prices.price1Cumulative.Dec(),
		KLast:                p.kLast.String(),
		TotalSupply:          p.ledger.TotalSupply(p.address).String(),
	}
}

func (p *Pair) resolveCallee(to common.Address) (Callee, error) {
	if p.callees != nil {
		if callee, ok := p.callees.Callee(to); ok {
			return callee, nil
		}
	}
	return nil, fmt.Errorf("swap: no callee registered for %s", to.Hex())
}

func (p *Pair) emit(name string, payload any) {
	if p.sink != nil {
		p.sink.Record(p.address, name, payload)
	}
}

func netInput(balance, reserve, out *big.Int) *big.Int {
	floor := new(big.Int).Sub(reserve, out)
	if balance.Cmp(floor) > 0 {
		return new(big.Int).Sub(balance, floor)
	}
	return big.NewInt(0)
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return bigZero
	}
	return v
}
