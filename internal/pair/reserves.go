package pair

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Reserves are bounded to 112 bits so that reserve0*reserve1 always fits the
// 256-bit accumulator type used by the invariant check, and so both reserves
// plus the truncated timestamp form one small atomic record.
var maxReserve = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 112), bigOne)

// ReserveSnapshot is the packed reserve record. It is read and written as a
// unit; GetReserves hands out a copy, never internal pointers.
type ReserveSnapshot struct {
	Reserve0           *big.Int
	Reserve1           *big.Int
	BlockTimestampLast uint32
}

func (s ReserveSnapshot) clone() ReserveSnapshot {
	return ReserveSnapshot{
		Reserve0:           new(big.Int).Set(s.Reserve0),
		Reserve1:           new(big.Int).Set(s.Reserve1),
		BlockTimestampLast: s.BlockTimestampLast,
	}
}

// priceAccumulator advances the two time-weighted price sums. Prices are
// UQ112.112 fixed point: (reserveY << 112) / reserveX. Both the elapsed-time
// multiplication and the running sums wrap mod 2^256 deliberately; consumers
// must difference two observations with wrapping subtraction.
type priceAccumulator struct {
	price0Cumulative *uint256.Int
	price1Cumulative *uint256.Int
}

func newPriceAccumulator() priceAccumulator {
	return priceAccumulator{
		price0Cumulative: uint256.NewInt(0),
		price1Cumulative: uint256.NewInt(0),
	}
}

func (a priceAccumulator) clone() priceAccumulator {
	return priceAccumulator{
		price0Cumulative: new(uint256.Int).Set(a.price0Cumulative),
		price1Cumulative: new(uint256.Int).Set(a.price1Cumulative),
	}
}

// advance adds elapsed * price for both orientations. Reserves are known to
// fit 112 bits, so reserve<<112 fits 224 bits and the division is lossless
// within the fixed-point width.
func (a priceAccumulator) advance(reserve0, reserve1 *big.Int, elapsed uint32) {
	r0, _ := uint256.FromBig(reserve0)
	r1, _ := uint256.FromBig(reserve1)
	dt := uint256.NewInt(uint64(elapsed))

	p0 := new(uint256.Int).Lsh(r1, 112)
	p0.Div(p0, r0)
	p0.Mul(p0, dt)
	a.price0Cumulative.Add(a.price0Cumulative, p0)

	p1 := new(uint256.Int).Lsh(r0, 112)
	p1.Div(p1, r1)
	p1.Mul(p1, dt)
	a.price1Cumulative.Add(a.price1Cumulative, p1)
}
