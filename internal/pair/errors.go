package pair

import "errors"

// Failure taxonomy of the engine. Callers branch with errors.Is; every error
// is surfaced synchronously and the failed operation leaves no state behind.
var (
	// ErrInsufficientLiquidityMinted means the deposit was too small to mint
	// any liquidity (or did not clear the locked minimum on first deposit).
	ErrInsufficientLiquidityMinted = errors.New("insufficient liquidity minted")

	// ErrInsufficientLiquidityBurned means the burned liquidity rounds down
	// to zero of at least one underlying asset.
	ErrInsufficientLiquidityBurned = errors.New("insufficient liquidity burned")

	// ErrInsufficientOutputAmount means a swap requested no output at all.
	ErrInsufficientOutputAmount = errors.New("insufficient output amount")

	// ErrInsufficientInputAmount means a swap provided no input payment.
	ErrInsufficientInputAmount = errors.New("insufficient input amount")

	// ErrInsufficientLiquidity means a requested swap output meets or exceeds
	// the corresponding reserve.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")

	// ErrInvalidRecipient means the swap recipient is one of the pool assets.
	ErrInvalidRecipient = errors.New("invalid recipient")

	// ErrK means the constant-product check failed after the optimistic
	// transfer; the whole swap is rolled back.
	ErrK = errors.New("K")

	// ErrReentrantCall means a guarded entry point was invoked while another
	// operation on the same pair was still in flight.
	ErrReentrantCall = errors.New("reentrant call")

	// ErrReserveOverflow means a balance no longer fits the 112-bit reserve
	// range. This is an operational ceiling, not a recoverable condition.
	ErrReserveOverflow = errors.New("reserve overflow")
)
