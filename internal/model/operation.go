package model

// Operation kinds accepted by the replayer.
const (
	OpCreate   = "create"
	OpTransfer = "transfer"
	OpMint     = "mint"
	OpBurn     = "burn"
	OpSwap     = "swap"
	OpSync     = "sync"
	OpSetFeeTo = "set-fee-to"
)

// OperationRecord is one replay input line. Which fields are meaningful
// depends on Op:
//   - create:     TokenA, TokenB
//   - transfer:   Asset, Sender, Recipient, Amount0 (the value)
//   - mint:       TokenA, TokenB, Sender, Recipient, Amount0, Amount1
//   - burn:       TokenA, TokenB, Sender, Recipient, Liquidity
//   - swap:       TokenA, TokenB, Sender, Recipient, Amount0In, Amount1In,
//     Amount0, Amount1 (the requested outputs), Data
//   - sync:       TokenA, TokenB
//   - set-fee-to: Sender, Recipient (the new destination)
type OperationRecord struct {
	Seq       uint64 `json:"seq"`
	Op        string `json:"op"`
	Timestamp uint64 `json:"timestamp"`
	TokenA    string `json:"token_a,omitempty"`
	TokenB    string `json:"token_b,omitempty"`
	Asset     string `json:"asset,omitempty"`
	Sender    string `json:"sender,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Amount0   string `json:"amount0,omitempty"`
	Amount1   string `json:"amount1,omitempty"`
	Amount0In string `json:"amount0_in,omitempty"`
	Amount1In string `json:"amount1_in,omitempty"`
	Liquidity string `json:"liquidity,omitempty"`
	Data      string `json:"data,omitempty"`
}
