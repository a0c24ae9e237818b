package model

// Event names used in PoolEventRecord.EventName.
const (
	EventMint     = "Mint"
	EventBurn     = "Burn"
	EventSwap     = "Swap"
	EventSync     = "Sync"
	EventTransfer = "Transfer"
)

// MintEvent is the deposit notification payload.
type MintEvent struct {
	Sender  string `json:"sender"`
	Amount0 string `json:"amount0"`
	Amount1 string `json:"amount1"`
}

// BurnEvent is the withdrawal notification payload.
type BurnEvent struct {
	Sender  string `json:"sender"`
	Amount0 string `json:"amount0"`
	Amount1 string `json:"amount1"`
	To      string `json:"to"`
}

// SwapEvent is the exchange notification payload.
type SwapEvent struct {
	Sender     string `json:"sender"`
	Amount0In  string `json:"amount0_in"`
	Amount1In  string `json:"amount1_in"`
	Amount0Out string `json:"amount0_out"`
	Amount1Out string `json:"amount1_out"`
	To         string `json:"to"`
}

// SyncEvent is the reserve-sync notification payload, emitted on every
// reserve update.
type SyncEvent struct {
	Reserve0 string `json:"reserve0"`
	Reserve1 string `json:"reserve1"`
}

// TransferEvent is the balance-transfer notification from the token ledger.
// Mints carry a zero from address, burns a zero to address.
type TransferEvent struct {
	Asset string `json:"asset"`
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"`
}
