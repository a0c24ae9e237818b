package model

// PoolStateRecord is a full pool snapshot for storage. Big values are decimal
// strings; the accumulators can exceed any fixed-width integer column.
type PoolStateRecord struct {
	Pool                 string `json:"pool"`
	Token0               string `json:"token0"`
	Token1               string `json:"token1"`
	Reserve0             string `json:"reserve0"`
	Reserve1             string `json:"reserve1"`
	BlockTimestampLast   uint32 `json:"block_timestamp_last"`
	Price0CumulativeLast string `json:"price0_cumulative_last"`
	Price1CumulativeLast string `json:"price1_cumulative_last"`
	KLast                string `json:"k_last"`
	TotalSupply          string `json:"total_supply"`
}
