package replay

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// parseAddress converts a required hex address field.
func parseAddress(field, input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return common.Address{}, fmt.Errorf("%s is required", field)
	}
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid %s: %s", field, input)
	}
	return common.HexToAddress(input), nil
}

// parseAmount converts a decimal amount field; empty means zero.
func parseAmount(field, input string) (*big.Int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return big.NewInt(0), nil
	}
	value, ok := new(big.Int).SetString(input, 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s: %s", field, input)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("negative %s: %s", field, input)
	}
	return value, nil
}
