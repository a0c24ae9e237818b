package main

import (
	"fmt"
	"math/big"

	"github.com/spf13/cobra"

	"poolCore/internal/config"
	"poolCore/internal/pair"
)

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	reserveIn, err := parseQuoteAmount("reserve-in", cfg.ReserveIn)
	if err != nil {
		return err
	}
	reserveOut, err := parseQuoteAmount("reserve-out", cfg.ReserveOut)
	if err != nil {
		return err
	}

	switch {
	case cfg.AmountIn != "" && cfg.AmountOut != "":
		return fmt.Errorf("amount-in and amount-out are mutually exclusive")
	case cfg.AmountIn != "":
		amountIn, err := parseQuoteAmount("amount-in", cfg.AmountIn)
		if err != nil {
			return err
		}
		amountOut, err := pair.GetAmountOut(amountIn, reserveIn, reserveOut)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), amountOut.String())
		return nil
	case cfg.AmountOut != "":
		amountOut, err := parseQuoteAmount("amount-out", cfg.AmountOut)
		if err != nil {
			return err
		}
		amountIn, err := pair.GetAmountIn(amountOut, reserveIn, reserveOut)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), amountIn.String())
		return nil
	default:
		return fmt.Errorf("one of amount-in or amount-out is required")
	}
}

func parseQuoteAmount(field, input string) (*big.Int, error) {
	if input == "" {
		return nil, fmt.Errorf("%s is required", field)
	}
	value, ok := new(big.Int).SetString(input, 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s: %s", field, input)
	}
	return value, nil
}
