package main

import (
	"fmt"
	"math/big"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"launchpool/internal/config"
	"launchpool/internal/pricing"
)

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	virtualQuote, err := parseBig(cfg.VirtualQuote, "virtual-quote")
	if err != nil {
		return err
	}
	bootstrapQuote, err := parseBig(cfg.BootstrapQuote, "bootstrap-quote")
	if err != nil {
		return err
	}
	shareMatch, err := parseBig(cfg.ShareMatch, "share-match")
	if err != nil {
		return err
	}
	reserveQuote, err := parseBig(cfg.ReserveQuote, "reserve-quote")
	if err != nil {
		return err
	}
	reserveVariable, err := parseBig(cfg.ReserveVariable, "reserve-variable")
	if err != nil {
		return err
	}
	amountIn, err := parseBig(cfg.AmountIn, "amount-in")
	if err != nil {
		return err
	}

	curve := pricing.Curve{
		VirtualQuote:      virtualQuote,
		BootstrapQuote:    bootstrapQuote,
		InitialShareMatch: shareMatch,
	}
	presale := reserveQuote.Cmp(bootstrapQuote) < 0

	var out *big.Int
	crossed := false
	switch cfg.Side {
	case "buy":
		if presale {
			out, crossed, err = curve.BuyAmountOut(amountIn, reserveQuote, reserveVariable)
		} else {
			out, err = pricing.AmountOutQuoteToVariable(amountIn, reserveQuote, reserveVariable)
		}
	case "sell":
		if presale {
			out, err = curve.PresaleSellAmountOut(amountIn, reserveQuote, reserveVariable)
		} else {
			out, err = pricing.AmountOutVariableToQuote(amountIn, reserveQuote, reserveVariable)
		}
	default:
		return fmt.Errorf("side must be buy or sell, got %q", cfg.Side)
	}
	if err != nil {
		return err
	}

	logger.Info("quote",
		zap.String("side", cfg.Side),
		zap.Bool("presale", presale),
		zap.Bool("crosses_bootstrap", crossed),
		zap.String("amount_in", amountIn.String()),
		zap.String("amount_out", out.String()),
	)
	fmt.Println(out.String())
	return nil
}
