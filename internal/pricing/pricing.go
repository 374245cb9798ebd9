package pricing

import (
	"errors"
	"math/big"
)

// Fee is 0.99% of the quote leg of every swap, expressed as parts of
// FeeDenominator. Buys pay it out of the input, sells out of the output.
const (
	FeeRate        = 99
	FeeDenominator = 10000
)

var (
	ErrInsufficientInput     = errors.New("pricing: insufficient input amount")
	ErrInsufficientOutput    = errors.New("pricing: insufficient output amount")
	ErrInsufficientLiquidity = errors.New("pricing: insufficient liquidity")
	ErrAmountOverflow        = errors.New("pricing: amount exceeds 112-bit range")
)

var (
	feeRate    = big.NewInt(FeeRate)
	feeKeep    = big.NewInt(FeeDenominator - FeeRate)
	feeDenom   = big.NewInt(FeeDenominator)
	one        = big.NewInt(1)
	maxUint112 = new(big.Int).Sub(new(big.Int).Lsh(one, 112), one)
)

// MaxUint112 returns the largest value representable in a 112-bit reserve
// or fee field.
func MaxUint112() *big.Int {
	return new(big.Int).Set(maxUint112)
}

// CheckUint112 rejects values outside the persisted 112-bit field width.
func CheckUint112(x *big.Int) error {
	if x.Sign() < 0 || x.Cmp(maxUint112) > 0 {
		return ErrAmountOverflow
	}
	return nil
}

// FeeAmount returns the 0.99% fee taken from a quote-leg amount.
func FeeAmount(quoteLeg *big.Int) *big.Int {
	fee := new(big.Int).Mul(quoteLeg, feeRate)
	return fee.Quo(fee, feeDenom)
}

// Quote converts amountA into the equivalent amountB at the current
// reserve ratio: amountB = amountA*reserveB/reserveA.
func Quote(amountA, reserveA, reserveB *big.Int) (*big.Int, error) {
	if amountA.Sign() == 0 {
		return nil, ErrInsufficientInput
	}
	if reserveA.Sign() == 0 || reserveB.Sign() == 0 {
		return nil, ErrInsufficientLiquidity
	}
	out := new(big.Int).Mul(amountA, reserveB)
	return out.Quo(out, reserveA), nil
}

// AmountOutQuoteToVariable prices an AMM buy. The fee is removed from the
// input before the constant-product formula is applied.
func AmountOutQuoteToVariable(quoteIn, reserveQuote, reserveVariable *big.Int) (*big.Int, error) {
	if quoteIn.Sign() == 0 {
		return nil, ErrInsufficientInput
	}
	if reserveQuote.Sign() == 0 || reserveVariable.Sign() == 0 {
		return nil, ErrInsufficientLiquidity
	}
	inWithFee := new(big.Int).Mul(quoteIn, feeKeep)
	numerator := new(big.Int).Mul(inWithFee, reserveVariable)
	denominator := new(big.Int).Mul(reserveQuote, feeDenom)
	denominator.Add(denominator, inWithFee)
	return numerator.Quo(numerator, denominator), nil
}

// AmountOutVariableToQuote prices an AMM sell. The fee is removed from the
// computed quote output.
func AmountOutVariableToQuote(variableIn, reserveQuote, reserveVariable *big.Int) (*big.Int, error) {
	if variableIn.Sign() == 0 {
		return nil, ErrInsufficientInput
	}
	if reserveQuote.Sign() == 0 || reserveVariable.Sign() == 0 {
		return nil, ErrInsufficientLiquidity
	}
	gross := new(big.Int).Mul(variableIn, reserveQuote)
	gross.Quo(gross, new(big.Int).Add(reserveVariable, variableIn))
	return gross.Sub(gross, FeeAmount(gross)), nil
}

// AmountInQuoteForVariableOut returns the quote input, fee included, that
// buys exactly variableOut from the AMM reserves.
func AmountInQuoteForVariableOut(variableOut, reserveQuote, reserveVariable *big.Int) (*big.Int, error) {
	if variableOut.Sign() == 0 {
		return nil, ErrInsufficientOutput
	}
	if reserveQuote.Sign() == 0 || reserveVariable.Sign() == 0 {
		return nil, ErrInsufficientLiquidity
	}
	if variableOut.Cmp(reserveVariable) >= 0 {
		return nil, ErrInsufficientLiquidity
	}
	numerator := new(big.Int).Mul(reserveQuote, variableOut)
	numerator.Mul(numerator, feeDenom)
	denominator := new(big.Int).Sub(reserveVariable, variableOut)
	denominator.Mul(denominator, feeKeep)
	in := numerator.Quo(numerator, denominator)
	return in.Add(in, one), nil
}

// AmountInVariableForQuoteOut returns the variable input that yields
// exactly quoteOut after the output-side fee.
func AmountInVariableForQuoteOut(quoteOut, reserveQuote, reserveVariable *big.Int) (*big.Int, error) {
	if quoteOut.Sign() == 0 {
		return nil, ErrInsufficientOutput
	}
	if reserveQuote.Sign() == 0 || reserveVariable.Sign() == 0 {
		return nil, ErrInsufficientLiquidity
	}
	gross := new(big.Int).Mul(quoteOut, feeDenom)
	gross.Quo(gross, feeKeep)
	gross.Add(gross, one)
	if gross.Cmp(reserveQuote) >= 0 {
		return nil, ErrInsufficientLiquidity
	}
	numerator := new(big.Int).Mul(reserveVariable, gross)
	denominator := new(big.Int).Sub(reserveQuote, gross)
	in := numerator.Quo(numerator, denominator)
	return in.Add(in, one), nil
}

// Sqrt returns the integer square root of x.
func Sqrt(x *big.Int) *big.Int {
	if x.Sign() <= 0 {
		return new(big.Int)
	}
	return new(big.Int).Sqrt(x)
}
