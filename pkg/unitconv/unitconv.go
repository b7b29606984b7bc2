package unitconv

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// BitcoinPrecision is the number of decimal places of one bitcoin (sats).
	BitcoinPrecision = 8
	// EtherPrecision is the number of decimal places of one ether (wei).
	EtherPrecision = 18
	// Erc20DefaultPrecision is used for tokens whose decimals are not known.
	Erc20DefaultPrecision = 18
)

var (
	// ErrInvalidAmount ...
	ErrInvalidAmount = errors.New("amount must be a non-negative integer")
	// ErrDivisionByZero ...
	ErrDivisionByZero = errors.New("division by zero")

	precisions = map[string]int32{
		"bitcoin": BitcoinPrecision,
		"ether":   EtherPrecision,
		"erc20":   Erc20DefaultPrecision,
	}
)

// PrecisionOf returns the precision of the given asset name.
func PrecisionOf(asset string) (int32, bool) {
	p, ok := precisions[strings.ToLower(asset)]
	return p, ok
}

// ToBaseUnits converts a nominal amount (ie. 1.5 BTC) to the integer amount
// of base units (ie. 150000000 sats). Fractions smaller than one base unit
// are rounded down.
func ToBaseUnits(nominal decimal.Decimal, precision int32) decimal.Decimal {
	return nominal.Shift(precision).Truncate(0)
}

// FromBaseUnits is the inverse of ToBaseUnits.
func FromBaseUnits(amount decimal.Decimal, precision int32) decimal.Decimal {
	return amount.Shift(-precision)
}

// ToSatoshi converts an amount of bitcoin to satoshis.
func ToSatoshi(btc decimal.Decimal) int64 {
	return ToBaseUnits(btc, BitcoinPrecision).IntPart()
}

// ToWei converts an amount of ether to wei.
func ToWei(ether decimal.Decimal) *big.Int {
	return ToBaseUnits(ether, EtherPrecision).BigInt()
}

// ParseBaseUnits parses a string representing an integer amount of base
// units, either decimal or 0x-prefixed hex.
func ParseBaseUnits(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		n, ok := new(big.Int).SetString(s[2:], 16)
		if !ok || n.Sign() < 0 {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
		return decimal.NewFromBigInt(n, 0), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() || !d.Equal(d.Truncate(0)) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// MulDiv returns x * y / z rounded down to the given precision. The result is
// computed on rationals so it is exact whenever representable with
// precision decimal places.
func MulDiv(x, y, z decimal.Decimal, precision int32) (decimal.Decimal, error) {
	if z.IsZero() {
		return decimal.Zero, ErrDivisionByZero
	}
	r := new(big.Rat).Mul(x.Rat(), y.Rat())
	r.Quo(r, z.Rat())

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(precision)), nil)
	num := new(big.Int).Mul(r.Num(), scale)
	q := new(big.Int).Quo(num, r.Denom())
	if r.Sign() < 0 && new(big.Int).Mul(q, r.Denom()).Cmp(num) != 0 {
		q.Sub(q, big.NewInt(1))
	}
	return decimal.NewFromBigInt(q, -precision), nil
}
