package units

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/common"
)

// Decimals is the USDC scale used by every amount on the pool and token contracts.
const Decimals = 6

var (
	ErrEmptyAmount   = errors.New("empty amount")
	ErrInvalidAmount = errors.New("invalid amount")

	cent = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals-2), nil)
)

// ParseUnits converts a decimal USDC string (e.g. "100.25") to its 6-decimal integer amount.
// Non-zero fractional digits beyond the scale are rejected rather than rounded away.
func ParseUnits(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptyAmount
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, s)
	}

	whole := parts[0]
	frac := ""
	if len(parts) == 2 {
		frac = parts[1]
	}
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, s)
	}
	if !digitsOnly(whole) || !digitsOnly(frac) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, s)
	}

	if len(frac) > Decimals {
		if strings.TrimRight(frac[Decimals:], "0") != "" {
			return nil, fmt.Errorf("%w: more than %d decimals in %s", ErrInvalidAmount, Decimals, s)
		}
		frac = frac[:Decimals]
	}
	frac += strings.Repeat("0", Decimals-len(frac))

	v, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, s)
	}
	return v, nil
}

// FormatUnits renders an amount exactly, without trailing fractional zeros.
func FormatUnits(v *big.Int) string {
	if v == nil {
		return "0"
	}

	sign := ""
	abs := new(big.Int).Set(v)
	if abs.Sign() < 0 {
		sign = "-"
		abs.Neg(abs)
	}

	digits := abs.String()
	if len(digits) <= Decimals {
		digits = strings.Repeat("0", Decimals-len(digits)+1) + digits
	}

	whole := digits[:len(digits)-Decimals]
	frac := strings.TrimRight(digits[len(digits)-Decimals:], "0")
	if frac == "" {
		return sign + whole
	}
	return sign + whole + "." + frac
}

// FormatUSDC renders an amount as US dollars rounded half-up to cents, e.g. "$1,234.57".
func FormatUSDC(v *big.Int) string {
	if v == nil {
		v = new(big.Int)
	}

	sign := ""
	abs := new(big.Int).Set(v)
	if abs.Sign() < 0 {
		sign = "-"
		abs.Neg(abs)
	}

	half := new(big.Int).Rsh(cent, 1)
	cents := new(big.Int).Add(abs, half)
	cents.Quo(cents, cent)

	dollars, rem := new(big.Int).QuoRem(cents, big.NewInt(100), new(big.Int))
	return fmt.Sprintf("%s$%s.%02d", sign, humanize.BigComma(dollars), rem.Int64())
}

// FormatNumber renders an integer count with thousands separators.
func FormatNumber(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return humanize.BigComma(v)
}

// TruncateAddress shortens an address to 0x1234…abcd.
func TruncateAddress(addr common.Address, length int) string {
	if length <= 0 {
		length = 4
	}
	hex := addr.Hex()
	if 2+length >= len(hex)-length {
		return hex
	}
	return hex[:2+length] + "…" + hex[len(hex)-length:]
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
