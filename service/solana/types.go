package solana

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Asset labels used in logs and metrics.
const (
	AssetSOL   = "sol"
	AssetToken = "token"
)

// solDecimals is the number of decimal places between lamports and SOL.
const solDecimals = 9

// FundingRequest describes a transfer from the funding source to a freshly
// generated account. Mint is nil for native SOL transfers.
type FundingRequest struct {
	Recipient solana.PublicKey
	Amount    uint64
	Mint      *solana.PublicKey
	Decimals  uint8
}

// IsToken reports whether the request moves an SPL token rather than SOL.
func (r FundingRequest) IsToken() bool {
	return r.Mint != nil
}

// InsufficientBalanceError is returned when the funding source holds less
// than the requested amount. Mint is nil for native SOL balances.
type InsufficientBalanceError struct {
	Account  solana.PublicKey
	Mint     *solana.PublicKey
	Required uint64
	Actual   uint64
}

func (e *InsufficientBalanceError) Error() string {
	if e.Mint != nil {
		return fmt.Sprintf("insufficient token balance in account %s: required %d, current balance %d",
			e.Account, e.Required, e.Actual)
	}
	return fmt.Sprintf("insufficient balance in account %s: required %d lamports, current balance %d lamports",
		e.Account, e.Required, e.Actual)
}

// DecimalsMismatchError is returned when the caller's decimals do not match
// the mint. The token program rejects a TransferChecked with wrong decimals.
type DecimalsMismatchError struct {
	Mint     solana.PublicKey
	Expected uint8
	Actual   uint8
}

func (e *DecimalsMismatchError) Error() string {
	return fmt.Sprintf("token mint %s has %d decimals, but %d were given", e.Mint, e.Actual, e.Expected)
}

// FormatSOL renders lamports as SOL for operator output.
func FormatSOL(lamports uint64) string {
	return formatUnits(lamports, solDecimals)
}

// FormatTokenAmount renders a raw token amount with the given decimals.
func FormatTokenAmount(amount uint64, decimals uint8) string {
	return formatUnits(amount, decimals)
}

func formatUnits(amount uint64, decimals uint8) string {
	if decimals == 0 {
		return strconv.FormatUint(amount, 10)
	}
	digits := strconv.FormatUint(amount, 10)
	if len(digits) <= int(decimals) {
		digits = strings.Repeat("0", int(decimals)-len(digits)+1) + digits
	}
	whole := digits[:len(digits)-int(decimals)]
	frac := strings.TrimRight(digits[len(digits)-int(decimals):], "0")
	if frac == "" {
		frac = "0"
	}
	return whole + "." + frac
}
