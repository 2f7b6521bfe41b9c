// Package eligibility decides whether a contribution or funding action may proceed.
package eligibility

import (
	"math/big"

	"github.com/equifund/backend/internal/views"
)

// Reason is a human readable explanation of why an action is disabled.
type Reason string

const (
	ReasonConnectWallet Reason = "connect wallet"
	ReasonSwitchNetwork Reason = "switch network"
	ReasonSelectProject Reason = "select a project"
	ReasonInvalidAmount Reason = "enter a valid amount"
	ReasonInsufficient  Reason = "insufficient balance"
	ReasonNotOwner      Reason = "owner access required"
	ReasonApproveFirst  Reason = "approve USDC first"
)

const cooldownReasonPrefix = "cooldown active, retry in "

// CooldownReason embeds the formatted remaining cooldown.
func CooldownReason(remainingSeconds int64) Reason {
	return Reason(cooldownReasonPrefix + views.FormatCooldown(remainingSeconds))
}

type Input struct {
	Connected       bool
	WrongNetwork    bool
	ProjectSelected bool
	AmountValid     bool
	Balance         *big.Int
	Amount          *big.Int
	CanContribute   bool
	// CooldownRemaining is in seconds.
	CooldownRemaining int64
}

// Evaluate returns the first blocking reason in precedence order, or ok=false when the
// contribution is permitted.
func Evaluate(in Input) (Reason, bool) {
	switch {
	case !in.Connected:
		return ReasonConnectWallet, true
	case in.WrongNetwork:
		return ReasonSwitchNetwork, true
	case !in.ProjectSelected:
		return ReasonSelectProject, true
	case !in.AmountValid || isNonPositive(in.Amount):
		return ReasonInvalidAmount, true
	case lessThan(in.Balance, in.Amount):
		return ReasonInsufficient, true
	case !in.CanContribute:
		return CooldownReason(in.CooldownRemaining), true
	}
	return "", false
}

// ApprovalGate is independent of Evaluate and never blocks once allowance suffices.
type ApprovalGate struct {
	Required bool `json:"required"`
	Ready    bool `json:"ready"`
}

func Approval(allowance, amount *big.Int, amountValid bool) ApprovalGate {
	valid := amountValid && !isNonPositive(amount)
	required := valid && lessThan(allowance, amount)
	return ApprovalGate{
		Required: required,
		Ready:    valid && !required,
	}
}

// FundingInput gates the owner's add-matching-funds action.
type FundingInput struct {
	Connected    bool
	WrongNetwork bool
	IsOwner      bool
	AmountValid  bool
	Balance      *big.Int
	Amount       *big.Int
}

func EvaluateFunding(in FundingInput) (Reason, bool) {
	switch {
	case !in.Connected:
		return ReasonConnectWallet, true
	case in.WrongNetwork:
		return ReasonSwitchNetwork, true
	case !in.IsOwner:
		return ReasonNotOwner, true
	case !in.AmountValid || isNonPositive(in.Amount):
		return ReasonInvalidAmount, true
	case lessThan(in.Balance, in.Amount):
		return ReasonInsufficient, true
	}
	return "", false
}

func isNonPositive(v *big.Int) bool {
	return v == nil || v.Sign() <= 0
}

// lessThan treats a missing left side as zero.
func lessThan(a, b *big.Int) bool {
	if b == nil {
		return false
	}
	if a == nil {
		return b.Sign() > 0
	}
	return a.Cmp(b) < 0
}
