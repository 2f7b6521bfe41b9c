package models

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TokenAccount is the USDC balance of an owner and its allowance to the pool.
type TokenAccount struct {
	Owner     common.Address `json:"owner"`
	Balance   *big.Int       `json:"balance"`
	Allowance *big.Int       `json:"allowance"`
}

// SybilStatus is the per-donor cooldown state reported by the sybil guard. Durations are seconds.
type SybilStatus struct {
	Donor                     common.Address `json:"donor"`
	CanContribute             bool           `json:"can_contribute"`
	TimeUntilNextContribution int64          `json:"time_until_next_contribution"`
	CooldownPeriod            int64          `json:"cooldown_period"`
}
