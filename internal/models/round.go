package models

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// RoundStats mirrors the getRoundStats tuple of the pool contract.
type RoundStats struct {
	StartTime          int64    `json:"start_time"`
	EndTime            int64    `json:"end_time"`
	MatchingPool       *big.Int `json:"matching_pool"`
	TotalContributions *big.Int `json:"total_contributions"`
	TotalContributors  uint64   `json:"total_contributors"`
	Finalized          bool     `json:"finalized"`
}

// Round is the current round snapshot. ID 0 means no round has been created.
type Round struct {
	ID uint64 `json:"round_id"`
	RoundStats
	// MatchingPoolBalance is the unlocked pool balance, not scoped to this round.
	MatchingPoolBalance *big.Int         `json:"matching_pool_balance"`
	Projects            []common.Address `json:"projects"`
}

// Active reports whether contributions can currently count toward this round.
func (r *Round) Active() bool {
	return r != nil && r.ID > 0 && !r.Finalized
}
