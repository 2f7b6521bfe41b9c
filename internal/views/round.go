package views

import (
	"time"

	"github.com/equifund/backend/internal/models"
)

// HasActiveRound is true for a created round that has not been finalized.
func HasActiveRound(r *models.Round) bool {
	return r.Active()
}

// CanFinalize is true once an active round has passed its end time.
func CanFinalize(r *models.Round, now time.Time) bool {
	if !r.Active() || r.EndTime <= 0 {
		return false
	}
	return r.EndTime*1000 <= now.UnixMilli()
}

// CanCreateRound requires no active round and a non-empty matching pool.
func CanCreateRound(r *models.Round) bool {
	if r == nil {
		return false
	}
	if r.Active() {
		return false
	}
	return r.MatchingPoolBalance != nil && r.MatchingPoolBalance.Sign() > 0
}
