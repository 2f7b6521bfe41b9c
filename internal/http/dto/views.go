package dto

import (
	"math/big"
	"time"

	"github.com/equifund/backend/internal/models"
	"github.com/equifund/backend/internal/units"
	"github.com/equifund/backend/internal/views"
)

func NewAmount(v *big.Int) Amount {
	if v == nil {
		v = new(big.Int)
	}
	return Amount{Raw: v.String(), Display: units.FormatUSDC(v)}
}

func NewRoundView(r models.Round, now time.Time) RoundView {
	remaining := views.TimeRemaining(r.EndTime, now)
	projects := make([]string, 0, len(r.Projects))
	for _, p := range r.Projects {
		projects = append(projects, p.Hex())
	}
	return RoundView{
		RoundID:             r.ID,
		Active:              views.HasActiveRound(&r),
		Finalized:           r.Finalized,
		CanFinalize:         views.CanFinalize(&r, now),
		StartTime:           r.StartTime,
		EndTime:             r.EndTime,
		TimeRemaining:       remaining.String(),
		Ended:               remaining.Ended,
		MatchingPool:        NewAmount(r.MatchingPool),
		MatchingPoolBalance: NewAmount(r.MatchingPoolBalance),
		TotalContributions:  NewAmount(r.TotalContributions),
		TotalContributors:   units.FormatNumber(new(big.Int).SetUint64(r.TotalContributors)),
		AverageMatch:        views.FormatAverageMatch(r.MatchingPool, r.TotalContributions),
		Projects:            projects,
	}
}

// NewProjectView computes the share against the round's total contributions, which may be nil.
func NewProjectView(p models.Project, roundTotal *big.Int) ProjectView {
	return ProjectView{
		Address:      p.Address.Hex(),
		Short:        units.TruncateAddress(p.Address, 4),
		Name:         p.Name,
		Description:  p.Description,
		MetadataURI:  p.MetadataURI,
		IsActive:     p.IsActive,
		RegisteredAt: p.RegisteredAt,
		TotalRaised:  NewAmount(p.TotalRaised),
		TotalMatched: NewAmount(p.TotalMatched),
		RoundShare:   views.RoundShare(p.TotalRaised, roundTotal),
	}
}

func NewAccountView(acc models.TokenAccount, sybil models.SybilStatus) AccountView {
	v := AccountView{
		Owner:     acc.Owner.Hex(),
		Short:     units.TruncateAddress(acc.Owner, 4),
		Balance:   NewAmount(acc.Balance),
		Allowance: NewAmount(acc.Allowance),
		Sybil: SybilView{
			CanContribute:  sybil.CanContribute,
			CooldownPeriod: views.FormatCooldown(sybil.CooldownPeriod),
		},
	}
	if !sybil.CanContribute {
		v.Sybil.RetryIn = views.FormatCooldown(sybil.TimeUntilNextContribution)
	}
	return v
}
