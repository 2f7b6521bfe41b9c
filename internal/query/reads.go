package query

import (
	"context"
	"math/big"
	"sort"

	"github.com/equifund/backend/internal/models"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const projectFanOut = 8

// Round reads the current round id, then its stats, the matching pool balance and the
// round's projects concurrently. Round id 0 means no round has been created.
func (s *Service) Round(ctx context.Context) (models.Round, error) {
	return load(ctx, s, "round", RoundKey, RoundTTL, func(ctx context.Context) (models.Round, error) {
		id, err := s.reader.CurrentRoundID(ctx)
		if err != nil {
			return models.Round{}, err
		}

		round := models.Round{ID: id}
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			stats, err := s.reader.RoundStats(gctx, id)
			round.RoundStats = stats
			return err
		})
		g.Go(func() error {
			bal, err := s.reader.MatchingPoolBalance(gctx)
			round.MatchingPoolBalance = bal
			return err
		})
		g.Go(func() error {
			projects, err := s.reader.RoundProjects(gctx, id)
			round.Projects = projects
			return err
		})
		if err := g.Wait(); err != nil {
			return models.Round{}, err
		}
		return round, nil
	})
}

// Projects lists active projects with their round totals, highest raised first.
func (s *Service) Projects(ctx context.Context, roundID uint64) ([]models.Project, error) {
	return load(ctx, s, "projects", ProjectsKey(roundID), ProjectsTTL, func(ctx context.Context) ([]models.Project, error) {
		return s.listProjects(ctx, roundID, s.reader.ActiveProjects)
	})
}

// AllProjects is Projects including deactivated registrations.
func (s *Service) AllProjects(ctx context.Context, roundID uint64) ([]models.Project, error) {
	return load(ctx, s, "all_projects", AllProjectsKey(roundID), ProjectsTTL, func(ctx context.Context) ([]models.Project, error) {
		return s.listProjects(ctx, roundID, s.reader.AllProjects)
	})
}

func (s *Service) listProjects(ctx context.Context, roundID uint64, list func(context.Context) ([]common.Address, error)) ([]models.Project, error) {
	addrs, err := list(ctx)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return []models.Project{}, nil
	}

	projects := make([]models.Project, len(addrs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(projectFanOut)
	for i, addr := range addrs {
		g.Go(func() error {
			p, err := s.fetchProject(gctx, addr, roundID)
			if err != nil {
				return err
			}
			projects[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].TotalRaised.Cmp(projects[j].TotalRaised) > 0
	})
	return projects, nil
}

// Project returns one project with its totals for roundID.
func (s *Service) Project(ctx context.Context, project common.Address, roundID uint64) (models.Project, error) {
	return load(ctx, s, "project", ProjectKey(project, roundID), ProjectTTL, func(ctx context.Context) (models.Project, error) {
		return s.fetchProject(ctx, project, roundID)
	})
}

func (s *Service) fetchProject(ctx context.Context, addr common.Address, roundID uint64) (models.Project, error) {
	record, err := s.reader.Project(ctx, addr)
	if err != nil {
		return models.Project{}, err
	}
	if record.Address == (common.Address{}) {
		return models.Project{}, ErrProjectNotFound
	}

	raised, matched := s.totals(ctx, addr, roundID)
	return models.Project{ProjectRecord: record, TotalRaised: raised, TotalMatched: matched}, nil
}

// totals falls back to zero for this project alone when either read fails.
func (s *Service) totals(ctx context.Context, addr common.Address, roundID uint64) (*big.Int, *big.Int) {
	if roundID == 0 {
		return new(big.Int), new(big.Int)
	}

	var raised, matched *big.Int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		raised, err = s.reader.ProjectTotalContributions(gctx, roundID, addr)
		return err
	})
	g.Go(func() (err error) {
		matched, err = s.reader.ProjectMatchAmount(gctx, roundID, addr)
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Warn("unable to load project totals",
			zap.String("project", addr.Hex()),
			zap.Uint64("round_id", roundID),
			zap.Error(err),
		)
		return new(big.Int), new(big.Int)
	}
	return raised, matched
}

func (s *Service) TokenAccount(ctx context.Context, owner common.Address) (models.TokenAccount, error) {
	return load(ctx, s, "token_account", AccountKey(owner), AccountTTL, func(ctx context.Context) (models.TokenAccount, error) {
		acc := models.TokenAccount{Owner: owner}
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			acc.Balance, err = s.reader.TokenBalance(gctx, owner)
			return err
		})
		g.Go(func() (err error) {
			acc.Allowance, err = s.reader.TokenAllowance(gctx, owner)
			return err
		})
		if err := g.Wait(); err != nil {
			return models.TokenAccount{}, err
		}
		return acc, nil
	})
}

func (s *Service) Sybil(ctx context.Context, donor common.Address) (models.SybilStatus, error) {
	return load(ctx, s, "sybil", SybilKey(donor), SybilTTL, func(ctx context.Context) (models.SybilStatus, error) {
		st := models.SybilStatus{Donor: donor}
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			st.CanContribute, err = s.reader.CanContribute(gctx, donor)
			return err
		})
		g.Go(func() (err error) {
			st.TimeUntilNextContribution, err = s.reader.TimeUntilNextContribution(gctx, donor)
			return err
		})
		g.Go(func() (err error) {
			st.CooldownPeriod, err = s.reader.CooldownPeriod(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return models.SybilStatus{}, err
		}
		return st, nil
	})
}

// DonorContribution is zero without reading when no round exists.
func (s *Service) DonorContribution(ctx context.Context, donor, project common.Address, roundID uint64) (*big.Int, error) {
	if roundID == 0 {
		return new(big.Int), nil
	}
	return load(ctx, s, "donor_contribution", ContributionKey(donor, project, roundID), ContributionTTL, func(ctx context.Context) (*big.Int, error) {
		return s.reader.DonorContribution(ctx, roundID, donor, project)
	})
}

func (s *Service) PoolOwner(ctx context.Context) (common.Address, error) {
	return load(ctx, s, "pool_owner", PoolOwnerKey, OwnerTTL, s.reader.PoolOwner)
}

func (s *Service) RegistryOwner(ctx context.Context) (common.Address, error) {
	return load(ctx, s, "registry_owner", RegistryOwnerKey, OwnerTTL, s.reader.RegistryOwner)
}
