package services

import (
	"context"
	"math/big"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/equifund/backend/internal/chain"
	"github.com/equifund/backend/internal/eligibility"
	"github.com/equifund/backend/internal/flow"
	"github.com/equifund/backend/internal/models"
	"github.com/equifund/backend/internal/query"
	"github.com/equifund/backend/internal/units"
	"github.com/equifund/backend/internal/views"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

const DefaultRoundDays = "7"

// AdminService runs the owner-only pool and registry actions.
type AdminService struct {
	reads   Reads
	writer  Writer
	session Session
	orch    *flow.Orchestrator
	now     func() time.Time
	log     *zap.Logger
}

func NewAdminService(reads Reads, writer Writer, session Session, orch *flow.Orchestrator, log *zap.Logger) *AdminService {
	return &AdminService{reads: reads, writer: writer, session: session, orch: orch, now: time.Now, log: log}
}

// requireOwner checks the session against owner(), case-insensitively by address value.
func (s *AdminService) requireOwner(ctx context.Context, owner func(context.Context) (common.Address, error)) (common.Address, error) {
	if !s.session.Connected() {
		return common.Address{}, &BlockedError{Reason: eligibility.ReasonConnectWallet}
	}
	if _, wrong := networkState(ctx, s.writer, s.session, s.log); wrong {
		return common.Address{}, &BlockedError{Reason: eligibility.ReasonSwitchNetwork}
	}
	o, err := owner(ctx)
	if err != nil {
		return common.Address{}, err
	}
	addr := s.session.Address()
	if o != addr {
		return common.Address{}, ErrNotOwner
	}
	return addr, nil
}

var roundPrefixes = []string{query.RoundKey, query.ProjectsPrefix}

type CreateRoundRequest struct {
	DurationDays string `json:"duration_days"`
}

// CreateRound opens a round of the requested length, at least one hour.
func (s *AdminService) CreateRound(ctx context.Context, req CreateRoundRequest) (*ActionResult, error) {
	owner, err := s.requireOwner(ctx, s.reads.PoolOwner)
	if err != nil {
		return nil, err
	}

	round, err := s.reads.Round(ctx)
	if err != nil {
		return nil, err
	}
	if views.HasActiveRound(&round) {
		return nil, invalid("round %d is still active", round.ID)
	}
	if !views.CanCreateRound(&round) {
		return nil, invalid("matching pool balance is zero")
	}

	days := strings.TrimSpace(req.DurationDays)
	if days == "" {
		days = DefaultRoundDays
	}
	duration := views.RoundDurationSeconds(days)

	rec, err := s.orch.Run(ctx, flow.Action{
		Kind:  models.ActionCreateRound,
		Actor: owner,
		Submit: func(opts *bind.TransactOpts) (*types.Transaction, error) {
			return s.writer.CreateRound(opts, duration)
		},
		Invalidates: roundPrefixes,
	})
	if err != nil {
		return nil, err
	}
	return &ActionResult{Action: rec, NextAmount: DefaultRoundDays}, nil
}

// FinalizeRound is only allowed once the active round has ended.
func (s *AdminService) FinalizeRound(ctx context.Context) (*ActionResult, error) {
	owner, err := s.requireOwner(ctx, s.reads.PoolOwner)
	if err != nil {
		return nil, err
	}

	round, err := s.reads.Round(ctx)
	if err != nil {
		return nil, err
	}
	if !views.CanFinalize(&round, s.now()) {
		if !views.HasActiveRound(&round) {
			return nil, invalid("no active round")
		}
		return nil, invalid("round ends in %s", views.TimeRemaining(round.EndTime, s.now()))
	}

	rec, err := s.orch.Run(ctx, flow.Action{
		Kind:  models.ActionFinalizeRound,
		Actor: owner,
		Submit: func(opts *bind.TransactOpts) (*types.Transaction, error) {
			return s.writer.FinalizeRound(opts)
		},
		Invalidates: roundPrefixes,
	})
	if err != nil {
		return nil, err
	}
	return &ActionResult{Action: rec}, nil
}

type FundingRequest struct {
	Amount      string `json:"amount"`
	AutoApprove *bool  `json:"auto_approve,omitempty"`
}

// AddMatchingFunds deposits into the matching pool, approving the pool first when the
// allowance is short.
func (s *AdminService) AddMatchingFunds(ctx context.Context, req FundingRequest) (*ActionResult, error) {
	in := eligibility.FundingInput{Connected: s.session.Connected()}
	if in.Connected {
		_, in.WrongNetwork = networkState(ctx, s.writer, s.session, s.log)
	}
	amount, err := units.ParseUnits(req.Amount)
	in.AmountValid = err == nil
	in.Amount = amount

	owner := s.session.Address()
	if in.Connected && !in.WrongNetwork {
		poolOwner, err := s.reads.PoolOwner(ctx)
		if err != nil {
			return nil, err
		}
		in.IsOwner = poolOwner == owner

		acc, err := s.reads.TokenAccount(ctx, owner)
		if err != nil {
			return nil, err
		}
		in.Balance = acc.Balance
	}
	if reason, isBlocked := eligibility.EvaluateFunding(in); isBlocked {
		return nil, blocked(reason)
	}

	if req.AutoApprove != nil && !*req.AutoApprove {
		current, err := s.writer.TokenAllowance(ctx, owner)
		if err != nil {
			return nil, err
		}
		if current.Cmp(amount) < 0 {
			return nil, &BlockedError{Reason: eligibility.ReasonApproveFirst}
		}
	}

	seq := s.orch.Sequence(amount,
		func(ctx context.Context) (*big.Int, error) { return s.writer.TokenAllowance(ctx, owner) },
		flow.Action{
			Kind:   models.ActionApprove,
			Actor:  owner,
			Amount: amount,
			Submit: func(opts *bind.TransactOpts) (*types.Transaction, error) {
				return s.writer.Approve(opts, amount)
			},
			Invalidates: []string{query.AccountKey(owner)},
		})

	approved, err := seq.Approve(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := approved.Act(ctx, flow.Action{
		Kind:   models.ActionAddMatchingFunds,
		Actor:  owner,
		Amount: amount,
		Submit: func(opts *bind.TransactOpts) (*types.Transaction, error) {
			return s.writer.AddMatchingFunds(opts, amount)
		},
		Invalidates: []string{query.AccountKey(owner), query.RoundKey},
	})
	if err != nil {
		return nil, err
	}
	return &ActionResult{Approval: approved.Approval, Action: rec, NextAmount: DefaultMatchingAmount}, nil
}

type ProjectRequest struct {
	Address     string `json:"address"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MetadataURI string `json:"metadata_uri"`
}

// normalize trims every field and applies the registration rules. Lengths count characters.
func (r ProjectRequest) normalize() (common.Address, ProjectRequest, error) {
	r.Address = strings.TrimSpace(r.Address)
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	r.MetadataURI = strings.TrimSpace(r.MetadataURI)

	addr, err := chain.ParseAddress(r.Address)
	if err != nil {
		return common.Address{}, r, invalid("invalid project address")
	}
	switch {
	case utf8.RuneCountInString(r.Name) <= 2:
		return addr, r, invalid("name must be longer than 2 characters")
	case utf8.RuneCountInString(r.Description) <= 10:
		return addr, r, invalid("description must be longer than 10 characters")
	case utf8.RuneCountInString(r.MetadataURI) <= 5:
		return addr, r, invalid("metadata uri must be longer than 5 characters")
	}
	return addr, r, nil
}

func (s *AdminService) RegisterProject(ctx context.Context, req ProjectRequest) (*ActionResult, error) {
	project, req, err := req.normalize()
	if err != nil {
		return nil, err
	}
	owner, err := s.requireOwner(ctx, s.reads.RegistryOwner)
	if err != nil {
		return nil, err
	}

	registered, err := s.writer.IsProjectRegistered(ctx, project)
	if err != nil {
		return nil, err
	}
	if registered {
		return nil, invalid("project %s is already registered", project.Hex())
	}

	return s.projectAction(ctx, models.ActionRegisterProject, owner, project, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return s.writer.RegisterProject(opts, project, req.Name, req.Description, req.MetadataURI)
	})
}

func (s *AdminService) UpdateProject(ctx context.Context, req ProjectRequest) (*ActionResult, error) {
	project, req, err := req.normalize()
	if err != nil {
		return nil, err
	}
	owner, err := s.requireRegistered(ctx, project)
	if err != nil {
		return nil, err
	}
	return s.projectAction(ctx, models.ActionUpdateProject, owner, project, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return s.writer.UpdateProject(opts, project, req.Name, req.Description, req.MetadataURI)
	})
}

func (s *AdminService) ToggleProject(ctx context.Context, address string) (*ActionResult, error) {
	project, err := chain.ParseAddress(address)
	if err != nil {
		return nil, invalid("invalid project address")
	}
	owner, err := s.requireRegistered(ctx, project)
	if err != nil {
		return nil, err
	}
	return s.projectAction(ctx, models.ActionToggleProject, owner, project, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return s.writer.ToggleProjectStatus(opts, project)
	})
}

func (s *AdminService) RemoveProject(ctx context.Context, address string) (*ActionResult, error) {
	project, err := chain.ParseAddress(address)
	if err != nil {
		return nil, invalid("invalid project address")
	}
	owner, err := s.requireRegistered(ctx, project)
	if err != nil {
		return nil, err
	}
	return s.projectAction(ctx, models.ActionRemoveProject, owner, project, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return s.writer.RemoveProject(opts, project)
	})
}

func (s *AdminService) requireRegistered(ctx context.Context, project common.Address) (common.Address, error) {
	owner, err := s.requireOwner(ctx, s.reads.RegistryOwner)
	if err != nil {
		return common.Address{}, err
	}
	registered, err := s.writer.IsProjectRegistered(ctx, project)
	if err != nil {
		return common.Address{}, err
	}
	if !registered {
		return common.Address{}, query.ErrProjectNotFound
	}
	return owner, nil
}

func (s *AdminService) projectAction(ctx context.Context, kind string, owner, project common.Address, submit func(*bind.TransactOpts) (*types.Transaction, error)) (*ActionResult, error) {
	rec, err := s.orch.Run(ctx, flow.Action{
		Kind:        kind,
		Actor:       owner,
		Target:      &project,
		Submit:      submit,
		Invalidates: roundPrefixes,
	})
	if err != nil {
		return nil, err
	}
	return &ActionResult{Action: rec}, nil
}
