package services

import (
	"context"
	"errors"
	"math/big"

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

// Default input amounts in whole USDC, echoed back after a successful action.
const (
	DefaultContributionAmount = "100"
	DefaultMatchingAmount     = "5000"
)

type DonorService struct {
	reads   Reads
	writer  Writer
	session Session
	orch    *flow.Orchestrator
	log     *zap.Logger
}

func NewDonorService(reads Reads, writer Writer, session Session, orch *flow.Orchestrator, log *zap.Logger) *DonorService {
	return &DonorService{reads: reads, writer: writer, session: session, orch: orch, log: log}
}

type WalletState struct {
	Connected       bool                 `json:"connected"`
	Address         string               `json:"address,omitempty"`
	Display         string               `json:"display,omitempty"`
	ChainID         string               `json:"chain_id"`
	NodeChainID     string               `json:"node_chain_id,omitempty"`
	WrongNetwork    bool                 `json:"wrong_network"`
	IsPoolOwner     bool                 `json:"is_pool_owner"`
	IsRegistryOwner bool                 `json:"is_registry_owner"`
	Account         *models.TokenAccount `json:"account,omitempty"`
	Sybil           *models.SybilStatus  `json:"sybil,omitempty"`
}

// networkState reports whether the node is on the session's chain. An unreachable node
// is not treated as a wrong network.
func networkState(ctx context.Context, w Writer, s Session, log *zap.Logger) (nodeChain *big.Int, wrong bool) {
	if !s.Connected() {
		return nil, false
	}
	id, err := w.ChainID(ctx)
	if err != nil {
		log.Warn("unable to read node chain id", zap.Error(err))
		return nil, false
	}
	return id, s.WrongNetwork(id)
}

func (s *DonorService) Wallet(ctx context.Context) (WalletState, error) {
	st := WalletState{ChainID: s.session.ChainID().String()}
	if !s.session.Connected() {
		return st, nil
	}

	addr := s.session.Address()
	st.Connected = true
	st.Address = addr.Hex()
	st.Display = units.TruncateAddress(addr, 4)

	nodeChain, wrong := networkState(ctx, s.writer, s.session, s.log)
	if nodeChain != nil {
		st.NodeChainID = nodeChain.String()
	}
	st.WrongNetwork = wrong

	acc, err := s.reads.TokenAccount(ctx, addr)
	if err != nil {
		return st, err
	}
	st.Account = &acc

	sybil, err := s.reads.Sybil(ctx, addr)
	if err != nil {
		return st, err
	}
	st.Sybil = &sybil

	if owner, err := s.reads.PoolOwner(ctx); err == nil {
		st.IsPoolOwner = owner == addr
	} else {
		s.log.Warn("unable to load pool owner", zap.Error(err))
	}
	if owner, err := s.reads.RegistryOwner(ctx); err == nil {
		st.IsRegistryOwner = owner == addr
	} else {
		s.log.Warn("unable to load registry owner", zap.Error(err))
	}
	return st, nil
}

type EligibilityView struct {
	Allowed  bool                     `json:"allowed"`
	Reason   eligibility.Reason       `json:"reason,omitempty"`
	Approval eligibility.ApprovalGate `json:"approval"`
	Amount   string                   `json:"amount,omitempty"`
	Balance  string                   `json:"balance,omitempty"`
	Cooldown string                   `json:"cooldown,omitempty"`

	amount    *big.Int
	project   common.Address
	allowance *big.Int
}

// Eligibility evaluates a contribution of amount to project without submitting it.
// An empty project means none is selected.
func (s *DonorService) Eligibility(ctx context.Context, project, amount string) (EligibilityView, error) {
	in := eligibility.Input{Connected: s.session.Connected()}
	var view EligibilityView

	if in.Connected {
		_, in.WrongNetwork = networkState(ctx, s.writer, s.session, s.log)
	}

	if project != "" {
		addr, err := chain.ParseAddress(project)
		if err != nil {
			return view, invalid("invalid project address")
		}
		view.project = addr
		in.ProjectSelected = true
	}

	amt, err := units.ParseUnits(amount)
	in.AmountValid = err == nil && amt.Sign() > 0
	in.Amount = amt
	view.amount = amt
	if in.AmountValid {
		view.Amount = units.FormatUSDC(amt)
	}

	// Remote state only matters once the local gates pass.
	if in.Connected && !in.WrongNetwork {
		donor := s.session.Address()
		acc, err := s.reads.TokenAccount(ctx, donor)
		if err != nil {
			return view, err
		}
		in.Balance = acc.Balance
		view.allowance = acc.Allowance
		view.Balance = units.FormatUSDC(acc.Balance)

		sybil, err := s.reads.Sybil(ctx, donor)
		if err != nil {
			return view, err
		}
		in.CanContribute = sybil.CanContribute
		in.CooldownRemaining = sybil.TimeUntilNextContribution
		if !sybil.CanContribute {
			view.Cooldown = views.FormatCooldown(sybil.TimeUntilNextContribution)
		}
	}

	reason, isBlocked := eligibility.Evaluate(in)
	view.Allowed = !isBlocked
	view.Reason = reason
	view.Approval = eligibility.Approval(view.allowance, amt, in.AmountValid)
	return view, nil
}

type ContributeRequest struct {
	Project string `json:"project"`
	Amount  string `json:"amount"`
	// AutoApprove submits the approval first when allowance is short. Defaults to true.
	AutoApprove *bool `json:"auto_approve,omitempty"`
}

type ActionResult struct {
	Approval   *models.ActionRecord `json:"approval,omitempty"`
	Action     models.ActionRecord  `json:"action"`
	NextAmount string               `json:"next_amount,omitempty"`
}

// Contribute approves when needed, waits for that confirmation, then contributes.
func (s *DonorService) Contribute(ctx context.Context, req ContributeRequest) (*ActionResult, error) {
	view, err := s.Eligibility(ctx, req.Project, req.Amount)
	if err != nil {
		return nil, err
	}
	if !view.Allowed {
		return nil, &BlockedError{Reason: view.Reason}
	}

	donor := s.session.Address()
	project := view.project
	amount := view.amount

	seq := s.orch.Sequence(amount,
		func(ctx context.Context) (*big.Int, error) { return s.writer.TokenAllowance(ctx, donor) },
		s.approveAction(donor, amount))

	if req.AutoApprove != nil && !*req.AutoApprove {
		current, err := s.writer.TokenAllowance(ctx, donor)
		if err != nil {
			return nil, err
		}
		if current.Cmp(amount) < 0 {
			return nil, &BlockedError{Reason: eligibility.ReasonApproveFirst}
		}
	}

	approved, err := seq.Approve(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := approved.Act(ctx, flow.Action{
		Kind:   models.ActionContribute,
		Actor:  donor,
		Target: &project,
		Amount: amount,
		Submit: func(opts *bind.TransactOpts) (*types.Transaction, error) {
			return s.writer.Contribute(opts, project, amount)
		},
		Invalidates: []string{
			query.AccountKey(donor),
			query.SybilKey(donor),
			query.ContributionPrefix(donor),
			query.RoundKey,
			query.ProjectsPrefix,
		},
	})
	if err != nil {
		return nil, err
	}
	return &ActionResult{Approval: approved.Approval, Action: rec, NextAmount: DefaultContributionAmount}, nil
}

// Approve sets the pool allowance to amount.
func (s *DonorService) Approve(ctx context.Context, amount string) (*ActionResult, error) {
	if !s.session.Connected() {
		return nil, &BlockedError{Reason: eligibility.ReasonConnectWallet}
	}
	if _, wrong := networkState(ctx, s.writer, s.session, s.log); wrong {
		return nil, &BlockedError{Reason: eligibility.ReasonSwitchNetwork}
	}
	amt, err := units.ParseUnits(amount)
	if err != nil || amt.Sign() <= 0 {
		return nil, &BlockedError{Reason: eligibility.ReasonInvalidAmount}
	}

	rec, err := s.orch.Run(ctx, s.approveAction(s.session.Address(), amt))
	if err != nil {
		return nil, err
	}
	return &ActionResult{Action: rec}, nil
}

func (s *DonorService) approveAction(owner common.Address, amount *big.Int) flow.Action {
	return flow.Action{
		Kind:   models.ActionApprove,
		Actor:  owner,
		Amount: amount,
		Submit: func(opts *bind.TransactOpts) (*types.Transaction, error) {
			return s.writer.Approve(opts, amount)
		},
		Invalidates: []string{query.AccountKey(owner)},
	}
}

type ContributionView struct {
	Donor   string `json:"donor"`
	Project string `json:"project"`
	RoundID uint64 `json:"round_id"`
	Amount  string `json:"amount"`
	Display string `json:"display"`
}

// Contribution is the donor's total to project in the current round.
func (s *DonorService) Contribution(ctx context.Context, donor, project string) (*ContributionView, error) {
	d, err := chain.ParseAddress(donor)
	if err != nil {
		return nil, invalid("invalid donor address")
	}
	p, err := chain.ParseAddress(project)
	if err != nil {
		return nil, invalid("invalid project address")
	}

	round, err := s.reads.Round(ctx)
	if err != nil {
		return nil, err
	}
	v, err := s.reads.DonorContribution(ctx, d, p, round.ID)
	if err != nil {
		return nil, err
	}
	return &ContributionView{
		Donor:   d.Hex(),
		Project: p.Hex(),
		RoundID: round.ID,
		Amount:  units.FormatUnits(v),
		Display: units.FormatUSDC(v),
	}, nil
}

// IsBlocked reports whether err is an eligibility block and returns its reason.
func IsBlocked(err error) (eligibility.Reason, bool) {
	var be *BlockedError
	if errors.As(err, &be) {
		return be.Reason, true
	}
	return "", false
}
