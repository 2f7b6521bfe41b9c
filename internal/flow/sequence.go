package flow

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/equifund/backend/internal/models"
)

var ErrSequenceUsed = errors.New("sequence step already taken")

// AllowanceFunc reads the current on-chain allowance, bypassing any cache.
type AllowanceFunc func(ctx context.Context) (*big.Int, error)

// Sequence runs a token approval followed by the action that spends it. The act step is
// only reachable from the *Approved value a finished approval returns.
type Sequence struct {
	orch      *Orchestrator
	amount    *big.Int
	allowance AllowanceFunc
	approve   Action

	mu    sync.Mutex
	phase string
}

func (o *Orchestrator) Sequence(amount *big.Int, allowance AllowanceFunc, approve Action) *Sequence {
	return &Sequence{
		orch:      o,
		amount:    amount,
		allowance: allowance,
		approve:   approve,
		phase:     models.PhaseIdle,
	}
}

func (s *Sequence) Phase() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Sequence) advance(to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !models.IsValidPhaseTransition(s.phase, to) {
		return fmt.Errorf("%w: %s -> %s", ErrSequenceUsed, s.phase, to)
	}
	s.phase = to
	return nil
}

// Approved is proof that allowance covers the sequence amount.
type Approved struct {
	seq *Sequence
	// Approval is nil when the existing allowance sufficed.
	Approval *models.ActionRecord
}

// Approve submits and confirms an approval unless the fresh allowance already covers the
// amount. A failed approval leaves the sequence idle so it can be retried.
func (s *Sequence) Approve(ctx context.Context) (*Approved, error) {
	current, err := s.allowance(ctx)
	if err != nil {
		return nil, err
	}
	if current != nil && current.Cmp(s.amount) >= 0 {
		if err := s.advance(models.PhaseApproved); err != nil {
			return nil, err
		}
		return &Approved{seq: s}, nil
	}

	if err := s.advance(models.PhaseApproving); err != nil {
		return nil, err
	}
	rec, err := s.orch.Run(ctx, s.approve)
	if err != nil {
		_ = s.advance(models.PhaseIdle)
		return nil, err
	}
	if err := s.advance(models.PhaseApproved); err != nil {
		return nil, err
	}
	return &Approved{seq: s, Approval: &rec}, nil
}

// Act submits the dependent action. It may be called once.
func (a *Approved) Act(ctx context.Context, act Action) (models.ActionRecord, error) {
	if err := a.seq.advance(models.PhaseActing); err != nil {
		return models.ActionRecord{}, err
	}
	rec, err := a.seq.orch.Run(ctx, act)
	_ = a.seq.advance(models.PhaseDone)
	return rec, err
}
