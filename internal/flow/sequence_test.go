package flow

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/equifund/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allowanceOf(v int64) AllowanceFunc {
	return func(context.Context) (*big.Int, error) { return big.NewInt(v), nil }
}

func TestSequenceApprovesBeforeActing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	seq := h.orch.Sequence(big.NewInt(100_000_000), allowanceOf(50_000_000),
		Action{Kind: models.ActionApprove, Submit: submitter(h.rec, 1, nil)})

	approved, err := seq.Approve(ctx)
	require.NoError(t, err)
	require.NotNil(t, approved.Approval)
	assert.Equal(t, models.PhaseApproved, seq.Phase())

	_, err = approved.Act(ctx, Action{Kind: models.ActionContribute, Submit: submitter(h.rec, 2, nil)})
	require.NoError(t, err)
	assert.Equal(t, models.PhaseDone, seq.Phase())

	assert.Equal(t, []string{
		"submit:approve", "confirm:approve",
		"submit:contribute", "confirm:contribute",
	}, h.rec.all())
}

func TestSequenceSkipsApprovalWhenCovered(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	seq := h.orch.Sequence(big.NewInt(100_000_000), allowanceOf(100_000_000),
		Action{Kind: models.ActionApprove, Submit: submitter(h.rec, 1, nil)})

	approved, err := seq.Approve(ctx)
	require.NoError(t, err)
	assert.Nil(t, approved.Approval)

	_, err = approved.Act(ctx, Action{Kind: models.ActionContribute, Submit: submitter(h.rec, 2, nil)})
	require.NoError(t, err)
	assert.Equal(t, []string{"submit:contribute", "confirm:contribute"}, h.rec.all())
}

func TestSequenceApprovalFailureStopsAct(t *testing.T) {
	h := newHarness(t)
	h.confirmer.errs[1] = errors.New("user rejected")

	seq := h.orch.Sequence(big.NewInt(100), allowanceOf(0),
		Action{Kind: models.ActionApprove, Submit: submitter(h.rec, 1, nil)})

	approved, err := seq.Approve(context.Background())
	require.Error(t, err)
	assert.Nil(t, approved)
	assert.Equal(t, models.PhaseIdle, seq.Phase())
	assert.NotContains(t, h.rec.all(), "submit:contribute")
}

func TestSequenceActOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	seq := h.orch.Sequence(big.NewInt(1), allowanceOf(10),
		Action{Kind: models.ActionApprove, Submit: submitter(h.rec, 1, nil)})
	approved, err := seq.Approve(ctx)
	require.NoError(t, err)

	_, err = approved.Act(ctx, Action{Kind: models.ActionContribute, Submit: submitter(h.rec, 2, nil)})
	require.NoError(t, err)
	_, err = approved.Act(ctx, Action{Kind: models.ActionContribute, Submit: submitter(h.rec, 2, nil)})
	assert.ErrorIs(t, err, ErrSequenceUsed)
}

func TestSequenceAllowanceReadFailure(t *testing.T) {
	h := newHarness(t)
	seq := h.orch.Sequence(big.NewInt(1), func(context.Context) (*big.Int, error) {
		return nil, errors.New("rpc down")
	}, Action{Kind: models.ActionApprove, Submit: submitter(h.rec, 1, nil)})

	_, err := seq.Approve(context.Background())
	assert.Error(t, err)
	assert.Equal(t, models.PhaseIdle, seq.Phase())
}
