package services

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/equifund/backend/internal/eligibility"
	"github.com/equifund/backend/internal/flow"
	"github.com/equifund/backend/internal/models"
	"github.com/equifund/backend/internal/query"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	me      = common.HexToAddress("0x1111111111111111111111111111111111111111")
	someone = common.HexToAddress("0x2222222222222222222222222222222222222222")
	project = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

const projectHex = "0x3333333333333333333333333333333333333333"

type fakeSession struct {
	connected bool
}

func (s fakeSession) Connected() bool         { return s.connected }
func (s fakeSession) Address() common.Address { return me }
func (s fakeSession) ChainID() *big.Int       { return big.NewInt(84532) }
func (s fakeSession) WrongNetwork(id *big.Int) bool {
	return s.connected && id.Cmp(big.NewInt(84532)) != 0
}

type fakeReads struct {
	round      models.Round
	balance    int64
	allowance  int64
	canContrib bool
	cooldown   int64
	poolOwner  common.Address
	regOwner   common.Address
}

func (r *fakeReads) Round(context.Context) (models.Round, error) { return r.round, nil }
func (r *fakeReads) Project(context.Context, common.Address, uint64) (models.Project, error) {
	return models.Project{}, nil
}
func (r *fakeReads) TokenAccount(context.Context, common.Address) (models.TokenAccount, error) {
	return models.TokenAccount{Owner: me, Balance: big.NewInt(r.balance), Allowance: big.NewInt(r.allowance)}, nil
}
func (r *fakeReads) Sybil(context.Context, common.Address) (models.SybilStatus, error) {
	return models.SybilStatus{Donor: me, CanContribute: r.canContrib, TimeUntilNextContribution: r.cooldown}, nil
}
func (r *fakeReads) DonorContribution(context.Context, common.Address, common.Address, uint64) (*big.Int, error) {
	return big.NewInt(25_000_000), nil
}
func (r *fakeReads) PoolOwner(context.Context) (common.Address, error)     { return r.poolOwner, nil }
func (r *fakeReads) RegistryOwner(context.Context) (common.Address, error) { return r.regOwner, nil }

type fakeWriter struct {
	mu         sync.Mutex
	chainID    int64
	allowance  int64
	registered bool
	calls      []string
	duration   int64
	regArgs    []string
}

func (w *fakeWriter) record(name string) (*types.Transaction, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, name)
	return types.NewTx(&types.LegacyTx{Nonce: uint64(len(w.calls))}), nil
}

func (w *fakeWriter) ChainID(context.Context) (*big.Int, error) { return big.NewInt(w.chainID), nil }
func (w *fakeWriter) TokenAllowance(context.Context, common.Address) (*big.Int, error) {
	return big.NewInt(w.allowance), nil
}
func (w *fakeWriter) IsProjectRegistered(context.Context, common.Address) (bool, error) {
	return w.registered, nil
}
func (w *fakeWriter) Approve(_ *bind.TransactOpts, _ *big.Int) (*types.Transaction, error) {
	return w.record("approve")
}
func (w *fakeWriter) Contribute(_ *bind.TransactOpts, _ common.Address, _ *big.Int) (*types.Transaction, error) {
	return w.record("contribute")
}
func (w *fakeWriter) CreateRound(_ *bind.TransactOpts, d int64) (*types.Transaction, error) {
	w.duration = d
	return w.record("createRound")
}
func (w *fakeWriter) AddMatchingFunds(_ *bind.TransactOpts, _ *big.Int) (*types.Transaction, error) {
	return w.record("addMatchingFunds")
}
func (w *fakeWriter) FinalizeRound(_ *bind.TransactOpts) (*types.Transaction, error) {
	return w.record("finalizeRound")
}
func (w *fakeWriter) RegisterProject(_ *bind.TransactOpts, _ common.Address, name, desc, uri string) (*types.Transaction, error) {
	w.regArgs = []string{name, desc, uri}
	return w.record("registerProject")
}
func (w *fakeWriter) UpdateProject(_ *bind.TransactOpts, _ common.Address, _, _, _ string) (*types.Transaction, error) {
	return w.record("updateProject")
}
func (w *fakeWriter) ToggleProjectStatus(_ *bind.TransactOpts, _ common.Address) (*types.Transaction, error) {
	return w.record("toggleProjectStatus")
}
func (w *fakeWriter) RemoveProject(_ *bind.TransactOpts, _ common.Address) (*types.Transaction, error) {
	return w.record("removeProject")
}

type okSigner struct{}

func (okSigner) TransactOpts(context.Context) (*bind.TransactOpts, error) {
	return &bind.TransactOpts{}, nil
}

type okConfirmer struct{}

func (okConfirmer) WaitConfirmed(context.Context, *types.Transaction) (*types.Receipt, error) {
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(9)}, nil
}

type nopInvalidator struct{ prefixes []string }

func (n *nopInvalidator) Invalidate(_ context.Context, p ...string) error {
	n.prefixes = append(n.prefixes, p...)
	return nil
}

type fixture struct {
	reads  *fakeReads
	writer *fakeWriter
	inv    *nopInvalidator
	donor  *DonorService
	admin  *AdminService
}

func newFixture(connected bool) *fixture {
	f := &fixture{
		reads: &fakeReads{
			round: models.Round{
				ID:                  3,
				RoundStats:          models.RoundStats{EndTime: time.Now().Add(time.Hour).Unix()},
				MatchingPoolBalance: big.NewInt(1_000_000_000),
			},
			balance:    500_000_000,
			allowance:  50_000_000,
			canContrib: true,
			poolOwner:  me,
			regOwner:   me,
		},
		writer: &fakeWriter{chainID: 84532, allowance: 50_000_000, registered: true},
		inv:    &nopInvalidator{},
	}
	orch := flow.NewOrchestrator(okSigner{}, okConfirmer{}, f.inv, nil, nil, zap.NewNop())
	session := fakeSession{connected: connected}
	f.donor = NewDonorService(f.reads, f.writer, session, orch, zap.NewNop())
	f.admin = NewAdminService(f.reads, f.writer, session, orch, zap.NewNop())
	return f
}

func TestEligibilityPrecedence(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*fixture)
		conn    bool
		project string
		amount  string
		want    eligibility.Reason
	}{
		{"disconnected beats everything", nil, false, "", "", eligibility.ReasonConnectWallet},
		{"wrong network", func(f *fixture) { f.writer.chainID = 1 }, true, projectHex, "100", eligibility.ReasonSwitchNetwork},
		{"no project", nil, true, "", "100", eligibility.ReasonSelectProject},
		{"bad amount", nil, true, projectHex, "abc", eligibility.ReasonInvalidAmount},
		{"zero amount", nil, true, projectHex, "0", eligibility.ReasonInvalidAmount},
		{"insufficient", nil, true, projectHex, "1000", eligibility.ReasonInsufficient},
		{"cooldown", func(f *fixture) { f.reads.canContrib = false; f.reads.cooldown = 3661 }, true, projectHex, "100", "cooldown active, retry in 1h 1m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.conn)
			if tt.setup != nil {
				tt.setup(f)
			}
			view, err := f.donor.Eligibility(context.Background(), tt.project, tt.amount)
			require.NoError(t, err)
			assert.False(t, view.Allowed)
			assert.Equal(t, tt.want, view.Reason)
		})
	}
}

func TestEligibilityApprovalGate(t *testing.T) {
	f := newFixture(true)

	view, err := f.donor.Eligibility(context.Background(), projectHex, "100")
	require.NoError(t, err)
	assert.True(t, view.Allowed)
	assert.True(t, view.Approval.Required)
	assert.False(t, view.Approval.Ready)
	assert.Equal(t, "$100.00", view.Amount)

	view, err = f.donor.Eligibility(context.Background(), projectHex, "25")
	require.NoError(t, err)
	assert.False(t, view.Approval.Required)
	assert.True(t, view.Approval.Ready)
}

func TestEligibilityMalformedProject(t *testing.T) {
	f := newFixture(true)
	_, err := f.donor.Eligibility(context.Background(), "0x123", "100")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestContributeApprovesFirst(t *testing.T) {
	f := newFixture(true)

	res, err := f.donor.Contribute(context.Background(), ContributeRequest{Project: projectHex, Amount: "100"})
	require.NoError(t, err)
	assert.Equal(t, []string{"approve", "contribute"}, f.writer.calls)
	require.NotNil(t, res.Approval)
	assert.Equal(t, models.ActionApprove, res.Approval.Kind)
	assert.Equal(t, models.ActionContribute, res.Action.Kind)
	assert.Equal(t, DefaultContributionAmount, res.NextAmount)
	assert.Contains(t, f.inv.prefixes, query.SybilKey(me))
	assert.Contains(t, f.inv.prefixes, query.RoundKey)
}

func TestContributeSkipsApprovalWhenCovered(t *testing.T) {
	f := newFixture(true)
	f.writer.allowance = 100_000_000

	res, err := f.donor.Contribute(context.Background(), ContributeRequest{Project: projectHex, Amount: "100"})
	require.NoError(t, err)
	assert.Nil(t, res.Approval)
	assert.Equal(t, []string{"contribute"}, f.writer.calls)
}

func TestContributeWithoutAutoApprove(t *testing.T) {
	f := newFixture(true)
	no := false

	_, err := f.donor.Contribute(context.Background(), ContributeRequest{Project: projectHex, Amount: "100", AutoApprove: &no})
	reason, ok := IsBlocked(err)
	require.True(t, ok)
	assert.Equal(t, eligibility.ReasonApproveFirst, reason)
	assert.Empty(t, f.writer.calls)
}

func TestContributeBlocked(t *testing.T) {
	f := newFixture(true)
	f.reads.canContrib = false
	f.reads.cooldown = 300

	_, err := f.donor.Contribute(context.Background(), ContributeRequest{Project: projectHex, Amount: "100"})
	reason, ok := IsBlocked(err)
	require.True(t, ok)
	assert.Equal(t, eligibility.Reason("cooldown active, retry in 5m"), reason)
	assert.Empty(t, f.writer.calls)
}

func TestContributeRejectsSubUnitAmount(t *testing.T) {
	f := newFixture(true)

	_, err := f.donor.Contribute(context.Background(), ContributeRequest{Project: projectHex, Amount: "0.0000009"})
	reason, ok := IsBlocked(err)
	require.True(t, ok)
	assert.Equal(t, eligibility.ReasonInvalidAmount, reason)
	assert.Empty(t, f.writer.calls)
}

func TestContribution(t *testing.T) {
	f := newFixture(true)
	v, err := f.donor.Contribution(context.Background(), me.Hex(), projectHex)
	require.NoError(t, err)
	assert.Equal(t, "25", v.Amount)
	assert.Equal(t, "$25.00", v.Display)
	assert.Equal(t, uint64(3), v.RoundID)
}

func TestWalletState(t *testing.T) {
	f := newFixture(true)
	st, err := f.donor.Wallet(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Connected)
	assert.True(t, st.IsPoolOwner)
	assert.False(t, st.WrongNetwork)
	assert.Equal(t, "84532", st.NodeChainID)

	f = newFixture(false)
	st, err = f.donor.Wallet(context.Background())
	require.NoError(t, err)
	assert.False(t, st.Connected)
	assert.Nil(t, st.Account)
}

func TestCreateRoundGates(t *testing.T) {
	ctx := context.Background()

	f := newFixture(true)
	_, err := f.admin.CreateRound(ctx, CreateRoundRequest{})
	assert.ErrorIs(t, err, ErrValidation, "active round")

	f = newFixture(true)
	f.reads.round.Finalized = true
	f.reads.round.MatchingPoolBalance = big.NewInt(0)
	_, err = f.admin.CreateRound(ctx, CreateRoundRequest{})
	assert.ErrorIs(t, err, ErrValidation, "empty pool")

	f = newFixture(true)
	f.reads.poolOwner = someone
	_, err = f.admin.CreateRound(ctx, CreateRoundRequest{})
	assert.ErrorIs(t, err, ErrNotOwner)

	f = newFixture(false)
	_, err = f.admin.CreateRound(ctx, CreateRoundRequest{})
	reason, ok := IsBlocked(err)
	require.True(t, ok)
	assert.Equal(t, eligibility.ReasonConnectWallet, reason)
}

func TestCreateRoundDuration(t *testing.T) {
	tests := []struct {
		days string
		want int64
	}{
		{"", 7 * 86400},
		{"0.5", 43200},
		{"0.01", 3600},
		{"-3", 3600},
	}
	for _, tt := range tests {
		f := newFixture(true)
		f.reads.round.Finalized = true

		res, err := f.admin.CreateRound(context.Background(), CreateRoundRequest{DurationDays: tt.days})
		require.NoError(t, err, tt.days)
		assert.Equal(t, tt.want, f.writer.duration, tt.days)
		assert.Equal(t, models.ActionCreateRound, res.Action.Kind)
	}
}

func TestFinalizeRound(t *testing.T) {
	f := newFixture(true)
	_, err := f.admin.FinalizeRound(context.Background())
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, f.writer.calls)

	f.reads.round.EndTime = time.Now().Add(-time.Minute).Unix()
	_, err = f.admin.FinalizeRound(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"finalizeRound"}, f.writer.calls)
}

func TestAddMatchingFunds(t *testing.T) {
	f := newFixture(true)
	res, err := f.admin.AddMatchingFunds(context.Background(), FundingRequest{Amount: "100"})
	require.NoError(t, err)
	assert.Equal(t, []string{"approve", "addMatchingFunds"}, f.writer.calls)
	assert.Equal(t, DefaultMatchingAmount, res.NextAmount)

	f = newFixture(true)
	f.reads.poolOwner = someone
	_, err = f.admin.AddMatchingFunds(context.Background(), FundingRequest{Amount: "100"})
	assert.ErrorIs(t, err, ErrNotOwner)

	f = newFixture(true)
	_, err = f.admin.AddMatchingFunds(context.Background(), FundingRequest{Amount: "9000"})
	reason, ok := IsBlocked(err)
	require.True(t, ok)
	assert.Equal(t, eligibility.ReasonInsufficient, reason)
}

func TestRegisterProjectValidation(t *testing.T) {
	good := ProjectRequest{
		Address:     "  " + projectHex + " ",
		Name:        "  Clean Water ",
		Description: "Wells for rural villages",
		MetadataURI: " ipfs://bafy123 ",
	}

	tests := []struct {
		name  string
		patch func(*ProjectRequest)
	}{
		{"bad address", func(r *ProjectRequest) { r.Address = "0xnope" }},
		{"short name", func(r *ProjectRequest) { r.Name = " ab  " }},
		{"short multibyte name", func(r *ProjectRequest) { r.Name = "水道" }},
		{"short description", func(r *ProjectRequest) { r.Description = "too short" }},
		{"short uri", func(r *ProjectRequest) { r.MetadataURI = "ipfs:" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(true)
			f.writer.registered = false
			req := good
			tt.patch(&req)
			_, err := f.admin.RegisterProject(context.Background(), req)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Empty(t, f.writer.calls)
		})
	}

	f := newFixture(true)
	f.writer.registered = false
	_, err := f.admin.RegisterProject(context.Background(), good)
	require.NoError(t, err)
	assert.Equal(t, []string{"Clean Water", "Wells for rural villages", "ipfs://bafy123"}, f.writer.regArgs)
}

func TestProjectActionsRequireRegistration(t *testing.T) {
	f := newFixture(true)
	f.writer.registered = false

	_, err := f.admin.ToggleProject(context.Background(), projectHex)
	assert.True(t, errors.Is(err, query.ErrProjectNotFound))

	f.writer.registered = true
	_, err = f.admin.RemoveProject(context.Background(), projectHex)
	require.NoError(t, err)
	assert.Equal(t, []string{"removeProject"}, f.writer.calls)
}
