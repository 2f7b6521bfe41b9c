package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeContract struct {
	outputs  map[string][]interface{}
	errs     map[string]error
	calls    []string
	lastArgs []interface{}
}

func newFake() *fakeContract {
	return &fakeContract{outputs: map[string][]interface{}{}, errs: map[string]error{}}
}

func (f *fakeContract) Call(_ *bind.CallOpts, results *[]interface{}, method string, params ...interface{}) error {
	f.calls = append(f.calls, method)
	f.lastArgs = params
	if err := f.errs[method]; err != nil {
		return err
	}
	*results = f.outputs[method]
	return nil
}

func (f *fakeContract) Transact(_ *bind.TransactOpts, method string, params ...interface{}) (*types.Transaction, error) {
	f.calls = append(f.calls, method)
	f.lastArgs = params
	if err := f.errs[method]; err != nil {
		return nil, err
	}
	return types.NewTx(&types.LegacyTx{Nonce: 1}), nil
}

type fakes struct {
	token, registry, pool, sybil *fakeContract
}

func testAccessor() (*Accessor, fakes) {
	f := fakes{token: newFake(), registry: newFake(), pool: newFake(), sybil: newFake()}
	addrs := Addresses{
		Token:      common.HexToAddress("0x01"),
		Registry:   common.HexToAddress("0x02"),
		Pool:       common.HexToAddress("0x03"),
		SybilGuard: common.HexToAddress("0x04"),
	}
	return newAccessor(f.token, f.registry, f.pool, f.sybil, addrs, zap.NewNop()), f
}

func TestRoundStats(t *testing.T) {
	a, f := testAccessor()
	f.pool.outputs["getRoundStats"] = []interface{}{
		big.NewInt(1700000000), big.NewInt(1700086400),
		big.NewInt(5_000_000_000), big.NewInt(250_000_000),
		big.NewInt(12), true,
	}

	stats, err := a.RoundStats(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), stats.StartTime)
	assert.Equal(t, int64(1700086400), stats.EndTime)
	assert.Equal(t, "5000000000", stats.MatchingPool.String())
	assert.Equal(t, "250000000", stats.TotalContributions.String())
	assert.Equal(t, uint64(12), stats.TotalContributors)
	assert.True(t, stats.Finalized)
	assert.Equal(t, []interface{}{big.NewInt(3)}, f.pool.lastArgs)
}

func TestRoundStatsMalformed(t *testing.T) {
	a, f := testAccessor()
	f.pool.outputs["getRoundStats"] = []interface{}{big.NewInt(1), big.NewInt(2)}

	_, err := a.RoundStats(context.Background(), 1)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.ErrorIs(t, err, ErrRemote)
}

func TestProjectTuple(t *testing.T) {
	a, f := testAccessor()
	addr := common.HexToAddress("0xabcdef0000000000000000000000000000000001")
	f.registry.outputs["getProject"] = []interface{}{struct {
		ProjectAddress common.Address `json:"projectAddress"`
		Name           string         `json:"name"`
		Description    string         `json:"description"`
		MetadataURI    string         `json:"metadataURI"`
		IsActive       bool           `json:"isActive"`
		RegisteredAt   *big.Int       `json:"registeredAt"`
	}{addr, "Clean Water", "Wells for villages", "ipfs://abc", true, big.NewInt(1699999999)}}

	p, err := a.Project(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, addr, p.Address)
	assert.Equal(t, "Clean Water", p.Name)
	assert.Equal(t, "ipfs://abc", p.MetadataURI)
	assert.True(t, p.IsActive)
	assert.Equal(t, int64(1699999999), p.RegisteredAt)
}

func TestProjectTupleWrongShape(t *testing.T) {
	a, f := testAccessor()
	f.registry.outputs["getProject"] = []interface{}{"not a tuple"}

	_, err := a.Project(context.Background(), common.Address{})
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestRemoteErrorKeepsMessage(t *testing.T) {
	a, f := testAccessor()
	f.token.errs["balanceOf"] = errors.New("connection refused")

	_, err := a.TokenBalance(context.Background(), common.Address{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRemote)
	assert.Equal(t, "connection refused", Reason(err))

	var ce *CallError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "token", ce.Contract)
	assert.Equal(t, "balanceOf", ce.Method)
}

func TestAllowanceTargetsPool(t *testing.T) {
	a, f := testAccessor()
	f.token.outputs["allowance"] = []interface{}{big.NewInt(50_000_000)}
	owner := common.HexToAddress("0x10")

	v, err := a.TokenAllowance(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, "50000000", v.String())
	assert.Equal(t, []interface{}{owner, a.Addresses().Pool}, f.token.lastArgs)
}

func TestCooldownOutOfRange(t *testing.T) {
	a, f := testAccessor()
	huge := new(big.Int).Lsh(big.NewInt(1), 100)
	f.sybil.outputs["timeUntilNextContribution"] = []interface{}{huge}

	_, err := a.TimeUntilNextContribution(context.Background(), common.Address{})
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestSybilReads(t *testing.T) {
	a, f := testAccessor()
	f.sybil.outputs["canContribute"] = []interface{}{false}
	f.sybil.outputs["timeUntilNextContribution"] = []interface{}{big.NewInt(3661)}
	f.sybil.outputs["getCooldownPeriod"] = []interface{}{big.NewInt(86400)}

	ctx := context.Background()
	ok, err := a.CanContribute(ctx, common.Address{})
	require.NoError(t, err)
	assert.False(t, ok)

	left, err := a.TimeUntilNextContribution(ctx, common.Address{})
	require.NoError(t, err)
	assert.Equal(t, int64(3661), left)

	period, err := a.CooldownPeriod(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(86400), period)
}

func TestTransactWithoutSigner(t *testing.T) {
	a, f := testAccessor()

	_, err := a.FinalizeRound(nil)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Empty(t, f.pool.calls)
}

func TestTransactArguments(t *testing.T) {
	a, f := testAccessor()
	opts := &bind.TransactOpts{}
	project := common.HexToAddress("0x20")

	_, err := a.Contribute(opts, project, big.NewInt(100_000_000))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{project, big.NewInt(100_000_000)}, f.pool.lastArgs)

	_, err = a.CreateRound(opts, 7*86400)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{big.NewInt(604800)}, f.pool.lastArgs)

	_, err = a.Approve(opts, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, a.Addresses().Pool, f.token.lastArgs[0])
}

func TestTransactRejection(t *testing.T) {
	a, f := testAccessor()
	f.pool.errs["contribute"] = errors.New("execution reverted: Round not active")

	_, err := a.Contribute(&bind.TransactOpts{}, common.Address{}, big.NewInt(1))
	require.Error(t, err)
	assert.Equal(t, "execution reverted: Round not active", Reason(err))
}

func TestWaitConfirmedWithoutBackend(t *testing.T) {
	a, _ := testAccessor()

	_, err := a.WaitConfirmed(context.Background(), types.NewTx(&types.LegacyTx{}))
	assert.ErrorIs(t, err, ErrNotConnected)
}
