package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/equifund/backend/internal/chain"
	"github.com/equifund/backend/internal/eligibility"
	"github.com/equifund/backend/internal/flow"
	"github.com/equifund/backend/internal/middleware"
	"github.com/equifund/backend/internal/models"
	"github.com/equifund/backend/internal/query"
	"github.com/equifund/backend/internal/repositories"
	"github.com/equifund/backend/internal/services"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	projectA = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	projectB = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

type fakeReads struct {
	round    models.Round
	roundErr error
	projects map[common.Address]models.Project
}

func (f *fakeReads) Round(context.Context) (models.Round, error) {
	return f.round, f.roundErr
}

func (f *fakeReads) Projects(context.Context, uint64) ([]models.Project, error) {
	out := []models.Project{}
	for _, addr := range []common.Address{projectA, projectB} {
		if p, ok := f.projects[addr]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeReads) AllProjects(ctx context.Context, roundID uint64) ([]models.Project, error) {
	out, _ := f.Projects(ctx, roundID)
	return append(out, models.Project{
		ProjectRecord: models.ProjectRecord{Address: common.HexToAddress("0xcc"), Name: "Retired", IsActive: false},
		TotalRaised:   big.NewInt(0),
		TotalMatched:  big.NewInt(0),
	}), nil
}

func (f *fakeReads) Project(_ context.Context, addr common.Address, _ uint64) (models.Project, error) {
	p, ok := f.projects[addr]
	if !ok {
		return models.Project{}, query.ErrProjectNotFound
	}
	return p, nil
}

func (f *fakeReads) TokenAccount(_ context.Context, owner common.Address) (models.TokenAccount, error) {
	return models.TokenAccount{Owner: owner, Balance: big.NewInt(250_000_000), Allowance: big.NewInt(0)}, nil
}

func (f *fakeReads) Sybil(_ context.Context, donor common.Address) (models.SybilStatus, error) {
	return models.SybilStatus{Donor: donor, CanContribute: false, TimeUntilNextContribution: 120, CooldownPeriod: 86400}, nil
}

type fakeMetadata struct {
	md  *models.ProjectMetadata
	err error
}

func (f *fakeMetadata) Fetch(_ context.Context, uri string) (*models.ProjectMetadata, error) {
	if f.err != nil {
		return nil, f.err
	}
	md := *f.md
	md.URI = uri
	return &md, nil
}

type fakeJournal struct {
	last repositories.ActionFilter
}

func (f *fakeJournal) List(_ context.Context, filter repositories.ActionFilter) ([]models.ActionRecord, error) {
	f.last = filter
	return nil, nil
}

func testReads() *fakeReads {
	return &fakeReads{
		round: models.Round{
			ID: 1,
			RoundStats: models.RoundStats{
				EndTime:            time.Now().Add(48 * time.Hour).Unix(),
				MatchingPool:       big.NewInt(1_000_000_000),
				TotalContributions: big.NewInt(400_000_000),
				TotalContributors:  3,
			},
			MatchingPoolBalance: big.NewInt(0),
			Projects:            []common.Address{projectA, projectB},
		},
		projects: map[common.Address]models.Project{
			projectA: {
				ProjectRecord: models.ProjectRecord{Address: projectA, Name: "Clean Water", MetadataURI: "ipfs://Qm1", IsActive: true},
				TotalRaised:   big.NewInt(300_000_000),
				TotalMatched:  big.NewInt(0),
			},
			projectB: {
				ProjectRecord: models.ProjectRecord{Address: projectB, Name: "Open Maps", IsActive: true},
				TotalRaised:   big.NewInt(100_000_000),
				TotalMatched:  big.NewInt(0),
			},
		},
	}
}

type envelope struct {
	OK        bool            `json:"ok"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	RequestID string          `json:"request_id"`
}

func do(t *testing.T, app *fiber.App, method, path string) (int, envelope) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, path, nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.Unmarshal(body, &env), string(body))
	return resp.StatusCode, env
}

type fakeContributions struct {
	calls int
}

func (f *fakeContributions) Contribution(_ context.Context, donor, project string) (*services.ContributionView, error) {
	f.calls++
	return &services.ContributionView{Donor: donor, Project: project, RoundID: 3, Amount: "25", Display: "$25.00"}, nil
}

func readApp(reads *fakeReads, md MetadataFetcher) *fiber.App {
	return readAppWith(reads, md, &fakeContributions{})
}

func readAppWith(reads *fakeReads, md MetadataFetcher, contributions ContributionReader) *fiber.App {
	log := zap.NewNop()
	app := fiber.New()
	app.Use(middleware.RequestIDMiddleware())
	rounds := NewRoundHandler(reads, log)
	projects := NewProjectHandler(reads, md, log)
	accounts := NewAccountHandler(reads, contributions, log)
	app.Get("/round", rounds.GetRound)
	app.Get("/projects", projects.ListProjects)
	app.Get("/admin/projects", projects.ListAllProjects)
	app.Get("/projects/:address", projects.GetProject)
	app.Get("/projects/:address/metadata", projects.GetMetadata)
	app.Get("/accounts/:address", accounts.GetAccount)
	app.Get("/accounts/:address/contributions/:project", accounts.GetContribution)
	return app
}

func TestGetRound(t *testing.T) {
	app := readApp(testReads(), nil)

	status, env := do(t, app, "GET", "/round")
	require.Equal(t, fiber.StatusOK, status)

	var view struct {
		RoundID      uint64 `json:"round_id"`
		Active       bool   `json:"active"`
		AverageMatch string `json:"average_match"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, uint64(1), view.RoundID)
	assert.True(t, view.Active)
	assert.Equal(t, "2.5x", view.AverageMatch)
}

func TestGetRoundUnavailable(t *testing.T) {
	reads := testReads()
	reads.roundErr = fmt.Errorf("getRoundStats: %w", chain.ErrRemote)

	status, env := do(t, readApp(reads, nil), "GET", "/round")
	assert.Equal(t, fiber.StatusBadGateway, status)
	assert.Equal(t, "unable to load", env.Error)
}

func TestListProjectsShares(t *testing.T) {
	status, env := do(t, readApp(testReads(), nil), "GET", "/projects")
	require.Equal(t, fiber.StatusOK, status)

	var views []struct {
		Name       string `json:"name"`
		RoundShare int    `json:"round_share"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &views))
	require.Len(t, views, 2)
	assert.Equal(t, 75, views[0].RoundShare)
	assert.Equal(t, 25, views[1].RoundShare)
}

func TestListAllProjectsIncludesInactive(t *testing.T) {
	status, env := do(t, readApp(testReads(), nil), "GET", "/admin/projects")
	require.Equal(t, fiber.StatusOK, status)

	var views []struct {
		Name     string `json:"name"`
		IsActive bool   `json:"is_active"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &views))
	require.Len(t, views, 3)
	assert.Equal(t, "Retired", views[2].Name)
	assert.False(t, views[2].IsActive)
}

func TestGetProject(t *testing.T) {
	app := readApp(testReads(), nil)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"registered", "/projects/" + projectA.Hex(), fiber.StatusOK},
		{"lowercase", "/projects/0x00000000000000000000000000000000000000aa", fiber.StatusOK},
		{"unknown", "/projects/0x00000000000000000000000000000000000000cc", fiber.StatusNotFound},
		{"malformed", "/projects/0x1234", fiber.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := do(t, app, "GET", tt.path)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestGetProjectMetadata(t *testing.T) {
	md := &fakeMetadata{md: &models.ProjectMetadata{Title: "Clean Water"}}
	app := readApp(testReads(), md)

	status, env := do(t, app, "GET", "/projects/"+projectA.Hex()+"/metadata")
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(env.Data), `"uri":"ipfs://Qm1"`)

	status, env = do(t, app, "GET", "/projects/"+projectB.Hex()+"/metadata")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "project has no metadata", env.Error)
	assert.NotEmpty(t, env.RequestID)

	md.err = errors.New("gateway timeout")
	status, env = do(t, app, "GET", "/projects/"+projectA.Hex()+"/metadata")
	assert.Equal(t, fiber.StatusBadGateway, status)
	assert.Equal(t, "unable to load metadata", env.Error)
	assert.NotEmpty(t, env.RequestID)
}

func TestGetContribution(t *testing.T) {
	contributions := &fakeContributions{}
	app := readAppWith(testReads(), nil, contributions)
	donor := "0x00000000000000000000000000000000000000dd"

	status, env := do(t, app, "GET", "/accounts/"+donor+"/contributions/"+projectA.Hex())
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(env.Data), `"display":"$25.00"`)
	assert.Equal(t, 1, contributions.calls)

	tests := []struct {
		name string
		path string
	}{
		{"malformed donor", "/accounts/0xnothex/contributions/" + projectA.Hex()},
		{"malformed project", "/accounts/" + donor + "/contributions/zz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := do(t, app, "GET", tt.path)
			assert.Equal(t, fiber.StatusNotFound, status)
			assert.Equal(t, "not found", env.Error)
		})
	}
	assert.Equal(t, 1, contributions.calls)
}

func TestAdminProjectRoutesRejectMalformedAddress(t *testing.T) {
	// The address is parsed before the service is reached, so no service is needed.
	h := NewAdminHandler(nil, zap.NewNop())
	app := fiber.New()
	app.Put("/admin/projects/:address", h.UpdateProject)
	app.Post("/admin/projects/:address/toggle", h.ToggleProject)
	app.Delete("/admin/projects/:address", h.RemoveProject)

	tests := []struct {
		method string
		path   string
	}{
		{"PUT", "/admin/projects/0xnothex"},
		{"POST", "/admin/projects/0xnothex/toggle"},
		{"DELETE", "/admin/projects/zz"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			status, env := do(t, app, tt.method, tt.path)
			assert.Equal(t, fiber.StatusNotFound, status)
			assert.Equal(t, "not found", env.Error)
		})
	}
}

func TestGetAccount(t *testing.T) {
	app := readApp(testReads(), nil)

	status, env := do(t, app, "GET", "/accounts/0x00000000000000000000000000000000000000dd")
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(env.Data), `"display":"$250.00"`)
	assert.Contains(t, string(env.Data), `"retry_in":"2m"`)

	status, _ = do(t, app, "GET", "/accounts/nope")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestListActionsFilters(t *testing.T) {
	journal := &fakeJournal{}
	h := NewActionHandler(nil, nil, journal, zap.NewNop())
	app := fiber.New()
	app.Get("/actions", h.ListActions)

	status, env := do(t, app, "GET", "/actions?actor=0x00000000000000000000000000000000000000dd&kind=contribute&limit=10")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "[]", string(env.Data))
	require.NotNil(t, journal.last.Actor)
	assert.Equal(t, common.HexToAddress("0xdd").Hex(), *journal.last.Actor)
	assert.Equal(t, "contribute", *journal.last.Kind)
	assert.Equal(t, 10, journal.last.Limit)

	status, _ = do(t, app, "GET", "/actions?kind=withdraw")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = do(t, app, "GET", "/actions?actor=bogus")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestStatusFor(t *testing.T) {
	remote := fmt.Errorf("pool.getRoundStats: %w", chain.ErrRemote)

	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", fmt.Errorf("%w: amount", services.ErrValidation), fiber.StatusBadRequest, "validation failed: amount"},
		{"blocked", &services.BlockedError{Reason: eligibility.ReasonInsufficient}, fiber.StatusBadRequest, "insufficient balance"},
		{"invalid address", chain.ErrInvalidAddress, fiber.StatusNotFound, "not found"},
		{"missing project", query.ErrProjectNotFound, fiber.StatusNotFound, "not found"},
		{"not owner", services.ErrNotOwner, fiber.StatusForbidden, "owner access required"},
		{"in flight", flow.ErrInFlight, fiber.StatusConflict, "action already in flight"},
		{"action failed", &flow.ActionFailedError{Kind: models.ActionContribute, Message: "execution reverted: Round ended", Err: remote}, fiber.StatusUnprocessableEntity, "execution reverted: Round ended"},
		{"remote", remote, fiber.StatusBadGateway, "unable to load"},
		{"other", errors.New("boom"), fiber.StatusInternalServerError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := statusFor(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.message, msg)
		})
	}
}
