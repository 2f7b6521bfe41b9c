package handlers

import (
	"context"

	"github.com/equifund/backend/internal/http/dto"
	"github.com/equifund/backend/internal/models"
	"github.com/equifund/backend/internal/services"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
	"go.uber.org/zap"
)

// AccountReader is satisfied by *query.Service.
type AccountReader interface {
	TokenAccount(ctx context.Context, owner common.Address) (models.TokenAccount, error)
	Sybil(ctx context.Context, donor common.Address) (models.SybilStatus, error)
}

// ContributionReader is satisfied by *services.DonorService.
type ContributionReader interface {
	Contribution(ctx context.Context, donor, project string) (*services.ContributionView, error)
}

type AccountHandler struct {
	reads         AccountReader
	contributions ContributionReader
	log           *zap.Logger
}

func NewAccountHandler(reads AccountReader, contributions ContributionReader, log *zap.Logger) *AccountHandler {
	return &AccountHandler{reads: reads, contributions: contributions, log: log}
}

// GetAccount GET /accounts/:address
// USDC balance, pool allowance and sybil cooldown of any address.
func (h *AccountHandler) GetAccount(c *fiber.Ctx) error {
	addr, err := pathAddress(c, "address")
	if err != nil {
		return respondError(c, h.log, err)
	}

	var (
		acc   models.TokenAccount
		sybil models.SybilStatus
	)
	g, ctx := errgroup.WithContext(c.UserContext())
	g.Go(func() (err error) {
		acc, err = h.reads.TokenAccount(ctx, addr)
		return err
	})
	g.Go(func() (err error) {
		sybil, err = h.reads.Sybil(ctx, addr)
		return err
	})
	if err := g.Wait(); err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.NewAccountView(acc, sybil)})
}

// GetContribution GET /accounts/:address/contributions/:project
func (h *AccountHandler) GetContribution(c *fiber.Ctx) error {
	donor, err := pathAddress(c, "address")
	if err != nil {
		return respondError(c, h.log, err)
	}
	project, err := pathAddress(c, "project")
	if err != nil {
		return respondError(c, h.log, err)
	}
	view, err := h.contributions.Contribution(c.UserContext(), donor.Hex(), project.Hex())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: view})
}
