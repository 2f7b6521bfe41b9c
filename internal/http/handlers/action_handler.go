package handlers

import (
	"context"

	"github.com/equifund/backend/internal/chain"
	"github.com/equifund/backend/internal/http/dto"
	"github.com/equifund/backend/internal/models"
	"github.com/equifund/backend/internal/repositories"
	"github.com/equifund/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// JournalReader is satisfied by *repositories.ActionRepo.
type JournalReader interface {
	List(ctx context.Context, f repositories.ActionFilter) ([]models.ActionRecord, error)
}

// StateReader is satisfied by *flow.Orchestrator.
type StateReader interface {
	States() map[string]string
}

type ActionHandler struct {
	donor   *services.DonorService
	states  StateReader
	journal JournalReader
	log     *zap.Logger
}

func NewActionHandler(donor *services.DonorService, states StateReader, journal JournalReader, log *zap.Logger) *ActionHandler {
	return &ActionHandler{donor: donor, states: states, journal: journal, log: log}
}

// Approve POST /actions/approve
func (h *ActionHandler) Approve(c *fiber.Ctx) error {
	var req dto.ApproveRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	res, err := h.donor.Approve(c.UserContext(), req.Amount)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: res})
}

// Contribute POST /actions/contribute
// Approves first when the allowance is short, unless auto_approve is false.
func (h *ActionHandler) Contribute(c *fiber.Ctx) error {
	var req dto.ContributeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	res, err := h.donor.Contribute(c.UserContext(), services.ContributeRequest{
		Project:     req.Project,
		Amount:      req.Amount,
		AutoApprove: req.AutoApprove,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: res})
}

// GetStates GET /actions/state
func (h *ActionHandler) GetStates(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: h.states.States()})
}

// ListActions GET /actions?actor=&kind=&limit=&offset=
func (h *ActionHandler) ListActions(c *fiber.Ctx) error {
	f := repositories.ActionFilter{
		Limit:  c.QueryInt("limit", 50),
		Offset: c.QueryInt("offset", 0),
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if actor := c.Query("actor"); actor != "" {
		addr, err := chain.ParseAddress(actor)
		if err != nil {
			return badRequest(c, "invalid actor address")
		}
		hex := addr.Hex()
		f.Actor = &hex
	}
	if kind := c.Query("kind"); kind != "" {
		if !isActionKind(kind) {
			return badRequest(c, "unknown action kind")
		}
		f.Kind = &kind
	}

	actions, err := h.journal.List(c.UserContext(), f)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if actions == nil {
		actions = []models.ActionRecord{}
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: actions})
}

func isActionKind(kind string) bool {
	for _, k := range models.AllActions {
		if k == kind {
			return true
		}
	}
	return false
}
