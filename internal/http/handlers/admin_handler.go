package handlers

import (
	"github.com/equifund/backend/internal/http/dto"
	"github.com/equifund/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AdminHandler serves the owner-only round and registry actions. Role checks happen in
// the router; contract ownership is checked by the service against the connected wallet.
type AdminHandler struct {
	admin *services.AdminService
	log   *zap.Logger
}

func NewAdminHandler(admin *services.AdminService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, log: log}
}

func (h *AdminHandler) respond(c *fiber.Ctx, res *services.ActionResult, err error) error {
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: res})
}

// CreateRound POST /admin/rounds
func (h *AdminHandler) CreateRound(c *fiber.Ctx) error {
	var req dto.CreateRoundRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
	}
	res, err := h.admin.CreateRound(c.UserContext(), services.CreateRoundRequest{DurationDays: req.DurationDays})
	return h.respond(c, res, err)
}

// FinalizeRound POST /admin/rounds/finalize
func (h *AdminHandler) FinalizeRound(c *fiber.Ctx) error {
	res, err := h.admin.FinalizeRound(c.UserContext())
	return h.respond(c, res, err)
}

// AddMatchingFunds POST /admin/matching-funds
func (h *AdminHandler) AddMatchingFunds(c *fiber.Ctx) error {
	var req dto.MatchingFundsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	res, err := h.admin.AddMatchingFunds(c.UserContext(), services.FundingRequest{
		Amount:      req.Amount,
		AutoApprove: req.AutoApprove,
	})
	return h.respond(c, res, err)
}

// RegisterProject POST /admin/projects
func (h *AdminHandler) RegisterProject(c *fiber.Ctx) error {
	var req dto.ProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	res, err := h.admin.RegisterProject(c.UserContext(), projectRequest(req))
	return h.respond(c, res, err)
}

// UpdateProject PUT /admin/projects/:address
func (h *AdminHandler) UpdateProject(c *fiber.Ctx) error {
	project, err := pathAddress(c, "address")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req dto.ProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.Address = project.Hex()
	res, err := h.admin.UpdateProject(c.UserContext(), projectRequest(req))
	return h.respond(c, res, err)
}

// ToggleProject POST /admin/projects/:address/toggle
func (h *AdminHandler) ToggleProject(c *fiber.Ctx) error {
	project, err := pathAddress(c, "address")
	if err != nil {
		return respondError(c, h.log, err)
	}
	res, err := h.admin.ToggleProject(c.UserContext(), project.Hex())
	return h.respond(c, res, err)
}

// RemoveProject DELETE /admin/projects/:address
func (h *AdminHandler) RemoveProject(c *fiber.Ctx) error {
	project, err := pathAddress(c, "address")
	if err != nil {
		return respondError(c, h.log, err)
	}
	res, err := h.admin.RemoveProject(c.UserContext(), project.Hex())
	return h.respond(c, res, err)
}

func projectRequest(req dto.ProjectRequest) services.ProjectRequest {
	return services.ProjectRequest{
		Address:     req.Address,
		Name:        req.Name,
		Description: req.Description,
		MetadataURI: req.MetadataURI,
	}
}
