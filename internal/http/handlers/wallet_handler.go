package handlers

import (
	"github.com/equifund/backend/internal/http/dto"
	"github.com/equifund/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type WalletHandler struct {
	donor *services.DonorService
	log   *zap.Logger
}

func NewWalletHandler(donor *services.DonorService, log *zap.Logger) *WalletHandler {
	return &WalletHandler{donor: donor, log: log}
}

// GetWallet GET /wallet
// Connection, network and ownership state of the service wallet.
func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	st, err := h.donor.Wallet(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: st})
}

// GetEligibility GET /wallet/eligibility?project=&amount=
// Evaluates a contribution without submitting it; a blocked result is still 200.
func (h *WalletHandler) GetEligibility(c *fiber.Ctx) error {
	view, err := h.donor.Eligibility(c.UserContext(), c.Query("project"), c.Query("amount", services.DefaultContributionAmount))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: view})
}
