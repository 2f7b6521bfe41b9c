package handlers

import (
	"github.com/equifund/backend/internal/chain"
	"github.com/equifund/backend/internal/http/dto"
	"github.com/equifund/backend/internal/services"
	"github.com/equifund/backend/internal/units"
	"github.com/equifund/backend/internal/views"
	"github.com/gofiber/fiber/v2"
)

type MetaHandler struct {
	meta dto.MetaResponse
}

func NewMetaHandler(chainID int64, addrs chain.Addresses, walletConnected bool) *MetaHandler {
	return &MetaHandler{meta: dto.MetaResponse{
		ChainID:  chainID,
		Decimals: units.Decimals,
		Contracts: map[string]string{
			"token":       addrs.Token.Hex(),
			"registry":    addrs.Registry.Hex(),
			"pool":        addrs.Pool.Hex(),
			"sybil_guard": addrs.SybilGuard.Hex(),
		},
		DefaultAmount:    services.DefaultContributionAmount,
		DefaultMatching:  services.DefaultMatchingAmount,
		DefaultRoundDays: services.DefaultRoundDays,
		MinRoundSeconds:  views.MinRoundDurationSeconds,
		WalletConnected:  walletConnected,
	}}
}

// GetMeta GET /meta
// Network, contract addresses and form defaults for clients.
func (h *MetaHandler) GetMeta(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: h.meta})
}
