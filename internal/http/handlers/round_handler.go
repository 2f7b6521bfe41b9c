package handlers

import (
	"context"
	"time"

	"github.com/equifund/backend/internal/http/dto"
	"github.com/equifund/backend/internal/models"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RoundReader is the cached round read; *query.Service satisfies it.
type RoundReader interface {
	Round(ctx context.Context) (models.Round, error)
}

type RoundHandler struct {
	reads RoundReader
	now   func() time.Time
	log   *zap.Logger
}

func NewRoundHandler(reads RoundReader, log *zap.Logger) *RoundHandler {
	return &RoundHandler{reads: reads, now: time.Now, log: log}
}

// GetRound GET /round
func (h *RoundHandler) GetRound(c *fiber.Ctx) error {
	round, err := h.reads.Round(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.NewRoundView(round, h.now())})
}
