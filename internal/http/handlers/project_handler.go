package handlers

import (
	"context"

	"github.com/equifund/backend/internal/http/dto"
	"github.com/equifund/backend/internal/models"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ProjectReader is satisfied by *query.Service.
type ProjectReader interface {
	RoundReader
	Projects(ctx context.Context, roundID uint64) ([]models.Project, error)
	AllProjects(ctx context.Context, roundID uint64) ([]models.Project, error)
	Project(ctx context.Context, project common.Address, roundID uint64) (models.Project, error)
}

// MetadataFetcher is satisfied by *metadata.Fetcher.
type MetadataFetcher interface {
	Fetch(ctx context.Context, uri string) (*models.ProjectMetadata, error)
}

type ProjectHandler struct {
	reads    ProjectReader
	metadata MetadataFetcher
	log      *zap.Logger
}

func NewProjectHandler(reads ProjectReader, metadata MetadataFetcher, log *zap.Logger) *ProjectHandler {
	return &ProjectHandler{reads: reads, metadata: metadata, log: log}
}

// ListProjects GET /projects
// Active projects of the current round sorted by raised amount.
func (h *ProjectHandler) ListProjects(c *fiber.Ctx) error {
	return h.list(c, h.reads.Projects)
}

// ListAllProjects GET /admin/projects
// Every registered project, deactivated ones included.
func (h *ProjectHandler) ListAllProjects(c *fiber.Ctx) error {
	return h.list(c, h.reads.AllProjects)
}

func (h *ProjectHandler) list(c *fiber.Ctx, load func(context.Context, uint64) ([]models.Project, error)) error {
	ctx := c.UserContext()
	round, err := h.reads.Round(ctx)
	if err != nil {
		return respondError(c, h.log, err)
	}
	projects, err := load(ctx, round.ID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	out := make([]dto.ProjectView, 0, len(projects))
	for _, p := range projects {
		out = append(out, dto.NewProjectView(p, round.TotalContributions))
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: out})
}

// GetProject GET /projects/:address
func (h *ProjectHandler) GetProject(c *fiber.Ctx) error {
	project, round, err := h.load(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.NewProjectView(project, round.TotalContributions)})
}

// GetMetadata GET /projects/:address/metadata
func (h *ProjectHandler) GetMetadata(c *fiber.Ctx) error {
	project, _, err := h.load(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if project.MetadataURI == "" {
		return c.Status(fiber.StatusNotFound).JSON(errorBody(c, "project has no metadata"))
	}

	md, err := h.metadata.Fetch(c.UserContext(), project.MetadataURI)
	if err != nil {
		h.log.Warn("metadata fetch failed",
			zap.String("project", project.Address.Hex()),
			zap.String("uri", project.MetadataURI),
			zap.Error(err),
		)
		return c.Status(fiber.StatusBadGateway).JSON(errorBody(c, "unable to load metadata"))
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: md})
}

func (h *ProjectHandler) load(c *fiber.Ctx) (models.Project, models.Round, error) {
	addr, err := pathAddress(c, "address")
	if err != nil {
		return models.Project{}, models.Round{}, err
	}
	ctx := c.UserContext()
	round, err := h.reads.Round(ctx)
	if err != nil {
		return models.Project{}, models.Round{}, err
	}
	project, err := h.reads.Project(ctx, addr, round.ID)
	return project, round, err
}
