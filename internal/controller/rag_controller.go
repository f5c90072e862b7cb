package controller

import (
	"github.com/ruuig/tienda-online-sub002/internal/dto"
	"github.com/ruuig/tienda-online-sub002/internal/pkg/serverutils"
	"github.com/ruuig/tienda-online-sub002/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IRagController interface {
	RegisterRoutes(r fiber.Router)
	Rebuild(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
	Documents(ctx *fiber.Ctx) error
	IndexDocument(ctx *fiber.Ctx) error
	RemoveDocument(ctx *fiber.Ctx) error
}

type ragController struct {
	service   service.IRagService
	jwtSecret string
}

func NewRagController(service service.IRagService, jwtSecret string) IRagController {
	return &ragController{service: service, jwtSecret: jwtSecret}
}

func (c *ragController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/admin/v1/rag")
	h.Use(serverutils.JwtMiddleware(c.jwtSecret))
	h.Use(serverutils.AdminMiddleware)
	h.Post("/rebuild", c.Rebuild)
	h.Get("/stats", c.Stats)
	h.Get("/documents", c.Documents)
	h.Post("/documents/:id/index", c.IndexDocument)
	h.Delete("/documents/:id", c.RemoveDocument)
}

func (c *ragController) Rebuild(ctx *fiber.Ctx) error {
	var req dto.RebuildIndexRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}

	res, err := c.service.RebuildIndex(ctx.UserContext(), serverutils.VendorID(ctx), req.Force)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success rebuild index", res))
}

func (c *ragController) Stats(ctx *fiber.Ctx) error {
	res, err := c.service.GetStats(ctx.UserContext(), serverutils.VendorID(ctx))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get index stats", res))
}

func (c *ragController) Documents(ctx *fiber.Ctx) error {
	res, err := c.service.GetIndexedDocuments(ctx.UserContext(), serverutils.VendorID(ctx))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get indexed documents", res))
}

func (c *ragController) IndexDocument(ctx *fiber.Ctx) error {
	documentId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid document id")
	}

	if err := c.service.EnqueueDocument(ctx.UserContext(), serverutils.VendorID(ctx), documentId); err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Document queued for indexing", fiber.Map{"documentId": documentId}))
}

func (c *ragController) RemoveDocument(ctx *fiber.Ctx) error {
	documentId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid document id")
	}

	if err := c.service.RemoveDocument(ctx.UserContext(), serverutils.VendorID(ctx), documentId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Document removed from index", nil))
}
