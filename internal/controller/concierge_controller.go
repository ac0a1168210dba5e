package controller

import (
	"ai-concierge-be/internal/dto"
	"ai-concierge-be/internal/pkg/serverutils"
	"ai-concierge-be/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type ConciergeController interface {
	RegisterRoutes(api fiber.Router, jwtMiddleware fiber.Handler)
}

type conciergeController struct {
	conciergeService service.ConciergeService
	validate         *validator.Validate
}

func NewConciergeController(conciergeService service.ConciergeService) ConciergeController {
	return &conciergeController{
		conciergeService: conciergeService,
		validate:         validator.New(),
	}
}

func (c *conciergeController) RegisterRoutes(api fiber.Router, jwtMiddleware fiber.Handler) {
	concierge := api.Group("/concierge", jwtMiddleware)
	concierge.Post("/chat", c.Chat)
	concierge.Get("/conversations/:conversationId/history", c.GetHistory)
}

// Chat answers one attendee message through the retrieval pipeline
// @Summary Ask the conference concierge
// @Tags Concierge
// @Security BearerAuth
// @Accept json
// @Produce json
// @Success 200 {object} dto.ChatResponse
// @Router /api/concierge/chat [post]
func (c *conciergeController) Chat(ctx *fiber.Ctx) error {
	// Claims are attacker-controlled values; a signed token may still carry a
	// non-string user_id.
	userId, ok := ctx.Locals("user_id").(string)
	if !ok || userId == "" {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}

	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := c.validate.Struct(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	resp, err := c.conciergeService.Chat(ctx.Context(), userId, &req)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}

	return ctx.JSON(serverutils.SuccessResponse("Chat answered", resp))
}

// GetHistory returns recent messages of a conversation
// @Summary Get conversation history
// @Tags Concierge
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.ConversationHistoryResponse
// @Router /api/concierge/conversations/{conversationId}/history [get]
func (c *conciergeController) GetHistory(ctx *fiber.Ctx) error {
	conversationId := ctx.Params("conversationId")
	if conversationId == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Missing conversation id"))
	}

	limit := ctx.QueryInt("limit", 20)

	resp, err := c.conciergeService.History(ctx.Context(), conversationId, limit)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}

	return ctx.JSON(serverutils.SuccessResponse("History retrieved", resp))
}
