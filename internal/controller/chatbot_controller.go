package controller

import (
	"career-chat-be/internal/dto"
	"career-chat-be/internal/pkg/apperror"
	"career-chat-be/internal/pkg/serverutils"
	"career-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatbotController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	CreateSession(ctx *fiber.Ctx) error
	GetAllSessions(ctx *fiber.Ctx) error
	GetSession(ctx *fiber.Ctx) error
	UpdateSessionTitle(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
	GetChatHistory(ctx *fiber.Ctx) error
	GetRecentMessages(ctx *fiber.Ctx) error
	SendChat(ctx *fiber.Ctx) error
}

type chatbotController struct {
	service service.IChatbotService
}

func NewChatbotController(service service.IChatbotService) IChatbotController {
	return &chatbotController{service: service}
}

func (c *chatbotController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/chat/v1", auth)
	h.Get("/sessions", c.GetAllSessions)
	h.Post("/sessions", c.CreateSession)
	h.Get("/sessions/:id", c.GetSession)
	h.Patch("/sessions/:id/title", c.UpdateSessionTitle)
	h.Delete("/sessions/:id", c.DeleteSession)
	h.Get("/sessions/:id/messages", c.GetChatHistory)
	h.Get("/sessions/:id/messages/recent", c.GetRecentMessages)
	h.Post("/sessions/:id/messages", c.SendChat)
}

// identify resolves the caller and the :id path parameter.
func identify(ctx *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	userId, err := serverutils.GetUserId(ctx)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	sessionId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, apperror.BadRequest("invalid chat session id")
	}
	return userId, sessionId, nil
}

func (c *chatbotController) CreateSession(ctx *fiber.Ctx) error {
	userId, err := serverutils.GetUserId(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateSessionRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return apperror.BadRequest("invalid request body")
		}
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.CreateSession(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.CreatedResponse("Session created", res))
}

func (c *chatbotController) GetAllSessions(ctx *fiber.Ctx) error {
	userId, err := serverutils.GetUserId(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetAllSessions(ctx.UserContext(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Sessions retrieved", res))
}

func (c *chatbotController) GetSession(ctx *fiber.Ctx) error {
	userId, sessionId, err := identify(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetSession(ctx.UserContext(), userId, sessionId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Session retrieved", res))
}

func (c *chatbotController) UpdateSessionTitle(ctx *fiber.Ctx) error {
	userId, sessionId, err := identify(ctx)
	if err != nil {
		return err
	}

	var req dto.UpdateSessionTitleRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.BadRequest("invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.UpdateSessionTitle(ctx.UserContext(), userId, sessionId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Session title updated", res))
}

func (c *chatbotController) DeleteSession(ctx *fiber.Ctx) error {
	userId, sessionId, err := identify(ctx)
	if err != nil {
		return err
	}

	if err := c.service.DeleteSession(ctx.UserContext(), userId, sessionId); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Session deleted", nil))
}

func (c *chatbotController) GetChatHistory(ctx *fiber.Ctx) error {
	userId, sessionId, err := identify(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetChatHistory(ctx.UserContext(), userId, sessionId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Messages retrieved", res))
}

func (c *chatbotController) GetRecentMessages(ctx *fiber.Ctx) error {
	userId, sessionId, err := identify(ctx)
	if err != nil {
		return err
	}

	var query dto.RecentMessagesQuery
	if err := ctx.QueryParser(&query); err != nil {
		return apperror.BadRequest("invalid query parameters")
	}
	if err := serverutils.ValidateRequest(query); err != nil {
		return err
	}

	res, err := c.service.GetRecentMessages(ctx.UserContext(), userId, sessionId, &query)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Messages retrieved", res))
}

func (c *chatbotController) SendChat(ctx *fiber.Ctx) error {
	userId, sessionId, err := identify(ctx)
	if err != nil {
		return err
	}

	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.BadRequest("invalid request body")
	}
	if req.ClientRequestId == "" {
		req.ClientRequestId = ctx.Get("Idempotency-Key")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SendChat(ctx.UserContext(), userId, sessionId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Message sent", res))
}
