package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"career-chat-be/internal/constant"
	"career-chat-be/internal/dto"
	"career-chat-be/internal/entity"
	"career-chat-be/internal/pkg/apperror"
	"career-chat-be/internal/pkg/logger"
	"career-chat-be/internal/repository/contract"
	"career-chat-be/internal/repository/specification"
	"career-chat-be/internal/repository/unitofwork"
	"career-chat-be/pkg/counselor"
	"career-chat-be/pkg/events"
	"career-chat-be/pkg/llm"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 100
)

// ICounselor produces the assistant reply and a session title for one user turn.
type ICounselor interface {
	Ask(ctx context.Context, message string, history []llm.Message) (*counselor.Answer, error)
}

type IChatbotService interface {
	CreateSession(ctx context.Context, userId uuid.UUID, req *dto.CreateSessionRequest) (*dto.SessionResponse, error)
	GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.SessionResponse, error)
	GetSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.SessionResponse, error)
	UpdateSessionTitle(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, req *dto.UpdateSessionTitleRequest) (*dto.SessionResponse, error)
	DeleteSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error
	GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.ChatMessageResponse, error)
	GetRecentMessages(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, query *dto.RecentMessagesQuery) (*dto.RecentMessagesResponse, error)
	SendChat(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, req *dto.SendChatRequest) (*dto.SendChatResponse, error)
}

type ChatbotConfig struct {
	HistoryLimit int
	// FailOnUnavailable surfaces AI outages as 503 instead of storing the fallback reply.
	FailOnUnavailable bool
}

type chatbotService struct {
	uowFactory  unitofwork.RepositoryFactory
	counselor   ICounselor
	sendResults contract.SendResultRepository
	publisher   IPublisherService
	logger      logger.ILogger
	cfg         ChatbotConfig
	inflight    singleflight.Group
}

func NewChatbotService(
	uowFactory unitofwork.RepositoryFactory,
	advisor ICounselor,
	sendResults contract.SendResultRepository,
	publisher IPublisherService,
	log logger.ILogger,
	cfg ChatbotConfig,
) IChatbotService {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 10
	}
	return &chatbotService{
		uowFactory:  uowFactory,
		counselor:   advisor,
		sendResults: sendResults,
		publisher:   publisher,
		logger:      log,
		cfg:         cfg,
	}
}

func toSessionResponse(s *entity.ChatSession) *dto.SessionResponse {
	return &dto.SessionResponse{
		Id:        s.Id,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func toMessageResponse(m *entity.ChatMessage) *dto.ChatMessageResponse {
	return &dto.ChatMessageResponse{
		Id:            m.Id,
		ChatSessionId: m.ChatSessionId,
		Sender:        m.Role,
		Content:       m.Chat,
		CreatedAt:     m.CreatedAt,
	}
}

// ownedSession loads a session and checks it belongs to userId.
func (cs *chatbotService) ownedSession(ctx context.Context, uow unitofwork.UnitOfWork, userId, sessionId uuid.UUID) (*entity.ChatSession, error) {
	session, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: sessionId})
	if err != nil {
		return nil, apperror.Internal("failed to load chat session", err)
	}
	if session == nil {
		return nil, apperror.NotFound("chat session not found")
	}
	if session.UserId != userId {
		return nil, apperror.Forbidden("chat session belongs to another user")
	}
	return session, nil
}

// CreateSession creates a new chat session
func (cs *chatbotService) CreateSession(ctx context.Context, userId uuid.UUID, req *dto.CreateSessionRequest) (*dto.SessionResponse, error) {
	title := constant.DefaultSessionTitle
	if req != nil && strings.TrimSpace(req.Title) != "" {
		title = strings.TrimSpace(req.Title)
	}
	if utf8.RuneCountInString(title) > constant.MaxTitleLength {
		return nil, apperror.BadRequest("title must be at most 255 characters")
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	session := &entity.ChatSession{
		Id:     uuid.New(),
		UserId: userId,
		Title:  title,
	}
	if err := uow.ChatSessionRepository().Create(ctx, session); err != nil {
		cs.logger.Error("CHATBOT", "Failed to create chat session", map[string]interface{}{"error": err.Error(), "user_id": userId})
		return nil, apperror.Internal("failed to create chat session", err)
	}

	return toSessionResponse(session), nil
}

// GetAllSessions lists the caller's sessions, newest first.
func (cs *chatbotService) GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.SessionResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	sessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, apperror.Internal("failed to load chat sessions", err)
	}

	res := make([]*dto.SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		res = append(res, toSessionResponse(s))
	}
	return res, nil
}

func (cs *chatbotService) GetSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.SessionResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	session, err := cs.ownedSession(ctx, uow, userId, sessionId)
	if err != nil {
		return nil, err
	}
	return toSessionResponse(session), nil
}

// UpdateSessionTitle only replaces the default title. A session that already
// left "New Chat" keeps its title and the call reports a conflict.
func (cs *chatbotService) UpdateSessionTitle(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, req *dto.UpdateSessionTitleRequest) (*dto.SessionResponse, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperror.BadRequest("title is required")
	}
	if utf8.RuneCountInString(title) > constant.MaxTitleLength {
		return nil, apperror.BadRequest("title must be at most 255 characters")
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if _, err := cs.ownedSession(ctx, uow, userId, sessionId); err != nil {
		return nil, err
	}

	updated, err := uow.ChatSessionRepository().UpdateTitleIfMatch(ctx, sessionId, constant.DefaultSessionTitle, title)
	if err != nil {
		return nil, apperror.Internal("failed to update chat session", err)
	}
	if !updated {
		return nil, apperror.Conflict("chat session title is already set")
	}

	session, err := cs.ownedSession(ctx, uow, userId, sessionId)
	if err != nil {
		return nil, err
	}
	cs.publish(ctx, events.New(constant.EventChatSessionTitleUpdated, map[string]interface{}{
		"user_id":         userId.String(),
		"chat_session_id": sessionId.String(),
		"title":           session.Title,
	}))
	return toSessionResponse(session), nil
}

// DeleteSession removes the session and every message in it.
func (cs *chatbotService) DeleteSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return apperror.Internal("failed to delete chat session", err)
	}
	defer uow.Rollback()

	if _, err := cs.ownedSession(ctx, uow, userId, sessionId); err != nil {
		return err
	}
	// The FK cascade covers this too; deleting explicitly keeps stores without
	// cascading constraints consistent.
	if err := uow.ChatMessageRepository().DeleteByChatSessionId(ctx, sessionId); err != nil {
		return apperror.Internal("failed to delete chat session", err)
	}
	if err := uow.ChatSessionRepository().Delete(ctx, sessionId); err != nil {
		return apperror.Internal("failed to delete chat session", err)
	}
	if err := uow.Commit(); err != nil {
		return apperror.Internal("failed to delete chat session", err)
	}

	cs.publish(ctx, events.New(constant.EventChatSessionDeleted, map[string]interface{}{
		"user_id":         userId.String(),
		"chat_session_id": sessionId.String(),
	}))
	return nil
}

// GetChatHistory returns every message of the session, oldest first.
func (cs *chatbotService) GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.ChatMessageResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if _, err := cs.ownedSession(ctx, uow, userId, sessionId); err != nil {
		return nil, err
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, apperror.Internal("failed to load messages", err)
	}

	res := make([]*dto.ChatMessageResponse, 0, len(messages))
	for _, m := range messages {
		res = append(res, toMessageResponse(m))
	}
	return res, nil
}

// GetRecentMessages pages backwards from the newest message. Each page is
// returned oldest first.
func (cs *chatbotService) GetRecentMessages(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, query *dto.RecentMessagesQuery) (*dto.RecentMessagesResponse, error) {
	limit, offset := defaultRecentLimit, 0
	if query != nil {
		if query.Limit != 0 {
			limit = query.Limit
		}
		offset = query.Offset
	}
	if limit < 1 || limit > maxRecentLimit {
		return nil, apperror.BadRequest("limit must be between 1 and 100")
	}
	if offset < 0 {
		return nil, apperror.BadRequest("offset must not be negative")
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if _, err := cs.ownedSession(ctx, uow, userId, sessionId); err != nil {
		return nil, err
	}

	// One extra row tells whether an older page exists.
	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit + 1, Offset: offset},
	)
	if err != nil {
		return nil, apperror.Internal("failed to load messages", err)
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}

	res := make([]*dto.ChatMessageResponse, len(messages))
	for i, m := range messages {
		res[len(messages)-1-i] = toMessageResponse(m)
	}
	return &dto.RecentMessagesResponse{Messages: res, HasMore: hasMore}, nil
}

// SendChat stores the user's message, asks the counselor with the recent
// history, stores the reply and names the session on its first exchange.
// Retries carrying the same client request id replay the first result.
func (cs *chatbotService) SendChat(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, req *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	content := req.Chat
	if strings.TrimSpace(content) == "" {
		return nil, apperror.BadRequest("message is required")
	}
	if utf8.RuneCountInString(content) > constant.MaxMessageLength {
		return nil, apperror.BadRequest("message must be at most 2000 characters")
	}

	if req.ClientRequestId == "" || cs.sendResults == nil {
		return cs.sendChat(ctx, userId, sessionId, content, "")
	}

	key := userId.String() + ":" + req.ClientRequestId
	v, err, _ := cs.inflight.Do(key, func() (interface{}, error) {
		if cached, ok := cs.sendResults.Get(userId, req.ClientRequestId); ok {
			if cached.SessionId != sessionId {
				return nil, apperror.Conflict("client_request_id was already used for another chat session")
			}
			return toSendChatResponse(cached, req.ClientRequestId, false), nil
		}
		return cs.sendChat(ctx, userId, sessionId, content, req.ClientRequestId)
	})
	if err != nil {
		return nil, err
	}
	return v.(*dto.SendChatResponse), nil
}

func toSendChatResponse(r *contract.SendResult, clientRequestId string, fallback bool) *dto.SendChatResponse {
	return &dto.SendChatResponse{
		ChatSessionId:    r.SessionId,
		ChatSessionTitle: r.Title,
		ClientRequestId:  clientRequestId,
		Sent:             toMessageResponse(r.UserMessage),
		Reply:            toMessageResponse(r.AssistantMessage),
		Fallback:         fallback || r.AssistantMessage.Chat == constant.FallbackAssistantMessage,
	}
}

func (cs *chatbotService) sendChat(ctx context.Context, userId, sessionId uuid.UUID, content, clientRequestId string) (*dto.SendChatResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if _, err := cs.ownedSession(ctx, uow, userId, sessionId); err != nil {
		return nil, err
	}

	// 1. Persist the user's message. Nothing else happens if this fails.
	userMessage := &entity.ChatMessage{
		Id:            uuid.New(),
		Chat:          content,
		Role:          constant.ChatMessageRoleUser,
		ChatSessionId: sessionId,
	}
	if err := uow.ChatMessageRepository().Create(ctx, userMessage); err != nil {
		return nil, cs.sendFailed("save user message", sessionId, err)
	}

	// 2. Load the most recent prior messages, oldest first.
	history, err := cs.loadHistory(ctx, uow, sessionId, userMessage)
	if err != nil {
		return nil, cs.sendFailed("load history", sessionId, err)
	}

	// 3. Ask the counselor.
	answer, fallback, err := cs.ask(ctx, sessionId, content, history)
	if err != nil {
		return nil, err
	}

	// 4. Persist the reply.
	assistantMessage := &entity.ChatMessage{
		Id:            uuid.New(),
		Chat:          answer.Response,
		Role:          constant.ChatMessageRoleAssistant,
		ChatSessionId: sessionId,
	}
	if err := uow.ChatMessageRepository().Create(ctx, assistantMessage); err != nil {
		return nil, cs.sendFailed("save assistant message", sessionId, err)
	}

	// 5. Name the session if it still carries the default title.
	title, titleChanged, err := cs.assignTitle(ctx, uow, userId, sessionId, answer.Title)
	if err != nil {
		return nil, cs.sendFailed("update session title", sessionId, err)
	}

	result := &contract.SendResult{
		SessionId:        sessionId,
		UserMessage:      userMessage,
		AssistantMessage: assistantMessage,
		Title:            title,
	}
	if clientRequestId != "" && cs.sendResults != nil {
		cs.sendResults.Save(userId, clientRequestId, result)
	}

	for _, m := range []*entity.ChatMessage{userMessage, assistantMessage} {
		cs.publish(ctx, events.New(constant.EventChatMessageCreated, map[string]interface{}{
			"user_id":         userId.String(),
			"chat_session_id": sessionId.String(),
			"message_id":      m.Id.String(),
			"sender":          m.Role,
			"content":         m.Chat,
			"created_at":      m.CreatedAt,
		}))
	}
	if titleChanged {
		cs.publish(ctx, events.New(constant.EventChatSessionTitleUpdated, map[string]interface{}{
			"user_id":         userId.String(),
			"chat_session_id": sessionId.String(),
			"title":           title,
		}))
	}

	// 6. Return both rows.
	return toSendChatResponse(result, clientRequestId, fallback), nil
}

func (cs *chatbotService) loadHistory(ctx context.Context, uow unitofwork.UnitOfWork, sessionId uuid.UUID, current *entity.ChatMessage) ([]llm.Message, error) {
	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.NotID{ID: current.Id},
		specification.CreatedBefore{At: current.CreatedAt},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: cs.cfg.HistoryLimit},
	)
	if err != nil {
		return nil, err
	}

	history := make([]llm.Message, len(messages))
	for i, m := range messages {
		role := llm.RoleUser
		if m.Role == constant.ChatMessageRoleAssistant {
			role = llm.RoleAssistant
		}
		history[len(messages)-1-i] = llm.Message{Role: role, Content: m.Chat}
	}
	return history, nil
}

// ask returns the counselor's answer, or the labeled fallback when the AI is
// unavailable and the service is configured to degrade.
func (cs *chatbotService) ask(ctx context.Context, sessionId uuid.UUID, content string, history []llm.Message) (*counselor.Answer, bool, error) {
	if cs.counselor == nil {
		return nil, false, apperror.ServiceUnavailable("AI service is not configured", llm.ErrMissingCredential)
	}

	answer, err := cs.counselor.Ask(ctx, content, history)
	if err == nil {
		return answer, false, nil
	}

	details := map[string]interface{}{"error": err.Error(), "chat_session_id": sessionId}
	if errors.Is(err, llm.ErrMissingCredential) {
		cs.logger.Error("CHATBOT", "AI credential missing", details)
		return nil, false, apperror.ServiceUnavailable("AI service is not configured", err)
	}
	if !errors.Is(err, counselor.ErrUnavailable) {
		cs.logger.Error("CHATBOT", "Counselor failed", details)
		return nil, false, apperror.Internal("failed to send message", err)
	}

	cs.logger.Warn("CHATBOT", "AI service unavailable", details)
	if cs.cfg.FailOnUnavailable {
		return nil, false, apperror.ServiceUnavailable("AI service unavailable", err)
	}
	return &counselor.Answer{
		Title:    counselor.Truncate(strings.Join(strings.Fields(content), " "), constant.FallbackTitleLength, "..."),
		Response: constant.FallbackAssistantMessage,
	}, true, nil
}

// assignTitle sets the title only while the session still has the default one.
// Losing that race is not an error; the stored title is returned instead.
func (cs *chatbotService) assignTitle(ctx context.Context, uow unitofwork.UnitOfWork, userId, sessionId uuid.UUID, candidate string) (string, bool, error) {
	candidate = strings.TrimSpace(candidate)
	if candidate != "" && candidate != constant.DefaultSessionTitle {
		candidate = counselor.Truncate(candidate, constant.MaxTitleLength, "")
		updated, err := uow.ChatSessionRepository().UpdateTitleIfMatch(ctx, sessionId, constant.DefaultSessionTitle, candidate)
		if err != nil {
			return "", false, err
		}
		if updated {
			return candidate, true, nil
		}
	}

	session, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: sessionId})
	if err != nil {
		return "", false, err
	}
	if session == nil {
		// Deleted while the reply was being generated.
		return constant.DefaultSessionTitle, false, nil
	}
	return session.Title, false, nil
}

func (cs *chatbotService) sendFailed(step string, sessionId uuid.UUID, err error) error {
	cs.logger.Error("CHATBOT", "Failed to send message", map[string]interface{}{
		"error":           err.Error(),
		"step":            step,
		"chat_session_id": sessionId,
	})
	return apperror.Internal("failed to send message", err)
}

// publish never fails the request; events are best effort.
func (cs *chatbotService) publish(ctx context.Context, evt events.Event) {
	if cs.publisher == nil {
		return
	}
	if err := cs.publisher.Publish(ctx, evt); err != nil {
		cs.logger.Warn("CHATBOT", "Failed to publish event", map[string]interface{}{"error": err.Error(), "type": evt.EventType()})
	}
}
