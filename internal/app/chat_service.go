package app

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"aimsite/internal/ai"
	"aimsite/internal/model"
	"aimsite/internal/repository"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrMessageEmpty    = errors.New("message content is empty")
	ErrLLMConfig       = errors.New("llm config is invalid")
	ErrMessageEnqueue  = errors.New("message enqueue failed")
)

// ContextProvider supplies the grounding block injected into the assistant
// prompt. An empty string means "answer without document grounding".
type ContextProvider interface {
	SearchWithContext(ctx context.Context, query string, contextLimit int, docType string) (string, error)
}

// ChatService runs the sign-in-gated assistant: sessions, history, and
// document-grounded completions.
type ChatService struct {
	sessionRepo  *repository.SessionRepository
	messageRepo  *repository.MessageRepository
	publisher    AsyncMessagePublisher
	historyCache HistoryCache
	retriever    ContextProvider
	llmClient    *ai.OpenAICompatibleClient
	llm          ai.ChatConfig
	maxContext   int
	contextTopK  int
}

type AsyncMessagePublisher interface {
	Publish(ctx context.Context, msg model.Message) error
}

type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID uint) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, sessionID uint, messages []model.Message) error
	DeleteHistory(ctx context.Context, sessionID uint) error
	MarkDirty(ctx context.Context, sessionID uint) error
	IsDirty(ctx context.Context, sessionID uint) (bool, error)
}

type CreateSessionInput struct {
	UserID uint
	Title  string
}

type SendMessageInput struct {
	UserID    uint
	SessionID uint
	Content   string
}

type SendMessageResult struct {
	Messages []model.Message `json:"messages"`
	Grounded bool            `json:"grounded"`
}

func NewChatService(
	sessionRepo *repository.SessionRepository,
	messageRepo *repository.MessageRepository,
	publisher AsyncMessagePublisher,
	historyCache HistoryCache,
	retriever ContextProvider,
	llmClient *ai.OpenAICompatibleClient,
	llm ai.ChatConfig,
	maxContext, contextTopK int,
) *ChatService {
	if maxContext <= 0 {
		maxContext = 20
	}
	if contextTopK <= 0 {
		contextTopK = defaultTopK
	}
	return &ChatService{
		sessionRepo:  sessionRepo,
		messageRepo:  messageRepo,
		publisher:    publisher,
		historyCache: historyCache,
		retriever:    retriever,
		llmClient:    llmClient,
		llm:          llm,
		maxContext:   maxContext,
		contextTopK:  contextTopK,
	}
}

func (s *ChatService) CreateSession(input CreateSessionInput) (*model.Session, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = "New Chat"
	}

	session := &model.Session{
		UserID: input.UserID,
		Title:  title,
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *ChatService) ListSessions(userID uint) ([]model.Session, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.sessionRepo.ListByUserID(userID)
}

func (s *ChatService) DeleteSession(userID, sessionID uint) error {
	if userID == 0 || sessionID == 0 {
		return ErrInvalidInput
	}
	session, err := s.sessionRepo.GetByIDAndUserID(sessionID, userID)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}
	if err := s.messageRepo.DeleteBySessionID(sessionID); err != nil {
		return err
	}
	if err := s.sessionRepo.DeleteByIDAndUserID(sessionID, userID); err != nil {
		return err
	}
	if s.historyCache != nil {
		_ = s.historyCache.DeleteHistory(context.Background(), sessionID)
	}
	return nil
}

// SendMessage answers one user turn without streaming. The reply is grounded
// in retrieved document context when retrieval finds anything relevant.
func (s *ChatService) SendMessage(ctx context.Context, input SendMessageInput) (*SendMessageResult, error) {
	if input.UserID == 0 || input.SessionID == 0 {
		return nil, ErrInvalidInput
	}

	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrMessageEmpty
	}

	session, err := s.sessionRepo.GetByIDAndUserID(input.SessionID, input.UserID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if s.llm.BaseURL == "" || s.llm.Model == "" {
		return nil, ErrLLMConfig
	}

	grounding := s.retrieveGrounding(ctx, content)
	promptMessages, err := s.buildPromptMessages(input.SessionID, content, grounding)
	if err != nil {
		return nil, err
	}

	userMessage := &model.Message{
		SessionID: input.SessionID,
		UserID:    input.UserID,
		Role:      "user",
		Content:   content,
		CreatedAt: time.Now(),
	}
	if s.publisher == nil {
		return nil, ErrMessageEnqueue
	}
	if s.historyCache != nil {
		_ = s.historyCache.MarkDirty(ctx, input.SessionID)
		_ = s.historyCache.DeleteHistory(ctx, input.SessionID)
	}
	if err := s.publisher.Publish(ctx, *userMessage); err != nil {
		return nil, ErrMessageEnqueue
	}

	assistantContent, err := s.llmClient.Complete(ctx, s.llm, promptMessages)
	if err != nil {
		return nil, err
	}
	assistantContent = strings.TrimSpace(assistantContent)
	if assistantContent == "" {
		assistantContent = "The model returned an empty response."
	}

	assistantMessage := &model.Message{
		SessionID: input.SessionID,
		UserID:    input.UserID,
		Role:      "assistant",
		Content:   assistantContent,
		CreatedAt: time.Now(),
	}
	if err := s.publisher.Publish(ctx, *assistantMessage); err != nil {
		return nil, ErrMessageEnqueue
	}

	return &SendMessageResult{
		Messages: []model.Message{*userMessage, *assistantMessage},
		Grounded: grounding != "",
	}, nil
}

// StreamMessage is SendMessage with SSE-style chunk delivery via onChunk.
func (s *ChatService) StreamMessage(
	ctx context.Context,
	input SendMessageInput,
	onChunk func(string) error,
) (string, error) {
	if input.UserID == 0 || input.SessionID == 0 {
		return "", ErrInvalidInput
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return "", ErrMessageEmpty
	}

	session, err := s.sessionRepo.GetByIDAndUserID(input.SessionID, input.UserID)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", ErrSessionNotFound
	}

	if s.llm.BaseURL == "" || s.llm.Model == "" {
		return "", ErrLLMConfig
	}

	grounding := s.retrieveGrounding(ctx, content)
	promptMessages, err := s.buildPromptMessages(input.SessionID, content, grounding)
	if err != nil {
		return "", err
	}

	userMessage := &model.Message{
		SessionID: input.SessionID,
		UserID:    input.UserID,
		Role:      "user",
		Content:   content,
		CreatedAt: time.Now(),
	}
	if s.publisher == nil {
		return "", ErrMessageEnqueue
	}
	if s.historyCache != nil {
		_ = s.historyCache.MarkDirty(ctx, input.SessionID)
		_ = s.historyCache.DeleteHistory(ctx, input.SessionID)
	}
	if err := s.publisher.Publish(ctx, *userMessage); err != nil {
		return "", ErrMessageEnqueue
	}

	full, err := s.llmClient.StreamComplete(ctx, s.llm, promptMessages, onChunk)
	if err != nil {
		return "", err
	}
	full = strings.TrimSpace(full)
	if full == "" {
		full = "The model returned an empty response."
	}

	assistantMessage := &model.Message{
		SessionID: input.SessionID,
		UserID:    input.UserID,
		Role:      "assistant",
		Content:   full,
		CreatedAt: time.Now(),
	}
	if err := s.publisher.Publish(ctx, *assistantMessage); err != nil {
		return "", ErrMessageEnqueue
	}

	return full, nil
}

func (s *ChatService) GetHistory(userID, sessionID uint, limit int) ([]model.Message, error) {
	if userID == 0 || sessionID == 0 {
		return nil, ErrInvalidInput
	}

	session, err := s.sessionRepo.GetByIDAndUserID(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	ctx := context.Background()
	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, sessionID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, sessionID); cacheErr == nil && hit {
				return trimMessages(cached, limit), nil
			}
		}
	}

	messages, err := s.messageRepo.ListBySessionID(sessionID, limit)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, sessionID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, sessionID, messages)
		}
	}
	return messages, nil
}

// retrieveGrounding fetches document context for the user's question. A
// retrieval failure degrades to an ungrounded answer rather than blocking
// the chat.
func (s *ChatService) retrieveGrounding(ctx context.Context, question string) string {
	if s.retriever == nil {
		return ""
	}
	grounding, err := s.retriever.SearchWithContext(ctx, question, s.contextTopK, "")
	if err != nil {
		log.Printf("retrieval failed, answering without grounding: %v", err)
		return ""
	}
	return grounding
}

func trimMessages(messages []model.Message, limit int) []model.Message {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[len(messages)-limit:]
}

func (s *ChatService) buildPromptMessages(sessionID uint, currentUserInput, grounding string) ([]ai.ChatMessage, error) {
	recent, err := s.messageRepo.ListRecentBySessionID(sessionID, s.maxContext)
	if err != nil {
		return nil, err
	}

	system := "You are the AIM Framework site assistant. Be concise and helpful."
	if grounding != "" {
		system += " Ground your answers in the excerpts below; if they do not cover the question, say so.\n\n" + grounding
	}

	messages := make([]ai.ChatMessage, 0, len(recent)+2)
	messages = append(messages, ai.ChatMessage{Role: "system", Content: system})
	for _, item := range recent {
		role := item.Role
		if role == "" {
			role = "user"
		}
		messages = append(messages, ai.ChatMessage{
			Role:    role,
			Content: item.Content,
		})
	}
	if strings.TrimSpace(currentUserInput) != "" {
		messages = append(messages, ai.ChatMessage{
			Role:    "user",
			Content: strings.TrimSpace(currentUserInput),
		})
	}
	return messages, nil
}
