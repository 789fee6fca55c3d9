package out_llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"outletradar/internal/chat/application/ports/out"
	locdomain "outletradar/internal/location/domain"
	"outletradar/internal/shared/logger"
)

const systemPrompt = "You are an assistant for an outlet locator. " +
	"Help visitors find outlets, their addresses, operating hours and " +
	"directions. Answer briefly. If the visitor's coordinates are " +
	"provided, prefer outlets near them."

const welcomeMessage = "Hi! Ask me about outlets near you."

// GeminiBackend реализует ChatBackend поверх Gemini API.
// GenerateContent не хранит состояние, поэтому история диалога ведётся
// локально по sessionID и передаётся целиком с каждым запросом.
type GeminiBackend struct {
	client *genai.Client
	model  string

	mu        sync.Mutex
	histories map[string][]*genai.Content

	log *logger.Logger
}

// NewGeminiBackend создает бэкенд с Gemini API ключом
func NewGeminiBackend(ctx context.Context, apiKey, model string, log *logger.Logger) (*GeminiBackend, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiBackend{
		client:    client,
		model:     model,
		histories: make(map[string][]*genai.Content),
		log:       log,
	}, nil
}

// CreateSession заводит локальную историю диалога. Обращения к API нет —
// сессия материализуется первым сообщением.
func (g *GeminiBackend) CreateSession(ctx context.Context) (*out.CreateSessionResult, error) {
	sessionID := uuid.New().String()

	g.mu.Lock()
	g.histories[sessionID] = nil
	g.mu.Unlock()

	return &out.CreateSessionResult{
		SessionID:      sessionID,
		WelcomeMessage: welcomeMessage,
	}, nil
}

// SendMessage передаёт историю диалога плюс новое сообщение модели.
// Позиция посетителя, если известна, вкладывается в текст как контекст.
func (g *GeminiBackend) SendMessage(ctx context.Context, sessionID, text string, location *locdomain.UserLocation) (string, error) {
	g.mu.Lock()
	history, ok := g.histories[sessionID]
	g.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("unknown session %s", sessionID)
	}

	prompt := text
	if location != nil {
		prompt = fmt.Sprintf("%s\n\n[visitor location: %.4f, %.4f]", text, location.Lat, location.Lng)
	}

	contents := make([]*genai.Content, 0, len(history)+1)
	contents = append(contents, history...)
	userContent := genai.NewContentFromText(prompt, genai.RoleUser)
	contents = append(contents, userContent)

	temp := float32(0.7)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       &temp,
		MaxOutputTokens:   int32(2048),
	}

	res, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	response := res.Text()
	if response == "" {
		return "", fmt.Errorf("model returned empty text")
	}

	g.mu.Lock()
	if _, ok := g.histories[sessionID]; ok {
		g.histories[sessionID] = append(g.histories[sessionID],
			userContent,
			genai.NewContentFromText(response, genai.RoleModel),
		)
	}
	g.mu.Unlock()

	return response, nil
}

// DeleteSession удаляет локальную историю диалога
func (g *GeminiBackend) DeleteSession(ctx context.Context, sessionID string) error {
	g.mu.Lock()
	delete(g.histories, sessionID)
	g.mu.Unlock()
	return nil
}
