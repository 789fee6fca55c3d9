package out_http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"outletradar/internal/chat/application/ports/out"
	locdomain "outletradar/internal/location/domain"
	"outletradar/internal/shared/logger"
)

// RemoteBackend реализует ChatBackend поверх HTTP/JSON API внешнего
// чат-сервиса. Таймауты задаются контекстом вызывающего (у координатора
// раздельные бюджеты на создание и отправку), поэтому http.Client
// собственного таймаута не несёт.
type RemoteBackend struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     *logger.Logger
}

// NewRemoteBackend создает клиент удалённого чат-бэкенда
func NewRemoteBackend(baseURL, apiKey string, log *logger.Logger) *RemoteBackend {
	return &RemoteBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{},
		log:     log,
	}
}

type createSessionResponse struct {
	SessionID      string `json:"session_id"`
	WelcomeMessage string `json:"welcome_message,omitempty"`
}

type sendMessageRequest struct {
	Text     string                  `json:"text"`
	Location *locdomain.UserLocation `json:"location,omitempty"`
}

type sendMessageResponse struct {
	ResponseText string `json:"response_text"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// CreateSession выполняет POST /sessions
func (b *RemoteBackend) CreateSession(ctx context.Context) (*out.CreateSessionResult, error) {
	var resp createSessionResponse
	if err := b.do(ctx, http.MethodPost, "/sessions", nil, &resp); err != nil {
		return nil, err
	}
	if resp.SessionID == "" {
		return nil, fmt.Errorf("backend returned empty session_id")
	}
	return &out.CreateSessionResult{
		SessionID:      resp.SessionID,
		WelcomeMessage: resp.WelcomeMessage,
	}, nil
}

// SendMessage выполняет POST /sessions/{id}/messages
func (b *RemoteBackend) SendMessage(ctx context.Context, sessionID, text string, location *locdomain.UserLocation) (string, error) {
	req := sendMessageRequest{Text: text, Location: location}
	var resp sendMessageResponse
	path := fmt.Sprintf("/sessions/%s/messages", sessionID)
	if err := b.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return "", err
	}
	return resp.ResponseText, nil
}

// DeleteSession выполняет DELETE /sessions/{id}
func (b *RemoteBackend) DeleteSession(ctx context.Context, sessionID string) error {
	return b.do(ctx, http.MethodDelete, "/sessions/"+sessionID, nil, nil)
}

// do выполняет JSON запрос/ответ к бэкенду
func (b *RemoteBackend) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr errorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("backend %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}

	if result != nil {
		if err := json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
