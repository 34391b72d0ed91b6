package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go-chat/backend/models"
)

//go:generate mockgen -destination=mock_ai/mock_client.go go-chat/backend/ai Client

// Client 是 AI 聊天夥伴的窄介面：吃聊天記錄、回一個字串。
// 引擎只消費回傳的字串，AI 服務本身不參與聊天室狀態機。
type Client interface {
	Reply(ctx context.Context, history []*models.Message) (string, error)
}

// maxHistoryMessages 是單次請求最多帶上的歷史訊息數
const maxHistoryMessages = 30

// HTTPClient 透過 OpenAI 相容的 chat completions API 產生回覆
type HTTPClient struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

// NewHTTPClient 建立 AI HTTP 客戶端
func NewHTTPClient(baseURL, apiKey, model string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Reply 把聊天記錄轉成對話格式送給模型，回傳模型的回覆文字
func (c *HTTPClient) Reply(ctx context.Context, history []*models.Message) (string, error) {
	msgs := []chatMessage{{
		Role:    "system",
		Content: "你是聊天室裡的 AI 夥伴，請根據對話脈絡用簡短自然的語氣回覆。",
	}}

	start := 0
	if len(history) > maxHistoryMessages {
		start = len(history) - maxHistoryMessages
	}
	for _, msg := range history[start:] {
		if msg.Type != models.MessageTypeNormal && msg.Type != models.MessageTypeAI {
			continue
		}
		role := "user"
		content := msg.SenderName + ": " + msg.Content
		if msg.Type == models.MessageTypeAI {
			role = "assistant"
			content = msg.Content
		}
		msgs = append(msgs, chatMessage{Role: role, Content: content})
	}

	body, err := json.Marshal(chatRequest{Model: c.model, Messages: msgs})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ai api returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("ai api returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
