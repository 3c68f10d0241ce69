package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/intake-service/internal/config"
	"github.com/spec-kit/intake-service/internal/engine"
	apperrors "github.com/spec-kit/intake-service/pkg/util"
)

// Client talks to the chat transport's HTTP API: outbound prompt rendering and
// file access. Nothing in here is conversation logic.
type Client struct {
	http   *http.Client
	cfg    config.BotConfig
	logger *zap.Logger
}

// NewClient constructs the client.
func NewClient(cfg config.BotConfig, logger *zap.Logger) *Client {
	return &Client{
		http:   &http.Client{Timeout: 30 * time.Second},
		cfg:    cfg,
		logger: logger,
	}
}

type inlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type sendMessageRequest struct {
	ChatID      int64  `json:"chat_id"`
	Text        string `json:"text"`
	ReplyMarkup *struct {
		InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
	} `json:"reply_markup,omitempty"`
}

// SendPrompt renders a prompt as a message with inline controls.
func (c *Client) SendPrompt(ctx context.Context, chatID int64, prompt engine.Prompt) error {
	req := sendMessageRequest{ChatID: chatID, Text: prompt.Text}
	if len(prompt.Options) > 0 {
		keyboard := make([][]inlineButton, 0, len(prompt.Options))
		for _, optionRow := range prompt.Options {
			buttons := make([]inlineButton, 0, len(optionRow))
			for _, opt := range optionRow {
				buttons = append(buttons, inlineButton{Text: opt.Label, CallbackData: opt.Data})
			}
			keyboard = append(keyboard, buttons)
		}
		req.ReplyMarkup = &struct {
			InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
		}{InlineKeyboard: keyboard}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.cfg.APIBaseURL, c.cfg.APIToken)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return apperrors.NewExternalServiceError("chat transport", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apperrors.NewExternalServiceError("chat transport",
			fmt.Errorf("sendMessage returned %d", resp.StatusCode))
	}
	return nil
}

type getFileResponse struct {
	OK     bool `json:"ok"`
	Result struct {
		FilePath string `json:"file_path"`
	} `json:"result"`
}

// ResolveFileURL probes file metadata and returns the direct download URL.
// No bytes move here.
func (c *Client) ResolveFileURL(ctx context.Context, fileID string) (string, error) {
	url := fmt.Sprintf("%s/bot%s/getFile?file_id=%s", c.cfg.APIBaseURL, c.cfg.APIToken, fileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", apperrors.NewExternalServiceError("chat transport", err)
	}
	defer resp.Body.Close()

	var parsed getFileResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", apperrors.NewExternalServiceError("chat transport", err)
	}
	if !parsed.OK || parsed.Result.FilePath == "" {
		return "", apperrors.NewExternalServiceError("chat transport",
			fmt.Errorf("getFile failed for %s", fileID))
	}
	return fmt.Sprintf("%s/bot%s/%s", c.cfg.FileBaseURL, c.cfg.APIToken, parsed.Result.FilePath), nil
}

// DownloadFile fetches file bytes from a resolved URL.
func (c *Client) DownloadFile(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.NewExternalServiceError("chat transport", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewExternalServiceError("chat transport",
			fmt.Errorf("file download returned %d", resp.StatusCode))
	}
	return io.ReadAll(resp.Body)
}
