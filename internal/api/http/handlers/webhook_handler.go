package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/intake-service/internal/chat"
	"github.com/spec-kit/intake-service/internal/domain"
	"github.com/spec-kit/intake-service/internal/engine"
)

// PromptSender renders engine prompts back to the chat.
type PromptSender interface {
	SendPrompt(ctx context.Context, chatID int64, prompt engine.Prompt) error
}

// FileAccess resolves and downloads transport-hosted files.
type FileAccess interface {
	ResolveFileURL(ctx context.Context, fileID string) (string, error)
	DownloadFile(ctx context.Context, url string) ([]byte, error)
}

// ReferenceFetcher captures attachment references without moving bytes.
type ReferenceFetcher interface {
	FetchReference(ctx context.Context, fileID string, width, height int, byteSize int64) (domain.PhotoRef, error)
}

// WebhookHandler receives chat transport updates, normalizes them into engine
// events and renders the resulting prompt. All conversation logic lives in
// the engine; this handler only translates.
type WebhookHandler struct {
	engine   *engine.Engine
	sender   PromptSender
	files    FileAccess
	refs     ReferenceFetcher
	redis    *redis.Client
	secret   string
	logger   *zap.Logger
	dedupTTL time.Duration
}

// NewWebhookHandler constructs the handler.
func NewWebhookHandler(eng *engine.Engine, sender PromptSender, files FileAccess, refs ReferenceFetcher, redisClient *redis.Client, secret string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		engine:   eng,
		sender:   sender,
		files:    files,
		refs:     refs,
		redis:    redisClient,
		secret:   secret,
		logger:   logger,
		dedupTTL: 24 * time.Hour,
	}
}

// Handle processes POST /webhook/:secret.
func (h *WebhookHandler) Handle(c *fiber.Ctx) error {
	if h.secret != "" && c.Params("secret") != h.secret {
		return c.SendStatus(fiber.StatusNotFound)
	}

	var update chat.Update
	if err := c.BodyParser(&update); err != nil {
		h.logger.Warn("malformed update", zap.Error(err))
		return c.SendStatus(fiber.StatusOK)
	}

	ctx := c.UserContext()

	if h.isDuplicate(ctx, update.UpdateID) {
		return c.SendStatus(fiber.StatusOK)
	}

	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		h.handleMessage(ctx, update.Message)
	}

	// the transport retries non-2xx deliveries; processing failures are
	// already rendered to the user, so always acknowledge
	return c.SendStatus(fiber.StatusOK)
}

// isDuplicate suppresses redelivered updates. Redis unavailability degrades to
// processing the update rather than dropping it.
func (h *WebhookHandler) isDuplicate(ctx context.Context, updateID int64) bool {
	if h.redis == nil {
		return false
	}
	key := "intake:update:" + strconv.FormatInt(updateID, 10)
	set, err := h.redis.SetNX(ctx, key, 1, h.dedupTTL).Result()
	if err != nil {
		h.logger.Warn("update dedup unavailable", zap.Error(err))
		return false
	}
	return !set
}

func (h *WebhookHandler) handleCallback(ctx context.Context, cb *chat.CallbackQuery) {
	ev := normalizeCallback(cb.Data, domain.Identity(cb.From.ID))
	prompt := h.engine.Dispatch(ctx, ev)
	h.send(ctx, cb.From.ID, prompt)
}

func (h *WebhookHandler) handleMessage(ctx context.Context, msg *chat.Message) {
	if msg.From == nil || msg.Chat.Type != "private" {
		return
	}
	sender := domain.Identity(msg.From.ID)

	var ev engine.Event
	switch {
	case msg.Voice != nil:
		audio, err := h.downloadVoice(ctx, msg.Voice.FileID)
		if err != nil {
			h.logger.Warn("voice download failed", zap.Error(err))
			h.send(ctx, msg.From.ID, engine.Prompt{Text: "❌ Ошибка обработки голосового сообщения. Попробуйте отправить текст."})
			return
		}
		ev = engine.Event{Kind: engine.EventVoice, Sender: sender, Audio: audio}
	case len(msg.Photo) > 0:
		size := msg.LargestPhoto()
		ref, err := h.refs.FetchReference(ctx, size.FileID, size.Width, size.Height, size.FileSize)
		if err != nil {
			h.logger.Warn("photo probe failed", zap.Error(err))
			h.send(ctx, msg.From.ID, engine.Prompt{Text: "❌ Ошибка загрузки фото. Попробуйте ещё раз."})
			return
		}
		ev = engine.Event{Kind: engine.EventAttachPhoto, Sender: sender, Photo: &ref}
	case strings.TrimSpace(msg.Text) == "/start":
		ev = engine.Event{Kind: engine.EventStart, Sender: sender}
	case msg.Text != "":
		ev = engine.Event{Kind: engine.EventText, Sender: sender, Text: msg.Text}
	default:
		ev = engine.Event{Kind: engine.EventUnknown, Sender: sender}
	}

	prompt := h.engine.Dispatch(ctx, ev)
	h.send(ctx, msg.From.ID, prompt)
}

func (h *WebhookHandler) downloadVoice(ctx context.Context, fileID string) ([]byte, error) {
	url, err := h.files.ResolveFileURL(ctx, fileID)
	if err != nil {
		return nil, err
	}
	return h.files.DownloadFile(ctx, url)
}

func (h *WebhookHandler) send(ctx context.Context, chatID int64, prompt engine.Prompt) {
	if prompt.Text == "" {
		return
	}
	if err := h.sender.SendPrompt(ctx, chatID, prompt); err != nil {
		h.logger.Error("prompt delivery failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// normalizeCallback maps button payloads onto engine events.
func normalizeCallback(data string, sender domain.Identity) engine.Event {
	switch data {
	case engine.CallbackStartSubmission:
		return engine.Event{Kind: engine.EventStartSubmission, Sender: sender}
	case engine.CallbackSendAnother:
		return engine.Event{Kind: engine.EventSendAnother, Sender: sender}
	case engine.CallbackSkipPhotos:
		return engine.Event{Kind: engine.EventSkipPhotos, Sender: sender}
	case engine.CallbackFinishPhotos:
		return engine.Event{Kind: engine.EventFinishPhotos, Sender: sender}
	case engine.CallbackSave:
		return engine.Event{Kind: engine.EventSave, Sender: sender}
	case engine.CallbackRestart:
		return engine.Event{Kind: engine.EventRestart, Sender: sender}
	case engine.CallbackCancel, engine.CallbackBackToMain:
		return engine.Event{Kind: engine.EventCancel, Sender: sender}
	case engine.CallbackEmployeesMenu:
		return engine.Event{Kind: engine.EventEmployeesMenu, Sender: sender}
	case engine.CallbackAddEmployee:
		return engine.Event{Kind: engine.EventAddEmployee, Sender: sender}
	case engine.CallbackListEmployees:
		return engine.Event{Kind: engine.EventListEmployees, Sender: sender}
	case engine.CallbackDeleteEmployee:
		return engine.Event{Kind: engine.EventDeleteEmployee, Sender: sender}
	case engine.CallbackConfirmDelete:
		return engine.Event{Kind: engine.EventConfirmDelete, Sender: sender}
	case engine.CallbackCancelDelete:
		return engine.Event{Kind: engine.EventAbortDelete, Sender: sender}
	}

	if label, ok := strings.CutPrefix(data, engine.CallbackCategoryPrefix); ok {
		return engine.Event{Kind: engine.EventSelectCategory, Sender: sender, Label: label}
	}
	if raw, ok := strings.CutPrefix(data, engine.CallbackDeletePrefix); ok {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return engine.Event{Kind: engine.EventChooseDeleteTarget, Sender: sender, TargetID: id}
		}
	}
	return engine.Event{Kind: engine.EventUnknown, Sender: sender}
}
