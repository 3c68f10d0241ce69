package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/intake-service/internal/api/dto"
	"github.com/spec-kit/intake-service/internal/auth"
	"github.com/spec-kit/intake-service/internal/domain"
	"github.com/spec-kit/intake-service/internal/service"
	apperrors "github.com/spec-kit/intake-service/pkg/util"
)

// RosterHandler exposes the allow-list over the admin REST surface.
type RosterHandler struct {
	roster       *service.RosterService
	tokens       *auth.TokenManager
	passwordHash string
	logger       *zap.Logger
}

// NewRosterHandler returns a new handler instance.
func NewRosterHandler(roster *service.RosterService, tokens *auth.TokenManager, passwordHash string, logger *zap.Logger) *RosterHandler {
	return &RosterHandler{roster: roster, tokens: tokens, passwordHash: passwordHash, logger: logger}
}

// Login exchanges the admin password for a bearer token.
func (h *RosterHandler) Login(c *fiber.Ctx) error {
	var req dto.AdminLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	if h.passwordHash == "" {
		return apperrors.NewUnauthorized("admin API disabled")
	}
	if err := auth.ComparePassword(h.passwordHash, req.Password); err != nil {
		h.logger.Warn("admin login rejected", zap.String("ip", c.IP()))
		return apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := h.tokens.GenerateToken()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(dto.AuthResponse{Token: token, ExpiresAt: expiresAt})
}

// List returns the active roster.
func (h *RosterHandler) List(c *fiber.Ctx) error {
	entries, err := h.roster.List(c.UserContext())
	if err != nil {
		return err
	}

	out := make([]dto.RosterEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toRosterResponse(&e))
	}
	return c.JSON(fiber.Map{"roster": out})
}

// Add registers (or reactivates) an employee.
func (h *RosterHandler) Add(c *fiber.Ctx) error {
	var req dto.AddRosterEntryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	if req.TelegramID <= 0 {
		return apperrors.NewValidationError("telegram_id must be positive", map[string]any{"telegram_id": req.TelegramID})
	}

	entry, err := h.roster.Add(c.UserContext(), domain.Identity(req.TelegramID), req.Name)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toRosterResponse(entry))
}

// Submissions returns an employee's latest submissions.
func (h *RosterHandler) Submissions(c *fiber.Ctx) error {
	id, err := parseEntryID(c)
	if err != nil {
		return err
	}
	limit := c.QueryInt("limit", 20)

	subs, err := h.roster.Submissions(c.UserContext(), id, limit)
	if err != nil {
		return err
	}

	out := make([]dto.SubmissionResponse, 0, len(subs))
	for _, sub := range subs {
		out = append(out, dto.SubmissionResponse{
			ID:          sub.ID,
			ExternalKey: sub.ExternalKey,
			Category:    string(sub.Category),
			MasterName:  sub.MasterName,
			Comment:     sub.Comment,
			PhotoURLs:   sub.PhotoURLs,
			CreatedAt:   sub.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"submissions": out})
}

// Stats reports roster size and total recorded submissions.
func (h *RosterHandler) Stats(c *fiber.Ctx) error {
	active, total, err := h.roster.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.StatsResponse{ActiveEmployees: active, TotalSubmissions: total})
}

// Deactivate soft-deletes a roster entry.
func (h *RosterHandler) Deactivate(c *fiber.Ctx) error {
	id, err := parseEntryID(c)
	if err != nil {
		return err
	}
	if err := h.roster.Deactivate(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Purge erases a roster entry and its submissions.
func (h *RosterHandler) Purge(c *fiber.Ctx) error {
	id, err := parseEntryID(c)
	if err != nil {
		return err
	}
	if err := h.roster.Purge(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func parseEntryID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid roster entry id", map[string]any{"id": c.Params("id")})
	}
	return id, nil
}

func toRosterResponse(e *domain.RosterEntry) dto.RosterEntryResponse {
	return dto.RosterEntryResponse{
		ID:         e.ID,
		TelegramID: int64(e.TelegramID),
		Name:       e.Name,
		Active:     e.Active,
		CreatedAt:  e.CreatedAt,
	}
}
