package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/intake-service/internal/domain"
	"github.com/spec-kit/intake-service/internal/events"
	"github.com/spec-kit/intake-service/internal/repository"
	apperrors "github.com/spec-kit/intake-service/pkg/util"
)

// RosterService coordinates allow-list management.
type RosterService struct {
	roster      repository.RosterRepository
	submissions repository.SubmissionRepository
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// RosterDependencies bundles collaborators for the roster service.
type RosterDependencies struct {
	RosterRepo     repository.RosterRepository
	SubmissionRepo repository.SubmissionRepository
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// NewRosterService constructs the service.
func NewRosterService(deps RosterDependencies) *RosterService {
	return &RosterService{
		roster:      deps.RosterRepo,
		submissions: deps.SubmissionRepo,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
	}
}

// Add registers an employee. Re-adding an identity whose entry was soft-deleted
// reactivates the existing row and refreshes the name; an identity that is
// already active is a conflict and nothing is mutated.
func (s *RosterService) Add(ctx context.Context, identity domain.Identity, name string) (*domain.RosterEntry, error) {
	name = strings.TrimSpace(name)
	if len([]rune(name)) < 2 {
		return nil, apperrors.NewValidationError("name too short", map[string]any{"name": name})
	}

	existing, err := s.roster.GetByTelegramID(ctx, identity)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewExternalServiceError("roster store", err)
	}

	if existing != nil {
		if existing.Active {
			return nil, apperrors.NewConflict("employee already on the roster", map[string]any{"telegram_id": identity})
		}
		existing.Name = name
		existing.Active = true
		if err := s.roster.Update(ctx, existing); err != nil {
			return nil, apperrors.NewExternalServiceError("roster store", err)
		}
		s.logger.Info("roster entry reactivated", zap.Int64("telegram_id", int64(identity)), zap.String("name", name))
		s.publish(ctx, events.EventRosterReactivated, existing)
		return existing, nil
	}

	entry := &domain.RosterEntry{TelegramID: identity, Name: name, Active: true}
	if err := s.roster.Create(ctx, entry); err != nil {
		return nil, apperrors.NewExternalServiceError("roster store", err)
	}
	s.logger.Info("roster entry added", zap.Int64("telegram_id", int64(identity)), zap.String("name", name))
	s.publish(ctx, events.EventRosterAdded, entry)
	return entry, nil
}

// List returns the active roster ordered by name.
func (s *RosterService) List(ctx context.Context) ([]domain.RosterEntry, error) {
	entries, err := s.roster.ListActive(ctx)
	if err != nil {
		return nil, apperrors.NewExternalServiceError("roster store", err)
	}
	return entries, nil
}

// Deactivate soft-deletes an entry; submissions and the row itself survive.
func (s *RosterService) Deactivate(ctx context.Context, id int64) error {
	if err := s.roster.Deactivate(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("roster entry", map[string]any{"id": id})
		}
		return apperrors.NewExternalServiceError("roster store", err)
	}
	s.logger.Info("roster entry deactivated", zap.Int64("id", id))
	s.publish(ctx, events.EventRosterDeactivated, &domain.RosterEntry{ID: id})
	return nil
}

// Purge erases an entry permanently, cascading its submissions.
func (s *RosterService) Purge(ctx context.Context, id int64) error {
	if err := s.roster.Purge(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("roster entry", map[string]any{"id": id})
		}
		return apperrors.NewExternalServiceError("roster store", err)
	}
	s.logger.Info("roster entry purged", zap.Int64("id", id))
	s.publish(ctx, events.EventRosterPurged, &domain.RosterEntry{ID: id})
	return nil
}

// Submissions returns an employee's latest submissions.
func (s *RosterService) Submissions(ctx context.Context, rosterEntryID int64, limit int) ([]domain.Submission, error) {
	if _, err := s.roster.GetByID(ctx, rosterEntryID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("roster entry", map[string]any{"id": rosterEntryID})
		}
		return nil, apperrors.NewExternalServiceError("roster store", err)
	}
	subs, err := s.submissions.ListByRosterEntry(ctx, rosterEntryID, limit)
	if err != nil {
		return nil, apperrors.NewExternalServiceError("record store", err)
	}
	return subs, nil
}

// Stats reports roster size and total recorded submissions.
func (s *RosterService) Stats(ctx context.Context) (activeEmployees int, totalSubmissions int64, err error) {
	entries, err := s.roster.ListActive(ctx)
	if err != nil {
		return 0, 0, apperrors.NewExternalServiceError("roster store", err)
	}
	total, err := s.submissions.CountAll(ctx)
	if err != nil {
		return 0, 0, apperrors.NewExternalServiceError("record store", err)
	}
	return len(entries), total, nil
}

func (s *RosterService) publish(ctx context.Context, eventType events.EventType, entry *domain.RosterEntry) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Payload: events.RosterChangedPayload{
			RosterEntryID: entry.ID,
			TelegramID:    int64(entry.TelegramID),
			Name:          entry.Name,
		},
	})
}
