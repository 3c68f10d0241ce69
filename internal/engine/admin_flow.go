package engine

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/intake-service/internal/domain"
	apperrors "github.com/spec-kit/intake-service/pkg/util"
)

// adminInterrupt handles the administrator's menu events. Like cancel, these
// are recognized regardless of the current state: pressing a menu button
// abandons whatever flow was underway.
func (e *Engine) adminInterrupt(ctx context.Context, entry *sessionEntry, ev Event) (Prompt, bool) {
	switch ev.Kind {
	case EventEmployeesMenu:
		entry.session = nil
		return employeesMenuPrompt(), true
	case EventAddEmployee:
		entry.session = &Session{Identity: ev.Sender, State: StateEnteringEmployeeID}
		return Prompt{Text: msgAddEmployeeID, Options: [][]Option{row(btnBackToMain, CallbackBackToMain)}}, true
	case EventListEmployees:
		entry.session = nil
		entries, err := e.rosterMgr.List(ctx)
		if err != nil {
			e.logger.Error("roster list failed", zap.Error(err))
			return Prompt{Text: msgDeleteFailed}, true
		}
		return employeeListPrompt(entries), true
	case EventDeleteEmployee:
		entry.session = nil
		entries, err := e.rosterMgr.List(ctx)
		if err != nil {
			e.logger.Error("roster list failed", zap.Error(err))
			return Prompt{Text: msgDeleteFailed}, true
		}
		return deleteTargetsPrompt(entries), true
	case EventChooseDeleteTarget:
		entries, err := e.rosterMgr.List(ctx)
		if err != nil {
			e.logger.Error("roster list failed", zap.Error(err))
			return Prompt{Text: msgDeleteFailed}, true
		}
		for _, candidate := range entries {
			if candidate.ID == ev.TargetID {
				entry.session = &Session{
					Identity:        ev.Sender,
					State:           StateConfirmingDelete,
					PendingDeleteID: candidate.ID,
				}
				return confirmDeletePrompt(candidate.Name), true
			}
		}
		return Prompt{Text: "❌ Сотрудник не найден", Options: [][]Option{row(btnBackToMain, CallbackBackToMain)}}, true
	}
	return Prompt{}, false
}

// handleAdminState processes text input inside the roster flows.
func (e *Engine) handleAdminState(ctx context.Context, entry *sessionEntry, ev Event, role domain.Role) Prompt {
	if role != domain.RoleAdministrator {
		// an employee can only land here through a stale session; drop it
		entry.session = nil
		return mainMenuPrompt(role)
	}

	session := entry.session
	switch session.State {
	case StateEnteringEmployeeID:
		if ev.Kind != EventText {
			return Prompt{Text: msgAddEmployeeID}
		}
		id, err := strconv.ParseInt(strings.TrimSpace(ev.Text), 10, 64)
		if err != nil {
			return Prompt{Text: msgAddEmployeeBad}
		}
		if _, err := e.roster.GetActiveByTelegramID(ctx, domain.Identity(id)); err == nil {
			return Prompt{Text: msgAddEmployeeDup}
		} else if !errors.Is(err, pgx.ErrNoRows) {
			e.logger.Error("roster lookup failed", zap.Error(err))
			return Prompt{Text: msgAddEmployeeBad}
		}
		session.PendingEmployeeID = domain.Identity(id)
		session.State = StateEnteringEmployeeName
		return Prompt{Text: msgAddName}

	case StateEnteringEmployeeName:
		if ev.Kind != EventText {
			return Prompt{Text: msgAddName}
		}
		_, err := e.rosterMgr.Add(ctx, session.PendingEmployeeID, ev.Text)
		if err != nil {
			var domainErr *apperrors.DomainError
			if errors.As(err, &domainErr) && domainErr.Code == "VALIDATION_FAILED" {
				return Prompt{Text: msgNameTooShort}
			}
			e.logger.Error("roster add failed", zap.Error(err))
			entry.session = nil
			return Prompt{Text: msgAddEmployeeDup, Options: [][]Option{row(btnBackToMain, CallbackBackToMain)}}
		}
		entry.session = nil
		return Prompt{Text: msgEmployeeAdded, Options: [][]Option{row(btnBackToMain, CallbackBackToMain)}}

	case StateConfirmingDelete:
		switch ev.Kind {
		case EventConfirmDelete:
			id := session.PendingDeleteID
			entry.session = nil
			if err := e.rosterMgr.Deactivate(ctx, id); err != nil {
				e.logger.Error("roster deactivate failed", zap.Int64("id", id), zap.Error(err))
				return Prompt{Text: msgDeleteFailed, Options: [][]Option{row(btnBackToMain, CallbackBackToMain)}}
			}
			return Prompt{Text: msgEmployeeGone, Options: [][]Option{row(btnBackToMain, CallbackBackToMain)}}
		case EventAbortDelete:
			entry.session = nil
			return employeesMenuPrompt()
		default:
			return confirmDeletePrompt("")
		}
	}

	entry.session = nil
	return mainMenuPrompt(role)
}
