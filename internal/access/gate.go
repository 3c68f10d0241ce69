package access

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/intake-service/internal/domain"
)

// RosterLookup is the narrow roster view the gate depends on.
type RosterLookup interface {
	GetActiveByTelegramID(ctx context.Context, identity domain.Identity) (*domain.RosterEntry, error)
}

// Gate decides whether an identity may use the system. The administrator check
// is a configured-singleton equality; everyone else needs an active roster
// entry. The check sits on the critical path of every inbound event, so it
// stays a single indexed lookup with no caching.
type Gate struct {
	adminID domain.Identity
	roster  RosterLookup
}

// NewGate constructs the gate.
func NewGate(adminID int64, roster RosterLookup) *Gate {
	return &Gate{adminID: domain.Identity(adminID), roster: roster}
}

// Authorize classifies the caller.
func (g *Gate) Authorize(ctx context.Context, identity domain.Identity) (domain.Authorization, error) {
	if identity == g.adminID {
		return domain.Authorization{Role: domain.RoleAdministrator}, nil
	}

	entry, err := g.roster.GetActiveByTelegramID(ctx, identity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Authorization{Role: domain.RoleUnauthorized}, nil
		}
		return domain.Authorization{Role: domain.RoleUnauthorized}, err
	}
	return domain.Authorization{Role: domain.RoleEmployee, EmployeeName: entry.Name}, nil
}
