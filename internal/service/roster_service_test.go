package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/intake-service/internal/domain"
	apperrors "github.com/spec-kit/intake-service/pkg/util"
)

// fakeRosterRepo is an in-memory RosterRepository sufficient for service tests.
type fakeRosterRepo struct {
	nextID  int64
	entries map[int64]*domain.RosterEntry
}

func newFakeRosterRepo() *fakeRosterRepo {
	return &fakeRosterRepo{nextID: 1, entries: make(map[int64]*domain.RosterEntry)}
}

func (f *fakeRosterRepo) Create(_ context.Context, entry *domain.RosterEntry) error {
	entry.ID = f.nextID
	f.nextID++
	copied := *entry
	f.entries[entry.ID] = &copied
	return nil
}

func (f *fakeRosterRepo) Update(_ context.Context, entry *domain.RosterEntry) error {
	if _, ok := f.entries[entry.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *entry
	f.entries[entry.ID] = &copied
	return nil
}

func (f *fakeRosterRepo) GetByID(_ context.Context, id int64) (*domain.RosterEntry, error) {
	entry, ok := f.entries[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *entry
	return &copied, nil
}

func (f *fakeRosterRepo) GetByTelegramID(_ context.Context, identity domain.Identity) (*domain.RosterEntry, error) {
	for _, entry := range f.entries {
		if entry.TelegramID == identity {
			copied := *entry
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeRosterRepo) GetActiveByTelegramID(ctx context.Context, identity domain.Identity) (*domain.RosterEntry, error) {
	entry, err := f.GetByTelegramID(ctx, identity)
	if err != nil {
		return nil, err
	}
	if !entry.Active {
		return nil, pgx.ErrNoRows
	}
	return entry, nil
}

func (f *fakeRosterRepo) ListActive(context.Context) ([]domain.RosterEntry, error) {
	var out []domain.RosterEntry
	for _, entry := range f.entries {
		if entry.Active {
			out = append(out, *entry)
		}
	}
	return out, nil
}

func (f *fakeRosterRepo) Deactivate(_ context.Context, id int64) error {
	entry, ok := f.entries[id]
	if !ok {
		return pgx.ErrNoRows
	}
	entry.Active = false
	return nil
}

func (f *fakeRosterRepo) Purge(_ context.Context, id int64) error {
	if _, ok := f.entries[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.entries, id)
	return nil
}

type fakeSubmissionRepo struct {
	byEntry map[int64][]domain.Submission
}

func (f *fakeSubmissionRepo) Create(_ context.Context, sub *domain.Submission) error {
	if f.byEntry == nil {
		f.byEntry = make(map[int64][]domain.Submission)
	}
	sub.ID = int64(len(f.byEntry[sub.RosterEntryID]) + 1)
	f.byEntry[sub.RosterEntryID] = append(f.byEntry[sub.RosterEntryID], *sub)
	return nil
}

func (f *fakeSubmissionRepo) ListByRosterEntry(_ context.Context, rosterEntryID int64, _ int) ([]domain.Submission, error) {
	return f.byEntry[rosterEntryID], nil
}

func (f *fakeSubmissionRepo) CountAll(context.Context) (int64, error) {
	var total int64
	for _, subs := range f.byEntry {
		total += int64(len(subs))
	}
	return total, nil
}

func newTestRosterService(repo *fakeRosterRepo) *RosterService {
	return NewRosterService(RosterDependencies{
		RosterRepo:     repo,
		SubmissionRepo: &fakeSubmissionRepo{},
		Logger:         zap.NewNop(),
	})
}

func TestAddNewEmployee(t *testing.T) {
	repo := newFakeRosterRepo()
	svc := newTestRosterService(repo)

	entry, err := svc.Add(context.Background(), 2000, "  Мария Иванова  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Name != "Мария Иванова" {
		t.Errorf("name not trimmed: %q", entry.Name)
	}
	if !entry.Active {
		t.Error("new entry must be active")
	}
}

func TestAddRejectsShortName(t *testing.T) {
	svc := newTestRosterService(newFakeRosterRepo())

	_, err := svc.Add(context.Background(), 2000, " Я ")
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION_FAILED" {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddActiveDuplicateConflicts(t *testing.T) {
	repo := newFakeRosterRepo()
	svc := newTestRosterService(repo)

	if _, err := svc.Add(context.Background(), 2000, "Мария Иванова"); err != nil {
		t.Fatalf("seed add failed: %v", err)
	}

	_, err := svc.Add(context.Background(), 2000, "Другое Имя")
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "CONFLICT" {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAddReactivatesDeactivatedEntry(t *testing.T) {
	repo := newFakeRosterRepo()
	svc := newTestRosterService(repo)

	first, err := svc.Add(context.Background(), 2000, "Мария Иванова")
	if err != nil {
		t.Fatalf("seed add failed: %v", err)
	}
	if err := svc.Deactivate(context.Background(), first.ID); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}

	second, err := svc.Add(context.Background(), 2000, "Мария Петрова")
	if err != nil {
		t.Fatalf("re-add failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("re-add must reuse the row: %d vs %d", second.ID, first.ID)
	}
	if !second.Active || second.Name != "Мария Петрова" {
		t.Fatalf("entry = %+v", second)
	}

	active, err := repo.ListActive(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected a single active entry, got %d", len(active))
	}
}

func TestDeactivateMissingEntry(t *testing.T) {
	svc := newTestRosterService(newFakeRosterRepo())

	err := svc.Deactivate(context.Background(), 42)
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "NOT_FOUND" {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSubmissionsForUnknownEntry(t *testing.T) {
	svc := newTestRosterService(newFakeRosterRepo())

	_, err := svc.Submissions(context.Background(), 42, 10)
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "NOT_FOUND" {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStatsCountsActiveAndSubmissions(t *testing.T) {
	rosterRepo := newFakeRosterRepo()
	subRepo := &fakeSubmissionRepo{}
	svc := NewRosterService(RosterDependencies{
		RosterRepo:     rosterRepo,
		SubmissionRepo: subRepo,
		Logger:         zap.NewNop(),
	})

	entry, err := svc.Add(context.Background(), 2000, "Мария Иванова")
	if err != nil {
		t.Fatalf("seed add failed: %v", err)
	}
	if err := subRepo.Create(context.Background(), &domain.Submission{RosterEntryID: entry.ID}); err != nil {
		t.Fatalf("seed submission failed: %v", err)
	}

	active, total, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if active != 1 || total != 1 {
		t.Fatalf("stats = %d active, %d submissions", active, total)
	}
}

func TestPurgeRemovesEntry(t *testing.T) {
	repo := newFakeRosterRepo()
	svc := newTestRosterService(repo)

	entry, err := svc.Add(context.Background(), 2000, "Мария Иванова")
	if err != nil {
		t.Fatalf("seed add failed: %v", err)
	}
	if err := svc.Purge(context.Background(), entry.ID); err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if _, err := repo.GetByID(context.Background(), entry.ID); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatal("purged entry must be gone")
	}
}
