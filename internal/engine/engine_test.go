package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/intake-service/internal/domain"
)

const (
	adminID    = domain.Identity(1000)
	employeeID = domain.Identity(2000)
	strangerID = domain.Identity(3000)
)

type fakeGate struct {
	roles map[domain.Identity]domain.Authorization
	err   error
}

func (g *fakeGate) Authorize(_ context.Context, identity domain.Identity) (domain.Authorization, error) {
	if g.err != nil {
		return domain.Authorization{}, g.err
	}
	if authz, ok := g.roles[identity]; ok {
		return authz, nil
	}
	return domain.Authorization{Role: domain.RoleUnauthorized}, nil
}

type fakeDirectory struct {
	entries map[domain.Identity]*domain.RosterEntry
	err     error
}

func (d *fakeDirectory) GetActiveByTelegramID(_ context.Context, identity domain.Identity) (*domain.RosterEntry, error) {
	if d.err != nil {
		return nil, d.err
	}
	entry, ok := d.entries[identity]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return entry, nil
}

type fakeManager struct {
	listed      []domain.RosterEntry
	added       []string
	deactivated []int64
	addErr      error
}

func (m *fakeManager) Add(_ context.Context, identity domain.Identity, name string) (*domain.RosterEntry, error) {
	if m.addErr != nil {
		return nil, m.addErr
	}
	m.added = append(m.added, name)
	return &domain.RosterEntry{ID: int64(identity), TelegramID: identity, Name: name, Active: true}, nil
}

func (m *fakeManager) List(context.Context) ([]domain.RosterEntry, error) {
	return m.listed, nil
}

func (m *fakeManager) Deactivate(_ context.Context, id int64) error {
	m.deactivated = append(m.deactivated, id)
	return nil
}

type fakeFinalizer struct {
	mu     sync.Mutex
	drafts []Draft
	result FinalizeResult
}

func (f *fakeFinalizer) Finalize(_ context.Context, draft Draft) FinalizeResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drafts = append(f.drafts, draft)
	if f.result.Outcome == "" {
		return FinalizeResult{Outcome: OutcomeFullySaved}
	}
	return f.result
}

type fakeTranscriber struct {
	text string
	err  error
}

func (t *fakeTranscriber) Transcribe(context.Context, []byte) (string, error) {
	return t.text, t.err
}

type engineFixture struct {
	engine      *Engine
	directory   *fakeDirectory
	manager     *fakeManager
	finalizer   *fakeFinalizer
	transcriber *fakeTranscriber
}

func newFixture(t *testing.T) *engineFixture {
	t.Helper()
	directory := &fakeDirectory{entries: map[domain.Identity]*domain.RosterEntry{
		employeeID: {ID: 7, TelegramID: employeeID, Name: "Мария Иванова", Active: true},
	}}
	manager := &fakeManager{}
	finalizer := &fakeFinalizer{}
	transcriber := &fakeTranscriber{}
	gate := &fakeGate{roles: map[domain.Identity]domain.Authorization{
		adminID:    {Role: domain.RoleAdministrator},
		employeeID: {Role: domain.RoleEmployee, EmployeeName: "Мария Иванова"},
	}}
	eng := New(Dependencies{
		Gate:        gate,
		Roster:      directory,
		RosterMgr:   manager,
		Finalizer:   finalizer,
		Transcriber: transcriber,
		MaxPhotos:   3,
	})
	return &engineFixture{engine: eng, directory: directory, manager: manager, finalizer: finalizer, transcriber: transcriber}
}

func dispatch(t *testing.T, eng *Engine, ev Event) Prompt {
	t.Helper()
	return eng.Dispatch(context.Background(), ev)
}

func photoRef(fileID string) *domain.PhotoRef {
	return &domain.PhotoRef{FileID: fileID, Width: 800, Height: 600, SourceURL: "https://files.example/" + fileID}
}

func TestDispatchDeniesUnknownSender(t *testing.T) {
	fx := newFixture(t)

	prompt := dispatch(t, fx.engine, Event{Kind: EventStart, Sender: strangerID})
	if !strings.Contains(prompt.Text, "Доступ запрещён") {
		t.Fatalf("expected denial, got %q", prompt.Text)
	}
	if _, ok := fx.engine.Snapshot(strangerID); ok {
		t.Fatal("denied sender must not get a session")
	}
}

func TestDispatchFailsClosedOnGateError(t *testing.T) {
	fx := newFixture(t)
	eng := New(Dependencies{
		Gate:      &fakeGate{err: errors.New("store down")},
		Roster:    fx.directory,
		Finalizer: fx.finalizer,
	})

	prompt := dispatch(t, eng, Event{Kind: EventStart, Sender: employeeID})
	if !strings.Contains(prompt.Text, "Доступ запрещён") {
		t.Fatalf("gate errors must deny, got %q", prompt.Text)
	}
}

func TestSubmissionHappyPath(t *testing.T) {
	fx := newFixture(t)
	eng := fx.engine

	prompt := dispatch(t, eng, Event{Kind: EventStartSubmission, Sender: employeeID})
	if !strings.Contains(prompt.Text, "Выберите категорию") {
		t.Fatalf("expected category prompt, got %q", prompt.Text)
	}

	prompt = dispatch(t, eng, Event{Kind: EventSelectCategory, Sender: employeeID, Label: string(domain.CategoryPatterns)})
	if !strings.Contains(prompt.Text, "Мария Иванова") {
		t.Fatalf("master name must be derived from the roster, got %q", prompt.Text)
	}

	prompt = dispatch(t, eng, Event{Kind: EventAttachPhoto, Sender: employeeID, Photo: photoRef("p1")})
	if !strings.Contains(prompt.Text, "1/3") {
		t.Fatalf("expected photo counter, got %q", prompt.Text)
	}

	dispatch(t, eng, Event{Kind: EventFinishPhotos, Sender: employeeID})
	prompt = dispatch(t, eng, Event{Kind: EventText, Sender: employeeID, Text: "Лекало рукава не совпадает"})
	if !strings.Contains(prompt.Text, "Лекало рукава не совпадает") {
		t.Fatalf("preview must echo the comment, got %q", prompt.Text)
	}

	prompt = dispatch(t, eng, Event{Kind: EventSave, Sender: employeeID})
	if !strings.Contains(prompt.Text, "успешно сохранено") {
		t.Fatalf("expected saved confirmation, got %q", prompt.Text)
	}
	if _, ok := eng.Snapshot(employeeID); ok {
		t.Fatal("save must destroy the session")
	}

	if len(fx.finalizer.drafts) != 1 {
		t.Fatalf("expected one finalized draft, got %d", len(fx.finalizer.drafts))
	}
	draft := fx.finalizer.drafts[0]
	if draft.Category != domain.CategoryPatterns {
		t.Errorf("draft category = %q", draft.Category)
	}
	if draft.MasterName != "Мария Иванова" {
		t.Errorf("draft master = %q", draft.MasterName)
	}
	if draft.RosterEntryID != 7 {
		t.Errorf("draft roster entry id = %d", draft.RosterEntryID)
	}
	if len(draft.Photos) != 1 || draft.Photos[0].FileID != "p1" {
		t.Errorf("draft photos = %+v", draft.Photos)
	}
}

func TestPhotoCapEnforced(t *testing.T) {
	fx := newFixture(t)
	eng := fx.engine

	dispatch(t, eng, Event{Kind: EventStartSubmission, Sender: employeeID})
	dispatch(t, eng, Event{Kind: EventSelectCategory, Sender: employeeID, Label: string(domain.CategoryOther)})

	for i := 0; i < 3; i++ {
		dispatch(t, eng, Event{Kind: EventAttachPhoto, Sender: employeeID, Photo: photoRef(fmt.Sprintf("p%d", i))})
	}
	prompt := dispatch(t, eng, Event{Kind: EventAttachPhoto, Sender: employeeID, Photo: photoRef("overflow")})
	if !strings.Contains(prompt.Text, "Максимум 3") {
		t.Fatalf("expected cap refusal, got %q", prompt.Text)
	}

	session, ok := eng.Snapshot(employeeID)
	if !ok {
		t.Fatal("session must survive the refusal")
	}
	if len(session.Photos) != 3 {
		t.Fatalf("expected 3 photos retained, got %d", len(session.Photos))
	}
	if session.State != StateUploadingPhotos {
		t.Fatalf("state = %q", session.State)
	}
}

func TestSkipAndFinishGuards(t *testing.T) {
	fx := newFixture(t)
	eng := fx.engine

	dispatch(t, eng, Event{Kind: EventStartSubmission, Sender: employeeID})
	dispatch(t, eng, Event{Kind: EventSelectCategory, Sender: employeeID, Label: string(domain.CategoryOther)})

	// finish with nothing attached keeps asking for photos
	dispatch(t, eng, Event{Kind: EventFinishPhotos, Sender: employeeID})
	if session, _ := eng.Snapshot(employeeID); session.State != StateUploadingPhotos {
		t.Fatalf("finish with zero photos must not advance, state = %q", session.State)
	}

	// once a photo is attached, skip is no longer honored
	dispatch(t, eng, Event{Kind: EventAttachPhoto, Sender: employeeID, Photo: photoRef("p1")})
	dispatch(t, eng, Event{Kind: EventSkipPhotos, Sender: employeeID})
	if session, _ := eng.Snapshot(employeeID); session.State != StateUploadingPhotos {
		t.Fatalf("skip with photos must not advance, state = %q", session.State)
	}

	dispatch(t, eng, Event{Kind: EventFinishPhotos, Sender: employeeID})
	if session, _ := eng.Snapshot(employeeID); session.State != StateEnteringComment {
		t.Fatalf("finish with photos must advance, state = %q", session.State)
	}
}

func TestSkipWithZeroPhotosAdvances(t *testing.T) {
	fx := newFixture(t)
	eng := fx.engine

	dispatch(t, eng, Event{Kind: EventStartSubmission, Sender: employeeID})
	dispatch(t, eng, Event{Kind: EventSelectCategory, Sender: employeeID, Label: string(domain.CategoryTechCards)})
	prompt := dispatch(t, eng, Event{Kind: EventSkipPhotos, Sender: employeeID})
	if !strings.Contains(prompt.Text, "Введите комментарий") {
		t.Fatalf("expected comment prompt, got %q", prompt.Text)
	}
}

func TestCancelDestroysSessionFromAnyState(t *testing.T) {
	fx := newFixture(t)
	eng := fx.engine

	dispatch(t, eng, Event{Kind: EventStartSubmission, Sender: employeeID})
	dispatch(t, eng, Event{Kind: EventSelectCategory, Sender: employeeID, Label: string(domain.CategoryPatterns)})
	dispatch(t, eng, Event{Kind: EventAttachPhoto, Sender: employeeID, Photo: photoRef("p1")})

	prompt := dispatch(t, eng, Event{Kind: EventCancel, Sender: employeeID})
	if !strings.Contains(prompt.Text, "Нажмите кнопку ниже") {
		t.Fatalf("cancel must land on the main menu, got %q", prompt.Text)
	}
	if _, ok := eng.Snapshot(employeeID); ok {
		t.Fatal("cancel must destroy the session")
	}
	if len(fx.finalizer.drafts) != 0 {
		t.Fatal("cancel must not finalize anything")
	}
}

func TestRestartClearsAccumulatedData(t *testing.T) {
	fx := newFixture(t)
	eng := fx.engine

	dispatch(t, eng, Event{Kind: EventStartSubmission, Sender: employeeID})
	dispatch(t, eng, Event{Kind: EventSelectCategory, Sender: employeeID, Label: string(domain.CategoryPatterns)})
	dispatch(t, eng, Event{Kind: EventAttachPhoto, Sender: employeeID, Photo: photoRef("p1")})
	dispatch(t, eng, Event{Kind: EventFinishPhotos, Sender: employeeID})
	dispatch(t, eng, Event{Kind: EventText, Sender: employeeID, Text: "комментарий"})

	prompt := dispatch(t, eng, Event{Kind: EventRestart, Sender: employeeID})
	if !strings.Contains(prompt.Text, "Выберите категорию") {
		t.Fatalf("restart must return to category choice, got %q", prompt.Text)
	}

	session, ok := eng.Snapshot(employeeID)
	if !ok {
		t.Fatal("restart keeps the session alive")
	}
	if session.Category != "" || session.Comment != "" || len(session.Photos) != 0 {
		t.Fatalf("restart must clear accumulated data: %+v", session)
	}
}

func TestVoiceCommentTranscribed(t *testing.T) {
	fx := newFixture(t)
	fx.transcriber.text = "крючки закончились"
	eng := fx.engine

	dispatch(t, eng, Event{Kind: EventStartSubmission, Sender: employeeID})
	dispatch(t, eng, Event{Kind: EventSelectCategory, Sender: employeeID, Label: string(domain.CategoryMaterials)})
	dispatch(t, eng, Event{Kind: EventSkipPhotos, Sender: employeeID})

	prompt := dispatch(t, eng, Event{Kind: EventVoice, Sender: employeeID, Audio: []byte{0x4f}})
	if !strings.Contains(prompt.Text, "крючки закончились") {
		t.Fatalf("preview must carry the transcription, got %q", prompt.Text)
	}
}

func TestVoiceTranscriptionFailureStaysInComment(t *testing.T) {
	fx := newFixture(t)
	fx.transcriber.err = errors.New("stt unavailable")
	eng := fx.engine

	dispatch(t, eng, Event{Kind: EventStartSubmission, Sender: employeeID})
	dispatch(t, eng, Event{Kind: EventSelectCategory, Sender: employeeID, Label: string(domain.CategoryOther)})
	dispatch(t, eng, Event{Kind: EventSkipPhotos, Sender: employeeID})

	prompt := dispatch(t, eng, Event{Kind: EventVoice, Sender: employeeID, Audio: []byte{0x4f}})
	if !strings.Contains(prompt.Text, "голосового") {
		t.Fatalf("expected voice failure message, got %q", prompt.Text)
	}
	if session, _ := eng.Snapshot(employeeID); session.State != StateEnteringComment {
		t.Fatalf("failure must keep the comment state, got %q", session.State)
	}
}

func TestRosterEntryRemovedMidFlow(t *testing.T) {
	fx := newFixture(t)
	eng := fx.engine

	dispatch(t, eng, Event{Kind: EventStartSubmission, Sender: employeeID})
	delete(fx.directory.entries, employeeID)

	prompt := dispatch(t, eng, Event{Kind: EventSelectCategory, Sender: employeeID, Label: string(domain.CategoryPatterns)})
	if !strings.Contains(prompt.Text, "не найдена в списке") {
		t.Fatalf("expected roster-gone message, got %q", prompt.Text)
	}
	if _, ok := eng.Snapshot(employeeID); ok {
		t.Fatal("a vanished roster entry must abort the flow")
	}
}

func TestPartialSaveReported(t *testing.T) {
	fx := newFixture(t)
	fx.finalizer.result = FinalizeResult{Outcome: OutcomePartiallySaved, Detail: "mirror append failed"}
	eng := fx.engine

	dispatch(t, eng, Event{Kind: EventStartSubmission, Sender: employeeID})
	dispatch(t, eng, Event{Kind: EventSelectCategory, Sender: employeeID, Label: string(domain.CategoryOther)})
	dispatch(t, eng, Event{Kind: EventSkipPhotos, Sender: employeeID})
	dispatch(t, eng, Event{Kind: EventText, Sender: employeeID, Text: "что-то сломалось"})

	prompt := dispatch(t, eng, Event{Kind: EventSave, Sender: employeeID})
	if !strings.Contains(prompt.Text, "Ошибка отправки в таблицу") {
		t.Fatalf("expected partial save message, got %q", prompt.Text)
	}
	if _, ok := eng.Snapshot(employeeID); ok {
		t.Fatal("partial save is still terminal")
	}
}

func TestTwoUsersDoNotShareState(t *testing.T) {
	fx := newFixture(t)
	fx.directory.entries[strangerID] = &domain.RosterEntry{ID: 8, TelegramID: strangerID, Name: "Ольга Петрова", Active: true}
	gate := &fakeGate{roles: map[domain.Identity]domain.Authorization{
		employeeID: {Role: domain.RoleEmployee, EmployeeName: "Мария Иванова"},
		strangerID: {Role: domain.RoleEmployee, EmployeeName: "Ольга Петрова"},
	}}
	eng := New(Dependencies{
		Gate:        gate,
		Roster:      fx.directory,
		RosterMgr:   fx.manager,
		Finalizer:   fx.finalizer,
		Transcriber: fx.transcriber,
		MaxPhotos:   3,
	})

	dispatch(t, eng, Event{Kind: EventStartSubmission, Sender: employeeID})
	dispatch(t, eng, Event{Kind: EventStartSubmission, Sender: strangerID})
	dispatch(t, eng, Event{Kind: EventSelectCategory, Sender: employeeID, Label: string(domain.CategoryPatterns)})
	dispatch(t, eng, Event{Kind: EventSelectCategory, Sender: strangerID, Label: string(domain.CategoryOther)})
	dispatch(t, eng, Event{Kind: EventAttachPhoto, Sender: employeeID, Photo: photoRef("maria-1")})

	first, _ := eng.Snapshot(employeeID)
	second, _ := eng.Snapshot(strangerID)
	if first.Category != domain.CategoryPatterns || second.Category != domain.CategoryOther {
		t.Fatalf("categories crossed: %q / %q", first.Category, second.Category)
	}
	if len(second.Photos) != 0 {
		t.Fatal("photo leaked into the other user's session")
	}
	if first.MasterName == second.MasterName {
		t.Fatalf("master names must differ, both %q", first.MasterName)
	}
}

func TestUnknownInputWithoutSession(t *testing.T) {
	fx := newFixture(t)

	prompt := dispatch(t, fx.engine, Event{Kind: EventText, Sender: employeeID, Text: "привет"})
	if !strings.Contains(prompt.Text, "/start") {
		t.Fatalf("expected /start hint, got %q", prompt.Text)
	}
}

func TestAdminAddEmployeeFlow(t *testing.T) {
	fx := newFixture(t)
	eng := fx.engine

	dispatch(t, eng, Event{Kind: EventEmployeesMenu, Sender: adminID})
	prompt := dispatch(t, eng, Event{Kind: EventAddEmployee, Sender: adminID})
	if !strings.Contains(prompt.Text, "Telegram ID") {
		t.Fatalf("expected id prompt, got %q", prompt.Text)
	}

	prompt = dispatch(t, eng, Event{Kind: EventText, Sender: adminID, Text: "not-a-number"})
	if !strings.Contains(prompt.Text, "Неверный формат") {
		t.Fatalf("expected format rejection, got %q", prompt.Text)
	}

	// an id already on the roster is refused
	prompt = dispatch(t, eng, Event{Kind: EventText, Sender: adminID, Text: "2000"})
	if !strings.Contains(prompt.Text, "уже существует") {
		t.Fatalf("expected duplicate rejection, got %q", prompt.Text)
	}

	prompt = dispatch(t, eng, Event{Kind: EventText, Sender: adminID, Text: "4000"})
	if !strings.Contains(prompt.Text, "имя и фамилию") {
		t.Fatalf("expected name prompt, got %q", prompt.Text)
	}

	prompt = dispatch(t, eng, Event{Kind: EventText, Sender: adminID, Text: "Анна Смирнова"})
	if !strings.Contains(prompt.Text, "успешно добавлен") {
		t.Fatalf("expected success, got %q", prompt.Text)
	}
	if len(fx.manager.added) != 1 || fx.manager.added[0] != "Анна Смирнова" {
		t.Fatalf("manager.added = %v", fx.manager.added)
	}
	if _, ok := eng.Snapshot(adminID); ok {
		t.Fatal("completed admin flow must destroy the session")
	}
}

func TestAdminDeleteEmployeeFlow(t *testing.T) {
	fx := newFixture(t)
	fx.manager.listed = []domain.RosterEntry{
		{ID: 7, TelegramID: employeeID, Name: "Мария Иванова", Active: true},
	}
	eng := fx.engine

	prompt := dispatch(t, eng, Event{Kind: EventDeleteEmployee, Sender: adminID})
	if !strings.Contains(prompt.Text, "Мария Иванова") {
		t.Fatalf("expected target list, got %q", prompt.Text)
	}

	prompt = dispatch(t, eng, Event{Kind: EventChooseDeleteTarget, Sender: adminID, TargetID: 7})
	if !strings.Contains(prompt.Text, "Точно ли вы хотите удалить") {
		t.Fatalf("expected confirmation, got %q", prompt.Text)
	}

	prompt = dispatch(t, eng, Event{Kind: EventConfirmDelete, Sender: adminID})
	if !strings.Contains(prompt.Text, "успешно удален") {
		t.Fatalf("expected delete confirmation, got %q", prompt.Text)
	}
	if len(fx.manager.deactivated) != 1 || fx.manager.deactivated[0] != 7 {
		t.Fatalf("manager.deactivated = %v", fx.manager.deactivated)
	}
}

func TestAdminDeleteAborted(t *testing.T) {
	fx := newFixture(t)
	fx.manager.listed = []domain.RosterEntry{
		{ID: 7, TelegramID: employeeID, Name: "Мария Иванова", Active: true},
	}
	eng := fx.engine

	dispatch(t, eng, Event{Kind: EventDeleteEmployee, Sender: adminID})
	dispatch(t, eng, Event{Kind: EventChooseDeleteTarget, Sender: adminID, TargetID: 7})
	prompt := dispatch(t, eng, Event{Kind: EventAbortDelete, Sender: adminID})
	if !strings.Contains(prompt.Text, "Управление сотрудниками") {
		t.Fatalf("abort must return to the employees menu, got %q", prompt.Text)
	}
	if len(fx.manager.deactivated) != 0 {
		t.Fatal("abort must not deactivate anyone")
	}
}

func TestAdminMenuInterruptsSubmission(t *testing.T) {
	fx := newFixture(t)
	fx.directory.entries[adminID] = &domain.RosterEntry{ID: 9, TelegramID: adminID, Name: "Администратор", Active: true}
	eng := fx.engine

	dispatch(t, eng, Event{Kind: EventStartSubmission, Sender: adminID})
	prompt := dispatch(t, eng, Event{Kind: EventEmployeesMenu, Sender: adminID})
	if !strings.Contains(prompt.Text, "Управление сотрудниками") {
		t.Fatalf("menu press must interrupt, got %q", prompt.Text)
	}
	if _, ok := eng.Snapshot(adminID); ok {
		t.Fatal("interrupt must discard the submission session")
	}
}
