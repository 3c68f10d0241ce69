package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/intake-service/internal/domain"
	"github.com/spec-kit/intake-service/internal/observability"
)

// Authorizer gates every inbound event.
type Authorizer interface {
	Authorize(ctx context.Context, identity domain.Identity) (domain.Authorization, error)
}

// RosterDirectory resolves the submitter's roster entry. The master name is
// auto-derived from it at category selection time.
type RosterDirectory interface {
	GetActiveByTelegramID(ctx context.Context, identity domain.Identity) (*domain.RosterEntry, error)
}

// RosterManager is the administrator's roster surface inside the conversation.
type RosterManager interface {
	Add(ctx context.Context, identity domain.Identity, name string) (*domain.RosterEntry, error)
	List(ctx context.Context) ([]domain.RosterEntry, error)
	Deactivate(ctx context.Context, id int64) error
}

// Transcriber converts a voice comment to text. May suspend for seconds; it is
// called on the per-user dispatch goroutine, so only that user waits.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// FinalizeOutcome is the three-way result of persisting a submission.
type FinalizeOutcome string

const (
	OutcomeFullySaved     FinalizeOutcome = "FULLY_SAVED"
	OutcomePartiallySaved FinalizeOutcome = "PARTIALLY_SAVED"
	OutcomeFailed         FinalizeOutcome = "FAILED"
)

// FinalizeResult carries the outcome plus operator-facing detail.
type FinalizeResult struct {
	Outcome FinalizeOutcome
	Detail  string
}

// Draft is the completed conversation payload handed to the finalizer.
type Draft struct {
	Identity      domain.Identity
	RosterEntryID int64
	Category      domain.Category
	MasterName    string
	Comment       string
	Photos        []domain.PhotoRef
}

// Finalizer persists a completed draft to the record store and the
// spreadsheet mirror, materializing photos on the way.
type Finalizer interface {
	Finalize(ctx context.Context, draft Draft) FinalizeResult
}

// Engine is the per-user conversation state machine.
type Engine struct {
	gate        Authorizer
	roster      RosterDirectory
	rosterMgr   RosterManager
	finalizer   Finalizer
	transcriber Transcriber
	sessions    *sessionStore
	maxPhotos   int
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// Dependencies bundles collaborators for the engine.
type Dependencies struct {
	Gate        Authorizer
	Roster      RosterDirectory
	RosterMgr   RosterManager
	Finalizer   Finalizer
	Transcriber Transcriber
	MaxPhotos   int
	Logger      *zap.Logger
	Metrics     *observability.Metrics
}

// New constructs the engine.
func New(deps Dependencies) *Engine {
	maxPhotos := deps.MaxPhotos
	if maxPhotos <= 0 {
		maxPhotos = 3
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		gate:        deps.Gate,
		roster:      deps.Roster,
		rosterMgr:   deps.RosterMgr,
		finalizer:   deps.Finalizer,
		transcriber: deps.Transcriber,
		sessions:    newSessionStore(),
		maxPhotos:   maxPhotos,
		logger:      logger,
		metrics:     deps.Metrics,
	}
}

// Snapshot returns a copy of the caller's session, if any. Diagnostics only.
func (e *Engine) Snapshot(identity domain.Identity) (Session, bool) {
	return e.sessions.snapshot(identity)
}

// Dispatch runs one inbound event through the access gate and the state
// machine and returns the prompt to render. Events for the same identity are
// serialized on the per-user session lock; independent identities proceed
// concurrently. No global lock is held while collaborators are called.
func (e *Engine) Dispatch(ctx context.Context, ev Event) Prompt {
	authz, err := e.gate.Authorize(ctx, ev.Sender)
	if err != nil {
		// fail closed on gate trouble; the caller sees the generic refusal
		e.logger.Error("access check failed", zap.Int64("sender", int64(ev.Sender)), zap.Error(err))
		e.recordError("ACCESS_DENIED")
		return accessDeniedPrompt()
	}
	if !authz.Allowed() {
		e.recordError("ACCESS_DENIED")
		return accessDeniedPrompt()
	}

	entry := e.sessions.entry(ev.Sender)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if e.metrics != nil {
		e.metrics.RecordEvent(string(ev.Kind), string(e.stateOf(entry)))
	}

	// Global interrupts are recognized in every state, before per-state
	// dispatch. This is the single place cancel is handled.
	switch ev.Kind {
	case EventCancel:
		entry.session = nil
		return mainMenuPrompt(authz.Role)
	case EventStart:
		entry.session = nil
		return mainMenuPrompt(authz.Role)
	case EventStartSubmission, EventSendAnother:
		// a new start while a session exists discards and replaces it
		return e.startSubmission(entry, ev.Sender)
	}

	if authz.Role == domain.RoleAdministrator {
		if prompt, handled := e.adminInterrupt(ctx, entry, ev); handled {
			return prompt
		}
	}

	if entry.session == nil {
		return Prompt{Text: msgNotACommand}
	}

	switch entry.session.State {
	case StateChoosingCategory:
		return e.handleChoosingCategory(ctx, entry, ev)
	case StateUploadingPhotos:
		return e.handleUploadingPhotos(entry, ev)
	case StateEnteringComment:
		return e.handleEnteringComment(ctx, entry, ev)
	case StatePreview:
		return e.handlePreview(ctx, entry, ev)
	case StateEnteringEmployeeID, StateEnteringEmployeeName, StateConfirmingDelete:
		return e.handleAdminState(ctx, entry, ev, authz.Role)
	default:
		entry.session = nil
		return mainMenuPrompt(authz.Role)
	}
}

func (e *Engine) stateOf(entry *sessionEntry) State {
	if entry.session == nil {
		return StateIdle
	}
	return entry.session.State
}

func (e *Engine) startSubmission(entry *sessionEntry, identity domain.Identity) Prompt {
	entry.session = &Session{Identity: identity, State: StateChoosingCategory}
	return categoriesPrompt()
}

func (e *Engine) handleChoosingCategory(ctx context.Context, entry *sessionEntry, ev Event) Prompt {
	if ev.Kind != EventSelectCategory {
		return categoriesPrompt()
	}
	category, ok := domain.ParseCategory(ev.Label)
	if !ok {
		return categoriesPrompt()
	}

	// Capability re-check: the submitter must still hold an active roster
	// entry, even though the gate passed earlier. A deletion racing the
	// conversation aborts the flow rather than saving under a stale name.
	roster, err := e.roster.GetActiveByTelegramID(ctx, entry.session.Identity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			e.recordError("INTEGRITY_VIOLATION")
			entry.session = nil
			return Prompt{Text: msgRosterEntryGone}
		}
		e.logger.Error("roster lookup failed", zap.Error(err))
		e.recordError("EXTERNAL_SERVICE")
		return categoriesPrompt()
	}

	entry.session.Category = category
	entry.session.MasterName = roster.Name
	entry.session.RosterEntryID = roster.ID
	entry.session.State = StateUploadingPhotos
	return photosPrompt(entry.session, e.maxPhotos)
}

func (e *Engine) handleUploadingPhotos(entry *sessionEntry, ev Event) Prompt {
	session := entry.session
	switch ev.Kind {
	case EventAttachPhoto:
		if ev.Photo == nil {
			return photosPrompt(session, e.maxPhotos)
		}
		if len(session.Photos) >= e.maxPhotos {
			return photoLimitPrompt(e.maxPhotos)
		}
		session.Photos = append(session.Photos, *ev.Photo)
		return photosPrompt(session, e.maxPhotos)
	case EventSkipPhotos:
		// skip is only offered while nothing is attached
		if len(session.Photos) > 0 {
			return photosPrompt(session, e.maxPhotos)
		}
		session.State = StateEnteringComment
		return commentPrompt()
	case EventFinishPhotos:
		if len(session.Photos) == 0 {
			return photosPrompt(session, e.maxPhotos)
		}
		session.State = StateEnteringComment
		return commentPrompt()
	default:
		return photosPrompt(session, e.maxPhotos)
	}
}

func (e *Engine) handleEnteringComment(ctx context.Context, entry *sessionEntry, ev Event) Prompt {
	session := entry.session
	switch ev.Kind {
	case EventText:
		comment := strings.TrimSpace(ev.Text)
		if comment == "" {
			return commentPrompt()
		}
		session.Comment = comment
		session.State = StatePreview
		return previewPrompt(session)
	case EventVoice:
		comment, err := e.transcriber.Transcribe(ctx, ev.Audio)
		if err != nil || strings.TrimSpace(comment) == "" {
			if err != nil {
				e.logger.Warn("transcription failed", zap.Error(err))
				e.recordError("EXTERNAL_SERVICE")
			}
			return Prompt{Text: msgVoiceFailed, Options: [][]Option{row(btnCancel, CallbackCancel)}}
		}
		session.Comment = strings.TrimSpace(comment)
		session.State = StatePreview
		return previewPrompt(session)
	default:
		return commentPrompt()
	}
}

func (e *Engine) handlePreview(ctx context.Context, entry *sessionEntry, ev Event) Prompt {
	session := entry.session
	switch ev.Kind {
	case EventSave:
		draft := Draft{
			Identity:      session.Identity,
			RosterEntryID: session.RosterEntryID,
			Category:      session.Category,
			MasterName:    session.MasterName,
			Comment:       session.Comment,
			Photos:        append([]domain.PhotoRef(nil), session.Photos...),
		}
		result := e.finalizer.Finalize(ctx, draft)

		var text string
		switch result.Outcome {
		case OutcomeFullySaved:
			text = msgSaved
		case OutcomePartiallySaved:
			e.recordError("EXTERNAL_SERVICE")
			text = msgSavedPartially
		default:
			e.recordError("EXTERNAL_SERVICE")
			text = msgSaveFailed
		}

		// terminal: the session is destroyed either way, and the caller is
		// left on a navigable prompt
		session.State = StateSaved
		entry.session = nil
		return savedPrompt(text)
	case EventRestart:
		session.reset()
		return categoriesPrompt()
	default:
		return previewPrompt(session)
	}
}

func (e *Engine) recordError(code string) {
	if e.metrics != nil {
		e.metrics.RecordError(code)
	}
}
