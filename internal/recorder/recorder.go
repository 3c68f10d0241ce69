package recorder

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/intake-service/internal/domain"
	"github.com/spec-kit/intake-service/internal/engine"
	"github.com/spec-kit/intake-service/internal/events"
)

// RecordSink is the authoritative record store write.
type RecordSink interface {
	Create(ctx context.Context, sub *domain.Submission) error
}

// MirrorSink is the best-effort spreadsheet mirror.
type MirrorSink interface {
	AppendSubmission(ctx context.Context, sub *domain.Submission) error
}

// MediaUploader moves photo bytes to permanent storage. The result has one
// slot per input reference; a failed upload leaves its slot empty.
type MediaUploader interface {
	Upload(ctx context.Context, refs []domain.PhotoRef, namespace string) []string
}

// RosterResolver re-checks the submitter at finalize time.
type RosterResolver interface {
	GetActiveByTelegramID(ctx context.Context, identity domain.Identity) (*domain.RosterEntry, error)
}

// Recorder persists a completed draft: photos are materialized exactly once,
// the record store row is written first (it carries the user-facing "saved"
// guarantee), then the spreadsheet row is appended. There is no transactional
// rollback across the two sinks; the mirror is a convenience, not the system
// of record.
type Recorder struct {
	records    RecordSink
	mirror     MirrorSink
	uploader   MediaUploader
	roster     RosterResolver
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// Dependencies bundles collaborators for the recorder.
type Dependencies struct {
	RecordSink RecordSink
	MirrorSink MirrorSink
	Uploader   MediaUploader
	Roster     RosterResolver
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// New constructs the recorder.
func New(deps Dependencies) *Recorder {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		records:    deps.RecordSink,
		mirror:     deps.MirrorSink,
		uploader:   deps.Uploader,
		roster:     deps.Roster,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Finalize implements engine.Finalizer.
func (r *Recorder) Finalize(ctx context.Context, draft engine.Draft) engine.FinalizeResult {
	entry, err := r.roster.GetActiveByTelegramID(ctx, draft.Identity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn("submitter left the roster before save", zap.Int64("identity", int64(draft.Identity)))
			return engine.FinalizeResult{Outcome: engine.OutcomeFailed, Detail: "roster entry gone"}
		}
		r.logger.Error("roster resolve failed during finalize", zap.Error(err))
		return engine.FinalizeResult{Outcome: engine.OutcomeFailed, Detail: "roster store unavailable"}
	}

	externalKey := uuid.NewString()

	// Photo bytes move now and only now. Uploads are best-effort per item;
	// a failed slot stays blank and the rest of the save proceeds.
	var photoURLs []string
	if len(draft.Photos) > 0 {
		slots := r.uploader.Upload(ctx, draft.Photos, externalKey)
		for _, url := range slots {
			if url != "" {
				photoURLs = append(photoURLs, url)
			}
		}
		if len(photoURLs) < len(draft.Photos) {
			r.logger.Warn("some photo uploads failed",
				zap.Int("requested", len(draft.Photos)),
				zap.Int("uploaded", len(photoURLs)))
		}
	}

	sub := &domain.Submission{
		ExternalKey:   externalKey,
		RosterEntryID: entry.ID,
		Category:      draft.Category,
		MasterName:    draft.MasterName,
		Comment:       draft.Comment,
		PhotoURLs:     photoURLs,
	}

	recordErr := r.records.Create(ctx, sub)
	if recordErr != nil {
		r.logger.Error("record store write failed", zap.Error(recordErr))
	}

	// The mirror is attempted regardless of the record outcome, matching the
	// dual-write contract; it never upgrades a failed save.
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	mirrorErr := r.mirror.AppendSubmission(ctx, sub)
	if mirrorErr != nil {
		r.logger.Warn("spreadsheet mirror write failed", zap.Error(mirrorErr))
	}

	switch {
	case recordErr != nil:
		return engine.FinalizeResult{Outcome: engine.OutcomeFailed, Detail: "record store write failed"}
	case mirrorErr != nil:
		r.publishSaved(ctx, draft, sub, false)
		return engine.FinalizeResult{Outcome: engine.OutcomePartiallySaved, Detail: "spreadsheet mirror failed"}
	default:
		r.publishSaved(ctx, draft, sub, true)
		return engine.FinalizeResult{Outcome: engine.OutcomeFullySaved}
	}
}

func (r *Recorder) publishSaved(ctx context.Context, draft engine.Draft, sub *domain.Submission, mirrorOK bool) {
	if r.dispatcher == nil {
		return
	}
	_ = r.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventSubmissionSaved,
		Actor:     int64(draft.Identity),
		Timestamp: time.Now(),
		Payload: events.SubmissionSavedPayload{
			ExternalKey: sub.ExternalKey,
			Category:    sub.Category,
			MasterName:  sub.MasterName,
			PhotoCount:  len(sub.PhotoURLs),
			MirrorOK:    mirrorOK,
		},
	})
}
