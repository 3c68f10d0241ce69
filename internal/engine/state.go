package engine

import (
	"github.com/spec-kit/intake-service/internal/domain"
)

// State enumerates the conversation positions. The submission happy path is a
// total order: Idle → ChoosingCategory → UploadingPhotos → EnteringComment →
// Preview → Saved. The remaining states belong to the administrator's roster
// flow.
type State string

const (
	StateIdle             State = "IDLE"
	StateChoosingCategory State = "CHOOSING_CATEGORY"
	StateUploadingPhotos  State = "UPLOADING_PHOTOS"
	StateEnteringComment  State = "ENTERING_COMMENT"
	StatePreview          State = "PREVIEW"
	StateSaved            State = "SAVED"

	StateEnteringEmployeeID   State = "ENTERING_EMPLOYEE_ID"
	StateEnteringEmployeeName State = "ENTERING_EMPLOYEE_NAME"
	StateConfirmingDelete     State = "CONFIRMING_DELETE"
)

// EventKind enumerates the normalized inbound events the engine accepts.
type EventKind string

const (
	EventStart           EventKind = "START"
	EventStartSubmission EventKind = "START_SUBMISSION"
	EventSelectCategory  EventKind = "SELECT_CATEGORY"
	EventAttachPhoto     EventKind = "ATTACH_PHOTO"
	EventSkipPhotos      EventKind = "SKIP_PHOTOS"
	EventFinishPhotos    EventKind = "FINISH_PHOTOS"
	EventText            EventKind = "TEXT"
	EventVoice           EventKind = "VOICE"
	EventSave            EventKind = "SAVE"
	EventRestart         EventKind = "RESTART"
	EventSendAnother     EventKind = "SEND_ANOTHER"
	EventCancel          EventKind = "CANCEL"
	EventUnknown         EventKind = "UNKNOWN"

	EventEmployeesMenu      EventKind = "EMPLOYEES_MENU"
	EventAddEmployee        EventKind = "ADD_EMPLOYEE"
	EventListEmployees      EventKind = "LIST_EMPLOYEES"
	EventDeleteEmployee     EventKind = "DELETE_EMPLOYEE"
	EventChooseDeleteTarget EventKind = "CHOOSE_DELETE_TARGET"
	EventConfirmDelete      EventKind = "CONFIRM_DELETE"
	EventAbortDelete        EventKind = "ABORT_DELETE"
)

// Event is a normalized inbound user event. Kind decides which payload fields
// are meaningful; the transport fills only those.
type Event struct {
	Kind   EventKind
	Sender domain.Identity

	// Label carries a selected category for EventSelectCategory.
	Label string
	// Text carries free text for EventText.
	Text string
	// Photo carries the captured reference for EventAttachPhoto.
	Photo *domain.PhotoRef
	// Audio carries raw voice bytes for EventVoice.
	Audio []byte
	// TargetID carries a roster entry id for EventChooseDeleteTarget.
	TargetID int64
}

// Option is a selectable control attached to a prompt. Data is the callback
// payload the transport echoes back when the option is pressed.
type Option struct {
	Label string
	Data  string
}

// Prompt is what the engine asks the transport to render next. Rows preserve
// the keyboard layout; rendering specifics stay a transport concern.
type Prompt struct {
	Text    string
	Options [][]Option
}
