package transcript

import "time"

// ItemType distinguishes chat content from diagnostic annotations.
type ItemType string

const (
	// ItemTypeMessage is a spoken or typed conversational turn.
	ItemTypeMessage ItemType = "MESSAGE"
	// ItemTypeBreadcrumb is a non-chat annotation (tool calls, agent changes).
	ItemTypeBreadcrumb ItemType = "BREADCRUMB"
)

// Role identifies the author of a message item.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Status tracks whether streamed text for an item is still arriving.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Item is one entry in the visible conversation log.
//
// Title carries the display text. Messages use a bracket convention
// (e.g. "[Transcribing...]") for provisional or system-originated lines
// that render in a distinct style.
type Item struct {
	ID       string
	Type     ItemType
	Role     Role
	Title    string
	Data     map[string]any
	Expanded bool
	Status   Status

	// Timestamp is the display-formatted creation time, fixed at insertion.
	Timestamp string
	CreatedAt time.Time

	// Hidden suppresses rendering without deleting the record.
	Hidden bool
}
