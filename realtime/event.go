package realtime

// ServerEvent is one event delivered by the transport. Exactly one variant
// field is set; events with no variant set are ignored by the reconciler.
// Payloads are validated and defaulted at the transport boundary so that
// nothing downstream handles loosely shaped data.
type ServerEvent struct {
	HistoryAdded       *HistoryItem
	HistoryUpdated     []*HistoryItem
	TranscriptionDelta *TranscriptionDelta
	TranscriptionDone  *TranscriptionDone
	ToolStart          *ToolCall
	ToolEnd            *ToolResult
	Handoff            *Handoff
}

// HistoryItem is a transport-side conversation record. Kind distinguishes
// messages from function calls and other record types the backend emits.
type HistoryItem struct {
	ID      string
	Kind    string // "message", "function_call", ...
	Role    string // "user" | "assistant", meaningful for messages
	Name    string // function/transfer marker name for non-message kinds
	Content []ContentPart
}

// ContentPart is one piece of a history item's content list. Text parts
// carry literal text; audio parts carry the transcript of the audio.
type ContentPart struct {
	Kind       string // "input_text", "text", "input_audio", "audio"
	Text       string
	Transcript string
}

// TranscriptionDelta is an incremental piece of streamed transcription for
// the item identified by ItemID.
type TranscriptionDelta struct {
	ItemID string
	Delta  string
}

// TranscriptionDone finalizes the transcription for an item.
type TranscriptionDone struct {
	ItemID     string
	Transcript string
}

// ToolCall marks the start of a tool invocation on the backend.
type ToolCall struct {
	Name      string
	Arguments string // raw JSON as sent by the model
}

// ToolResult marks the completion of a tool invocation.
type ToolResult struct {
	Name   string
	Output string // raw payload; JSON if the tool returned JSON
}

// Handoff signals an in-session transfer of active-agent control. Marker is
// the transfer marker as it appeared on the wire, conventionally the
// transfer prefix followed by the target's wire-safe name.
type Handoff struct {
	Marker string
}

// ClientEvent is one request pushed to the transport. Exactly one field is
// set per event.
type ClientEvent struct {
	// Text forwards a user turn.
	Text string

	// Config updates the session's audio characteristics in place.
	Config *SessionConfig

	// Interrupt requests the backend stop current output generation.
	Interrupt bool

	// Raw is the low-level escape hatch: an opaque protocol payload
	// forwarded as-is.
	Raw any

	// Close signals end of the session.
	Close bool
}

// SessionConfig carries the settings that can change on a live session
// without reconnecting.
type SessionConfig struct {
	Voice string
	Speed float64
}
