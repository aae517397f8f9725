// Copyright 2026 Compass Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package realtime

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/compasshq/compass/roster"
	"github.com/compasshq/compass/transcript"
)

// TransferMarkerPrefix is the wire convention marking an agent handoff: the
// prefix followed by the target agent's wire-safe name.
const TransferMarkerPrefix = "transfer_to_"

// PendingTranscription is the placeholder shown for a user turn whose audio
// is still being transcribed, so the bubble never renders empty.
const PendingTranscription = "[Transcribing...]"

// Inaudible is the marker recorded when a finalized transcript is empty.
// Empty audio must not silently disappear from the record.
const Inaudible = "[inaudible]"

// Reconciler translates server events into transcript store mutations and
// handoff notifications. A single malformed event must never break the live
// session, so Handle degrades to raw values and placeholders instead of
// failing.
type Reconciler struct {
	store     *transcript.Store
	graph     *roster.Graph
	onHandoff func(displayName string)
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithHandoffCallback registers the callback invoked with the display name
// of the newly active agent. Handoffs update active-agent state one level
// up; the reconciler only records the breadcrumb.
func WithHandoffCallback(fn func(displayName string)) ReconcilerOption {
	return func(r *Reconciler) { r.onHandoff = fn }
}

// NewReconciler creates a reconciler writing into store.
func NewReconciler(store *transcript.Store, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{store: store}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetGraph supplies the session's handoff graph, used to translate wire
// tokens back to display names. Safe to leave unset; translation then falls
// back to the naive transform.
func (r *Reconciler) SetGraph(g *roster.Graph) {
	r.graph = g
}

// Handle applies one server event to the transcript. Events with no variant
// set are ignored.
func (r *Reconciler) Handle(ev ServerEvent) {
	switch {
	case ev.HistoryAdded != nil:
		r.historyAdded(ev.HistoryAdded)
	case ev.HistoryUpdated != nil:
		r.historyUpdated(ev.HistoryUpdated)
	case ev.TranscriptionDelta != nil:
		r.store.UpdateMessage(ev.TranscriptionDelta.ItemID, ev.TranscriptionDelta.Delta, true)
		r.store.SetStatus(ev.TranscriptionDelta.ItemID, transcript.StatusInProgress)
	case ev.TranscriptionDone != nil:
		r.transcriptionDone(ev.TranscriptionDone)
	case ev.ToolStart != nil:
		r.store.AddBreadcrumb("function call: "+ev.ToolStart.Name, parsePayload(ev.ToolStart.Arguments))
	case ev.ToolEnd != nil:
		r.store.AddBreadcrumb("function call result: "+ev.ToolEnd.Name, parsePayload(ev.ToolEnd.Output))
	case ev.Handoff != nil:
		r.handoff(ev.Handoff)
	default:
		log.Debug().Msg("ignoring empty server event")
	}
}

// RecordLocalUserText inserts a hidden user message for a synthetic turn and
// returns its generated item ID. Hidden because the transport will echo the
// turn back through history events; the record exists so upsert guards catch
// the echo.
func (r *Reconciler) RecordLocalUserText(text string) string {
	id := "user-" + uuid.NewString()
	r.store.AddMessage(id, transcript.RoleUser, text, true)
	return id
}

func (r *Reconciler) historyAdded(item *HistoryItem) {
	if item.Kind != "message" {
		return
	}
	role := transcript.RoleAssistant
	if item.Role == "user" {
		role = transcript.RoleUser
	}
	text := extractText(item.Content)
	if role == transcript.RoleUser && text == "" {
		// Audio-only user turn: the transcript arrives later via deltas.
		text = PendingTranscription
	}
	r.store.AddMessage(item.ID, role, text, false)
}

// historyUpdated carries authoritative snapshots, not increments: every
// message in the batch gets a full-text update when its text is non-empty.
func (r *Reconciler) historyUpdated(items []*HistoryItem) {
	for _, item := range items {
		if item == nil || item.Kind != "message" {
			continue
		}
		if text := extractText(item.Content); text != "" {
			r.store.UpdateMessage(item.ID, text, false)
		}
	}
}

func (r *Reconciler) transcriptionDone(done *TranscriptionDone) {
	text := done.Transcript
	if text == "" || text == "\n" {
		text = Inaudible
	}
	r.store.UpdateMessage(done.ItemID, text, false)
	r.store.SetStatus(done.ItemID, transcript.StatusDone)
}

func (r *Reconciler) handoff(h *Handoff) {
	wire := strings.TrimPrefix(h.Marker, TransferMarkerPrefix)
	if wire == "" {
		log.Warn().Str("marker", h.Marker).Msg("handoff marker names no agent")
		return
	}
	display := roster.DisplayName(wire)
	if r.graph != nil {
		display = r.graph.DisplayNameFor(wire)
	}
	log.Info().Str("agent", display).Msg("agent handoff")
	if r.onHandoff != nil {
		r.onHandoff(display)
	}
	r.store.AddBreadcrumb("Agent: "+display, nil)
}

// extractText flattens a content-part list: text parts carry literal text,
// audio parts carry the transcript field.
func extractText(parts []ContentPart) string {
	var segs []string
	for _, p := range parts {
		switch p.Kind {
		case "input_text", "text":
			if p.Text != "" {
				segs = append(segs, p.Text)
			}
		case "input_audio", "audio":
			if p.Transcript != "" {
				segs = append(segs, p.Transcript)
			}
		}
	}
	return strings.Join(segs, " ")
}

// parsePayload decodes a JSON payload into breadcrumb data. Unparseable
// payloads are passed through raw rather than failing the update.
func parsePayload(raw string) map[string]any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(trimmed), &m); err != nil {
		return map[string]any{"raw": raw}
	}
	return m
}
