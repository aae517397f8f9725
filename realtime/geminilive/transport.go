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

// Package geminilive implements the realtime transport over the Gemini Live
// API. It owns the translation between the backend's message shapes and the
// typed server events the reconciler consumes; nothing outside this package
// handles loosely shaped payloads.
package geminilive

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/compasshq/compass/realtime"
	"github.com/compasshq/compass/roster"
)

const transferToolName = "transfer_to_agent"

// Dialer opens live sessions against a Gemini Live model.
type Dialer struct {
	// Model is the live model name, e.g. "gemini-2.0-flash-live-001".
	Model string

	// Backend selects the API backend; the zero value is BackendGeminiAPI.
	Backend genai.Backend
}

// Dial implements realtime.Dialer. The short-lived credential is used as the
// client's API key; long-lived keys never reach this code path.
func (d *Dialer) Dial(ctx context.Context, credential string, graph *roster.Graph, sink realtime.AudioSink) (realtime.Transport, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  credential,
		Backend: d.Backend,
	})
	if err != nil {
		return nil, fmt.Errorf("creating live client: %w", err)
	}

	root := graph.Root()
	instruction, err := root.SystemInstruction()
	if err != nil {
		return nil, err
	}

	cfg := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: instruction}},
		},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
		InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
	}
	if root.Voice != "" {
		cfg.SpeechConfig = &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: root.Voice},
			},
		}
	}
	if len(root.Handoffs) > 0 {
		cfg.Tools = []*genai.Tool{{
			FunctionDeclarations: []*genai.FunctionDeclaration{{
				Name:        transferToolName,
				Description: "Transfer the conversation to another agent when it is better suited for the current stage.",
				Parameters: &genai.Schema{
					Type: "object",
					Properties: map[string]*genai.Schema{
						"agent_name": {Type: "string", Description: "the agent name to transfer to"},
					},
					Required: []string{"agent_name"},
				},
			}},
		}}
	}

	session, err := client.Live.Connect(ctx, d.Model, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to live model: %w", err)
	}

	t := &transport{
		session: session,
		sink:    sink,
		events:  make(chan realtime.ServerEvent, 100),
	}
	go t.receive()
	return t, nil
}

type transport struct {
	session *genai.Session
	sink    realtime.AudioSink
	events  chan realtime.ServerEvent

	mu       sync.Mutex
	muted    bool
	closed   bool
	userItem *turnState
	modelItm *turnState
}

// turnState accumulates streamed transcription for one conversational turn.
type turnState struct {
	id       string
	text     strings.Builder
	announce bool // history-added already emitted
}

func (t *transport) Send(ev realtime.ClientEvent) error {
	switch {
	case ev.Close:
		return t.Close()
	case ev.Text != "":
		turnComplete := true
		return t.session.SendClientContent(genai.LiveClientContentInput{
			Turns: []*genai.Content{{
				Role:  "user",
				Parts: []*genai.Part{{Text: ev.Text}},
			}},
			TurnComplete: &turnComplete,
		})
	case ev.Interrupt:
		// A manual activity marker preempts whatever the model is
		// currently generating.
		if err := t.session.SendRealtimeInput(genai.LiveSendRealtimeInputParameters{
			ActivityStart: &genai.ActivityStart{},
		}); err != nil {
			return err
		}
		return t.session.SendRealtimeInput(genai.LiveSendRealtimeInputParameters{
			ActivityEnd: &genai.ActivityEnd{},
		})
	case ev.Config != nil:
		// The Live API has no mid-session voice update; the new settings
		// take effect on the next connection.
		log.Debug().Str("voice", ev.Config.Voice).Float64("speed", ev.Config.Speed).
			Msg("live config update deferred to next connection by this backend")
		return nil
	case ev.Raw != nil:
		return t.sendRaw(ev.Raw)
	}
	return nil
}

// rawEvent is the decoded shape of escape-hatch protocol payloads.
type rawEvent struct {
	Type string `mapstructure:"type"`
	Text string `mapstructure:"text"`
}

func (t *transport) sendRaw(raw any) error {
	var ev rawEvent
	if err := mapstructure.Decode(raw, &ev); err != nil {
		log.Warn().Err(err).Msg("undecodable raw protocol event dropped")
		return nil
	}
	switch ev.Type {
	case "user_text":
		return t.Send(realtime.ClientEvent{Text: ev.Text})
	case "interrupt":
		return t.Send(realtime.ClientEvent{Interrupt: true})
	default:
		log.Warn().Str("type", ev.Type).Msg("unknown raw protocol event dropped")
		return nil
	}
}

// SendAudio forwards one chunk of captured microphone PCM. Muted transports
// drop audio locally instead of surfacing an error.
func (t *transport) SendAudio(data []byte, mimeType string) error {
	t.mu.Lock()
	muted := t.muted
	t.mu.Unlock()
	if muted {
		return nil
	}
	return t.session.SendRealtimeInput(genai.LiveSendRealtimeInputParameters{
		Audio: &genai.Blob{Data: data, MIMEType: mimeType},
	})
}

func (t *transport) Mute(muted bool) error {
	t.mu.Lock()
	t.muted = muted
	t.mu.Unlock()
	return nil
}

func (t *transport) Events() <-chan realtime.ServerEvent { return t.events }

func (t *transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()
	return t.session.Close()
}

func (t *transport) receive() {
	defer close(t.events)
	for {
		msg, err := t.session.Receive()
		if err != nil {
			t.mu.Lock()
			closed := t.closed
			t.mu.Unlock()
			if !closed {
				log.Warn().Err(err).Msg("live session receive ended")
			}
			return
		}
		for _, ev := range t.translate(msg) {
			t.events <- ev
		}
	}
}

// translate maps one server message to zero or more typed events. Missing
// fields are tolerated throughout; a message carrying nothing useful yields
// no events.
func (t *transport) translate(msg *genai.LiveServerMessage) []realtime.ServerEvent {
	var out []realtime.ServerEvent
	if msg == nil {
		return nil
	}

	if sc := msg.ServerContent; sc != nil {
		if sc.InputTranscription != nil {
			out = append(out, t.transcription(&t.userItem, "user", sc.InputTranscription)...)
		}
		if sc.OutputTranscription != nil {
			out = append(out, t.transcription(&t.modelItm, "assistant", sc.OutputTranscription)...)
		}
		if sc.ModelTurn != nil {
			out = append(out, t.modelTurn(sc.ModelTurn)...)
		}
		if sc.TurnComplete || sc.Interrupted {
			out = append(out, t.finishTurns()...)
		}
	}

	if tc := msg.ToolCall; tc != nil {
		for _, fc := range tc.FunctionCalls {
			out = append(out, t.functionCall(fc)...)
		}
	}
	return out
}

// transcription emits the history-added event on the turn's first delta,
// then the delta itself, and the finalization when the backend flags it.
func (t *transport) transcription(slot **turnState, role string, tr *genai.Transcription) []realtime.ServerEvent {
	t.mu.Lock()
	st := *slot
	if st == nil {
		st = &turnState{id: role + "-" + uuid.NewString()}
		*slot = st
	}
	st.text.WriteString(tr.Text)
	first := !st.announce
	st.announce = true
	finished := tr.Finished
	full := st.text.String()
	if finished {
		*slot = nil
	}
	t.mu.Unlock()

	var out []realtime.ServerEvent
	if first {
		out = append(out, realtime.ServerEvent{HistoryAdded: &realtime.HistoryItem{
			ID:      st.id,
			Kind:    "message",
			Role:    role,
			Content: []realtime.ContentPart{{Kind: "audio"}},
		}})
	}
	if tr.Text != "" {
		out = append(out, realtime.ServerEvent{TranscriptionDelta: &realtime.TranscriptionDelta{
			ItemID: st.id,
			Delta:  tr.Text,
		}})
	}
	if finished {
		out = append(out, realtime.ServerEvent{TranscriptionDone: &realtime.TranscriptionDone{
			ItemID:     st.id,
			Transcript: full,
		}})
	}
	return out
}

func (t *transport) modelTurn(content *genai.Content) []realtime.ServerEvent {
	var out []realtime.ServerEvent
	for _, part := range content.Parts {
		if part == nil {
			continue
		}
		if part.InlineData != nil && strings.HasPrefix(part.InlineData.MIMEType, "audio/") {
			if t.sink != nil {
				if err := t.sink.WriteAudio(part.InlineData.MIMEType, part.InlineData.Data); err != nil {
					log.Warn().Err(err).Msg("writing remote audio to sink")
				}
			}
			continue
		}
		if part.Text != "" {
			out = append(out, t.modelText(part.Text)...)
		}
	}
	return out
}

// modelText folds streamed text parts into one item: history-added for the
// first fragment, authoritative snapshots afterwards.
func (t *transport) modelText(text string) []realtime.ServerEvent {
	t.mu.Lock()
	st := t.modelItm
	if st == nil {
		st = &turnState{id: "assistant-" + uuid.NewString()}
		t.modelItm = st
	}
	st.text.WriteString(text)
	first := !st.announce
	st.announce = true
	full := st.text.String()
	t.mu.Unlock()

	item := &realtime.HistoryItem{
		ID:      st.id,
		Kind:    "message",
		Role:    "assistant",
		Content: []realtime.ContentPart{{Kind: "text", Text: full}},
	}
	if first {
		return []realtime.ServerEvent{{HistoryAdded: item}}
	}
	return []realtime.ServerEvent{{HistoryUpdated: []*realtime.HistoryItem{item}}}
}

// finishTurns finalizes any turn still open when the backend signals turn
// completion without a per-turn finished flag.
func (t *transport) finishTurns() []realtime.ServerEvent {
	t.mu.Lock()
	var open []*turnState
	for _, slot := range []**turnState{&t.userItem, &t.modelItm} {
		if st := *slot; st != nil && st.announce {
			open = append(open, st)
			*slot = nil
		}
	}
	t.mu.Unlock()

	var out []realtime.ServerEvent
	for _, st := range open {
		out = append(out, realtime.ServerEvent{TranscriptionDone: &realtime.TranscriptionDone{
			ItemID:     st.id,
			Transcript: st.text.String(),
		}})
	}
	return out
}

// functionCall surfaces a tool invocation. The transfer tool additionally
// becomes a handoff event carrying the conventional wire marker; every call
// is acknowledged so the session keeps moving.
func (t *transport) functionCall(fc *genai.FunctionCall) []realtime.ServerEvent {
	if fc == nil {
		return nil
	}
	args := ""
	if fc.Args != nil {
		args = encodeArgs(fc.Args)
	}
	out := []realtime.ServerEvent{{ToolStart: &realtime.ToolCall{Name: fc.Name, Arguments: args}}}

	if fc.Name == transferToolName {
		var params struct {
			AgentName string `mapstructure:"agent_name"`
		}
		if err := mapstructure.Decode(fc.Args, &params); err != nil || params.AgentName == "" {
			log.Warn().Err(err).Interface("args", fc.Args).Msg("transfer call names no agent")
		} else {
			out = append(out, realtime.ServerEvent{Handoff: &realtime.Handoff{
				Marker: realtime.TransferMarkerPrefix + params.AgentName,
			}})
		}
	}

	resp := map[string]any{"status": "ok"}
	if err := t.session.SendToolResponse(genai.LiveToolResponseInput{
		FunctionResponses: []*genai.FunctionResponse{{
			ID:       fc.ID,
			Name:     fc.Name,
			Response: resp,
		}},
	}); err != nil {
		log.Warn().Err(err).Str("tool", fc.Name).Msg("acknowledging tool call")
	}
	out = append(out, realtime.ServerEvent{ToolEnd: &realtime.ToolResult{
		Name:   fc.Name,
		Output: `{"status":"ok"}`,
	}})
	return out
}

func encodeArgs(args map[string]any) string {
	b, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	return string(b)
}
