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

// Package configsync keeps the persisted assistant configuration and the
// live session's protocol-level settings consistent.
//
// Settings changes apply optimistically: the cached view mutates first, a
// live voice/speed change is pushed to the open session fire-and-forget, and
// the persisted write follows. On a failed write the cache rolls back to the
// last store-confirmed value and the failure surfaces through the notify
// callback.
package configsync

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/compasshq/compass/assistant"
	"github.com/compasshq/compass/realtime"
)

// Session is the live-session surface the sync pushes audio settings to.
type Session interface {
	Status() realtime.Status
	UpdateSessionConfig(realtime.SessionConfig) error
}

// Store is the persisted backend for assistant records.
type Store interface {
	GetAssistant(ctx context.Context, id string) (*assistant.Assistant, error)
	UpdateAssistant(ctx context.Context, a *assistant.Assistant) error
}

// Sync holds the read-through cached assistant with optimistic overrides
// pending store confirmation.
type Sync struct {
	store   Store
	session Session
	notify  func(error)

	mu        sync.Mutex
	cached    assistant.Assistant
	confirmed assistant.Assistant
	loaded    bool
}

// Option configures a Sync.
type Option func(*Sync)

// WithFailureNotify registers the callback surfacing failed persisted
// writes, typically a transient UI notice.
func WithFailureNotify(fn func(error)) Option {
	return func(s *Sync) { s.notify = fn }
}

// New creates a sync over store pushing live changes to session. A nil
// session only persists.
func New(store Store, session Session, opts ...Option) *Sync {
	s := &Sync{store: store, session: session}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the assistant into the cache, discarding any pending optimistic
// overrides.
func (s *Sync) Load(ctx context.Context, id string) error {
	a, err := s.store.GetAssistant(ctx, id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cached = *a
	s.confirmed = *a
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Cached returns the current local view, optimistic overrides included.
func (s *Sync) Cached() assistant.Assistant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cached
}

// SetVoice changes the assistant's voice. A connected session picks the new
// voice up without reconnecting.
func (s *Sync) SetVoice(ctx context.Context, voice string) error {
	return s.apply(ctx, func(a *assistant.Assistant) { a.Voice = voice }, true)
}

// SetSpeed changes the speaking speed. A connected session picks the new
// speed up without reconnecting.
func (s *Sync) SetSpeed(ctx context.Context, speed float64) error {
	return s.apply(ctx, func(a *assistant.Assistant) { a.Speed = speed }, true)
}

// SetModel changes the model; takes effect on the next connection.
func (s *Sync) SetModel(ctx context.Context, model string) error {
	return s.apply(ctx, func(a *assistant.Assistant) { a.Model = model }, false)
}

// SetTemperature changes the sampling temperature; takes effect on the next
// connection.
func (s *Sync) SetTemperature(ctx context.Context, temperature float64) error {
	return s.apply(ctx, func(a *assistant.Assistant) { a.Temperature = temperature }, false)
}

// SetMaxTokens changes the token budget; takes effect on the next
// connection.
func (s *Sync) SetMaxTokens(ctx context.Context, maxTokens int) error {
	return s.apply(ctx, func(a *assistant.Assistant) { a.MaxTokens = maxTokens }, false)
}

// SetActive toggles the assistant's availability.
func (s *Sync) SetActive(ctx context.Context, active bool) error {
	return s.apply(ctx, func(a *assistant.Assistant) { a.IsActive = active }, false)
}

func (s *Sync) apply(ctx context.Context, mutate func(*assistant.Assistant), live bool) error {
	s.mu.Lock()
	mutate(&s.cached)
	snapshot := s.cached
	s.mu.Unlock()

	if live && s.session != nil && s.session.Status() == realtime.StatusConnected {
		// Fire-and-forget: no acknowledgement is awaited, rapid changes
		// resolve last-sent-wins at the transport.
		if err := s.session.UpdateSessionConfig(realtime.SessionConfig{
			Voice: snapshot.Voice,
			Speed: snapshot.Speed,
		}); err != nil {
			log.Warn().Err(err).Msg("pushing live config update")
		}
	}

	if err := s.store.UpdateAssistant(ctx, &snapshot); err != nil {
		s.mu.Lock()
		s.cached = s.confirmed
		s.mu.Unlock()
		if s.notify != nil {
			s.notify(err)
		}
		return err
	}

	s.mu.Lock()
	s.confirmed = snapshot
	s.mu.Unlock()
	return nil
}
