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

// Package realtime owns the live connection to the conversational backend:
// the session controller state machine and the reconciler that turns
// transport events into transcript mutations.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/compasshq/compass/roster"
)

// Status is the connection state of a Controller.
type Status string

const (
	StatusDisconnected Status = "DISCONNECTED"
	StatusConnecting   Status = "CONNECTING"
	StatusConnected    Status = "CONNECTED"
)

var (
	// ErrAlreadyConnected is returned by Connect when a session already
	// exists. It signals the guarded no-op, not a failure: the existing
	// session is left untouched and callers may freely ignore it.
	ErrAlreadyConnected = errors.New("realtime: session already exists")

	// ErrNotConnected is returned by operations that require a live
	// session. This is a caller error: check Status first.
	ErrNotConnected = errors.New("realtime: no live session")

	// ErrConnectAborted is returned by Connect when a disconnect raced
	// the in-flight credential fetch or dial; the stale credential or
	// half-open transport is discarded, never used.
	ErrConnectAborted = errors.New("realtime: connect aborted by disconnect")
)

// Controller owns at most one live transport session. It is an explicitly
// owned handle: the UI scope that creates it controls its lifetime and must
// call Disconnect before discarding it.
//
// There is no reconnecting state. Any drop returns the controller to
// DISCONNECTED and a new Connect starts from scratch.
type Controller struct {
	dialer  Dialer
	creds   CredentialProvider
	handler func(ServerEvent)

	onStatus  func(Status)
	onStopped func() // fires when a session's receive loop ends

	mu        sync.Mutex
	status    Status
	gen       uint64 // bumped on every disconnect; detects stale connects
	transport Transport
	muted     bool
	active    string // display name of the currently active agent
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithStatusCallback registers a callback invoked on every status change.
// The callback runs outside the controller's lock.
func WithStatusCallback(fn func(Status)) ControllerOption {
	return func(c *Controller) { c.onStatus = fn }
}

// WithEventHandler registers the consumer of server events, typically
// Reconciler.Handle.
func WithEventHandler(fn func(ServerEvent)) ControllerOption {
	return func(c *Controller) { c.handler = fn }
}

// WithStoppedCallback registers a callback invoked when a connected
// session's event stream ends for any reason.
func WithStoppedCallback(fn func()) ControllerOption {
	return func(c *Controller) { c.onStopped = fn }
}

// NewController creates a controller in the DISCONNECTED state.
func NewController(dialer Dialer, creds CredentialProvider, opts ...ControllerOption) *Controller {
	c := &Controller{
		dialer: dialer,
		creds:  creds,
		status: StatusDisconnected,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status returns the current connection state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// ActiveAgent returns the display name of the currently active agent.
func (c *Controller) ActiveAgent() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// SetActiveAgent records the currently active agent, typically from the
// reconciler's handoff callback.
func (c *Controller) SetActiveAgent(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = name
}

// Connect obtains a short-lived credential, dials the transport with the
// graph's root agent and transitions to CONNECTED.
//
// It is a guarded no-op when a session already exists, signalled by the
// benign ErrAlreadyConnected sentinel.
// A credential or dial failure returns the controller to DISCONNECTED. A
// Disconnect issued while the credential fetch or dial is still resolving
// wins: the late result is discarded and ErrConnectAborted returned.
func (c *Controller) Connect(ctx context.Context, graph *roster.Graph, sink AudioSink) error {
	c.mu.Lock()
	if c.status != StatusDisconnected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.status = StatusConnecting
	c.active = graph.Root().Name
	gen := c.gen
	c.mu.Unlock()
	c.notify(StatusConnecting)

	key, err := c.creds.EphemeralKey(ctx)
	if c.supersededAfter(gen) {
		return ErrConnectAborted
	}
	if err != nil {
		c.toDisconnected()
		return fmt.Errorf("fetching ephemeral credential: %w", err)
	}

	tr, err := c.dialer.Dial(ctx, key, graph, sink)
	if err != nil {
		if c.supersededAfter(gen) {
			return ErrConnectAborted
		}
		c.toDisconnected()
		return fmt.Errorf("dialing transport for agent %q: %w", graph.Root().Name, err)
	}

	// The staleness check and the commit are one critical section: a
	// disconnect landing after the dial must win the race, not be
	// overwritten by the commit.
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		if err := tr.Close(); err != nil {
			log.Warn().Err(err).Msg("closing superseded transport")
		}
		log.Info().Msg("discarding stale connect result after disconnect")
		return ErrConnectAborted
	}
	c.transport = tr
	c.status = StatusConnected
	muted := c.muted
	c.mu.Unlock()
	if muted {
		if err := tr.Mute(true); err != nil {
			log.Warn().Err(err).Msg("applying mute to new session")
		}
	}
	c.notify(StatusConnected)

	go c.receive(tr, gen)
	return nil
}

// Disconnect closes the transport, discards the session and transitions to
// DISCONNECTED. It is unconditionally safe and idempotent, including while a
// Connect is still resolving.
func (c *Controller) Disconnect() {
	c.mu.Lock()
	tr := c.transport
	c.transport = nil
	c.gen++
	changed := c.status != StatusDisconnected
	c.status = StatusDisconnected
	c.active = ""
	c.mu.Unlock()

	if tr != nil {
		if err := tr.Close(); err != nil {
			log.Warn().Err(err).Msg("closing transport")
		}
	}
	if changed {
		c.notify(StatusDisconnected)
	}
}

// SendUserText forwards text as a user turn. Requires a live session.
func (c *Controller) SendUserText(text string) error {
	tr, err := c.liveTransport()
	if err != nil {
		return err
	}
	return tr.Send(ClientEvent{Text: text})
}

// SendEvent pushes a raw protocol event. Requires a live session; transport
// errors are logged and returned but are safe to ignore.
func (c *Controller) SendEvent(raw any) error {
	tr, err := c.liveTransport()
	if err != nil {
		return err
	}
	if err := tr.Send(ClientEvent{Raw: raw}); err != nil {
		log.Warn().Err(err).Msg("sending raw protocol event")
		return err
	}
	return nil
}

// UpdateSessionConfig pushes new audio characteristics to the live session.
// The push is fire-and-forget: no acknowledgement is awaited, and rapid
// successive updates resolve last-sent-wins at the transport.
func (c *Controller) UpdateSessionConfig(cfg SessionConfig) error {
	tr, err := c.liveTransport()
	if err != nil {
		return err
	}
	if err := tr.Send(ClientEvent{Config: &cfg}); err != nil {
		log.Warn().Err(err).Str("voice", cfg.Voice).Float64("speed", cfg.Speed).
			Msg("pushing session config update")
	}
	return nil
}

// Interrupt requests the backend stop current output generation. Used before
// sending a new user turn to prevent overlapping responses. Requires a live
// session.
func (c *Controller) Interrupt() error {
	tr, err := c.liveTransport()
	if err != nil {
		return err
	}
	return tr.Send(ClientEvent{Interrupt: true})
}

// Mute toggles local audio muting. The flag is independent of connection
// state and is applied to the next session if none is live.
func (c *Controller) Mute(muted bool) error {
	c.mu.Lock()
	c.muted = muted
	tr := c.transport
	c.mu.Unlock()
	if tr == nil {
		return nil
	}
	return tr.Mute(muted)
}

// receive pumps server events into the handler until the transport's stream
// closes, then resets the controller if this session is still the live one.
func (c *Controller) receive(tr Transport, gen uint64) {
	for ev := range tr.Events() {
		if c.handler != nil {
			c.handler(ev)
		}
	}

	c.mu.Lock()
	stale := c.gen != gen
	if !stale {
		c.transport = nil
		c.gen++
		c.status = StatusDisconnected
		c.active = ""
	}
	c.mu.Unlock()
	if stale {
		return
	}
	log.Info().Msg("live session ended")
	c.notify(StatusDisconnected)
	if c.onStopped != nil {
		c.onStopped()
	}
}

// supersededAfter reports whether a disconnect happened since gen was
// captured.
func (c *Controller) supersededAfter(gen uint64) bool {
	c.mu.Lock()
	stale := c.gen != gen
	c.mu.Unlock()
	if !stale {
		return false
	}
	log.Info().Msg("discarding stale connect result after disconnect")
	return true
}

func (c *Controller) toDisconnected() {
	c.mu.Lock()
	c.status = StatusDisconnected
	c.active = ""
	c.mu.Unlock()
	c.notify(StatusDisconnected)
}

func (c *Controller) liveTransport() (Transport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transport == nil || c.status != StatusConnected {
		return nil, ErrNotConnected
	}
	return c.transport, nil
}

func (c *Controller) notify(s Status) {
	if c.onStatus != nil {
		c.onStatus(s)
	}
}
