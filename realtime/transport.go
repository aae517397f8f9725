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
	"context"

	"github.com/compasshq/compass/roster"
)

// CredentialProvider mints the short-lived secret used once to open a
// transport session. Implementations typically proxy a server-side endpoint
// so clients never hold long-lived API keys.
type CredentialProvider interface {
	EphemeralKey(ctx context.Context) (string, error)
}

// CredentialProviderFunc adapts a function to CredentialProvider.
type CredentialProviderFunc func(ctx context.Context) (string, error)

func (f CredentialProviderFunc) EphemeralKey(ctx context.Context) (string, error) {
	return f(ctx)
}

// AudioSink receives the remote media stream's decoded audio for recording
// and playback.
type AudioSink interface {
	// WriteAudio appends one chunk of audio in the given MIME type
	// (e.g. "audio/pcm;rate=24000").
	WriteAudio(mimeType string, data []byte) error
}

// Transport is the live bidirectional channel to the conversational backend.
// Events returns the stream of server events; the channel closes when the
// connection ends. Send and Mute are safe to call from the owning goroutine
// only; Close is idempotent.
type Transport interface {
	Send(ev ClientEvent) error
	Mute(muted bool) error
	Events() <-chan ServerEvent
	Close() error
}

// Dialer opens a Transport for the given root agent using a short-lived
// credential. The full graph is supplied so implementations can register
// every agent's handoff targets. Audio received from the backend is written
// to sink; a nil sink discards audio.
type Dialer interface {
	Dial(ctx context.Context, credential string, graph *roster.Graph, sink AudioSink) (Transport, error)
}
