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

// Package audio manages capture of the session's remote audio stream and
// the playback preference gate.
package audio

import (
	"bytes"
	"encoding/binary"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultSampleRate = 24000
	defaultMaxBytes   = 10 * 1024 * 1024

	bytesPerSample = 2 // 16-bit mono PCM
)

// Recorder accumulates the remote media stream's PCM audio while a session
// is connected and frames it as a WAV file on demand. It implements the
// realtime audio sink.
type Recorder struct {
	mu         sync.Mutex
	recording  bool
	buf        bytes.Buffer
	sampleRate int
	maxBytes   int
	dropped    int
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithMaxBytes caps the capture buffer; chunks past the cap are dropped and
// counted rather than growing without bound.
func WithMaxBytes(n int) RecorderOption {
	return func(r *Recorder) { r.maxBytes = n }
}

// NewRecorder creates a stopped recorder.
func NewRecorder(opts ...RecorderOption) *Recorder {
	r := &Recorder{maxBytes: defaultMaxBytes}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins capturing. Audio written while stopped is discarded.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recording = true
}

// Stop ends capturing. The buffer is retained for WAV until Reset.
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recording = false
}

// Reset discards captured audio.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf.Reset()
	r.sampleRate = 0
	r.dropped = 0
}

// WriteAudio implements the realtime audio sink. The sample rate is taken
// from the first chunk's MIME type (e.g. "audio/pcm;rate=24000").
func (r *Recorder) WriteAudio(mimeType string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return nil
	}
	if r.sampleRate == 0 {
		r.sampleRate = sampleRateFromMIME(mimeType)
	}
	if r.buf.Len()+len(data) > r.maxBytes {
		r.dropped++
		if r.dropped == 1 {
			log.Warn().Int("maxBytes", r.maxBytes).Msg("recording buffer full, dropping audio")
		}
		return nil
	}
	r.buf.Write(data)
	return nil
}

// Len returns the number of captured PCM bytes.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Len()
}

// Duration returns the captured audio length.
func (r *Recorder) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	rate := r.sampleRate
	if rate == 0 {
		rate = defaultSampleRate
	}
	samples := r.buf.Len() / bytesPerSample
	return time.Duration(samples) * time.Second / time.Duration(rate)
}

// WAV returns the captured audio framed as a 16-bit mono PCM WAV file.
func (r *Recorder) WAV() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	rate := r.sampleRate
	if rate == 0 {
		rate = defaultSampleRate
	}
	pcm := r.buf.Bytes()

	var out bytes.Buffer
	out.Grow(44 + len(pcm))
	out.WriteString("RIFF")
	writeU32 := func(v uint32) { binary.Write(&out, binary.LittleEndian, v) }
	writeU16 := func(v uint16) { binary.Write(&out, binary.LittleEndian, v) }
	writeU32(uint32(36 + len(pcm)))
	out.WriteString("WAVE")
	out.WriteString("fmt ")
	writeU32(16)                           // fmt chunk size
	writeU16(1)                            // PCM
	writeU16(1)                            // mono
	writeU32(uint32(rate))                 // sample rate
	writeU32(uint32(rate * bytesPerSample)) // byte rate
	writeU16(bytesPerSample)               // block align
	writeU16(16)                           // bits per sample
	out.WriteString("data")
	writeU32(uint32(len(pcm)))
	out.Write(pcm)
	return out.Bytes()
}

func sampleRateFromMIME(mimeType string) int {
	for _, param := range strings.Split(mimeType, ";") {
		param = strings.TrimSpace(param)
		if rest, ok := strings.CutPrefix(param, "rate="); ok {
			if rate, err := strconv.Atoi(rest); err == nil && rate > 0 {
				return rate
			}
		}
	}
	return defaultSampleRate
}
