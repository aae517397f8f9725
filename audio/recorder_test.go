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

package audio

import (
	"encoding/binary"
	"path/filepath"
	"testing"
	"time"

	"github.com/compasshq/compass/prefs"
	"github.com/compasshq/compass/realtime"
)

func TestRecorderCapturesOnlyWhileRecording(t *testing.T) {
	r := NewRecorder()

	if err := r.WriteAudio("audio/pcm;rate=24000", make([]byte, 100)); err != nil {
		t.Fatalf("WriteAudio() error: %v", err)
	}
	if r.Len() != 0 {
		t.Error("stopped recorder captured audio")
	}

	r.Start()
	if err := r.WriteAudio("audio/pcm;rate=24000", make([]byte, 100)); err != nil {
		t.Fatalf("WriteAudio() error: %v", err)
	}
	r.Stop()
	if err := r.WriteAudio("audio/pcm;rate=24000", make([]byte, 100)); err != nil {
		t.Fatalf("WriteAudio() error: %v", err)
	}
	if got := r.Len(); got != 100 {
		t.Errorf("Len() = %d, want 100", got)
	}
}

func TestRecorderBufferCap(t *testing.T) {
	r := NewRecorder(WithMaxBytes(150))
	r.Start()
	r.WriteAudio("audio/pcm;rate=24000", make([]byte, 100))
	r.WriteAudio("audio/pcm;rate=24000", make([]byte, 100)) // over cap, dropped
	if got := r.Len(); got != 100 {
		t.Errorf("Len() = %d, want 100 (second chunk dropped)", got)
	}
}

func TestRecorderWAV(t *testing.T) {
	r := NewRecorder()
	r.Start()
	pcm := make([]byte, 48000) // one second at 24kHz 16-bit mono
	r.WriteAudio("audio/pcm;rate=24000", pcm)

	if got := r.Duration(); got != time.Second {
		t.Errorf("Duration() = %v, want 1s", got)
	}

	wav := r.WAV()
	if len(wav) != 44+len(pcm) {
		t.Fatalf("WAV length = %d, want %d", len(wav), 44+len(pcm))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Error("WAV missing RIFF/WAVE magic")
	}
	if rate := binary.LittleEndian.Uint32(wav[24:28]); rate != 24000 {
		t.Errorf("WAV sample rate = %d, want 24000", rate)
	}
	if size := binary.LittleEndian.Uint32(wav[40:44]); int(size) != len(pcm) {
		t.Errorf("WAV data size = %d, want %d", size, len(pcm))
	}

	r.Reset()
	if r.Len() != 0 {
		t.Error("Reset() did not discard audio")
	}
}

func TestSampleRateFromMIME(t *testing.T) {
	tests := []struct {
		mime string
		want int
	}{
		{"audio/pcm;rate=24000", 24000},
		{"audio/pcm; rate=16000", 16000},
		{"audio/pcm", defaultSampleRate},
		{"", defaultSampleRate},
		{"audio/pcm;rate=bogus", defaultSampleRate},
	}
	for _, tt := range tests {
		if got := sampleRateFromMIME(tt.mime); got != tt.want {
			t.Errorf("sampleRateFromMIME(%q) = %d, want %d", tt.mime, got, tt.want)
		}
	}
}

type recordingMuter struct{ calls []bool }

func (m *recordingMuter) Mute(muted bool) error {
	m.calls = append(m.calls, muted)
	return nil
}

func TestManagerRecordingFollowsStatus(t *testing.T) {
	rec := NewRecorder()
	m := NewManager(rec, nil, nil)

	m.OnStatus(realtime.StatusConnected)
	rec.WriteAudio("audio/pcm;rate=24000", make([]byte, 10))
	m.OnStatus(realtime.StatusDisconnected)
	rec.WriteAudio("audio/pcm;rate=24000", make([]byte, 10))

	if got := rec.Len(); got != 10 {
		t.Errorf("Len() = %d, want capture only while CONNECTED", got)
	}
}

func TestManagerPlaybackPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	p, err := prefs.Open(path)
	if err != nil {
		t.Fatalf("prefs.Open() error: %v", err)
	}

	muter := &recordingMuter{}
	m := NewManager(NewRecorder(), muter, p)
	if !m.PlaybackEnabled() {
		t.Error("playback should default to enabled")
	}
	if len(muter.calls) != 1 || muter.calls[0] {
		t.Errorf("initial mute calls = %v, want [false]", muter.calls)
	}

	if err := m.SetPlaybackEnabled(false); err != nil {
		t.Fatalf("SetPlaybackEnabled() error: %v", err)
	}
	if got := muter.calls[len(muter.calls)-1]; !got {
		t.Error("disabling playback did not mute")
	}

	// The preference survives a fresh manager over the same store.
	p2, err := prefs.Open(path)
	if err != nil {
		t.Fatalf("prefs.Open() reload error: %v", err)
	}
	m2 := NewManager(NewRecorder(), &recordingMuter{}, p2)
	if m2.PlaybackEnabled() {
		t.Error("playback preference did not persist across sessions")
	}
}
