package audio

import (
	"github.com/rs/zerolog/log"

	"github.com/compasshq/compass/prefs"
	"github.com/compasshq/compass/realtime"
)

// Muter is the protocol-level mute surface, satisfied by the session
// controller.
type Muter interface {
	Mute(muted bool) error
}

// Manager owns the session's audio resources: it starts and stops the
// recorder on connection-state changes and gates playback. The playback
// preference persists across sessions in local device storage.
type Manager struct {
	recorder *Recorder
	muter    Muter
	prefs    *prefs.Prefs
	enabled  bool
}

// NewManager creates a manager around recorder. The stored playback
// preference (default on) is applied to muter immediately.
func NewManager(recorder *Recorder, muter Muter, p *prefs.Prefs) *Manager {
	m := &Manager{
		recorder: recorder,
		muter:    muter,
		prefs:    p,
		enabled:  true,
	}
	if p != nil {
		m.enabled = p.GetBool(prefs.KeyPlaybackEnabled, true)
	}
	if muter != nil {
		if err := muter.Mute(!m.enabled); err != nil {
			log.Warn().Err(err).Msg("applying stored playback preference")
		}
	}
	return m
}

// OnStatus tracks the controller's connection state: recording runs exactly
// while the session is CONNECTED. Wire it as the controller's status
// callback.
func (m *Manager) OnStatus(s realtime.Status) {
	switch s {
	case realtime.StatusConnected:
		m.recorder.Start()
	default:
		m.recorder.Stop()
	}
}

// PlaybackEnabled reports whether remote audio is audible.
func (m *Manager) PlaybackEnabled() bool {
	return m.enabled
}

// SetPlaybackEnabled toggles both the local mute flag and the
// protocol-level mute, and persists the choice.
func (m *Manager) SetPlaybackEnabled(enabled bool) error {
	m.enabled = enabled
	if m.muter != nil {
		if err := m.muter.Mute(!enabled); err != nil {
			return err
		}
	}
	if m.prefs != nil {
		if err := m.prefs.SetBool(prefs.KeyPlaybackEnabled, enabled); err != nil {
			return err
		}
	}
	return nil
}

// Close stops recording and releases the capture buffer. Call on teardown
// of the owning scope so media handles never leak across connect cycles.
func (m *Manager) Close() {
	m.recorder.Stop()
	m.recorder.Reset()
}
