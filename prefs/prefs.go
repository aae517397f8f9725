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

// Package prefs stores durable client-local preferences under fixed string
// keys, outside the backend store.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Fixed preference keys.
const (
	KeyPlaybackEnabled     = "audioPlaybackEnabled"
	KeyBreadcrumbsExpanded = "breadcrumbsExpanded"
)

// Prefs is a small persisted key/value store backed by a JSON file. Missing
// files read as empty; every write persists immediately.
type Prefs struct {
	path string

	mu     sync.Mutex
	values map[string]bool
}

// DefaultPath returns the per-user preferences file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving user config dir: %w", err)
	}
	return filepath.Join(dir, "compass", "prefs.json"), nil
}

// Open loads the preferences at path, creating parent directories as needed
// on first write.
func Open(path string) (*Prefs, error) {
	p := &Prefs{path: path, values: make(map[string]bool)}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading prefs %q: %w", path, err)
	}
	if err := json.Unmarshal(data, &p.values); err != nil {
		// A corrupt file resets to defaults rather than blocking startup.
		p.values = make(map[string]bool)
	}
	return p, nil
}

// GetBool returns the stored value for key, or fallback when unset.
func (p *Prefs) GetBool(key string, fallback bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.values[key]; ok {
		return v
	}
	return fallback
}

// SetBool stores and persists the value for key.
func (p *Prefs) SetBool(key string, value bool) error {
	p.mu.Lock()
	p.values[key] = value
	data, err := json.MarshalIndent(p.values, "", "  ")
	p.mu.Unlock()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("creating prefs dir: %w", err)
	}
	if err := os.WriteFile(p.path, data, 0o644); err != nil {
		return fmt.Errorf("writing prefs %q: %w", p.path, err)
	}
	return nil
}
