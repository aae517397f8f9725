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

// Package transcript holds the ordered, mutable log of conversation items
// for a single interview session. It is the single source of truth for what
// the user sees: rendering is a pure projection over the visible items in
// insertion order.
package transcript

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const timestampLayout = "15:04:05.000"

// Store is an ordered upsert log of transcript items keyed by item identity.
//
// Item IDs are unique across the store's lifetime. Updates are applied by
// identity lookup, and an update may arrive before the corresponding add on
// some transports, so update operations create the item when it is missing.
//
// Insertion order is temporal order of arrival and is used directly as chat
// order; no operation reorders existing items.
type Store struct {
	mu           sync.Mutex
	items        []*Item
	byID         map[string]*Item
	expandCrumbs bool

	// now is replaceable for tests.
	now func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithExpandedBreadcrumbs makes new breadcrumbs start expanded, typically
// from the persisted UI preference.
func WithExpandedBreadcrumbs(expanded bool) StoreOption {
	return func(s *Store) { s.expandCrumbs = expanded }
}

// NewStore creates an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		byID: make(map[string]*Item),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddMessage inserts a new MESSAGE item. It is a no-op if itemID is already
// present, so an optimistic local insert and a transport echo of the same
// logical turn never produce duplicate bubbles.
func (s *Store) AddMessage(itemID string, role Role, text string, hidden bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[itemID]; ok {
		return
	}
	s.insertLocked(&Item{
		ID:     itemID,
		Type:   ItemTypeMessage,
		Role:   role,
		Title:  text,
		Status: StatusInProgress,
		Hidden: hidden,
	})
}

// UpdateMessage sets or extends the text of the item with itemID. When delta
// is true the text is appended to the existing title; otherwise it replaces
// it. A missing item is created rather than treated as an error: streamed
// deltas can precede the add event on some transports.
func (s *Store) UpdateMessage(itemID, text string, delta bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.byID[itemID]
	if !ok {
		s.insertLocked(&Item{
			ID:     itemID,
			Type:   ItemTypeMessage,
			Title:  text,
			Status: StatusInProgress,
		})
		return
	}
	if delta {
		it.Title += text
	} else {
		it.Title = text
	}
}

// AddBreadcrumb inserts a BREADCRUMB item and returns its generated ID. New
// breadcrumbs start collapsed unless the store was created with
// WithExpandedBreadcrumbs.
func (s *Store) AddBreadcrumb(title string, data map[string]any) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := "breadcrumb-" + uuid.NewString()
	s.insertLocked(&Item{
		ID:       id,
		Type:     ItemTypeBreadcrumb,
		Title:    title,
		Data:     data,
		Expanded: s.expandCrumbs && data != nil,
		Status:   StatusDone,
	})
	return id
}

// ToggleExpand flips the expanded flag for a breadcrumb carrying data.
func (s *Store) ToggleExpand(itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.byID[itemID]
	if !ok || it.Type != ItemTypeBreadcrumb || it.Data == nil {
		return
	}
	it.Expanded = !it.Expanded
}

// SetStatus marks the item's streaming status, typically DONE when
// transcription finalizes. Unknown IDs are ignored.
func (s *Store) SetStatus(itemID string, status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := s.byID[itemID]; ok {
		it.Status = status
	}
}

// SetHidden toggles render suppression for simulated turns that should not
// appear twice.
func (s *Store) SetHidden(itemID string, hidden bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := s.byID[itemID]; ok {
		it.Hidden = hidden
	}
}

// Len returns the total number of items, hidden included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Items returns a snapshot of all items in insertion order.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.items))
	for i, it := range s.items {
		out[i] = *it
	}
	return out
}

// Visible returns a snapshot of renderable items in insertion order.
func (s *Store) Visible() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, 0, len(s.items))
	for _, it := range s.items {
		if !it.Hidden {
			out = append(out, *it)
		}
	}
	return out
}

// Get returns a copy of the item with itemID.
func (s *Store) Get(itemID string) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := s.byID[itemID]; ok {
		return *it, true
	}
	return Item{}, false
}

func (s *Store) insertLocked(it *Item) {
	now := s.now()
	it.CreatedAt = now
	it.Timestamp = now.Format(timestampLayout)
	s.items = append(s.items, it)
	s.byID[it.ID] = it
}
