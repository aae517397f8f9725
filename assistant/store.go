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

package assistant

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/compasshq/compass/roster"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("assistant: record not found")

// Store is the persisted backend for assistants and agents.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if necessary) the store at path. ":memory:" gives an
// ephemeral store for tests.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("opening assistant store at %q: %w", path, err)
	}
	if err := db.AutoMigrate(&Assistant{}, &Agent{}); err != nil {
		return nil, fmt.Errorf("migrating assistant store: %w", err)
	}
	return &Store{db: db}, nil
}

// CreateAssistant inserts a new assistant, assigning an ID when absent.
func (s *Store) CreateAssistant(ctx context.Context, a *Assistant) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("creating assistant %q: %w", a.Name, err)
	}
	return nil
}

// GetAssistant loads an assistant by id.
func (s *Store) GetAssistant(ctx context.Context, id string) (*Assistant, error) {
	var a Assistant
	err := s.db.WithContext(ctx).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading assistant %q: %w", id, err)
	}
	return &a, nil
}

// UpdateAssistant saves the full assistant record.
func (s *Store) UpdateAssistant(ctx context.Context, a *Assistant) error {
	res := s.db.WithContext(ctx).Model(&Assistant{}).Where("id = ?", a.ID).Updates(map[string]any{
		"name":        a.Name,
		"model":       a.Model,
		"temperature": a.Temperature,
		"max_tokens":  a.MaxTokens,
		"voice":       a.Voice,
		"speed":       a.Speed,
		"is_active":   a.IsActive,
	})
	if res.Error != nil {
		return fmt.Errorf("updating assistant %q: %w", a.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateAgent appends an agent at the end of the assistant's activation
// order, assigning an ID when absent.
func (s *Store) CreateAgent(ctx context.Context, ag *Agent) error {
	if ag.ID == "" {
		ag.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var max int
		if err := tx.Model(&Agent{}).Where("assistant_id = ?", ag.AssistantID).
			Select("COALESCE(MAX(ordinal), 0)").Scan(&max).Error; err != nil {
			return fmt.Errorf("finding next ordinal: %w", err)
		}
		ag.Ordinal = max + 1
		if err := tx.Create(ag).Error; err != nil {
			return fmt.Errorf("creating agent %q: %w", ag.Name, err)
		}
		return nil
	})
}

// UpdateAgent saves the agent's editable fields; ordering changes go through
// ReorderAgents.
func (s *Store) UpdateAgent(ctx context.Context, ag *Agent) error {
	res := s.db.WithContext(ctx).Model(&Agent{}).Where("id = ?", ag.ID).Updates(map[string]any{
		"name":                ag.Name,
		"instruction":         ag.Instruction,
		"handoff_description": ag.HandoffDescription,
	})
	if res.Error != nil {
		return fmt.Errorf("updating agent %q: %w", ag.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAgent removes an agent and compacts the assistant's ordinals back to
// a contiguous 1..n sequence.
func (s *Store) DeleteAgent(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ag Agent
		if err := tx.First(&ag, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Delete(&Agent{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("deleting agent %q: %w", id, err)
		}
		return compactOrdinals(tx, ag.AssistantID)
	})
}

// ReorderAgents rewrites the assistant's activation order to match ids,
// which must be a permutation of the assistant's current agents.
func (s *Store) ReorderAgents(ctx context.Context, assistantID string, ids []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current []Agent
		if err := tx.Where("assistant_id = ?", assistantID).Find(&current).Error; err != nil {
			return err
		}
		if len(current) != len(ids) {
			return fmt.Errorf("reorder lists %d agents, assistant has %d", len(ids), len(current))
		}
		known := make(map[string]bool, len(current))
		for _, ag := range current {
			known[ag.ID] = true
		}
		for i, id := range ids {
			if !known[id] {
				return fmt.Errorf("reorder names unknown agent %q: %w", id, ErrNotFound)
			}
			if err := tx.Model(&Agent{}).Where("id = ?", id).Update("ordinal", i+1).Error; err != nil {
				return fmt.Errorf("assigning order to agent %q: %w", id, err)
			}
		}
		return nil
	})
}

// ListAgents returns the assistant's agents in activation order.
func (s *Store) ListAgents(ctx context.Context, assistantID string) ([]Agent, error) {
	var agents []Agent
	if err := s.db.WithContext(ctx).Where("assistant_id = ?", assistantID).
		Order("ordinal ASC").Find(&agents).Error; err != nil {
		return nil, fmt.Errorf("listing agents for assistant %q: %w", assistantID, err)
	}
	return agents, nil
}

// Definitions projects the assistant's agents into roster definitions.
func (s *Store) Definitions(ctx context.Context, assistantID string) ([]roster.Definition, error) {
	agents, err := s.ListAgents(ctx, assistantID)
	if err != nil {
		return nil, err
	}
	defs := make([]roster.Definition, len(agents))
	for i, ag := range agents {
		defs[i] = roster.Definition{
			ID:                 ag.ID,
			Name:               ag.Name,
			Instruction:        ag.Instruction,
			HandoffDescription: ag.HandoffDescription,
			Order:              ag.Ordinal,
		}
	}
	return defs, nil
}

func compactOrdinals(tx *gorm.DB, assistantID string) error {
	var agents []Agent
	if err := tx.Where("assistant_id = ?", assistantID).Order("ordinal ASC").Find(&agents).Error; err != nil {
		return err
	}
	for i, ag := range agents {
		if ag.Ordinal == i+1 {
			continue
		}
		if err := tx.Model(&Agent{}).Where("id = ?", ag.ID).Update("ordinal", i+1).Error; err != nil {
			return fmt.Errorf("compacting ordinal for agent %q: %w", ag.ID, err)
		}
	}
	return nil
}
