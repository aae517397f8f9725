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
	"testing"

	"github.com/google/go-cmp/cmp"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) error: %v", err)
	}
	return s
}

func seedAssistant(t *testing.T, s *Store) *Assistant {
	t.Helper()
	a := &Assistant{
		Name:        "Backend Interviewer",
		Model:       "gemini-2.0-flash-live-001",
		Temperature: 0.8,
		MaxTokens:   4096,
		Voice:       "alloy",
		Speed:       1.0,
		IsActive:    true,
	}
	if err := s.CreateAssistant(context.Background(), a); err != nil {
		t.Fatalf("CreateAssistant() error: %v", err)
	}
	return a
}

func TestAssistantRoundTrip(t *testing.T) {
	s := openTestStore(t)
	a := seedAssistant(t, s)
	if a.ID == "" {
		t.Fatal("CreateAssistant did not assign an ID")
	}

	got, err := s.GetAssistant(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("GetAssistant() error: %v", err)
	}
	if got.Voice != "alloy" || got.Speed != 1.0 {
		t.Errorf("loaded assistant = %+v", got)
	}

	got.Voice = "echo"
	got.Speed = 1.25
	if err := s.UpdateAssistant(context.Background(), got); err != nil {
		t.Fatalf("UpdateAssistant() error: %v", err)
	}
	reloaded, err := s.GetAssistant(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("GetAssistant() error: %v", err)
	}
	if reloaded.Voice != "echo" || reloaded.Speed != 1.25 {
		t.Errorf("update not persisted: %+v", reloaded)
	}

	if _, err := s.GetAssistant(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAssistant(missing) = %v, want ErrNotFound", err)
	}
	if err := s.UpdateAssistant(context.Background(), &Assistant{ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateAssistant(missing) = %v, want ErrNotFound", err)
	}
}

func agentNames(t *testing.T, s *Store, assistantID string) []string {
	t.Helper()
	agents, err := s.ListAgents(context.Background(), assistantID)
	if err != nil {
		t.Fatalf("ListAgents() error: %v", err)
	}
	var names []string
	for _, ag := range agents {
		names = append(names, ag.Name)
	}
	return names
}

func TestAgentOrdering(t *testing.T) {
	s := openTestStore(t)
	a := seedAssistant(t, s)
	ctx := context.Background()

	var ids []string
	for _, name := range []string{"Screener", "Tech Lead", "Hiring Manager"} {
		ag := &Agent{AssistantID: a.ID, Name: name, Instruction: "Interview."}
		if err := s.CreateAgent(ctx, ag); err != nil {
			t.Fatalf("CreateAgent(%q) error: %v", name, err)
		}
		ids = append(ids, ag.ID)
	}

	agents, err := s.ListAgents(ctx, a.ID)
	if err != nil {
		t.Fatalf("ListAgents() error: %v", err)
	}
	for i, ag := range agents {
		if ag.Ordinal != i+1 {
			t.Errorf("agent %q ordinal = %d, want %d", ag.Name, ag.Ordinal, i+1)
		}
	}

	// Reorder: move Hiring Manager first.
	if err := s.ReorderAgents(ctx, a.ID, []string{ids[2], ids[0], ids[1]}); err != nil {
		t.Fatalf("ReorderAgents() error: %v", err)
	}
	want := []string{"Hiring Manager", "Screener", "Tech Lead"}
	if diff := cmp.Diff(want, agentNames(t, s, a.ID)); diff != "" {
		t.Errorf("order after reorder (-want +got):\n%s", diff)
	}

	// Delete the middle agent; ordinals compact contiguously.
	if err := s.DeleteAgent(ctx, ids[0]); err != nil {
		t.Fatalf("DeleteAgent() error: %v", err)
	}
	agents, _ = s.ListAgents(ctx, a.ID)
	if len(agents) != 2 {
		t.Fatalf("ListAgents() returned %d agents, want 2", len(agents))
	}
	for i, ag := range agents {
		if ag.Ordinal != i+1 {
			t.Errorf("agent %q ordinal = %d after delete, want %d", ag.Name, ag.Ordinal, i+1)
		}
	}

	if err := s.ReorderAgents(ctx, a.ID, []string{"missing", ids[1]}); err == nil {
		t.Error("ReorderAgents with unknown id succeeded")
	}
	if err := s.DeleteAgent(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteAgent(missing) = %v, want ErrNotFound", err)
	}
}

func TestDefinitions(t *testing.T) {
	s := openTestStore(t)
	a := seedAssistant(t, s)
	ctx := context.Background()

	for _, name := range []string{"Screener", "Tech Lead"} {
		ag := &Agent{AssistantID: a.ID, Name: name, Instruction: "Interview.", HandoffDescription: "When relevant."}
		if err := s.CreateAgent(ctx, ag); err != nil {
			t.Fatalf("CreateAgent(%q) error: %v", name, err)
		}
	}

	defs, err := s.Definitions(ctx, a.ID)
	if err != nil {
		t.Fatalf("Definitions() error: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("Definitions() returned %d, want 2", len(defs))
	}
	if defs[0].Name != "Screener" || defs[0].Order != 1 || defs[0].ID == "" {
		t.Errorf("defs[0] = %+v", defs[0])
	}
	if defs[1].Name != "Tech Lead" || defs[1].Order != 2 {
		t.Errorf("defs[1] = %+v", defs[1])
	}
}
