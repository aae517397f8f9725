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

package roster

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func defs() []Definition {
	return []Definition{
		{ID: "a1", Name: "Screener", Instruction: "Screen the candidate.", HandoffDescription: "Initial screening.", Order: 1},
		{ID: "a2", Name: "Tech Lead", Instruction: "Go deep on technical skills.", HandoffDescription: "Technical deep dive.", Order: 2},
		{ID: "a3", Name: "Hiring Manager", Instruction: "Close the loop.", HandoffDescription: "Final conversation.", Order: 3},
	}
}

func TestBuildRootSelection(t *testing.T) {
	tests := []struct {
		name       string
		activeName string
		wantRoot   string
	}{
		{name: "first agent active", activeName: "Screener", wantRoot: "Screener"},
		{name: "middle agent promoted to root", activeName: "Tech Lead", wantRoot: "Tech Lead"},
		{name: "stale selection falls back to first by order", activeName: "Recruiter", wantRoot: "Screener"},
		{name: "empty selection falls back to first by order", activeName: "", wantRoot: "Screener"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Build(defs(), "Compass Interviewer", "alloy", tt.activeName)
			if got := g.Root().Name; got != tt.wantRoot {
				t.Errorf("Root().Name = %q, want %q", got, tt.wantRoot)
			}
			if g.Len() != 3 {
				t.Fatalf("Len() = %d, want 3", g.Len())
			}
		})
	}
}

func TestBuildFullyConnected(t *testing.T) {
	g := Build(defs(), "Compass Interviewer", "alloy", "Tech Lead")
	for _, a := range g.Agents() {
		if got := len(a.Handoffs); got != g.Len()-1 {
			t.Errorf("agent %q has %d handoffs, want %d", a.Name, got, g.Len()-1)
		}
		for _, h := range a.Handoffs {
			if h == a {
				t.Errorf("agent %q lists itself as a handoff target", a.Name)
			}
		}
		if a.Voice != "alloy" {
			t.Errorf("agent %q voice = %q, want shared assistant voice", a.Name, a.Voice)
		}
	}
}

func TestBuildWireNames(t *testing.T) {
	g := Build(defs(), "Compass Interviewer", "alloy", "Screener")
	var wires []string
	for _, a := range g.Agents() {
		wires = append(wires, a.WireName)
	}
	want := []string{"Screener", "Tech_Lead", "Hiring_Manager"}
	if diff := cmp.Diff(want, wires); diff != "" {
		t.Errorf("wire names mismatch (-want +got):\n%s", diff)
	}

	if got := g.DisplayNameFor("Tech_Lead"); got != "Tech Lead" {
		t.Errorf("DisplayNameFor(Tech_Lead) = %q, want %q", got, "Tech Lead")
	}
	// Tokens for agents no longer in the graph degrade to the naive transform.
	if got := g.DisplayNameFor("Retired_Agent"); got != "Retired Agent" {
		t.Errorf("DisplayNameFor(Retired_Agent) = %q, want %q", got, "Retired Agent")
	}
}

func TestBuildEmptyRosterSynthesizesDefault(t *testing.T) {
	g := Build(nil, "Compass Interviewer", "alloy", "")
	if g.Len() != 1 {
		t.Fatalf("Len() = %d, want exactly one synthetic agent", g.Len())
	}
	root := g.Root()
	if root.Name != "Compass Interviewer" {
		t.Errorf("synthetic agent name = %q, want assistant name", root.Name)
	}
	if root.Instruction == "" {
		t.Error("synthetic agent has no instruction")
	}
	if root.ID == "" {
		t.Error("synthetic agent has no stable ID")
	}
	if len(root.Handoffs) != 0 {
		t.Errorf("synthetic agent has %d handoffs, want 0", len(root.Handoffs))
	}
}

func TestBuildOrderTiesKeepStorageOrder(t *testing.T) {
	tied := []Definition{
		{ID: "b1", Name: "First Stored", Order: 1},
		{ID: "b2", Name: "Second Stored", Order: 1},
	}
	g := Build(tied, "Compass Interviewer", "alloy", "")
	if got := g.Root().Name; got != "First Stored" {
		t.Errorf("Root().Name = %q, want storage-order tiebreak %q", got, "First Stored")
	}
}

func TestSystemInstruction(t *testing.T) {
	g := Build(defs(), "Compass Interviewer", "alloy", "Screener")
	got, err := g.Root().SystemInstruction()
	if err != nil {
		t.Fatalf("SystemInstruction() error: %v", err)
	}
	if !strings.HasPrefix(got, "Screen the candidate.") {
		t.Errorf("instruction does not start with the agent's own prompt: %q", got)
	}
	for _, peer := range []string{"Tech_Lead", "Hiring_Manager"} {
		if !strings.Contains(got, peer) {
			t.Errorf("instruction does not name peer %q", peer)
		}
	}
	if strings.Contains(got, "Agent name: Screener\n") {
		t.Error("instruction names the agent itself as a transfer target")
	}

	solo := Build(nil, "Compass Interviewer", "alloy", "")
	bare, err := solo.Root().SystemInstruction()
	if err != nil {
		t.Fatalf("SystemInstruction() error: %v", err)
	}
	if strings.Contains(bare, "transfer_to_agent") {
		t.Error("solo agent instruction mentions transfers")
	}
}
