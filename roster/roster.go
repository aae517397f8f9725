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

// Package roster compiles the persisted agent definitions of an assistant
// into the handoff graph used to open a realtime session.
package roster

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/google/uuid"
)

// Definition is one persisted agent record, as stored with the assistant.
type Definition struct {
	// ID is the stable record identity. The wire-safe name derived from
	// Name is a presentation detail only; handoff resolution prefers ID.
	ID string

	// Name is the display label, unique within an assistant.
	Name string

	// Instruction is the full behavioral prompt.
	Instruction string

	// HandoffDescription tells peers when to transfer to this agent.
	HandoffDescription string

	// Order defines the default activation sequence, 1-based and
	// contiguous within an assistant.
	Order int
}

// Agent is one node of the constructed handoff graph.
type Agent struct {
	ID                 string
	Name               string
	WireName           string
	Instruction        string
	HandoffDescription string
	Voice              string

	// Handoffs holds every other agent in the graph; any agent may
	// transfer to any other agent at any time.
	Handoffs []*Agent
}

// Graph is a fully connected handoff graph with a designated root.
type Graph struct {
	agents []*Agent
}

// WireName normalizes a display name into a token the transport's naming
// protocol accepts. The transform is reversible for names that contain no
// underscores of their own.
func WireName(display string) string {
	return strings.ReplaceAll(strings.TrimSpace(display), " ", "_")
}

// DisplayName undoes WireName for tokens arriving off the wire.
func DisplayName(wire string) string {
	return strings.ReplaceAll(wire, "_", " ")
}

const defaultInstructionFormat = "You are %s, a professional interviewer for this role. " +
	"Greet the candidate, ask one question at a time, and keep the conversation focused on their experience."

// Build constructs the handoff graph for an assistant.
//
// Definitions are taken in Order-ascending sequence (ties keep storage
// order). The agent whose display name matches activeName becomes root; a
// stale activeName silently falls back to the first agent, since a valid
// session must always be obtainable. Given no definitions at all, a single
// default agent is synthesized from the assistant's own name so a session
// can still start.
func Build(defs []Definition, assistantName, voice, activeName string) *Graph {
	sorted := make([]Definition, len(defs))
	copy(sorted, defs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	if len(sorted) == 0 {
		sorted = []Definition{{
			ID:          uuid.NewString(),
			Name:        assistantName,
			Instruction: fmt.Sprintf(defaultInstructionFormat, assistantName),
			Order:       1,
		}}
	}

	agents := make([]*Agent, len(sorted))
	for i, d := range sorted {
		agents[i] = &Agent{
			ID:                 d.ID,
			Name:               d.Name,
			WireName:           WireName(d.Name),
			Instruction:        d.Instruction,
			HandoffDescription: d.HandoffDescription,
			Voice:              voice,
		}
	}
	for _, a := range agents {
		for _, peer := range agents {
			if peer != a {
				a.Handoffs = append(a.Handoffs, peer)
			}
		}
	}

	g := &Graph{agents: agents}
	g.promote(activeName)
	return g
}

// promote moves the agent named name (display form) to position 0. Unknown
// names leave the graph untouched.
func (g *Graph) promote(name string) {
	for i, a := range g.agents {
		if a.Name == name {
			if i != 0 {
				g.agents = append(g.agents[:i], g.agents[i+1:]...)
				g.agents = append([]*Agent{a}, g.agents...)
			}
			return
		}
	}
}

// Root returns the agent designated active at connection time.
func (g *Graph) Root() *Agent {
	return g.agents[0]
}

// Agents returns the graph's agents, root first.
func (g *Graph) Agents() []*Agent {
	return g.agents
}

// Len returns the number of agents in the graph.
func (g *Graph) Len() int { return len(g.agents) }

// ByWireName resolves a wire-safe token to its agent.
func (g *Graph) ByWireName(wire string) (*Agent, bool) {
	for _, a := range g.agents {
		if a.WireName == wire {
			return a, true
		}
	}
	return nil, false
}

// DisplayNameFor translates a wire token back to its display form, preferring
// the graph's own records over the naive transform.
func (g *Graph) DisplayNameFor(wire string) string {
	if a, ok := g.ByWireName(wire); ok {
		return a.Name
	}
	return DisplayName(wire)
}

// Prompt source follows the transfer instructions the conversational backend
// expects alongside its transfer_to_agent tool.
const handoffInstructionTemplate = `You have a list of other agents to transfer to:
{{range .Targets}}
Agent name: {{.WireName}}
Agent description: {{.HandoffDescription}}
{{end}}
If another agent is better suited for the current stage of the interview
according to its description, call 'transfer_to_agent' with that agent's name
to hand the conversation to it. When transferring, do not generate any text
other than the function call.
`

var handoffTmpl = template.Must(template.New("handoff_prompt").Parse(handoffInstructionTemplate))

// SystemInstruction returns the agent's full prompt: its own instruction plus
// the transfer instructions naming its peers. Agents without peers get the
// bare instruction.
func (a *Agent) SystemInstruction() (string, error) {
	if len(a.Handoffs) == 0 {
		return a.Instruction, nil
	}
	var buf bytes.Buffer
	if err := handoffTmpl.Execute(&buf, struct{ Targets []*Agent }{Targets: a.Handoffs}); err != nil {
		return "", fmt.Errorf("rendering handoff instructions for %q: %w", a.Name, err)
	}
	return a.Instruction + "\n\n" + buf.String(), nil
}
