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

package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/compasshq/compass/assistant"
	"github.com/compasshq/compass/server/routers"
)

// Assistants serves assistant and agent CRUD over the persisted store.
type Assistants struct {
	store *assistant.Store
}

// NewAssistants creates the assistant handler.
func NewAssistants(store *assistant.Store) *Assistants {
	return &Assistants{store: store}
}

// Routes implements routers.Router.
func (h *Assistants) Routes() routers.Routes {
	return routers.Routes{
		{Name: "CreateAssistant", Method: http.MethodPost, Pattern: "/api/assistants", HandlerFunc: h.createAssistant},
		{Name: "GetAssistant", Method: http.MethodGet, Pattern: "/api/assistants/{id}", HandlerFunc: h.getAssistant},
		{Name: "UpdateAssistant", Method: http.MethodPut, Pattern: "/api/assistants/{id}", HandlerFunc: h.updateAssistant},
		{Name: "ListAgents", Method: http.MethodGet, Pattern: "/api/assistants/{id}/agents", HandlerFunc: h.listAgents},
		{Name: "CreateAgent", Method: http.MethodPost, Pattern: "/api/assistants/{id}/agents", HandlerFunc: h.createAgent},
		{Name: "ReorderAgents", Method: http.MethodPut, Pattern: "/api/assistants/{id}/agents/order", HandlerFunc: h.reorderAgents},
		{Name: "UpdateAgent", Method: http.MethodPut, Pattern: "/api/agents/{id}", HandlerFunc: h.updateAgent},
		{Name: "DeleteAgent", Method: http.MethodDelete, Pattern: "/api/agents/{id}", HandlerFunc: h.deleteAgent},
	}
}

func (h *Assistants) createAssistant(w http.ResponseWriter, r *http.Request) {
	var a assistant.Assistant
	if !decodeBody(w, r, &a) {
		return
	}
	if a.Name == "" {
		writeError(w, http.StatusBadRequest, "assistant name is required")
		return
	}
	if err := h.store.CreateAssistant(r.Context(), &a); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Assistants) getAssistant(w http.ResponseWriter, r *http.Request) {
	a, err := h.store.GetAssistant(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, assistant.ErrNotFound) {
		writeError(w, http.StatusNotFound, "assistant not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Assistants) updateAssistant(w http.ResponseWriter, r *http.Request) {
	var a assistant.Assistant
	if !decodeBody(w, r, &a) {
		return
	}
	a.ID = mux.Vars(r)["id"]
	err := h.store.UpdateAssistant(r.Context(), &a)
	if errors.Is(err, assistant.ErrNotFound) {
		writeError(w, http.StatusNotFound, "assistant not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Assistants) listAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.store.ListAgents(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, agents)
}

func (h *Assistants) createAgent(w http.ResponseWriter, r *http.Request) {
	var ag assistant.Agent
	if !decodeBody(w, r, &ag) {
		return
	}
	ag.AssistantID = mux.Vars(r)["id"]
	if ag.Name == "" {
		writeError(w, http.StatusBadRequest, "agent name is required")
		return
	}
	if err := h.store.CreateAgent(r.Context(), &ag); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, ag)
}

type reorderBody struct {
	AgentIDs []string `json:"agentIds"`
}

func (h *Assistants) reorderAgents(w http.ResponseWriter, r *http.Request) {
	var body reorderBody
	if !decodeBody(w, r, &body) {
		return
	}
	if err := h.store.ReorderAgents(r.Context(), mux.Vars(r)["id"], body.AgentIDs); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Assistants) updateAgent(w http.ResponseWriter, r *http.Request) {
	var ag assistant.Agent
	if !decodeBody(w, r, &ag) {
		return
	}
	ag.ID = mux.Vars(r)["id"]
	err := h.store.UpdateAgent(r.Context(), &ag)
	if errors.Is(err, assistant.ErrNotFound) {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ag)
}

func (h *Assistants) deleteAgent(w http.ResponseWriter, r *http.Request) {
	err := h.store.DeleteAgent(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, assistant.ErrNotFound) {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
