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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compasshq/compass/assistant"
	"github.com/compasshq/compass/server/routers"
)

type fakeMinter struct {
	token string
	err   error
}

func (f *fakeMinter) Mint(context.Context) (string, error) { return f.token, f.err }

func newTestServer(t *testing.T, minter Minter) (*httptest.Server, *assistant.Store) {
	t.Helper()
	store, err := assistant.Open(":memory:")
	require.NoError(t, err)
	router := routers.NewRouter(NewCredentials(minter), NewAssistants(store))
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts, store
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestMintCredential(t *testing.T) {
	ts, _ := newTestServer(t, &fakeMinter{token: "ek-abc"})

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/realtime/credentials", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Value string `json:"value"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ek-abc", body.Value)
}

func TestMintCredentialUpstreamFailure(t *testing.T) {
	ts, _ := newTestServer(t, &fakeMinter{err: errors.New("upstream down")})

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/realtime/credentials", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestAssistantLifecycle(t *testing.T) {
	ts, _ := newTestServer(t, &fakeMinter{token: "ek"})

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/assistants", map[string]any{
		"Name": "Backend Interviewer", "Voice": "alloy", "Speed": 1.0,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created assistant.Assistant
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created.ID)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/assistants/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	created.Voice = "echo"
	resp = doJSON(t, http.MethodPut, ts.URL+"/api/assistants/"+created.ID, created)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/assistants/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/assistants", map[string]any{"Voice": "alloy"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "nameless assistant should be rejected")
}

func TestAgentLifecycle(t *testing.T) {
	ts, store := newTestServer(t, &fakeMinter{token: "ek"})
	a := &assistant.Assistant{Name: "Interviewer"}
	require.NoError(t, store.CreateAssistant(context.Background(), a))

	var ids []string
	for _, name := range []string{"Screener", "Tech Lead"} {
		resp := doJSON(t, http.MethodPost, ts.URL+"/api/assistants/"+a.ID+"/agents", map[string]any{
			"Name": name, "Instruction": "Interview.",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var ag assistant.Agent
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&ag))
		ids = append(ids, ag.ID)
	}

	resp := doJSON(t, http.MethodPut, ts.URL+"/api/assistants/"+a.ID+"/agents/order", map[string]any{
		"agentIds": []string{ids[1], ids[0]},
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/assistants/"+a.ID+"/agents", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var agents []assistant.Agent
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&agents))
	require.Len(t, agents, 2)
	assert.Equal(t, "Tech Lead", agents[0].Name)
	assert.Equal(t, 1, agents[0].Ordinal)

	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/agents/"+ids[0], nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/agents/"+ids[0], nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
