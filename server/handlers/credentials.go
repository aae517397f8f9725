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

// Package handlers implements the credential proxy and the assistant/agent
// REST surface.
package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/compasshq/compass/server/routers"
)

// Minter issues short-lived transport credentials from a server-held key.
type Minter interface {
	Mint(ctx context.Context) (string, error)
}

// Credentials serves the ephemeral credential endpoint.
type Credentials struct {
	minter Minter
}

// NewCredentials creates the credential handler.
func NewCredentials(minter Minter) *Credentials {
	return &Credentials{minter: minter}
}

// Routes implements routers.Router.
func (h *Credentials) Routes() routers.Routes {
	return routers.Routes{
		{Name: "MintCredential", Method: http.MethodGet, Pattern: "/api/realtime/credentials", HandlerFunc: h.mint},
	}
}

type credentialBody struct {
	Value string `json:"value"`
}

func (h *Credentials) mint(w http.ResponseWriter, r *http.Request) {
	token, err := h.minter.Mint(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("minting ephemeral credential")
		writeError(w, http.StatusBadGateway, "credential issuance failed")
		return
	}
	writeJSON(w, http.StatusOK, credentialBody{Value: token})
}
