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

package geminilive

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// Minter issues ephemeral auth tokens from a long-lived API key. It runs
// server-side only: clients receive the minted token and open the transport
// with it, never seeing the key itself.
type Minter struct {
	client *genai.Client
	ttl    time.Duration
}

// NewMinter creates a minter from the long-lived API key. ttl bounds the
// validity of each minted token; zero means one minute.
func NewMinter(ctx context.Context, apiKey string, ttl time.Duration) (*Minter, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating token client: %w", err)
	}
	return &Minter{client: client, ttl: ttl}, nil
}

// Mint returns a single-use short-lived token.
func (m *Minter) Mint(ctx context.Context) (string, error) {
	token, err := m.client.AuthTokens.Create(ctx, &genai.CreateAuthTokenConfig{
		ExpireTime: time.Now().Add(m.ttl),
		Uses:       genai.Ptr[int32](1),
	})
	if err != nil {
		return "", fmt.Errorf("minting ephemeral token: %w", err)
	}
	if token == nil || token.Name == "" {
		return "", fmt.Errorf("token endpoint returned no secret")
	}
	return token.Name, nil
}
