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

// Package server hosts the credential proxy and assistant REST surface.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/compasshq/compass/assistant"
	"github.com/compasshq/compass/server/handlers"
	"github.com/compasshq/compass/server/routers"
)

// Config is the server configuration, loaded from YAML.
type Config struct {
	Addr         string        `yaml:"addr"`
	DatabasePath string        `yaml:"databasePath"`
	APIKey       string        `yaml:"apiKey"`
	TokenTTL     time.Duration `yaml:"tokenTTL"`
}

// LoadConfig reads a YAML config file, filling defaults for absent fields.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Addr:         ":8080",
		DatabasePath: "compass.db",
		TokenTTL:     time.Minute,
	}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}
	return cfg, nil
}

// Server bundles the HTTP surface and its store.
type Server struct {
	cfg   *Config
	store *assistant.Store
	http  *http.Server
}

// New opens the store and assembles the routes. minter issues the ephemeral
// transport credentials.
func New(cfg *Config, minter handlers.Minter) (*Server, error) {
	store, err := assistant.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	router := routers.NewRouter(
		handlers.NewCredentials(minter),
		handlers.NewAssistants(store),
	)
	return &Server{
		cfg:   cfg,
		store: store,
		http: &http.Server{
			Addr:              cfg.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Store exposes the underlying assistant store.
func (s *Server) Store() *assistant.Store { return s.store }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", s.cfg.Addr).Msg("server listening")
		if err := s.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
