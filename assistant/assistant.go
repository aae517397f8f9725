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

// Package assistant persists assistant configurations and their ordered
// agent definitions.
package assistant

import "time"

// Assistant is a persisted interview assistant configuration. All fields are
// mutable at any time, including while a session is live; voice and speed
// changes propagate to an open session, the rest take effect on the next
// connection.
type Assistant struct {
	ID          string `gorm:"primaryKey;size:36"`
	Name        string `gorm:"not null"`
	Model       string
	Temperature float64
	MaxTokens   int
	Voice       string
	Speed       float64
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Agent is a persisted agent definition belonging to an assistant.
//
// Ordinal is the 1-based activation order, unique and contiguous within an
// assistant; the store compacts it after every mutation. Name doubles as the
// display label and, after normalization, the wire-protocol handoff token,
// but ID is the stable identity.
type Agent struct {
	ID                 string `gorm:"primaryKey;size:36"`
	AssistantID        string `gorm:"index;not null"`
	Name               string `gorm:"not null"`
	Instruction        string
	HandoffDescription string
	Ordinal            int `gorm:"not null"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
