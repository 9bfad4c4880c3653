// Copyright (C) 2025 dawn-network
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package task implements the distributed task registry (C7) and the
// task lifecycle state machine (C12): tasks are CRDT-replicated records
// with a local manager that is the authoritative writer for the tasks it
// creates.
package task

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Status is one state in the task lifecycle state machine.
type Status string

const (
	StatusOpen       Status = "open"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal reports whether s is one of the lifecycle's terminal states.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Task is one task record as stored in the CRDT map.
type Task struct {
	TaskID      string                 `json:"task_id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Status      Status                 `json:"status"`
	Assignee    string                 `json:"assignee,omitempty"`
	Priority    int                    `json:"priority"`
	Dependencies []string              `json:"dependencies,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewTaskID generates "task_<unix_seconds>_<8 hex>".
func NewTaskID(now time.Time) (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("task: generate id suffix: %w", err)
	}
	return fmt.Sprintf("task_%d_%s", now.Unix(), hex.EncodeToString(buf)), nil
}

// clampPriority clamps p into [1, 10] per the ingress invariant.
func clampPriority(p int) int {
	if p < 1 {
		return 1
	}
	if p > 10 {
		return 10
	}
	return p
}
