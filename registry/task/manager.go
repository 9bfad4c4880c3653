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

package task

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dawn-network/node/crdt"
)

// Errors returned by the task lifecycle state machine. These are
// application-visible task errors (§7.6): never raised into the
// scheduler, always returned to the caller.
var (
	ErrUnknownTask          = fmt.Errorf("task: unknown task id")
	ErrInvalidTransition    = fmt.Errorf("task: invalid status transition")
	ErrDependenciesUnmet    = fmt.Errorf("task: not all dependencies are completed")
)

// Manager is the local, authoritative writer for the tasks it creates; it
// mutates its own copy first, then re-stamps the result into the shared
// CRDT map so the change propagates on the next gossip round.
type Manager struct {
	mu    sync.Mutex
	store *crdt.Map
	now   func() time.Time
}

// NewManager creates a task manager backed by a fresh CRDT map stamped
// with selfNodeID.
func NewManager(selfNodeID string) *Manager {
	return &Manager{store: crdt.New(selfNodeID), now: time.Now}
}

// Create validates dependencies and priority, generates a task id, and
// inserts the new task in status=open.
func (m *Manager) Create(title, description string, priority int, dependencies []string) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	id, err := NewTaskID(now)
	if err != nil {
		return nil, err
	}

	// Dependencies referencing unknown task ids are dropped with a
	// warning on creation (the warning itself is the caller's concern;
	// this layer just filters).
	known := make([]string, 0, len(dependencies))
	for _, dep := range dependencies {
		if _, ok := m.getLocked(dep); ok {
			known = append(known, dep)
		}
	}

	t := &Task{
		TaskID:       id,
		Title:        title,
		Description:  description,
		Status:       StatusOpen,
		Priority:     clampPriority(priority),
		Dependencies: known,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.putLocked(t)
	return t, nil
}

func (m *Manager) getLocked(id string) (*Task, bool) {
	v, ok := m.store.Get(id)
	if !ok {
		return nil, false
	}
	return toTask(v)
}

func (m *Manager) putLocked(t *Task) {
	raw, _ := json.Marshal(t)
	var asMap map[string]interface{}
	_ = json.Unmarshal(raw, &asMap)
	m.store.Set(t.TaskID, asMap)
}

func toTask(value interface{}) (*Task, bool) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, false
	}
	var t Task
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, false
	}
	return &t, true
}

// Get returns the task for id.
func (m *Manager) Get(id string) (*Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(id)
}

// dependenciesCompleted reports whether every dependency of t is in
// status=completed. Unknown dependency ids (shouldn't occur post-Create,
// but may appear after a merge) count as unmet.
func (m *Manager) dependenciesCompleted(t *Task) bool {
	for _, dep := range t.Dependencies {
		depTask, ok := m.getLocked(dep)
		if !ok || depTask.Status != StatusCompleted {
			return false
		}
	}
	return true
}

// Assign transitions a task from open to assigned, gated on every
// dependency being completed.
func (m *Manager) Assign(id, assignee string) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.getLocked(id)
	if !ok {
		return nil, ErrUnknownTask
	}
	if t.Status != StatusOpen {
		return nil, ErrInvalidTransition
	}
	if !m.dependenciesCompleted(t) {
		return nil, ErrDependenciesUnmet
	}

	t.Status = StatusAssigned
	t.Assignee = assignee
	t.UpdatedAt = m.now()
	m.putLocked(t)
	return t, nil
}

// Start transitions a task from assigned to in_progress.
func (m *Manager) Start(id string) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.getLocked(id)
	if !ok {
		return nil, ErrUnknownTask
	}
	if t.Status != StatusAssigned {
		return nil, ErrInvalidTransition
	}

	now := m.now()
	t.Status = StatusInProgress
	t.StartedAt = &now
	t.UpdatedAt = now
	m.putLocked(t)
	return t, nil
}

// Complete transitions a task from in_progress to completed. A non-nil
// result is stored at Metadata["result"].
func (m *Manager) Complete(id string, result map[string]interface{}) (*Task, error) {
	return m.finish(id, StatusCompleted, StatusInProgress, result)
}

// Fail transitions a task from in_progress to failed.
func (m *Manager) Fail(id string) (*Task, error) {
	return m.finish(id, StatusFailed, StatusInProgress, nil)
}

func (m *Manager) finish(id string, to, from Status, result map[string]interface{}) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.getLocked(id)
	if !ok {
		return nil, ErrUnknownTask
	}
	if t.Status != from {
		return nil, ErrInvalidTransition
	}

	now := m.now()
	t.Status = to
	t.CompletedAt = &now
	t.UpdatedAt = now
	if result != nil {
		if t.Metadata == nil {
			t.Metadata = make(map[string]interface{})
		}
		t.Metadata["result"] = result
	}
	m.putLocked(t)
	return t, nil
}

// Cancel transitions a task from open or assigned to cancelled.
func (m *Manager) Cancel(id string) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.getLocked(id)
	if !ok {
		return nil, ErrUnknownTask
	}
	if t.Status != StatusOpen && t.Status != StatusAssigned {
		return nil, ErrInvalidTransition
	}

	now := m.now()
	t.Status = StatusCancelled
	t.CompletedAt = &now
	t.UpdatedAt = now
	m.putLocked(t)
	return t, nil
}

// ListFilter narrows List's results; zero values mean "no filter".
type ListFilter struct {
	Status   Status
	Assignee string
	Limit    int
}

// List returns tasks sorted by (priority ascending, created_at
// ascending), with filter's status and assignee applied before limit.
func (m *Manager) List(filter ListFilter) []*Task {
	m.mu.Lock()
	all := m.store.GetAll()
	m.mu.Unlock()

	out := make([]*Task, 0, len(all))
	for _, v := range all {
		t, ok := toTask(v)
		if !ok {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Assignee != "" && t.Assignee != filter.Assignee {
			continue
		}
		out = append(out, t)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

// GetState returns the raw CRDT state for gossip fan-out.
func (m *Manager) GetState() map[string]crdt.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.GetState()
}

// Merge applies a remote CRDT state received over gossip.
func (m *Manager) Merge(remote map[string]crdt.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store.Merge(remote)
}
