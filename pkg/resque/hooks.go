/*
 * Copyright (c) 2019 OysterPack, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package resque

import (
	"context"
	"fmt"
	"github.com/oysterpack/synapse/pkg/queue"
	"go.uber.org/fx"
	"sync"
)

// Event is a job lifecycle event
type Event uint8

// job lifecycle events
const (
	// BeforePerform fires immediately before the job is performed
	BeforePerform Event = iota + 1
	// AfterPerform fires immediately after the job is performed, whether or not it failed
	AfterPerform
	// OnFailure fires when the job failed, before AfterPerform
	OnFailure
)

func (e Event) String() string {
	switch e {
	case BeforePerform:
		return "beforePerform"
	case AfterPerform:
		return "afterPerform"
	case OnFailure:
		return "onFailure"
	default:
		return fmt.Sprintf("Event(%d)", uint8(e))
	}
}

// Hook is a job lifecycle callback. err is the job error, which is only set for OnFailure and AfterPerform.
type Hook func(ctx context.Context, job *queue.Job, err error)

// Hooks maps each lifecycle event to its hooks, in registration order.
type Hooks struct {
	m     sync.RWMutex
	hooks map[Event][]Hook
}

// NewHooks constructs an empty Hooks registry
func NewHooks() *Hooks {
	return &Hooks{hooks: make(map[Event][]Hook)}
}

// On registers the hook for the event
func (h *Hooks) On(event Event, hook Hook) {
	h.m.Lock()
	defer h.m.Unlock()
	h.hooks[event] = append(h.hooks[event], hook)
}

// Fire invokes the event's hooks synchronously, in registration order
func (h *Hooks) Fire(ctx context.Context, event Event, job *queue.Job, err error) {
	h.m.RLock()
	hooks := h.hooks[event]
	h.m.RUnlock()
	for _, hook := range hooks {
		hook(ctx, job, err)
	}
}

// Count returns the number of hooks registered for the event
func (h *Hooks) Count(event Event) int {
	h.m.RLock()
	defer h.m.RUnlock()
	return len(h.hooks[event])
}

// HookGroup is the fx value group that collects hook registrations
const HookGroup = "resque.Hook"

// HookRegistration binds a Hook to an Event
type HookRegistration struct {
	Event
	Hook
}

// HookProvider is used to register a Hook via the fx value group
type HookProvider struct {
	fx.Out

	HookRegistration `group:"resque.Hook"`
}

// NewHookProvider constructs a new HookProvider
func NewHookProvider(event Event, hook Hook) HookProvider {
	return HookProvider{
		HookRegistration: HookRegistration{Event: event, Hook: hook},
	}
}
