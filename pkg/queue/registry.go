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

package queue

import (
	"context"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"sort"
)

// ErrUnknownClass is returned when a job's class is not registered
var ErrUnknownClass = errors.New("unknown job class")

// ClassGroup is the fx value group that collects the app's job classes
const ClassGroup = "queue.Class"

// Performer performs a job
type Performer func(ctx context.Context, job *Job) error

// Class is a named job Performer
type Class struct {
	Name    string
	Perform Performer
}

// ClassProvider is used to register a Class via the fx value group
type ClassProvider struct {
	fx.Out

	Class `group:"queue.Class"`
}

// NewClassProvider constructs a new ClassProvider
func NewClassProvider(name string, perform Performer) ClassProvider {
	return ClassProvider{
		Class: Class{Name: name, Perform: perform},
	}
}

// Classes is the set of registered job classes
type Classes struct {
	fx.In

	Classes []Class `group:"queue.Class"`
}

// Registry maps job class names to their Performer
type Registry struct {
	classes map[string]Performer
}

// NewRegistry constructs a new Registry. Class names must be unique.
func NewRegistry(classes ...Class) (*Registry, error) {
	r := &Registry{classes: make(map[string]Performer, len(classes))}
	for _, class := range classes {
		if class.Name == "" {
			return nil, errors.New("job class name must not be blank")
		}
		if class.Perform == nil {
			return nil, errors.Errorf("job class Performer is nil: %s", class.Name)
		}
		if _, exists := r.classes[class.Name]; exists {
			return nil, errors.Errorf("duplicate job class: %s", class.Name)
		}
		r.classes[class.Name] = class.Perform
	}
	return r, nil
}

// Names returns the registered class names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.classes))
	for name := range r.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has returns true if the class is registered
func (r *Registry) Has(class string) bool {
	_, ok := r.classes[class]
	return ok
}

// Perform performs the job using its class Performer
func (r *Registry) Perform(ctx context.Context, job *Job) error {
	perform, ok := r.classes[job.Class]
	if !ok {
		return errors.Wrapf(ErrUnknownClass, "%q", job.Class)
	}
	return perform(ctx, job)
}
