// Package scenario describes scripted dispatcher sessions in YAML and
// replays them against an event.Dispatcher.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/zjrosen/pulse/internal/event"
)

var (
	// ErrInvalidScenario is wrapped by every validation error.
	ErrInvalidScenario = errors.New("invalid scenario")
)

// Scenario is a named script of dispatcher operations and expectations.
type Scenario struct {
	Name      string         `yaml:"name"`
	Listeners []ListenerSpec `yaml:"listeners"`
	Steps     []Step         `yaml:"steps"`

	// Path is the file the scenario was loaded from, if any.
	Path string `yaml:"-"`
}

// ListenerSpec declares a recording listener the steps can refer to.
type ListenerSpec struct {
	ID string `yaml:"id"`
}

// Step is one operation. Exactly one field must be set.
type Step struct {
	Add     *Registration `yaml:"add,omitempty"`
	Remove  *Registration `yaml:"remove,omitempty"`
	Reset   bool          `yaml:"reset,omitempty"`
	Queue   *QueueSpec    `yaml:"queue,omitempty"`
	Process *ProcessSpec  `yaml:"process,omitempty"`
	Expect  *Expectation  `yaml:"expect,omitempty"`
}

// Registration names a listener and the kind it is (un)registered for.
type Registration struct {
	Kind     event.Kind `yaml:"kind"`
	Listener string     `yaml:"listener"`
	Once     bool       `yaml:"once,omitempty"`
}

// QueueSpec queues Count events (default 1) of Kind.
// Events without an ID are assigned one.
type QueueSpec struct {
	Kind  event.Kind     `yaml:"kind"`
	ID    string         `yaml:"id,omitempty"`
	Count int            `yaml:"count,omitempty"`
	Data  map[string]any `yaml:"data,omitempty"`
}

// ProcessSpec calls ProcessEvents with Budget. It may be written as a plain
// integer (`process: 2`) or a mapping (`process: {budget: -1, error: true}`).
type ProcessSpec struct {
	Budget int  `yaml:"budget"`
	Error  bool `yaml:"error,omitempty"`
}

// UnmarshalYAML accepts either a scalar budget or a mapping.
func (p *ProcessSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		return value.Decode(&p.Budget)
	}
	type plain ProcessSpec
	return value.Decode((*plain)(p))
}

// Expectation checks dispatcher state. Unset fields are not checked.
type Expectation struct {
	QueueSize   *int                `yaml:"queue_size,omitempty"`
	Empty       *bool               `yaml:"empty,omitempty"`
	NoListeners *bool               `yaml:"no_listeners,omitempty"`
	HasListener []ListenerCheck     `yaml:"has_listener,omitempty"`
	Calls       map[string]int      `yaml:"calls,omitempty"`
	Received    map[string][]string `yaml:"received,omitempty"`
	Processed   *int                `yaml:"processed,omitempty"`
}

// ListenerCheck asserts HasListener(Kind, Listener) == Want.
type ListenerCheck struct {
	Kind     event.Kind `yaml:"kind"`
	Listener string     `yaml:"listener"`
	Want     bool       `yaml:"want"`
}

// Parse decodes and validates a scenario document.
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decoding scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	s.assignIDs()
	return &s, nil
}

// Load reads and parses the scenario file at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is a user-supplied scenario file
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Path = path
	if s.Name == "" {
		s.Name = path
	}
	return s, nil
}

// LoadAll loads every path, stopping at the first error.
func LoadAll(paths []string) ([]*Scenario, error) {
	out := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := Load(p)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Validate checks that every step has exactly one verb and refers only to
// declared listeners.
func (s *Scenario) Validate() error {
	declared := make(map[string]bool, len(s.Listeners))
	for i, l := range s.Listeners {
		if l.ID == "" {
			return fmt.Errorf("%w: listener %d has no id", ErrInvalidScenario, i)
		}
		if declared[l.ID] {
			return fmt.Errorf("%w: listener %q declared twice", ErrInvalidScenario, l.ID)
		}
		declared[l.ID] = true
	}

	known := func(step int, id string) error {
		if !declared[id] {
			return fmt.Errorf("%w: step %d: unknown listener %q", ErrInvalidScenario, step, id)
		}
		return nil
	}

	for i, step := range s.Steps {
		if n := step.verbs(); n != 1 {
			return fmt.Errorf("%w: step %d: want exactly one operation, got %d", ErrInvalidScenario, i, n)
		}
		switch {
		case step.Add != nil, step.Remove != nil:
			reg := step.Add
			if reg == nil {
				reg = step.Remove
			}
			if reg.Kind == "" {
				return fmt.Errorf("%w: step %d: kind is required", ErrInvalidScenario, i)
			}
			if err := known(i, reg.Listener); err != nil {
				return err
			}
		case step.Queue != nil:
			if step.Queue.Kind == "" {
				return fmt.Errorf("%w: step %d: kind is required", ErrInvalidScenario, i)
			}
			if step.Queue.Count < 0 {
				return fmt.Errorf("%w: step %d: negative count", ErrInvalidScenario, i)
			}
			if step.Queue.Count > 1 && step.Queue.ID != "" {
				return fmt.Errorf("%w: step %d: id cannot be combined with count", ErrInvalidScenario, i)
			}
		case step.Expect != nil:
			for _, check := range step.Expect.HasListener {
				if err := known(i, check.Listener); err != nil {
					return err
				}
			}
			for id := range step.Expect.Calls {
				if err := known(i, id); err != nil {
					return err
				}
			}
			for id := range step.Expect.Received {
				if err := known(i, id); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (st Step) verbs() int {
	n := 0
	for _, set := range []bool{
		st.Add != nil, st.Remove != nil, st.Reset, st.Queue != nil, st.Process != nil, st.Expect != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

func (s *Scenario) assignIDs() {
	for _, step := range s.Steps {
		if q := step.Queue; q != nil && q.ID == "" && q.Count <= 1 {
			q.ID = uuid.NewString()
		}
	}
}
