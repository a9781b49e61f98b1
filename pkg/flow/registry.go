package flow

import (
	"errors"
	"fmt"
	"strings"
)

// Registry is the immutable, ordered set of field definitions of a form. It
// is safe for concurrent readers once built.
type Registry struct {
	fields  []FieldDefinition
	index   map[string]int
	steps   []StepDefinition
	parents map[string][]string
}

// RegistryOption configures NewRegistry.
type RegistryOption func(*registryConfig)

type registryConfig struct {
	steps []StepDefinition
}

// WithSteps declares the steps of the form. Without it the step list is
// derived from the highest Step index used by a field.
func WithSteps(steps ...StepDefinition) RegistryOption {
	return func(cfg *registryConfig) {
		cfg.steps = append(cfg.steps, steps...)
	}
}

// NewRegistry validates the declarations and builds a Registry. Every problem
// found is reported, joined, as *DefinitionError values.
func NewRegistry(fields []FieldDefinition, opts ...RegistryOption) (*Registry, error) {
	cfg := registryConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	reg := &Registry{
		fields:  make([]FieldDefinition, 0, len(fields)),
		index:   make(map[string]int, len(fields)),
		parents: make(map[string][]string),
	}

	var errs []error
	maxStep := 0
	for _, field := range fields {
		field.Name = strings.TrimSpace(field.Name)
		if field.Name == "" {
			errs = append(errs, &DefinitionError{Reason: "field name is required"})
			continue
		}
		if _, exists := reg.index[field.Name]; exists {
			errs = append(errs, &DefinitionError{Field: field.Name, Reason: "declared more than once", Err: ErrDuplicateField})
			continue
		}
		if field.Kind == "" {
			field.Kind = KindString
			if len(field.Options) > 0 {
				field.Kind = KindChoice
			}
		}
		if !field.Kind.Valid() {
			errs = append(errs, &DefinitionError{Field: field.Name, Reason: fmt.Sprintf("unknown kind %q", field.Kind)})
		}
		if field.Kind == KindChoice && len(field.Options) == 0 {
			errs = append(errs, &DefinitionError{Field: field.Name, Reason: "choice field requires options"})
		}
		if field.Step < 0 || (len(cfg.steps) > 0 && field.Step >= len(cfg.steps)) {
			errs = append(errs, &DefinitionError{Field: field.Name, Reason: fmt.Sprintf("step %d out of range", field.Step), Err: ErrInvalidStep})
		}
		if field.Step > maxStep {
			maxStep = field.Step
		}

		field.Options = append([]string(nil), field.Options...)
		field.Dependents = append([]string(nil), field.Dependents...)
		reg.index[field.Name] = len(reg.fields)
		reg.fields = append(reg.fields, field)
	}

	for _, field := range reg.fields {
		seen := make(map[string]struct{}, len(field.Dependents))
		for _, dep := range field.Dependents {
			switch {
			case dep == field.Name:
				errs = append(errs, &DefinitionError{Field: field.Name, Reason: "lists itself as a dependent", Err: ErrCycle})
				continue
			case !reg.has(dep):
				errs = append(errs, &DefinitionError{Field: field.Name, Reason: fmt.Sprintf("dependent %q is not declared", dep), Err: ErrUnknownField})
				continue
			}
			if _, dup := seen[dep]; dup {
				continue
			}
			seen[dep] = struct{}{}
			reg.parents[dep] = append(reg.parents[dep], field.Name)
		}
	}

	if len(errs) == 0 {
		if cycle := reg.findCycle(); len(cycle) > 0 {
			errs = append(errs, &DefinitionError{
				Field:  cycle[0],
				Reason: "dependents form a cycle: " + strings.Join(cycle, " -> "),
				Err:    ErrCycle,
			})
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if len(cfg.steps) > 0 {
		reg.steps = append([]StepDefinition(nil), cfg.steps...)
	} else if len(reg.fields) > 0 {
		reg.steps = make([]StepDefinition, maxStep+1)
		for i := range reg.steps {
			reg.steps[i] = StepDefinition{Name: fmt.Sprintf("step-%d", i+1)}
		}
	}

	return reg, nil
}

// findCycle runs a depth-first search over the dependents graph and returns
// the first cycle found as a closed path (first element repeated last).
func (r *Registry) findCycle() []string {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(r.fields))
	var stack []string

	var visit func(name string) []string
	visit = func(name string) []string {
		state[name] = visiting
		stack = append(stack, name)
		for _, dep := range r.fields[r.index[name]].Dependents {
			switch state[dep] {
			case visiting:
				for i, entry := range stack {
					if entry == dep {
						cycle := append([]string(nil), stack[i:]...)
						return append(cycle, dep)
					}
				}
			case unvisited:
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = done
		return nil
	}

	for _, field := range r.fields {
		if state[field.Name] != unvisited {
			continue
		}
		if cycle := visit(field.Name); cycle != nil {
			return cycle
		}
	}
	return nil
}

func (r *Registry) has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Field returns the definition of name.
func (r *Registry) Field(name string) (FieldDefinition, bool) {
	if r == nil {
		return FieldDefinition{}, false
	}
	idx, ok := r.index[name]
	if !ok {
		return FieldDefinition{}, false
	}
	return r.fields[idx], true
}

// Fields returns all definitions in declaration order.
func (r *Registry) Fields() []FieldDefinition {
	if r == nil {
		return nil
	}
	return append([]FieldDefinition(nil), r.fields...)
}

// Names returns the field names in declaration order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.fields))
	for i, field := range r.fields {
		out[i] = field.Name
	}
	return out
}

// Steps returns the step declarations.
func (r *Registry) Steps() []StepDefinition {
	if r == nil {
		return nil
	}
	return append([]StepDefinition(nil), r.steps...)
}

// StepCount returns the number of steps.
func (r *Registry) StepCount() int {
	if r == nil {
		return 0
	}
	return len(r.steps)
}

// FieldsInStep returns the definitions placed on step, in declaration order.
func (r *Registry) FieldsInStep(step int) []FieldDefinition {
	if r == nil {
		return nil
	}
	var out []FieldDefinition
	for _, field := range r.fields {
		if field.Step == step {
			out = append(out, field)
		}
	}
	return out
}

// Parents returns the fields that list name as a dependent.
func (r *Registry) Parents(name string) []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.parents[name]...)
}

// EmptyValues returns a value set holding the empty value of every field.
func (r *Registry) EmptyValues() Values {
	if r == nil {
		return Values{}
	}
	out := make(Values, len(r.fields))
	for _, field := range r.fields {
		out[field.Name] = field.EmptyValue()
	}
	return out
}

// scope overlays values on the empty value set so predicates never observe a
// missing key for a declared field.
func (r *Registry) scope(values Values) Values {
	out := r.EmptyValues()
	for key, value := range values {
		out[key] = value
	}
	return out
}
