package flow

import (
	"sort"

	"github.com/goliatone/go-formflow/pkg/visibility"
)

// Kind identifies the value type a field collects.
type Kind string

const (
	KindString  Kind = "string"
	KindText    Kind = "text"
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindChoice  Kind = "choice"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindString, KindText, KindInteger, KindNumber, KindBoolean, KindChoice:
		return true
	default:
		return false
	}
}

// Predicate decides visibility from the current values. Values passed to a
// predicate include the declared empty value of every unset field.
type Predicate func(values Values) bool

// Condition is the optional extra check of a sticky unlock, evaluated against
// the watched field's value and the full value set.
type Condition func(value any, values Values) bool

// UnlockRule marks a field as sticky: once it has been valid (and Condition
// held, or the value was filled when Condition is nil) it stays active.
type UnlockRule struct {
	Condition Condition
}

// FieldDefinition declares one field of a form.
type FieldDefinition struct {
	Name    string
	Label   string
	Help    string
	Kind    Kind
	Step    int
	Options []string

	// Visible is evaluated against the current values; nil means always
	// visible. VisibleWhen keeps the rule source for diagnostics.
	Visible     Predicate
	VisibleWhen string

	// Dependents are reset to their empty value whenever this field changes.
	Dependents []string

	Sticky *UnlockRule

	// Empty overrides the value dependents are reset to. When nil the zero
	// value for Kind is used.
	Empty any
}

// EmptyValue returns the value the field holds when cleared.
func (f FieldDefinition) EmptyValue() any {
	if f.Empty != nil {
		return f.Empty
	}
	switch f.Kind {
	case KindInteger, KindNumber:
		return nil
	case KindBoolean:
		return false
	default:
		return ""
	}
}

// DisplayLabel returns Label, falling back to Name.
func (f FieldDefinition) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// StepDefinition names one page of a multi-step form.
type StepDefinition struct {
	Name  string
	Title string
}

// Reset is a value assignment produced by the dependency resetter.
type Reset struct {
	Field string
	Value any
}

// Values maps field names to their current values.
type Values map[string]any

// Clone returns a shallow copy of v.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for key, value := range v {
		out[key] = value
	}
	return out
}

// Filled reports whether the named value is present.
func (v Values) Filled(name string) bool {
	return visibility.Filled(v[name])
}

// Errors maps field names to validation messages. Presence of a key is the
// only signal the engine reads.
type Errors map[string]string

// Has reports whether field carries an error.
func (e Errors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// Clone returns a copy of e.
func (e Errors) Clone() Errors {
	out := make(Errors, len(e))
	for key, msg := range e {
		out[key] = msg
	}
	return out
}

// Validator computes the validation error map for a full value set.
type Validator interface {
	Validate(values Values) Errors
}

// ValidatorFunc adapts a function into a Validator.
type ValidatorFunc func(values Values) Errors

// Validate delegates to the underlying function.
func (fn ValidatorFunc) Validate(values Values) Errors {
	return fn(values)
}

// ActiveSet is the set of currently visible field names.
type ActiveSet map[string]struct{}

// Has reports whether name is active.
func (s ActiveSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Len returns the number of active fields.
func (s ActiveSet) Len() int {
	return len(s)
}

// Clone returns a copy of s.
func (s ActiveSet) Clone() ActiveSet {
	out := make(ActiveSet, len(s))
	for name := range s {
		out[name] = struct{}{}
	}
	return out
}

// Sorted returns the active names in lexical order.
func (s ActiveSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Ordered returns the active names in the registry's declaration order.
func (s ActiveSet) Ordered(registry *Registry) []string {
	if registry == nil {
		return s.Sorted()
	}
	out := make([]string, 0, len(s))
	for _, field := range registry.fields {
		if s.Has(field.Name) {
			out = append(out, field.Name)
		}
	}
	return out
}

// NewActiveSet builds a set from names.
func NewActiveSet(names ...string) ActiveSet {
	out := make(ActiveSet, len(names))
	for _, name := range names {
		out[name] = struct{}{}
	}
	return out
}
