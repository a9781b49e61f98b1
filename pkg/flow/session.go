package flow

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Session holds the mutable state of one form run: values, validation errors,
// unlock latches, the active set and the step cursor.
type Session struct {
	registry  *Registry
	validator Validator
	logger    zerolog.Logger
	prefill   Values

	values   Values
	errors   Errors
	active   ActiveSet
	trackers map[string]*UnlockTracker
	watchers []string
	step     int
}

// Option configures a Session.
type Option func(*Session)

// WithValidator sets the validation service consulted after every change.
// Without one, no field ever carries an error.
func WithValidator(v Validator) Option {
	return func(s *Session) {
		if v != nil {
			s.validator = v
		}
	}
}

// WithLogger sets the logger used for session events.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithValues seeds the session with prefilled values. Reset returns to them.
func WithValues(values Values) Option {
	return func(s *Session) {
		for key, value := range values {
			s.prefill[key] = value
		}
	}
}

// Change summarises the outcome of a Set call.
type Change struct {
	Field      string
	Resets     []Reset
	Active     ActiveSet
	CanAdvance bool
}

// NewSession starts a session over registry.
func NewSession(registry *Registry, opts ...Option) (*Session, error) {
	if registry == nil {
		return nil, errors.New("flow: registry is required")
	}

	s := &Session{
		registry: registry,
		logger:   zerolog.Nop(),
		prefill:  Values{},
		trackers: make(map[string]*UnlockTracker),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	for key := range s.prefill {
		if !registry.has(key) {
			return nil, fmt.Errorf("flow: prefill: %w: %q", ErrUnknownField, key)
		}
	}

	for _, field := range registry.fields {
		if field.Sticky == nil {
			continue
		}
		s.trackers[field.Name] = NewUnlockTracker(field.Name, field.Sticky.Condition)
	}

	s.values = registry.scope(s.prefill)
	s.evaluate()
	return s, nil
}

// Registry returns the registry backing the session.
func (s *Session) Registry() *Registry {
	return s.registry
}

// Set assigns value to field and runs the change pipeline: dependents are
// cleared, errors recomputed, sticky latches observed, the active set
// recomputed and the step gate re-evaluated.
func (s *Session) Set(field string, value any) (Change, error) {
	if !s.registry.has(field) {
		return Change{}, fmt.Errorf("flow: set: %w: %q", ErrUnknownField, field)
	}

	s.values[field] = value
	resets, err := s.registry.ResetDependents(field)
	if err != nil {
		return Change{}, err
	}
	for _, reset := range resets {
		s.values[reset.Field] = reset.Value
	}
	if len(resets) > 0 {
		names := make([]string, len(resets))
		for i, reset := range resets {
			names[i] = reset.Field
		}
		s.logger.Debug().Str("field", field).Strs("reset", names).Msg("dependents reset")
	}

	s.evaluate()

	return Change{
		Field:      field,
		Resets:     resets,
		Active:     s.active.Clone(),
		CanAdvance: s.CanAdvance(),
	}, nil
}

// evaluate refreshes errors, feeds the unlock trackers of fields currently
// shown and recomputes the active set. It never recurses.
func (s *Session) evaluate() {
	if s.validator != nil {
		s.errors = s.validator.Validate(s.values.Clone())
	}
	if s.errors == nil {
		s.errors = Errors{}
	}

	shown := s.registry.activeFields(s.values, s.forced())
	latched := false
	for _, name := range s.trackedNames() {
		tracker := s.trackers[name]
		if !shown.Has(name) {
			continue
		}
		if tracker.Observe(s.values[name], s.values, s.errors.Has(name)) {
			latched = true
			s.logger.Debug().Str("field", name).Msg("field unlocked")
		}
	}

	if latched {
		shown = s.registry.activeFields(s.values, s.forced())
	}
	s.active = shown
}

// trackedNames lists tracked fields in declaration order followed by ad-hoc
// watchers registered through IsFieldUnlocked.
func (s *Session) trackedNames() []string {
	out := make([]string, 0, len(s.trackers))
	for _, field := range s.registry.fields {
		if field.Sticky != nil {
			out = append(out, field.Name)
		}
	}
	return append(out, s.watchers...)
}

// forced returns the declared-sticky fields whose latch is set.
func (s *Session) forced() map[string]bool {
	out := make(map[string]bool)
	for _, field := range s.registry.fields {
		if field.Sticky == nil {
			continue
		}
		if tracker := s.trackers[field.Name]; tracker != nil && tracker.Unlocked() {
			out[field.Name] = true
		}
	}
	return out
}

// IsFieldUnlocked reports whether field is unlocked: latched, or currently
// valid with its condition met. Fields declared sticky use their declared
// condition; for any other field a watcher is created on first use with the
// optional condition supplied here and kept for the life of the session.
func (s *Session) IsFieldUnlocked(field string, condition ...Condition) (bool, error) {
	if !s.registry.has(field) {
		return false, fmt.Errorf("flow: unlock: %w: %q", ErrUnknownField, field)
	}

	tracker, ok := s.trackers[field]
	if !ok {
		var cond Condition
		if len(condition) > 0 {
			cond = condition[0]
		}
		tracker = NewUnlockTracker(field, cond)
		s.trackers[field] = tracker
		s.watchers = append(s.watchers, field)
		if s.active.Has(field) {
			tracker.Observe(s.values[field], s.values, s.errors.Has(field))
		}
	}

	return tracker.Visible(s.values[field], s.values, s.errors.Has(field)), nil
}

// ActiveFields returns the current active set, including sticky-unlocked
// fields.
func (s *Session) ActiveFields() ActiveSet {
	return s.active.Clone()
}

// Values returns a copy of the current values.
func (s *Session) Values() Values {
	return s.values.Clone()
}

// Value returns the current value of field.
func (s *Session) Value(field string) any {
	return s.values[field]
}

// Errors returns a copy of the current validation errors.
func (s *Session) Errors() Errors {
	return s.errors.Clone()
}

// Step returns the current step cursor.
func (s *Session) Step() int {
	return s.step
}

// StepCount returns the number of steps in the form.
func (s *Session) StepCount() int {
	return s.registry.StepCount()
}

// LastStep reports whether the cursor is on the final step.
func (s *Session) LastStep() bool {
	return s.step >= s.registry.StepCount()-1
}

// StepVisible reports whether step currently shows any field.
func (s *Session) StepVisible(step int) bool {
	return s.registry.StepVisible(step, s.active)
}

// CanAdvance evaluates the step gate for the current step.
func (s *Session) CanAdvance() bool {
	return s.CanAdvanceAt(s.step)
}

// CanAdvanceAt evaluates the step gate for step against the session state.
func (s *Session) CanAdvanceAt(step int) bool {
	return s.registry.canAdvance(step, s.active, s.errors)
}

// Next moves the cursor forward by one step. It is the only way the cursor
// advances; hidden steps are passed over one Next at a time.
func (s *Session) Next() error {
	if s.LastStep() {
		return ErrLastStep
	}
	if !s.CanAdvance() {
		return fmt.Errorf("%w: step %d", ErrStepBlocked, s.step)
	}
	s.step++
	s.logger.Debug().Int("step", s.step).Msg("step advanced")
	return nil
}

// Back moves the cursor back by one step without validating. It is a no-op
// on the first step.
func (s *Session) Back() {
	if s.step == 0 {
		return
	}
	s.step--
	s.logger.Debug().Int("step", s.step).Msg("step back")
}

// Complete reports whether the cursor is on the last step and the whole form
// passes the gate.
func (s *Session) Complete() bool {
	return s.LastStep() && s.CanAdvance()
}

// Submit returns the values of the active fields once the form is complete.
func (s *Session) Submit() (Values, error) {
	if !s.LastStep() {
		return nil, fmt.Errorf("flow: submit: step %d of %d", s.step+1, s.registry.StepCount())
	}
	if !s.CanAdvance() {
		return nil, fmt.Errorf("flow: submit: %w", ErrStepBlocked)
	}
	out := make(Values, s.active.Len())
	for _, field := range s.registry.fields {
		if s.active.Has(field.Name) {
			out[field.Name] = s.values[field.Name]
		}
	}
	s.logger.Debug().Int("fields", len(out)).Msg("form submitted")
	return out, nil
}

// Reset restores the prefilled values, clears every unlock latch and moves
// the cursor back to the first step.
func (s *Session) Reset() {
	for _, tracker := range s.trackers {
		tracker.Reset()
	}
	s.values = s.registry.scope(s.prefill)
	s.step = 0
	s.evaluate()
	s.logger.Debug().Msg("session reset")
}
