package flow

import "github.com/goliatone/go-formflow/pkg/visibility"

// UnlockTracker is a one-way latch recording whether a field has ever been
// valid while its condition held. Once unlocked it never re-locks; only Reset
// clears it.
type UnlockTracker struct {
	field     string
	condition Condition
	unlocked  bool
}

// NewUnlockTracker watches field. A nil condition requires a filled value.
func NewUnlockTracker(field string, condition Condition) *UnlockTracker {
	return &UnlockTracker{field: field, condition: condition}
}

// Field returns the watched field name.
func (t *UnlockTracker) Field() string {
	return t.field
}

// Unlocked reports whether the latch has been set.
func (t *UnlockTracker) Unlocked() bool {
	return t.unlocked
}

// Observe feeds the current state of the field. It returns true only on the
// call that sets the latch.
func (t *UnlockTracker) Observe(value any, values Values, hasError bool) bool {
	if t.unlocked {
		return false
	}
	if !hasError && t.met(value, values) {
		t.unlocked = true
		return true
	}
	return false
}

// Visible reports unlocked OR (currently valid AND condition met).
func (t *UnlockTracker) Visible(value any, values Values, hasError bool) bool {
	if t.unlocked {
		return true
	}
	return !hasError && t.met(value, values)
}

// Reset clears the latch.
func (t *UnlockTracker) Reset() {
	t.unlocked = false
}

func (t *UnlockTracker) met(value any, values Values) bool {
	if t.condition == nil {
		return visibility.Filled(value)
	}
	return t.condition(value, values)
}
