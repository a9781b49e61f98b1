package flow

import "fmt"

// ResetDependents returns the assignments that clear every dependent of
// changed, following dependents transitively in breadth-first order. Each field
// appears at most once. It fires unconditionally: callers invoke it on every
// change event, whether or not the value differs from the previous one.
func (r *Registry) ResetDependents(changed string) ([]Reset, error) {
	field, ok := r.Field(changed)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, changed)
	}

	var resets []Reset
	seen := map[string]struct{}{changed: {}}
	queue := append([]string(nil), field.Dependents...)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if _, done := seen[name]; done {
			continue
		}
		seen[name] = struct{}{}

		dep := r.fields[r.index[name]]
		resets = append(resets, Reset{Field: name, Value: dep.EmptyValue()})
		queue = append(queue, dep.Dependents...)
	}
	return resets, nil
}
