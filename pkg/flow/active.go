package flow

// ActiveFields computes the set of visible fields for values. A field is
// active when its predicate (if any) holds and every field that lists it as a
// dependent is itself active. The result depends only on values.
func (r *Registry) ActiveFields(values Values) ActiveSet {
	return r.activeFields(values, nil)
}

// activeFields evaluates visibility in declaration order. Fields in forced are
// active regardless of their predicate or parents (sticky unlocks).
func (r *Registry) activeFields(values Values, forced map[string]bool) ActiveSet {
	if r == nil {
		return ActiveSet{}
	}
	scope := r.scope(values)
	memo := make(map[string]bool, len(r.fields))
	active := make(ActiveSet, len(r.fields))
	for _, field := range r.fields {
		if r.isActive(field.Name, scope, forced, memo) {
			active[field.Name] = struct{}{}
		}
	}
	return active
}

func (r *Registry) isActive(name string, scope Values, forced map[string]bool, memo map[string]bool) bool {
	if result, ok := memo[name]; ok {
		return result
	}
	if forced[name] {
		memo[name] = true
		return true
	}

	// parents form a DAG (checked at construction) so the guard is never read
	// back mid-evaluation.
	memo[name] = false

	field := r.fields[r.index[name]]
	result := field.Visible == nil || field.Visible(scope)
	if result {
		for _, parent := range r.parents[name] {
			if !r.isActive(parent, scope, forced, memo) {
				result = false
				break
			}
		}
	}
	memo[name] = result
	return result
}
