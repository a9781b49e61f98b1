package flow

// CanAdvance reports whether every active field placed on step or an earlier
// step is free of validation errors. Hidden fields never block.
func (r *Registry) CanAdvance(step int, values Values, errs Errors) bool {
	return r.canAdvance(step, r.ActiveFields(values), errs)
}

func (r *Registry) canAdvance(step int, active ActiveSet, errs Errors) bool {
	if r == nil || step < 0 || step >= len(r.steps) {
		return false
	}
	for _, field := range r.fields {
		if field.Step > step || !active.Has(field.Name) {
			continue
		}
		if errs.Has(field.Name) {
			return false
		}
	}
	return true
}

// StepVisible reports whether step has at least one field in active.
func (r *Registry) StepVisible(step int, active ActiveSet) bool {
	if r == nil {
		return false
	}
	for _, field := range r.fields {
		if field.Step == step && active.Has(field.Name) {
			return true
		}
	}
	return false
}
