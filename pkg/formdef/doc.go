// Package formdef loads declarative form definitions (JSON or YAML) and turns
// them into a flow.Registry plus the matching validation.Validator. Visibility
// and sticky-unlock rules are expr expressions compiled at load time, so a
// definition that references an unknown field or forms a dependency cycle is
// rejected before any session starts.
package formdef
