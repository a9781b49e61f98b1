// Package visibility defines the contract used to decide whether a form field
// is shown for a given set of values. Rule strings are evaluated by the
// expr-backed implementation in the expr subpackage; Go callers can supply
// predicates directly through EvaluatorFunc.
package visibility
