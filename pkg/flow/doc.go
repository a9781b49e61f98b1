// Package flow implements the progressive-disclosure engine behind multi-step
// forms. A Registry holds the immutable, ordered field definitions; a Session
// owns the mutable values of one form run and, on every change, clears the
// dependents of the changed field, refreshes validation errors, latches sticky
// unlocks, recomputes the active field set and re-evaluates the step gate, in
// that order and in a single pass.
//
// The engine is synchronous and not safe for concurrent use; integrators
// deliver value changes one at a time from their UI event loop.
package flow
